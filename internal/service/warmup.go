// warmup.go — прогрев кэша при старте сервиса.
package service

import (
	"context"
	"log/slog"
	"time"
)

// warmupStep — один шаг прогрева.
type warmupStep struct {
	name string
	run  func(ctx context.Context) error
}

// CacheWarmer последовательно выполняет шаги прогрева кэша.
// Ошибка шага логируется и не прерывает прогрев: холодный кэш не мешает работе.
type CacheWarmer struct {
	steps  []warmupStep
	logger *slog.Logger
}

// NewCacheWarmer создаёт пустой прогрев.
func NewCacheWarmer(logger *slog.Logger) *CacheWarmer {
	return &CacheWarmer{logger: logger.With(slog.String("component", "cache_warmer"))}
}

// Add добавляет шаг прогрева.
func (w *CacheWarmer) Add(name string, run func(ctx context.Context) error) *CacheWarmer {
	w.steps = append(w.steps, warmupStep{name: name, run: run})
	return w
}

// WarmStep приводит метод сервиса вида func(ctx) (T, error) к шагу прогрева.
func WarmStep[T any](fn func(ctx context.Context) (T, error)) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		_, err := fn(ctx)
		return err
	}
}

// Run выполняет все шаги и возвращает количество неудачных.
func (w *CacheWarmer) Run(ctx context.Context) int {
	start := time.Now()
	failed := 0

	for i, step := range w.steps {
		if err := ctx.Err(); err != nil {
			// оставшиеся шаги считаются неудачными
			w.logger.Warn("Прогрев кэша прерван", slog.String("step", step.name), slog.String("error", err.Error()))
			return failed + len(w.steps) - i
		}
		if err := step.run(ctx); err != nil {
			failed++
			w.logger.Warn("Ошибка шага прогрева кэша",
				slog.String("step", step.name),
				slog.String("error", err.Error()),
			)
			continue
		}
		w.logger.Debug("Шаг прогрева кэша выполнен", slog.String("step", step.name))
	}

	w.logger.Info("Прогрев кэша завершён",
		slog.Int("steps", len(w.steps)),
		slog.Int("failed", failed),
		slog.Duration("duration", time.Since(start)),
	)
	return failed
}
