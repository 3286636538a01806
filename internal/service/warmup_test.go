package service

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"testing"
	"time"

	"github.com/bigkaa/partcatalog/search-module/internal/domain/model"
)

// TestCacheWarmer_Run проверяет порядок шагов и подсчёт неудачных.
func TestCacheWarmer_Run(t *testing.T) {
	var order []string
	step := func(name string, err error) func(context.Context) error {
		return func(context.Context) error {
			order = append(order, name)
			return err
		}
	}

	w := NewCacheWarmer(slog.Default()).
		Add("definitions", step("definitions", nil)).
		Add("facets", step("facets", errors.New("db down"))).
		Add("statistics", step("statistics", nil))

	if failed := w.Run(context.Background()); failed != 1 {
		t.Errorf("failed = %d, ожидался 1", failed)
	}
	if want := []string{"definitions", "facets", "statistics"}; !slices.Equal(order, want) {
		t.Errorf("порядок = %v, ожидался %v (ошибка шага не прерывает прогрев)", order, want)
	}
}

// TestCacheWarmer_Cancelled проверяет остановку по отмене контекста.
func TestCacheWarmer_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	w := NewCacheWarmer(slog.Default()).
		Add("first", func(context.Context) error {
			calls++
			cancel()
			return nil
		}).
		Add("second", func(context.Context) error { calls++; return nil }).
		Add("third", func(context.Context) error { calls++; return nil })

	if failed := w.Run(ctx); failed != 2 {
		t.Errorf("failed = %d, ожидалось 2 (невыполненные шаги)", failed)
	}
	if calls != 1 {
		t.Errorf("выполнено %d шагов, ожидался 1", calls)
	}
}

// TestWarmStep проверяет, что прогрев заполняет кэш сервиса.
func TestWarmStep(t *testing.T) {
	src := &mockStatisticsSource{rowsFn: func(context.Context) ([]model.StatisticsRow, error) {
		return []model.StatisticsRow{{Manufacturer: "TI", Count: 1}}, nil
	}}
	svc := NewStatisticsService(src, newTestCache(), time.Minute, time.Second, 10, slog.Default())

	w := NewCacheWarmer(slog.Default()).Add("statistics", WarmStep(svc.Statistics))
	if failed := w.Run(context.Background()); failed != 0 {
		t.Fatalf("failed = %d, ожидался 0", failed)
	}

	if _, err := svc.Statistics(context.Background()); err != nil {
		t.Fatalf("Statistics: %v", err)
	}
	if src.calls != 1 {
		t.Errorf("источник вызван %d раз, ожидался 1 (ответ из прогретого кэша)", src.calls)
	}
}
