// Пакет service — бизнес-логика модуля поиска по каталогу.
// ResultCache — кэш результатов поиска, фасетов и справочников с TTL.
// Хранилище кэша подключаемое: in-memory LRU (hashicorp/golang-lru/v2/expirable) или Redis.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Prometheus-метрики кэша. Метка kind — префикс ключа (search, facets, ...).
var (
	cacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cs_cache_hits_total",
		Help: "Общее количество попаданий в кэш результатов.",
	}, []string{"kind"})
	cacheMissesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cs_cache_misses_total",
		Help: "Общее количество промахов кэша результатов.",
	}, []string{"kind"})
	cacheErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cs_cache_errors_total",
		Help: "Ошибки чтения/записи кэша (запрос выполняется без кэша).",
	}, []string{"op"})
)

// CacheBackend — хранилище сериализованных значений с TTL.
type CacheBackend interface {
	// Get возвращает значение; (nil, false, nil) — промах.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set сохраняет значение на время ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// --- In-memory backend ---

// memoryEntry — значение с собственным сроком жизни.
type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryCacheBackend — LRU-кэш процесса с TTL на запись.
// Каждый экземпляр сервиса имеет собственный кэш.
type MemoryCacheBackend struct {
	cache *expirable.LRU[string, memoryEntry]
	now   func() time.Time
}

// NewMemoryCacheBackend создаёт LRU-кэш.
// maxSize — максимальное количество записей.
// maxTTL — верхняя граница жизни записи (TTL конкретной записи задаётся в Set).
func NewMemoryCacheBackend(maxSize int, maxTTL time.Duration) *MemoryCacheBackend {
	return &MemoryCacheBackend{
		cache: expirable.NewLRU[string, memoryEntry](maxSize, nil, maxTTL),
		now:   time.Now,
	}
}

// Get возвращает значение, если срок жизни записи не истёк.
func (m *MemoryCacheBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	e, ok := m.cache.Get(key)
	if !ok {
		return nil, false, nil
	}
	if !m.now().Before(e.expiresAt) {
		m.cache.Remove(key)
		return nil, false, nil
	}
	return e.value, true, nil
}

// Set добавляет или обновляет запись.
func (m *MemoryCacheBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.cache.Add(key, memoryEntry{value: value, expiresAt: m.now().Add(ttl)})
	return nil
}

// Len возвращает количество записей (включая ещё не удалённые просроченные).
func (m *MemoryCacheBackend) Len() int {
	return m.cache.Len()
}

// --- Redis backend ---

// RedisCacheBackend — общий кэш нескольких экземпляров сервиса в Redis.
type RedisCacheBackend struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisCacheBackend создаёт кэш поверх клиента Redis.
// prefix добавляется ко всем ключам (пространство имён сервиса).
func NewRedisCacheBackend(client redis.UniversalClient, prefix string) *RedisCacheBackend {
	return &RedisCacheBackend{client: client, prefix: prefix}
}

// Get читает значение; redis.Nil — промах.
func (r *RedisCacheBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis GET: %w", err)
	}
	return data, true, nil
}

// Set записывает значение с TTL.
func (r *RedisCacheBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis SET: %w", err)
	}
	return nil
}

// CheckReady проверяет доступность Redis для health endpoint.
func (r *RedisCacheBackend) CheckReady() (status, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := r.client.Ping(ctx).Err(); err != nil {
		// Сервис работает без кэша, поэтому недоступность Redis — не fail
		return "degraded", fmt.Sprintf("Redis недоступен: %v", err)
	}
	return "ok", "подключение активно"
}

// --- ResultCache ---

// ResultCache — кэш вычисленных результатов.
// Значения хранятся сериализованными в JSON: ответ из кэша и свежевычисленный
// ответ декодируются из одних и тех же байт и поэтому совпадают.
type ResultCache struct {
	backend CacheBackend
	// group объединяет одновременные промахи по одному ключу; nil — без объединения
	group  *singleflight.Group
	logger *slog.Logger
}

// NewResultCache создаёт кэш результатов.
// backend == nil — кэширование выключено, каждое обращение вычисляется.
// dedup — объединять одновременные промахи по одному ключу в одно вычисление.
func NewResultCache(backend CacheBackend, dedup bool, logger *slog.Logger) *ResultCache {
	c := &ResultCache{
		backend: backend,
		logger:  logger.With(slog.String("component", "result_cache")),
	}
	if dedup {
		c.group = &singleflight.Group{}
	}
	return c
}

// GetOrCompute возвращает значение из кэша или вычисляет его через compute.
//
// Ошибки кэша не возвращаются вызывающему: они логируются, и значение вычисляется
// напрямую. Ошибки compute не кэшируются. Если вычисление, к которому присоединился
// запрос, завершилось по таймауту чужого контекста, запрос повторяет вычисление
// со своим контекстом.
func GetOrCompute[T any](
	ctx context.Context,
	c *ResultCache,
	key string,
	ttl time.Duration,
	compute func(ctx context.Context) (T, error),
) (T, error) {
	var zero T
	if c == nil || c.backend == nil {
		return compute(ctx)
	}

	kind := cacheKind(key)
	if data, ok := c.get(ctx, key); ok {
		var v T
		if err := json.Unmarshal(data, &v); err == nil {
			cacheHitsTotal.WithLabelValues(kind).Inc()
			return v, nil
		}
		cacheErrorsTotal.WithLabelValues("decode").Inc()
		c.logger.Warn("Некорректное значение в кэше, пересчёт", slog.String("key", key))
	}
	cacheMissesTotal.WithLabelValues(kind).Inc()

	load := func(ctx context.Context) ([]byte, error) {
		v, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("сериализация результата: %w", err)
		}
		c.set(ctx, key, data, ttl)
		return data, nil
	}

	data, err := c.load(ctx, key, load)
	if err != nil {
		return zero, err
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return zero, fmt.Errorf("десериализация результата: %w", err)
	}
	return v, nil
}

// leaderAbortedError — вычисление прервано из-за завершения контекста вызвавшего
// его запроса, а не из-за ошибки источника данных.
type leaderAbortedError struct {
	err error
}

func (e *leaderAbortedError) Error() string { return e.err.Error() }
func (e *leaderAbortedError) Unwrap() error { return e.err }

// maxLoadAttempts — сколько раз ведомый запрос присоединяется к вычислению,
// если ведущие запросы отменяются.
const maxLoadAttempts = 3

// load выполняет вычисление, объединяя одновременные промахи по ключу.
// Ведомые запросы повторяют вычисление (снова через singleflight) только если
// ведущий запрос был отменён своим вызывающим; таймаут хранилища отдаётся всем.
func (c *ResultCache) load(
	ctx context.Context,
	key string,
	load func(ctx context.Context) ([]byte, error),
) ([]byte, error) {
	if c.group == nil {
		return load(ctx)
	}

	for attempt := 1; ; attempt++ {
		ch := c.group.DoChan(key, func() (any, error) {
			data, err := load(ctx)
			if err != nil && ctx.Err() != nil {
				return nil, &leaderAbortedError{err: err}
			}
			return data, err
		})

		var res singleflight.Result
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case res = <-ch:
		}
		if res.Err == nil {
			return res.Val.([]byte), nil
		}

		var aborted *leaderAbortedError
		if !errors.As(res.Err, &aborted) {
			return nil, res.Err
		}
		if ctx.Err() != nil || attempt >= maxLoadAttempts {
			return nil, aborted.err
		}
		c.logger.Debug("Повтор вычисления после отмены ведущего запроса",
			slog.String("key", key), slog.Int("attempt", attempt+1))
	}
}

// get читает ключ; ошибка хранилища считается промахом.
func (c *ResultCache) get(ctx context.Context, key string) ([]byte, bool) {
	data, ok, err := c.backend.Get(ctx, key)
	if err != nil {
		cacheErrorsTotal.WithLabelValues("get").Inc()
		c.logger.Warn("Ошибка чтения кэша", slog.String("key", key), slog.String("error", err.Error()))
		return nil, false
	}
	return data, ok
}

// set записывает ключ; запись не зависит от отмены запроса, ошибка только логируется.
func (c *ResultCache) set(ctx context.Context, key string, data []byte, ttl time.Duration) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()

	if err := c.backend.Set(ctx, key, data, ttl); err != nil {
		cacheErrorsTotal.WithLabelValues("set").Inc()
		c.logger.Warn("Ошибка записи в кэш", slog.String("key", key), slog.String("error", err.Error()))
	}
}

// cacheKind возвращает префикс ключа до первого ':' (метка метрик).
func cacheKind(key string) string {
	kind, _, _ := strings.Cut(key, ":")
	return kind
}
