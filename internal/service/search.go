// search.go — сервис поиска по сущностям каталога.
// Координирует построитель фильтров, repository, кэш результатов и Prometheus-метрики.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/errgroup"

	"github.com/bigkaa/partcatalog/search-module/internal/query"
	"github.com/bigkaa/partcatalog/search-module/internal/repository"
)

// Ошибки сервисного слоя.
var (
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("запись не найдена")
	// ErrDataSource — хранилище недоступно или не ответило вовремя.
	// Пустая страница результата всегда означает "ничего не найдено", а не сбой.
	ErrDataSource = errors.New("источник данных недоступен")
)

// Prometheus-метрики поиска.
var (
	searchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cs_search_total",
		Help: "Общее количество поисковых запросов.",
	}, []string{"entity"})
	searchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cs_search_duration_seconds",
		Help:    "Длительность поисковых запросов (включая кэш).",
		Buckets: prometheus.DefBuckets,
	}, []string{"entity"})
	searchErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cs_search_errors_total",
		Help: "Поисковые запросы, завершившиеся ошибкой источника данных.",
	}, []string{"entity"})
)

// SearchResultPage — страница результата поиска.
type SearchResultPage[T any] struct {
	Items       []T  `json:"items"`
	Total       int  `json:"total"`
	Page        int  `json:"page"`
	Limit       int  `json:"limit"`
	TotalPages  int  `json:"totalPages"`
	HasNextPage bool `json:"hasNextPage"`
	HasPrevPage bool `json:"hasPrevPage"`
}

// NewSearchResultPage собирает страницу.
// totalPages не меньше 1 даже при total == 0.
func NewSearchResultPage[T any](items []T, total, page, limit int) SearchResultPage[T] {
	if items == nil {
		items = []T{}
	}
	if limit < 1 {
		limit = 1
	}
	if page < 1 {
		page = 1
	}
	totalPages := max(1, (total+limit-1)/limit)

	return SearchResultPage[T]{
		Items:       items,
		Total:       total,
		Page:        page,
		Limit:       limit,
		TotalPages:  totalPages,
		HasNextPage: page < totalPages,
		HasPrevPage: page > 1,
	}
}

// ParameterSource выдаёт справочник для разрешения ключей параметров.
type ParameterSource interface {
	Resolver(ctx context.Context) (query.ParameterResolver, error)
}

// SearchService — поиск по одной сущности каталога.
type SearchService[T any] struct {
	schema  *query.Schema
	repo    repository.EntityRepository[T]
	params  ParameterSource
	cache   *ResultCache
	ttl     time.Duration
	timeout time.Duration
	logger  *slog.Logger
}

// NewSearchService создаёт сервис поиска.
// params может быть nil — тогда любые фильтры по параметрам отсекают все записи.
// timeout — ограничение на одно обращение к хранилищу (0 — без ограничения).
func NewSearchService[T any](
	schema *query.Schema,
	repo repository.EntityRepository[T],
	params ParameterSource,
	cache *ResultCache,
	ttl time.Duration,
	timeout time.Duration,
	logger *slog.Logger,
) *SearchService[T] {
	return &SearchService[T]{
		schema:  schema,
		repo:    repo,
		params:  params,
		cache:   cache,
		ttl:     ttl,
		timeout: timeout,
		logger:  logger.With(slog.String("component", "search_service"), slog.String("entity", schema.Entity)),
	}
}

// Search выполняет поиск.
// Некорректный ввод нормализуется и никогда не приводит к ошибке;
// ошибка возможна только при сбое хранилища (ErrDataSource).
func (s *SearchService[T]) Search(ctx context.Context, req query.FilterRequest) (*SearchResultPage[T], error) {
	start := time.Now()
	searchTotal.WithLabelValues(s.schema.Entity).Inc()
	defer func() {
		searchDuration.WithLabelValues(s.schema.Entity).Observe(time.Since(start).Seconds())
	}()

	norm := req.Normalize(s.schema)

	var resolver query.ParameterResolver
	if len(norm.Parameters) > 0 && s.params != nil {
		var err error
		if resolver, err = s.params.Resolver(ctx); err != nil {
			searchErrorsTotal.WithLabelValues(s.schema.Entity).Inc()
			return nil, err
		}
	}

	plan := query.NewPlan(s.schema, norm, query.BuildFilter(s.schema, norm, resolver))

	page, err := GetOrCompute(ctx, s.cache, norm.CacheKey(s.schema), s.ttl,
		func(ctx context.Context) (SearchResultPage[T], error) {
			return s.execute(ctx, norm, plan)
		})
	if err != nil {
		searchErrorsTotal.WithLabelValues(s.schema.Entity).Inc()
		return nil, err
	}

	s.logger.Debug("Поиск выполнен",
		slog.String("keyword", norm.Keyword),
		slog.Int("total", page.Total),
		slog.Int("returned", len(page.Items)),
		slog.Duration("duration", time.Since(start)),
	)
	return &page, nil
}

// execute выполняет выборку страницы и подсчёт параллельно по одному плану.
func (s *SearchService[T]) execute(ctx context.Context, req query.FilterRequest, plan query.Plan) (SearchResultPage[T], error) {
	if plan.Filter.MatchesNothing() {
		for _, p := range plan.Filter.Predicates {
			if p.Kind == query.PredMatchNothing {
				s.logger.Debug("Фильтр заведомо пуст", slog.String("reason", p.Reason))
			}
		}
		return NewSearchResultPage[T](nil, 0, req.Page, req.Limit), nil
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var (
		items []T
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = s.repo.Find(gctx, plan)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.repo.Count(gctx, plan.Filter)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("Ошибка поиска", slog.String("error", err.Error()))
		return SearchResultPage[T]{}, fmt.Errorf("%w: поиск %s: %w", ErrDataSource, s.schema.Entity, err)
	}

	return NewSearchResultPage(items, total, req.Page, req.Limit), nil
}

// withTimeout ограничивает контекст обращения к хранилищу; d <= 0 — без ограничения.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
