// facets.go — значения для фасетных фильтров (выпадающие списки).
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/bigkaa/partcatalog/search-module/internal/query"
)

// facetConcurrency — число одновременных DISTINCT-запросов одного вызова.
const facetConcurrency = 4

// FacetSource — источник различных значений столбца.
type FacetSource interface {
	Distinct(ctx context.Context, column string) ([]string, error)
}

// FacetService — значения фасетных фильтров одной сущности.
type FacetService struct {
	schema  *query.Schema
	repo    FacetSource
	cache   *ResultCache
	ttl     time.Duration
	timeout time.Duration
	locale  language.Tag
	logger  *slog.Logger
}

// NewFacetService создаёт сервис фасетов.
// locale задаёт порядок сортировки значений.
func NewFacetService(
	schema *query.Schema,
	repo FacetSource,
	cache *ResultCache,
	ttl time.Duration,
	timeout time.Duration,
	locale language.Tag,
	logger *slog.Logger,
) *FacetService {
	return &FacetService{
		schema:  schema,
		repo:    repo,
		cache:   cache,
		ttl:     ttl,
		timeout: timeout,
		locale:  locale,
		logger:  logger.With(slog.String("component", "facet_service"), slog.String("entity", schema.Entity)),
	}
}

// FacetOptions возвращает для каждого фасетного поля различные непустые значения,
// отсортированные с учётом локали.
func (s *FacetService) FacetOptions(ctx context.Context) (map[string][]string, error) {
	return GetOrCompute(ctx, s.cache, "facets:"+s.schema.Entity, s.ttl, s.compute)
}

func (s *FacetService) compute(ctx context.Context) (map[string][]string, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	fields := s.schema.FacetFields()
	values := make([][]string, len(fields))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(facetConcurrency)
	for i, f := range fields {
		g.Go(func() error {
			v, err := s.repo.Distinct(gctx, f.Column)
			if err != nil {
				return fmt.Errorf("значения %s: %w", f.Name, err)
			}
			values[i] = SortFacetValues(v, s.locale)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Error("Ошибка получения значений фильтров", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %w", ErrDataSource, err)
	}

	out := make(map[string][]string, len(fields))
	for i, f := range fields {
		out[f.Name] = values[i]
	}
	return out, nil
}

// SortFacetValues обрезает пробелы, удаляет пустые значения и дубликаты
// и сортирует результат по правилам локали.
// Collator не потокобезопасен, поэтому создаётся на каждый вызов.
func SortFacetValues(values []string, locale language.Tag) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}

	collate.New(locale).SortStrings(out)
	return out
}
