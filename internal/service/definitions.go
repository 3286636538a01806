package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bigkaa/partcatalog/search-module/internal/domain/model"
	"github.com/bigkaa/partcatalog/search-module/internal/query"
)

// definitionsCacheKey — ключ справочника параметров в кэше.
const definitionsCacheKey = "definitions:all"

// DefinitionSource — источник справочника параметров.
type DefinitionSource interface {
	Definitions(ctx context.Context) ([]model.ParameterDefinition, error)
}

// DefinitionService — справочник параметров с кэшированием.
// Используется для разрешения ключей в фильтрах и для подписей в карточке компонента.
type DefinitionService struct {
	repo    DefinitionSource
	cache   *ResultCache
	ttl     time.Duration
	timeout time.Duration
	logger  *slog.Logger
}

// NewDefinitionService создаёт сервис справочника параметров.
func NewDefinitionService(
	repo DefinitionSource,
	cache *ResultCache,
	ttl time.Duration,
	timeout time.Duration,
	logger *slog.Logger,
) *DefinitionService {
	return &DefinitionService{
		repo:    repo,
		cache:   cache,
		ttl:     ttl,
		timeout: timeout,
		logger:  logger.With(slog.String("component", "definition_service")),
	}
}

// Definitions возвращает справочник параметров.
func (s *DefinitionService) Definitions(ctx context.Context) ([]model.ParameterDefinition, error) {
	return GetOrCompute(ctx, s.cache, definitionsCacheKey, s.ttl,
		func(ctx context.Context) ([]model.ParameterDefinition, error) {
			ctx, cancel := withTimeout(ctx, s.timeout)
			defer cancel()

			defs, err := s.repo.Definitions(ctx)
			if err != nil {
				s.logger.Error("Ошибка загрузки справочника параметров", slog.String("error", err.Error()))
				return nil, fmt.Errorf("%w: справочник параметров: %w", ErrDataSource, err)
			}
			return defs, nil
		})
}

// Resolver возвращает индекс справочника для построителя фильтров.
func (s *DefinitionService) Resolver(ctx context.Context) (query.ParameterResolver, error) {
	defs, err := s.Definitions(ctx)
	if err != nil {
		return nil, err
	}
	return query.NewParameterIndex(defs), nil
}
