// catalog.go — карточка компонента с техническими параметрами.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bigkaa/partcatalog/search-module/internal/domain/model"
	"github.com/bigkaa/partcatalog/search-module/internal/domain/normalize"
	"github.com/bigkaa/partcatalog/search-module/internal/repository"
)

// ComponentSource — источник данных карточки компонента.
type ComponentSource interface {
	GetByID(ctx context.Context, componentID string) (*model.Component, error)
	Parameters(ctx context.Context, componentID string) ([]model.ParameterValue, error)
}

// DetailParameter — параметр компонента с подписью из справочника.
type DetailParameter struct {
	Key       string `json:"key"`
	Name      string `json:"name"`
	ShortName string `json:"shortName,omitempty"`
	Category  string `json:"category,omitempty"`
	Value     string `json:"value"`
	// Values — элементы значения, если оно хранится строкой-массивом
	Values []string `json:"values,omitempty"`
}

// ComponentDetail — карточка компонента.
type ComponentDetail struct {
	Component  model.Component   `json:"component"`
	Parameters []DetailParameter `json:"parameters"`
}

// CatalogService — получение карточек компонентов.
type CatalogService struct {
	repo    ComponentSource
	defs    *DefinitionService
	cache   *ResultCache
	ttl     time.Duration
	timeout time.Duration
	logger  *slog.Logger
}

// NewCatalogService создаёт сервис карточек компонентов.
func NewCatalogService(
	repo ComponentSource,
	defs *DefinitionService,
	cache *ResultCache,
	ttl time.Duration,
	timeout time.Duration,
	logger *slog.Logger,
) *CatalogService {
	return &CatalogService{
		repo:    repo,
		defs:    defs,
		cache:   cache,
		ttl:     ttl,
		timeout: timeout,
		logger:  logger.With(slog.String("component", "catalog_service")),
	}
}

// ComponentDetail возвращает карточку компонента или ErrNotFound.
func (s *CatalogService) ComponentDetail(ctx context.Context, componentID string) (*ComponentDetail, error) {
	d, err := GetOrCompute(ctx, s.cache, "detail:"+componentID, s.ttl,
		func(ctx context.Context) (ComponentDetail, error) {
			return s.load(ctx, componentID)
		})
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *CatalogService) load(ctx context.Context, componentID string) (ComponentDetail, error) {
	defs, err := s.defs.Definitions(ctx)
	if err != nil {
		return ComponentDetail{}, err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	c, err := s.repo.GetByID(ctx, componentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ComponentDetail{}, ErrNotFound
		}
		s.logger.Error("Ошибка получения компонента",
			slog.String("component_id", componentID),
			slog.String("error", err.Error()),
		)
		return ComponentDetail{}, fmt.Errorf("%w: компонент: %w", ErrDataSource, err)
	}

	values, err := s.repo.Parameters(ctx, componentID)
	if err != nil {
		return ComponentDetail{}, fmt.Errorf("%w: параметры компонента: %w", ErrDataSource, err)
	}

	return ComponentDetail{Component: *c, Parameters: labelParameters(values, defs)}, nil
}

// labelParameters подписывает значения параметров по справочнику.
// Параметр без определения получает ключ в качестве названия.
func labelParameters(values []model.ParameterValue, defs []model.ParameterDefinition) []DetailParameter {
	byKey := make(map[string]model.ParameterDefinition, len(defs))
	for _, d := range defs {
		byKey[d.Key] = d
	}

	out := make([]DetailParameter, 0, len(values))
	for _, v := range values {
		p := DetailParameter{Key: v.Key, Name: v.Key, Value: v.Value}
		if d, ok := byKey[v.Key]; ok {
			if d.Name != "" {
				p.Name = d.Name
			}
			p.ShortName = d.ShortName
			p.Category = d.Category
		}
		p.Values = normalize.ParseArray(v.Value)
		out = append(out, p)
	}
	return out
}
