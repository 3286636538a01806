// handler.go — основной обработчик API модуля поиска.
// Объединяет health и бизнес-обработчики, регистрирует маршруты в chi.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/partcatalog/search-module/internal/api/errors"
	"github.com/bigkaa/partcatalog/search-module/internal/domain/model"
	"github.com/bigkaa/partcatalog/search-module/internal/service"
)

// Services — сервисный слой, которому делегируются запросы API.
type Services struct {
	ComponentSearch *service.SearchService[model.Component]
	RadiationSearch *service.SearchService[model.RadiationRecord]
	DomesticSearch  *service.SearchService[model.DomesticProduct]

	ComponentFacets *service.FacetService
	RadiationFacets *service.FacetService
	DomesticFacets  *service.FacetService

	ComponentCategories *service.CategoryService
	DomesticCategories  *service.CategoryService

	Statistics *service.StatisticsService
	Catalog    *service.CatalogService
}

// APIHandler — основной обработчик API модуля поиска.
type APIHandler struct {
	health   *HealthHandler
	services Services
	logger   *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	health *HealthHandler,
	services Services,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health:   health,
		services: services,
		logger:   logger.With(slog.String("component", "api_handler")),
	}
}

// Routes регистрирует все маршруты API в роутере.
func (h *APIHandler) Routes(r chi.Router) {
	r.Get("/health/live", h.health.HealthLive)
	r.Get("/health/ready", h.health.HealthReady)
	r.Get("/metrics", h.health.GetMetrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/components", func(r chi.Router) {
			r.Post("/search", searchHandler(h, "component", h.services.ComponentSearch))
			r.Get("/facets", h.facetsHandler(h.services.ComponentFacets))
			r.Get("/categories", h.categoriesHandler(h.services.ComponentCategories))
			r.Get("/statistics", h.GetStatistics)
			r.Get("/{componentID}", h.GetComponent)
		})
		r.Route("/radiation", func(r chi.Router) {
			r.Post("/search", searchHandler(h, "radiation", h.services.RadiationSearch))
			r.Get("/facets", h.facetsHandler(h.services.RadiationFacets))
		})
		r.Route("/domestic", func(r chi.Router) {
			r.Post("/search", searchHandler(h, "domestic", h.services.DomesticSearch))
			r.Get("/facets", h.facetsHandler(h.services.DomesticFacets))
			r.Get("/categories", h.categoriesHandler(h.services.DomesticCategories))
		})
	})
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeServiceError переводит ошибку сервисного слоя в HTTP-ответ.
// Недоступность хранилища не маскируется пустым результатом.
func (h *APIHandler) writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, "Запись не найдена")
	case errors.Is(err, context.Canceled) && r.Context().Err() != nil:
		// Клиент закрыл соединение, ответ уже никто не прочитает
		h.logger.Debug("Запрос отменён клиентом", slog.String("op", op))
	case errors.Is(err, service.ErrDataSource):
		h.logger.Warn("Источник данных недоступен",
			slog.String("op", op),
			slog.String("error", err.Error()),
		)
		apierrors.DataSourceUnavailable(w, "Хранилище каталога недоступно")
	default:
		h.logger.Error("Внутренняя ошибка",
			slog.String("op", op),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Внутренняя ошибка сервера")
	}
}
