// catalog.go — справочные обработчики каталога: фасеты, дерево классификации,
// статистика и карточка компонента.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/partcatalog/search-module/internal/api/errors"
	"github.com/bigkaa/partcatalog/search-module/internal/service"
)

// facetsHandler — GET /api/v1/{entity}/facets.
func (h *APIHandler) facetsHandler(svc *service.FacetService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts, err := svc.FacetOptions(r.Context())
		if err != nil {
			h.writeServiceError(w, r, "facets", err)
			return
		}
		writeJSON(w, http.StatusOK, opts)
	}
}

// categoriesHandler — GET /api/v1/{entity}/categories[?manufacturer=].
func (h *APIHandler) categoriesHandler(svc *service.CategoryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tree, err := svc.CategoryTreeFor(r.Context(), r.URL.Query().Get("manufacturer"))
		if err != nil {
			h.writeServiceError(w, r, "categories", err)
			return
		}
		writeJSON(w, http.StatusOK, tree)
	}
}

// GetStatistics — GET /api/v1/components/statistics[?manufacturer=].
func (h *APIHandler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	st, err := h.services.Statistics.StatisticsFor(r.Context(), r.URL.Query().Get("manufacturer"))
	if err != nil {
		h.writeServiceError(w, r, "statistics", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// GetComponent — GET /api/v1/components/{componentID}.
// Карточка компонента с техническими параметрами.
func (h *APIHandler) GetComponent(w http.ResponseWriter, r *http.Request) {
	componentID := chi.URLParam(r, "componentID")
	if componentID == "" {
		apierrors.ValidationError(w, "Не указан идентификатор компонента")
		return
	}

	detail, err := h.services.Catalog.ComponentDetail(r.Context(), componentID)
	if err != nil {
		h.writeServiceError(w, r, "component_detail", err)
		return
	}

	writeJSON(w, http.StatusOK, detail)
}
