// search.go — обработчики POST /api/v1/{components|radiation|domestic}/search.
// Десериализация FilterRequest, вызов service, сериализация страницы результата.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	apierrors "github.com/bigkaa/partcatalog/search-module/internal/api/errors"
	"github.com/bigkaa/partcatalog/search-module/internal/query"
	"github.com/bigkaa/partcatalog/search-module/internal/service"
)

// maxSearchBodyBytes — предельный размер тела поискового запроса.
const maxSearchBodyBytes = 1 << 20

// searchHandler возвращает обработчик поиска по сущности.
// Содержимое запроса не валидируется: неизвестные поля, пустые значения и
// некорректная пагинация нормализуются сервисом. 400 возвращается только
// для тела, которое не удалось разобрать как JSON.
func searchHandler[T any](h *APIHandler, entity string, svc *service.SearchService[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req query.FilterRequest
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSearchBodyBytes))
		// Пустое тело — поиск без фильтров
		if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			apierrors.ValidationError(w, "Некорректный JSON в теле запроса")
			return
		}

		page, err := svc.Search(r.Context(), req)
		if err != nil {
			h.writeServiceError(w, r, "search_"+entity, err)
			return
		}

		writeJSON(w, http.StatusOK, page)
	}
}
