package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/text/language"

	"github.com/bigkaa/partcatalog/search-module/internal/domain/model"
	"github.com/bigkaa/partcatalog/search-module/internal/query"
	"github.com/bigkaa/partcatalog/search-module/internal/repository"
	"github.com/bigkaa/partcatalog/search-module/internal/repository/memstore"
	"github.com/bigkaa/partcatalog/search-module/internal/service"
)

// staticChecker — ReadinessChecker с фиксированным ответом.
type staticChecker struct {
	status, message string
}

func (c staticChecker) CheckReady() (status, message string) { return c.status, c.message }

// failingRepo — хранилище, которое всегда недоступно.
type failingRepo[T any] struct{}

func (failingRepo[T]) Find(context.Context, query.Plan) ([]T, error) {
	return nil, errors.New("connection refused")
}

func (failingRepo[T]) Count(context.Context, query.Filter) (int, error) {
	return 0, errors.New("connection refused")
}

func (failingRepo[T]) Distinct(context.Context, string) ([]string, error) {
	return nil, errors.New("connection refused")
}

func testDataset() memstore.Dataset {
	return memstore.Dataset{
		Components: []model.Component{
			{ComponentID: "c1", PartNumber: "IRF540N", Manufacturer: "Infineon", PartType: "MOSFET",
				FamilyPath: "['N-Channel','MOSFET','Discretes']", HasStock: "Yes",
				ObsolescenceType: "Active", QualityName: "Industrial"},
			{ComponentID: "c2", PartNumber: "BSS138", Manufacturer: "Infineon", PartType: "Transistor",
				FamilyPath: "['Small Signal','Discretes']", HasStock: "No",
				ObsolescenceType: "Active", QualityName: "Industrial"},
			{ComponentID: "c3", PartNumber: "LM317", Manufacturer: "Texas Instruments", PartType: "Regulator",
				FamilyPath: "['Linear','Power']", ObsolescenceType: "Obsolete", QualityName: "Military"},
			{ComponentID: "c4", PartNumber: "IRLZ44", Manufacturer: "Vishay", PartType: "MOSFET",
				FamilyPath: "['N-Channel','MOSFET','Discretes']", HasStock: "Yes",
				ObsolescenceType: "Active", QualityName: "Industrial"},
		},
		Parameters: []model.ParameterValue{
			{ComponentID: "c1", Key: "p_vds", Value: "100V"},
			{ComponentID: "c1", Key: "p_pkg", Value: "['TO-220', 'TO-262']"},
		},
		Definitions: []model.ParameterDefinition{
			{Key: "p_vds", Name: "Drain-Source Voltage", ShortName: "Vds"},
			{Key: "p_pkg", Name: "Package", ShortName: "Package"},
		},
		Radiation: []model.RadiationRecord{
			{ID: "r1", Model: "AD590", TotalDose: "100 krad(Si)", Supplier: "ADI"},
			{ID: "r2", Model: "HS-117", TotalDose: "50krad", Supplier: "Renesas"},
			{ID: "r3", Model: "LM124", Supplier: "TI"},
		},
		Domestic: []model.DomesticProduct{
			{ID: "d1", Seq: 1, Level1: "Микросхемы", Level2: "Аналоговые", Level3: "ОУ", Name: "140УД17"},
			{ID: "d2", Seq: 2, Level1: "Диоды", Name: "2Д522"},
		},
	}
}

// newTestRouter собирает API поверх in-memory хранилища.
// componentRepo позволяет подменить хранилище компонентов для проверки ошибок.
func newTestRouter(t *testing.T, componentRepo func(*memstore.Store) repository.EntityRepository[model.Component]) http.Handler {
	t.Helper()

	store := memstore.New(testDataset())
	logger := slog.Default()
	cache := service.NewResultCache(service.NewMemoryCacheBackend(100, time.Hour), true, logger)
	defs := service.NewDefinitionService(store.Components(), cache, time.Hour, time.Second, logger)

	var components repository.EntityRepository[model.Component] = store.Components()
	if componentRepo != nil {
		components = componentRepo(store)
	}

	svcs := Services{
		ComponentSearch: service.NewSearchService[model.Component](query.ComponentSchema, components, defs,
			cache, time.Minute, time.Second, logger),
		RadiationSearch: service.NewSearchService[model.RadiationRecord](query.RadiationSchema, store.Radiation(), nil,
			cache, time.Minute, time.Second, logger),
		DomesticSearch: service.NewSearchService[model.DomesticProduct](query.DomesticSchema, store.Domestic(), nil,
			cache, time.Minute, time.Second, logger),
		ComponentFacets: service.NewFacetService(query.ComponentSchema, store.Components(), cache,
			time.Minute, time.Second, language.English, logger),
		RadiationFacets: service.NewFacetService(query.RadiationSchema, store.Radiation(), cache,
			time.Minute, time.Second, language.English, logger),
		DomesticFacets: service.NewFacetService(query.DomesticSchema, store.Domestic(), cache,
			time.Minute, time.Second, language.Russian, logger),
		ComponentCategories: service.NewCategoryService(query.ComponentSchema, store.Components(), cache, time.Hour, language.English, time.Second, logger),
		DomesticCategories:  service.NewCategoryService(query.DomesticSchema, store.Domestic(), cache, time.Hour, language.Russian, time.Second, logger),
		Statistics:          service.NewStatisticsService(store.Components(), cache, time.Minute, time.Second, 10, logger),
		Catalog:             service.NewCatalogService(store.Components(), defs, cache, time.Minute, time.Second, logger),
	}

	h := NewAPIHandler(NewHealthHandler(store, nil), svcs, logger)
	r := chi.NewRouter()
	h.Routes(r)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("ошибка разбора ответа: %v", err)
	}
	return v
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Поиск ---

// TestSearchComponents проверяет поиск с категориальным фильтром.
func TestSearchComponents(t *testing.T) {
	h := newTestRouter(t, nil)

	rec := do(t, h, http.MethodPost, "/api/v1/components/search",
		`{"filters":{"partType":["MOSFET"]},"flags":{"hasStock":"Yes"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, ожидался 200: %s", rec.Code, rec.Body)
	}

	page := decode[service.SearchResultPage[model.Component]](t, rec)
	if page.Total != 2 {
		t.Errorf("Total = %d, ожидалось 2", page.Total)
	}
	var ids []string
	for _, c := range page.Items {
		ids = append(ids, c.PartNumber)
	}
	if !slices.Equal(ids, []string{"IRF540N", "IRLZ44"}) {
		t.Errorf("Items = %v, ожидались [IRF540N IRLZ44]", ids)
	}
}

// TestSearchComponents_Parameters проверяет фильтр по техническому параметру через короткое имя.
func TestSearchComponents_Parameters(t *testing.T) {
	h := newTestRouter(t, nil)

	rec := do(t, h, http.MethodPost, "/api/v1/components/search",
		`{"parameters":{"Vds":{"min":80}}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, ожидался 200: %s", rec.Code, rec.Body)
	}
	page := decode[service.SearchResultPage[model.Component]](t, rec)
	if page.Total != 1 || page.Items[0].ComponentID != "c1" {
		t.Errorf("page = %+v, ожидался только c1", page)
	}
}

// TestSearch_EmptyBody проверяет, что пустое тело — поиск без фильтров.
func TestSearch_EmptyBody(t *testing.T) {
	h := newTestRouter(t, nil)

	rec := do(t, h, http.MethodPost, "/api/v1/radiation/search", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, ожидался 200", rec.Code)
	}
	page := decode[service.SearchResultPage[model.RadiationRecord]](t, rec)
	if page.Total != 3 || page.Page != 1 {
		t.Errorf("Total/Page = %d/%d, ожидалось 3/1", page.Total, page.Page)
	}
}

// TestSearch_GarbageNormalized проверяет, что некорректные параметры нормализуются, а не отклоняются.
func TestSearch_GarbageNormalized(t *testing.T) {
	h := newTestRouter(t, nil)

	rec := do(t, h, http.MethodPost, "/api/v1/components/search",
		`{"page":-5,"limit":1000,"sortBy":"bogus","sortOrder":"sideways","filters":{"unknown":["x"]}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, ожидался 200: %s", rec.Code, rec.Body)
	}
	page := decode[service.SearchResultPage[model.Component]](t, rec)
	if page.Page != 1 || page.Limit != 50 || page.Total != 4 {
		t.Errorf("Page/Limit/Total = %d/%d/%d, ожидалось 1/50/4", page.Page, page.Limit, page.Total)
	}
}

// TestSearch_InvalidJSON проверяет ответ на неразбираемое тело.
func TestSearch_InvalidJSON(t *testing.T) {
	h := newTestRouter(t, nil)

	rec := do(t, h, http.MethodPost, "/api/v1/domestic/search", `{"keyword":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, ожидался 400", rec.Code)
	}
	if resp := decode[errorResponse](t, rec); resp.Error.Code != "VALIDATION_ERROR" {
		t.Errorf("code = %q, ожидался VALIDATION_ERROR", resp.Error.Code)
	}
}

// TestSearch_DataSourceUnavailable проверяет, что сбой хранилища не выглядит как пустой результат.
func TestSearch_DataSourceUnavailable(t *testing.T) {
	h := newTestRouter(t, func(*memstore.Store) repository.EntityRepository[model.Component] {
		return failingRepo[model.Component]{}
	})

	rec := do(t, h, http.MethodPost, "/api/v1/components/search", `{}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, ожидался 503", rec.Code)
	}
	if resp := decode[errorResponse](t, rec); resp.Error.Code != "DATA_SOURCE_UNAVAILABLE" {
		t.Errorf("code = %q, ожидался DATA_SOURCE_UNAVAILABLE", resp.Error.Code)
	}
}

// --- Справочные endpoints ---

// TestGetFacets проверяет значения фасетных полей.
func TestGetFacets(t *testing.T) {
	h := newTestRouter(t, nil)

	rec := do(t, h, http.MethodGet, "/api/v1/radiation/facets", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, ожидался 200", rec.Code)
	}
	opts := decode[map[string][]string](t, rec)
	if !slices.Equal(opts["supplier"], []string{"ADI", "Renesas", "TI"}) {
		t.Errorf("supplier = %v, ожидались [ADI Renesas TI]", opts["supplier"])
	}
}

// TestGetCategories проверяет дерево классификации отечественной продукции.
func TestGetCategories(t *testing.T) {
	h := newTestRouter(t, nil)

	rec := do(t, h, http.MethodGet, "/api/v1/domestic/categories", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, ожидался 200", rec.Code)
	}
	tree := decode[service.CategoryTree](t, rec)
	if len(tree.Tree) != 2 || tree.Tree[0].Label != "Диоды" || tree.Tree[1].Label != "Микросхемы" {
		t.Fatalf("Tree = %+v, ожидались [Диоды Микросхемы]", tree.Tree)
	}
	if got := tree.SubCategories["Микросхемы"]["Аналоговые"]; !slices.Equal(got, []string{"ОУ"}) {
		t.Errorf("SubCategories = %v, ожидалось [ОУ]", got)
	}
}

// TestGetStatistics проверяет статистику по компонентам.
func TestGetStatistics(t *testing.T) {
	h := newTestRouter(t, nil)

	rec := do(t, h, http.MethodGet, "/api/v1/components/statistics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, ожидался 200", rec.Code)
	}
	st := decode[service.Statistics](t, rec)
	if st.Total != 4 || st.WithStock != 2 {
		t.Errorf("Total/WithStock = %d/%d, ожидалось 4/2", st.Total, st.WithStock)
	}
	if len(st.ByManufacturer.Buckets) == 0 || st.ByManufacturer.Buckets[0].Key != "Infineon" {
		t.Errorf("ByManufacturer = %+v, ожидался Infineon первым", st.ByManufacturer)
	}
}

// TestGetCategories_Manufacturer проверяет дерево по записям одного производителя.
func TestGetCategories_Manufacturer(t *testing.T) {
	h := newTestRouter(t, nil)

	rec := do(t, h, http.MethodGet, "/api/v1/components/categories?manufacturer=infineon", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, ожидался 200", rec.Code)
	}
	tree := decode[service.CategoryTree](t, rec)
	if len(tree.Tree) != 1 || tree.Tree[0].Label != "Discretes" {
		t.Fatalf("Tree = %+v, ожидался [Discretes]", tree.Tree)
	}
	if got := labels(tree.Tree[0].Children); !slices.Equal(got, []string{"MOSFET", "Small Signal"}) {
		t.Errorf("Discretes = %v, ожидались [MOSFET Small Signal]", got)
	}

	// Без производителя — полное дерево
	rec = do(t, h, http.MethodGet, "/api/v1/components/categories", "")
	full := decode[service.CategoryTree](t, rec)
	if got := labels(full.Tree); !slices.Equal(got, []string{"Discretes", "Power"}) {
		t.Errorf("корни = %v, ожидались [Discretes Power]", got)
	}
}

// TestGetStatistics_Manufacturer проверяет статистику одного производителя.
func TestGetStatistics_Manufacturer(t *testing.T) {
	h := newTestRouter(t, nil)

	rec := do(t, h, http.MethodGet, "/api/v1/components/statistics?manufacturer=vishay", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, ожидался 200", rec.Code)
	}
	st := decode[service.Statistics](t, rec)
	if st.Total != 1 || len(st.ByManufacturer.Buckets) != 1 || st.ByManufacturer.Buckets[0].Key != "Vishay" {
		t.Errorf("st = %+v, ожидался только Vishay", st)
	}
}

func labels(nodes []*service.CategoryNode) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Label)
	}
	return out
}

// TestGetComponent проверяет карточку компонента.
func TestGetComponent(t *testing.T) {
	h := newTestRouter(t, nil)

	rec := do(t, h, http.MethodGet, "/api/v1/components/c1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, ожидался 200: %s", rec.Code, rec.Body)
	}
	detail := decode[service.ComponentDetail](t, rec)
	if detail.Component.PartNumber != "IRF540N" || len(detail.Parameters) != 2 {
		t.Errorf("detail = %+v", detail)
	}
}

// TestGetComponent_NotFound проверяет 404 для неизвестного идентификатора.
func TestGetComponent_NotFound(t *testing.T) {
	h := newTestRouter(t, nil)

	rec := do(t, h, http.MethodGet, "/api/v1/components/missing", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, ожидался 404", rec.Code)
	}
	if resp := decode[errorResponse](t, rec); resp.Error.Code != "NOT_FOUND" {
		t.Errorf("code = %q, ожидался NOT_FOUND", resp.Error.Code)
	}
}

// --- Health ---

// TestHealthReady проверяет итоговый статус готовности.
func TestHealthReady(t *testing.T) {
	tests := []struct {
		name       string
		store      ReadinessChecker
		cache      ReadinessChecker
		wantStatus string
		wantCode   int
	}{
		{"всё доступно", staticChecker{"ok", ""}, staticChecker{"ok", ""}, "ok", http.StatusOK},
		{"без кэша", staticChecker{"ok", ""}, nil, "ok", http.StatusOK},
		{"кэш недоступен", staticChecker{"ok", ""}, staticChecker{"fail", "dial tcp"}, "degraded", http.StatusOK},
		{"хранилище недоступно", staticChecker{"fail", "timeout"}, nil, "fail", http.StatusServiceUnavailable},
		{"хранилище не задано", nil, nil, "fail", http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.store, tt.cache)
			rec := httptest.NewRecorder()
			h.HealthReady(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

			if rec.Code != tt.wantCode {
				t.Errorf("status code = %d, ожидался %d", rec.Code, tt.wantCode)
			}
			resp := decode[healthReadyResponse](t, rec)
			if resp.Status != tt.wantStatus {
				t.Errorf("status = %q, ожидался %q", resp.Status, tt.wantStatus)
			}
			if resp.Service != "search-module" {
				t.Errorf("service = %q, ожидался search-module", resp.Service)
			}
		})
	}
}

// TestHealthLive проверяет проверка liveness.
func TestHealthLive(t *testing.T) {
	h := NewHealthHandler(nil, nil)
	rec := httptest.NewRecorder()
	h.HealthLive(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status code = %d, ожидался 200", rec.Code)
	}
	if resp := decode[healthLiveResponse](t, rec); resp.Status != "ok" {
		t.Errorf("status = %q, ожидался ok", resp.Status)
	}
}
