package repository

import (
	"strings"
	"testing"

	"github.com/bigkaa/partcatalog/search-module/internal/domain/model"
	"github.com/bigkaa/partcatalog/search-module/internal/query"
)

func ptr(v float64) *float64 { return &v }

var testDefs = query.NewParameterIndex([]model.ParameterDefinition{
	{Key: "p_temp", ShortName: "temp"},
	{Key: "p_pkg", ShortName: "pkg"},
})

// compile — вспомогательная функция: запрос → план.
func compile(s *query.Schema, req query.FilterRequest) query.Plan {
	_, plan := query.Compile(s, req, testDefs)
	return plan
}

// --- Тесты buildWhere ---

// TestBuildWhere_Empty проверяет пустые фильтры.
func TestBuildWhere_Empty(t *testing.T) {
	plan := compile(query.RadiationSchema, query.FilterRequest{})
	w := buildWhere(plan.Schema, plan.Filter, 1)

	if w.sql != "" {
		t.Errorf("where = %q, ожидалась пустая строка", w.sql)
	}
	if len(w.args) != 0 {
		t.Errorf("args count = %d, ожидался 0", len(w.args))
	}
	if w.score != "" {
		t.Errorf("score = %q, ожидалась пустая строка", w.score)
	}
}

// TestBuildWhere_KeywordSubstring проверяет поиск подстрокой по searchable полям.
func TestBuildWhere_KeywordSubstring(t *testing.T) {
	plan := compile(query.RadiationSchema, query.FilterRequest{Keyword: "100%_x"})
	w := buildWhere(plan.Schema, plan.Filter, 1)

	for _, col := range []string{"model ILIKE $1", "model_spec ILIKE $1", "product_name ILIKE $1", "supplier ILIKE $1"} {
		if !strings.Contains(w.sql, col) {
			t.Errorf("where = %q, ожидалось содержание %q", w.sql, col)
		}
	}
	if len(w.args) != 1 {
		t.Fatalf("args count = %d, ожидался 1", len(w.args))
	}
	// Спецсимволы LIKE экранируются
	if w.args[0] != `%100\%\_x%` {
		t.Errorf("args[0] = %v, ожидался %q", w.args[0], `%100\%\_x%`)
	}
}

// TestBuildWhere_KeywordRelevance проверяет полнотекстовый поиск и оценку релевантности.
func TestBuildWhere_KeywordRelevance(t *testing.T) {
	plan := compile(query.ComponentSchema, query.FilterRequest{Keyword: "MOSFET"})
	w := buildWhere(plan.Schema, plan.Filter, 1)

	if !strings.Contains(w.sql, "search_vector @@ websearch_to_tsquery('simple', $1)") {
		t.Errorf("where = %q, ожидался полнотекстовый предикат", w.sql)
	}
	if !strings.Contains(w.score, "ts_rank('{0.30, 0.60, 0.80, 1.00}', search_vector") {
		t.Errorf("score = %q, ожидался ts_rank с весами полей", w.score)
	}
	if w.args[0] != "MOSFET" {
		t.Errorf("args[0] = %v, ожидался 'MOSFET'", w.args[0])
	}
}

// TestBuildWhere_KeywordRelevanceSubstring проверяет, что части номера и слова внутри
// текста находятся подстрокой наряду с полнотекстовым совпадением.
func TestBuildWhere_KeywordRelevanceSubstring(t *testing.T) {
	plan := compile(query.ComponentSchema, query.FilterRequest{
		Keyword: "IRF54",
		Filters: map[string][]string{"obsolescence": {"Active"}},
	})
	w := buildWhere(plan.Schema, plan.Filter, 1)

	want := "(search_vector @@ websearch_to_tsquery('simple', $1) OR part_number ILIKE $2 OR " +
		"part_type ILIKE $2 OR manufacturer_name ILIKE $2 OR description ILIKE $2)"
	if !strings.HasPrefix(w.sql, "WHERE "+want) {
		t.Errorf("where = %q, ожидалось начало %q", w.sql, want)
	}
	if !strings.Contains(w.sql, "obsolescence_type = ANY($3)") {
		t.Errorf("where = %q, ожидался obsolescence_type = ANY($3)", w.sql)
	}
	if len(w.args) != 3 || w.args[1] != "%IRF54%" {
		t.Errorf("args = %v, ожидался шаблон %%IRF54%% вторым аргументом", w.args)
	}
	// Оценка остаётся ts_rank: записи, найденные только подстрокой, идут последними
	if !strings.HasPrefix(w.score, "ts_rank(") {
		t.Errorf("score = %q, ожидался ts_rank", w.score)
	}
}

// TestBuildWhere_Categories проверяет exact (ANY) и substring (ILIKE) фильтры.
func TestBuildWhere_Categories(t *testing.T) {
	plan := compile(query.ComponentSchema, query.FilterRequest{Filters: map[string][]string{
		"manufacturer": {"texas", "analog"},
		"obsolescence": {"Active"},
	}})
	w := buildWhere(plan.Schema, plan.Filter, 1)

	if !strings.Contains(w.sql, "(manufacturer_name ILIKE $1 OR manufacturer_name ILIKE $2)") {
		t.Errorf("where = %q, ожидался ILIKE по производителю", w.sql)
	}
	if !strings.Contains(w.sql, "obsolescence_type = ANY($3)") {
		t.Errorf("where = %q, ожидался ANY по статусу", w.sql)
	}
	if len(w.args) != 3 {
		t.Errorf("args count = %d, ожидалось 3", len(w.args))
	}
}

// TestBuildWhere_NumericRange проверяет диапазон по числовому полю с предвычисленным столбцом.
func TestBuildWhere_NumericRange(t *testing.T) {
	plan := compile(query.RadiationSchema, query.FilterRequest{Ranges: map[string]query.NumberRange{
		"totalDose":   {Min: ptr(50), Max: ptr(150)},
		"singleEvent": {Max: ptr(37)},
	}})
	w := buildWhere(plan.Schema, plan.Filter, 1)

	want := "(COALESCE(total_dose_numeric, catalog_to_numeric(total_dose::text)) >= $1 AND " +
		"COALESCE(total_dose_numeric, catalog_to_numeric(total_dose::text)) <= $2)"
	if !strings.Contains(w.sql, want) {
		t.Errorf("where = %q, ожидалось содержание %q", w.sql, want)
	}
	if !strings.Contains(w.sql, "catalog_to_numeric(single_event::text)) <= $3") {
		t.Errorf("where = %q, ожидалась верхняя граница single_event", w.sql)
	}
}

// TestBuildWhere_FlagAndPath проверяет флаг Yes/No и путь семейства.
func TestBuildWhere_FlagAndPath(t *testing.T) {
	plan := compile(query.ComponentSchema, query.FilterRequest{
		Flags:      map[string]query.FlagFilter{"hasStock": {Value: true, IncludeUnknown: true}},
		FamilyPath: []string{"Discretes", "Diode"},
	})
	w := buildWhere(plan.Schema, plan.Filter, 1)

	if !strings.Contains(w.sql, "(catalog_yes_no(has_stock) = $1 OR catalog_yes_no(has_stock) IS NULL)") {
		t.Errorf("where = %q, ожидался флаг с неизвестными", w.sql)
	}
	if !strings.Contains(w.sql, "COALESCE(family_path_segments, catalog_path_segments(family_path)) @> $2::text[]") {
		t.Errorf("where = %q, ожидался предикат пути", w.sql)
	}
	if w.args[0] != true {
		t.Errorf("args[0] = %v, ожидался true", w.args[0])
	}
}

// TestBuildWhere_Parameters проверяет EXISTS-предикаты по параметрам.
func TestBuildWhere_Parameters(t *testing.T) {
	plan := compile(query.ComponentSchema, query.FilterRequest{Parameters: map[string]query.Constraint{
		"temp":  query.Range(ptr(-55), ptr(125)),
		"pkg":   query.Contains("SOT"),
		"ghost": query.Exact("x"),
	}})
	w := buildWhere(plan.Schema, plan.Filter, 1)

	// Порядок по ключу запроса: ghost, pkg, temp
	if !strings.HasPrefix(w.sql, "WHERE FALSE AND ") {
		t.Errorf("where = %q, ожидался FALSE для неизвестного параметра", w.sql)
	}
	if !strings.Contains(w.sql, "p.component_id = components.component_id AND p.parameter_key = $1 AND p.parameter_value ILIKE $2") {
		t.Errorf("where = %q, ожидался contains по p_pkg", w.sql)
	}
	if !strings.Contains(w.sql, "p.parameter_key = $3 AND (catalog_to_numeric(p.parameter_value) >= $4 AND catalog_to_numeric(p.parameter_value) <= $5)") {
		t.Errorf("where = %q, ожидался range по p_temp", w.sql)
	}
	if w.args[0] != "p_pkg" || w.args[2] != "p_temp" {
		t.Errorf("args = %v, ожидались канонические ключи параметров", w.args)
	}
}

// TestBuildWhere_StartArg проверяет нумерацию параметров с произвольного номера.
func TestBuildWhere_StartArg(t *testing.T) {
	plan := compile(query.RadiationSchema, query.FilterRequest{Filters: map[string][]string{"category": {"ADC"}}})
	w := buildWhere(plan.Schema, plan.Filter, 5)

	if !strings.Contains(w.sql, "category = ANY($5)") {
		t.Errorf("where = %q, ожидался $5", w.sql)
	}
}

// --- Тесты buildOrderBy ---

// TestBuildOrderBy проверяет релевантность, поле запроса и tiebreak по идентификатору.
func TestBuildOrderBy(t *testing.T) {
	plan := compile(query.ComponentSchema, query.FilterRequest{
		Keyword: "diode", SortBy: "manufacturer", SortOrder: "desc",
	})
	w := buildWhere(plan.Schema, plan.Filter, 1)
	got := buildOrderBy(plan, w.score)

	if !strings.HasPrefix(got, "ORDER BY ts_rank(") {
		t.Errorf("order = %q, ожидалась сортировка по релевантности первой", got)
	}
	if !strings.HasSuffix(got, "DESC, manufacturer_name DESC NULLS LAST, component_id ASC NULLS LAST") {
		t.Errorf("order = %q, ожидался manufacturer_name DESC и tiebreak component_id", got)
	}
}

// TestBuildOrderBy_Numeric проверяет сортировку числового поля по извлечённому значению.
func TestBuildOrderBy_Numeric(t *testing.T) {
	plan := compile(query.RadiationSchema, query.FilterRequest{SortBy: "totalDose"})
	got := buildOrderBy(plan, "")

	want := "ORDER BY COALESCE(total_dose_numeric, catalog_to_numeric(total_dose::text)) ASC NULLS LAST, id ASC NULLS LAST"
	if got != want {
		t.Errorf("order = %q, ожидался %q", got, want)
	}
}

// TestBuildOrderBy_InjectionFallback проверяет, что произвольная строка не попадает в SQL.
func TestBuildOrderBy_InjectionFallback(t *testing.T) {
	plan := compile(query.DomesticSchema, query.FilterRequest{SortBy: "name; DROP TABLE domestic_products"})
	got := buildOrderBy(plan, "")

	if strings.Contains(got, "DROP") {
		t.Errorf("order = %q, в SQL попал ввод пользователя", got)
	}
	if !strings.Contains(got, "COALESCE(seq, catalog_to_numeric(seq::text)) ASC") {
		t.Errorf("order = %q, ожидалась сортировка по умолчанию seq", got)
	}
}

// TestColumnAllowed проверяет whitelist столбцов для DISTINCT.
func TestColumnAllowed(t *testing.T) {
	if !columnAllowed(query.RadiationSchema, "supplier") {
		t.Error("supplier должен быть разрешён")
	}
	if columnAllowed(query.RadiationSchema, "supplier; DROP TABLE x") {
		t.Error("произвольная строка не должна быть разрешена")
	}
}
