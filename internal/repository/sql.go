package repository

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/bigkaa/partcatalog/search-module/internal/query"
)

// searchVectorColumn — сгенерированный tsvector-столбец (см. миграцию 000001).
// Веса setweight A..D назначены searchable полям по убыванию query.Field.Weight.
const searchVectorColumn = "search_vector"

// whereClause — скомпилированное WHERE-условие.
type whereClause struct {
	// sql — "WHERE ..." или пустая строка
	sql string
	// args — аргументы $1..$N
	args []any
	// score — SQL-выражение оценки релевантности или пустая строка
	score string
}

// buildWhere строит WHERE-условие и аргументы по фильтру.
// startArg — номер первого $-параметра (для корректной нумерации).
// Одна и та же функция используется для выборки страницы и для COUNT.
func buildWhere(s *query.Schema, f query.Filter, startArg int) whereClause {
	b := &argBuilder{next: startArg}
	var conditions []string
	var score string

	if f.Text != nil {
		cond, sc := buildTextCondition(b, f.Text)
		conditions = append(conditions, cond)
		score = sc
	}

	for _, p := range f.Predicates {
		conditions = append(conditions, buildPredicate(b, s, p))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}
	return whereClause{sql: where, args: b.args, score: score}
}

// and возвращает WHERE фильтра, дополненное условием cond.
func (w whereClause) and(cond string) string {
	if w.sql == "" {
		return "WHERE " + cond
	}
	return w.sql + " AND " + cond
}

// argBuilder выдаёт номера $-параметров.
type argBuilder struct {
	next int
	args []any
}

// add добавляет аргумент и возвращает его плейсхолдер.
func (b *argBuilder) add(v any) string {
	b.args = append(b.args, v)
	ph := "$" + strconv.Itoa(b.next)
	b.next++
	return ph
}

// buildTextCondition строит условие поиска по ключевому слову.
// Relevance: полнотекстовое совпадение ИЛИ подстрока в searchable поле; оценка —
// ts_rank, поэтому записи, найденные только подстрокой, оказываются в конце.
func buildTextCondition(b *argBuilder, t *query.TextQuery) (cond, score string) {
	if t.Mode == query.TextRelevance {
		ph := b.add(t.Keyword)
		tsq := fmt.Sprintf("websearch_to_tsquery('simple', %s)", ph)
		parts := []string{fmt.Sprintf("%s @@ %s", searchVectorColumn, tsq)}
		if len(t.Fields) > 0 {
			parts = append(parts, substringConditions(b, t)...)
		}
		score = fmt.Sprintf("ts_rank('%s', %s, %s)", rankWeights(t.Fields), searchVectorColumn, tsq)
		return "(" + strings.Join(parts, " OR ") + ")", score
	}

	if len(t.Fields) == 0 {
		return "FALSE", ""
	}
	return "(" + strings.Join(substringConditions(b, t), " OR ") + ")", ""
}

// substringConditions — ILIKE по каждому searchable полю с одним общим параметром.
func substringConditions(b *argBuilder, t *query.TextQuery) []string {
	ph := b.add(containsPattern(t.Keyword))
	parts := make([]string, 0, len(t.Fields))
	for _, f := range t.Fields {
		parts = append(parts, fmt.Sprintf("%s ILIKE %s", f.Column, ph))
	}
	return parts
}

// buildPredicate компилирует один предикат.
//
//nolint:cyclop // один case на вид предиката
func buildPredicate(b *argBuilder, s *query.Schema, p query.Predicate) string {
	switch p.Kind {
	case query.PredEquals:
		return fmt.Sprintf("%s = ANY(%s)", p.Field.Column, b.add(p.Values))

	case query.PredSubstring:
		parts := make([]string, 0, len(p.Values))
		for _, v := range p.Values {
			parts = append(parts, fmt.Sprintf("%s ILIKE %s", p.Field.Column, b.add(containsPattern(v))))
		}
		return "(" + strings.Join(parts, " OR ") + ")"

	case query.PredNumericRange:
		return rangeCondition(b, numericExpr(p.Field), p.Min, p.Max)

	case query.PredFlag:
		expr := fmt.Sprintf("catalog_yes_no(%s)", p.Field.Column)
		ph := b.add(p.Flag)
		if p.IncludeUnknown {
			return fmt.Sprintf("(%s = %s OR %s IS NULL)", expr, ph, expr)
		}
		return fmt.Sprintf("%s = %s", expr, ph)

	case query.PredPath:
		return fmt.Sprintf("%s @> %s::text[]", segmentsExpr(p.Field), b.add(p.Values))

	case query.PredParameter:
		keyPh := b.add(p.ParamKey)
		var cond string
		switch p.Constraint.Kind {
		case query.ConstraintExact:
			cond = fmt.Sprintf("catalog_clean_value(p.parameter_value) = %s", b.add(p.Constraint.Value))
		case query.ConstraintContains:
			cond = fmt.Sprintf("p.parameter_value ILIKE %s", b.add(containsPattern(p.Constraint.Value)))
		case query.ConstraintRange:
			cond = rangeCondition(b, "catalog_to_numeric(p.parameter_value)", p.Constraint.Min, p.Constraint.Max)
		default:
			cond = "FALSE"
		}
		return fmt.Sprintf(
			"EXISTS (SELECT 1 FROM parameters p WHERE p.component_id = %s.%s AND p.parameter_key = %s AND %s)",
			s.Table, s.IDColumn, keyPh, cond,
		)

	default:
		return "FALSE"
	}
}

// rangeCondition строит условие диапазона; без границ — "значение числовое".
func rangeCondition(b *argBuilder, expr string, lo, hi *float64) string {
	var parts []string
	if lo != nil {
		parts = append(parts, fmt.Sprintf("%s >= %s", expr, b.add(*lo)))
	}
	if hi != nil {
		parts = append(parts, fmt.Sprintf("%s <= %s", expr, b.add(*hi)))
	}
	if len(parts) == 0 {
		return expr + " IS NOT NULL"
	}
	return "(" + strings.Join(parts, " AND ") + ")"
}

// numericExpr — числовое значение поля: предвычисленный столбец, иначе извлечение из текста.
func numericExpr(f query.Field) string {
	if f.NumericColumn != "" {
		return fmt.Sprintf("COALESCE(%s, catalog_to_numeric(%s::text))", f.NumericColumn, f.Column)
	}
	return fmt.Sprintf("catalog_to_numeric(%s::text)", f.Column)
}

// segmentsExpr — сегменты пути: массив, если он хранится, иначе разбор строки.
func segmentsExpr(f query.Field) string {
	if f.SegmentsColumn != "" {
		return fmt.Sprintf("COALESCE(%s, catalog_path_segments(%s))", f.SegmentsColumn, f.Column)
	}
	return fmt.Sprintf("catalog_path_segments(%s)", f.Column)
}

// buildOrderBy строит ORDER BY по ключам плана.
// Поля плана уже прошли whitelist схемы, поэтому в SQL попадают только известные столбцы.
func buildOrderBy(plan query.Plan, score string) string {
	parts := make([]string, 0, len(plan.Sort))
	for _, k := range plan.Sort {
		dir := "ASC"
		if k.Desc {
			dir = "DESC"
		}
		switch {
		case k.Score:
			if score == "" {
				continue
			}
			parts = append(parts, score+" "+dir)
		case k.Field.Type == query.FieldNumeric:
			parts = append(parts, fmt.Sprintf("%s %s NULLS LAST", numericExpr(k.Field), dir))
		default:
			parts = append(parts, fmt.Sprintf("%s %s NULLS LAST", k.Field.Column, dir))
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "ORDER BY " + strings.Join(parts, ", ")
}

// rankWeights возвращает массив весов ts_rank {D, C, B, A}.
// Searchable поля получают метки A..D по убыванию Weight, вес метки — Weight/max.
func rankWeights(fields []query.Field) string {
	sorted := slices.Clone(fields)
	slices.SortStableFunc(sorted, func(a, b query.Field) int { return cmp.Compare(b.Weight, a.Weight) })

	// weights[0] = A ... weights[3] = D
	weights := [4]float64{1, 0.4, 0.2, 0.1}
	if len(sorted) > 0 && sorted[0].Weight > 0 {
		top := float64(sorted[0].Weight)
		for i := 0; i < len(sorted) && i < 4; i++ {
			weights[i] = float64(sorted[i].Weight) / top
		}
	}

	return fmt.Sprintf("{%s, %s, %s, %s}",
		formatWeight(weights[3]), formatWeight(weights[2]), formatWeight(weights[1]), formatWeight(weights[0]))
}

func formatWeight(w float64) string {
	return strconv.FormatFloat(w, 'f', 2, 64)
}

// containsPattern экранирует спецсимволы LIKE и оборачивает значение в %...%.
func containsPattern(v string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(v) + "%"
}

// columnAllowed проверяет, что столбец описан в схеме (whitelist для DISTINCT).
func columnAllowed(s *query.Schema, column string) bool {
	for _, f := range s.Fields {
		if f.Column == column {
			return true
		}
	}
	return false
}
