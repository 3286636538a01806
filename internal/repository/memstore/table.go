// Пакет memstore — in-memory реализация репозиториев каталога.
// Выполняет query.Plan с той же семантикой, что и SQL-реализация:
// используется в тестах и для локального запуска с JSON-файлом данных.
package memstore

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"unicode"

	"github.com/bigkaa/partcatalog/search-module/internal/domain/normalize"
	"github.com/bigkaa/partcatalog/search-module/internal/query"
)

// Row — запись, которую умеет фильтровать memstore.
type Row interface {
	RowID() string
	// Column возвращает значение столбца; false — столбец отсутствует или NULL.
	Column(name string) (string, bool)
}

// pathRow — запись, хранящая путь массивом сегментов.
type pathRow interface {
	PathSegments() []string
}

// Table — таблица записей одной сущности.
type Table[T Row] struct {
	schema *query.Schema
	rows   []T
	// params — значения параметров: id записи → ключ → значение
	params map[string]map[string]string
}

// NewTable создаёт таблицу по схеме.
func NewTable[T Row](schema *query.Schema, rows []T) *Table[T] {
	return &Table[T]{schema: schema, rows: rows}
}

// scored — запись с оценкой релевантности.
type scored[T Row] struct {
	row   T
	score float64
}

// Find выполняет план: фильтр, сортировка, пагинация.
func (t *Table[T]) Find(ctx context.Context, plan query.Plan) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	matched := make([]scored[T], 0)
	for _, row := range t.rows {
		if ok, score := t.match(row, plan.Filter); ok {
			matched = append(matched, scored[T]{row: row, score: score})
		}
	}

	slices.SortStableFunc(matched, func(a, b scored[T]) int {
		for _, k := range plan.Sort {
			var c int
			if k.Score {
				c = cmp.Compare(a.score, b.score)
			} else {
				c = compareField(k.Field, a.row, b.row, k.Desc)
				if c != 0 {
					return c
				}
				continue
			}
			if k.Desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})

	start := min(max(plan.Offset, 0), len(matched))
	end := min(start+plan.Limit, len(matched))
	out := make([]T, 0, end-start)
	for _, m := range matched[start:end] {
		out = append(out, m.row)
	}
	return out, nil
}

// Count возвращает количество записей по фильтру.
func (t *Table[T]) Count(ctx context.Context, f query.Filter) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n := 0
	for _, row := range t.rows {
		if ok, _ := t.match(row, f); ok {
			n++
		}
	}
	return n, nil
}

// Distinct возвращает различные непустые значения столбца.
func (t *Table[T]) Distinct(ctx context.Context, column string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	allowed := false
	for _, f := range t.schema.Fields {
		if f.Column == column {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fmt.Errorf("столбец %q не описан в схеме %s", column, t.schema.Entity)
	}

	seen := make(map[string]struct{})
	var out []string
	for _, row := range t.rows {
		v, ok := row.Column(column)
		v = strings.TrimSpace(v)
		if !ok || v == "" {
			continue
		}
		if _, dup := seen[v]; !dup {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out, nil
}

// match проверяет запись по фильтру и возвращает оценку релевантности.
func (t *Table[T]) match(row T, f query.Filter) (bool, float64) {
	var score float64
	if f.Text != nil {
		var ok bool
		ok, score = matchText(row, f.Text)
		if !ok {
			return false, 0
		}
	}
	for _, p := range f.Predicates {
		if !t.matchPredicate(row, p) {
			return false, 0
		}
	}
	return true, score
}

// matchText — поиск по ключевому слову.
// Substring: подстрока без учёта регистра хотя бы в одном поле.
// Relevance: каждое слово запроса должно быть токеном хотя бы одного поля,
// оценка — сумма весов полей, в которых слово найдено. Иначе запись совпадает
// подстрокой с нулевой оценкой.
func matchText(row Row, t *query.TextQuery) (bool, float64) {
	if t.Mode == query.TextRelevance {
		if ok, score := matchTokens(row, t); ok {
			return true, score
		}
	}
	return matchSubstring(row, t), 0
}

func matchSubstring(row Row, t *query.TextQuery) bool {
	needle := strings.ToLower(t.Keyword)
	for _, f := range t.Fields {
		if v, ok := row.Column(f.Column); ok && strings.Contains(strings.ToLower(v), needle) {
			return true
		}
	}
	return false
}

func matchTokens(row Row, t *query.TextQuery) (bool, float64) {
	terms := tokenize(t.Keyword)
	if len(terms) == 0 {
		return false, 0
	}
	fieldTokens := make([]map[string]struct{}, len(t.Fields))
	for i, f := range t.Fields {
		v, _ := row.Column(f.Column)
		fieldTokens[i] = tokenSet(v)
	}

	var score float64
	for _, term := range terms {
		found := false
		for i, f := range t.Fields {
			if _, ok := fieldTokens[i][term]; ok {
				found = true
				score += float64(f.Weight)
			}
		}
		if !found {
			return false, 0
		}
	}
	return true, score
}

// matchPredicate проверяет один предикат.
//
//nolint:cyclop // один case на вид предиката
func (t *Table[T]) matchPredicate(row T, p query.Predicate) bool {
	switch p.Kind {
	case query.PredEquals:
		v, ok := row.Column(p.Field.Column)
		return ok && slices.Contains(p.Values, v)

	case query.PredSubstring:
		v, ok := row.Column(p.Field.Column)
		if !ok {
			return false
		}
		lv := strings.ToLower(v)
		for _, want := range p.Values {
			if strings.Contains(lv, strings.ToLower(want)) {
				return true
			}
		}
		return false

	case query.PredNumericRange:
		v, ok := numericValue(row, p.Field)
		return ok && inRange(v, p.Min, p.Max)

	case query.PredFlag:
		v, _ := row.Column(p.Field.Column)
		switch normalize.YesNo(v) {
		case normalize.FlagYes:
			return p.Flag
		case normalize.FlagNo:
			return !p.Flag
		default:
			return p.IncludeUnknown
		}

	case query.PredPath:
		segs := t.segments(row, p.Field)
		for _, want := range p.Values {
			if !slices.Contains(segs, want) {
				return false
			}
		}
		return true

	case query.PredParameter:
		raw, ok := t.params[row.RowID()][p.ParamKey]
		if !ok {
			return false
		}
		return matchConstraint(raw, p.Constraint)

	default:
		return false
	}
}

// matchConstraint применяет ограничение к значению параметра.
func matchConstraint(raw string, c query.Constraint) bool {
	switch c.Kind {
	case query.ConstraintExact:
		return normalize.CleanValue(raw) == c.Value
	case query.ConstraintContains:
		return strings.Contains(strings.ToLower(raw), strings.ToLower(c.Value))
	case query.ConstraintRange:
		v, ok := normalize.Numeric(raw)
		return ok && inRange(v, c.Min, c.Max)
	default:
		return false
	}
}

// segments возвращает сегменты пути записи.
func (t *Table[T]) segments(row T, f query.Field) []string {
	if pr, ok := any(row).(pathRow); ok {
		if segs := pr.PathSegments(); len(segs) > 0 {
			return segs
		}
	}
	raw, _ := row.Column(f.Column)
	return normalize.ParsePath(raw, t.schema.PathArrayLeafFirst)
}

// numericValue — предвычисленное число, иначе извлечение из текста.
func numericValue(row Row, f query.Field) (float64, bool) {
	if f.NumericColumn != "" {
		if raw, ok := row.Column(f.NumericColumn); ok {
			if v, ok := normalize.Numeric(raw); ok {
				return v, true
			}
		}
	}
	raw, ok := row.Column(f.Column)
	if !ok {
		return 0, false
	}
	return normalize.Numeric(raw)
}

func inRange(v float64, lo, hi *float64) bool {
	if lo != nil && v < *lo {
		return false
	}
	if hi != nil && v > *hi {
		return false
	}
	return true
}

// compareField сравнивает записи по полю; NULL всегда в конце независимо от направления.
func compareField(f query.Field, a, b Row, desc bool) int {
	var av, bv any
	var aok, bok bool
	if f.Type == query.FieldNumeric {
		av, aok = numericValue(a, f)
		bv, bok = numericValue(b, f)
	} else {
		av, aok = a.Column(f.Column)
		bv, bok = b.Column(f.Column)
	}

	switch {
	case !aok && !bok:
		return 0
	case !aok:
		return 1
	case !bok:
		return -1
	}

	var c int
	switch x := av.(type) {
	case float64:
		c = cmp.Compare(x, bv.(float64))
	case string:
		c = strings.Compare(x, bv.(string))
	}
	if desc {
		c = -c
	}
	return c
}

// tokenize разбивает текст на слова в нижнем регистре.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func tokenSet(s string) map[string]struct{} {
	tokens := tokenize(s)
	set := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		set[tok] = struct{}{}
	}
	return set
}
