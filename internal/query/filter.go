package query

import (
	"maps"
	"slices"
	"strings"

	"github.com/bigkaa/partcatalog/search-module/internal/domain/model"
	"github.com/bigkaa/partcatalog/search-module/internal/domain/normalize"
)

// PredicateKind — вид предиката.
type PredicateKind int

const (
	// PredEquals — значение поля входит в Values.
	PredEquals PredicateKind = iota
	// PredSubstring — значение поля содержит любую из Values (без учёта регистра).
	PredSubstring
	// PredNumericRange — извлечённое число поля в [Min, Max]; нечисловые значения не совпадают.
	PredNumericRange
	// PredFlag — флаг Yes/No равен Flag (неизвестные — только при IncludeUnknown).
	PredFlag
	// PredPath — путь записи содержит все Values (порядок не важен).
	PredPath
	// PredParameter — у записи есть параметр ParamKey, удовлетворяющий Constraint.
	PredParameter
	// PredMatchNothing — не совпадает ни с одной записью.
	PredMatchNothing
)

// Predicate — одно независимое условие фильтра.
type Predicate struct {
	Kind           PredicateKind
	Field          Field
	Values         []string
	Min            *float64
	Max            *float64
	Flag           bool
	IncludeUnknown bool
	ParamKey       string
	Constraint     Constraint
	// Reason — причина PredMatchNothing (для логов)
	Reason string
}

// TextQuery — поиск по ключевому слову.
type TextQuery struct {
	Keyword string
	Mode    TextSearchMode
	Fields  []Field
}

// Filter — результат построителя: необязательный текстовый запрос и список
// предикатов, объединяемых по AND. Один и тот же Filter используется
// и для выборки страницы, и для подсчёта total.
type Filter struct {
	Text       *TextQuery
	Predicates []Predicate
}

// Relevance сообщает, даёт ли фильтр оценку релевантности для сортировки.
func (f Filter) Relevance() bool {
	return f.Text != nil && f.Text.Mode == TextRelevance
}

// MatchesNothing сообщает, содержит ли фильтр заведомо ложный предикат.
func (f Filter) MatchesNothing() bool {
	for _, p := range f.Predicates {
		if p.Kind == PredMatchNothing {
			return true
		}
	}
	return false
}

// ScopeFilter строит фильтр по одному категориальному полю для агрегатов над
// подмножеством записей (дерево классификации или статистика одного производителя).
// Возвращает фильтр и нормализованное значение; пустое значение или поле,
// не являющееся категориальным, дают пустой фильтр и "".
func ScopeFilter(s *Schema, field, value string) (Filter, string) {
	norm := FilterRequest{Filters: map[string][]string{field: {value}}}.Normalize(s)
	values := norm.Filters[field]
	if len(values) == 0 {
		return Filter{}, ""
	}
	return BuildFilter(s, FilterRequest{Filters: norm.Filters}, nil), values[0]
}

// ParameterResolver сопоставляет ключ из запроса каноническому ключу параметра.
type ParameterResolver interface {
	// Resolve возвращает канонический parameter_key или false для неизвестного ключа.
	Resolve(key string) (string, bool)
}

// ParameterIndex — справочник параметров: поиск по ключу или короткому имени.
type ParameterIndex struct {
	byKey map[string]string
	byAlt map[string]string
}

// NewParameterIndex строит индекс по справочнику определений.
func NewParameterIndex(defs []model.ParameterDefinition) *ParameterIndex {
	idx := &ParameterIndex{
		byKey: make(map[string]string, len(defs)),
		byAlt: make(map[string]string, len(defs)),
	}
	for _, d := range defs {
		if d.Key == "" {
			continue
		}
		idx.byKey[d.Key] = d.Key
		if d.ShortName != "" {
			idx.byAlt[strings.ToLower(d.ShortName)] = d.Key
		}
	}
	return idx
}

// Resolve ищет параметр сначала по ключу, затем по короткому имени без учёта регистра.
func (idx *ParameterIndex) Resolve(key string) (string, bool) {
	if idx == nil {
		return "", false
	}
	if k, ok := idx.byKey[key]; ok {
		return k, true
	}
	k, ok := idx.byAlt[strings.ToLower(key)]
	return k, ok
}

// BuildFilter компилирует нормализованный запрос в Filter.
// Порядок предикатов детерминирован (поля — в порядке схемы, параметры — по ключу),
// поэтому одинаковые запросы дают одинаковые планы.
//
// Неизвестный ключ параметра, ограничение invalid и параметры для сущности
// без параметров компилируются в PredMatchNothing.
func BuildFilter(s *Schema, req FilterRequest, params ParameterResolver) Filter {
	var f Filter

	if req.Keyword != "" {
		f.Text = &TextQuery{
			Keyword: req.Keyword,
			Mode:    s.TextSearch,
			Fields:  s.SearchableFields(),
		}
	}

	for _, field := range s.Fields {
		switch field.Type {
		case FieldCategory:
			values, ok := req.Filters[field.Name]
			if !ok {
				continue
			}
			kind := PredEquals
			if field.Match == MatchSubstring {
				kind = PredSubstring
			}
			f.Predicates = append(f.Predicates, Predicate{Kind: kind, Field: field, Values: values})

		case FieldNumeric:
			rng, ok := req.Ranges[field.Name]
			if !ok {
				continue
			}
			f.Predicates = append(f.Predicates, Predicate{
				Kind: PredNumericRange, Field: field, Min: rng.Min, Max: rng.Max,
			})

		case FieldYesNo:
			flag, ok := req.Flags[field.Name]
			if !ok {
				continue
			}
			f.Predicates = append(f.Predicates, Predicate{
				Kind: PredFlag, Field: field, Flag: flag.Value, IncludeUnknown: flag.IncludeUnknown,
			})

		case FieldPath:
			if len(req.FamilyPath) == 0 {
				continue
			}
			f.Predicates = append(f.Predicates, Predicate{Kind: PredPath, Field: field, Values: req.FamilyPath})
		}
	}

	for _, key := range slices.Sorted(maps.Keys(req.Parameters)) {
		f.Predicates = append(f.Predicates, parameterPredicate(s, key, req.Parameters[key], params))
	}

	return f
}

// parameterPredicate строит предикат для одного ключа параметра.
func parameterPredicate(s *Schema, key string, c Constraint, params ParameterResolver) Predicate {
	if !s.Parameters {
		return Predicate{Kind: PredMatchNothing, Reason: "сущность не поддерживает параметры: " + key}
	}
	if c.Kind == ConstraintInvalid {
		return Predicate{Kind: PredMatchNothing, Reason: "некорректное ограничение параметра: " + key}
	}
	canonical, ok := "", false
	if params != nil {
		canonical, ok = params.Resolve(key)
	}
	if !ok {
		return Predicate{Kind: PredMatchNothing, Reason: "неизвестный параметр: " + key}
	}

	if c.Kind == ConstraintExact {
		c.Value = normalize.CleanValue(c.Value)
	}
	return Predicate{Kind: PredParameter, ParamKey: canonical, Constraint: c}
}
