package query

// SortKey — один ключ сортировки плана.
type SortKey struct {
	// Score — сортировка по оценке релевантности (Field не используется)
	Score bool
	Field Field
	Desc  bool
}

// Plan — исполняемый план поиска. Запрос подсчёта строится из того же Filter
// без сортировки и пагинации, поэтому выборка и total не могут разойтись.
type Plan struct {
	Schema *Schema
	Filter Filter
	Sort   []SortKey
	Offset int
	Limit  int
}

// NewPlan строит план по нормализованному запросу и готовому фильтру.
//
// Порядок сортировки:
//  1. оценка релевантности по убыванию (если есть полнотекстовый запрос);
//  2. запрошенное поле в запрошенном направлении (NULL — в конце);
//  3. идентификатор по возрастанию — детерминированный tiebreak для пагинации.
func NewPlan(s *Schema, req FilterRequest, f Filter) Plan {
	p := Plan{
		Schema: s,
		Filter: f,
		Offset: req.Offset(),
		Limit:  req.Limit,
	}

	if f.Relevance() {
		p.Sort = append(p.Sort, SortKey{Score: true, Desc: true})
	}

	field, ok := s.Field(req.SortBy)
	if !ok || !field.Sortable {
		field, _ = s.Field(s.DefaultSort)
	}
	if field.Column != s.IDColumn {
		p.Sort = append(p.Sort, SortKey{Field: field, Desc: req.SortOrder == SortDesc})
	}
	p.Sort = append(p.Sort, SortKey{Field: s.IDField()})

	return p
}

// Compile — полный конвейер: нормализация, построение фильтра, план.
// Возвращает также нормализованный запрос (для ключа кэша и ответа).
func Compile(s *Schema, req FilterRequest, params ParameterResolver) (FilterRequest, Plan) {
	norm := req.Normalize(s)
	f := BuildFilter(s, norm, params)
	return norm, NewPlan(s, norm, f)
}
