// Пакет query — построитель фильтров и планировщик запросов поиска.
// Одна параметризованная пара "построитель + планировщик" обслуживает все сущности
// каталога; различия между ними описываются декларативной схемой полей (Schema).
// Все функции пакета чистые: результат зависит только от входных данных.
package query

// FieldType — семантический тип поля.
type FieldType int

const (
	// FieldText — свободный текст: участвует только в поиске по ключевому слову.
	FieldText FieldType = iota
	// FieldCategory — категориальное поле: фильтр по значению (точно или подстрокой).
	FieldCategory
	// FieldNumeric — числовое поле: диапазон по извлечённому числу.
	FieldNumeric
	// FieldYesNo — флаг Yes/No/"".
	FieldYesNo
	// FieldPath — иерархический путь (строка с разделителем или массив сегментов).
	FieldPath
	// FieldTimestamp — метка времени: только сортировка.
	FieldTimestamp
)

// MatchMode — режим сравнения категориального поля.
type MatchMode int

const (
	// MatchExact — точное совпадение с каноническим значением.
	MatchExact MatchMode = iota
	// MatchSubstring — подстрока без учёта регистра.
	MatchSubstring
)

// TextSearchMode — способ поиска по ключевому слову.
type TextSearchMode int

const (
	// TextSubstring — подстрока без учёта регистра по всем searchable полям (OR).
	TextSubstring TextSearchMode = iota
	// TextRelevance — полнотекстовый поиск с оценкой релевантности.
	TextRelevance
)

// SortOrder — направление сортировки.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Field — описание одного поля сущности.
type Field struct {
	// Name — публичное имя поля в запросе (camelCase)
	Name string
	// Column — столбец хранилища
	Column string
	// Type — семантический тип
	Type FieldType
	// Match — режим сравнения для FieldCategory
	Match MatchMode
	// Searchable — участвует в поиске по ключевому слову
	Searchable bool
	// Sortable — допускается в сортировке
	Sortable bool
	// Facet — входит в список значений для фасетных фильтров
	Facet bool
	// Weight — вес поля при полнотекстовом поиске
	Weight int
	// NumericColumn — предвычисленный числовой столбец (для FieldNumeric, опционально)
	NumericColumn string
	// SegmentsColumn — столбец-массив сегментов пути (для FieldPath, опционально)
	SegmentsColumn string
}

// Schema — декларативное описание сущности для построителя и планировщика.
type Schema struct {
	// Entity — имя сущности (используется в ключах кэша и метриках)
	Entity string
	// Table — таблица хранилища
	Table string
	// IDColumn — столбец идентификатора (детерминированный tiebreak сортировки)
	IDColumn string
	// Fields — поля сущности
	Fields []Field
	// TextSearch — способ поиска по ключевому слову
	TextSearch TextSearchMode
	// KeywordMinLength — ключевое слово короче (в символах) игнорируется
	KeywordMinLength int
	// DefaultSort — поле сортировки по умолчанию
	DefaultSort string
	// DefaultOrder — направление сортировки по умолчанию
	DefaultOrder SortOrder
	// DefaultLimit — размер страницы по умолчанию
	DefaultLimit int
	// MaxLimit — максимальный размер страницы
	MaxLimit int
	// Parameters — сущность поддерживает фильтры по техническим параметрам
	Parameters bool
	// PathArrayLeafFirst — строки-массивы пути хранятся в порядке "лист → корень"
	PathArrayLeafFirst bool
}

// Field возвращает описание поля по публичному имени.
func (s *Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// SearchableFields возвращает поля, участвующие в поиске по ключевому слову.
func (s *Schema) SearchableFields() []Field {
	var out []Field
	for _, f := range s.Fields {
		if f.Searchable {
			out = append(out, f)
		}
	}
	return out
}

// FacetFields возвращает поля, для которых строятся списки значений фильтров.
func (s *Schema) FacetFields() []Field {
	var out []Field
	for _, f := range s.Fields {
		if f.Facet {
			out = append(out, f)
		}
	}
	return out
}

// PathField возвращает поле пути, если оно есть у сущности.
func (s *Schema) PathField() (Field, bool) {
	for _, f := range s.Fields {
		if f.Type == FieldPath {
			return f, true
		}
	}
	return Field{}, false
}

// IDField возвращает псевдо-поле идентификатора для tiebreak сортировки.
func (s *Schema) IDField() Field {
	return Field{Name: "id", Column: s.IDColumn, Type: FieldText}
}
