package query

// Схемы сущностей каталога.

// ComponentSchema — компоненты: полнотекстовый поиск с весами, фильтры по параметрам.
var ComponentSchema = &Schema{
	Entity:   "component",
	Table:    "components",
	IDColumn: "component_id",
	Fields: []Field{
		{Name: "partNumber", Column: "part_number", Type: FieldCategory, Match: MatchSubstring, Searchable: true, Sortable: true, Weight: 10},
		{Name: "partType", Column: "part_type", Type: FieldCategory, Match: MatchExact, Searchable: true, Sortable: true, Facet: true, Weight: 8},
		{Name: "manufacturer", Column: "manufacturer_name", Type: FieldCategory, Match: MatchSubstring, Searchable: true, Sortable: true, Facet: true, Weight: 6},
		{Name: "description", Column: "description", Type: FieldText, Searchable: true, Weight: 3},
		{Name: "obsolescence", Column: "obsolescence_type", Type: FieldCategory, Match: MatchExact, Sortable: true, Facet: true},
		{Name: "quality", Column: "quality_name", Type: FieldCategory, Match: MatchExact, Sortable: true, Facet: true},
		{Name: "qualified", Column: "qualified", Type: FieldCategory, Match: MatchExact},
		{Name: "hasStock", Column: "has_stock", Type: FieldYesNo, Sortable: true},
		{Name: "familyPath", Column: "family_path", Type: FieldPath, SegmentsColumn: "family_path_segments"},
		{Name: "created", Column: "created_at", Type: FieldTimestamp, Sortable: true},
		{Name: "updated", Column: "updated_at", Type: FieldTimestamp, Sortable: true},
	},
	TextSearch:         TextRelevance,
	KeywordMinLength:   2,
	DefaultSort:        "partNumber",
	DefaultOrder:       SortAsc,
	DefaultLimit:       20,
	MaxLimit:           50,
	Parameters:         true,
	PathArrayLeafFirst: true,
}

// RadiationSchema — результаты радиационных испытаний: поиск подстрокой, числовые дозы.
var RadiationSchema = &Schema{
	Entity:   "radiation",
	Table:    "irradiation_tests",
	IDColumn: "id",
	Fields: []Field{
		{Name: "model", Column: "model", Type: FieldCategory, Match: MatchSubstring, Searchable: true, Sortable: true},
		{Name: "modelSpec", Column: "model_spec", Type: FieldText, Searchable: true},
		{Name: "productName", Column: "product_name", Type: FieldCategory, Match: MatchSubstring, Searchable: true, Sortable: true},
		{Name: "supplier", Column: "supplier", Type: FieldCategory, Match: MatchExact, Searchable: true, Sortable: true, Facet: true},
		{Name: "category", Column: "category", Type: FieldCategory, Match: MatchExact, Facet: true},
		{Name: "subcategory", Column: "subcategory", Type: FieldCategory, Match: MatchExact, Facet: true},
		{Name: "qualityGrade", Column: "quality_grade", Type: FieldCategory, Match: MatchExact, Sortable: true, Facet: true},
		{Name: "package", Column: "package", Type: FieldCategory, Match: MatchSubstring},
		{Name: "totalDose", Column: "total_dose", Type: FieldNumeric, Sortable: true, NumericColumn: "total_dose_numeric"},
		{Name: "singleEvent", Column: "single_event", Type: FieldNumeric, Sortable: true, NumericColumn: "single_event_numeric"},
		{Name: "created", Column: "created_at", Type: FieldTimestamp, Sortable: true},
	},
	TextSearch:   TextSubstring,
	DefaultSort:  "model",
	DefaultOrder: SortAsc,
	DefaultLimit: 20,
	MaxLimit:     100,
}

// DomesticSchema — отечественные изделия: трёхуровневая классификация.
var DomesticSchema = &Schema{
	Entity:   "domestic",
	Table:    "domestic_products",
	IDColumn: "id",
	Fields: []Field{
		{Name: "name", Column: "name", Type: FieldCategory, Match: MatchSubstring, Searchable: true, Sortable: true},
		{Name: "model", Column: "model", Type: FieldCategory, Match: MatchSubstring, Searchable: true, Sortable: true},
		{Name: "manufacturer", Column: "manufacturer", Type: FieldCategory, Match: MatchSubstring, Searchable: true, Sortable: true, Facet: true},
		{Name: "keySpecs", Column: "key_specs", Type: FieldText, Searchable: true},
		{Name: "level1", Column: "level1", Type: FieldCategory, Match: MatchExact, Facet: true},
		{Name: "level2", Column: "level2", Type: FieldCategory, Match: MatchExact, Facet: true},
		{Name: "level3", Column: "level3", Type: FieldCategory, Match: MatchExact, Facet: true},
		{Name: "quality", Column: "quality", Type: FieldCategory, Match: MatchExact, Facet: true},
		{Name: "seq", Column: "seq", Type: FieldNumeric, Sortable: true, NumericColumn: "seq"},
	},
	TextSearch:   TextSubstring,
	DefaultSort:  "seq",
	DefaultOrder: SortAsc,
	DefaultLimit: 20,
	MaxLimit:     100,
}
