package query

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/bigkaa/partcatalog/search-module/internal/domain/normalize"
)

// FilterRequest — запрос поиска по сущности каталога.
// До вызова Normalize может содержать произвольный "мусор" из внешнего мира.
type FilterRequest struct {
	// Keyword — ключевое слово для полнотекстового поиска / поиска подстрокой
	Keyword string `json:"keyword,omitempty"`
	// Filters — категориальные фильтры: поле → допустимые значения (OR внутри поля)
	Filters map[string][]string `json:"filters,omitempty"`
	// Ranges — числовые диапазоны по полям FieldNumeric
	Ranges map[string]NumberRange `json:"ranges,omitempty"`
	// Flags — фильтры по полям Yes/No
	Flags map[string]FlagFilter `json:"flags,omitempty"`
	// FamilyPath — сегменты пути, которые все должны присутствовать в пути записи
	FamilyPath []string `json:"familyPath,omitempty"`
	// Parameters — ограничения на технические параметры: ключ → ограничение (AND между ключами)
	Parameters map[string]Constraint `json:"parameters,omitempty"`
	// Page — номер страницы, начиная с 1
	Page int `json:"page"`
	// Limit — размер страницы
	Limit int `json:"limit"`
	// SortBy — поле сортировки (публичное имя)
	SortBy string `json:"sortBy"`
	// SortOrder — asc или desc
	SortOrder SortOrder `json:"sortOrder"`
}

// NumberRange — числовой диапазон; nil-граница не ограничивает.
type NumberRange struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// FlagFilter — фильтр по флагу Yes/No.
// IncludeUnknown добавляет к результату записи с пустым/нераспознанным значением.
type FlagFilter struct {
	Value          bool `json:"value"`
	IncludeUnknown bool `json:"includeUnknown,omitempty"`
}

// UnmarshalJSON принимает как объект {"value":true}, так и сокращения: true, "Yes", "No".
func (f *FlagFilter) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		type plain FlagFilter
		var p plain
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		*f = FlagFilter(p)
		return nil
	}

	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = FlagFilter{Value: b}
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("некорректный флаг: %s", data)
	}
	switch normalize.YesNo(s) {
	case normalize.FlagYes:
		*f = FlagFilter{Value: true}
	case normalize.FlagNo:
		*f = FlagFilter{Value: false}
	default:
		return fmt.Errorf("некорректный флаг: %q", s)
	}
	return nil
}

// Normalize приводит запрос к каноническому виду для данной схемы.
// Некорректный ввод никогда не приводит к ошибке: неизвестные поля отбрасываются,
// страница и лимит приводятся к допустимым значениям, неизвестная сортировка
// заменяется сортировкой по умолчанию. Результат — детерминированный вход
// для построителя фильтров и ключа кэша.
func (r FilterRequest) Normalize(s *Schema) FilterRequest {
	out := FilterRequest{
		Keyword: normalize.Text(r.Keyword),
		Page:    r.Page,
		Limit:   r.Limit,
	}

	if utf8.RuneCountInString(out.Keyword) < s.KeywordMinLength {
		out.Keyword = ""
	}

	for name, values := range r.Filters {
		f, ok := s.Field(name)
		if !ok || f.Type != FieldCategory {
			continue
		}
		cleaned := cleanList(values)
		if len(cleaned) == 0 {
			continue
		}
		if out.Filters == nil {
			out.Filters = make(map[string][]string)
		}
		out.Filters[name] = cleaned
	}

	for name, rng := range r.Ranges {
		f, ok := s.Field(name)
		if !ok || f.Type != FieldNumeric || (rng.Min == nil && rng.Max == nil) {
			continue
		}
		if out.Ranges == nil {
			out.Ranges = make(map[string]NumberRange)
		}
		out.Ranges[name] = rng
	}

	for name, flag := range r.Flags {
		f, ok := s.Field(name)
		if !ok || f.Type != FieldYesNo {
			continue
		}
		if out.Flags == nil {
			out.Flags = make(map[string]FlagFilter)
		}
		out.Flags[name] = flag
	}

	if _, ok := s.PathField(); ok {
		out.FamilyPath = cleanList(r.FamilyPath)
	}

	for key, c := range r.Parameters {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if out.Parameters == nil {
			out.Parameters = make(map[string]Constraint)
		}
		out.Parameters[key] = c.normalize()
	}

	if out.Page < 1 {
		out.Page = 1
	}
	if out.Limit < 1 {
		out.Limit = s.DefaultLimit
	}
	if out.Limit > s.MaxLimit {
		out.Limit = s.MaxLimit
	}
	// (Page-1)*Limit не должно переполнять int
	if maxPage := math.MaxInt / out.Limit; out.Page > maxPage {
		out.Page = maxPage
	}

	out.SortBy = strings.TrimSpace(r.SortBy)
	if f, ok := s.Field(out.SortBy); !ok || !f.Sortable {
		out.SortBy = s.DefaultSort
	}
	switch SortOrder(strings.ToLower(strings.TrimSpace(string(r.SortOrder)))) {
	case SortDesc:
		out.SortOrder = SortDesc
	case SortAsc:
		out.SortOrder = SortAsc
	default:
		out.SortOrder = s.DefaultOrder
	}

	return out
}

// Offset возвращает смещение первой записи страницы.
func (r FilterRequest) Offset() int {
	return (r.Page - 1) * r.Limit
}

// CacheKey возвращает детерминированный ключ кэша для нормализованного запроса:
// "search:<entity>:<sha256 канонического JSON>". encoding/json сериализует
// ключи map в отсортированном порядке, поэтому одинаковые запросы дают одинаковый ключ.
func (r FilterRequest) CacheKey(s *Schema) string {
	data, err := json.Marshal(r)
	if err != nil {
		// Все поля запроса сериализуемы; ветка недостижима для корректных значений.
		data = []byte(fmt.Sprintf("%#v", r))
	}
	sum := sha256.Sum256(data)
	return "search:" + s.Entity + ":" + hex.EncodeToString(sum[:])
}

// cleanList обрезает значения, удаляет пустые и дубликаты, сортирует.
// Порядок значений не влияет на семантику (IN / "все сегменты"), поэтому сортировка
// делает ключ кэша независимым от порядка во входном запросе.
func cleanList(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = normalize.Text(v)
		if v != "" {
			seen[v] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return nil
	}
	return slices.Sorted(maps.Keys(seen))
}

// formatBound используется в сообщениях и логах.
func formatBound(v *float64) string {
	if v == nil {
		return "*"
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}

// String возвращает диапазон в виде [min, max].
func (r NumberRange) String() string {
	return "[" + formatBound(r.Min) + ", " + formatBound(r.Max) + "]"
}
