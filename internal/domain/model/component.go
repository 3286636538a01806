// Пакет model — доменные модели каталога компонентов.
// Каждая модель — маппинг одной таблицы; модуль поиска использует их только для чтения.
package model

import (
	"strconv"
	"time"
)

// Component — запись каталога электронных компонентов (таблица components).
type Component struct {
	// ComponentID — непрозрачный уникальный идентификатор, неизменяем
	ComponentID string `json:"componentId"`
	// PartNumber — обозначение компонента (part number)
	PartNumber string `json:"partNumber"`
	// Manufacturer — производитель
	Manufacturer string `json:"manufacturer"`
	// PartType — тип компонента
	PartType string `json:"partType"`
	// FamilyPath — путь семейства: "Discretes > Diode" или "['Diode','Discretes']"
	FamilyPath string `json:"familyPath"`
	// FamilyPathSegments — тот же путь в виде массива сегментов (может отсутствовать)
	FamilyPathSegments []string `json:"familyPathSegments,omitempty"`
	// ObsolescenceType — статус жизненного цикла: Active, Obsolete, Last Time Buy, NRND...
	ObsolescenceType string `json:"obsolescenceType"`
	// HasStock — наличие на складе: "Yes", "No" или ""
	HasStock string `json:"hasStock"`
	// QualityName — класс качества
	QualityName string `json:"qualityName"`
	// Qualified — признак квалификации
	Qualified string `json:"qualified"`
	// Description — описание в свободной форме
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// RowID возвращает идентификатор записи.
func (c Component) RowID() string { return c.ComponentID }

// Column возвращает значение столбца таблицы components по имени.
// Второй результат false — столбец отсутствует или равен NULL.
func (c Component) Column(name string) (string, bool) {
	switch name {
	case "component_id":
		return c.ComponentID, true
	case "part_number":
		return c.PartNumber, true
	case "manufacturer_name":
		return c.Manufacturer, true
	case "part_type":
		return c.PartType, true
	case "family_path":
		return c.FamilyPath, true
	case "obsolescence_type":
		return c.ObsolescenceType, true
	case "has_stock":
		return c.HasStock, true
	case "quality_name":
		return c.QualityName, true
	case "qualified":
		return c.Qualified, true
	case "description":
		return c.Description, true
	case "created_at":
		return formatTime(c.CreatedAt)
	case "updated_at":
		return formatTime(c.UpdatedAt)
	}
	return "", false
}

// PathSegments возвращает сегменты пути, если они хранятся массивом.
func (c Component) PathSegments() []string { return c.FamilyPathSegments }

// ParameterValue — значение технического параметра компонента (таблица parameters).
// Значение хранится текстом: число, число с единицами или строка-массив.
type ParameterValue struct {
	ComponentID string `json:"componentId"`
	Key         string `json:"parameterKey"`
	Value       string `json:"parameterValue"`
}

// ParameterDefinition — справочник параметров (таблица parameter_definitions).
type ParameterDefinition struct {
	Key       string `json:"parameterKey"`
	Name      string `json:"name"`
	ShortName string `json:"shortName"`
	Category  string `json:"category"`
	Example   string `json:"example,omitempty"`
}

// StatisticsRow — предварительно сгруппированная строка для агрегатора статистики.
// Count — вес строки (количество компонентов с такой комбинацией значений).
type StatisticsRow struct {
	Manufacturer string
	Obsolescence string
	Quality      string
	HasStock     string
	Count        int
}

// sortableTimeLayout — формат фиксированной ширины, лексикографический порядок совпадает с хронологическим.
const sortableTimeLayout = "2006-01-02T15:04:05.000000000Z"

// formatTime возвращает время в сортируемом текстовом виде; нулевое время — NULL.
func formatTime(t time.Time) (string, bool) {
	if t.IsZero() {
		return "", false
	}
	return t.UTC().Format(sortableTimeLayout), true
}

// formatFloat возвращает число в текстовом виде; nil — NULL.
func formatFloat(v *float64) (string, bool) {
	if v == nil {
		return "", false
	}
	return strconv.FormatFloat(*v, 'f', -1, 64), true
}
