package model

import "time"

// RadiationRecord — результат радиационных испытаний (таблица irradiation_tests).
// Текстовые дозы ("100 krad(Si)") могут сопровождаться предвычисленными числовыми полями.
type RadiationRecord struct {
	ID                 string    `json:"id"`
	Category           string    `json:"category"`
	Subcategory        string    `json:"subcategory"`
	ProductName        string    `json:"productName"`
	Model              string    `json:"model"`
	ModelSpec          string    `json:"modelSpec"`
	Package            string    `json:"package"`
	TotalDose          string    `json:"totalDose"`
	TotalDoseNumeric   *float64  `json:"totalDoseNumeric,omitempty"`
	SingleEvent        string    `json:"singleEvent"`
	SingleEventNumeric *float64  `json:"singleEventNumeric,omitempty"`
	Displacement       string    `json:"displacement"`
	ESDRating          string    `json:"esdRating"`
	QualityGrade       string    `json:"qualityGrade"`
	Supplier           string    `json:"supplier"`
	Remark             string    `json:"remark"`
	CreatedAt          time.Time `json:"createdAt"`
}

// RowID возвращает идентификатор записи.
func (r RadiationRecord) RowID() string { return r.ID }

// Column возвращает значение столбца таблицы irradiation_tests по имени.
func (r RadiationRecord) Column(name string) (string, bool) {
	switch name {
	case "id":
		return r.ID, true
	case "category":
		return r.Category, true
	case "subcategory":
		return r.Subcategory, true
	case "product_name":
		return r.ProductName, true
	case "model":
		return r.Model, true
	case "model_spec":
		return r.ModelSpec, true
	case "package":
		return r.Package, true
	case "total_dose":
		return r.TotalDose, true
	case "total_dose_numeric":
		return formatFloat(r.TotalDoseNumeric)
	case "single_event":
		return r.SingleEvent, true
	case "single_event_numeric":
		return formatFloat(r.SingleEventNumeric)
	case "displacement":
		return r.Displacement, true
	case "esd_rating":
		return r.ESDRating, true
	case "quality_grade":
		return r.QualityGrade, true
	case "supplier":
		return r.Supplier, true
	case "remark":
		return r.Remark, true
	case "created_at":
		return formatTime(r.CreatedAt)
	}
	return "", false
}
