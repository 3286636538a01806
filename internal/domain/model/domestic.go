package model

import "strconv"

// DomesticProduct — отечественное изделие (таблица domestic_products).
// Классификация задана тремя уровнями level1 → level2 → level3.
type DomesticProduct struct {
	ID               string `json:"id"`
	Seq              int    `json:"seq"`
	Level1           string `json:"level1"`
	Level2           string `json:"level2"`
	Level3           string `json:"level3"`
	Name             string `json:"name"`
	Manufacturer     string `json:"manufacturer"`
	Model            string `json:"model"`
	KeySpecs         string `json:"keySpecs"`
	TemperatureRange string `json:"temperatureRange"`
	Radiation        string `json:"radiation"`
	Package          string `json:"package"`
	Quality          string `json:"quality"`
}

// RowID возвращает идентификатор записи.
func (p DomesticProduct) RowID() string { return p.ID }

// Column возвращает значение столбца таблицы domestic_products по имени.
func (p DomesticProduct) Column(name string) (string, bool) {
	switch name {
	case "id":
		return p.ID, true
	case "seq":
		return strconv.Itoa(p.Seq), true
	case "level1":
		return p.Level1, true
	case "level2":
		return p.Level2, true
	case "level3":
		return p.Level3, true
	case "name":
		return p.Name, true
	case "manufacturer":
		return p.Manufacturer, true
	case "model":
		return p.Model, true
	case "key_specs":
		return p.KeySpecs, true
	case "temperature_range":
		return p.TemperatureRange, true
	case "radiation":
		return p.Radiation, true
	case "package":
		return p.Package, true
	case "quality":
		return p.Quality, true
	}
	return "", false
}

// Levels возвращает уровни классификации в порядке "корень → лист".
func (p DomesticProduct) Levels() []string {
	return []string{p.Level1, p.Level2, p.Level3}
}
