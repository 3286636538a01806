package query

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// ConstraintKind — вариант ограничения на технический параметр.
type ConstraintKind string

const (
	// ConstraintExact — равенство после нормализации значения (normalize.CleanValue).
	ConstraintExact ConstraintKind = "exact"
	// ConstraintRange — числовое значение в диапазоне [Min, Max].
	ConstraintRange ConstraintKind = "range"
	// ConstraintContains — подстрока без учёта регистра в исходном тексте.
	ConstraintContains ConstraintKind = "contains"
	// ConstraintInvalid — нераспознанное ограничение; не совпадает ни с чем.
	ConstraintInvalid ConstraintKind = "invalid"
)

// Constraint — ограничение на значение технического параметра.
// Размеченное объединение Exact | Range | Contains: поле Kind определяет,
// какие из остальных полей имеют смысл.
type Constraint struct {
	Kind  ConstraintKind `json:"type"`
	Value string         `json:"value,omitempty"`
	Min   *float64       `json:"min,omitempty"`
	Max   *float64       `json:"max,omitempty"`
}

// Exact создаёт ограничение точного совпадения.
func Exact(value string) Constraint { return Constraint{Kind: ConstraintExact, Value: value} }

// Contains создаёт ограничение по подстроке.
func Contains(value string) Constraint { return Constraint{Kind: ConstraintContains, Value: value} }

// Range создаёт числовое ограничение; nil-граница не ограничивает.
func Range(lo, hi *float64) Constraint { return Constraint{Kind: ConstraintRange, Min: lo, Max: hi} }

// UnmarshalJSON разбирает ограничение из JSON.
//
// Поддерживаемые формы:
//   - {"type":"exact","value":"SOT-23"}, {"type":"contains","value":"SOT"},
//     {"type":"range","min":-55,"max":125};
//   - {"min":..,"max":..} без type — диапазон;
//   - {"value":..} без type — точное совпадение;
//   - скаляр (строка, число, bool) — точное совпадение.
//
// Нераспознанные формы не приводят к ошибке: ограничение получает вид
// ConstraintInvalid и отсекает все записи.
func (c *Constraint) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = Constraint{Kind: ConstraintInvalid}
		return nil
	}

	if data[0] != '{' {
		var v any
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		switch x := v.(type) {
		case string:
			*c = Exact(x)
		case float64:
			*c = Exact(strconv.FormatFloat(x, 'f', -1, 64))
		case bool:
			*c = Exact(strconv.FormatBool(x))
		default:
			*c = Constraint{Kind: ConstraintInvalid}
		}
		return nil
	}

	var raw struct {
		Type  string          `json:"type"`
		Value json.RawMessage `json:"value"`
		Min   *float64        `json:"min"`
		Max   *float64        `json:"max"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	value := scalarText(raw.Value)
	switch ConstraintKind(strings.ToLower(strings.TrimSpace(raw.Type))) {
	case ConstraintExact:
		*c = Exact(value)
	case ConstraintContains:
		*c = Contains(value)
	case ConstraintRange:
		*c = Range(raw.Min, raw.Max)
	case "":
		switch {
		case raw.Min != nil || raw.Max != nil:
			*c = Range(raw.Min, raw.Max)
		case raw.Value != nil:
			*c = Exact(value)
		default:
			*c = Constraint{Kind: ConstraintInvalid}
		}
	default:
		*c = Constraint{Kind: ConstraintInvalid}
	}
	return nil
}

// scalarText возвращает текстовое представление скалярного JSON-значения.
func scalarText(raw json.RawMessage) string {
	if raw == nil {
		return ""
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	}
	return ""
}

// normalize приводит ограничение к каноническому виду.
// Пустое значение exact/contains не имеет смысла и превращается в invalid.
func (c Constraint) normalize() Constraint {
	switch c.Kind {
	case ConstraintExact, ConstraintContains:
		v := strings.TrimSpace(c.Value)
		if v == "" {
			return Constraint{Kind: ConstraintInvalid}
		}
		return Constraint{Kind: c.Kind, Value: v}
	case ConstraintRange:
		return Range(c.Min, c.Max)
	default:
		return Constraint{Kind: ConstraintInvalid}
	}
}

// String возвращает ограничение в читаемом виде для логов.
func (c Constraint) String() string {
	switch c.Kind {
	case ConstraintRange:
		return "range" + NumberRange{Min: c.Min, Max: c.Max}.String()
	case ConstraintExact, ConstraintContains:
		return string(c.Kind) + "(" + strconv.Quote(c.Value) + ")"
	default:
		return string(ConstraintInvalid)
	}
}
