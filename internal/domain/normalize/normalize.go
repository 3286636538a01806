// Пакет normalize — единая граница разбора "грязных" значений каталога:
// числа с единицами измерения, флаги Yes/No, строки-массивы и пути семейств.
// Всё, что выше по стеку (построитель фильтров, хранилища), работает
// только с результатом этих функций.
package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

// Flag — нормализованное значение флага Yes/No.
type Flag int8

const (
	// FlagUnknown — пустое или нераспознанное значение.
	FlagUnknown Flag = iota
	// FlagYes — Yes / Y / True / 1.
	FlagYes
	// FlagNo — No / N / False / 0.
	FlagNo
)

// String возвращает каноническое представление флага.
func (f Flag) String() string {
	switch f {
	case FlagYes:
		return "Yes"
	case FlagNo:
		return "No"
	default:
		return ""
	}
}

// Numeric извлекает число из строки вида "100 krad(Si)" или "-55°C".
// Удаляются все символы вне [0-9.], ведущий знак сохраняется.
// Если после очистки строка не разбирается — (0, false), но никогда не ноль по умолчанию.
func Numeric(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}

	sign := ""
	if s[0] == '-' || s[0] == '+' {
		sign = s[:1]
	}

	var b strings.Builder
	hasDigit := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
			b.WriteRune(r)
		case r == '.':
			b.WriteRune(r)
		}
	}
	if !hasDigit {
		return 0, false
	}

	v, err := strconv.ParseFloat(sign+b.String(), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// YesNo приводит "Yes"/"No"/"" (и синонимы) к Flag без учёта регистра.
func YesNo(raw string) Flag {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "yes", "y", "true", "1":
		return FlagYes
	case "no", "n", "false", "0":
		return FlagNo
	default:
		return FlagUnknown
	}
}

// IsArrayLike сообщает, выглядит ли строка как сериализованный массив: "['a','b']".
func IsArrayLike(raw string) bool {
	s := strings.TrimSpace(raw)
	return len(s) >= 2 && s[0] == '[' && s[len(s)-1] == ']'
}

// ParseArray разбирает строку-массив в список токенов без кавычек.
// Пустые токены отбрасываются. Для строки, не похожей на массив, возвращает nil.
func ParseArray(raw string) []string {
	if !IsArrayLike(raw) {
		return nil
	}
	s := strings.TrimSpace(raw)
	inner := s[1 : len(s)-1]

	var out []string
	for _, tok := range strings.Split(inner, ",") {
		tok = strings.TrimSpace(tok)
		tok = strings.Trim(tok, `'"`)
		tok = strings.TrimSpace(tok)
		if tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

// cleanBrackets — обрамление строки-массива: "['" в начале и "']" в конце.
var cleanBrackets = regexp.MustCompile(`^\['?|'?\]$`)

// CleanValue возвращает каноническое текстовое значение параметра
// для точного сравнения. Та же логика реализована SQL-функцией catalog_clean_value.
func CleanValue(raw string) string {
	s := strings.TrimSpace(raw)
	s = cleanBrackets.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "'", "")
	return strings.TrimSpace(s)
}

// Text обрезает пробелы по краям и схлопывает внутренние пробельные последовательности.
func Text(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}

// ParsePath разбирает путь семейства в сегменты в порядке "корень → лист".
//
// Поддерживаются оба представления:
//   - строка-массив "['Diode','Discretes']" (при arrayLeafFirst порядок разворачивается);
//   - строка с разделителем "Discretes > Diode" или "Discretes/Diode".
//
// Пустые сегменты пропускаются.
func ParsePath(raw string, arrayLeafFirst bool) []string {
	if IsArrayLike(raw) {
		segs := ParseArray(raw)
		if arrayLeafFirst {
			reverse(segs)
		}
		return segs
	}
	return SplitPath(raw)
}

// SplitPath разбирает строку с разделителем ">" (приоритетно) или "/".
func SplitPath(raw string) []string {
	sep := "/"
	if strings.Contains(raw, ">") {
		sep = ">"
	}
	var out []string
	for _, seg := range strings.Split(raw, sep) {
		seg = strings.TrimSpace(seg)
		if seg != "" {
			out = append(out, seg)
		}
	}
	return out
}

func reverse(s []string) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
