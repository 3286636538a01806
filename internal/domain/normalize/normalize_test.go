package normalize

import (
	"slices"
	"testing"
)

// TestNumeric проверяет извлечение чисел из строк с единицами измерения.
func TestNumeric(t *testing.T) {
	tests := []struct {
		raw    string
		want   float64
		wantOK bool
	}{
		{"100 krad", 100, true},
		{"100 krad(Si)", 100, true},
		{"-55°C", -55, true},
		{"+125 °C", 125, true},
		{" 3.3V ", 3.3, true},
		{"0", 0, true},
		{"abc", 0, false},
		{"", 0, false},
		{"   ", 0, false},
		{".", 0, false},
		{"1.2.3", 0, false},
		{"-", 0, false},
	}

	for _, tt := range tests {
		got, ok := Numeric(tt.raw)
		if ok != tt.wantOK {
			t.Errorf("Numeric(%q) ok = %v, ожидался %v", tt.raw, ok, tt.wantOK)
			continue
		}
		if ok && got != tt.want {
			t.Errorf("Numeric(%q) = %v, ожидался %v", tt.raw, got, tt.want)
		}
	}
}

// TestYesNo проверяет канонизацию флагов.
func TestYesNo(t *testing.T) {
	tests := []struct {
		raw  string
		want Flag
	}{
		{"Yes", FlagYes},
		{"yes", FlagYes},
		{" Y ", FlagYes},
		{"true", FlagYes},
		{"1", FlagYes},
		{"No", FlagNo},
		{"n", FlagNo},
		{"FALSE", FlagNo},
		{"0", FlagNo},
		{"", FlagUnknown},
		{"maybe", FlagUnknown},
	}

	for _, tt := range tests {
		if got := YesNo(tt.raw); got != tt.want {
			t.Errorf("YesNo(%q) = %v, ожидался %v", tt.raw, got, tt.want)
		}
	}
}

// TestParseArray проверяет разбор строк-массивов.
func TestParseArray(t *testing.T) {
	tests := []struct {
		raw  string
		want []string
	}{
		{"['a','b']", []string{"a", "b"}},
		{"[ 'a' , \"b\" , '' ]", []string{"a", "b"}},
		{"[]", nil},
		{"a,b", nil},
		{"[single]", []string{"single"}},
	}

	for _, tt := range tests {
		got := ParseArray(tt.raw)
		if !slices.Equal(got, tt.want) {
			t.Errorf("ParseArray(%q) = %v, ожидался %v", tt.raw, got, tt.want)
		}
	}
}

// TestCleanValue проверяет каноническое значение параметра.
func TestCleanValue(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"['SOT-23']", "SOT-23"},
		{"[SOT-23]", "SOT-23"},
		{"  TO-220 ", "TO-220"},
		{"it's", "its"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := CleanValue(tt.raw); got != tt.want {
			t.Errorf("CleanValue(%q) = %q, ожидался %q", tt.raw, got, tt.want)
		}
	}
}

// TestParsePath проверяет эквивалентность двух представлений пути.
func TestParsePath(t *testing.T) {
	want := []string{"Discretes", "Diode"}

	if got := ParsePath("Discretes > Diode", true); !slices.Equal(got, want) {
		t.Errorf("ParsePath(delimited) = %v, ожидался %v", got, want)
	}
	if got := ParsePath("['Diode','Discretes']", true); !slices.Equal(got, want) {
		t.Errorf("ParsePath(array, leafFirst) = %v, ожидался %v", got, want)
	}
	if got := ParsePath("['Discretes','Diode']", false); !slices.Equal(got, want) {
		t.Errorf("ParsePath(array) = %v, ожидался %v", got, want)
	}
	if got := ParsePath("Discretes/ /Diode", false); !slices.Equal(got, want) {
		t.Errorf("ParsePath(slash) = %v, ожидался %v", got, want)
	}
	if got := ParsePath("", false); len(got) != 0 {
		t.Errorf("ParsePath(\"\") = %v, ожидался пустой список", got)
	}
}

// TestText проверяет схлопывание пробелов.
func TestText(t *testing.T) {
	if got := Text("  foo   bar "); got != "foo bar" {
		t.Errorf("Text = %q, ожидался %q", got, "foo bar")
	}
}
