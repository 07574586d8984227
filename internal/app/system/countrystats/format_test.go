package countrystats

import "testing"

func TestFormatter_Count(t *testing.T) {
	f := MustFormatter("en")

	tests := []struct {
		n    int64
		want string
	}{
		{0, "0"},
		{7, "7"},
		{999, "999"},
		{1000, "1,000"},
		{100000, "100,000"},
		{1234567, "1,234,567"},
		{-4321, "-4,321"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := f.Count(tt.n); got != tt.want {
				t.Errorf("Count(%d) = %q, want %q", tt.n, got, tt.want)
			}
		})
	}
}

func TestFormatter_German(t *testing.T) {
	f := MustFormatter("de")
	if got := f.Count(1234567); got != "1.234.567" {
		t.Errorf("Count() = %q, want %q", got, "1.234.567")
	}
}

func TestNewFormatter_Invalid(t *testing.T) {
	if _, err := NewFormatter("not a locale!"); err == nil {
		t.Error("expected error for invalid locale")
	}
}

func TestFormatter_Locale(t *testing.T) {
	if got := MustFormatter("en-US").Locale(); got != "en-US" {
		t.Errorf("Locale() = %q, want %q", got, "en-US")
	}
}
