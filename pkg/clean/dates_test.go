package clean

import (
	"testing"
	"time"

	"github.com/hazyhaar/leadsheet/pkg/sheet"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestNormalize_RelativeDays(t *testing.T) {
	d := NewDateNormalizer(fixedClock(time.Date(2024, 12, 31, 9, 0, 0, 0, time.Local)))

	tests := []struct {
		input, want string
	}{
		{"Aujourd'hui", "31/12/2024"},
		{"aujourd’hui", "31/12/2024"},
		{"AUJOURD HUI", "31/12/2024"},
		{"Aujourdhui", "31/12/2024"},
		{"Hier", "30/12/2024"},
		{"Demain", "01/01/2025"},
		{"Aujourd'hui à 14:30", "31/12/2024 14:30"},
		{"Hier ou demain", "30/12/2024 ou 01/01/2025"},
		{"Thierry", "Thierry"},
		{"Demaine", "Demaine"},
	}
	for _, tt := range tests {
		if got := d.NormalizeString(tt.input); got != tt.want {
			t.Errorf("NormalizeString(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNormalize_Verbose(t *testing.T) {
	d := NewDateNormalizer(fixedClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))

	tests := []struct {
		input, want string
	}{
		{"22 décembre 2024 14:30", "22/12/2024 14:30"},
		{"5 mars 2023", "05/03/2023"},
		{"22 déc. 2024 14:30", "22/12/2024 14:30"},
		{"22 dec 2024", "22/12/2024"},
		{"1 févr. 2025 9:05", "01/02/2025 9:05"},
		{"3 AOÛT 2024", "03/08/2024"},
		{"15 aout 2024", "15/08/2024"},
		{"12 sept. 2024 à 10:00 GMT+2", "12/09/2024 10:00"},
		{"Le 7 juil. 2024 à 18:45", "07/07/2024 18:45"},
		{"22/12/2024 GMT+1", "22/12/2024"},
		{"22/12/2024 14:30 (UTC+01:00)", "22/12/2024 14:30 ()"},
		{"DATE DE CRÉATION (GMT+1)", "DATE DE CRÉATION ()"},
		{"Ref 12 lots 2024, vu le 5 mars 2023", "Ref 12 lots 2024, vu le 5 mars 2023"},
		{"2024", "2024"},
		{"12 foo 2024", "12 foo 2024"},
		{"Bonjour", "Bonjour"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := d.NormalizeString(tt.input); got != tt.want {
			t.Errorf("NormalizeString(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNormalize_NonTextPassThrough(t *testing.T) {
	d := NewDateNormalizer(nil)
	for _, c := range []sheet.Cell{sheet.Number(2024), sheet.Empty()} {
		if got := d.Normalize(c); got != c {
			t.Errorf("Normalize(%+v) = %+v, want unchanged", c, got)
		}
	}
}

func TestNormalize_SystemClockDefault(t *testing.T) {
	d := NewDateNormalizer(nil)
	before := time.Now().Format(DayLayout)
	got := d.NormalizeString("Aujourd'hui")
	after := time.Now().Format(DayLayout)
	if got != before && got != after {
		t.Errorf("NormalizeString(Aujourd'hui) = %q, want %q", got, before)
	}
}
