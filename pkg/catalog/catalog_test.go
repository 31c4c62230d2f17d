package catalog

import (
	"reflect"
	"strings"
	"testing"
)

func TestZodiacSigns(t *testing.T) {
	items := ZodiacSigns()

	if len(items) != 12 {
		t.Fatalf("Expected 12 signs, got %d", len(items))
	}
	if items[0].ID != "aries" {
		t.Errorf("First sign = %q, want aries", items[0].ID)
	}
	if items[11].ID != "pisces" {
		t.Errorf("Last sign = %q, want pisces", items[11].ID)
	}

	// Deterministic across calls
	again := ZodiacSigns()
	if !reflect.DeepEqual(IDs(items), IDs(again)) {
		t.Error("Enumeration is not deterministic")
	}
}

func TestCountries(t *testing.T) {
	csv := `iso3,country_name
DEU,Germany
FRA,France
jpn,Japan
`
	items, err := Countries(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	want := []string{"DEU", "FRA", "JPN"}
	if !reflect.DeepEqual(IDs(items), want) {
		t.Errorf("IDs = %v, want %v", IDs(items), want)
	}
	if items[0].Meta["country_name"] != "Germany" {
		t.Errorf("Meta country_name = %q, want Germany", items[0].Meta["country_name"])
	}
}

func TestCountries_Errors(t *testing.T) {
	tests := []struct {
		name string
		csv  string
	}{
		{"missing iso3 column", "code,country_name\nDEU,Germany\n"},
		{"missing name column", "iso3,label\nDEU,Germany\n"},
		{"empty value", "iso3,country_name\n,Germany\n"},
		{"duplicate iso3", "iso3,country_name\nDEU,Germany\nDEU,Deutschland\n"},
		{"empty file", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Countries(strings.NewReader(tt.csv)); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}

func TestRoutes(t *testing.T) {
	csv := `iata_code,iso2,passenger_volume
ATL,US,110000000
JFK,US,62000000
FRA,DE,70000000
MUC,DE,47000000
NRT,JP,33000000
`
	items, err := Routes(strings.NewReader(csv), []string{"ATL", "FRA"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// Busiest airport per country only, destinations ranked by volume,
	// origin==destination skipped.
	want := []string{"ATL-FRA", "ATL-NRT", "FRA-ATL", "FRA-NRT"}
	if !reflect.DeepEqual(IDs(items), want) {
		t.Errorf("IDs = %v, want %v", IDs(items), want)
	}
	if items[0].Meta["origin"] != "ATL" || items[0].Meta["destination"] != "FRA" {
		t.Errorf("Unexpected meta for first route: %v", items[0].Meta)
	}
}

func TestRoutes_Deterministic(t *testing.T) {
	csv := `iata_code,iso2,passenger_volume
AAA,A1,100
BBB,B1,100
CCC,C1,100
`
	first, err := Routes(strings.NewReader(csv), []string{"XXX"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	second, err := Routes(strings.NewReader(csv), []string{"XXX"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// Equal traffic falls back to IATA order, so output is stable.
	if !reflect.DeepEqual(IDs(first), IDs(second)) {
		t.Errorf("Enumeration is not deterministic: %v vs %v", IDs(first), IDs(second))
	}
	want := []string{"XXX-AAA", "XXX-BBB", "XXX-CCC"}
	if !reflect.DeepEqual(IDs(first), want) {
		t.Errorf("IDs = %v, want %v", IDs(first), want)
	}
}

func TestRoutes_Errors(t *testing.T) {
	valid := "iata_code,iso2,passenger_volume\nATL,US,1000\n"

	tests := []struct {
		name    string
		csv     string
		origins []string
	}{
		{"no origins", valid, nil},
		{"empty origin", valid, []string{" "}},
		{"missing volume column", "iata_code,iso2\nATL,US\n", []string{"FRA"}},
		{"bad volume", "iata_code,iso2,passenger_volume\nATL,US,lots\n", []string{"FRA"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Routes(strings.NewReader(tt.csv), tt.origins); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}
