package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// Countries enumerates countries from a reference CSV with at least the
// columns iso3 and country_name. Item ID is the ISO3 code; Meta carries
// the country name for sources that search by name. Row order is kept.
func Countries(r io.Reader) ([]Item, error) {
	rows, header, err := readCSV(r)
	if err != nil {
		return nil, fmt.Errorf("read country catalog: %w", err)
	}

	isoCol, ok := header["iso3"]
	if !ok {
		return nil, fmt.Errorf("country catalog: missing iso3 column")
	}
	nameCol, ok := header["country_name"]
	if !ok {
		return nil, fmt.Errorf("country catalog: missing country_name column")
	}

	seen := make(map[string]bool)
	var items []Item
	for i, row := range rows {
		iso3 := strings.ToUpper(strings.TrimSpace(row[isoCol]))
		name := strings.TrimSpace(row[nameCol])
		if iso3 == "" || name == "" {
			return nil, fmt.Errorf("country catalog: row %d: empty iso3 or country_name", i+2)
		}
		if seen[iso3] {
			return nil, fmt.Errorf("country catalog: duplicate iso3 %q", iso3)
		}
		seen[iso3] = true
		items = append(items, Item{
			ID:   iso3,
			Meta: map[string]string{"country_name": name},
		})
	}
	return items, nil
}

// readCSV decodes a headered CSV into rows plus a column-name index.
func readCSV(r io.Reader) ([][]string, map[string]int, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) < 1 {
		return nil, nil, fmt.Errorf("empty catalog")
	}

	header := make(map[string]int, len(records[0]))
	for i, col := range records[0] {
		header[strings.ToLower(strings.TrimSpace(col))] = i
	}
	return records[1:], header, nil
}
