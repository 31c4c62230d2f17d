package catalog

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// airport is one row of the airport reference dataset.
type airport struct {
	iata    string
	iso2    string
	traffic int64
}

// Routes enumerates flight routes from each configured origin hub to the
// busiest airport of every country in the airport reference CSV (columns
// iata_code, iso2, passenger_volume). Destinations are ordered by
// passenger volume descending, matching the source dataset's ranking, so
// the highest-traffic routes are fetched first. Origin == destination
// pairs are skipped. Item ID is "ORIGIN-DEST"; Meta carries both codes.
func Routes(r io.Reader, origins []string) ([]Item, error) {
	if len(origins) == 0 {
		return nil, fmt.Errorf("route catalog: no origin hubs configured")
	}

	rows, header, err := readCSV(r)
	if err != nil {
		return nil, fmt.Errorf("read airport catalog: %w", err)
	}

	iataCol, ok := header["iata_code"]
	if !ok {
		return nil, fmt.Errorf("airport catalog: missing iata_code column")
	}
	isoCol, ok := header["iso2"]
	if !ok {
		return nil, fmt.Errorf("airport catalog: missing iso2 column")
	}
	volCol, ok := header["passenger_volume"]
	if !ok {
		return nil, fmt.Errorf("airport catalog: missing passenger_volume column")
	}

	// One airport per country: keep the busiest.
	busiest := make(map[string]airport)
	for i, row := range rows {
		iata := strings.ToUpper(strings.TrimSpace(row[iataCol]))
		iso2 := strings.ToUpper(strings.TrimSpace(row[isoCol]))
		if iata == "" || iso2 == "" {
			return nil, fmt.Errorf("airport catalog: row %d: empty iata_code or iso2", i+2)
		}
		vol, err := strconv.ParseInt(strings.TrimSpace(row[volCol]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("airport catalog: row %d: bad passenger_volume: %v", i+2, err)
		}
		if cur, ok := busiest[iso2]; !ok || vol > cur.traffic {
			busiest[iso2] = airport{iata: iata, iso2: iso2, traffic: vol}
		}
	}

	hubs := make([]airport, 0, len(busiest))
	for _, a := range busiest {
		hubs = append(hubs, a)
	}
	sort.Slice(hubs, func(i, j int) bool {
		if hubs[i].traffic != hubs[j].traffic {
			return hubs[i].traffic > hubs[j].traffic
		}
		return hubs[i].iata < hubs[j].iata // stable order on traffic ties
	})

	var items []Item
	for _, origin := range origins {
		origin = strings.ToUpper(strings.TrimSpace(origin))
		if origin == "" {
			return nil, fmt.Errorf("route catalog: empty origin hub")
		}
		for _, dest := range hubs {
			if dest.iata == origin {
				continue
			}
			items = append(items, Item{
				ID: origin + "-" + dest.iata,
				Meta: map[string]string{
					"origin":      origin,
					"destination": dest.iata,
				},
			})
		}
	}
	return items, nil
}
