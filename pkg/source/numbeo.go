package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/wanderdata/tripfetch/pkg/catalog"
)

// DefaultNumbeoBaseURL is the Numbeo cost-of-living API.
const DefaultNumbeoBaseURL = "https://www.numbeo.com/api"

// Numbeo fetches cost-of-living index rows per country.
type Numbeo struct {
	apiKey    string
	baseURL   string
	countries []catalog.Item
}

// NewNumbeo creates the Numbeo source. An empty API key is a fatal
// setup error; the catalog carries one item per country with the
// Numbeo query name in Meta["country_name"].
func NewNumbeo(apiKey, baseURL string, countries []catalog.Item) (*Numbeo, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("numbeo: API key is required (set TRIPFETCH_NUMBEO_API_KEY)")
	}
	if baseURL == "" {
		baseURL = DefaultNumbeoBaseURL
	}
	return &Numbeo{apiKey: apiKey, baseURL: baseURL, countries: countries}, nil
}

// Name implements fetch.Requester.
func (n *Numbeo) Name() string { return "numbeo" }

// Items implements Source.
func (n *Numbeo) Items(ctx context.Context) ([]catalog.Item, error) {
	return n.countries, nil
}

// NewRequest builds the country_indices request for one country.
func (n *Numbeo) NewRequest(ctx context.Context, item catalog.Item) (*http.Request, error) {
	name := item.Meta["country_name"]
	if name == "" {
		return nil, fmt.Errorf("numbeo: item %s has no country_name", item.ID)
	}
	q := url.Values{}
	q.Set("api_key", n.apiKey)
	q.Set("country", name)
	return http.NewRequestWithContext(ctx, http.MethodGet,
		n.baseURL+"/country_indices?"+q.Encode(), nil)
}

// ParsePayload extracts the index values. Numbeo reports errors as a
// 200 response with an "error" field, which counts as malformed here.
func (n *Numbeo) ParsePayload(body []byte) (map[string]any, error) {
	obj, err := decodeObject(body)
	if err != nil {
		return nil, err
	}
	if msg := str(obj, "error"); msg != "" {
		return nil, fmt.Errorf("numbeo error: %s", msg)
	}
	if err := requireFields(obj, "cost_of_living_index"); err != nil {
		return nil, err
	}

	payload := map[string]any{}
	for _, key := range []string{
		"cost_of_living_index",
		"rent_index",
		"groceries_index",
		"restaurant_price_index",
		"cost_of_living_plus_rent_index",
		"local_purchasing_power_index",
	} {
		if v, ok := obj[key].(float64); ok {
			payload[key] = v
		}
	}
	if name := str(obj, "name"); name != "" {
		payload["name"] = name
	}
	return payload, nil
}

// RateLimitStatus implements fetch.Requester.
func (n *Numbeo) RateLimitStatus(code int) bool { return isRateLimit429(code) }
