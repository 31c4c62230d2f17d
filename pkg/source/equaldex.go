package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/wanderdata/tripfetch/pkg/catalog"
)

// DefaultEqualdexBaseURL is the Equaldex LGBTQ+ rights API.
const DefaultEqualdexBaseURL = "https://www.equaldex.com/api"

// Equaldex fetches the LGBTQ+ equality summary per country.
type Equaldex struct {
	apiKey    string
	baseURL   string
	countries []catalog.Item
}

// NewEqualdex creates the Equaldex source. An empty API key is a fatal
// setup error. Items are the country catalog; the region query uses the
// ISO code directly.
func NewEqualdex(apiKey, baseURL string, countries []catalog.Item) (*Equaldex, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("equaldex: API key is required (set TRIPFETCH_EQUALDEX_API_KEY)")
	}
	if baseURL == "" {
		baseURL = DefaultEqualdexBaseURL
	}
	return &Equaldex{apiKey: apiKey, baseURL: baseURL, countries: countries}, nil
}

// Name implements fetch.Requester.
func (e *Equaldex) Name() string { return "equaldex" }

// Items implements Source.
func (e *Equaldex) Items(ctx context.Context) ([]catalog.Item, error) {
	return e.countries, nil
}

// NewRequest builds the region request for one country.
func (e *Equaldex) NewRequest(ctx context.Context, item catalog.Item) (*http.Request, error) {
	q := url.Values{}
	q.Set("region", item.ID)
	q.Set("apiKey", e.apiKey)
	return http.NewRequestWithContext(ctx, http.MethodGet,
		e.baseURL+"/region?"+q.Encode(), nil)
}

// ParsePayload extracts the equality index and issue statuses.
func (e *Equaldex) ParsePayload(body []byte) (map[string]any, error) {
	obj, err := decodeObject(body)
	if err != nil {
		return nil, err
	}
	regions, ok := obj["regions"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("missing regions object")
	}
	region, ok := regions["region"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("missing regions.region object")
	}

	payload := map[string]any{
		"region_name": str(region, "name"),
	}
	if v, ok := region["equality_index"]; ok {
		payload["equality_index"] = v
	}
	if v, ok := region["legal_index"]; ok {
		payload["legal_index"] = v
	}
	if v, ok := region["public_opinion_index"]; ok {
		payload["public_opinion_index"] = v
	}

	if issues, ok := region["issues"].(map[string]any); ok {
		statuses := map[string]any{}
		for name, raw := range issues {
			issue, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			if current, ok := issue["current_status"].(map[string]any); ok {
				if label := firstString(current, "value_formatted", "value"); label != "" {
					statuses[name] = label
				}
			}
		}
		if len(statuses) > 0 {
			payload["issues"] = statuses
		}
	}
	return payload, nil
}

// RateLimitStatus implements fetch.Requester.
func (e *Equaldex) RateLimitStatus(code int) bool { return isRateLimit429(code) }
