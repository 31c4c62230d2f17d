package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/wanderdata/tripfetch/pkg/catalog"
)

// DefaultUnsplashBaseURL is the production Unsplash API endpoint.
const DefaultUnsplashBaseURL = "https://api.unsplash.com"

// unsplashPerCountry is how many top photos are kept per country.
const unsplashPerCountry = 3

// Unsplash fetches the top landscape photos for each country. Unsplash
// signals quota exhaustion with 403 as well as 429, so both trigger the
// long backoff.
type Unsplash struct {
	baseURL   string
	accessKey string
	countries []catalog.Item
}

// NewUnsplash creates the Unsplash source over a country catalog.
func NewUnsplash(accessKey, baseURL string, countries []catalog.Item) (*Unsplash, error) {
	if accessKey == "" {
		return nil, fmt.Errorf("unsplash: access key is required")
	}
	if len(countries) == 0 {
		return nil, fmt.Errorf("unsplash: country catalog is empty")
	}
	if baseURL == "" {
		baseURL = DefaultUnsplashBaseURL
	}
	return &Unsplash{baseURL: baseURL, accessKey: accessKey, countries: countries}, nil
}

// Name implements fetch.Requester.
func (u *Unsplash) Name() string { return "unsplash" }

// Items enumerates the configured countries.
func (u *Unsplash) Items(ctx context.Context) ([]catalog.Item, error) {
	return u.countries, nil
}

// NewRequest builds the photo search request. The search query is the
// plain country name; identifiers alone match poorly.
func (u *Unsplash) NewRequest(ctx context.Context, item catalog.Item) (*http.Request, error) {
	name := item.Meta["country_name"]
	if name == "" {
		return nil, fmt.Errorf("unsplash: item %s has no country_name", item.ID)
	}

	params := url.Values{}
	params.Set("query", name)
	params.Set("page", "1")
	params.Set("per_page", fmt.Sprintf("%d", unsplashPerCountry))
	params.Set("orientation", "landscape")
	params.Set("content_filter", "high")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		u.baseURL+"/search/photos?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Client-ID "+u.accessKey)
	req.Header.Set("Accept-Version", "v1")
	return req, nil
}

// ParsePayload extracts the ranked image list from a search response.
// A country with zero results is still a Success so it is not refetched
// on every subsequent run.
func (u *Unsplash) ParsePayload(body []byte) (map[string]any, error) {
	obj, err := decodeObject(body)
	if err != nil {
		return nil, err
	}
	if err := requireFields(obj, "results"); err != nil {
		return nil, err
	}
	results, ok := obj["results"].([]any)
	if !ok {
		return nil, fmt.Errorf("results is not an array")
	}

	images := make([]any, 0, len(results))
	for i, raw := range results {
		photo, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("results[%d] is not an object", i)
		}
		urls, ok := photo["urls"].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("results[%d] missing urls", i)
		}
		user, ok := photo["user"].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("results[%d] missing user", i)
		}
		image := map[string]any{
			"rank":              i + 1,
			"image_url":         str(urls, "regular"),
			"image_small_url":   str(urls, "small"),
			"photographer_name": str(user, "name"),
		}
		if links, ok := user["links"].(map[string]any); ok {
			image["photographer_url"] = str(links, "html")
		}
		images = append(images, image)
	}

	return map[string]any{"images": images}, nil
}

// RateLimitStatus implements fetch.Requester. 403 counts: Unsplash uses
// it for exhausted demo quotas.
func (u *Unsplash) RateLimitStatus(code int) bool {
	return code == 429 || code == 403
}
