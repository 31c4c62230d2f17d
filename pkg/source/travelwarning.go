package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/wanderdata/tripfetch/pkg/catalog"
)

// DefaultTravelWarningBaseURL is the German foreign office open data API.
const DefaultTravelWarningBaseURL = "https://www.auswaertiges-amt.de/opendata"

// TravelWarning fetches per-country travel advisories. Unlike the other
// sources its work universe is not a static catalog: the index endpoint
// lists the current advisory content IDs, which are then fetched one by
// one.
type TravelWarning struct {
	baseURL    string
	httpClient *http.Client
}

// NewTravelWarning creates the travel warning source. The API needs no
// credential.
func NewTravelWarning(baseURL string, timeout time.Duration) *TravelWarning {
	if baseURL == "" {
		baseURL = DefaultTravelWarningBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &TravelWarning{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Name implements fetch.Requester.
func (t *TravelWarning) Name() string { return "travelwarning" }

// Items fetches the advisory index and enumerates its content IDs in
// ascending numeric order, so the universe is deterministic for a given
// index document. An unreachable index is a fatal setup error.
func (t *TravelWarning) Items(ctx context.Context) ([]catalog.Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/travelwarning", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("travelwarning: fetch index: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("travelwarning: index returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("travelwarning: read index: %w", err)
	}

	var index struct {
		Response map[string]json.RawMessage `json:"response"`
	}
	if err := json.Unmarshal(body, &index); err != nil {
		return nil, fmt.Errorf("travelwarning: decode index: %w", err)
	}
	if index.Response == nil {
		return nil, fmt.Errorf("travelwarning: index has no response object")
	}

	ids := make([]int64, 0, len(index.Response))
	for key := range index.Response {
		if key == "lastModified" {
			continue
		}
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			// Non-numeric keys are index metadata, not advisories.
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	items := make([]catalog.Item, len(ids))
	for i, id := range ids {
		items[i] = catalog.Item{ID: strconv.FormatInt(id, 10)}
	}
	return items, nil
}

// NewRequest builds the per-advisory detail request.
func (t *TravelWarning) NewRequest(ctx context.Context, item catalog.Item) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		t.baseURL+"/travelwarning/"+item.ID, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// ParsePayload normalizes one advisory. Field names vary between
// advisories, so lookups are lenient with fallbacks, but an advisory
// without a title is malformed.
func (t *TravelWarning) ParsePayload(body []byte) (map[string]any, error) {
	obj, err := decodeObject(body)
	if err != nil {
		return nil, err
	}

	// Details may arrive wrapped the same way as the index.
	if resp, ok := obj["response"].(map[string]any); ok {
		for key, raw := range resp {
			if key == "lastModified" {
				continue
			}
			if detail, ok := raw.(map[string]any); ok {
				obj = detail
				break
			}
		}
	}

	title := firstString(obj, "title", "name")
	if title == "" {
		return nil, fmt.Errorf("advisory has no title")
	}

	payload := map[string]any{
		"title":                  title,
		"country_name":           firstString(obj, "countryName", "country", "state"),
		"country_code":           str(obj, "countryCode"),
		"iso3_country_code":      str(obj, "iso3CountryCode"),
		"warning":                boolField(obj, "warning"),
		"partial_warning":        boolField(obj, "partialWarning"),
		"situation_warning":      boolField(obj, "situationWarning"),
		"situation_part_warning": boolField(obj, "situationPartWarning"),
	}
	if content := str(obj, "content"); content != "" {
		payload["content"] = content
	}
	if lm, ok := obj["lastModified"].(float64); ok {
		payload["last_modified_iso"] = time.UnixMilli(int64(lm)).UTC().Format(time.RFC3339)
	}
	if eff, ok := obj["effective"].(float64); ok {
		payload["effective_iso"] = time.UnixMilli(int64(eff)).UTC().Format(time.RFC3339)
	}
	return payload, nil
}

// RateLimitStatus implements fetch.Requester.
func (t *TravelWarning) RateLimitStatus(code int) bool { return isRateLimit429(code) }
