package source

import (
	"context"
	"fmt"
	"net/http"

	"github.com/wanderdata/tripfetch/pkg/catalog"
)

// DefaultHoroscopeBaseURL is the production horoscope endpoint.
const DefaultHoroscopeBaseURL = "https://roxyapi.com/api/v1/data/astro/astrology/horoscope"

// Horoscope fetches the daily horoscope for each zodiac sign.
type Horoscope struct {
	baseURL string
	token   string
}

// NewHoroscope creates the horoscope source. An empty token is a fatal
// setup error. baseURL falls back to the production endpoint.
func NewHoroscope(token, baseURL string) (*Horoscope, error) {
	if token == "" {
		return nil, fmt.Errorf("horoscope: API token is required")
	}
	if baseURL == "" {
		baseURL = DefaultHoroscopeBaseURL
	}
	return &Horoscope{baseURL: baseURL, token: token}, nil
}

// Name implements fetch.Requester.
func (h *Horoscope) Name() string { return "horoscope" }

// Items enumerates the twelve zodiac signs.
func (h *Horoscope) Items(ctx context.Context) ([]catalog.Item, error) {
	return catalog.ZodiacSigns(), nil
}

// NewRequest builds the per-sign GET request.
func (h *Horoscope) NewRequest(ctx context.Context, item catalog.Item) (*http.Request, error) {
	url := fmt.Sprintf("%s/%s?token=%s", h.baseURL, item.ID, h.token)
	return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
}

// ParsePayload validates the daily horoscope document.
func (h *Horoscope) ParsePayload(body []byte) (map[string]any, error) {
	obj, err := decodeObject(body)
	if err != nil {
		return nil, err
	}
	if err := requireFields(obj, "horoscope"); err != nil {
		return nil, err
	}
	payload := map[string]any{
		"horoscope": obj["horoscope"],
	}
	// Sign and date travel along when the API provides them.
	if s := str(obj, "sign"); s != "" {
		payload["sign"] = s
	}
	if d := str(obj, "date"); d != "" {
		payload["date"] = d
	}
	return payload, nil
}

// RateLimitStatus implements fetch.Requester.
func (h *Horoscope) RateLimitStatus(code int) bool { return isRateLimit429(code) }
