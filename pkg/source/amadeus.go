package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/wanderdata/tripfetch/pkg/catalog"
)

// DefaultAmadeusBaseURL is the Amadeus self-service test environment.
const DefaultAmadeusBaseURL = "https://test.api.amadeus.com"

// Amadeus fetches the cheapest round-trip flight offer per route. The
// API uses OAuth2 client-credentials, so the source keeps a bearer
// token and refreshes it shortly before expiry.
type Amadeus struct {
	clientID     string
	clientSecret string
	baseURL      string
	routes       []catalog.Item
	now          func() time.Time

	httpClient *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewAmadeus creates the Amadeus flight source. Missing credentials are
// a fatal setup error.
func NewAmadeus(clientID, clientSecret, baseURL string, routes []catalog.Item) (*Amadeus, error) {
	if clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("amadeus: client ID and secret are required (set TRIPFETCH_AMADEUS_CLIENT_ID / TRIPFETCH_AMADEUS_CLIENT_SECRET)")
	}
	if baseURL == "" {
		baseURL = DefaultAmadeusBaseURL
	}
	return &Amadeus{
		clientID:     clientID,
		clientSecret: clientSecret,
		baseURL:      baseURL,
		routes:       routes,
		now:          time.Now,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Name implements fetch.Requester.
func (a *Amadeus) Name() string { return "amadeus" }

// Items implements Source.
func (a *Amadeus) Items(ctx context.Context) ([]catalog.Item, error) {
	return a.routes, nil
}

func (a *Amadeus) refreshToken(ctx context.Context) error {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", a.clientID)
	form.Set("client_secret", a.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.baseURL+"/v1/security/oauth2/token",
		strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("token request failed (%d): %s", resp.StatusCode, string(body))
	}

	var result struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("parse token response: %w", err)
	}
	if result.AccessToken == "" {
		return fmt.Errorf("token response has no access_token")
	}

	// Refresh 30s early so in-flight requests never carry a token that
	// expires mid-request.
	a.accessToken = result.AccessToken
	a.tokenExpiry = a.now().Add(time.Duration(result.ExpiresIn-30) * time.Second)
	return nil
}

func (a *Amadeus) token(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.accessToken == "" || a.now().After(a.tokenExpiry) {
		if err := a.refreshToken(ctx); err != nil {
			return "", err
		}
	}
	return a.accessToken, nil
}

// NewRequest builds the flight-offers search for one route. Departure
// is 90 days out with a 7-day stay, so every route is priced on the
// same forward-looking window.
func (a *Amadeus) NewRequest(ctx context.Context, item catalog.Item) (*http.Request, error) {
	origin := item.Meta["origin"]
	destination := item.Meta["destination"]
	if origin == "" || destination == "" {
		return nil, fmt.Errorf("amadeus: item %s has no origin/destination", item.ID)
	}

	token, err := a.token(ctx)
	if err != nil {
		return nil, fmt.Errorf("amadeus auth: %w", err)
	}

	departure := a.now().AddDate(0, 0, 90)
	q := url.Values{}
	q.Set("originLocationCode", origin)
	q.Set("destinationLocationCode", destination)
	q.Set("departureDate", departure.Format("2006-01-02"))
	q.Set("returnDate", departure.AddDate(0, 0, 7).Format("2006-01-02"))
	q.Set("adults", "1")
	q.Set("currencyCode", "EUR")
	q.Set("max", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		a.baseURL+"/v2/shopping/flight-offers?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return req, nil
}

// ParsePayload extracts the cheapest offer. Routes the API has no
// offers for are a legitimate result, recorded as found=false.
func (a *Amadeus) ParsePayload(body []byte) (map[string]any, error) {
	var resp struct {
		Data []struct {
			Price struct {
				GrandTotal string `json:"grandTotal"`
				Currency   string `json:"currency"`
			} `json:"price"`
			Itineraries []struct {
				Duration string `json:"duration"`
				Segments []struct {
					CarrierCode string `json:"carrierCode"`
				} `json:"segments"`
			} `json:"itineraries"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode flight offers: %w", err)
	}

	if len(resp.Data) == 0 {
		return map[string]any{"found": false}, nil
	}

	offer := resp.Data[0]
	price, err := strconv.ParseFloat(offer.Price.GrandTotal, 64)
	if err != nil {
		return nil, fmt.Errorf("unparseable price %q", offer.Price.GrandTotal)
	}

	payload := map[string]any{
		"found":     true,
		"price_eur": price,
		"currency":  offer.Price.Currency,
	}
	if len(offer.Itineraries) > 0 {
		out := offer.Itineraries[0]
		stops := len(out.Segments) - 1
		if stops < 0 {
			stops = 0
		}
		payload["stops"] = stops
		payload["is_direct"] = stops == 0
		payload["outbound_duration"] = out.Duration
		if len(out.Segments) > 0 {
			payload["carrier"] = out.Segments[0].CarrierCode
		}
	}
	return payload, nil
}

// RateLimitStatus implements fetch.Requester. Amadeus signals quota
// exhaustion with 429 only.
func (a *Amadeus) RateLimitStatus(code int) bool { return isRateLimit429(code) }
