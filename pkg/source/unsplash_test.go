package source

import (
	"context"
	"testing"

	"github.com/wanderdata/tripfetch/pkg/catalog"
)

func testCountries() []catalog.Item {
	return []catalog.Item{
		{ID: "ISL", Meta: map[string]string{"country_name": "Iceland"}},
		{ID: "JPN", Meta: map[string]string{"country_name": "Japan"}},
	}
}

func TestNewUnsplashValidation(t *testing.T) {
	if _, err := NewUnsplash("", "", testCountries()); err == nil {
		t.Error("expected error for empty access key")
	}
	if _, err := NewUnsplash("key", "", nil); err == nil {
		t.Error("expected error for empty catalog")
	}
}

func TestUnsplashNewRequest(t *testing.T) {
	u, err := NewUnsplash("demo-key", "", testCountries())
	if err != nil {
		t.Fatalf("NewUnsplash: %v", err)
	}

	req, err := u.NewRequest(context.Background(), testCountries()[0])
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}

	q := req.URL.Query()
	if q.Get("query") != "Iceland" {
		t.Errorf("expected query=Iceland, got %q", q.Get("query"))
	}
	if q.Get("orientation") != "landscape" {
		t.Errorf("expected landscape orientation, got %q", q.Get("orientation"))
	}
	if got := req.Header.Get("Authorization"); got != "Client-ID demo-key" {
		t.Errorf("unexpected Authorization header %q", got)
	}
	if got := req.Header.Get("Accept-Version"); got != "v1" {
		t.Errorf("unexpected Accept-Version %q", got)
	}
}

func TestUnsplashNewRequestMissingName(t *testing.T) {
	u, _ := NewUnsplash("key", "", testCountries())
	_, err := u.NewRequest(context.Background(), catalog.Item{ID: "XXX"})
	if err == nil {
		t.Error("expected error for item without country_name")
	}
}

func TestUnsplashParsePayload(t *testing.T) {
	u, _ := NewUnsplash("key", "", testCountries())

	body := `{
		"total": 2,
		"results": [
			{
				"urls": {"regular": "https://img/1", "small": "https://img/1s"},
				"user": {"name": "Alice", "links": {"html": "https://unsplash.com/@alice"}}
			},
			{
				"urls": {"regular": "https://img/2", "small": "https://img/2s"},
				"user": {"name": "Bob", "links": {"html": "https://unsplash.com/@bob"}}
			}
		]
	}`

	payload, err := u.ParsePayload([]byte(body))
	if err != nil {
		t.Fatalf("ParsePayload: %v", err)
	}

	images, ok := payload["images"].([]any)
	if !ok {
		t.Fatalf("expected images array, got %T", payload["images"])
	}
	if len(images) != 2 {
		t.Fatalf("expected 2 images, got %d", len(images))
	}

	first := images[0].(map[string]any)
	if first["rank"] != 1 {
		t.Errorf("expected rank 1, got %v", first["rank"])
	}
	if first["photographer_name"] != "Alice" {
		t.Errorf("unexpected photographer %v", first["photographer_name"])
	}
	if first["photographer_url"] != "https://unsplash.com/@alice" {
		t.Errorf("unexpected photographer_url %v", first["photographer_url"])
	}
}

func TestUnsplashParsePayloadEmptyResults(t *testing.T) {
	u, _ := NewUnsplash("key", "", testCountries())

	// Zero hits is a legitimate answer, not a failure.
	payload, err := u.ParsePayload([]byte(`{"total": 0, "results": []}`))
	if err != nil {
		t.Fatalf("ParsePayload: %v", err)
	}
	if images := payload["images"].([]any); len(images) != 0 {
		t.Errorf("expected empty images, got %d", len(images))
	}
}

func TestUnsplashParsePayloadMalformed(t *testing.T) {
	u, _ := NewUnsplash("key", "", testCountries())

	tests := []struct {
		name string
		body string
	}{
		{"missing results", `{"total": 1}`},
		{"results not array", `{"results": "nope"}`},
		{"photo without urls", `{"results": [{"user": {"name": "x"}}]}`},
		{"photo without user", `{"results": [{"urls": {"regular": "u"}}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := u.ParsePayload([]byte(tt.body)); err == nil {
				t.Error("expected parse error")
			}
		})
	}
}

func TestUnsplashRateLimitStatus(t *testing.T) {
	u, _ := NewUnsplash("key", "", testCountries())
	if !u.RateLimitStatus(429) || !u.RateLimitStatus(403) {
		t.Error("429 and 403 should both be rate limited")
	}
	if u.RateLimitStatus(500) {
		t.Error("500 is not rate limited")
	}
}
