package source

import (
	"context"
	"testing"

	"github.com/wanderdata/tripfetch/pkg/catalog"
)

func TestNewNumbeoRequiresKey(t *testing.T) {
	if _, err := NewNumbeo("", "", testCountries()); err == nil {
		t.Error("expected error for empty API key")
	}
}

func TestNumbeoNewRequest(t *testing.T) {
	n, err := NewNumbeo("k123", "https://numbeo.test/api", testCountries())
	if err != nil {
		t.Fatalf("NewNumbeo: %v", err)
	}

	req, err := n.NewRequest(context.Background(), testCountries()[1])
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	q := req.URL.Query()
	if q.Get("country") != "Japan" {
		t.Errorf("expected country=Japan, got %q", q.Get("country"))
	}
	if q.Get("api_key") != "k123" {
		t.Errorf("expected api_key param, got %q", q.Get("api_key"))
	}

	if _, err := n.NewRequest(context.Background(), catalog.Item{ID: "XXX"}); err == nil {
		t.Error("expected error for item without country_name")
	}
}

func TestNumbeoParsePayload(t *testing.T) {
	n, _ := NewNumbeo("k", "", testCountries())

	body := `{
		"name": "Iceland",
		"cost_of_living_index": 100.3,
		"rent_index": 46.2,
		"groceries_index": 97.1,
		"restaurant_price_index": 104.8,
		"cost_of_living_plus_rent_index": 74.6,
		"local_purchasing_power_index": 85.0
	}`
	payload, err := n.ParsePayload([]byte(body))
	if err != nil {
		t.Fatalf("ParsePayload: %v", err)
	}
	if payload["cost_of_living_index"] != 100.3 {
		t.Errorf("unexpected index %v", payload["cost_of_living_index"])
	}
	if payload["name"] != "Iceland" {
		t.Errorf("unexpected name %v", payload["name"])
	}
}

func TestNumbeoParsePayloadAPIError(t *testing.T) {
	n, _ := NewNumbeo("k", "", testCountries())

	// Numbeo reports failures inside a 200 body.
	if _, err := n.ParsePayload([]byte(`{"error": "unknown country"}`)); err == nil {
		t.Error("expected error for embedded API error")
	}
	if _, err := n.ParsePayload([]byte(`{"name": "Atlantis"}`)); err == nil {
		t.Error("expected error when cost_of_living_index is missing")
	}
}
