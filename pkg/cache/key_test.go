package cache

import (
	"net/url"
	"testing"
)

func TestKey_String(t *testing.T) {
	tests := []struct {
		name string
		key  Key
		want string
	}{
		{
			name: "simple endpoint no params",
			key: Key{
				Source:   "travelwarning",
				Endpoint: "/travelwarning/209504",
			},
			want: "tripfetch:travelwarning:travelwarning/209504",
		},
		{
			name: "endpoint with query params",
			key: Key{
				Source:   "numbeo",
				Endpoint: "/country_indices",
				QueryParams: url.Values{
					"country": []string{"Iceland"},
				},
			},
			want: "tripfetch:numbeo:country_indices:country=Iceland",
		},
		{
			name: "multiple query params (sorted)",
			key: Key{
				Source:   "unsplash",
				Endpoint: "/search/photos/",
				QueryParams: url.Values{
					"query":       []string{"Japan"},
					"orientation": []string{"landscape"},
					"page":        []string{"1"},
				},
			},
			want: "tripfetch:unsplash:search/photos:orientation=landscape:page=1:query=Japan",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.key.String()
			if got != tt.want {
				t.Errorf("Key.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestKey_Determinism ensures same input always produces same key
func TestKey_Determinism(t *testing.T) {
	key := Key{
		Source:   "unsplash",
		Endpoint: "/search/photos",
		QueryParams: url.Values{
			"query":       []string{"Japan"},
			"orientation": []string{"landscape"},
			"page":        []string{"1"},
		},
	}

	first := key.String()
	for i := 0; i < 100; i++ {
		if got := key.String(); got != first {
			t.Fatalf("Key.String() not deterministic: %q != %q", got, first)
		}
	}
}
