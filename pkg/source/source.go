// Package source defines the API sources the batch fetcher can run
// against. Each source knows how to enumerate its work items, build the
// per-item request, and validate the response payload at the parse
// boundary so missing keys surface as malformed_response instead of a
// downstream fault.
package source

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/wanderdata/tripfetch/pkg/catalog"
	"github.com/wanderdata/tripfetch/pkg/fetch"
)

// Source is one fetchable API. It extends the fetch client's Requester
// with work item enumeration.
type Source interface {
	fetch.Requester

	// Items enumerates the work universe for this source. Most sources
	// enumerate purely from their configured catalog; travelwarning
	// fetches its index document first. An enumeration failure is a
	// fatal setup error: the run aborts before any fetching.
	Items(ctx context.Context) ([]catalog.Item, error)
}

// decodeObject decodes a response body into a JSON object.
func decodeObject(body []byte) (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, fmt.Errorf("not a JSON object: %w", err)
	}
	return obj, nil
}

// requireFields checks that all named keys are present in the object.
func requireFields(obj map[string]any, fields ...string) error {
	for _, field := range fields {
		if _, ok := obj[field]; !ok {
			return fmt.Errorf("missing required field %q", field)
		}
	}
	return nil
}

// str reads a string field, tolerating absence.
func str(obj map[string]any, key string) string {
	if v, ok := obj[key].(string); ok {
		return v
	}
	return ""
}

// boolField reads a boolean field, tolerating absence and 0/1 numbers.
func boolField(obj map[string]any, key string) bool {
	switch v := obj[key].(type) {
	case bool:
		return v
	case float64:
		return v != 0
	default:
		return false
	}
}

// firstString returns the first non-empty string among the given keys.
func firstString(obj map[string]any, keys ...string) string {
	for _, key := range keys {
		if s := str(obj, key); s != "" {
			return s
		}
	}
	return ""
}

// isRateLimit429 is the default rate-limit classification: only 429.
func isRateLimit429(code int) bool {
	return code == 429
}
