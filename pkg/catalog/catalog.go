// Package catalog enumerates work items for batch fetch runs.
// Enumerators are pure: they read only the catalog input they are handed
// and produce the same ordered item list for the same input, so re-runs
// always see the same work universe.
package catalog

// Item is one unit of fetch work. ID is the store key; Meta carries the
// source-specific attributes needed to build the request (country name,
// route endpoints).
type Item struct {
	ID   string
	Meta map[string]string
}

// IDs projects items onto their identifiers, preserving order.
func IDs(items []Item) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.ID
	}
	return out
}

// zodiacSigns in traditional order.
var zodiacSigns = []string{
	"aries", "taurus", "gemini", "cancer", "leo", "virgo",
	"libra", "scorpio", "sagittarius", "capricorn", "aquarius", "pisces",
}

// ZodiacSigns enumerates the twelve zodiac signs.
func ZodiacSigns() []Item {
	items := make([]Item, len(zodiacSigns))
	for i, sign := range zodiacSigns {
		items[i] = Item{ID: sign}
	}
	return items
}
