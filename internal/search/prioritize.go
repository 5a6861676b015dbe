package search

import (
	"slices"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/neexbeast/destination-search/internal/destination"
)

// Prioritize returns a reordered copy of results: names starting with the
// query's first character (case-insensitive) come first, then the rest.
// Each group is ordered by locale collation of the name. Equal names keep
// their input order. The input slice is not modified.
func Prioritize(results []destination.Destination, query string) []destination.Destination {
	out := slices.Clone(results)
	if out == nil {
		out = []destination.Destination{}
	}

	first, _ := utf8.DecodeRuneInString(query)
	hasFirst := query != ""
	first = unicode.ToLower(first)

	leads := func(name string) bool {
		if !hasFirst || name == "" {
			return false
		}
		r, _ := utf8.DecodeRuneInString(name)
		return unicode.ToLower(r) == first
	}

	// collate.Collator is not safe for concurrent use.
	col := collate.New(language.English)

	slices.SortStableFunc(out, func(a, b destination.Destination) int {
		la, lb := leads(a.Name), leads(b.Name)
		switch {
		case la && !lb:
			return -1
		case !la && lb:
			return 1
		}
		return col.CompareString(a.Name, b.Name)
	})

	return out
}

// Names returns the display labels of the given destinations.
func Names(ds []destination.Destination) []string {
	names := make([]string, len(ds))
	for i, d := range ds {
		names[i] = d.Name
	}
	return names
}
