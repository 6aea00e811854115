package api

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// FilterItems returns the items whose title or channel fuzzily matches
// query, best matches first. An empty query returns items unchanged.
func FilterItems(items []Item, query string) []Item {
	query = strings.TrimSpace(query)
	if query == "" {
		return items
	}

	targets := make([]string, len(items))
	for i, item := range items {
		targets[i] = item.Title + " " + item.Channel
	}

	matches := fuzzy.RankFindNormalizedFold(query, targets)
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})

	out := make([]Item, 0, len(matches))
	for _, match := range matches {
		out = append(out, items[match.OriginalIndex])
	}
	return out
}
