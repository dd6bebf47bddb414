package catalog

import "sort"

// Candidates returns the items eligible for a restock notice: unsold, not
// yet signaled, and tagged with one of the wanted sizes. Ordered oldest
// first by creation time; ties keep their original relative order.
func Candidates(items []Item, wantedSizes []string) []Item {
	wanted := make(map[string]struct{}, len(wantedSizes))
	for _, s := range wantedSizes {
		wanted[s] = struct{}{}
	}

	var out []Item
	for _, it := range items {
		if it.Sold || it.Signaled {
			continue
		}
		if _, ok := wanted[it.Size]; !ok {
			continue
		}
		out = append(out, it)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Created.Before(out[j].Created)
	})
	return out
}
