package catalog

import "time"

// Reconcile merges freshly scraped listings into items and returns the
// updated collection. Lookups are keyed by product id.
//
// A listing whose id is already present refreshes that item's Sold flag and
// Updated stamp; nothing else changes. A listing with an unknown id becomes
// a new Item with its size derived from the name and Created == Updated ==
// now. Items absent from raw are left completely untouched: the batch is
// one page of a larger crawl, so absence is not evidence of removal.
func Reconcile(items []Item, raw []RawListing, now time.Time) []Item {
	index := make(map[string]int, len(items))
	for i := range items {
		index[items[i].ProductID] = i
	}

	for _, r := range raw {
		if i, ok := index[r.ProductID]; ok {
			items[i].Sold = r.Sold
			items[i].Updated = now
			continue
		}
		items = append(items, Item{
			ProductID: r.ProductID,
			Name:      r.Name,
			Price:     r.Price,
			WasPrice:  r.WasPrice,
			Link:      r.Link,
			Image:     r.Image,
			Size:      SizeFromName(r.Name),
			Sold:      r.Sold,
			Signaled:  false,
			Created:   now,
			Updated:   now,
		})
		index[r.ProductID] = len(items) - 1
	}

	return items
}
