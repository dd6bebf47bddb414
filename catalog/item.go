// Package catalog holds the persisted catalog model and the merge and
// selection logic that runs over it between crawl passes.
//
// The collection is the single source of truth across cycles: it is loaded
// wholesale at the start of a pass, mutated in memory, and written back
// wholesale. Items are never deleted; a listing that drops off the site
// simply stops being observed.
package catalog

import (
	"strings"
	"time"
)

// Item is one tracked listing, keyed by the site-assigned product id.
//
// Descriptive fields (Name, Price, WasPrice, Link, Image) and the derived
// Size are set once at creation and never overwritten by later passes.
// Sold and Updated are refreshed on every pass that observes the item.
// Signaled flips false->true exactly once, when a restock notice goes out,
// and is never reset.
type Item struct {
	ProductID string    `json:"productId"`
	Name      string    `json:"name"`
	Price     string    `json:"price"`
	WasPrice  string    `json:"wasPrice,omitempty"`
	Link      string    `json:"link"`
	Image     string    `json:"image"`
	Size      string    `json:"size"`
	Sold      bool      `json:"sold"`
	Signaled  bool      `json:"signaled"`
	Created   time.Time `json:"created"`
	Updated   time.Time `json:"updated"`
}

// RawListing is one product block as extracted from a catalog page, before
// it has been reconciled into the persisted collection.
type RawListing struct {
	ProductID string
	Name      string
	Price     string
	WasPrice  string
	Link      string
	Image     string
	Sold      bool
}

// SizeLabels is the closed set of recognized size tags, scanned in order.
// Combined labels must come before the single-token labels they overlap
// with ("(size XS-S)" before "(size XS)" and "(size S)") so that the first
// substring match is the most specific one.
var SizeLabels = []string{
	"(size XS-S)",
	"(size XS)",
	"(size S)",
	"(size M)",
	"(size L)",
	"(size XL)",
}

// SizeFromName derives an item's size tag from its listed name.
// Returns the first label that appears in the name, or "" if none does.
func SizeFromName(name string) string {
	for _, label := range SizeLabels {
		if strings.Contains(name, label) {
			return label
		}
	}
	return ""
}
