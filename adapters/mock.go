package adapters

import (
	"context"
	"fmt"
	"strconv"

	"dresswatch/catalog"
)

// MockStorefront produces synthetic listings for demos and unit tests.
// It is deterministic for a given seed and makes no network calls.
type MockStorefront struct {
	pages int
	seed  int64
}

func NewMockStorefront(pages int, seed int64) *MockStorefront {
	if pages < 1 {
		pages = 1
	}
	return &MockStorefront{pages: pages, seed: seed}
}

func (m *MockStorefront) PageCount(ctx context.Context) (int, error) {
	return m.pages, nil
}

func (m *MockStorefront) PageListings(ctx context.Context, page int) ([]catalog.RawListing, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	const perPage = 8
	out := make([]catalog.RawListing, 0, perPage)
	for i := 0; i < perPage; i++ {
		h := fnv64(strconv.Itoa(page)+"|"+strconv.Itoa(i)) ^ uint64(m.seed)
		id := fmt.Sprintf("%d%08d", page, i+1)
		size := catalog.SizeLabels[h%uint64(len(catalog.SizeLabels))]
		out = append(out, catalog.RawListing{
			ProductID: id,
			Name:      fmt.Sprintf("Synthetic Dress %s %s", id, size),
			Price:     fmt.Sprintf("$%d.00", 40+int(h%60)),
			Link:      "https://example-boutique.invalid/products/" + id,
			Image:     "https://example-boutique.invalid/images/" + id + "_540x.jpg",
			Sold:      h%5 == 0,
		})
	}
	return out, nil
}

// fnv64 returns a simple 64-bit hash for deterministic mock data.
func fnv64(s string) uint64 {
	const (
		offset64 = 14695981039346656037
		prime64  = 1099511628211
	)
	var h uint64 = offset64
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime64
	}
	return h
}
