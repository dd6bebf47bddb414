package adapters

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

const catalogPage = `<!doctype html>
<html><body>
<div class="product-grid">
  <div class="product-block" data-product-id="101">
    <a class="product-link" href="/products/midi-dress"></a>
    <div class="product-block__title">Midi Dress (size XS-S)</div>
    <span class="product-price__amount">$89.00</span>
    <span class="product-price__compare">$120.00</span>
    <img class="rimage__image" data-src="//cdn.example.com/files/midi_{width}x.jpg" data-widths="[180, 360, 540, 720]">
  </div>
  <div class="product-block" data-product-id="102">
    <a class="product-link" href="/products/maxi-dress"></a>
    <div class="product-block__title">Maxi Dress (size M)</div>
    <span class="product-price__amount">$129.00</span>
    <span class="price-label--sold-out">Sold out</span>
    <img class="rimage__image" data-src="//cdn.example.com/files/maxi_{width}x.jpg" data-widths="[360, 720]">
  </div>
  <div class="product-block" data-product-id="103">
    <a class="product-link" href="/products/mystery-dress"></a>
    <div class="product-block__title">Mystery Dress (size L)</div>
    <img class="rimage__image" data-src="//cdn.example.com/files/mystery_{width}x.jpg" data-widths="[360]">
  </div>
</div>
<div class="pagination">
  <span class="pagination__number">1</span>
  <span class="pagination__number">2</span>
  <span class="pagination__number">4</span>
</div>
</body></html>`

func newTestStorefront(t *testing.T, handler http.Handler) (*HTMLStorefront, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	s, err := NewHTMLStorefront(HTMLStorefrontOptions{
		PageURL: srv.URL + "/collections/dresses?page=X",
	})
	if err != nil {
		t.Fatalf("NewHTMLStorefront: %v", err)
	}
	return s, srv
}

func TestPageCount(t *testing.T) {
	s, _ := newTestStorefront(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("page"); got != "1" {
			t.Errorf("page count must fetch page 1, got page=%q", got)
		}
		fmt.Fprint(w, catalogPage)
	}))

	n, err := s.PageCount(context.Background())
	if err != nil {
		t.Fatalf("PageCount: %v", err)
	}
	if n != 4 {
		t.Fatalf("expected last pagination number 4, got %d", n)
	}
}

func TestPageCountSinglePage(t *testing.T) {
	// Products but no pagination control: a catalog that fits on one page.
	page := `<html><body><div class="product-block" data-product-id="1"></div></body></html>`
	s, _ := newTestStorefront(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, page)
	}))

	n, err := s.PageCount(context.Background())
	if err != nil {
		t.Fatalf("PageCount: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected single page, got %d", n)
	}
}

func TestPageCountNotACatalog(t *testing.T) {
	s, _ := newTestStorefront(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body><p>maintenance</p></body></html>")
	}))

	_, err := s.PageCount(context.Background())
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestPageListings(t *testing.T) {
	s, srv := newTestStorefront(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("page"); got != "2" {
			t.Errorf("expected page=2, got page=%q", got)
		}
		fmt.Fprint(w, catalogPage)
	}))

	raw, err := s.PageListings(context.Background(), 2)
	if err != nil {
		t.Fatalf("PageListings: %v", err)
	}
	// Block 103 has no price and must be skipped, never fatal.
	if len(raw) != 2 {
		t.Fatalf("expected 2 listings, got %d", len(raw))
	}

	first := raw[0]
	if first.ProductID != "101" || first.Name != "Midi Dress (size XS-S)" {
		t.Fatalf("unexpected first listing: %+v", first)
	}
	if first.Price != "$89.00" || first.WasPrice != "$120.00" {
		t.Fatalf("unexpected prices: %+v", first)
	}
	if first.Link != srv.URL+"/products/midi-dress" {
		t.Fatalf("detail link not resolved against the site host: %q", first.Link)
	}
	// Middle of [180, 360, 540, 720] is index 2; "//" becomes https.
	if first.Image != "https://cdn.example.com/files/midi_540x.jpg" {
		t.Fatalf("image variant not resolved: %q", first.Image)
	}
	if first.Sold {
		t.Fatal("101 is not sold out")
	}

	second := raw[1]
	if second.ProductID != "102" || !second.Sold {
		t.Fatalf("expected 102 sold out, got %+v", second)
	}
	if second.WasPrice != "" {
		t.Fatalf("102 has no compare price, got %q", second.WasPrice)
	}
	if second.Image != "https://cdn.example.com/files/maxi_720x.jpg" {
		t.Fatalf("image variant not resolved: %q", second.Image)
	}
}

func TestPageListingsFetchError(t *testing.T) {
	s, _ := newTestStorefront(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))

	_, err := s.PageListings(context.Background(), 1)
	var ferr *FetchError
	if !errors.As(err, &ferr) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if ferr.Status != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", ferr.Status)
	}
}

func TestNewHTMLStorefrontValidation(t *testing.T) {
	cases := []struct {
		name    string
		pageURL string
	}{
		{"empty", ""},
		{"missing placeholder", "https://boutique.example/collections/dresses"},
		{"relative", "/collections/dresses?page=X"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewHTMLStorefront(HTMLStorefrontOptions{PageURL: tc.pageURL}); err == nil {
				t.Fatalf("expected error for %q", tc.pageURL)
			}
		})
	}
}
