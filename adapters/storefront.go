// Package adapters contains storefront connectors.
//
// All site-facing fetching and markup extraction lives behind the
// Storefront interface so the rest of the pipeline only ever sees raw
// listing records. The HTML adapter talks to the real catalog; the mock
// adapter is fully offline for demos and unit tests.
package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"dresswatch/catalog"
)

// Storefront abstracts the catalog site.
type Storefront interface {
	// PageCount fetches the first catalog page and reports how many pages
	// the listing spans (always >= 1 for a valid catalog page).
	PageCount(ctx context.Context) (int, error)

	// PageListings fetches catalog page `page` (1-based) and extracts its
	// product blocks. A block missing a required field is skipped, never
	// fatal for the page.
	PageListings(ctx context.Context, page int) ([]catalog.RawListing, error)
}

// FetchError covers transport failures: the request itself failed, the
// server answered with a non-2xx status, or the body was not parseable as
// an HTML document.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: http status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError covers a document that fetched fine but is structurally not a
// catalog page (no pagination control and no product blocks).
type ParseError struct {
	URL    string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %s", e.URL, e.Reason)
}

// pageToken is the placeholder in the configured site URL that gets
// replaced with the requested page number.
const pageToken = "page=X"

// Catalog page selectors.
const (
	selPagination = ".pagination__number"
	selProduct    = ".product-block"
	selTitle      = ".product-block__title"
	selPrice      = ".product-price__amount"
	selWasPrice   = ".product-price__compare"
	selLink       = ".product-link"
	selImage      = ".rimage__image"
	selSoldOut    = ".price-label--sold-out"

	attrProductID = "data-product-id"
	attrImageSrc  = "data-src"
	attrWidths    = "data-widths"
)

// HTMLStorefront scrapes the live catalog over HTTP.
type HTMLStorefront struct {
	pageURL   string // contains the pageToken placeholder
	baseURL   string // scheme://host, for resolving relative detail links
	client    *http.Client
	userAgent string
}

type HTMLStorefrontOptions struct {
	// PageURL is the catalog URL template; it must contain "page=X".
	PageURL   string
	UserAgent string
	Timeout   time.Duration
}

func NewHTMLStorefront(opts HTMLStorefrontOptions) (*HTMLStorefront, error) {
	pageURL := strings.TrimSpace(opts.PageURL)
	if pageURL == "" {
		return nil, errors.New("PageURL is required")
	}
	if !strings.Contains(pageURL, pageToken) {
		return nil, fmt.Errorf("PageURL must contain the %q placeholder", pageToken)
	}
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid PageURL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("PageURL must be absolute, got %q", pageURL)
	}

	to := opts.Timeout
	if to <= 0 {
		to = 20 * time.Second
	}
	ua := strings.TrimSpace(opts.UserAgent)
	if ua == "" {
		ua = "dresswatch/1.0"
	}
	return &HTMLStorefront{
		pageURL:   pageURL,
		baseURL:   u.Scheme + "://" + u.Host,
		client:    &http.Client{Timeout: to},
		userAgent: ua,
	}, nil
}

func (s *HTMLStorefront) PageCount(ctx context.Context) (int, error) {
	doc, pageURL, err := s.fetch(ctx, 1)
	if err != nil {
		return 0, err
	}

	numbers := doc.Find(selPagination)
	if numbers.Length() == 0 {
		// A catalog that fits on one page has product blocks but no
		// pagination control. A page with neither is not a catalog.
		if doc.Find(selProduct).Length() > 0 {
			log.Debug().Str("url", pageURL).Msg("no pagination control, assuming single page")
			return 1, nil
		}
		return 0, &ParseError{URL: pageURL, Reason: "no pagination control or product blocks"}
	}

	last := strings.TrimSpace(numbers.Last().Text())
	n, err := strconv.Atoi(last)
	if err != nil || n < 1 {
		return 0, &ParseError{URL: pageURL, Reason: fmt.Sprintf("pagination control %q is not a page number", last)}
	}
	return n, nil
}

func (s *HTMLStorefront) PageListings(ctx context.Context, page int) ([]catalog.RawListing, error) {
	doc, pageURL, err := s.fetch(ctx, page)
	if err != nil {
		return nil, err
	}

	var out []catalog.RawListing
	doc.Find(selProduct).Each(func(_ int, block *goquery.Selection) {
		raw, err := extractListing(block, s.baseURL)
		if err != nil {
			log.Debug().Err(err).Int("page", page).Str("url", pageURL).Msg("skipping product block")
			return
		}
		out = append(out, raw)
	})
	return out, nil
}

func (s *HTMLStorefront) fetch(ctx context.Context, page int) (*goquery.Document, string, error) {
	pageURL := strings.Replace(s.pageURL, pageToken, "page="+strconv.Itoa(page), 1)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, pageURL, &FetchError{URL: pageURL, Err: err}
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, pageURL, &FetchError{URL: pageURL, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, pageURL, &FetchError{URL: pageURL, Status: resp.StatusCode, Err: fmt.Errorf("http status %d", resp.StatusCode)}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, pageURL, &FetchError{URL: pageURL, Err: fmt.Errorf("read document: %w", err)}
	}
	return doc, pageURL, nil
}

// extractListing pulls one raw record out of a product block. Any missing
// required field makes the whole block a skip.
func extractListing(block *goquery.Selection, baseURL string) (catalog.RawListing, error) {
	id := strings.TrimSpace(block.AttrOr(attrProductID, ""))
	name := strings.TrimSpace(block.Find(selTitle).First().Text())
	price := strings.TrimSpace(block.Find(selPrice).First().Text())
	link := strings.TrimSpace(block.Find(selLink).First().AttrOr("href", ""))
	wasPrice := strings.TrimSpace(block.Find(selWasPrice).First().Text())
	sold := block.Find(selSoldOut).Length() > 0

	switch {
	case id == "":
		return catalog.RawListing{}, errors.New("missing product id")
	case name == "":
		return catalog.RawListing{}, errors.New("missing title")
	case price == "":
		return catalog.RawListing{}, errors.New("missing price")
	case link == "":
		return catalog.RawListing{}, errors.New("missing detail link")
	}

	image, err := resolveImageURL(block.Find(selImage).First())
	if err != nil {
		return catalog.RawListing{}, err
	}

	return catalog.RawListing{
		ProductID: id,
		Name:      name,
		Price:     price,
		WasPrice:  wasPrice,
		Link:      baseURL + link,
		Image:     image,
		Sold:      sold,
	}, nil
}

// resolveImageURL picks a moderate-resolution image variant: the middle
// entry of the block's width list fills the {width} placeholder in the
// source template, and the protocol-relative "//" prefix is swapped for
// an explicit https scheme.
func resolveImageURL(img *goquery.Selection) (string, error) {
	if img.Length() == 0 {
		return "", errors.New("missing image")
	}
	src := img.AttrOr(attrImageSrc, "")
	if len(src) < 3 {
		return "", errors.New("missing image source")
	}
	var widths []int
	if err := json.Unmarshal([]byte(img.AttrOr(attrWidths, "")), &widths); err != nil || len(widths) == 0 {
		return "", errors.New("missing image width list")
	}
	width := widths[len(widths)/2]
	u := strings.Replace(src, "{width}", strconv.Itoa(width), 1)
	return "https://" + u[2:], nil
}
