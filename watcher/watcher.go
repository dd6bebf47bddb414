// Package watcher orchestrates one crawl-reconcile-notify cycle and the
// pacing between its steps.
package watcher

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"

	"dresswatch/adapters"
	"dresswatch/catalog"
	"dresswatch/notify"
)

// Config carries the per-cycle knobs. Bounds are validated by the caller
// (min <= max, both non-negative).
type Config struct {
	// NotifySizes is the size-tag subset worth a restock notice.
	NotifySizes []string
	// NotifyTo is the restricted recipient set a cycle actually messages;
	// it may be narrower than the full broadcast list.
	NotifyTo []string

	// PageMin/PageMax bound the randomized sleep before and between page
	// fetches, throttling request rate.
	PageMin time.Duration
	PageMax time.Duration
}

// Watcher runs crawl cycles over a storefront, a catalog store, and an
// announcer. Execution is strictly sequential: one page at a time, one
// writer per cycle, exactly as the store contract assumes.
type Watcher struct {
	store     catalog.Store
	site      adapters.Storefront
	announcer *notify.Announcer
	metrics   *Metrics
	cfg       Config
}

func New(store catalog.Store, site adapters.Storefront, announcer *notify.Announcer, metrics *Metrics, cfg Config) *Watcher {
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &Watcher{
		store:     store,
		site:      site,
		announcer: announcer,
		metrics:   metrics,
		cfg:       cfg,
	}
}

// Run executes one full cycle: page count, per-page crawl with failure
// isolation, then at most one restock notice. The error return covers
// cycle-level failures only (page count, store I/O, a notice that reached
// nobody); a single bad page is logged and skipped, never fatal.
func (w *Watcher) Run(ctx context.Context) error {
	start := time.Now()
	w.metrics.AddCycle()

	pages, err := w.site.PageCount(ctx)
	if err != nil {
		w.metrics.AddFetchError()
		return fmt.Errorf("page count: %w", err)
	}
	log.Info().Int("pages", pages).Msg("crawling catalog")
	SleepRandom(ctx, w.cfg.PageMin, w.cfg.PageMax)

	var seen, added, updated, failedPages int
	for page := 1; page <= pages; page++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		n, a, u, err := w.crawlPage(ctx, page)
		if err != nil {
			failedPages++
			w.metrics.AddPageError()
			log.Error().Err(err).Int("page", page).Msg("skipping page")
		} else {
			seen += n
			added += a
			updated += u
			w.metrics.AddPage(n, a, u)
		}
		SleepRandom(ctx, w.cfg.PageMin, w.cfg.PageMax)
	}

	notified, err := w.maybeNotify(ctx)
	if err != nil {
		return err
	}

	log.Info().
		Int("pages", pages).
		Int("failed_pages", failedPages).
		Int("listings_seen", seen).
		Int("items_added", added).
		Int("items_updated", updated).
		Bool("notified", notified).
		Dur("duration", time.Since(start)).
		Msg("cycle complete")
	return nil
}

// crawlPage runs the load-fetch-reconcile-save sequence for one page.
func (w *Watcher) crawlPage(ctx context.Context, page int) (seen, added, updated int, err error) {
	items, err := w.store.Load(ctx)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("load catalog: %w", err)
	}
	raw, err := w.site.PageListings(ctx, page)
	if err != nil {
		w.metrics.AddFetchError()
		return 0, 0, 0, err
	}

	before := len(items)
	items = catalog.Reconcile(items, raw, time.Now().UTC())
	added = len(items) - before

	if err := w.store.Save(ctx, items); err != nil {
		return 0, 0, 0, fmt.Errorf("save catalog: %w", err)
	}
	log.Info().Int("page", page).Int("listings", len(raw)).Msg("updated page")
	return len(raw), added, len(raw) - added, nil
}

// maybeNotify picks the oldest eligible item, announces it, and persists
// the signaled mark. At most one item is signaled per cycle. The mark is
// written only after at least one delivery succeeded, so a notice that
// reached nobody is retried next cycle.
func (w *Watcher) maybeNotify(ctx context.Context) (bool, error) {
	items, err := w.store.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("load catalog: %w", err)
	}

	candidates := catalog.Candidates(items, w.cfg.NotifySizes)
	if len(candidates) == 0 {
		log.Info().Msg("no new items to announce")
		return false, nil
	}

	pick := candidates[0]
	if sent := w.announcer.Announce(notify.Message(pick), w.cfg.NotifyTo); sent == 0 {
		return false, fmt.Errorf("announce %s: no delivery succeeded", pick.ProductID)
	}
	w.metrics.AddNotice()

	for i := range items {
		if items[i].ProductID == pick.ProductID {
			items[i].Signaled = true
			break
		}
	}
	if err := w.store.Save(ctx, items); err != nil {
		return true, fmt.Errorf("save catalog: %w", err)
	}
	return true, nil
}

// SleepRandom pauses for a uniformly random duration in [min, max],
// returning early if ctx is cancelled.
func SleepRandom(ctx context.Context, min, max time.Duration) {
	d := min
	if max > min {
		d += time.Duration(rand.Int63n(int64(max-min) + 1))
	}
	if d <= 0 {
		return
	}
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}
