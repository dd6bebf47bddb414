package watcher

import (
	"fmt"
	"net/http"
	"net/http/pprof"
	"sync"
	"time"
)

// Metrics carries process counters, exposed in Prometheus text form.
type Metrics struct {
	mu sync.Mutex

	cycles       int
	pagesFetched int
	pageErrors   int
	fetchErrors  int

	listingsSeen int
	itemsAdded   int
	itemsUpdated int
	noticesSent  int

	start time.Time
}

func NewMetrics() *Metrics {
	return &Metrics{start: time.Now()}
}

func (m *Metrics) AddCycle() {
	m.mu.Lock()
	m.cycles++
	m.mu.Unlock()
}

func (m *Metrics) AddPage(seen, added, updated int) {
	m.mu.Lock()
	m.pagesFetched++
	m.listingsSeen += seen
	m.itemsAdded += added
	m.itemsUpdated += updated
	m.mu.Unlock()
}

func (m *Metrics) AddPageError() {
	m.mu.Lock()
	m.pageErrors++
	m.mu.Unlock()
}

func (m *Metrics) AddFetchError() {
	m.mu.Lock()
	m.fetchErrors++
	m.mu.Unlock()
}

func (m *Metrics) AddNotice() {
	m.mu.Lock()
	m.noticesSent++
	m.mu.Unlock()
}

func (m *Metrics) handler(w http.ResponseWriter, _ *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprintf(w, "# HELP dresswatch_cycles_total Crawl cycles started\n# TYPE dresswatch_cycles_total counter\ndresswatch_cycles_total %d\n", m.cycles)
	fmt.Fprintf(w, "# HELP dresswatch_pages_fetched_total Catalog pages fetched and merged\n# TYPE dresswatch_pages_fetched_total counter\ndresswatch_pages_fetched_total %d\n", m.pagesFetched)
	fmt.Fprintf(w, "# HELP dresswatch_page_errors_total Pages skipped after a fetch or store failure\n# TYPE dresswatch_page_errors_total counter\ndresswatch_page_errors_total %d\n", m.pageErrors)
	fmt.Fprintf(w, "# HELP dresswatch_fetch_errors_total Storefront fetch failures\n# TYPE dresswatch_fetch_errors_total counter\ndresswatch_fetch_errors_total %d\n", m.fetchErrors)
	fmt.Fprintf(w, "# HELP dresswatch_listings_seen_total Raw listings extracted\n# TYPE dresswatch_listings_seen_total counter\ndresswatch_listings_seen_total %d\n", m.listingsSeen)
	fmt.Fprintf(w, "# HELP dresswatch_items_added_total New catalog items created\n# TYPE dresswatch_items_added_total counter\ndresswatch_items_added_total %d\n", m.itemsAdded)
	fmt.Fprintf(w, "# HELP dresswatch_items_updated_total Existing catalog items refreshed\n# TYPE dresswatch_items_updated_total counter\ndresswatch_items_updated_total %d\n", m.itemsUpdated)
	fmt.Fprintf(w, "# HELP dresswatch_notices_sent_total Restock notices announced\n# TYPE dresswatch_notices_sent_total counter\ndresswatch_notices_sent_total %d\n", m.noticesSent)
	fmt.Fprintf(w, "# HELP dresswatch_uptime_seconds Process uptime\n# TYPE dresswatch_uptime_seconds gauge\ndresswatch_uptime_seconds %f\n", time.Since(m.start).Seconds())
}

// ServeMetrics exposes /metrics and /debug/pprof/* on addr. A listener
// failure is logged by net/http; the watcher itself never depends on it.
func ServeMetrics(addr string, m *Metrics) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", m.handler)

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	go func() {
		_ = http.ListenAndServe(addr, mux)
	}()
}
