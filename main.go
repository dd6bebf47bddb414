// Boutique catalog watcher
// ------------------------
//
// Foreground daemon that:
//   • crawls a paginated product catalog page by page, with randomized
//     pacing and per-page failure isolation
//   • reconciles scraped listings into a persisted catalog (JSON file by
//     default, Postgres when PG_DSN is set) without losing prior state
//   • texts the oldest unsold, not-yet-signaled listing in a wanted size,
//     marks it signaled, and never texts it again
//   • sleeps a randomized interval and repeats; transient errors are
//     logged and absorbed so the process never exits on them
//
// Configuration is primarily via environment variables (flags can override):
//   DRESS_PATH, DRESS_SITE, PG_DSN, PG_SCHEMA, TWILIO_SID, TWILIO_AUTH,
//   TWILIO_NUMBER, BROADCAST_TO, NOTIFY_TO, NOTIFY_SIZES, CYCLE_MIN_SEC,
//   CYCLE_MAX_SEC, PAGE_MIN_MS, PAGE_MAX_MS, METRICS_ADDR, ...
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"dresswatch/adapters"
	"dresswatch/catalog"
	"dresswatch/notify"
	"dresswatch/watcher"
)

// ───────── Environment helpers ─────────

func envString(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return def
	}
}

// ───────── Config ─────────

type config struct {
	catalogPath string
	siteURL     string
	adapter     string // html|mock
	userAgent   string
	timeoutSec  int

	pgDSN        string
	pgSchema     string
	pgMaxConns   int
	pgViaBouncer bool

	twilioSID   string
	twilioAuth  string
	twilioFrom  string
	broadcastTo []string
	notifyTo    []string
	notifySizes []string

	cycleMinSec int
	cycleMaxSec int
	pageMinMs   int
	pageMaxMs   int

	metricsAddr string
	once        bool
	dryRun      bool
	logLevel    string
}

func parseFlags() config {
	var cfg config
	var broadcastTo, notifyTo, notifySizes string

	flag.StringVar(&cfg.catalogPath, "catalog", envString("DRESS_PATH", ""), "Catalog JSON file path. Env: DRESS_PATH")
	flag.StringVar(&cfg.siteURL, "site", envString("DRESS_SITE", ""), "Catalog URL template containing the page=X placeholder. Env: DRESS_SITE")
	flag.StringVar(&cfg.adapter, "adapter", envString("STOREFRONT_ADAPTER", "html"), "Storefront adapter: html|mock. Env: STOREFRONT_ADAPTER")
	flag.StringVar(&cfg.userAgent, "user-agent", envString("HTTP_USER_AGENT", "dresswatch/1.0"), "User-Agent for catalog requests. Env: HTTP_USER_AGENT")
	flag.IntVar(&cfg.timeoutSec, "timeout-sec", envInt("REQUEST_TIMEOUT_SEC", 20), "Per-request timeout in seconds. Env: REQUEST_TIMEOUT_SEC")

	flag.StringVar(&cfg.pgDSN, "pg-dsn", envString("PG_DSN", ""), "Postgres DSN (enables the DB catalog store). Env: PG_DSN")
	flag.StringVar(&cfg.pgSchema, "pg-schema", envString("PG_SCHEMA", "public"), "Target Postgres schema. Env: PG_SCHEMA")
	flag.IntVar(&cfg.pgMaxConns, "pg-max-conns", envInt("PG_MAX_CONNS", 2), "DB max connections. Env: PG_MAX_CONNS")
	flag.BoolVar(&cfg.pgViaBouncer, "pg-via-bouncer", envBool("PG_VIA_BOUNCER", true), "Use simple protocol for PgBouncer txn pooling. Env: PG_VIA_BOUNCER")

	flag.StringVar(&cfg.twilioSID, "twilio-sid", envString("TWILIO_SID", ""), "Twilio account SID. Env: TWILIO_SID")
	flag.StringVar(&cfg.twilioAuth, "twilio-auth", envString("TWILIO_AUTH", ""), "Twilio auth token. Env: TWILIO_AUTH")
	flag.StringVar(&cfg.twilioFrom, "twilio-number", envString("TWILIO_NUMBER", ""), "Sender number. Env: TWILIO_NUMBER")
	flag.StringVar(&broadcastTo, "broadcast-to", envString("BROADCAST_TO", ""), "Comma-separated full recipient list. Env: BROADCAST_TO")
	flag.StringVar(&notifyTo, "notify-to", envString("NOTIFY_TO", ""), "Comma-separated recipients for restock notices; defaults to the first broadcast entry. Env: NOTIFY_TO")
	flag.StringVar(&notifySizes, "notify-sizes", envString("NOTIFY_SIZES", "(size S),(size M)"), "Comma-separated size tags worth a notice. Env: NOTIFY_SIZES")

	flag.IntVar(&cfg.cycleMinSec, "cycle-min-sec", envInt("CYCLE_MIN_SEC", 60), "Minimum seconds between cycles. Env: CYCLE_MIN_SEC")
	flag.IntVar(&cfg.cycleMaxSec, "cycle-max-sec", envInt("CYCLE_MAX_SEC", 300), "Maximum seconds between cycles. Env: CYCLE_MAX_SEC")
	flag.IntVar(&cfg.pageMinMs, "page-min-ms", envInt("PAGE_MIN_MS", 1000), "Minimum milliseconds between page fetches. Env: PAGE_MIN_MS")
	flag.IntVar(&cfg.pageMaxMs, "page-max-ms", envInt("PAGE_MAX_MS", 2000), "Maximum milliseconds between page fetches. Env: PAGE_MAX_MS")

	flag.StringVar(&cfg.metricsAddr, "metrics", envString("METRICS_ADDR", ""), "Serve /metrics and /debug/pprof/* on this address, e.g. :6060. Env: METRICS_ADDR")
	flag.BoolVar(&cfg.once, "once", envBool("RUN_ONCE", false), "Run a single cycle and exit. Env: RUN_ONCE")
	flag.BoolVar(&cfg.dryRun, "dry-run", envBool("DRY_RUN", false), "Log notices instead of sending texts. Env: DRY_RUN")
	flag.StringVar(&cfg.logLevel, "log-level", envString("LOG_LEVEL", "info"), "Log level: debug|info|warn|error. Env: LOG_LEVEL")

	flag.Parse()

	cfg.broadcastTo = splitList(broadcastTo)
	cfg.notifyTo = splitList(notifyTo)
	cfg.notifySizes = splitList(notifySizes)
	if len(cfg.notifyTo) == 0 && len(cfg.broadcastTo) > 0 {
		cfg.notifyTo = cfg.broadcastTo[:1]
	}

	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, msg)
		os.Exit(2)
	}
	if cfg.catalogPath == "" && cfg.pgDSN == "" {
		fail("either --catalog / DRESS_PATH or --pg-dsn / PG_DSN is required")
	}
	if cfg.adapter != "mock" && cfg.siteURL == "" {
		fail("--site / DRESS_SITE is required")
	}
	if cfg.cycleMinSec < 0 || cfg.pageMinMs < 0 {
		fail("sleep bounds must be non-negative")
	}
	if cfg.cycleMaxSec < cfg.cycleMinSec {
		fail("--cycle-max-sec must be >= --cycle-min-sec")
	}
	if cfg.pageMaxMs < cfg.pageMinMs {
		fail("--page-max-ms must be >= --page-min-ms")
	}
	if !cfg.dryRun && (cfg.twilioSID == "" || cfg.twilioAuth == "" || cfg.twilioFrom == "") {
		fail("TWILIO_SID, TWILIO_AUTH and TWILIO_NUMBER are required unless --dry-run")
	}
	if !cfg.dryRun && len(cfg.notifyTo) == 0 {
		fail("at least one recipient is required: --notify-to / NOTIFY_TO or --broadcast-to / BROADCAST_TO")
	}

	return cfg
}

// splitList splits a comma-separated value, dropping empty entries.
func splitList(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ───────── Wiring ─────────

func buildStore(ctx context.Context, cfg config) (catalog.Store, func(), error) {
	if cfg.pgDSN != "" {
		pg, err := catalog.OpenPGStore(ctx, catalog.PGStoreOptions{
			DSN:        cfg.pgDSN,
			Schema:     cfg.pgSchema,
			MaxConns:   cfg.pgMaxConns,
			ViaBouncer: cfg.pgViaBouncer,
		})
		if err != nil {
			return nil, nil, err
		}
		return pg, pg.Close, nil
	}
	return catalog.NewFileStore(cfg.catalogPath), func() {}, nil
}

func buildStorefront(cfg config) (adapters.Storefront, error) {
	if cfg.adapter == "mock" {
		return adapters.NewMockStorefront(3, 1), nil
	}
	return adapters.NewHTMLStorefront(adapters.HTMLStorefrontOptions{
		PageURL:   cfg.siteURL,
		UserAgent: cfg.userAgent,
		Timeout:   time.Duration(cfg.timeoutSec) * time.Second,
	})
}

func buildSender(cfg config) notify.TextSender {
	if cfg.dryRun {
		return notify.DryRunSender{}
	}
	return notify.NewTwilioSender(cfg.twilioSID, cfg.twilioAuth, cfg.twilioFrom)
}

// ───────── Main ─────────

func main() {
	_ = godotenv.Load()
	cfg := parseFlags()

	level, err := zerolog.ParseLevel(cfg.logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := buildStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("opening catalog store")
	}
	defer closeStore()

	// Probe the store before the first crawl: an absent catalog is normal
	// and loads as empty, but unreadable state must stop the process here
	// instead of being crawled over and wiped.
	items, err := store.Load(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("catalog state unreadable, refusing to start")
	}
	log.Info().Int("items", len(items)).Msg("catalog loaded")

	site, err := buildStorefront(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("configuring storefront")
	}

	metrics := watcher.NewMetrics()
	watcher.ServeMetrics(cfg.metricsAddr, metrics)

	w := watcher.New(store, site, notify.NewAnnouncer(buildSender(cfg)), metrics, watcher.Config{
		NotifySizes: cfg.notifySizes,
		NotifyTo:    cfg.notifyTo,
		PageMin:     time.Duration(cfg.pageMinMs) * time.Millisecond,
		PageMax:     time.Duration(cfg.pageMaxMs) * time.Millisecond,
	})

	if cfg.once {
		if err := w.Run(ctx); err != nil {
			log.Error().Err(err).Msg("cycle failed")
			os.Exit(1)
		}
		return
	}

	for {
		if err := w.Run(ctx); err != nil {
			log.Error().Err(err).Msg("cycle failed")
		}
		if ctx.Err() != nil {
			break
		}
		watcher.SleepRandom(ctx,
			time.Duration(cfg.cycleMinSec)*time.Second,
			time.Duration(cfg.cycleMaxSec)*time.Second)
		if ctx.Err() != nil {
			break
		}
	}
	log.Info().Msg("shutting down")
}
