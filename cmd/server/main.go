package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	httpadapter "dealerscout/internal/adapters/http"
	pg "dealerscout/internal/adapters/postgres"
	"dealerscout/internal/adapters/provider"
	"dealerscout/internal/adapters/static"
	"dealerscout/internal/adapters/verifier"
	"dealerscout/internal/browser"
	"dealerscout/internal/config"
	ports "dealerscout/internal/ports"
	discsvc "dealerscout/internal/services/discovery"
	enrichsvc "dealerscout/internal/services/enrichment"
	scansvc "dealerscout/internal/services/scanner"
	"dealerscout/internal/services/validation"
	"dealerscout/internal/workers/discoveryrunner"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Printf("warning: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required for Postgres adapters")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := pg.Migrate(cfg.DatabaseURL); err != nil {
		log.Fatalf("migrate error: %v", err)
	}

	db, err := pg.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect error: %v", err)
	}
	defer db.Close()

	// Wire repositories to services (ports)
	var _ ports.DomainRepository = db
	var _ ports.DiscoveryRepository = db
	var _ ports.ResultRepository = db
	var _ ports.JobRepository = db

	var pool ports.PagePool
	if cfg.CrawlMode == "static" {
		pool = static.NewFetcher(cfg.CrawlTimeout)
		log.Printf("crawl mode: static fetcher")
	} else {
		bp := browser.NewPool(browser.Options{
			Headless:   cfg.BrowserHeadless,
			MaxPages:   cfg.BrowserMaxPages,
			ExecPath:   cfg.ChromiumPath,
			NavTimeout: cfg.CrawlTimeout,
		})
		defer bp.Close()
		pool = bp
	}

	crawler := discsvc.New(pool, discsvc.Options{
		DelayMin:    cfg.CrawlDelayMin,
		DelayMax:    cfg.CrawlDelayMax,
		MinContacts: cfg.MinCrawledContacts,
	})

	var contacts ports.ContactProvider
	if cfg.HasProvider() {
		contacts = provider.NewClient(cfg.ProviderBaseURL, cfg.ProviderAPIKey)
		log.Printf("contact provider fallback enabled")
	} else {
		log.Printf("no PROVIDER_API_KEY set, crawl-only mode")
	}

	validator := validation.New(verifier.New(verifier.Options{}))
	enricher := enrichsvc.New(crawler, contacts, validator, cfg.MinCrawledContacts)
	scanner := scansvc.New(db, db)

	processor := discoveryrunner.Processor{Enrichment: enricher, Results: db}
	srv := httpadapter.New(scanner, db, db, db, processor)
	r := chi.NewRouter()
	r.Mount("/", srv.Routes())

	// Optional background job workers
	if cfg.DiscoveryWorkers > 0 {
		go discoveryrunner.Run(ctx, db, processor, cfg.DiscoveryWorkers, 500*time.Millisecond)
		log.Printf("discovery workers started: %d", cfg.DiscoveryWorkers)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- http.ListenAndServe(cfg.ListenAddr, r) }()
	log.Printf("listening on %s", cfg.ListenAddr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Printf("shutting down on %s", sig)
		cancel()
		time.Sleep(300 * time.Millisecond)
	case err := <-errCh:
		log.Fatal(fmt.Errorf("server error: %w", err))
	}
}
