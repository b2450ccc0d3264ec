// cmd/web/main.go
//
// Multisite registry – HTTP entry point.
//
// Boot sequence
// -------------
//
//  1. Load env vars (jail-wide file → .env fallback).
//
//  2. Start daily rotating logger (tees to console when running in a TTY).
//
//  3. Load typed config (YAML + env overlay, Vault-resolved secrets).
//
//  4. Open the shared registry DB and log the site count.
//
//  5. Build the tenant connector and enrichment aggregator.
//
//  6. Mount the registry routes and the Prometheus /metrics endpoint.
//
// Request life-cycle for GET /sites: registry read → parallel per-tenant
// enrichment → sort → paginate → JSON.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yanizio/multisite/internal/config"
	"github.com/yanizio/multisite/internal/connector"
	"github.com/yanizio/multisite/internal/database"
	"github.com/yanizio/multisite/internal/enrich"
	"github.com/yanizio/multisite/internal/logger"
	"github.com/yanizio/multisite/internal/registry"
	"github.com/yanizio/multisite/internal/server"
	"github.com/yanizio/multisite/internal/web"
)

const serverEnvPath = "/usr/local/etc/multisite/global.env"

// loadEnv prefers the jail-wide env file; on dev it falls back to .env.
func loadEnv() {
	if _, err := os.Stat(serverEnvPath); err == nil {
		_ = godotenv.Load(serverEnvPath)
		return
	}
	_ = godotenv.Load()
}

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func init() { loadEnv() }

func main() {
	rootDir, _ := os.Getwd()
	logOut, err := logger.New(rootDir, runningInTTY())
	if err != nil {
		log.Fatalf("start logger: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		logOut.Fatalf("load config: %v", err)
	}

	//
	// ── 1.  Registry DB connect ─────────────────────────────────────────
	//
	bootCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	logOut.Infow("connecting to registry DB")
	registryDB, err := database.Open(bootCtx, cfg.Database.GlobalDSN)
	if err != nil {
		logOut.Fatalf("connect registry DB: %v", err)
	}
	defer registryDB.Close()

	// Log site count as an early sanity check.
	if n, err := registry.Count(bootCtx, registryDB); err == nil {
		logOut.Infow("registry online", "sites", n)
	} else {
		logOut.Warnw("registry count failed", "err", err)
	}

	//
	// ── 2.  Tenant connector + enrichment aggregator ────────────────────
	//
	pools := connector.New(cfg.Database.TenantDSN)
	defer pools.Close()

	agg := enrich.New(pools, cfg.Enrich.Workers, cfg.Enrich.Timeout)

	//
	// ── 3.  Routes ──────────────────────────────────────────────────────
	//
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.Mount("/", web.New(registryDB, agg, cfg.Listing.PageSize).Routes())

	srv := server.New(cfg.HTTP.ListenAddr, r)
	logOut.Infow("listening", "addr", cfg.HTTP.ListenAddr)
	if err := srv.ListenAndServe(); err != nil {
		logOut.Fatalf("http server: %v", err)
	}
}
