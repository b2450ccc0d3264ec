// internal/server/timeouts.go
//
// HTTP server helper with robust timeouts.
//
// Production hardening recommends:
//
//   • ReadTimeout   – abort slow-loris headers (10 s)
//   • WriteTimeout  – cap total response time
//   • IdleTimeout   – close keep-alives on idle clients (60 s)
//
// The write timeout is generous because a cold /sites request fans out
// across every eligible tenant: with a full page of tenants, the worker
// limit, and the per-row timeout, a degraded fleet can legitimately take
// minutes to answer while every row times out.
//
// This helper centralises those defaults so cmd/web doesn’t repeat
// boilerplate.
package server

import (
	"net/http"
	"time"
)

// New constructs an *http.Server with sensible defaults.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
}
