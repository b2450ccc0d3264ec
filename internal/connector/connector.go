// internal/connector/connector.go
//
// Keyed per-tenant connection pool.
//
// Context
// -------
// Every tenant site keeps its operational data in its own database, named
// `tenant-db-<site_id>` on the same host as the shared registry.  The
// Connector derives that DSN from the configured tenant template, opens a
// small sqlx pool on first use, and hands the same pool back on every
// later Acquire.  Concurrent first-use of one tenant is deduped with
// singleflight so registration is idempotent and only one pool is ever
// opened per site.
//
// Failures cross this boundary as a typed *Error carrying a Kind
// (Unreachable, AuthFailed, Timeout); the enrichment aggregator turns
// those into per-row sentinel values and never sees a panic or a raw
// driver error.
package connector

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/yanizio/multisite/internal/database"
	"github.com/yanizio/multisite/internal/metrics"
)

// Kind classifies a connection failure.
type Kind string

const (
	KindUnreachable Kind = "unreachable"
	KindAuthFailed  Kind = "auth_failed"
	KindTimeout     Kind = "timeout"
)

// Error is the only error type Acquire returns.
type Error struct {
	SiteID uint64
	Kind   Kind
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("tenant %d: %s: %v", e.SiteID, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrClosed is returned, wrapped in *Error, for Acquire calls that race
// or follow Close.
var ErrClosed = errors.New("connector closed")

// openTimeout bounds a pool open on its own, independent of any caller's
// deadline.  The open is shared through singleflight, so it must not run
// on the winning caller's budget: a joiner with a healthy deadline would
// otherwise inherit a near-expired one.
const openTimeout = 10 * time.Second

// Connector owns one pool per tenant, created on miss.
type Connector struct {
	baseDSN string
	open    func(ctx context.Context, dsn string) (*sqlx.DB, error)
	sfg     singleflight.Group
	m       sync.Map // site_id (uint64) → *sqlx.DB
	closeMu sync.Mutex
	closed  bool
}

// New builds a Connector from the tenant DSN template.  The template's
// database name is a placeholder; DatabaseName(siteID) replaces it per
// tenant while host, credentials, and driver parameters carry over.
func New(baseDSN string) *Connector {
	return &Connector{
		baseDSN: baseDSN,
		open: func(ctx context.Context, dsn string) (*sqlx.DB, error) {
			return database.OpenWithOptions(ctx, dsn, database.TenantOptions)
		},
	}
}

// DatabaseName returns the tenant database name for one site.
func DatabaseName(siteID uint64) string {
	return "tenant-db-" + strconv.FormatUint(siteID, 10)
}

// dsnFor swaps the template's database name for the tenant's.
func (c *Connector) dsnFor(siteID uint64) (string, error) {
	cfg, err := mysql.ParseDSN(c.baseDSN)
	if err != nil {
		return "", err
	}
	cfg.DBName = DatabaseName(siteID)
	return cfg.FormatDSN(), nil
}

// Acquire returns the pooled handle for siteID, opening it on first use.
// The caller must treat the handle as shared and must not Close it; the
// Connector owns pool lifecycle.
func (c *Connector) Acquire(ctx context.Context, siteID uint64) (*sqlx.DB, error) {
	if v, ok := c.m.Load(siteID); ok {
		return v.(*sqlx.DB), nil
	}

	if c.isClosed() {
		return nil, &Error{SiteID: siteID, Kind: KindUnreachable, Err: ErrClosed}
	}

	key := strconv.FormatUint(siteID, 10)
	ch := c.sfg.DoChan(key, func() (interface{}, error) {
		// Double-check after singleflight barrier.
		if v, ok := c.m.Load(siteID); ok {
			return v, nil
		}

		dsn, err := c.dsnFor(siteID)
		if err != nil {
			return nil, err
		}
		// Detached from the winning caller so joiners do not inherit
		// its deadline; the caller-side select below still honors each
		// caller's own context.
		openCtx, cancel := context.WithTimeout(context.Background(), openTimeout)
		defer cancel()
		db, err := c.open(openCtx, dsn)
		if err != nil {
			return nil, err
		}

		// Register under closeMu: a Close that ran while the open was
		// in flight must not strand this pool.
		c.closeMu.Lock()
		defer c.closeMu.Unlock()
		if c.closed {
			db.Close()
			return nil, ErrClosed
		}
		c.m.Store(siteID, db)
		metrics.TenantPoolOpensTotal.Inc()
		metrics.ActiveTenantPools.Inc()
		return db, nil
	})

	select {
	case <-ctx.Done():
		// The shared open keeps running for later callers; only this
		// caller's row degrades.
		return nil, &Error{SiteID: siteID, Kind: KindTimeout, Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			kind := classify(res.Err)
			metrics.TenantPoolErrorsTotal.WithLabelValues(string(kind)).Inc()
			zap.L().Warn("tenant pool open failed",
				zap.Uint64("site_id", siteID),
				zap.String("kind", string(kind)),
				zap.Error(res.Err))
			return nil, &Error{SiteID: siteID, Kind: kind, Err: res.Err}
		}
		return res.Val.(*sqlx.DB), nil
	}
}

func (c *Connector) isClosed() bool {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	return c.closed
}

// Close shuts every tenant pool.  Safe to call once during shutdown.
func (c *Connector) Close() error {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	var firstErr error
	c.m.Range(func(key, value any) bool {
		if err := value.(*sqlx.DB).Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		c.m.Delete(key)
		metrics.ActiveTenantPools.Dec()
		return true
	})
	return firstErr
}

// MySQL server error codes that indicate rejected credentials rather than
// an unreachable or missing database.
const (
	erDBAccessDenied = 1044
	erAccessDenied   = 1045
)

func classify(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTimeout
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return KindTimeout
	}
	var merr *mysql.MySQLError
	if errors.As(err, &merr) {
		switch merr.Number {
		case erDBAccessDenied, erAccessDenied:
			return KindAuthFailed
		}
	}
	return KindUnreachable
}
