// internal/enrich/enrich.go
//
// Enrichment aggregator.
//
// Context
// -------
// A registry row tells you a site exists; everything an operator actually
// wants on the listing (site name, primary base URL, last admin access,
// last content edit, admin roster) lives inside that tenant's own
// database.  The aggregator fans out across eligible tenants, runs the
// five lookups, and merges the results into Row values.
//
// Failure discipline
// ------------------
//   - Connector failure (unreachable, auth, timeout) degrades the whole
//     row: both display strings become "unavailable", timestamps stay
//     absent, the roster stays empty.  The row itself always survives.
//   - Query or decode failure on a healthy connection degrades only its
//     own field; the other four proceed normally.
//   - Nothing is ever thrown past Enrich; failures leave as data.
//
// Concurrency
// -----------
// Tenants hold disjoint databases, so rows enrich in parallel under an
// errgroup bounded by the configured worker limit.  Each row runs under
// its own timeout, and every worker writes only to its own slice index,
// so the output order equals the input order no matter which tenant
// answers first.  Handles are passed explicitly per row; there is no
// shared "active connection" to switch and restore.
package enrich

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yanizio/multisite/internal/metrics"
	"github.com/yanizio/multisite/internal/registry"
)

// Sentinel display values.  Unavailable means the engine failed to fetch
// or decode the value; NotSet means the tenant has genuinely never
// configured it.  Downstream rendering must not conflate the two.
const (
	Unavailable = "unavailable"
	NotSet      = "Not set"
)

// Row is one registry record merged with whatever tenant data could be
// fetched.  Enrichment fields are independently optional.
type Row struct {
	registry.Record

	DisplayName     string   // site name, or Unavailable
	PrimaryBaseURL  string   // URL, NotSet, or Unavailable
	LastAdminAccess int64    // epoch seconds; 0 = never
	LastContentEdit string   // "2006-01-02"; "" = never
	AdminNames      []string // alphabetical ascending
}

// Source yields a live tenant handle or a typed error.  Satisfied by
// *connector.Connector.
type Source interface {
	Acquire(ctx context.Context, siteID uint64) (*sqlx.DB, error)
}

// Aggregator fans enrichment out across tenants.
type Aggregator struct {
	src     Source
	workers int
	timeout time.Duration
}

// New builds an Aggregator.  workers bounds simultaneous tenant visits;
// timeout is the budget for one row's connect-and-query sequence.
func New(src Source, workers int, timeout time.Duration) *Aggregator {
	if workers < 1 {
		workers = 1
	}
	return &Aggregator{src: src, workers: workers, timeout: timeout}
}

// Enrich returns one Row per input record, in input order.  Records whose
// status is not enrichable pass through with all enrichment fields
// absent, regardless of tenant database state.
func (a *Aggregator) Enrich(ctx context.Context, recs []registry.Record) []Row {
	out := make([]Row, len(recs))

	var g errgroup.Group
	g.SetLimit(a.workers)

	for i := range recs {
		out[i] = Row{Record: recs[i]}
		if !recs[i].Status.Enrichable() {
			continue
		}
		i := i
		g.Go(func() error {
			a.enrichRow(ctx, &out[i])
			return nil
		})
	}
	// Workers never return errors; failures are already encoded in rows.
	_ = g.Wait()

	return out
}

// enrichRow fills one Row in place under the per-row timeout.
func (a *Aggregator) enrichRow(ctx context.Context, row *Row) {
	metrics.EnrichRowsTotal.Inc()

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	db, err := a.src.Acquire(ctx, row.SiteID)
	if err != nil {
		// Connector-level failure short-circuits all five lookups.
		row.DisplayName = Unavailable
		row.PrimaryBaseURL = Unavailable
		metrics.EnrichDegradedTotal.WithLabelValues("row").Inc()
		return
	}

	if name, err := siteName(ctx, db); err != nil {
		row.DisplayName = Unavailable
		a.degraded(row.SiteID, "display_name", err)
	} else {
		row.DisplayName = name
	}

	if url, err := primaryBaseURL(ctx, db); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			row.PrimaryBaseURL = NotSet
		} else {
			row.PrimaryBaseURL = Unavailable
			a.degraded(row.SiteID, "primary_base_url", err)
		}
	} else {
		row.PrimaryBaseURL = url
	}

	if ts, err := lastAdminAccess(ctx, db); err != nil {
		a.degraded(row.SiteID, "last_admin_access", err)
	} else {
		row.LastAdminAccess = ts
	}

	if d, err := lastContentEdit(ctx, db); err != nil {
		a.degraded(row.SiteID, "last_content_edit", err)
	} else {
		row.LastContentEdit = d
	}

	if names, err := adminNames(ctx, db); err != nil {
		a.degraded(row.SiteID, "admin_names", err)
	} else {
		row.AdminNames = names
	}
}

func (a *Aggregator) degraded(siteID uint64, field string, err error) {
	metrics.EnrichDegradedTotal.WithLabelValues(field).Inc()
	zap.L().Debug("enrichment field degraded",
		zap.Uint64("site_id", siteID),
		zap.String("field", field),
		zap.Error(err))
}
