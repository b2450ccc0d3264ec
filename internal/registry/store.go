// internal/registry/store.go
//
// Registry-table query helpers.
//
// Context
// -------
// These functions provide access to the shared **unl_sites** table:
//
//   - `All`   — full row list for the listing engine, default order.
//   - `Count` — total site count for the listing caption.
//   - `ByID`  — single-row lookup for the edit flow.
//   - `UpdateLegacyFields` — the one mutation the edit flow performs.
//
// Workflow
// --------
//  1. Callers supply a *sqlx.DB that is already connected to the shared
//     registry database.
//  2. Each helper executes exactly one parameterised statement.
//  3. Rows are scanned into `registry.Record`, which mirrors the current
//     schema.
//  4. Integrity and update failures are reported through the sentinel
//     errors below so callers can surface a user-visible message instead
//     of guessing which row to act on.
//
// Notes
// -----
//   - Column list matches the fields in `Record`; update both together.
//   - `ByID` deliberately fetches up to two rows: a duplicate site_id is
//     a data-integrity violation that must be surfaced, not resolved by
//     picking one row.
package registry

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned when no row carries the requested site_id.
var ErrNotFound = errors.New("site not found")

// ErrDuplicateSite is returned when more than one row carries the same
// site_id.  The caller must refuse the operation.
var ErrDuplicateSite = errors.New("more than one site has this site ID")

// ErrNoRowsUpdated is returned when a conditional update matched nothing.
var ErrNoRowsUpdated = errors.New("update affected no rows")

const columns = `site_id, d7_site_id, site_path, d7_site_path, uri, installed`

// All returns every registered site ordered ascending by site_path, the
// listing's default order and the tie-break order the sort engine
// preserves.
func All(ctx context.Context, db *sqlx.DB) ([]Record, error) {
	const q = `
        SELECT ` + columns + `
        FROM   unl_sites
        ORDER  BY site_path ASC`
	var rows []Record
	if err := db.SelectContext(ctx, &rows, q); err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns the total number of registered sites.
func Count(ctx context.Context, db *sqlx.DB) (int, error) {
	var n int
	if err := db.GetContext(ctx, &n, `SELECT COUNT(*) FROM unl_sites`); err != nil {
		return 0, err
	}
	return n, nil
}

// ByID fetches the single row for siteID.  A duplicate site_id returns
// ErrDuplicateSite; an empty result returns ErrNotFound.
func ByID(ctx context.Context, db *sqlx.DB, siteID uint64) (*Record, error) {
	const q = `
        SELECT ` + columns + `
        FROM   unl_sites
        WHERE  site_id = ?
        LIMIT  2`
	var rows []Record
	if err := db.SelectContext(ctx, &rows, q, siteID); err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		return nil, ErrNotFound
	case 1:
		return &rows[0], nil
	default:
		return nil, ErrDuplicateSite
	}
}

// UpdateLegacyFields writes the editable legacy columns for one site.  The
// update is a single conditional statement; zero affected rows surfaces as
// ErrNoRowsUpdated so the caller can report a distinct failure message.
func UpdateLegacyFields(ctx context.Context, db *sqlx.DB, siteID uint64, legacyID, legacyPath string) error {
	const q = `
        UPDATE unl_sites
        SET    d7_site_id = ?, d7_site_path = ?
        WHERE  site_id = ?`
	res, err := db.ExecContext(ctx, q, legacyID, legacyPath, siteID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNoRowsUpdated
	}
	return nil
}
