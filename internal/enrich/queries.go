// internal/enrich/queries.go
//
// Per-tenant lookup queries.
//
// Context
// -------
// Each helper runs one parameterised query against a tenant database
// handle supplied by the connector.  The tenant schema subset relied on:
//
//	config           (name PK, data)        – JSON blobs keyed by name
//	users_field_data (uid, name, access)
//	user__roles      (entity_id, roles_target_id)
//	node_field_data  (changed)
//
// Helpers return plain values and verbatim errors; the aggregator decides
// which sentinel a failure downgrades to.  Decode failures are reported
// as *DecodeError so they stay distinguishable from a missing row
// (sql.ErrNoRows).
package enrich

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// adminRole is the role machine name that marks a tenant user as a site
// administrator.
const adminRole = "site_admin"

// Config blob keys.
const (
	keySiteInfo = "system.site"
	keySettings = "unl_system.settings"
)

// DecodeError marks a config blob that was present but not decodable.
// It is scoped to one field; sibling lookups on the same row are
// unaffected.
type DecodeError struct {
	Key string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode config %q: %v", e.Key, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// configBlob fetches one raw config payload.  Missing rows surface as
// sql.ErrNoRows so callers can tell absence from decode failure.
func configBlob(ctx context.Context, db *sqlx.DB, key string) ([]byte, error) {
	const q = `SELECT data FROM config WHERE name = ? LIMIT 1`
	var data []byte
	if err := db.GetContext(ctx, &data, q, key); err != nil {
		return nil, err
	}
	return data, nil
}

// siteInfo mirrors the decoded `system.site` payload.
type siteInfo struct {
	Name string `json:"name"`
}

// platformSettings mirrors the decoded `unl_system.settings` payload.
type platformSettings struct {
	PrimaryBaseURL string `json:"primary_base_url"`
}

// siteName returns the tenant's configured site name.  An absent row or a
// malformed payload is an error; there is no business meaning to a site
// without a name.
func siteName(ctx context.Context, db *sqlx.DB) (string, error) {
	blob, err := configBlob(ctx, db, keySiteInfo)
	if err != nil {
		return "", err
	}
	var info siteInfo
	if err := json.Unmarshal(blob, &info); err != nil {
		return "", &DecodeError{Key: keySiteInfo, Err: err}
	}
	if info.Name == "" {
		return "", &DecodeError{Key: keySiteInfo, Err: fmt.Errorf("payload has no name")}
	}
	return info.Name, nil
}

// primaryBaseURL returns the tenant's configured primary base URL.  An
// absent settings row, or a decoded payload without the value, means the
// site has never saved its platform settings; both surface as
// sql.ErrNoRows so the caller renders "Not set" rather than an error.
func primaryBaseURL(ctx context.Context, db *sqlx.DB) (string, error) {
	blob, err := configBlob(ctx, db, keySettings)
	if err != nil {
		return "", err
	}
	var settings platformSettings
	if err := json.Unmarshal(blob, &settings); err != nil {
		return "", &DecodeError{Key: keySettings, Err: err}
	}
	if settings.PrimaryBaseURL == "" {
		return "", sql.ErrNoRows
	}
	return settings.PrimaryBaseURL, nil
}

// lastAdminAccess returns the newest access timestamp (epoch seconds)
// among users holding the administrator role, or 0 when no admin has ever
// logged in.
func lastAdminAccess(ctx context.Context, db *sqlx.DB) (int64, error) {
	const q = `
        SELECT MAX(u.access)
          FROM users_field_data u
          JOIN user__roles r ON u.uid = r.entity_id
         WHERE u.access > 0
           AND r.roles_target_id = ?`
	var ts sql.NullInt64
	if err := db.GetContext(ctx, &ts, q, adminRole); err != nil {
		return 0, err
	}
	if !ts.Valid {
		return 0, nil
	}
	return ts.Int64, nil
}

// lastContentEdit returns the date ("2006-01-02") of the newest content
// change, or "" when the site has no content.  The date formatting is
// pushed to SQL so the value compares the same everywhere.
func lastContentEdit(ctx context.Context, db *sqlx.DB) (string, error) {
	const q = `SELECT FROM_UNIXTIME(MAX(changed), '%Y-%m-%d') FROM node_field_data`
	var d sql.NullString
	if err := db.GetContext(ctx, &d, q); err != nil {
		return "", err
	}
	if !d.Valid {
		return "", nil
	}
	return d.String, nil
}

// adminNames returns every username holding the administrator role,
// alphabetical ascending.  The ORDER BY makes the roster deterministic
// across calls for the same underlying data.
func adminNames(ctx context.Context, db *sqlx.DB) ([]string, error) {
	const q = `
        SELECT u.name
          FROM users_field_data u
          JOIN user__roles r ON u.uid = r.entity_id
         WHERE r.roles_target_id = ?
         ORDER BY u.name ASC`
	names := make([]string, 0, 4)
	if err := db.SelectContext(ctx, &names, q, adminRole); err != nil {
		return nil, err
	}
	return names, nil
}
