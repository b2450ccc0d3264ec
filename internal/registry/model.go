// internal/registry/model.go
//
// `unl_sites` table row model and provisioning-status enum.
//
// Context
// -------
// The `Record` struct mirrors one row in the shared **unl_sites** table,
// the canonical list of tenant sites.  It is used by the listing engine as
// read-only input and by the edit flow for single-row updates.
//
// Schema reference
//
//	CREATE TABLE unl_sites (
//	    site_id       INT UNSIGNED PRIMARY KEY AUTO_INCREMENT,
//	    d7_site_id    VARCHAR(255) NULL,
//	    site_path     VARCHAR(255) NOT NULL UNIQUE,
//	    d7_site_path  VARCHAR(512) NULL,
//	    uri           VARCHAR(255) NOT NULL,
//	    installed     TINYINT      NOT NULL DEFAULT 0
//	);
//
// Notes
// -----
// • Nullable text columns are `sql.NullString`; callers must check Valid.
// • This struct contains no behaviour beyond status helpers—pure data
//   model for sqlx scans.
package registry

import "database/sql"

// Status is the provisioning state of one site.  Codes match the values
// stored in `unl_sites.installed`.
type Status int

const (
	StatusScheduled        Status = 0 // scheduled for creation
	StatusCreating         Status = 1
	StatusActive           Status = 2 // in production
	StatusScheduledRemoval Status = 3
	StatusRemoving         Status = 4
	StatusFailed           Status = 5
	StatusScheduledUpdate  Status = 6
)

var statusLabels = map[Status]string{
	StatusScheduled:        "Scheduled for creation.",
	StatusCreating:         "Currently being created.",
	StatusActive:           "In production.",
	StatusScheduledRemoval: "Scheduled for removal.",
	StatusRemoving:         "Currently being removed.",
	StatusFailed:           "Failure/Unknown.",
	StatusScheduledUpdate:  "Scheduled for site update.",
}

// Label returns the human-readable status text shown in the listing.
// Unrecognised codes render as "Unknown".
func (s Status) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return "Unknown"
}

// Enrichable reports whether a site in this state has a live tenant
// database worth querying.  Only production sites and sites queued for an
// update qualify.
func (s Status) Enrichable() bool {
	return s == StatusActive || s == StatusScheduledUpdate
}

// Record mirrors one row in the `unl_sites` table.
type Record struct {
	SiteID     uint64         `db:"site_id"`
	LegacyID   sql.NullString `db:"d7_site_id"`
	Path       string         `db:"site_path"`
	LegacyPath sql.NullString `db:"d7_site_path"`
	URI        string         `db:"uri"`
	Status     Status         `db:"installed"`
}
