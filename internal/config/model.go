// internal/config/model.go
//
// Typed configuration model for the multisite registry service.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `conf/.env`                        – dotenv values,
//   • `conf/global.yaml`                          – primary static file,
//   • `MULTISITE_`-prefixed environment overrides – highest precedence.
//
// Any value whose string begins with the prefix `vault:` is resolved
// through the Vault client *after* unmarshalling, so the rest of the app
// never sees Vault URIs—only plain strings.
//
// Validation happens immediately after unmarshal; the service fails fast
// if required fields are missing.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`—Koanf ignores `yaml` tags
//     unless configured otherwise.
//   • The `Paths` block is filled at runtime; YAML must not try to set it.

package config

import "time"

//
// HTTP section
//

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr string `koanf:"listen_addr" validate:"required,hostname_port"`
}

//
// Database section
//

// Database holds DSN templates and secrets.
//
// Both DSNs carry a `%s` verb where the password goes.  The *templates*
// are kept in YAML so operators can tweak host, port, or flags without
// touching Vault.  The *secret* (`Password`) may be a literal or a
// `vault:mount/path#key` URI resolved at load time, keeping credentials
// out of flat files and git history.
//
// TenantDSN points at a placeholder database name that the connector
// swaps for `tenant-db-<site_id>` per tenant; host, credentials, and
// driver parameters are shared with the registry connection.
type Database struct {
	GlobalDSN string `koanf:"global_dsn" validate:"required"`
	TenantDSN string `koanf:"tenant_dsn" validate:"required"`
	Password  string `koanf:"password"   validate:"required"`
}

//
// Listing section
//

// Listing holds page-window tunables for the site list.
type Listing struct {
	PageSize int `koanf:"page_size" validate:"gte=1"`
}

//
// Enrich section
//

// Enrich bounds the per-tenant fan-out.
type Enrich struct {
	Workers int           `koanf:"workers" validate:"gte=1"`
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime—never set in YAML or env.  The loader
// discovers `Root` (repo root or MULTISITE_ROOT override) so later code
// can build absolute file paths.
type Paths struct {
	Root string // MULTISITE_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads throughout the app lifetime.
type Config struct {
	HTTP     HTTP     `koanf:"http"`
	Database Database `koanf:"database"`
	Listing  Listing  `koanf:"listing"`
	Enrich   Enrich   `koanf:"enrich"`
	Paths    Paths    `koanf:"-"` // not loaded from config files
}
