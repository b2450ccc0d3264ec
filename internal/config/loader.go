// internal/config/loader.go
//
// Configuration loader.
//
/*
Context
--------
`Load()` builds one immutable `Config` struct from three layers (highest
precedence last):

  1. Optional `.env` file — `<root>/conf/.env`.
  2. `conf/global.yaml`.
  3. Environment variables prefixed `MULTISITE_`, where `__` maps to “.”
     (e.g., `MULTISITE_HTTP__LISTEN_ADDR → http.listen_addr`).

After merging, the tree is unmarshalled into strongly-typed structs,
defaulted, validated, enriched with the runtime root path, and cached in
an `atomic.Pointer` for lock-free reads.  `Reload()` simply calls
`Load()` again and swaps the pointer.

A `database.password` value of the form `vault:mount/path#key` is
resolved through the Vault KV-v2 client before the config is published;
the resolved password is then substituted into the `%s` verb of both DSN
templates.

Instrumentation
---------------
  • DEBUG spans — root discovery, YAML read, env overlay.
  • ERROR spans — YAML parse, env overlay, unmarshal, validation, Vault.
  • INFO  span  — final “config loaded” with key highlights.
  • Logs use the global *sugared* logger (`zap.S()`) so early boot issues
    surface even before the file logger is installed (bootstrap console).
*/
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"

	"github.com/yanizio/multisite/internal/vault"
)

var current atomic.Pointer[Config]

// Fallback values applied when YAML and env leave a field unset.
const (
	DefaultPageSize      = 200
	DefaultWorkers       = 8
	DefaultEnrichTimeout = 5 * time.Second
)

/*──────────────────────────── root discovery ───────────────────────────────*/

// rootDir resolves MULTISITE_ROOT or climbs directories until
// conf/global.yaml is found.  Falls back to executable heuristic for
// production layout.
func rootDir() string {
	if r := os.Getenv("MULTISITE_ROOT"); r != "" {
		return r
	}

	wd, _ := os.Getwd()
	dir := wd
	for {
		if _, err := os.Stat(filepath.Join(dir, "conf", "global.yaml")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir { // reached filesystem root
			break
		}
		dir = parent
	}

	exe, _ := os.Executable()
	if filepath.Base(filepath.Dir(exe)) == "bin" {
		return filepath.Dir(filepath.Dir(exe))
	}
	return wd
}

/*─────────────────────────────── loader ───────────────────────────────────*/

// Load reads .env, YAML, env overrides, resolves secrets, validates, and
// caches Config.
func Load() (*Config, error) {
	root := rootDir()
	zap.S().Debugw("config root resolved", "root", root)

	// .env (optional, no error if missing)
	_ = godotenv.Load(filepath.Join(root, "conf", ".env"))

	k := koanf.New(".")

	yamlPath := filepath.Join(root, "conf", "global.yaml")
	if err := k.Load(file.Provider(yamlPath), yaml.Parser()); err != nil {
		zap.S().Errorw("config yaml load failed", "file", yamlPath, "err", err)
		return nil, err
	}
	zap.S().Debugw("config yaml loaded", "file", yamlPath)

	// Env overrides: MULTISITE_HTTP__LISTEN_ADDR → http.listen_addr
	if err := k.Load(env.Provider("MULTISITE_", ".", func(s string) string {
		return strings.ToLower(strings.ReplaceAll(s, "__", "."))
	}), nil); err != nil {
		zap.S().Errorw("config env overlay failed", "err", err)
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		zap.S().Errorw("config unmarshal failed", "err", err)
		return nil, err
	}

	applyDefaults(&cfg)
	cfg.Paths.Root = root

	if err := resolveSecrets(&cfg); err != nil {
		zap.S().Errorw("config secret resolution failed", "err", err)
		return nil, err
	}

	if err := validateStruct(&cfg); err != nil {
		zap.S().Errorw("config validation failed", "err", err)
		return nil, err
	}

	current.Store(&cfg)
	zap.S().Infow("config loaded",
		"listen_addr", cfg.HTTP.ListenAddr,
		"page_size", cfg.Listing.PageSize,
		"enrich_workers", cfg.Enrich.Workers,
		"root", cfg.Paths.Root,
	)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Listing.PageSize == 0 {
		cfg.Listing.PageSize = DefaultPageSize
	}
	if cfg.Enrich.Workers == 0 {
		cfg.Enrich.Workers = DefaultWorkers
	}
	if cfg.Enrich.Timeout == 0 {
		cfg.Enrich.Timeout = DefaultEnrichTimeout
	}
}

// resolveSecrets swaps a `vault:mount/path#key` password for its KV-v2
// value and substitutes the result into both DSN templates.
func resolveSecrets(cfg *Config) error {
	pw := cfg.Database.Password
	if uri, ok := strings.CutPrefix(pw, "vault:"); ok {
		secretPath, key, found := strings.Cut(uri, "#")
		if !found {
			return fmt.Errorf("malformed vault URI %q: want vault:mount/path#key", pw)
		}
		cli, err := vault.New(context.Background(), zap.S().Infof)
		if err != nil {
			return fmt.Errorf("vault client: %w", err)
		}
		pw, err = cli.GetKV(context.Background(), secretPath, key, time.Hour)
		if err != nil {
			return fmt.Errorf("vault lookup: %w", err)
		}
		cfg.Database.Password = pw
	}

	if strings.Contains(cfg.Database.GlobalDSN, "%s") {
		cfg.Database.GlobalDSN = fmt.Sprintf(cfg.Database.GlobalDSN, pw)
	}
	if strings.Contains(cfg.Database.TenantDSN, "%s") {
		cfg.Database.TenantDSN = fmt.Sprintf(cfg.Database.TenantDSN, pw)
	}
	return nil
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

func Get() *Config  { return current.Load() }
func Reload() error { _, err := Load(); return err }
