package db

import "github.com/Felmond13/novusdb/schema"

// MigrateFunc is a caller-supplied hook that migrate.Run invokes once per
// legacy type (§4.9 step 3). It is opaque to the core: it reads
// whatever it needs from the legacy record store and writes into the new
// one through the Controller passed to it.
type MigrateFunc func(c *Controller, typeName string) error

// Config holds the resolved configuration for a Create/Open call, built up
// by applying a sequence of Option funcs over defaultConfig — the same
// functional-options shape as the corpus's own options package, scaled to
// this engine's handful of knobs.
type Config struct {
	Debug         bool
	ReadOnly      bool
	Generate      *schema.Registry
	Migrate       MigrateFunc
	SkipIndices   bool
	PageCacheSize int
}

func defaultConfig() *Config {
	return &Config{PageCacheSize: 64}
}

// Option mutates a Config during Create/Open.
type Option func(*Config)

// WithDebug enables fmt-to-stderr tracing of the stale-file removals Create
// performs (§6). Renames made by the migration driver are not traced.
func WithDebug(enabled bool) Option {
	return func(c *Config) { c.Debug = enabled }
}

// WithReadOnly opens the database without a write lock; every mutating
// operation then fails with ErrReadonly.
func WithReadOnly(enabled bool) Option {
	return func(c *Config) { c.ReadOnly = enabled }
}

// WithGenerate supplies the schema registry to materialize on Create, or to
// compare against stored metadata on Open (§4.7/§4.8).
func WithGenerate(reg *schema.Registry) Option {
	return func(c *Config) {
		if reg != nil {
			c.Generate = reg
		}
	}
}

// WithMigrate marks an Open as migrating: Open then skips the check of the
// registry against stored metadata. Open does not run the migration and
// does not invoke fn; the protocol and the hook calls are driven by
// migrate.Run, which passes this option to its own Open.
func WithMigrate(fn MigrateFunc) Option {
	return func(c *Config) {
		if fn != nil {
			c.Migrate = fn
		}
	}
}

// WithSkipIndices skips rewriting dirty indices on Close — used internally
// by the migration driver's intermediate close (§4.9 step 5) and exposed
// for callers who rebuild indices out of band.
func WithSkipIndices(enabled bool) Option {
	return func(c *Config) { c.SkipIndices = enabled }
}

// WithPageCacheSize sets the number of segmented-index buckets kept warm
// per index (§4.6). Values <= 0 are ignored, keeping the default.
func WithPageCacheSize(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.PageCacheSize = n
		}
	}
}
