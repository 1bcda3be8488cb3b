// Package migrate implements the shadow-namespace migration driver of
// §4.9: the stored schema's types are reopened read-write under a
// "LEGACY_" shadow namespace so a caller-supplied hook can drain each one
// into a freshly registered type of the new schema, with every rename a
// two-phase, crash-safe step.
package migrate

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Felmond13/novusdb/db"
	"github.com/Felmond13/novusdb/schema"
)

const legacyPrefix = "LEGACY_"

// Run drives the full protocol against the database at path:
//  1. every currently stored type is shadowed under legacyPrefix+name,
//     its data file renamed aside so the canonical name starts fresh;
//  2. the database is opened with both the new registry and the shadow
//     legacy registry;
//  3. hook is invoked once per stored (legacy) type, with the type's
//     unprefixed name, reading through Controller.Read/Count against
//     legacyPrefix+name and writing through Controller.Store against name;
//  4. each drained shadow type is forgotten and its data file archived
//     with a ".legacy" suffix;
//  5. the database is closed (skipping index rewrite) and reopened
//     non-migrating under newRegistry. Indices are not rebuilt on that
//     reopen: index entries for records the hook stored are not written.
//
// Failure at any step before step 4's per-type rename leaves that type's
// original data untouched at its shadow path — never overwritten, never
// left half-renamed.
func Run(path string, newRegistry *schema.Registry, hook db.MigrateFunc, opts ...db.Option) (*db.Controller, error) {
	meta, err := schema.LoadMetadata(filepath.Join(path, "database.yml"))
	if err != nil {
		return nil, fmt.Errorf("migrate: cannot load metadata: %w", err)
	}

	storedNames := make([]string, 0, len(meta.Types))
	for name := range meta.Types {
		storedNames = append(storedNames, name)
	}

	legacyRegistry := schema.NewRegistry()
	for _, name := range storedNames {
		tm := meta.Types[name]
		legacyName := legacyPrefix + name
		legacyType := tm.ToType(legacyName)
		if err := legacyRegistry.Register(legacyType); err != nil {
			return nil, err
		}

		if err := os.Rename(filepath.Join(path, name+".dat"), filepath.Join(path, legacyName+".dat")); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("migrate: cannot shadow %q: %w", name, err)
		}

		meta.Types[legacyName] = tm
		delete(meta.Types, name)
	}
	if err := meta.Save(filepath.Join(path, "database.yml")); err != nil {
		return nil, fmt.Errorf("migrate: cannot persist shadow metadata: %w", err)
	}

	combined := schema.NewRegistry()
	for _, t := range newRegistry.Types() {
		if err := combined.Register(t); err != nil {
			return nil, err
		}
	}
	for _, t := range legacyRegistry.Types() {
		if err := combined.Register(t); err != nil {
			return nil, err
		}
	}

	ctrl, err := db.Open(path, append([]db.Option{db.WithGenerate(combined), db.WithMigrate(hook)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("migrate: cannot open shadowed database: %w", err)
	}

	for _, name := range storedNames {
		if err := hook(ctrl, name); err != nil {
			return nil, fmt.Errorf("migrate: hook failed for %q: %w", name, err)
		}
	}

	for _, name := range storedNames {
		legacyName := legacyPrefix + name
		ctrl.ForgetType(legacyName)
		if err := os.Rename(filepath.Join(path, legacyName+".dat"), filepath.Join(path, name+".dat.legacy")); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("migrate: cannot archive %q: %w", name, err)
		}
	}

	ctrl.SkipIndicesOnClose(true)
	if err := ctrl.Close(); err != nil {
		return nil, fmt.Errorf("migrate: cannot close migrated database: %w", err)
	}

	return db.Open(path, append([]db.Option{db.WithGenerate(newRegistry)}, opts...)...)
}
