package migrate

import (
	"path/filepath"
	"testing"

	"github.com/Felmond13/novusdb/db"
	"github.com/Felmond13/novusdb/schema"
)

func oldRegistry() *schema.Registry {
	reg := schema.NewRegistry()
	reg.Register(&schema.Type{
		Name:   "Fred",
		Fields: []schema.Field{{Name: "nm", Kind: schema.ScalarString}},
	})
	return reg
}

func newRegistry() *schema.Registry {
	reg := schema.NewRegistry()
	reg.Register(&schema.Type{
		Name:   "Fred",
		Fields: []schema.Field{{Name: "name", Kind: schema.ScalarString}},
	})
	return reg
}

func TestMigrateRenamesField(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "migdb")

	c, err := db.Create(dir, db.WithGenerate(oldRegistry()))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := c.Store("Fred", db.Record{"nm": "alice"}); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if _, err := c.Store("Fred", db.Record{"nm": "bob"}); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	hook := func(ctrl *db.Controller, typeName string) error {
		count, err := ctrl.Count("LEGACY_" + typeName)
		if err != nil {
			return err
		}
		for id := uint64(1); id <= count; id++ {
			old, err := ctrl.Read("LEGACY_"+typeName, id)
			if err != nil {
				return err
			}
			if _, err := ctrl.Store(typeName, db.Record{"name": old["nm"]}); err != nil {
				return err
			}
		}
		return nil
	}

	ctrl, err := Run(dir, newRegistry(), hook)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	defer ctrl.Close()

	count, err := ctrl.Count("Fred")
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 2 {
		t.Fatalf("want 2 migrated records, got %d", count)
	}
	rec, err := ctrl.Read("Fred", 1)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if rec["name"] != "alice" {
		t.Fatalf("want name \"alice\", got %v", rec["name"])
	}
}
