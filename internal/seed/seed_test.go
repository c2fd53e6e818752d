package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/system"
)

func TestPrepareSeedDataCopiesTree(t *testing.T) {
	src := t.TempDir()
	if err := os.MkdirAll(filepath.Join(src, "nested"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "app.db"), []byte("rows"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "nested", "config.json"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	dataPath := filepath.Join(t.TempDir(), "data")
	p := NewDirPreparer(src, system.DefaultFS())
	if err := p.PrepareSeedData(context.Background(), dataPath); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(filepath.Join(dataPath, "app.db"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "rows" {
		t.Errorf("app.db = %q", got)
	}
	if _, err := os.Stat(filepath.Join(dataPath, "nested", "config.json")); err != nil {
		t.Errorf("nested file missing: %v", err)
	}
	if _, err := os.Stat(dataPath + ".staging"); !os.IsNotExist(err) {
		t.Error("staging directory left behind")
	}
}

func TestPrepareSeedDataEmptySource(t *testing.T) {
	dataPath := filepath.Join(t.TempDir(), "data")
	p := NewDirPreparer("", nil)

	if err := p.PrepareSeedData(context.Background(), dataPath); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(dataPath)
	if err != nil {
		t.Fatal(err)
	}
	if !info.IsDir() {
		t.Error("data path is not a directory")
	}
	entries, err := os.ReadDir(dataPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty directory, got %d entries", len(entries))
	}
}

func TestPrepareSeedDataReplacesExisting(t *testing.T) {
	src := t.TempDir()
	if err := os.WriteFile(filepath.Join(src, "fresh.txt"), []byte("new"), 0o644); err != nil {
		t.Fatal(err)
	}

	dataPath := filepath.Join(t.TempDir(), "data")
	if err := os.MkdirAll(dataPath, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dataPath, "stale.txt"), []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	p := NewDirPreparer(src, nil)
	if err := p.PrepareSeedData(context.Background(), dataPath); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(filepath.Join(dataPath, "stale.txt")); !os.IsNotExist(err) {
		t.Error("stale file survived reseeding")
	}
	if _, err := os.Stat(filepath.Join(dataPath, "fresh.txt")); err != nil {
		t.Errorf("fresh file missing: %v", err)
	}
}
