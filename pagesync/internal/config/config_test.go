package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	ps := cfg.PageSize()
	if ps.W != 794 || ps.H != 1123 || ps.Gap != 50 {
		t.Errorf("default page size: %+v", ps)
	}
	if cfg.Persist.Debounce != 1500*time.Millisecond {
		t.Errorf("default debounce: %v", cfg.Persist.Debounce)
	}
	if cfg.HTTP.Addr == "" || cfg.Storage.Path == "" {
		t.Error("defaults missing")
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "folio.yaml")
	doc := `
page:
  width: 595
  height: 842
  gap: 30
persist:
  debounce: 500ms
storage:
  path: /tmp/folio-test.db
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Page.Width != 595 || cfg.Page.Height != 842 || cfg.Page.Gap != 30 {
		t.Errorf("page: %+v", cfg.Page)
	}
	if cfg.Persist.Debounce != 500*time.Millisecond {
		t.Errorf("debounce: %v", cfg.Persist.Debounce)
	}
	// Unset sections get defaults.
	if cfg.HTTP.Addr != "127.0.0.1:7419" {
		t.Errorf("http addr default: %q", cfg.HTTP.Addr)
	}
	if cfg.Engine.FrameDelay != 16*time.Millisecond {
		t.Errorf("frame delay default: %v", cfg.Engine.FrameDelay)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile("/nonexistent/folio.yaml"); err == nil {
		t.Fatal("expected error")
	}
}
