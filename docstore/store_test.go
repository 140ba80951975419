package docstore

import (
	"context"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/folio/dbopen"
	"github.com/hazyhaar/folio/geom"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	db := dbopen.OpenMemory(t)
	if _, err := db.Exec(Schema); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	return &Store{DB: db}
}

func TestStateRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	blob := []byte(`{"version":2,"pages":[{"id":"page_a","index":0,"name":"Page 1"}],"nodeStates":[]}`)
	if err := s.SaveState(ctx, "vault/Board.md", 2, blob); err != nil {
		t.Fatalf("save: %v", err)
	}

	version, got, ok, err := s.LoadState(ctx, "vault/Board.md")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !ok {
		t.Fatal("load: not found")
	}
	if version != 2 {
		t.Errorf("version: got %d, want 2", version)
	}
	if string(got) != string(blob) {
		t.Errorf("blob: got %s", got)
	}
}

func TestSaveState_Upserts(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.SaveState(ctx, "doc", 2, []byte(`{"a":1}`)); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveState(ctx, "doc", 2, []byte(`{"a":2}`)); err != nil {
		t.Fatalf("second save: %v", err)
	}

	_, blob, _, err := s.LoadState(ctx, "doc")
	if err != nil {
		t.Fatal(err)
	}
	if string(blob) != `{"a":2}` {
		t.Errorf("blob after upsert: %s", blob)
	}

	keys, err := s.ListDocuments(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 1 {
		t.Errorf("documents: got %v", keys)
	}
}

func TestLoadState_Missing(t *testing.T) {
	s := testStore(t)

	_, _, ok, err := s.LoadState(context.Background(), "nope")
	if err != nil {
		t.Fatalf("load missing: %v", err)
	}
	if ok {
		t.Fatal("load missing: ok=true")
	}
}

func TestDeleteState(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	s.SaveState(ctx, "doc", 2, []byte(`{}`))
	if err := s.DeleteState(ctx, "doc"); err != nil {
		t.Fatal(err)
	}
	if _, _, ok, _ := s.LoadState(ctx, "doc"); ok {
		t.Fatal("state survived delete")
	}
}

func TestSettings(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if _, ok, err := s.LoadSettings(ctx); err != nil || ok {
		t.Fatalf("empty settings: ok=%v err=%v", ok, err)
	}

	want := geom.PageSize{W: 794, H: 1123, Gap: 50}
	if err := s.SaveSettings(ctx, want); err != nil {
		t.Fatal(err)
	}
	got, ok, err := s.LoadSettings(ctx)
	if err != nil || !ok {
		t.Fatalf("load settings: ok=%v err=%v", ok, err)
	}
	if got != want {
		t.Errorf("settings: got %+v, want %+v", got, want)
	}

	// Overwrite.
	want.Gap = 25
	if err := s.SaveSettings(ctx, want); err != nil {
		t.Fatal(err)
	}
	got, _, _ = s.LoadSettings(ctx)
	if got.Gap != 25 {
		t.Errorf("gap after update: %v", got.Gap)
	}
}
