package pagesync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hazyhaar/folio/geom"
	"github.com/hazyhaar/folio/surface/sim"
)

func TestRouter_StatusAndNavigation(t *testing.T) {
	eng := startEngine(t)
	surf := sim.New()
	surf.Seed(geom.Rect{X: 800, Y: 1200, W: 150, H: 80})
	if _, err := eng.OpenDocument(context.Background(), "doc-a", surf); err != nil {
		t.Fatalf("OpenDocument: %v", err)
	}

	srv := httptest.NewServer(eng.Router())
	defer srv.Close()

	get := func(path string, into any) int {
		t.Helper()
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		defer resp.Body.Close()
		if into != nil {
			if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
				t.Fatalf("decode %s: %v", path, err)
			}
		}
		return resp.StatusCode
	}
	post := func(path, body string) int {
		t.Helper()
		resp, err := http.Post(srv.URL+path, "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatalf("POST %s: %v", path, err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}

	var st Status
	if code := get("/api/status", &st); code != 200 {
		t.Fatalf("status code = %d", code)
	}
	if st.DocKey != "doc-a" || st.Pages != 1 || st.Nodes != 1 {
		t.Fatalf("status = %+v", st)
	}

	if code := post("/api/pages", ""); code != 201 {
		t.Fatalf("add page code = %d, want 201", code)
	}
	var pages []Page
	if code := get("/api/pages", &pages); code != 200 {
		t.Fatalf("pages code = %d", code)
	}
	if len(pages) != 2 || pages[1].Index != 1 {
		t.Fatalf("pages = %+v", pages)
	}

	if code := post("/api/pages/current", `{"index":1}`); code != 200 {
		t.Fatalf("goto code = %d", code)
	}
	if got := eng.CurrentPageIndex(); got != 1 {
		t.Fatalf("current page = %d, want 1", got)
	}

	// Out of range is a client error, not a mutation.
	if code := post("/api/pages/current", `{"index":9}`); code != 400 {
		t.Fatalf("out-of-range code = %d, want 400", code)
	}
	if got := eng.CurrentPageIndex(); got != 1 {
		t.Fatalf("rejected navigation moved current page to %d", got)
	}

	var entries []NodeStateEntry
	if code := get("/api/nodes?page=0", &entries); code != 200 {
		t.Fatalf("nodes code = %d", code)
	}
	if len(entries) != 1 || entries[0].State.PageIndex != 0 {
		t.Fatalf("nodes = %+v", entries)
	}
}

func TestRouter_NoDocument(t *testing.T) {
	eng := startEngine(t)
	srv := httptest.NewServer(eng.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/pages")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != 409 {
		t.Fatalf("code = %d, want 409", resp.StatusCode)
	}
}
