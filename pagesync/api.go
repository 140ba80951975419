package pagesync

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/folio/shield"
)

// Router builds the engine's HTTP status API. It is a thin read/navigate
// surface for host UIs and debugging; all handlers go through the
// control loop.
func (e *Engine) Router() http.Handler {
	r := chi.NewRouter()
	for _, mw := range shield.DefaultAPIStack() {
		r.Use(mw)
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]string{"status": "ok"})
	})

	r.Get("/api/status", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, e.Status())
	})

	r.Route("/api/pages", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			pages := e.Pages()
			if pages == nil {
				writeError(w, 409, ErrNoDocument)
				return
			}
			writeJSON(w, 200, pages)
		})

		r.Post("/", func(w http.ResponseWriter, _ *http.Request) {
			index, err := e.AddPage()
			if err != nil {
				writeError(w, 409, err)
				return
			}
			writeJSON(w, 201, map[string]int{"index": index})
		})

		r.Get("/current", func(w http.ResponseWriter, _ *http.Request) {
			index := e.CurrentPageIndex()
			if index < 0 {
				writeError(w, 409, ErrNoDocument)
				return
			}
			writeJSON(w, 200, map[string]int{"index": index})
		})

		r.Post("/current", func(w http.ResponseWriter, req *http.Request) {
			var body struct {
				Index int `json:"index"`
			}
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				writeError(w, 400, err)
				return
			}
			if err := e.GoToPage(body.Index); err != nil {
				writeError(w, navStatus(err), err)
				return
			}
			writeJSON(w, 200, map[string]int{"index": body.Index})
		})

		r.Post("/next", func(w http.ResponseWriter, _ *http.Request) {
			index, err := e.NextPage()
			if err != nil {
				writeError(w, navStatus(err), err)
				return
			}
			writeJSON(w, 200, map[string]int{"index": index})
		})

		r.Post("/prev", func(w http.ResponseWriter, _ *http.Request) {
			index, err := e.PrevPage()
			if err != nil {
				writeError(w, navStatus(err), err)
				return
			}
			writeJSON(w, 200, map[string]int{"index": index})
		})
	})

	r.Route("/api/nodes", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, req *http.Request) {
			entries := e.NodeStates()
			if pageStr := req.URL.Query().Get("page"); pageStr != "" {
				page, err := strconv.Atoi(pageStr)
				if err != nil {
					writeError(w, 400, err)
					return
				}
				filtered := entries[:0]
				for _, en := range entries {
					if en.State.PageIndex == page {
						filtered = append(filtered, en)
					}
				}
				entries = filtered
			}
			if entries == nil {
				entries = []NodeStateEntry{}
			}
			writeJSON(w, 200, entries)
		})

		r.Delete("/{id}", func(w http.ResponseWriter, req *http.Request) {
			id := chi.URLParam(req, "id")
			if err := e.RemoveNode(id); err != nil {
				writeError(w, 409, err)
				return
			}
			writeJSON(w, 200, map[string]string{"status": "deleted"})
		})
	})

	r.Post("/api/flush", func(w http.ResponseWriter, req *http.Request) {
		if err := e.Flush(req.Context()); err != nil {
			writeError(w, 409, err)
			return
		}
		writeJSON(w, 200, map[string]string{"status": "flushed"})
	})

	return r
}

func navStatus(err error) int {
	switch {
	case errors.Is(err, ErrPageRange):
		return 400
	case errors.Is(err, ErrNoDocument):
		return 409
	default:
		return 500
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
