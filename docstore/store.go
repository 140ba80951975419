// Package docstore is the durable storage behind folio persistence: one
// versioned SavedState JSON blob per document path, plus the global page
// dimension settings, in SQLite.
//
// The blob is opaque here. Shape and version semantics belong to the
// engine's persistence layer; docstore only stores and reports.
package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hazyhaar/folio/dbopen"
	"github.com/hazyhaar/folio/geom"
)

// Store is the folio database handle.
type Store struct {
	DB *sql.DB
}

// Open opens (or creates) the folio SQLite database at path, applies the
// standard pragmas and the folio schema.
func Open(path string, opts ...dbopen.Option) (*Store, error) {
	allOpts := append([]dbopen.Option{
		dbopen.WithMkdirAll(),
		dbopen.WithSchema(Schema),
	}, opts...)

	db, err := dbopen.Open(path, allOpts...)
	if err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.DB.Close()
}

// SaveState upserts the saved-state blob for a document.
func (s *Store) SaveState(ctx context.Context, docKey string, version int, blob []byte) error {
	_, err := dbopen.Exec(ctx, s.DB, `
		INSERT INTO documents (doc_key, version, state_json, updated_at)
		VALUES (?,?,?,?)
		ON CONFLICT(doc_key) DO UPDATE SET
			version = excluded.version,
			state_json = excluded.state_json,
			updated_at = excluded.updated_at`,
		docKey, version, string(blob), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("docstore: save state %s: %w", docKey, err)
	}
	return nil
}

// LoadState returns the stored blob and version for a document. ok is
// false when no row exists.
func (s *Store) LoadState(ctx context.Context, docKey string) (version int, blob []byte, ok bool, err error) {
	var stateJSON string
	err = s.DB.QueryRowContext(ctx,
		`SELECT version, state_json FROM documents WHERE doc_key = ?`, docKey).
		Scan(&version, &stateJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil, false, nil
	}
	if err != nil {
		return 0, nil, false, fmt.Errorf("docstore: load state %s: %w", docKey, err)
	}
	return version, []byte(stateJSON), true, nil
}

// DeleteState removes a document's saved state.
func (s *Store) DeleteState(ctx context.Context, docKey string) error {
	if _, err := dbopen.Exec(ctx, s.DB, `DELETE FROM documents WHERE doc_key = ?`, docKey); err != nil {
		return fmt.Errorf("docstore: delete state %s: %w", docKey, err)
	}
	return nil
}

// ListDocuments returns the keys of all documents with saved state.
func (s *Store) ListDocuments(ctx context.Context) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT doc_key FROM documents ORDER BY doc_key`)
	if err != nil {
		return nil, fmt.Errorf("docstore: list documents: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("docstore: scan document key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// SaveSettings stores the global page dimensions.
func (s *Store) SaveSettings(ctx context.Context, ps geom.PageSize) error {
	_, err := dbopen.Exec(ctx, s.DB, `
		INSERT INTO settings (id, page_width, page_height, page_gap)
		VALUES (1,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			page_width = excluded.page_width,
			page_height = excluded.page_height,
			page_gap = excluded.page_gap`,
		ps.W, ps.H, ps.Gap)
	if err != nil {
		return fmt.Errorf("docstore: save settings: %w", err)
	}
	return nil
}

// LoadSettings returns the stored page dimensions. ok is false when the
// settings row has never been written.
func (s *Store) LoadSettings(ctx context.Context) (ps geom.PageSize, ok bool, err error) {
	err = s.DB.QueryRowContext(ctx,
		`SELECT page_width, page_height, page_gap FROM settings WHERE id = 1`).
		Scan(&ps.W, &ps.H, &ps.Gap)
	if errors.Is(err, sql.ErrNoRows) {
		return geom.PageSize{}, false, nil
	}
	if err != nil {
		return geom.PageSize{}, false, fmt.Errorf("docstore: load settings: %w", err)
	}
	return ps, true, nil
}
