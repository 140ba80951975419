package docstore

// Schema creates the folio tables: one saved-state blob per document
// path, plus the single global page-dimension record.
const Schema = `
CREATE TABLE IF NOT EXISTS documents (
	doc_key    TEXT PRIMARY KEY,
	version    INTEGER NOT NULL,
	state_json TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS settings (
	id          INTEGER PRIMARY KEY CHECK (id = 1),
	page_width  REAL NOT NULL,
	page_height REAL NOT NULL,
	page_gap    REAL NOT NULL
);
`
