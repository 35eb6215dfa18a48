package store

// Schema holds the catalog tables. The search index is created separately
// by Init because it is rebuilt from scratch on every start.
const Schema = `
CREATE TABLE IF NOT EXISTS documents (
    id                  INTEGER PRIMARY KEY AUTOINCREMENT,
    name                TEXT NOT NULL,
    custom_name         TEXT NOT NULL DEFAULT '',
    path                TEXT NOT NULL,
    original_format     TEXT NOT NULL DEFAULT '',
    is_machine_readable INTEGER NOT NULL DEFAULT 0,
    readable            INTEGER NOT NULL DEFAULT 0,
    extracted_text_path TEXT NOT NULL DEFAULT '',
    output_format       TEXT NOT NULL DEFAULT '',
    output_path         TEXT NOT NULL DEFAULT '',
    processing_method   TEXT NOT NULL DEFAULT '',
    file_size           INTEGER NOT NULL DEFAULT 0,
    word_count          INTEGER NOT NULL DEFAULT 0,
    tags                TEXT NOT NULL DEFAULT '',
    description         TEXT NOT NULL DEFAULT '',
    ingested_at         TEXT NOT NULL,
    updated_at          TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_updated ON documents(updated_at DESC, id DESC);
CREATE INDEX IF NOT EXISTS idx_documents_readable ON documents(is_machine_readable);

CREATE TABLE IF NOT EXISTS extracted_texts (
    doc_id  INTEGER PRIMARY KEY,
    content TEXT NOT NULL,
    FOREIGN KEY (doc_id) REFERENCES documents(id) ON DELETE CASCADE
);
`

// indexDDL creates the ranked search index: porter stemming over
// unicode61 with diacritics folded.
const indexDDL = `
CREATE VIRTUAL TABLE documents_fts USING fts5(
    doc_id UNINDEXED,
    name,
    custom_name,
    content,
    tags,
    description,
    tokenize='porter unicode61 remove_diacritics 2'
);
`

// populateIndex fills documents_fts from the catalog.
const populateIndex = `
INSERT INTO documents_fts (doc_id, name, custom_name, content, tags, description)
SELECT d.id, d.name, d.custom_name, COALESCE(t.content, ''), d.tags, d.description
FROM documents d
LEFT JOIN extracted_texts t ON t.doc_id = d.id
`
