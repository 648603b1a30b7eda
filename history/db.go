package history

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaCore = `
CREATE TABLE IF NOT EXISTS messages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    msg_id TEXT UNIQUE,
    role TEXT,
    content TEXT,
    attachments TEXT,
    created_at INTEGER
);
`

const schemaFTS = `
CREATE VIRTUAL TABLE IF NOT EXISTS messages_fts USING fts5(
    content,
    role,
    msg_id UNINDEXED,
    tokenize = 'unicode61'
);

CREATE TRIGGER IF NOT EXISTS messages_ai AFTER INSERT ON messages BEGIN
  INSERT INTO messages_fts(content, role, msg_id) VALUES (new.content, new.role, new.msg_id);
END;
`

// openMemory opens a private in-memory database. Each connection to
// ":memory:" is its own database, so the pool is pinned to one.
func openMemory() (*sql.DB, bool, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, false, err
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaCore); err != nil {
		db.Close()
		return nil, false, fmt.Errorf("failed to init core schema: %w", err)
	}

	// FTS5 needs the sqlite_fts5 build tag; without it search falls back to LIKE.
	ftsEnabled := true
	if _, err := db.Exec(schemaFTS); err != nil {
		ftsEnabled = false
	}

	return db, ftsEnabled, nil
}

// CheckFTS reports whether this binary's SQLite has FTS5.
func CheckFTS() bool {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return false
	}
	defer db.Close()

	_, err = db.Exec("CREATE VIRTUAL TABLE test USING fts5(content)")
	return err == nil
}
