// Package history keeps a searchable copy of the current session in an
// in-memory SQLite database. Nothing is written to disk except by Export.
package history

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/kir-gadjello/gemtutor/conversation"
)

const searchLimit = 50

var ErrEmptyQuery = errors.New("empty query")

type Index struct {
	db          *sql.DB
	searchAvail bool
}

func New() (*Index, error) {
	db, ftsEnabled, err := openMemory()
	if err != nil {
		return nil, err
	}
	return &Index{db: db, searchAvail: ftsEnabled}, nil
}

func (ix *Index) Close() error {
	if ix.db == nil {
		return nil
	}
	return ix.db.Close()
}

// FullText reports whether searches use FTS5 rather than the LIKE fallback.
func (ix *Index) FullText() bool { return ix.searchAvail }

// Add mirrors one stored message. Adding the same message twice is a no-op.
func (ix *Index) Add(msg conversation.Message) error {
	names := make([]string, 0, len(msg.Attachments))
	for _, a := range msg.Attachments {
		names = append(names, a.Name)
	}
	atts, err := json.Marshal(names)
	if err != nil {
		return err
	}

	_, err = ix.db.Exec("INSERT OR IGNORE INTO messages(msg_id, role, content, attachments, created_at) VALUES(?, ?, ?, ?, ?)",
		msg.ID, msg.Author.String(), msg.Text, string(atts), msg.CreatedAt.UnixMilli())
	return err
}

// Reset forgets every indexed message.
func (ix *Index) Reset() error {
	if _, err := ix.db.Exec("DELETE FROM messages"); err != nil {
		return err
	}
	if ix.searchAvail {
		if _, err := ix.db.Exec("DELETE FROM messages_fts"); err != nil {
			return err
		}
	}
	return nil
}

func (ix *Index) Len() (int, error) {
	var n int
	err := ix.db.QueryRow("SELECT count(*) FROM messages").Scan(&n)
	return n, err
}

func (ix *Index) Search(query string) ([]Hit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if ix.searchAvail {
		return ix.searchFTS(query)
	}
	return ix.searchLike(query)
}

func (ix *Index) searchFTS(query string) ([]Hit, error) {
	ftsQuery := ParseQuery(query)
	if ftsQuery == "" {
		return nil, ErrEmptyQuery
	}

	rows, err := ix.db.Query(`
		SELECT messages_fts.msg_id, messages_fts.role, messages_fts.content,
		       snippet(messages_fts, 0, '[', ']', '…', 12), m.created_at
		FROM messages_fts JOIN messages m ON m.msg_id = messages_fts.msg_id
		WHERE messages_fts MATCH ?
		ORDER BY messages_fts.rank
		LIMIT ?`, ftsQuery, searchLimit)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", ftsQuery, err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var h Hit
		var ts int64
		if err := rows.Scan(&h.MessageID, &h.Role, &h.Text, &h.Preview, &ts); err != nil {
			return nil, err
		}
		h.CreatedAt = time.UnixMilli(ts)
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

func (ix *Index) searchLike(query string) ([]Hit, error) {
	where, args := likeQuery(query)
	if where == "" {
		return nil, ErrEmptyQuery
	}

	var first string
	for _, t := range parseTerms(query) {
		if t.text != "" {
			first = t.text
			break
		}
	}

	args = append(args, searchLimit)
	rows, err := ix.db.Query("SELECT msg_id, role, content, created_at FROM messages WHERE "+where+" ORDER BY id ASC LIMIT ?", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var h Hit
		var ts int64
		if err := rows.Scan(&h.MessageID, &h.Role, &h.Text, &ts); err != nil {
			return nil, err
		}
		h.CreatedAt = time.UnixMilli(ts)
		h.Preview = snippet(h.Text, first, 40)
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// Export writes the transcript to w as JSON lines, oldest first.
func (ix *Index) Export(w io.Writer) error {
	rows, err := ix.db.Query("SELECT msg_id, role, content, attachments, created_at FROM messages ORDER BY id ASC")
	if err != nil {
		return err
	}
	defer rows.Close()

	enc := json.NewEncoder(w)
	for rows.Next() {
		var e Entry
		var atts string
		if err := rows.Scan(&e.ID, &e.Role, &e.Text, &atts, &e.TS); err != nil {
			return err
		}
		if err := json.Unmarshal([]byte(atts), &e.Attachments); err != nil {
			return fmt.Errorf("message %s: %w", e.ID, err)
		}
		if err := enc.Encode(e); err != nil {
			return err
		}
	}
	return rows.Err()
}
