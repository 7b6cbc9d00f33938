package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/indexsync/internal/content"
	"github.com/roach88/indexsync/internal/index"
)

// ErrEntryNotFound is returned by Entry when no document is stored for a reference.
var ErrEntryNotFound = errors.New("entry not found")

// Entry is a stored document with its write sequence.
type Entry struct {
	index.Document
	Seq int64 `json:"seq"`
}

// JournalRecord is one row of the write journal.
type JournalRecord struct {
	Seq    int64  `json:"seq"`
	Index  string `json:"index"`
	Op     string `json:"op"`
	ItemID string `json:"item_id"`
	Ref    string `json:"ref,omitempty"`
}

// Entries returns every entry of idx.
// Results are ordered deterministically: ORDER BY seq ASC, key ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) if the index has no entries.
func (s *Store) Entries(ctx context.Context, idx string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT item_id, language, version, database_name, name, path, template, fields, seq
		FROM entries
		WHERE index_name = ?
		ORDER BY seq ASC, key COLLATE BINARY ASC
	`, idx)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

// Entry returns the stored entry for ref in idx.
// Returns an error wrapping ErrEntryNotFound if there is none.
func (s *Store) Entry(ctx context.Context, idx string, ref content.IndexableRef) (Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT item_id, language, version, database_name, name, path, template, fields, seq
		FROM entries
		WHERE index_name = ? AND key = ?
	`, idx, ref.Key())

	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("entry %s: %w", ref, ErrEntryNotFound)
	}
	return e, err
}

// CountEntries returns the number of entries in idx.
func (s *Store) CountEntries(ctx context.Context, idx string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries WHERE index_name = ?`, idx).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}

// Journal returns the write journal of idx in sequence order.
// Returns an empty slice (not nil) if nothing was written.
func (s *Store) Journal(ctx context.Context, idx string) ([]JournalRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, index_name, op, item_id, ref
		FROM journal
		WHERE index_name = ?
		ORDER BY seq ASC
	`, idx)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	records := []JournalRecord{}
	for rows.Next() {
		var r JournalRecord
		if err := rows.Scan(&r.Seq, &r.Index, &r.Op, &r.ItemID, &r.Ref); err != nil {
			return nil, fmt.Errorf("scan journal: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal: %w", err)
	}
	return records, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var (
		e       Entry
		itemID  string
		version int
		fields  string
	)
	err := row.Scan(
		&itemID,
		&e.Ref.Language,
		&version,
		&e.Ref.Database,
		&e.Name,
		&e.Path,
		&e.Template,
		&fields,
		&e.Seq,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, err
		}
		return Entry{}, fmt.Errorf("scan entry: %w", err)
	}

	e.Ref.ItemID = content.ItemID(itemID)
	e.Ref.Version = content.Version(version)
	e.Fields, err = unmarshalFields(fields)
	if err != nil {
		return Entry{}, err
	}
	return e, nil
}
