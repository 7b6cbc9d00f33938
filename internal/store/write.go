package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/indexsync/internal/content"
	"github.com/roach88/indexsync/internal/index"
)

// Journal operations.
const (
	JournalUpsert        = "upsert"
	JournalDeleteItem    = "delete-item"
	JournalDeleteVersion = "delete-version"
)

var _ index.Writer = (*Store)(nil)

// appendJournal records one write and returns its sequence number.
func appendJournal(ctx context.Context, tx *sql.Tx, idx, op string, id content.ItemID, ref string) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO journal (index_name, op, item_id, ref)
		VALUES (?, ?, ?, ?)
	`, idx, op, string(id), ref)
	if err != nil {
		return 0, fmt.Errorf("append journal: %w", err)
	}
	return res.LastInsertId()
}

// Upsert writes doc into idx.
// Uses ON CONFLICT(index_name, key) DO UPDATE so repeated writes of the same
// version replace the row instead of failing.
func (s *Store) Upsert(ctx context.Context, idx string, doc index.Document) error {
	fields, err := marshalFields(doc.Fields)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", doc.Ref, err)
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		seq, err := appendJournal(ctx, tx, idx, JournalUpsert, doc.Ref.ItemID, doc.Ref.String())
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO entries
			(index_name, key, item_id, language, version, database_name, name, path, template, fields, seq)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(index_name, key) DO UPDATE SET
				name = excluded.name,
				path = excluded.path,
				template = excluded.template,
				fields = excluded.fields,
				seq = excluded.seq
		`,
			idx,
			doc.Ref.Key(),
			string(doc.Ref.ItemID),
			doc.Ref.Language,
			int(doc.Ref.Version),
			doc.Ref.Database,
			doc.Name,
			doc.Path,
			doc.Template,
			fields,
			seq,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("upsert %s: %w", doc.Ref, err)
	}
	return nil
}

// DeleteItem removes every entry of id from idx.
// Deleting an item with no entries is not an error; the journal still
// records the request.
func (s *Store) DeleteItem(ctx context.Context, idx string, id content.ItemID) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := appendJournal(ctx, tx, idx, JournalDeleteItem, id, ""); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			DELETE FROM entries WHERE index_name = ? AND item_id = ?
		`, idx, string(id))
		return err
	})
	if err != nil {
		return fmt.Errorf("delete item %s: %w", id, err)
	}
	return nil
}

// DeleteVersion removes the entry of one item version from idx.
func (s *Store) DeleteVersion(ctx context.Context, idx string, ref content.IndexableRef) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := appendJournal(ctx, tx, idx, JournalDeleteVersion, ref.ItemID, ref.String()); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			DELETE FROM entries WHERE index_name = ? AND key = ?
		`, idx, ref.Key())
		return err
	})
	if err != nil {
		return fmt.Errorf("delete version %s: %w", ref, err)
	}
	return nil
}
