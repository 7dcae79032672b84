package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
)

type SnapshotStore struct{ db *sql.DB }

func NewSnapshotStore(db *sql.DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

// SaveDocumentSnapshot records the content that was last written to the
// document backend. Duplicate rows are tolerated.
func (s *SnapshotStore) SaveDocumentSnapshot(ctx context.Context, docID string, content string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO document_snapshots (document_id, content, created_at)
		VALUES (?, ?, NOW())`,
		docID,
		content,
	)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
			return nil
		}
		return err
	}
	return nil
}

// LatestSnapshot returns the most recent recorded content for a document.
func (s *SnapshotStore) LatestSnapshot(ctx context.Context, docID string) (string, error) {
	var content string
	err := s.db.QueryRowContext(ctx,
		`SELECT content FROM document_snapshots
		WHERE document_id = ? ORDER BY id DESC LIMIT 1`,
		docID,
	).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return content, err
}
