package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of pgxpool.Pool used by the store.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PgStore keeps every collection in a single JSONB table. Rows are returned in
// insertion order so callers that pick "the first match" are deterministic.
type PgStore struct {
	pool Querier
}

func NewPgStore(pool Querier) *PgStore {
	return &PgStore{pool: pool}
}

// Helpers

func scanDocument(row pgx.Row) (*Document, error) {
	var d Document
	var raw []byte

	err := row.Scan(
		&d.ID,
		&raw,
		&d.Version,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}

	d.Data, err = decodeFields(raw)
	if err != nil {
		return nil, fmt.Errorf("document %s: %w", d.ID, err)
	}
	return &d, nil
}

// Interface methods

func (s *PgStore) FetchAll(ctx context.Context, collection string) ([]Document, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, data, version, created_at, updated_at
		FROM documents
		WHERE collection = $1
		ORDER BY created_at, id
	`, collection)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", collection, err)
	}
	defer rows.Close()

	var result []Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", collection, err)
	}

	return result, nil
}

func (s *PgStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, data, version, created_at, updated_at
		FROM documents
		WHERE collection = $1 AND id = $2
	`, collection, id)
	return scanDocument(row)
}

func (s *PgStore) Insert(ctx context.Context, collection string, data Fields) (string, error) {
	body, err := encodeFields(data)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	_, err = s.pool.Exec(ctx, `
		INSERT INTO documents (collection, id, data, version, created_at, updated_at)
		VALUES ($1, $2, $3::jsonb, 1, now(), now())
	`, collection, id, body)
	if err != nil {
		return "", fmt.Errorf("insert into %s: %w", collection, err)
	}

	return id, nil
}

// UpdateFields merges patch into the stored body. Keys not named in patch are
// preserved. A positive expectedVersion makes the write conditional.
func (s *PgStore) UpdateFields(ctx context.Context, collection, id string, patch Fields, expectedVersion int64) error {
	body, err := encodeFields(patch)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE documents
		SET data = data || $3::jsonb,
		    version = version + 1,
		    updated_at = now()
		WHERE collection = $1
		  AND id = $2
		  AND ($4::bigint = 0 OR version = $4::bigint)
	`, collection, id, body, expectedVersion)
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	err = s.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM documents WHERE collection = $1 AND id = $2)
	`, collection, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	if !exists {
		return ErrDocumentNotFound
	}
	return ErrVersionConflict
}
