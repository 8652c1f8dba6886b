package store

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/bluereef-labs/mpagent/internal/model"
)

// pgxPool is the subset of pgxpool.Pool the store uses. pgxmock
// implements the same surface.
type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store backed by a pgx connection pool.
type PostgresStore struct {
	pool pgxPool
}

// NewPostgres connects to the given Postgres DSN.
func NewPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool, used by tests.
func NewPostgresFromPool(pool pgxPool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS documents (
	id         TEXT PRIMARY KEY,
	filename   TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'uploaded',
	pages      JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS analysis_results (
	document_id TEXT PRIMARY KEY REFERENCES documents(id),
	result      JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateDocument(ctx context.Context, doc model.Document) (*model.Document, error) {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if doc.Status == "" {
		doc.Status = model.StatusUploaded
	}
	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	pagesJSON, err := json.Marshal(doc.Pages)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal pages")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO documents (id, filename, status, pages, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		doc.ID, doc.Filename, string(doc.Status), pagesJSON, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert document")
	}
	return &doc, nil
}

func (s *PostgresStore) UpdateDocumentStatus(ctx context.Context, docID string, status model.DocumentStatus) error {
	var current model.DocumentStatus
	err := s.pool.QueryRow(ctx, `SELECT status FROM documents WHERE id = $1`, docID).Scan(&current)
	if err == pgx.ErrNoRows {
		return eris.Wrapf(ErrNotFound, "document %s", docID)
	}
	if err != nil {
		return eris.Wrapf(err, "postgres: read document status %s", docID)
	}
	if !current.CanTransition(status) {
		return eris.Wrapf(ErrInvalidTransition, "document %s: %s -> %s", docID, current, status)
	}

	_, err = s.pool.Exec(ctx,
		`UPDATE documents SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), docID,
	)
	return eris.Wrapf(err, "postgres: update document status %s", docID)
}

func (s *PostgresStore) UpdateDocumentPages(ctx context.Context, docID string, pages []model.PageText) error {
	pagesJSON, err := json.Marshal(pages)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal pages")
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE documents SET pages = $1, updated_at = $2 WHERE id = $3`,
		pagesJSON, time.Now().UTC(), docID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update document pages %s", docID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "document %s", docID)
	}
	return nil
}

func (s *PostgresStore) GetDocument(ctx context.Context, docID string) (*model.Document, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, filename, status, pages, created_at, updated_at FROM documents WHERE id = $1`,
		docID,
	)
	return scanPgDocument(row)
}

func (s *PostgresStore) ListDocuments(ctx context.Context, filter DocumentFilter) ([]model.Document, error) {
	query := `SELECT id, filename, status, pages, created_at, updated_at FROM documents WHERE 1=1`
	var args []any

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` AND status = $1`
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += ` LIMIT $` + strconv.Itoa(len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list documents")
	}
	defer rows.Close()

	var docs []model.Document
	for rows.Next() {
		d, err := scanPgDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *d)
	}
	return docs, eris.Wrap(rows.Err(), "postgres: list documents iterate")
}

func (s *PostgresStore) PutResult(ctx context.Context, docID string, result *model.AnalysisResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal result")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO analysis_results (document_id, result, created_at) VALUES ($1, $2, $3)
		 ON CONFLICT (document_id) DO UPDATE SET result = EXCLUDED.result, created_at = EXCLUDED.created_at`,
		docID, resultJSON, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: put result %s", docID)
}

func (s *PostgresStore) GetResult(ctx context.Context, docID string) (*model.AnalysisResult, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT result FROM analysis_results WHERE document_id = $1`,
		docID,
	)

	var resultJSON []byte
	err := row.Scan(&resultJSON)
	if err == pgx.ErrNoRows {
		return nil, eris.Wrapf(ErrNotFound, "result %s", docID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get result")
	}

	var result model.AnalysisResult
	if err := json.Unmarshal(resultJSON, &result); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal result")
	}
	return &result, nil
}

func scanPgDocument(row pgx.Row) (*model.Document, error) {
	var d model.Document
	var pagesJSON []byte

	err := row.Scan(&d.ID, &d.Filename, &d.Status, &pagesJSON, &d.CreatedAt, &d.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, eris.Wrap(ErrNotFound, "document")
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan document")
	}

	if len(pagesJSON) > 0 {
		if err := json.Unmarshal(pagesJSON, &d.Pages); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal pages")
		}
	}
	return &d, nil
}
