package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluereef-labs/mpagent/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewPostgresFromPool(mock), mock
}

func TestPostgres_CreateDocument(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO documents`).
		WithArgs(pgxmock.AnyArg(), "plan.pdf", "uploaded", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	doc, err := s.CreateDocument(context.Background(), model.Document{Filename: "plan.pdf"})
	require.NoError(t, err)
	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, model.StatusUploaded, doc.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetDocument(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	pages, _ := json.Marshal([]model.PageText{{Number: 1, Text: "uno"}})
	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT id, filename, status, pages, created_at, updated_at FROM documents WHERE id = \$1`).
		WithArgs("doc1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "filename", "status", "pages", "created_at", "updated_at"}).
			AddRow("doc1", "plan.pdf", model.StatusComplete, pages, now, now))

	doc, err := s.GetDocument(context.Background(), "doc1")
	require.NoError(t, err)
	assert.Equal(t, "plan.pdf", doc.Filename)
	assert.Equal(t, model.StatusComplete, doc.Status)
	require.Len(t, doc.Pages, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetDocument_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, filename, status, pages, created_at, updated_at FROM documents`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetDocument(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpdateDocumentStatus(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT status FROM documents WHERE id = \$1`).
		WithArgs("doc1").
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow(model.StatusUploaded))
	mock.ExpectExec(`UPDATE documents SET status = \$1`).
		WithArgs("extracting", pgxmock.AnyArg(), "doc1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.UpdateDocumentStatus(context.Background(), "doc1", model.StatusExtracting)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpdateDocumentStatus_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT status FROM documents WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	err := s.UpdateDocumentStatus(context.Background(), "missing", model.StatusFailed)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpdateDocumentStatus_RejectsBackward(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	// No UPDATE is expected; the transition check rejects before writing.
	mock.ExpectQuery(`SELECT status FROM documents WHERE id = \$1`).
		WithArgs("doc1").
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow(model.StatusComplete))

	err := s.UpdateDocumentStatus(context.Background(), "doc1", model.StatusExtracting)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrInvalidTransition))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpdateDocumentPages(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE documents SET pages = \$1`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "doc1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.UpdateDocumentPages(context.Background(), "doc1", []model.PageText{{Number: 1, Text: "uno"}})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpdateDocumentPages_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE documents SET pages = \$1`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateDocumentPages(context.Background(), "missing", nil)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_PutResult_Upsert(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO analysis_results .* ON CONFLICT`).
		WithArgs("doc1", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.PutResult(context.Background(), "doc1", &model.AnalysisResult{Status: model.StatusComplete})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetResult(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	payload, _ := json.Marshal(&model.AnalysisResult{
		DocumentID:     "doc1",
		Classification: model.LightlyProtected,
	})
	mock.ExpectQuery(`SELECT result FROM analysis_results`).
		WithArgs("doc1").
		WillReturnRows(pgxmock.NewRows([]string{"result"}).AddRow(payload))

	got, err := s.GetResult(context.Background(), "doc1")
	require.NoError(t, err)
	assert.Equal(t, model.LightlyProtected, got.Classification)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetResult_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT result FROM analysis_results`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetResult(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ListDocuments(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT id, filename, status, pages, created_at, updated_at FROM documents`).
		WithArgs(50).
		WillReturnRows(pgxmock.NewRows([]string{"id", "filename", "status", "pages", "created_at", "updated_at"}).
			AddRow("a", "a.pdf", model.StatusComplete, []byte(nil), now, now).
			AddRow("b", "b.pdf", model.StatusPartial, []byte(nil), now, now))

	docs, err := s.ListDocuments(context.Background(), DocumentFilter{Limit: 50})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, model.StatusPartial, docs[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
