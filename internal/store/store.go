package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/bluereef-labs/mpagent/internal/model"
)

// ErrNotFound is returned when a document or result does not exist.
var ErrNotFound = eris.New("store: not found")

// ErrInvalidTransition is returned when a status update would move a
// document backward or out of a terminal state.
var ErrInvalidTransition = eris.New("store: invalid status transition")

// DocumentFilter specifies criteria for listing documents.
type DocumentFilter struct {
	Status model.DocumentStatus `json:"status,omitempty"`
	Limit  int                  `json:"limit,omitempty"`
	Offset int                  `json:"offset,omitempty"`
}

// Store defines the persistence interface for the analysis pipeline.
// Results are append-only: PutResult may supersede a previous result for
// the same document, but individual records inside a stored result are
// never mutated.
type Store interface {
	// Documents. Status updates enforce the forward-only lifecycle and
	// return ErrInvalidTransition on a backward or terminal-state move.
	CreateDocument(ctx context.Context, doc model.Document) (*model.Document, error)
	UpdateDocumentStatus(ctx context.Context, docID string, status model.DocumentStatus) error
	UpdateDocumentPages(ctx context.Context, docID string, pages []model.PageText) error
	GetDocument(ctx context.Context, docID string) (*model.Document, error)
	ListDocuments(ctx context.Context, filter DocumentFilter) ([]model.Document, error)

	// Results
	PutResult(ctx context.Context, docID string, result *model.AnalysisResult) error
	GetResult(ctx context.Context, docID string) (*model.AnalysisResult, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
