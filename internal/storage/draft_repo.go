package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_draft_store.go -package=mocks traffic-advisor-ai/internal/storage DraftStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")
)

// DraftStore defines the interface for draft storage operations.
type DraftStore interface {
	// Insert stores a draft and its citations. draft.ID must be set (UUID).
	Insert(ctx context.Context, draft *DraftRecord) error
	// GetByID gets a draft by its ID. Returns ErrNotFound if not found.
	GetByID(ctx context.Context, id string) (*DraftRecord, error)
	// ListRecent returns up to limit drafts, newest first, without citations.
	ListRecent(ctx context.Context, limit int) ([]*DraftRecord, error)
}

// DraftRepo provides methods for draft operations.
// It implements the DraftStore interface.
type DraftRepo struct {
	db *sql.DB
}

// NewDraftRepo creates a new DraftRepo.
func NewDraftRepo(db *sql.DB) *DraftRepo {
	return &DraftRepo{db: db}
}

// Insert stores a draft and its citations in one transaction.
func (r *DraftRepo) Insert(ctx context.Context, draft *DraftRecord) error {
	if draft.ID == "" {
		return fmt.Errorf("draft ID must be set")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO drafts (id, query, letter_ar, confidence, generator, reference_count) VALUES (?, ?, ?, ?, ?, ?)",
		draft.ID, draft.Query, draft.LetterAr, draft.Confidence, draft.Generator, draft.ReferenceCount,
	)
	if err != nil {
		return fmt.Errorf("failed to insert draft: %w", err)
	}

	for i, citation := range draft.Citations {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO draft_citations (draft_id, position, text) VALUES (?, ?, ?)",
			draft.ID, i, citation,
		)
		if err != nil {
			return fmt.Errorf("failed to insert citation %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit draft: %w", err)
	}
	return nil
}

// GetByID gets a draft and its citations by ID. Returns ErrNotFound if not found.
func (r *DraftRepo) GetByID(ctx context.Context, id string) (*DraftRecord, error) {
	var draft DraftRecord
	err := r.db.QueryRowContext(ctx,
		"SELECT id, query, letter_ar, confidence, generator, reference_count, created_at FROM drafts WHERE id = ?",
		id,
	).Scan(&draft.ID, &draft.Query, &draft.LetterAr, &draft.Confidence, &draft.Generator, &draft.ReferenceCount, &draft.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query draft: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT text FROM draft_citations WHERE draft_id = ? ORDER BY position",
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query citations: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	draft.Citations = []string{}
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, fmt.Errorf("failed to scan citation: %w", err)
		}
		draft.Citations = append(draft.Citations, text)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return &draft, nil
}

// ListRecent returns up to limit drafts, newest first. Citations are not loaded.
func (r *DraftRepo) ListRecent(ctx context.Context, limit int) ([]*DraftRecord, error) {
	if limit <= 0 {
		return []*DraftRecord{}, nil
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT id, query, letter_ar, confidence, generator, reference_count, created_at FROM drafts ORDER BY created_at DESC, rowid DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query drafts: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	drafts := []*DraftRecord{}
	for rows.Next() {
		var draft DraftRecord
		if err := rows.Scan(&draft.ID, &draft.Query, &draft.LetterAr, &draft.Confidence, &draft.Generator, &draft.ReferenceCount, &draft.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan draft: %w", err)
		}
		drafts = append(drafts, &draft)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return drafts, nil
}
