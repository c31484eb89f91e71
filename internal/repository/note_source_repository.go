package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/lib/pq"
	"github.com/quillpub/quillpub/internal/models"
	"github.com/quillpub/quillpub/internal/transfer"
)

type NoteSourceRepository interface {
	Create(ctx context.Context, source *models.NoteSource) (*models.NoteSource, error)
	Update(ctx context.Context, id string, patch *transfer.NoteSourcePatch) (*models.NoteSource, error)
	GetByID(ctx context.Context, id string) (*models.NoteSource, error)
	GetByAccountAndID(ctx context.Context, accountID, id string) (*models.NoteSource, error)
}

type noteSourceRepository struct {
	db *sql.DB
}

func NewNoteSourceRepository(db *sql.DB) NoteSourceRepository {
	return &noteSourceRepository{db: db}
}

const noteSourceColumns = `id, account_id, content, tags, visibility, language, created_at, updated_at`

func scanNoteSource(row *sql.Row) (*models.NoteSource, error) {
	var ns models.NoteSource
	err := row.Scan(&ns.ID, &ns.AccountID, &ns.Content, pq.Array(&ns.Tags), &ns.Visibility, &ns.Language, &ns.CreatedAt, &ns.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return &ns, nil
}

// Create inserts the source. A duplicate identifier is swallowed by
// ON CONFLICT DO NOTHING and reported as (nil, nil), which keeps
// creation idempotent under client retries.
func (r *noteSourceRepository) Create(ctx context.Context, source *models.NoteSource) (*models.NoteSource, error) {
	query := `
		INSERT INTO note_sources (id, account_id, content, tags, visibility, language)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
		RETURNING ` + noteSourceColumns + `
	`
	row := r.db.QueryRowContext(ctx, query,
		source.ID, source.AccountID, source.Content, pq.Array(source.Tags), source.Visibility, source.Language)
	return scanNoteSource(row)
}

// Update merges the provided fields and stamps updated. No matching
// row yields (nil, nil).
func (r *noteSourceRepository) Update(ctx context.Context, id string, patch *transfer.NoteSourcePatch) (*models.NoteSource, error) {
	query := `
		UPDATE note_sources
		SET content = COALESCE($1, content),
			tags = COALESCE($2, tags),
			visibility = COALESCE($3, visibility),
			language = COALESCE($4, language),
			updated_at = now()
		WHERE id = $5
		RETURNING ` + noteSourceColumns + `
	`
	var tags interface{}
	if patch.Tags != nil {
		tags = pq.Array(patch.Tags)
	}
	row := r.db.QueryRowContext(ctx, query, patch.Content, tags, patch.Visibility, patch.Language, id)
	return scanNoteSource(row)
}

func (r *noteSourceRepository) GetByID(ctx context.Context, id string) (*models.NoteSource, error) {
	query := `SELECT ` + noteSourceColumns + ` FROM note_sources WHERE id = $1`
	return scanNoteSource(r.db.QueryRowContext(ctx, query, id))
}

func (r *noteSourceRepository) GetByAccountAndID(ctx context.Context, accountID, id string) (*models.NoteSource, error) {
	query := `SELECT ` + noteSourceColumns + ` FROM note_sources WHERE account_id = $1 AND id = $2`
	return scanNoteSource(r.db.QueryRowContext(ctx, query, accountID, id))
}
