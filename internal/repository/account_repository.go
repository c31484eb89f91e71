package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/quillpub/quillpub/internal/models"
)

type AccountRepository interface {
	GetByID(ctx context.Context, id string) (*models.Account, error)
	GetByUsername(ctx context.Context, username string) (*models.Account, error)
}

type accountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) AccountRepository {
	return &accountRepository{db: db}
}

const accountColumns = `id, username, old_username, username_changed, name, bio_html, locale, created_at, updated_at`

func scanAccount(row *sql.Row) (*models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.Username, &a.OldUsername, &a.UsernameChanged, &a.Name, &a.BioHTML, &a.Locale, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return &a, nil
}

func (r *accountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccount(r.db.QueryRowContext(ctx, query, id))
}

// GetByUsername resolves the current username first. If nothing
// matches it falls back to the most recently vacated old username, so
// links minted before a rename keep working.
func (r *accountRepository) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE username = $1`
	account, err := scanAccount(r.db.QueryRowContext(ctx, query, username))
	if err != nil || account != nil {
		return account, err
	}

	query = `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE old_username = $1 AND username_changed IS NOT NULL
		ORDER BY username_changed DESC
		LIMIT 1
	`
	return scanAccount(r.db.QueryRowContext(ctx, query, username))
}
