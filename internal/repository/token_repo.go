package repository

import (
	"context"
	"database/sql"
	"errors"

	"voltgate/internal/models"
)

// TokenRepository reads identification tokens. Token lifecycle is owned by
// the administrative surface; the gateway never writes this table.
type TokenRepository struct {
	db *sql.DB
}

// NewTokenRepository returns repository.
func NewTokenRepository(db *sql.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// FindByIDTag returns the token for an idTag, or nil when unknown.
func (r *TokenRepository) FindByIDTag(ctx context.Context, idTag string) (*models.Token, error) {
	const query = `
		SELECT id_tag, status, valid_from, valid_to, issuer, owner, notes, created_at, updated_at
		FROM auth_tokens
		WHERE id_tag = $1
	`
	var t models.Token
	err := r.db.QueryRowContext(ctx, query, idTag).Scan(
		&t.IDTag,
		&t.Status,
		&t.ValidFrom,
		&t.ValidTo,
		&t.Issuer,
		&t.Owner,
		&t.Notes,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}
