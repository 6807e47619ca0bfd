package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/nikahsufiyana/nikah-backend/internal/database"
	"github.com/nikahsufiyana/nikah-backend/internal/models"
)

// CreateAccount inserts a member credential row. username must already be
// normalized. A taken username is ErrAlreadyExists.
func CreateAccount(ctx context.Context, username, passwordHash string) (*models.Account, error) {
	acc := &models.Account{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
		IsActive:     true,
	}
	_, err := database.PostgresDB.ExecContext(ctx, `
		INSERT INTO users (id, username, password_hash, created_at, is_active)
		VALUES ($1, $2, $3, $4, TRUE)
	`, acc.ID, acc.Username, acc.PasswordHash, acc.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, fmt.Errorf("username %s: %w", username, ErrAlreadyExists)
		}
		return nil, err
	}
	return acc, nil
}

// DeleteAccount removes a credential row; used to undo a signup whose
// profile write failed.
func DeleteAccount(ctx context.Context, id string) error {
	_, err := database.PostgresDB.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	return err
}

// GetAccountByUsername looks up an active or inactive member by normalized
// username.
func GetAccountByUsername(ctx context.Context, username string) (*models.Account, error) {
	var acc models.Account
	err := database.PostgresDB.QueryRowContext(ctx, `
		SELECT id, username, password_hash, created_at, is_active
		FROM users WHERE LOWER(username) = $1
	`, username).Scan(&acc.ID, &acc.Username, &acc.PasswordHash, &acc.CreatedAt, &acc.IsActive)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("account %s: %w", username, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

// ListAccounts pages through members, newest first, for the admin console.
func ListAccounts(ctx context.Context, limit, offset int) ([]models.Account, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := database.PostgresDB.QueryContext(ctx, `
		SELECT id, username, created_at, is_active
		FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Account
	for rows.Next() {
		var acc models.Account
		if err := rows.Scan(&acc.ID, &acc.Username, &acc.CreatedAt, &acc.IsActive); err != nil {
			return nil, err
		}
		out = append(out, acc)
	}
	return out, rows.Err()
}

// AdminAccount is an operator credential row.
type AdminAccount struct {
	ID           string
	Username     string
	PasswordHash string
	IsActive     bool
}

func GetAdminByUsername(ctx context.Context, username string) (*AdminAccount, error) {
	var a AdminAccount
	err := database.PostgresDB.QueryRowContext(ctx, `
		SELECT id, username, password_hash, is_active
		FROM admins WHERE username = $1
	`, username).Scan(&a.ID, &a.Username, &a.PasswordHash, &a.IsActive)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("admin %s: %w", username, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}
