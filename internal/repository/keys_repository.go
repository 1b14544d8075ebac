package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/maheshrc27/tupae-api/internal/models"
	"go.uber.org/zap"
)

type ApiKeyRepository interface {
	GetUserIDByKey(ctx context.Context, apiKey string) (int64, bool, error)
	GetByUserID(ctx context.Context, userID int64) ([]*models.ApiKey, error)
	Create(ctx context.Context, apiKey *models.ApiKey) (int64, error)
	TouchLastUsed(ctx context.Context, apiKey string, at time.Time) error
	RemoveForUser(ctx context.Context, keyID, userID int64) error
}

type apiKeyRepository struct {
	db *sql.DB
}

func NewApiKeyRepository(db *sql.DB) ApiKeyRepository {
	return &apiKeyRepository{db: db}
}

func (r *apiKeyRepository) GetUserIDByKey(ctx context.Context, apiKey string) (int64, bool, error) {
	var userID int64
	query := "SELECT user_id FROM api_keys WHERE api_key = $1"
	err := r.db.QueryRowContext(ctx, query, apiKey).Scan(&userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		zap.S().Infow("get api key failed", "error", err)
		return 0, false, err
	}
	return userID, true, nil
}

func (r *apiKeyRepository) GetByUserID(ctx context.Context, userID int64) ([]*models.ApiKey, error) {
	query := `
		SELECT id, user_id, name, api_key, last_used_at, created_at
		FROM api_keys
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		zap.S().Infow("list api keys failed", "user_id", userID, "error", err)
		return nil, err
	}
	defer rows.Close()

	var apiKeys []*models.ApiKey
	for rows.Next() {
		var (
			apiKey   models.ApiKey
			lastUsed sql.NullTime
		)
		err := rows.Scan(&apiKey.ID, &apiKey.UserID, &apiKey.Name, &apiKey.Key, &lastUsed, &apiKey.CreatedAt)
		if err != nil {
			zap.S().Infow("scan api key failed", "error", err)
			return nil, err
		}
		if lastUsed.Valid {
			at := lastUsed.Time
			apiKey.LastUsedAt = &at
		}
		apiKeys = append(apiKeys, &apiKey)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return apiKeys, nil
}

func (r *apiKeyRepository) Create(ctx context.Context, apiKey *models.ApiKey) (int64, error) {
	query := "INSERT INTO api_keys (user_id, name, api_key) VALUES ($1, $2, $3) RETURNING id"
	var id int64
	err := r.db.QueryRowContext(ctx, query, apiKey.UserID, apiKey.Name, apiKey.Key).Scan(&id)
	if err != nil {
		zap.S().Infow("insert api key failed", "user_id", apiKey.UserID, "error", err)
		return 0, err
	}
	return id, nil
}

func (r *apiKeyRepository) TouchLastUsed(ctx context.Context, apiKey string, at time.Time) error {
	query := "UPDATE api_keys SET last_used_at = $1 WHERE api_key = $2"
	if _, err := r.db.ExecContext(ctx, query, at, apiKey); err != nil {
		zap.S().Infow("touch api key failed", "error", err)
		return err
	}
	return nil
}

// RemoveForUser deletes a key only when it belongs to userID.
func (r *apiKeyRepository) RemoveForUser(ctx context.Context, keyID, userID int64) error {
	query := `DELETE FROM api_keys WHERE id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, keyID, userID)
	if err != nil {
		zap.S().Infow("delete api key failed", "key_id", keyID, "error", err)
		return err
	}
	return requireAffected(result)
}
