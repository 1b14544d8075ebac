package repository

import (
	"context"
	"database/sql"

	"github.com/maheshrc27/tupae-api/internal/models"
	"go.uber.org/zap"
)

type PostingHistoryRepository interface {
	Create(ctx context.Context, ph *models.PostingHistory) (int64, error)
	GetByPostID(ctx context.Context, postID string) ([]*models.PostingHistory, error)
}

type postingHistoryRepository struct {
	db *sql.DB
}

func NewPostingHistoryRepository(db *sql.DB) PostingHistoryRepository {
	return &postingHistoryRepository{db: db}
}

func (r *postingHistoryRepository) Create(ctx context.Context, ph *models.PostingHistory) (int64, error) {
	query := `
		INSERT INTO posting_history (user_id, post_id, platform, account_id, external_post_id, error_message)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query, ph.UserID, ph.PostID, string(ph.Platform), ph.AccountID,
		ph.ExternalPostID, ph.ErrorMessage).Scan(&id)
	if err != nil {
		zap.S().Infow("insert posting history failed", "post_id", ph.PostID, "error", err)
		return 0, err
	}

	return id, nil
}

func (r *postingHistoryRepository) GetByPostID(ctx context.Context, postID string) ([]*models.PostingHistory, error) {
	query := `
		SELECT id, user_id, post_id, platform, account_id, external_post_id, error_message, created_at
		FROM posting_history
		WHERE post_id = $1
		ORDER BY created_at
	`
	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		zap.S().Infow("list posting history failed", "post_id", postID, "error", err)
		return nil, err
	}
	defer rows.Close()

	var phs []*models.PostingHistory
	for rows.Next() {
		var (
			ph       models.PostingHistory
			platform string
		)
		err := rows.Scan(&ph.ID, &ph.UserID, &ph.PostID, &platform, &ph.AccountID, &ph.ExternalPostID,
			&ph.ErrorMessage, &ph.CreatedAt)
		if err != nil {
			zap.S().Infow("scan posting history failed", "error", err)
			return nil, err
		}
		ph.Platform = models.Platform(platform)
		phs = append(phs, &ph)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return phs, nil
}
