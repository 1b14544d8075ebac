package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/maheshrc27/tupae-api/internal/models"
	"go.uber.org/zap"
)

var ErrNotFound = errors.New("record not found")

// PostQuery selects a page of one user's posts. Filters combine with AND.
type PostQuery struct {
	UserID   int64
	Status   string
	Platform string
	Search   string
	Offset   int
	Limit    int
}

// TopPostsQuery selects one user's posts by engagement. The published range
// applies only when both ends are set.
type TopPostsQuery struct {
	UserID        int64
	Platform      string
	PublishedFrom *time.Time
	PublishedTo   *time.Time
	Limit         int
}

// PostRepository stores post documents. GetByID returns nil, nil for a
// missing post; Update, UpdateAnalytics and Remove return ErrNotFound.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id string) (*models.Post, error)
	Update(ctx context.Context, post *models.Post) error
	UpdateAnalytics(ctx context.Context, id string, analytics models.PostAnalytics) error
	Remove(ctx context.Context, id string) error
	List(ctx context.Context, q PostQuery) ([]*models.Post, int64, error)
	StatsByStatus(ctx context.Context, userID int64, from, to *time.Time) ([]models.StatusStats, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]*models.Post, error)
	// TopPosts orders by analytics.engagement, highest first.
	TopPosts(ctx context.Context, q TopPostsQuery) ([]*models.Post, error)
}

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

const postColumns = `id, user_id, title, content, media, platforms, status, scheduled_for, published_at,
	tags, category, is_story, analytics, settings, metadata, created_at, updated_at`

// JSONB values are passed as strings; lib/pq would send []byte as bytea.
type postDocuments struct {
	media     string
	platforms string
	analytics string
	settings  any
	metadata  string
}

func encodePost(post *models.Post) (*postDocuments, error) {
	var docs postDocuments

	media := post.Media
	if media == nil {
		media = []models.Media{}
	}
	raw, err := json.Marshal(media)
	if err != nil {
		return nil, fmt.Errorf("encode media: %w", err)
	}
	docs.media = string(raw)

	platforms := post.Platforms
	if platforms == nil {
		platforms = []models.PlatformTarget{}
	}
	if raw, err = json.Marshal(platforms); err != nil {
		return nil, fmt.Errorf("encode platforms: %w", err)
	}
	docs.platforms = string(raw)

	if raw, err = json.Marshal(post.Analytics); err != nil {
		return nil, fmt.Errorf("encode analytics: %w", err)
	}
	docs.analytics = string(raw)

	if raw, err = json.Marshal(post.Metadata); err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	docs.metadata = string(raw)

	if post.Settings != nil {
		if raw, err = json.Marshal(post.Settings); err != nil {
			return nil, fmt.Errorf("encode settings: %w", err)
		}
		docs.settings = string(raw)
	}
	return &docs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*models.Post, error) {
	var (
		post                                  models.Post
		status                                string
		media, platforms, analytics, metadata []byte
		settings                              []byte
		scheduledFor, publishedAt             sql.NullTime
		tags                                  pq.StringArray
	)

	err := row.Scan(&post.ID, &post.UserID, &post.Title, &post.Content, &media, &platforms, &status,
		&scheduledFor, &publishedAt, &tags, &post.Category, &post.IsStory, &analytics, &settings,
		&metadata, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return nil, err
	}

	post.Status = models.PostStatus(status)
	post.Tags = []string(tags)
	if scheduledFor.Valid {
		at := scheduledFor.Time
		post.ScheduledFor = &at
	}
	if publishedAt.Valid {
		at := publishedAt.Time
		post.PublishedAt = &at
	}

	if err := json.Unmarshal(media, &post.Media); err != nil {
		return nil, fmt.Errorf("decode media: %w", err)
	}
	if err := json.Unmarshal(platforms, &post.Platforms); err != nil {
		return nil, fmt.Errorf("decode platforms: %w", err)
	}
	if err := json.Unmarshal(analytics, &post.Analytics); err != nil {
		return nil, fmt.Errorf("decode analytics: %w", err)
	}
	if err := json.Unmarshal(metadata, &post.Metadata); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	if len(settings) > 0 {
		post.Settings = &models.PostSettings{}
		if err := json.Unmarshal(settings, post.Settings); err != nil {
			return nil, fmt.Errorf("decode settings: %w", err)
		}
	}

	return &post, nil
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	docs, err := encodePost(post)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO posts (` + postColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	_, err = r.db.ExecContext(ctx, query,
		post.ID, post.UserID, post.Title, post.Content, docs.media, docs.platforms, string(post.Status),
		post.ScheduledFor, post.PublishedAt, pq.Array(post.Tags), post.Category, post.IsStory,
		docs.analytics, docs.settings, docs.metadata, post.CreatedAt, post.UpdatedAt)
	if err != nil {
		zap.S().Infow("insert post failed", "post_id", post.ID, "error", err)
		return err
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`

	post, err := scanPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		zap.S().Infow("get post failed", "post_id", id, "error", err)
		return nil, err
	}
	return post, nil
}

func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	docs, err := encodePost(post)
	if err != nil {
		return err
	}

	query := `
		UPDATE posts
		SET title = $1,
			content = $2,
			media = $3,
			platforms = $4,
			status = $5,
			scheduled_for = $6,
			published_at = $7,
			tags = $8,
			category = $9,
			is_story = $10,
			settings = $11,
			metadata = $12,
			updated_at = $13
		WHERE id = $14
	`
	result, err := r.db.ExecContext(ctx, query,
		post.Title, post.Content, docs.media, docs.platforms, string(post.Status), post.ScheduledFor,
		post.PublishedAt, pq.Array(post.Tags), post.Category, post.IsStory, docs.settings, docs.metadata,
		post.UpdatedAt, post.ID)
	if err != nil {
		zap.S().Infow("update post failed", "post_id", post.ID, "error", err)
		return err
	}
	return requireAffected(result)
}

func (r *postRepository) UpdateAnalytics(ctx context.Context, id string, analytics models.PostAnalytics) error {
	doc, err := json.Marshal(analytics)
	if err != nil {
		return fmt.Errorf("encode analytics: %w", err)
	}

	query := `UPDATE posts SET analytics = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, string(doc), time.Now(), id)
	if err != nil {
		zap.S().Infow("update post analytics failed", "post_id", id, "error", err)
		return err
	}
	return requireAffected(result)
}

func (r *postRepository) Remove(ctx context.Context, id string) error {
	query := `DELETE FROM posts WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		zap.S().Infow("delete post failed", "post_id", id, "error", err)
		return err
	}
	return requireAffected(result)
}

func (r *postRepository) List(ctx context.Context, q PostQuery) ([]*models.Post, int64, error) {
	where, args := postFilterClause(q)

	var total int64
	countQuery := `SELECT COUNT(*) FROM posts WHERE ` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		zap.S().Infow("count posts failed", "user_id", q.UserID, "error", err)
		return nil, 0, err
	}

	args = append(args, q.Limit, q.Offset)
	query := fmt.Sprintf(`SELECT %s FROM posts WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		postColumns, where, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		zap.S().Infow("list posts failed", "user_id", q.UserID, "error", err)
		return nil, 0, err
	}
	defer rows.Close()

	posts, err := collectPosts(rows)
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

func (r *postRepository) StatsByStatus(ctx context.Context, userID int64, from, to *time.Time) ([]models.StatusStats, error) {
	args := []any{userID}
	where := "user_id = $1"
	if from != nil && to != nil {
		args = append(args, *from, *to)
		where += " AND created_at >= $2 AND created_at <= $3"
	}

	query := `
		SELECT status,
			COUNT(*),
			COALESCE(SUM((analytics->>'engagement')::BIGINT), 0),
			COALESCE(SUM((analytics->>'reach')::BIGINT), 0),
			COALESCE(SUM((analytics->>'impressions')::BIGINT), 0)
		FROM posts
		WHERE ` + where + `
		GROUP BY status
		ORDER BY status
	`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		zap.S().Infow("post stats failed", "user_id", userID, "error", err)
		return nil, err
	}
	defer rows.Close()

	var stats []models.StatusStats
	for rows.Next() {
		var s models.StatusStats
		var status string
		if err := rows.Scan(&status, &s.Count, &s.TotalEngagement, &s.TotalReach, &s.TotalImpressions); err != nil {
			zap.S().Infow("scan post stats failed", "error", err)
			return nil, err
		}
		s.Status = models.PostStatus(status)
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *postRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + `
		FROM posts
		WHERE status = $1 AND scheduled_for <= $2
		ORDER BY scheduled_for
		LIMIT $3`

	rows, err := r.db.QueryContext(ctx, query, string(models.PostStatusScheduled), now, limit)
	if err != nil {
		zap.S().Infow("list due posts failed", "error", err)
		return nil, err
	}
	defer rows.Close()

	return collectPosts(rows)
}

func (r *postRepository) TopPosts(ctx context.Context, q TopPostsQuery) ([]*models.Post, error) {
	where, args := topPostsClause(q)
	args = append(args, q.Limit)
	query := fmt.Sprintf(`SELECT %s FROM posts WHERE %s
		ORDER BY COALESCE((analytics->>'engagement')::BIGINT, 0) DESC, created_at DESC
		LIMIT $%d`, postColumns, where, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		zap.S().Infow("top posts failed", "user_id", q.UserID, "error", err)
		return nil, err
	}
	defer rows.Close()

	return collectPosts(rows)
}

func collectPosts(rows *sql.Rows) ([]*models.Post, error) {
	var posts []*models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			zap.S().Infow("scan post failed", "error", err)
			return nil, err
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return posts, nil
}

func postFilterClause(q PostQuery) (string, []any) {
	clauses := []string{"user_id = $1"}
	args := []any{q.UserID}

	if q.Status != "" {
		args = append(args, q.Status)
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}
	if q.Platform != "" {
		doc, _ := json.Marshal([]map[string]string{{"platform": q.Platform}})
		args = append(args, string(doc))
		clauses = append(clauses, fmt.Sprintf("platforms @> $%d::jsonb", len(args)))
	}
	if q.Search != "" {
		args = append(args, "%"+escapeLike(q.Search)+"%")
		clauses = append(clauses, fmt.Sprintf(
			"(title ILIKE $%[1]d OR content ILIKE $%[1]d OR EXISTS (SELECT 1 FROM unnest(tags) AS tag WHERE tag ILIKE $%[1]d))",
			len(args)))
	}

	return strings.Join(clauses, " AND "), args
}

func topPostsClause(q TopPostsQuery) (string, []any) {
	where, args := postFilterClause(PostQuery{UserID: q.UserID, Platform: q.Platform})
	if q.PublishedFrom != nil && q.PublishedTo != nil {
		args = append(args, *q.PublishedFrom, *q.PublishedTo)
		where += fmt.Sprintf(" AND published_at >= $%d AND published_at <= $%d", len(args)-1, len(args))
	}
	return where, args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
