package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/maheshrc27/tupae-api/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const postsCollection = "posts"

type mongoPostRepository struct {
	posts *mongo.Collection
}

// NewMongoPostRepository stores posts as documents in the "posts" collection
// of db.
func NewMongoPostRepository(db *mongo.Database) PostRepository {
	return &mongoPostRepository{posts: db.Collection(postsCollection)}
}

// ConnectMongo opens a client and checks it with a ping.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	if uri == "" {
		return nil, errors.New("mongo connection uri is empty")
	}

	opts := options.Client().ApplyURI(uri).
		SetMaxPoolSize(50).
		SetConnectTimeout(5 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

// EnsurePostIndexes creates the indexes used by listing, stats and the due
// sweep. Existing indexes with the same keys are left alone.
func EnsurePostIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("post_user_created"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().SetName("post_user_status"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "scheduled_for", Value: 1}},
			Options: options.Index().SetName("post_status_scheduled_for"),
		},
		{
			Keys:    bson.D{{Key: "platforms.platform", Value: 1}},
			Options: options.Index().SetName("post_platforms"),
		},
		{
			Keys:    bson.D{{Key: "tags", Value: 1}},
			Options: options.Index().SetName("post_tags"),
		},
	}

	_, err := db.Collection(postsCollection).Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("create post indexes: %w", err)
	}
	return nil
}

func (r *mongoPostRepository) Create(ctx context.Context, post *models.Post) error {
	if _, err := r.posts.InsertOne(ctx, post); err != nil {
		zap.S().Infow("insert post failed", "post_id", post.ID, "error", err)
		return err
	}
	return nil
}

func (r *mongoPostRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	err := r.posts.FindOne(ctx, bson.M{"_id": id}).Decode(&post)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		zap.S().Infow("get post failed", "post_id", id, "error", err)
		return nil, err
	}
	return &post, nil
}

// Update rewrites everything but the owner, the creation time and the
// analytics snapshot, which has its own writer.
func (r *mongoPostRepository) Update(ctx context.Context, post *models.Post) error {
	set := bson.M{
		"title":         post.Title,
		"content":       post.Content,
		"media":         post.Media,
		"platforms":     post.Platforms,
		"status":        post.Status,
		"scheduled_for": post.ScheduledFor,
		"published_at":  post.PublishedAt,
		"tags":          post.Tags,
		"category":      post.Category,
		"is_story":      post.IsStory,
		"settings":      post.Settings,
		"metadata":      post.Metadata,
		"updated_at":    post.UpdatedAt,
	}

	result, err := r.posts.UpdateOne(ctx, bson.M{"_id": post.ID}, bson.M{"$set": set})
	if err != nil {
		zap.S().Infow("update post failed", "post_id", post.ID, "error", err)
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoPostRepository) UpdateAnalytics(ctx context.Context, id string, analytics models.PostAnalytics) error {
	update := bson.M{"$set": bson.M{"analytics": analytics, "updated_at": time.Now()}}

	result, err := r.posts.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		zap.S().Infow("update post analytics failed", "post_id", id, "error", err)
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoPostRepository) Remove(ctx context.Context, id string) error {
	result, err := r.posts.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		zap.S().Infow("delete post failed", "post_id", id, "error", err)
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoPostRepository) List(ctx context.Context, q PostQuery) ([]*models.Post, int64, error) {
	filter := mongoPostFilter(q)

	total, err := r.posts.CountDocuments(ctx, filter)
	if err != nil {
		zap.S().Infow("count posts failed", "user_id", q.UserID, "error", err)
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64(q.Offset)).
		SetLimit(int64(q.Limit))

	cursor, err := r.posts.Find(ctx, filter, opts)
	if err != nil {
		zap.S().Infow("list posts failed", "user_id", q.UserID, "error", err)
		return nil, 0, err
	}

	var posts []*models.Post
	if err := cursor.All(ctx, &posts); err != nil {
		zap.S().Infow("decode posts failed", "user_id", q.UserID, "error", err)
		return nil, 0, err
	}
	return posts, total, nil
}

func (r *mongoPostRepository) StatsByStatus(ctx context.Context, userID int64, from, to *time.Time) ([]models.StatusStats, error) {
	match := bson.M{"user_id": userID}
	if from != nil && to != nil {
		match["created_at"] = bson.M{"$gte": *from, "$lte": *to}
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{
			"_id":               "$status",
			"count":             bson.M{"$sum": 1},
			"total_engagement":  bson.M{"$sum": "$analytics.engagement"},
			"total_reach":       bson.M{"$sum": "$analytics.reach"},
			"total_impressions": bson.M{"$sum": "$analytics.impressions"},
		}}},
		{{Key: "$sort", Value: bson.M{"_id": 1}}},
	}

	cursor, err := r.posts.Aggregate(ctx, pipeline)
	if err != nil {
		zap.S().Infow("post stats failed", "user_id", userID, "error", err)
		return nil, err
	}

	var stats []models.StatusStats
	if err := cursor.All(ctx, &stats); err != nil {
		zap.S().Infow("decode post stats failed", "user_id", userID, "error", err)
		return nil, err
	}
	return stats, nil
}

func (r *mongoPostRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.Post, error) {
	filter := bson.M{
		"status":        models.PostStatusScheduled,
		"scheduled_for": bson.M{"$lte": now},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "scheduled_for", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := r.posts.Find(ctx, filter, opts)
	if err != nil {
		zap.S().Infow("list due posts failed", "error", err)
		return nil, err
	}

	var posts []*models.Post
	if err := cursor.All(ctx, &posts); err != nil {
		zap.S().Infow("decode due posts failed", "error", err)
		return nil, err
	}
	return posts, nil
}

func (r *mongoPostRepository) TopPosts(ctx context.Context, q TopPostsQuery) ([]*models.Post, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "analytics.engagement", Value: -1}, {Key: "created_at", Value: -1}}).
		SetLimit(int64(q.Limit))

	cursor, err := r.posts.Find(ctx, mongoTopPostsFilter(q), opts)
	if err != nil {
		zap.S().Infow("top posts failed", "user_id", q.UserID, "error", err)
		return nil, err
	}

	var posts []*models.Post
	if err := cursor.All(ctx, &posts); err != nil {
		zap.S().Infow("decode top posts failed", "user_id", q.UserID, "error", err)
		return nil, err
	}
	return posts, nil
}

func mongoTopPostsFilter(q TopPostsQuery) bson.M {
	filter := mongoPostFilter(PostQuery{UserID: q.UserID, Platform: q.Platform})
	if q.PublishedFrom != nil && q.PublishedTo != nil {
		filter["published_at"] = bson.M{"$gte": *q.PublishedFrom, "$lte": *q.PublishedTo}
	}
	return filter
}

func mongoPostFilter(q PostQuery) bson.M {
	filter := bson.M{"user_id": q.UserID}
	if q.Status != "" {
		filter["status"] = q.Status
	}
	if q.Platform != "" {
		filter["platforms.platform"] = q.Platform
	}
	if q.Search != "" {
		pattern := caseInsensitive(q.Search)
		filter["$or"] = bson.A{
			bson.M{"title": pattern},
			bson.M{"content": pattern},
			bson.M{"tags": pattern},
		}
	}
	return filter
}

func caseInsensitive(search string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(search), "$options": "i"}
}
