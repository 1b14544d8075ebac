package repository

import (
	"context"
	"testing"
	"time"

	"github.com/maheshrc27/tupae-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func seedPost(t *testing.T, repo PostRepository, id string, userID int64, status models.PostStatus, offset time.Duration, mutate func(*models.Post)) *models.Post {
	t.Helper()
	p := &models.Post{
		ID:        id,
		UserID:    userID,
		Content:   "content of " + id,
		Status:    status,
		Platforms: []models.PlatformTarget{{Platform: models.PlatformInstagram, Status: models.TargetStatusPending}},
		CreatedAt: baseTime.Add(offset),
		UpdatedAt: baseTime.Add(offset),
	}
	if mutate != nil {
		mutate(p)
	}
	require.NoError(t, repo.Create(context.Background(), p))
	return p
}

func TestMemoryPostRepository_GetReturnsCopy(t *testing.T) {
	repo := NewMemoryPostRepository()
	ctx := context.Background()
	seedPost(t, repo, "a", 1, models.PostStatusDraft, 0, nil)

	got, err := repo.GetByID(ctx, "a")
	require.NoError(t, err)
	got.Content = "changed"
	got.Platforms[0].Status = models.TargetStatusFailed

	again, err := repo.GetByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "content of a", again.Content)
	assert.Equal(t, models.TargetStatusPending, again.Platforms[0].Status)

	missing, err := repo.GetByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMemoryPostRepository_UpdateKeepsAnalytics(t *testing.T) {
	repo := NewMemoryPostRepository()
	ctx := context.Background()
	p := seedPost(t, repo, "a", 1, models.PostStatusDraft, 0, nil)

	require.NoError(t, repo.UpdateAnalytics(ctx, "a", models.PostAnalytics{Likes: 5}))

	p.Content = "edited"
	p.Analytics = models.PostAnalytics{}
	require.NoError(t, repo.Update(ctx, p))

	got, err := repo.GetByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "edited", got.Content)
	assert.Equal(t, int64(5), got.Analytics.Likes)

	assert.ErrorIs(t, repo.Update(ctx, &models.Post{ID: "nope"}), ErrNotFound)
	assert.ErrorIs(t, repo.UpdateAnalytics(ctx, "nope", models.PostAnalytics{}), ErrNotFound)
	assert.ErrorIs(t, repo.Remove(ctx, "nope"), ErrNotFound)
}

func TestMemoryPostRepository_ListFiltersAndOrders(t *testing.T) {
	repo := NewMemoryPostRepository()
	ctx := context.Background()

	seedPost(t, repo, "draft", 1, models.PostStatusDraft, time.Minute, func(p *models.Post) {
		p.Tags = []string{"Launch"}
	})
	seedPost(t, repo, "scheduled", 1, models.PostStatusScheduled, 2*time.Minute, func(p *models.Post) {
		p.Platforms = []models.PlatformTarget{{Platform: models.PlatformTwitter, Status: models.TargetStatusScheduled}}
	})
	seedPost(t, repo, "published", 1, models.PostStatusPublished, 3*time.Minute, func(p *models.Post) {
		p.Title = "Big LAUNCH"
	})
	seedPost(t, repo, "other-user", 2, models.PostStatusScheduled, 4*time.Minute, nil)

	posts, total, err := repo.List(ctx, PostQuery{UserID: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, posts, 3)
	assert.Equal(t, []string{"published", "scheduled", "draft"}, []string{posts[0].ID, posts[1].ID, posts[2].ID})

	posts, total, err = repo.List(ctx, PostQuery{UserID: 1, Status: "scheduled", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, posts, 1)
	assert.Equal(t, "scheduled", posts[0].ID)

	posts, _, err = repo.List(ctx, PostQuery{UserID: 1, Platform: "twitter", Limit: 10})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "scheduled", posts[0].ID)

	posts, total, err = repo.List(ctx, PostQuery{UserID: 1, Search: "launch", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, posts, 2)

	posts, total, err = repo.List(ctx, PostQuery{UserID: 1, Offset: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, posts, 1)
	assert.Equal(t, "draft", posts[0].ID)
}

func TestMemoryPostRepository_StatsByStatus(t *testing.T) {
	repo := NewMemoryPostRepository()
	ctx := context.Background()

	seedPost(t, repo, "a", 1, models.PostStatusPublished, 0, func(p *models.Post) {
		p.Analytics = models.PostAnalytics{Engagement: 10, Reach: 100, Impressions: 200}
	})
	seedPost(t, repo, "b", 1, models.PostStatusPublished, time.Hour, func(p *models.Post) {
		p.Analytics = models.PostAnalytics{Engagement: 5, Reach: 50, Impressions: 60}
	})
	seedPost(t, repo, "c", 1, models.PostStatusDraft, 48*time.Hour, nil)
	seedPost(t, repo, "d", 2, models.PostStatusDraft, 0, nil)

	stats, err := repo.StatsByStatus(ctx, 1, nil, nil)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, models.StatusStats{Status: models.PostStatusDraft, Count: 1}, stats[0])
	assert.Equal(t, models.StatusStats{
		Status: models.PostStatusPublished, Count: 2, TotalEngagement: 15, TotalReach: 150, TotalImpressions: 260,
	}, stats[1])

	from, to := baseTime, baseTime.Add(2*time.Hour)
	stats, err = repo.StatsByStatus(ctx, 1, &from, &to)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, int64(2), stats[0].Count)
}

func TestMemoryPostRepository_ListDue(t *testing.T) {
	repo := NewMemoryPostRepository()
	ctx := context.Background()
	now := baseTime.Add(time.Hour)

	schedule := func(at time.Time) func(*models.Post) {
		return func(p *models.Post) { p.ScheduledFor = &at }
	}
	seedPost(t, repo, "late", 1, models.PostStatusScheduled, 0, schedule(now.Add(-time.Minute)))
	seedPost(t, repo, "early", 1, models.PostStatusScheduled, 0, schedule(now.Add(-time.Hour)))
	seedPost(t, repo, "future", 1, models.PostStatusScheduled, 0, schedule(now.Add(time.Hour)))
	seedPost(t, repo, "draft", 1, models.PostStatusDraft, 0, schedule(now.Add(-time.Hour)))

	due, err := repo.ListDue(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, "early", due[0].ID)
	assert.Equal(t, "late", due[1].ID)

	due, err = repo.ListDue(ctx, now, 1)
	require.NoError(t, err)
	assert.Len(t, due, 1)
}

func TestMemoryPostRepository_ListClampsOffset(t *testing.T) {
	repo := NewMemoryPostRepository()
	seedPost(t, repo, "a", 1, models.PostStatusDraft, 0, nil)
	seedPost(t, repo, "b", 1, models.PostStatusDraft, time.Minute, nil)

	posts, total, err := repo.List(context.Background(), PostQuery{UserID: 1, Offset: -5, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, posts, 1)
	assert.Equal(t, "b", posts[0].ID)

	posts, _, err = repo.List(context.Background(), PostQuery{UserID: 1, Offset: 10, Limit: 1})
	require.NoError(t, err)
	assert.Empty(t, posts)
}
