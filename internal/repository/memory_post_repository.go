package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/maheshrc27/tupae-api/internal/models"
)

type memoryEntry struct {
	post *models.Post
	seq  int64
}

// memoryPostRepository keeps posts in process memory. Posts are cloned on the
// way in and out so callers never share state with the store.
type memoryPostRepository struct {
	mu    sync.RWMutex
	posts map[string]memoryEntry
	seq   int64
}

func NewMemoryPostRepository() PostRepository {
	return &memoryPostRepository{posts: make(map[string]memoryEntry)}
}

func (r *memoryPostRepository) Create(_ context.Context, post *models.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	r.posts[post.ID] = memoryEntry{post: post.Clone(), seq: r.seq}
	return nil
}

func (r *memoryPostRepository) GetByID(_ context.Context, id string) (*models.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.posts[id]
	if !ok {
		return nil, nil
	}
	return entry.post.Clone(), nil
}

func (r *memoryPostRepository) Update(_ context.Context, post *models.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.posts[post.ID]
	if !ok {
		return ErrNotFound
	}
	updated := post.Clone()
	updated.UserID = entry.post.UserID
	updated.CreatedAt = entry.post.CreatedAt
	updated.Analytics = entry.post.Analytics
	entry.post = updated
	r.posts[post.ID] = entry
	return nil
}

func (r *memoryPostRepository) UpdateAnalytics(_ context.Context, id string, analytics models.PostAnalytics) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.posts[id]
	if !ok {
		return ErrNotFound
	}
	entry.post.Analytics = analytics
	entry.post.UpdatedAt = time.Now()
	return nil
}

func (r *memoryPostRepository) Remove(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.posts[id]; !ok {
		return ErrNotFound
	}
	delete(r.posts, id)
	return nil
}

func (r *memoryPostRepository) List(_ context.Context, q PostQuery) ([]*models.Post, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []memoryEntry
	for _, entry := range r.posts {
		if matchesQuery(entry.post, q) {
			matched = append(matched, entry)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.post.CreatedAt.Equal(b.post.CreatedAt) {
			return a.post.CreatedAt.After(b.post.CreatedAt)
		}
		return a.seq > b.seq
	})

	total := int64(len(matched))
	start := max(0, min(q.Offset, len(matched)))
	end := len(matched)
	if q.Limit > 0 {
		end = min(start+q.Limit, len(matched))
	}

	posts := make([]*models.Post, 0, end-start)
	for _, entry := range matched[start:end] {
		posts = append(posts, entry.post.Clone())
	}
	return posts, total, nil
}

func (r *memoryPostRepository) StatsByStatus(_ context.Context, userID int64, from, to *time.Time) ([]models.StatusStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byStatus := make(map[models.PostStatus]*models.StatusStats)
	for _, entry := range r.posts {
		p := entry.post
		if p.UserID != userID {
			continue
		}
		if from != nil && to != nil && (p.CreatedAt.Before(*from) || p.CreatedAt.After(*to)) {
			continue
		}
		s, ok := byStatus[p.Status]
		if !ok {
			s = &models.StatusStats{Status: p.Status}
			byStatus[p.Status] = s
		}
		s.Count++
		s.TotalEngagement += p.Analytics.Engagement
		s.TotalReach += p.Analytics.Reach
		s.TotalImpressions += p.Analytics.Impressions
	}

	stats := make([]models.StatusStats, 0, len(byStatus))
	for _, s := range byStatus {
		stats = append(stats, *s)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Status < stats[j].Status })
	return stats, nil
}

func (r *memoryPostRepository) ListDue(_ context.Context, now time.Time, limit int) ([]*models.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var due []*models.Post
	for _, entry := range r.posts {
		p := entry.post
		if p.Status == models.PostStatusScheduled && p.ScheduledFor != nil && !p.ScheduledFor.After(now) {
			due = append(due, p.Clone())
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ScheduledFor.Before(*due[j].ScheduledFor) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (r *memoryPostRepository) TopPosts(_ context.Context, q TopPostsQuery) ([]*models.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []memoryEntry
	ranged := q.PublishedFrom != nil && q.PublishedTo != nil
	for _, entry := range r.posts {
		p := entry.post
		if !matchesQuery(p, PostQuery{UserID: q.UserID, Platform: q.Platform}) {
			continue
		}
		if ranged && (p.PublishedAt == nil || p.PublishedAt.Before(*q.PublishedFrom) || p.PublishedAt.After(*q.PublishedTo)) {
			continue
		}
		matched = append(matched, entry)
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if a.post.Analytics.Engagement != b.post.Analytics.Engagement {
			return a.post.Analytics.Engagement > b.post.Analytics.Engagement
		}
		if !a.post.CreatedAt.Equal(b.post.CreatedAt) {
			return a.post.CreatedAt.After(b.post.CreatedAt)
		}
		return a.seq > b.seq
	})
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}

	posts := make([]*models.Post, 0, len(matched))
	for _, entry := range matched {
		posts = append(posts, entry.post.Clone())
	}
	return posts, nil
}

func matchesQuery(p *models.Post, q PostQuery) bool {
	if p.UserID != q.UserID {
		return false
	}
	if q.Status != "" && string(p.Status) != q.Status {
		return false
	}
	if q.Platform != "" && p.Target(models.Platform(q.Platform)) == nil {
		return false
	}
	if q.Search != "" {
		needle := strings.ToLower(q.Search)
		if strings.Contains(strings.ToLower(p.Title), needle) || strings.Contains(strings.ToLower(p.Content), needle) {
			return true
		}
		for _, tag := range p.Tags {
			if strings.Contains(strings.ToLower(tag), needle) {
				return true
			}
		}
		return false
	}
	return true
}
