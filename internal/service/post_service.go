package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/maheshrc27/tupae-api/internal/metrics"
	"github.com/maheshrc27/tupae-api/internal/models"
	"github.com/maheshrc27/tupae-api/internal/repository"
	"github.com/maheshrc27/tupae-api/internal/transfer"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
	purgeBatch       = 100

	defaultMaxMediaFiles = 10
	defaultMaxMediaBytes = 10 * 1024 * 1024
)

type PostService interface {
	Create(ctx context.Context, userID int64, pc *transfer.PostCreation) (*models.Post, error)
	AttachMedia(ctx context.Context, postID string, userID int64, files []transfer.MediaFile) (*models.Post, error)
	Get(ctx context.Context, postID string, userID int64) (*models.Post, error)
	Edit(ctx context.Context, postID string, userID int64, pu *transfer.PostUpdate) (*models.Post, error)
	Schedule(ctx context.Context, postID string, userID int64, scheduledFor string) (*models.Post, error)
	PublishNow(ctx context.Context, postID string, userID int64) (*models.Post, error)
	Delete(ctx context.Context, postID string, userID int64) error
	List(ctx context.Context, userID int64, filter transfer.PostFilter) (*transfer.PostPage, error)
	StatsOverview(ctx context.Context, userID int64, startDate, endDate string) (*transfer.PostStats, error)
	TopPosts(ctx context.Context, userID int64, filter transfer.TopPostsFilter) ([]*models.Post, error)
	SyncAnalytics(ctx context.Context, postID string, userID int64, as *transfer.AnalyticsSync) (*models.Post, error)
	// RemoveAllForUser deletes every post of the user with its media and
	// returns how many were removed.
	RemoveAllForUser(ctx context.Context, userID int64) (int, error)

	// Dispatch side, not owner-gated.
	MarkPlatformPublished(ctx context.Context, postID string, platform models.Platform, externalPostID string) (*models.Post, error)
	MarkPlatformFailed(ctx context.Context, postID string, platform models.Platform, reason string) (*models.Post, error)
	DispatchScheduled(ctx context.Context, postID string, expectedAt time.Time) error
	EnqueueDue(ctx context.Context, limit int) (int, error)
	CleanupMedia(ctx context.Context, urls []string) error
}

// Scheduler arranges for DispatchScheduled to run at the given time.
type Scheduler interface {
	ScheduleDispatch(ctx context.Context, postID string, at time.Time) error
}

// CleanupQueue retries media deletions that failed while a post was removed
// or its media replaced.
type CleanupQueue interface {
	EnqueueMediaCleanup(ctx context.Context, postID string, urls []string) error
}

// StatsCache holds the undated stats overview per user.
type StatsCache interface {
	Get(ctx context.Context, userID int64) (*transfer.PostStats, bool)
	Set(ctx context.Context, userID int64, stats *transfer.PostStats)
	Invalidate(ctx context.Context, userID int64)
}

type PostServiceOption func(*postService)

func WithClock(now func() time.Time) PostServiceOption {
	return func(s *postService) { s.now = now }
}

func WithScheduler(sc Scheduler) PostServiceOption {
	return func(s *postService) { s.scheduler = sc }
}

func WithCleanupQueue(q CleanupQueue) PostServiceOption {
	return func(s *postService) { s.cleanup = q }
}

func WithStatsCache(c StatsCache) PostServiceOption {
	return func(s *postService) { s.cache = c }
}

func WithMetrics(m *metrics.Metrics) PostServiceOption {
	return func(s *postService) { s.metrics = m }
}

func WithPostingHistory(h repository.PostingHistoryRepository) PostServiceOption {
	return func(s *postService) { s.history = h }
}

func WithMediaLimits(maxFiles int, maxBytes int64) PostServiceOption {
	return func(s *postService) {
		if maxFiles > 0 {
			s.maxFiles = maxFiles
		}
		if maxBytes > 0 {
			s.maxBytes = maxBytes
		}
	}
}

type postService struct {
	pr         repository.PostRepository
	media      MediaStorage
	dispatcher Dispatcher
	scheduler  Scheduler
	cleanup    CleanupQueue
	cache      StatsCache
	history    repository.PostingHistoryRepository
	metrics    *metrics.Metrics
	now        func() time.Time
	maxFiles   int
	maxBytes   int64
}

func NewPostService(pr repository.PostRepository, media MediaStorage, dispatcher Dispatcher, opts ...PostServiceOption) PostService {
	s := &postService{
		pr:         pr,
		media:      media,
		dispatcher: dispatcher,
		now:        time.Now,
		maxFiles:   defaultMaxMediaFiles,
		maxBytes:   defaultMaxMediaBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *postService) clock() time.Time {
	return s.now().UTC()
}

func (s *postService) Create(ctx context.Context, userID int64, pc *transfer.PostCreation) (*models.Post, error) {
	if pc == nil {
		return nil, newValidationError("content", "Content is required")
	}
	req := *pc
	req.Title = strings.TrimSpace(req.Title)
	req.Content = strings.TrimSpace(req.Content)
	req.Category = strings.TrimSpace(req.Category)
	req.Tags = normalizeTags(req.Tags)

	if err := validateStruct(&req); err != nil {
		zap.S().Infow("create post rejected", "user_id", userID, "error", err)
		return nil, err
	}
	if err := checkDistinctPlatforms(req.Platforms); err != nil {
		return nil, err
	}

	now := s.clock()
	var scheduledFor *time.Time
	if strings.TrimSpace(req.ScheduledFor) != "" {
		at, err := futureScheduleTime(req.ScheduledFor, now)
		if err != nil {
			zap.S().Infow("create post rejected", "user_id", userID, "error", err)
			return nil, err
		}
		scheduledFor = &at
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("generate post id: %w", err)
	}

	targetStatus := models.TargetStatusPending
	status := models.PostStatusDraft
	if scheduledFor != nil {
		targetStatus = models.TargetStatusScheduled
		status = models.PostStatusScheduled
	}

	targets := make([]models.PlatformTarget, 0, len(req.Platforms))
	for _, p := range req.Platforms {
		targets = append(targets, models.PlatformTarget{
			Platform:    models.Platform(p.Platform),
			AccountID:   p.AccountID,
			AccountName: p.AccountName,
			Status:      targetStatus,
		})
	}

	post := &models.Post{
		ID:           id,
		UserID:       userID,
		Title:        req.Title,
		Content:      req.Content,
		Media:        []models.Media{},
		Platforms:    targets,
		Status:       status,
		ScheduledFor: scheduledFor,
		Tags:         req.Tags,
		Category:     req.Category,
		IsStory:      req.IsStory,
		Settings:     settingsWithDefaults(req.Settings),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	post.RefreshMetadata()

	if err := s.pr.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}

	s.metrics.RecordPostCreated(ctx, string(post.Status))
	s.invalidateStats(ctx, userID)
	if post.Status == models.PostStatusScheduled {
		s.scheduleDispatch(ctx, post)
	}
	return post, nil
}

func (s *postService) AttachMedia(ctx context.Context, postID string, userID int64, files []transfer.MediaFile) (*models.Post, error) {
	post, err := s.loadOwned(ctx, postID, userID)
	if err != nil {
		return nil, err
	}

	if len(files) == 0 {
		return nil, newValidationError("media", "No media files provided")
	}
	if len(files) > s.maxFiles {
		return nil, newValidationError("media", fmt.Sprintf("At most %d media files are allowed", s.maxFiles))
	}

	type upload struct {
		file     transfer.MediaFile
		kind     models.MediaKind
		mimeType string
	}
	uploads := make([]upload, 0, len(files))
	for i, f := range files {
		field := fmt.Sprintf("media[%d]", i)
		if int64(len(f.Data)) > s.maxBytes {
			return nil, newValidationError(field, fmt.Sprintf("%s exceeds the %d MB limit", f.Filename, s.maxBytes/(1024*1024)))
		}
		kind, mimeType, ok := DetectMediaKind(f.Data)
		if !ok {
			return nil, newValidationError(field, "Only image and video files are allowed")
		}
		uploads = append(uploads, upload{file: f, kind: kind, mimeType: mimeType})
	}

	media := make([]models.Media, 0, len(uploads))
	uploaded := make([]string, 0, len(uploads))
	for i, u := range uploads {
		suffix, err := gonanoid.New()
		if err != nil {
			s.rollbackUploads(ctx, uploaded)
			return nil, fmt.Errorf("generate media key: %w", err)
		}
		key := fmt.Sprintf("posts/%s_%s", post.ID, suffix)

		mediaURL, err := s.media.Upload(ctx, key, u.file.Data, u.mimeType)
		if err != nil {
			zap.S().Errorw("media upload failed", "post_id", post.ID, "file", u.file.Filename, "error", err)
			s.rollbackUploads(ctx, uploaded)
			return nil, &CollaboratorError{Collaborator: collaboratorMedia, Err: err}
		}
		uploaded = append(uploaded, mediaURL)
		s.metrics.RecordMediaUploaded(ctx, string(u.kind))

		media = append(media, models.Media{
			Type:      u.kind,
			URL:       mediaURL,
			Thumbnail: mediaURL,
			AltText:   strings.TrimSpace(u.file.AltText),
			Order:     i,
		})
	}

	replaced := mediaURLs(post.Media)
	post.Media = media
	post.UpdatedAt = s.clock()
	if err := s.pr.Update(ctx, post); err != nil {
		s.rollbackUploads(ctx, uploaded)
		return nil, s.persistError(err)
	}

	s.discardMedia(ctx, post.ID, replaced)
	return post, nil
}

func (s *postService) Get(ctx context.Context, postID string, userID int64) (*models.Post, error) {
	return s.loadOwned(ctx, postID, userID)
}

func (s *postService) Edit(ctx context.Context, postID string, userID int64, pu *transfer.PostUpdate) (*models.Post, error) {
	post, err := s.loadOwned(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	if post.IsPublished() {
		zap.S().Infow("edit rejected", "post_id", postID, "error", errPublishedImmutable)
		return nil, errPublishedImmutable
	}
	if pu == nil {
		return nil, newValidationError("content", "Content is required")
	}

	req := *pu
	req.Title = strings.TrimSpace(req.Title)
	req.Content = strings.TrimSpace(req.Content)
	req.Category = strings.TrimSpace(req.Category)
	req.Tags = normalizeTags(req.Tags)

	if err := validateStruct(&req); err != nil {
		zap.S().Infow("edit rejected", "post_id", postID, "error", err)
		return nil, err
	}
	if req.Platforms != nil {
		if len(req.Platforms) == 0 {
			return nil, newValidationError("platforms", "Platforms must contain at least 1 item(s)")
		}
		if err := checkDistinctPlatforms(req.Platforms); err != nil {
			return nil, err
		}
	}

	now := s.clock()
	var scheduledFor *time.Time
	if strings.TrimSpace(req.ScheduledFor) != "" {
		at, err := futureScheduleTime(req.ScheduledFor, now)
		if err != nil {
			zap.S().Infow("edit rejected", "post_id", postID, "error", err)
			return nil, err
		}
		scheduledFor = &at
	}

	post.Title = req.Title
	post.Content = req.Content
	post.Tags = req.Tags
	post.Category = req.Category
	post.IsStory = req.IsStory
	if req.Settings != nil {
		post.Settings = settingsWithDefaults(req.Settings)
	}
	if req.Platforms != nil {
		targets := make([]models.PlatformTarget, 0, len(req.Platforms))
		for _, p := range req.Platforms {
			status := models.TargetStatus(p.Status)
			if status == "" {
				status = models.TargetStatusPending
			}
			targets = append(targets, models.PlatformTarget{
				Platform:    models.Platform(p.Platform),
				AccountID:   p.AccountID,
				AccountName: p.AccountName,
				Status:      status,
			})
		}
		post.Platforms = targets
	}
	if scheduledFor != nil {
		post.ScheduledFor = scheduledFor
		post.Status = models.PostStatusScheduled
	}
	post.RefreshMetadata()
	post.UpdatedAt = now

	if err := s.pr.Update(ctx, post); err != nil {
		return nil, s.persistError(err)
	}

	s.invalidateStats(ctx, userID)
	if scheduledFor != nil {
		s.scheduleDispatch(ctx, post)
	}
	return post, nil
}

func (s *postService) Schedule(ctx context.Context, postID string, userID int64, scheduledFor string) (*models.Post, error) {
	post, err := s.loadOwned(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	if post.IsPublished() {
		return nil, errPublishedImmutable
	}

	now := s.clock()
	at, err := futureScheduleTime(scheduledFor, now)
	if err != nil {
		zap.S().Infow("schedule rejected", "post_id", postID, "error", err)
		return nil, err
	}

	post.ScheduleAt(at)
	post.UpdatedAt = now
	if err := s.pr.Update(ctx, post); err != nil {
		return nil, s.persistError(err)
	}

	s.invalidateStats(ctx, userID)
	s.scheduleDispatch(ctx, post)
	return post, nil
}

// PublishNow dispatches every target and flips the whole post to published.
// If any platform rejects the post nothing is persisted.
func (s *postService) PublishNow(ctx context.Context, postID string, userID int64) (*models.Post, error) {
	post, err := s.loadOwned(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	if post.IsPublished() {
		zap.S().Infow("publish rejected", "post_id", postID, "error", errAlreadyPublished)
		return nil, errAlreadyPublished
	}

	externalIDs := make(map[models.Platform]string, len(post.Platforms))
	for _, target := range post.Platforms {
		if target.Status == models.TargetStatusPublished {
			continue
		}
		extID, err := s.dispatcher.Dispatch(ctx, post, target)
		s.metrics.RecordDispatch(ctx, string(target.Platform), err == nil)
		s.recordAttempt(ctx, post, target, extID, err)
		if err != nil {
			zap.S().Errorw("publish dispatch failed", "post_id", postID, "platform", target.Platform, "error", err)
			return nil, &CollaboratorError{Collaborator: collaboratorDispatch, Err: err}
		}
		externalIDs[target.Platform] = extID
	}

	now := s.clock()
	post.PublishAll(externalIDs, now)
	post.UpdatedAt = now
	if err := s.pr.Update(ctx, post); err != nil {
		return nil, s.persistError(err)
	}

	s.metrics.RecordPostPublished(ctx)
	s.invalidateStats(ctx, userID)
	return post, nil
}

// Delete removes the record and then its media. Media that cannot be removed
// is handed to the cleanup queue.
func (s *postService) Delete(ctx context.Context, postID string, userID int64) error {
	post, err := s.loadOwned(ctx, postID, userID)
	if err != nil {
		return err
	}

	if err := s.pr.Remove(ctx, post.ID); err != nil {
		return s.persistError(err)
	}

	s.discardMedia(ctx, post.ID, mediaURLs(post.Media))
	s.invalidateStats(ctx, userID)
	return nil
}

func (s *postService) RemoveAllForUser(ctx context.Context, userID int64) (int, error) {
	removed := 0
	defer s.invalidateStats(ctx, userID)

	for {
		posts, _, err := s.pr.List(ctx, repository.PostQuery{UserID: userID, Limit: purgeBatch})
		if err != nil {
			return removed, fmt.Errorf("list posts of user %d: %w", userID, err)
		}
		if len(posts) == 0 {
			return removed, nil
		}
		for _, post := range posts {
			if err := s.pr.Remove(ctx, post.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
				return removed, fmt.Errorf("remove post %s: %w", post.ID, err)
			}
			s.discardMedia(ctx, post.ID, mediaURLs(post.Media))
			removed++
		}
	}
}

func (s *postService) List(ctx context.Context, userID int64, filter transfer.PostFilter) (*transfer.PostPage, error) {
	filter.Status = strings.TrimSpace(filter.Status)
	filter.Platform = strings.TrimSpace(filter.Platform)
	filter.Search = strings.TrimSpace(filter.Search)

	if filter.Status != "" && !models.IsValidPostStatus(filter.Status) {
		return nil, newValidationError("status", "Status must be one of: draft, scheduled, published, failed")
	}
	if filter.Platform != "" && !models.IsValidPlatform(filter.Platform) {
		return nil, newValidationError("platform", "Platform must be one of: facebook, instagram, twitter, linkedin, youtube, tiktok")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	// (page-1)*limit must stay within int.
	if maxPage := math.MaxInt / limit; page > maxPage {
		page = maxPage
	}

	posts, total, err := s.pr.List(ctx, repository.PostQuery{
		UserID:   userID,
		Status:   filter.Status,
		Platform: filter.Platform,
		Search:   filter.Search,
		Offset:   (page - 1) * limit,
		Limit:    limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	if posts == nil {
		posts = []*models.Post{}
	}

	return &transfer.PostPage{
		Posts:       posts,
		TotalPages:  int(math.Ceil(float64(total) / float64(limit))),
		CurrentPage: page,
		Total:       total,
	}, nil
}

func (s *postService) StatsOverview(ctx context.Context, userID int64, startDate, endDate string) (*transfer.PostStats, error) {
	var from, to *time.Time
	if strings.TrimSpace(startDate) != "" && strings.TrimSpace(endDate) != "" {
		start, err := parseStatsDate("startDate", startDate, false)
		if err != nil {
			return nil, err
		}
		end, err := parseStatsDate("endDate", endDate, true)
		if err != nil {
			return nil, err
		}
		from, to = &start, &end
	}

	cacheable := from == nil && s.cache != nil
	if cacheable {
		if stats, ok := s.cache.Get(ctx, userID); ok {
			s.metrics.RecordCacheHit(ctx, "stats_overview")
			return stats, nil
		}
		s.metrics.RecordCacheMiss(ctx, "stats_overview")
	}

	byStatus, err := s.pr.StatsByStatus(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("post stats: %w", err)
	}

	stats := &transfer.PostStats{Stats: []models.StatusStats{}}
	for _, st := range byStatus {
		stats.Stats = append(stats.Stats, st)
		stats.TotalPosts += st.Count
		switch st.Status {
		case models.PostStatusPublished:
			stats.PublishedPosts = st.Count
		case models.PostStatusScheduled:
			stats.ScheduledPosts = st.Count
		case models.PostStatusDraft:
			stats.DraftPosts = st.Count
		case models.PostStatusFailed:
			stats.FailedPosts = st.Count
		}
	}

	if cacheable {
		s.cache.Set(ctx, userID, stats)
	}
	return stats, nil
}

func (s *postService) TopPosts(ctx context.Context, userID int64, filter transfer.TopPostsFilter) ([]*models.Post, error) {
	q := repository.TopPostsQuery{
		UserID:   userID,
		Platform: strings.TrimSpace(filter.Platform),
		Limit:    filter.Limit,
	}
	if q.Platform != "" && !models.IsValidPlatform(q.Platform) {
		return nil, newValidationError("platform", "Platform must be one of: facebook, instagram, twitter, linkedin, youtube, tiktok")
	}
	if q.Limit <= 0 {
		q.Limit = defaultPageLimit
	}
	if q.Limit > maxPageLimit {
		q.Limit = maxPageLimit
	}
	if strings.TrimSpace(filter.StartDate) != "" && strings.TrimSpace(filter.EndDate) != "" {
		start, err := parseStatsDate("startDate", filter.StartDate, false)
		if err != nil {
			return nil, err
		}
		end, err := parseStatsDate("endDate", filter.EndDate, true)
		if err != nil {
			return nil, err
		}
		q.PublishedFrom, q.PublishedTo = &start, &end
	}

	posts, err := s.pr.TopPosts(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("top posts: %w", err)
	}
	if posts == nil {
		posts = []*models.Post{}
	}
	return posts, nil
}

func (s *postService) SyncAnalytics(ctx context.Context, postID string, userID int64, as *transfer.AnalyticsSync) (*models.Post, error) {
	post, err := s.loadOwned(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	if as == nil {
		return nil, newValidationError("analytics", "Analytics is required")
	}
	if err := validateStruct(as); err != nil {
		return nil, err
	}

	analytics := models.PostAnalytics{
		Impressions: as.Impressions,
		Reach:       as.Reach,
		Engagement:  as.Engagement,
		Clicks:      as.Clicks,
		Shares:      as.Shares,
		Comments:    as.Comments,
		Likes:       as.Likes,
		LastUpdated: s.clock(),
	}
	if err := s.pr.UpdateAnalytics(ctx, post.ID, analytics); err != nil {
		return nil, s.persistError(err)
	}

	post.Analytics = analytics
	s.invalidateStats(ctx, userID)
	return post, nil
}

func (s *postService) MarkPlatformPublished(ctx context.Context, postID string, platform models.Platform, externalPostID string) (*models.Post, error) {
	post, err := s.load(ctx, postID)
	if err != nil {
		return nil, err
	}

	wasPublished := post.IsPublished()
	now := s.clock()
	if !post.MarkPlatformPublished(platform, externalPostID, now) {
		return nil, newValidationError("platform", fmt.Sprintf("Post has no %s target", platform))
	}
	post.UpdatedAt = now
	if err := s.pr.Update(ctx, post); err != nil {
		return nil, s.persistError(err)
	}

	if !wasPublished && post.IsPublished() {
		s.metrics.RecordPostPublished(ctx)
	}
	s.invalidateStats(ctx, post.UserID)
	return post, nil
}

func (s *postService) MarkPlatformFailed(ctx context.Context, postID string, platform models.Platform, reason string) (*models.Post, error) {
	post, err := s.load(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.Target(platform) == nil {
		return nil, newValidationError("platform", fmt.Sprintf("Post has no %s target", platform))
	}
	if !post.MarkPlatformFailed(platform, reason) {
		return nil, errAlreadyPublished
	}
	post.UpdatedAt = s.clock()
	if err := s.pr.Update(ctx, post); err != nil {
		return nil, s.persistError(err)
	}

	s.invalidateStats(ctx, post.UserID)
	return post, nil
}

// DispatchScheduled publishes a due scheduled post target by target. It is a
// no-op when the post was deleted, published, rescheduled or is not yet due.
// Platform failures are recorded on the post, not returned.
func (s *postService) DispatchScheduled(ctx context.Context, postID string, expectedAt time.Time) error {
	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return fmt.Errorf("load post %s: %w", postID, err)
	}

	now := s.clock()
	switch {
	case post == nil:
		zap.S().Infow("skip dispatch, post removed", "post_id", postID)
		return nil
	case post.Status != models.PostStatusScheduled || post.ScheduledFor == nil:
		zap.S().Infow("skip dispatch, post not scheduled", "post_id", postID, "status", post.Status)
		return nil
	case post.ScheduledFor.Unix() != expectedAt.Unix():
		zap.S().Infow("skip dispatch, post rescheduled", "post_id", postID)
		return nil
	case post.ScheduledFor.After(now):
		zap.S().Infow("skip dispatch, post not due", "post_id", postID)
		return nil
	}

	for _, target := range append([]models.PlatformTarget(nil), post.Platforms...) {
		if target.Status == models.TargetStatusPublished {
			continue
		}
		extID, err := s.dispatcher.Dispatch(ctx, post, target)
		s.metrics.RecordDispatch(ctx, string(target.Platform), err == nil)
		s.recordAttempt(ctx, post, target, extID, err)
		if err != nil {
			zap.S().Errorw("scheduled dispatch failed", "post_id", postID, "platform", target.Platform, "error", err)
			post.MarkPlatformFailed(target.Platform, err.Error())
			continue
		}
		post.MarkPlatformPublished(target.Platform, extID, s.clock())
	}

	post.UpdatedAt = s.clock()
	if err := s.pr.Update(ctx, post); err != nil {
		return fmt.Errorf("save dispatched post %s: %w", postID, err)
	}

	if post.IsPublished() {
		s.metrics.RecordPostPublished(ctx)
	}
	s.invalidateStats(ctx, post.UserID)
	zap.S().Infow("scheduled post dispatched", "post_id", postID, "status", post.Status)
	return nil
}

// EnqueueDue hands every overdue scheduled post to the scheduler again, or
// dispatches it inline when no scheduler is configured. It returns how many
// posts were handled.
func (s *postService) EnqueueDue(ctx context.Context, limit int) (int, error) {
	due, err := s.pr.ListDue(ctx, s.clock(), limit)
	if err != nil {
		return 0, fmt.Errorf("list due posts: %w", err)
	}

	handled := 0
	for _, post := range due {
		if s.scheduler != nil {
			err = s.scheduler.ScheduleDispatch(ctx, post.ID, *post.ScheduledFor)
		} else {
			err = s.DispatchScheduled(ctx, post.ID, *post.ScheduledFor)
		}
		if err != nil {
			zap.S().Errorw("due post not handled", "post_id", post.ID, "error", err)
			continue
		}
		handled++
	}
	return handled, nil
}

// CleanupMedia deletes media objects, returning an error when any of them
// could not be removed so the caller can retry.
func (s *postService) CleanupMedia(ctx context.Context, urls []string) error {
	failed := s.deleteMedia(ctx, urls)
	if len(failed) > 0 {
		return &CollaboratorError{
			Collaborator: collaboratorMedia,
			Err:          fmt.Errorf("%d of %d media objects not deleted", len(failed), len(urls)),
		}
	}
	return nil
}

func (s *postService) load(ctx context.Context, postID string) (*models.Post, error) {
	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("load post: %w", err)
	}
	if post == nil {
		return nil, ErrPostNotFound
	}
	return post, nil
}

func (s *postService) loadOwned(ctx context.Context, postID string, userID int64) (*models.Post, error) {
	post, err := s.load(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.UserID != userID {
		zap.S().Infow("post access denied", "post_id", postID, "user_id", userID)
		return nil, ErrForbidden
	}
	return post, nil
}

func (s *postService) persistError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrPostNotFound
	}
	return fmt.Errorf("save post: %w", err)
}

func (s *postService) scheduleDispatch(ctx context.Context, post *models.Post) {
	if s.scheduler == nil || post.ScheduledFor == nil {
		return
	}
	if err := s.scheduler.ScheduleDispatch(ctx, post.ID, *post.ScheduledFor); err != nil {
		// The due sweeper picks the post up later.
		zap.S().Warnw("enqueue scheduled dispatch failed", "post_id", post.ID, "error", err)
	}
}

func (s *postService) invalidateStats(ctx context.Context, userID int64) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, userID)
	}
}

func (s *postService) recordAttempt(ctx context.Context, post *models.Post, target models.PlatformTarget, extID string, dispatchErr error) {
	if s.history == nil {
		return
	}
	ph := &models.PostingHistory{
		UserID:         post.UserID,
		PostID:         post.ID,
		Platform:       target.Platform,
		AccountID:      target.AccountID,
		ExternalPostID: extID,
	}
	if dispatchErr != nil {
		ph.ErrorMessage = dispatchErr.Error()
	}
	if _, err := s.history.Create(ctx, ph); err != nil {
		zap.S().Warnw("posting history not recorded", "post_id", post.ID, "error", err)
	}
}

// discardMedia deletes every url and queues the ones that failed for a retry.
func (s *postService) discardMedia(ctx context.Context, postID string, urls []string) {
	failed := s.deleteMedia(ctx, urls)
	if len(failed) == 0 {
		return
	}
	if s.cleanup == nil {
		zap.S().Errorw("media left in storage", "post_id", postID, "urls", failed)
		return
	}
	if err := s.cleanup.EnqueueMediaCleanup(ctx, postID, failed); err != nil {
		zap.S().Errorw("enqueue media cleanup failed", "post_id", postID, "urls", failed, "error", err)
	}
}

func (s *postService) deleteMedia(ctx context.Context, urls []string) []string {
	var failed []string
	for _, u := range urls {
		if err := s.media.Delete(ctx, u); err != nil {
			zap.S().Errorw("media delete failed", "url", u, "error", err)
			failed = append(failed, u)
		}
	}
	return failed
}

func (s *postService) rollbackUploads(ctx context.Context, urls []string) {
	for _, u := range urls {
		if err := s.media.Delete(ctx, u); err != nil {
			zap.S().Errorw("media rollback failed", "url", u, "error", err)
		}
	}
}

func mediaURLs(media []models.Media) []string {
	urls := make([]string, 0, len(media))
	for _, m := range media {
		if m.URL != "" {
			urls = append(urls, m.URL)
		}
	}
	return urls
}

func checkDistinctPlatforms(inputs []transfer.PlatformInput) error {
	seen := make(map[string]bool, len(inputs))
	for i, p := range inputs {
		if seen[p.Platform] {
			return newValidationError(fmt.Sprintf("platforms[%d].platform", i), fmt.Sprintf("Platform %s is listed more than once", p.Platform))
		}
		seen[p.Platform] = true
	}
	return nil
}

func settingsWithDefaults(in *models.PostSettings) *models.PostSettings {
	if in == nil {
		return models.DefaultPostSettings()
	}
	out := *in
	out.FirstComment = strings.TrimSpace(out.FirstComment)
	if out.Watermark.Position == "" {
		out.Watermark.Position = models.WatermarkBottomRight
	}
	return &out
}
