package models

import (
	"encoding/json"
	"math"
	"regexp"
	"time"
	"unicode/utf8"
)

type Platform string

const (
	PlatformFacebook  Platform = "facebook"
	PlatformInstagram Platform = "instagram"
	PlatformTwitter   Platform = "twitter"
	PlatformLinkedIn  Platform = "linkedin"
	PlatformYoutube   Platform = "youtube"
	PlatformTiktok    Platform = "tiktok"
)

var Platforms = []Platform{
	PlatformFacebook,
	PlatformInstagram,
	PlatformTwitter,
	PlatformLinkedIn,
	PlatformYoutube,
	PlatformTiktok,
}

func IsValidPlatform(p string) bool {
	for _, valid := range Platforms {
		if string(valid) == p {
			return true
		}
	}
	return false
}

// PostStatus is the aggregate status of a whole post.
type PostStatus string

const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusScheduled PostStatus = "scheduled"
	PostStatusPublished PostStatus = "published"
	PostStatusFailed    PostStatus = "failed"
)

func IsValidPostStatus(s string) bool {
	switch PostStatus(s) {
	case PostStatusDraft, PostStatusScheduled, PostStatusPublished, PostStatusFailed:
		return true
	}
	return false
}

// TargetStatus is the status of a single platform target.
type TargetStatus string

const (
	TargetStatusPending   TargetStatus = "pending"
	TargetStatusScheduled TargetStatus = "scheduled"
	TargetStatusPublished TargetStatus = "published"
	TargetStatusFailed    TargetStatus = "failed"
	TargetStatusDraft     TargetStatus = "draft"
)

type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindVideo MediaKind = "video"
	MediaKindGif   MediaKind = "gif"
)

type Media struct {
	Type      MediaKind `json:"type" bson:"type"`
	URL       string    `json:"url" bson:"url"`
	Thumbnail string    `json:"thumbnail,omitempty" bson:"thumbnail,omitempty"`
	AltText   string    `json:"altText,omitempty" bson:"alt_text,omitempty"`
	Order     int       `json:"order" bson:"order"`
}

// PlatformTarget is the per-platform publishing record of a post.
type PlatformTarget struct {
	Platform    Platform     `json:"platform" bson:"platform"`
	AccountID   string       `json:"accountId,omitempty" bson:"account_id,omitempty"`
	AccountName string       `json:"accountName,omitempty" bson:"account_name,omitempty"`
	PostID      string       `json:"postId,omitempty" bson:"post_id,omitempty"`
	Status      TargetStatus `json:"status" bson:"status"`
	PublishedAt *time.Time   `json:"publishedAt,omitempty" bson:"published_at,omitempty"`
	Error       string       `json:"error,omitempty" bson:"error,omitempty"`
}

const (
	WatermarkTopLeft     = "top-left"
	WatermarkTopRight    = "top-right"
	WatermarkBottomLeft  = "bottom-left"
	WatermarkBottomRight = "bottom-right"
)

type Watermark struct {
	Enabled  bool   `json:"enabled" bson:"enabled"`
	Text     string `json:"text,omitempty" bson:"text,omitempty"`
	Position string `json:"position" bson:"position" validate:"omitempty,oneof=top-left top-right bottom-left bottom-right"`
}

type PostSettings struct {
	FirstComment string    `json:"firstComment,omitempty" bson:"first_comment,omitempty"`
	Watermark    Watermark `json:"watermark" bson:"watermark"`
	CrossPost    bool      `json:"crossPost" bson:"cross_post"`
}

func DefaultPostSettings() *PostSettings {
	return &PostSettings{
		Watermark: Watermark{Position: WatermarkBottomRight},
		CrossPost: true,
	}
}

type PostMetadata struct {
	CharacterCount int `json:"characterCount" bson:"character_count"`
	HashtagCount   int `json:"hashtagCount" bson:"hashtag_count"`
	MentionCount   int `json:"mentionCount" bson:"mention_count"`
	LinkCount      int `json:"linkCount" bson:"link_count"`
}

// PostAnalytics is the engagement snapshot written by analytics sync.
type PostAnalytics struct {
	Impressions int64     `json:"impressions" bson:"impressions"`
	Reach       int64     `json:"reach" bson:"reach"`
	Engagement  int64     `json:"engagement" bson:"engagement"`
	Clicks      int64     `json:"clicks" bson:"clicks"`
	Shares      int64     `json:"shares" bson:"shares"`
	Comments    int64     `json:"comments" bson:"comments"`
	Likes       int64     `json:"likes" bson:"likes"`
	LastUpdated time.Time `json:"lastUpdated" bson:"last_updated"`
}

type Post struct {
	ID           string           `db:"id" json:"id" bson:"_id"`
	UserID       int64            `db:"user_id" json:"user" bson:"user_id"`
	Title        string           `db:"title" json:"title,omitempty" bson:"title,omitempty"`
	Content      string           `db:"content" json:"content" bson:"content"`
	Media        []Media          `db:"media" json:"media" bson:"media"`
	Platforms    []PlatformTarget `db:"platforms" json:"platforms" bson:"platforms"`
	Status       PostStatus       `db:"status" json:"status" bson:"status"`
	ScheduledFor *time.Time       `db:"scheduled_for" json:"scheduledFor,omitempty" bson:"scheduled_for,omitempty"`
	PublishedAt  *time.Time       `db:"published_at" json:"publishedAt,omitempty" bson:"published_at,omitempty"`
	Tags         []string         `db:"tags" json:"tags" bson:"tags"`
	Category     string           `db:"category" json:"category,omitempty" bson:"category,omitempty"`
	IsStory      bool             `db:"is_story" json:"isStory" bson:"is_story"`
	Analytics    PostAnalytics    `db:"analytics" json:"analytics" bson:"analytics"`
	Settings     *PostSettings    `db:"settings" json:"settings,omitempty" bson:"settings,omitempty"`
	Metadata     PostMetadata     `db:"metadata" json:"metadata" bson:"metadata"`
	CreatedAt    time.Time        `db:"created_at" json:"createdAt" bson:"created_at"`
	UpdatedAt    time.Time        `db:"updated_at" json:"updatedAt" bson:"updated_at"`
}

var (
	hashtagPattern = regexp.MustCompile(`#\w+`)
	mentionPattern = regexp.MustCompile(`@\w+`)
	linkPattern    = regexp.MustCompile(`https?://[^\s]+`)
)

func ComputeMetadata(content string) PostMetadata {
	return PostMetadata{
		CharacterCount: utf8.RuneCountInString(content),
		HashtagCount:   len(hashtagPattern.FindAllString(content, -1)),
		MentionCount:   len(mentionPattern.FindAllString(content, -1)),
		LinkCount:      len(linkPattern.FindAllString(content, -1)),
	}
}

// RefreshMetadata must run after every content change.
func (p *Post) RefreshMetadata() {
	p.Metadata = ComputeMetadata(p.Content)
}

func (p *Post) IsPublished() bool {
	return p.Status == PostStatusPublished
}

func (p *Post) AllTargetsPublished() bool {
	if len(p.Platforms) == 0 {
		return false
	}
	for _, t := range p.Platforms {
		if t.Status != TargetStatusPublished {
			return false
		}
	}
	return true
}

func (p *Post) Target(platform Platform) *PlatformTarget {
	for i := range p.Platforms {
		if p.Platforms[i].Platform == platform {
			return &p.Platforms[i]
		}
	}
	return nil
}

// ScheduleAt moves the post and every target to scheduled. The caller
// checks that at lies in the future.
func (p *Post) ScheduleAt(at time.Time) {
	p.ScheduledFor = &at
	p.Status = PostStatusScheduled
	for i := range p.Platforms {
		p.Platforms[i].Status = TargetStatusScheduled
	}
}

// PublishAll flips every target and the aggregate to published in one step.
// externalIDs is keyed by platform and may be nil. Targets that are already
// published keep their record.
func (p *Post) PublishAll(externalIDs map[Platform]string, now time.Time) {
	for i := range p.Platforms {
		t := &p.Platforms[i]
		if t.Status == TargetStatusPublished {
			continue
		}
		t.Status = TargetStatusPublished
		t.PublishedAt = &now
		t.Error = ""
		if id, ok := externalIDs[t.Platform]; ok {
			t.PostID = id
		}
	}
	p.markPublished(now)
}

// MarkPlatformPublished records a successful dispatch to one platform and
// re-establishes the aggregate status. It reports whether the platform is a
// target of the post.
func (p *Post) MarkPlatformPublished(platform Platform, externalPostID string, now time.Time) bool {
	t := p.Target(platform)
	if t == nil {
		return false
	}
	t.Status = TargetStatusPublished
	t.PostID = externalPostID
	t.PublishedAt = &now
	t.Error = ""

	if p.AllTargetsPublished() {
		p.markPublished(now)
	}
	return true
}

// MarkPlatformFailed records a failed dispatch and moves the aggregate to
// failed. It reports whether the failure was recorded: unknown platforms and
// published posts are left untouched.
func (p *Post) MarkPlatformFailed(platform Platform, reason string) bool {
	t := p.Target(platform)
	if t == nil || p.Status == PostStatusPublished {
		return false
	}
	t.Status = TargetStatusFailed
	t.Error = reason

	p.Status = PostStatusFailed
	p.ScheduledFor = nil
	return true
}

// scheduledFor only accompanies the scheduled status.
func (p *Post) markPublished(now time.Time) {
	p.Status = PostStatusPublished
	p.ScheduledFor = nil
	if p.PublishedAt == nil {
		p.PublishedAt = &now
	}
}

func (p *Post) TotalEngagement() int64 {
	return p.Analytics.Likes + p.Analytics.Comments + p.Analytics.Shares
}

// EngagementRate is a percentage rounded to two decimals.
func (p *Post) EngagementRate() float64 {
	reach := p.Analytics.Reach
	if reach <= 0 {
		reach = 1
	}
	rate := float64(p.TotalEngagement()) / float64(reach) * 100
	return math.Round(rate*100) / 100
}

func (p Post) MarshalJSON() ([]byte, error) {
	type plain Post
	return json.Marshal(struct {
		plain
		TotalEngagement int64   `json:"totalEngagement"`
		EngagementRate  float64 `json:"engagementRate"`
	}{
		plain:           plain(p),
		TotalEngagement: p.TotalEngagement(),
		EngagementRate:  p.EngagementRate(),
	})
}

// Clone returns a deep copy.
func (p *Post) Clone() *Post {
	c := *p
	if p.Media != nil {
		c.Media = append([]Media(nil), p.Media...)
	}
	if p.Platforms != nil {
		c.Platforms = make([]PlatformTarget, len(p.Platforms))
		for i, t := range p.Platforms {
			if t.PublishedAt != nil {
				at := *t.PublishedAt
				t.PublishedAt = &at
			}
			c.Platforms[i] = t
		}
	}
	if p.Tags != nil {
		c.Tags = append([]string(nil), p.Tags...)
	}
	if p.ScheduledFor != nil {
		at := *p.ScheduledFor
		c.ScheduledFor = &at
	}
	if p.PublishedAt != nil {
		at := *p.PublishedAt
		c.PublishedAt = &at
	}
	if p.Settings != nil {
		s := *p.Settings
		c.Settings = &s
	}
	return &c
}
