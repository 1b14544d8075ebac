package transfer

import "github.com/maheshrc27/tupae-api/internal/models"

type PlatformInput struct {
	Platform    string `json:"platform" validate:"required,oneof=facebook instagram twitter linkedin youtube tiktok"`
	AccountID   string `json:"accountId"`
	AccountName string `json:"accountName"`
	Status      string `json:"status,omitempty" validate:"omitempty,oneof=pending scheduled failed draft"`
}

type PostCreation struct {
	Title        string               `json:"title"`
	Content      string               `json:"content" validate:"required"`
	Platforms    []PlatformInput      `json:"platforms" validate:"required,min=1,dive"`
	Tags         []string             `json:"tags"`
	Category     string               `json:"category"`
	IsStory      bool                 `json:"isStory"`
	ScheduledFor string               `json:"scheduledFor"`
	Settings     *models.PostSettings `json:"settings"`
}

// PostUpdate replaces the editable fields of a post. Platforms is only
// applied when present in the request.
type PostUpdate struct {
	Title        string               `json:"title"`
	Content      string               `json:"content" validate:"required"`
	Platforms    []PlatformInput      `json:"platforms" validate:"omitempty,dive"`
	Tags         []string             `json:"tags"`
	Category     string               `json:"category"`
	IsStory      bool                 `json:"isStory"`
	ScheduledFor string               `json:"scheduledFor"`
	Settings     *models.PostSettings `json:"settings"`
}

type ScheduleRequest struct {
	ScheduledFor string `json:"scheduledFor" validate:"required"`
}

type MediaFile struct {
	Filename string
	Data     []byte
	AltText  string
}

type PostFilter struct {
	Status   string
	Platform string
	Search   string
	Page     int
	Limit    int
}

// TopPostsFilter narrows the engagement ranking. The date range applies to
// publishedAt and only when both dates are given.
type TopPostsFilter struct {
	Platform  string
	StartDate string
	EndDate   string
	Limit     int
}

type PostPage struct {
	Posts       []*models.Post `json:"posts"`
	TotalPages  int            `json:"totalPages"`
	CurrentPage int            `json:"currentPage"`
	Total       int64          `json:"total"`
}

type PostStats struct {
	TotalPosts     int64                `json:"totalPosts"`
	PublishedPosts int64                `json:"publishedPosts"`
	ScheduledPosts int64                `json:"scheduledPosts"`
	DraftPosts     int64                `json:"draftPosts"`
	FailedPosts    int64                `json:"failedPosts"`
	Stats          []models.StatusStats `json:"stats"`
}

type AnalyticsSync struct {
	Impressions int64 `json:"impressions" validate:"gte=0"`
	Reach       int64 `json:"reach" validate:"gte=0"`
	Engagement  int64 `json:"engagement" validate:"gte=0"`
	Clicks      int64 `json:"clicks" validate:"gte=0"`
	Shares      int64 `json:"shares" validate:"gte=0"`
	Comments    int64 `json:"comments" validate:"gte=0"`
	Likes       int64 `json:"likes" validate:"gte=0"`
}
