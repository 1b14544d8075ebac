package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPost(platforms ...Platform) *Post {
	p := &Post{ID: "p1", UserID: 1, Content: "hello", Status: PostStatusDraft}
	for _, pl := range platforms {
		p.Platforms = append(p.Platforms, PlatformTarget{Platform: pl, Status: TargetStatusPending})
	}
	return p
}

func TestComputeMetadata(t *testing.T) {
	m := ComputeMetadata("Hello @bob check https://x.co #new #deal")
	assert.Equal(t, 2, m.HashtagCount)
	assert.Equal(t, 1, m.MentionCount)
	assert.Equal(t, 1, m.LinkCount)
	assert.Equal(t, 40, m.CharacterCount)
}

func TestComputeMetadata_CountsCodePoints(t *testing.T) {
	m := ComputeMetadata("héllo 🚀")
	assert.Equal(t, 7, m.CharacterCount)
	assert.Zero(t, m.HashtagCount)
	assert.Zero(t, m.LinkCount)
}

func TestMarkPlatformPublished_AggregateOnlyWhenAllPublished(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	p := newTestPost(PlatformInstagram, PlatformTwitter)

	require.True(t, p.MarkPlatformPublished(PlatformInstagram, "ig_1", now))
	assert.Equal(t, PostStatusDraft, p.Status)
	assert.Nil(t, p.PublishedAt)
	assert.Equal(t, "ig_1", p.Target(PlatformInstagram).PostID)
	assert.Equal(t, TargetStatusPublished, p.Target(PlatformInstagram).Status)

	later := now.Add(time.Minute)
	require.True(t, p.MarkPlatformPublished(PlatformTwitter, "tw_1", later))
	assert.Equal(t, PostStatusPublished, p.Status)
	require.NotNil(t, p.PublishedAt)
	assert.Equal(t, later, *p.PublishedAt)
	assert.True(t, p.AllTargetsPublished())
}

func TestMarkPlatformPublished_UnknownPlatform(t *testing.T) {
	p := newTestPost(PlatformInstagram)
	assert.False(t, p.MarkPlatformPublished(PlatformTiktok, "x", time.Now()))
	assert.Equal(t, PostStatusDraft, p.Status)
}

func TestMarkPlatformFailed(t *testing.T) {
	now := time.Now()
	p := newTestPost(PlatformInstagram, PlatformTwitter)
	p.ScheduleAt(now.Add(time.Hour))

	require.True(t, p.MarkPlatformFailed(PlatformTwitter, "rate limited"))
	assert.Equal(t, PostStatusFailed, p.Status)
	assert.Nil(t, p.ScheduledFor)
	assert.Equal(t, "rate limited", p.Target(PlatformTwitter).Error)
	assert.Equal(t, TargetStatusScheduled, p.Target(PlatformInstagram).Status)
}

func TestMarkPlatformFailed_KeepsPublishedAggregate(t *testing.T) {
	now := time.Now()
	p := newTestPost(PlatformInstagram)
	p.PublishAll(nil, now)

	assert.False(t, p.MarkPlatformFailed(PlatformInstagram, "removed by platform"))
	assert.Equal(t, PostStatusPublished, p.Status)
	assert.Equal(t, TargetStatusPublished, p.Target(PlatformInstagram).Status)
	assert.False(t, p.MarkPlatformFailed(PlatformTiktok, "not a target"))
}

func TestPublishAll_SetsPublishedAtOnce(t *testing.T) {
	first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	p := newTestPost(PlatformFacebook, PlatformLinkedIn)
	p.ScheduleAt(first.Add(time.Hour))

	p.PublishAll(map[Platform]string{PlatformFacebook: "fb_1"}, first)
	assert.Equal(t, PostStatusPublished, p.Status)
	assert.Nil(t, p.ScheduledFor)
	assert.Equal(t, "fb_1", p.Target(PlatformFacebook).PostID)
	assert.Empty(t, p.Target(PlatformLinkedIn).PostID)

	p.PublishAll(nil, first.Add(time.Hour))
	assert.Equal(t, first, *p.PublishedAt)
}

func TestScheduleAt(t *testing.T) {
	at := time.Now().Add(2 * time.Hour)
	p := newTestPost(PlatformYoutube, PlatformTiktok)
	p.ScheduleAt(at)

	assert.Equal(t, PostStatusScheduled, p.Status)
	assert.Equal(t, at, *p.ScheduledFor)
	for _, target := range p.Platforms {
		assert.Equal(t, TargetStatusScheduled, target.Status)
	}
}

func TestEngagementRate(t *testing.T) {
	p := newTestPost()
	p.Analytics = PostAnalytics{Likes: 10, Comments: 3, Shares: 2, Reach: 400}
	assert.Equal(t, int64(15), p.TotalEngagement())
	assert.Equal(t, 3.75, p.EngagementRate())

	p.Analytics.Reach = 0
	assert.Equal(t, 1500.0, p.EngagementRate())
}

func TestMarshalJSON_IncludesEngagement(t *testing.T) {
	p := newTestPost(PlatformInstagram)
	p.Analytics = PostAnalytics{Likes: 1, Reach: 2}

	raw, err := json.Marshal(p)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, "hello", out["content"])
	assert.EqualValues(t, 1, out["totalEngagement"])
	assert.EqualValues(t, 50, out["engagementRate"])
}

func TestClone_IsDeep(t *testing.T) {
	now := time.Now()
	p := newTestPost(PlatformInstagram)
	p.Tags = []string{"a"}
	p.ScheduleAt(now)

	c := p.Clone()
	c.Tags[0] = "b"
	c.Platforms[0].Status = TargetStatusFailed
	*c.ScheduledFor = now.Add(time.Hour)

	assert.Equal(t, "a", p.Tags[0])
	assert.Equal(t, TargetStatusScheduled, p.Platforms[0].Status)
	assert.Equal(t, now, *p.ScheduledFor)
}
