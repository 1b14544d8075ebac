package models

import "time"

// PostingHistory is one dispatch attempt of a post to one platform.
type PostingHistory struct {
	ID             int64     `db:"id" json:"id"`
	UserID         int64     `db:"user_id" json:"user_id"`
	PostID         string    `db:"post_id" json:"post_id"`
	Platform       Platform  `db:"platform" json:"platform"`
	AccountID      string    `db:"account_id" json:"account_id"`
	ExternalPostID string    `db:"external_post_id" json:"external_post_id"`
	ErrorMessage   string    `db:"error_message" json:"error_message"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
