package models

import "time"

// ApiKey is an alternative credential to the session token, sent as the
// api_key query parameter.
type ApiKey struct {
	ID         int64      `db:"id" json:"id"`
	UserID     int64      `db:"user_id" json:"-"`
	Name       string     `db:"name" json:"name"`
	Key        string     `db:"api_key" json:"key"`
	LastUsedAt *time.Time `db:"last_used_at" json:"lastUsedAt,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"createdAt"`
}

// Masked hides all but the last four characters of the key.
func (k ApiKey) Masked() ApiKey {
	if len(k.Key) > 4 {
		k.Key = "****" + k.Key[len(k.Key)-4:]
	}
	return k
}
