package models

import "time"

type User struct {
	ID           int64     `db:"id" json:"id"`
	GoogleID     string    `db:"google_id" json:"-"`
	Email        string    `db:"email" json:"email"`
	Name         string    `db:"name" json:"name"`
	ProfileImage string    `db:"profile_image" json:"profileImage,omitempty"`
	Company      string    `db:"company" json:"company,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}
