package models

import "time"

// Session is a server-side login session referenced by the session cookie.
type Session struct {
	ID        string    `db:"id" json:"-"`
	UserID    int64     `db:"user_id" json:"user_id"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
}
