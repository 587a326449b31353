package models

import "time"

// Activity event types.
const (
	EventUserRegister  = "user.register"
	EventUserLogin     = "user.login"
	EventProfileUpdate = "profile.update"
	EventPostCreate    = "post.create"
	EventFollow        = "follow"
	EventUnfollow      = "unfollow"
)

// Event records something a user did, kept for a limited retention period.
type Event struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Type      string    `json:"type"` // e.g., "post.create", "follow"
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}
