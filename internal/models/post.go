package models

import "time"

// Post is a short status update. Posts are never edited once written.
type Post struct {
	ID        string    `json:"id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
	UserID    string    `json:"-"`
	Author    Author    `json:"author"`
}
