package model

import "time"

// Comment is a reply attached to a Post. Immutable once written.
// Body/Encrypted follow the same convention as Post.
type Comment struct {
	ID        string    `json:"id"`
	PostID    string    `json:"post_id"`
	AuthorID  string    `json:"author_id"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`

	Body      []byte `json:"-"`
	Encrypted bool   `json:"-"`
}
