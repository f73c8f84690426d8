package model

import "time"

// Post is a short text post.
//
// TWO VIEWS OF THE CONTENT:
// Body is what the store holds: ciphertext when Encrypted is true, raw UTF-8
// otherwise. Content is the plaintext the API returns; the service layer fills
// it in on the way out. Body and Encrypted never appear in JSON.
type Post struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Likes     int64     `json:"likes"`
	Comments  int64     `json:"comments"`

	Body      []byte `json:"-"`
	Encrypted bool   `json:"-"`
}
