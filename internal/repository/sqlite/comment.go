package sqlite

import (
	"context"
	"fmt"

	"github.com/rs/xid"

	"github.com/sakif/socialfeed/internal/model"
	"github.com/sakif/socialfeed/internal/repository"
)

var _ repository.CommentRepository = (*DB)(nil)

// CreateComment stores a comment. It does not touch the post's counter; the
// service calls IncrementComments separately.
func (db *DB) CreateComment(ctx context.Context, comment *model.Comment) error {
	comment.ID = xid.New().String()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO comments (id, post_id, author_id, body, encrypted, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		comment.ID,
		comment.PostID,
		comment.AuthorID,
		comment.Body,
		comment.Encrypted,
		toUnix(comment.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting comment: %w", err)
	}
	return nil
}

// ListCommentsByPost returns a post's comments oldest first.
func (db *DB) ListCommentsByPost(ctx context.Context, postID string, opts repository.ListOptions) ([]model.Comment, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, post_id, author_id, body, encrypted, created_at
		 FROM comments WHERE post_id = ?
		 ORDER BY created_at ASC, id ASC
		 LIMIT ? OFFSET ?`,
		postID, opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing comments for post %s: %w", postID, err)
	}
	defer rows.Close()

	comments := make([]model.Comment, 0, opts.Limit)
	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var (
			c       model.Comment
			created int64
		)
		if err := rows.Scan(&c.ID, &c.PostID, &c.AuthorID, &c.Body, &c.Encrypted, &created); err != nil {
			return nil, fmt.Errorf("sqlite: scanning comment: %w", err)
		}
		c.Timestamp = fromUnix(created)
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating comments: %w", err)
	}
	return comments, nil
}
