package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/xid"

	"github.com/sakif/socialfeed/internal/apperror"
	"github.com/sakif/socialfeed/internal/model"
	"github.com/sakif/socialfeed/internal/repository"
)

var _ repository.PostRepository = (*DB)(nil)

const postColumns = `id, author_id, body, encrypted, created_at, likes, comments`

// CreatePost stores a post with zero likes and comments. post.ID is generated
// here; Body, Encrypted and Timestamp come from the caller.
func (db *DB) CreatePost(ctx context.Context, post *model.Post) error {
	post.ID = xid.New().String()
	post.Likes = 0
	post.Comments = 0

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO posts (`+postColumns+`) VALUES (?, ?, ?, ?, ?, 0, 0)`,
		post.ID,
		post.AuthorID,
		post.Body,
		post.Encrypted,
		toUnix(post.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting post: %w", err)
	}
	return nil
}

// GetPostByID retrieves a single post.
func (db *DB) GetPostByID(ctx context.Context, id string) (*model.Post, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM posts WHERE id = ?`, id)

	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("post", id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting post %s: %w", id, err)
	}
	return p, nil
}

// ListPosts returns posts newest first. Ties on timestamp fall back to id so
// paging is stable.
func (db *DB) ListPosts(ctx context.Context, opts repository.ListOptions) ([]model.Post, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+postColumns+` FROM posts
		 ORDER BY created_at DESC, id DESC
		 LIMIT ? OFFSET ?`,
		opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing posts: %w", err)
	}
	defer rows.Close()

	posts := make([]model.Post, 0, opts.Limit)
	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning post: %w", err)
		}
		posts = append(posts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating posts: %w", err)
	}
	return posts, nil
}

// IncrementLikes adds one like in a single UPDATE, so concurrent likes never
// lose an increment.
func (db *DB) IncrementLikes(ctx context.Context, id string) error {
	return db.incrementCounter(ctx, "likes", id)
}

// IncrementComments adds one to the post's comment counter.
func (db *DB) IncrementComments(ctx context.Context, id string) error {
	return db.incrementCounter(ctx, "comments", id)
}

// incrementCounter bumps column by one. column is always one of two constants
// above, never user input.
func (db *DB) incrementCounter(ctx context.Context, column, id string) error {
	res, err := db.conn.ExecContext(ctx,
		fmt.Sprintf(`UPDATE posts SET %[1]s = %[1]s + 1 WHERE id = ?`, column), id)
	if err != nil {
		return fmt.Errorf("sqlite: incrementing %s on post %s: %w", column, id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("post", id)
	}
	return nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanPost(s scanner) (*model.Post, error) {
	var (
		p       model.Post
		created int64
	)
	if err := s.Scan(&p.ID, &p.AuthorID, &p.Body, &p.Encrypted, &created, &p.Likes, &p.Comments); err != nil {
		return nil, err
	}
	p.Timestamp = fromUnix(created)
	return &p, nil
}
