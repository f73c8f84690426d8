// Package repository declares the storage interfaces the service layer depends on.
// Implementations live in the sqlite and mongo subpackages.
package repository

import (
	"context"

	"github.com/sakif/socialfeed/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// UserRepository stores accounts. Email is unique; CreateUser returns an
// apperror.ErrConflict error when it is already taken.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
}

// PostRepository stores posts. ListPosts returns newest first.
//
// IncrementLikes and IncrementComments must be a single atomic update in the
// store, never a read-modify-write, and return apperror.ErrNotFound when no
// post has the given id.
type PostRepository interface {
	CreatePost(ctx context.Context, post *model.Post) error
	GetPostByID(ctx context.Context, id string) (*model.Post, error)
	ListPosts(ctx context.Context, opts ListOptions) ([]model.Post, error)
	IncrementLikes(ctx context.Context, id string) error
	IncrementComments(ctx context.Context, id string) error
}

// CommentRepository stores comments. ListCommentsByPost returns oldest first.
type CommentRepository interface {
	CreateComment(ctx context.Context, comment *model.Comment) error
	ListCommentsByPost(ctx context.Context, postID string, opts ListOptions) ([]model.Comment, error)
}
