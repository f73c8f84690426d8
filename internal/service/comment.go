package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/socialfeed/internal/cipher"
	"github.com/sakif/socialfeed/internal/clock"
	"github.com/sakif/socialfeed/internal/model"
	"github.com/sakif/socialfeed/internal/repository"
)

// CommentService adds and lists comments on posts.
type CommentService struct {
	posts    repository.PostRepository
	comments repository.CommentRepository
	codec    contentCodec
	clock    clock.Clock
	logger   *slog.Logger
}

func NewCommentService(
	posts repository.PostRepository,
	comments repository.CommentRepository,
	c *cipher.Cipher,
	policy cipher.Policy,
	clk clock.Clock,
	logger *slog.Logger,
) *CommentService {
	return &CommentService{
		posts:    posts,
		comments: comments,
		codec:    contentCodec{cipher: c, policy: policy},
		clock:    clk,
		logger:   logger,
	}
}

// Create attaches a comment to postID and bumps the post's comment counter.
//
// The insert and the increment are two separate writes. If the increment
// fails the comment is kept and the counter stays one short; that is logged,
// not returned.
func (s *CommentService) Create(ctx context.Context, postID, authorID, content string) (*model.Comment, error) {
	if err := validateContent(content); err != nil {
		return nil, err
	}

	if _, err := s.posts.GetPostByID(ctx, postID); err != nil {
		return nil, err
	}

	body, encrypted, err := s.codec.seal(cipher.KindComment, content)
	if err != nil {
		return nil, err
	}

	comment := &model.Comment{
		PostID:    postID,
		AuthorID:  authorID,
		Body:      body,
		Encrypted: encrypted,
		Timestamp: s.clock.Now(),
	}
	if err := s.comments.CreateComment(ctx, comment); err != nil {
		s.logger.Error("failed to create comment",
			slog.String("post_id", postID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating comment: %w", err)
	}
	comment.Content = content

	if err := s.posts.IncrementComments(ctx, postID); err != nil {
		s.logger.Error("comment saved but counter not incremented",
			slog.String("post_id", postID),
			slog.String("comment_id", comment.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("comment created",
		slog.String("id", comment.ID),
		slog.String("post_id", postID),
	)
	return comment, nil
}

// ListForPost returns a post's comments, oldest first.
func (s *CommentService) ListForPost(ctx context.Context, postID string, limit int) ([]model.Comment, error) {
	limit, err := clampLimit(limit)
	if err != nil {
		return nil, err
	}

	if _, err := s.posts.GetPostByID(ctx, postID); err != nil {
		return nil, err
	}
	if limit == 0 {
		return []model.Comment{}, nil
	}

	comments, err := s.comments.ListCommentsByPost(ctx, postID, repository.ListOptions{Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("listing comments: %w", err)
	}

	for i := range comments {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r := s.codec.open(comments[i].Body, comments[i].Encrypted)
		if u, ok := r.(cipher.Unreadable); ok {
			s.logger.Warn("comment content unreadable",
				slog.String("id", comments[i].ID),
				slog.String("error", u.Err.Error()),
			)
		}
		comments[i].Content = cipher.TextOr(r, cipher.Placeholder)
	}
	return comments, nil
}
