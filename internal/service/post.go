package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/socialfeed/internal/cipher"
	"github.com/sakif/socialfeed/internal/clock"
	"github.com/sakif/socialfeed/internal/executor"
	"github.com/sakif/socialfeed/internal/model"
	"github.com/sakif/socialfeed/internal/repository"
)

// NewPostMessage is the feed notification for a newly created post.
func NewPostMessage(postID string) string {
	return "new_post:" + postID
}

// PostService creates, lists and likes posts.
type PostService struct {
	posts    repository.PostRepository
	codec    contentCodec
	executor executor.Executor
	notifier Notifier
	clock    clock.Clock
	logger   *slog.Logger
}

func NewPostService(
	posts repository.PostRepository,
	c *cipher.Cipher,
	policy cipher.Policy,
	exec executor.Executor,
	notifier Notifier,
	clk clock.Clock,
	logger *slog.Logger,
) *PostService {
	return &PostService{
		posts:    posts,
		codec:    contentCodec{cipher: c, policy: policy},
		executor: exec,
		notifier: notifier,
		clock:    clk,
		logger:   logger,
	}
}

// Create stores a post and schedules the new_post broadcast. The broadcast is
// best effort: it runs on the executor after Create returns, and a full queue
// only costs the notification.
func (s *PostService) Create(ctx context.Context, authorID, content string) (*model.Post, error) {
	if err := validateContent(content); err != nil {
		return nil, err
	}

	body, encrypted, err := s.codec.seal(cipher.KindPost, content)
	if err != nil {
		return nil, err
	}

	post := &model.Post{
		AuthorID:  authorID,
		Body:      body,
		Encrypted: encrypted,
		Timestamp: s.clock.Now(),
	}
	if err := s.posts.CreatePost(ctx, post); err != nil {
		s.logger.Error("failed to create post",
			slog.String("author_id", authorID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating post: %w", err)
	}
	post.Content = content

	s.logger.Info("post created",
		slog.String("id", post.ID),
		slog.String("author_id", authorID),
		slog.Bool("encrypted", encrypted),
	)

	msg := NewPostMessage(post.ID)
	s.executor.Submit(executor.Task{
		Name: "broadcast " + msg,
		Run: func(context.Context) error {
			n := s.notifier.Broadcast(msg)
			s.logger.Debug("broadcast queued", slog.String("message", msg), slog.Int("subscribers", n))
			return nil
		},
	})

	return post, nil
}

// List returns up to limit posts, newest first. A row that can't be decrypted
// is returned with placeholder content instead of failing the whole page.
func (s *PostService) List(ctx context.Context, limit int) ([]model.Post, error) {
	limit, err := clampLimit(limit)
	if err != nil {
		return nil, err
	}
	if limit == 0 {
		return []model.Post{}, nil
	}

	posts, err := s.posts.ListPosts(ctx, repository.ListOptions{Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("listing posts: %w", err)
	}

	for i := range posts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		posts[i].Content = s.readable(posts[i].ID, s.codec.open(posts[i].Body, posts[i].Encrypted))
	}
	return posts, nil
}

// Like adds one like. Repeated likes from the same user all count.
func (s *PostService) Like(ctx context.Context, postID string) error {
	return s.posts.IncrementLikes(ctx, postID)
}

func (s *PostService) readable(id string, r cipher.Result) string {
	if u, ok := r.(cipher.Unreadable); ok {
		s.logger.Warn("post content unreadable",
			slog.String("id", id),
			slog.String("error", u.Err.Error()),
		)
		return cipher.Placeholder
	}
	return cipher.TextOr(r, cipher.Placeholder)
}
