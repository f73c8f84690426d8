package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/sakif/socialfeed/internal/apperror"
	"github.com/sakif/socialfeed/internal/executor"
	"github.com/sakif/socialfeed/internal/model"
	"github.com/sakif/socialfeed/internal/repository"
)

// =========================================================================
// IN-MEMORY FAKES
// =========================================================================
//
// The fakes implement the repository interfaces with maps. Each one can be
// told to fail a specific call so error paths are easy to reach.

var errStoreDown = errors.New("store unavailable")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeUserRepo struct {
	mu       sync.Mutex
	byEmail  map[string]*model.User
	nextID   int
	failGet  error
	creates  int
	racedDup bool // CreateUser reports a unique violation once
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byEmail: make(map[string]*model.User)}
}

func (r *fakeUserRepo) CreateUser(_ context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creates++
	if r.racedDup {
		r.racedDup = false
		return apperror.Conflict("email already registered")
	}
	if _, ok := r.byEmail[u.Email]; ok {
		return apperror.Conflict("email already registered")
	}
	r.nextID++
	u.ID = fmt.Sprintf("user-%d", r.nextID)
	stored := *u
	r.byEmail[u.Email] = &stored
	return nil
}

func (r *fakeUserRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failGet != nil {
		return nil, r.failGet
	}
	u, ok := r.byEmail[email]
	if !ok {
		return nil, apperror.NotFound("user", email)
	}
	cp := *u
	return &cp, nil
}

// fakeStore holds posts and comments together so the comment counter and the
// comment rows can be checked against each other.
type fakeStore struct {
	mu       sync.Mutex
	posts    map[string]*model.Post
	comments []model.Comment
	nextID   int

	listCalls       int
	failCreatePost  error
	failIncComments error
	failListPosts   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{posts: make(map[string]*model.Post)}
}

func (s *fakeStore) id(prefix string) string {
	s.nextID++
	return fmt.Sprintf("%s-%d", prefix, s.nextID)
}

func (s *fakeStore) CreatePost(_ context.Context, p *model.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreatePost != nil {
		return s.failCreatePost
	}
	p.ID = s.id("post")
	stored := *p
	stored.Body = append([]byte(nil), p.Body...)
	s.posts[p.ID] = &stored
	return nil
}

func (s *fakeStore) GetPostByID(_ context.Context, id string) (*model.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok {
		return nil, apperror.NotFound("post", id)
	}
	cp := *p
	return &cp, nil
}

func (s *fakeStore) ListPosts(_ context.Context, opts repository.ListOptions) ([]model.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	if s.failListPosts != nil {
		return nil, s.failListPosts
	}
	out := make([]model.Post, 0, len(s.posts))
	for _, p := range s.posts {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if opts.Offset >= len(out) {
		return []model.Post{}, nil
	}
	out = out[opts.Offset:]
	if opts.Limit < len(out) {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (s *fakeStore) IncrementLikes(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok {
		return apperror.NotFound("post", id)
	}
	p.Likes++
	return nil
}

func (s *fakeStore) IncrementComments(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failIncComments != nil {
		return s.failIncComments
	}
	p, ok := s.posts[id]
	if !ok {
		return apperror.NotFound("post", id)
	}
	p.Comments++
	return nil
}

func (s *fakeStore) CreateComment(_ context.Context, c *model.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.id("comment")
	s.comments = append(s.comments, *c)
	return nil
}

func (s *fakeStore) ListCommentsByPost(_ context.Context, postID string, opts repository.ListOptions) ([]model.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Comment{}
	for _, c := range s.comments {
		if c.PostID == postID {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	if opts.Limit < len(out) {
		out = out[:opts.Limit]
	}
	return out, nil
}

// syncExecutor runs tasks inline so tests can observe their effect
// immediately. reject makes Submit refuse everything.
type syncExecutor struct {
	mu     sync.Mutex
	names  []string
	reject bool
}

func (e *syncExecutor) Submit(t executor.Task) bool {
	e.mu.Lock()
	e.names = append(e.names, t.Name)
	reject := e.reject
	e.mu.Unlock()
	if reject {
		return false
	}
	_ = t.Run(context.Background())
	return true
}

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (n *recordingNotifier) Broadcast(msg string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
	return 1
}

func (n *recordingNotifier) messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.msgs...)
}
