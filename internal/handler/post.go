package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/socialfeed/internal/apperror"
	"github.com/sakif/socialfeed/internal/auth"
	"github.com/sakif/socialfeed/internal/model"
)

// PostService is what PostHandler needs from the service layer.
type PostService interface {
	Create(ctx context.Context, authorID, content string) (*model.Post, error)
	List(ctx context.Context, limit int) ([]model.Post, error)
	Like(ctx context.Context, postID string) error
}

// PostHandler serves the post endpoints.
type PostHandler struct {
	posts  PostService
	logger *slog.Logger
}

func NewPostHandler(posts PostService, logger *slog.Logger) *PostHandler {
	return &PostHandler{posts: posts, logger: logger}
}

// contentRequest is the body for both posts and comments.
type contentRequest struct {
	Content string `json:"content" validate:"required,max=280"`
}

// HandleList returns the most recent posts.
//
// HTTP: GET /posts?limit=N
func (h *PostHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		writeError(w, err)
		return
	}

	posts, err := h.posts.List(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

// HandleCreate publishes a post as the authenticated user.
//
// HTTP: POST /posts
// REQUEST BODY: {"content": "hello"}
func (h *PostHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	authorID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("could not validate credentials"))
		return
	}

	var req contentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	post, err := h.posts.Create(r.Context(), authorID, req.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// HandleLike adds a like to a post.
//
// HTTP: POST /posts/{id}/like
func (h *PostHandler) HandleLike(w http.ResponseWriter, r *http.Request) {
	if err := h.posts.Like(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Liked"})
}
