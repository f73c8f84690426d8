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

// CommentService is what CommentHandler needs from the service layer.
type CommentService interface {
	Create(ctx context.Context, postID, authorID, content string) (*model.Comment, error)
	ListForPost(ctx context.Context, postID string, limit int) ([]model.Comment, error)
}

type CommentHandler struct {
	comments CommentService
	logger   *slog.Logger
}

func NewCommentHandler(comments CommentService, logger *slog.Logger) *CommentHandler {
	return &CommentHandler{comments: comments, logger: logger}
}

// HandleCreate comments on a post.
//
// HTTP: POST /comments/{post_id}
// REQUEST BODY: {"content": "nice"}
func (h *CommentHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
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

	comment, err := h.comments.Create(r.Context(), chi.URLParam(r, "post_id"), authorID, req.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, comment)
}

// HandleList returns a post's comments, oldest first.
//
// HTTP: GET /comments/{post_id}?limit=N
func (h *CommentHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		writeError(w, err)
		return
	}

	comments, err := h.comments.ListForPost(r.Context(), chi.URLParam(r, "post_id"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}
