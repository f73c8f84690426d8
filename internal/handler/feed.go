package handler

import (
	"log/slog"
	"net/http"
	"time"

	"nhooyr.io/websocket"

	"github.com/sakif/socialfeed/internal/feed"
)

// FeedHandler upgrades clients to a push-only websocket and registers them
// with the broadcaster.
type FeedHandler struct {
	broadcaster    *feed.Broadcaster
	originPatterns []string
	logger         *slog.Logger
}

// NewFeedHandler creates a FeedHandler. originPatterns are host patterns
// allowed in the Origin header besides the request's own host.
func NewFeedHandler(b *feed.Broadcaster, originPatterns []string, logger *slog.Logger) *FeedHandler {
	return &FeedHandler{broadcaster: b, originPatterns: originPatterns, logger: logger}
}

// HandleFeed keeps the connection open until the client leaves or the
// broadcaster drops it. Incoming frames are discarded.
//
// HTTP: GET /ws/feed (websocket upgrade)
func (h *FeedHandler) HandleFeed(w http.ResponseWriter, r *http.Request) {
	// The server's read/write timeouts are meant for short requests. Clear
	// them for this long-lived connection; the broadcaster bounds each send.
	rc := http.NewResponseController(w)
	_ = rc.SetReadDeadline(time.Time{})
	_ = rc.SetWriteDeadline(time.Time{})

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		// Accept has already written the error response.
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	// CloseRead answers pings and close frames; its context ends when the
	// peer goes away.
	ctx := conn.CloseRead(r.Context())

	sub := h.broadcaster.Register(feed.NewWebSocketConn(conn))
	defer h.broadcaster.Unregister(sub)

	select {
	case <-ctx.Done():
	case <-sub.Done():
	}
}
