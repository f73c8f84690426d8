package server

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sakif/socialfeed/internal/config"
	"github.com/sakif/socialfeed/internal/repository"
	"github.com/sakif/socialfeed/internal/repository/mongodb"
	"github.com/sakif/socialfeed/internal/repository/sqlite"
)

// Store is everything the server needs from a storage backend.
type Store interface {
	repository.UserRepository
	repository.PostRepository
	repository.CommentRepository
	Ping(ctx context.Context) error
	Close() error
}

var (
	_ Store = (*sqlite.DB)(nil)
	_ Store = (*mongodb.Store)(nil)
)

// OpenStore connects to the backend named by cfg.StoreURI and brings its
// schema (SQLite migrations or MongoDB indexes) up to date.
func OpenStore(ctx context.Context, cfg *config.Config) (Store, error) {
	if cfg.IsMongo() {
		ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		s, err := mongodb.New(ctx, cfg.StoreURI, cfg.StoreDatabase)
		if err != nil {
			return nil, fmt.Errorf("opening mongodb store: %w", err)
		}
		return s, nil
	}

	if cfg.StoreURI != ":memory:" {
		dir := filepath.Dir(cfg.StoreURI)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
		}
	}

	db, err := sqlite.New(cfg.StoreURI)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite store: %w", err)
	}
	return db, nil
}
