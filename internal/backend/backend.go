// Package backend opens the durable store selected by the configuration.
package backend

import (
	"context"
	"errors"
	"fmt"

	"tasklist/internal/backend/filestore"
	"tasklist/internal/backend/googletasks"
	"tasklist/internal/backend/sqlstore"
	"tasklist/internal/config"
	"tasklist/internal/store"
)

// ErrUnknownBackend is returned for an unrecognized store type.
var ErrUnknownBackend = errors.New("unknown store type")

// Open creates the store named by cfg.Store.Type.
// Stores that hold connections also implement io.Closer.
func Open(ctx context.Context, cfg *config.Config) (store.Store, error) {
	var (
		s   store.Store
		err error
	)
	switch cfg.Store.Type {
	case config.StoreFile, "":
		s, err = filestore.New(cfg.Store.Path)
	case config.StoreSQLite:
		s, err = sqlstore.OpenSQLite(ctx, cfg.Store.Path)
	case config.StoreMySQL:
		s, err = sqlstore.OpenMySQL(ctx, cfg.Store.DSN)
	case config.StoreGoogle:
		s, err = googletasks.New(ctx, cfg)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, cfg.Store.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", cfg.Store.Type, err)
	}
	return s, nil
}

// NeedsAuth reports whether the configured store needs Google credentials.
func NeedsAuth(cfg *config.Config) bool {
	return cfg.Store.Type == config.StoreGoogle
}
