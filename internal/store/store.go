// Package store defines the durable key/value interface the task manager
// persists through, and the typed collection adapter on top of it.
package store

import (
	"context"
	"io"
	"log"

	"tasklist/internal/task"
)

// DefaultKey is the key the task collection is stored under.
const DefaultKey = "tasks"

// Store is a durable string key/value store.
// Backends never interpret values. Set replaces the whole value.
type Store interface {
	// Get returns the value stored under key.
	// found is false if the key has never been set.
	Get(ctx context.Context, key string) (value string, found bool, err error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
}

// Collection reads and writes a whole task collection under a single key.
type Collection struct {
	store  Store
	key    string
	logger *log.Logger
}

// NewCollection wraps s. An empty key selects DefaultKey; a nil logger discards.
func NewCollection(s Store, key string, logger *log.Logger) *Collection {
	if key == "" {
		key = DefaultKey
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Collection{store: s, key: key, logger: logger}
}

// Key returns the key the collection is stored under.
func (c *Collection) Key() string { return c.key }

// Load returns the persisted collection.
// Missing, unreadable or malformed data is logged and yields an empty collection.
func (c *Collection) Load(ctx context.Context) []task.Task {
	value, found, err := c.store.Get(ctx, c.key)
	if err != nil {
		c.logger.Printf("error loading tasks: %v", err)
		return []task.Task{}
	}
	if !found {
		return []task.Task{}
	}
	tasks, err := task.Decode(value)
	if err != nil {
		c.logger.Printf("error loading tasks: %v", err)
		return []task.Task{}
	}
	return tasks
}

// Save encodes and stores the whole collection.
func (c *Collection) Save(ctx context.Context, tasks []task.Task) error {
	value, err := task.Encode(tasks)
	if err != nil {
		return err
	}
	return c.SaveEncoded(ctx, value)
}

// SaveEncoded stores an already encoded collection.
func (c *Collection) SaveEncoded(ctx context.Context, value string) error {
	return c.store.Set(ctx, c.key, value)
}
