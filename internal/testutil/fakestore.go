// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"sync"

	"tasklist/internal/store"
)

var _ store.Store = (*FakeStore)(nil)

// FakeStore is an in-memory implementation of store.Store for testing.
type FakeStore struct {
	mu      sync.Mutex
	values  map[string]string
	history []string // every value passed to a successful Set, in order

	// Error injection for testing
	GetErr error
	SetErr error

	// Gate, if non-nil, blocks every Set until a value is received from it
	// or the context is done.
	Gate chan struct{}
}

// NewFakeStore creates an empty FakeStore.
func NewFakeStore() *FakeStore {
	return &FakeStore{values: make(map[string]string)}
}

// Put seeds a value without recording it in the history.
func (f *FakeStore) Put(key, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = value
}

// Value returns the current value for key.
func (f *FakeStore) Value(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[key]
	return v, ok
}

// History returns a copy of every successfully stored value.
func (f *FakeStore) History() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]string, len(f.history))
	copy(result, f.history)
	return result
}

// SetFailure changes the injected Set error while saves may be running.
func (f *FakeStore) SetFailure(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SetErr = err
}

// Get implements store.Store.
func (f *FakeStore) Get(ctx context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.GetErr != nil {
		return "", false, f.GetErr
	}
	v, ok := f.values[key]
	return v, ok, nil
}

// Set implements store.Store.
func (f *FakeStore) Set(ctx context.Context, key, value string) error {
	if f.Gate != nil {
		select {
		case <-f.Gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SetErr != nil {
		return f.SetErr
	}
	f.values[key] = value
	f.history = append(f.history, value)
	return nil
}
