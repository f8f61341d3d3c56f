// Package googletasks implements store.Store on top of the Google Tasks API.
//
// Each store lives in a dedicated task list. A key is a task titled with the
// key name and its value is kept in that task's notes.
package googletasks

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"google.golang.org/api/option"
	tasks "google.golang.org/api/tasks/v1"

	"tasklist/internal/config"
)

const (
	// DefaultListTitle is the task list used when none is configured.
	DefaultListTitle = "tasklist"

	// MaxValueSize is the largest value the notes field accepts.
	MaxValueSize = 8192

	// APITimeout is the timeout for API calls.
	APITimeout = 5 * time.Second
)

// ErrValueTooLarge is returned by Set for values over MaxValueSize.
var ErrValueTooLarge = errors.New("value too large for google tasks notes")

// Client implements store.Store using Google Tasks API.
type Client struct {
	svc       *tasks.Service
	listTitle string

	mu      sync.Mutex
	listID  string            // resolved lazily
	taskIDs map[string]string // key -> task ID
}

// New creates a new Google Tasks store.
// Requires oauth_client.json and token.json to exist.
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	oauthConfig, err := OAuthConfig(cfg)
	if err != nil {
		return nil, err
	}
	token, err := LoadToken(cfg.TokenPath())
	if err != nil {
		return nil, err
	}

	// The token source outlives ctx so a final save can still refresh the token
	httpClient := NewAuthClient(ctx, oauthConfig, token)

	return NewWithHTTPClient(ctx, httpClient, cfg.Store.List)
}

// NewWithHTTPClient creates a client with a custom HTTP client (for testing).
// Extra options, such as option.WithEndpoint, are passed to the API client.
func NewWithHTTPClient(ctx context.Context, httpClient *http.Client, listTitle string, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	svc, err := tasks.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create tasks service: %w", err)
	}
	if strings.TrimSpace(listTitle) == "" {
		listTitle = DefaultListTitle
	}
	return &Client{
		svc:       svc,
		listTitle: listTitle,
		taskIDs:   make(map[string]string),
	}, nil
}

// Get implements store.Store.
func (c *Client) Get(ctx context.Context, key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	c.mu.Lock()
	defer c.mu.Unlock()

	listID, err := c.resolveList(ctx, false)
	if err != nil || listID == "" {
		return "", false, err
	}
	item, err := c.findTask(ctx, listID, key)
	if err != nil || item == nil {
		return "", false, err
	}
	return item.Notes, true, nil
}

// Set implements store.Store.
func (c *Client) Set(ctx context.Context, key, value string) error {
	if len(value) > MaxValueSize {
		return fmt.Errorf("%w: %d bytes", ErrValueTooLarge, len(value))
	}

	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	c.mu.Lock()
	defer c.mu.Unlock()

	listID, err := c.resolveList(ctx, true)
	if err != nil {
		return err
	}

	taskID, ok := c.taskIDs[key]
	if !ok {
		item, err := c.findTask(ctx, listID, key)
		if err != nil {
			return err
		}
		if item != nil {
			taskID = item.Id
		}
	}

	if taskID == "" {
		created, err := c.svc.Tasks.Insert(listID, &tasks.Task{Title: key, Notes: value}).Context(ctx).Do()
		if err != nil {
			return wrapError(err)
		}
		c.taskIDs[key] = created.Id
		return nil
	}

	_, err = c.svc.Tasks.Patch(listID, taskID, &tasks.Task{Notes: value}).Context(ctx).Do()
	if err != nil {
		// The cached task may have been deleted elsewhere; look it up again next time.
		delete(c.taskIDs, key)
		return wrapError(err)
	}
	c.taskIDs[key] = taskID
	return nil
}

// resolveList finds the store's task list by title (case-insensitive, trimmed).
// If create is set, a missing list is created; otherwise "" is returned.
// Must be called with mu held.
func (c *Client) resolveList(ctx context.Context, create bool) (string, error) {
	if c.listID != "" {
		return c.listID, nil
	}

	want := strings.ToLower(strings.TrimSpace(c.listTitle))
	var found string
	err := c.svc.Tasklists.List().MaxResults(100).Pages(ctx, func(resp *tasks.TaskLists) error {
		for _, list := range resp.Items {
			if found == "" && strings.ToLower(strings.TrimSpace(list.Title)) == want {
				found = list.Id
			}
		}
		return nil
	})
	if err != nil {
		return "", wrapError(err)
	}

	if found == "" && create {
		list, err := c.svc.Tasklists.Insert(&tasks.TaskList{Title: c.listTitle}).Context(ctx).Do()
		if err != nil {
			return "", wrapError(err)
		}
		found = list.Id
	}
	c.listID = found
	return found, nil
}

// findTask returns the task titled key, or nil. Must be called with mu held.
func (c *Client) findTask(ctx context.Context, listID, key string) (*tasks.Task, error) {
	var found *tasks.Task
	err := c.svc.Tasks.List(listID).
		MaxResults(100).
		ShowCompleted(true).
		ShowHidden(true).
		ShowDeleted(false).
		Pages(ctx, func(resp *tasks.Tasks) error {
			for _, item := range resp.Items {
				if found == nil && item.Title == key {
					found = item
				}
			}
			return nil
		})
	if err != nil {
		return nil, wrapError(err)
	}
	if found != nil {
		c.taskIDs[key] = found.Id
	}
	return found, nil
}

// wrapError wraps API errors with user-friendly messages.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	errStr := err.Error()

	// Check for timeout
	if strings.Contains(errStr, "context deadline exceeded") {
		return fmt.Errorf("request timed out")
	}

	// Check for auth errors
	if strings.Contains(errStr, "401") || strings.Contains(errStr, "403") {
		return fmt.Errorf("token expired or revoked (run: tasklist login)")
	}

	// Check for not found
	if strings.Contains(errStr, "404") {
		return fmt.Errorf("not found")
	}

	return err
}
