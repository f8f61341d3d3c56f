// Package manager owns the in-memory task collection of one session.
//
// Every operation is a serialized transition over a single state value.
// Mutations update memory immediately and hand the resulting snapshot to a
// background saver; derived views are recomputed on every read.
package manager

import (
	"context"
	"errors"
	"io"
	"log"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"tasklist/internal/task"
)

var (
	// ErrTaskNotFound is returned by StartEditing for an id that is not in the collection.
	ErrTaskNotFound = errors.New("task not found")

	// ErrEmptyText is returned by AddTask for text that is blank after trimming.
	ErrEmptyText = errors.New("text is required")

	// ErrEditing is returned by AddTask while a task is being edited.
	ErrEditing = errors.New("a task is being edited")
)

// DefaultSaveTimeout bounds a single write to the store.
const DefaultSaveTimeout = 10 * time.Second

// Collection is the persistence the manager loads from and saves to.
// *store.Collection implements it.
type Collection interface {
	// Load returns the persisted collection, or an empty one.
	Load(ctx context.Context) []task.Task

	// SaveEncoded replaces the persisted collection with an encoded snapshot.
	SaveEncoded(ctx context.Context, value string) error
}

// Options configures a Manager. The zero value is usable.
type Options struct {
	// Logger receives load and save failures. Nil discards.
	Logger *log.Logger

	// Debug also logs every completed save.
	Debug bool

	// Now returns the current time, used for task ids. Defaults to time.Now.
	Now func() time.Time

	// SaveTimeout bounds each store write. Defaults to DefaultSaveTimeout.
	SaveTimeout time.Duration
}

// View is everything a front end needs to render the current state.
type View struct {
	Tasks       []task.Task `json:"tasks"`
	Remaining   int         `json:"remaining"`
	Filter      task.Filter `json:"filter"`
	SearchTerm  string      `json:"search"`
	PendingText string      `json:"pending"`
	Editing     bool        `json:"editing"`
}

// Manager is the task collection manager.
type Manager struct {
	mu          sync.Mutex
	tasks       []task.Task
	editing     bool
	editingID   string
	pendingText string
	filter      task.Filter
	searchTerm  string
	lastID      int64

	now    func() time.Time
	logger *log.Logger
	saver  *saver
}

// New loads the persisted collection and starts the background saver.
// Call Close to flush pending saves when the session ends.
func New(ctx context.Context, coll Collection, opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	timeout := opts.SaveTimeout
	if timeout <= 0 {
		timeout = DefaultSaveTimeout
	}

	m := &Manager{
		filter: task.All,
		now:    now,
		logger: logger,
		saver:  newSaver(coll, logger, timeout, opts.Debug),
	}
	m.tasks = m.dedupe(coll.Load(ctx))
	for _, t := range m.tasks {
		if n, err := strconv.ParseInt(t.ID, 10, 64); err == nil && n > m.lastID {
			m.lastID = n
		}
	}
	go m.saver.run()
	return m
}

// dedupe drops tasks whose id was already seen, keeping the first.
func (m *Manager) dedupe(tasks []task.Task) []task.Task {
	seen := make(map[string]bool, len(tasks))
	result := make([]task.Task, 0, len(tasks))
	for _, t := range tasks {
		if seen[t.ID] {
			m.logger.Printf("dropping task with duplicate id %s", t.ID)
			continue
		}
		seen[t.ID] = true
		result = append(result, t)
	}
	return result
}

// AddTask appends a new open task with the given text.
// The text itself is stored untrimmed. Blank text returns ErrEmptyText and
// adding while a task is being edited returns ErrEditing; neither changes
// any state.
func (m *Manager) AddTask(text string) (task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.editing {
		return task.Task{}, ErrEditing
	}
	if strings.TrimSpace(text) == "" {
		return task.Task{}, ErrEmptyText
	}
	t := task.Task{ID: m.nextIDLocked(), Text: text, Completed: false}
	m.tasks = append(m.tasks, t)
	m.persistLocked()
	m.pendingText = ""
	return t, nil
}

// DeleteTask removes the task with the given id.
// Returns false, without error, if there is no such task.
func (m *Manager) DeleteTask(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexLocked(id)
	if i < 0 {
		return false
	}
	m.tasks = slices.Delete(m.tasks, i, i+1)
	m.persistLocked()
	return true
}

// ToggleCompleted flips the completion flag of the task with the given id.
// Returns false if there is no such task.
func (m *Manager) ToggleCompleted(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexLocked(id)
	if i < 0 {
		return false
	}
	m.tasks[i].Completed = !m.tasks[i].Completed
	m.persistLocked()
	return true
}

// StartEditing enters editing mode for the task with the given id and loads
// currentText into the pending text buffer. The collection is not changed.
func (m *Manager) StartEditing(id, currentText string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.indexLocked(id) < 0 {
		return ErrTaskNotFound
	}
	m.editing = true
	m.editingID = id
	m.pendingText = currentText
	return nil
}

// SetPendingText replaces the shared input buffer.
func (m *Manager) SetPendingText(s string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pendingText = s
}

// UpdateTask replaces the text of the task being edited with the pending text
// and leaves editing mode. The pending text is not trimmed or checked.
// Returns true if a task was changed.
func (m *Manager) UpdateTask() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.editing {
		return false
	}
	updated := false
	if i := m.indexLocked(m.editingID); i >= 0 {
		m.tasks[i].Text = m.pendingText
		updated = true
	}
	m.persistLocked()
	m.pendingText = ""
	m.editing = false
	m.editingID = ""
	return updated
}

// CancelEditing leaves editing mode without changing any task.
func (m *Manager) CancelEditing() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.editing = false
	m.editingID = ""
	m.pendingText = ""
}

// ClearCompleted removes every completed task and returns how many were removed.
func (m *Manager) ClearCompleted() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := make([]task.Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		if !t.Completed {
			kept = append(kept, t)
		}
	}
	removed := len(m.tasks) - len(kept)
	m.tasks = kept
	m.persistLocked()
	return removed
}

// SetFilter sets the status filter applied by VisibleTasks.
func (m *Manager) SetFilter(f task.Filter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.filter = f
}

// SetSearchTerm sets the search term applied by VisibleTasks.
func (m *Manager) SetSearchTerm(s string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searchTerm = s
}

// VisibleTasks returns the tasks matching the status filter and then the
// case-insensitive search term, in insertion order.
func (m *Manager) VisibleTasks() []task.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.visibleLocked()
}

// RemainingCount returns the number of open tasks in the whole collection,
// regardless of filter and search term.
func (m *Manager) RemainingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.remainingLocked()
}

// Tasks returns a copy of the full collection.
func (m *Manager) Tasks() []task.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]task.Task, len(m.tasks))
	copy(result, m.tasks)
	return result
}

// Filter returns the current status filter.
func (m *Manager) Filter() task.Filter {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filter
}

// SearchTerm returns the current search term.
func (m *Manager) SearchTerm() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.searchTerm
}

// PendingText returns the shared input buffer.
func (m *Manager) PendingText() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pendingText
}

// Editing reports whether a task is being edited.
func (m *Manager) Editing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.editing
}

// EditingID returns the id of the task being edited. It is only meaningful
// while Editing reports true.
func (m *Manager) EditingID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.editingID
}

// View returns a consistent read of the presentation state.
func (m *Manager) View() View {
	m.mu.Lock()
	defer m.mu.Unlock()
	return View{
		Tasks:       m.visibleLocked(),
		Remaining:   m.remainingLocked(),
		Filter:      m.filter,
		SearchTerm:  m.searchTerm,
		PendingText: m.pendingText,
		Editing:     m.editing,
	}
}

// Flush blocks until every snapshot produced so far has been written to the
// store (or failed and been logged), or ctx is done.
func (m *Manager) Flush(ctx context.Context) error {
	return m.saver.flush(ctx)
}

// SaveErr reports the failure of the most recent store write, or nil if it
// succeeded. The failure has already been logged.
func (m *Manager) SaveErr() error {
	return m.saver.err()
}

// Close flushes pending saves and stops the saver. Mutations after Close
// still change memory but are no longer persisted.
func (m *Manager) Close(ctx context.Context) error {
	return m.saver.close(ctx)
}

func (m *Manager) visibleLocked() []task.Task {
	result := make([]task.Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		if !m.filter.Match(t) {
			continue
		}
		if !task.ContainsFold(t.Text, m.searchTerm) {
			continue
		}
		result = append(result, t)
	}
	return result
}

func (m *Manager) remainingLocked() int {
	n := 0
	for _, t := range m.tasks {
		if !t.Completed {
			n++
		}
	}
	return n
}

func (m *Manager) indexLocked(id string) int {
	for i, t := range m.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// nextIDLocked returns the current time in milliseconds, bumped past the last
// issued id and any id already in the collection.
func (m *Manager) nextIDLocked() string {
	n := m.now().UnixMilli()
	if n <= m.lastID {
		n = m.lastID + 1
	}
	for m.indexLocked(strconv.FormatInt(n, 10)) >= 0 {
		n++
	}
	m.lastID = n
	return strconv.FormatInt(n, 10)
}

// persistLocked encodes the current collection and queues it for saving.
// Encoding under the lock keeps every snapshot a single state.
func (m *Manager) persistLocked() {
	value, err := task.Encode(m.tasks)
	if err != nil {
		m.logger.Printf("error saving tasks: %v", err)
		return
	}
	m.saver.enqueue(value)
}
