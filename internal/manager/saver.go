package manager

import (
	"context"
	"log"
	"sync"
	"time"
)

// saver writes snapshots to the collection one at a time on its own
// goroutine. Only the newest unsaved snapshot is kept: a snapshot queued
// while another is being written supersedes any older queued one.
type saver struct {
	coll    Collection
	logger  *log.Logger
	timeout time.Duration
	debug   bool

	wake    chan struct{} // buffered(1); signals a queued snapshot
	quit    chan struct{}
	stopped chan struct{}
	once    sync.Once

	mu      sync.Mutex
	pending string
	queued  uint64        // snapshots handed over so far
	saved   uint64        // snapshots written or superseded so far
	changed chan struct{} // closed and replaced whenever saved advances
	closed  bool
	lastErr error // result of the most recent write
}

func newSaver(coll Collection, logger *log.Logger, timeout time.Duration, debug bool) *saver {
	return &saver{
		coll:    coll,
		logger:  logger,
		timeout: timeout,
		debug:   debug,
		wake:    make(chan struct{}, 1),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
		changed: make(chan struct{}),
	}
}

func (s *saver) enqueue(value string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.logger.Printf("error saving tasks: session closed")
		return
	}
	s.pending = value
	s.queued++
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *saver) run() {
	defer close(s.stopped)
	for {
		select {
		case <-s.wake:
			s.drain()
		case <-s.quit:
			s.drain()
			return
		}
	}
}

// drain writes the newest snapshot until nothing is left to write.
func (s *saver) drain() {
	for {
		s.mu.Lock()
		if s.saved == s.queued {
			s.mu.Unlock()
			return
		}
		value, target := s.pending, s.queued
		s.mu.Unlock()

		err := s.write(value)

		s.mu.Lock()
		s.lastErr = err
		s.saved = target
		close(s.changed)
		s.changed = make(chan struct{})
		s.mu.Unlock()
	}
}

func (s *saver) write(value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.coll.SaveEncoded(ctx, value); err != nil {
		s.logger.Printf("error saving tasks: %v", err)
		return err
	}
	if s.debug {
		s.logger.Printf("saved %d bytes", len(value))
	}
	return nil
}

func (s *saver) err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *saver) flush(ctx context.Context) error {
	s.mu.Lock()
	target := s.queued
	s.mu.Unlock()

	for {
		s.mu.Lock()
		if s.saved >= target {
			s.mu.Unlock()
			return nil
		}
		changed := s.changed
		s.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *saver) close(ctx context.Context) error {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.quit)
	})
	select {
	case <-s.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
