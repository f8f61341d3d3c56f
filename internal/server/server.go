// Package server exposes one task session over a small HTTP JSON API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net"
	"net/http"
	"time"

	"tasklist/internal/manager"
	"tasklist/internal/task"
)

const (
	// shutdownTimeout bounds how long in-flight requests get once the context ends.
	shutdownTimeout = 5 * time.Second

	// MaxBodySize is the largest request body accepted.
	MaxBodySize = 64 << 10
)

// Server serves the task session's operations and views.
type Server struct {
	mgr    *manager.Manager
	logger *log.Logger
	router *http.ServeMux
}

// New creates a Server for mgr. A nil logger discards.
func New(mgr *manager.Manager, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	s := &Server{mgr: mgr, logger: logger}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Serve accepts connections on ln until ctx is done, then shuts down.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          s.logger,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Printf("listening on %s", ln.Addr())
	err := srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		<-done
		return nil
	}
	return err
}

// ListenAndServe listens on addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *Server) setupRoutes() {
	s.router = http.NewServeMux()
	s.router.HandleFunc("GET /healthz", s.health)
	s.router.HandleFunc("GET /tasks", s.view)
	s.router.HandleFunc("POST /tasks", s.addTask)
	s.router.HandleFunc("DELETE /tasks/{id}", s.deleteTask)
	s.router.HandleFunc("POST /tasks/{id}/toggle", s.toggleTask)
	s.router.HandleFunc("POST /tasks/{id}/edit", s.startEditing)
	s.router.HandleFunc("PUT /pending", s.setPending)
	s.router.HandleFunc("POST /update", s.updateTask)
	s.router.HandleFunc("POST /cancel", s.cancelEditing)
	s.router.HandleFunc("POST /clear", s.clearCompleted)
	s.router.HandleFunc("PUT /filter", s.setFilter)
	s.router.HandleFunc("PUT /search", s.setSearch)
}

type textRequest struct {
	Text string `json:"text"`
}

type filterRequest struct {
	Filter task.Filter `json:"filter"`
}

type searchRequest struct {
	Term string `json:"term"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) view(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.mgr.View())
}

func (s *Server) addTask(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if !decode(w, r, &req) {
		return
	}
	t, err := s.mgr.AddTask(req.Text)
	switch {
	case errors.Is(err, manager.ErrEditing):
		jsonError(w, err.Error(), http.StatusConflict)
		return
	case errors.Is(err, manager.ErrEmptyText):
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	case err != nil:
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	s.mgr.DeleteTask(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) toggleTask(w http.ResponseWriter, r *http.Request) {
	s.mgr.ToggleCompleted(r.PathValue("id"))
	writeJSON(w, http.StatusOK, s.mgr.View())
}

func (s *Server) startEditing(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.mgr.StartEditing(r.PathValue("id"), req.Text); err != nil {
		if errors.Is(err, manager.ErrTaskNotFound) {
			jsonError(w, "not found", http.StatusNotFound)
			return
		}
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, s.mgr.View())
}

func (s *Server) setPending(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if !decode(w, r, &req) {
		return
	}
	s.mgr.SetPendingText(req.Text)
	writeJSON(w, http.StatusOK, s.mgr.View())
}

func (s *Server) updateTask(w http.ResponseWriter, r *http.Request) {
	s.mgr.UpdateTask()
	writeJSON(w, http.StatusOK, s.mgr.View())
}

func (s *Server) cancelEditing(w http.ResponseWriter, r *http.Request) {
	s.mgr.CancelEditing()
	writeJSON(w, http.StatusOK, s.mgr.View())
}

func (s *Server) clearCompleted(w http.ResponseWriter, r *http.Request) {
	s.mgr.ClearCompleted()
	writeJSON(w, http.StatusOK, s.mgr.View())
}

func (s *Server) setFilter(w http.ResponseWriter, r *http.Request) {
	var req filterRequest
	if !decode(w, r, &req) {
		return
	}
	s.mgr.SetFilter(req.Filter)
	writeJSON(w, http.StatusOK, s.mgr.View())
}

func (s *Server) setSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !decode(w, r, &req) {
		return
	}
	s.mgr.SetSearchTerm(req.Term)
	writeJSON(w, http.StatusOK, s.mgr.View())
}

// decode reads a JSON body into v, answering 400 or 413 itself on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, "request body too large", http.StatusRequestEntityTooLarge)
			return false
		}
		jsonError(w, "invalid JSON", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
