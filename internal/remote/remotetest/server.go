// Package remotetest provides an in-process fake of the spreadsheet endpoint
// for tests. Rows are matched by job URL, like the real sheet script.
package remotetest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/thewalkersoft/jobtracker/internal/schema"
)

// Server is a fake spreadsheet endpoint backed by an in-memory row list.
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	rows       []*schema.Job
	failAll    bool
	failWrites bool
	calls      map[string]int
}

// NewServer starts a fake endpoint seeded with rows. Call Close when done.
func NewServer(rows ...*schema.Job) *Server {
	s := &Server{calls: make(map[string]int)}
	for _, r := range rows {
		s.rows = append(s.rows, r.Clone())
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// SetFailAll makes every request answer 503.
func (s *Server) SetFailAll(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failAll = fail
}

// SetFailWrites makes every POST answer 500 while GET keeps working.
func (s *Server) SetFailWrites(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWrites = fail
}

// Rows returns a copy of the current rows.
func (s *Server) Rows() []*schema.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*schema.Job, 0, len(s.rows))
	for _, r := range s.rows {
		out = append(out, r.Clone())
	}
	return out
}

// Row returns the row for url, or nil.
func (s *Server) Row(url string) *schema.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(url); i >= 0 {
		return s.rows[i].Clone()
	}
	return nil
}

// Calls returns how many requests were made for an action ("download",
// "upload", "updateJob", "deleteJob").
func (s *Server) Calls(action string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[action]
}

// Writes returns the number of POST requests received.
func (s *Server) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls["upload"] + s.calls["updateJob"] + s.calls["deleteJob"]
}

func (s *Server) indexOf(url string) int {
	for i, r := range s.rows {
		if r.JobURL == url {
			return i
		}
	}
	return -1
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	action := r.URL.Query().Get("action")
	if r.Method == http.MethodGet {
		action = "download"
	} else if action == "" {
		action = "upload"
	}
	s.calls[action]++

	if s.failAll {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}

	if r.Method == http.MethodGet {
		writeJSON(w, s.rows)
		return
	}

	if s.failWrites {
		http.Error(w, "script error", http.StatusInternalServerError)
		return
	}

	var job schema.Job
	if err := json.NewDecoder(r.Body).Decode(&job); err != nil {
		writeJSON(w, map[string]any{"result": "error", "error": err.Error()})
		return
	}

	i := s.indexOf(job.JobURL)
	switch action {
	case "upload":
		s.rows = append(s.rows, job.Clone())
		writeJSON(w, map[string]any{"result": "success", "success": true})
	case "updateJob":
		if i < 0 {
			writeJSON(w, map[string]any{"result": "error", "message": "Job not found"})
			return
		}
		s.rows[i] = job.Clone()
		writeJSON(w, map[string]any{"result": "success", "success": true})
	case "deleteJob":
		if i < 0 {
			writeJSON(w, map[string]any{"result": "error", "message": "Job not found"})
			return
		}
		s.rows = append(s.rows[:i], s.rows[i+1:]...)
		writeJSON(w, map[string]any{"result": "Success", "message": "Job deleted"})
	default:
		http.Error(w, "unknown action", http.StatusBadRequest)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
