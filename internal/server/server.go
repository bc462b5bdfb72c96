package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cwbudde/stride/internal/calc"
	"github.com/cwbudde/stride/internal/store"
)

// Server exposes run management over HTTP: starting runs, polling status,
// streaming progress over SSE, cancelling, and reading back stored results.
type Server struct {
	runs    *RunManager
	store   store.Store
	dataDir string
	addr    string
	server  *http.Server
}

// NewServer creates a new HTTP server backed by the given result store.
func NewServer(addr, dataDir string, st store.Store) *Server {
	return &Server{
		runs:    NewRunManager(),
		store:   st,
		dataDir: dataDir,
		addr:    addr,
	}
}

// Handler returns the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/runs", s.handleRuns)
	mux.HandleFunc("/api/v1/runs/", s.handleRunsWithID)

	return s.loggingMiddleware(s.corsMiddleware(mux))
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}

	slog.Info("Starting HTTP server", "addr", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down HTTP server")
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// handleRuns handles /api/v1/runs
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateRun(w, r)
	case http.MethodGet:
		s.handleListRuns(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleRunsWithID handles /api/v1/runs/:id/*
func (s *Server) handleRunsWithID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/runs/")
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] == "" {
		http.Error(w, "Run ID required", http.StatusBadRequest)
		return
	}

	runID := parts[0]

	if len(parts) == 1 || parts[1] == "" || parts[1] == "status" {
		switch r.Method {
		case http.MethodGet:
			s.handleGetRunStatus(w, r, runID)
		case http.MethodDelete:
			s.handleCancelRun(w, r, runID)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	} else if parts[1] == "stream" {
		s.handleRunStream(w, r, runID)
	} else if parts[1] == "trace" {
		s.handleGetRunTrace(w, r, runID)
	} else if parts[1] == "result" {
		s.handleGetRunResult(w, r, runID)
	} else {
		http.Error(w, "Not found", http.StatusNotFound)
	}
}

// handleCreateRun handles POST /api/v1/runs
func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}

	if req.Calculation == "" {
		http.Error(w, "calculation is required", http.StatusBadRequest)
		return
	}
	if _, err := calc.Lookup(req.Calculation); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.MaxIterations == 0 && req.TargetCost == nil && req.TimeBudget == "" {
		// Refuse runs with no termination condition at all.
		http.Error(w, "at least one of maxIterations, targetCost or timeBudget is required", http.StatusBadRequest)
		return
	}
	if req.TimeBudget != "" {
		if _, err := time.ParseDuration(req.TimeBudget); err != nil {
			http.Error(w, fmt.Sprintf("invalid timeBudget: %v", err), http.StatusBadRequest)
			return
		}
	}

	run := s.runs.CreateRun(req)

	// Start worker in background
	go executeRun(context.Background(), s.runs, s.store, s.dataDir, run.ID)

	writeJSON(w, http.StatusCreated, run)
}

// handleListRuns handles GET /api/v1/runs
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.runs.ListRuns())
}

// handleGetRunStatus handles GET /api/v1/runs/:id/status
func (s *Server) handleGetRunStatus(w http.ResponseWriter, r *http.Request, runID string) {
	run, exists := s.runs.GetRun(runID)
	if !exists {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}

	var elapsed time.Duration
	if run.EndTime != nil {
		elapsed = run.EndTime.Sub(run.StartTime)
	} else {
		elapsed = time.Since(run.StartTime)
	}

	// Iteration throughput over the run so far
	ips := float64(0)
	if elapsed.Seconds() > 0 {
		ips = float64(run.Iterations) / elapsed.Seconds()
	}

	response := map[string]interface{}{
		"id":         run.ID,
		"state":      run.State,
		"request":    run.Request,
		"iterations": run.Iterations,
		"cost":       run.Cost,
		"bestCost":   run.BestCost,
		"reason":     run.Reason,
		"elapsed":    elapsed.Seconds(),
		"ips":        ips,
		"startTime":  run.StartTime,
		"endTime":    run.EndTime,
		"error":      run.Error,
	}

	writeJSON(w, http.StatusOK, response)
}

// handleCancelRun handles DELETE /api/v1/runs/:id
func (s *Server) handleCancelRun(w http.ResponseWriter, r *http.Request, runID string) {
	found, err := s.runs.Cancel(runID)
	if !found {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"id":    runID,
		"state": string(StateCancelled),
	})
}

// handleGetRunTrace handles GET /api/v1/runs/:id/trace
func (s *Server) handleGetRunTrace(w http.ResponseWriter, r *http.Request, runID string) {
	tr, err := store.NewTraceReader(s.dataDir, runID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "Trace not found", http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("Failed to open trace: %v", err), http.StatusInternalServerError)
		return
	}
	defer tr.Close()

	entries, err := tr.ReadAll()
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to read trace: %v", err), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

// handleGetRunResult handles GET /api/v1/runs/:id/result
func (s *Server) handleGetRunResult(w http.ResponseWriter, r *http.Request, runID string) {
	result, err := s.store.LoadResult(runID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "Result not found", http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("Failed to load result: %v", err), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// corsMiddleware adds CORS headers
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("HTTP request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
