// Package server exposes the review pipeline over HTTP: webhook
// intake, manual triggers, diff uploads, and the query surface for
// persisted reviews and failures.
package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/pandiarajan-src/ai-code-reviewer/internal/config"
	"github.com/pandiarajan-src/ai-code-reviewer/internal/engine"
	"github.com/pandiarajan-src/ai-code-reviewer/internal/storage"
)

// ConnChecker verifies reachability of an upstream dependency.
type ConnChecker interface {
	TestConnection(ctx context.Context) error
}

// Server is the HTTP API server for the review daemon
type Server struct {
	db         *storage.DB
	engine     *engine.Engine
	cfg        *config.Config
	bitbucket  ConnChecker
	llm        ConnChecker
	httpServer *http.Server
	startTime  time.Time

	// Tracks in-flight webhook goroutines so Stop can drain them
	inflight sync.WaitGroup
}

// NewServer creates a new review API server
func NewServer(db *storage.DB, eng *engine.Engine, cfg *config.Config, bb, llmCheck ConnChecker) *Server {
	s := &Server{
		db:        db,
		engine:    eng,
		cfg:       cfg,
		bitbucket: bb,
		llm:       llmCheck,
		startTime: time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/webhook/code-review", s.handleWebhook)
	mux.HandleFunc("/manual-review", s.handleManualReview)
	mux.HandleFunc("/review-diff", s.handleReviewDiff)
	mux.HandleFunc("/reviews", s.handleListReviews)
	mux.HandleFunc("/reviews/latest", s.handleLatestReviews)
	mux.HandleFunc("/reviews/stats", s.handleReviewStats)
	mux.HandleFunc("/review", s.handleGetReview)
	mux.HandleFunc("/failures", s.handleListFailures)
	mux.HandleFunc("/failures/latest", s.handleLatestFailures)
	mux.HandleFunc("/failures/unresolved", s.handleUnresolvedFailures)
	mux.HandleFunc("/failures/stats", s.handleFailureStats)
	mux.HandleFunc("/failures/resolve", s.handleResolveFailure)
	mux.HandleFunc("/failure", s.handleGetFailure)
	mux.HandleFunc("/health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: mux,
	}

	return s
}

// Start begins serving HTTP requests. It blocks until the server is
// shut down.
func (s *Server) Start() error {
	log.Printf("Starting HTTP server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop gracefully shuts down the server and drains background reviews
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		log.Printf("gave up waiting for in-flight reviews")
	}
	return nil
}

type ErrorResponse struct {
	Error string `json:"error"`
	Stage string `json:"stage,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
