// Package server provides the HTTP and WebSocket surface for handseal.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/handseal/internal/capture"
	"github.com/ayusman/handseal/internal/detector"
	"github.com/ayusman/handseal/internal/seal"
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Camera    capture.Camera
	Latest    *detector.Latest
	Extractor *seal.Extractor
	Logger    *zap.Logger

	// AcceptFrames lets WebSocket clients push frame results into Latest.
	AcceptFrames bool

	// Enabled gates pushed frames; nil means always enabled.
	Enabled func() bool
}

// Server represents the HTTP server for the handseal application.
type Server struct {
	config    Config
	logger    *zap.Logger
	mux       *http.ServeMux
	start     time.Time
	landmarks *LandmarksHandler
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.Extractor == nil {
		config.Extractor = seal.NewExtractor(seal.PolicyOwnPalm)
	}

	s := &Server{
		config: config,
		logger: config.Logger.Named("server"),
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Latest != nil {
		s.mux.HandleFunc("/api/features", s.handleFeatures)

		s.landmarks = NewLandmarksHandler(LandmarksConfig{
			Latest:       s.config.Latest,
			Extractor:    s.config.Extractor,
			Logger:       s.logger,
			AcceptFrames: s.config.AcceptFrames,
			Enabled:      s.config.Enabled,
		})
		s.mux.Handle("/api/landmarks", s.landmarks)
	}

	if s.config.Camera != nil {
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Camera, s.config.Latest))
	}

	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	})
}

// featuresResponse is the body of GET /api/features.
type featuresResponse struct {
	Seq       uint64      `json:"seq"`
	Timestamp int64       `json:"timestamp"`
	Report    seal.Report `json:"report"`
}

// handleFeatures handles GET /api/features and reports the seal features of
// the latest frame result.
func (s *Server) handleFeatures(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	result, seq := s.config.Latest.Load()
	writeJSON(w, http.StatusOK, featuresResponse{
		Seq:       seq,
		Timestamp: result.TimestampMs,
		Report:    s.config.Extractor.Evaluate(result.Hands),
	})
}

// Close stops the landmark broadcaster and disconnects its clients.
func (s *Server) Close() {
	if s.landmarks != nil {
		s.landmarks.Close()
	}
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
