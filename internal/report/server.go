package report

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/grixate/pulseboard/internal/store"
	"github.com/grixate/pulseboard/internal/telemetry"
)

type Options struct {
	ListenAddr     string
	Store          *store.Store
	Metrics        *telemetry.Metrics
	MetricsEnabled bool
	Logger         *log.Logger
}

// Server is the report ingestion endpoint. It authenticates against
// the stored ingestion secret on every request, so secret rotation
// applies without a restart. It never talks to the chat platform:
// ingestion and dashboard publishing stay decoupled.
type Server struct {
	listenAddr     string
	store          *store.Store
	metrics        *telemetry.Metrics
	metricsEnabled bool
	logger         *log.Logger
}

func NewServer(opts Options) (*Server, error) {
	if opts.Store == nil {
		return nil, errors.New("report server requires a store")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = &telemetry.Metrics{}
	}
	listenAddr := strings.TrimSpace(opts.ListenAddr)
	if listenAddr == "" {
		listenAddr = ":5000"
	}
	return &Server{
		listenAddr:     listenAddr,
		store:          opts.Store,
		metrics:        metrics,
		metricsEnabled: opts.MetricsEnabled,
		logger:         logger,
	}, nil
}

// Start serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{Addr: s.listenAddr, Handler: s.routes()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	s.logger.Printf("report server listening on %s", s.listenAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/report", s.handleReport)
	mux.HandleFunc("/health", s.handleHealth)
	if s.metricsEnabled {
		mux.HandleFunc("/metrics", s.handleMetrics)
	}
	return s.withAccessLog(mux)
}

type reportPayload struct {
	Command   string `json:"command"`
	Success   *bool  `json:"success"`
	LatencyMS *int   `json:"latency_ms"`
	Timestamp string `json:"timestamp"`
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"ok": false, "error": "method not allowed"})
		return
	}
	cfg, err := s.store.LoadConfig()
	if err != nil {
		s.logger.Printf("report: load config: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": "internal error"})
		return
	}
	token := r.Header.Get("X-Report-Token")
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	if cfg.ReportSecret == "" || token != cfg.ReportSecret {
		s.metrics.ReportsRejectedAuth.Add(1)
		writeJSON(w, http.StatusUnauthorized, map[string]any{"ok": false, "error": "invalid token"})
		return
	}

	var payload reportPayload
	if err := readJSON(r.Body, &payload); err != nil {
		s.metrics.ReportsRejectedInvalid.Add(1)
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "invalid json"})
		return
	}
	if strings.TrimSpace(payload.Command) == "" {
		s.metrics.ReportsRejectedInvalid.Add(1)
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "missing command"})
		return
	}
	if payload.LatencyMS != nil && *payload.LatencyMS < 0 {
		s.metrics.ReportsRejectedInvalid.Add(1)
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "invalid latency_ms"})
		return
	}
	success := true
	if payload.Success != nil {
		success = *payload.Success
	}

	if err := s.store.UpdateCommandStatus(payload.Command, success, payload.LatencyMS, payload.Timestamp); err != nil {
		s.logger.Printf("report: update %q: %v", payload.Command, err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": "internal error"})
		return
	}
	s.metrics.ReportsAccepted.Add(1)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"ok": false, "error": "method not allowed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":   true,
		"time": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"ok": false, "error": "method not allowed"})
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	_, _ = w.Write([]byte(s.metrics.Prometheus()))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := ulid.Make().String()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		s.logger.Printf("report: %s %s %s -> %d", requestID, r.Method, r.URL.Path, recorder.status)
	})
}

func readJSON(body io.Reader, out any) error {
	decoder := json.NewDecoder(io.LimitReader(body, 1<<20))
	if err := decoder.Decode(out); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
