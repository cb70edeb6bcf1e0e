package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/mkaltoft/scrambletron/internal/scramble"
	"github.com/mkaltoft/scrambletron/internal/websocket"
)

// maxTextLength caps the request body size for scramble requests
const maxTextLength = 1 << 20

// ScrambleRequest is the body of a POST /scramble request
type ScrambleRequest struct {
	Text     string `json:"text"`
	Language string `json:"language,omitempty"`
}

// ScrambleResponse is the body of a POST /scramble response
type ScrambleResponse struct {
	Text     string             `json:"text"`
	Findings []scramble.Finding `json:"findings"`
	Language string             `json:"language"`
}

// handleScramble anonymizes the posted text and reports what was replaced
func (s *Server) handleScramble(w http.ResponseWriter, r *http.Request) {
	requestID := getRequestID(r.Context())
	log := s.logger.WithRequestID(requestID)

	r.Body = http.MaxBytesReader(w, r.Body, maxTextLength)

	var req ScrambleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		log.Warn("Invalid scramble request", zap.Error(err))
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	if req.Language == "" {
		req.Language = s.currentConfig().Anonymize.Language
	}

	start := time.Now()
	result, err := s.engine.ScrambleText(r.Context(), req.Text)
	if err != nil {
		log.Error("Scramble failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "scramble failed")
		return
	}
	duration := time.Since(start)

	findings := result.Findings
	if findings == nil {
		findings = []scramble.Finding{}
	}

	total := 0
	for _, finding := range findings {
		total += finding.Count
	}
	atomic.AddInt64(&s.totalReplacements, int64(total))

	if total > 0 {
		s.wsHub.BroadcastEvent(websocket.Event{
			Type:      websocket.EventTypeScramble,
			Timestamp: time.Now(),
			RequestID: requestID,
			Data: websocket.ScrambleEvent{
				RequestID:         requestID,
				ClientIP:          getClientIP(r),
				Findings:          findings,
				TotalReplacements: total,
				Operator:          s.currentConfig().Anonymize.Operator,
				ProcessingMS:      float64(duration.Nanoseconds()) / 1e6,
			},
		})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(ScrambleResponse{
		Text:     result.Text,
		Findings: findings,
		Language: req.Language,
	}); err != nil {
		log.Error("Failed to encode scramble response", zap.Error(err))
	}
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","timestamp":"%s"}`, time.Now().Format(time.RFC3339))
}

// infoResponse is the body of a GET /info response
type infoResponse struct {
	Name               string   `json:"name"`
	Version            string   `json:"version"`
	Language           string   `json:"language"`
	AnalyzerEnabled    bool     `json:"analyzer_enabled"`
	EnabledRecognizers []string `json:"enabled_recognizers"`
	Operator           string   `json:"operator"`
	Classifier         string   `json:"classifier"`
	ConnectedClients   int      `json:"connected_clients"`
}

// handleInfo handles info requests
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	cfg := s.currentConfig()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(infoResponse{
		Name:               "scrambletron",
		Version:            version,
		Language:           cfg.Anonymize.Language,
		AnalyzerEnabled:    cfg.Analyzer.Enabled,
		EnabledRecognizers: s.analyzer.GetEnabledRecognizers(),
		Operator:           cfg.Anonymize.Operator,
		Classifier:         cfg.Classifier.Type,
		ConnectedClients:   s.wsHub.ClientCount(),
	}); err != nil {
		s.logger.Error("Failed to encode info response", zap.Error(err))
	}
}

// writeError writes a JSON error response
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
