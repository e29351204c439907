package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/mfaure/ctxweave/internal/bridge"
	"github.com/mfaure/ctxweave/internal/correlate"
	"github.com/mfaure/ctxweave/pkg/conversation"
)

// CorrelateRequest is the body of POST /v1/correlate.
type CorrelateRequest struct {
	Items []conversation.ContentItem `json:"items"`
}

// CorrelateResponse wraps the correlation result with per-item strength
// scores for retention biasing.
type CorrelateResponse struct {
	Result *correlate.Result  `json:"result"`
	Scores map[string]float64 `json:"scores"`
}

// BridgeRequest is the body of POST /v1/bridge.
type BridgeRequest struct {
	Items    []conversation.ContentItem `json:"items"`
	Retained []string                   `json:"retained"`
	Strategy string                     `json:"strategy,omitempty"`
}

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

// handleHealth returns an http.HandlerFunc for GET /health.
func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{
			Status: "ok",
			Uptime: time.Since(s.startedAt).Round(time.Second).String(),
		})
	}
}

// handleCorrelate runs the correlator over the posted items.
func (s *Server) handleCorrelate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CorrelateRequest
		if !s.decode(w, r, &req) {
			s.metrics.RecordRequest("correlate", "400")
			return
		}

		ctx, span := s.tracer.Start(r.Context(), "correlate.run")
		defer span.End()

		start := time.Now()
		result := s.correlator.Correlate(req.Items)

		scores := make(map[string]float64, len(req.Items))
		for _, it := range req.Items {
			scores[it.ID] = s.correlator.StrengthScore(it.ID, result)
		}

		span.SetAttributes(
			attribute.Int("items", len(req.Items)),
			attribute.Int("references", len(result.References)),
			attribute.Int("clusters", len(result.Clusters)),
		)
		s.metrics.RecordCorrelation(len(result.References), time.Since(start).Seconds())
		s.metrics.RecordRequest("correlate", "200")

		s.logger.InfoContext(ctx, "correlation run",
			"items", len(req.Items),
			"references", len(result.References),
			"clusters", len(result.Clusters),
		)

		writeJSON(w, http.StatusOK, CorrelateResponse{Result: result, Scores: scores})
	}
}

// handleBridge runs the full bridging pipeline over the posted items.
func (s *Server) handleBridge() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BridgeRequest
		if !s.decode(w, r, &req) {
			s.metrics.RecordRequest("bridge", "400")
			return
		}

		ctx, span := s.tracer.Start(r.Context(), "bridge.run")
		defer span.End()

		start := time.Now()
		result, err := s.builder.Build(req.Items, req.Retained, bridge.Strategy(req.Strategy))
		if err != nil {
			s.metrics.RecordRequest("bridge", "400")
			writeError(w, http.StatusBadRequest, err)
			return
		}

		span.SetAttributes(
			attribute.Int("items", len(req.Items)),
			attribute.Int("bridges", len(result.Bridges)),
			attribute.Float64("preservation_score", result.PreservationScore),
		)
		s.metrics.RecordBridging(len(result.Bridges), time.Since(start).Seconds())
		s.metrics.RecordRequest("bridge", "200")

		s.logger.InfoContext(ctx, "bridging run",
			"items", len(req.Items),
			"retained", len(req.Retained),
			"bridges", len(result.Bridges),
			"gaps_filled", result.GapsFilled,
			"preservation_score", result.PreservationScore,
		)

		writeJSON(w, http.StatusOK, result)
	}
}

// decode parses a JSON request body, enforcing the body size cap. Writes a
// 400 and returns false on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
