package httpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/staygenie/hotel-discovery/internal/core/domain"
	"github.com/staygenie/hotel-discovery/internal/observability/metrics"
)

// sseSink writes stream events as text/event-stream frames: one complete
// `data:` frame per event, flushed immediately. The coordinator is the
// only caller, so frames are never interleaved.
type sseSink struct {
	w       http.ResponseWriter
	flusher http.Flusher

	metrics *metrics.HTTPServerMetrics
	service string

	lastType string
}

func newSSESink(w http.ResponseWriter, m *metrics.HTTPServerMetrics, service string) (*sseSink, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming is not supported by response writer")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &sseSink{w: w, flusher: flusher, metrics: m, service: service}, nil
}

func (s *sseSink) Send(ctx context.Context, event domain.StreamEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.Type, err)
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return fmt.Errorf("write %s event: %w", event.Type, err)
	}
	s.flusher.Flush()

	s.lastType = event.Type
	if s.metrics != nil {
		s.metrics.RecordStreamEvent(s.service, event.Type)
	}
	return nil
}

// Outcome reports how the stream ended based on the last written frame.
func (s *sseSink) Outcome() string {
	switch s.lastType {
	case domain.EventComplete:
		return "complete"
	case domain.EventError:
		return "errored"
	default:
		return "aborted"
	}
}
