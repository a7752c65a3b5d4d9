package presentation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// RenderSink pushes directives to the touchscreen render service over its
// localhost HTTP API. Render failures are logged and swallowed: a dead or
// absent renderer must never stall the kiosk core.
type RenderSink struct {
	log        zerolog.Logger
	httpClient *http.Client
	baseURL    string

	mu      sync.RWMutex
	enabled bool
}

// NewRenderSink creates a render sink for the given base URL.
func NewRenderSink(baseURL string, log zerolog.Logger) *RenderSink {
	return &RenderSink{
		log:     log.With().Str("component", "render_sink").Logger(),
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// Enable enables pushes to the render service
func (s *RenderSink) Enable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = true
	s.log.Info().Str("url", s.baseURL).Msg("Render service pushes enabled")
}

// Disable disables pushes to the render service
func (s *RenderSink) Disable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = false
	s.log.Info().Msg("Render service pushes disabled")
}

// IsEnabled returns whether pushes are enabled
func (s *RenderSink) IsEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled
}

// Apply implements Sink by posting the directive to the render service.
func (s *RenderSink) Apply(d Directive) {
	if !s.IsEnabled() {
		return
	}
	if err := s.postJSON("/api/directive", d); err != nil {
		s.log.Warn().Err(err).Str("op", string(d.Op)).Msg("Failed to push directive to renderer")
	}
}

// postJSON sends a JSON POST request to the render service
func (s *RenderSink) postJSON(endpoint string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal directive: %w", err)
	}

	url := s.baseURL + endpoint
	resp, err := s.httpClient.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to POST to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("render service returned status %d", resp.StatusCode)
	}
	return nil
}
