package server

import (
	"context"
	"net/http"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/aristath/medkiosk/internal/presentation"
)

// handleDirectivesWS streams display directives over a websocket. Each
// connected renderer receives every directive pushed after it attached.
func (s *Server) handleDirectivesWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "connection closed")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Buffered so a stalled renderer drops frames instead of blocking
	// the directive queue consumer.
	directives := make(chan presentation.Directive, 128)

	detach := s.queue.Attach(presentation.SinkFunc(func(d presentation.Directive) {
		select {
		case directives <- d:
		default:
			s.log.Warn().Str("op", string(d.Op)).Msg("Directive channel full, dropping frame")
		}
	}))
	defer detach()

	s.log.Info().Msg("Renderer connected to directive stream")

	// Reads are discarded; the read loop only surfaces disconnects.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("Renderer disconnected from directive stream")
			return
		case d := <-directives:
			if err := wsjson.Write(ctx, conn, d); err != nil {
				s.log.Warn().Err(err).Msg("Failed to write directive to websocket")
				return
			}
		}
	}
}
