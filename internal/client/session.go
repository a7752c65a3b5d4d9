// Package client maintains the long-lived TCP session to the TUIO
// broadcaster: it dials, reassembles newline-delimited JSON, decodes each
// line and hands typed messages to its handler, reconnecting forever on any
// failure. This is a kiosk-style always-on client; nothing it encounters is
// fatal.
package client

import (
	"context"
	"errors"
	"io"
	"net"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/medkiosk/internal/events"
	"github.com/aristath/medkiosk/internal/protocol"
)

const (
	// ReconnectBackoff is the fixed delay between reconnection attempts.
	ReconnectBackoff = 2 * time.Second

	dialTimeout    = 10 * time.Second
	readBufferSize = 4096
)

// MessageHandler receives each successfully decoded message along with the
// raw line it came from (the audit log stores the original text).
type MessageHandler func(msg protocol.Message, line string)

// Session owns the connection to the broadcaster. It is receive-only: no
// message is ever sent upstream.
type Session struct {
	addr    string
	handler MessageHandler
	bus     *events.Bus
	log     zerolog.Logger
	backoff time.Duration
}

// NewSession creates a session for the given broadcaster address.
func NewSession(addr string, handler MessageHandler, bus *events.Bus, log zerolog.Logger) *Session {
	return &Session{
		addr:    addr,
		handler: handler,
		bus:     bus,
		log:     log.With().Str("component", "broadcaster_session").Str("addr", addr).Logger(),
		backoff: ReconnectBackoff,
	}
}

// SetBackoff overrides the reconnect delay. Tests only.
func (s *Session) SetBackoff(d time.Duration) { s.backoff = d }

// Run connects, reads and reconnects until ctx is cancelled. Cancellation
// closes any open socket, aborting the in-flight read; no reconnect is
// attempted afterwards. Run never returns an error - connection trouble is a
// normal operating condition for the kiosk.
func (s *Session) Run(ctx context.Context) {
	s.log.Info().Msg("Broadcaster session starting")

	for {
		if ctx.Err() != nil {
			s.log.Info().Msg("Broadcaster session stopped")
			return
		}

		if err := s.connectAndRead(ctx); err != nil && ctx.Err() == nil {
			s.log.Warn().Err(err).Msg("Broadcaster connection lost")
		}

		// Fixed, cancellable backoff before the next attempt.
		select {
		case <-ctx.Done():
			s.log.Info().Msg("Broadcaster session stopped")
			return
		case <-time.After(s.backoff):
		}
	}
}

// connectAndRead performs one connection lifetime: dial, read until the
// stream ends or fails, report the disconnect.
func (s *Session) connectAndRead(ctx context.Context) error {
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", s.addr)
	if err != nil {
		return err
	}

	s.log.Info().Msg("Connected to broadcaster")
	s.bus.Publish(&events.ConnectionData{Endpoint: s.addr})

	// Cancellation must abort the blocking Read promptly.
	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})
	defer stop()
	defer conn.Close()

	readErr := s.readLoop(conn)

	reason := "remote closed"
	if readErr != nil {
		reason = readErr.Error()
	}
	s.bus.Publish(&events.ConnectionData{Endpoint: s.addr, Reason: reason})
	return readErr
}

// readLoop reads until EOF or error, feeding every complete line to the
// decoder. Returns nil on clean EOF.
func (s *Session) readLoop(conn net.Conn) error {
	var lb LineBuffer
	buf := make([]byte, readBufferSize)

	for {
		n, err := conn.Read(buf)
		if n > 0 {
			for _, line := range lb.Feed(buf[:n]) {
				s.handleLine(line)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

// handleLine decodes one line. Malformed lines are reported and discarded;
// the stream continues.
func (s *Session) handleLine(line string) {
	msg, err := protocol.Decode(line)
	if err != nil {
		s.log.Warn().Err(err).Msg("Discarding undecodable line")
		s.bus.Publish(&events.DecodeErrorData{Line: line, Error: err.Error()})
		return
	}
	s.handler(msg, line)
}
