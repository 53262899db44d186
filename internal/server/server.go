// Package server implements the TCP front end (C8): it accepts
// connections, negotiates an optional colour-output prelude, reads one
// query line, dispatches it through the handlers package, and writes the
// response before closing -- classic WHOIS "one query per connection"
// semantics (spec §4.8). No listener/accept-loop file survived the
// original_source extraction for this concern, so the accept loop itself
// follows the teacher's own golang.org/x/sync/errgroup idiom for
// supervising concurrent long-running goroutines (cmd/main.go's
// errgroup.WithContext usage), generalized from controller-manager
// startup to connection-handling.
package server

import (
	"bufio"
	"context"
	"net"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"whoisd/internal/handlers"
	"whoisd/internal/query"
)

// MaxQueryLine bounds a single query line (spec §4.8 "ReadQuery: ... 4 KiB").
const MaxQueryLine = 4 * 1024

// DefaultConnTimeout bounds the whole lifetime of one connection, covering
// preface negotiation, the query read, and dispatch (spec §5 "connection-level
// default 30s", mirrored by handlers.DefaultHandlerDeadline for the dispatch
// step alone).
const DefaultConnTimeout = 30 * time.Second

const colorProbeLine = "X-WHOIS-COLOR-PROBE: 1"
const colorRequestPrefix = "X-WHOIS-COLOR: "
const colorAckLine = "X-WHOIS-COLOR: 1.0 ripe,bgptools\r\n"

// Server listens on one TCP address and serves WHOIS queries.
type Server struct {
	Addr        string
	Deps        *handlers.Deps
	Log         logr.Logger
	ConnTimeout time.Duration
}

// New returns a Server ready to Serve.
func New(addr string, deps *handlers.Deps, log logr.Logger) *Server {
	return &Server{
		Addr:        addr,
		Deps:        deps,
		Log:         log,
		ConnTimeout: DefaultConnTimeout,
	}
}

// ListenAndServe binds Addr and accepts connections until ctx is canceled,
// handling each on its own goroutine (spec §4.8: "one task per connection").
func (s *Server) ListenAndServe(ctx context.Context) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", s.Addr)
	if err != nil {
		return err
	}
	defer ln.Close()

	s.Log.Info("whois server listening", "addr", s.Addr)

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				s.Log.Error(err, "accept failed")
				continue
			}
		}
		go s.handleConn(ctx, conn)
	}
}

// connState names the phases of one connection's lifecycle (spec §4.8).
type connState string

const (
	stateReadPreface connState = "ReadPreface"
	stateReadQuery   connState = "ReadQuery"
	stateResponding  connState = "Responding"
	stateClosed      connState = "Closed"
)

// colorMode is the negotiated output-colourization scheme.
type colorMode string

const (
	colorNone     colorMode = ""
	colorRIPE     colorMode = "ripe"
	colorBGPTools colorMode = "bgptools"
)

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	ctx, cancel := context.WithTimeout(ctx, s.ConnTimeout)
	defer cancel()

	conn.SetDeadline(time.Now().Add(s.ConnTimeout))
	remote := conn.RemoteAddr().String()

	reader := bufio.NewReader(conn)

	state := stateReadPreface
	mode, firstQueryLine, err := s.readPreface(conn, reader)
	if err != nil {
		s.Log.V(1).Info("preface read failed", "remote", remote, "err", err.Error())
		state = stateClosed
		return
	}

	state = stateReadQuery
	var line string
	if firstQueryLine != nil {
		line = truncateQueryLine(strings.TrimSpace(*firstQueryLine))
	} else {
		line, err = s.readQueryLine(reader)
		if err != nil {
			s.Log.V(1).Info("query read failed", "remote", remote, "err", err.Error())
			state = stateClosed
			return
		}
	}

	q := query.Classify(line)
	s.Log.V(1).Info("query received", "remote", remote, "kind", string(q.Kind), "tag", q.Tag)

	state = stateResponding
	body := s.Deps.Handle(ctx, q)
	if mode != colorNone {
		body = colorize(body, q.Tag, mode)
	}

	if _, err := conn.Write(body); err != nil {
		s.Log.V(1).Info("write failed", "remote", remote, "err", err.Error())
	}

	state = stateClosed
	if tc, ok := conn.(*net.TCPConn); ok {
		tc.CloseWrite()
	}
	_, _ = reader.Discard(reader.Buffered())
	_ = state
}

// readPreface consumes zero or more "X-WHOIS-COLOR..." lines terminated by
// a blank line, acknowledging a probe before continuing to read (spec §4.8
// "ReadPreface"). Most connections send no preface at all, so the first
// line read that isn't a recognized preface marker is returned as the
// query line itself rather than discarded.
func (s *Server) readPreface(conn net.Conn, reader *bufio.Reader) (colorMode, *string, error) {
	mode := colorNone
	for {
		line, err := reader.ReadString('\n')
		trimmed := strings.TrimRight(line, "\r\n")
		if trimmed == "" {
			if err != nil && line == "" {
				return mode, nil, err
			}
			return mode, nil, nil
		}
		switch {
		case strings.EqualFold(trimmed, colorProbeLine):
			if _, werr := conn.Write([]byte(colorAckLine)); werr != nil {
				return mode, nil, werr
			}
		case strings.HasPrefix(strings.ToUpper(trimmed), strings.ToUpper(colorRequestPrefix)):
			req := strings.TrimSpace(trimmed[len(colorRequestPrefix):])
			switch strings.ToLower(req) {
			case "ripe":
				mode = colorRIPE
			case "bgptools":
				mode = colorBGPTools
			}
		default:
			return mode, &trimmed, nil
		}
		if err != nil {
			return mode, nil, err
		}
	}
}

func truncateQueryLine(line string) string {
	if len(line) > MaxQueryLine {
		return line[:MaxQueryLine]
	}
	return line
}

func (s *Server) readQueryLine(reader *bufio.Reader) (string, error) {
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return truncateQueryLine(strings.TrimSpace(line)), nil
}
