package ipc

import (
	"context"
	"encoding/json"
	"net"
	"time"

	"github.com/rs/zerolog"

	"github.com/ultrasearch/ultrasearch/pkg/errs"
	"github.com/ultrasearch/ultrasearch/pkg/log"
	"github.com/ultrasearch/ultrasearch/pkg/metrics"
)

// Handler answers the request variants the service exposes (spec §4.7,
// §6). Search receives the already-parsed deadline as a context so the
// orchestrator can return partial results with TimedOut set.
type Handler interface {
	Search(ctx context.Context, req *Request) (*Response, error)
	Status(ctx context.Context) (*StatusInfo, error)
	ConfigGet(ctx context.Context, key string) (string, error)
	ConfigSet(ctx context.Context, key, value string) error
}

// Server accepts connections on a Listener and serves each independently
// (spec §5: "one [task] per connected client").
type Server struct {
	listener Listener
	handler  Handler
	logger   zerolog.Logger
}

// NewServer wraps a Listener with a Handler.
func NewServer(listener Listener, handler Handler) *Server {
	return &Server{listener: listener, handler: handler, logger: log.WithComponent("ipc")}
}

// Serve accepts connections until ctx is canceled or the listener
// errors. It never returns nil outside of ctx cancellation.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.listener.Close()
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errs.Wrap(errs.IoTransient, "accept ipc connection", err)
		}

		metrics.IPCConnectionsActive.Inc()
		go s.serveConn(ctx, conn)
	}
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	defer metrics.IPCConnectionsActive.Dec()

	if !s.handshake(conn) {
		return
	}

	for {
		payload, err := ReadFrame(conn)
		if err != nil {
			return
		}

		var req Request
		if err := json.Unmarshal(payload, &req); err != nil {
			s.writeError(conn, "", errs.ConfigInvalid, "malformed request")
			continue
		}

		resp := s.dispatch(ctx, &req)
		resp.ID = req.ID

		out, err := json.Marshal(resp)
		if err != nil {
			s.logger.Error().Err(err).Msg("failed to marshal response")
			return
		}
		if err := WriteFrame(conn, out); err != nil {
			return
		}
	}
}

// handshake requires the first frame to be a Hello carrying a matching
// protocol major version (spec §4.7, §5: "IPC protocol mismatch closes
// the connection with a ProtocolVersion error and no partial state
// change").
func (s *Server) handshake(conn net.Conn) bool {
	payload, err := ReadFrame(conn)
	if err != nil {
		return false
	}

	var req Request
	if err := json.Unmarshal(payload, &req); err != nil || req.Variant != VariantHello {
		s.writeError(conn, "", errs.ProtocolVersion, "expected Hello as first message")
		return false
	}

	if req.ProtocolVersion != ProtocolVersion {
		s.writeError(conn, req.ID, errs.ProtocolVersion, "protocol version mismatch")
		return false
	}

	resp := &Response{ID: req.ID, ProtocolVersion: ProtocolVersion}
	out, _ := json.Marshal(resp)
	return WriteFrame(conn, out) == nil
}

func (s *Server) dispatch(ctx context.Context, req *Request) *Response {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.IPCRequestDuration, string(req.Variant))

	var resp *Response
	var err error

	switch req.Variant {
	case VariantSearch:
		deadline := time.Duration(req.DeadlineMs) * time.Millisecond
		if deadline <= 0 {
			deadline = 2 * time.Second
		}
		searchCtx, cancel := context.WithTimeout(ctx, deadline)
		defer cancel()
		resp, err = s.handler.Search(searchCtx, req)

	case VariantStatus:
		var status *StatusInfo
		status, err = s.handler.Status(ctx)
		if err == nil {
			resp = &Response{Status: status}
		}

	case VariantConfigGet:
		var value string
		value, err = s.handler.ConfigGet(ctx, req.Key)
		if err == nil {
			resp = &Response{ConfigValue: value}
		}

	case VariantConfigSet:
		err = s.handler.ConfigSet(ctx, req.Key, req.Value)
		if err == nil {
			resp = &Response{}
		}

	default:
		err = errs.New(errs.ConfigInvalid, "unknown request variant")
	}

	if err != nil {
		metrics.IPCRequestsTotal.WithLabelValues(string(req.Variant), "error").Inc()
		return errorResponse(err)
	}
	metrics.IPCRequestsTotal.WithLabelValues(string(req.Variant), "ok").Inc()
	return resp
}

func (s *Server) writeError(conn net.Conn, id string, kind errs.Kind, msg string) {
	resp := &Response{ID: id, ErrKind: string(kind), ErrMsg: msg}
	out, _ := json.Marshal(resp)
	WriteFrame(conn, out)
}

func errorResponse(err error) *Response {
	kind := errs.IoFatal
	var e *errs.Error
	if asErr, ok := err.(*errs.Error); ok {
		e = asErr
		kind = e.Kind
	}
	return &Response{ErrKind: string(kind), ErrMsg: err.Error()}
}
