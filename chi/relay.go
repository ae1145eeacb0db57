package chi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/fwojciec/chat"
	"github.com/fwojciec/chat/sse"
	"github.com/fwojciec/chat/websocket"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// errorPayload is the only error detail clients ever see.
var errorPayload = []byte(`{"message":"Internal Server Error"}`)

// frameWriter is the client side of a relay: SSE or WebSocket.
type frameWriter interface {
	WriteFrame(event string, data []byte) error
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	log := s.logger.With(zap.String("request_id", middleware.GetReqID(r.Context())))

	var req chat.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("unable to parse request body", zap.Error(err))
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		log.Warn("invalid request", zap.Error(err))
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	sse.SetHeaders(w.Header())
	w.WriteHeader(http.StatusOK)
	s.relay(r.Context(), req, sse.NewWriter(w), log)
}

func (s *Server) handleWebSocket(u *websocket.Upgrader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := s.logger.With(zap.String("request_id", middleware.GetReqID(r.Context())))

		conn, err := u.Accept(w, r)
		if err != nil {
			log.Warn("websocket upgrade failed", zap.Error(err))
			return
		}
		defer conn.Close()
		log = log.With(zap.String("conn_id", conn.ID))

		req, err := conn.ReadRequest()
		if err == nil {
			err = req.Validate()
		}
		if err != nil {
			log.Warn("invalid request", zap.Error(err))
			s.writeError(conn, log)
			return
		}

		// A hijacked connection never cancels the request context, so
		// client disconnects are detected by reading.
		ctx, cancel := conn.Watch(r.Context())
		defer cancel()
		s.relay(ctx, req, conn, log)
	}
}

// relay forwards upstream frames to w until the upstream channel ends. Any
// upstream failure ends the stream with a single error frame.
func (s *Server) relay(ctx context.Context, req chat.Request, w frameWriter, log *zap.Logger) {
	ch, err := s.upstream.Open(ctx, req)
	if err != nil {
		log.Error("unable to open upstream", zap.Error(err))
		s.writeError(w, log)
		return
	}
	defer ch.Close()

	for {
		if ctx.Err() != nil {
			log.Info("client went away", zap.Error(ctx.Err()))
			return
		}
		f, err := ch.Next()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			if ctx.Err() != nil {
				log.Info("client went away", zap.Error(ctx.Err()))
				return
			}
			log.Error("upstream stream failed", zap.Error(err))
			s.writeError(w, log)
			return
		}

		evt, err := chat.DecodeFrame(f)
		if err != nil {
			log.Warn("dropping malformed upstream frame", zap.String("frame_event", f.Event), zap.Error(err))
			continue
		}
		if e, ok := evt.(chat.EventError); ok {
			log.Error("upstream reported error", zap.String("message", e.Message))
			s.writeError(w, log)
			return
		}

		if err := w.WriteFrame("", f.Data); err != nil {
			log.Info("unable to write frame", zap.Error(err))
			return
		}
	}
}

func (s *Server) writeError(w frameWriter, log *zap.Logger) {
	if err := w.WriteFrame(chat.FrameError, errorPayload); err != nil {
		log.Info("unable to write error frame", zap.Error(err))
	}
}
