package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// SessionEvent is a sealed interface for notifications emitted by Send.
type SessionEvent interface {
	sessionEvent()
}

// SessionAppended reports that the message at Index was created or changed.
// Message is a snapshot; later changes are reported by later notifications.
type SessionAppended struct {
	Index   int
	Message Message
}

func (SessionAppended) sessionEvent() {}

// SessionServerError reports an error event sent by the far end.
type SessionServerError struct {
	Message string
}

func (SessionServerError) sessionEvent() {}

// SessionFailed is the terminal notification of a failed exchange. Err wraps
// ErrTransport, ErrInterrupted or ErrServerReported.
type SessionFailed struct {
	Err error
}

func (SessionFailed) sessionEvent() {}

// Interface compliance checks.
var (
	_ SessionEvent = SessionAppended{}
	_ SessionEvent = SessionServerError{}
	_ SessionEvent = SessionFailed{}
)

// ServerErrorPolicy decides whether a server-reported error ends the exchange.
type ServerErrorPolicy int

const (
	// ServerErrorStop ends the exchange on the first error event.
	ServerErrorStop ServerErrorPolicy = iota
	// ServerErrorContinue reports the error and keeps reading.
	ServerErrorContinue
)

// Session orchestrates request/response exchanges against a Transport and
// owns the Transcript they build. Exchanges on one Session run one at a
// time; independent Sessions share no state.
type Session struct {
	ID string

	transport    Transport
	transcript   *Transcript
	assembler    *Assembler
	logger       *zap.Logger
	serverErrors ServerErrorPolicy
	asmOpts      []AssemblerOption
	busy         atomic.Bool
}

// SessionOption configures a [Session].
type SessionOption func(*Session)

// WithLogger sets the logger. Default is a no-op logger.
func WithLogger(l *zap.Logger) SessionOption {
	return func(s *Session) { s.logger = l }
}

// WithServerErrorPolicy sets how server-reported errors are handled.
// Default is ServerErrorStop.
func WithServerErrorPolicy(p ServerErrorPolicy) SessionOption {
	return func(s *Session) { s.serverErrors = p }
}

// WithAssemblerOptions passes options to the session's Assembler.
func WithAssemblerOptions(opts ...AssemblerOption) SessionOption {
	return func(s *Session) { s.asmOpts = append(s.asmOpts, opts...) }
}

// WithSessionID overrides the generated session ID.
func WithSessionID(id string) SessionOption {
	return func(s *Session) { s.ID = id }
}

// NewSession creates a Session with an empty Transcript.
func NewSession(transport Transport, opts ...SessionOption) *Session {
	s := &Session{
		ID:         uuid.NewString(),
		transport:  transport,
		transcript: NewTranscript(),
		logger:     zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	s.assembler = NewAssembler(s.transcript, s.asmOpts...)
	return s
}

// Transcript returns the session's transcript. It must not be read while a
// Send is in progress on another goroutine; use notifications instead.
func (s *Session) Transcript() *Transcript { return s.transcript }

// SendOption configures a single Send invocation.
type SendOption func(*sendConfig)

type sendConfig struct {
	onEvent func(SessionEvent)
}

// WithEventHandler sets a callback that receives each notification during
// the exchange. It is called on the goroutine running Send.
func WithEventHandler(h func(SessionEvent)) SendOption {
	return func(c *sendConfig) { c.onEvent = h }
}

func (c *sendConfig) emit(e SessionEvent) {
	if c.onEvent != nil {
		c.onEvent(e)
	}
}

// Send runs one exchange: it appends req.Message to the transcript as a
// completed user message, opens a channel on the transport and applies every
// frame it delivers until the channel closes.
//
// It returns nil when the exchange produced a completed assistant message.
// Otherwise the error wraps ErrValidation, ErrSessionBusy, ErrTransport,
// ErrServerReported or ErrInterrupted. Transcript content is never rolled
// back; an assistant message left incomplete stays incomplete.
func (s *Session) Send(ctx context.Context, req Request, opts ...SendOption) error {
	if !s.busy.CompareAndSwap(false, true) {
		return ErrSessionBusy
	}
	defer s.busy.Store(false)

	if err := req.Validate(); err != nil {
		return err
	}

	var cfg sendConfig
	for _, o := range opts {
		o(&cfg)
	}

	ctx, span := tracer.Start(ctx, "chat.send", trace.WithAttributes(
		attribute.String("session.id", s.ID),
		attribute.Int("request.max_tokens", req.MaxTokens),
	))
	defer span.End()

	userIdx := s.transcript.appendUser(req.Message, time.Now())
	cfg.emit(SessionAppended{Index: userIdx, Message: s.transcript.messages[userIdx]})

	// Whatever happens below, the exchange ends with no open message so a
	// later exchange can never write into this one's output.
	defer s.assembler.detach()

	ch, err := s.transport.Open(ctx, req)
	if err != nil {
		return s.fail(span, &cfg, fmt.Errorf("%w: %w", ErrTransport, err))
	}
	defer ch.Close()

	var frames, malformed int
	defer func() {
		span.SetAttributes(
			attribute.Int("stream.frames", frames),
			attribute.Int("stream.malformed", malformed),
		)
	}()

	for {
		if err := ctx.Err(); err != nil {
			return s.fail(span, &cfg, fmt.Errorf("%w: %w", ErrTransport, err))
		}

		frame, err := ch.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				err = ctxErr
			}
			return s.fail(span, &cfg, fmt.Errorf("%w: %w", ErrTransport, err))
		}
		frames++

		evt, err := DecodeFrame(frame)
		if err != nil {
			malformed++
			s.logger.Warn("dropping malformed frame",
				zap.String("session_id", s.ID),
				zap.String("frame_event", frame.Event),
				zap.Error(err),
			)
			continue
		}

		if e, ok := evt.(EventError); ok {
			cfg.emit(SessionServerError{Message: e.Message})
			if s.serverErrors == ServerErrorStop {
				return s.fail(span, &cfg, fmt.Errorf("%w: %s", ErrServerReported, e.Message))
			}
			s.logger.Warn("server reported error", zap.String("session_id", s.ID), zap.String("message", e.Message))
			continue
		}

		s.apply(evt, &cfg)
	}

	if s.transcript.OpenIndex() >= 0 || s.transcript.Len()-1 == userIdx {
		return s.fail(span, &cfg, ErrInterrupted)
	}
	return nil
}

// apply runs evt through the assembler and emits a snapshot for every
// message whose state changed.
func (s *Session) apply(evt Event, cfg *sendConfig) {
	before := s.transcript.OpenIndex()
	var prev Message
	if before >= 0 {
		prev = s.transcript.messages[before]
	}

	if !s.assembler.Apply(evt) {
		return
	}

	if before >= 0 && s.transcript.messages[before] != prev {
		cfg.emit(SessionAppended{Index: before, Message: s.transcript.messages[before]})
	}
	if after := s.transcript.OpenIndex(); after >= 0 && after != before {
		cfg.emit(SessionAppended{Index: after, Message: s.transcript.messages[after]})
	}
}

func (s *Session) fail(span trace.Span, cfg *sendConfig, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	s.logger.Error("exchange failed", zap.String("session_id", s.ID), zap.Error(err))
	cfg.emit(SessionFailed{Err: err})
	return err
}
