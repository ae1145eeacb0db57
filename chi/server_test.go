package chi_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fwojciec/chat"
	"github.com/fwojciec/chat/chi"
	"github.com/fwojciec/chat/mock"
	"github.com/fwojciec/chat/sse"
	"github.com/fwojciec/chat/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var helloFrames = []chat.Frame{
	{Event: "message_start", Data: []byte(`{"type":"message_start","message":{"id":"msg_1"}}`)},
	{Event: "content_block_start", Data: []byte(`{"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`)},
	{Event: "content_block_delta", Data: []byte(`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hi"}}`)},
	{Event: "content_block_stop", Data: []byte(`{"type":"content_block_stop","index":0}`)},
	{Event: "message_stop", Data: []byte(`{"type":"message_stop"}`)},
}

// upstream returns a transport that replays frames then ends with end.
func upstream(end error, frames ...chat.Frame) *mock.Transport {
	return &mock.Transport{
		OpenFn: func(ctx context.Context, req chat.Request) (chat.Channel, error) {
			return mock.Frames(end, frames...), nil
		},
	}
}

func postChat(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func readFrames(t *testing.T, body io.Reader) []chat.Frame {
	t.Helper()
	r := sse.NewReader(body)
	var frames []chat.Frame
	for {
		f, err := r.Read()
		if err == io.EOF {
			return frames
		}
		require.NoError(t, err)
		frames = append(frames, f)
	}
}

func TestServer_Health(t *testing.T) {
	t.Parallel()
	h := chi.NewServer(&mock.Transport{}).Handler()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServer_Chat_RelaysFrames(t *testing.T) {
	t.Parallel()
	var got chat.Request
	tr := &mock.Transport{
		OpenFn: func(ctx context.Context, req chat.Request) (chat.Channel, error) {
			got = req
			return mock.Frames(nil, helloFrames...), nil
		},
	}

	rec := postChat(t, chi.NewServer(tr).Handler(), `{"message":"Hello","max_tokens":50}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, chat.Request{Message: "Hello", MaxTokens: 50}, got)

	frames := readFrames(t, rec.Body)
	require.Len(t, frames, len(helloFrames))
	for i, f := range frames {
		assert.Equal(t, "", f.Event, "upstream event names are not relayed")
		assert.Equal(t, helloFrames[i].Data, f.Data)
	}
}

func TestServer_Chat_DropsMalformedUpstreamFrames(t *testing.T) {
	t.Parallel()
	frames := append([]chat.Frame{mock.Data(`{"oops"`)}, helloFrames...)
	rec := postChat(t, chi.NewServer(upstream(nil, frames...)).Handler(), `{"message":"Hello"}`)
	assert.Len(t, readFrames(t, rec.Body), len(helloFrames))
}

func TestServer_Chat_RelaysMessageStartWithoutMetadata(t *testing.T) {
	t.Parallel()
	rec := postChat(t, chi.NewServer(upstream(nil, mock.Data(`{"type":"message_start"}`))).Handler(), `{"message":"Hello"}`)
	frames := readFrames(t, rec.Body)
	require.Len(t, frames, 1)
	assert.JSONEq(t, `{"type":"message_start"}`, string(frames[0].Data))
}

func TestServer_Chat_UpstreamFailures(t *testing.T) {
	t.Parallel()

	assertEndsWithError := func(t *testing.T, frames []chat.Frame, before int) {
		t.Helper()
		require.Len(t, frames, before+1)
		last := frames[before]
		assert.Equal(t, chat.FrameError, last.Event)
		assert.JSONEq(t, `{"message":"Internal Server Error"}`, string(last.Data))
	}

	t.Run("open fails", func(t *testing.T) {
		t.Parallel()
		tr := &mock.Transport{
			OpenFn: func(ctx context.Context, req chat.Request) (chat.Channel, error) {
				return nil, errors.New("anthropic: invalid x-api-key")
			},
		}
		rec := postChat(t, chi.NewServer(tr).Handler(), `{"message":"Hello"}`)
		assert.Equal(t, http.StatusOK, rec.Code)
		assertEndsWithError(t, readFrames(t, rec.Body), 0)
		assert.NotContains(t, rec.Body.String(), "x-api-key")
	})

	t.Run("stream fails", func(t *testing.T) {
		t.Parallel()
		rec := postChat(t, chi.NewServer(upstream(errors.New("reset"), helloFrames[:2]...)).Handler(), `{"message":"Hello"}`)
		assertEndsWithError(t, readFrames(t, rec.Body), 2)
	})

	t.Run("upstream error event", func(t *testing.T) {
		t.Parallel()
		frames := []chat.Frame{
			helloFrames[0],
			{Event: "error", Data: []byte(`{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`)},
			helloFrames[4],
		}
		rec := postChat(t, chi.NewServer(upstream(nil, frames...)).Handler(), `{"message":"Hello"}`)
		assertEndsWithError(t, readFrames(t, rec.Body), 1)
	})
}

func TestServer_Chat_BadRequest(t *testing.T) {
	t.Parallel()
	tr := &mock.Transport{}
	h := chi.NewServer(tr).Handler()

	for _, body := range []string{`not json`, `{"message":""}`, `{"message":"x","max_tokens":-1}`} {
		rec := postChat(t, h, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestServer_RateLimit(t *testing.T) {
	t.Parallel()
	h := chi.NewServer(upstream(nil, helloFrames...), chi.WithRateLimit(0.001, 1)).Handler()

	assert.Equal(t, http.StatusOK, postChat(t, h, `{"message":"one"}`).Code)
	rec := postChat(t, h, `{"message":"two"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	// Health is not limited.
	health := httptest.NewRecorder()
	h.ServeHTTP(health, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, health.Code)

	// Another client has its own bucket.
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"three"}`))
	req.RemoteAddr = "198.51.100.7:4000"
	other := httptest.NewRecorder()
	h.ServeHTTP(other, req)
	assert.Equal(t, http.StatusOK, other.Code)
}

func TestServer_CORS(t *testing.T) {
	t.Parallel()
	h := chi.NewServer(&mock.Transport{}, chi.WithAllowedOrigins("https://app.example.com")).Handler()

	preflight := func(origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/chat", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, "https://app.example.com", preflight("https://app.example.com").Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, preflight("https://evil.example.com").Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_LogsRequests(t *testing.T) {
	t.Parallel()
	core, logs := observer.New(zap.InfoLevel)
	h := chi.NewServer(upstream(nil, helloFrames...), chi.WithLogger(zap.New(core))).Handler()

	postChat(t, h, `{"message":"Hello"}`)

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/chat", fields["path"])
	assert.Equal(t, int64(http.StatusOK), fields["status"])
	assert.NotEmpty(t, fields["request_id"])
}

func TestServer_SSEClientEndToEnd(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(chi.NewServer(upstream(nil, helloFrames...)).Handler())
	defer srv.Close()

	s := chat.NewSession(sse.NewClient(srv.URL + "/chat"))
	require.NoError(t, s.Send(context.Background(), chat.Request{Message: "Hello"}))

	msgs := s.Transcript().Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "Hi", msgs[1].Content)
	assert.True(t, msgs[1].Complete)
}

func TestServer_WebSocketEndToEnd(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(chi.NewServer(upstream(nil, helloFrames...)).Handler())
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/chat/ws"

	s := chat.NewSession(websocket.NewClient(url))
	require.NoError(t, s.Send(context.Background(), chat.Request{Message: "Hello"}))

	last, ok := s.Transcript().Last()
	require.True(t, ok)
	assert.Equal(t, "Hi", last.Content)
	assert.True(t, last.Complete)
}

func TestServer_WebSocketUpstreamFailure(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(chi.NewServer(upstream(errors.New("reset"), helloFrames[:3]...)).Handler())
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/chat/ws"

	s := chat.NewSession(websocket.NewClient(url))
	var serverErrors []string
	err := s.Send(context.Background(), chat.Request{Message: "Hello"}, chat.WithEventHandler(func(e chat.SessionEvent) {
		if se, ok := e.(chat.SessionServerError); ok {
			serverErrors = append(serverErrors, se.Message)
		}
	}))
	assert.ErrorIs(t, err, chat.ErrServerReported)
	assert.Equal(t, []string{"Internal Server Error"}, serverErrors)

	last, _ := s.Transcript().Last()
	assert.Equal(t, "Hi", last.Content)
	assert.False(t, last.Complete)
}

func TestServer_WebSocketClientCloseStopsUpstream(t *testing.T) {
	t.Parallel()

	closed := make(chan struct{})
	tr := &mock.Transport{
		OpenFn: func(ctx context.Context, req chat.Request) (chat.Channel, error) {
			sent := false
			return &mock.Channel{
				NextFn: func() (chat.Frame, error) {
					if !sent {
						sent = true
						return helloFrames[0], nil
					}
					<-ctx.Done()
					return chat.Frame{}, ctx.Err()
				},
				CloseFn: func() error {
					close(closed)
					return nil
				},
			}, nil
		},
	}
	srv := httptest.NewServer(chi.NewServer(tr).Handler())
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/chat/ws"

	ch, err := websocket.NewClient(url).Open(context.Background(), chat.Request{Message: "Hello"})
	require.NoError(t, err)
	f, err := ch.Next()
	require.NoError(t, err)
	assert.JSONEq(t, string(helloFrames[0].Data), string(f.Data))
	require.NoError(t, ch.Close())

	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		t.Fatal("upstream channel still open after the client closed")
	}
}
