package backend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collect drains the event channel into a slice.
func collect(events <-chan StreamEvent) []StreamEvent {
	var out []StreamEvent
	for ev := range events {
		out = append(out, ev)
	}
	return out
}

// streamHandler writes the given lines as a chunked text stream.
func streamHandler(lines ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		flusher := w.(http.Flusher)
		for _, line := range lines {
			_, _ = w.Write([]byte(line))
			flusher.Flush()
		}
	}
}

func newStreamRequest(t *testing.T, c *Client) *http.Request {
	t.Helper()
	req, err := c.BuildRequest(context.Background(), "hola", nil, nil)
	require.NoError(t, err)
	return req
}

func TestStream_ChunksThenDone(t *testing.T) {
	srv := httptest.NewServer(streamHandler(
		"data: {\"chunk\":\"a\"}\n",
		"\n",
		"data: {\"chunk\":\"b\"}\n",
		"data: {\"done\":true}\n",
	))
	defer srv.Close()

	c := NewClient(srv.URL)
	events, cancel := c.Stream(context.Background(), newStreamRequest(t, c))
	defer cancel()

	got := collect(events)
	require.Len(t, got, 3)
	assert.Equal(t, ChunkEvent{Text: "a"}, got[0])
	assert.Equal(t, ChunkEvent{Text: "b"}, got[1])
	assert.Equal(t, DoneEvent{}, got[2])
}

func TestStream_PartialLineAcrossReads(t *testing.T) {
	srv := httptest.NewServer(streamHandler(
		"data: {\"chu",
		"nk\":\"hola\"}\ndata: {\"do",
		"ne\":true}\n",
	))
	defer srv.Close()

	c := NewClient(srv.URL)
	events, cancel := c.Stream(context.Background(), newStreamRequest(t, c))
	defer cancel()

	got := collect(events)
	require.Len(t, got, 2)
	assert.Equal(t, ChunkEvent{Text: "hola"}, got[0])
	assert.Equal(t, DoneEvent{}, got[1])
}

func TestStream_MalformedLineSkipped(t *testing.T) {
	srv := httptest.NewServer(streamHandler(
		"data: {\"chunk\":\"a\"}\n",
		"data: {not-json\n",
		"data: {\"chunk\":\"b\"}\n",
		"data: {\"done\":true}\n",
	))
	defer srv.Close()

	c := NewClient(srv.URL)
	events, cancel := c.Stream(context.Background(), newStreamRequest(t, c))
	defer cancel()

	got := collect(events)
	require.Len(t, got, 3)
	assert.Equal(t, ChunkEvent{Text: "a"}, got[0])
	assert.Equal(t, ChunkEvent{Text: "b"}, got[1])
	assert.Equal(t, DoneEvent{}, got[2])
}

func TestStream_ServerReportedError(t *testing.T) {
	srv := httptest.NewServer(streamHandler(
		"data: {\"chunk\":\"parcial\"}\n",
		"data: {\"error\":\"modelo no disponible\"}\n",
	))
	defer srv.Close()

	c := NewClient(srv.URL)
	events, cancel := c.Stream(context.Background(), newStreamRequest(t, c))
	defer cancel()

	got := collect(events)
	require.Len(t, got, 2)
	assert.Equal(t, ChunkEvent{Text: "parcial"}, got[0])
	assert.Equal(t, FailedEvent{Message: "modelo no disponible"}, got[1])
}

func TestStream_EOFWithoutDone(t *testing.T) {
	srv := httptest.NewServer(streamHandler(
		"data: {\"chunk\":\"a\"}\n",
	))
	defer srv.Close()

	c := NewClient(srv.URL)
	events, cancel := c.Stream(context.Background(), newStreamRequest(t, c))
	defer cancel()

	got := collect(events)
	require.Len(t, got, 2)
	assert.Equal(t, ChunkEvent{Text: "a"}, got[0])
	assert.Equal(t, DoneEvent{}, got[1])
}

func TestStream_TrailingPartialLineParsedAtEOF(t *testing.T) {
	// Final line has no trailing newline.
	srv := httptest.NewServer(streamHandler(
		"data: {\"chunk\":\"a\"}\n",
		"data: {\"done\":true}",
	))
	defer srv.Close()

	c := NewClient(srv.URL)
	events, cancel := c.Stream(context.Background(), newStreamRequest(t, c))
	defer cancel()

	got := collect(events)
	require.Len(t, got, 2)
	assert.Equal(t, DoneEvent{}, got[1])
}

func TestStream_NonStreamingSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"response":"respuesta completa"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	events, cancel := c.Stream(context.Background(), newStreamRequest(t, c))
	defer cancel()

	got := collect(events)
	require.Len(t, got, 2)
	assert.Equal(t, ChunkEvent{Text: "respuesta completa"}, got[0])
	assert.Equal(t, DoneEvent{}, got[1])
}

func TestStream_NonStreamingFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":false,"error":"API key no configurada"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	events, cancel := c.Stream(context.Background(), newStreamRequest(t, c))
	defer cancel()

	got := collect(events)
	require.Len(t, got, 1)
	assert.Equal(t, FailedEvent{Message: "API key no configurada"}, got[0])
}

func TestStream_CancelMidStream(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		flusher := w.(http.Flusher)
		_, _ = w.Write([]byte("data: {\"chunk\":\"parcial\"}\n"))
		flusher.Flush()
		// Hold the stream open until the client goes away.
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(srv.URL)
	events, cancel := c.Stream(context.Background(), newStreamRequest(t, c))

	var got []StreamEvent
	select {
	case ev := <-events:
		got = append(got, ev)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for first chunk")
	}

	cancel()
	got = append(got, collect(events)...)

	require.NotEmpty(t, got)
	assert.Equal(t, ChunkEvent{Text: "parcial"}, got[0])
	assert.Equal(t, CancelledEvent{}, got[len(got)-1])
}

func TestStream_NonJSONErrorStatus(t *testing.T) {
	// A proxy's HTML error page when the backend is down: no JSON body, no
	// "data:" lines. Must settle as a failure, not a clean empty completion.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html><body>Bad Gateway</body></html>"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	events, cancel := c.Stream(context.Background(), newStreamRequest(t, c))
	defer cancel()

	got := collect(events)
	require.Len(t, got, 1)
	assert.Equal(t, FailedEvent{Message: "502 Bad Gateway"}, got[0])
}

func TestStream_TransportFailure(t *testing.T) {
	// Point at a server that is not running.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := NewClient(srv.URL)
	events, cancel := c.Stream(context.Background(), newStreamRequest(t, c))
	defer cancel()

	got := collect(events)
	require.Len(t, got, 1)
	failed, ok := got[0].(FailedEvent)
	require.True(t, ok, "expected FailedEvent, got %T", got[0])
	assert.NotEmpty(t, failed.Message)
}

func TestHealth_RetriesUntilSuccess(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok","message":"Backend is running","api_key_configured":true}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	health, err := c.Health(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "ok", health.Status)
	assert.True(t, health.APIKeyConfigured)
	assert.GreaterOrEqual(t, attempts, 3)
}

func TestHealth_GivesUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := NewClient(srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	_, err := c.Health(ctx)
	assert.Error(t, err)
}
