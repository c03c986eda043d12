package voice

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  What   Time is IT  ", "what time is it"},
		{"um uh how do bees communicate", "how do bees communicate"},
		{"Hey Jarvis, open youtube", "open youtube"},
		{"jarvis tell me a joke", "tell me a joke"},
		{"jarvisy things", "jarvisy things"},
		{"jarvis", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestConsoleListen(t *testing.T) {
	ctx := context.Background()
	var out bytes.Buffer
	c := NewConsole(strings.NewReader("What time is it\n\n  \nexit\n"), &out, "Jarvis")

	text, ok, err := c.Listen(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "what time is it", text)

	_, ok, err = c.Listen(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = c.Listen(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	text, ok, err = c.Listen(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "exit", text)

	_, _, err = c.Listen(ctx)
	assert.ErrorIs(t, err, ErrClosed)

	assert.Contains(t, out.String(), "You: ")
}

func TestConsoleSpeak(t *testing.T) {
	var out bytes.Buffer
	c := NewConsole(strings.NewReader(""), &out, "")

	require.NoError(t, c.Speak(context.Background(), "Good Morning!"))
	assert.Contains(t, out.String(), "Jarvis:")
	assert.Contains(t, out.String(), "Good Morning!")
}

// blockingReader never returns.
type blockingReader struct{}

func (blockingReader) Read(p []byte) (int, error) {
	select {}
}

func TestConsoleListenHonoursContext(t *testing.T) {
	c := NewConsole(blockingReader{}, &bytes.Buffer{}, "Jarvis")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, _, err := c.Listen(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestConsoleReadErrorEndsInput(t *testing.T) {
	overlong := strings.Repeat("a", 70*1024)
	c := NewConsole(strings.NewReader(overlong+"\nexit\n"), &bytes.Buffer{}, "Jarvis")

	_, ok, err := c.Listen(context.Background())
	assert.False(t, ok)
	require.ErrorIs(t, err, ErrClosed)
	assert.Contains(t, err.Error(), bufio.ErrTooLong.Error())

	// Stays closed.
	_, _, err = c.Listen(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestConsoleCloseReleasesReader(t *testing.T) {
	c := NewConsole(strings.NewReader("first\nsecond\n"), &bytes.Buffer{}, "Jarvis")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c.Listen(ctx)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	select {
	case <-c.done:
	case <-time.After(time.Second):
		t.Fatal("line reader still blocked after Close")
	}

	_, _, err := c.Listen(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

// orchestrator is a fake voice pipeline: it sends scripted transcripts and
// records speak frames.
func orchestrator(t *testing.T, transcripts []Frame, spoken chan<- Frame) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for _, f := range transcripts {
			if err := conn.WriteJSON(f); err != nil {
				return
			}
		}

		for {
			var f Frame
			if err := conn.ReadJSON(&f); err != nil {
				return
			}
			spoken <- f
		}
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestBridgeRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	spoken := make(chan Frame, 4)
	server := orchestrator(t, []Frame{
		{Type: FrameTranscript, Text: "How do bees communicate"},
		{Type: "partial", Text: "ignored"},
		{Type: FrameError, Message: "mic glitch"},
		{Type: FrameTranscript, Text: ""},
	}, spoken)
	defer server.Close()

	b, err := DialBridge(ctx, BridgeConfig{URL: wsURL(server)})
	require.NoError(t, err)
	defer b.Close()

	text, ok, err := b.Listen(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "how do bees communicate", text)

	_, ok, err = b.Listen(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, b.Speak(ctx, "What's the answer?"))
	select {
	case f := <-spoken:
		assert.Equal(t, Frame{Type: FrameSpeak, Text: "What's the answer?"}, f)
	case <-ctx.Done():
		t.Fatal("speak frame not received")
	}
}

func TestBridgeClosedByServer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.WriteJSON(Frame{Type: FrameTranscript, Text: "exit"})
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	}))
	defer server.Close()

	b, err := DialBridge(ctx, BridgeConfig{URL: wsURL(server)})
	require.NoError(t, err)
	defer b.Close()

	text, ok, err := b.Listen(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "exit", text)

	_, _, err = b.Listen(ctx)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestDialBridgeFailure(t *testing.T) {
	_, err := DialBridge(context.Background(), BridgeConfig{URL: "ws://127.0.0.1:1/none", HandshakeTimeout: 200 * time.Millisecond})
	assert.Error(t, err)
}
