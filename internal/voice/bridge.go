package voice

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Frame types exchanged with the voice orchestrator.
const (
	FrameTranscript = "transcript" // inbound: recognised speech, empty text means nothing heard
	FrameSpeak      = "speak"      // outbound: text to synthesise
	FrameError      = "error"      // inbound: orchestrator-side failure
)

// Frame is a JSON text message on the bridge socket.
type Frame struct {
	Type    string `json:"type"`
	Text    string `json:"text,omitempty"`
	Message string `json:"message,omitempty"`
}

// BridgeConfig holds configuration for the WebSocket bridge.
type BridgeConfig struct {
	// URL is the orchestrator WebSocket endpoint.
	URL string

	// HandshakeTimeout bounds the initial dial (default 5s).
	HandshakeTimeout time.Duration

	// WriteTimeout bounds each outbound frame (default 5s).
	WriteTimeout time.Duration
}

// Bridge connects the assistant to an external speech pipeline. Transcripts
// arrive on a reader goroutine and are handed to Listen through a channel.
type Bridge struct {
	config BridgeConfig
	conn   *websocket.Conn

	transcripts chan string
	done        chan struct{} // closed when the read loop exits
	closed      chan struct{} // closed by Close

	writeMu   sync.Mutex
	closeOnce sync.Once
	readErr   error
}

// DialBridge connects to the orchestrator.
func DialBridge(ctx context.Context, config BridgeConfig) (*Bridge, error) {
	if config.HandshakeTimeout == 0 {
		config.HandshakeTimeout = 5 * time.Second
	}
	if config.WriteTimeout == 0 {
		config.WriteTimeout = 5 * time.Second
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: config.HandshakeTimeout,
	}

	log.Debug().Str("url", config.URL).Msg("connecting to voice orchestrator")

	conn, _, err := dialer.DialContext(ctx, config.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("voice bridge: failed to connect: %w", err)
	}

	b := &Bridge{
		config:      config,
		conn:        conn,
		transcripts: make(chan string, 8),
		done:        make(chan struct{}),
		closed:      make(chan struct{}),
	}
	go b.readFrames()

	log.Info().Str("url", config.URL).Msg("voice bridge connected")
	return b, nil
}

// readFrames reads and dispatches frames until the connection drops.
func (b *Bridge) readFrames() {
	defer close(b.done)

	for {
		messageType, message, err := b.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				b.readErr = err
				log.Debug().Err(err).Msg("voice bridge: read loop ended")
			}
			return
		}

		// Only process text (JSON) messages
		if messageType != websocket.TextMessage {
			continue
		}

		var frame Frame
		if err := json.Unmarshal(message, &frame); err != nil {
			log.Warn().Err(err).Str("message", string(message)).Msg("voice bridge: failed to parse frame")
			continue
		}

		switch frame.Type {
		case FrameTranscript:
			select {
			case b.transcripts <- frame.Text:
			case <-b.closed:
				return
			}
		case FrameError:
			log.Error().Str("message", frame.Message).Msg("voice bridge: orchestrator error")
		default:
			log.Debug().Str("type", frame.Type).Msg("voice bridge: ignoring unknown frame type")
		}
	}
}

// Speak sends a speak frame.
func (b *Bridge) Speak(ctx context.Context, text string) error {
	payload, err := json.Marshal(Frame{Type: FrameSpeak, Text: text})
	if err != nil {
		return fmt.Errorf("encode speak frame: %w", err)
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	deadline := time.Now().Add(b.config.WriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	b.conn.SetWriteDeadline(deadline)

	if err := b.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("voice bridge: write speak frame: %w", err)
	}
	return nil
}

// Listen waits for the next transcript. An empty transcript means nothing
// was heard. ErrClosed is returned once the connection is gone and every
// buffered transcript has been consumed.
func (b *Bridge) Listen(ctx context.Context) (string, bool, error) {
	select {
	case <-ctx.Done():
		return "", false, ctx.Err()
	case text := <-b.transcripts:
		return b.deliver(text)
	case <-b.done:
		// Drain anything that arrived before the close.
		select {
		case text := <-b.transcripts:
			return b.deliver(text)
		default:
		}
		if b.readErr != nil {
			return "", false, fmt.Errorf("%w: %v", ErrClosed, b.readErr)
		}
		return "", false, ErrClosed
	}
}

func (b *Bridge) deliver(text string) (string, bool, error) {
	text = Normalize(strings.TrimSpace(text))
	return text, text != "", nil
}

// Close sends a close frame and closes the connection.
func (b *Bridge) Close() error {
	var err error
	b.closeOnce.Do(func() {
		close(b.closed)
		b.writeMu.Lock()
		b.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
			time.Now().Add(time.Second))
		b.writeMu.Unlock()
		err = b.conn.Close()
	})
	return err
}
