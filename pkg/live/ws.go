package live

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/voxa-ai/voxa/pkg/audio"
	"github.com/voxa-ai/voxa/pkg/core"
	"github.com/voxa-ai/voxa/pkg/live/protocol"
)

const defaultDialTimeout = 15 * time.Second

// WebSocketTransport dials the live endpoint over a websocket.
type WebSocketTransport struct {
	URL    string
	APIKey string

	// Dialer overrides the default websocket dialer (used in tests).
	Dialer *websocket.Dialer
	// DialTimeout bounds the handshake when the context has no deadline.
	DialTimeout time.Duration
}

// Dial opens the socket, sends the setup frame, and waits for the ready
// acknowledgment. Handshake rejections are classified: 401/403 map to a
// credential error and are never retried by the controller; 429 and 5xx map
// to the retryable taxonomy.
func (t *WebSocketTransport) Dial(ctx context.Context, setup protocol.ClientSetup) (Conn, error) {
	if strings.TrimSpace(t.URL) == "" {
		return nil, core.NewInvalidRequestError("live endpoint URL must not be empty")
	}

	headers := make(http.Header)
	if t.APIKey != "" {
		headers.Set("Authorization", "Bearer "+t.APIKey)
	}

	dialer := t.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	timeout := t.DialTimeout
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}
	dialCtx := ctx
	var cancel context.CancelFunc
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		dialCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	conn, resp, err := dialer.DialContext(dialCtx, t.URL, headers)
	if err != nil {
		if resp != nil {
			return nil, classifyHandshake(resp, t.URL, err)
		}
		return nil, &TransportError{Op: "dial", URL: t.URL, Err: err}
	}

	if err := conn.WriteJSON(setup); err != nil {
		_ = conn.Close()
		return nil, &TransportError{Op: "setup", URL: t.URL, Err: err}
	}

	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	messageType, payload, err := conn.ReadMessage()
	if err != nil {
		_ = conn.Close()
		return nil, &TransportError{Op: "ready", URL: t.URL, Err: err}
	}
	_ = conn.SetReadDeadline(time.Time{})
	if messageType != websocket.TextMessage {
		_ = conn.Close()
		return nil, fmt.Errorf("unexpected first frame type %d", messageType)
	}

	event, err := protocol.DecodeServerFrame(payload)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	switch e := event.(type) {
	case protocol.ServerReady:
		return newWSConn(conn), nil
	case protocol.ServerError:
		_ = conn.Close()
		return nil, e.Err()
	default:
		_ = conn.Close()
		return nil, fmt.Errorf("unexpected first frame %q", strings.TrimSpace(fmt.Sprintf("%T", e)))
	}
}

func classifyHandshake(resp *http.Response, endpoint string, err error) error {
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return core.NewAuthenticationError(fmt.Sprintf("live handshake rejected (status %d): check the service API key", resp.StatusCode))
	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter := 0
		if v := resp.Header.Get("Retry-After"); v != "" {
			fmt.Sscanf(v, "%d", &retryAfter)
		}
		return core.NewRateLimitError(fmt.Sprintf("live handshake rate limited (status %d)", resp.StatusCode), retryAfter)
	case resp.StatusCode >= 500:
		return core.NewOverloadedError(fmt.Sprintf("live service unavailable (status %d)", resp.StatusCode))
	default:
		return &TransportError{Op: "dial", URL: endpoint, Err: fmt.Errorf("handshake failed (status %d): %w", resp.StatusCode, err)}
	}
}

type wsConn struct {
	conn *websocket.Conn

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    atomic.Bool
}

func newWSConn(conn *websocket.Conn) *wsConn {
	return &wsConn{conn: conn}
}

func (c *wsConn) SendAudio(chunk audio.Chunk) error {
	return c.sendJSON(protocol.NewAudio(chunk.Data, chunk.MIMEType))
}

func (c *wsConn) SendToolResponses(responses []protocol.ToolCallResponse) error {
	return c.sendJSON(protocol.NewToolResponses(responses))
}

func (c *wsConn) sendJSON(v any) error {
	if c.closed.Load() {
		return fmt.Errorf("live connection is closed")
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(v)
}

// Receive returns the next inbound event in arrival order. Non-text frames
// are skipped; normal closure surfaces as io.EOF.
func (c *wsConn) Receive() (protocol.ServerEvent, error) {
	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) || c.closed.Load() {
				return nil, io.EOF
			}
			return nil, err
		}
		if messageType != websocket.TextMessage {
			continue
		}
		return protocol.DecodeServerFrame(data)
	}
}

func (c *wsConn) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(2*time.Second))
		c.writeMu.Unlock()
		_ = c.conn.Close()
	})
	return nil
}
