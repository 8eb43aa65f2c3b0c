package live

import (
	"context"
	"fmt"
	"net/url"

	"github.com/voxa-ai/voxa/pkg/audio"
	"github.com/voxa-ai/voxa/pkg/live/protocol"
)

// Conn is one live bidirectional connection to the model service.
// Sends are fire-and-forget; Receive blocks for the next inbound event and
// returns io.EOF on clean remote close.
type Conn interface {
	SendAudio(chunk audio.Chunk) error
	SendToolResponses(responses []protocol.ToolCallResponse) error
	Receive() (protocol.ServerEvent, error)
	Close() error
}

// Transport establishes live connections. Dial sends the setup frame and
// waits for the service's ready acknowledgment before returning.
type Transport interface {
	Dial(ctx context.Context, setup protocol.ClientSetup) (Conn, error)
}

// TransportError represents connection-level failures (DNS, timeouts,
// connection reset, TLS handshake) while reaching the service.
//
// Use errors.As(err, &TransportError{}) to distinguish transport failures
// from canonical classified errors (*core.Error).
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	switch {
	case e == nil:
		return ""
	case e.Op != "" && e.URL != "":
		return fmt.Sprintf("transport error during %s %s: %v", e.Op, redactURLUserInfo(e.URL), e.Err)
	case e.Op != "":
		return fmt.Sprintf("transport error during %s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("transport error: %v", e.Err)
	}
}

func (e *TransportError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func redactURLUserInfo(raw string) string {
	if raw == "" {
		return raw
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed == nil {
		return raw
	}
	parsed.User = nil
	return parsed.String()
}
