// Package protocol defines the client/server frames exchanged over a live
// session websocket. Frames are JSON envelopes tagged by a "type" field;
// assistant audio is base64-wrapped 16-bit PCM inside the envelope.
package protocol

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/voxa-ai/voxa/pkg/core"
)

const ProtocolVersion1 = "1"

// JSONSchema is a JSON-schema-like description of tool parameters.
type JSONSchema struct {
	Type        string                 `json:"type,omitempty"`
	Description string                 `json:"description,omitempty"`
	Enum        []string               `json:"enum,omitempty"`
	Properties  map[string]*JSONSchema `json:"properties,omitempty"`
	Required    []string               `json:"required,omitempty"`
	Items       *JSONSchema            `json:"items,omitempty"`
}

// Tool declares one callable function in the session tool manifest.
type Tool struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Parameters  *JSONSchema `json:"parameters,omitempty"`
}

// ToolCallRequest is a model-issued function call. The id is the correlation
// key; ids are unique within a session but not globally.
type ToolCallRequest struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// ToolCallResponse answers exactly one ToolCallRequest. Response holds either
// {"result": ...} or {"error": ...}.
type ToolCallResponse struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

// ClientSetup is the first frame on a new connection. It carries the
// immutable session config: instructions, voice, and the tool manifest.
type ClientSetup struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Instructions    string `json:"instructions,omitempty"`
	Voice           string `json:"voice,omitempty"`
	Tools           []Tool `json:"tools,omitempty"`
}

// ClientAudio carries one encoded microphone chunk. Fire-and-forget; chunks
// are not retried individually.
type ClientAudio struct {
	Type     string `json:"type"`
	Data     string `json:"data"`
	MIMEType string `json:"mimeType"`
}

// ClientToolResponses returns a batch of tool-call responses.
type ClientToolResponses struct {
	Type      string             `json:"type"`
	Responses []ToolCallResponse `json:"responses"`
}

// ServerEvent is a tagged union of inbound frames.
type ServerEvent interface {
	serverEventType() string
}

// ServerReady acknowledges the setup frame; the session is live.
type ServerReady struct {
	SessionID string `json:"session_id,omitempty"`
}

func (ServerReady) serverEventType() string { return "ready" }

// ServerAudio carries one chunk of assistant speech.
type ServerAudio struct {
	Data     string `json:"data"`
	MIMEType string `json:"mimeType,omitempty"`
}

func (ServerAudio) serverEventType() string { return "audio" }

// ServerTranscript carries an incremental or final transcript line.
type ServerTranscript struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
	Final   bool   `json:"final"`
}

func (ServerTranscript) serverEventType() string { return "transcript" }

// ServerToolCall carries a batch of function calls to execute locally.
type ServerToolCall struct {
	Calls []ToolCallRequest `json:"calls"`
}

func (ServerToolCall) serverEventType() string { return "tool_call" }

// ServerInterrupted signals barge-in: the user started talking over the
// assistant and local playback must be cut off immediately.
type ServerInterrupted struct{}

func (ServerInterrupted) serverEventType() string { return "interrupted" }

// ServerTurnComplete marks the end of an assistant turn.
type ServerTurnComplete struct{}

func (ServerTurnComplete) serverEventType() string { return "turn_complete" }

// ServerError carries a classified in-band failure.
type ServerError struct {
	ErrorType  string `json:"error_type"`
	Message    string `json:"message"`
	Code       string `json:"code,omitempty"`
	RetryAfter int    `json:"retry_after,omitempty"`
}

func (ServerError) serverEventType() string { return "error" }

// Err converts the wire error into the canonical taxonomy.
func (e ServerError) Err() *core.Error {
	msg := strings.TrimSpace(e.Message)
	switch e.ErrorType {
	case "credential", string(core.ErrAuthentication):
		return core.NewAuthenticationError(msg)
	case "rate_limit", string(core.ErrRateLimit):
		return core.NewRateLimitError(msg, e.RetryAfter)
	case "unavailable", string(core.ErrOverloaded):
		return core.NewOverloadedError(msg)
	case "safety", string(core.ErrSafetyBlocked):
		return core.NewSafetyBlockedError(msg)
	default:
		err := core.NewAPIError(msg)
		err.Code = e.Code
		return err
	}
}

// ServerUnknown preserves frames this client version does not understand.
type ServerUnknown struct {
	Type string
	Raw  json.RawMessage
}

func (e ServerUnknown) serverEventType() string { return e.Type }

// NewSetup builds the setup frame from config fields.
func NewSetup(instructions, voice string, tools []Tool) ClientSetup {
	return ClientSetup{
		Type:            "setup",
		ProtocolVersion: ProtocolVersion1,
		Instructions:    instructions,
		Voice:           voice,
		Tools:           tools,
	}
}

// NewAudio wraps one encoded chunk.
func NewAudio(data, mimeType string) ClientAudio {
	return ClientAudio{Type: "audio_chunk", Data: data, MIMEType: mimeType}
}

// NewToolResponses wraps a response batch.
func NewToolResponses(responses []ToolCallResponse) ClientToolResponses {
	return ClientToolResponses{Type: "tool_responses", Responses: responses}
}

// DecodeServerFrame parses one inbound text frame into its event variant.
func DecodeServerFrame(data []byte) (ServerEvent, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("decode frame envelope: %w", err)
	}
	typ := strings.TrimSpace(envelope.Type)
	if typ == "" {
		return nil, fmt.Errorf("frame missing type")
	}

	switch typ {
	case "ready":
		var ready ServerReady
		if err := json.Unmarshal(data, &ready); err != nil {
			return nil, fmt.Errorf("decode ready: %w", err)
		}
		return ready, nil
	case "audio":
		var chunk ServerAudio
		if err := json.Unmarshal(data, &chunk); err != nil {
			return nil, fmt.Errorf("decode audio: %w", err)
		}
		return chunk, nil
	case "transcript":
		var tr ServerTranscript
		if err := json.Unmarshal(data, &tr); err != nil {
			return nil, fmt.Errorf("decode transcript: %w", err)
		}
		return tr, nil
	case "tool_call":
		var call ServerToolCall
		if err := json.Unmarshal(data, &call); err != nil {
			return nil, fmt.Errorf("decode tool_call: %w", err)
		}
		return call, nil
	case "interrupted":
		return ServerInterrupted{}, nil
	case "turn_complete":
		return ServerTurnComplete{}, nil
	case "error":
		var serr ServerError
		if err := json.Unmarshal(data, &serr); err != nil {
			return nil, fmt.Errorf("decode error frame: %w", err)
		}
		return serr, nil
	default:
		return ServerUnknown{
			Type: typ,
			Raw:  append(json.RawMessage(nil), data...),
		}, nil
	}
}
