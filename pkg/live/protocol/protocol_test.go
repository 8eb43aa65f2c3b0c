package protocol

import (
	"encoding/json"
	"testing"

	"github.com/voxa-ai/voxa/pkg/core"
)

func TestDecodeServerFrameVariants(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"ready", `{"type":"ready","session_id":"s_1"}`, "ready"},
		{"audio", `{"type":"audio","data":"AAA=","mimeType":"audio/pcm;rate=24000"}`, "audio"},
		{"transcript", `{"type":"transcript","speaker":"user","text":"hi","final":true}`, "transcript"},
		{"tool_call", `{"type":"tool_call","calls":[{"id":"c1","name":"get_weather","args":{"location":"Berlin"}}]}`, "tool_call"},
		{"interrupted", `{"type":"interrupted"}`, "interrupted"},
		{"turn_complete", `{"type":"turn_complete"}`, "turn_complete"},
		{"error", `{"type":"error","error_type":"rate_limit","message":"slow down"}`, "error"},
	}
	for _, tt := range tests {
		event, err := DecodeServerFrame([]byte(tt.raw))
		if err != nil {
			t.Fatalf("%s: DecodeServerFrame: %v", tt.name, err)
		}
		if got := event.serverEventType(); got != tt.want {
			t.Errorf("%s: event type = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestDecodeServerFrameToolCallArgs(t *testing.T) {
	raw := `{"type":"tool_call","calls":[{"id":"c1","name":"set_timer","args":{"seconds":90}}]}`
	event, err := DecodeServerFrame([]byte(raw))
	if err != nil {
		t.Fatalf("DecodeServerFrame: %v", err)
	}
	call, ok := event.(ServerToolCall)
	if !ok {
		t.Fatalf("event = %T, want ServerToolCall", event)
	}
	if len(call.Calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(call.Calls))
	}
	if call.Calls[0].ID != "c1" || call.Calls[0].Name != "set_timer" {
		t.Fatalf("call = %+v", call.Calls[0])
	}
	if got := call.Calls[0].Args["seconds"]; got != float64(90) {
		t.Fatalf("args.seconds = %v, want 90", got)
	}
}

func TestDecodeServerFrameUnknownAndInvalid(t *testing.T) {
	event, err := DecodeServerFrame([]byte(`{"type":"novelty","payload":1}`))
	if err != nil {
		t.Fatalf("unknown frame should not error: %v", err)
	}
	unknown, ok := event.(ServerUnknown)
	if !ok || unknown.Type != "novelty" {
		t.Fatalf("event = %#v, want ServerUnknown{novelty}", event)
	}

	if _, err := DecodeServerFrame([]byte(`not json`)); err == nil {
		t.Fatal("malformed frame should error")
	}
	if _, err := DecodeServerFrame([]byte(`{"data":"x"}`)); err == nil {
		t.Fatal("frame without type should error")
	}
}

func TestServerErrorClassification(t *testing.T) {
	tests := []struct {
		errorType string
		want      core.ErrorType
	}{
		{"credential", core.ErrAuthentication},
		{"rate_limit", core.ErrRateLimit},
		{"unavailable", core.ErrOverloaded},
		{"safety", core.ErrSafetyBlocked},
		{"something_else", core.ErrAPI},
	}
	for _, tt := range tests {
		serr := ServerError{ErrorType: tt.errorType, Message: "m"}
		if got := serr.Err().Type; got != tt.want {
			t.Errorf("Err(%q).Type = %q, want %q", tt.errorType, got, tt.want)
		}
	}
}

func TestClientFramesMarshalShape(t *testing.T) {
	setup := NewSetup("be helpful", "aurora", []Tool{{Name: "get_weather"}})
	raw, err := json.Marshal(setup)
	if err != nil {
		t.Fatalf("marshal setup: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal setup: %v", err)
	}
	if decoded["type"] != "setup" || decoded["protocol_version"] != ProtocolVersion1 {
		t.Fatalf("setup envelope = %v", decoded)
	}

	audio := NewAudio("AAAA", "audio/pcm;rate=16000")
	if audio.Type != "audio_chunk" {
		t.Fatalf("audio type = %q", audio.Type)
	}

	responses := NewToolResponses([]ToolCallResponse{{ID: "c1", Name: "x", Response: map[string]any{"result": "ok"}}})
	if responses.Type != "tool_responses" || len(responses.Responses) != 1 {
		t.Fatalf("responses = %+v", responses)
	}
}
