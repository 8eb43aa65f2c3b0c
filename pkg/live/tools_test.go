package live

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/voxa-ai/voxa/pkg/live/protocol"
)

func TestDispatchOneResponsePerRequest(t *testing.T) {
	reg := NewRegistry()
	reg.Register("echo", func(_ context.Context, args map[string]any) (any, error) {
		return args["text"], nil
	})
	reg.Register("fail", func(context.Context, map[string]any) (any, error) {
		return nil, errors.New("collaborator down")
	})
	reg.Register("boom", func(context.Context, map[string]any) (any, error) {
		panic("handler bug")
	})
	d := NewDispatcher(reg)

	calls := []protocol.ToolCallRequest{
		{ID: "c1", Name: "echo", Args: map[string]any{"text": "hi"}},
		{ID: "c2", Name: "fail"},
		{ID: "c3", Name: "boom"},
		{ID: "c4", Name: "no_such_tool"},
	}
	responses := d.Dispatch(context.Background(), calls)

	if len(responses) != len(calls) {
		t.Fatalf("responses = %d, want %d", len(responses), len(calls))
	}
	for i, resp := range responses {
		if resp.ID != calls[i].ID || resp.Name != calls[i].Name {
			t.Errorf("response %d correlation = %s/%s, want %s/%s", i, resp.ID, resp.Name, calls[i].ID, calls[i].Name)
		}
	}
	if responses[0].Response["result"] != "hi" {
		t.Errorf("echo result = %v, want hi", responses[0].Response)
	}
	if responses[1].Response["error"] != "collaborator down" {
		t.Errorf("fail response = %v", responses[1].Response)
	}
	if _, ok := responses[2].Response["error"]; !ok {
		t.Errorf("panicking handler must yield an error response, got %v", responses[2].Response)
	}
	if responses[3].Response["error"] != "not implemented" {
		t.Errorf("unknown tool response = %v, want not implemented", responses[3].Response)
	}
}

func TestDispatchEmptyBatch(t *testing.T) {
	d := NewDispatcher(NewRegistry())
	responses := d.Dispatch(context.Background(), nil)
	if len(responses) != 0 {
		t.Fatalf("responses = %d, want 0", len(responses))
	}
}

func TestDispatchVoidHandlerAcknowledges(t *testing.T) {
	reg := NewRegistry()
	reg.Register("open_settings", func(context.Context, map[string]any) (any, error) {
		return nil, nil
	})
	d := NewDispatcher(reg)

	responses := d.Dispatch(context.Background(), []protocol.ToolCallRequest{{ID: "c1", Name: "open_settings"}})
	if responses[0].Response["result"] != "ok" {
		t.Fatalf("void handler response = %v, want generic ok ack", responses[0].Response)
	}
}

func TestDispatchSiblingFailureDoesNotBlockBatch(t *testing.T) {
	reg := NewRegistry()
	release := make(chan struct{})
	reg.Register("slow", func(ctx context.Context, _ map[string]any) (any, error) {
		select {
		case <-release:
			return "done", nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
	reg.Register("fast_fail", func(context.Context, map[string]any) (any, error) {
		return nil, errors.New("nope")
	})
	d := NewDispatcher(reg)

	done := make(chan []protocol.ToolCallResponse, 1)
	go func() {
		done <- d.Dispatch(context.Background(), []protocol.ToolCallRequest{
			{ID: "c1", Name: "slow"},
			{ID: "c2", Name: "fast_fail"},
		})
	}()
	close(release)

	select {
	case responses := <-done:
		if responses[0].Response["result"] != "done" {
			t.Errorf("slow response = %v", responses[0].Response)
		}
		if responses[1].Response["error"] != "nope" {
			t.Errorf("fast_fail response = %v", responses[1].Response)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("dispatch did not complete")
	}
}

func TestDispatchHandlerTimeout(t *testing.T) {
	reg := NewRegistry()
	reg.Register("hang", func(ctx context.Context, _ map[string]any) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	d := NewDispatcher(reg, WithToolTimeout(20*time.Millisecond))

	responses := d.Dispatch(context.Background(), []protocol.ToolCallRequest{{ID: "c1", Name: "hang"}})
	if _, ok := responses[0].Response["error"]; !ok {
		t.Fatalf("timed-out handler must yield an error response, got %v", responses[0].Response)
	}
}

func TestRegistryNamesSorted(t *testing.T) {
	reg := NewRegistry()
	reg.Register("zeta", func(context.Context, map[string]any) (any, error) { return nil, nil })
	reg.Register("alpha", func(context.Context, map[string]any) (any, error) { return nil, nil })
	names := reg.Names()
	if len(names) != 2 || names[0] != "alpha" || names[1] != "zeta" {
		t.Fatalf("Names = %v", names)
	}
}

func TestDispatchObserver(t *testing.T) {
	reg := NewRegistry()
	reg.Register("echo", func(_ context.Context, args map[string]any) (any, error) {
		return args["v"], nil
	})
	var observed string
	d := NewDispatcher(reg, WithToolObserver(func(name string, _ map[string]any, _ any, _ error) {
		observed = name
	}))
	d.Dispatch(context.Background(), []protocol.ToolCallRequest{{ID: "c1", Name: "echo", Args: map[string]any{"v": 1}}})
	if observed != "echo" {
		t.Fatalf("observer saw %q, want echo", observed)
	}
}
