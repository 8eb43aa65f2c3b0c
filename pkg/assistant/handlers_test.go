package assistant

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/voxa-ai/voxa/pkg/live"
	"github.com/voxa-ai/voxa/pkg/live/protocol"
)

// fakeEffects records every effect invocation.
type fakeEffects struct {
	mu    sync.Mutex
	calls []string
}

func (e *fakeEffects) record(s string) {
	e.mu.Lock()
	e.calls = append(e.calls, s)
	e.mu.Unlock()
}

func (e *fakeEffects) recorded() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...)
}

func (e *fakeEffects) PlayVideo(query, app string)         { e.record("play_video:" + query) }
func (e *fakeEffects) ControlMedia(action string, _ int)   { e.record("control_media:" + action) }
func (e *fakeEffects) OpenApp(name string)                 { e.record("open_app:" + name) }
func (e *fakeEffects) ComposeMessage(contact, body string) { e.record("compose:" + contact) }
func (e *fakeEffects) PlaceCall(number string)             { e.record("call:" + number) }
func (e *fakeEffects) OpenSettings(section string)         { e.record("settings:" + section) }
func (e *fakeEffects) TimerFired(label string)             { e.record("timer:" + label) }

type staticWeather struct{ report WeatherReport }

func (w staticWeather) Current(context.Context, string) (WeatherReport, error) {
	return w.report, nil
}

type staticNews struct{ headlines []Headline }

func (n staticNews) Headlines(context.Context, string, int) ([]Headline, error) {
	return n.headlines, nil
}

func TestRegisterAllCoversManifest(t *testing.T) {
	reg := live.NewRegistry()
	NewHandlers(&fakeEffects{}).RegisterAll(reg)

	names := reg.Names()
	if len(names) != len(Manifest()) {
		t.Fatalf("registered = %d tools, manifest declares %d", len(names), len(Manifest()))
	}
	for _, tool := range Manifest() {
		if _, ok := reg.Lookup(tool.Name); !ok {
			t.Errorf("declared tool %q has no handler", tool.Name)
		}
	}
}

func TestControlMediaValidatesAction(t *testing.T) {
	effects := &fakeEffects{}
	h := NewHandlers(effects)

	if _, err := h.controlMedia(context.Background(), map[string]any{"action": "pause"}); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if _, err := h.controlMedia(context.Background(), map[string]any{"action": "rewind"}); err == nil {
		t.Fatal("unsupported action must error")
	}
	if _, err := h.controlMedia(context.Background(), map[string]any{"action": "seek", "position": -3}); err == nil {
		t.Fatal("negative seek must error")
	}
	got := effects.recorded()
	if len(got) != 1 || got[0] != "control_media:pause" {
		t.Fatalf("effects = %v, want only the valid action", got)
	}
}

func TestSetTimerFiresEffect(t *testing.T) {
	effects := &fakeEffects{}
	h := NewHandlers(effects)
	defer h.Timers.Shutdown()

	result, err := h.setTimer(context.Background(), map[string]any{"seconds": 1, "label": "tea"})
	if err != nil {
		t.Fatalf("setTimer: %v", err)
	}
	if s, _ := result.(string); !strings.Contains(s, "1 second") {
		t.Fatalf("spoken result = %v, want duration readback", result)
	}
	if h.Timers.Pending() != 1 {
		t.Fatalf("pending = %d, want 1", h.Timers.Pending())
	}
}

func TestSetTimerRejectsNonPositiveDuration(t *testing.T) {
	h := NewHandlers(&fakeEffects{})
	if _, err := h.setTimer(context.Background(), map[string]any{"seconds": 0}); err == nil {
		t.Fatal("zero-length timer must error")
	}
}

func TestTimerEngineFireAndCancel(t *testing.T) {
	fired := make(chan string, 2)
	e := NewTimerEngine(func(label string) { fired <- label })
	defer e.Shutdown()

	if _, err := e.Set(5*time.Millisecond, "soon"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	id, err := e.Set(time.Hour, "never")
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
	e.Cancel(id)

	select {
	case label := <-fired:
		if label != "soon" {
			t.Fatalf("fired label = %q, want soon", label)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timer never fired")
	}
	if e.Pending() != 0 {
		t.Fatalf("pending = %d, want 0 after fire and cancel", e.Pending())
	}
}

func TestGetWeatherSpeaksReport(t *testing.T) {
	h := NewHandlers(&fakeEffects{}, WithWeather(staticWeather{
		report: WeatherReport{Location: "Oslo", Summary: "light rain", TempC: 11},
	}))

	result, err := h.getWeather(context.Background(), map[string]any{"location": "Oslo"})
	if err != nil {
		t.Fatalf("getWeather: %v", err)
	}
	if s, _ := result.(string); !strings.Contains(s, "Oslo") || !strings.Contains(s, "light rain") {
		t.Fatalf("spoken weather = %v", result)
	}
}

func TestGetWeatherUnconfiguredBackendErrors(t *testing.T) {
	h := NewHandlers(&fakeEffects{})
	if _, err := h.getWeather(context.Background(), nil); err == nil {
		t.Fatal("missing backend must produce a per-call error")
	}
}

func TestGetNewsFormatsHeadlines(t *testing.T) {
	h := NewHandlers(&fakeEffects{}, WithNews(staticNews{headlines: []Headline{
		{Title: "Quiet day", Source: "Wire"},
		{Title: "Nothing happened"},
	}}))

	result, err := h.getNews(context.Background(), nil)
	if err != nil {
		t.Fatalf("getNews: %v", err)
	}
	s, _ := result.(string)
	if !strings.Contains(s, "Quiet day (Wire)") || !strings.Contains(s, "Nothing happened") {
		t.Fatalf("headline readout = %q", s)
	}
}

func TestHandlersThroughDispatcher(t *testing.T) {
	effects := &fakeEffects{}
	reg := live.NewRegistry()
	NewHandlers(effects).RegisterAll(reg)
	d := live.NewDispatcher(reg)

	responses := d.Dispatch(context.Background(), []protocol.ToolCallRequest{
		{ID: "c1", Name: ToolOpenApp, Args: map[string]any{"name": "calendar"}},
		{ID: "c2", Name: ToolPlaceCall, Args: map[string]any{}}, // missing number
	})

	if responses[0].Response["result"] != "ok" {
		t.Fatalf("open_app response = %v, want void ack", responses[0].Response)
	}
	if _, failed := responses[1].Response["error"]; !failed {
		t.Fatalf("place_call without a number = %v, want error response", responses[1].Response)
	}
	got := effects.recorded()
	if len(got) != 1 || got[0] != "open_app:calendar" {
		t.Fatalf("effects = %v", got)
	}
}
