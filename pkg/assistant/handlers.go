package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/voxa-ai/voxa/pkg/live"
)

// Handlers binds the manifest's tools to their local collaborators. Nil
// fetchers degrade to a clear per-call error; the session itself never
// depends on any single backend being up.
type Handlers struct {
	Effects Effects
	Weather WeatherProvider
	News    NewsProvider
	Video   VideoFinder
	Timers  *TimerEngine
}

// NewHandlers wires the tool handlers. Effects must not be nil; a timer
// engine is created on demand when none is supplied, reporting fired timers
// through Effects.TimerFired.
func NewHandlers(effects Effects, opts ...HandlersOption) *Handlers {
	h := &Handlers{Effects: effects}
	for _, opt := range opts {
		opt(h)
	}
	if h.Timers == nil {
		h.Timers = NewTimerEngine(effects.TimerFired)
	}
	return h
}

// HandlersOption configures Handlers.
type HandlersOption func(*Handlers)

// WithWeather sets the weather backend.
func WithWeather(p WeatherProvider) HandlersOption {
	return func(h *Handlers) { h.Weather = p }
}

// WithNews sets the news backend.
func WithNews(p NewsProvider) HandlersOption {
	return func(h *Handlers) { h.News = p }
}

// WithVideo sets the video search backend.
func WithVideo(v VideoFinder) HandlersOption {
	return func(h *Handlers) { h.Video = v }
}

// WithTimers sets the timer engine.
func WithTimers(t *TimerEngine) HandlersOption {
	return func(h *Handlers) { h.Timers = t }
}

// RegisterAll binds every manifest tool into the registry.
func (h *Handlers) RegisterAll(reg *live.Registry) {
	reg.Register(ToolPlayVideo, h.playVideo)
	reg.Register(ToolControlMedia, h.controlMedia)
	reg.Register(ToolSetTimer, h.setTimer)
	reg.Register(ToolComposeMessage, h.composeMessage)
	reg.Register(ToolOpenApp, h.openApp)
	reg.Register(ToolGetWeather, h.getWeather)
	reg.Register(ToolGetNews, h.getNews)
	reg.Register(ToolPlaceCall, h.placeCall)
	reg.Register(ToolOpenSettings, h.openSettings)
}

// decodeArgs round-trips the dispatcher's generic args into a typed input
// struct. Unknown fields are ignored, matching the schema's advisory role.
func decodeArgs(args map[string]any, into any) error {
	raw, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

func (h *Handlers) playVideo(ctx context.Context, args map[string]any) (any, error) {
	var in playVideoInput
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Query) == "" {
		return nil, fmt.Errorf("query is required")
	}

	title := in.Query
	if h.Video != nil {
		video, err := h.Video.Find(ctx, in.Query)
		if err != nil {
			return nil, fmt.Errorf("video search failed: %w", err)
		}
		title = video.Title
	}
	h.Effects.PlayVideo(in.Query, in.App)
	return fmt.Sprintf("Playing %s.", title), nil
}

func (h *Handlers) controlMedia(_ context.Context, args map[string]any) (any, error) {
	var in controlMediaInput
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	switch in.Action {
	case "play", "pause", "stop", "seek", "minimize", "maximize":
	default:
		return nil, fmt.Errorf("unsupported media action %q", in.Action)
	}
	if in.Action == "seek" && in.Position < 0 {
		return nil, fmt.Errorf("seek position must not be negative")
	}
	h.Effects.ControlMedia(in.Action, in.Position)
	return nil, nil
}

func (h *Handlers) setTimer(_ context.Context, args map[string]any) (any, error) {
	var in setTimerInput
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	d := time.Duration(in.Seconds) * time.Second
	if _, err := h.Timers.Set(d, in.Label); err != nil {
		return nil, err
	}
	if in.Label != "" {
		return fmt.Sprintf("Timer %q set for %s.", in.Label, spokenDuration(d)), nil
	}
	return fmt.Sprintf("Timer set for %s.", spokenDuration(d)), nil
}

func (h *Handlers) composeMessage(_ context.Context, args map[string]any) (any, error) {
	var in composeMessageInput
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Body) == "" {
		return nil, fmt.Errorf("body is required")
	}
	h.Effects.ComposeMessage(in.Contact, in.Body)
	if in.Contact != "" {
		return fmt.Sprintf("Drafted a message to %s for review.", in.Contact), nil
	}
	return "Drafted the message for review.", nil
}

func (h *Handlers) openApp(_ context.Context, args map[string]any) (any, error) {
	var in openAppInput
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("name is required")
	}
	h.Effects.OpenApp(in.Name)
	return nil, nil
}

func (h *Handlers) getWeather(ctx context.Context, args map[string]any) (any, error) {
	if h.Weather == nil {
		return nil, fmt.Errorf("weather service not configured")
	}
	var in getWeatherInput
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	report, err := h.Weather.Current(ctx, in.Location)
	if err != nil {
		return nil, fmt.Errorf("weather lookup failed: %w", err)
	}
	return fmt.Sprintf("%s: %s, %.0f degrees.", report.Location, report.Summary, report.TempC), nil
}

func (h *Handlers) getNews(ctx context.Context, args map[string]any) (any, error) {
	if h.News == nil {
		return nil, fmt.Errorf("news service not configured")
	}
	var in getNewsInput
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	headlines, err := h.News.Headlines(ctx, in.Topic, 5)
	if err != nil {
		return nil, fmt.Errorf("news lookup failed: %w", err)
	}
	if len(headlines) == 0 {
		return "No headlines right now.", nil
	}
	lines := make([]string, 0, len(headlines))
	for _, hl := range headlines {
		if hl.Source != "" {
			lines = append(lines, fmt.Sprintf("%s (%s)", hl.Title, hl.Source))
			continue
		}
		lines = append(lines, hl.Title)
	}
	return strings.Join(lines, "\n"), nil
}

func (h *Handlers) placeCall(_ context.Context, args map[string]any) (any, error) {
	var in placeCallInput
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Number) == "" {
		return nil, fmt.Errorf("number is required")
	}
	h.Effects.PlaceCall(in.Number)
	return fmt.Sprintf("Calling %s.", in.Number), nil
}

func (h *Handlers) openSettings(_ context.Context, args map[string]any) (any, error) {
	var in openSettingsInput
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	h.Effects.OpenSettings(in.Section)
	return nil, nil
}

// spokenDuration renders a duration the way it would be said aloud.
func spokenDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	var parts []string
	if h > 0 {
		parts = append(parts, plural(h, "hour"))
	}
	if m > 0 {
		parts = append(parts, plural(m, "minute"))
	}
	if s > 0 || len(parts) == 0 {
		parts = append(parts, plural(s, "second"))
	}
	return strings.Join(parts, " ")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
