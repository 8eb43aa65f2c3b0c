package assistant

import "log/slog"

// Effects is the surface a UI shell implements to carry out device-side
// actions. Handlers translate tool calls into these calls; the shell decides
// how each one actually manifests (intents, deep links, notifications).
type Effects interface {
	PlayVideo(query, app string)
	// ControlMedia applies a playback action; position is only meaningful
	// for seek and is in seconds.
	ControlMedia(action string, position int)
	OpenApp(name string)
	ComposeMessage(contact, body string)
	PlaceCall(number string)
	OpenSettings(section string)
	// TimerFired is invoked when a timer set through set_timer elapses.
	TimerFired(label string)
}

// LogEffects is an Effects implementation that only logs, used by the demo
// shell and as a stand-in where no device integration exists.
type LogEffects struct {
	Logger *slog.Logger
}

var _ Effects = (*LogEffects)(nil)

func (e *LogEffects) logger() *slog.Logger {
	if e == nil || e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

func (e *LogEffects) PlayVideo(query, app string) {
	e.logger().Info("effect: play video", "query", query, "app", app)
}

func (e *LogEffects) ControlMedia(action string, position int) {
	e.logger().Info("effect: control media", "action", action, "position", position)
}

func (e *LogEffects) OpenApp(name string) {
	e.logger().Info("effect: open app", "name", name)
}

func (e *LogEffects) ComposeMessage(contact, body string) {
	e.logger().Info("effect: compose message", "contact", contact, "chars", len(body))
}

func (e *LogEffects) PlaceCall(number string) {
	e.logger().Info("effect: place call", "number", number)
}

func (e *LogEffects) OpenSettings(section string) {
	e.logger().Info("effect: open settings", "section", section)
}

func (e *LogEffects) TimerFired(label string) {
	e.logger().Info("effect: timer fired", "label", label)
}
