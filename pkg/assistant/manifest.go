package assistant

import (
	"github.com/voxa-ai/voxa/pkg/live/protocol"
)

// Tool names in the fixed manifest.
const (
	ToolPlayVideo      = "play_video"
	ToolControlMedia   = "control_media"
	ToolSetTimer       = "set_timer"
	ToolComposeMessage = "compose_message"
	ToolOpenApp        = "open_app"
	ToolGetWeather     = "get_weather"
	ToolGetNews        = "get_news"
	ToolPlaceCall      = "place_call"
	ToolOpenSettings   = "open_settings"
)

type playVideoInput struct {
	Query string `json:"query" desc:"What to search for and play"`
	App   string `json:"app,omitempty" desc:"Preferred video app, if the user named one"`
}

type controlMediaInput struct {
	Action   string `json:"action" desc:"Playback control to apply" enum:"play,pause,stop,seek,minimize,maximize"`
	Position int    `json:"position,omitempty" desc:"Seek target in seconds, for the seek action"`
}

type setTimerInput struct {
	Seconds int    `json:"seconds" desc:"Timer length in seconds"`
	Label   string `json:"label,omitempty" desc:"Short label spoken back when the timer fires"`
}

type composeMessageInput struct {
	Body    string `json:"body" desc:"Message text, exactly as dictated"`
	Contact string `json:"contact,omitempty" desc:"Recipient, when the user named one"`
}

type openAppInput struct {
	Name string `json:"name" desc:"App name as the user said it"`
}

type getWeatherInput struct {
	Location string `json:"location,omitempty" desc:"Place to report on; omit for the device location"`
}

type getNewsInput struct {
	Topic string `json:"topic,omitempty" desc:"Topic to filter headlines by; omit for top stories"`
}

type placeCallInput struct {
	Number string `json:"number" desc:"Phone number to call"`
}

type openSettingsInput struct {
	Section string `json:"section,omitempty" desc:"Settings section to open" enum:"wifi,bluetooth,display,sound,battery,privacy"`
}

// Manifest returns the fixed tool declarations advertised in the session
// config. The schemas are derived from the typed input structs the handlers
// decode into, so declaration and execution cannot drift apart.
func Manifest() []protocol.Tool {
	return []protocol.Tool{
		{
			Name:        ToolPlayVideo,
			Description: "Search for a video and start playing it.",
			Parameters:  schemaFor(playVideoInput{}),
		},
		{
			Name:        ToolControlMedia,
			Description: "Control media that is already playing: play, pause, stop, seek, or resize the player.",
			Parameters:  schemaFor(controlMediaInput{}),
		},
		{
			Name:        ToolSetTimer,
			Description: "Set a countdown timer.",
			Parameters:  schemaFor(setTimerInput{}),
		},
		{
			Name:        ToolComposeMessage,
			Description: "Open a message draft with the dictated text. The user reviews it before sending.",
			Parameters:  schemaFor(composeMessageInput{}),
		},
		{
			Name:        ToolOpenApp,
			Description: "Open an installed app by name.",
			Parameters:  schemaFor(openAppInput{}),
		},
		{
			Name:        ToolGetWeather,
			Description: "Get the current weather for a location.",
			Parameters:  schemaFor(getWeatherInput{}),
		},
		{
			Name:        ToolGetNews,
			Description: "Get current news headlines, optionally on a topic.",
			Parameters:  schemaFor(getNewsInput{}),
		},
		{
			Name:        ToolPlaceCall,
			Description: "Place a phone call.",
			Parameters:  schemaFor(placeCallInput{}),
		},
		{
			Name:        ToolOpenSettings,
			Description: "Open device settings, optionally at a specific section.",
			Parameters:  schemaFor(openSettingsInput{}),
		},
	}
}
