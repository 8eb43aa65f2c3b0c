package live

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"github.com/voxa-ai/voxa/pkg/live/protocol"
)

// ConfigInputs are the externally supplied persona/config fields a session
// is built from. Ownership of the underlying settings is outside this
// package; a snapshot is taken at connect time.
type ConfigInputs struct {
	Persona  string
	Protocol string
	Greeting string
	Voice    string
	Tuning   map[string]string
	Tools    []protocol.Tool
}

// SessionConfig is the immutable snapshot sent at connect time. Building it
// is deterministic for identical inputs; no timestamps or random ids are
// embedded, so structural comparison detects config drift.
type SessionConfig struct {
	Instructions string          `json:"instructions"`
	Voice        string          `json:"voice"`
	Tools        []protocol.Tool `json:"tools"`
}

// BuildSessionConfig composes the instruction payload, voice selection, and
// tool manifest from the supplied inputs.
func BuildSessionConfig(in ConfigInputs) SessionConfig {
	var sections []string
	if s := strings.TrimSpace(in.Persona); s != "" {
		sections = append(sections, s)
	}
	if s := strings.TrimSpace(in.Protocol); s != "" {
		sections = append(sections, s)
	}
	if len(in.Tuning) > 0 {
		keys := make([]string, 0, len(in.Tuning))
		for k := range in.Tuning {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		lines := make([]string, 0, len(keys))
		for _, k := range keys {
			lines = append(lines, k+": "+in.Tuning[k])
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}
	if s := strings.TrimSpace(in.Greeting); s != "" {
		sections = append(sections, "Open the conversation with: "+s)
	}

	tools := append([]protocol.Tool(nil), in.Tools...)
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })

	return SessionConfig{
		Instructions: strings.Join(sections, "\n\n"),
		Voice:        strings.TrimSpace(in.Voice),
		Tools:        tools,
	}
}

// Setup converts the config into the wire setup frame.
func (c SessionConfig) Setup() protocol.ClientSetup {
	return protocol.NewSetup(c.Instructions, c.Voice, c.Tools)
}

// Fingerprint returns a digest of the canonical JSON form.
func (c SessionConfig) Fingerprint() string {
	raw, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// Equal reports structural equality.
func (c SessionConfig) Equal(other SessionConfig) bool {
	return c.Fingerprint() == other.Fingerprint()
}

// StalenessDetector holds the config snapshot captured at connect time and
// compares candidates against it. There is no in-place live
// reconfiguration: applying an update means disconnect, rebuild, reconnect.
type StalenessDetector struct {
	mu       sync.Mutex
	snapshot SessionConfig
	captured bool
}

// Capture records the config that went live.
func (d *StalenessDetector) Capture(cfg SessionConfig) {
	d.mu.Lock()
	d.snapshot = cfg
	d.captured = true
	d.mu.Unlock()
}

// Clear drops the snapshot on disconnect.
func (d *StalenessDetector) Clear() {
	d.mu.Lock()
	d.captured = false
	d.snapshot = SessionConfig{}
	d.mu.Unlock()
}

// Stale reports whether candidate differs from the live snapshot. Without a
// snapshot nothing is stale.
func (d *StalenessDetector) Stale(candidate SessionConfig) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.captured {
		return false
	}
	return !d.snapshot.Equal(candidate)
}

// Live returns the captured snapshot, if any.
func (d *StalenessDetector) Live() (SessionConfig, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshot, d.captured
}
