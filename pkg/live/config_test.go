package live

import (
	"strings"
	"testing"

	"github.com/voxa-ai/voxa/pkg/live/protocol"
)

func demoInputs() ConfigInputs {
	return ConfigInputs{
		Persona:  "You are Voxa, a friendly voice assistant.",
		Protocol: "Keep answers short. Speak naturally.",
		Greeting: "Hi, how can I help?",
		Voice:    "aurora",
		Tuning:   map[string]string{"humor": "light", "formality": "casual"},
		Tools: []protocol.Tool{
			{Name: "set_timer"},
			{Name: "get_weather"},
		},
	}
}

func TestBuildSessionConfigDeterministic(t *testing.T) {
	a := BuildSessionConfig(demoInputs())
	b := BuildSessionConfig(demoInputs())
	if !a.Equal(b) {
		t.Fatal("identical inputs must build structurally equal configs")
	}
	if a.Fingerprint() != b.Fingerprint() {
		t.Fatalf("fingerprints differ: %s vs %s", a.Fingerprint(), b.Fingerprint())
	}
}

func TestBuildSessionConfigSortsToolsAndTuning(t *testing.T) {
	cfg := BuildSessionConfig(demoInputs())
	if cfg.Tools[0].Name != "get_weather" || cfg.Tools[1].Name != "set_timer" {
		t.Fatalf("tools not sorted: %v", cfg.Tools)
	}
	// Tuning keys render sorted so map iteration order cannot leak in.
	if !strings.Contains(cfg.Instructions, "formality: casual\nhumor: light") {
		t.Fatalf("tuning section not deterministic:\n%s", cfg.Instructions)
	}
}

func TestBuildSessionConfigComposesSections(t *testing.T) {
	cfg := BuildSessionConfig(demoInputs())
	for _, want := range []string{"You are Voxa", "Keep answers short", "Open the conversation with: Hi, how can I help?"} {
		if !strings.Contains(cfg.Instructions, want) {
			t.Errorf("instructions missing %q:\n%s", want, cfg.Instructions)
		}
	}
	if cfg.Voice != "aurora" {
		t.Fatalf("voice = %q, want aurora", cfg.Voice)
	}
}

func TestAnyTunableChangeIsDetected(t *testing.T) {
	base := BuildSessionConfig(demoInputs())

	changed := demoInputs()
	changed.Voice = "koto"
	if base.Equal(BuildSessionConfig(changed)) {
		t.Fatal("voice change must compare unequal")
	}

	changed = demoInputs()
	changed.Tuning["humor"] = "dry"
	if base.Equal(BuildSessionConfig(changed)) {
		t.Fatal("tuning change must compare unequal")
	}

	changed = demoInputs()
	changed.Tools = append(changed.Tools, protocol.Tool{Name: "get_news"})
	if base.Equal(BuildSessionConfig(changed)) {
		t.Fatal("tool manifest change must compare unequal")
	}
}

func TestStalenessDetector(t *testing.T) {
	var d StalenessDetector
	live := BuildSessionConfig(demoInputs())

	if d.Stale(live) {
		t.Fatal("nothing is stale before a snapshot is captured")
	}

	d.Capture(live)
	if d.Stale(BuildSessionConfig(demoInputs())) {
		t.Fatal("identical rebuild must not be stale")
	}

	changed := demoInputs()
	changed.Voice = "koto"
	if !d.Stale(BuildSessionConfig(changed)) {
		t.Fatal("changed voice must surface as stale")
	}

	d.Clear()
	if d.Stale(BuildSessionConfig(changed)) {
		t.Fatal("cleared detector must not report stale")
	}
}
