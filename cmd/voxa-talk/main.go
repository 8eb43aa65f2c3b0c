// voxa-talk is a terminal shell around the live session controller: real
// microphone and speaker, transcripts on stdout, slash commands for session
// control.
//
// Usage:
//
//	voxa-talk [-url wss://...] [-voice aurora] [-quota 3600] [-metrics :9090] [-dump out.wav]
//
// The API key comes from VOXA_API_KEY (a .env file is honored) or an
// interactive hidden prompt.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/term"

	"github.com/voxa-ai/voxa/pkg/assistant"
	"github.com/voxa-ai/voxa/pkg/audio"
	"github.com/voxa-ai/voxa/pkg/core"
	"github.com/voxa-ai/voxa/pkg/live"
	"github.com/voxa-ai/voxa/pkg/store"
)

func main() {
	urlFlag := flag.String("url", "wss://live.voxa.ai/v1/session", "live session endpoint")
	voice := flag.String("voice", "aurora", "assistant voice")
	planName := flag.String("plan", "starter", "plan name used in quota messages")
	quota := flag.Int("quota", 0, "monthly quota in seconds, 0 for unlimited")
	metricsAddr := flag.String("metrics", "", "address to serve /metrics on, empty to disable")
	dumpPath := flag.String("dump", "", "write received assistant audio to this WAV file on exit")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err == nil {
		logger.Debug("loaded .env")
	}

	apiKey := os.Getenv("VOXA_API_KEY")
	if apiKey == "" {
		var err error
		apiKey, err = promptAPIKey()
		if err != nil {
			logger.Error("no API key available", "error", err)
			os.Exit(1)
		}
	}

	if err := run(logger, *urlFlag, apiKey, *voice, *planName, *quota, *metricsAddr, *dumpPath); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, url, apiKey, voice, planName string, quota int, metricsAddr, dumpPath string) error {
	ctx := context.Background()

	settings, err := openSettings(ctx, logger)
	if err != nil {
		return err
	}
	governor := live.NewUsageGovernor(settings, live.Plan{Name: planName, QuotaSeconds: quota},
		live.WithUsageLogger(logger))

	var metrics *live.Metrics
	if metricsAddr != "" {
		registry := prometheus.NewRegistry()
		metrics = live.NewMetrics(registry)
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
			if err := http.ListenAndServe(metricsAddr, mux); err != nil {
				logger.Error("metrics server stopped", "error", err)
			}
		}()
	}

	mic, err := newMicSource()
	if err != nil {
		return err
	}
	defer mic.Close()

	spk, err := newSpeaker()
	if err != nil {
		return err
	}
	defer spk.Close()

	var out live.Output = spk
	var tap *tapOutput
	if dumpPath != "" {
		tap = &tapOutput{inner: spk}
		out = tap
	}

	registry := live.NewRegistry()
	handlers := assistant.NewHandlers(&assistant.LogEffects{Logger: logger}, fetcherOptions(logger)...)
	handlers.RegisterAll(registry)
	defer handlers.Timers.Shutdown()

	inputs := live.ConfigInputs{
		Persona:  "You are Voxa, a concise, friendly voice assistant.",
		Protocol: "Answer in one or two spoken sentences. Use tools for device actions.",
		Greeting: "Hi! What can I do for you?",
		Voice:    voice,
		Tools:    assistant.Manifest(),
	}
	var inputsLock sync.Mutex

	transport := &live.WebSocketTransport{URL: url, APIKey: apiKey}
	controller, err := live.NewController(live.ControllerConfig{
		Transport: transport,
		Scheduler: live.NewScheduler(live.NewWallClock(), out, live.WithSchedulerLogger(logger)),
		Capture:   live.NewCapturePipeline(mic, live.DefaultFrameSize, logger),
		Dispatcher: live.NewDispatcher(registry,
			live.WithDispatcherLogger(logger)),
		Usage: governor,
		Config: func() live.ConfigInputs {
			inputsLock.Lock()
			defer inputsLock.Unlock()
			return inputs
		},
		Callbacks: live.Callbacks{
			OnStateChange: func(s live.SessionState) {
				fmt.Printf("\r[session: %s]\n", s)
			},
			OnVoiceState: func(s live.VoiceState) {
				fmt.Printf("\r[%s]\n", s)
			},
			OnTranscript: func(speaker, text string, final bool) {
				if final {
					fmt.Printf("%s: %s\n", speaker, text)
				}
			},
			OnUsageExceeded: func() {
				fmt.Println("Monthly voice minutes are used up. Upgrade your plan to keep talking.")
			},
			OnConfigStale: func() {
				fmt.Println("[settings changed; /apply to reconnect with them]")
			},
			OnError: func(err error) {
				if core.TypeOf(err) == core.ErrAuthentication {
					fmt.Println("[credential rejected; /key to enter a new one]")
					return
				}
				fmt.Printf("[error: %v]\n", err)
			},
		},
	}, live.WithControllerLogger(logger), live.WithControllerMetrics(metrics))
	if err != nil {
		return err
	}
	defer controller.Disconnect()

	if dumpPath != "" {
		defer func() {
			if err := tap.dump(dumpPath); err != nil {
				logger.Error("audio dump failed", "path", dumpPath, "error", err)
			}
		}()
	}

	fmt.Println("voxa-talk: /connect to start, /help for commands")
	return commandLoop(ctx, controller, transport, governor, &inputsLock, &inputs)
}

func commandLoop(ctx context.Context, controller *live.Controller, transport *live.WebSocketTransport, governor *live.UsageGovernor, inputsLock *sync.Mutex, inputs *live.ConfigInputs) error {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		cmd, arg, _ := strings.Cut(line, " ")
		switch cmd {
		case "/connect":
			if err := controller.Connect(ctx); err != nil {
				fmt.Printf("connect failed: %v\n", err)
			}
		case "/disconnect":
			if err := controller.Disconnect(); err != nil {
				fmt.Printf("disconnect: %v\n", err)
			}
		case "/status":
			fmt.Printf("state=%s session=%s", controller.State(), controller.SessionID())
			if remaining := governor.Remaining(ctx); remaining >= 0 {
				fmt.Printf(" quota_remaining=%ds", remaining)
			}
			fmt.Println()
		case "/voice":
			if arg == "" {
				fmt.Println("usage: /voice <name>")
				continue
			}
			inputsLock.Lock()
			inputs.Voice = arg
			inputsLock.Unlock()
			if !controller.NotifyConfigChanged() {
				fmt.Println("[voice unchanged]")
			}
		case "/apply":
			if err := controller.ApplyConfigUpdate(ctx); err != nil {
				fmt.Printf("apply failed: %v\n", err)
			}
		case "/key":
			key, err := promptAPIKey()
			if err != nil {
				fmt.Printf("key prompt failed: %v\n", err)
				continue
			}
			transport.APIKey = key
			fmt.Println("[key updated; /connect to retry]")
		case "/help":
			fmt.Println("/connect /disconnect /status /voice <name> /apply /key /quit")
		case "/quit", "/exit":
			return nil
		default:
			fmt.Printf("unknown command %q, try /help\n", cmd)
		}
	}
	return scanner.Err()
}

// openSettings uses Postgres when VOXA_DATABASE_URL is set, otherwise an
// in-memory store (usage then resets on restart).
func openSettings(ctx context.Context, logger *slog.Logger) (store.Settings, error) {
	dsn := os.Getenv("VOXA_DATABASE_URL")
	if dsn == "" {
		logger.Debug("no database configured, using in-memory settings")
		return store.NewMemory(), nil
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	pg := store.NewPostgres(pool)
	if err := pg.Migrate(ctx); err != nil {
		return nil, err
	}
	return pg, nil
}

// fetcherOptions wires the REST backends that are configured via env.
func fetcherOptions(logger *slog.Logger) []assistant.HandlersOption {
	var opts []assistant.HandlersOption
	if base := os.Getenv("VOXA_WEATHER_URL"); base != "" {
		opts = append(opts, assistant.WithWeather(&assistant.RESTWeather{
			Client: assistant.RESTClient{BaseURL: base, APIKey: os.Getenv("VOXA_WEATHER_KEY")},
		}))
	}
	if base := os.Getenv("VOXA_NEWS_URL"); base != "" {
		opts = append(opts, assistant.WithNews(&assistant.RESTNews{
			Client: assistant.RESTClient{BaseURL: base, APIKey: os.Getenv("VOXA_NEWS_KEY")},
		}))
	}
	if base := os.Getenv("VOXA_VIDEO_URL"); base != "" {
		opts = append(opts, assistant.WithVideo(&assistant.RESTVideoFinder{
			Client: assistant.RESTClient{BaseURL: base, APIKey: os.Getenv("VOXA_VIDEO_KEY")},
		}))
	}
	if len(opts) == 0 {
		logger.Debug("no fetcher backends configured; info tools will report unavailable")
	}
	return opts
}

func promptAPIKey() (string, error) {
	fmt.Fprint(os.Stderr, "API key: ")
	key, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	if len(key) == 0 {
		return "", fmt.Errorf("empty key")
	}
	return strings.TrimSpace(string(key)), nil
}

// tapOutput forwards to the real speaker while keeping a copy of every
// played sample for the --dump WAV.
type tapOutput struct {
	inner live.Output

	mu      sync.Mutex
	samples []float32
}

func (t *tapOutput) Play(src *live.Source) {
	t.mu.Lock()
	t.samples = append(t.samples, src.Samples...)
	t.mu.Unlock()
	t.inner.Play(src)
}

func (t *tapOutput) Stop(src *live.Source) {
	t.inner.Stop(src)
}

func (t *tapOutput) dump(path string) error {
	t.mu.Lock()
	samples := t.samples
	t.mu.Unlock()
	if len(samples) == 0 {
		return nil
	}
	raw := make([]byte, len(samples)*audio.BytesPerSample)
	for i, sample := range samples {
		v := float64(sample) * 32768.0
		if v > 32767 {
			v = 32767
		}
		if v < -32768 {
			v = -32768
		}
		s := int16(v)
		raw[2*i] = byte(s)
		raw[2*i+1] = byte(s >> 8)
	}
	return os.WriteFile(path, audio.PCMToWAVDefault(raw), 0o644)
}
