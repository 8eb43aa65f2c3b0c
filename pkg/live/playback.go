package live

import (
	"log/slog"
	"sync"
	"time"

	"github.com/voxa-ai/voxa/pkg/audio"
)

// Clock is the playback output clock. It is owned explicitly and passed in
// so multiple controllers (and tests) do not interfere through a shared
// process-wide audio context.
type Clock interface {
	Now() time.Duration
}

// WallClock is a monotonic Clock anchored at its creation time.
type WallClock struct {
	start time.Time
}

// NewWallClock returns a Clock backed by the monotonic wall clock.
func NewWallClock() *WallClock {
	return &WallClock{start: time.Now()}
}

func (c *WallClock) Now() time.Duration {
	return time.Since(c.start)
}

// Output begins and stops playback of scheduled sources. Play must honor
// src.StartAt relative to the scheduler's clock and call src.Finish exactly
// once when the buffer has fully played (or was stopped).
type Output interface {
	Play(src *Source)
	Stop(src *Source)
}

// Source is one decoded audio buffer together with its absolute scheduled
// start time. It lives from scheduling until its finish callback fires and
// is owned exclusively by the Scheduler.
type Source struct {
	ID       uint64
	Samples  []float32
	StartAt  time.Duration
	Duration time.Duration

	mu       sync.Mutex
	stopped  bool
	finished bool
	onEnded  func(*Source)
}

// Stopped reports whether the source was cut off by an interruption.
func (s *Source) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

func (s *Source) markStopped() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
}

// Finish is called by the Output when playback of this source ends.
// Safe to call more than once; only the first call has effect.
func (s *Source) Finish() {
	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return
	}
	s.finished = true
	ended := s.onEnded
	s.mu.Unlock()
	if ended != nil {
		ended(s)
	}
}

// VoiceState is the externally observable speaking/listening state.
type VoiceState int

const (
	StateListening VoiceState = iota
	StateSpeaking
)

func (s VoiceState) String() string {
	switch s {
	case StateListening:
		return "listening"
	case StateSpeaking:
		return "speaking"
	default:
		return "unknown"
	}
}

// Scheduler maintains gapless sequential playback of decoded audio without
// a server-driven sample clock. Buffers are scheduled at
// max(clock now, end of the previous buffer), so frames chain exactly while
// the pipeline keeps up and catch up immediately after an underrun.
type Scheduler struct {
	clock      Clock
	out        Output
	sampleRate int
	logger     *slog.Logger

	mu       sync.Mutex
	next     time.Duration
	live     map[uint64]*Source
	nextID   uint64
	speaking bool
	onState  func(VoiceState)
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithSchedulerLogger sets the scheduler's logger.
func WithSchedulerLogger(logger *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSampleRate overrides the playback sample rate.
func WithSampleRate(rate int) SchedulerOption {
	return func(s *Scheduler) {
		if rate > 0 {
			s.sampleRate = rate
		}
	}
}

// NewScheduler creates a playback scheduler over the given clock and output.
func NewScheduler(clock Clock, out Output, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		clock:      clock,
		out:        out,
		sampleRate: audio.PlaybackSampleRate,
		logger:     slog.Default(),
		live:       map[uint64]*Source{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetStateListener registers the speaking/listening transition callback.
// Must be set before the first Enqueue.
func (s *Scheduler) SetStateListener(fn func(VoiceState)) {
	s.mu.Lock()
	s.onState = fn
	s.mu.Unlock()
}

// Enqueue schedules one decoded buffer for gapless playback. Empty buffers
// are ignored. Returns the scheduled source.
func (s *Scheduler) Enqueue(samples []float32) *Source {
	if len(samples) == 0 {
		return nil
	}
	dur := audio.Duration(len(samples), s.sampleRate)

	s.mu.Lock()
	start := s.clock.Now()
	if s.next > start {
		start = s.next
	}
	s.next = start + dur

	s.nextID++
	src := &Source{
		ID:       s.nextID,
		Samples:  samples,
		StartAt:  start,
		Duration: dur,
		onEnded:  s.sourceEnded,
	}
	s.live[src.ID] = src

	var notify func(VoiceState)
	if !s.speaking {
		s.speaking = true
		notify = s.onState
	}
	s.mu.Unlock()

	if notify != nil {
		notify(StateSpeaking)
	}
	s.out.Play(src)
	return src
}

// sourceEnded removes a finished source from the live set. It is invoked
// from the output's completion path and must never panic.
func (s *Scheduler) sourceEnded(src *Source) {
	s.mu.Lock()
	delete(s.live, src.ID)
	var notify func(VoiceState)
	if len(s.live) == 0 && s.speaking {
		s.speaking = false
		notify = s.onState
	}
	s.mu.Unlock()

	if notify != nil {
		notify(StateListening)
	}
}

// Interrupt applies the barge-in protocol: stop every scheduled source,
// clear the live set, and rewind the next start time to the clock's current
// position. Callers must invoke this before scheduling any audio from the
// new turn.
func (s *Scheduler) Interrupt() {
	s.mu.Lock()
	stopped := make([]*Source, 0, len(s.live))
	for _, src := range s.live {
		src.markStopped()
		stopped = append(stopped, src)
	}
	s.live = map[uint64]*Source{}
	s.next = s.clock.Now()
	var notify func(VoiceState)
	if s.speaking {
		s.speaking = false
		notify = s.onState
	}
	s.mu.Unlock()

	for _, src := range stopped {
		s.out.Stop(src)
		src.Finish()
	}
	if notify != nil {
		notify(StateListening)
	}
	if len(stopped) > 0 {
		s.logger.Debug("playback interrupted", "stopped_sources", len(stopped))
	}
}

// Reset tears down playback on disconnect. Same effect as Interrupt.
func (s *Scheduler) Reset() {
	s.Interrupt()
}

// NextStart returns the next scheduled start time.
func (s *Scheduler) NextStart() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}

// Active returns the number of scheduled-but-unfinished sources.
func (s *Scheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}
