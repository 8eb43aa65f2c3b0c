package live

import (
	"log/slog"
	"sync"

	"github.com/voxa-ai/voxa/pkg/audio"
)

// DefaultFrameSize is the capture frame length in samples. At 16 kHz one
// frame covers ~256 ms.
const DefaultFrameSize = 4096

// MicSource owns exclusive access to the OS microphone. Start begins
// delivery of raw sample blocks; implementations must return an error of
// type core.ErrMicPermission when the OS denies microphone access, so the
// controller can surface a specific, non-retryable message. Stop must
// release the device handle; leaking it across reconnects keeps the device
// locked.
type MicSource interface {
	Start(onData func(samples []float32)) error
	Stop() error
}

// CapturePipeline assembles microphone data into fixed-size frames, encodes
// them, and hands them to the session's send primitive. Frames produced
// while the session is not active are dropped, not queued.
type CapturePipeline struct {
	mic       MicSource
	frameSize int
	logger    *slog.Logger

	mu      sync.Mutex
	started bool
	pending []float32
	active  func() bool
	send    func(audio.Chunk) error
}

// NewCapturePipeline wraps a microphone source. frameSize <= 0 selects
// DefaultFrameSize.
func NewCapturePipeline(mic MicSource, frameSize int, logger *slog.Logger) *CapturePipeline {
	if frameSize <= 0 {
		frameSize = DefaultFrameSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CapturePipeline{
		mic:       mic,
		frameSize: frameSize,
		logger:    logger,
	}
}

// Start acquires the microphone and begins streaming. active gates sending
// per frame; send forwards one encoded chunk. Start fails with the mic
// source's permission error when access is denied.
func (p *CapturePipeline) Start(active func() bool, send func(audio.Chunk) error) error {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return nil
	}
	p.started = true
	p.pending = p.pending[:0]
	p.active = active
	p.send = send
	p.mu.Unlock()

	if err := p.mic.Start(p.onData); err != nil {
		p.mu.Lock()
		p.started = false
		p.mu.Unlock()
		return err
	}
	return nil
}

// Stop releases the microphone. Idempotent; stopping an unstarted pipeline
// is a no-op.
func (p *CapturePipeline) Stop() error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return nil
	}
	p.started = false
	p.pending = nil
	p.mu.Unlock()

	return p.mic.Stop()
}

// Started reports whether the pipeline currently owns the microphone.
func (p *CapturePipeline) Started() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.started
}

func (p *CapturePipeline) onData(samples []float32) {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.pending = append(p.pending, samples...)

	var frames [][]float32
	for len(p.pending) >= p.frameSize {
		frame := make([]float32, p.frameSize)
		copy(frame, p.pending[:p.frameSize])
		p.pending = p.pending[p.frameSize:]
		frames = append(frames, frame)
	}
	active := p.active
	send := p.send
	p.mu.Unlock()

	for _, frame := range frames {
		if active != nil && !active() {
			continue
		}
		if send == nil {
			continue
		}
		if err := send(audio.Encode(frame)); err != nil {
			// Fire-and-forget: a transiently failing send drops the chunk.
			p.logger.Debug("capture frame dropped", "error", err)
		}
	}
}
