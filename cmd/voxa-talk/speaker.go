package main

import (
	"fmt"
	"sync"

	"github.com/ebitengine/oto/v3"

	"github.com/voxa-ai/voxa/pkg/audio"
	"github.com/voxa-ai/voxa/pkg/live"
)

// queuedSource is one scheduled buffer converted to S16 bytes, consumed by
// the oto pull callback.
type queuedSource struct {
	src  *live.Source
	data []byte
}

// speaker implements live.Output over an oto player. The scheduler hands
// sources over in start order and guarantees they chain without gaps, so
// the speaker plays its queue back to back; honoring StartAt reduces to
// preserving that order.
type speaker struct {
	otoCtx *oto.Context

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []*queuedSource
	player  *oto.Player
	playing bool
	closed  bool
}

func newSpeaker() (*speaker, error) {
	// ~100ms buffer at 24kHz mono 16-bit keeps barge-in latency low.
	otoCtx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   audio.PlaybackSampleRate,
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   4800,
	})
	if err != nil {
		return nil, fmt.Errorf("init speaker: %w", err)
	}
	<-ready

	s := &speaker{otoCtx: otoCtx}
	s.cond = sync.NewCond(&s.mu)
	return s, nil
}

func (s *speaker) Play(src *live.Source) {
	data := make([]byte, len(src.Samples)*audio.BytesPerSample)
	for i, sample := range src.Samples {
		v := float64(sample) * 32768.0
		if v > 32767 {
			v = 32767
		}
		if v < -32768 {
			v = -32768
		}
		p := int16(v)
		data[2*i] = byte(p)
		data[2*i+1] = byte(p >> 8)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		src.Finish()
		return
	}
	s.queue = append(s.queue, &queuedSource{src: src, data: data})
	if !s.playing {
		s.playing = true
		s.player = s.otoCtx.NewPlayer(s)
		s.player.Play()
	}
	s.mu.Unlock()
	s.cond.Signal()
}

func (s *speaker) Stop(src *live.Source) {
	s.mu.Lock()
	kept := s.queue[:0]
	for _, q := range s.queue {
		if q.src != src {
			kept = append(kept, q)
		}
	}
	s.queue = kept
	s.mu.Unlock()
	// The scheduler finishes stopped sources itself.
}

// Read implements io.Reader for the oto player, pulling queued PCM in
// scheduled order. Exhausted sources are finished outside the lock.
func (s *speaker) Read(p []byte) (int, error) {
	var finished []*live.Source

	s.mu.Lock()
	for len(s.queue) == 0 && !s.closed {
		s.cond.Wait()
	}
	if s.closed && len(s.queue) == 0 {
		s.mu.Unlock()
		for i := range p {
			p[i] = 0
		}
		return len(p), nil
	}

	n := 0
	for n < len(p) && len(s.queue) > 0 {
		head := s.queue[0]
		copied := copy(p[n:], head.data)
		head.data = head.data[copied:]
		n += copied
		if len(head.data) == 0 {
			finished = append(finished, head.src)
			s.queue = s.queue[1:]
		}
	}
	s.mu.Unlock()

	for _, src := range finished {
		src.Finish()
	}
	return n, nil
}

// Close drains the player and releases it.
func (s *speaker) Close() {
	s.mu.Lock()
	s.closed = true
	s.queue = nil
	player := s.player
	s.player = nil
	s.mu.Unlock()
	s.cond.Broadcast()

	if player != nil {
		player.Close()
	}
}
