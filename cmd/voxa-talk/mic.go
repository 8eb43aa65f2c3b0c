package main

import (
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/voxa-ai/voxa/pkg/audio"
	"github.com/voxa-ai/voxa/pkg/core"
)

// micSource adapts a malgo capture device to live.MicSource: 16 kHz mono
// S16 blocks converted to float32 on delivery.
type micSource struct {
	ctx *malgo.AllocatedContext

	mu     sync.Mutex
	device *malgo.Device
}

func newMicSource() (*micSource, error) {
	cfg := malgo.ContextConfig{}
	cfg.ThreadPriority = malgo.ThreadPriorityRealtime
	ctx, err := malgo.InitContext(nil, cfg, nil)
	if err != nil {
		return nil, fmt.Errorf("init audio context: %w", err)
	}
	return &micSource{ctx: ctx}, nil
}

func (m *micSource) Start(onData func(samples []float32)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.device != nil {
		return nil
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = 1
	deviceConfig.SampleRate = uint32(audio.CaptureSampleRate)
	deviceConfig.PeriodSizeInMilliseconds = 20

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			onData(s16leToFloat32(input))
		},
	}

	device, err := malgo.InitDevice(m.ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return core.NewMicPermissionError(fmt.Sprintf("microphone unavailable: %v", err))
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return core.NewMicPermissionError(fmt.Sprintf("microphone start failed: %v", err))
	}
	m.device = device
	return nil
}

func (m *micSource) Stop() error {
	m.mu.Lock()
	device := m.device
	m.device = nil
	m.mu.Unlock()
	if device == nil {
		return nil
	}
	if err := device.Stop(); err != nil {
		device.Uninit()
		return err
	}
	device.Uninit()
	return nil
}

// Close releases the audio context. Call once at process exit.
func (m *micSource) Close() {
	m.Stop()
	if m.ctx != nil {
		_ = m.ctx.Uninit()
		m.ctx.Free()
	}
}

func s16leToFloat32(data []byte) []float32 {
	samples := make([]float32, len(data)/audio.BytesPerSample)
	for i := range samples {
		v := int16(data[2*i]) | int16(data[2*i+1])<<8
		samples[i] = float32(v) / 32768
	}
	return samples
}
