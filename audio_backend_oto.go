//go:build !headless

// audio_backend_oto.go - Oto v3 audio output implementation

/*
██████╗  █████╗ ██████╗ ████████╗██████╗  █████╗  ██████╗██╗  ██╗
██╔══██╗██╔══██╗██╔══██╗╚══██╔══╝██╔══██╗██╔══██╗██╔════╝██║ ██╔╝
██████╔╝███████║██║  ██║   ██║   ██████╔╝███████║██║     █████╔╝
██╔═══╝ ██╔══██║██║  ██║   ██║   ██╔══██╗██╔══██║██║     ██╔═██╗
██║     ██║  ██║██████╔╝   ██║   ██║  ██║██║  ██║╚██████╗██║  ██╗
╚═╝     ╚═╝  ╚═╝╚═════╝    ╚═╝   ╚═╝  ╚═╝╚═╝  ╚═╝ ╚═════╝╚═╝  ╚═╝

(c) 2024 - 2026 Daniel Tibaquira
https://github.com/danieltibaquira/padtrack-sub000
License: GPLv3 or later
*/

package main

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/ebitengine/oto/v3"
)

type OtoPlayer struct {
	ctx       *oto.Context
	player    *oto.Player
	engine    atomic.Pointer[FMEngine] // Atomic for lock-free Read()
	sampleBuf []float32                // Pre-allocated sample buffer
	started   bool
	mutex     sync.Mutex // Only for control operations
}

func NewOtoPlayer(sampleRate int, engine *FMEngine) (*OtoPlayer, error) {
	opts := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
		BufferSize:   10 * time.Millisecond,
	}

	ctx, ready, err := oto.NewContext(opts)
	if err != nil {
		return nil, err
	}
	<-ready

	op := &OtoPlayer{
		ctx: ctx,
		// Pre-allocate for typical oto read sizes (4096 bytes = 1024 float32 samples)
		sampleBuf: make([]float32, 4096),
	}
	op.engine.Store(engine)
	op.player = ctx.NewPlayer(op)
	return op, nil
}

// Read is oto's pull callback. It runs on oto's audio goroutine, so the
// engine pointer is loaded atomically and nothing here takes a lock.
func (op *OtoPlayer) Read(p []byte) (n int, err error) {
	engine := op.engine.Load()
	if engine == nil {
		for i := range p {
			p[i] = 0
		}
		return len(p), nil
	}

	numSamples := len(p) / 4
	if numSamples == 0 {
		return 0, nil
	}
	if len(op.sampleBuf) < numSamples {
		op.sampleBuf = make([]float32, numSamples)
	}
	samples := op.sampleBuf[:numSamples]

	engine.GenerateBlock(samples)

	n = numSamples * 4
	copy(p[:n], (*[1 << 30]byte)(unsafe.Pointer(&samples[0]))[:n])
	return n, nil
}

func (op *OtoPlayer) Start() error {
	op.mutex.Lock()
	defer op.mutex.Unlock()

	if op.player == nil {
		return errors.New("oto player closed")
	}
	if !op.started {
		op.player.Play()
		op.started = true
	}
	return nil
}

func (op *OtoPlayer) Stop() error {
	op.mutex.Lock()
	defer op.mutex.Unlock()

	if op.started && op.player != nil {
		op.player.Pause()
		op.started = false
	}
	return nil
}

func (op *OtoPlayer) Close() error {
	op.mutex.Lock()
	defer op.mutex.Unlock()

	op.started = false
	if op.player != nil {
		err := op.player.Close()
		op.player = nil
		return err
	}
	return nil
}

func (op *OtoPlayer) IsStarted() bool {
	op.mutex.Lock()
	defer op.mutex.Unlock()
	return op.started
}
