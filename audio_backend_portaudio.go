//go:build !headless

// audio_backend_portaudio.go - PortAudio audio output implementation

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

	"github.com/gordonklaus/portaudio"
)

const PORTAUDIO_FRAMES_PER_BUFFER = 1024

// PortAudioPlayer renders from PortAudio's stream callback, which runs on
// PortAudio's own high-priority thread.
type PortAudioPlayer struct {
	stream  *portaudio.Stream
	engine  *FMEngine
	started bool
	mutex   sync.Mutex
}

func NewPortAudioPlayer(sampleRate int, engine *FMEngine) (*PortAudioPlayer, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}

	pp := &PortAudioPlayer{engine: engine}
	stream, err := portaudio.OpenDefaultStream(
		0, 1,
		float64(sampleRate),
		PORTAUDIO_FRAMES_PER_BUFFER,
		func(out []float32) {
			pp.engine.GenerateBlock(out)
		},
	)
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}
	pp.stream = stream
	return pp, nil
}

func (pp *PortAudioPlayer) Start() error {
	pp.mutex.Lock()
	defer pp.mutex.Unlock()

	if pp.stream == nil {
		return errors.New("portaudio stream closed")
	}
	if pp.started {
		return nil
	}
	if err := pp.stream.Start(); err != nil {
		return err
	}
	pp.started = true
	return nil
}

func (pp *PortAudioPlayer) Stop() error {
	pp.mutex.Lock()
	defer pp.mutex.Unlock()

	if !pp.started || pp.stream == nil {
		return nil
	}
	if err := pp.stream.Stop(); err != nil {
		return err
	}
	pp.started = false
	return nil
}

func (pp *PortAudioPlayer) Close() error {
	if err := pp.Stop(); err != nil {
		return err
	}

	pp.mutex.Lock()
	defer pp.mutex.Unlock()

	if pp.stream != nil {
		if err := pp.stream.Close(); err != nil {
			return err
		}
		pp.stream = nil
	}
	return portaudio.Terminate()
}

func (pp *PortAudioPlayer) IsStarted() bool {
	pp.mutex.Lock()
	defer pp.mutex.Unlock()
	return pp.started
}
