// audio_output.go - Audio backend abstraction and backend ids

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
	"fmt"
	"sync"
)

// AudioOutput is the seam between the engine and whatever pulls samples in
// real time. Backends call FMEngine.GenerateSample from their own clock;
// the engine never pushes.
type AudioOutput interface {
	Start() error
	Stop() error
	Close() error
	IsStarted() bool
}

const (
	AUDIO_BACKEND_NONE = iota // no output; offline render and tests
	AUDIO_BACKEND_OTO
	AUDIO_BACKEND_PORTAUDIO
	AUDIO_BACKEND_ALSA
	AUDIO_BACKEND_HEADLESS
)

// parseBackend maps the CLI flag spelling to a backend id.
func parseBackend(name string) (int, error) {
	switch name {
	case "oto":
		return AUDIO_BACKEND_OTO, nil
	case "portaudio":
		return AUDIO_BACKEND_PORTAUDIO, nil
	case "alsa":
		return AUDIO_BACKEND_ALSA, nil
	case "headless":
		return AUDIO_BACKEND_HEADLESS, nil
	case "none":
		return AUDIO_BACKEND_NONE, nil
	}
	return 0, fmt.Errorf("unknown audio backend %q (oto, portaudio, alsa, headless, none)", name)
}

// HeadlessOutput satisfies AudioOutput without touching any audio device.
// Nothing pulls the engine, which is exactly what CI wants.
type HeadlessOutput struct {
	mutex   sync.Mutex
	started bool
}

func NewHeadlessOutput() *HeadlessOutput {
	return &HeadlessOutput{}
}

func (h *HeadlessOutput) Start() error {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.started = true
	return nil
}

func (h *HeadlessOutput) Stop() error {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.started = false
	return nil
}

func (h *HeadlessOutput) Close() error {
	return h.Stop()
}

func (h *HeadlessOutput) IsStarted() bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return h.started
}
