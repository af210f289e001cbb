//go:build !headless

// audio_backend_select.go - Audio backend selection for normal builds

package main

import "fmt"

// NewAudioOutput opens the requested audio backend and hands it the engine
// to pull samples from.
func NewAudioOutput(backend int, sampleRate int, engine *FMEngine) (AudioOutput, error) {
	switch backend {
	case AUDIO_BACKEND_OTO:
		return NewOtoPlayer(sampleRate, engine)
	case AUDIO_BACKEND_PORTAUDIO:
		return NewPortAudioPlayer(sampleRate, engine)
	case AUDIO_BACKEND_ALSA:
		return NewALSAPlayer(sampleRate, engine)
	case AUDIO_BACKEND_HEADLESS:
		return NewHeadlessOutput(), nil
	}
	return nil, fmt.Errorf("unknown audio backend id %d", backend)
}
