//go:build headless

// audio_backend_headless.go - Audio backend selection for headless builds

package main

// NewAudioOutput in headless builds ignores the requested backend and
// returns the no-op output, so CI never needs a soundcard or cgo.
func NewAudioOutput(backend int, sampleRate int, engine *FMEngine) (AudioOutput, error) {
	return NewHeadlessOutput(), nil
}
