// audio_output_test.go - Tests for backend selection and the headless output

package main

import (
	"testing"
)

func TestParseBackend(t *testing.T) {
	cases := []struct {
		name string
		want int
	}{
		{"none", AUDIO_BACKEND_NONE},
		{"oto", AUDIO_BACKEND_OTO},
		{"portaudio", AUDIO_BACKEND_PORTAUDIO},
		{"alsa", AUDIO_BACKEND_ALSA},
		{"headless", AUDIO_BACKEND_HEADLESS},
	}
	for _, tc := range cases {
		got, err := parseBackend(tc.name)
		if err != nil {
			t.Errorf("parseBackend(%q) failed: %v", tc.name, err)
			continue
		}
		if got != tc.want {
			t.Errorf("parseBackend(%q) = %d, want %d", tc.name, got, tc.want)
		}
	}

	for _, bad := range []string{"", "coreaudio", "OTO"} {
		if _, err := parseBackend(bad); err == nil {
			t.Errorf("parseBackend(%q) did not error", bad)
		}
	}
}

func TestHeadlessOutputLifecycle(t *testing.T) {
	out := NewHeadlessOutput()

	if out.IsStarted() {
		t.Error("fresh output reports started")
	}
	if err := out.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !out.IsStarted() {
		t.Error("output not started after Start")
	}
	if err := out.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if out.IsStarted() {
		t.Error("output still started after Stop")
	}
	if err := out.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}

func TestNewAudioOutputHeadless(t *testing.T) {
	engine := newTestEngine(t, "")

	out, err := NewAudioOutput(AUDIO_BACKEND_HEADLESS, SAMPLE_RATE, engine)
	if err != nil {
		t.Fatalf("NewAudioOutput failed: %v", err)
	}
	if _, ok := out.(*HeadlessOutput); !ok {
		t.Errorf("backend %T, want *HeadlessOutput", out)
	}
	if err := out.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

// TestEngineWithHeadlessBackend drives the full Start/Stop path that the
// backend-less engine tests skip.
func TestEngineWithHeadlessBackend(t *testing.T) {
	cfg := DefaultEngineConfig()
	cfg.Backend = AUDIO_BACKEND_HEADLESS
	engine, err := NewFMEngine(cfg)
	if err != nil {
		t.Fatalf("NewFMEngine failed: %v", err)
	}

	if engine.IsStarted() {
		t.Error("engine reports started before Start")
	}
	if err := engine.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !engine.IsStarted() {
		t.Error("engine not started after Start")
	}
	if !engine.Status().Started {
		t.Error("status does not report started")
	}
	if err := engine.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if engine.IsStarted() {
		t.Error("engine still started after Stop")
	}
	if err := engine.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}
