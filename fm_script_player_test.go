// fm_script_player_test.go - Tests for the Lua song-script player

package main

import (
	"testing"
	"time"
)

func waitForStopped(t *testing.T, player *ScriptPlayer) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for player.IsPlaying() {
		if time.Now().After(deadline) {
			t.Fatal("script did not finish")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestScriptPlayerRejectsBadSyntax(t *testing.T) {
	engine := newTestEngine(t, "")
	player := NewScriptPlayer(engine)

	if err := player.LoadData([]byte("this is not lua ((")); err == nil {
		t.Error("LoadData accepted invalid Lua")
	}
	if err := player.LoadData([]byte(`noteOn(60)`)); err != nil {
		t.Errorf("LoadData rejected valid Lua: %v", err)
	}
}

func TestScriptPlayerPlayWithoutScript(t *testing.T) {
	engine := newTestEngine(t, "")
	player := NewScriptPlayer(engine)

	if err := player.Play(); err == nil {
		t.Error("Play without a loaded script did not error")
	}
}

func TestScriptPlayerRunsScript(t *testing.T) {
	engine := newTestEngine(t, "")
	player := NewScriptPlayer(engine)

	script := `
		patch("epiano")
		volume(0.5)
		noteOn(60)
		wait(0.01)
		noteOff(60)
	`
	if err := player.LoadData([]byte(script)); err != nil {
		t.Fatalf("LoadData failed: %v", err)
	}
	if err := player.Play(); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if err := player.Play(); err != nil {
		t.Errorf("second Play while playing errored: %v", err)
	}

	pumpUntil(t, engine, "the note to sound", func() bool {
		return engine.Status().ActiveVoices == 1
	})
	if got := engine.Status().Patch; got != "epiano" {
		t.Errorf("script selected patch %q, want %q", got, "epiano")
	}
	if got := engine.Status().MasterVolume; got != 0.5 {
		t.Errorf("script set volume %v, want 0.5", got)
	}

	waitForStopped(t, player)
	pumpUntil(t, engine, "voices to release", func() bool {
		return engine.Status().ActiveVoices == 0
	})
}

func TestScriptPlayerStopCancelsWait(t *testing.T) {
	engine := newTestEngine(t, "")
	player := NewScriptPlayer(engine)

	script := `
		noteOn(60)
		wait(60)
		noteOn(64)
	`
	if err := player.LoadData([]byte(script)); err != nil {
		t.Fatalf("LoadData failed: %v", err)
	}
	if err := player.Play(); err != nil {
		t.Fatalf("Play failed: %v", err)
	}

	pumpUntil(t, engine, "the note to sound", func() bool {
		return engine.Status().ActiveVoices == 1
	})

	player.Stop()
	if player.IsPlaying() {
		t.Error("player still playing after Stop")
	}
	player.Stop() // second Stop is a no-op

	// Cancellation aborts the wait and releases everything held
	pumpUntil(t, engine, "voices to release", func() bool {
		return engine.Status().ActiveVoices == 0
	})
}

func TestScriptPlayerChords(t *testing.T) {
	engine := newTestEngine(t, "")
	player := NewScriptPlayer(engine)

	script := `
		chordOn({60, 64, 67})
		wait(0.01)
		chordOff({60, 64, 67})
	`
	if err := player.LoadData([]byte(script)); err != nil {
		t.Fatalf("LoadData failed: %v", err)
	}
	if err := player.Play(); err != nil {
		t.Fatalf("Play failed: %v", err)
	}

	pumpUntil(t, engine, "the chord to sound", func() bool {
		return engine.Status().ActiveVoices == 3
	})

	waitForStopped(t, player)
	pumpUntil(t, engine, "voices to release", func() bool {
		return engine.Status().ActiveVoices == 0
	})
}

func TestScriptPlayerTempoBeats(t *testing.T) {
	engine := newTestEngine(t, "")
	player := NewScriptPlayer(engine)

	// One beat at 6000 BPM is ten milliseconds
	script := `
		tempo(6000)
		noteOn(60)
		beats(1)
		noteOff(60)
	`
	if err := player.LoadData([]byte(script)); err != nil {
		t.Fatalf("LoadData failed: %v", err)
	}
	if err := player.Play(); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	waitForStopped(t, player)
}

func TestScriptPlayerAlgorithmSwitch(t *testing.T) {
	engine := newTestEngine(t, "")
	player := NewScriptPlayer(engine)

	script := `
		algorithm(3, 0)
		noteOn(60)
		wait(0.01)
		noteOff(60)
	`
	if err := player.LoadData([]byte(script)); err != nil {
		t.Fatalf("LoadData failed: %v", err)
	}
	if err := player.Play(); err != nil {
		t.Fatalf("Play failed: %v", err)
	}

	pumpUntil(t, engine, "the algorithm switch to land", func() bool {
		return engine.Status().Algorithm == 3
	})
	waitForStopped(t, player)
}

func TestScriptPlayerBadOperatorAbortsScript(t *testing.T) {
	engine := newTestEngine(t, "")
	player := NewScriptPlayer(engine)

	// Operator indices are 1-based; 5 is out of range and raises before
	// the note ever fires
	script := `
		opLevel(5, 1.0)
		noteOn(60)
		wait(60)
	`
	if err := player.LoadData([]byte(script)); err != nil {
		t.Fatalf("LoadData failed: %v", err)
	}
	if err := player.Play(); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	waitForStopped(t, player)

	buf := make([]float32, CONTROL_BLOCK_SAMPLES)
	engine.GenerateBlock(buf)
	if got := engine.Status().ActiveVoices; got != 0 {
		t.Errorf("aborted script still started %d voices", got)
	}
}
