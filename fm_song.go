// fm_song.go - Built-in demo song player

package main

import (
	"fmt"
	"sync"
	"time"
)

// songStep is one sequencer step: optional patch/algorithm change, a chord
// held for some beats, then a rest. Notes are written in pitch notation to
// keep the table readable.
type songStep struct {
	patch     string
	algorithm int
	fadeMs    float32
	chord     []string
	velocity  float32
	hold      float64
	rest      float64
}

const demoSongBPM = 96

// demoSong shows off the engine: electric piano changes, a mid-phrase
// algorithm crossfade, a stolen-voice bass section and a bell outro.
var demoSong = []songStep{
	// ii-V-I on the epiano
	{patch: "epiano", chord: []string{"D3", "F3", "A3", "C4"}, velocity: 0.72, hold: 1.8, rest: 0.2},
	{chord: []string{"G2", "F3", "B3", "D4"}, velocity: 0.68, hold: 1.8, rest: 0.2},
	{chord: []string{"C3", "E3", "G3", "B3"}, velocity: 0.78, hold: 3.6, rest: 0.4},

	// same voicing, crossfaded into a brighter topology mid-phrase
	{algorithm: 4, fadeMs: 180, chord: []string{"A2", "E3", "A3", "C4"}, velocity: 0.7, hold: 1.8, rest: 0.2},
	{chord: []string{"F2", "F3", "A3", "C4"}, velocity: 0.66, hold: 1.8, rest: 0.2},
	{chord: []string{"G2", "G3", "B3", "D4"}, velocity: 0.74, hold: 3.6, rest: 0.4},

	// bass line; fast retriggers exercise voice stealing at low polyphony
	{patch: "solidbass", chord: []string{"C2"}, velocity: 0.9, hold: 0.45, rest: 0.05},
	{chord: []string{"C2"}, velocity: 0.7, hold: 0.45, rest: 0.05},
	{chord: []string{"G2"}, velocity: 0.85, hold: 0.45, rest: 0.05},
	{chord: []string{"Bb2"}, velocity: 0.8, hold: 0.45, rest: 0.05},
	{chord: []string{"C2"}, velocity: 0.9, hold: 0.45, rest: 0.05},
	{chord: []string{"Eb2"}, velocity: 0.75, hold: 0.45, rest: 0.05},
	{chord: []string{"F2"}, velocity: 0.85, hold: 0.45, rest: 0.05},
	{chord: []string{"G2"}, velocity: 0.88, hold: 0.9, rest: 0.1},

	// pad bed under a bell arpeggio
	{patch: "pulsepad", chord: []string{"C3", "G3", "E4"}, velocity: 0.6, hold: 7.2, rest: 0.8},
	{patch: "bell", chord: []string{"C5"}, velocity: 0.8, hold: 0.9, rest: 0.1},
	{chord: []string{"E5"}, velocity: 0.7, hold: 0.9, rest: 0.1},
	{chord: []string{"G5"}, velocity: 0.75, hold: 0.9, rest: 0.1},
	{chord: []string{"B5"}, velocity: 0.65, hold: 0.9, rest: 0.1},
	{chord: []string{"C6"}, velocity: 0.85, hold: 4.0, rest: 0.0},
}

// DemoSongPlayer sequences the compiled-in demo tune.
type DemoSongPlayer struct {
	engine *FMEngine

	mu      sync.Mutex
	playing bool
	playGen uint64
	done    chan struct{}
}

// NewDemoSongPlayer creates a player for the built-in demo song.
func NewDemoSongPlayer(engine *FMEngine) *DemoSongPlayer {
	return &DemoSongPlayer{engine: engine}
}

// Load is a no-op; the demo song is compiled in
func (p *DemoSongPlayer) Load(path string) error { return nil }

// LoadData is a no-op; the demo song is compiled in
func (p *DemoSongPlayer) LoadData(data []byte) error { return nil }

// Metadata describes the built-in song
func (p *DemoSongPlayer) Metadata() SongMetadata {
	return SongMetadata{
		Title:    "Crossfade Demo",
		Author:   "padtrack",
		Duration: p.DurationSeconds(),
	}
}

// Play starts playback
func (p *DemoSongPlayer) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.playing {
		return nil
	}
	p.playGen++
	p.done = make(chan struct{})
	p.playing = true
	go p.run(p.playGen, p.done)
	return nil
}

func (p *DemoSongPlayer) run(gen uint64, done chan struct{}) {
	beat := time.Duration(60.0 / demoSongBPM * float64(time.Second))

	sleep := func(beats float64) bool {
		if beats <= 0 {
			return true
		}
		t := time.NewTimer(time.Duration(beats * float64(beat)))
		defer t.Stop()
		select {
		case <-done:
			return false
		case <-t.C:
			return true
		}
	}

	for _, step := range demoSong {
		if step.patch != "" {
			_ = p.engine.SetPatchByName(step.patch)
		}
		if step.algorithm > 0 {
			_ = p.engine.SelectAlgorithm(step.algorithm, step.fadeMs)
		}

		for _, name := range step.chord {
			p.engine.NoteOn(mustNote(name), step.velocity, 0)
		}
		ok := sleep(step.hold)
		for _, name := range step.chord {
			p.engine.NoteOff(mustNote(name), 0)
		}
		if !ok || !sleep(step.rest) {
			p.engine.AllNotesOff()
			return
		}
	}

	p.mu.Lock()
	if p.playGen == gen {
		p.playing = false
	}
	p.mu.Unlock()
}

// Stop stops playback
func (p *DemoSongPlayer) Stop() {
	p.mu.Lock()
	if !p.playing {
		p.mu.Unlock()
		return
	}
	p.playing = false
	p.playGen++
	done := p.done
	p.mu.Unlock()

	close(done)
}

// IsPlaying returns true if playing
func (p *DemoSongPlayer) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// DurationSeconds returns the song length computed from the step table
func (p *DemoSongPlayer) DurationSeconds() float64 {
	var beats float64
	for _, step := range demoSong {
		beats += step.hold + step.rest
	}
	return beats * 60.0 / demoSongBPM
}

// DurationText returns a formatted duration string
func (p *DemoSongPlayer) DurationText() string {
	dur := p.DurationSeconds()
	if dur <= 0 {
		return ""
	}
	minutes := int(dur) / 60
	seconds := int(dur) % 60
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}
