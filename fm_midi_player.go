// fm_midi_player.go - Standard MIDI File song player

package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"gitlab.com/gomidi/midi/v2/smf"
)

const (
	midiEvNoteOn = iota
	midiEvNoteOff
	midiEvProgram
)

// midiEvent is one scheduled engine action with its absolute song time.
type midiEvent struct {
	atMicros int64
	kind     int
	note     int
	channel  int
	velocity float32
	program  int
}

// MIDIPlayer plays a Standard MIDI File into the engine. Timing comes from
// the SMF tempo map; the player sleeps between events on its own goroutine
// and never touches the render path directly.
type MIDIPlayer struct {
	engine *FMEngine

	mu      sync.Mutex
	events  []midiEvent
	name    string
	endTime time.Duration
	playing bool
	playGen uint64
	done    chan struct{}
}

// NewMIDIPlayer creates a MIDI file player driving the given engine.
func NewMIDIPlayer(engine *FMEngine) *MIDIPlayer {
	return &MIDIPlayer{engine: engine}
}

// Load loads a .mid file from disk
func (p *MIDIPlayer) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return p.LoadData(data)
}

// LoadData parses SMF data and builds the event schedule
func (p *MIDIPlayer) LoadData(data []byte) error {
	var (
		events []midiEvent
		name   string
	)

	rd := smf.ReadTracksFrom(bytes.NewReader(data))
	rd.Do(func(te smf.TrackEvent) {
		var ch, key, vel, prog uint8
		var text string
		msg := te.Message
		switch {
		case msg.GetNoteStart(&ch, &key, &vel):
			events = append(events, midiEvent{
				atMicros: te.AbsMicroSeconds,
				kind:     midiEvNoteOn,
				note:     int(key),
				channel:  int(ch),
				velocity: float32(vel) / 127.0,
			})
		case msg.GetNoteEnd(&ch, &key):
			events = append(events, midiEvent{
				atMicros: te.AbsMicroSeconds,
				kind:     midiEvNoteOff,
				note:     int(key),
				channel:  int(ch),
			})
		case msg.GetProgramChange(&ch, &prog):
			events = append(events, midiEvent{
				atMicros: te.AbsMicroSeconds,
				kind:     midiEvProgram,
				channel:  int(ch),
				program:  int(prog),
			})
		case msg.GetMetaTrackName(&text):
			if name == "" {
				name = text
			}
		}
	})
	if err := rd.Error(); err != nil {
		return fmt.Errorf("parse SMF: %w", err)
	}
	if len(events) == 0 {
		return errors.New("SMF contains no note events")
	}

	// Tracks arrive sequentially; interleave them on the song timeline
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].atMicros < events[j].atMicros
	})

	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = events
	p.name = name
	p.endTime = time.Duration(events[len(events)-1].atMicros) * time.Microsecond
	return nil
}

// SongName returns the name from the first track-name meta event
func (p *MIDIPlayer) SongName() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.name
}

// Play starts playback
func (p *MIDIPlayer) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.events) == 0 {
		return errors.New("no song loaded")
	}
	if p.playing {
		return nil
	}

	p.playGen++
	p.done = make(chan struct{})
	p.playing = true
	go p.run(p.playGen, p.done, p.events)
	return nil
}

func (p *MIDIPlayer) run(gen uint64, done chan struct{}, events []midiEvent) {
	start := time.Now()
	timer := time.NewTimer(0)
	<-timer.C
	defer timer.Stop()

	for _, ev := range events {
		wait := time.Duration(ev.atMicros)*time.Microsecond - time.Since(start)
		if wait > 0 {
			timer.Reset(wait)
			select {
			case <-done:
				p.engine.AllNotesOff()
				return
			case <-timer.C:
			}
		} else {
			select {
			case <-done:
				p.engine.AllNotesOff()
				return
			default:
			}
		}

		switch ev.kind {
		case midiEvNoteOn:
			p.engine.NoteOn(ev.note, ev.velocity, ev.channel)
		case midiEvNoteOff:
			p.engine.NoteOff(ev.note, ev.channel)
		case midiEvProgram:
			if name := patchForProgram(ev.program); name != "" {
				_ = p.engine.SetPatchByName(name)
			}
		}
	}

	p.mu.Lock()
	if p.playGen == gen {
		p.playing = false
	}
	p.mu.Unlock()
}

// Stop stops playback and releases anything still held
func (p *MIDIPlayer) Stop() {
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
func (p *MIDIPlayer) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// DurationSeconds returns the song length from the SMF tempo map
func (p *MIDIPlayer) DurationSeconds() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.endTime.Seconds()
}

// DurationText returns a formatted duration string
func (p *MIDIPlayer) DurationText() string {
	dur := p.DurationSeconds()
	if dur <= 0 {
		return ""
	}
	minutes := int(dur) / 60
	seconds := int(dur) % 60
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

// patchForProgram maps a General MIDI program to the closest builtin patch.
func patchForProgram(program int) string {
	switch {
	case program < 8:
		return "epiano"
	case program < 16:
		return "bell"
	case program >= 32 && program < 40:
		return "solidbass"
	case program >= 56 && program < 64:
		return "brass"
	case program >= 88 && program < 96:
		return "pulsepad"
	}
	return "init"
}
