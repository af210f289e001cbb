// fm_script_player.go - Lua song-script player

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// ScriptPlayer runs a Lua song script against the engine. Scripts drive
// playback imperatively: patch/algorithm selection, notes, chords and
// tempo-relative waits. Operator indices in scripts are 1-based.
//
// Exposed functions:
//
//	patch(name)              select a builtin patch
//	algorithm(id [, fadeMs]) switch algorithm with optional crossfade
//	tempo(bpm)               set the beat length for beats()
//	noteOn(note [, vel [, ch]])
//	noteOff(note)
//	chordOn({notes} [, vel [, ch]])
//	chordOff({notes})
//	wait(seconds)
//	beats(n)
//	allOff()
//	volume(v)
//	opLevel(op, level)
//	opRatio(op, ratio)
//	opFeedback(op, amount)
type ScriptPlayer struct {
	engine *FMEngine

	mu      sync.Mutex
	source  []byte
	bpm     float64
	playing bool
	playGen uint64
	cancel  context.CancelFunc
}

// NewScriptPlayer creates a Lua script player driving the given engine.
func NewScriptPlayer(engine *FMEngine) *ScriptPlayer {
	return &ScriptPlayer{engine: engine, bpm: 120}
}

// Load loads a .lua script from disk
func (p *ScriptPlayer) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return p.LoadData(data)
}

// LoadData stores the script after a syntax check
func (p *ScriptPlayer) LoadData(data []byte) error {
	check := lua.NewState()
	defer check.Close()
	if _, err := check.LoadString(string(data)); err != nil {
		return fmt.Errorf("script syntax: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.source = data
	return nil
}

// Play runs the script on its own goroutine
func (p *ScriptPlayer) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.source) == 0 {
		return errors.New("no script loaded")
	}
	if p.playing {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.playGen++
	p.playing = true
	go p.run(ctx, p.playGen, p.source)
	return nil
}

func (p *ScriptPlayer) run(ctx context.Context, gen uint64, source []byte) {
	L := lua.NewState()
	L.SetContext(ctx)
	defer L.Close()

	p.register(L, ctx)

	if err := L.DoString(string(source)); err != nil && ctx.Err() == nil {
		fmt.Printf("Script error: %v\n", err)
	}
	p.engine.AllNotesOff()

	p.mu.Lock()
	if p.playGen == gen {
		p.playing = false
	}
	p.mu.Unlock()
}

// register installs the song API into the Lua state.
func (p *ScriptPlayer) register(L *lua.LState, ctx context.Context) {
	sleep := func(d time.Duration) {
		if d <= 0 {
			return
		}
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-ctx.Done():
			L.RaiseError("stopped")
		case <-t.C:
		}
	}

	chordNotes := func(tbl *lua.LTable) []int {
		notes := make([]int, 0, tbl.Len())
		for i := 1; i <= tbl.Len(); i++ {
			notes = append(notes, int(lua.LVAsNumber(tbl.RawGetInt(i))))
		}
		return notes
	}

	opIndex := func(L *lua.LState, arg int) int {
		op := int(L.CheckNumber(arg))
		if op < 1 || op > NUM_OPERATORS {
			L.RaiseError("operator %d out of range (1-%d)", op, NUM_OPERATORS)
		}
		return op - 1
	}

	L.SetGlobal("patch", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		if err := p.engine.SetPatchByName(name); err != nil {
			L.RaiseError("patch: %v", err)
		}
		return 0
	}))
	L.SetGlobal("algorithm", L.NewFunction(func(L *lua.LState) int {
		id := int(L.CheckNumber(1))
		fade := float32(L.OptNumber(2, lua.LNumber(DEFAULT_FADE_MS)))
		if err := p.engine.SelectAlgorithm(id, fade); err != nil {
			L.RaiseError("algorithm: %v", err)
		}
		return 0
	}))
	L.SetGlobal("tempo", L.NewFunction(func(L *lua.LState) int {
		bpm := float64(L.CheckNumber(1))
		if bpm > 0 {
			p.mu.Lock()
			p.bpm = bpm
			p.mu.Unlock()
		}
		return 0
	}))
	L.SetGlobal("noteOn", L.NewFunction(func(L *lua.LState) int {
		note := int(L.CheckNumber(1))
		vel := float32(L.OptNumber(2, 100)) / 127.0
		ch := int(L.OptNumber(3, 0))
		p.engine.NoteOn(note, vel, ch)
		return 0
	}))
	L.SetGlobal("noteOff", L.NewFunction(func(L *lua.LState) int {
		note := int(L.CheckNumber(1))
		ch := int(L.OptNumber(2, 0))
		p.engine.NoteOff(note, ch)
		return 0
	}))
	L.SetGlobal("chordOn", L.NewFunction(func(L *lua.LState) int {
		notes := chordNotes(L.CheckTable(1))
		vel := float32(L.OptNumber(2, 100)) / 127.0
		ch := int(L.OptNumber(3, 0))
		for _, n := range notes {
			p.engine.NoteOn(n, vel, ch)
		}
		return 0
	}))
	L.SetGlobal("chordOff", L.NewFunction(func(L *lua.LState) int {
		ch := int(L.OptNumber(2, 0))
		for _, n := range chordNotes(L.CheckTable(1)) {
			p.engine.NoteOff(n, ch)
		}
		return 0
	}))
	L.SetGlobal("wait", L.NewFunction(func(L *lua.LState) int {
		sleep(time.Duration(float64(L.CheckNumber(1)) * float64(time.Second)))
		return 0
	}))
	L.SetGlobal("beats", L.NewFunction(func(L *lua.LState) int {
		n := float64(L.CheckNumber(1))
		p.mu.Lock()
		bpm := p.bpm
		p.mu.Unlock()
		sleep(time.Duration(n * 60.0 / bpm * float64(time.Second)))
		return 0
	}))
	L.SetGlobal("allOff", L.NewFunction(func(L *lua.LState) int {
		p.engine.AllNotesOff()
		return 0
	}))
	L.SetGlobal("volume", L.NewFunction(func(L *lua.LState) int {
		p.engine.SetMasterVolume(float32(L.CheckNumber(1)))
		return 0
	}))
	L.SetGlobal("opLevel", L.NewFunction(func(L *lua.LState) int {
		op := opIndex(L, 1)
		p.engine.SetOperatorLevel(op, float32(L.CheckNumber(2)))
		return 0
	}))
	L.SetGlobal("opRatio", L.NewFunction(func(L *lua.LState) int {
		op := opIndex(L, 1)
		p.engine.SetOperatorRatio(op, float32(L.CheckNumber(2)))
		return 0
	}))
	L.SetGlobal("opFeedback", L.NewFunction(func(L *lua.LState) int {
		op := opIndex(L, 1)
		p.engine.SetOperatorFeedback(op, float32(L.CheckNumber(2)))
		return 0
	}))
}

// Stop cancels the running script
func (p *ScriptPlayer) Stop() {
	p.mu.Lock()
	if !p.playing {
		p.mu.Unlock()
		return
	}
	p.playing = false
	p.playGen++
	cancel := p.cancel
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// IsPlaying returns true if the script is running
func (p *ScriptPlayer) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// DurationSeconds returns 0; script length is unknowable up front
func (p *ScriptPlayer) DurationSeconds() float64 {
	return 0
}

// DurationText returns an empty string; scripts have no fixed duration
func (p *ScriptPlayer) DurationText() string {
	return ""
}
