// terminal_jam.go - Interactive keyboard jam mode (shared logic)

package main

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/term"
)

const (
	jamGateMs      = 350 // terminals have no key-release; notes gate off after this
	jamBaseOctave  = 4
	jamStatusTicks = 20 // status refresh cadence in 5ms poll iterations
)

// jamKeymap is the classic tracker layout: bottom row plays the base octave
// with sharps on the home row, top row plays one octave up with sharps on
// the digit row.
var jamKeymap = map[byte]int{
	'z': 0, 's': 1, 'x': 2, 'd': 3, 'c': 4, 'v': 5, 'g': 6, 'b': 7,
	'h': 8, 'n': 9, 'j': 10, 'm': 11, ',': 12,
	'q': 12, '2': 13, 'w': 14, '3': 15, 'e': 16, 'r': 17, '5': 18,
	't': 19, '6': 20, 'y': 21, '7': 22, 'u': 23, 'i': 24,
}

// TerminalJam reads raw stdin and plays the engine live. Only instantiated
// in main.go for interactive use - never in tests. Run is platform specific.
type TerminalJam struct {
	engine *FMEngine

	fd           int
	oldTermState *term.State
	nonblockSet  bool

	mu       sync.Mutex
	releases map[int]*time.Timer

	octave   int
	velocity float32
	patchIdx int
	algo     int
}

// NewTerminalJam creates a jam session on the given engine.
func NewTerminalJam(engine *FMEngine) *TerminalJam {
	return &TerminalJam{
		engine:   engine,
		releases: make(map[int]*time.Timer),
		octave:   jamBaseOctave,
		velocity: 0.8,
		algo:     1,
	}
}

func (j *TerminalJam) printBanner() {
	fmt.Print("Jam mode. Keys z-m play notes, q-i one octave up.\r\n")
	fmt.Print("[ ] octave   9 0 velocity   Tab algorithm   p/P patch   Space release all   Ctrl-C quit\r\n\r\n")
}

// handleKey returns false when the session should end.
func (j *TerminalJam) handleKey(b byte) bool {
	switch b {
	case 0x03, 0x1b: // Ctrl-C, ESC
		return false
	case ' ':
		j.engine.AllNotesOff()
	case '[':
		if j.octave > 0 {
			j.octave--
		}
	case ']':
		if j.octave < 8 {
			j.octave++
		}
	case '9':
		j.velocity = clamp32(j.velocity-0.1, 0.1, 1)
	case '0':
		j.velocity = clamp32(j.velocity+0.1, 0.1, 1)
	case '\t':
		j.algo = j.algo%NUM_ALGORITHMS + 1
		_ = j.engine.SelectAlgorithm(j.algo, DEFAULT_FADE_MS)
	case 'p':
		j.cyclePatch(1)
	case 'P':
		j.cyclePatch(-1)
	case '-':
		j.nudgeVolume(-0.05)
	case '=':
		j.nudgeVolume(0.05)
	default:
		if offset, ok := jamKeymap[b]; ok {
			j.playNote((j.octave+1)*12 + offset)
		}
	}
	return true
}

// playNote triggers a note and schedules its gate-off, extending the gate
// if the key repeats before it expires.
func (j *TerminalJam) playNote(note int) {
	if note < 0 || note > 127 {
		return
	}
	j.engine.NoteOn(note, j.velocity, 0)

	j.mu.Lock()
	defer j.mu.Unlock()
	if t, ok := j.releases[note]; ok {
		t.Reset(jamGateMs * time.Millisecond)
		return
	}
	j.releases[note] = time.AfterFunc(jamGateMs*time.Millisecond, func() {
		j.engine.NoteOff(note, 0)
		j.mu.Lock()
		delete(j.releases, note)
		j.mu.Unlock()
	})
}

func (j *TerminalJam) stopReleases() {
	j.mu.Lock()
	for note, t := range j.releases {
		t.Stop()
		delete(j.releases, note)
	}
	j.mu.Unlock()
}

func (j *TerminalJam) cyclePatch(dir int) {
	names := patchNames()
	if len(names) == 0 {
		return
	}
	j.patchIdx = (j.patchIdx + dir + len(names)) % len(names)
	_ = j.engine.SetPatchByName(names[j.patchIdx])
}

func (j *TerminalJam) nudgeVolume(delta float32) {
	st := j.engine.Status()
	j.engine.SetMasterVolume(clamp32(st.MasterVolume+delta, 0, 1))
}

func (j *TerminalJam) printStatus() {
	st := j.engine.Status()
	fmt.Printf("\x1b[2K\rpatch:%-10s algo:%d oct:%d vel:%.1f vol:%.2f voices:%d/%d",
		st.Patch, st.Algorithm, j.octave, j.velocity, st.MasterVolume,
		st.ActiveVoices, st.Polyphony)
}
