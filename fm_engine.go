// fm_engine.go - Top-level FM engine: control/render handoff and the public API

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
	"math"
	"sync"
	"sync/atomic"
)

const (
	CONTROL_RING_SIZE = 256
	CONTROL_RING_MASK = CONTROL_RING_SIZE - 1

	// Control events are drained every this many samples, so a parameter
	// write is never observed mid-block by the render path.
	CONTROL_BLOCK_SAMPLES = 64

	// Per-voice scale into the mix, matching four full voices to full
	// scale; beyond that the tanh guard takes over.
	VOICE_MIX_LEVEL = 0.25
)

type controlEventKind int

const (
	evNoteOn controlEventKind = iota
	evNoteOff
	evAllNotesOff
	evAllSoundOff
	evSwitchAlgorithm
	evApplyPatch
	evSetOpRatio
	evSetOpFineTune
	evSetOpLevel
	evSetOpModIndex
	evSetOpFeedback
	evSetEnvConfig
	evSetAmpEnvConfig
	evSetMasterVolume
	evSetPolyphony
	evSetStealPolicy
	evReset
)

type controlEvent struct {
	kind   controlEventKind
	a, b   int
	value  float32
	fadeMs float32
	policy StealPolicy
	graph  *AlgorithmGraph
	patch  *Patch
	env    EnvelopeConfig
}

// controlRing hands control traffic to the render path. Producers (CLI,
// players, HTTP server, jam keys) serialize on a mutex; the consumer side
// runs inside the audio callback and touches only the atomics. A full ring
// drops the event and counts it rather than ever blocking a writer against
// the audio clock.
type controlRing struct {
	buf      [CONTROL_RING_SIZE]controlEvent
	head     atomic.Uint64 // next write slot
	tail     atomic.Uint64 // next read slot, render side only
	mu       sync.Mutex
	overflow atomic.Uint64
}

func (r *controlRing) push(ev controlEvent) bool {
	r.mu.Lock()
	h := r.head.Load()
	if h-r.tail.Load() >= CONTROL_RING_SIZE {
		r.mu.Unlock()
		r.overflow.Add(1)
		return false
	}
	r.buf[h&CONTROL_RING_MASK] = ev
	r.head.Store(h + 1)
	r.mu.Unlock()
	return true
}

// Packed per-voice state register published for diagnostics readers:
//
//	bit  0     active
//	bit  1     held
//	bit  2     stealing
//	bits 8-15  note
//	bits 16-23 channel
//	bits 24-31 amplitude, 0-255
//	bits 32-39 velocity, 0-255
const (
	VOICE_STATE_ACTIVE   = 1 << 0
	VOICE_STATE_HELD     = 1 << 1
	VOICE_STATE_STEALING = 1 << 2
)

// EngineConfig is the construction-time setup. Algorithm 0 defers to the
// patch's own algorithm id.
type EngineConfig struct {
	SampleRate   int
	Polyphony    int
	Backend      int
	Algorithm    int
	PatchName    string
	StealPolicy  StealPolicy
	MasterVolume float32
}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		SampleRate:   SAMPLE_RATE,
		Polyphony:    DEFAULT_POLYPHONY,
		Backend:      AUDIO_BACKEND_OTO,
		Algorithm:    0,
		PatchName:    "init",
		StealPolicy:  STEAL_OLDEST,
		MasterVolume: 0.8,
	}
}

// EngineStatus is a consistent snapshot of the observable engine state,
// assembled from atomics so readers never touch render-owned data.
type EngineStatus struct {
	SampleRate      int     `json:"sampleRate"`
	Polyphony       int     `json:"polyphony"`
	ActiveVoices    int     `json:"activeVoices"`
	Algorithm       int     `json:"algorithm"`
	AlgorithmName   string  `json:"algorithmName"`
	DegradedOrder   bool    `json:"degradedOrder"`
	FadingVoices    int     `json:"fadingVoices"`
	DroppedNotes    uint64  `json:"droppedNotes"`
	StolenNotes     uint64  `json:"stolenNotes"`
	ControlOverflow uint64  `json:"controlOverflow"`
	SamplesRendered uint64  `json:"samplesRendered"`
	Patch           string  `json:"patch"`
	StealPolicy     string  `json:"stealPolicy"`
	MasterVolume    float32 `json:"masterVolume"`
	Started         bool    `json:"started"`
}

// VoiceStatus is the unpacked form of one voice state register.
type VoiceStatus struct {
	ID        int     `json:"id"`
	Active    bool    `json:"active"`
	Held      bool    `json:"held"`
	Stealing  bool    `json:"stealing"`
	Note      int     `json:"note"`
	Channel   int     `json:"channel"`
	Amplitude float32 `json:"amplitude"`
	Velocity  float32 `json:"velocity"`
}

// FMEngine is the chip-level object: it owns the voice manager, funnels all
// control traffic through the ring, and hands samples to whichever audio
// backend pulls on it. Constructors and control methods may be called from
// any goroutine; GenerateSample belongs to exactly one renderer.
type FMEngine struct {
	mgr        *VoiceManager
	sampleRate float32

	ring     controlRing
	blockPos int

	// Render-owned; changed only via control events.
	masterVolume float32

	// Cross-thread observables, published at block boundaries.
	statActiveVoices atomic.Int64
	statAlgorithm    atomic.Int64
	statDegraded     atomic.Bool
	statFadingVoices atomic.Int64
	statDropped      atomic.Uint64
	statStolen       atomic.Uint64
	statSamples      atomic.Uint64
	statPolyphony    atomic.Int64
	statPolicy       atomic.Int64
	statVolume       atomic.Uint32 // float32 bits
	voiceStates      [MAX_POLYPHONY]atomic.Uint64

	patchPtr atomic.Pointer[Patch]

	mu      sync.Mutex
	output  AudioOutput
	started bool
}

// NewFMEngine builds an engine from the config, applies the named patch and
// wires the audio backend. AUDIO_BACKEND_NONE skips output entirely, which
// is what the offline renderer and the tests use.
func NewFMEngine(cfg EngineConfig) (*FMEngine, error) {
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", cfg.SampleRate)
	}
	patch, err := patchByName(cfg.PatchName)
	if err != nil {
		return nil, err
	}
	algoID := cfg.Algorithm
	if algoID == 0 {
		algoID = patch.Algorithm
	}
	graph, err := algorithmByID(algoID)
	if err != nil {
		return nil, err
	}

	e := &FMEngine{
		sampleRate:   float32(cfg.SampleRate),
		masterVolume: clamp32(cfg.MasterVolume, 0, 1),
	}
	e.mgr = newVoiceManager(cfg.Polyphony, e.sampleRate, graph)
	e.mgr.setStealPolicy(cfg.StealPolicy)
	e.mgr.applyPatch(patch)
	e.patchPtr.Store(patch)
	e.statVolume.Store(floatBits(e.masterVolume))
	e.publishState()

	if cfg.Backend != AUDIO_BACKEND_NONE {
		output, err := NewAudioOutput(cfg.Backend, cfg.SampleRate, e)
		if err != nil {
			return nil, fmt.Errorf("audio backend: %w", err)
		}
		e.output = output
	}
	return e, nil
}

// GenerateSample produces the next mixed output sample. This is the one
// real-time path: no locks, no allocation, bounded work per call.
func (e *FMEngine) GenerateSample() float32 {
	if e.blockPos == 0 {
		e.drainControl()
	}
	e.blockPos++
	if e.blockPos >= CONTROL_BLOCK_SAMPLES {
		e.blockPos = 0
	}

	mix := e.mgr.processSample()
	return fastTanh(mix * VOICE_MIX_LEVEL * e.masterVolume)
}

// GenerateBlock fills out with consecutive samples.
func (e *FMEngine) GenerateBlock(out []float32) {
	for i := range out {
		out[i] = e.GenerateSample()
	}
}

func (e *FMEngine) drainControl() {
	t := e.ring.tail.Load()
	h := e.ring.head.Load()
	for ; t != h; t++ {
		e.applyEvent(&e.ring.buf[t&CONTROL_RING_MASK])
	}
	e.ring.tail.Store(t)
	e.publishState()
}

func (e *FMEngine) applyEvent(ev *controlEvent) {
	switch ev.kind {
	case evNoteOn:
		e.mgr.noteOn(ev.a, ev.b, ev.value)
	case evNoteOff:
		e.mgr.noteOff(ev.a)
	case evAllNotesOff:
		e.mgr.allNotesOff()
	case evAllSoundOff:
		e.mgr.allSoundOff()
	case evSwitchAlgorithm:
		e.mgr.switchAlgorithm(ev.graph, ev.fadeMs)
	case evApplyPatch:
		e.mgr.applyPatch(ev.patch)
		if ev.graph != nil {
			e.mgr.switchAlgorithm(ev.graph, ev.fadeMs)
		}
	case evSetOpRatio:
		e.forEachVoiceOp(ev.a, func(op *Operator) { op.setFrequencyRatio(ev.value) })
	case evSetOpFineTune:
		e.forEachVoiceOp(ev.a, func(op *Operator) { op.setFineTune(ev.value) })
	case evSetOpLevel:
		level := clamp32(ev.value, 0, MAX_OUTPUT_LEVEL)
		for _, v := range e.mgr.voices {
			v.opLevels[ev.a] = level
		}
	case evSetOpModIndex:
		e.forEachVoiceOp(ev.a, func(op *Operator) { op.setModulationIndex(ev.value) })
	case evSetOpFeedback:
		e.forEachVoiceOp(ev.a, func(op *Operator) { op.setFeedbackAmount(ev.value) })
	case evSetEnvConfig:
		for _, v := range e.mgr.voices {
			v.envelopes[ev.a].setConfig(ev.env)
		}
	case evSetAmpEnvConfig:
		for _, v := range e.mgr.voices {
			v.ampEnvelope.setConfig(ev.env)
			v.ampEnabled = ev.a != 0
		}
	case evSetMasterVolume:
		e.masterVolume = clamp32(ev.value, 0, 1)
		e.statVolume.Store(floatBits(e.masterVolume))
	case evSetPolyphony:
		e.mgr.setPolyphony(ev.a)
	case evSetStealPolicy:
		e.mgr.setStealPolicy(ev.policy)
	case evReset:
		e.mgr.reset()
	}
}

func (e *FMEngine) forEachVoiceOp(opIndex int, fn func(*Operator)) {
	if opIndex < 0 || opIndex >= NUM_OPERATORS {
		return
	}
	for _, v := range e.mgr.voices {
		fn(v.operators[opIndex])
	}
}

// publishState refreshes the atomics diagnostics readers see. Runs at block
// boundaries in render context.
func (e *FMEngine) publishState() {
	e.statActiveVoices.Store(int64(e.mgr.activeVoices()))
	e.statDropped.Store(e.mgr.droppedNotes)
	e.statStolen.Store(e.mgr.stolenNotes)
	e.statSamples.Store(e.mgr.sampleClock)
	e.statPolyphony.Store(int64(e.mgr.polyphony))
	e.statPolicy.Store(int64(e.mgr.policy))
	if g := e.mgr.currentGraph; g != nil {
		e.statAlgorithm.Store(int64(g.id))
		e.statDegraded.Store(g.degradedOrder)
	}

	fading := 0
	for i, v := range e.mgr.voices {
		var packed uint64
		if v.active {
			packed |= VOICE_STATE_ACTIVE
			if v.held {
				packed |= VOICE_STATE_HELD
			}
			if v.beingStolen {
				packed |= VOICE_STATE_STEALING
			}
			packed |= uint64(v.note&0xFF) << 8
			packed |= uint64(v.channel&0xFF) << 16
			amp := uint64(clamp32(v.currentAmplitude(), 0, 1) * 255)
			packed |= (amp & 0xFF) << 24
			vel := uint64(clamp32(v.velocity, 0, 1) * 255)
			packed |= (vel & 0xFF) << 32
			if v.router.fading() {
				fading++
			}
		}
		e.voiceStates[i].Store(packed)
	}
	e.statFadingVoices.Store(int64(fading))
}

// NoteOn schedules a note. Velocity accepts either normalized 0..1 or MIDI
// 0..127; anything above 1 is treated as the latter.
func (e *FMEngine) NoteOn(note int, velocity float32, channel int) {
	if note < 0 || note > 127 {
		return
	}
	if velocity > 1 {
		velocity /= 127.0
	}
	e.ring.push(controlEvent{kind: evNoteOn, a: note, b: channel, value: clamp32(velocity, 0, 1)})
}

func (e *FMEngine) NoteOff(note int, channel int) {
	if note < 0 || note > 127 {
		return
	}
	e.ring.push(controlEvent{kind: evNoteOff, a: note, b: channel})
}

func (e *FMEngine) AllNotesOff() {
	e.ring.push(controlEvent{kind: evAllNotesOff})
}

// AllSoundOff cuts everything immediately, release tails included.
func (e *FMEngine) AllSoundOff() {
	e.ring.push(controlEvent{kind: evAllSoundOff})
}

// SelectAlgorithm switches the active topology with a crossfade window in
// milliseconds. The id is validated here on the control path; the render
// path only ever sees a compiled graph.
func (e *FMEngine) SelectAlgorithm(id int, fadeMs float32) error {
	g, err := algorithmByID(id)
	if err != nil {
		return err
	}
	if fadeMs < 0 {
		fadeMs = 0
	}
	e.ring.push(controlEvent{kind: evSwitchAlgorithm, graph: g, fadeMs: fadeMs})
	return nil
}

// SetPatch clamps a private copy of the patch and ships it with its
// algorithm graph. The copy is never touched again by the caller's side.
func (e *FMEngine) SetPatch(p *Patch) error {
	if p == nil {
		return fmt.Errorf("nil patch")
	}
	clone := *p
	clone.clamp()
	g, err := algorithmByID(clone.Algorithm)
	if err != nil {
		return err
	}
	e.patchPtr.Store(&clone)
	e.ring.push(controlEvent{kind: evApplyPatch, patch: &clone, graph: g, fadeMs: DEFAULT_FADE_MS})
	return nil
}

func (e *FMEngine) SetPatchByName(name string) error {
	p, err := patchByName(name)
	if err != nil {
		return err
	}
	return e.SetPatch(p)
}

// CurrentPatch returns the last patch shipped to the voices.
func (e *FMEngine) CurrentPatch() *Patch {
	return e.patchPtr.Load()
}

func (e *FMEngine) SetOperatorRatio(op int, ratio float32) {
	e.pushOpEvent(evSetOpRatio, op, ratio)
}

func (e *FMEngine) SetOperatorFineTune(op int, cents float32) {
	e.pushOpEvent(evSetOpFineTune, op, cents)
}

func (e *FMEngine) SetOperatorLevel(op int, level float32) {
	e.pushOpEvent(evSetOpLevel, op, level)
}

func (e *FMEngine) SetOperatorModIndex(op int, index float32) {
	e.pushOpEvent(evSetOpModIndex, op, index)
}

func (e *FMEngine) SetOperatorFeedback(op int, amount float32) {
	e.pushOpEvent(evSetOpFeedback, op, amount)
}

func (e *FMEngine) pushOpEvent(kind controlEventKind, op int, value float32) {
	if op < 0 || op >= NUM_OPERATORS {
		return
	}
	e.ring.push(controlEvent{kind: kind, a: op, value: value})
}

// SetEnvelopeConfig replaces the envelope parameters for one operator
// across all voices.
func (e *FMEngine) SetEnvelopeConfig(op int, cfg EnvelopeConfig) {
	if op < 0 || op >= NUM_OPERATORS {
		return
	}
	e.ring.push(controlEvent{kind: evSetEnvConfig, a: op, env: cfg})
}

// SetAmpEnvelope enables or disables the overall amplitude envelope.
func (e *FMEngine) SetAmpEnvelope(enabled bool, cfg EnvelopeConfig) {
	flag := 0
	if enabled {
		flag = 1
	}
	e.ring.push(controlEvent{kind: evSetAmpEnvConfig, a: flag, env: cfg})
}

func (e *FMEngine) SetMasterVolume(v float32) {
	e.ring.push(controlEvent{kind: evSetMasterVolume, value: v})
}

func (e *FMEngine) SetPolyphony(n int) {
	e.ring.push(controlEvent{kind: evSetPolyphony, a: n})
}

func (e *FMEngine) SetStealPolicy(p StealPolicy) {
	e.ring.push(controlEvent{kind: evSetStealPolicy, policy: p})
}

// Reset returns the engine to power-on state at the next block boundary.
func (e *FMEngine) Reset() {
	e.ring.push(controlEvent{kind: evReset})
}

// Start begins realtime playback on the configured backend.
func (e *FMEngine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.output == nil {
		return fmt.Errorf("no audio backend configured")
	}
	if e.started {
		return nil
	}
	if err := e.output.Start(); err != nil {
		return err
	}
	e.started = true
	return nil
}

func (e *FMEngine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.output == nil || !e.started {
		return nil
	}
	if err := e.output.Stop(); err != nil {
		return err
	}
	e.started = false
	return nil
}

func (e *FMEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.output == nil {
		return nil
	}
	e.started = false
	return e.output.Close()
}

func (e *FMEngine) IsStarted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.started
}

func (e *FMEngine) SampleRate() int {
	return int(e.sampleRate)
}

// Status assembles the diagnostics snapshot from published atomics.
func (e *FMEngine) Status() EngineStatus {
	st := EngineStatus{
		SampleRate:      int(e.sampleRate),
		Polyphony:       int(e.statPolyphony.Load()),
		ActiveVoices:    int(e.statActiveVoices.Load()),
		Algorithm:       int(e.statAlgorithm.Load()),
		DegradedOrder:   e.statDegraded.Load(),
		FadingVoices:    int(e.statFadingVoices.Load()),
		DroppedNotes:    e.statDropped.Load(),
		StolenNotes:     e.statStolen.Load(),
		ControlOverflow: e.ring.overflow.Load(),
		SamplesRendered: e.statSamples.Load(),
		StealPolicy:     StealPolicy(e.statPolicy.Load()).String(),
		MasterVolume:    floatFromBits(e.statVolume.Load()),
		Started:         e.IsStarted(),
	}
	if g, err := algorithmByID(st.Algorithm); err == nil {
		st.AlgorithmName = g.name
	}
	if p := e.patchPtr.Load(); p != nil {
		st.Patch = p.Name
	}
	return st
}

func floatBits(f float32) uint32 {
	return math.Float32bits(f)
}

func floatFromBits(b uint32) float32 {
	return math.Float32frombits(b)
}

// VoiceStates unpacks the per-voice diagnostic registers.
func (e *FMEngine) VoiceStates() []VoiceStatus {
	n := int(e.statPolyphony.Load())
	if n > MAX_POLYPHONY {
		n = MAX_POLYPHONY
	}
	out := make([]VoiceStatus, n)
	for i := 0; i < n; i++ {
		packed := e.voiceStates[i].Load()
		out[i] = VoiceStatus{
			ID:        i,
			Active:    packed&VOICE_STATE_ACTIVE != 0,
			Held:      packed&VOICE_STATE_HELD != 0,
			Stealing:  packed&VOICE_STATE_STEALING != 0,
			Note:      int(packed >> 8 & 0xFF),
			Channel:   int(packed >> 16 & 0xFF),
			Amplitude: float32(packed>>24&0xFF) / 255.0,
			Velocity:  float32(packed>>32&0xFF) / 255.0,
		}
	}
	return out
}
