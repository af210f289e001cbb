// fm_voice.go - One sounding note: four operators, their envelopes, and a router

package main

import "math"

// Voice bundles four operators with their per-operator envelopes, an
// optional overall amplitude envelope, and an AlgorithmRouter holding the
// voice's view of the active topology. The VoiceManager is the only thing
// that creates, repurposes or frees voices.
type Voice struct {
	id             int
	note           int
	channel        int
	velocity       float32
	startTimestamp uint64
	active         bool
	held           bool
	beingStolen    bool

	operators [NUM_OPERATORS]*Operator
	envelopes [NUM_OPERATORS]*EnvelopeGenerator

	// Static per-operator levels from the patch; the envelope output is
	// multiplied in on top every sample.
	opLevels [NUM_OPERATORS]float32

	ampEnvelope *EnvelopeGenerator
	ampEnabled  bool

	router *AlgorithmRouter
}

func newVoice(id int, sampleRate float32, graph *AlgorithmGraph) *Voice {
	v := &Voice{
		id:          id,
		ampEnvelope: newEnvelopeGenerator(sampleRate),
		router:      newAlgorithmRouter(graph, sampleRate),
	}
	for i := 0; i < NUM_OPERATORS; i++ {
		v.operators[i] = newOperator(sampleRate)
		v.envelopes[i] = newEnvelopeGenerator(sampleRate)
		v.opLevels[i] = 1.0
	}
	return v
}

// noteFrequency converts a MIDI note number to Hz, A4 = 440.
func noteFrequency(note int) float32 {
	return float32(440.0 * math.Pow(2, float64(note-69)/12.0))
}

// noteOn repurposes the voice for a new note: base frequency from the note
// number, phases cleared, every envelope armed.
func (v *Voice) noteOn(note, channel int, velocity float32, timestamp uint64) {
	v.note = note
	v.channel = channel
	v.velocity = velocity
	v.startTimestamp = timestamp
	v.active = true
	v.held = true
	v.beingStolen = false

	baseFreq := noteFrequency(note)
	for i := 0; i < NUM_OPERATORS; i++ {
		v.operators[i].setFrequency(baseFreq)
		v.operators[i].reset()
		v.envelopes[i].noteOn(velocity, note)
	}
	if v.ampEnabled {
		v.ampEnvelope.noteOn(velocity, note)
	}
}

// noteOff releases every governing envelope; the voice keeps sounding
// through its release tail until the sweep frees it.
func (v *Voice) noteOff() {
	v.held = false
	for i := 0; i < NUM_OPERATORS; i++ {
		v.envelopes[i].noteOff()
	}
	if v.ampEnabled {
		v.ampEnvelope.noteOff()
	}
}

// quickReleaseAll is the stealing path: every envelope gets the fast fixed
// release so the slot can be reused without a click.
func (v *Voice) quickReleaseAll() {
	v.held = false
	v.beingStolen = true
	for i := 0; i < NUM_OPERATORS; i++ {
		v.envelopes[i].quickRelease()
	}
	if v.ampEnabled {
		v.ampEnvelope.quickRelease()
	}
}

// processSample advances the four operator envelopes, feeds their levels to
// the operators, runs one routing pass and applies the amplitude envelope.
func (v *Voice) processSample() float32 {
	if !v.active {
		return 0
	}
	for i := 0; i < NUM_OPERATORS; i++ {
		level := v.envelopes[i].processSample()
		v.operators[i].outputLevel = level * v.opLevels[i]
	}
	sample := v.router.processOperators(&v.operators)
	if v.ampEnabled {
		sample *= v.ampEnvelope.processSample()
	}
	return sample
}

// finished reports whether every governing envelope has gone idle, meaning
// the slot can be reclaimed.
func (v *Voice) finished() bool {
	if !v.active {
		return false
	}
	for i := 0; i < NUM_OPERATORS; i++ {
		if v.envelopes[i].isActive() {
			return false
		}
	}
	if v.ampEnabled && v.ampEnvelope.isActive() {
		return false
	}
	return true
}

// free returns the voice to the pool.
func (v *Voice) free() {
	v.active = false
	v.held = false
	v.beingStolen = false
}

// stealing reports whether a quick release from a previous steal is still
// fading this voice out.
func (v *Voice) stealing() bool {
	return v.beingStolen
}

// currentAmplitude estimates how loud the voice is right now, used by the
// quietest stealing policy. Carrier envelope levels weighted by the static
// operator levels; the amplitude envelope dominates when enabled.
func (v *Voice) currentAmplitude() float32 {
	g := v.router.current
	if g == nil {
		return 0
	}
	var sum float32
	var count int
	for i := 0; i < NUM_OPERATORS; i++ {
		if g.carrierSet[i] {
			sum += v.envelopes[i].currentLevel * v.opLevels[i]
			count++
		}
	}
	if count == 0 {
		return 0
	}
	amp := sum / float32(count)
	if v.ampEnabled {
		amp *= v.ampEnvelope.currentLevel
	}
	return amp
}

// switchAlgorithm hands the new graph to this voice's router.
func (v *Voice) switchAlgorithm(g *AlgorithmGraph, fadeMs float32) {
	v.router.switchAlgorithm(g, fadeMs)
}

// reset hard-stops the voice: operators cleared, envelopes idle, slot free.
func (v *Voice) reset() {
	v.free()
	v.note = 0
	v.channel = 0
	v.velocity = 0
	v.startTimestamp = 0
	for i := 0; i < NUM_OPERATORS; i++ {
		v.operators[i].reset()
		v.envelopes[i].reset()
	}
	v.ampEnvelope.reset()
}
