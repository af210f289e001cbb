// fm_voice_manager.go - Fixed-pool voice allocation, stealing and retirement

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

const (
	// Retirement sweep cadence in samples. Freed slots are also handed to
	// waiting notes here, so a stolen slot is reused at most one sweep
	// after its quick release lands.
	SWEEP_INTERVAL = 64

	// Notes parked while their stolen slot fades out.
	PENDING_NOTE_MAX = 8
)

type pendingNote struct {
	note     int
	channel  int
	velocity float32
}

// VoiceManager owns a fixed arena of voices sized MAX_POLYPHONY at
// construction; the polyphony setting caps how many slots are eligible, so
// changing it never allocates. Every method here runs in render context;
// the engine serializes control traffic onto this path at block boundaries.
type VoiceManager struct {
	voices    []*Voice
	polyphony int
	policy    StealPolicy

	currentGraph *AlgorithmGraph
	fadeMs       float32

	// sampleClock advances once per processed sample and stamps voices
	// for the oldest/newest stealing policies.
	sampleClock  uint64
	sweepCounter int

	pending     [PENDING_NOTE_MAX]pendingNote
	pendingHead int
	pendingLen  int

	// Diagnostics, read by the engine's status path.
	droppedNotes uint64
	stolenNotes  uint64
}

func newVoiceManager(polyphony int, sampleRate float32, graph *AlgorithmGraph) *VoiceManager {
	if polyphony < 1 {
		polyphony = 1
	}
	if polyphony > MAX_POLYPHONY {
		polyphony = MAX_POLYPHONY
	}
	m := &VoiceManager{
		voices:       make([]*Voice, MAX_POLYPHONY),
		polyphony:    polyphony,
		policy:       STEAL_OLDEST,
		currentGraph: graph,
		fadeMs:       DEFAULT_FADE_MS,
	}
	for i := range m.voices {
		m.voices[i] = newVoice(i, sampleRate, graph)
	}
	return m
}

// noteOn secures a slot for the note: a free voice if one exists, otherwise
// the stealing policy picks a victim whose envelopes get the quick release
// and the note parks until the sweep hands it the freed slot. Exhaustion
// with policy none, a full pending queue, or an empty active set all drop
// the note silently.
func (m *VoiceManager) noteOn(note, channel int, velocity float32) {
	if v := m.findFreeVoice(); v != nil {
		v.noteOn(note, channel, velocity, m.sampleClock)
		return
	}

	victim := m.stealCandidate()
	if victim == nil {
		m.droppedNotes++
		return
	}
	if !victim.stealing() {
		victim.quickReleaseAll()
	}
	m.stolenNotes++

	if m.pendingLen >= PENDING_NOTE_MAX {
		m.droppedNotes++
		return
	}
	slot := (m.pendingHead + m.pendingLen) % PENDING_NOTE_MAX
	m.pending[slot] = pendingNote{note: note, channel: channel, velocity: velocity}
	m.pendingLen++
}

// noteOff releases every held voice playing the note.
func (m *VoiceManager) noteOff(note int) {
	for i := 0; i < m.polyphony; i++ {
		v := m.voices[i]
		if v.active && v.held && v.note == note {
			v.noteOff()
		}
	}
}

// allNotesOff forces every active voice into release.
func (m *VoiceManager) allNotesOff() {
	for i := 0; i < m.polyphony; i++ {
		if m.voices[i].active {
			m.voices[i].noteOff()
		}
	}
	m.pendingLen = 0
}

// allSoundOff is the panic path: immediate silence, no release tails.
func (m *VoiceManager) allSoundOff() {
	for _, v := range m.voices {
		v.reset()
	}
	m.pendingLen = 0
}

// processSample mixes one sample from every active voice and drives the
// retirement sweep.
func (m *VoiceManager) processSample() float32 {
	var mix float32
	for i := 0; i < m.polyphony; i++ {
		v := m.voices[i]
		if v.active {
			mix += v.processSample()
		}
	}
	m.sampleClock++
	m.sweepCounter++
	if m.sweepCounter >= SWEEP_INTERVAL {
		m.sweepCounter = 0
		m.sweep()
	}
	return mix
}

// processBlock mixes n samples into out, adding to whatever is there.
func (m *VoiceManager) processBlock(out []float32) {
	for i := range out {
		out[i] = m.processSample()
	}
}

// sweep frees voices whose envelopes have all finished, then feeds freed
// slots to parked notes in arrival order.
func (m *VoiceManager) sweep() {
	for i := 0; i < m.polyphony; i++ {
		v := m.voices[i]
		if v.active && v.finished() {
			v.free()
		}
	}
	for m.pendingLen > 0 {
		v := m.findFreeVoice()
		if v == nil {
			return
		}
		p := m.pending[m.pendingHead]
		m.pendingHead = (m.pendingHead + 1) % PENDING_NOTE_MAX
		m.pendingLen--
		v.noteOn(p.note, p.channel, p.velocity, m.sampleClock)
	}
}

func (m *VoiceManager) findFreeVoice() *Voice {
	for i := 0; i < m.polyphony; i++ {
		if !m.voices[i].active {
			return m.voices[i]
		}
	}
	return nil
}

// stealCandidate picks the victim per policy. Voices already fading from a
// previous steal are passed over so one dying voice cannot absorb every
// steal; if nothing else is active the policy choice falls back to them.
func (m *VoiceManager) stealCandidate() *Voice {
	if m.policy == STEAL_NONE {
		return nil
	}
	best := m.pickVictim(true)
	if best == nil {
		best = m.pickVictim(false)
	}
	return best
}

func (m *VoiceManager) pickVictim(skipStealing bool) *Voice {
	var best *Voice
	for i := 0; i < m.polyphony; i++ {
		v := m.voices[i]
		if !v.active {
			continue
		}
		if skipStealing && v.stealing() {
			continue
		}
		if best == nil {
			best = v
			continue
		}
		switch m.policy {
		case STEAL_OLDEST:
			if v.startTimestamp < best.startTimestamp {
				best = v
			}
		case STEAL_QUIETEST:
			if v.currentAmplitude() < best.currentAmplitude() {
				best = v
			}
		case STEAL_NEWEST:
			if v.startTimestamp > best.startTimestamp {
				best = v
			}
		}
	}
	return best
}

// switchAlgorithm points every voice's router at the new graph. Active
// voices crossfade; idle ones just swap.
func (m *VoiceManager) switchAlgorithm(g *AlgorithmGraph, fadeMs float32) {
	if g == nil {
		return
	}
	m.currentGraph = g
	for _, v := range m.voices {
		if v.active {
			v.switchAlgorithm(g, fadeMs)
		} else {
			v.switchAlgorithm(g, 0)
		}
	}
}

// applyPatch pushes a full patch into every voice.
func (m *VoiceManager) applyPatch(p *Patch) {
	if p == nil {
		return
	}
	for _, v := range m.voices {
		p.applyToVoice(v)
	}
}

// setPolyphony changes the usable slot count. Voices falling outside the
// new range leave the mix immediately, so they are hard-stopped rather than
// left with a release tail nobody renders.
func (m *VoiceManager) setPolyphony(n int) {
	if n < 1 {
		n = 1
	}
	if n > MAX_POLYPHONY {
		n = MAX_POLYPHONY
	}
	for i := n; i < m.polyphony; i++ {
		if m.voices[i].active {
			m.voices[i].reset()
		}
	}
	m.polyphony = n
}

func (m *VoiceManager) setStealPolicy(p StealPolicy) {
	m.policy = p
}

func (m *VoiceManager) activeVoices() int {
	n := 0
	for i := 0; i < m.polyphony; i++ {
		if m.voices[i].active {
			n++
		}
	}
	return n
}

// reset restores power-on state: all voices silent and free, counters
// cleared, pending queue empty.
func (m *VoiceManager) reset() {
	for _, v := range m.voices {
		v.reset()
	}
	m.sampleClock = 0
	m.sweepCounter = 0
	m.pendingHead = 0
	m.pendingLen = 0
	m.droppedNotes = 0
	m.stolenNotes = 0
}
