// fm_voice_manager_test.go - Tests for voice allocation, stealing and retirement

package main

import (
	"testing"
)

func testManager(polyphony int) *VoiceManager {
	g, _ := algorithmByID(1)
	return newVoiceManager(polyphony, SAMPLE_RATE, g)
}

// runManager advances n samples, driving the clock and the sweep.
func runManager(m *VoiceManager, n int) {
	for i := 0; i < n; i++ {
		m.processSample()
	}
}

// voiceForNote returns the first active voice playing note, or nil.
func voiceForNote(m *VoiceManager, note int) *Voice {
	for i := 0; i < m.polyphony; i++ {
		if m.voices[i].active && m.voices[i].note == note {
			return m.voices[i]
		}
	}
	return nil
}

// TestManagerConstructionClamps checks polyphony bounds and the fixed
// arena size.
func TestManagerConstructionClamps(t *testing.T) {
	m := testManager(0)
	if m.polyphony != 1 {
		t.Errorf("expected polyphony clamped to 1, got %d", m.polyphony)
	}
	m = testManager(1000)
	if m.polyphony != MAX_POLYPHONY {
		t.Errorf("expected polyphony clamped to %d, got %d", MAX_POLYPHONY, m.polyphony)
	}
	if len(m.voices) != MAX_POLYPHONY {
		t.Errorf("expected a fixed arena of %d voices, got %d", MAX_POLYPHONY, len(m.voices))
	}
}

// TestManagerAllocatesFreeSlots checks notes land on free voices in slot
// order.
func TestManagerAllocatesFreeSlots(t *testing.T) {
	m := testManager(4)
	m.noteOn(60, 0, 1.0)
	m.noteOn(64, 0, 1.0)
	m.noteOn(67, 0, 1.0)

	if n := m.activeVoices(); n != 3 {
		t.Fatalf("expected 3 active voices, got %d", n)
	}
	for i, note := range []int{60, 64, 67} {
		if m.voices[i].note != note {
			t.Errorf("slot %d: expected note %d, got %d", i, note, m.voices[i].note)
		}
	}
}

// TestManagerNoStealPolicyDrops checks exhaustion drops notes silently
// when stealing is disabled.
func TestManagerNoStealPolicyDrops(t *testing.T) {
	m := testManager(2)
	m.setStealPolicy(STEAL_NONE)

	m.noteOn(60, 0, 1.0)
	m.noteOn(62, 0, 1.0)
	m.noteOn(64, 0, 1.0)

	if m.droppedNotes != 1 {
		t.Errorf("expected 1 dropped note, got %d", m.droppedNotes)
	}
	if m.stolenNotes != 0 {
		t.Errorf("expected no steals, got %d", m.stolenNotes)
	}
	if n := m.activeVoices(); n != 2 {
		t.Errorf("expected the pool untouched at 2 voices, got %d", n)
	}
	if voiceForNote(m, 64) != nil {
		t.Error("dropped note should not be sounding")
	}
}

// TestManagerStealsOldest checks the default policy picks the earliest
// timestamp and the parked note claims the freed slot.
func TestManagerStealsOldest(t *testing.T) {
	m := testManager(2)
	m.noteOn(60, 0, 1.0)
	runManager(m, 100)
	m.noteOn(62, 0, 1.0)
	runManager(m, 100)

	m.noteOn(64, 0, 1.0)
	if m.stolenNotes != 1 {
		t.Fatalf("expected 1 steal, got %d", m.stolenNotes)
	}
	v60 := voiceForNote(m, 60)
	if v60 == nil || !v60.stealing() {
		t.Fatal("expected the oldest voice (note 60) fading out")
	}
	if v62 := voiceForNote(m, 62); v62 == nil || v62.stealing() {
		t.Error("newer voice should be untouched")
	}

	// Quick release runs ~441 samples; the next sweep then frees the slot
	// and hands it to the parked note.
	runManager(m, 600)
	if voiceForNote(m, 64) == nil {
		t.Error("expected the parked note sounding after the steal completed")
	}
	if voiceForNote(m, 60) != nil {
		t.Error("stolen note should be gone")
	}
}

// TestManagerStealsNewest checks the newest policy inverts the choice.
func TestManagerStealsNewest(t *testing.T) {
	m := testManager(2)
	m.setStealPolicy(STEAL_NEWEST)
	m.noteOn(60, 0, 1.0)
	runManager(m, 100)
	m.noteOn(62, 0, 1.0)
	runManager(m, 100)

	m.noteOn(64, 0, 1.0)
	if v62 := voiceForNote(m, 62); v62 == nil || !v62.stealing() {
		t.Error("expected the newest voice (note 62) fading out")
	}
	if v60 := voiceForNote(m, 60); v60 == nil || v60.stealing() {
		t.Error("oldest voice should be untouched")
	}
}

// TestManagerStealsQuietest plays one soft and one loud note and checks
// the soft one loses its slot.
func TestManagerStealsQuietest(t *testing.T) {
	m := testManager(2)
	m.setStealPolicy(STEAL_QUIETEST)
	m.noteOn(60, 0, 0.3) // velocity scaling keeps this one quiet
	m.noteOn(62, 0, 1.0)
	runManager(m, 8000) // both at sustain

	m.noteOn(64, 0, 1.0)
	if v60 := voiceForNote(m, 60); v60 == nil || !v60.stealing() {
		t.Error("expected the quiet voice (note 60) fading out")
	}
	if v62 := voiceForNote(m, 62); v62 == nil || v62.stealing() {
		t.Error("loud voice should be untouched")
	}
}

// TestManagerStealSkipsDyingVoices floods a tiny pool and checks one dying
// voice does not absorb every steal, and the pending queue bounds the
// backlog.
func TestManagerStealSkipsDyingVoices(t *testing.T) {
	m := testManager(1)
	m.noteOn(60, 0, 1.0)

	// 8 more notes park; the 9th overflows the queue.
	for note := 61; note <= 69; note++ {
		m.noteOn(note, 0, 1.0)
	}
	if m.pendingLen != PENDING_NOTE_MAX {
		t.Errorf("expected a full pending queue, got %d", m.pendingLen)
	}
	if m.droppedNotes != 1 {
		t.Errorf("expected 1 overflow drop, got %d", m.droppedNotes)
	}

	// Only the first steal pays a quick release; the rest find the voice
	// already dying.
	runManager(m, 600)
	if m.voices[0].note != 61 {
		t.Errorf("expected the first parked note (61) on the freed slot, got %d", m.voices[0].note)
	}
	if m.pendingLen != PENDING_NOTE_MAX-1 {
		t.Errorf("expected the rest still parked, got %d", m.pendingLen)
	}
}

// TestManagerNoteOffReleasesAllMatching checks duplicate notes release
// together and other notes keep sounding.
func TestManagerNoteOffReleasesAllMatching(t *testing.T) {
	m := testManager(4)
	m.noteOn(60, 0, 1.0)
	m.noteOn(60, 1, 1.0)
	m.noteOn(62, 0, 1.0)

	m.noteOff(60)
	for i := 0; i < 2; i++ {
		if m.voices[i].held {
			t.Errorf("slot %d: expected note 60 released", i)
		}
		if !m.voices[i].active {
			t.Errorf("slot %d: release tail should keep the voice active", i)
		}
	}
	if !m.voices[2].held {
		t.Error("note 62 should still be held")
	}
}

// TestManagerSweepFreesFinishedVoices lets a release tail end and checks
// the slot returns to the pool.
func TestManagerSweepFreesFinishedVoices(t *testing.T) {
	m := testManager(2)
	m.noteOn(60, 0, 1.0)
	m.noteOff(60)

	// 150 ms release is 6615 samples, plus a sweep interval of slack.
	runManager(m, 7000)
	if n := m.activeVoices(); n != 0 {
		t.Errorf("expected the pool empty after the tail, got %d active", n)
	}
}

// TestManagerAllNotesOff checks the gentle stop releases everything and
// clears the backlog.
func TestManagerAllNotesOff(t *testing.T) {
	m := testManager(2)
	m.noteOn(60, 0, 1.0)
	m.noteOn(62, 0, 1.0)
	m.noteOn(64, 0, 1.0) // parks

	m.allNotesOff()
	if m.pendingLen != 0 {
		t.Errorf("expected pending queue cleared, got %d", m.pendingLen)
	}
	for i := 0; i < 2; i++ {
		if m.voices[i].held {
			t.Errorf("slot %d still held", i)
		}
	}
	runManager(m, 7000)
	if n := m.activeVoices(); n != 0 {
		t.Errorf("expected silence after tails, got %d active", n)
	}
}

// TestManagerAllSoundOff checks the panic stop is immediate.
func TestManagerAllSoundOff(t *testing.T) {
	m := testManager(4)
	m.noteOn(60, 0, 1.0)
	m.noteOn(62, 0, 1.0)
	runManager(m, 1000)

	m.allSoundOff()
	if n := m.activeVoices(); n != 0 {
		t.Fatalf("expected immediate silence, got %d active", n)
	}
	if s := m.processSample(); s != 0 {
		t.Errorf("expected zero mix after all sound off, got %f", s)
	}
}

// TestManagerSetPolyphonyShrink checks voices outside the new range stop
// immediately and the survivors keep playing.
func TestManagerSetPolyphonyShrink(t *testing.T) {
	m := testManager(4)
	for _, note := range []int{60, 62, 64, 65} {
		m.noteOn(note, 0, 1.0)
	}

	m.setPolyphony(2)
	if n := m.activeVoices(); n != 2 {
		t.Errorf("expected 2 survivors, got %d", n)
	}
	if m.voices[2].active || m.voices[3].active {
		t.Error("expected out-of-range voices hard-stopped")
	}
	if !m.voices[0].held || !m.voices[1].held {
		t.Error("expected in-range voices untouched")
	}

	m.setPolyphony(4)
	m.noteOn(67, 0, 1.0)
	if m.voices[2].note != 67 {
		t.Error("expected the regrown range to allocate again")
	}
}

// TestManagerSwitchAlgorithm checks active voices crossfade while idle
// ones swap instantly.
func TestManagerSwitchAlgorithm(t *testing.T) {
	m := testManager(2)
	g2, _ := algorithmByID(2)

	m.noteOn(60, 0, 1.0)
	runManager(m, 100)
	m.switchAlgorithm(g2, 20)

	if !m.voices[0].router.fading() {
		t.Error("active voice should crossfade")
	}
	if m.voices[1].router.fading() {
		t.Error("idle voice should swap instantly")
	}
	if m.voices[1].router.current != g2 {
		t.Error("idle voice should still pick up the new graph")
	}
	if m.currentGraph != g2 {
		t.Error("manager should track the new graph")
	}
}

// TestManagerReset checks power-on state comes back.
func TestManagerReset(t *testing.T) {
	m := testManager(2)
	m.setStealPolicy(STEAL_NONE)
	m.noteOn(60, 0, 1.0)
	m.noteOn(62, 0, 1.0)
	m.noteOn(64, 0, 1.0) // dropped
	runManager(m, 500)

	m.reset()
	if m.activeVoices() != 0 {
		t.Error("expected no active voices")
	}
	if m.droppedNotes != 0 || m.stolenNotes != 0 {
		t.Error("expected counters cleared")
	}
	if m.sampleClock != 0 || m.pendingLen != 0 {
		t.Error("expected clock and queue cleared")
	}
}
