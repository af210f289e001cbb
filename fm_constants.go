// fm_constants.go - FM synthesis engine constants, ranges and enums

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

import "fmt"

const (
	SAMPLE_RATE = 44100

	NUM_OPERATORS  = 4
	NUM_ALGORITHMS = 8

	// 4 operators give at most a full 4x4 connection matrix.
	MAX_CONNECTIONS = NUM_OPERATORS * NUM_OPERATORS
)

const (
	SINE_TABLE_SIZE = 8192
	SINE_TABLE_MASK = SINE_TABLE_SIZE - 1
)

const (
	// PolyBLEP correction kicks in once the increment passes a quarter
	// of the table per sample (content above a quarter of Nyquist).
	POLYBLEP_THRESHOLD = 0.25 * SINE_TABLE_SIZE

	// Damping applied to feedback connection amounts before they reach
	// the operator. Keeps the one-sample-delayed loop from screaming.
	FEEDBACK_ATTENUATION = 0.1

	// Max phase increment as a fraction of the table per sample (Nyquist).
	MAX_PHASE_INC_RATIO = 0.5
)

const (
	MIN_FREQ_RATIO = 0.5
	MAX_FREQ_RATIO = 12.0

	MAX_FINE_TUNE_CENTS = 50.0 // +/- half a semitone

	MAX_OUTPUT_LEVEL    = 1.0
	MAX_MOD_INDEX       = 10.0
	MAX_FEEDBACK_AMOUNT = 1.0
)

const (
	MS_TO_SAMPLES = SAMPLE_RATE / 1000 // Convert milliseconds to samples

	// Envelope level below which a voice counts as silent.
	LEVEL_EPSILON = 0.001

	// Forced release applied to stolen voices.
	QUICK_RELEASE_MS = 10.0

	MAX_ENV_STAGE_SECONDS = 60.0
)

const (
	DEFAULT_POLYPHONY = 16
	MAX_POLYPHONY     = 64

	DEFAULT_ALGORITHM = 1

	// Default crossfade window when switching algorithms.
	DEFAULT_FADE_MS = 20.0
)

const (
	MAX_SAMPLE = 1.0
	MIN_SAMPLE = -1.0
)

// EnvelopeStage is the envelope state machine position.
type EnvelopeStage int

const (
	STAGE_IDLE EnvelopeStage = iota
	STAGE_DELAY
	STAGE_ATTACK
	STAGE_DECAY
	STAGE_SUSTAIN
	STAGE_RELEASE
	NUM_STAGES
)

// CurveShape selects the interpolation law applied to stage progress.
type CurveShape int

const (
	CURVE_LINEAR CurveShape = iota
	CURVE_EXPONENTIAL
	CURVE_LOGARITHMIC
	CURVE_SINE
	CURVE_COSINE
	CURVE_POWER // uses the stage's curvePower exponent
	CURVE_INVERSE
)

// TriggerMode controls how noteOn treats an envelope that is already running.
type TriggerMode int

const (
	TRIGGER_RETRIGGER TriggerMode = iota // reset level to 0, restart
	TRIGGER_LEGATO                       // keep current level, restart stages
	TRIGGER_RESET                        // force idle, start on next sample
)

// StealPolicy picks the victim when the voice pool is exhausted.
type StealPolicy int

const (
	STEAL_OLDEST StealPolicy = iota
	STEAL_QUIETEST
	STEAL_NEWEST
	STEAL_NONE
)

func (p StealPolicy) String() string {
	switch p {
	case STEAL_OLDEST:
		return "oldest"
	case STEAL_QUIETEST:
		return "quietest"
	case STEAL_NEWEST:
		return "newest"
	case STEAL_NONE:
		return "none"
	}
	return "unknown"
}

// parseStealPolicy maps a flag or API spelling to a StealPolicy.
func parseStealPolicy(name string) (StealPolicy, error) {
	switch name {
	case "oldest":
		return STEAL_OLDEST, nil
	case "quietest":
		return STEAL_QUIETEST, nil
	case "newest":
		return STEAL_NEWEST, nil
	case "none":
		return STEAL_NONE, nil
	}
	return 0, fmt.Errorf("unknown steal policy %q (oldest, quietest, newest, none)", name)
}

func (s EnvelopeStage) String() string {
	switch s {
	case STAGE_IDLE:
		return "idle"
	case STAGE_DELAY:
		return "delay"
	case STAGE_ATTACK:
		return "attack"
	case STAGE_DECAY:
		return "decay"
	case STAGE_SUSTAIN:
		return "sustain"
	case STAGE_RELEASE:
		return "release"
	}
	return "unknown"
}
