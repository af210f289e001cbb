// fm_envelope.go - Multi-stage curved envelope generator with velocity and key tracking

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

import "math"

// EnvelopeStageConfig describes one stage: how long it runs, where it lands,
// and the curve that gets it there. Power only applies to CURVE_POWER and
// CURVE_INVERSE.
type EnvelopeStageConfig struct {
	Time        float32    `json:"time"`        // seconds
	TargetLevel float32    `json:"targetLevel"` // 0..1
	Shape       CurveShape `json:"shape"`
	Power       float32    `json:"power"`
}

// EnvelopeConfig is the full control-path parameter set for one envelope.
// Stages is indexed by EnvelopeStage; the idle slot is unused.
type EnvelopeConfig struct {
	Stages              [NUM_STAGES]EnvelopeStageConfig `json:"stages"`
	VelocitySensitivity float32                         `json:"velocitySensitivity"` // 0..1, how much velocity shapes levels
	KeyTracking         float32                         `json:"keyTracking"`         // -1..1, scales stage times across the keyboard
	Trigger             TriggerMode                     `json:"trigger"`
	LoopEnabled         bool                            `json:"loopEnabled"`
	LoopStart           EnvelopeStage                   `json:"loopStart"` // stage sustain jumps back to while held
}

// defaultEnvelopeConfig is a plain percussive ADSR: no delay, quick attack,
// moderate decay to a 0.7 sustain, 150 ms release.
func defaultEnvelopeConfig() EnvelopeConfig {
	cfg := EnvelopeConfig{
		VelocitySensitivity: 0.5,
		Trigger:             TRIGGER_RETRIGGER,
		LoopStart:           STAGE_ATTACK,
	}
	cfg.Stages[STAGE_DELAY] = EnvelopeStageConfig{Time: 0, TargetLevel: 0, Shape: CURVE_LINEAR, Power: 1}
	cfg.Stages[STAGE_ATTACK] = EnvelopeStageConfig{Time: 0.005, TargetLevel: 1.0, Shape: CURVE_LOGARITHMIC, Power: 1}
	cfg.Stages[STAGE_DECAY] = EnvelopeStageConfig{Time: 0.120, TargetLevel: 0.7, Shape: CURVE_EXPONENTIAL, Power: 1}
	cfg.Stages[STAGE_SUSTAIN] = EnvelopeStageConfig{Time: 0, TargetLevel: 0.7, Shape: CURVE_LINEAR, Power: 1}
	cfg.Stages[STAGE_RELEASE] = EnvelopeStageConfig{Time: 0.150, TargetLevel: 0, Shape: CURVE_EXPONENTIAL, Power: 1}
	return cfg
}

// EnvelopeGenerator walks idle > delay > attack > decay > sustain > release >
// idle, shaping each stage's progress through its configured curve and
// interpolating from the level at stage entry to the stage target. One
// instance drives one operator's output level.
type EnvelopeGenerator struct {
	// Hot fields advanced every sample
	stage           EnvelopeStage
	currentLevel    float32
	targetLevel     float32
	stageStartLevel float32
	stageProgress   float32 // 0..1 within the stage
	stageRate       float32 // progress per sample
	noteHeld        bool
	pendingRestart  bool // reset trigger mode arms this; fires next sample

	// Per-note scaling, computed at noteOn
	velocity      float32
	noteNumber    int
	velocityScale float32
	keyTrackScale float32
	loopCount     int

	cfg        EnvelopeConfig
	sampleRate float32
	sampleTime float32
}

func newEnvelopeGenerator(sampleRate float32) *EnvelopeGenerator {
	e := &EnvelopeGenerator{
		stage:         STAGE_IDLE,
		velocityScale: 1,
		keyTrackScale: 1,
		sampleRate:    sampleRate,
		sampleTime:    1.0 / sampleRate,
	}
	e.cfg = defaultEnvelopeConfig()
	return e
}

// setConfig clamps and installs a new parameter set. Takes effect at the
// next stage entry; the running stage keeps its rate.
func (e *EnvelopeGenerator) setConfig(cfg EnvelopeConfig) {
	for i := range cfg.Stages {
		s := &cfg.Stages[i]
		s.Time = clamp32(s.Time, 0, MAX_ENV_STAGE_SECONDS)
		s.TargetLevel = clamp32(s.TargetLevel, 0, 1)
		if s.Power <= 0 {
			s.Power = 1
		}
		s.Power = clamp32(s.Power, 0.1, 10)
	}
	cfg.VelocitySensitivity = clamp32(cfg.VelocitySensitivity, 0, 1)
	cfg.KeyTracking = clamp32(cfg.KeyTracking, -1, 1)
	if cfg.LoopStart < STAGE_DELAY || cfg.LoopStart > STAGE_DECAY {
		cfg.LoopStart = STAGE_ATTACK
	}
	e.cfg = cfg
}

// noteOn arms the envelope for a new note. Velocity is normalized 0..1.
func (e *EnvelopeGenerator) noteOn(velocity float32, note int) {
	e.velocity = clamp32(velocity, 0, 1)
	e.noteNumber = note
	e.noteHeld = true
	e.loopCount = 0

	// Quadratic velocity curve; sensitivity blends between flat response
	// and the full curve.
	curved := e.velocity * e.velocity
	e.velocityScale = 1 + e.cfg.VelocitySensitivity*(curved-1)
	e.keyTrackScale = float32(math.Pow(2, float64(note-60)/12.0*float64(e.cfg.KeyTracking)))

	switch e.cfg.Trigger {
	case TRIGGER_RETRIGGER:
		e.currentLevel = 0
		e.pendingRestart = false
		e.startFirstStage()
	case TRIGGER_LEGATO:
		e.pendingRestart = false
		e.startFirstStage()
	case TRIGGER_RESET:
		e.stage = STAGE_IDLE
		e.pendingRestart = true
	}
}

// noteOff moves to release from wherever the level is now.
func (e *EnvelopeGenerator) noteOff() {
	e.noteHeld = false
	e.pendingRestart = false
	if e.stage != STAGE_IDLE {
		e.enterStage(STAGE_RELEASE)
	}
}

// quickRelease forces a short fixed release so a stolen voice gets out of
// the way without clicking.
func (e *EnvelopeGenerator) quickRelease() {
	e.noteHeld = false
	e.pendingRestart = false
	if e.stage == STAGE_IDLE {
		return
	}
	e.enterStage(STAGE_RELEASE)
	e.targetLevel = 0
	e.stageRate = e.sampleTime / (QUICK_RELEASE_MS / 1000.0)
}

// processSample advances one sample and returns the current level.
func (e *EnvelopeGenerator) processSample() float32 {
	if e.stage == STAGE_IDLE {
		if !e.pendingRestart {
			return e.currentLevel
		}
		e.pendingRestart = false
		e.currentLevel = 0
		e.startFirstStage()
	}

	if e.stage == STAGE_SUSTAIN {
		if e.cfg.LoopEnabled && e.noteHeld {
			e.loopCount++
			e.enterStage(e.cfg.LoopStart)
		} else {
			e.currentLevel = e.targetLevel
			return e.currentLevel
		}
	}

	c := &e.cfg.Stages[e.stage]
	e.stageProgress += e.stageRate
	if e.stageProgress > 1 {
		e.stageProgress = 1
	}
	shaped := curveValue(c.Shape, c.Power, e.stageProgress)
	e.currentLevel = e.stageStartLevel + (e.targetLevel-e.stageStartLevel)*shaped

	if e.stageProgress >= 1 {
		e.advanceStage()
	}
	return e.currentLevel
}

// isActive is false only when the envelope sits idle below the silence
// threshold with nothing pending.
func (e *EnvelopeGenerator) isActive() bool {
	return !(e.stage == STAGE_IDLE && e.currentLevel < LEVEL_EPSILON && !e.pendingRestart)
}

// reset drops straight to idle silence. Configuration survives.
func (e *EnvelopeGenerator) reset() {
	e.stage = STAGE_IDLE
	e.currentLevel = 0
	e.targetLevel = 0
	e.stageStartLevel = 0
	e.stageProgress = 0
	e.stageRate = 0
	e.noteHeld = false
	e.pendingRestart = false
	e.loopCount = 0
}

func (e *EnvelopeGenerator) startFirstStage() {
	if e.cfg.Stages[STAGE_DELAY].Time > 0 {
		e.enterStage(STAGE_DELAY)
	} else {
		e.enterStage(STAGE_ATTACK)
	}
}

// enterStage resets progress, latches the start level and derives the stage
// rate. Zero-length stages complete on their first sample.
func (e *EnvelopeGenerator) enterStage(s EnvelopeStage) {
	e.stage = s
	e.stageProgress = 0
	e.stageStartLevel = e.currentLevel

	c := &e.cfg.Stages[s]
	t := c.Time * e.keyTrackScale
	if t <= 0 {
		e.stageRate = 1
	} else {
		e.stageRate = e.sampleTime / t
	}

	switch s {
	case STAGE_DELAY:
		// Delay holds the entry level; nothing moves yet.
		e.targetLevel = e.currentLevel
	case STAGE_ATTACK, STAGE_DECAY, STAGE_SUSTAIN:
		e.targetLevel = c.TargetLevel * e.velocityScale
	case STAGE_RELEASE:
		e.targetLevel = c.TargetLevel
	default:
		e.targetLevel = 0
	}
}

func (e *EnvelopeGenerator) advanceStage() {
	switch e.stage {
	case STAGE_DELAY:
		e.enterStage(STAGE_ATTACK)
	case STAGE_ATTACK:
		e.enterStage(STAGE_DECAY)
	case STAGE_DECAY:
		e.enterStage(STAGE_SUSTAIN)
	case STAGE_RELEASE:
		e.currentLevel = e.targetLevel
		e.stage = STAGE_IDLE
	}
}

// Curve denominators, fixed so the hot path divides by precomputed values.
var (
	expCurveDenom = float32(math.Exp(4) - 1)
	logCurveDenom = float32(math.Log(10))
)

// curveValue maps linear stage progress t in [0,1] onto the configured
// shape, also in [0,1]. Every shape is monotonically increasing, which is
// what keeps release tails monotone.
func curveValue(shape CurveShape, power, t float32) float32 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	switch shape {
	case CURVE_LINEAR:
		return t
	case CURVE_EXPONENTIAL:
		// Slow start, sharp finish: (e^4t - 1) / (e^4 - 1)
		return float32(math.Exp(4*float64(t))-1) / expCurveDenom
	case CURVE_LOGARITHMIC:
		// Sharp start, slow finish: ln(1 + 9t) / ln(10)
		return float32(math.Log(1+9*float64(t))) / logCurveDenom
	case CURVE_SINE:
		// Quarter sine: eases into the target
		return fastSin(t * (math.Pi / 2))
	case CURVE_COSINE:
		// Raised cosine S-curve: 0.5 - 0.5*cos(pi*t)
		return raisedSineFade(t)
	case CURVE_POWER:
		return float32(math.Pow(float64(t), float64(power)))
	case CURVE_INVERSE:
		// Mirrored power curve: 1 - (1-t)^p
		return 1 - float32(math.Pow(float64(1-t), float64(power)))
	}
	return t
}
