// fm_patch.go - In-memory operator/envelope parameter sets and the built-in bank

package main

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownPatch = errors.New("unknown patch")

// OperatorPatch is the full control-path parameter set for one operator.
type OperatorPatch struct {
	FrequencyRatio  float32        `json:"frequencyRatio"`  // 0.5..12.0
	FineTuneCents   float32        `json:"fineTuneCents"`   // -50..+50
	OutputLevel     float32        `json:"outputLevel"`     // 0..1, multiplied with the envelope every sample
	ModulationIndex float32        `json:"modulationIndex"` // 0..10
	FeedbackAmount  float32        `json:"feedbackAmount"`  // 0..1; graphs with a feedback connection override this
	Envelope        EnvelopeConfig `json:"envelope"`
}

// Patch is a complete voice setup: four operators, the catalog algorithm to
// route them through, and an optional overall amplitude envelope. Patches
// are values; the engine clamps a copy before it ever reaches a voice, and
// the copy is immutable from then on.
type Patch struct {
	Name        string                       `json:"name"`
	Algorithm   int                          `json:"algorithm"`
	Operators   [NUM_OPERATORS]OperatorPatch `json:"operators"`
	AmpEnabled  bool                         `json:"ampEnabled"`
	AmpEnvelope EnvelopeConfig               `json:"ampEnvelope"`
}

// clamp forces every numeric field into its documented range in place.
func (p *Patch) clamp() {
	if p.Algorithm < 1 || p.Algorithm > NUM_ALGORITHMS {
		p.Algorithm = DEFAULT_ALGORITHM
	}
	for i := range p.Operators {
		op := &p.Operators[i]
		op.FrequencyRatio = clamp32(op.FrequencyRatio, MIN_FREQ_RATIO, MAX_FREQ_RATIO)
		op.FineTuneCents = clamp32(op.FineTuneCents, -MAX_FINE_TUNE_CENTS, MAX_FINE_TUNE_CENTS)
		op.OutputLevel = clamp32(op.OutputLevel, 0, MAX_OUTPUT_LEVEL)
		op.ModulationIndex = clamp32(op.ModulationIndex, 0, MAX_MOD_INDEX)
		op.FeedbackAmount = clamp32(op.FeedbackAmount, 0, MAX_FEEDBACK_AMOUNT)
	}
}

// applyToVoice writes the patch into one voice. Runs in render context; the
// operator setters reclamp, which keeps ad-hoc callers honest too.
func (p *Patch) applyToVoice(v *Voice) {
	for i := 0; i < NUM_OPERATORS; i++ {
		op := &p.Operators[i]
		v.operators[i].setFrequencyRatio(op.FrequencyRatio)
		v.operators[i].setFineTune(op.FineTuneCents)
		v.operators[i].setModulationIndex(op.ModulationIndex)
		v.operators[i].setFeedbackAmount(op.FeedbackAmount)
		v.opLevels[i] = clamp32(op.OutputLevel, 0, MAX_OUTPUT_LEVEL)
		v.envelopes[i].setConfig(op.Envelope)
	}
	v.ampEnabled = p.AmpEnabled
	if p.AmpEnabled {
		v.ampEnvelope.setConfig(p.AmpEnvelope)
	}
}

// envADSR is shorthand for building stage tables in the bank below.
func envADSR(attack, decay, sustain, release float32, shape CurveShape) EnvelopeConfig {
	cfg := defaultEnvelopeConfig()
	cfg.Stages[STAGE_ATTACK].Time = attack
	cfg.Stages[STAGE_ATTACK].Shape = CURVE_LOGARITHMIC
	cfg.Stages[STAGE_DECAY].Time = decay
	cfg.Stages[STAGE_DECAY].TargetLevel = sustain
	cfg.Stages[STAGE_DECAY].Shape = shape
	cfg.Stages[STAGE_SUSTAIN].TargetLevel = sustain
	cfg.Stages[STAGE_RELEASE].Time = release
	cfg.Stages[STAGE_RELEASE].Shape = shape
	return cfg
}

// The built-in bank. Ratios and envelope times are hand-tuned against the
// catalog topologies; nothing here escapes the documented ranges.
var builtinPatches = []*Patch{
	func() *Patch {
		p := &Patch{Name: "init", Algorithm: 8}
		for i := range p.Operators {
			p.Operators[i] = OperatorPatch{
				FrequencyRatio:  1.0,
				ModulationIndex: 1.0,
				Envelope:        defaultEnvelopeConfig(),
			}
		}
		p.Operators[0].OutputLevel = 1.0
		return p
	}(),
	func() *Patch {
		// Two stacked pairs: high-ratio tine transient over a warm body.
		p := &Patch{Name: "epiano", Algorithm: 5}
		p.Operators[0] = OperatorPatch{
			FrequencyRatio: 7.0, OutputLevel: 0.8, ModulationIndex: 1.0,
			Envelope: envADSR(0.002, 0.18, 0.0, 0.08, CURVE_EXPONENTIAL),
		}
		p.Operators[1] = OperatorPatch{
			FrequencyRatio: 1.0, OutputLevel: 1.0, ModulationIndex: 1.6,
			Envelope: envADSR(0.003, 1.8, 0.0, 0.35, CURVE_EXPONENTIAL),
		}
		p.Operators[2] = OperatorPatch{
			FrequencyRatio: 1.0, OutputLevel: 0.6, ModulationIndex: 0.8,
			Envelope: envADSR(0.002, 0.6, 0.0, 0.25, CURVE_EXPONENTIAL),
		}
		p.Operators[3] = OperatorPatch{
			FrequencyRatio: 1.0, FineTuneCents: 4, OutputLevel: 0.9, ModulationIndex: 1.2,
			Envelope: envADSR(0.003, 2.2, 0.0, 0.4, CURVE_EXPONENTIAL),
		}
		for i := range p.Operators {
			p.Operators[i].Envelope.VelocitySensitivity = 0.8
		}
		return p
	}(),
	func() *Patch {
		// Serial chain bass: everything feeds down to operator 3.
		p := &Patch{Name: "solidbass", Algorithm: 1}
		p.Operators[0] = OperatorPatch{
			FrequencyRatio: 1.0, OutputLevel: 0.5, ModulationIndex: 1.0,
			Envelope: envADSR(0.001, 0.09, 0.0, 0.05, CURVE_EXPONENTIAL),
		}
		p.Operators[1] = OperatorPatch{
			FrequencyRatio: 2.0, OutputLevel: 0.7, ModulationIndex: 2.2,
			Envelope: envADSR(0.001, 0.15, 0.1, 0.08, CURVE_EXPONENTIAL),
		}
		p.Operators[2] = OperatorPatch{
			FrequencyRatio: 1.0, OutputLevel: 0.8, ModulationIndex: 1.4,
			Envelope: envADSR(0.001, 0.3, 0.4, 0.1, CURVE_EXPONENTIAL),
		}
		p.Operators[3] = OperatorPatch{
			FrequencyRatio: 0.5, OutputLevel: 1.0, ModulationIndex: 1.8,
			Envelope: envADSR(0.001, 0.5, 0.6, 0.12, CURVE_EXPONENTIAL),
		}
		for i := range p.Operators {
			p.Operators[i].Envelope.VelocitySensitivity = 0.6
			p.Operators[i].Envelope.KeyTracking = -0.3
		}
		return p
	}(),
	func() *Patch {
		// Inharmonic bell: detuned high-ratio modulators, long tails.
		p := &Patch{Name: "bell", Algorithm: 4}
		p.Operators[0] = OperatorPatch{
			FrequencyRatio: 3.5, FineTuneCents: 17, OutputLevel: 0.9, ModulationIndex: 1.0,
			Envelope: envADSR(0.001, 2.5, 0.0, 1.2, CURVE_EXPONENTIAL),
		}
		p.Operators[1] = OperatorPatch{
			FrequencyRatio: 1.0, OutputLevel: 1.0, ModulationIndex: 2.4,
			Envelope: envADSR(0.001, 3.5, 0.0, 2.0, CURVE_EXPONENTIAL),
		}
		p.Operators[2] = OperatorPatch{
			FrequencyRatio: 5.2, FineTuneCents: -23, OutputLevel: 0.5, ModulationIndex: 1.0,
			Envelope: envADSR(0.001, 1.4, 0.0, 0.8, CURVE_EXPONENTIAL),
		}
		p.Operators[3] = OperatorPatch{
			FrequencyRatio: 1.0, FineTuneCents: 6, OutputLevel: 0.9, ModulationIndex: 1.8,
			Envelope: envADSR(0.001, 4.0, 0.0, 2.5, CURVE_EXPONENTIAL),
		}
		return p
	}(),
	func() *Patch {
		// Common modulator into three carriers, slow swell.
		p := &Patch{Name: "brass", Algorithm: 6}
		p.Operators[0] = OperatorPatch{
			FrequencyRatio: 1.0, OutputLevel: 0.8, ModulationIndex: 1.0,
			Envelope: envADSR(0.08, 0.2, 0.8, 0.15, CURVE_LINEAR),
		}
		p.Operators[1] = OperatorPatch{
			FrequencyRatio: 1.0, OutputLevel: 1.0, ModulationIndex: 2.0,
			Envelope: envADSR(0.06, 0.25, 0.85, 0.2, CURVE_LINEAR),
		}
		p.Operators[2] = OperatorPatch{
			FrequencyRatio: 2.0, FineTuneCents: -8, OutputLevel: 0.7, ModulationIndex: 1.5,
			Envelope: envADSR(0.09, 0.3, 0.75, 0.2, CURVE_LINEAR),
		}
		p.Operators[3] = OperatorPatch{
			FrequencyRatio: 1.0, FineTuneCents: 9, OutputLevel: 0.8, ModulationIndex: 1.5,
			Envelope: envADSR(0.11, 0.3, 0.8, 0.25, CURVE_LINEAR),
		}
		for i := range p.Operators {
			p.Operators[i].Envelope.VelocitySensitivity = 0.4
		}
		return p
	}(),
	func() *Patch {
		// Looping tremolo pad on four parallel carriers.
		p := &Patch{Name: "pulsepad", Algorithm: 8}
		ratios := [NUM_OPERATORS]float32{1.0, 2.0, 3.0, 0.5}
		tunes := [NUM_OPERATORS]float32{0, 7, -5, 3}
		for i := range p.Operators {
			env := envADSR(0.4, 0.5, 0.6, 0.9, CURVE_COSINE)
			env.LoopEnabled = true
			env.LoopStart = STAGE_ATTACK
			env.Trigger = TRIGGER_LEGATO
			p.Operators[i] = OperatorPatch{
				FrequencyRatio:  ratios[i],
				FineTuneCents:   tunes[i],
				OutputLevel:     0.8,
				ModulationIndex: 1.0,
				Envelope:        env,
			}
		}
		p.AmpEnabled = true
		p.AmpEnvelope = envADSR(0.6, 0.4, 0.8, 1.4, CURVE_COSINE)
		return p
	}(),
}

// patchByName resolves a bank entry, case-insensitive.
func patchByName(name string) (*Patch, error) {
	for _, p := range builtinPatches {
		if strings.EqualFold(p.Name, name) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownPatch, name)
}

// patchNames lists the bank in order.
func patchNames() []string {
	names := make([]string, len(builtinPatches))
	for i, p := range builtinPatches {
		names[i] = p.Name
	}
	return names
}

func init() {
	for _, p := range builtinPatches {
		p.clamp()
	}
}
