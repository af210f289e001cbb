// fm_patch_test.go - Tests for the patch model and the built-in bank

package main

import (
	"errors"
	"testing"
)

func TestPatchBankResolves(t *testing.T) {
	want := []string{"init", "epiano", "solidbass", "bell", "brass", "pulsepad"}

	names := patchNames()
	if len(names) != len(want) {
		t.Fatalf("bank has %d patches, want %d: %v", len(names), len(want), names)
	}
	for i, name := range want {
		if names[i] != name {
			t.Errorf("bank[%d] = %q, want %q", i, names[i], name)
		}
		if _, err := patchByName(name); err != nil {
			t.Errorf("patchByName(%q) failed: %v", name, err)
		}
	}

	// Lookup is case-insensitive
	if p, err := patchByName("EPiano"); err != nil || p.Name != "epiano" {
		t.Errorf("patchByName(EPiano) = %v, %v", p, err)
	}

	if _, err := patchByName("no-such-patch"); !errors.Is(err, ErrUnknownPatch) {
		t.Errorf("unknown patch error = %v, want ErrUnknownPatch", err)
	}
	if _, err := patchByName(""); err == nil {
		t.Error("empty patch name resolved")
	}
}

// TestPatchBankStaysInRange guards the hand-tuned tables: every operator
// parameter must already sit inside its documented range, so the init-time
// clamp never silently rewrites a patch.
func TestPatchBankStaysInRange(t *testing.T) {
	for _, p := range builtinPatches {
		if p.Algorithm < 1 || p.Algorithm > NUM_ALGORITHMS {
			t.Errorf("%s: algorithm %d out of range", p.Name, p.Algorithm)
		}
		for i, op := range p.Operators {
			if op.FrequencyRatio < MIN_FREQ_RATIO || op.FrequencyRatio > MAX_FREQ_RATIO {
				t.Errorf("%s op %d: ratio %v out of range", p.Name, i, op.FrequencyRatio)
			}
			if op.FineTuneCents < -MAX_FINE_TUNE_CENTS || op.FineTuneCents > MAX_FINE_TUNE_CENTS {
				t.Errorf("%s op %d: fine tune %v out of range", p.Name, i, op.FineTuneCents)
			}
			if op.OutputLevel < 0 || op.OutputLevel > MAX_OUTPUT_LEVEL {
				t.Errorf("%s op %d: level %v out of range", p.Name, i, op.OutputLevel)
			}
			if op.ModulationIndex < 0 || op.ModulationIndex > MAX_MOD_INDEX {
				t.Errorf("%s op %d: mod index %v out of range", p.Name, i, op.ModulationIndex)
			}
			if op.FeedbackAmount < 0 || op.FeedbackAmount > MAX_FEEDBACK_AMOUNT {
				t.Errorf("%s op %d: feedback %v out of range", p.Name, i, op.FeedbackAmount)
			}
		}
	}
}

func TestPatchClamp(t *testing.T) {
	p := Patch{Algorithm: 99}
	p.Operators[0] = OperatorPatch{
		FrequencyRatio:  99,
		FineTuneCents:   500,
		OutputLevel:     2,
		ModulationIndex: 50,
		FeedbackAmount:  5,
	}
	p.Operators[1] = OperatorPatch{
		FrequencyRatio: 0.1,
		FineTuneCents:  -500,
		OutputLevel:    -1,
	}
	p.clamp()

	if p.Algorithm != DEFAULT_ALGORITHM {
		t.Errorf("algorithm %d, want default %d", p.Algorithm, DEFAULT_ALGORITHM)
	}
	op := p.Operators[0]
	if op.FrequencyRatio != MAX_FREQ_RATIO || op.FineTuneCents != MAX_FINE_TUNE_CENTS {
		t.Errorf("high clamps: ratio %v tune %v", op.FrequencyRatio, op.FineTuneCents)
	}
	if op.OutputLevel != MAX_OUTPUT_LEVEL || op.ModulationIndex != MAX_MOD_INDEX || op.FeedbackAmount != MAX_FEEDBACK_AMOUNT {
		t.Errorf("high clamps: level %v index %v feedback %v",
			op.OutputLevel, op.ModulationIndex, op.FeedbackAmount)
	}
	op = p.Operators[1]
	if op.FrequencyRatio != MIN_FREQ_RATIO || op.FineTuneCents != -MAX_FINE_TUNE_CENTS || op.OutputLevel != 0 {
		t.Errorf("low clamps: ratio %v tune %v level %v",
			op.FrequencyRatio, op.FineTuneCents, op.OutputLevel)
	}
}

func TestPatchApplyToVoice(t *testing.T) {
	graph, err := algorithmByID(8)
	if err != nil {
		t.Fatal(err)
	}
	v := newVoice(0, 44100, graph)

	p, err := patchByName("epiano")
	if err != nil {
		t.Fatal(err)
	}
	p.applyToVoice(v)

	for i := 0; i < NUM_OPERATORS; i++ {
		op := p.Operators[i]
		if v.opLevels[i] != op.OutputLevel {
			t.Errorf("op %d level %v, want %v", i, v.opLevels[i], op.OutputLevel)
		}
		if v.operators[i].frequencyRatio != op.FrequencyRatio {
			t.Errorf("op %d ratio %v, want %v", i, v.operators[i].frequencyRatio, op.FrequencyRatio)
		}
		if v.operators[i].modulationIndex != op.ModulationIndex {
			t.Errorf("op %d mod index %v, want %v", i, v.operators[i].modulationIndex, op.ModulationIndex)
		}
		if v.operators[i].fineTuneCents != op.FineTuneCents {
			t.Errorf("op %d fine tune %v, want %v", i, v.operators[i].fineTuneCents, op.FineTuneCents)
		}
	}
	if v.ampEnabled {
		t.Error("epiano enables the amp envelope")
	}

	pad, err := patchByName("pulsepad")
	if err != nil {
		t.Fatal(err)
	}
	pad.applyToVoice(v)
	if !v.ampEnabled {
		t.Error("pulsepad does not enable the amp envelope")
	}
}

func TestEnvADSRShorthand(t *testing.T) {
	cfg := envADSR(0.1, 0.2, 0.5, 0.3, CURVE_EXPONENTIAL)

	atk := cfg.Stages[STAGE_ATTACK]
	if atk.Time != 0.1 || atk.Shape != CURVE_LOGARITHMIC {
		t.Errorf("attack %+v, want 0.1s logarithmic", atk)
	}
	dec := cfg.Stages[STAGE_DECAY]
	if dec.Time != 0.2 || dec.TargetLevel != 0.5 || dec.Shape != CURVE_EXPONENTIAL {
		t.Errorf("decay %+v", dec)
	}
	if sus := cfg.Stages[STAGE_SUSTAIN]; sus.TargetLevel != 0.5 {
		t.Errorf("sustain target %v, want 0.5", sus.TargetLevel)
	}
	rel := cfg.Stages[STAGE_RELEASE]
	if rel.Time != 0.3 || rel.Shape != CURVE_EXPONENTIAL {
		t.Errorf("release %+v", rel)
	}
}
