// fm_operator.go - FM operator: band-limited phase-accumulator oscillator

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

// Operator is one phase-accumulator oscillator inside an FM voice. It reads
// the shared sine table at a phase offset by external modulation and its own
// one-sample-delayed feedback, applies PolyBLEP correction when the increment
// pushes content above a quarter of Nyquist, and scales by its output level.
type Operator struct {
	// Hot fields read/written every sample (cache line 1)
	phase           float32 // always in [0, SINE_TABLE_SIZE)
	phaseIncrement  float32 // table-index units per sample
	outputLevel     float32 // 0..1
	modulationIndex float32 // 0..10, scales external modulation
	feedbackAmount  float32 // 0..1, scales lastOutput into the lookup
	lastOutput      float32 // previous sample, feeds the delayed loop

	// Control-path fields, touched only on parameter writes
	baseFrequency  float32 // Hz
	frequencyRatio float32 // 0.5..12.0
	fineTuneCents  float32 // -50..+50
	sampleRate     float32
}

func newOperator(sampleRate float32) *Operator {
	op := &Operator{
		outputLevel:     1.0,
		modulationIndex: 1.0,
		frequencyRatio:  1.0,
		sampleRate:      sampleRate,
	}
	return op
}

// updatePhaseIncrement rederives the per-sample step from frequency, ratio
// and fine tune. The normalized increment is clamped to [0, 0.5] (Nyquist)
// before scaling into table-index units.
func (op *Operator) updatePhaseIncrement() {
	freq := op.baseFrequency * op.frequencyRatio
	if op.fineTuneCents != 0 {
		freq *= float32(math.Pow(2, float64(op.fineTuneCents)/1200.0))
	}
	norm := freq / op.sampleRate
	if norm < 0 {
		norm = 0
	} else if norm > MAX_PHASE_INC_RATIO {
		norm = MAX_PHASE_INC_RATIO
	}
	op.phaseIncrement = norm * SINE_TABLE_SIZE
}

func (op *Operator) setFrequency(hz float32) {
	if hz < 0 {
		hz = 0
	}
	op.baseFrequency = hz
	op.updatePhaseIncrement()
}

func (op *Operator) setFrequencyRatio(ratio float32) {
	op.frequencyRatio = clamp32(ratio, MIN_FREQ_RATIO, MAX_FREQ_RATIO)
	op.updatePhaseIncrement()
}

func (op *Operator) setFineTune(cents float32) {
	op.fineTuneCents = clamp32(cents, -MAX_FINE_TUNE_CENTS, MAX_FINE_TUNE_CENTS)
	op.updatePhaseIncrement()
}

func (op *Operator) setOutputLevel(level float32) {
	op.outputLevel = clamp32(level, 0, MAX_OUTPUT_LEVEL)
}

func (op *Operator) setModulationIndex(index float32) {
	op.modulationIndex = clamp32(index, 0, MAX_MOD_INDEX)
}

func (op *Operator) setFeedbackAmount(amount float32) {
	op.feedbackAmount = clamp32(amount, 0, MAX_FEEDBACK_AMOUNT)
}

// processSample produces one sample given the summed modulation input from
// upstream operators. Feedback uses the previous sample's scaled output, so
// the loop is one sample late; that approximation is deliberate and keeps
// per-sample cost fixed instead of iterating a fixed point.
//
//go:nosplit
func (op *Operator) processSample(modulationInput float32) float32 {
	scaledMod := modulationInput*op.modulationIndex + op.lastOutput*op.feedbackAmount
	sample := tableSine(op.phase + scaledMod*SINE_TABLE_SIZE)

	if op.phaseIncrement > POLYBLEP_THRESHOLD {
		sample -= polyBLEP32(op.phase*invTableSize, op.phaseIncrement*invTableSize)
	}

	op.phase += op.phaseIncrement
	if op.phase >= SINE_TABLE_SIZE {
		op.phase -= SINE_TABLE_SIZE
	}

	sample *= op.outputLevel
	op.lastOutput = sample
	return sample
}

// processBlock fills out[] from modulation[] (nil means unmodulated) and is
// numerically identical to calling processSample len(out) times. With
// feedback engaged every sample depends on the previous output, so the
// staged passes only run on the feedback-free path.
func (op *Operator) processBlock(modulation []float32, out []float32) {
	if op.feedbackAmount != 0 {
		if modulation == nil {
			for i := range out {
				out[i] = op.processSample(0)
			}
		} else {
			for i := range out {
				out[i] = op.processSample(modulation[i])
			}
		}
		return
	}

	// Pass 1: phase ramp
	ph := op.phase
	inc := op.phaseIncrement
	for i := range out {
		out[i] = ph
		ph += inc
		if ph >= SINE_TABLE_SIZE {
			ph -= SINE_TABLE_SIZE
		}
	}

	// Pass 2: table gather with modulation offset, linear interpolation
	if modulation == nil {
		for i := range out {
			out[i] = tableSine(out[i])
		}
	} else {
		mi := op.modulationIndex
		for i := range out {
			out[i] = tableSine(out[i] + modulation[i]*mi*SINE_TABLE_SIZE)
		}
	}

	// Pass 3: PolyBLEP correction on the original ramp positions
	if inc > POLYBLEP_THRESHOLD {
		ph = op.phase
		dt := inc * invTableSize
		for i := range out {
			out[i] -= polyBLEP32(ph*invTableSize, dt)
			ph += inc
			if ph >= SINE_TABLE_SIZE {
				ph -= SINE_TABLE_SIZE
			}
		}
	}

	// Pass 4: output scale
	level := op.outputLevel
	for i := range out {
		out[i] *= level
	}

	op.phase = ph
	if n := len(out); n > 0 {
		op.lastOutput = out[n-1]
	}
}

// reset zeroes phase and feedback history. Parameters are left alone so a
// repurposed voice keeps its patch.
func (op *Operator) reset() {
	op.phase = 0
	op.lastOutput = 0
}

func clamp32(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
