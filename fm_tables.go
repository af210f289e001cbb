// fm_tables.go - Shared lookup tables for the FM synthesis hot path

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

const (
	tanhLUTSize = 4096
	tanhLUTMin  = float32(-4.0)
	tanhLUTMax  = float32(4.0)
)

const (
	TWO_PI float32 = 2 * math.Pi

	tanhLUTScale = float32(tanhLUTSize-1) / (tanhLUTMax - tanhLUTMin)
	invTableSize = float32(1.0) / SINE_TABLE_SIZE
)

// sineTable holds one full sine cycle addressed in table-index units.
// Operators keep their phase in [0, SINE_TABLE_SIZE) and modulation is
// expressed as an index offset, so lookup never converts to radians.
// Immutable after init, shared read-only across all voices.
var sineTable [SINE_TABLE_SIZE]float32

// tanhLUT covers [-4, 4]; tanh saturates to ±1 outside that range.
var tanhLUT [tanhLUTSize]float32

func init() {
	for i := 0; i < SINE_TABLE_SIZE; i++ {
		sineTable[i] = float32(math.Sin(2 * math.Pi * float64(i) / float64(SINE_TABLE_SIZE)))
	}
	for i := 0; i < tanhLUTSize; i++ {
		x := float64(tanhLUTMin) + float64(i)*float64(tanhLUTMax-tanhLUTMin)/float64(tanhLUTSize-1)
		tanhLUT[i] = float32(math.Tanh(x))
	}
}

// wrapTableIndex brings an arbitrary index (modulated lookups reach several
// table lengths in either direction) back into [0, SINE_TABLE_SIZE).
//
//go:nosplit
func wrapTableIndex(idx float32) float32 {
	if idx >= 0 && idx < SINE_TABLE_SIZE {
		return idx
	}
	idx -= SINE_TABLE_SIZE * float32(int(idx*invTableSize))
	if idx < 0 {
		idx += SINE_TABLE_SIZE
	}
	if idx >= SINE_TABLE_SIZE {
		idx -= SINE_TABLE_SIZE
	}
	return idx
}

// tableSine returns the sine value at a fractional table index with linear
// interpolation between adjacent entries. Accepts any index and wraps.
//
//go:nosplit
func tableSine(idx float32) float32 {
	idx = wrapTableIndex(idx)
	i := int(idx)
	frac := idx - float32(i)
	i &= SINE_TABLE_MASK
	next := (i + 1) & SINE_TABLE_MASK
	return sineTable[i] + frac*(sineTable[next]-sineTable[i])
}

// fastSin returns sin(phase) for phase in radians, wrapping as needed.
// Used at control rate (crossfade curve); operators go through tableSine.
//
//go:nosplit
func fastSin(phase float32) float32 {
	if phase < 0 {
		phase += TWO_PI
		if phase < 0 {
			phase = phase - TWO_PI*float32(int(phase/TWO_PI)-1)
		}
	} else if phase >= TWO_PI {
		phase = phase - TWO_PI*float32(int(phase/TWO_PI))
	}
	return tableSine(phase * (SINE_TABLE_SIZE / TWO_PI))
}

// fastTanh returns tanh(x) via lookup with linear interpolation, clamped to
// ±1 outside [-4, 4]. Final-mix soft clip guard.
//
//go:nosplit
func fastTanh(x float32) float32 {
	if x <= tanhLUTMin {
		return -1.0
	}
	if x >= tanhLUTMax {
		return 1.0
	}
	indexF := (x - tanhLUTMin) * tanhLUTScale
	index := int(indexF)
	frac := indexF - float32(index)
	if index >= tanhLUTSize-1 {
		return tanhLUT[tanhLUTSize-1]
	}
	return tanhLUT[index] + frac*(tanhLUT[index+1]-tanhLUT[index])
}

// polyBLEP32 applies polynomial band-limited step correction.
// t is the normalized phase position (0.0-1.0)
// dt is the phase increment per sample (frequency/sampleRate)
//
//go:nosplit
func polyBLEP32(t, dt float32) float32 {
	if t < dt {
		// Leading edge correction
		t /= dt
		return t + t - t*t - 1.0
	} else if t > 1.0-dt {
		// Trailing edge correction
		t = (t - 1.0) / dt
		return t*t + t + t + 1.0
	}
	return 0.0
}

// raisedSineFade maps linear progress t in [0,1] onto the raised-sine
// crossfade curve 0.5*(1+sin(pi*(t-0.5))): starts at 0, ends at 1 with
// zero slope at both ends.
func raisedSineFade(t float32) float32 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	return 0.5 * (1 + fastSin(math.Pi*(t-0.5)))
}
