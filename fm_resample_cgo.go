//go:build cgo

// fm_resample_cgo.go - Renderer output-rate conversion via libsamplerate

package main

import "github.com/dh1tw/gosamplerate"

// resampleSimple converts mono samples by ratio with libsamplerate's best
// sinc converter.
func resampleSimple(samples []float32, ratio float64) ([]float32, error) {
	return gosamplerate.Simple(samples, ratio, 1, gosamplerate.SRC_SINC_BEST_QUALITY)
}
