//go:build !cgo

// fm_resample_nocgo.go - Renderer output-rate conversion stub for cgo-less
// builds; gosamplerate is a cgo binding to libsamplerate, so conversion is
// only available in cgo builds.

package main

import "errors"

// resampleSimple reports that output-rate conversion is unavailable.
func resampleSimple(samples []float32, ratio float64) ([]float32, error) {
	return nil, errors.New("output-rate conversion requires a cgo build with libsamplerate")
}
