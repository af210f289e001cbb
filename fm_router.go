// fm_router.go - Executes the active algorithm graph and crossfades switches

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

// AlgorithmRouter evaluates the active AlgorithmGraph against a voice's four
// operators every sample, mixes the carriers, and blends old and new graphs
// with a raised-sine window when the algorithm changes. All state lives in
// fixed arrays; nothing on this path allocates or locks.
type AlgorithmRouter struct {
	current  *AlgorithmGraph
	previous *AlgorithmGraph // non-nil while a crossfade is running
	fadePos  int
	fadeLen  int

	scratch [NUM_OPERATORS]float32

	// Operator state snapshot so both graphs can be evaluated in one
	// sample without advancing phase twice.
	savedPhase [NUM_OPERATORS]float32
	savedLast  [NUM_OPERATORS]float32
	savedFB    [NUM_OPERATORS]float32

	sampleRate float32
}

func newAlgorithmRouter(initial *AlgorithmGraph, sampleRate float32) *AlgorithmRouter {
	return &AlgorithmRouter{
		current:    initial,
		sampleRate: sampleRate,
	}
}

// switchAlgorithm begins a crossfade to newGraph over transitionTimeMs.
// Switching to the graph already active is a no-op; a zero or negative
// window switches instantly. A switch during a running fade abandons the
// outgoing graph and fades from the one currently active.
func (r *AlgorithmRouter) switchAlgorithm(newGraph *AlgorithmGraph, transitionTimeMs float32) {
	if newGraph == nil || newGraph == r.current {
		return
	}
	fadeSamples := int(transitionTimeMs * r.sampleRate / 1000.0)
	if fadeSamples <= 0 {
		r.current = newGraph
		r.previous = nil
		r.fadeLen = 0
		return
	}
	r.previous = r.current
	r.current = newGraph
	r.fadePos = 0
	r.fadeLen = fadeSamples
}

// fading reports whether a crossfade is in flight.
func (r *AlgorithmRouter) fading() bool {
	return r.previous != nil
}

// processOperators runs one sample of the active graph (both graphs during a
// crossfade) and returns the mixed carrier output.
func (r *AlgorithmRouter) processOperators(operators *[NUM_OPERATORS]*Operator) float32 {
	if r.current == nil {
		return 0
	}
	if r.previous == nil {
		return r.evalGraph(r.current, operators)
	}

	// Weight hits exactly 0 on the first fade sample and exactly 1 on the
	// last, so the endpoints match the pure old/new outputs.
	var t float32
	if r.fadeLen > 1 {
		t = float32(r.fadePos) / float32(r.fadeLen-1)
	} else {
		t = 1
	}
	weight := raisedSineFade(t)

	for i, op := range operators {
		r.savedPhase[i] = op.phase
		r.savedLast[i] = op.lastOutput
		r.savedFB[i] = op.feedbackAmount
	}
	outgoing := r.evalGraph(r.previous, operators)
	for i, op := range operators {
		op.phase = r.savedPhase[i]
		op.lastOutput = r.savedLast[i]
		op.feedbackAmount = r.savedFB[i]
	}
	incoming := r.evalGraph(r.current, operators)

	r.fadePos++
	if r.fadePos >= r.fadeLen {
		r.previous = nil
	}
	return (1-weight)*outgoing + weight*incoming
}

// evalGraph is one routing pass: clear scratch, process
// operators in precomputed order feeding each its weighted modulation sum,
// refresh feedback amounts for the next sample, mix carriers.
func (r *AlgorithmRouter) evalGraph(g *AlgorithmGraph, operators *[NUM_OPERATORS]*Operator) float32 {
	for i := range r.scratch {
		r.scratch[i] = 0
	}

	for _, idx := range g.processingOrder {
		var mod float32
		for src := 0; src < NUM_OPERATORS; src++ {
			if amount := g.modulationLookup[src][idx]; amount != 0 {
				mod += amount * r.scratch[src]
			}
		}
		r.scratch[idx] = operators[idx].processSample(mod)
	}

	// Applied after processing: feedback lands one sample late inside the
	// destination operator, never re-entered into this pass.
	for _, fc := range g.feedbackConnections {
		operators[fc.Destination].feedbackAmount = fc.Amount * FEEDBACK_ATTENUATION
	}

	switch g.numCarriers {
	case 0:
		return 0
	case 1:
		for i := 0; i < NUM_OPERATORS; i++ {
			if g.carrierSet[i] {
				return r.scratch[i]
			}
		}
		return 0
	default:
		var sum float32
		for i := 0; i < NUM_OPERATORS; i++ {
			if g.carrierSet[i] {
				sum += r.scratch[i]
			}
		}
		return sum / float32(g.numCarriers)
	}
}

// processBlock renders n samples into out. Operators modulate each other
// within a sample, so the inner loop stays per-sample; the block form exists
// for callers that buffer.
func (r *AlgorithmRouter) processBlock(operators *[NUM_OPERATORS]*Operator, out []float32) {
	for i := range out {
		out[i] = r.processOperators(operators)
	}
}
