// fm_algorithm.go - Algorithm graph: operator wiring, evaluation order, feedback partition

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

// Connection routes one operator's output into another's modulation input,
// scaled by Amount. Source and Destination are operator indices 0..3.
type Connection struct {
	Source      int     `json:"source"`
	Destination int     `json:"destination"`
	Amount      float32 `json:"amount"`
}

// isFeedback reports whether the connection runs against evaluation order:
// the destination is processed no later than the source (or is the source),
// so the modulation can only arrive one sample late.
func (c Connection) isFeedback() bool {
	return c.Source >= c.Destination
}

// AlgorithmGraph is an immutable description of how the four operators feed
// each other: the raw connection list, the explicit carrier set, the
// precomputed forward-subgraph evaluation order, the feedback subset, and a
// dense source×destination amount table for O(1) routing. Built once, then
// shared read-only; the router never mutates it.
type AlgorithmGraph struct {
	id          int // catalog id, 0 for ad-hoc graphs
	name        string
	connections []Connection

	carrierSet  [NUM_OPERATORS]bool
	numCarriers int

	processingOrder     [NUM_OPERATORS]int
	feedbackConnections []Connection
	modulationLookup    [NUM_OPERATORS][NUM_OPERATORS]float32

	// degradedOrder is set when the forward subgraph could not be fully
	// scheduled (a forward cycle, which indicates a malformed definition)
	// and the leftover operators were appended in ascending index order.
	// Surfaced through diagnostics, never an error at render time.
	degradedOrder bool

	// droppedConnections counts connections discarded for out-of-range
	// operator indices.
	droppedConnections int
}

// newAlgorithmGraph builds a graph from a connection list and an explicit
// carrier set. Connections with out-of-range indices are dropped and
// counted. Duplicate (source, destination) pairs accumulate their amounts.
func newAlgorithmGraph(connections []Connection, carriers []int) *AlgorithmGraph {
	g := &AlgorithmGraph{}

	for _, c := range connections {
		if c.Source < 0 || c.Source >= NUM_OPERATORS ||
			c.Destination < 0 || c.Destination >= NUM_OPERATORS {
			g.droppedConnections++
			continue
		}
		g.connections = append(g.connections, c)
	}

	for _, idx := range carriers {
		if idx < 0 || idx >= NUM_OPERATORS {
			continue
		}
		if !g.carrierSet[idx] {
			g.carrierSet[idx] = true
			g.numCarriers++
		}
	}

	g.partition()
	g.buildProcessingOrder()
	return g
}

// partition splits connections into the dense modulation table (all of them)
// and the feedback subset (source >= destination).
func (g *AlgorithmGraph) partition() {
	for _, c := range g.connections {
		g.modulationLookup[c.Source][c.Destination] += c.Amount
		if c.isFeedback() {
			g.feedbackConnections = append(g.feedbackConnections, c)
		}
	}
}

// buildProcessingOrder runs Kahn's algorithm over the forward subgraph.
// Operators the queue never reaches (isolated inside a forward cycle) are
// appended in ascending index order; audible but possibly not honoring the
// intended modulation order, which is the safe failure mode here.
func (g *AlgorithmGraph) buildProcessingOrder() {
	var inDegree [NUM_OPERATORS]int
	var edges [NUM_OPERATORS][]int

	for _, c := range g.connections {
		if c.isFeedback() {
			continue
		}
		edges[c.Source] = append(edges[c.Source], c.Destination)
		inDegree[c.Destination]++
	}

	var queue [NUM_OPERATORS]int
	head, tail := 0, 0
	for i := 0; i < NUM_OPERATORS; i++ {
		if inDegree[i] == 0 {
			queue[tail] = i
			tail++
		}
	}

	var scheduled [NUM_OPERATORS]bool
	pos := 0
	for head < tail {
		idx := queue[head]
		head++
		g.processingOrder[pos] = idx
		scheduled[idx] = true
		pos++
		for _, dst := range edges[idx] {
			inDegree[dst]--
			if inDegree[dst] == 0 {
				queue[tail] = dst
				tail++
			}
		}
	}

	if pos < NUM_OPERATORS {
		g.degradedOrder = true
		for i := 0; i < NUM_OPERATORS; i++ {
			if !scheduled[i] {
				g.processingOrder[pos] = i
				pos++
			}
		}
	}
}

// carriers returns the carrier indices in ascending order.
func (g *AlgorithmGraph) carriers() []int {
	out := make([]int, 0, g.numCarriers)
	for i := 0; i < NUM_OPERATORS; i++ {
		if g.carrierSet[i] {
			out = append(out, i)
		}
	}
	return out
}
