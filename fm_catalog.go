// fm_catalog.go - Built-in catalog of the eight classic 4-operator algorithms

package main

import (
	"errors"
	"fmt"
)

// The catalog follows the classic 4-op arrangement: algorithm 1 is the full
// serial chain, 8 is four parallel carriers, and operator 0 carries the
// self-feedback loop throughout. Topologies are data, not types: each entry
// is a connection list plus an explicit carrier set, compiled into an
// immutable AlgorithmGraph at startup.

var ErrUnknownAlgorithm = errors.New("unknown algorithm id")

type algorithmDef struct {
	id          int
	name        string
	connections []Connection
	carriers    []int
}

var algorithmDefs = [NUM_ALGORITHMS]algorithmDef{
	{
		id:   1,
		name: "serial chain 0>1>2>3",
		connections: []Connection{
			{Source: 0, Destination: 0, Amount: 1.0},
			{Source: 0, Destination: 1, Amount: 1.0},
			{Source: 1, Destination: 2, Amount: 1.0},
			{Source: 2, Destination: 3, Amount: 1.0},
		},
		carriers: []int{3},
	},
	{
		id:   2,
		name: "0 and 1 into 2, into 3",
		connections: []Connection{
			{Source: 0, Destination: 0, Amount: 1.0},
			{Source: 0, Destination: 2, Amount: 1.0},
			{Source: 1, Destination: 2, Amount: 1.0},
			{Source: 2, Destination: 3, Amount: 1.0},
		},
		carriers: []int{3},
	},
	{
		id:   3,
		name: "0 direct to 3, 1>2>3",
		connections: []Connection{
			{Source: 0, Destination: 0, Amount: 1.0},
			{Source: 0, Destination: 3, Amount: 1.0},
			{Source: 1, Destination: 2, Amount: 1.0},
			{Source: 2, Destination: 3, Amount: 1.0},
		},
		carriers: []int{3},
	},
	{
		id:   4,
		name: "0>1 and 2 into 3",
		connections: []Connection{
			{Source: 0, Destination: 0, Amount: 1.0},
			{Source: 0, Destination: 1, Amount: 1.0},
			{Source: 1, Destination: 3, Amount: 1.0},
			{Source: 2, Destination: 3, Amount: 1.0},
		},
		carriers: []int{3},
	},
	{
		id:   5,
		name: "two stacked pairs",
		connections: []Connection{
			{Source: 0, Destination: 0, Amount: 1.0},
			{Source: 0, Destination: 1, Amount: 1.0},
			{Source: 2, Destination: 3, Amount: 1.0},
		},
		carriers: []int{1, 3},
	},
	{
		id:   6,
		name: "0 modulates 1, 2 and 3",
		connections: []Connection{
			{Source: 0, Destination: 0, Amount: 1.0},
			{Source: 0, Destination: 1, Amount: 1.0},
			{Source: 0, Destination: 2, Amount: 1.0},
			{Source: 0, Destination: 3, Amount: 1.0},
		},
		carriers: []int{1, 2, 3},
	},
	{
		id:   7,
		name: "one pair plus two carriers",
		connections: []Connection{
			{Source: 0, Destination: 0, Amount: 1.0},
			{Source: 0, Destination: 1, Amount: 1.0},
		},
		carriers: []int{1, 2, 3},
	},
	{
		id:   8,
		name: "four parallel carriers",
		connections: []Connection{
			{Source: 0, Destination: 0, Amount: 1.0},
		},
		carriers: []int{0, 1, 2, 3},
	},
}

// algorithmCatalog holds the compiled graphs indexed by id-1. Graph pointers
// are stable for the process lifetime, so "same algorithm" checks in the
// router are plain pointer comparisons.
var algorithmCatalog [NUM_ALGORITHMS]*AlgorithmGraph

func init() {
	for i, def := range algorithmDefs {
		g := newAlgorithmGraph(def.connections, def.carriers)
		g.id = def.id
		g.name = def.name
		algorithmCatalog[i] = g
	}
}

// algorithmByID resolves a catalog id (1..NUM_ALGORITHMS) to its compiled
// graph. The core never invents topologies; this table is the only source.
func algorithmByID(id int) (*AlgorithmGraph, error) {
	if id < 1 || id > NUM_ALGORITHMS {
		return nil, fmt.Errorf("%w: %d (valid range 1-%d)", ErrUnknownAlgorithm, id, NUM_ALGORITHMS)
	}
	return algorithmCatalog[id-1], nil
}

// validateCatalog probes every compiled graph for the defects the builder
// degrades around. A healthy catalog returns nil; diagnostics report the
// rest.
func validateCatalog() error {
	for _, g := range algorithmCatalog {
		if g.degradedOrder {
			return fmt.Errorf("algorithm %d (%s): forward subgraph not fully sortable", g.id, g.name)
		}
		if g.droppedConnections > 0 {
			return fmt.Errorf("algorithm %d (%s): %d connections out of range", g.id, g.name, g.droppedConnections)
		}
		if g.numCarriers == 0 {
			return fmt.Errorf("algorithm %d (%s): empty carrier set", g.id, g.name)
		}
	}
	return nil
}
