package topology

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// HoleType names one of the three pricing-inconsistency detectors.
type HoleType string

const (
	HoleClusterVariance HoleType = "cluster_variance"
	HoleVanishingEdge   HoleType = "vanishing_edge"
	HoleOpposingEdges   HoleType = "opposing_edges"
)

// Hole is a detected inconsistency. Recomputed every tick, never
// stored long-term.
type Hole struct {
	Type         HoleType
	Significance float64
	Keys         []string
	Detail       string
}

// minOpposingEdge is the magnitude both sides of an opposing pair
// must clear.
const minOpposingEdge = 0.02

// vanishingEdge thresholds: a large edge that died almost
// immediately.
const (
	vanishingMaxPersistence = 0.1
	vanishingMinEdge        = 0.05
)

// detectHoles runs the three independent rules over the current tick.
func (t *Tracker) detectHoles(entries []Entry, clusters []Cluster) []Hole {
	var holes []Hole
	holes = append(holes, t.clusterVarianceHoles(entries, clusters)...)
	holes = append(holes, t.vanishingEdgeHoles()...)
	holes = append(holes, opposingEdgeHoles(entries)...)
	return holes
}

// clusterVarianceHoles flags clusters of 3+ members whose edges
// disagree: tightly grouped positions should not price wildly
// different edges.
func (t *Tracker) clusterVarianceHoles(entries []Entry, clusters []Cluster) []Hole {
	edgeByKey := make(map[string]float64, len(entries))
	for _, e := range entries {
		edgeByKey[e.Key] = e.Edge
	}

	var holes []Hole
	for _, c := range clusters {
		if len(c.Members) < 3 {
			continue
		}
		edges := make([]float64, 0, len(c.Members))
		for _, key := range c.Members {
			edges = append(edges, edgeByKey[key])
		}
		variance := stat.Variance(edges, nil)
		if variance <= t.cfg.VarianceThreshold {
			continue
		}
		holes = append(holes, Hole{
			Type:         HoleClusterVariance,
			Significance: clamp01(variance / (2 * t.cfg.VarianceThreshold)),
			Keys:         append([]string(nil), c.Members...),
			Detail:       fmt.Sprintf("edge variance %.4f across %d clustered opportunities", variance, len(c.Members)),
		})
	}
	return holes
}

// vanishingEdgeHoles flags features finalized this tick whose large
// initial edge died almost immediately.
func (t *Tracker) vanishingEdgeHoles() []Hole {
	now := t.normalizedTime(t.tick)
	var holes []Hole
	for _, p := range t.finalized {
		if p.Persistence(now) >= vanishingMaxPersistence || p.InitialEdge <= vanishingMinEdge {
			continue
		}
		holes = append(holes, Hole{
			Type:         HoleVanishingEdge,
			Significance: clamp01(p.InitialEdge * 10),
			Keys:         []string{p.GameID},
			Detail:       fmt.Sprintf("edge %.3f vanished after %.3f of the window", p.InitialEdge, p.Persistence(now)),
		})
	}
	return holes
}

// opposingEdgeHoles flags pairs priced in opposite directions within
// the same tick, both with material magnitude. One hole per pair.
func opposingEdgeHoles(entries []Entry) []Hole {
	var holes []Hole
	for i := 0; i < len(entries); i++ {
		for j := i + 1; j < len(entries); j++ {
			a, b := entries[i], entries[j]
			if a.Edge*b.Edge >= 0 {
				continue
			}
			if math.Abs(a.Edge) <= minOpposingEdge || math.Abs(b.Edge) <= minOpposingEdge {
				continue
			}
			holes = append(holes, Hole{
				Type:         HoleOpposingEdges,
				Significance: clamp01((math.Abs(a.Edge) + math.Abs(b.Edge)) * 5),
				Keys:         []string{a.Key, b.Key},
				Detail:       fmt.Sprintf("edges %.3f and %.3f point in opposite directions", a.Edge, b.Edge),
			})
		}
	}
	return holes
}
