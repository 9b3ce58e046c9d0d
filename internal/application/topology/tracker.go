// Package topology tracks the temporal shape of the opportunity set:
// which features persist across ticks, which opportunities cluster
// together and where the market prices itself inconsistently.
package topology

import (
	"sort"
)

// Entry is a single opportunity inside one tick's snapshot. Key
// identifies the opportunity (a game can carry several bet types),
// GameID groups entries of the same game. Edge is the raw signed
// model edge, not the clamped channel value.
type Entry struct {
	Key      string
	GameID   string
	Position [4]float64
	Edge     float64
}

// Snapshot is one tick's opportunity set. Immutable once recorded.
type Snapshot struct {
	Tick    int
	Entries []Entry
}

// PersistencePoint records the lifetime of a tracked feature. Alive
// features have no death yet; Death is only meaningful once Alive is
// false.
type PersistencePoint struct {
	GameID      string
	Birth       float64
	Death       float64
	Alive       bool
	Dimension   int
	InitialEdge float64
}

// Persistence returns death − birth for a finalized point. For a
// feature still alive it returns the lifetime up to now.
func (p PersistencePoint) Persistence(now float64) float64 {
	if p.Alive {
		return now - p.Birth
	}
	return p.Death - p.Birth
}

// Summary is the per-tick topology readout consumed by the decision
// layer. Betti numbers are descriptive metrics, never hard gates.
type Summary struct {
	Tick       int
	Betti0     int
	Betti1     int
	Betti2     int
	Complexity float64
	Stability  float64
	Clusters   []Cluster
	Holes      []Hole
}

// Config bounds the tracker's memory and tunes its detectors.
type Config struct {
	Window            int
	EdgeThreshold     float64
	MinPersistence    float64
	ClusterEpsilon    float64
	MinClusterSize    int
	VarianceThreshold float64
}

// maxDiagramPoints bounds the finalized persistence diagram.
const maxDiagramPoints = 256

// Tracker owns the bounded snapshot window and the per-game feature
// state machine. Not safe for concurrent use; the engine drives it
// one tick at a time.
type Tracker struct {
	cfg  Config
	tick int

	window *ring

	alive   map[string]*PersistencePoint
	diagram []PersistencePoint

	// points finalized during the current tick, for the
	// vanishing-edge rule
	finalized []PersistencePoint

	prevPositions map[string][4]float64
}

func New(cfg Config) *Tracker {
	if cfg.Window <= 0 {
		cfg.Window = 120
	}
	if cfg.MinClusterSize <= 0 {
		cfg.MinClusterSize = 2
	}
	return &Tracker{
		cfg:    cfg,
		window: newRing(cfg.Window),
		alive:  make(map[string]*PersistencePoint),
	}
}

// AddSnapshot records one tick's opportunity set and returns the
// topology summary for that tick.
func (t *Tracker) AddSnapshot(entries []Entry) Summary {
	t.tick++
	t.finalized = t.finalized[:0]

	snap := Snapshot{Tick: t.tick, Entries: entries}
	t.window.push(snap)

	clusters, singletons := t.cluster(entries)
	t.updateFeatures(entries, clusters)

	holes := t.detectHoles(entries, clusters)
	sort.SliceStable(holes, func(i, j int) bool {
		return holes[i].Significance > holes[j].Significance
	})

	b0 := len(clusters) + singletons
	b1 := t.countDimensionOne()
	b2 := len(holes)

	sum := Summary{
		Tick:     t.tick,
		Betti0:   b0,
		Betti1:   b1,
		Betti2:   b2,
		Clusters: clusters,
		Holes:    holes,
	}
	sum.Complexity = complexityScore(b0, b1, b2)
	sum.Stability = t.stabilityScore(entries)

	t.prevPositions = make(map[string][4]float64, len(entries))
	for _, e := range entries {
		t.prevPositions[e.Key] = e.Position
	}
	return sum
}

// normalizedTime maps the tick counter onto the window span. It is a
// deterministic clock, independent of wall time.
func (t *Tracker) normalizedTime(tick int) float64 {
	return float64(tick) / float64(t.cfg.Window)
}

// updateFeatures runs the birth/death state machine. A game's feature
// is alive while its best edge stays at or above the threshold.
func (t *Tracker) updateFeatures(entries []Entry, clusters []Cluster) {
	now := t.normalizedTime(t.tick)

	clustered := make(map[string]bool)
	for _, c := range clusters {
		for _, key := range c.Members {
			clustered[gameOf(entries, key)] = true
		}
	}

	gameEdge := make(map[string]float64, len(entries))
	for _, e := range entries {
		if cur, ok := gameEdge[e.GameID]; !ok || e.Edge > cur {
			gameEdge[e.GameID] = e.Edge
		}
	}

	for gameID, edge := range gameEdge {
		feat, tracked := t.alive[gameID]
		switch {
		case edge >= t.cfg.EdgeThreshold && !tracked:
			dim := 0
			if clustered[gameID] {
				dim = 1
			}
			t.alive[gameID] = &PersistencePoint{
				GameID:      gameID,
				Birth:       now,
				Alive:       true,
				Dimension:   dim,
				InitialEdge: edge,
			}
		case edge < t.cfg.EdgeThreshold && tracked:
			t.finalize(feat, now)
		}
	}

	// games that left the snapshot entirely die this tick too
	for gameID, feat := range t.alive {
		if _, present := gameEdge[gameID]; !present {
			t.finalize(feat, now)
		}
	}
}

func (t *Tracker) finalize(feat *PersistencePoint, now float64) {
	feat.Alive = false
	feat.Death = now
	delete(t.alive, feat.GameID)

	t.finalized = append(t.finalized, *feat)
	if feat.Persistence(now) >= t.cfg.MinPersistence {
		t.diagram = append(t.diagram, *feat)
		if len(t.diagram) > maxDiagramPoints {
			t.diagram = t.diagram[len(t.diagram)-maxDiagramPoints:]
		}
	}
}

func (t *Tracker) countDimensionOne() int {
	n := 0
	for _, p := range t.diagram {
		if p.Dimension == 1 {
			n++
		}
	}
	for _, p := range t.alive {
		if p.Dimension == 1 {
			n++
		}
	}
	return n
}

// Diagram returns the finalized persistence points, oldest first.
func (t *Tracker) Diagram() []PersistencePoint {
	out := make([]PersistencePoint, len(t.diagram))
	copy(out, t.diagram)
	return out
}

// AliveFeatures returns a copy of the currently tracked features.
func (t *Tracker) AliveFeatures() []PersistencePoint {
	out := make([]PersistencePoint, 0, len(t.alive))
	for _, p := range t.alive {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GameID < out[j].GameID })
	return out
}

// WindowLen reports how many snapshots the bounded window holds.
func (t *Tracker) WindowLen() int { return t.window.len() }

// RemoveGame purges every trace of a game: live feature, diagram
// points and window entries. Clusters and holes are recomputed each
// tick so they need no surgery.
func (t *Tracker) RemoveGame(gameID string) {
	delete(t.alive, gameID)

	kept := t.diagram[:0]
	for _, p := range t.diagram {
		if p.GameID != gameID {
			kept = append(kept, p)
		}
	}
	t.diagram = kept

	t.window.each(func(s *Snapshot) {
		entries := s.Entries[:0]
		for _, e := range s.Entries {
			if e.GameID != gameID {
				entries = append(entries, e)
			}
		}
		s.Entries = entries
	})

	for key := range t.prevPositions {
		if gameOfKey(key, gameID) {
			delete(t.prevPositions, key)
		}
	}
}

// complexityScore folds the Betti numbers into a [0,1] score. Weights
// chosen so a handful of components stays low while multiple loops or
// holes push past the downgrade band.
func complexityScore(b0, b1, b2 int) float64 {
	s := 0.04*float64(b0) + 0.10*float64(b1) + 0.15*float64(b2)
	return clamp01(s)
}

// stabilityScore measures how little positions drifted since the last
// tick. 1 means frozen, 0 means drift at or beyond the cluster radius.
func (t *Tracker) stabilityScore(entries []Entry) float64 {
	if t.prevPositions == nil || t.cfg.ClusterEpsilon <= 0 {
		return 1
	}
	var total float64
	var n int
	for _, e := range entries {
		prev, ok := t.prevPositions[e.Key]
		if !ok {
			continue
		}
		total += distance(e.Position, prev)
		n++
	}
	if n == 0 {
		return 1
	}
	return 1 - clamp01((total/float64(n))/t.cfg.ClusterEpsilon)
}

func gameOf(entries []Entry, key string) string {
	for _, e := range entries {
		if e.Key == key {
			return e.GameID
		}
	}
	return key
}

func gameOfKey(key, gameID string) bool {
	if key == gameID {
		return true
	}
	return len(key) > len(gameID) && key[:len(gameID)] == gameID && key[len(gameID)] == ':'
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// ring is a fixed-capacity FIFO of snapshots with O(1) trim.
type ring struct {
	buf   []Snapshot
	head  int
	count int
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]Snapshot, capacity)}
}

func (r *ring) push(s Snapshot) {
	if r.count < len(r.buf) {
		r.buf[(r.head+r.count)%len(r.buf)] = s
		r.count++
		return
	}
	r.buf[r.head] = s
	r.head = (r.head + 1) % len(r.buf)
}

func (r *ring) len() int { return r.count }

func (r *ring) each(fn func(*Snapshot)) {
	for i := 0; i < r.count; i++ {
		fn(&r.buf[(r.head+i)%len(r.buf)])
	}
}
