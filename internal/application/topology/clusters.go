package topology

import "math"

// Cluster is a connected set of opportunity positions within the
// epsilon radius. Members hold opportunity keys.
type Cluster struct {
	Centroid [4]float64
	Radius   float64
	Members  []string
}

// cluster connects entries whose 4D distance is below epsilon using
// union-find. Components below minClusterSize are discarded and
// counted as singletons. O(n²) on the distance pass, fine at the
// expected n ≤ ~50.
func (t *Tracker) cluster(entries []Entry) (clusters []Cluster, singletons int) {
	n := len(entries)
	if n == 0 {
		return nil, 0
	}

	uf := newUnionFind(n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if distance(entries[i].Position, entries[j].Position) < t.cfg.ClusterEpsilon {
				uf.union(i, j)
			}
		}
	}

	components := make(map[int][]int)
	for i := 0; i < n; i++ {
		root := uf.find(i)
		components[root] = append(components[root], i)
	}

	for _, idx := range components {
		if len(idx) < t.cfg.MinClusterSize {
			singletons += len(idx)
			continue
		}
		clusters = append(clusters, buildCluster(entries, idx))
	}
	return clusters, singletons
}

func buildCluster(entries []Entry, idx []int) Cluster {
	var c Cluster
	for _, i := range idx {
		c.Members = append(c.Members, entries[i].Key)
		for d := 0; d < 4; d++ {
			c.Centroid[d] += entries[i].Position[d]
		}
	}
	for d := 0; d < 4; d++ {
		c.Centroid[d] /= float64(len(idx))
	}
	for _, i := range idx {
		if r := distance(entries[i].Position, c.Centroid); r > c.Radius {
			c.Radius = r
		}
	}
	return c
}

func distance(a, b [4]float64) float64 {
	var s float64
	for i := 0; i < 4; i++ {
		d := a[i] - b[i]
		s += d * d
	}
	return math.Sqrt(s)
}

type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), rank: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (uf *unionFind) find(x int) int {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

func (uf *unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	if uf.rank[ra] < uf.rank[rb] {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
	if uf.rank[ra] == uf.rank[rb] {
		uf.rank[ra]++
	}
}
