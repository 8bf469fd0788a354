// Package matching implements C4: the goods-match engine — batch
// gathering, global tier sort, the unique-winner rule, and the VCG
// bipartite tie-break.
package matching

import "sort"

// Edge is one candidate pairing in a weighted bipartite graph: U and V are
// node identifiers from disjoint partitions, Weight > 0.
type Edge struct {
	U, V   string
	Weight float64
}

// MaxWeightMatcher abstracts the graph-matching collaborator (§9 design
// note: "treat networkx's max_weight_matching as an abstract trait", no
// Go equivalent of networkx exists in the available ecosystem, so this is
// a from-scratch implementation rather than a wired dependency).
type MaxWeightMatcher interface {
	// Match returns the subset of edges forming a maximum-weight matching
	// with maxcardinality=false semantics: a node may be left unmatched if
	// every incident edge would lower the total weight. Ties are broken
	// deterministically by lexicographic node order.
	Match(edges []Edge) []Edge
}

// HungarianMatcher is an O(n^3) Kuhn-Munkres assignment solver adapted to
// maximum-weight bipartite matching with optional (not forced) cardinality:
// the two partitions are padded to equal size with zero-weight phantom
// nodes, so "matched to a phantom" is equivalent to "left unmatched" —
// exactly the networkx maxcardinality=false contract.
type HungarianMatcher struct{}

// NewHungarianMatcher constructs the default matcher.
func NewHungarianMatcher() *HungarianMatcher { return &HungarianMatcher{} }

var _ MaxWeightMatcher = HungarianMatcher{}

// Match implements MaxWeightMatcher.
func (HungarianMatcher) Match(edges []Edge) []Edge {
	if len(edges) == 0 {
		return nil
	}

	us, vs, weight := partition(edges)
	n := len(us)
	m := len(vs)
	size := n
	if m > size {
		size = m
	}
	if size == 0 {
		return nil
	}

	// Perturb each real edge's weight by a strictly-decreasing power-of-two
	// bonus keyed on its rank in (U,V) lexicographic order. The bonus is
	// geometric, so the presence of a lexicographically-earlier edge in a
	// matching always outweighs any combination of later ones — this
	// reproduces "ties broken deterministically by lexicographic node
	// order" (§4.4 step 2) without disturbing any genuine weight
	// difference, since epsilon is scaled far below real price precision.
	rank := edgeRanks(us, vs, weight)
	const epsilon = 1e-9

	// cost[i][j] is negated (weight + tie-break bonus); minimization here
	// solves maximization. Padded rows/cols default to 0, i.e. leaving a
	// real node matched to a phantom (unmatched).
	cost := make([][]float64, size+1)
	for i := range cost {
		cost[i] = make([]float64, size+1)
	}
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			w, ok := weight[us[i]][vs[j]]
			if !ok {
				continue
			}
			bonus := epsilon * pow2Neg(rank[edgeKey(us[i], vs[j])])
			cost[i+1][j+1] = -(w + bonus)
		}
	}

	assign := hungarian(cost, size)

	var out []Edge
	for j := 1; j <= size; j++ {
		i := assign[j]
		if i == 0 || i-1 >= n || j-1 >= m {
			continue
		}
		w, ok := weight[us[i-1]][vs[j-1]]
		if !ok || w <= 0 {
			continue
		}
		out = append(out, Edge{U: us[i-1], V: vs[j-1], Weight: w})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].U != out[j].U {
			return out[i].U < out[j].U
		}
		return out[i].V < out[j].V
	})
	return out
}

// partition splits edges into deterministically sorted U/V node slices and
// a lookup of edge weight by (u, v); duplicate edges keep the larger
// weight.
func partition(edges []Edge) (us, vs []string, weight map[string]map[string]float64) {
	uSet := map[string]bool{}
	vSet := map[string]bool{}
	weight = map[string]map[string]float64{}
	for _, e := range edges {
		if e.Weight <= 0 {
			continue
		}
		uSet[e.U] = true
		vSet[e.V] = true
		if weight[e.U] == nil {
			weight[e.U] = map[string]float64{}
		}
		if cur, ok := weight[e.U][e.V]; !ok || e.Weight > cur {
			weight[e.U][e.V] = e.Weight
		}
	}
	for u := range uSet {
		us = append(us, u)
	}
	for v := range vSet {
		vs = append(vs, v)
	}
	sort.Strings(us)
	sort.Strings(vs)
	return us, vs, weight
}

func edgeKey(u, v string) string { return u + "\x00" + v }

// edgeRanks orders every real edge by (U, V) lexicographic ascending and
// returns each edge's 0-based rank in that order.
func edgeRanks(us, vs []string, weight map[string]map[string]float64) map[string]int {
	var keys []string
	for _, u := range us {
		for _, v := range vs {
			if _, ok := weight[u][v]; ok {
				keys = append(keys, edgeKey(u, v))
			}
		}
	}
	sort.Strings(keys)
	rank := make(map[string]int, len(keys))
	for i, k := range keys {
		rank[k] = i
	}
	return rank
}

// pow2Neg returns 2^-rank, clamped so it never underflows to 0 for
// reasonable tier sizes.
func pow2Neg(rank int) float64 {
	if rank > 60 {
		rank = 60
	}
	v := 1.0
	for i := 0; i < rank; i++ {
		v /= 2
	}
	return v
}

// hungarian solves the square n x n minimum-cost assignment problem
// (1-indexed cost matrix of size (n+1)x(n+1)); returns assign[j] = the row
// matched to column j (0 if none). Classical O(n^3) potentials algorithm.
func hungarian(cost [][]float64, n int) []int {
	const inf = 1e18

	u := make([]float64, n+1)
	v := make([]float64, n+1)
	p := make([]int, n+1) // p[j] = row assigned to column j
	way := make([]int, n+1)

	for i := 1; i <= n; i++ {
		p[0] = i
		j0 := 0
		minv := make([]float64, n+1)
		used := make([]bool, n+1)
		for j := range minv {
			minv[j] = inf
		}
		for {
			used[j0] = true
			i0 := p[j0]
			delta := inf
			j1 := -1
			for j := 1; j <= n; j++ {
				if used[j] {
					continue
				}
				cur := cost[i0][j] - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}
			for j := 0; j <= n; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}
			j0 = j1
			if p[j0] == 0 {
				break
			}
		}
		for j0 != 0 {
			j1 := way[j0]
			p[j0] = p[j1]
			j0 = j1
		}
	}

	assign := make([]int, n+1)
	for j := 1; j <= n; j++ {
		assign[j] = p[j]
	}
	return assign
}
