package services

// NearestNeighborOrder sequences destinations with a greedy nearest-neighbour walk.
//
// cost is a square matrix over {source} ∪ destinations with the source at index 0.
// The walk starts at the source and repeatedly moves to the cheapest unvisited
// destination. When two candidates cost the same the one with the lower index wins,
// so the result is deterministic. The returned slice holds 0-based destination indices
// (matrix index minus one) in visiting order.
//
// This is a local heuristic. It does not attempt global optimization.
func NearestNeighborOrder(cost [][]float64) []int {
	if len(cost) <= 1 {
		return []int{}
	}

	n := len(cost) - 1
	visited := make([]bool, n+1)
	order := make([]int, 0, n)

	current := 0
	for len(order) < n {
		best := -1
		var bestCost float64

		for d := 1; d <= n; d++ {
			if visited[d] {
				continue
			}
			// Strict less-than keeps the lower index on ties.
			if best == -1 || cost[current][d] < bestCost {
				best = d
				bestCost = cost[current][d]
			}
		}

		visited[best] = true
		order = append(order, best-1)
		current = best
	}

	return order
}
