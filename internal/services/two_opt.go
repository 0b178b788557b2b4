package services

const twoOptMaxPasses = 50

// twoOptEpsilon guards against accepting reversals that only differ by rounding.
const twoOptEpsilon = 1e-9

// TwoOpt improves an open path that starts at the source (matrix index 0) by reversing
// segments of order. Only strictly improving reversals are accepted, so an order that is
// already locally optimal is returned unchanged. cost may be asymmetric.
func TwoOpt(order []int, cost [][]float64) []int {
	best := make([]int, len(order))
	copy(best, order)
	if len(best) < 2 {
		return best
	}

	bestCost := pathCost(best, cost)
	candidate := make([]int, len(best))

	for pass := 0; pass < twoOptMaxPasses; pass++ {
		improved := false

		for i := 0; i < len(best)-1; i++ {
			for k := i + 1; k < len(best); k++ {
				copy(candidate, best)
				reverse(candidate[i : k+1])

				if c := pathCost(candidate, cost); c < bestCost-twoOptEpsilon {
					copy(best, candidate)
					bestCost = c
					improved = true
				}
			}
		}

		if !improved {
			break
		}
	}

	return best
}

// pathCost is the cost of source → order[0] → ... → order[last] with no return leg.
func pathCost(order []int, cost [][]float64) float64 {
	total := 0.0
	prev := 0
	for _, d := range order {
		total += cost[prev][d+1]
		prev = d + 1
	}
	return total
}

func reverse(s []int) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
