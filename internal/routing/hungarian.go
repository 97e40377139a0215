package routing

import "math"

// solveAssignment solves the rectangular minimum-cost bipartite
// assignment over cost (rows = tickets, cols = slots) and returns, per
// row, the matched column or −1. Implementation: Hungarian algorithm
// with potentials and shortest augmenting paths, O(n²·m).
//
// The algorithm itself requires rows ≤ cols; the wide case is solved on
// the transposed matrix and mapped back.
func solveAssignment(cost [][]float64) []int {
	n := len(cost)
	if n == 0 {
		return nil
	}
	m := len(cost[0])

	if n <= m {
		return hungarian(cost)
	}

	// More tickets than slots: transpose, match every slot, invert.
	t := make([][]float64, m)
	for j := 0; j < m; j++ {
		t[j] = make([]float64, n)
		for i := 0; i < n; i++ {
			t[j][i] = cost[i][j]
		}
	}
	colMatch := hungarian(t)

	match := make([]int, n)
	for i := range match {
		match[i] = -1
	}
	for j, i := range colMatch {
		if i >= 0 {
			match[i] = j
		}
	}
	return match
}

// hungarian matches every row of an n×m matrix with n ≤ m. Row and
// column potentials (u, v) maintain reduced costs; each iteration grows
// a shortest augmenting path from one unmatched row (1-indexed with a
// virtual 0 column, the classical formulation).
func hungarian(cost [][]float64) []int {
	n := len(cost)
	m := len(cost[0])

	u := make([]float64, n+1)
	v := make([]float64, m+1)
	p := make([]int, m+1)   // p[j]: row matched to column j (0 = free)
	way := make([]int, m+1) // predecessor column on the augmenting path

	for i := 1; i <= n; i++ {
		p[0] = i
		j0 := 0
		minv := make([]float64, m+1)
		used := make([]bool, m+1)
		for j := range minv {
			minv[j] = math.Inf(1)
		}

		for {
			used[j0] = true
			i0 := p[j0]
			delta := math.Inf(1)
			j1 := 0

			for j := 1; j <= m; j++ {
				if used[j] {
					continue
				}
				cur := cost[i0-1][j-1] - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}

			for j := 0; j <= m; j++ {
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

		// Augment along the found path.
		for j0 != 0 {
			j1 := way[j0]
			p[j0] = p[j1]
			j0 = j1
		}
	}

	match := make([]int, n)
	for i := range match {
		match[i] = -1
	}
	for j := 1; j <= m; j++ {
		if p[j] > 0 {
			match[p[j]-1] = j - 1
		}
	}
	return match
}
