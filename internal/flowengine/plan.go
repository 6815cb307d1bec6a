package flowengine

import "github.com/jeamxn/codeblock-bff/internal/models"

// Plan is the output of the topological planner. Order is the flat
// emission order used for sequential dispatch; Layers groups
// block-instance indices whose residual indegree became zero in the
// same Kahn pass, for use when flow.config.parallel is true — Layers is
// always populated, even when the dispatcher itself runs sequentially.
type Plan struct {
	Order  []int
	Layers [][]int
}

// BuildPlan computes a Kahn ordering over blocks/connections, operating
// on integer indices into blocks rather than shared pointers. Isolated
// blocks (no connections) are still emitted, in their stored insertion
// order. If the graph contains a cycle, the returned error names the
// block instance ids still carrying residual indegree.
func BuildPlan(blocks []models.BlockInstance, connections []models.Connection) (*Plan, *Error) {
	n := len(blocks)
	indexByID := make(map[string]int, n)
	for i, b := range blocks {
		indexByID[b.ID] = i
	}

	indegree := make([]int, n)
	successors := make([][]int, n)

	for _, conn := range connections {
		from, fromOK := indexByID[conn.FromBlockInstanceID]
		to, toOK := indexByID[conn.ToBlockInstanceID]
		if !fromOK || !toOK {
			continue
		}
		successors[from] = append(successors[from], to)
		indegree[to]++
	}

	// Seed the initial (indegree == 0) layer in stored insertion order,
	// for a stable, repeatable tie-break.
	residual := make([]int, n)
	copy(residual, indegree)

	var order []int
	var layers [][]int

	var frontier []int
	for i := 0; i < n; i++ {
		if residual[i] == 0 {
			frontier = append(frontier, i)
		}
	}

	for len(frontier) > 0 {
		layers = append(layers, append([]int(nil), frontier...))
		var next []int

		for _, idx := range frontier {
			order = append(order, idx)
			for _, succ := range successors[idx] {
				residual[succ]--
				if residual[succ] == 0 {
					next = append(next, succ)
				}
			}
		}

		sortAscending(next)
		frontier = next
	}

	if len(order) < n {
		emitted := make(map[int]bool, len(order))
		for _, i := range order {
			emitted[i] = true
		}
		var remaining []string
		for i, b := range blocks {
			if !emitted[i] {
				remaining = append(remaining, b.ID)
			}
		}
		return nil, ErrCycleDetected(remaining)
	}

	return &Plan{Order: order, Layers: layers}, nil
}

// sortAscending is a small insertion sort: layers are small (bounded by a
// flow's authored block count), so this avoids pulling in sort for what
// is, in practice, a handful of elements.
func sortAscending(xs []int) {
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j-1] > xs[j]; j-- {
			xs[j-1], xs[j] = xs[j], xs[j-1]
		}
	}
}
