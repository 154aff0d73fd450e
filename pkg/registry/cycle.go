package registry

import (
	"sort"

	"github.com/newtron-network/newtcli/pkg/util"
)

// findCycles returns one CycleError per strongly connected component of g
// that contains a cycle: every component of two or more paths, and single
// paths ordered before themselves. Nodes are visited in registration order
// so the report is stable between runs.
func findCycles(g map[string][]string, order []string) []*util.CycleError {
	var cycles []*util.CycleError
	for _, scc := range tarjanSCC(g, order) {
		if len(scc) > 1 || hasSelfLoop(scc[0], g) {
			paths := append([]string(nil), scc...)
			sort.Strings(paths)
			cycles = append(cycles, &util.CycleError{Paths: paths})
		}
	}
	sort.Slice(cycles, func(i, j int) bool {
		return cycles[i].Paths[0] < cycles[j].Paths[0]
	})
	return cycles
}

func hasSelfLoop(node string, g map[string][]string) bool {
	for _, next := range g[node] {
		if next == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds the strongly connected components of g.
func tarjanSCC(g map[string][]string, order []string) [][]string {
	var (
		index   int
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, node := range order {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

// topoSort orders the nodes of an acyclic g so every edge points forward.
// Among nodes that are ready at the same time the one registered first wins.
func topoSort(g map[string][]string, order []string, seq map[string]int) []string {
	indegree := make(map[string]int, len(order))
	for _, node := range order {
		for _, next := range g[node] {
			indegree[next]++
		}
	}

	var ready []string
	for _, node := range order {
		if indegree[node] == 0 {
			ready = append(ready, node)
		}
	}

	out := make([]string, 0, len(order))
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return seq[ready[i]] < seq[ready[j]] })
		node := ready[0]
		ready = ready[1:]
		out = append(out, node)
		for _, next := range g[node] {
			indegree[next]--
			if indegree[next] == 0 {
				ready = append(ready, next)
			}
		}
	}
	return out
}
