package analysis

import "github.com/bril-tools/brilopt/internal/errs"

// Loop is a natural loop: Header is its unique entry block, Nodes is the
// full set of blocks in the loop (including Header and Tail).
type Loop struct {
	Header int
	Nodes  []int // sorted
}

// extractLoop computes the minimal set of nodes L such that header and
// tail are both in L, and every node n in L other than header has all of
// its predecessors also in L. header must dominate tail or the edge
// tail->header is not a natural loop.
func extractLoop(doms [][]int, preds [][]int, header, tail int) (intset, error) {
	domSet := newIntset(doms[tail]...)
	if !domSet[header] {
		return nil, &errs.NotANaturalLoop{Header: header, Tail: tail}
	}

	loop := newIntset()
	queue := []int{tail}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		if loop[node] {
			continue
		}
		loop[node] = true
		if node == header {
			continue
		}
		for _, p := range preds[node] {
			if !loop[p] {
				queue = append(queue, p)
			}
		}
	}
	return loop, nil
}

// dfsBackEdges runs a DFS from every node, invoking onBackEdge(header,
// tail) for every edge tail->header where header is on the current DFS
// stack (visited but not yet fully processed).
func dfsBackEdges(cfgGraph [][]int, onBackEdge func(header, tail int)) {
	visited := make([]bool, len(cfgGraph))
	processed := make([]bool, len(cfgGraph))

	type stackFrame struct {
		node int
		next int
	}

	for root := 0; root < len(cfgGraph); root++ {
		if visited[root] {
			continue
		}
		stack := []stackFrame{{node: root}}
		visited[root] = true
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next < len(cfgGraph[top.node]) {
				succ := cfgGraph[top.node][top.next]
				top.next++
				if !visited[succ] {
					visited[succ] = true
					stack = append(stack, stackFrame{node: succ})
				} else if !processed[succ] {
					onBackEdge(succ, top.node)
				}
				continue
			}
			processed[top.node] = true
			stack = stack[:len(stack)-1]
		}
	}
}

// ExtractNaturalLoops returns every natural loop found in cfg: for each
// back-edge tail->header found by DFS, a (header, nodes) pair if header
// dominates tail; back-edges that fail that test are silently skipped
// (NotANaturalLoop is caught here, never propagated).
func ExtractNaturalLoops(cfgGraph [][]int) []Loop {
	doms := Dominators(cfgGraph)
	preds := PredecessorMap(cfgGraph)

	var loops []Loop
	dfsBackEdges(cfgGraph, func(header, tail int) {
		nodes, err := extractLoop(doms, preds, header, tail)
		if err != nil {
			return
		}
		loops = append(loops, Loop{Header: header, Nodes: nodes.sorted()})
	})
	return loops
}

// IsReducible reports whether every back-edge in cfg forms a natural loop.
func IsReducible(cfgGraph [][]int) bool {
	doms := Dominators(cfgGraph)
	preds := PredecessorMap(cfgGraph)

	reducible := true
	dfsBackEdges(cfgGraph, func(header, tail int) {
		if !reducible {
			return
		}
		if _, err := extractLoop(doms, preds, header, tail); err != nil {
			reducible = false
		}
	})
	return reducible
}
