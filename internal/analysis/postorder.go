// Package analysis implements the global CFG analyses that compose with
// internal/dataflow: post-order and topological order, predecessor maps,
// dominators, the dominator tree, natural-loop extraction, and
// reducibility.
package analysis

// Postorder returns a depth-first post-order traversal of cfg, where cfg[i]
// is the list of successor indices of node i. Every index 0..len(cfg)-1 is
// retried as a DFS root so unreachable blocks still appear in the result;
// a node is appended only after every one of its successors has been
// recursed into. The traversal is iterative (an explicit stack) so deep
// CFGs cannot overflow the goroutine stack.
func Postorder(cfgGraph [][]int) []int {
	visited := make([]bool, len(cfgGraph))
	var order []int

	type stackFrame struct {
		node int
		next int // index into cfgGraph[node] of the next successor to explore
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
				}
				continue
			}
			order = append(order, top.node)
			stack = stack[:len(stack)-1]
		}
	}
	return order
}

// TopologicalOrder returns the reverse of Postorder(cfgGraph); dominator
// computation iterates blocks in this order for fast convergence.
func TopologicalOrder(cfgGraph [][]int) []int {
	po := Postorder(cfgGraph)
	rev := make([]int, len(po))
	for i, v := range po {
		rev[len(po)-1-i] = v
	}
	return rev
}

// PredecessorMap returns the transpose of cfg: preds[i] lists every node
// with an edge into i.
func PredecessorMap(cfgGraph [][]int) [][]int {
	preds := make([][]int, len(cfgGraph))
	for i := range cfgGraph {
		for _, succ := range cfgGraph[i] {
			preds[succ] = append(preds[succ], i)
		}
	}
	return preds
}
