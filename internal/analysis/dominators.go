package analysis

import "github.com/bril-tools/brilopt/internal/errs"

type intset map[int]bool

func newIntset(vals ...int) intset {
	s := make(intset, len(vals))
	for _, v := range vals {
		s[v] = true
	}
	return s
}

func (s intset) equal(o intset) bool {
	if len(s) != len(o) {
		return false
	}
	for v := range s {
		if !o[v] {
			return false
		}
	}
	return true
}

func (s intset) clone() intset {
	c := make(intset, len(s))
	for v := range s {
		c[v] = true
	}
	return c
}

func (s intset) sorted() []int {
	out := make([]int, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	// insertion sort is plenty for the tiny sets this toolkit deals with
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

func intersect(sets []intset) intset {
	if len(sets) == 0 {
		return newIntset()
	}
	ret := sets[0].clone()
	for _, other := range sets[1:] {
		for v := range ret {
			if !other[v] {
				delete(ret, v)
			}
		}
	}
	return ret
}

// Dominators returns, for every node, the set of nodes (as a sorted slice)
// that dominate it: dom[0] = {0}, and for i>0 dom[i] starts at the full
// node set and iterates dom[i] = (intersection of dom[p] for p in
// preds[i]) u {i} to a fixed point. Nodes with no predecessors at all
// (the entry, and any unreachable node without predecessors) keep their
// initial value since the loop body is skipped for them. Termination is
// guaranteed because the
// intersection lattice over a finite node set is finite-height and the
// transfer is monotone.
func Dominators(cfgGraph [][]int) [][]int {
	n := len(cfgGraph)
	order := TopologicalOrder(cfgGraph)
	all := newIntset()
	for i := 0; i < n; i++ {
		all[i] = true
	}

	dom := make([]intset, n)
	for i := 0; i < n; i++ {
		if i == 0 {
			dom[i] = newIntset(0)
		} else {
			dom[i] = all.clone()
		}
	}

	preds := PredecessorMap(cfgGraph)
	more := true
	for more {
		more = false
		for _, i := range order {
			if len(preds[i]) == 0 {
				continue
			}
			predSets := make([]intset, len(preds[i]))
			for j, p := range preds[i] {
				predSets[j] = dom[p]
			}
			d := intersect(predSets)
			d[i] = true
			if !d.equal(dom[i]) {
				dom[i] = d
				more = true
			}
		}
	}

	result := make([][]int, n)
	for i, d := range dom {
		result[i] = d.sorted()
	}
	return result
}

// DominatorTree returns, for every node, the set of nodes it immediately
// dominates. A well-formed CFG (as produced by internal/cfg) has at most
// one immediate-dominator candidate among a node's predecessors; more than
// one is an InvariantViolation, indicating a bug in Dominators or a
// malformed CFG supplied directly (bypassing internal/cfg).
func DominatorTree(cfgGraph [][]int) ([][]int, error) {
	preds := PredecessorMap(cfgGraph)
	doms := Dominators(cfgGraph)
	tree := make([]intset, len(cfgGraph))
	for i := range tree {
		tree[i] = newIntset()
	}

	for idx, domList := range doms {
		domSet := newIntset(domList...)
		parentSet := newIntset()
		for _, p := range preds[idx] {
			if domSet[p] {
				parentSet[p] = true
			}
		}
		parent := parentSet.sorted()
		if len(parent) > 1 {
			return nil, &errs.InvariantViolation{Node: idx, Candidates: parent}
		}
		if len(parent) == 1 {
			if tree[parent[0]] == nil {
				tree[parent[0]] = newIntset()
			}
			tree[parent[0]][idx] = true
		}
	}

	result := make([][]int, len(tree))
	for i, s := range tree {
		result[i] = s.sorted()
	}
	return result, nil
}
