package chirserver

import "chir/internal/chir"

// DominatorTree is chir.cfg's result shape: every non-entry block's
// immediate dominator, keyed by label. None of the example repos carry a
// graph library with dominance analysis, so this is the one piece of
// chirserver built straight against chir.Block's Predecessors/Successors
// rather than grounded on a third-party package — the standard
// Cooper-Harvey-Kennedy iterative algorithm, which needs nothing beyond
// a reverse-postorder numbering and a worklist fixed point.
type DominatorTree struct {
	Entry string            `json:"entry"`
	Idom  map[string]string `json:"idom"`
}

func dominatorTree(g *chir.BlockGroup) DominatorTree {
	if g.Entry == nil {
		return DominatorTree{Idom: map[string]string{}}
	}

	order, index := reversePostorder(g)
	idom := make(map[*chir.Block]*chir.Block, len(order))
	idom[g.Entry] = g.Entry

	for changed := true; changed; {
		changed = false
		for _, b := range order {
			if b == g.Entry {
				continue
			}
			var newIdom *chir.Block
			for _, p := range b.Predecessors {
				if idom[p] == nil {
					continue
				}
				if newIdom == nil {
					newIdom = p
					continue
				}
				newIdom = intersect(newIdom, p, idom, index)
			}
			if newIdom != nil && idom[b] != newIdom {
				idom[b] = newIdom
				changed = true
			}
		}
	}

	out := DominatorTree{Entry: g.Entry.Label, Idom: make(map[string]string, len(idom))}
	for b, d := range idom {
		if b == g.Entry {
			continue
		}
		out.Idom[b.Label] = d.Label
	}
	return out
}

// intersect finds the nearest common ancestor of a and b in the
// dominator tree built so far, walking each finger toward the entry one
// step at a time along whichever side is currently further out (larger
// reverse-postorder index).
func intersect(a, b *chir.Block, idom map[*chir.Block]*chir.Block, index map[*chir.Block]int) *chir.Block {
	for a != b {
		for index[a] > index[b] {
			a = idom[a]
		}
		for index[b] > index[a] {
			b = idom[b]
		}
	}
	return a
}

// reversePostorder walks the block graph from Entry and returns blocks in
// reverse-postorder alongside each block's position in that order, the
// numbering Cooper-Harvey-Kennedy's worklist needs to converge in one
// forward pass per round instead of requiring a topological sort.
func reversePostorder(g *chir.BlockGroup) ([]*chir.Block, map[*chir.Block]int) {
	var order []*chir.Block
	visited := make(map[*chir.Block]bool, len(g.Blocks))

	var visit func(b *chir.Block)
	visit = func(b *chir.Block) {
		if b == nil || visited[b] {
			return
		}
		visited[b] = true
		for _, s := range b.Successors {
			visit(s)
		}
		order = append(order, b)
	}
	visit(g.Entry)

	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}

	index := make(map[*chir.Block]int, len(order))
	for i, b := range order {
		index[b] = i
	}
	return order, index
}
