package interp

import "chir/internal/chir"

// DefaultBlockLimit bounds how many times a single block may be
// re-enqueued before the engine gives up refining it and collapses its
// state to ⊤. Needed for domains (like range analysis, which can keep
// widening bounds around a loop back-edge) whose lattice has no
// ascending-chain guarantee.
const DefaultBlockLimit = 4

// Analysis supplies the per-expression and per-terminator transfer
// behavior for one concrete domain. The engine calls these while
// threading a Domain value through a function's blocks; Analysis itself
// never touches engine bookkeeping (work-list, re-enqueue counts).
type Analysis interface {
	// InitialState builds the entry state for f. At entry, parameters
	// are installed as ⊤ unless the analysis specializes this.
	InitialState(f *chir.Func) Domain
	// TransferExpr returns the state after evaluating expr against the
	// incoming state.
	TransferExpr(state Domain, expr chir.Expression) Domain
	// TransferTerminator returns the state after evaluating term, plus
	// an optional known-reachable successor. A nil knownSucc means all
	// of term.Successors() are provisionally reachable.
	TransferTerminator(state Domain, term chir.Terminator) (out Domain, knownSucc *chir.Block)
}

// EdgeNarrowingAnalysis is an optional extension an Analysis can
// implement when different successors of the same terminator deserve
// different entry states — range analysis's branch narrowing is
// the motivating case: the true and false edges out of a Branch imply
// different bounds on the condition's operands. The engine calls
// NarrowEdge once per live predecessor edge while joining a block's entry
// state, in addition to the single TransferTerminator result recorded as
// that predecessor's Exit.
type EdgeNarrowingAnalysis interface {
	Analysis
	NarrowEdge(exit Domain, term chir.Terminator, succ *chir.Block) Domain
}

// BlockStates records every state produced while stabilizing one block,
// at the granularity the result visitor needs: the entry state, a
// before/after snapshot per expression, and the terminator's outcome.
type BlockStates struct {
	Entry         Domain
	ExprBefore    map[chir.Expression]Domain
	ExprAfter     map[chir.Expression]Domain
	TermBefore    Domain
	KnownSucc     *chir.Block
	Exit          Domain
	ReenqueueCount int
	Collapsed     bool
}

// Result is the fixed point of one Engine.Run call: per-block states
// plus which blocks turned out reachable.
type Result struct {
	Func      *chir.Func
	Blocks    map[*chir.Block]*BlockStates
	Reachable map[*chir.Block]bool
}

// Engine runs one Analysis to a fixed point over one Func's CFG.
type Engine struct {
	BlockLimit int
}

func NewEngine(blockLimit int) *Engine {
	if blockLimit <= 0 {
		blockLimit = DefaultBlockLimit
	}
	return &Engine{BlockLimit: blockLimit}
}

// Run stabilizes a over f's BlockGroup and returns the per-block states
// a result visitor can walk.
func (e *Engine) Run(f *chir.Func, a Analysis) *Result {
	res := &Result{Func: f, Blocks: map[*chir.Block]*BlockStates{}}
	if f.Body == nil || f.Body.Entry == nil {
		return res
	}

	for _, b := range f.Body.Blocks {
		res.Blocks[b] = &BlockStates{}
	}

	entry := f.Body.Entry
	queue := []*chir.Block{entry}
	queued := map[*chir.Block]bool{entry: true}

	for len(queue) > 0 {
		b := queue[0]
		queue = queue[1:]
		queued[b] = false

		bs := res.Blocks[b]
		if bs.Collapsed {
			continue
		}

		newEntry := e.joinPredecessors(f, a, res, b)
		if bs.Entry != nil && bs.Entry.Equals(newEntry) {
			continue
		}
		bs.Entry = newEntry
		bs.ReenqueueCount++
		if bs.ReenqueueCount > e.BlockLimit {
			bs.Collapsed = true
			bs.Entry = newEntry.Top()
			bs.Exit = bs.Entry
			bs.ExprBefore = nil
			bs.ExprAfter = nil
			bs.TermBefore = bs.Entry
			bs.KnownSucc = nil
			queue = enqueueSuccessors(b, bs.KnownSucc, queue, queued)
			continue
		}

		exit, known := e.stepBlock(a, b, bs)
		bs.Exit = exit
		bs.KnownSucc = known
		queue = enqueueSuccessors(b, known, queue, queued)
	}

	res.Reachable = f.Body.ReachableFrom(entry)
	return res
}

// joinPredecessors computes the entry state for b: the InitialState for
// the function's entry block, or the lattice join of every predecessor's
// exit state otherwise.
func (e *Engine) joinPredecessors(f *chir.Func, a Analysis, res *Result, b *chir.Block) Domain {
	if b == f.Body.Entry {
		return a.InitialState(f)
	}
	var acc Domain
	for _, p := range b.Predecessors {
		pred := res.Blocks[p]
		if pred == nil || pred.Exit == nil {
			continue
		}
		// A known successor narrows which edge out of pred is live; a
		// predecessor that proved b unreachable contributes nothing.
		if pred.KnownSucc != nil && pred.KnownSucc != b {
			continue
		}
		predState := pred.Exit
		if ea, ok := a.(EdgeNarrowingAnalysis); ok && p.Term != nil {
			predState = ea.NarrowEdge(pred.Exit, p.Term, b)
		}
		if acc == nil {
			acc = predState.Copy()
		} else {
			acc = acc.Join(predState)
		}
	}
	if acc == nil {
		return a.InitialState(f).Bottom()
	}
	return acc
}

// stepBlock threads state through every expression in b in order,
// recording before/after snapshots, then evaluates the terminator.
func (e *Engine) stepBlock(a Analysis, b *chir.Block, bs *BlockStates) (Domain, *chir.Block) {
	bs.ExprBefore = make(map[chir.Expression]Domain, len(b.Exprs))
	bs.ExprAfter = make(map[chir.Expression]Domain, len(b.Exprs))

	state := bs.Entry
	for _, expr := range b.Exprs {
		bs.ExprBefore[expr] = state.Copy()
		state = a.TransferExpr(state, expr)
		bs.ExprAfter[expr] = state.Copy()
	}

	bs.TermBefore = state.Copy()
	if b.Term == nil {
		return state, nil
	}
	out, known := a.TransferTerminator(state, b.Term)
	return out, known
}

func enqueueSuccessors(b *chir.Block, known *chir.Block, queue []*chir.Block, queued map[*chir.Block]bool) []*chir.Block {
	succs := b.Successors
	if known != nil {
		succs = []*chir.Block{known}
	}
	for _, s := range succs {
		if s == nil || queued[s] {
			continue
		}
		queued[s] = true
		queue = append(queue, s)
	}
	return queue
}
