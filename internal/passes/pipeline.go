// Package passes implements the transform passes that consume
// constant- and range-analysis results to rewrite CHIR, plus the
// dead-code, no-side-effect, SanitizerCoverage, and unused-import passes
// that round out a function's optimization pipeline.
package passes

import (
	"fmt"

	"chir/internal/chir"
	"chir/internal/diag"
)

// Pass is one named, described transformation over a Package, reporting
// whether it changed anything.
type Pass interface {
	Name() string
	Description() string
	Apply(pkg *chir.Package) bool
}

// Pipeline runs a sequence of Passes over one Package in order.
type Pipeline struct {
	passes   []Pass
	Reporter *diag.Reporter
	Log      func(string)
}

// NewPipeline builds the default pipeline: propagation, then the DCE
// subpasses in dependency order, then no-side-effect marking
// and unused-import pruning. SanitizerCoverage is opt-in (it needs a
// validated SanCovConfig) so it isn't part of the default sequence;
// callers that want it call AddPass(NewSanitizerCoverage(cfg, reporter))
// themselves.
func NewPipeline(reporter *diag.Reporter) *Pipeline {
	p := &Pipeline{Reporter: reporter}
	p.AddPass(NewConstRangePropagation(reporter))
	p.AddPass(&UnreachableBlockElimination{})
	p.AddPass(&UnreachableBranchWarning{Reporter: reporter})
	p.AddPass(&UselessExprElimination{})
	p.AddPass(&NothingTypeExprElimination{})
	p.AddPass(&UselessFuncElimination{})
	p.AddPass(&ReportUnusedCode{Reporter: reporter})
	p.AddPass(&NoSideEffectMarking{})
	p.AddPass(&UnusedImportPruning{})
	return p
}

func (p *Pipeline) AddPass(pass Pass) { p.passes = append(p.passes, pass) }

// Run executes every pass in order, looping the pipeline on any pass that
// reports a change so later passes see the settled IR, since DCE
// subpasses can re-expose work for each other. It stops at the first
// round with no change, or after 8 rounds.
func (p *Pipeline) Run(pkg *chir.Package) {
	for round := 0; round < 8; round++ {
		changed := false
		for _, pass := range p.passes {
			if p.Apply(pass, pkg) {
				changed = true
			}
		}
		if !changed {
			return
		}
	}
}

func (p *Pipeline) Apply(pass Pass, pkg *chir.Package) bool {
	changed := pass.Apply(pkg)
	if p.Log != nil {
		p.Log(fmt.Sprintf("%s: %s", pass.Name(), pass.Description()))
	}
	return changed
}
