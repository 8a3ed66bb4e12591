package passes

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"chir/internal/chir"
	"chir/internal/diag"
	"chir/internal/sint"
)

// CoverageType selects the granularity SanitizerCoverage instruments at.
type CoverageType string

const (
	CoverageNone      CoverageType = "None"
	CoverageFunction  CoverageType = "Function"
	CoverageBasicBlock CoverageType = "BasicBlock"
)

// SanCovConfig is SanitizerCoverage's instrumentation configuration, loaded
// from a YAML file the surrounding compiler points at this pass — the one
// piece of this core with genuine external configuration.
type SanCovConfig struct {
	TracePCGuard       bool         `yaml:"trace_pc_guard"`
	Inline8bitCounters bool         `yaml:"inline_8bit_counters"`
	InlineBoolFlag     bool         `yaml:"inline_bool_flag"`
	TraceCmp           bool         `yaml:"trace_cmp"`
	TraceMemCmp        bool         `yaml:"trace_mem_cmp"`
	StackDepth         bool         `yaml:"stack_depth"`
	PCTable            bool         `yaml:"pc_table"`
	CoverageType       CoverageType `yaml:"coverage_type"`
}

// LoadSanCovConfig parses raw YAML bytes into a validated SanCovConfig.
func LoadSanCovConfig(raw []byte) (*SanCovConfig, error) {
	var cfg SanCovConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parsing sancov config: %w", err)
	}
	if cfg.CoverageType == "" {
		cfg.CoverageType = CoverageNone
	}
	return &cfg, nil
}

// Validate enforces SanitizerCoverage's two rules: PCTable needs at least one
// counter/guard/bool-flag option, and any of those options needs a
// non-None CoverageType.
func (c *SanCovConfig) Validate() []diag.Diagnostic {
	var diags []diag.Diagnostic
	anyCounter := c.TracePCGuard || c.Inline8bitCounters || c.InlineBoolFlag
	if c.PCTable && !anyCounter {
		diags = append(diags, diag.New(diag.ChirSancovIllegalUsageOfPcTable, chir.Range{},
			"pc_table requires at least one of trace_pc_guard, inline_8bit_counters, inline_bool_flag"))
	}
	if anyCounter && c.CoverageType != CoverageFunction && c.CoverageType != CoverageBasicBlock {
		diags = append(diags, diag.New(diag.ChirSancovIllegalUsageOfLevel, chir.Range{},
			"trace_pc_guard/inline_8bit_counters/inline_bool_flag require coverage_type Function or BasicBlock"))
	}
	return diags
}

// sancovHook returns an ImportedFunc value naming one of the
// `__sanitizer_cov_*`/`__cj_sanitizer_weak_hook_*` runtime entry points,
// all declared in the compiler-internal "compiler_rt" package.
func sancovHook(name string, params []chir.Type, ret chir.Type) *chir.ImportedFunc {
	return &chir.ImportedFunc{Name: name, Package: "compiler_rt", Ty: chir.FuncType{Params: params, Ret: ret}}
}

// SanitizerCoverage instruments a package for coverage-guided fuzzing. It
// is opt-in: a pipeline only carries it once a config has been loaded and
// validated.
type SanitizerCoverage struct {
	Config   *SanCovConfig
	Reporter *diag.Reporter
}

func NewSanitizerCoverage(cfg *SanCovConfig, reporter *diag.Reporter) *SanitizerCoverage {
	return &SanitizerCoverage{Config: cfg, Reporter: reporter}
}

func (*SanitizerCoverage) Name() string        { return "SanitizerCoverage" }
func (*SanitizerCoverage) Description() string { return "inserts sanitizer coverage instrumentation" }

func (p *SanitizerCoverage) Apply(pkg *chir.Package) bool {
	if p.Config == nil || p.Config.CoverageType == CoverageNone {
		return false
	}
	if errs := p.Config.Validate(); len(errs) > 0 {
		for _, d := range errs {
			if p.Reporter != nil {
				p.Reporter.Report(d)
			}
		}
		return false
	}

	changed := false
	counterIdx := 0
	for _, f := range allFuncs(pkg) {
		if f.Body == nil {
			continue
		}
		for _, b := range f.Body.Blocks {
			if p.Config.CoverageType == CoverageFunction && b != f.Body.Entry {
				continue
			}
			b.Exprs = append([]chir.Expression{p.guardCall(counterIdx, b.Term.SrcRange())}, b.Exprs...)
			counterIdx++
			changed = true
		}
		if p.Config.TraceCmp {
			if p.instrumentComparisons(f) {
				changed = true
			}
		}
		if p.Config.TraceMemCmp {
			if p.instrumentMemoryEquality(f) {
				changed = true
			}
		}
		for _, b := range f.Body.Blocks {
			if mb, ok := b.Term.(*chir.MultiBranch); ok {
				if p.instrumentSwitch(b, mb) {
					changed = true
				}
			}
		}
	}
	if changed {
		p.addPackageInitializer(pkg, counterIdx)
	}
	return changed
}

func (p *SanitizerCoverage) guardCall(idx int, rng chir.Range) chir.Expression {
	hook := sancovHook("__sanitizer_cov_trace_pc_guard", []chir.Type{chir.UIntType{Width: sint.I32}}, chir.UnitType{})
	idxLit := chir.UIntLiteral(sint.New(sint.I32, uint64(idx)))
	return chir.NewApplyExpr(0, nil, rng, hook, []chir.Value{idxLit})
}

// traceCmpHookWidth maps an integer width to its
// __sanitizer_cov_trace_cmp{1,2,4,8} variant.
func traceCmpHookWidth(w sint.Width) int {
	switch w {
	case sint.I8:
		return 1
	case sint.I16:
		return 2
	case sint.I32:
		return 4
	default:
		return 8
	}
}

func (p *SanitizerCoverage) instrumentComparisons(f *chir.Func) bool {
	changed := false
	for _, b := range f.Body.Blocks {
		var withHooks []chir.Expression
		for _, e := range b.Exprs {
			be, ok := e.(*chir.BinaryExpr)
			if ok && isRelational(be.Op) {
				if w, _, ok := intOperandWidth(be); ok {
					n := traceCmpHookWidth(w)
					hookName := fmt.Sprintf("__sanitizer_cov_trace_cmp%d", n)
					if isConstOperand(be.Left) || isConstOperand(be.Right) {
						hookName += "_const"
					}
					hook := sancovHook(hookName, []chir.Type{be.Left.Type(), be.Right.Type()}, chir.UnitType{})
					withHooks = append(withHooks, chir.NewApplyExpr(0, nil, e.SrcRange(), hook, []chir.Value{be.Left, be.Right}))
					changed = true
				}
			}
			withHooks = append(withHooks, e)
		}
		b.Exprs = withHooks
	}
	return changed
}

func isRelational(op chir.BinaryOp) bool {
	switch op {
	case chir.OpLt, chir.OpLe, chir.OpGt, chir.OpGe, chir.OpEq, chir.OpNe:
		return true
	default:
		return false
	}
}

func intOperandWidth(be *chir.BinaryExpr) (sint.Width, bool, bool) {
	if w, signed, ok := chir.IsIntegerType(be.Left.Type()); ok {
		return w, signed, true
	}
	if w, signed, ok := chir.IsIntegerType(be.Right.Type()); ok {
		return w, signed, true
	}
	return 0, false, false
}

func isConstOperand(v chir.Value) bool {
	_, ok := asLiteral(v)
	return ok
}

// memoryEqualityHooks names the container methods SanitizerCoverage dispatches to
// the __cj_sanitizer_weak_hook_* family.
var memoryEqualityHooks = map[string]string{
	"==":         "__cj_sanitizer_weak_hook_memcmp",
	"startsWith": "__cj_sanitizer_weak_hook_strncmp",
	"endsWith":   "__cj_sanitizer_weak_hook_strncmp",
	"indexOf":    "__cj_sanitizer_weak_hook_strstr",
}

func (p *SanitizerCoverage) instrumentMemoryEquality(f *chir.Func) bool {
	changed := false
	for _, b := range f.Body.Blocks {
		var withHooks []chir.Expression
		for _, e := range b.Exprs {
			ae, ok := e.(*chir.ApplyExpr)
			if ok {
				if imp, ok := ae.Callee.(*chir.ImportedFunc); ok {
					if hookName, ok := memoryEqualityHooks[imp.Name]; ok && len(ae.Args) >= 2 {
						hook := sancovHook(hookName, []chir.Type{chir.CPointerType{Pointee: chir.UIntType{Width: sint.I8}}, chir.CPointerType{Pointee: chir.UIntType{Width: sint.I8}}}, chir.UnitType{})
						withHooks = append(withHooks, chir.NewApplyExpr(0, nil, e.SrcRange(), hook, []chir.Value{ae.Args[0], ae.Args[1]}))
						changed = true
					}
				}
			}
			withHooks = append(withHooks, e)
		}
		b.Exprs = withHooks
	}
	return changed
}

// instrumentSwitch materializes the `[n, 64, case0, case1, ...]` table and
// calls __sanitizer_cov_trace_switch with the selector widened to u64 and
// a raw pointer to the table.
func (p *SanitizerCoverage) instrumentSwitch(b *chir.Block, mb *chir.MultiBranch) bool {
	if _, _, ok := chir.IsIntegerType(mb.Selector.Type()); !ok {
		if _, ok := mb.Selector.Type().(chir.RuneType); !ok {
			return false
		}
	}
	tableVals := make([]chir.Value, 0, len(mb.Cases)+2)
	tableVals = append(tableVals,
		chir.UIntLiteral(sint.New(sint.I64, uint64(len(mb.Cases)))),
		chir.UIntLiteral(sint.New(sint.I64, 64)))
	for _, c := range mb.Cases {
		tableVals = append(tableVals, chir.UIntLiteral(sint.New(sint.I64, c.Value.UVal())))
	}
	tableResult := &chir.LocalVar{Name: "__sancov_switch_table", Ty: chir.RawArrayType{Elem: chir.UIntType{Width: sint.I64}, Dims: 1}}
	tableAlloc := chir.NewRawArrayAllocateExpr(0, tableResult, mb.SrcRange(), chir.UIntType{Width: sint.I64}, chir.UIntLiteral(sint.New(sint.I64, uint64(len(tableVals)))))
	tableResult.Def = tableAlloc

	selCast := &chir.LocalVar{Name: "__sancov_switch_sel", Ty: chir.UIntType{Width: sint.I64}}
	castExpr := chir.NewTypeCastExpr(0, selCast, mb.SrcRange(), mb.Selector, chir.UIntType{Width: sint.I64})
	selCast.Def = castExpr

	hook := sancovHook("__sanitizer_cov_trace_switch", []chir.Type{chir.UIntType{Width: sint.I64}, chir.RawArrayType{Elem: chir.UIntType{Width: sint.I64}, Dims: 1}}, chir.UnitType{})
	call := chir.NewApplyExpr(0, nil, mb.SrcRange(), hook, []chir.Value{selCast, tableResult})

	b.Exprs = append(b.Exprs, tableAlloc, castExpr, call)
	return true
}

// addPackageInitializer emits a per-package initializer (generalizing
// `_global_init`) that calls the external array-allocation and PC-table
// constructors SanitizerCoverage names, so the counter/guard/bool-flag arrays exist
// before any instrumented block runs.
func (p *SanitizerCoverage) addPackageInitializer(pkg *chir.Package, counters int) {
	entry := &chir.Block{Label: "sancov_init_entry"}
	n := chir.UIntLiteral(sint.New(sint.I32, uint64(counters)))
	var exprs []chir.Expression
	if p.Config.TracePCGuard {
		hook := sancovHook("__cj_sancov_guards_ctor", []chir.Type{chir.UIntType{Width: sint.I32}}, chir.UnitType{})
		exprs = append(exprs, chir.NewApplyExpr(0, nil, chir.Range{}, hook, []chir.Value{n}))
	}
	if p.Config.Inline8bitCounters {
		hook := sancovHook("__cj_sancov_8bit_counters_ctor", []chir.Type{chir.UIntType{Width: sint.I32}}, chir.UnitType{})
		exprs = append(exprs, chir.NewApplyExpr(0, nil, chir.Range{}, hook, []chir.Value{n}))
	}
	if p.Config.InlineBoolFlag {
		hook := sancovHook("__cj_sancov_bool_flag_ctor", []chir.Type{chir.UIntType{Width: sint.I32}}, chir.UnitType{})
		exprs = append(exprs, chir.NewApplyExpr(0, nil, chir.Range{}, hook, []chir.Value{n}))
	}
	if p.Config.PCTable {
		hook := sancovHook("__cj_sancov_pcs_init", nil, chir.UnitType{})
		exprs = append(exprs, chir.NewApplyExpr(0, nil, chir.Range{}, hook, nil))
	}
	entry.Exprs = exprs
	entry.Term = chir.NewExit(0, chir.Range{}, nil)
	body := &chir.BlockGroup{Entry: entry, Blocks: []*chir.Block{entry}}
	body.RebuildEdges()

	init := &chir.Func{Name: "__sancov_init_" + pkg.Name, Package: pkg.Name, Ret: chir.UnitType{}, Body: body}
	init.SetAttr(chir.AttrCompilerAdd, true)
	pkg.Funcs = append(pkg.Funcs, init)
}
