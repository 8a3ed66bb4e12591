package chir

// Constructors for each Expression/Terminator kind. exprBase's fields are
// unexported so that ID/Result/Block stay read-only from outside this
// package once built; every concrete node is assembled here instead of by
// composite literal in calling packages.

func NewConstant(id int, result *LocalVar, rng Range, v *LiteralValue) *Constant {
	return &Constant{exprBase: newExprBase(id, result, rng), Value: v}
}

func NewUnaryExpr(id int, result *LocalVar, rng Range, op UnaryOp, operand Value, st OverflowStrategy) *UnaryExpr {
	return &UnaryExpr{exprBase: newExprBase(id, result, rng), Op: op, Operand: operand, Strategy: st}
}

func NewBinaryExpr(id int, result *LocalVar, rng Range, op BinaryOp, l, r Value, st OverflowStrategy) *BinaryExpr {
	return &BinaryExpr{exprBase: newExprBase(id, result, rng), Op: op, Left: l, Right: r, Strategy: st}
}

func NewTypeCastExpr(id int, result *LocalVar, rng Range, operand Value, dest Type) *TypeCastExpr {
	return &TypeCastExpr{exprBase: newExprBase(id, result, rng), Operand: operand, Dest: dest}
}

func NewApplyExpr(id int, result *LocalVar, rng Range, callee Value, args []Value) *ApplyExpr {
	return &ApplyExpr{exprBase: newExprBase(id, result, rng), Callee: callee, Args: args}
}

func NewInvokeExpr(id int, result *LocalVar, rng Range, recv Value, methodIdx int, args []Value) *InvokeExpr {
	return &InvokeExpr{exprBase: newExprBase(id, result, rng), Receiver: recv, MethodIndex: methodIdx, Args: args}
}

func NewAllocateExpr(id int, result *LocalVar, rng Range, ty Type) *AllocateExpr {
	return &AllocateExpr{exprBase: newExprBase(id, result, rng), Ty: ty}
}

func NewRawArrayAllocateExpr(id int, result *LocalVar, rng Range, elem Type, size Value) *RawArrayAllocateExpr {
	return &RawArrayAllocateExpr{exprBase: newExprBase(id, result, rng), Elem: elem, Size: size}
}

func NewFieldLoadExpr(id int, result *LocalVar, rng Range, base Value, idx int) *FieldLoadExpr {
	return &FieldLoadExpr{exprBase: newExprBase(id, result, rng), Base: base, FieldIndex: idx}
}

func NewFieldStoreExpr(id int, rng Range, base Value, idx int, val Value) *FieldStoreExpr {
	return &FieldStoreExpr{exprBase: newExprBase(id, nil, rng), Base: base, FieldIndex: idx, Value: val}
}

func NewVArrayGetExpr(id int, result *LocalVar, rng Range, base, index Value) *VArrayGetExpr {
	return &VArrayGetExpr{exprBase: newExprBase(id, result, rng), Base: base, Index: index}
}

func NewVArraySetExpr(id int, rng Range, base, index, val Value) *VArraySetExpr {
	return &VArraySetExpr{exprBase: newExprBase(id, nil, rng), Base: base, Index: index, Value: val}
}

func NewRangeCtorExpr(id int, result *LocalVar, rng Range, start, end, step Value, closed bool) *RangeCtorExpr {
	return &RangeCtorExpr{exprBase: newExprBase(id, result, rng), Start: start, End: end, Step: step, IsClosed: closed}
}

func NewGoto(id int, rng Range, target *Block) *Goto {
	return &Goto{exprBase: newExprBase(id, nil, rng), Target: target}
}

func NewBranch(id int, rng Range, cond Value, t, f *Block) *Branch {
	return &Branch{exprBase: newExprBase(id, nil, rng), Cond: cond, True: t, False: f}
}

func NewMultiBranch(id int, rng Range, selector Value, cases []MultiBranchCase, def *Block) *MultiBranch {
	return &MultiBranch{exprBase: newExprBase(id, nil, rng), Selector: selector, Cases: cases, Default: def}
}

func NewExit(id int, rng Range, v Value) *Exit {
	return &Exit{exprBase: newExprBase(id, nil, rng), Value: v}
}

func NewRaiseException(id int, rng Range, exc Value) *RaiseException {
	return &RaiseException{exprBase: newExprBase(id, nil, rng), Exception: exc}
}

func NewApplyWithException(id int, rng Range, callee Value, args []Value, success, errb *Block) *ApplyWithException {
	return &ApplyWithException{exprBase: newExprBase(id, nil, rng), Callee: callee, Args: args, Success: success, Error: errb}
}

func NewInvokeWithException(id int, rng Range, recv Value, methodIdx int, args []Value, success, errb *Block) *InvokeWithException {
	return &InvokeWithException{exprBase: newExprBase(id, nil, rng), Receiver: recv, MethodIndex: methodIdx, Args: args, Success: success, Error: errb}
}

func NewIntOpWithExceptionBinary(id int, rng Range, op BinaryOp, l, r Value, success, errb *Block) *IntOpWithException {
	return &IntOpWithException{exprBase: newExprBase(id, nil, rng), BinOp: op, Left: l, Right: r, Success: success, Error: errb}
}

func NewIntOpWithExceptionUnary(id int, rng Range, op UnaryOp, operand Value, success, errb *Block) *IntOpWithException {
	return &IntOpWithException{exprBase: newExprBase(id, nil, rng), IsUnary: true, UnOp: op, Left: operand, Success: success, Error: errb}
}

func NewTypeCastWithException(id int, rng Range, operand Value, dest Type, success, errb *Block) *TypeCastWithException {
	return &TypeCastWithException{exprBase: newExprBase(id, nil, rng), Operand: operand, Dest: dest, Success: success, Error: errb}
}

func NewIntrinsicWithException(id int, rng Range, name string, args []Value, success, errb *Block) *IntrinsicWithException {
	return &IntrinsicWithException{exprBase: newExprBase(id, nil, rng), Name: name, Args: args, Success: success, Error: errb}
}
