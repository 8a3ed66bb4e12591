// Package crange implements ConstantRange, a wrap-aware representation of a
// set of fixed-width integers as a half-open interval [lower, upper) that
// may wrap around the end of the numeric domain. It underlies range
// analysis: every SSA integer value's abstract state carries one of
// these as its numeric bound.
package crange

import (
	"fmt"
	"math/big"

	"chir/internal/sint"
)

// PreferredRangeType disambiguates intersection/union results that could
// validly be represented by more than one disjoint candidate range.
type PreferredRangeType uint8

const (
	Smallest PreferredRangeType = iota
	Unsigned
	Signed
)

func PreferFromBool(useUnsigned bool) PreferredRangeType {
	if useUnsigned {
		return Unsigned
	}
	return Signed
}

type RelationalOperation uint8

const (
	LT RelationalOperation = iota
	LE
	EQ
	GT
	GE
	NE
)

// Range is [Lo, Hi) over a fixed width. Lo == Hi encodes either the empty
// set (Lo == 0) or the full set (Lo == width's unsigned max).
type Range struct {
	Lo, Hi sint.SInt
}

func (r Range) Width() sint.Width { return r.Lo.Width() }

func Empty(w sint.Width) Range {
	z := sint.Zero(w)
	return Range{Lo: z, Hi: z}
}

func Full(w sint.Width) Range {
	m := sint.UMaxValue(w)
	return Range{Lo: m, Hi: m}
}

// Single returns the range containing exactly v.
func Single(v sint.SInt) Range {
	return Range{Lo: v, Hi: v.Add(sint.One(v.Width()))}
}

// NonEmpty builds [l, r), collapsing to the full set when l == r (unlike a
// raw two-bound constructor, which would otherwise produce the ambiguous
// empty/full degenerate case).
func NonEmpty(l, r sint.SInt) Range {
	if l.UVal() == r.UVal() {
		return Full(l.Width())
	}
	return Range{Lo: l, Hi: r}
}

func (r Range) String() string {
	if r.IsEmptySet() {
		return fmt.Sprintf("Int%d[empty]", r.Width())
	}
	if r.IsFullSet() {
		return fmt.Sprintf("Int%d[full]", r.Width())
	}
	return fmt.Sprintf("[%d, %d)", r.Lo.UVal(), r.Hi.UVal())
}

func (r Range) IsEmptySet() bool    { return r.Lo.UVal() == r.Hi.UVal() && r.Lo.IsZero() }
func (r Range) IsFullSet() bool     { return r.Lo.UVal() == r.Hi.UVal() && r.Lo.IsUMaxValue() }
func (r Range) IsNotEmptySet() bool { return !r.IsEmptySet() }

// IsNonTrivial reports whether the set carries any information at all,
// i.e. is not the full set.
func (r Range) IsNonTrivial() bool { return !r.IsFullSet() }

// IsUpperWrapped reports whether the raw bit pattern of Hi precedes Lo,
// regardless of whether that represents a conceptually wrapped set (see
// IsWrappedSet).
func (r Range) IsUpperWrapped() bool { return r.Hi.UVal() < r.Lo.UVal() }

// IsWrappedSet reports whether the set wraps the unsigned domain. [X, 0)
// is excluded: it is equivalent to [X, max] and is not wrapped.
func (r Range) IsWrappedSet() bool { return r.IsUpperWrapped() && !r.Hi.IsZero() }

func signShift(w sint.Width, v uint64) uint64 {
	signBit := uint64(1) << uint(w-1)
	return v ^ signBit
}

func (r Range) IsUpperSignWrapped() bool {
	w := r.Width()
	return signShift(w, r.Hi.UVal()) < signShift(w, r.Lo.UVal())
}

func (r Range) IsSignWrappedSet() bool {
	return r.IsUpperSignWrapped() && signShift(r.Width(), r.Hi.UVal()) != 0
}

// SplitWrapping splits a wrapped range into two non-wrapped pieces whose
// union is the original set. Undefined if the range is not wrapped in the
// requested domain.
func (r Range) SplitWrapping(asUnsigned bool) (Range, Range) {
	w := r.Width()
	if asUnsigned {
		return Range{Lo: r.Lo, Hi: sint.Zero(w)}, Range{Lo: sint.Zero(w), Hi: r.Hi}
	}
	smin := sint.SMinValue(w)
	return Range{Lo: r.Lo, Hi: smin}, Range{Lo: smin, Hi: r.Hi}
}

// offset returns (v - Lo) mod 2^w, the canonical distance used by Contains
// and size computations; it is well defined for wrapped and non-wrapped
// sets alike.
func (r Range) offset(v sint.SInt) uint64 {
	return v.Sub(r.Lo).UVal()
}

func (r Range) size() uint64 {
	if r.IsEmptySet() {
		return 0
	}
	if r.IsFullSet() {
		w := r.Width()
		if w == 64 {
			return 0 // represents 2^64, not representable; callers must special-case IsFullSet first
		}
		return uint64(1) << uint(w)
	}
	return r.Hi.Sub(r.Lo).UVal()
}

func (r Range) Contains(v sint.SInt) bool {
	if r.IsFullSet() {
		return true
	}
	if r.IsEmptySet() {
		return false
	}
	return r.offset(v) < r.offset(r.Hi)
}

func (r Range) IsSingleElement() bool {
	return !r.IsEmptySet() && !r.IsFullSet() && r.Hi.Sub(r.Lo).IsOne()
}

func (r Range) GetSingleElement() (sint.SInt, bool) {
	if !r.IsSingleElement() {
		return sint.SInt{}, false
	}
	return r.Lo, true
}

// IsSizeStrictlySmallerThan compares set cardinality; the full set is
// always considered largest.
func (r Range) IsSizeStrictlySmallerThan(other Range) bool {
	if r.IsFullSet() {
		return false
	}
	if other.IsFullSet() {
		return !r.IsFullSet()
	}
	return r.size() < other.size()
}

// Region: construction from a relational constraint

// From returns the set of all values of the declared width satisfying
// `x rel v`, interpreted as signed or unsigned per isSigned.
func From(rel RelationalOperation, v sint.SInt, isSigned bool) Range {
	w := v.Width()
	one := sint.One(w)
	var lowBound sint.SInt
	if isSigned {
		lowBound = sint.SMinValue(w)
	} else {
		lowBound = sint.Zero(w)
	}
	switch rel {
	case EQ:
		return Range{Lo: v, Hi: v.Add(one)}
	case NE:
		return Range{Lo: v.Add(one), Hi: v}
	case LT:
		return Range{Lo: lowBound, Hi: v}
	case LE:
		return Range{Lo: lowBound, Hi: v.Add(one)}
	case GT:
		return Range{Lo: v.Add(one), Hi: lowBound}
	case GE:
		return Range{Lo: v, Hi: lowBound}
	default:
		panic("crange: unknown relation")
	}
}

// Region: min/max

func (r Range) UMinValue() sint.SInt {
	if r.IsFullSet() || r.IsWrappedSet() {
		return sint.Zero(r.Width())
	}
	return r.Lo
}

func (r Range) UMaxValue() sint.SInt {
	if r.IsFullSet() || r.IsWrappedSet() {
		return sint.UMaxValue(r.Width())
	}
	return r.Hi.Sub(sint.One(r.Width()))
}

func (r Range) SMinValue() sint.SInt {
	if r.IsFullSet() || r.IsSignWrappedSet() {
		return sint.SMinValue(r.Width())
	}
	return r.Lo
}

func (r Range) SMaxValue() sint.SInt {
	if r.IsFullSet() || r.IsSignWrappedSet() {
		return sint.SMaxValue(r.Width())
	}
	return r.Hi.Sub(sint.One(r.Width()))
}

// Region: truncate / extend

func (r Range) Truncate(w sint.Width) Range {
	if r.IsFullSet() {
		return Full(w)
	}
	if r.IsWrappedSet() {
		lower, upper := r.SplitWrapping(true)
		lo := lower.Truncate(w)
		up := upper.Truncate(w)
		return lo.unionNonWrapped(up, Smallest)
	}
	newUpper := r.Hi.Truncate(w)
	// a set of at least 2^w consecutive values covers every value of the new
	// width; a smaller one maps onto the (possibly wrapped) range between
	// the truncated bounds.
	if r.Hi.Sub(r.Lo).UVal() > sint.UMaxValue(w).UVal() {
		return Full(w)
	}
	return Range{Lo: r.Lo.Truncate(w), Hi: newUpper}
}

func (r Range) ZExt(w sint.Width) Range {
	if r.IsFullSet() {
		return NonEmpty(sint.Zero(w), sint.UMaxValue(r.Width()).ZExt(w).Add(sint.One(w)))
	}
	if r.IsWrappedSet() {
		return Full(w)
	}
	return Range{Lo: r.Lo.ZExt(w), Hi: r.Hi.ZExt(w)}
}

func (r Range) SExt(w sint.Width) Range {
	if r.IsFullSet() || r.IsSignWrappedSet() {
		return Full(w)
	}
	return Range{Lo: r.Lo.SExt(w), Hi: r.Hi.SExt(w)}
}

// Region: intersect / union

// IntersectNonWrapped intersects two ranges that are each individually
// non-wrapped (full/empty already handled by the caller).
func (a Range) intersectNonWrapped(b Range) Range {
	w := a.Width()
	if a.IsEmptySet() || b.IsEmptySet() {
		return Empty(w)
	}
	one := sint.One(w)
	lo := a.Lo
	if b.Lo.UVal() > lo.UVal() {
		lo = b.Lo
	}
	// compare inclusive ends: Hi == 0 means the range runs up to the
	// maximum, so it has the largest end, not the smallest.
	end := a.Hi.Sub(one)
	if bEnd := b.Hi.Sub(one); bEnd.UVal() < end.UVal() {
		end = bEnd
	}
	if lo.UVal() > end.UVal() {
		return Empty(w)
	}
	return NonEmpty(lo, end.Add(one))
}

func (a Range) unionNonWrapped(b Range, pref PreferredRangeType) Range {
	w := a.Width()
	if a.IsEmptySet() {
		return b
	}
	if b.IsEmptySet() {
		return a
	}
	if a.IsFullSet() || b.IsFullSet() {
		return Full(w)
	}
	one := sint.One(w)
	lo := a.Lo
	if b.Lo.UVal() < lo.UVal() {
		lo = b.Lo
	}
	// inclusive ends, as in intersectNonWrapped
	end := a.Hi.Sub(one)
	if bEnd := b.Hi.Sub(one); bEnd.UVal() > end.UVal() {
		end = bEnd
	}
	return NonEmpty(lo, end.Add(one))
}

// Intersect computes the intersection, reducing wrapped operands to their
// non-wrapped pieces and intersecting those pairwise. When more than one
// piece survives, the result is the unsigned non-wrapped range spanning
// them all; pref is not consulted, so a smaller wrapped range covering
// the same pieces is never chosen.
func (a Range) Intersect(b Range, pref PreferredRangeType) Range {
	w := a.Width()
	if a.IsEmptySet() || b.IsEmptySet() {
		return Empty(w)
	}
	if a.IsFullSet() {
		return b
	}
	if b.IsFullSet() {
		return a
	}
	if !a.IsWrappedSet() && !b.IsWrappedSet() {
		return a.intersectNonWrapped(b)
	}
	aParts := splitOrSelf(a)
	bParts := splitOrSelf(b)
	results := make([]Range, 0, len(aParts)*len(bParts))
	for _, ap := range aParts {
		for _, bp := range bParts {
			res := ap.intersectNonWrapped(bp)
			if res.IsNotEmptySet() {
				results = append(results, res)
			}
		}
	}
	return mergeCandidates(w, results, pref)
}

// Union computes the union, reducing wrapped operands to non-wrapped
// pieces and returning the unsigned non-wrapped range spanning all of
// them. As in Intersect, pref is not consulted, so a smaller wrapped
// range covering the same values is never chosen.
func (a Range) Union(b Range, pref PreferredRangeType) Range {
	w := a.Width()
	if a.IsFullSet() || b.IsFullSet() {
		return Full(w)
	}
	if a.IsEmptySet() {
		return b
	}
	if b.IsEmptySet() {
		return a
	}
	if !a.IsWrappedSet() && !b.IsWrappedSet() {
		return a.unionNonWrapped(b, pref)
	}
	aParts := splitOrSelf(a)
	bParts := splitOrSelf(b)
	all := append(append([]Range{}, aParts...), bParts...)
	merged := all[0]
	for _, p := range all[1:] {
		merged = merged.unionNonWrapped(p, pref)
	}
	return merged
}

func splitOrSelf(r Range) []Range {
	if r.IsWrappedSet() {
		a, b := r.SplitWrapping(true)
		return []Range{a, b}
	}
	return []Range{r}
}

func mergeCandidates(w sint.Width, results []Range, pref PreferredRangeType) Range {
	if len(results) == 0 {
		return Empty(w)
	}
	merged := results[0]
	for _, r := range results[1:] {
		merged = merged.unionNonWrapped(r, pref)
	}
	// preference only matters when results disagree on wrap domain; the
	// non-wrapped union above already yields a sound covering range.
	switch pref {
	case Unsigned:
		if !merged.IsWrappedSet() {
			return merged
		}
	case Signed:
		if !merged.IsSignWrappedSet() {
			return merged
		}
	}
	return merged
}

// Region: arithmetic

func (a Range) Add(b Range) Range {
	w := a.Width()
	if a.IsEmptySet() || b.IsEmptySet() {
		return Empty(w)
	}
	if a.IsFullSet() || b.IsFullSet() {
		return Full(w)
	}
	newLo := a.Lo.Add(b.Lo)
	newHi := a.Hi.Sub(sint.One(w)).Add(b.Hi.Sub(sint.One(w))).Add(sint.One(w))
	cand := NonEmpty(newLo, newHi)
	if cand.size() < a.size() || cand.size() < b.size() {
		return Full(w)
	}
	return cand
}

func (a Range) Sub(b Range) Range {
	w := a.Width()
	if a.IsEmptySet() || b.IsEmptySet() {
		return Empty(w)
	}
	if a.IsFullSet() || b.IsFullSet() {
		return Full(w)
	}
	newLo := a.Lo.Sub(b.Hi.Sub(sint.One(w)))
	newHi := a.Hi.Sub(sint.One(w)).Sub(b.Lo).Add(sint.One(w))
	cand := NonEmpty(newLo, newHi)
	if cand.size() < a.size() || cand.size() < b.size() {
		return Full(w)
	}
	return cand
}

func widen(v sint.SInt) *big.Int {
	return new(big.Int).SetUint64(v.UVal())
}

func widenSigned(v sint.SInt) *big.Int {
	return big.NewInt(v.SVal())
}

// UMul computes the unsigned product range from the corner values.
func (a Range) UMul(b Range) Range {
	w := a.Width()
	if a.IsEmptySet() || b.IsEmptySet() {
		return Empty(w)
	}
	aMin, aMax := widen(a.UMinValue()), widen(a.UMaxValue())
	bMin, bMax := widen(b.UMinValue()), widen(b.UMaxValue())
	lo := new(big.Int).Mul(aMin, bMin)
	hi := new(big.Int).Mul(aMax, bMax)
	return rangeFromBigBounds(w, lo, hi, false)
}

// SMul computes the signed product range from the corner values.
func (a Range) SMul(b Range) Range {
	w := a.Width()
	if a.IsEmptySet() || b.IsEmptySet() {
		return Empty(w)
	}
	aMin, aMax := widenSigned(a.SMinValue()), widenSigned(a.SMaxValue())
	bMin, bMax := widenSigned(b.SMinValue()), widenSigned(b.SMaxValue())
	candidates := []*big.Int{
		new(big.Int).Mul(aMin, bMin),
		new(big.Int).Mul(aMin, bMax),
		new(big.Int).Mul(aMax, bMin),
		new(big.Int).Mul(aMax, bMax),
	}
	lo, hi := candidates[0], candidates[0]
	for _, c := range candidates[1:] {
		if c.Cmp(lo) < 0 {
			lo = c
		}
		if c.Cmp(hi) > 0 {
			hi = c
		}
	}
	return rangeFromBigBounds(w, lo, hi, true)
}

func rangeFromBigBounds(w sint.Width, lo, hi *big.Int, signed bool) Range {
	var domMin, domMax *big.Int
	if signed {
		domMin = big.NewInt(sint.SMinValue(w).SVal())
		domMax = big.NewInt(sint.SMaxValue(w).SVal())
	} else {
		domMin = big.NewInt(0)
		domMax = new(big.Int).SetUint64(sint.UMaxValue(w).UVal())
	}
	if lo.Cmp(domMin) < 0 || hi.Cmp(domMax) > 0 {
		return Full(w)
	}
	var loVal, hiVal sint.SInt
	if signed {
		loVal = sint.FromSigned(w, lo.Int64())
		hiExclusive := hi.Int64() + 1
		if hiExclusive > sint.SMaxValue(w).SVal() {
			return Full(w)
		}
		hiVal = sint.FromSigned(w, hiExclusive)
	} else {
		loVal = sint.New(w, lo.Uint64())
		hiExclusive := hi.Uint64() + 1
		if hiExclusive > sint.UMaxValue(w).UVal() {
			return Full(w)
		}
		hiVal = sint.New(w, hiExclusive)
	}
	return NonEmpty(loVal, hiVal)
}

// UDiv computes the unsigned quotient range, ignoring any zero divisor in
// the divisor range (division-by-zero paths are diagnosed separately by
// the consuming analysis).
func (a Range) UDiv(b Range) Range {
	w := a.Width()
	if a.IsEmptySet() || b.IsEmptySet() {
		return Empty(w)
	}
	bMin := b.UMinValue()
	if bMin.IsZero() {
		bMin = sint.One(w)
	}
	bMax := b.UMaxValue()
	if bMax.IsZero() {
		return Empty(w)
	}
	aMin, aMax := a.UMinValue(), a.UMaxValue()
	lo := aMin.UDiv(bMax)
	hi := aMax.UDiv(bMin)
	return NonEmpty(lo, hi.Add(sint.One(w)))
}

// SDiv computes the signed quotient range by splitting each operand into
// non-negative/negative halves and unioning the four directional results.
func (a Range) SDiv(b Range) Range {
	w := a.Width()
	if a.IsEmptySet() || b.IsEmptySet() {
		return Empty(w)
	}
	aMin, aMax := a.SMinValue().SVal(), a.SMaxValue().SVal()
	bMin, bMax := b.SMinValue().SVal(), b.SMaxValue().SVal()
	if bMin == 0 && bMax == 0 {
		return Empty(w)
	}
	if bMin <= 0 && bMax >= 0 {
		// divisor range straddles zero; exclude zero by nudging inward
		if bMin == 0 {
			bMin = 1
		}
		if bMax == 0 {
			bMax = -1
		}
	}
	corners := []int64{}
	for _, bv := range []int64{bMin, bMax} {
		if bv == 0 {
			continue
		}
		for _, av := range []int64{aMin, aMax} {
			if av == sint.SMinValue(w).SVal() && bv == -1 {
				continue // SMin/-1 overflow corner, handled conservatively below
			}
			corners = append(corners, av/bv)
		}
	}
	if len(corners) == 0 {
		return Full(w)
	}
	lo, hi := corners[0], corners[0]
	for _, c := range corners[1:] {
		if c < lo {
			lo = c
		}
		if c > hi {
			hi = c
		}
	}
	if aMin == sint.SMinValue(w).SVal() && bMin <= -1 && bMax >= -1 {
		// SMin / -1 is poisonous in two's complement; widen to cover it.
		if sint.SMaxValue(w).SVal() > hi {
			hi = sint.SMaxValue(w).SVal()
		}
	}
	if hi+1 > sint.SMaxValue(w).SVal() {
		return Full(w)
	}
	return NonEmpty(sint.FromSigned(w, lo), sint.FromSigned(w, hi+1))
}

// URem bounds the result by [0, |divisor|-1].
func (a Range) URem(b Range) Range {
	w := a.Width()
	if a.IsEmptySet() || b.IsEmptySet() {
		return Empty(w)
	}
	bMax := b.UMaxValue()
	if bMax.IsZero() {
		return Empty(w)
	}
	hi := bMax
	aMax := a.UMaxValue()
	if aMax.UVal() < hi.UVal() {
		hi = aMax.Add(sint.One(w))
	}
	return NonEmpty(sint.Zero(w), hi)
}

// SRem bounds the result by [-(|divisor|-1), |divisor|-1].
func (a Range) SRem(b Range) Range {
	w := a.Width()
	if a.IsEmptySet() || b.IsEmptySet() {
		return Empty(w)
	}
	absBound := b.SMaxValue().SVal()
	if v := -b.SMinValue().SVal(); v > absBound {
		absBound = v
	}
	if absBound == 0 {
		return Empty(w)
	}
	absBound--
	if absBound > sint.SMaxValue(w).SVal() {
		return Full(w)
	}
	return NonEmpty(sint.FromSigned(w, -absBound), sint.FromSigned(w, absBound+1))
}

// Region: saturating arithmetic (endpoint-wise, sound but not precision-tight)

func (a Range) SatUAdd(b Range) Range {
	w := a.Width()
	if a.IsEmptySet() || b.IsEmptySet() {
		return Empty(w)
	}
	lo := a.UMinValue().SatUAdd(b.UMinValue())
	hi := a.UMaxValue().SatUAdd(b.UMaxValue())
	return NonEmpty(lo, hi.Add(sint.One(w)))
}

func (a Range) SatSAdd(b Range) Range {
	w := a.Width()
	if a.IsEmptySet() || b.IsEmptySet() {
		return Empty(w)
	}
	lo := a.SMinValue().SatSAdd(b.SMinValue())
	hi := a.SMaxValue().SatSAdd(b.SMaxValue())
	return NonEmpty(lo, hi.Add(sint.One(w)))
}

// Region: unary

func (a Range) Negate() Range {
	w := a.Width()
	if a.IsEmptySet() {
		return Empty(w)
	}
	if a.IsFullSet() {
		return Full(w)
	}
	return Range{Lo: a.Hi.Sub(sint.One(w)).Neg(), Hi: a.Lo.Neg().Add(sint.One(w))}
}

// Abs returns the range of absolute values. When poisonSMin is true, SMin
// (whose negation doesn't fit) is excluded from the domain rather than
// wrapping back to itself.
func (a Range) Abs(poisonSMin bool) Range {
	w := a.Width()
	if a.IsEmptySet() {
		return Empty(w)
	}
	smin := sint.SMinValue(w)
	if poisonSMin && a.Contains(smin) && a.IsSingleElement() {
		return Empty(w)
	}
	lo, hi := a.SMinValue(), a.SMaxValue()
	candidates := []int64{}
	if poisonSMin && lo.UVal() == smin.UVal() {
		// exclude SMin from consideration; next most negative magnitude is SMin+1
	} else {
		candidates = append(candidates, absInt64(lo.SVal()))
	}
	candidates = append(candidates, absInt64(hi.SVal()))
	if lo.SVal() <= 0 && hi.SVal() >= 0 {
		candidates = append(candidates, 0)
	}
	maxV := candidates[0]
	for _, c := range candidates[1:] {
		if c > maxV {
			maxV = c
		}
	}
	if maxV+1 > sint.SMaxValue(w).SVal() {
		return Full(w)
	}
	return NonEmpty(sint.Zero(w), sint.FromSigned(w, maxV+1))
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// Inverse returns the complement set (all values not in r).
func (a Range) Inverse() Range {
	w := a.Width()
	if a.IsFullSet() {
		return Empty(w)
	}
	if a.IsEmptySet() {
		return Full(w)
	}
	return Range{Lo: a.Hi, Hi: a.Lo}
}
