package crange

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chir/internal/sint"
)

func TestEmptyFullBasics(t *testing.T) {
	e := Empty(sint.I8)
	f := Full(sint.I8)
	assert.True(t, e.IsEmptySet())
	assert.False(t, e.Contains(sint.New(sint.I8, 0)))
	assert.True(t, f.IsFullSet())
	for v := 0; v < 256; v++ {
		assert.True(t, f.Contains(sint.New(sint.I8, uint64(v))))
	}
}

func TestSingleElement(t *testing.T) {
	v := sint.New(sint.I8, 42)
	r := Single(v)
	assert.True(t, r.IsSingleElement())
	got, ok := r.GetSingleElement()
	require.True(t, ok)
	assert.Equal(t, v.UVal(), got.UVal())
	assert.True(t, r.Contains(v))
	assert.False(t, r.Contains(sint.New(sint.I8, 43)))
}

func TestWrappedSetExceptionAtZero(t *testing.T) {
	// [250, 0) == [250, 255], not considered wrapped.
	r := Range{Lo: sint.New(sint.I8, 250), Hi: sint.Zero(sint.I8)}
	assert.True(t, r.IsUpperWrapped())
	assert.False(t, r.IsWrappedSet())
	for v := 250; v < 256; v++ {
		assert.True(t, r.Contains(sint.New(sint.I8, uint64(v))))
	}
	assert.False(t, r.Contains(sint.New(sint.I8, 0)))
}

func TestActuallyWrappedSet(t *testing.T) {
	// [250, 2): covers 250..255 and 0..1
	r := Range{Lo: sint.New(sint.I8, 250), Hi: sint.New(sint.I8, 2)}
	assert.True(t, r.IsWrappedSet())
	assert.True(t, r.Contains(sint.New(sint.I8, 255)))
	assert.True(t, r.Contains(sint.New(sint.I8, 0)))
	assert.True(t, r.Contains(sint.New(sint.I8, 1)))
	assert.False(t, r.Contains(sint.New(sint.I8, 2)))
	assert.False(t, r.Contains(sint.New(sint.I8, 100)))
}

func TestFromRelation(t *testing.T) {
	w := sint.I8
	v := sint.New(w, 10)
	lt := From(LT, v, false)
	for i := 0; i < 10; i++ {
		assert.True(t, lt.Contains(sint.New(w, uint64(i))))
	}
	assert.False(t, lt.Contains(v))

	ge := From(GE, v, false)
	assert.True(t, ge.Contains(v))
	assert.True(t, ge.Contains(sint.New(w, 255)))
	assert.False(t, ge.Contains(sint.New(w, 9)))

	eq := From(EQ, v, false)
	assert.True(t, eq.IsSingleElement())

	ne := From(NE, v, false)
	assert.True(t, ne.IsWrappedSet())
	assert.False(t, ne.Contains(v))
	assert.True(t, ne.Contains(sint.New(w, 0)))
}

func TestFromSignedRelation(t *testing.T) {
	w := sint.I8
	v := sint.FromSigned(w, -5)
	slt := From(LT, v, true)
	assert.True(t, slt.Contains(sint.FromSigned(w, -6)))
	assert.True(t, slt.Contains(sint.SMinValue(w)))
	assert.False(t, slt.Contains(v))
	assert.False(t, slt.Contains(sint.FromSigned(w, 0)))

	sge := From(GE, v, true)
	assert.True(t, sge.Contains(v))
	assert.True(t, sge.Contains(sint.SMaxValue(w)))
	assert.False(t, sge.Contains(sint.FromSigned(w, -6)))
}

func TestUnionOfDisjointIntervals(t *testing.T) {
	w := sint.I8
	a := Range{Lo: sint.New(w, 2), Hi: sint.New(w, 5)}
	b := Range{Lo: sint.New(w, 10), Hi: sint.New(w, 12)}
	u := a.Union(b, Smallest)
	for _, v := range []uint64{2, 3, 4, 10, 11} {
		assert.True(t, u.Contains(sint.New(w, v)), "expected %d in union", v)
	}
	assert.True(t, u.Contains(sint.New(w, 7)), "the smallest single range covering both pieces is [2, 12)")
}

func TestIntersectOverlapping(t *testing.T) {
	w := sint.I8
	a := Range{Lo: sint.New(w, 2), Hi: sint.New(w, 10)}
	b := Range{Lo: sint.New(w, 5), Hi: sint.New(w, 15)}
	i := a.Intersect(b, Smallest)
	assert.Equal(t, uint64(5), i.Lo.UVal())
	assert.Equal(t, uint64(10), i.Hi.UVal())
}

func TestIntersectDisjointIsEmpty(t *testing.T) {
	w := sint.I8
	a := Range{Lo: sint.New(w, 2), Hi: sint.New(w, 4)}
	b := Range{Lo: sint.New(w, 10), Hi: sint.New(w, 12)}
	assert.True(t, a.Intersect(b, Smallest).IsEmptySet())
}

func TestAddSoundnessBruteForce(t *testing.T) {
	w := sint.I8
	a := Range{Lo: sint.New(w, 250), Hi: sint.New(w, 5)} // wraps: 250..255,0..4
	b := Single(sint.New(w, 3))
	sum := a.Add(b)
	for v := 250; v < 256; v++ {
		want := sint.New(w, uint64(v)).Add(sint.New(w, 3))
		assert.True(t, sum.Contains(want), "sum must contain %d+3", v)
	}
	for v := 0; v < 5; v++ {
		want := sint.New(w, uint64(v)).Add(sint.New(w, 3))
		assert.True(t, sum.Contains(want))
	}
}

func TestSubNonWrapped(t *testing.T) {
	w := sint.I8
	a := Range{Lo: sint.New(w, 10), Hi: sint.New(w, 20)}
	b := Range{Lo: sint.New(w, 1), Hi: sint.New(w, 3)}
	diff := a.Sub(b)
	assert.True(t, diff.Contains(sint.New(w, 8)))
	assert.True(t, diff.Contains(sint.New(w, 18)))
}

func TestUMulCollapsesToFullOnOverflow(t *testing.T) {
	w := sint.I8
	a := Range{Lo: sint.New(w, 100), Hi: sint.New(w, 200)}
	b := Range{Lo: sint.New(w, 100), Hi: sint.New(w, 200)}
	r := a.UMul(b)
	assert.True(t, r.IsFullSet())
}

func TestUMulPrecise(t *testing.T) {
	w := sint.I16
	a := Range{Lo: sint.New(w, 2), Hi: sint.New(w, 4)}
	b := Range{Lo: sint.New(w, 3), Hi: sint.New(w, 5)}
	r := a.UMul(b)
	assert.True(t, r.Contains(sint.New(w, 2*3)))
	assert.True(t, r.Contains(sint.New(w, 3*4)))
	assert.False(t, r.Contains(sint.New(w, 100)))
}

func TestSMulSignCorrect(t *testing.T) {
	w := sint.I16
	neg := Range{Lo: sint.FromSigned(w, -5), Hi: sint.FromSigned(w, -2)}
	pos := Range{Lo: sint.FromSigned(w, 2), Hi: sint.FromSigned(w, 5)}
	r := neg.SMul(pos)
	assert.True(t, r.SMaxValue().SVal() < 0)
}

func TestUDivBounds(t *testing.T) {
	w := sint.I8
	a := Range{Lo: sint.New(w, 10), Hi: sint.New(w, 21)}
	b := Single(sint.New(w, 2))
	r := a.UDiv(b)
	assert.True(t, r.Contains(sint.New(w, 5)))
	assert.True(t, r.Contains(sint.New(w, 10)))
}

func TestSDivExcludesSMinByNegOneFromPrecision(t *testing.T) {
	w := sint.I8
	a := Single(sint.SMinValue(w))
	b := Single(sint.FromSigned(w, -1))
	r := a.SDiv(b)
	// SMin / -1 overflows; result must soundly cover SMax at minimum.
	assert.True(t, r.Contains(sint.SMaxValue(w)))
}

func TestURemBound(t *testing.T) {
	w := sint.I8
	a := Range{Lo: sint.New(w, 0), Hi: sint.New(w, 100)}
	b := Single(sint.New(w, 7))
	r := a.URem(b)
	for v := 0; v < 7; v++ {
		assert.True(t, r.Contains(sint.New(w, uint64(v))))
	}
	assert.False(t, r.Contains(sint.New(w, 7)))
}

func TestNegate(t *testing.T) {
	w := sint.I8
	r := Range{Lo: sint.FromSigned(w, 2), Hi: sint.FromSigned(w, 5)}
	n := r.Negate()
	assert.True(t, n.Contains(sint.FromSigned(w, -2)))
	assert.True(t, n.Contains(sint.FromSigned(w, -4)))
	assert.False(t, n.Contains(sint.FromSigned(w, -5)))
}

func TestAbsNonNegative(t *testing.T) {
	w := sint.I8
	r := Range{Lo: sint.FromSigned(w, -5), Hi: sint.FromSigned(w, 3)}
	a := r.Abs(true)
	assert.True(t, a.Contains(sint.FromSigned(w, 0)))
	assert.True(t, a.Contains(sint.FromSigned(w, 4)))
	assert.False(t, a.SMinValue().IsNeg())
}

func TestInverseComplements(t *testing.T) {
	w := sint.I8
	r := Range{Lo: sint.New(w, 2), Hi: sint.New(w, 5)}
	inv := r.Inverse()
	for v := 0; v < 256; v++ {
		val := sint.New(w, uint64(v))
		assert.NotEqual(t, r.Contains(val), inv.Contains(val))
	}
}

func TestTruncateWrappedSplitsCorrectly(t *testing.T) {
	w16 := sint.I16
	w8 := sint.I8
	// range spans [250, 260) in 16-bit terms, which straddles the 8-bit wrap.
	r := Range{Lo: sint.New(w16, 250), Hi: sint.New(w16, 260)}
	tr := r.Truncate(w8)
	assert.True(t, tr.Contains(sint.New(w8, 250)))
	assert.True(t, tr.Contains(sint.New(w8, 3)))
}

func TestZExtFull(t *testing.T) {
	w8 := sint.I8
	w16 := sint.I16
	f := Full(w8)
	z := f.ZExt(w16)
	assert.True(t, z.Contains(sint.New(w16, 0)))
	assert.True(t, z.Contains(sint.New(w16, 255)))
	assert.False(t, z.Contains(sint.New(w16, 256)))
}

func TestSExtSignWrappedCollapsesToFull(t *testing.T) {
	w8 := sint.I8
	w16 := sint.I16
	r := Range{Lo: sint.FromSigned(w8, 100), Hi: sint.FromSigned(w8, -100)}
	assert.True(t, r.IsSignWrappedSet())
	s := r.SExt(w16)
	assert.True(t, s.IsFullSet())
}

func TestIsSizeStrictlySmallerThan(t *testing.T) {
	w := sint.I8
	small := Range{Lo: sint.New(w, 1), Hi: sint.New(w, 3)}
	big := Range{Lo: sint.New(w, 1), Hi: sint.New(w, 100)}
	assert.True(t, small.IsSizeStrictlySmallerThan(big))
	assert.False(t, Full(w).IsSizeStrictlySmallerThan(big))
}
