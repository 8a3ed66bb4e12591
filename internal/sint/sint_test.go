package sint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	widths := []Width{I8, I16, I32, I64}
	for _, w := range widths {
		lo, hi := SMinValue(w).SVal(), SMaxValue(w).SVal()
		for _, v := range []int64{lo, lo + 1, -1, 0, 1, hi - 1, hi} {
			s := FromSigned(w, v)
			assert.Equal(t, v, s.SVal(), "width %d value %d", w, v)
		}
	}
}

func TestUnsignedRoundTrip(t *testing.T) {
	for _, w := range []Width{I8, I16, I32, I64} {
		for _, v := range []uint64{0, 1, mask(w) - 1, mask(w)} {
			s := New(w, v)
			assert.Equal(t, v, s.UVal())
		}
	}
}

func TestSAddOvf(t *testing.T) {
	tests := []struct {
		name           string
		a, b           SInt
		wantOverflow   bool
		wantResultSVal int64
	}{
		{"no overflow", FromSigned(I8, 1), FromSigned(I8, 2), false, 3},
		{"max plus one", FromSigned(I8, 127), FromSigned(I8, 1), true, -128},
		{"min minus one", FromSigned(I8, -128), FromSigned(I8, -1), true, 127},
		{"no overflow negative", FromSigned(I8, -10), FromSigned(I8, -20), false, -30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, overflow := SAddOvf(tt.a, tt.b)
			assert.Equal(t, tt.wantOverflow, overflow)
			assert.Equal(t, tt.wantResultSVal, r.SVal())
		})
	}
}

func TestUAddOvfSoundness(t *testing.T) {
	a := New(I8, 250)
	b := New(I8, 10)
	r, overflow := UAddOvf(a, b)
	require.True(t, overflow)
	assert.Equal(t, uint64(4), r.UVal())
}

func TestSMulOvf(t *testing.T) {
	a := FromSigned(I16, 300)
	b := FromSigned(I16, 300)
	_, overflow := SMulOvf(a, b)
	assert.True(t, overflow)

	c := FromSigned(I16, 2)
	d := FromSigned(I16, 3)
	r, overflow := SMulOvf(c, d)
	assert.False(t, overflow)
	assert.Equal(t, int64(6), r.SVal())
}

func TestSDivOvfSMinByNegOne(t *testing.T) {
	a := SMinValue(I32)
	b := FromSigned(I32, -1)
	_, overflow := SDivOvf(a, b)
	assert.True(t, overflow)
}

func TestSaturatingAdd(t *testing.T) {
	a := FromSigned(I8, 127)
	b := FromSigned(I8, 10)
	assert.Equal(t, int64(127), a.SatSAdd(b).SVal())

	c := FromSigned(I8, -128)
	d := FromSigned(I8, -10)
	assert.Equal(t, int64(-128), c.SatSAdd(d).SVal())
}

func TestSaturatingUnsigned(t *testing.T) {
	a := New(I8, 5)
	b := New(I8, 10)
	assert.Equal(t, uint64(0), a.SatUSub(b).UVal())

	c := New(I8, 250)
	d := New(I8, 20)
	assert.Equal(t, uint64(255), c.SatUAdd(d).UVal())
}

func TestTruncateThenZExtRoundTrip(t *testing.T) {
	v := New(I32, 0xAB)
	tr := v.Truncate(I8)
	ext := tr.ZExt(I32)
	assert.Equal(t, v.UVal(), ext.UVal())
}

func TestSExtPreservesNegativeValue(t *testing.T) {
	v := FromSigned(I8, -5)
	ext := v.SExt(I32)
	assert.Equal(t, int64(-5), ext.SVal())
}

func TestBitMasks(t *testing.T) {
	assert.Equal(t, uint64(0b00001111), GetLowBitsSet(I8, 4).UVal())
	assert.Equal(t, uint64(0b11110000), GetHighBitsSet(I8, 4).UVal())
	assert.Equal(t, uint64(0b00010000), GetOneBitSet(I8, 4).UVal())
}

func TestWrappedBitMask(t *testing.T) {
	// ordinary (non-wrapped) range [2, 5)
	ordinary := WrappedBitMask(I8, 2, 5)
	assert.Equal(t, uint64(0b00011100), ordinary.UVal())

	// wrapped range: bits [6,8) U [0,2)
	wrapped := WrappedBitMask(I8, 6, 2)
	assert.Equal(t, uint64(0b11000011), wrapped.UVal())

	// loBit == hiBit: all bits set
	full := WrappedBitMask(I8, 3, 3)
	assert.True(t, full.IsAllOnes())
}

func TestPopCountCtzClz(t *testing.T) {
	v := New(I8, 0b00101100)
	assert.Equal(t, uint(3), v.PopCount())
	assert.Equal(t, uint(2), v.CountTrailingZeros())
	assert.Equal(t, uint(2), v.CountLeadingZeros())

	assert.Equal(t, uint(8), Zero(I8).CountTrailingZeros())
	assert.Equal(t, uint(8), Zero(I8).CountLeadingZeros())
}

func TestIsPowerOf2(t *testing.T) {
	assert.True(t, New(I8, 1).IsPowerOf2())
	assert.True(t, New(I8, 64).IsPowerOf2())
	assert.False(t, New(I8, 0).IsPowerOf2())
	assert.False(t, New(I8, 6).IsPowerOf2())
}

func TestIsUIntNIsSIntN(t *testing.T) {
	v := New(I32, 200)
	assert.True(t, v.IsUIntN(8))
	assert.False(t, v.IsSIntN(8))

	neg := FromSigned(I32, -5)
	assert.True(t, neg.IsSIntN(8))
}

func TestFromString(t *testing.T) {
	v, err := FromString(I16, "-42", R10)
	require.NoError(t, err)
	assert.Equal(t, int64(-42), v.SVal())

	hex, err := FromString(I16, "ff", R16)
	require.NoError(t, err)
	assert.Equal(t, uint64(0xff), hex.UVal())

	_, err = FromString(I8, "notanumber", R10)
	assert.Error(t, err)
}

func TestIsSameValue(t *testing.T) {
	a := New(I8, 5)
	b := New(I32, 5)
	assert.True(t, IsSameValue(a, b))
}
