// Package rangeanalysis implements integer range analysis: a
// per-expression SIntDomain (a numeric ConstantRange bound plus symbolic
// bounds relative to other SSA names) or BoolDomain for conditions. It
// narrows branches, proves VArray accesses in-bounds, and is built on
// internal/crange + internal/booldomain + internal/interp.
package rangeanalysis

import (
	"chir/internal/chir"
	"chir/internal/crange"
	"chir/internal/sint"
)

// SIntDomain is the per-SSA-name abstract value for integers: a
// numeric ConstantRange bound plus a map from another SSA name to a
// ConstantRange bounding `this - that` (a symbolic bound), plus whether
// this value is unsigned.
type SIntDomain struct {
	Numeric    crange.Range
	Symbolic   map[chir.Value]crange.Range
	IsUnsigned bool
}

func symCopy(m map[chir.Value]crange.Range) map[chir.Value]crange.Range {
	if m == nil {
		return nil
	}
	out := make(map[chir.Value]crange.Range, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// TopSInt returns the full-range (⊤) SIntDomain at width w.
func TopSInt(w sint.Width, unsigned bool) SIntDomain {
	return SIntDomain{Numeric: crange.Full(w), IsUnsigned: unsigned}
}

// FromNumeric builds an SIntDomain satisfying `this REL value`, per the
// original's SIntDomain.h constructor surface.
func FromNumeric(rel crange.RelationalOperation, value sint.SInt, isUnsigned bool) SIntDomain {
	return SIntDomain{Numeric: crange.From(rel, value, !isUnsigned), IsUnsigned: isUnsigned}
}

// FromSymbolic builds a full numeric-bound SIntDomain carrying one
// symbolic bound against sym, used when narrowing a branch on `x < y`
// where y isn't itself a known constant.
func FromSymbolic(sym chir.Value, bound crange.Range, isUnsigned bool) SIntDomain {
	return SIntDomain{
		Numeric:    crange.Full(bound.Width()),
		Symbolic:   map[chir.Value]crange.Range{sym: bound},
		IsUnsigned: isUnsigned,
	}
}

func (d SIntDomain) Copy() SIntDomain {
	return SIntDomain{Numeric: d.Numeric, Symbolic: symCopy(d.Symbolic), IsUnsigned: d.IsUnsigned}
}

// Join computes the componentwise union: the numeric bounds union, and a
// symbolic bound survives only when both sides carry one for the same
// name, widened to their union.
func (d SIntDomain) Join(o SIntDomain) SIntDomain {
	pref := crange.PreferFromBool(d.IsUnsigned)
	out := SIntDomain{Numeric: d.Numeric.Union(o.Numeric, pref), IsUnsigned: d.IsUnsigned}
	if len(d.Symbolic) > 0 && len(o.Symbolic) > 0 {
		out.Symbolic = map[chir.Value]crange.Range{}
		for k, v := range d.Symbolic {
			if ov, ok := o.Symbolic[k]; ok {
				out.Symbolic[k] = v.Union(ov, pref)
			}
		}
	}
	return out
}

// Meet computes the componentwise intersection: numeric bounds intersect,
// symbolic bounds union keys from both sides, intersecting where both
// have an entry.
func (d SIntDomain) Meet(o SIntDomain) SIntDomain {
	pref := crange.PreferFromBool(d.IsUnsigned)
	out := SIntDomain{Numeric: d.Numeric.Intersect(o.Numeric, pref), IsUnsigned: d.IsUnsigned}
	out.Symbolic = symCopy(d.Symbolic)
	for k, v := range o.Symbolic {
		if out.Symbolic == nil {
			out.Symbolic = map[chir.Value]crange.Range{}
		}
		if existing, ok := out.Symbolic[k]; ok {
			out.Symbolic[k] = existing.Intersect(v, pref)
		} else {
			out.Symbolic[k] = v
		}
	}
	return out
}

func (d SIntDomain) Equals(o SIntDomain) bool {
	if d.Numeric != o.Numeric || d.IsUnsigned != o.IsUnsigned {
		return false
	}
	if len(d.Symbolic) != len(o.Symbolic) {
		return false
	}
	for k, v := range d.Symbolic {
		ov, ok := o.Symbolic[k]
		if !ok || ov != v {
			return false
		}
	}
	return true
}

func (d SIntDomain) IsSingleton() (sint.SInt, bool) {
	return d.Numeric.GetSingleElement()
}
