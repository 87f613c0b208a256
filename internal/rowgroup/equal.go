// Gridscope - Interactive SQL Data Exploration Grid
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gridscope

package rowgroup

import "math"

// Equal compares two scalar cells. nil equals only nil, and numeric cells
// compare by value across integer and float representations. Integers
// compare exactly, so BIGINT keys above 2^53 stay distinct; an integer
// equals a float only when the float holds exactly that integer.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if na, ok := toNumber(a); ok {
		nb, ok := toNumber(b)
		return ok && na.equal(nb)
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	}
	return false
}

type numKind int

const (
	numInt numKind = iota
	numUint
	numFloat
)

type number struct {
	kind numKind
	i    int64
	u    uint64
	f    float64
}

func toNumber(v any) (number, bool) {
	switch n := v.(type) {
	case int64:
		return number{kind: numInt, i: n}, true
	case int:
		return number{kind: numInt, i: int64(n)}, true
	case int32:
		return number{kind: numInt, i: int64(n)}, true
	case int16:
		return number{kind: numInt, i: int64(n)}, true
	case int8:
		return number{kind: numInt, i: int64(n)}, true
	case uint64:
		return number{kind: numUint, u: n}, true
	case uint:
		return number{kind: numUint, u: uint64(n)}, true
	case uint32:
		return number{kind: numUint, u: uint64(n)}, true
	case uint16:
		return number{kind: numUint, u: uint64(n)}, true
	case uint8:
		return number{kind: numUint, u: uint64(n)}, true
	case float64:
		return number{kind: numFloat, f: n}, true
	case float32:
		return number{kind: numFloat, f: float64(n)}, true
	}
	return number{}, false
}

func (a number) equal(b number) bool {
	if a.kind > b.kind {
		a, b = b, a
	}
	switch {
	case a.kind == numInt && b.kind == numInt:
		return a.i == b.i
	case a.kind == numUint && b.kind == numUint:
		return a.u == b.u
	case a.kind == numFloat:
		return a.f == b.f
	case a.kind == numInt && b.kind == numUint:
		return a.i >= 0 && uint64(a.i) == b.u
	case a.kind == numInt:
		return floatIsInt(b.f, a.i)
	default:
		return floatIsUint(b.f, a.u)
	}
}

// 2^63 and 2^64 are exact in float64.
const (
	twoTo63 = float64(1 << 63)
	twoTo64 = twoTo63 * 2
)

func floatIsInt(f float64, i int64) bool {
	if f != math.Trunc(f) || f < -twoTo63 || f >= twoTo63 {
		return false
	}
	return int64(f) == i
}

func floatIsUint(f float64, u uint64) bool {
	if f != math.Trunc(f) || f < 0 || f >= twoTo64 {
		return false
	}
	return uint64(f) == u
}
