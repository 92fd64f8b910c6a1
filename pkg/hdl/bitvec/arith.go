// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package bitvec

import (
	"math/big"
)

// This file provides the constant arithmetic oracle used by the elaborator
// when folding expressions over four-valued constants.  Every operation
// accepts two operands along with their signedness, and a result width.  A
// negative result width means the natural width of the operation.  Unary
// operations ignore their second operand, for which Unused can be passed.

// Unused is a placeholder for the ignored operand of unary operations.
var Unused = Vector{}

// Not computes the bitwise complement of a.
func Not(a Vector, _ Vector, signedA bool, _ bool, width int) Vector {
	ext := a.Extend(naturalWidth(a, a, width), signedA)
	result := New(ext.Width())
	//
	for i := 0; i < ext.Width(); i++ {
		result.Set(i, notBit(ext.Get(i)))
	}
	//
	return result
}

// And computes the bitwise conjunction of a and b.
func And(a Vector, b Vector, signedA bool, signedB bool, width int) Vector {
	return bitwise(a, b, signedA, signedB, width, andBit)
}

// Or computes the bitwise disjunction of a and b.
func Or(a Vector, b Vector, signedA bool, signedB bool, width int) Vector {
	return bitwise(a, b, signedA, signedB, width, orBit)
}

// Xor computes the bitwise exclusive or of a and b.
func Xor(a Vector, b Vector, signedA bool, signedB bool, width int) Vector {
	return bitwise(a, b, signedA, signedB, width, xorBit)
}

// Xnor computes the bitwise exclusive nor of a and b.
func Xnor(a Vector, b Vector, signedA bool, signedB bool, width int) Vector {
	return bitwise(a, b, signedA, signedB, width, func(x Bit, y Bit) Bit {
		return notBit(xorBit(x, y))
	})
}

// ReduceAnd reduces a to a single bit which is high when all bits of a are
// high.
func ReduceAnd(a Vector, _ Vector, _ bool, _ bool, width int) Vector {
	result := One
	//
	for i := 0; i < a.Width(); i++ {
		result = andBit(result, a.Get(i))
	}
	//
	return reduced(result, width)
}

// ReduceOr reduces a to a single bit which is high when any bit of a is
// high.
func ReduceOr(a Vector, _ Vector, _ bool, _ bool, width int) Vector {
	result := Zero
	//
	for i := 0; i < a.Width(); i++ {
		result = orBit(result, a.Get(i))
	}
	//
	return reduced(result, width)
}

// ReduceXor reduces a to its parity.
func ReduceXor(a Vector, _ Vector, _ bool, _ bool, width int) Vector {
	result := Zero
	//
	for i := 0; i < a.Width(); i++ {
		result = xorBit(result, a.Get(i))
	}
	//
	return reduced(result, width)
}

// ReduceXnor reduces a to the complement of its parity.
func ReduceXnor(a Vector, b Vector, signedA bool, signedB bool, width int) Vector {
	parity := ReduceXor(a, b, signedA, signedB, -1)
	return reduced(notBit(parity.Get(0)), width)
}

// ReduceBool reduces a to a single bit reporting whether it is non-zero.
func ReduceBool(a Vector, b Vector, signedA bool, signedB bool, width int) Vector {
	return ReduceOr(a, b, signedA, signedB, width)
}

// LogicNot computes the boolean negation of a.
func LogicNot(a Vector, _ Vector, _ bool, _ bool, width int) Vector {
	return reduced(notBit(boolBit(a)), width)
}

// LogicAnd computes the boolean conjunction of a and b.
func LogicAnd(a Vector, b Vector, _ bool, _ bool, width int) Vector {
	return reduced(andBit(boolBit(a), boolBit(b)), width)
}

// LogicOr computes the boolean disjunction of a and b.
func LogicOr(a Vector, b Vector, _ bool, _ bool, width int) Vector {
	return reduced(orBit(boolBit(a), boolBit(b)), width)
}

// Shl computes a logically shifted left by b places.
func Shl(a Vector, b Vector, signedA bool, _ bool, width int) Vector {
	return shift(a, b, signedA, width, true, false)
}

// Shr computes a logically shifted right by b places.
func Shr(a Vector, b Vector, signedA bool, _ bool, width int) Vector {
	return shift(a, b, signedA, width, false, false)
}

// Sshl computes a arithmetically shifted left by b places, which coincides
// with the logical shift.
func Sshl(a Vector, b Vector, signedA bool, signedB bool, width int) Vector {
	return Shl(a, b, signedA, signedB, width)
}

// Sshr computes a arithmetically shifted right by b places, replicating the
// sign bit when a is signed.
func Sshr(a Vector, b Vector, signedA bool, _ bool, width int) Vector {
	return shift(a, b, signedA, width, false, signedA)
}

// Lt determines whether a is strictly less than b.
func Lt(a Vector, b Vector, signedA bool, signedB bool, width int) Vector {
	return compare(a, b, signedA, signedB, width, func(c int) bool { return c < 0 })
}

// Le determines whether a is less than or equal to b.
func Le(a Vector, b Vector, signedA bool, signedB bool, width int) Vector {
	return compare(a, b, signedA, signedB, width, func(c int) bool { return c <= 0 })
}

// Ge determines whether a is greater than or equal to b.
func Ge(a Vector, b Vector, signedA bool, signedB bool, width int) Vector {
	return compare(a, b, signedA, signedB, width, func(c int) bool { return c >= 0 })
}

// Gt determines whether a is strictly greater than b.
func Gt(a Vector, b Vector, signedA bool, signedB bool, width int) Vector {
	return compare(a, b, signedA, signedB, width, func(c int) bool { return c > 0 })
}

// Eq determines whether a equals b.  A mismatch between two defined bits
// makes the result a definite zero, even in the presence of undefined bits
// elsewhere.
func Eq(a Vector, b Vector, signedA bool, signedB bool, width int) Vector {
	return reduced(eqBit(a, b, signedA, signedB), width)
}

// Ne determines whether a differs from b.
func Ne(a Vector, b Vector, signedA bool, signedB bool, width int) Vector {
	return reduced(notBit(eqBit(a, b, signedA, signedB)), width)
}

// Eqx determines whether a and b are identical as four-valued vectors.
func Eqx(a Vector, b Vector, signedA bool, signedB bool, width int) Vector {
	return reduced(eqxBit(a, b, signedA, signedB), width)
}

// Nex determines whether a and b differ as four-valued vectors.
func Nex(a Vector, b Vector, signedA bool, signedB bool, width int) Vector {
	return reduced(notBit(eqxBit(a, b, signedA, signedB)), width)
}

// Add computes the sum of a and b.
func Add(a Vector, b Vector, signedA bool, signedB bool, width int) Vector {
	return arith(a, b, signedA, signedB, width, func(x *big.Int, y *big.Int) (*big.Int, bool) {
		return new(big.Int).Add(x, y), true
	})
}

// Sub computes the difference of a and b.
func Sub(a Vector, b Vector, signedA bool, signedB bool, width int) Vector {
	return arith(a, b, signedA, signedB, width, func(x *big.Int, y *big.Int) (*big.Int, bool) {
		return new(big.Int).Sub(x, y), true
	})
}

// Mul computes the product of a and b.
func Mul(a Vector, b Vector, signedA bool, signedB bool, width int) Vector {
	return arith(a, b, signedA, signedB, width, func(x *big.Int, y *big.Int) (*big.Int, bool) {
		return new(big.Int).Mul(x, y), true
	})
}

// Div computes the quotient of a and b, truncating towards zero.  Division
// by zero yields all-X.
func Div(a Vector, b Vector, signedA bool, signedB bool, width int) Vector {
	return arith(a, b, signedA, signedB, width, func(x *big.Int, y *big.Int) (*big.Int, bool) {
		if y.Sign() == 0 {
			return nil, false
		}
		//
		return new(big.Int).Quo(x, y), true
	})
}

// Mod computes the remainder of a and b, taking the sign of the dividend.
// Modulo by zero yields all-X.
func Mod(a Vector, b Vector, signedA bool, signedB bool, width int) Vector {
	return arith(a, b, signedA, signedB, width, func(x *big.Int, y *big.Int) (*big.Int, bool) {
		if y.Sign() == 0 {
			return nil, false
		}
		//
		return new(big.Int).Rem(x, y), true
	})
}

// Pow computes a raised to the power b.  A negative exponent yields zero
// except for the bases one and minus one.
func Pow(a Vector, b Vector, signedA bool, signedB bool, width int) Vector {
	rwidth := naturalWidth(a, b, width)
	//
	if !a.IsFullyDefined() || !b.IsFullyDefined() {
		return NewFilled(rwidth, X)
	}
	//
	base := a.AsBigInt(signedA)
	exp := b.AsBigInt(signedB)
	//
	if exp.Sign() < 0 {
		switch {
		case base.Cmp(big.NewInt(1)) == 0:
			return FromBigInt(big.NewInt(1), rwidth)
		case base.Cmp(big.NewInt(-1)) == 0 && exp.Bit(0) == 1:
			return FromBigInt(big.NewInt(-1), rwidth)
		case base.Cmp(big.NewInt(-1)) == 0:
			return FromBigInt(big.NewInt(1), rwidth)
		case base.Sign() == 0:
			// 0 ** negative is a division by zero
			return NewFilled(rwidth, X)
		default:
			return New(rwidth)
		}
	}
	//
	result := new(big.Int).Exp(base, exp, nil)
	//
	return FromBigInt(result, rwidth)
}

// Pos computes the (extending) identity of a.
func Pos(a Vector, _ Vector, signedA bool, _ bool, width int) Vector {
	return a.Extend(naturalWidth(a, a, width), signedA)
}

// Neg computes the two's complement negation of a.
func Neg(a Vector, _ Vector, signedA bool, _ bool, width int) Vector {
	rwidth := naturalWidth(a, a, width)
	//
	if !a.IsFullyDefined() {
		return NewFilled(rwidth, X)
	}
	//
	value := new(big.Int).Neg(a.AsBigInt(signedA))
	//
	return FromBigInt(value, rwidth)
}

// ===================================================================
// Helpers
// ===================================================================

// naturalWidth determines the effective result width of an operation, being
// either the requested width or the widest operand.
func naturalWidth(a Vector, b Vector, width int) int {
	if width >= 0 {
		return width
	} else if a.Width() >= b.Width() {
		return a.Width()
	}
	//
	return b.Width()
}

// reduced packages a single-bit result at a given width, zero extending as
// necessary.
func reduced(b Bit, width int) Vector {
	if width < 0 {
		width = 1
	}
	//
	v := New(width)
	if width > 0 {
		v.Set(0, b)
	}
	//
	return v
}

// boolBit reduces a vector to a boolean bit, where any definite one means
// true and any undefined bit leaves the answer unknown.
func boolBit(a Vector) Bit {
	result := Zero
	//
	for i := 0; i < a.Width(); i++ {
		result = orBit(result, a.Get(i))
	}
	//
	return result
}

// bitwise applies a four-valued bit function pointwise across two operands
// extended to a common width.
func bitwise(a Vector, b Vector, signedA bool, signedB bool, width int, fn func(Bit, Bit) Bit) Vector {
	rwidth := naturalWidth(a, b, width)
	lhs := a.Extend(rwidth, signedA)
	rhs := b.Extend(rwidth, signedB)
	result := New(rwidth)
	//
	for i := 0; i < rwidth; i++ {
		result.Set(i, fn(lhs.Get(i), rhs.Get(i)))
	}
	//
	return result
}

// shift implements the four shift operations.  An undefined shift amount
// produces an all-X result.
func shift(a Vector, b Vector, signedA bool, width int, left bool, arithRight bool) Vector {
	rwidth := width
	if rwidth < 0 {
		rwidth = a.Width()
	}
	//
	if !b.IsFullyDefined() {
		return NewFilled(rwidth, X)
	}
	//
	ext := a.Extend(rwidth, signedA)
	amount := b.AsBigInt(false)
	result := New(rwidth)
	// Fill value for vacated high bits of a right shift.
	fill := Zero
	if arithRight && rwidth > 0 {
		fill = ext.Get(rwidth - 1)
	}
	// Oversized shifts vacate every bit.
	if amount.Cmp(big.NewInt(int64(rwidth))) >= 0 {
		if !left && arithRight {
			return NewFilled(rwidth, fill)
		}
		//
		return result
	}
	//
	n := int(amount.Int64())
	//
	for i := 0; i < rwidth; i++ {
		if left {
			if i >= n {
				result.Set(i, ext.Get(i-n))
			}
		} else {
			if i+n < rwidth {
				result.Set(i, ext.Get(i+n))
			} else {
				result.Set(i, fill)
			}
		}
	}
	//
	return result
}

// compare implements the ordered comparisons.  Any undefined operand bit
// makes the outcome unknown.
func compare(a Vector, b Vector, signedA bool, signedB bool, width int, fn func(int) bool) Vector {
	if !a.IsFullyDefined() || !b.IsFullyDefined() {
		return reduced(X, width)
	}
	//
	signed := signedA && signedB
	c := a.AsBigInt(signed).Cmp(b.AsBigInt(signed))
	//
	if fn(c) {
		return reduced(One, width)
	}
	//
	return reduced(Zero, width)
}

// eqBit determines the four-valued equality bit of two operands extended to
// a common width.
func eqBit(a Vector, b Vector, signedA bool, signedB bool) Bit {
	rwidth := naturalWidth(a, b, -1)
	lhs := a.Extend(rwidth, signedA)
	rhs := b.Extend(rwidth, signedB)
	undef := false
	//
	for i := 0; i < rwidth; i++ {
		x, y := lhs.Get(i), rhs.Get(i)
		if x.IsDefined() && y.IsDefined() {
			if x != y {
				// A definite mismatch dominates any undefined bits.
				return Zero
			}
		} else {
			undef = true
		}
	}
	//
	if undef {
		return X
	}
	//
	return One
}

// eqxBit determines the strict four-valued equality bit of two operands.
func eqxBit(a Vector, b Vector, signedA bool, signedB bool) Bit {
	rwidth := naturalWidth(a, b, -1)
	lhs := a.Extend(rwidth, signedA)
	rhs := b.Extend(rwidth, signedB)
	//
	for i := 0; i < rwidth; i++ {
		if lhs.Get(i) != rhs.Get(i) {
			return Zero
		}
	}
	//
	return One
}

// arith implements the integer arithmetic operations over fully defined
// operands, yielding all-X otherwise.
func arith(a Vector, b Vector, signedA bool, signedB bool, width int,
	fn func(*big.Int, *big.Int) (*big.Int, bool)) Vector {
	rwidth := naturalWidth(a, b, width)
	//
	if !a.IsFullyDefined() || !b.IsFullyDefined() {
		return NewFilled(rwidth, X)
	}
	//
	signed := signedA && signedB
	result, ok := fn(a.AsBigInt(signed), b.AsBigInt(signed))
	//
	if !ok {
		return NewFilled(rwidth, X)
	}
	//
	return FromBigInt(result, rwidth)
}
