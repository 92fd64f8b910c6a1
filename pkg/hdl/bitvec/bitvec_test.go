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
	"testing"
)

func Test_Vector_01(t *testing.T) {
	checkString(t, FromUint64(6, 4), "0110")
}

func Test_Vector_02(t *testing.T) {
	checkString(t, FromInt64(-1, 4), "1111")
}

func Test_Vector_03(t *testing.T) {
	checkString(t, FromBigInt(big.NewInt(-2), 4), "1110")
}

func Test_Vector_04(t *testing.T) {
	// Sign extension replicates the most significant bit.
	checkString(t, FromUint64(0b1010, 4).Extend(8, true), "11111010")
}

func Test_Vector_05(t *testing.T) {
	checkString(t, FromUint64(0b1010, 4).Extend(8, false), "00001010")
}

func Test_Vector_06(t *testing.T) {
	checkString(t, FromUint64(0b11010, 5).Extend(3, true), "010")
}

func Test_Vector_07(t *testing.T) {
	v := New(4)
	v.Set(2, X)
	v.Set(3, Z)
	checkString(t, v, "zx00")
	//
	if v.IsFullyDefined() {
		t.Errorf("expected undefined bits in %s", v.String())
	}
}

func Test_Vector_08(t *testing.T) {
	if FromInt64(-1, 8).AsBigInt(true).Int64() != -1 {
		t.Errorf("signed reinterpretation failed")
	}
	//
	if FromInt64(-1, 8).AsBigInt(false).Int64() != 255 {
		t.Errorf("unsigned reinterpretation failed")
	}
}

func Test_Vector_09(t *testing.T) {
	if FromString("AB").AsString() != "AB" {
		t.Errorf("string payload round trip failed")
	}
}

func Test_Vector_10(t *testing.T) {
	checkString(t, FromFloat(2.5, 4), "0011")
	checkString(t, FromFloat(-2.5, 4), "1101")
}

// Arithmetic

func Test_Arith_01(t *testing.T) {
	checkString(t, Add(FromUint64(3, 4), FromUint64(2, 4), false, false, 4), "0101")
}

func Test_Arith_02(t *testing.T) {
	// Truncation at the result width.
	checkString(t, Add(FromUint64(15, 4), FromUint64(1, 4), false, false, 4), "0000")
}

func Test_Arith_03(t *testing.T) {
	// Signed operands widen with their sign.
	checkString(t, Add(FromInt64(-1, 4), FromInt64(0, 4), true, true, 8), "11111111")
}

func Test_Arith_04(t *testing.T) {
	checkString(t, Sub(FromUint64(0, 4), FromUint64(1, 4), false, false, 4), "1111")
}

func Test_Arith_05(t *testing.T) {
	checkString(t, Mul(FromUint64(3, 8), FromUint64(2, 8), false, false, 8), "00000110")
}

func Test_Arith_06(t *testing.T) {
	// Division by zero yields all-X.
	checkString(t, Div(FromUint64(3, 4), FromUint64(0, 4), false, false, 4), "xxxx")
	checkString(t, Mod(FromUint64(3, 4), FromUint64(0, 4), false, false, 4), "xxxx")
}

func Test_Arith_07(t *testing.T) {
	// Truncating division; remainder takes the dividend's sign.
	checkString(t, Div(FromInt64(-7, 8), FromInt64(2, 8), true, true, 8), FromInt64(-3, 8).String())
	checkString(t, Mod(FromInt64(-7, 8), FromInt64(2, 8), true, true, 8), FromInt64(-1, 8).String())
}

func Test_Arith_08(t *testing.T) {
	// An undefined operand poisons the result.
	lhs := FromUint64(3, 4)
	lhs.Set(0, X)
	checkString(t, Add(lhs, FromUint64(1, 4), false, false, 4), "xxxx")
}

func Test_Arith_09(t *testing.T) {
	checkString(t, Pow(FromUint64(2, 8), FromUint64(5, 8), false, false, 8), "00100000")
}

func Test_Arith_10(t *testing.T) {
	// Negative exponents collapse to zero except for bases one and minus
	// one.
	checkString(t, Pow(FromUint64(2, 4), FromInt64(-1, 4), false, true, 4), "0000")
	checkString(t, Pow(FromUint64(1, 4), FromInt64(-1, 4), false, true, 4), "0001")
	checkString(t, Pow(FromInt64(-1, 4), FromInt64(-1, 4), true, true, 4), "1111")
}

func Test_Arith_11(t *testing.T) {
	checkString(t, Neg(FromUint64(1, 4), Unused, false, false, 4), "1111")
}

// Bitwise

func Test_Bitwise_01(t *testing.T) {
	checkString(t, And(FromUint64(0b1100, 4), FromUint64(0b1010, 4), false, false, 4), "1000")
}

func Test_Bitwise_02(t *testing.T) {
	// A dominant zero defeats an unknown operand bit.
	lhs := FromBits([]Bit{Zero, One, X, X})
	rhs := FromBits([]Bit{X, X, Zero, One})
	checkString(t, And(lhs, rhs, false, false, 4), "x0x0")
	checkString(t, Or(lhs, rhs, false, false, 4), "1x1x")
}

func Test_Bitwise_03(t *testing.T) {
	lhs := FromBits([]Bit{Zero, One, X, Z})
	checkString(t, Not(lhs, Unused, false, false, 4), "xx01")
}

func Test_Bitwise_04(t *testing.T) {
	checkString(t, Xor(FromUint64(0b1100, 4), FromUint64(0b1010, 4), false, false, 4), "0110")
	checkString(t, Xnor(FromUint64(0b1100, 4), FromUint64(0b1010, 4), false, false, 4), "1001")
}

// Shifts

func Test_Shift_01(t *testing.T) {
	checkString(t, Shl(FromUint64(0b0011, 4), FromUint64(1, 4), false, false, 4), "0110")
	checkString(t, Shr(FromUint64(0b1100, 4), FromUint64(2, 4), false, false, 4), "0011")
}

func Test_Shift_02(t *testing.T) {
	// Arithmetic right shift replicates the sign bit of a signed operand.
	checkString(t, Sshr(FromUint64(0b1100, 4), FromUint64(1, 4), true, false, 4), "1110")
	checkString(t, Sshr(FromUint64(0b1100, 4), FromUint64(1, 4), false, false, 4), "0110")
}

func Test_Shift_03(t *testing.T) {
	// A shift by an undefined amount is undefined.
	amount := FromUint64(1, 4)
	amount.Set(0, X)
	checkString(t, Shl(FromUint64(1, 4), amount, false, false, 4), "xxxx")
}

func Test_Shift_04(t *testing.T) {
	// Oversized shifts vacate every bit.
	checkString(t, Shl(FromUint64(0b1111, 4), FromUint64(9, 4), false, false, 4), "0000")
	checkString(t, Sshr(FromUint64(0b1000, 4), FromUint64(9, 4), true, false, 4), "1111")
}

// Comparisons

func Test_Cmp_01(t *testing.T) {
	checkString(t, Lt(FromUint64(2, 4), FromUint64(3, 4), false, false, 1), "1")
	checkString(t, Ge(FromUint64(2, 4), FromUint64(3, 4), false, false, 1), "0")
}

func Test_Cmp_02(t *testing.T) {
	// Mutual signedness: 1111 is -1 when both sides are signed.
	checkString(t, Lt(FromInt64(-1, 4), FromUint64(0, 4), true, true, 1), "1")
	checkString(t, Lt(FromInt64(-1, 4), FromUint64(0, 4), false, true, 1), "0")
}

func Test_Cmp_03(t *testing.T) {
	// Comparisons over undefined bits are unknown ...
	lhs := FromUint64(2, 4)
	lhs.Set(3, X)
	checkString(t, Lt(lhs, FromUint64(3, 4), false, false, 1), "x")
	checkString(t, Eq(lhs, FromUint64(2, 4), false, false, 1), "x")
}

func Test_Cmp_04(t *testing.T) {
	// ... unless two defined bits already disagree.
	lhs := FromUint64(1, 4)
	lhs.Set(3, X)
	checkString(t, Eq(lhs, FromUint64(2, 4), false, false, 1), "0")
	checkString(t, Ne(lhs, FromUint64(2, 4), false, false, 1), "1")
}

func Test_Cmp_05(t *testing.T) {
	// Eqx and Nex are strict over all four values.
	lhs := FromUint64(2, 4)
	lhs.Set(3, X)
	rhs := lhs.Clone()
	checkString(t, Eqx(lhs, rhs, false, false, 1), "1")
	//
	rhs.Set(3, Z)
	checkString(t, Eqx(lhs, rhs, false, false, 1), "0")
	checkString(t, Nex(lhs, rhs, false, false, 1), "1")
}

// Reductions and boolean operators

func Test_Reduce_01(t *testing.T) {
	checkString(t, ReduceAnd(FromUint64(0b1111, 4), Unused, false, false, -1), "1")
	checkString(t, ReduceAnd(FromUint64(0b1101, 4), Unused, false, false, -1), "0")
}

func Test_Reduce_02(t *testing.T) {
	checkString(t, ReduceOr(FromUint64(0, 4), Unused, false, false, -1), "0")
	checkString(t, ReduceOr(FromUint64(8, 4), Unused, false, false, -1), "1")
}

func Test_Reduce_03(t *testing.T) {
	checkString(t, ReduceXor(FromUint64(0b0111, 4), Unused, false, false, -1), "1")
	checkString(t, ReduceXnor(FromUint64(0b0111, 4), Unused, false, false, -1), "0")
}

func Test_Reduce_04(t *testing.T) {
	// A dominant bit (a one for or, a zero for and) decides the reduction
	// despite undefined bits.
	v := FromUint64(0b0001, 4)
	v.Set(2, X)
	checkString(t, ReduceOr(v, Unused, false, false, -1), "1")
	checkString(t, ReduceAnd(v, Unused, false, false, -1), "0")
}

func Test_Logic_01(t *testing.T) {
	checkString(t, LogicAnd(FromUint64(2, 4), FromUint64(1, 4), false, false, -1), "1")
	checkString(t, LogicAnd(FromUint64(2, 4), FromUint64(0, 4), false, false, -1), "0")
	checkString(t, LogicOr(FromUint64(0, 4), FromUint64(0, 4), false, false, -1), "0")
	checkString(t, LogicNot(FromUint64(0, 4), Unused, false, false, -1), "1")
}

// ===================================================================
// Helpers
// ===================================================================

func checkString(t *testing.T, v Vector, want string) {
	t.Helper()
	//
	if v.String() != want {
		t.Errorf("got %s, want %s", v.String(), want)
	}
}
