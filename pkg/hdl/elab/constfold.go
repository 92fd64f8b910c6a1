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
package elab

import (
	"math"

	"github.com/consensys/go-elab/pkg/hdl/ast"
	"github.com/consensys/go-elab/pkg/hdl/bitvec"
)

// binaryOp is the shape of the constant arithmetic oracle's operations.
type binaryOp = func(bitvec.Vector, bitvec.Vector, bool, bool, int) bitvec.Vector

// constFoldNode evaluates a node whose children are constant, using the
// oracle at the current width and sign hints.  Real operands fall back to
// IEEE-754 arithmetic.  Returns nil when the node cannot be folded.
//
//nolint:gocyclo
func (p *Elaborator) constFoldNode(n *ast.Node, atZero bool, widthHint int, signHint bool) (*ast.Node, error) {
	switch n.Kind {
	case ast.KindIdentifier:
		return p.foldIdentifier(n, atZero, widthHint, signHint)

	case ast.KindBitNot:
		if n.Children[0].Kind == ast.KindConstant {
			y := bitvec.Not(n.Children[0].BitsAt(widthHint, signHint), bitvec.Unused, signHint, false, widthHint)
			return ast.ConstBits(y, signHint), nil
		}

	case ast.KindToSigned, ast.KindToUnsigned:
		if n.Children[0].Kind == ast.KindConstant {
			y := n.Children[0].BitsAt(widthHint, signHint)
			return ast.ConstBits(y, n.Kind == ast.KindToSigned), nil
		}

	case ast.KindBitAnd, ast.KindBitOr, ast.KindBitXor, ast.KindBitXnor:
		if bothConstant(n) {
			fn := map[ast.Kind]binaryOp{
				ast.KindBitAnd:  bitvec.And,
				ast.KindBitOr:   bitvec.Or,
				ast.KindBitXor:  bitvec.Xor,
				ast.KindBitXnor: bitvec.Xnor,
			}[n.Kind]
			//
			y := fn(n.Children[0].BitsAt(widthHint, signHint),
				n.Children[1].BitsAt(widthHint, signHint), signHint, signHint, widthHint)
			//
			return ast.ConstBits(y, signHint), nil
		}

	case ast.KindReduceAnd, ast.KindReduceOr, ast.KindReduceXor, ast.KindReduceXnor, ast.KindReduceBool:
		if n.Children[0].Kind == ast.KindConstant {
			fn := map[ast.Kind]binaryOp{
				ast.KindReduceAnd:  bitvec.ReduceAnd,
				ast.KindReduceOr:   bitvec.ReduceOr,
				ast.KindReduceXor:  bitvec.ReduceXor,
				ast.KindReduceXnor: bitvec.ReduceXnor,
				ast.KindReduceBool: bitvec.ReduceBool,
			}[n.Kind]
			//
			y := fn(n.Children[0].Value, bitvec.Unused, false, false, -1)
			//
			return ast.ConstBits(y, false), nil
		}

	case ast.KindLogicNot:
		if n.Children[0].Kind == ast.KindConstant {
			y := bitvec.LogicNot(n.Children[0].Value, bitvec.Unused, n.Children[0].IsSigned, false, -1)
			return ast.ConstBits(y, false), nil
		} else if n.Children[0].IsConst() {
			return boolConst(n.Children[0].AsReal(signHint) == 0), nil
		}

	case ast.KindLogicAnd, ast.KindLogicOr:
		if bothConstant(n) {
			fn := bitvec.LogicAnd
			if n.Kind == ast.KindLogicOr {
				fn = bitvec.LogicOr
			}
			//
			y := fn(n.Children[0].Value, n.Children[1].Value,
				n.Children[0].IsSigned, n.Children[1].IsSigned, -1)
			//
			return ast.ConstBits(y, false), nil
		} else if n.Children[0].IsConst() && n.Children[1].IsConst() {
			lhs := n.Children[0].AsReal(signHint) != 0
			rhs := n.Children[1].AsReal(signHint) != 0
			//
			if n.Kind == ast.KindLogicAnd {
				return boolConst(lhs && rhs), nil
			}
			//
			return boolConst(lhs || rhs), nil
		}

	case ast.KindShiftLeft, ast.KindShiftRight, ast.KindShiftSLeft, ast.KindShiftSRight, ast.KindPow:
		if bothConstant(n) {
			fn := map[ast.Kind]binaryOp{
				ast.KindShiftLeft:   bitvec.Shl,
				ast.KindShiftRight:  bitvec.Shr,
				ast.KindShiftSLeft:  bitvec.Sshl,
				ast.KindShiftSRight: bitvec.Sshr,
				ast.KindPow:         bitvec.Pow,
			}[n.Kind]
			// Only an exponent carries its own signedness; shift amounts are
			// always unsigned.
			rhsSign := n.Kind == ast.KindPow && n.Children[1].IsSigned
			//
			y := fn(n.Children[0].BitsAt(widthHint, signHint),
				n.Children[1].Value, signHint, rhsSign, widthHint)
			//
			return ast.ConstBits(y, signHint), nil
		} else if n.Kind == ast.KindPow && n.Children[0].IsConst() && n.Children[1].IsConst() {
			return ast.NewReal(math.Pow(n.Children[0].AsReal(signHint), n.Children[1].AsReal(signHint))), nil
		}

	case ast.KindLt, ast.KindLe, ast.KindEq, ast.KindNe, ast.KindEqx, ast.KindNex, ast.KindGe, ast.KindGt:
		return foldComparison(n, signHint)

	case ast.KindAdd, ast.KindSub, ast.KindMul, ast.KindDiv, ast.KindMod:
		if bothConstant(n) {
			fn := map[ast.Kind]binaryOp{
				ast.KindAdd: bitvec.Add,
				ast.KindSub: bitvec.Sub,
				ast.KindMul: bitvec.Mul,
				ast.KindDiv: bitvec.Div,
				ast.KindMod: bitvec.Mod,
			}[n.Kind]
			//
			y := fn(n.Children[0].BitsAt(widthHint, signHint),
				n.Children[1].BitsAt(widthHint, signHint), signHint, signHint, widthHint)
			//
			return ast.ConstBits(y, signHint), nil
		} else if n.Children[0].IsConst() && n.Children[1].IsConst() {
			lhs, rhs := n.Children[0].AsReal(signHint), n.Children[1].AsReal(signHint)
			//
			switch n.Kind {
			case ast.KindAdd:
				return ast.NewReal(lhs + rhs), nil
			case ast.KindSub:
				return ast.NewReal(lhs - rhs), nil
			case ast.KindMul:
				return ast.NewReal(lhs * rhs), nil
			case ast.KindDiv:
				return ast.NewReal(lhs / rhs), nil
			default:
				return ast.NewReal(math.Mod(lhs, rhs)), nil
			}
		}

	case ast.KindPos, ast.KindNeg:
		if n.Children[0].Kind == ast.KindConstant {
			fn := bitvec.Pos
			if n.Kind == ast.KindNeg {
				fn = bitvec.Neg
			}
			//
			y := fn(n.Children[0].BitsAt(widthHint, signHint), bitvec.Unused, signHint, false, widthHint)
			//
			return ast.ConstBits(y, signHint), nil
		} else if n.Children[0].IsConst() {
			value := n.Children[0].AsReal(signHint)
			//
			if n.Kind == ast.KindNeg {
				value = -value
			}
			//
			return ast.NewReal(value), nil
		}

	case ast.KindTernary:
		return p.foldTernary(n, widthHint, signHint)

	case ast.KindConcat:
		return foldConcat(n)

	case ast.KindReplicate:
		return foldReplicate(n)
	}
	//
	return nil, nil
}

// foldIdentifier substitutes an identifier which resolves to a parameter, or
// to zero under at-zero evaluation.
func (p *Elaborator) foldIdentifier(n *ast.Node, atZero bool, widthHint int, signHint bool) (*ast.Node, error) {
	decl := p.lookup(n.Name)
	if decl == nil {
		return nil, nil
	}
	//
	if decl.Kind == ast.KindParameter || decl.Kind == ast.KindLocalParam {
		value := decl.Children[0]
		//
		if value.Kind == ast.KindConstant {
			if len(n.Children) != 0 && n.Children[0].Kind == ast.KindRange && n.Children[0].RangeValid {
				// Bit or part select on a parameter.
				r := n.Children[0]
				bits := value.Value.Extend(r.RangeLeft+1, value.IsSigned)
				data := bitvec.New(r.RangeLeft - r.RangeRight + 1)
				//
				for i := r.RangeRight; i <= r.RangeLeft; i++ {
					data.Set(i-r.RangeRight, bits.Get(i))
				}
				//
				return ast.ConstBits(data, false), nil
			} else if len(n.Children) == 0 {
				return value.Clone(), nil
			}
		} else if value.IsConst() {
			return value.Clone(), nil
		}
	} else if atZero && (decl.Kind == ast.KindWire || decl.Kind == ast.KindAutoWire) {
		// Static worst-case evaluation treats every wire as zero.
		return ast.ConstInt(0, signHint, max(widthHint, 1)), nil
	}
	//
	return nil, nil
}

// foldTernary evaluates a ternary with constant condition, or merges two
// constant arms under an unknown condition (differing bits become X).
func (p *Elaborator) foldTernary(n *ast.Node, widthHint int, signHint bool) (*ast.Node, error) {
	cond := n.Children[0]
	if !cond.IsConst() {
		return nil, nil
	}
	//
	foundSureTrue, foundMaybeTrue := false, false
	//
	if cond.Kind == ast.KindConstant {
		for i := 0; i < cond.Value.Width(); i++ {
			switch cond.Value.Get(i) {
			case bitvec.One:
				foundSureTrue = true
			case bitvec.X, bitvec.Z:
				foundMaybeTrue = true
			}
		}
	} else {
		foundSureTrue = cond.RealValue != 0
	}
	//
	var choice, notChoice *ast.Node
	//
	if foundSureTrue {
		choice, notChoice = n.Children[1], n.Children[2]
	} else if !foundMaybeTrue {
		choice, notChoice = n.Children[2], n.Children[1]
	}
	//
	switch {
	case choice != nil && choice.Kind == ast.KindConstant:
		_, _, otherReal, err := p.detectSignWidth(notChoice)
		if err != nil {
			return nil, err
		}
		//
		if otherReal {
			_, choiceSign, _, err := p.detectSignWidth(choice)
			if err != nil {
				return nil, err
			}
			//
			return ast.NewReal(choice.AsReal(choiceSign)), nil
		}
		//
		y := choice.BitsAt(widthHint, signHint)
		//
		if choice.IsString && y.Width()%8 == 0 && !signHint {
			return ast.ConstString(y.AsString()), nil
		}
		//
		return ast.ConstBits(y, signHint), nil

	case choice != nil && choice.IsConst():
		return choice.Clone(), nil

	case n.Children[1].Kind == ast.KindConstant && n.Children[2].Kind == ast.KindConstant:
		// Unknown condition: merge the arms, marking differing bits X.
		a := n.Children[1].BitsAt(widthHint, signHint)
		b := n.Children[2].BitsAt(widthHint, signHint)
		width := max(a.Width(), b.Width())
		a, b = a.Extend(width, signHint), b.Extend(width, signHint)
		//
		for i := 0; i < width; i++ {
			if a.Get(i) != b.Get(i) {
				a.Set(i, bitvec.X)
			}
		}
		//
		return ast.ConstBits(a, signHint), nil

	case n.Children[1].IsConst() && n.Children[2].IsConst():
		// IEEE Std 1800-2012 Sec 11.4.11: an ambiguous real ternary yields
		// the type's default, which for real is 0.0.
		if n.Children[1].AsReal(signHint) == n.Children[2].AsReal(signHint) {
			return ast.NewReal(n.Children[1].AsReal(signHint)), nil
		}
		//
		return ast.NewReal(0.0), nil
	}
	//
	return nil, nil
}

// foldComparison evaluates a comparison over constant operands at their
// shared width and mutual signedness.
func foldComparison(n *ast.Node, signHint bool) (*ast.Node, error) {
	if bothConstant(n) {
		fn := map[ast.Kind]binaryOp{
			ast.KindLt:  bitvec.Lt,
			ast.KindLe:  bitvec.Le,
			ast.KindEq:  bitvec.Eq,
			ast.KindNe:  bitvec.Ne,
			ast.KindEqx: bitvec.Eqx,
			ast.KindNex: bitvec.Nex,
			ast.KindGe:  bitvec.Ge,
			ast.KindGt:  bitvec.Gt,
		}[n.Kind]
		//
		cmpWidth := max(n.Children[0].Value.Width(), n.Children[1].Value.Width())
		cmpSigned := n.Children[0].IsSigned && n.Children[1].IsSigned
		//
		y := fn(n.Children[0].BitsAt(cmpWidth, cmpSigned),
			n.Children[1].BitsAt(cmpWidth, cmpSigned), cmpSigned, cmpSigned, 1)
		//
		return ast.ConstBits(y, false), nil
	} else if n.Children[0].IsConst() && n.Children[1].IsConst() {
		cmpSigned := (n.Children[0].Kind == ast.KindRealValue || n.Children[0].IsSigned) &&
			(n.Children[1].Kind == ast.KindRealValue || n.Children[1].IsSigned)
		lhs, rhs := n.Children[0].AsReal(cmpSigned), n.Children[1].AsReal(cmpSigned)
		//
		switch n.Kind {
		case ast.KindLt:
			return boolConst(lhs < rhs), nil
		case ast.KindLe:
			return boolConst(lhs <= rhs), nil
		case ast.KindEq, ast.KindEqx:
			return boolConst(lhs == rhs), nil
		case ast.KindNe, ast.KindNex:
			return boolConst(lhs != rhs), nil
		case ast.KindGe:
			return boolConst(lhs >= rhs), nil
		default:
			return boolConst(lhs > rhs), nil
		}
	}
	//
	return nil, nil
}

// foldConcat packs the bits of constant children, preserving string payloads
// when every child is a string.
func foldConcat(n *ast.Node) (*ast.Node, error) {
	stringOp := len(n.Children) != 0
	var bits []bitvec.Bit
	//
	for _, child := range n.Children {
		if child.Kind != ast.KindConstant {
			return nil, nil
		}
		//
		if !child.IsString {
			stringOp = false
		}
		// The first child holds the least significant bits.
		bits = append(bits, child.Value.Bits()...)
	}
	//
	result := bitvec.FromBits(bits)
	//
	if stringOp {
		return ast.ConstString(result.AsString()), nil
	}
	//
	return ast.ConstBits(result, false), nil
}

// foldReplicate repeats a constant bit pattern a constant number of times.
func foldReplicate(n *ast.Node) (*ast.Node, error) {
	if n.Children[0].Kind != ast.KindConstant || n.Children[1].Kind != ast.KindConstant {
		return nil, nil
	}
	//
	var bits []bitvec.Bit
	//
	for i := 0; i < n.Children[0].Integer(); i++ {
		bits = append(bits, n.Children[1].Value.Bits()...)
	}
	//
	result := bitvec.FromBits(bits)
	//
	if n.Children[1].IsString {
		return ast.ConstString(result.AsString()), nil
	}
	//
	return ast.ConstBits(result, false), nil
}

// bothConstant checks whether a binary node has two bit-vector constant
// children.
func bothConstant(n *ast.Node) bool {
	return n.Children[0].Kind == ast.KindConstant && n.Children[1].Kind == ast.KindConstant
}

// boolConst packages a boolean as a single-bit constant.
func boolConst(b bool) *ast.Node {
	if b {
		return ast.ConstInt(1, false, 1)
	}
	//
	return ast.ConstInt(0, false, 1)
}
