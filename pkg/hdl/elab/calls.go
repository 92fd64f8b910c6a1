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
	"fmt"
	"math"

	"github.com/consensys/go-elab/pkg/hdl/ast"
	"github.com/consensys/go-elab/pkg/hdl/bitvec"
)

// expandCall replaces a function or task call with the code of its callee.
// System functions fold directly when their arguments are constant.  User
// functions are either evaluated as constants (when the call site demands a
// constant, or the body contains constant-only constructs) or inlined by
// cloning the body with fresh unique-prefixed wire names.  The result is
// either a replacement node, or in-place mutation (reported via the changed
// flag).
func (p *Elaborator) expandCall(n *ast.Node, stage int, widthHint int, signHint bool,
	inParam bool) (*ast.Node, bool, error) {
	if n.Kind == ast.KindFCall {
		if repl, handled, err := p.foldSystemFunction(n, stage, widthHint, signHint); handled || err != nil {
			return repl, false, err
		}
		//
		if decl := p.lookup(n.Name); decl == nil || decl.Kind != ast.KindFunction {
			return nil, false, errorAt(n, NameResolution, "cannot resolve function name `%s`", n.Name)
		}
	}
	//
	if n.Kind == ast.KindTCall {
		if decl := p.lookup(n.Name); decl == nil || decl.Kind != ast.KindTask {
			return nil, false, errorAt(n, NameResolution, "cannot resolve task name `%s`", n.Name)
		}
	}
	//
	decl := p.lookup(n.Name)
	//
	recommendConstEval := false
	requireConstEval := false
	//
	if !inParam {
		requireConstEval = p.hasConstOnlyConstructs(decl, &recommendConstEval)
	}
	//
	if inParam || recommendConstEval || requireConstEval {
		allArgsConst := true
		//
		for _, child := range n.Children {
			if _, err := p.simplifyFully(child, true, false, false, 1, -1, false, true); err != nil {
				return nil, false, err
			}
			//
			if child.Kind != ast.KindConstant {
				allArgsConst = false
			}
		}
		//
		if allArgsConst {
			workspace := decl.Clone()
			//
			repl, err := p.evalConstFunction(workspace, n)
			if err != nil {
				return nil, false, err
			}
			//
			return repl, false, nil
		}
		//
		if inParam {
			return nil, false, errorAt(n, SyntaxInElaboration, "non-constant function call in constant expression")
		}
		//
		if requireConstEval {
			return nil, false, errorAt(n, SyntaxInElaboration,
				"function %s can only be called with constant arguments", n.Name)
		}
	}
	//
	prefix := fmt.Sprintf("$func$%s$%s:%d$%d$", n.Name, n.Filename, n.Line, p.nextID())
	// A call in continuous-assignment context has no enclosing block: the
	// call is wrapped into a synthesised process computing the result wire.
	if p.block == nil {
		if n.Kind != ast.KindFCall {
			return nil, false, errorAt(n, InternalInvariant, "task call outside of a block")
		}
		//
		var wire *ast.Node
		//
		for _, child := range decl.Children {
			if child.Kind == ast.KindWire && child.Name == n.Name {
				wire = child.Clone()
			}
		}
		//
		if wire == nil {
			return nil, false, errorAt(n, InternalInvariant, "function %s has no result wire", n.Name)
		}
		//
		wire.Name = prefix + n.Name
		wire.PortID = 0
		wire.IsInput = false
		wire.IsOutput = false
		//
		p.module.Children = append(p.module.Children, wire)
		//
		if _, err := p.simplifyFully(wire, true, false, false, 1, -1, false, false); err != nil {
			return nil, false, err
		}
		//
		lvalue := ast.NewNamed(ast.KindIdentifier, wire.Name)
		always := ast.NewNode(ast.KindAlways, ast.NewNode(ast.KindBlock,
			ast.NewNode(ast.KindAssignEq, lvalue, n.Clone())))
		p.module.Children = append(p.module.Children, always)
		//
		repl := ast.NewNamed(ast.KindIdentifier, prefix+n.Name)
		//
		return repl, false, nil
	}
	// Standard inline: wires of the callee become fresh module-level wires;
	// input wires receive argument assignments at the call site; statements
	// are spliced in, renamed via the replacement rules.
	blockIdx := indexOfChild(p.block.Children, p.blockChild)
	if blockIdx < 0 {
		return nil, false, errorAt(n, InternalInvariant, "lost position in enclosing block")
	}
	//
	argCount := 0
	replaceRules := make(map[string]string)
	//
	for _, child := range decl.Children {
		if child.Kind == ast.KindWire {
			wire := child.Clone()
			wire.Name = prefix + wire.Name
			wire.PortID = 0
			wire.IsInput = false
			wire.IsOutput = false
			p.module.Children = append(p.module.Children, wire)
			//
			if _, err := p.simplifyFully(wire, true, false, false, 1, -1, false, false); err != nil {
				return nil, false, err
			}
			//
			replaceRules[child.Name] = wire.Name
			//
			if child.IsInput && argCount < len(n.Children) {
				arg := n.Children[argCount].Clone()
				argCount++
				//
				assign := ast.NewNode(ast.KindAssignEq, ast.NewNamed(ast.KindIdentifier, wire.Name), arg)
				p.block.Children = insertChildren(p.block.Children, blockIdx, []*ast.Node{assign})
				blockIdx++
			}
		} else {
			stmt := child.Clone()
			replaceIDs(stmt, replaceRules)
			//
			p.block.Children = insertChildren(p.block.Children, blockIdx, []*ast.Node{stmt})
			blockIdx++
		}
	}
	//
	if n.Kind == ast.KindFCall {
		name := prefix + n.Name
		n.DeleteChildren()
		n.Kind = ast.KindIdentifier
		n.Name = name
		n.Target = nil
		n.BasicPrep = false
	} else {
		n.ReplaceWith(ast.NewNode(ast.KindBlock))
	}
	//
	return nil, true, nil
}

// foldSystemFunction folds the constant-evaluable system functions.  The
// handled flag reports whether the call named a system function at all.
func (p *Elaborator) foldSystemFunction(n *ast.Node, stage int, widthHint int,
	signHint bool) (*ast.Node, bool, error) {
	if n.Name == "$clog2" {
		if len(n.Children) != 1 {
			return nil, true, errorAt(n, ArgumentArity,
				"system function %s got %d arguments, expected 1", n.Name, len(n.Children))
		}
		//
		buf := n.Children[0].Clone()
		if _, err := p.simplifyFully(buf, true, false, false, stage, widthHint, signHint, false); err != nil {
			return nil, true, err
		}
		//
		if buf.Kind != ast.KindConstant {
			return nil, true, errorAt(n, SyntaxInElaboration,
				"failed to evaluate system function `%s` with non-constant value", n.Name)
		}
		// The ceiling of the base-2 logarithm: one more than the index of the
		// highest set bit of the argument minus one (zero for zero and one).
		value := buf.Value
		if value.AnyOne() {
			value = bitvec.Sub(value, bitvec.FromUint64(1, value.Width()), false, false, value.Width())
		}
		//
		result := 0
		//
		for i := 0; i < value.Width(); i++ {
			if value.Get(i) == bitvec.One {
				result = i + 1
			}
		}
		//
		return ast.ConstInt(int64(result), false, -1), true, nil
	}
	//
	fn1, ok1 := realFunctions1[n.Name]
	fn2, ok2 := realFunctions2[n.Name]
	//
	if !ok1 && !ok2 {
		return nil, false, nil
	}
	//
	expected := 1
	if ok2 {
		expected = 2
	}
	//
	if len(n.Children) != expected {
		return nil, true, errorAt(n, ArgumentArity,
			"system function %s got %d arguments, expected %d", n.Name, len(n.Children), expected)
	}
	//
	args := make([]float64, expected)
	//
	for i, child := range n.Children {
		if _, err := p.simplifyFully(child, true, false, false, stage, widthHint, signHint, false); err != nil {
			return nil, true, err
		}
		//
		if !child.IsConst() {
			return nil, true, errorAt(n, SyntaxInElaboration,
				"failed to evaluate system function `%s` with non-constant argument", n.Name)
		}
		//
		_, childSign, _, err := p.detectSignWidth(child)
		if err != nil {
			return nil, true, err
		}
		//
		args[i] = child.AsReal(childSign)
	}
	//
	if ok2 {
		return ast.NewReal(fn2(args[0], args[1])), true, nil
	}
	//
	return ast.NewReal(fn1(args[0])), true, nil
}

// The real-valued system functions of one and two arguments.
var realFunctions1 = map[string]func(float64) float64{
	"$ln":    math.Log,
	"$log10": math.Log10,
	"$exp":   math.Exp,
	"$sqrt":  math.Sqrt,
	"$floor": math.Floor,
	"$ceil":  math.Ceil,
	"$sin":   math.Sin,
	"$cos":   math.Cos,
	"$tan":   math.Tan,
	"$asin":  math.Asin,
	"$acos":  math.Acos,
	"$atan":  math.Atan,
	"$sinh":  math.Sinh,
	"$cosh":  math.Cosh,
	"$tanh":  math.Tanh,
	"$asinh": math.Asinh,
	"$acosh": math.Acosh,
	"$atanh": math.Atanh,
}

var realFunctions2 = map[string]func(float64, float64) float64{
	"$pow":   math.Pow,
	"$atan2": math.Atan2,
	"$hypot": math.Hypot,
}
