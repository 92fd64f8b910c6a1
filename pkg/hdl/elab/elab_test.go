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
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/consensys/go-elab/pkg/hdl/ast"
	"github.com/consensys/go-elab/pkg/util/source"
)

func Test_Param_01(t *testing.T) {
	// Parameter substitution into a wire range.
	module := elaborate(t, `(module @top
		(parameter @W (const 4))
		(wire @x (range (sub (id @W) (const 1)) (const 0))))`)
	//
	wire := findDecl(t, module, "x")
	//
	if !wire.RangeValid || wire.RangeLeft != 3 || wire.RangeRight != 0 {
		t.Errorf("got range %v/%d/%d, want 3/0", wire.RangeValid, wire.RangeLeft, wire.RangeRight)
	}
}

func Test_Param_02(t *testing.T) {
	// An oversized value truncates to the declared width and the parameter
	// stays unsigned.
	module := elaborate(t, `(module @top
		(parameter @X (const 1024) (range (const 7) (const 0))))`)
	//
	value := findDecl(t, module, "X").Children[0]
	//
	if value.Value.Width() != 8 || value.IsSigned {
		t.Errorf("got %d bits (signed=%v), want 8 unsigned", value.Value.Width(), value.IsSigned)
	}
	//
	if value.Value.AsBigInt(false).Int64() != 0 {
		t.Errorf("got value %s, want 0", value.Value.String())
	}
}

func Test_Param_03(t *testing.T) {
	// A signed parameter holding -1 in four bits is all ones.
	module := elaborate(t, `(module @top
		(parameter @Y !signed (const -1) (range (const 3) (const 0))))`)
	//
	value := findDecl(t, module, "Y").Children[0]
	//
	if value.Value.String() != "1111" || !value.IsSigned {
		t.Errorf("got %s (signed=%v), want 1111 signed", value.Value.String(), value.IsSigned)
	}
}

func Test_Param_04(t *testing.T) {
	// Parameter-only dependencies resolve regardless of declaration order.
	first := elaborate(t, `(module @top
		(parameter @A (const 2))
		(localparam @B (mul (id @A) (const 3)))
		(wire @x (range (sub (id @B) (const 1)) (const 0))))`)
	//
	second := elaborate(t, `(module @top
		(localparam @B (mul (id @A) (const 3)))
		(parameter @A (const 2))
		(wire @x (range (sub (id @B) (const 1)) (const 0))))`)
	//
	if w := findDecl(t, first, "x"); !w.RangeValid || w.RangeLeft != 5 {
		t.Errorf("first ordering: got %d, want 5", w.RangeLeft)
	}
	//
	if w := findDecl(t, second, "x"); !w.RangeValid || w.RangeLeft != 5 {
		t.Errorf("second ordering: got %d, want 5", w.RangeLeft)
	}
}

func Test_GenFor_01(t *testing.T) {
	module := elaborate(t, `(module @top
		(genvar @i)
		(genfor
			(assign_eq (id @i) (const 0))
			(lt (id @i) (const 3))
			(assign_eq (id @i) (add (id @i) (const 1)))
			(genblock @g
				(wire @n (range (const 0) (const 0))))))`)
	//
	for _, name := range []string{"g[0].n", "g[1].n", "g[2].n"} {
		findDecl(t, module, name)
	}
	//
	checkNoneRemaining(t, module)
}

func Test_GenFor_02(t *testing.T) {
	// A zero-trip generate-for leaves nothing behind.
	module := elaborate(t, `(module @top
		(genvar @i)
		(genfor
			(assign_eq (id @i) (const 0))
			(lt (id @i) (const 0))
			(assign_eq (id @i) (add (id @i) (const 1)))
			(genblock @g
				(wire @n (range (const 0) (const 0))))))`)
	//
	for _, child := range module.Children {
		if child.Kind == ast.KindWire {
			t.Errorf("unexpected wire %s", child.Name)
		}
	}
	//
	checkNoneRemaining(t, module)
}

func Test_GenIf_01(t *testing.T) {
	module := elaborate(t, `(module @top
		(parameter @MODE (const 1))
		(genif (eq (id @MODE) (const 1))
			(genblock (wire @a))
			(genblock (wire @b))))`)
	//
	findDecl(t, module, "a")
	//
	if findOptionalDecl(module, "b") != nil {
		t.Errorf("unselected arm was kept")
	}
	//
	checkNoneRemaining(t, module)
}

func Test_GenCase_01(t *testing.T) {
	module := elaborate(t, `(module @top
		(parameter @MODE (const 0))
		(gencase (id @MODE)
			(cond (const 0) (genblock (wire @a) (assign (id @a) (const 1'b0))))
			(cond (default) (genblock (wire @a) (assign (id @a) (const 1'b1))))))`)
	//
	findDecl(t, module, "a")
	// The selected arm's driver is the zero constant.
	assign := findKind(t, module, ast.KindAssign)
	//
	if assign.Children[1].Kind != ast.KindConstant || assign.Children[1].Value.AsBool() {
		t.Errorf("unexpected driver %v", assign.Children[1])
	}
	//
	checkNoneRemaining(t, module)
}

func Test_GenCase_02(t *testing.T) {
	// No match falls through to the default.
	module := elaborate(t, `(module @top
		(parameter @MODE (const 7))
		(gencase (id @MODE)
			(cond (const 0) (genblock (wire @a)))
			(cond (default) (genblock (wire @b)))))`)
	//
	findDecl(t, module, "b")
	//
	if findOptionalDecl(module, "a") != nil {
		t.Errorf("unselected arm was kept")
	}
}

func Test_DynLValue_01(t *testing.T) {
	// A dynamic bit select on the left-hand side becomes a case over the
	// start bits.
	module := elaborate(t, `(module @top
		(wire @r !reg (range (const 3) (const 0)))
		(wire @sel !input (range (const 1) (const 0)))
		(wire @b !input)
		(always (block
			(assign_eq (id @r (range (id @sel))) (id @b)))))`)
	//
	caseNode := findKind(t, module, ast.KindCase)
	// One arm per start bit.
	if len(caseNode.Children) != 5 {
		t.Fatalf("got %d case children, want scrutinee plus 4 arms", len(caseNode.Children))
	}
	//
	for i, cond := range caseNode.Children[1:] {
		if cond.Kind != ast.KindCond || cond.Children[0].Integer() != i {
			t.Errorf("arm %d malformed", i)
		}
	}
}

func Test_Mem_01(t *testing.T) {
	// Writes in both an initial and a process demote the memory.
	module := elaborate(t, `(module @top
		(wire @clk !input)
		(memory @m !reg (range (const 7) (const 0)) (range (const 0) (const 1)))
		(initial (block
			(assign_eq (id @m (range (const 0))) (const 1))
			(assign_eq (id @m (range (const 1))) (const 2))))
		(always (posedge (id @clk)) (block
			(assign_le (id @m (range (const 0)))
				(add (id @m (range (const 0))) (const 1))))))`)
	//
	findDecl(t, module, "m[0]")
	findDecl(t, module, "m[1]")
	//
	if findOptionalDecl(module, "m") != nil {
		t.Errorf("memory was not demoted")
	}
	// Accesses reference the element wires directly.
	if countKind(module, ast.KindMemRd)+countKind(module, ast.KindMemWr) != 0 {
		t.Errorf("demoted memory still has ports")
	}
}

func Test_Mem_02(t *testing.T) {
	// A memory written only in a synchronous process survives, its accesses
	// rewritten into explicit ports.
	module := elaborate(t, `(module @top
		(wire @clk !input)
		(wire @addr !input (range (const 0) (const 0)))
		(wire @din !input (range (const 7) (const 0)))
		(wire @dout !output !reg (range (const 7) (const 0)))
		(memory @m !reg (range (const 7) (const 0)) (range (const 0) (const 1)))
		(always (posedge (id @clk)) (block
			(assign_le (id @m (range (id @addr))) (id @din))
			(assign_le (id @dout) (id @m (range (id @addr)))))))`)
	//
	findDecl(t, module, "m")
	//
	if countKind(module, ast.KindMemWr) != 1 {
		t.Errorf("expected one write port")
	}
	//
	if countKind(module, ast.KindMemRd) != 1 {
		t.Errorf("expected one read port")
	}
}

func Test_Mem_03(t *testing.T) {
	// The nomem2reg attribute vetoes demotion.
	module := elaborate(t, `(module @top
		(wire @clk !input)
		(memory @m !reg (attr nomem2reg (const 1))
			(range (const 7) (const 0)) (range (const 0) (const 1)))
		(initial (block (assign_eq (id @m (range (const 0))) (const 1))))
		(always (posedge (id @clk)) (block
			(assign_le (id @m (range (const 0))) (const 2)))))`)
	//
	findDecl(t, module, "m")
	//
	if findOptionalDecl(module, "m[0]") != nil {
		t.Errorf("vetoed memory was demoted")
	}
}

func Test_Mem_04(t *testing.T) {
	// Forced demotion via configuration.
	module := parseModule(t, `(module @top
		(wire @clk !input)
		(memory @m !reg (range (const 7) (const 0)) (range (const 0) (const 1)))
		(always (posedge (id @clk)) (block
			(assign_le (id @m (range (const 0))) (const 2)))))`)
	//
	if err := Simplify(module, Config{Mem2Reg: true}); err != nil {
		t.Fatal(err)
	}
	//
	findDecl(t, module, "m[0]")
	findDecl(t, module, "m[1]")
	//
	if findOptionalDecl(module, "m") != nil {
		t.Errorf("memory was not demoted")
	}
}

func Test_ConstFunc_01(t *testing.T) {
	// A constant call in parameter context folds to the result.
	module := elaborate(t, `(module @top
		(function @f
			(wire @f !output (range (const 7) (const 0)))
			(wire @a !input (range (const 7) (const 0)))
			(block (assign_eq (id @f) (mul (id @a) (const 2)))))
		(parameter @P (fcall @f (const 3))))`)
	//
	value := findDecl(t, module, "P").Children[0]
	//
	if value.Kind != ast.KindConstant || value.Value.Width() != 8 {
		t.Fatalf("unexpected parameter value %v", value)
	}
	//
	if value.Value.AsBigInt(false).Int64() != 6 {
		t.Errorf("got %s, want 6", value.Value.String())
	}
}

func Test_ConstFunc_02(t *testing.T) {
	// A constant call whose function body holds a while loop folds to the
	// loop's result.
	module := elaborate(t, `(module @top
		(function @log2
			(wire @log2 !output (range (const 7) (const 0)))
			(wire @x !input (range (const 31) (const 0)))
			(wire @v !reg (range (const 31) (const 0)))
			(block
				(assign_eq (id @v) (id @x))
				(assign_eq (id @log2) (const 0))
				(while (gt (id @v) (const 1))
					(block
						(assign_eq (id @log2) (add (id @log2) (const 1)))
						(assign_eq (id @v) (shr (id @v) (const 1)))))))
		(localparam @L (fcall @log2 (const 16))))`)
	//
	value := findDecl(t, module, "L").Children[0]
	//
	if value.Value.AsBigInt(false).Int64() != 4 {
		t.Errorf("got %s, want 4", value.Value.String())
	}
}

func Test_Clog2_01(t *testing.T) {
	for _, test := range []struct{ in, out int64 }{{0, 0}, {1, 0}, {2, 1}, {1024, 10}} {
		module := elaborate(t, `(module @top
			(localparam @C (fcall @$clog2 (const `+itoa(test.in)+`))))`)
		//
		value := findDecl(t, module, "C").Children[0]
		//
		if value.Value.AsBigInt(false).Int64() != test.out {
			t.Errorf("$clog2(%d): got %s, want %d", test.in, value.Value.String(), test.out)
		}
	}
}

func Test_SysFunc_01(t *testing.T) {
	module := elaborate(t, `(module @top
		(localparam @S (fcall @$sqrt (real 16.0))))`)
	//
	value := findDecl(t, module, "S").Children[0]
	//
	if value.Kind != ast.KindRealValue || value.RealValue != 4.0 {
		t.Errorf("got %v, want 4.0", value.RealValue)
	}
}

func Test_SysFunc_02(t *testing.T) {
	// Wrong arity is fatal.
	module := parseModule(t, `(module @top
		(localparam @C (fcall @$clog2 (const 1) (const 2))))`)
	//
	checkErrorKind(t, module, ArgumentArity)
}

func Test_Inline_01(t *testing.T) {
	// A non-constant call inside a process is inlined.
	module := elaborate(t, `(module @top
		(wire @clk !input)
		(wire @a !input (range (const 7) (const 0)))
		(wire @q !output !reg (range (const 7) (const 0)))
		(function @incr
			(wire @incr !output (range (const 7) (const 0)))
			(wire @x !input (range (const 7) (const 0)))
			(block (assign_eq (id @incr) (add (id @x) (const 1)))))
		(always (posedge (id @clk)) (block
			(assign_le (id @q) (fcall @incr (id @a))))))`)
	//
	if n := countKind(module, ast.KindFCall); n != 0 {
		t.Errorf("%d function calls remain", n)
	}
	// The callee's wires were instantiated at module level.
	found := false
	//
	for _, child := range module.Children {
		if child.Kind == ast.KindWire && len(child.Name) > 5 && child.Name[:5] == "$func" {
			found = true
		}
	}
	//
	if !found {
		t.Errorf("no instantiated function wires found")
	}
}

func Test_Assert_01(t *testing.T) {
	module := elaborate(t, `(module @top
		(wire @clk !input)
		(wire @x !input)
		(always (posedge (id @clk)) (block
			(assert (eq (id @x) (const 1'b1))))))`)
	// The module-level assert references the check/enable pair.
	assertNode := findKind(t, module, ast.KindAssert)
	//
	if len(assertNode.Children) != 2 {
		t.Fatalf("malformed lowered assert")
	}
	//
	for _, id := range assertNode.Children {
		if id.Kind != ast.KindIdentifier || id.Target == nil || id.Target.Kind != ast.KindWire {
			t.Errorf("assert does not reference the synthesised wires")
		}
	}
}

func Test_Primitive_01(t *testing.T) {
	module := elaborate(t, `(module @top
		(wire @a !input) (wire @b !input) (wire @c !input) (wire @y !output)
		(primitive @nand
			(argument (id @y)) (argument (id @a)) (argument (id @b)) (argument (id @c))))`)
	// nand(y, a, b, c) becomes y = ~((a & b) & c).
	assign := findKind(t, module, ast.KindAssign)
	//
	if assign.Children[1].Kind != ast.KindBitNot {
		t.Fatalf("expected inverted result")
	}
	//
	inner := assign.Children[1].Children[0]
	//
	if inner.Kind != ast.KindBitAnd || inner.Children[0].Kind != ast.KindBitAnd {
		t.Errorf("expected left-folded conjunction")
	}
	//
	checkNoneRemaining(t, module)
}

func Test_CellArray_01(t *testing.T) {
	module := elaborate(t, `(module @top
		(wire @x !input)
		(cellarray
			(range (const 1) (const 0))
			(cell @u (celltype @sub) (argument (id @x)))))`)
	//
	cells := 0
	//
	for _, child := range module.Children {
		if child.Kind == ast.KindCell {
			cells++
			//
			if child.Children[0].Kind != ast.KindCellType ||
				child.Children[0].Name[:7] != "$array:" {
				t.Errorf("cell type not marked as array member: %s", child.Children[0].Name)
			}
		}
	}
	//
	if cells != 2 {
		t.Errorf("got %d cells, want 2", cells)
	}
}

func Test_DefParam_01(t *testing.T) {
	module := elaborate(t, `(module @top
		(cell @u (celltype @sub))
		(defparam @u.WIDTH (const 8)))`)
	//
	cell := findDecl(t, module, "u")
	//
	if len(cell.Children) < 2 || cell.Children[1].Kind != ast.KindParaSet {
		t.Fatalf("parameter override missing on cell")
	}
	//
	if cell.Children[1].Name != "WIDTH" {
		t.Errorf("got override %s, want WIDTH", cell.Children[1].Name)
	}
	//
	checkNoneRemaining(t, module)
}

func Test_AutoWire_01(t *testing.T) {
	module := elaborate(t, `(module @top
		(assign (id @y) (const 1'b1)))`)
	//
	auto := findDecl(t, module, "y")
	//
	if auto.Kind != ast.KindAutoWire {
		t.Errorf("expected an auto-wire, got %s", auto.Kind)
	}
}

func Test_WireMerge_01(t *testing.T) {
	// "output foo; reg foo;" merges into a single declaration.
	module := elaborate(t, `(module @top
		(wire @foo !output !port=1)
		(wire @foo !reg))`)
	//
	count := 0
	//
	for _, child := range module.Children {
		if child.Kind == ast.KindWire && child.Name == "foo" {
			count++
			//
			if !child.IsOutput || !child.IsReg {
				t.Errorf("merged wire lost flags")
			}
		}
	}
	//
	if count != 1 {
		t.Errorf("got %d declarations, want 1", count)
	}
}

func Test_While_01(t *testing.T) {
	// While loops outside constant functions are a misuse.
	module := parseModule(t, `(module @top
		(always (block
			(while (const 1) (block)))))`)
	//
	checkErrorKind(t, module, TypeMisuse)
}

func Test_Display_01(t *testing.T) {
	// Non-synthesisable system tasks are stripped.
	module := elaborate(t, `(module @top
		(wire @clk !input)
		(always (posedge (id @clk)) (block
			(tcall @$display (str hi)))))`)
	//
	if countKind(module, ast.KindTCall) != 0 {
		t.Errorf("system task call survived")
	}
}

func Test_Idempotent_01(t *testing.T) {
	module := elaborate(t, `(module @top
		(parameter @W (const 4))
		(genvar @i)
		(wire @clk !input)
		(genfor
			(assign_eq (id @i) (const 0))
			(lt (id @i) (id @W))
			(assign_eq (id @i) (add (id @i) (const 1)))
			(genblock @g (wire @n (range (const 0) (const 0)))))
		(always (posedge (id @clk)) (block)))`)
	//
	clone := module.Clone()
	//
	if err := Simplify(clone, Config{}); err != nil {
		t.Fatal(err)
	}
	//
	if !module.Equal(clone) {
		t.Errorf("re-simplification changed the tree:\n%s",
			cmp.Diff(ast.Write(module), ast.Write(clone)))
	}
}

func Test_Resolved_01(t *testing.T) {
	// Every identifier in a simplified tree points at a declaration which is
	// still in the tree.
	module := elaborate(t, `(module @top
		(wire @clk !input)
		(wire @a !input (range (const 3) (const 0)))
		(wire @q !reg (range (const 3) (const 0)))
		(always (posedge (id @clk)) (block
			(assign_le (id @q) (add (id @a) (const 1))))))`)
	//
	checkResolved(t, module, module)
}

// ===================================================================
// Helpers
// ===================================================================

func parseModule(t *testing.T, text string) *ast.Node {
	t.Helper()
	//
	srcfile := source.NewFile("test.ast", []byte(text))
	//
	nodes, err := ast.Read(srcfile)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	//
	if len(nodes) != 1 {
		t.Fatalf("expected one module, got %d", len(nodes))
	}
	//
	return nodes[0]
}

func elaborate(t *testing.T, text string) *ast.Node {
	t.Helper()
	//
	module := parseModule(t, text)
	//
	if err := Simplify(module, Config{}); err != nil {
		t.Fatalf("simplify failed: %v", err)
	}
	//
	return module
}

func findDecl(t *testing.T, module *ast.Node, name string) *ast.Node {
	t.Helper()
	//
	if node := findOptionalDecl(module, name); node != nil {
		return node
	}
	//
	t.Fatalf("declaration %s not found in module %s", name, module.Name)
	//
	return nil
}

func findOptionalDecl(module *ast.Node, name string) *ast.Node {
	for _, child := range module.Children {
		if child.Kind.IsDeclaration() && child.Name == name {
			return child
		}
	}
	//
	return nil
}

func findKind(t *testing.T, n *ast.Node, kind ast.Kind) *ast.Node {
	t.Helper()
	//
	if found := findKindWorker(n, kind); found != nil {
		return found
	}
	//
	t.Fatalf("no %s node found", kind)
	//
	return nil
}

func findKindWorker(n *ast.Node, kind ast.Kind) *ast.Node {
	if n.Kind == kind {
		return n
	}
	//
	for _, child := range n.Children {
		if found := findKindWorker(child, kind); found != nil {
			return found
		}
	}
	//
	return nil
}

func countKind(n *ast.Node, kind ast.Kind) int {
	count := 0
	//
	if n.Kind == kind {
		count++
	}
	//
	for _, child := range n.Children {
		count += countKind(child, kind)
	}
	//
	return count
}

// checkNoneRemaining asserts the post-elaboration structural invariant: no
// generate, loop, prefix, primitive, cell array, defparam or bit conversion
// nodes remain.
func checkNoneRemaining(t *testing.T, module *ast.Node) {
	t.Helper()
	//
	for _, kind := range []ast.Kind{
		ast.KindGenFor, ast.KindGenIf, ast.KindGenCase, ast.KindGenBlock,
		ast.KindPrefix, ast.KindCellArray, ast.KindPrimitive, ast.KindDefParam,
		ast.KindFor, ast.KindWhile, ast.KindRepeat, ast.KindToBits,
	} {
		if n := countKind(module, kind); n != 0 {
			t.Errorf("%d %s nodes remain after elaboration", n, kind)
		}
	}
}

func checkResolved(t *testing.T, module *ast.Node, n *ast.Node) {
	t.Helper()
	//
	if n.Kind == ast.KindIdentifier {
		if n.Target == nil {
			t.Errorf("identifier %s is unresolved", n.Name)
		} else if !module.Contains(n.Target) {
			t.Errorf("identifier %s resolves outside the tree", n.Name)
		}
	}
	//
	for _, child := range n.Children {
		checkResolved(t, module, child)
	}
}

func checkErrorKind(t *testing.T, module *ast.Node, kind ErrorKind) {
	t.Helper()
	//
	err := Simplify(module, Config{})
	if err == nil {
		t.Fatalf("expected a %s error", kind)
	}
	//
	elabErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("unexpected error type: %v", err)
	}
	//
	if elabErr.Kind != kind {
		t.Errorf("got %s error (%v), want %s", elabErr.Kind, elabErr, kind)
	}
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
