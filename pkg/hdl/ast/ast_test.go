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
package ast

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/consensys/go-elab/pkg/util/source"
)

func Test_Read_01(t *testing.T) {
	module := parseOne(t, "(module @top)")
	//
	if module.Kind != KindModule || module.Name != "top" {
		t.Errorf("unexpected module %s %s", module.Kind, module.Name)
	}
}

func Test_Read_02(t *testing.T) {
	module := parseOne(t, `(module @top
		(wire @x !input !signed (range (const 7) (const 0))))`)
	//
	wire := module.Children[0]
	//
	if wire.Kind != KindWire || wire.Name != "x" || !wire.IsInput || !wire.IsSigned {
		t.Errorf("unexpected wire %v", wire)
	}
	//
	if len(wire.Children) != 1 || wire.Children[0].Kind != KindRange {
		t.Errorf("unexpected wire children")
	}
}

func Test_Read_03(t *testing.T) {
	// Unsized decimal literals are 32 bits and signed.
	c := parseOne(t, "(const -1)")
	//
	if c.Value.Width() != 32 || !c.IsSigned {
		t.Errorf("unexpected literal %s", c.Value.String())
	}
	//
	if c.Value.AsBigInt(true).Int64() != -1 {
		t.Errorf("unexpected value %s", c.Value.String())
	}
}

func Test_Read_04(t *testing.T) {
	c := parseOne(t, "(const 4'b10x1)")
	//
	if c.Value.String() != "10x1" || c.IsSigned {
		t.Errorf("unexpected literal %s", c.Value.String())
	}
}

func Test_Read_05(t *testing.T) {
	c := parseOne(t, "(const 8'shff)")
	//
	if c.Value.AsBigInt(true).Int64() != -1 || !c.IsSigned {
		t.Errorf("unexpected literal %s", c.Value.String())
	}
}

func Test_Read_06(t *testing.T) {
	// A leading x digit replicates across the width.
	c := parseOne(t, "(const 8'bx0)")
	//
	if c.Value.String() != "xxxxxxx0" {
		t.Errorf("unexpected literal %s", c.Value.String())
	}
}

func Test_Read_07(t *testing.T) {
	c := parseOne(t, "(str hello)")
	//
	if !c.IsString || c.Value.AsString() != "hello" {
		t.Errorf("unexpected string constant %s", c.Value.String())
	}
}

func Test_Read_08(t *testing.T) {
	module := parseOne(t, `(module @top (wire @m (attr keep (const 1))))`)
	//
	if !module.Children[0].GetBoolAttribute("keep") {
		t.Errorf("missing attribute")
	}
}

func Test_Read_09(t *testing.T) {
	srcfile := source.NewFile("test.ast", []byte("(module @top (wire @x"))
	//
	if _, err := Read(srcfile); err == nil {
		t.Errorf("expected syntax error")
	}
}

func Test_Read_10(t *testing.T) {
	srcfile := source.NewFile("test.ast", []byte("(nonsense @x)"))
	//
	if _, err := Read(srcfile); err == nil {
		t.Errorf("expected unknown kind error")
	}
}

func Test_Read_11(t *testing.T) {
	// Line numbers are recorded for error reporting.
	module := parseOne(t, "(module @top\n  (wire @x)\n  (wire @y))")
	//
	if module.Line != 1 || module.Children[1].Line != 3 {
		t.Errorf("unexpected line numbers %d %d", module.Line, module.Children[1].Line)
	}
}

func Test_RoundTrip_01(t *testing.T) {
	checkRoundTrip(t, `(module @top
		(parameter @W (const 4))
		(wire @x !output (range (sub (id @W) (const 1)) (const 0)))
		(always (posedge (id @clk)) (block (assign_le (id @x) (const 4'd3)))))`)
}

func Test_RoundTrip_02(t *testing.T) {
	checkRoundTrip(t, `(module @top
		(memory @m !reg (range (const 7) (const 0)) (range (const 0) (const 3)))
		(wire @s (attr keep (const 1))))`)
}

func Test_Clone_01(t *testing.T) {
	module := parseOne(t, "(module @top (wire @x) (assign (id @x) (const 1)))")
	// Resolve the identifier by hand.
	id := module.Children[1].Children[0]
	id.Target = module.Children[0]
	//
	clone := module.Clone()
	//
	if !module.Equal(clone) {
		t.Errorf("clone is not structurally equal")
	}
	// Back-references are not carried over.
	if clone.Children[1].Children[0].Target != nil {
		t.Errorf("clone carried a resolved target")
	}
	// Mutating the clone leaves the original untouched.
	clone.Children[0].Name = "y"
	//
	if module.Children[0].Name != "x" {
		t.Errorf("clone shares state with the original")
	}
}

func Test_Replace_01(t *testing.T) {
	module := parseOne(t, "(module @top (wire @x))")
	wire := module.Children[0]
	wire.BasicPrep = true
	//
	wire.ReplaceWith(ConstInt(1, false, 1))
	//
	if module.Children[0].Kind != KindConstant {
		t.Errorf("replacement did not preserve identity")
	}
	//
	if module.Children[0].BasicPrep {
		t.Errorf("replacement did not clear the fixed-point marker")
	}
}

func Test_MemInfo_01(t *testing.T) {
	module := parseOne(t, `(module @top
		(memory @m !reg (range (const 7) (const 0)) (range (const 0) (const 3))))`)
	//
	mem := module.Children[0]
	// Annotate the ranges as the elaborator would.
	for _, r := range mem.Children {
		r.RangeValid = true
		r.RangeLeft = r.Children[0].Integer()
		r.RangeRight = r.Children[1].Integer()
		//
		if r.RangeRight > r.RangeLeft {
			r.RangeLeft, r.RangeRight = r.RangeRight, r.RangeLeft
		}
	}
	//
	width, size, addrBits := mem.MemInfo()
	//
	if width != 8 || size != 4 || addrBits != 2 {
		t.Errorf("got %d/%d/%d, want 8/4/2", width, size, addrBits)
	}
}

// ===================================================================
// Helpers
// ===================================================================

func parseOne(t *testing.T, text string) *Node {
	t.Helper()
	//
	srcfile := source.NewFile("test.ast", []byte(text))
	//
	nodes, err := Read(srcfile)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	//
	if len(nodes) != 1 {
		t.Fatalf("expected one node, got %d", len(nodes))
	}
	//
	return nodes[0]
}

func checkRoundTrip(t *testing.T, text string) {
	t.Helper()
	//
	first := parseOne(t, text)
	second := parseOne(t, Write(first))
	//
	if !first.Equal(second) {
		t.Errorf("round trip mismatch:\n%s", cmp.Diff(Write(first), Write(second)))
	}
}
