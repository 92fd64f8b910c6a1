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
package aiger

import (
	"testing"

	"github.com/consensys/go-elab/pkg/hdl/ast"
	"github.com/consensys/go-elab/pkg/hdl/elab"
	"github.com/consensys/go-elab/pkg/util/source"
)

func Test_Aiger_01(t *testing.T) {
	// A single and-gate: n3 = n1 & n2.
	module := parseAag(t, `aag 3 2 0 1 1
2
4
6
6 2 4
`)
	//
	checkWire(t, module, "n1", func(w *ast.Node) bool { return w.IsInput })
	checkWire(t, module, "n2", func(w *ast.Node) bool { return w.IsInput })
	checkWire(t, module, "n3", func(w *ast.Node) bool { return w.IsOutput })
	//
	assign := findKind(t, module, ast.KindAssign)
	//
	if assign.Children[1].Kind != ast.KindBitAnd {
		t.Errorf("expected an and-gate assignment")
	}
}

func Test_Aiger_02(t *testing.T) {
	// Inverted literals go through synthesised inverter wires.
	module := parseAag(t, `aag 2 1 0 1 1
2
5
4 3 3
`)
	// 3 is the inverted form of variable 1.
	checkWire(t, module, "n1_inv", func(w *ast.Node) bool { return true })
	//
	inverters := 0
	//
	for _, child := range module.Children {
		if child.Kind == ast.KindAssign && child.Children[1].Kind == ast.KindBitNot {
			inverters++
		}
	}
	// One inverter for n1, one for the output literal 5.
	if inverters != 2 {
		t.Errorf("got %d inverters, want 2", inverters)
	}
}

func Test_Aiger_03(t *testing.T) {
	// A latch becomes a posedge process on the synthesised clock.
	module := parseAag(t, `aag 2 1 1 1 0
2
4 2
4
`)
	//
	checkWire(t, module, "clock", func(w *ast.Node) bool { return w.IsInput })
	checkWire(t, module, "n2", func(w *ast.Node) bool { return w.IsReg && w.GetBoolAttribute("init") == false })
	//
	always := findKind(t, module, ast.KindAlways)
	//
	if always.Children[0].Kind != ast.KindPosEdge {
		t.Errorf("latch process is not edge triggered")
	}
	//
	if findKind(t, module, ast.KindAssignLe).Children[1].Name != "n1" {
		t.Errorf("latch data input is not n1")
	}
}

func Test_Aiger_04(t *testing.T) {
	// Constant literals map onto driver wires.
	module := parseAag(t, `aag 1 0 0 1 1
2
2 0 1
`)
	//
	checkWire(t, module, "$false", func(w *ast.Node) bool { return true })
	checkWire(t, module, "$true", func(w *ast.Node) bool { return true })
}

func Test_Aiger_05(t *testing.T) {
	srcfile := source.NewFile("test.aag", []byte("aig 1 0 0 0 1\n"))
	//
	if _, err := Parse(srcfile, "clock"); err == nil {
		t.Errorf("binary AIGER should be rejected")
	}
}

func Test_Aiger_06(t *testing.T) {
	// The produced module elaborates cleanly.
	module := parseAag(t, `aag 3 2 0 1 1
2
4
6
6 2 4
`)
	//
	if err := elab.Simplify(module, elab.Config{}); err != nil {
		t.Fatalf("elaboration failed: %v", err)
	}
}

// ===================================================================
// Helpers
// ===================================================================

func parseAag(t *testing.T, text string) *ast.Node {
	t.Helper()
	//
	module, err := Parse(source.NewFile("test.aag", []byte(text)), "clock")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	//
	return module
}

func checkWire(t *testing.T, module *ast.Node, name string, check func(*ast.Node) bool) {
	t.Helper()
	//
	for _, child := range module.Children {
		if child.Kind == ast.KindWire && child.Name == name {
			if !check(child) {
				t.Errorf("wire %s fails its check", name)
			}
			//
			return
		}
	}
	//
	t.Errorf("wire %s not found", name)
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
