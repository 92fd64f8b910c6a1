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
package sexp

import (
	"testing"

	"github.com/consensys/go-elab/pkg/util/source"
)

func Test_Parse_01(t *testing.T) {
	checkParse(t, "()", "()")
}

func Test_Parse_02(t *testing.T) {
	checkParse(t, "(a b c)", "(a b c)")
}

func Test_Parse_03(t *testing.T) {
	checkParse(t, "(a (b  c)\n d)", "(a (b c) d)")
}

func Test_Parse_04(t *testing.T) {
	checkParse(t, "symbol", "symbol")
}

func Test_Parse_05(t *testing.T) {
	// Comments run to end of line.
	checkParse(t, "(a ; ignored\n b)", "(a b)")
}

func Test_Parse_06(t *testing.T) {
	checkParseErr(t, "(a b")
}

func Test_Parse_07(t *testing.T) {
	checkParseErr(t, ")")
}

func Test_Parse_08(t *testing.T) {
	checkParseErr(t, "(a) trailing")
}

func Test_ParseAll_01(t *testing.T) {
	srcfile := source.NewFile("test", []byte("(a) (b) c"))
	//
	terms, _, err := ParseAll(srcfile)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	//
	if len(terms) != 3 {
		t.Errorf("got %d terms, want 3", len(terms))
	}
}

func Test_SourceMap_01(t *testing.T) {
	srcfile := source.NewFile("test", []byte("(a\n (b))"))
	//
	term, srcmap, err := Parse(srcfile)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	//
	inner := term.AsList().Get(1)
	//
	if srcfile.LineNumber(srcmap.Get(inner)) != 2 {
		t.Errorf("inner term mapped to wrong line")
	}
}

// ===================================================================
// Helpers
// ===================================================================

func checkParse(t *testing.T, input string, want string) {
	t.Helper()
	//
	term, _, err := Parse(source.NewFile("test", []byte(input)))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	//
	if term.String() != want {
		t.Errorf("got %s, want %s", term.String(), want)
	}
}

func checkParseErr(t *testing.T, input string) {
	t.Helper()
	//
	if _, _, err := Parse(source.NewFile("test", []byte(input))); err == nil {
		t.Errorf("expected a syntax error on %q", input)
	}
}
