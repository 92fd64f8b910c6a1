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

	"github.com/consensys/go-elab/pkg/hdl/ast"
)

// ErrorKind classifies the fatal errors the elaborator can report.
type ErrorKind uint8

// The classes of elaboration error.
const (
	// SyntaxInElaboration indicates a non-constant expression where a
	// constant was required (generate bounds, parameter ranges, etc).
	SyntaxInElaboration ErrorKind = iota
	// NameResolution indicates a name which could not be resolved, or which
	// resolved to a declaration of the wrong kind.
	NameResolution
	// TypeMisuse indicates a construct used in a context where it is not
	// permitted (e.g. a while loop outside a constant function).
	TypeMisuse
	// ArgumentArity indicates a system function called with the wrong number
	// of arguments.
	ArgumentArity
	// InternalInvariant indicates a broken invariant within the elaborator
	// itself.
	InternalInvariant
)

func (k ErrorKind) String() string {
	switch k {
	case SyntaxInElaboration:
		return "syntax"
	case NameResolution:
		return "name"
	case TypeMisuse:
		return "type"
	case ArgumentArity:
		return "arity"
	default:
		return "internal"
	}
}

// Error is a fatal elaboration error, carrying the source location of the
// node on which elaboration failed.  On the first such error the enclosing
// module is abandoned.
type Error struct {
	// Kind of this error.
	Kind ErrorKind
	// Source location at which the error arose.
	Filename string
	Line     int
	// Human readable message.
	Msg string
}

var _ error = (*Error)(nil)

func (p *Error) Error() string {
	return fmt.Sprintf("%s:%d: %s", p.Filename, p.Line, p.Msg)
}

// errorAt constructs an elaboration error located at a given node.
func errorAt(node *ast.Node, kind ErrorKind, format string, args ...any) *Error {
	return &Error{kind, node.Filename, node.Line, fmt.Sprintf(format, args...)}
}
