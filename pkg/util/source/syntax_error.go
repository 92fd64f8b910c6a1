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
package source

import (
	"fmt"
)

// SyntaxError is a structured error which retains the index into the original
// string where an error occurred, along with an error message.
type SyntaxError struct {
	// Source file on which the error occurred.
	srcfile *File
	// Span of original text on which the error occurred.
	span Span
	// Error message.
	msg string
}

var _ error = (*SyntaxError)(nil)

// SourceFile returns the source file on which this error occurred.
func (p *SyntaxError) SourceFile() *File {
	return p.srcfile
}

// Span returns the span of the original text on which this error occurred.
func (p *SyntaxError) Span() Span {
	return p.span
}

// Message returns the message associated with this error.
func (p *SyntaxError) Message() string {
	return p.msg
}

// FirstEnclosingLine determines the first line in the source file which
// encloses the start of the error's span.
func (p *SyntaxError) FirstEnclosingLine() Line {
	return p.srcfile.FindFirstEnclosingLine(p.span)
}

// Error implements the error interface, reporting the filename and line
// number alongside the message.
func (p *SyntaxError) Error() string {
	line := p.FirstEnclosingLine()
	return fmt.Sprintf("%s:%d: %s", p.srcfile.Filename(), line.Number(), p.msg)
}
