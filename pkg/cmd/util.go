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
package cmd

import (
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/consensys/go-elab/pkg/util/source"
)

// GetFlag gets an expected flag, or exits if an error arises.
func GetFlag(cmd *cobra.Command, flag string) bool {
	r, err := cmd.Flags().GetBool(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// GetString gets an expected string flag, or exits if an error arises.
func GetString(cmd *cobra.Command, flag string) string {
	r, err := cmd.Flags().GetString(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// configureLogging raises the log level when verbose output is requested.
func configureLogging(cmd *cobra.Command) {
	if GetFlag(cmd, "verbose") {
		log.SetLevel(log.DebugLevel)
	}
}

// reportError prints an error and exits.  Syntax errors additionally print
// the offending source line, highlighted when stderr is a terminal.
func reportError(err error) {
	if syntaxErr, ok := err.(*source.SyntaxError); ok {
		reportSyntaxError(syntaxErr)
	} else {
		fmt.Fprintln(os.Stderr, err)
	}
	//
	os.Exit(2)
}

func reportSyntaxError(err *source.SyntaxError) {
	line := err.FirstEnclosingLine()
	//
	fmt.Fprintf(os.Stderr, "%s:%d: %s\n", err.SourceFile().Filename(), line.Number(), err.Message())
	fmt.Fprintln(os.Stderr, line.String())
	// Highlight the offending span on terminals only.
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		return
	}
	//
	span := err.Span()
	offset := span.Start() - line.Start()
	if offset < 0 {
		offset = 0
	}
	//
	length := span.Length()
	if length < 1 {
		length = 1
	}
	//
	fmt.Fprint(os.Stderr, strings.Repeat(" ", offset))
	fmt.Fprintf(os.Stderr, "\033[31m%s\033[0m\n", strings.Repeat("^", length))
}

// writeOutput writes rendered output either to a file or to stdout.
func writeOutput(filename string, text string) {
	if filename == "" {
		fmt.Println(text)
		return
	}
	//
	if err := os.WriteFile(filename, []byte(text), 0644); err != nil {
		reportError(err)
	}
}
