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
	"github.com/spf13/cobra"

	"github.com/consensys/go-elab/pkg/hdl/aiger"
	"github.com/consensys/go-elab/pkg/hdl/ast"
	"github.com/consensys/go-elab/pkg/hdl/elab"
	"github.com/consensys/go-elab/pkg/util/source"
)

// aigerCmd converts an ASCII AIGER netlist into a module AST.
var aigerCmd = &cobra.Command{
	Use:   "aiger [flags] aag_file",
	Short: "Read an ASCII AIGER netlist into a module AST",
	Long: `Read an ASCII AIGER (aag) netlist into a module AST, mapping inputs,
latches, outputs and and-gates onto wires, processes and assignments.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		configureLogging(cmd)
		//
		srcfiles, err := source.ReadFiles(args[0])
		if err != nil {
			reportError(err)
		}
		//
		module, err := aiger.Parse(&srcfiles[0], GetString(cmd, "clock"))
		if err != nil {
			reportError(err)
		}
		//
		if GetFlag(cmd, "elab") {
			if err := elab.Simplify(module, elab.Config{}); err != nil {
				reportError(err)
			}
		}
		//
		writeOutput(GetString(cmd, "output"), ast.Write(module))
	},
}

func init() {
	rootCmd.AddCommand(aigerCmd)
	aigerCmd.Flags().String("clock", "clock", "name of the synthesised latch clock input")
	aigerCmd.Flags().Bool("elab", false, "elaborate the module after reading")
	aigerCmd.Flags().StringP("output", "o", "", "write output to a file instead of stdout")
}
