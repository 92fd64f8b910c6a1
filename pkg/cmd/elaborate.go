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
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/consensys/go-elab/pkg/hdl/ast"
	"github.com/consensys/go-elab/pkg/hdl/elab"
	"github.com/consensys/go-elab/pkg/util/source"
)

// elaborateCmd simplifies every module of an AST file.
var elaborateCmd = &cobra.Command{
	Use:   "elaborate [flags] ast_file(s)",
	Short: "Elaborate the modules of one or more AST files",
	Long: `Elaborate the modules of one or more AST files: resolve names, substitute
parameters, unroll generate constructs, fold constants, demote memories as
needed and rewrite memory accesses into explicit ports.  The simplified
modules are printed in the same textual AST format.`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			_ = cmd.Usage()
			return
		}
		//
		configureLogging(cmd)
		//
		config := elab.Config{
			Mem2Reg:   GetFlag(cmd, "mem2reg"),
			NoMem2Reg: GetFlag(cmd, "no-mem2reg"),
		}
		//
		srcfiles, err := source.ReadFiles(args...)
		if err != nil {
			reportError(err)
		}
		//
		var builder strings.Builder
		//
		for i := range srcfiles {
			modules, syntaxErr := ast.Read(&srcfiles[i])
			if syntaxErr != nil {
				reportError(syntaxErr)
			}
			//
			for _, module := range modules {
				log.Debugf("elaborating module %s", module.Name)
				//
				if err := elab.Simplify(module, config); err != nil {
					reportError(err)
				}
				//
				fmt.Fprintln(&builder, ast.Write(module))
			}
		}
		//
		writeOutput(GetString(cmd, "output"), builder.String())
	},
}

func init() {
	rootCmd.AddCommand(elaborateCmd)
	elaborateCmd.Flags().Bool("mem2reg", false, "demote every memory to registers")
	elaborateCmd.Flags().Bool("no-mem2reg", false, "disable memory demotion entirely")
	elaborateCmd.Flags().StringP("output", "o", "", "write output to a file instead of stdout")
}
