// Copyright 2023-2024 daviszhen
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"encoding/json"
	"fmt"

	"github.com/huandu/go-clone"
	"github.com/spf13/cobra"
	"github.com/xlab/treeprint"

	"github.com/ravensworth/vectorengine/pkg/catalog"
	"github.com/ravensworth/vectorengine/pkg/checkpoint"
	"github.com/ravensworth/vectorengine/pkg/storage"
)

var inspectAsJSON bool

var inspectInfo = "print the catalog's schema/table tree"
var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: inspectInfo,
	Long:  inspectInfo,
	RunE: func(cmd *cobra.Command, args []string) error {
		blockMgr, _, err := storage.LoadExistingDatabase(engineCfg.Storage.DataDir, engineCfg.Storage.BlockSize)
		if err != nil {
			return err
		}
		defer blockMgr.Close()

		cat, err := checkpoint.LoadFromStorage(blockMgr, blockMgr.Buffers())
		if err != nil {
			return err
		}

		if inspectAsJSON {
			return printCatalogJSON(cat)
		}
		printCatalogTree(cat)
		return nil
	},
}

func init() {
	inspectCmd.Flags().BoolVar(&inspectAsJSON, "json", false, "print the catalog as JSON instead of a tree")
}

func printCatalogTree(cat *catalog.Catalog) {
	tree := treeprint.NewWithRoot("catalog")
	cat.ScanSchemas(func(s *catalog.SchemaEntry) {
		schemaBranch := tree.AddBranch(s.Name)
		for _, t := range s.Tables {
			tableBranch := schemaBranch.AddBranch(fmt.Sprintf("%s (%d rows)", t.Name, t.RowCount))
			for _, col := range t.Columns {
				tableBranch.AddNode(fmt.Sprintf("%s %s", col.Name, col.Type.Id))
			}
		}
		for _, v := range s.Views {
			schemaBranch.AddNode(fmt.Sprintf("view %s", v.Name))
		}
		for _, seq := range s.Sequences {
			schemaBranch.AddNode(fmt.Sprintf("sequence %s (current %d)", seq.Name, seq.CurrentValue))
		}
		for _, m := range s.Macros {
			schemaBranch.AddNode(fmt.Sprintf("macro %s", m.Name))
		}
	})
	fmt.Println(tree.String())
}

// redactedTableEntry mirrors catalog.TableEntry's exported shape minus
// ColumnStarts: the on-disk block pointers into a table's column chains are
// an internal storage address, not something a JSON consumer should see or
// depend on.
type redactedTableEntry struct {
	Name     string
	Columns  []catalog.ColumnDefinition
	RowCount int
}

// printCatalogJSON deep-clones every table entry before stripping its
// ColumnStarts, so redaction never mutates the catalog the caller is still
// holding - the same clone-before-mutate shape the teacher's expression
// rewriter uses when it needs to hand out a modified copy of a shared tree.
func printCatalogJSON(cat *catalog.Catalog) error {
	out := make(map[string]map[string]redactedTableEntry)
	cat.ScanSchemas(func(s *catalog.SchemaEntry) {
		tables := make(map[string]redactedTableEntry, len(s.Tables))
		for name, t := range s.Tables {
			cloned := clone.Clone(t).(*catalog.TableEntry)
			cloned.ColumnStarts = nil
			tables[name] = redactedTableEntry{
				Name:     cloned.Name,
				Columns:  cloned.Columns,
				RowCount: cloned.RowCount,
			}
		}
		out[s.Name] = tables
	})
	enc, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(enc))
	return nil
}
