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
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ravensworth/vectorengine/pkg/catalog"
	"github.com/ravensworth/vectorengine/pkg/checkpoint"
	"github.com/ravensworth/vectorengine/pkg/storage"
	"github.com/ravensworth/vectorengine/pkg/tableexport"
	"github.com/ravensworth/vectorengine/pkg/util"
)

var (
	exportSchema       string
	exportTable        string
	exportOut          string
	exportRowGroupSize int
)

var exportInfo = "export one table's checkpointed data to a Parquet file"
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: exportInfo,
	Long:  exportInfo,
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
		entry := cat.GetTable(exportSchema, exportTable)
		if entry == nil {
			return util.NewInternalError("no such table %q in schema %q", exportTable, exportSchema)
		}

		written, err := tableexport.ExportTable(entry, blockMgr, blockMgr.Buffers(), exportOut, exportRowGroupSize)
		if err != nil {
			return err
		}
		util.Info("table exported",
			zap.String("schema", exportSchema),
			zap.String("table", exportTable),
			zap.String("out", exportOut),
			zap.Int("rows", written))
		fmt.Printf("exported %d rows to %s\n", written, exportOut)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportSchema, "schema", catalog.DefaultSchema, "schema containing the table")
	exportCmd.Flags().StringVar(&exportTable, "table", "", "table to export")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output Parquet file path")
	exportCmd.Flags().IntVar(&exportRowGroupSize, "row-group-size", 1<<20, "rows buffered per Parquet row group flush")
	exportCmd.MarkFlagRequired("table")
	exportCmd.MarkFlagRequired("out")
}
