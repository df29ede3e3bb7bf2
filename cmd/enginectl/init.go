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
	"github.com/ravensworth/vectorengine/pkg/util"
)

var initInfo = "create a new database file with an empty checkpoint"
var initCmd = &cobra.Command{
	Use:   "init",
	Short: initInfo,
	Long:  initInfo,
	RunE: func(cmd *cobra.Command, args []string) error {
		blockMgr, err := storage.CreateNewDatabase(engineCfg.Storage.DataDir, engineCfg.Storage.BlockSize)
		if err != nil {
			return err
		}
		defer blockMgr.Close()

		cat := catalog.NewCatalog()
		if err := checkpoint.CreateCheckpoint(cat, blockMgr, blockMgr.Buffers()); err != nil {
			return err
		}
		util.Info("database initialized", zap.String("path", engineCfg.Storage.DataDir), zap.Int("blockSize", engineCfg.Storage.BlockSize))
		fmt.Printf("initialized %s (block size %d)\n", engineCfg.Storage.DataDir, engineCfg.Storage.BlockSize)
		return nil
	},
}
