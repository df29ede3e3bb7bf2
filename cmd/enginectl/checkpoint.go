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

	"github.com/ravensworth/vectorengine/pkg/checkpoint"
	"github.com/ravensworth/vectorengine/pkg/storage"
	"github.com/ravensworth/vectorengine/pkg/util"
)

var checkpointInfo = "force a new checkpoint of the current catalog"
var checkpointCmd = &cobra.Command{
	Use:   "checkpoint",
	Short: checkpointInfo,
	Long:  checkpointInfo,
	RunE: func(cmd *cobra.Command, args []string) error {
		blockMgr, header, err := storage.LoadExistingDatabase(engineCfg.Storage.DataDir, engineCfg.Storage.BlockSize)
		if err != nil {
			return err
		}
		defer blockMgr.Close()

		cat, err := checkpoint.LoadFromStorage(blockMgr, blockMgr.Buffers())
		if err != nil {
			return err
		}
		if err := checkpoint.CreateCheckpoint(cat, blockMgr, blockMgr.Buffers()); err != nil {
			return err
		}
		util.Info("checkpoint committed",
			zap.String("path", engineCfg.Storage.DataDir),
			zap.Uint64("previousIteration", header.Iteration))
		fmt.Printf("checkpoint committed (previous iteration %d)\n", header.Iteration)
		return nil
	},
}
