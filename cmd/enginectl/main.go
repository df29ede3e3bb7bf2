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

// Command enginectl operates a single database file: creating one,
// forcing a checkpoint, inspecting its catalog, and exporting a table to
// Parquet.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ravensworth/vectorengine/pkg/util"
)

var engineCfg = util.DefaultConfig()

func init() {
	cobra.OnInitialize(loadConfig)
}

var info = "enginectl"
var RootCmd = &cobra.Command{
	Use:          "enginectl",
	Short:        info,
	Long:         info,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("use enginectl --help or -h")
	},
}

var cfgFile string

func init() {
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to enginectl.toml")
	RootCmd.PersistentFlags().StringVar(&engineCfg.Storage.DataDir, "db", engineCfg.Storage.DataDir, "database file path")
	RootCmd.PersistentFlags().IntVar(&engineCfg.Storage.BlockSize, "block-size", engineCfg.Storage.BlockSize, "block size in bytes, only meaningful on init")

	viper.BindPFlag("storage.dataDir", RootCmd.PersistentFlags().Lookup("db"))
	viper.BindPFlag("storage.blockSize", RootCmd.PersistentFlags().Lookup("block-size"))

	RootCmd.AddCommand(initCmd)
	RootCmd.AddCommand(checkpointCmd)
	RootCmd.AddCommand(inspectCmd)
	RootCmd.AddCommand(exportCmd)
}

// loadConfig seeds engineCfg from cfgFile if one was given, the same
// override-then-flag-binding order the teacher's tester command uses, and
// swaps in a logger that tags every entry with the database path.
func loadConfig() {
	if cfgFile != "" {
		loaded, err := util.LoadConfig(cfgFile)
		if err != nil {
			util.Error("load config file failed", zap.String("path", cfgFile), zap.Error(err))
			os.Exit(1)
		}
		// engineCfg's fields are the flags' bound variables, so keep any
		// value given on the command line before replacing the struct.
		flags := RootCmd.PersistentFlags()
		if flags.Changed("db") {
			loaded.Storage.DataDir = engineCfg.Storage.DataDir
		}
		if flags.Changed("block-size") {
			loaded.Storage.BlockSize = engineCfg.Storage.BlockSize
		}
		engineCfg = loaded
	}
	if v := viper.GetString("storage.dataDir"); v != "" {
		engineCfg.Storage.DataDir = v
	}
	if v := viper.GetInt("storage.blockSize"); v != 0 {
		engineCfg.Storage.BlockSize = v
	}

	logger, err := zap.NewProduction(zap.Fields(zap.String("db", engineCfg.Storage.DataDir)))
	if err == nil {
		util.InitLogger(logger)
	}
}

func main() {
	defer util.Sync()
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
