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

package util

import "github.com/BurntSushi/toml"

// StorageConfig controls the on-disk block layout, read by cmd/enginectl
// from a TOML file via github.com/BurntSushi/toml and overridable through
// spf13/viper-bound flags.
type StorageConfig struct {
	DataDir   string `toml:"dataDir"`
	BlockSize int    `toml:"blockSize"`
}

// CheckpointConfig is decoded from the [checkpoint] TOML section. No code
// in this module reads WALSizeThresholdBytes; enginectl checkpoints only
// when its checkpoint command is run.
type CheckpointConfig struct {
	WALSizeThresholdBytes int64 `toml:"walSizeThresholdBytes"`
}

// DebugOptions mirrors the teacher's debug knobs, trimmed to the ones this
// engine core can act on.
type DebugOptions struct {
	PrintPlan   bool `toml:"printPlan"`
	PrintResult bool `toml:"printResult"`
}

type Config struct {
	Storage    StorageConfig    `toml:"storage"`
	Checkpoint CheckpointConfig `toml:"checkpoint"`
	Debug      DebugOptions     `toml:"debug"`
}

func DefaultConfig() Config {
	return Config{
		Storage: StorageConfig{
			DataDir:   ".",
			BlockSize: DefaultBlockSize,
		},
		Checkpoint: CheckpointConfig{
			WALSizeThresholdBytes: 16 << 20,
		},
	}
}

// LoadConfig decodes a TOML file into a Config seeded with DefaultConfig's
// values, so a file that only overrides one section leaves the rest at
// their defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, NewIOError("decode config file "+path, err)
	}
	return cfg, nil
}
