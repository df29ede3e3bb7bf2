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

package storage

import "github.com/ravensworth/vectorengine/pkg/util"

// DatabaseHeaderMagic identifies a valid database file.
const DatabaseHeaderMagic = "VENG"

// DatabaseHeaderVersion is bumped whenever the block or checkpoint wire
// format changes incompatibly.
const DatabaseHeaderVersion = 1

// DatabaseHeader is the single commit record a checkpoint produces: the
// root pointer into the meta-block chain that WriteHeader makes durable
// atomically. Every prior write - the metadata meta-block chain, every
// table's per-column chains - is reachable garbage until this record is
// written.
type DatabaseHeader struct {
	Magic     string
	Version   uint64
	MetaBlock BlockID
	Iteration uint64
}

func (h DatabaseHeader) Serialize(serial util.Serialize) error {
	if err := serial.WriteData([]byte(DatabaseHeaderMagic), 4); err != nil {
		return err
	}
	if err := util.Write(h.Version, serial); err != nil {
		return err
	}
	if err := util.Write(int64(h.MetaBlock), serial); err != nil {
		return err
	}
	return util.Write(h.Iteration, serial)
}

func DeserializeHeader(deserial util.Deserialize) (DatabaseHeader, error) {
	magic := make([]byte, 4)
	if err := deserial.ReadData(magic, 4); err != nil {
		return DatabaseHeader{}, err
	}
	version, err := util.Read[uint64](deserial)
	if err != nil {
		return DatabaseHeader{}, err
	}
	metaBlock, err := util.Read[int64](deserial)
	if err != nil {
		return DatabaseHeader{}, err
	}
	iteration, err := util.Read[uint64](deserial)
	if err != nil {
		return DatabaseHeader{}, err
	}
	if string(magic) != DatabaseHeaderMagic {
		return DatabaseHeader{}, util.NewIOError("bad database header magic "+string(magic), nil)
	}
	return DatabaseHeader{
		Magic:     string(magic),
		Version:   version,
		MetaBlock: BlockID(metaBlock),
		Iteration: iteration,
	}, nil
}
