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

// Package checkpoint implements the durability boundary: writing the
// catalog (and every table's column-chain pointers) into a single
// metadata meta-block chain, then committing a new DatabaseHeader that
// points at it.
//
// This differs from the teacher's two-writer checkpoint_manager.cpp in one
// deliberate way: DuckDB's checkpoint writes both the catalog metadata and
// the table row data into two parallel meta-block streams in the same
// pass, because its row groups are not otherwise durable. Here a table's
// ColumnDataCollection already owns one durable meta-block chain per
// column (see pkg/coldata) that PersistTable flushes independently of
// checkpointing, so CreateCheckpoint only ever has to serialize pointers
// into those already-durable chains, not the row bytes themselves.
package checkpoint

import (
	"github.com/ravensworth/vectorengine/pkg/catalog"
	"github.com/ravensworth/vectorengine/pkg/coldata"
	"github.com/ravensworth/vectorengine/pkg/storage"
	"github.com/ravensworth/vectorengine/pkg/util"
)

// PersistTable flushes cdc's per-column meta-block chains and records
// their starting pointers plus the table's row count into entry, so the
// next CreateCheckpoint call captures them. It must run before
// CreateCheckpoint for any table that changed since the last checkpoint.
func PersistTable(entry *catalog.TableEntry, cdc *coldata.ColumnDataCollection) error {
	if err := cdc.Flush(); err != nil {
		return err
	}
	entry.RowCount = cdc.Count()
	entry.ColumnStarts = cdc.ColumnStarts()
	return nil
}

// OpenTableData reopens entry's row data for scanning, following the
// per-column chains PersistTable recorded. A table that was created but
// never persisted opens as an empty scan.
func OpenTableData(entry *catalog.TableEntry, blockMgr storage.BlockManager, bufferMgr *storage.BufferManager) (*coldata.RestoredColumnDataCollection, error) {
	if entry.ColumnStarts == nil {
		return coldata.EmptyRestoredColumnDataCollection(entry.Types()), nil
	}
	return coldata.OpenColumnDataCollection(blockMgr, bufferMgr, entry.Types(), entry.RowCount, entry.ColumnStarts)
}

// CreateCheckpoint serializes every schema and table in cat into a fresh
// metadata meta-block chain and commits a new DatabaseHeader pointing at
// it. Mirrors checkpoint_manager.cpp's CreateCheckpoint: start the block
// manager's checkpoint, walk catalog sets writing counts then entries,
// flush, then write the header last so a crash before the header write
// leaves the previous checkpoint as the durable one.
func CreateCheckpoint(cat *catalog.Catalog, blockMgr storage.BlockManager, bufferMgr *storage.BufferManager) error {
	blockMgr.StartCheckpoint()

	metaWriter, err := storage.NewMetaBlockWriter(blockMgr, bufferMgr, storage.InvalidBlockID)
	if err != nil {
		return err
	}
	metaBlock := metaWriter.GetBlockPointer().BlockID

	var schemas []*catalog.SchemaEntry
	cat.ScanSchemas(func(s *catalog.SchemaEntry) {
		schemas = append(schemas, s)
	})

	if err := util.Write(uint32(len(schemas)), metaWriter); err != nil {
		return err
	}
	for _, s := range schemas {
		if err := s.Serialize(metaWriter); err != nil {
			return err
		}
	}
	if err := metaWriter.Flush(); err != nil {
		return err
	}

	return blockMgr.WriteHeader(storage.DatabaseHeader{MetaBlock: metaBlock})
}

// LoadFromStorage rebuilds a Catalog from the block manager's current
// meta block, or returns a fresh empty catalog if the database has never
// been checkpointed (GetMetaBlock returns InvalidBlockID).
func LoadFromStorage(blockMgr storage.BlockManager, bufferMgr *storage.BufferManager) (*catalog.Catalog, error) {
	metaBlock := blockMgr.GetMetaBlock()
	cat := catalog.NewCatalog()
	if metaBlock == storage.InvalidBlockID {
		return cat, nil
	}

	reader, err := storage.NewMetaBlockReader(blockMgr, bufferMgr, metaBlock)
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	schemaCount, err := util.Read[uint32](reader)
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < schemaCount; i++ {
		s, err := catalog.DeserializeSchema(reader)
		if err != nil {
			return nil, err
		}
		cat.Schemas[s.Name] = s
	}
	return cat, nil
}
