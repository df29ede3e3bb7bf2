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

package coldata

import (
	"github.com/ravensworth/vectorengine/pkg/chunk"
	"github.com/ravensworth/vectorengine/pkg/storage"
	"github.com/ravensworth/vectorengine/pkg/types"
	"github.com/ravensworth/vectorengine/pkg/util"
)

// RestoredColumnDataCollection is what a checkpoint load reconstructs for a
// table: a fixed row count, read sequentially chunk by chunk from each
// column's own meta-block chain starting at the pointer the catalog
// recorded. Unlike ColumnDataCollection it never appends and never seeks
// back and forth between chunks - a checkpoint-loaded table is scanned
// start to finish exactly once per query that touches it.
type RestoredColumnDataCollection struct {
	colTypes []types.LType
	remain   int
	readers  []*storage.MetaBlockReader
}

// OpenColumnDataCollection opens one reader per column at its recorded
// starting BlockPointer. count is the table's total row count, recorded in
// the catalog alongside the pointers.
func OpenColumnDataCollection(blockMgr storage.BlockManager, bufferMgr *storage.BufferManager, colTypes []types.LType, count int, starts []storage.BlockPointer) (*RestoredColumnDataCollection, error) {
	if len(starts) != len(colTypes) {
		return nil, util.NewInternalError("column start count %d does not match column count %d", len(starts), len(colTypes))
	}
	readers := make([]*storage.MetaBlockReader, len(colTypes))
	for i, ptr := range starts {
		r, err := storage.NewMetaBlockReader(blockMgr, bufferMgr, ptr.BlockID)
		if err != nil {
			return nil, err
		}
		if err := r.Seek(ptr); err != nil {
			return nil, err
		}
		readers[i] = r
	}
	return &RestoredColumnDataCollection{colTypes: colTypes, remain: count, readers: readers}, nil
}

// EmptyRestoredColumnDataCollection is what a catalog table with no
// recorded ColumnStarts (its data never persisted by PersistTable) opens
// as: zero rows, no meta-block chain to read.
func EmptyRestoredColumnDataCollection(colTypes []types.LType) *RestoredColumnDataCollection {
	return &RestoredColumnDataCollection{colTypes: colTypes}
}

func (r *RestoredColumnDataCollection) Types() []types.LType { return r.colTypes }

// Scan fills result with the next up-to-util.DefaultVectorSize rows, or
// leaves result at zero count once every row has been read. Once
// exhausted it closes every column's reader, releasing the pin each one
// holds on its current block.
func (r *RestoredColumnDataCollection) Scan(result *chunk.Chunk) error {
	result.Reset()
	if r.remain == 0 {
		r.closeReaders()
		return nil
	}
	n := r.remain
	if n > util.DefaultVectorSize {
		n = util.DefaultVectorSize
	}
	for i, reader := range r.readers {
		result.Data[i].Reset()
		if err := readVectorData(result.Data[i], n, reader); err != nil {
			return err
		}
	}
	result.Count = n
	r.remain -= n
	return nil
}

func (r *RestoredColumnDataCollection) closeReaders() {
	for _, reader := range r.readers {
		if reader != nil {
			reader.Close()
		}
	}
}
