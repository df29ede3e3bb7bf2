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

// Package coldata implements ColumnDataCollection, the buffer-managed,
// block-backed columnar chunk store that both a checkpoint's tabledata
// stream and any operator materializing an intermediate result (a hash
// join's build side, a sort's run buffer) append into and scan from.
package coldata

import (
	"github.com/ravensworth/vectorengine/pkg/chunk"
	"github.com/ravensworth/vectorengine/pkg/storage"
	"github.com/ravensworth/vectorengine/pkg/types"
	"github.com/ravensworth/vectorengine/pkg/util"
)

// VectorMetaData records where one vector's worth of rows (at most
// util.DefaultVectorSize) lives in its column's meta-block chain.
type VectorMetaData struct {
	Ptr   storage.BlockPointer
	Count int
}

// ChunkMetaData indexes, per column, which VectorMetaData entries make up
// one chunk's worth of rows.
type ChunkMetaData struct {
	VectorIdx []int
	Count     int
}

// ColumnDataAppendState is the per-append cursor InitializeAppend hands
// back: which chunk is currently being filled, and how many rows of it are
// used so far.
type ColumnDataAppendState struct {
	current    *ChunkMetaData
	currentLen int
}

// ColumnDataScanState is the per-scan cursor InitializeScan hands back.
type ColumnDataScanState struct {
	chunkIndex int
	readers    []*storage.MetaBlockReader
	columnIDs  []int
}

// closeReaders unpins every reader's current block. Scan calls this once
// the chain is exhausted; safe to call more than once since each reader's
// own Close is idempotent.
func (s *ColumnDataScanState) closeReaders() {
	for i, r := range s.readers {
		if r != nil {
			r.Close()
			s.readers[i] = nil
		}
	}
}

// ColumnDataCollection is a single-writer, append-only, buffer-managed
// column store. It never locks internally: a caller that appends and scans
// it concurrently from more than one goroutine has a bug, not this package.
type ColumnDataCollection struct {
	bufferMgr *storage.BufferManager
	blockMgr  storage.BlockManager
	types     []types.LType
	count     int

	writers   []*storage.MetaBlockWriter
	vectors   [][]VectorMetaData
	chunkData []ChunkMetaData
}

func NewColumnDataCollection(bufferMgr *storage.BufferManager, blockMgr storage.BlockManager, colTypes []types.LType) (*ColumnDataCollection, error) {
	c := &ColumnDataCollection{
		bufferMgr: bufferMgr,
		blockMgr:  blockMgr,
		types:     colTypes,
		writers:   make([]*storage.MetaBlockWriter, len(colTypes)),
		vectors:   make([][]VectorMetaData, len(colTypes)),
	}
	for i := range colTypes {
		w, err := storage.NewMetaBlockWriter(blockMgr, bufferMgr, storage.InvalidBlockID)
		if err != nil {
			return nil, err
		}
		c.writers[i] = w
	}
	return c, nil
}

func (c *ColumnDataCollection) Types() []types.LType { return c.types }
func (c *ColumnDataCollection) ColumnCount() int     { return len(c.types) }
func (c *ColumnDataCollection) Count() int           { return c.count }
func (c *ColumnDataCollection) ChunkCount() int      { return len(c.chunkData) }

func (c *ColumnDataCollection) InitializeAppend(state *ColumnDataAppendState) {
	*state = ColumnDataAppendState{}
}

// Append writes input's rows into the collection, splitting it into
// util.DefaultVectorSize-row vectors if it is larger. Every column's data
// is appended into that column's own meta-block chain, so scanning column
// k never has to read bytes belonging to any other column.
//
// A write failure partway through a vector - real, or injected via
// util.Register(util.FAULTS_SCOPE_COLD_WRITE, ...) - rolls the collection
// back to its state before this Append call rather than leaving it with a
// partially-written vector on some columns but not others.
func (c *ColumnDataCollection) Append(state *ColumnDataAppendState, input *chunk.Chunk) error {
	if input.Count == 0 {
		return nil
	}
	if len(input.Data) != len(c.types) {
		return util.NewInternalError("append column count mismatch: collection has %d, chunk has %d", len(c.types), len(input.Data))
	}
	for col, v := range input.Data {
		if !v.Typ.Equal(c.types[col]) {
			return util.NewInternalError("append column %d type mismatch", col)
		}
	}

	vectorMarks := make([]int, len(c.types))
	for col := range c.types {
		vectorMarks[col] = util.Size(c.vectors[col])
	}
	chunkMark := util.Size(c.chunkData)
	countMark := c.count

	remaining := input.Count
	base := 0
	for remaining > 0 {
		n := remaining
		if n > util.DefaultVectorSize {
			n = util.DefaultVectorSize
		}

		if err := c.appendVector(input, base, n); err != nil {
			c.truncateAppend(vectorMarks, chunkMark, countMark)
			return err
		}
		base += n
		remaining -= n
	}
	return nil
}

// appendVector writes rows [base,base+n) of every column into that column's
// writer and records the resulting vector/chunk metadata. It checks for a
// registered FAULTS_SCOPE_COLD_WRITE fault before each column's write so
// tests can simulate a mid-append I/O failure without a real one.
func (c *ColumnDataCollection) appendVector(input *chunk.Chunk, base, n int) error {
	vectorIdx := make([]int, len(c.types))
	for col := range c.types {
		if fault := util.Check(util.FAULTS_SCOPE_COLD_WRITE, "append"); fault != nil {
			if err := fault.Action(fault.Args); err != nil {
				return err
			}
		}
		ptr := c.writers[col].GetBlockPointer()
		if err := writeVectorSlice(c.writers[col], input.Data[col], base, n); err != nil {
			return err
		}
		c.vectors[col] = append(c.vectors[col], VectorMetaData{Ptr: ptr, Count: n})
		vectorIdx[col] = util.Size(c.vectors[col]) - 1
	}
	c.chunkData = append(c.chunkData, ChunkMetaData{VectorIdx: vectorIdx, Count: n})
	c.count += n
	return nil
}

// truncateAppend restores vectors/chunkData/count to their marks from
// before a failed appendVector call, discarding whatever columns it
// managed to write before the failure.
func (c *ColumnDataCollection) truncateAppend(vectorMarks []int, chunkMark, countMark int) {
	for col, mark := range vectorMarks {
		c.vectors[col] = c.vectors[col][:mark]
	}
	c.chunkData = c.chunkData[:chunkMark]
	c.count = countMark
}

// writeVectorSlice serializes rows [base,base+n) of v. A zero base passes v
// through unchanged; otherwise it wraps v in a dictionary view starting at
// row base, without copying, and writeVectorData resolves the selection
// through ToUnifiedFormat.
func writeVectorSlice(w *storage.MetaBlockWriter, v *chunk.Vector, base, n int) error {
	if base == 0 {
		return writeVectorData(v, n, w)
	}
	sel := chunk.NewIdentitySelectVector(base, n)
	sliced := &chunk.Vector{}
	sliced.Slice(v, sel)
	return writeVectorData(sliced, n, w)
}

// ColumnStarts returns, per column, the BlockPointer where that column's
// meta-block chain begins - what a checkpoint records in the catalog so a
// later OpenColumnDataCollection can re-open the same chain for scanning.
// It is only meaningful once the collection holds at least one chunk.
func (c *ColumnDataCollection) ColumnStarts() []storage.BlockPointer {
	starts := make([]storage.BlockPointer, len(c.types))
	for col := range c.types {
		if len(c.vectors[col]) == 0 {
			starts[col] = storage.BlockPointer{BlockID: storage.InvalidBlockID, Offset: storage.MetaBlockHeaderSize}
			continue
		}
		starts[col] = c.vectors[col][0].Ptr
	}
	return starts
}

// Flush persists every column's in-flight meta-block writer, making the
// collection's data durable up to this point. It must be called before a
// checkpoint records any VectorMetaData pointing into these writers.
func (c *ColumnDataCollection) Flush() error {
	for _, w := range c.writers {
		if err := w.Flush(); err != nil {
			return err
		}
	}
	return nil
}

// Combine appends other's chunk metadata directly onto c without copying
// any row data: it splices the two collections' meta-block chains together
// logically by keeping other's VectorMetaData entries verbatim. This
// mirrors the teacher's checkpoint code path, which always constructs a
// dedicated collection per row group and never needs a byte-level merge.
func (c *ColumnDataCollection) Combine(other *ColumnDataCollection) error {
	if len(c.types) != len(other.types) {
		return util.NewInternalError("combine column count mismatch")
	}
	for col := range c.types {
		c.vectors[col] = append(c.vectors[col], other.vectors[col]...)
	}
	for _, cm := range other.chunkData {
		shifted := ChunkMetaData{Count: cm.Count, VectorIdx: make([]int, len(cm.VectorIdx))}
		for col, idx := range cm.VectorIdx {
			shifted.VectorIdx[col] = idx + len(c.vectors[col]) - len(other.vectors[col])
		}
		c.chunkData = append(c.chunkData, shifted)
	}
	c.count += other.count
	return nil
}

func (c *ColumnDataCollection) InitializeScan(state *ColumnDataScanState, columnIDs []int) error {
	if columnIDs == nil {
		columnIDs = make([]int, len(c.types))
		for i := range columnIDs {
			columnIDs[i] = i
		}
	}
	state.chunkIndex = 0
	state.columnIDs = columnIDs
	state.readers = make([]*storage.MetaBlockReader, len(columnIDs))
	return nil
}

// Scan fills result with the next chunk of rows, or leaves result at zero
// count once the collection is exhausted. It reuses one reader per column
// across calls rather than opening a fresh one every time, so a column's
// reader only ever holds a pin on the single block it is currently
// positioned in; once the collection is exhausted those readers are
// closed, releasing every pin the scan was holding.
func (c *ColumnDataCollection) Scan(state *ColumnDataScanState, result *chunk.Chunk) error {
	result.Reset()
	if state.chunkIndex >= len(c.chunkData) {
		state.closeReaders()
		return nil
	}
	cm := c.chunkData[state.chunkIndex]
	for i, col := range state.columnIDs {
		vm := c.vectors[col][cm.VectorIdx[col]]
		r := state.readers[i]
		if r == nil {
			nr, err := storage.NewMetaBlockReader(c.blockMgr, c.bufferMgr, vm.Ptr.BlockID)
			if err != nil {
				return err
			}
			r = nr
			state.readers[i] = r
		}
		if err := r.Seek(vm.Ptr); err != nil {
			return err
		}
		result.Data[i].Reset()
		if err := readVectorData(result.Data[i], vm.Count, r); err != nil {
			return err
		}
	}
	result.Count = cm.Count
	state.chunkIndex++
	return nil
}

func (c *ColumnDataCollection) Reset() {
	c.count = 0
	c.chunkData = nil
	for i := range c.vectors {
		c.vectors[i] = nil
	}
}

// Verify checks the row-count bookkeeping invariant: the sum of every
// chunk's count must equal Count().
func (c *ColumnDataCollection) Verify() {
	sum := 0
	for _, cm := range c.chunkData {
		sum += cm.Count
	}
	util.Assertf(sum == c.count, "column data collection row count mismatch: chunks sum to %d, Count() is %d", sum, c.count)
}
