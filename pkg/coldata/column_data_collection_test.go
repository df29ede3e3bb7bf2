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
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ravensworth/vectorengine/pkg/chunk"
	"github.com/ravensworth/vectorengine/pkg/storage"
	"github.com/ravensworth/vectorengine/pkg/types"
	"github.com/ravensworth/vectorengine/pkg/util"
)

func newTestManager(t *testing.T) (*storage.InMemoryBlockManager, *storage.BufferManager) {
	mgr := storage.NewInMemoryBlockManager(util.DefaultBlockSize)
	return mgr, mgr.Buffers()
}

func fillChunk(c *chunk.Chunk, base, n int) {
	for i := 0; i < n; i++ {
		chunk.SetValue(c.Data[0], i, int32(base+i))
		c.Data[1].SetString(i, fmt.Sprintf("row-%d", base+i))
	}
	c.Count = n
}

func TestColumnDataCollectionAppendScanRoundTrip(t *testing.T) {
	blockMgr, bufferMgr := newTestManager(t)
	colTypes := []types.LType{types.IntegerType(), types.VarcharType()}

	cdc, err := NewColumnDataCollection(bufferMgr, blockMgr, colTypes)
	require.NoError(t, err)

	var appendState ColumnDataAppendState
	cdc.InitializeAppend(&appendState)

	const totalRows = 2000
	in := chunk.NewChunk(colTypes)
	fillChunk(in, 0, totalRows)
	require.NoError(t, cdc.Append(&appendState, in))
	require.NoError(t, cdc.Flush())

	require.Equal(t, totalRows, cdc.Count())
	cdc.Verify()

	var scanState ColumnDataScanState
	require.NoError(t, cdc.InitializeScan(&scanState, nil))

	out := chunk.NewChunk(colTypes)
	seen := 0
	for {
		require.NoError(t, cdc.Scan(&scanState, out))
		if out.Count == 0 {
			break
		}
		for i := 0; i < out.Count; i++ {
			require.Equal(t, int32(seen+i), chunk.GetValue[int32](out.Data[0], i))
			require.Equal(t, fmt.Sprintf("row-%d", seen+i), out.Data[1].GetString(i))
		}
		seen += out.Count
	}
	require.Equal(t, totalRows, seen)
}

// TestColumnDataCollectionScanUnpinsEveryBlock matches scenario S4: after a
// full append/scan round trip, every block either writer ever pinned must be
// back at zero readers - the scan must not leave pins accumulating on a
// collection it has already read to the end.
func TestColumnDataCollectionScanUnpinsEveryBlock(t *testing.T) {
	blockMgr, bufferMgr := newTestManager(t)
	colTypes := []types.LType{types.IntegerType(), types.VarcharType()}

	cdc, err := NewColumnDataCollection(bufferMgr, blockMgr, colTypes)
	require.NoError(t, err)

	var appendState ColumnDataAppendState
	cdc.InitializeAppend(&appendState)

	const totalRows = 2000
	in := chunk.NewChunk(colTypes)
	fillChunk(in, 0, totalRows)
	require.NoError(t, cdc.Append(&appendState, in))
	require.NoError(t, cdc.Flush())

	var scanState ColumnDataScanState
	require.NoError(t, cdc.InitializeScan(&scanState, nil))
	out := chunk.NewChunk(colTypes)
	seen := 0
	for {
		require.NoError(t, cdc.Scan(&scanState, out))
		if out.Count == 0 {
			break
		}
		seen += out.Count
	}
	require.Equal(t, totalRows, seen)

	touched := make(map[storage.BlockID]struct{})
	for _, w := range cdc.writers {
		for _, id := range w.WrittenBlocks() {
			touched[id] = struct{}{}
		}
	}
	for id := range touched {
		h := bufferMgr.RegisterBlock(id)
		require.Equal(t, int32(0), h.Readers(), "block %d still pinned after scan", id)
	}
}

func TestColumnDataCollectionCombine(t *testing.T) {
	blockMgr, bufferMgr := newTestManager(t)
	colTypes := []types.LType{types.IntegerType()}

	a, err := NewColumnDataCollection(bufferMgr, blockMgr, colTypes)
	require.NoError(t, err)
	b, err := NewColumnDataCollection(bufferMgr, blockMgr, colTypes)
	require.NoError(t, err)

	var stateA, stateB ColumnDataAppendState
	a.InitializeAppend(&stateA)
	b.InitializeAppend(&stateB)

	chunkA := chunk.NewChunk(colTypes)
	fillIntChunk(chunkA, 0, 10)
	require.NoError(t, a.Append(&stateA, chunkA))

	chunkB := chunk.NewChunk(colTypes)
	fillIntChunk(chunkB, 10, 5)
	require.NoError(t, b.Append(&stateB, chunkB))

	require.NoError(t, a.Combine(b))
	require.Equal(t, 15, a.Count())
	a.Verify()

	require.NoError(t, a.Flush())
	var scanState ColumnDataScanState
	require.NoError(t, a.InitializeScan(&scanState, nil))
	out := chunk.NewChunk(colTypes)
	seen := 0
	for {
		require.NoError(t, a.Scan(&scanState, out))
		if out.Count == 0 {
			break
		}
		for i := 0; i < out.Count; i++ {
			require.Equal(t, int32(seen+i), chunk.GetValue[int32](out.Data[0], i))
		}
		seen += out.Count
	}
	require.Equal(t, 15, seen)
}

func fillIntChunk(c *chunk.Chunk, base, n int) {
	for i := 0; i < n; i++ {
		chunk.SetValue(c.Data[0], i, int32(base+i))
	}
	c.Count = n
}

func TestColumnDataCollectionAppendRollsBackOnInjectedFault(t *testing.T) {
	blockMgr, bufferMgr := newTestManager(t)
	colTypes := []types.LType{types.IntegerType(), types.VarcharType()}

	cdc, err := NewColumnDataCollection(bufferMgr, blockMgr, colTypes)
	require.NoError(t, err)

	var state ColumnDataAppendState
	cdc.InitializeAppend(&state)

	good := chunk.NewChunk(colTypes)
	fillChunk(good, 0, 5)
	require.NoError(t, cdc.Append(&state, good))
	require.Equal(t, 5, cdc.Count())

	util.Open(util.FAULTS_SCOPE_COLD_WRITE)
	defer util.Close(util.FAULTS_SCOPE_COLD_WRITE)
	injected := fmt.Errorf("injected write failure")
	util.Register(util.FAULTS_SCOPE_COLD_WRITE, "append", nil, func([]string) error {
		return injected
	})

	bad := chunk.NewChunk(colTypes)
	fillChunk(bad, 5, 3)
	err = cdc.Append(&state, bad)
	require.ErrorIs(t, err, injected)

	require.Equal(t, 5, cdc.Count())
	cdc.Verify()
}

func TestColumnDataCollectionRejectsTypeMismatch(t *testing.T) {
	blockMgr, bufferMgr := newTestManager(t)
	cdc, err := NewColumnDataCollection(bufferMgr, blockMgr, []types.LType{types.IntegerType()})
	require.NoError(t, err)

	var state ColumnDataAppendState
	cdc.InitializeAppend(&state)

	wrong := chunk.NewChunk([]types.LType{types.IntegerType(), types.VarcharType()})
	wrong.Count = 1
	err = cdc.Append(&state, wrong)
	require.Error(t, err)
}
