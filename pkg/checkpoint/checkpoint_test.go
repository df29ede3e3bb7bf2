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

package checkpoint

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ravensworth/vectorengine/pkg/catalog"
	"github.com/ravensworth/vectorengine/pkg/chunk"
	"github.com/ravensworth/vectorengine/pkg/coldata"
	"github.com/ravensworth/vectorengine/pkg/storage"
	"github.com/ravensworth/vectorengine/pkg/types"
	"github.com/ravensworth/vectorengine/pkg/util"
)

func TestCreateCheckpointEmptyCatalogRoundTrips(t *testing.T) {
	blockMgr := storage.NewInMemoryBlockManager(util.DefaultBlockSize)
	cat := catalog.NewCatalog()

	require.NoError(t, CreateCheckpoint(cat, blockMgr, blockMgr.Buffers()))

	loaded, err := LoadFromStorage(blockMgr, blockMgr.Buffers())
	require.NoError(t, err)
	require.NotNil(t, loaded.GetSchema(catalog.DefaultSchema))
}

func TestLoadFromStorageFreshDatabaseIsEmpty(t *testing.T) {
	blockMgr := storage.NewInMemoryBlockManager(util.DefaultBlockSize)
	cat, err := LoadFromStorage(blockMgr, blockMgr.Buffers())
	require.NoError(t, err)
	require.NotNil(t, cat.GetSchema(catalog.DefaultSchema))
}

func TestCheckpointPersistsTableData(t *testing.T) {
	blockMgr := storage.NewInMemoryBlockManager(util.DefaultBlockSize)
	bufferMgr := blockMgr.Buffers()
	cat := catalog.NewCatalog()

	colTypes := []types.LType{types.IntegerType()}
	entry, err := cat.CreateTable(catalog.DefaultSchema, "t1", []catalog.ColumnDefinition{
		{Name: "a", Type: colTypes[0]},
	})
	require.NoError(t, err)

	cdc, err := coldata.NewColumnDataCollection(bufferMgr, blockMgr, colTypes)
	require.NoError(t, err)
	var state coldata.ColumnDataAppendState
	cdc.InitializeAppend(&state)
	in := chunk.NewChunk(colTypes)
	for i := 0; i < 3; i++ {
		chunk.SetValue(in.Data[0], i, int32(i+1))
	}
	in.Count = 3
	require.NoError(t, cdc.Append(&state, in))

	require.NoError(t, PersistTable(entry, cdc))
	require.NoError(t, CreateCheckpoint(cat, blockMgr, bufferMgr))

	loaded, err := LoadFromStorage(blockMgr, bufferMgr)
	require.NoError(t, err)
	loadedEntry := loaded.GetTable(catalog.DefaultSchema, "t1")
	require.NotNil(t, loadedEntry)
	require.Equal(t, 3, loadedEntry.RowCount)

	restored, err := OpenTableData(loadedEntry, blockMgr, bufferMgr)
	require.NoError(t, err)
	out := chunk.NewChunk(colTypes)
	require.NoError(t, restored.Scan(out))
	require.Equal(t, 3, out.Count)
	require.Equal(t, int32(1), chunk.GetValue[int32](out.Data[0], 0))
	require.Equal(t, int32(3), chunk.GetValue[int32](out.Data[0], 2))
}

func TestCheckpointPersistsViewsAndSequences(t *testing.T) {
	blockMgr := storage.NewInMemoryBlockManager(util.DefaultBlockSize)
	bufferMgr := blockMgr.Buffers()
	cat := catalog.NewCatalog()
	cat.CreateSchema("s1")

	colTypes := []types.LType{types.IntegerType()}
	entry, err := cat.CreateTable("s1", "t", []catalog.ColumnDefinition{
		{Name: "a", Type: colTypes[0]},
	})
	require.NoError(t, err)

	cdc, err := coldata.NewColumnDataCollection(bufferMgr, blockMgr, colTypes)
	require.NoError(t, err)
	var state coldata.ColumnDataAppendState
	cdc.InitializeAppend(&state)
	in := chunk.NewChunk(colTypes)
	for i := 0; i < 3; i++ {
		chunk.SetValue(in.Data[0], i, int32(i+1))
	}
	in.Count = 3
	require.NoError(t, cdc.Append(&state, in))
	require.NoError(t, PersistTable(entry, cdc))

	_, err = cat.CreateView("s1", "v", "SELECT a FROM s1.t", []string{"a"})
	require.NoError(t, err)
	_, err = cat.CreateSequence("s1", "seq", 1, 1, 1, 1<<62, false)
	require.NoError(t, err)

	require.NoError(t, CreateCheckpoint(cat, blockMgr, bufferMgr))

	loaded, err := LoadFromStorage(blockMgr, bufferMgr)
	require.NoError(t, err)

	loadedTable := loaded.GetTable("s1", "t")
	require.NotNil(t, loadedTable)
	require.Equal(t, 3, loadedTable.RowCount)

	loadedView := loaded.GetView("s1", "v")
	require.NotNil(t, loadedView)
	require.Equal(t, "SELECT a FROM s1.t", loadedView.Query)
	require.Equal(t, []string{"a"}, loadedView.Columns)

	loadedSeq := loaded.GetSequence("s1", "seq")
	require.NotNil(t, loadedSeq)
	require.Equal(t, int64(1), loadedSeq.StartValue)
	require.Equal(t, int64(1), loadedSeq.CurrentValue)

	restored, err := OpenTableData(loadedTable, blockMgr, bufferMgr)
	require.NoError(t, err)
	out := chunk.NewChunk(colTypes)
	require.NoError(t, restored.Scan(out))
	require.Equal(t, 3, out.Count)
	require.Equal(t, int32(1), chunk.GetValue[int32](out.Data[0], 0))
	require.Equal(t, int32(3), chunk.GetValue[int32](out.Data[0], 2))
}

func TestOpenTableDataNeverPersistedIsEmpty(t *testing.T) {
	blockMgr := storage.NewInMemoryBlockManager(util.DefaultBlockSize)
	bufferMgr := blockMgr.Buffers()
	cat := catalog.NewCatalog()
	colTypes := []types.LType{types.IntegerType()}
	entry, err := cat.CreateTable(catalog.DefaultSchema, "empty", []catalog.ColumnDefinition{
		{Name: "a", Type: colTypes[0]},
	})
	require.NoError(t, err)

	restored, err := OpenTableData(entry, blockMgr, bufferMgr)
	require.NoError(t, err)
	out := chunk.NewChunk(colTypes)
	require.NoError(t, restored.Scan(out))
	require.Equal(t, 0, out.Count)
}
