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

package tableexport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ravensworth/vectorengine/pkg/catalog"
	"github.com/ravensworth/vectorengine/pkg/checkpoint"
	"github.com/ravensworth/vectorengine/pkg/chunk"
	"github.com/ravensworth/vectorengine/pkg/coldata"
	"github.com/ravensworth/vectorengine/pkg/storage"
	"github.com/ravensworth/vectorengine/pkg/types"
	"github.com/ravensworth/vectorengine/pkg/util"
)

func TestExportTableWritesEveryRow(t *testing.T) {
	blockMgr := storage.NewInMemoryBlockManager(util.DefaultBlockSize)
	bufferMgr := blockMgr.Buffers()
	cat := catalog.NewCatalog()

	colTypes := []types.LType{types.IntegerType(), types.VarcharType()}
	entry, err := cat.CreateTable(catalog.DefaultSchema, "widgets", []catalog.ColumnDefinition{
		{Name: "id", Type: colTypes[0]},
		{Name: "name", Type: colTypes[1]},
	})
	require.NoError(t, err)

	cdc, err := coldata.NewColumnDataCollection(bufferMgr, blockMgr, colTypes)
	require.NoError(t, err)
	var state coldata.ColumnDataAppendState
	cdc.InitializeAppend(&state)
	in := chunk.NewChunk(colTypes)
	names := []string{"bolt", "nut", "washer"}
	for i, name := range names {
		chunk.SetValue(in.Data[0], i, int32(i+1))
		in.Data[1].SetString(i, name)
	}
	in.Count = len(names)
	require.NoError(t, cdc.Append(&state, in))
	require.NoError(t, checkpoint.PersistTable(entry, cdc))

	path := filepath.Join(t.TempDir(), "widgets.parquet")
	written, err := ExportTable(entry, blockMgr, bufferMgr, path, 1024)
	require.NoError(t, err)
	require.Equal(t, len(names), written)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}

func TestExportTableRejectsUnmappableType(t *testing.T) {
	blockMgr := storage.NewInMemoryBlockManager(util.DefaultBlockSize)
	bufferMgr := blockMgr.Buffers()
	cat := catalog.NewCatalog()

	listType := types.ListTypeOf(types.IntegerType())
	entry, err := cat.CreateTable(catalog.DefaultSchema, "nested", []catalog.ColumnDefinition{
		{Name: "items", Type: listType},
	})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "nested.parquet")
	_, err = ExportTable(entry, blockMgr, bufferMgr, path, 1024)
	require.Error(t, err)
}
