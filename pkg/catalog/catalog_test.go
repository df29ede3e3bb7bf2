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

package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ravensworth/vectorengine/pkg/types"
)

func TestNewCatalogHasDefaultSchema(t *testing.T) {
	cat := NewCatalog()
	require.NotNil(t, cat.GetSchema(DefaultSchema))
}

func TestCreateTableRoundTrip(t *testing.T) {
	cat := NewCatalog()
	cols := []ColumnDefinition{
		{Name: "a", Type: types.IntegerType()},
		{Name: "b", Type: types.VarcharType()},
	}
	tbl, err := cat.CreateTable(DefaultSchema, "t1", cols)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, tbl.ColumnNames())
	require.Len(t, tbl.Types(), 2)

	got := cat.GetTable(DefaultSchema, "t1")
	require.Same(t, tbl, got)
}

func TestCreateTableDuplicateFails(t *testing.T) {
	cat := NewCatalog()
	cols := []ColumnDefinition{{Name: "a", Type: types.IntegerType()}}
	_, err := cat.CreateTable(DefaultSchema, "t1", cols)
	require.NoError(t, err)
	_, err = cat.CreateTable(DefaultSchema, "t1", cols)
	require.Error(t, err)
}

func TestCreateTableUnknownSchemaFails(t *testing.T) {
	cat := NewCatalog()
	_, err := cat.CreateTable("nope", "t1", nil)
	require.Error(t, err)
}

func TestCreateViewSequenceFunctionRoundTrip(t *testing.T) {
	cat := NewCatalog()

	view, err := cat.CreateView(DefaultSchema, "v1", "SELECT 1", []string{"one"})
	require.NoError(t, err)
	require.Same(t, view, cat.GetView(DefaultSchema, "v1"))

	seq, err := cat.CreateSequence(DefaultSchema, "seq1", 1, 1, 1, 1000, false)
	require.NoError(t, err)
	require.Equal(t, int64(1), seq.CurrentValue)
	require.Same(t, seq, cat.GetSequence(DefaultSchema, "seq1"))

	fn, err := cat.CreateFunction(DefaultSchema, "double", []string{"x"}, "x * 2")
	require.NoError(t, err)
	require.Same(t, fn, cat.GetFunction(DefaultSchema, "double"))
}

func TestCreateViewDuplicateFails(t *testing.T) {
	cat := NewCatalog()
	_, err := cat.CreateView(DefaultSchema, "v1", "SELECT 1", nil)
	require.NoError(t, err)
	_, err = cat.CreateView(DefaultSchema, "v1", "SELECT 2", nil)
	require.Error(t, err)
}

func TestScanSchemasVisitsEveryCreatedSchema(t *testing.T) {
	cat := NewCatalog()
	cat.CreateSchema("s1")
	cat.CreateSchema("s2")

	seen := map[string]bool{}
	cat.ScanSchemas(func(s *SchemaEntry) { seen[s.Name] = true })
	require.True(t, seen[DefaultSchema])
	require.True(t, seen["s1"])
	require.True(t, seen["s2"])
}
