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

	"github.com/ravensworth/vectorengine/pkg/storage"
	"github.com/ravensworth/vectorengine/pkg/types"
	"github.com/ravensworth/vectorengine/pkg/util"
)

func TestTableEntrySerializeRoundTripWithoutData(t *testing.T) {
	tbl := &TableEntry{
		Name: "t1",
		Columns: []ColumnDefinition{
			{Name: "a", Type: types.IntegerType()},
			{Name: "b", Type: types.DecimalType(18, 3)},
		},
	}
	buf := util.NewBufferedSerialize()
	require.NoError(t, tbl.Serialize(buf))

	got, err := DeserializeTable(util.NewBufferedDeserialize(buf.Bytes()))
	require.NoError(t, err)
	require.Equal(t, tbl.Name, got.Name)
	require.Equal(t, tbl.ColumnNames(), got.ColumnNames())
	require.Nil(t, got.ColumnStarts)
}

func TestTableEntrySerializeRoundTripWithData(t *testing.T) {
	tbl := &TableEntry{
		Name:     "t1",
		Columns:  []ColumnDefinition{{Name: "a", Type: types.IntegerType()}},
		RowCount: 42,
		ColumnStarts: []storage.BlockPointer{
			{BlockID: 7, Offset: 128},
		},
	}
	buf := util.NewBufferedSerialize()
	require.NoError(t, tbl.Serialize(buf))

	got, err := DeserializeTable(util.NewBufferedDeserialize(buf.Bytes()))
	require.NoError(t, err)
	require.Equal(t, 42, got.RowCount)
	require.Equal(t, tbl.ColumnStarts, got.ColumnStarts)
}

func TestSchemaEntrySerializeRoundTrip(t *testing.T) {
	s := newSchemaEntry("s1")
	s.Tables["t1"] = &TableEntry{Name: "t1", Columns: []ColumnDefinition{{Name: "x", Type: types.BigintType()}}}
	s.Tables["t2"] = &TableEntry{Name: "t2", Columns: []ColumnDefinition{{Name: "y", Type: types.VarcharType()}}}
	s.Views["v1"] = &ViewEntry{Name: "v1", Query: "SELECT x FROM s1.t1", Columns: []string{"x"}}
	s.Sequences["seq1"] = &SequenceEntry{Name: "seq1", StartValue: 1, IncrementBy: 1, MinValue: 1, MaxValue: 100, CurrentValue: 1}
	s.Macros["m1"] = &FunctionEntry{Name: "m1", Parameters: []string{"a"}, Expression: "a + 1"}

	buf := util.NewBufferedSerialize()
	require.NoError(t, s.Serialize(buf))

	got, err := DeserializeSchema(util.NewBufferedDeserialize(buf.Bytes()))
	require.NoError(t, err)
	require.Equal(t, "s1", got.Name)
	require.Len(t, got.Tables, 2)
	require.Contains(t, got.Tables, "t1")
	require.Contains(t, got.Tables, "t2")
	require.Len(t, got.Views, 1)
	require.Equal(t, "SELECT x FROM s1.t1", got.Views["v1"].Query)
	require.Len(t, got.Sequences, 1)
	require.Equal(t, int64(1), got.Sequences["seq1"].CurrentValue)
	require.Len(t, got.Macros, 1)
	require.Equal(t, "a + 1", got.Macros["m1"].Expression)
}

func TestViewEntrySerializeRoundTrip(t *testing.T) {
	v := &ViewEntry{Name: "v1", Query: "SELECT * FROM t", Columns: []string{"a", "b"}}
	buf := util.NewBufferedSerialize()
	require.NoError(t, v.Serialize(buf))

	got, err := DeserializeView(util.NewBufferedDeserialize(buf.Bytes()))
	require.NoError(t, err)
	require.Equal(t, v.Name, got.Name)
	require.Equal(t, v.Query, got.Query)
	require.Equal(t, v.Columns, got.Columns)
}

func TestSequenceEntrySerializeRoundTrip(t *testing.T) {
	s := &SequenceEntry{Name: "seq1", StartValue: 5, IncrementBy: 2, MinValue: 1, MaxValue: 1000, Cycle: true, CurrentValue: 7}
	buf := util.NewBufferedSerialize()
	require.NoError(t, s.Serialize(buf))

	got, err := DeserializeSequence(util.NewBufferedDeserialize(buf.Bytes()))
	require.NoError(t, err)
	require.Equal(t, *s, *got)
}

func TestFunctionEntrySerializeRoundTrip(t *testing.T) {
	f := &FunctionEntry{Name: "double", Parameters: []string{"x"}, Expression: "x * 2"}
	buf := util.NewBufferedSerialize()
	require.NoError(t, f.Serialize(buf))

	got, err := DeserializeFunction(util.NewBufferedDeserialize(buf.Bytes()))
	require.NoError(t, err)
	require.Equal(t, *f, *got)
}
