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

package chunk

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ravensworth/vectorengine/pkg/types"
)

func TestChunkReferenceAliasesVectors(t *testing.T) {
	src := NewChunk([]types.LType{types.IntegerType()})
	SetValue(src.Data[0], 0, int32(7))
	src.Count = 1

	dst := &Chunk{}
	dst.Reference(src)
	require.Equal(t, 1, dst.Count)
	require.Equal(t, int32(7), GetValue[int32](dst.Data[0], 0))

	SetValue(src.Data[0], 0, int32(9))
	require.Equal(t, int32(9), GetValue[int32](dst.Data[0], 0), "Reference must alias, not copy")
}

func TestChunkAppendGrowsCount(t *testing.T) {
	colTypes := []types.LType{types.IntegerType()}
	c := NewChunk(colTypes)
	other := NewChunk(colTypes)
	for i := 0; i < 3; i++ {
		SetValue(other.Data[0], i, int32(i))
	}
	other.Count = 3

	require.NoError(t, c.Append(other, true))
	require.NoError(t, c.Append(other, false))
	require.Equal(t, 6, c.Count)
	require.Equal(t, int32(0), GetValue[int32](c.Data[0], 0))
	require.Equal(t, int32(2), GetValue[int32](c.Data[0], 2))
	require.Equal(t, int32(0), GetValue[int32](c.Data[0], 3))
	require.Equal(t, int32(2), GetValue[int32](c.Data[0], 5))
}

func TestChunkAppendOverflowFails(t *testing.T) {
	colTypes := []types.LType{types.IntegerType()}
	c := NewChunk(colTypes)
	c.Capacity = 2
	other := NewChunk(colTypes)
	other.Count = 3
	require.Error(t, c.Append(other, true))
}

func TestChunkSliceProducesDictionaryView(t *testing.T) {
	colTypes := []types.LType{types.IntegerType()}
	src := NewChunk(colTypes)
	for i := 0; i < 5; i++ {
		SetValue(src.Data[0], i, int32(i*10))
	}
	src.Count = 5

	sel := NewSelectVector(3)
	sel.SetIndex(0, 4)
	sel.SetIndex(1, 2)
	sel.SetIndex(2, 0)

	dst := &Chunk{}
	dst.Slice(src, sel, 3)
	require.Equal(t, 3, dst.Count)
	require.Equal(t, PF_DICT, dst.Data[0].Format)

	// GetValue reads the vector's physical storage directly; resolving a
	// dictionary row to its logical position goes through Sel first, the
	// same indirection ToUnifiedFormat and the other Vector accessors
	// apply internally.
	physical := dst.Data[0].Sel.GetIndex(0)
	require.Equal(t, int32(40), GetValue[int32](dst.Data[0], physical))
	physical = dst.Data[0].Sel.GetIndex(1)
	require.Equal(t, int32(20), GetValue[int32](dst.Data[0], physical))
	physical = dst.Data[0].Sel.GetIndex(2)
	require.Equal(t, int32(0), GetValue[int32](dst.Data[0], physical))
}

func TestVectorNullRoundTrip(t *testing.T) {
	v := NewVector(types.IntegerType(), 4)
	SetValue(v, 0, int32(1))
	v.SetNull(1)
	SetValue(v, 2, int32(3))

	require.True(t, v.RowIsValid(0))
	require.False(t, v.RowIsValid(1))
	require.True(t, v.RowIsValid(2))
}

func TestVectorStringGetSet(t *testing.T) {
	v := NewVector(types.VarcharType(), 2)
	v.SetString(0, "hello")
	v.SetString(1, "world")
	require.Equal(t, "hello", v.GetString(0))
	require.Equal(t, "world", v.GetString(1))
}
