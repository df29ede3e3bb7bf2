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
	"encoding/binary"

	"github.com/ravensworth/vectorengine/pkg/types"
	"github.com/ravensworth/vectorengine/pkg/util"
)

// Vector is one column's worth of up to util.DefaultVectorSize values.
//
// Fixed-width scalar types (everything but VARCHAR, DECIMAL, LIST and
// STRUCT) are packed into Data as a dense little-endian byte array, one
// element per PTyp.FixedSize() slot - this is what ToUnifiedFormat exposes
// for hashing and comparisons. VARCHAR and DECIMAL instead live in the
// parallel Strs/Decimals slices, addressed by the same row index as Data
// would use; this trades the single contiguous string heap DuckDB keeps for
// a plain Go slice of strings, which is not compact on the wire but needs
// no unsafe pointer arithmetic to read back. LIST and STRUCT vectors keep
// no Data of their own and instead address one (LIST) or more (STRUCT)
// Children vectors; a LIST row's [offset,length) into its child lives in
// Lists, a STRUCT has no per-row payload beyond validity.
type Vector struct {
	Typ      types.LType
	Format   PhyFormat
	Data     []byte
	Strs     []string
	Decimals []types.Decimal
	Lists    []ListEntry
	Children []*Vector
	Validity util.Bitmap
	Sel      *SelectVector
	cap      int
	// ChildCursor is the next free row in Children[0] for a LIST vector,
	// advanced by every append of a new list element run. It has no
	// meaning outside LIST vectors.
	ChildCursor int
}

// ListEntry is the (offset,length) pair a LIST row stores, indexing into
// Children[0].
type ListEntry struct {
	Offset int
	Length int
}

func NewVector(typ types.LType, capacity int) *Vector {
	v := &Vector{Typ: typ, Format: PF_FLAT}
	v.Init(capacity)
	return v
}

func NewConstVector(typ types.LType) *Vector {
	v := NewVector(typ, 1)
	v.Format = PF_CONST
	return v
}

func (v *Vector) Init(capacity int) {
	v.cap = capacity
	switch {
	case v.Typ.PTyp.IsVarchar():
		v.Strs = make([]string, capacity)
	case v.Typ.PTyp == types.DECIMAL:
		v.Decimals = make([]types.Decimal, capacity)
	case v.Typ.Id == types.LTID_LIST:
		v.Lists = make([]ListEntry, capacity)
		v.Children = []*Vector{NewVector(v.Typ.Child[0], capacity)}
	case v.Typ.Id == types.LTID_STRUCT:
		v.Children = make([]*Vector, len(v.Typ.Child))
		for i, c := range v.Typ.Child {
			v.Children[i] = NewVector(c, capacity)
		}
	default:
		v.Data = make([]byte, capacity*v.Typ.PTyp.FixedSize())
	}
}

func (v *Vector) Capacity() int {
	return v.cap
}

// EnsureCapacity grows a vector's backing storage to hold at least n rows,
// used when a LIST child vector must accept an append run whose length was
// not known when the vector was first sized (checkpoint restore, or a
// scan that keeps flattening rows from disk into a growing child).
func (v *Vector) EnsureCapacity(n int) {
	if n <= v.cap {
		return
	}
	switch {
	case v.Typ.PTyp.IsVarchar():
		grown := make([]string, n)
		copy(grown, v.Strs)
		v.Strs = grown
	case v.Typ.PTyp == types.DECIMAL:
		grown := make([]types.Decimal, n)
		copy(grown, v.Decimals)
		v.Decimals = grown
	case v.Typ.Id == types.LTID_LIST:
		grown := make([]ListEntry, n)
		copy(grown, v.Lists)
		v.Lists = grown
		v.Children[0].EnsureCapacity(n)
	case v.Typ.Id == types.LTID_STRUCT:
		for _, c := range v.Children {
			c.EnsureCapacity(n)
		}
	default:
		sz := v.Typ.PTyp.FixedSize()
		grown := make([]byte, n*sz)
		copy(grown, v.Data)
		v.Data = grown
	}
	v.cap = n
}

// Reset restores a vector to a fresh flat, fully-valid state without
// reallocating its backing storage, so a chunk's vectors can be reused
// across pipeline iterations.
func (v *Vector) Reset() {
	v.Format = PF_FLAT
	v.Sel = nil
	v.Validity.Reset()
}

// Reference makes v an alias of other: same format, same backing storage.
// Mutating one's contents after this call is a bug; only Slice/Flatten may
// be used to derive an independent view.
func (v *Vector) Reference(other *Vector) {
	v.Typ = other.Typ
	v.Format = other.Format
	v.Data = other.Data
	v.Strs = other.Strs
	v.Decimals = other.Decimals
	v.Lists = other.Lists
	v.Children = other.Children
	v.Validity = other.Validity
	v.Sel = other.Sel
	v.cap = other.cap
}

// Slice turns v into a dictionary view of other addressed through sel,
// without copying element storage.
func (v *Vector) Slice(other *Vector, sel *SelectVector) {
	v.Reference(other)
	v.Format = PF_DICT
	v.Sel = sel
}

func elemSize(pt types.PhyType) int {
	return pt.FixedSize()
}

// GetValue reads element idx of a flat fixed-width vector.
func GetValue[T util.Fixed](v *Vector, idx int) T {
	sz := elemSize(v.Typ.PTyp)
	off := idx * sz
	var zero T
	buf := v.Data[off : off+binary.Size(zero)]
	var out T
	_ = binary.Read(sliceReader(buf), binary.LittleEndian, &out)
	return out
}

// SetValue writes element idx of a flat fixed-width vector.
func SetValue[T util.Fixed](v *Vector, idx int, val T) {
	sz := elemSize(v.Typ.PTyp)
	off := idx * sz
	buf := make([]byte, binary.Size(val))
	_ = binary.Write(sliceWriter{buf: buf}, binary.LittleEndian, val)
	copy(v.Data[off:off+len(buf)], buf)
}

type byteSliceReader struct {
	buf []byte
	pos int
}

func sliceReader(b []byte) *byteSliceReader {
	return &byteSliceReader{buf: b}
}

func (r *byteSliceReader) Read(p []byte) (int, error) {
	n := copy(p, r.buf[r.pos:])
	r.pos += n
	return n, nil
}

type sliceWriter struct {
	buf []byte
	pos int
}

func (w sliceWriter) Write(p []byte) (int, error) {
	n := copy(w.buf[w.pos:], p)
	return n, nil
}

func (v *Vector) GetString(idx int) string {
	if v.Format.IsDict() {
		idx = v.Sel.GetIndex(idx)
	}
	if v.Format.IsConst() {
		idx = 0
	}
	return v.Strs[idx]
}

func (v *Vector) SetString(idx int, s string) {
	v.Strs[idx] = s
}

func (v *Vector) GetDecimal(idx int) types.Decimal {
	if v.Format.IsDict() {
		idx = v.Sel.GetIndex(idx)
	}
	if v.Format.IsConst() {
		idx = 0
	}
	return v.Decimals[idx]
}

func (v *Vector) SetDecimal(idx int, d types.Decimal) {
	v.Decimals[idx] = d
}

func (v *Vector) RowIsValid(idx int) bool {
	if v.Format.IsDict() {
		idx = v.Sel.GetIndex(idx)
	}
	if v.Format.IsConst() {
		idx = 0
	}
	return v.Validity.RowIsValid(uint64(idx))
}

func (v *Vector) SetNull(idx int) {
	v.Validity.SetInvalid(uint64(idx))
}

// UnifiedFormat is the flattened, dictionary-resolved view of a vector that
// hashing and comparison operators consume so they never need to branch on
// PhyFormat themselves.
type UnifiedFormat struct {
	Sel      *SelectVector
	Data     []byte
	Strs     []string
	Decimals []types.Decimal
	Validity util.Bitmap
}

// ToUnifiedFormat resolves v's format into a plain flat view valid for the
// first count rows, mirroring the dictionary-flattening step every DuckDB
// vector operation performs before touching raw data.
func (v *Vector) ToUnifiedFormat(count int) *UnifiedFormat {
	uni := &UnifiedFormat{}
	switch v.Format {
	case PF_FLAT:
		uni.Sel = NewIdentitySelectVector(0, count)
		uni.Data = v.Data
		uni.Strs = v.Strs
		uni.Decimals = v.Decimals
		uni.Validity = v.Validity
	case PF_CONST:
		uni.Sel = NewSelectVector(count)
		uni.Data = v.Data
		uni.Strs = v.Strs
		uni.Decimals = v.Decimals
		uni.Validity = v.Validity
	case PF_DICT:
		uni.Sel = v.Sel
		uni.Data = v.Data
		uni.Strs = v.Strs
		uni.Decimals = v.Decimals
		uni.Validity = v.Validity
	}
	return uni
}

// Flatten materializes a dictionary or constant vector into a dense flat
// vector holding exactly count rows, used before a vector is appended into
// a ColumnDataCollection segment.
func (v *Vector) Flatten(count int) {
	if v.Format.IsFlat() {
		return
	}
	uni := v.ToUnifiedFormat(count)
	flatData := make([]byte, count*elemSize(v.Typ.PTyp))
	var flatStrs []string
	var flatDecimals []types.Decimal
	if v.Typ.PTyp.IsVarchar() {
		flatStrs = make([]string, count)
	}
	if v.Typ.PTyp == types.DECIMAL {
		flatDecimals = make([]types.Decimal, count)
	}
	var flatValidity util.Bitmap
	for i := 0; i < count; i++ {
		src := uni.Sel.GetIndex(i)
		valid := uni.Validity.RowIsValid(uint64(src))
		flatValidity.Set(uint64(i), valid)
		if v.Typ.PTyp.IsVarchar() {
			flatStrs[i] = uni.Strs[src]
			continue
		}
		if v.Typ.PTyp == types.DECIMAL {
			flatDecimals[i] = uni.Decimals[src]
			continue
		}
		sz := elemSize(v.Typ.PTyp)
		copy(flatData[i*sz:(i+1)*sz], uni.Data[src*sz:(src+1)*sz])
	}
	v.Data = flatData
	v.Strs = flatStrs
	v.Decimals = flatDecimals
	v.Validity = flatValidity
	v.Format = PF_FLAT
	v.Sel = nil
}

// Verify checks that a dictionary vector's selection stays within
// [0,cap) for the first count rows. The validity bitmap is not checked.
func (v *Vector) Verify(count int) {
	if v.Format.IsDict() {
		for i := 0; i < count; i++ {
			util.Assertf(v.Sel.GetIndex(i) < v.cap, "dictionary selection out of range")
		}
	}
}
