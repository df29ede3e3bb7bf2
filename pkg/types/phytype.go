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

package types

import "fmt"

// PhyType is the physical storage representation a LType maps onto. Vectors
// and column data segments are laid out by PhyType, never by LTypeId
// directly.
type PhyType int

const (
	NA       PhyType = 0
	BOOL     PhyType = 1
	UINT8    PhyType = 2
	INT8     PhyType = 3
	UINT16   PhyType = 4
	INT16    PhyType = 5
	UINT32   PhyType = 6
	INT32    PhyType = 7
	UINT64   PhyType = 8
	INT64    PhyType = 9
	FLOAT    PhyType = 11
	DOUBLE   PhyType = 12
	INTERVAL PhyType = 21
	LIST     PhyType = 23
	STRUCT   PhyType = 24
	VARCHAR  PhyType = 200
	INT128   PhyType = 204
	UNKNOWN  PhyType = 205
	BIT      PhyType = 206
	DATE     PhyType = 207
	POINTER  PhyType = 208
	DECIMAL  PhyType = 209
	INVALID  PhyType = 255
)

var pTypeToStr = map[PhyType]string{
	NA: "NA", BOOL: "BOOL", UINT8: "UINT8", INT8: "INT8", UINT16: "UINT16",
	INT16: "INT16", UINT32: "UINT32", INT32: "INT32", UINT64: "UINT64", INT64: "INT64",
	FLOAT: "FLOAT", DOUBLE: "DOUBLE", INTERVAL: "INTERVAL", LIST: "LIST", STRUCT: "STRUCT",
	VARCHAR: "VARCHAR", INT128: "INT128", UNKNOWN: "UNKNOWN", BIT: "BIT", DATE: "DATE",
	POINTER: "POINTER", DECIMAL: "DECIMAL", INVALID: "INVALID",
}

func (pt PhyType) String() string {
	if s, has := pTypeToStr[pt]; has {
		return s
	}
	panic(fmt.Sprintf("unsupported phytype %d", pt))
}

// FixedSize returns the width in bytes of one element's fixed-size storage
// slot. LIST and STRUCT have no single element width - a LIST slot holds a
// (offset,length) pair addressing the child vector, and a STRUCT has no data
// of its own beyond its children's validity, so both panic here; callers
// must special-case them before calling FixedSize.
func (pt PhyType) FixedSize() int {
	switch pt {
	case BIT, BOOL:
		return 1
	case INT8, UINT8:
		return 1
	case INT16, UINT16:
		return 2
	case INT32, UINT32:
		return 4
	case INT64, UINT64:
		return 8
	case INT128:
		return 16
	case FLOAT:
		return 4
	case DOUBLE:
		return 8
	case VARCHAR:
		// Unused: a VARCHAR vector keeps its values in a parallel Strs
		// slice rather than a fixed-width Data slot, so nothing calls
		// FixedSize for it. Kept at DuckDB's string_t width for parity.
		return 16
	case INTERVAL:
		return 16
	case DATE:
		return 4
	case POINTER:
		return 8
	case DECIMAL:
		return 16
	case UNKNOWN:
		return 0
	default:
		panic(fmt.Sprintf("phytype %s has no fixed element size", pt))
	}
}

func (pt PhyType) IsConstant() bool {
	return pt >= BOOL && pt <= DOUBLE || pt == INTERVAL || pt == INT128 || pt == DATE || pt == POINTER || pt == DECIMAL
}

func (pt PhyType) IsVarchar() bool {
	return pt == VARCHAR
}

func (pt PhyType) IsNested() bool {
	return pt == LIST || pt == STRUCT
}
