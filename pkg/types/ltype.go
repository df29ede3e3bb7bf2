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

import (
	"fmt"

	"github.com/ravensworth/vectorengine/pkg/util"
)

// LTypeId names a logical column type, independent of how it is physically
// stored.
type LTypeId int

const (
	LTID_INVALID  LTypeId = 0
	LTID_NULL     LTypeId = 1
	LTID_UNKNOWN  LTypeId = 2
	LTID_ANY      LTypeId = 3
	LTID_BOOLEAN  LTypeId = 10
	LTID_TINYINT  LTypeId = 11
	LTID_SMALLINT LTypeId = 12
	LTID_INTEGER  LTypeId = 13
	LTID_BIGINT   LTypeId = 14
	LTID_DATE     LTypeId = 15
	LTID_TIME     LTypeId = 16
	LTID_TIMESTAMP LTypeId = 19
	LTID_DECIMAL   LTypeId = 21
	LTID_FLOAT     LTypeId = 22
	LTID_DOUBLE    LTypeId = 23
	LTID_CHAR      LTypeId = 24
	LTID_VARCHAR   LTypeId = 25
	LTID_BLOB      LTypeId = 26
	LTID_INTERVAL  LTypeId = 27
	LTID_UTINYINT  LTypeId = 28
	LTID_USMALLINT LTypeId = 29
	LTID_UINTEGER  LTypeId = 30
	LTID_UBIGINT   LTypeId = 31
	LTID_HUGEINT   LTypeId = 50
	LTID_POINTER   LTypeId = 51
	LTID_STRUCT    LTypeId = 100
	LTID_LIST      LTypeId = 101
	LTID_MAP       LTypeId = 102
	LTID_ENUM      LTypeId = 104
)

var lTypeIdToStr = map[LTypeId]string{
	LTID_INVALID: "INVALID", LTID_NULL: "NULL", LTID_UNKNOWN: "UNKNOWN", LTID_ANY: "ANY",
	LTID_BOOLEAN: "BOOLEAN", LTID_TINYINT: "TINYINT", LTID_SMALLINT: "SMALLINT",
	LTID_INTEGER: "INTEGER", LTID_BIGINT: "BIGINT", LTID_DATE: "DATE", LTID_TIME: "TIME",
	LTID_TIMESTAMP: "TIMESTAMP", LTID_DECIMAL: "DECIMAL", LTID_FLOAT: "FLOAT",
	LTID_DOUBLE: "DOUBLE", LTID_CHAR: "CHAR", LTID_VARCHAR: "VARCHAR", LTID_BLOB: "BLOB",
	LTID_INTERVAL: "INTERVAL", LTID_UTINYINT: "UTINYINT", LTID_USMALLINT: "USMALLINT",
	LTID_UINTEGER: "UINTEGER", LTID_UBIGINT: "UBIGINT", LTID_HUGEINT: "HUGEINT",
	LTID_POINTER: "POINTER", LTID_STRUCT: "STRUCT", LTID_LIST: "LIST", LTID_MAP: "MAP",
	LTID_ENUM: "ENUM",
}

func (id LTypeId) String() string {
	if s, has := lTypeIdToStr[id]; has {
		return s
	}
	panic(fmt.Sprintf("unsupported LTypeId %d", id))
}

// LType is a fully resolved logical column type. Child carries the element
// type for LTID_LIST and the field types for LTID_STRUCT; it is nil for
// scalar types.
type LType struct {
	Id       LTypeId
	PTyp     PhyType
	Width    int
	Scale    int
	Child    []LType
	ChildName []string // parallel to Child, field names for LTID_STRUCT
}

func MakeLType(id LTypeId) LType {
	ret := LType{Id: id}
	ret.PTyp = ret.GetInternalType()
	return ret
}

func Null() LType          { return MakeLType(LTID_NULL) }
func BooleanType() LType   { return MakeLType(LTID_BOOLEAN) }
func TinyintType() LType   { return MakeLType(LTID_TINYINT) }
func SmallintType() LType  { return MakeLType(LTID_SMALLINT) }
func IntegerType() LType   { return MakeLType(LTID_INTEGER) }
func BigintType() LType    { return MakeLType(LTID_BIGINT) }
func HugeintType() LType   { return MakeLType(LTID_HUGEINT) }
func FloatType() LType     { return MakeLType(LTID_FLOAT) }
func DoubleType() LType    { return MakeLType(LTID_DOUBLE) }
func VarcharType() LType   { return MakeLType(LTID_VARCHAR) }
func DateType() LType      { return MakeLType(LTID_DATE) }
func TimeType() LType      { return MakeLType(LTID_TIME) }
func TimestampType() LType { return MakeLType(LTID_TIMESTAMP) }
func IntervalType() LType  { return MakeLType(LTID_INTERVAL) }
func PointerType() LType   { return MakeLType(LTID_POINTER) }
func UbigintType() LType   { return MakeLType(LTID_UBIGINT) }

func DecimalType(width, scale int) LType {
	ret := MakeLType(LTID_DECIMAL)
	ret.Width, ret.Scale = width, scale
	return ret
}

func VarcharTypeWithWidth(width int) LType {
	ret := MakeLType(LTID_VARCHAR)
	ret.Width = width
	return ret
}

func ListTypeOf(child LType) LType {
	ret := MakeLType(LTID_LIST)
	ret.Child = []LType{child}
	return ret
}

func StructTypeOf(names []string, children []LType) LType {
	ret := MakeLType(LTID_STRUCT)
	ret.Child = children
	ret.ChildName = names
	return ret
}

var numerics = map[LTypeId]struct{}{
	LTID_TINYINT: {}, LTID_SMALLINT: {}, LTID_INTEGER: {}, LTID_BIGINT: {}, LTID_HUGEINT: {},
	LTID_FLOAT: {}, LTID_DOUBLE: {}, LTID_DECIMAL: {}, LTID_UTINYINT: {}, LTID_USMALLINT: {},
	LTID_UINTEGER: {}, LTID_UBIGINT: {},
}

func (lt LType) IsNumeric() bool {
	_, has := numerics[lt.Id]
	return has
}

func (lt LType) IsNested() bool {
	return lt.Id == LTID_LIST || lt.Id == LTID_STRUCT || lt.Id == LTID_MAP
}

func (lt LType) Equal(o LType) bool {
	if lt.Id != o.Id {
		return false
	}
	switch lt.Id {
	case LTID_DECIMAL:
		return lt.Width == o.Width && lt.Scale == o.Scale
	case LTID_LIST:
		return lt.Child[0].Equal(o.Child[0])
	case LTID_STRUCT:
		if len(lt.Child) != len(o.Child) {
			return false
		}
		for i := range lt.Child {
			if !lt.Child[i].Equal(o.Child[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// GetInternalType maps a logical type onto its physical storage
// representation, mirroring the teacher's switch nearly one-for-one; MAP is
// additionally routed to LIST since a map is stored as a list of key/value
// structs.
func (lt LType) GetInternalType() PhyType {
	switch lt.Id {
	case LTID_BOOLEAN:
		return BOOL
	case LTID_TINYINT:
		return INT8
	case LTID_UTINYINT:
		return UINT8
	case LTID_SMALLINT:
		return INT16
	case LTID_USMALLINT:
		return UINT16
	case LTID_NULL, LTID_INTEGER:
		return INT32
	case LTID_DATE:
		return DATE
	case LTID_UINTEGER:
		return UINT32
	case LTID_BIGINT, LTID_TIME, LTID_TIMESTAMP:
		return INT64
	case LTID_UBIGINT:
		return UINT64
	case LTID_HUGEINT:
		return INT128
	case LTID_FLOAT:
		return FLOAT
	case LTID_DOUBLE:
		return DOUBLE
	case LTID_DECIMAL:
		return DECIMAL
	case LTID_VARCHAR, LTID_CHAR, LTID_BLOB:
		return VARCHAR
	case LTID_INTERVAL:
		return INTERVAL
	case LTID_STRUCT:
		return STRUCT
	case LTID_LIST, LTID_MAP:
		return LIST
	case LTID_POINTER:
		return UINT64
	case LTID_ANY, LTID_INVALID, LTID_UNKNOWN:
		return INVALID
	case LTID_ENUM:
		return VARCHAR
	default:
		panic(fmt.Sprintf("unsupported logical type %v", lt.Id))
	}
}

// Serialize writes the type's wire form: id, width, scale, then a recursive
// child count and children for LIST/STRUCT.
func (lt LType) Serialize(serial util.Serialize) error {
	if err := util.Write(int32(lt.Id), serial); err != nil {
		return err
	}
	if err := util.Write(int32(lt.Width), serial); err != nil {
		return err
	}
	if err := util.Write(int32(lt.Scale), serial); err != nil {
		return err
	}
	if err := util.Write(uint32(len(lt.Child)), serial); err != nil {
		return err
	}
	for i, c := range lt.Child {
		name := ""
		if i < len(lt.ChildName) {
			name = lt.ChildName[i]
		}
		if err := util.WriteString(name, serial); err != nil {
			return err
		}
		if err := c.Serialize(serial); err != nil {
			return err
		}
	}
	return nil
}

func DeserializeLType(deserial util.Deserialize) (LType, error) {
	id, err := util.Read[int32](deserial)
	if err != nil {
		return LType{}, err
	}
	width, err := util.Read[int32](deserial)
	if err != nil {
		return LType{}, err
	}
	scale, err := util.Read[int32](deserial)
	if err != nil {
		return LType{}, err
	}
	childCount, err := util.Read[uint32](deserial)
	if err != nil {
		return LType{}, err
	}
	ret := LType{Id: LTypeId(id), Width: int(width), Scale: int(scale)}
	for i := uint32(0); i < childCount; i++ {
		name, err := util.ReadString(deserial)
		if err != nil {
			return LType{}, err
		}
		child, err := DeserializeLType(deserial)
		if err != nil {
			return LType{}, err
		}
		ret.ChildName = append(ret.ChildName, name)
		ret.Child = append(ret.Child, child)
	}
	ret.PTyp = ret.GetInternalType()
	return ret, nil
}
