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
	"github.com/ravensworth/vectorengine/pkg/chunk"
	"github.com/ravensworth/vectorengine/pkg/types"
	"github.com/ravensworth/vectorengine/pkg/util"
)

// writeVectorData appends count rows of v, flattened, onto serial. The wire
// shape is: a validity byte per row, then the payload - a fixed-width
// element per row for scalar types, a length-prefixed string per row for
// VARCHAR, and a recursive nested encoding for LIST/STRUCT.
func writeVectorData(v *chunk.Vector, count int, serial util.Serialize) error {
	uni := v.ToUnifiedFormat(count)
	for i := 0; i < count; i++ {
		src := uni.Sel.GetIndex(i)
		valid := uni.Validity.RowIsValid(uint64(src))
		if err := util.Write(boolToByte(valid), serial); err != nil {
			return err
		}
		if !valid {
			continue
		}
		if err := writeElement(v.Typ, v, src, serial); err != nil {
			return err
		}
	}
	return nil
}

func writeElement(typ types.LType, v *chunk.Vector, idx int, serial util.Serialize) error {
	switch {
	case typ.PTyp.IsVarchar():
		return util.WriteString(v.Strs[idx], serial)
	case typ.PTyp == types.DECIMAL:
		return v.Decimals[idx].Serialize(serial)
	case typ.Id == types.LTID_LIST:
		entry := v.Lists[idx]
		if err := util.Write(uint32(entry.Length), serial); err != nil {
			return err
		}
		return writeVectorRange(v.Children[0], entry.Offset, entry.Length, serial)
	case typ.Id == types.LTID_STRUCT:
		for i, child := range v.Children {
			if err := writeElement(typ.Child[i], child, idx, serial); err != nil {
				return err
			}
		}
		return nil
	default:
		sz := typ.PTyp.FixedSize()
		return serial.WriteData(v.Data[idx*sz:(idx+1)*sz], sz)
	}
}

func writeVectorRange(v *chunk.Vector, offset, length int, serial util.Serialize) error {
	for i := offset; i < offset+length; i++ {
		valid := v.RowIsValid(i)
		if err := util.Write(boolToByte(valid), serial); err != nil {
			return err
		}
		if !valid {
			continue
		}
		if err := writeElement(v.Typ, v, i, serial); err != nil {
			return err
		}
	}
	return nil
}

// readVectorData is writeVectorData's inverse: it fills the first count
// rows of a freshly-initialized flat vector v.
func readVectorData(v *chunk.Vector, count int, deserial util.Deserialize) error {
	for i := 0; i < count; i++ {
		validByte, err := util.Read[byte](deserial)
		if err != nil {
			return err
		}
		if validByte == 0 {
			v.SetNull(i)
			continue
		}
		if err := readElement(v.Typ, v, i, deserial); err != nil {
			return err
		}
	}
	return nil
}

func readElement(typ types.LType, v *chunk.Vector, idx int, deserial util.Deserialize) error {
	switch {
	case typ.PTyp.IsVarchar():
		s, err := util.ReadString(deserial)
		if err != nil {
			return err
		}
		v.SetString(idx, s)
		return nil
	case typ.PTyp == types.DECIMAL:
		d, err := types.DeserializeDecimal(deserial)
		if err != nil {
			return err
		}
		v.SetDecimal(idx, d)
		return nil
	case typ.Id == types.LTID_LIST:
		length, err := util.Read[uint32](deserial)
		if err != nil {
			return err
		}
		child := v.Children[0]
		offset := v.ChildCursor
		child.EnsureCapacity(offset + int(length))
		for i := 0; i < int(length); i++ {
			validByte, err := util.Read[byte](deserial)
			if err != nil {
				return err
			}
			if validByte == 0 {
				child.SetNull(offset + i)
				continue
			}
			if err := readElement(typ.Child[0], child, offset+i, deserial); err != nil {
				return err
			}
		}
		v.Lists[idx] = chunk.ListEntry{Offset: offset, Length: int(length)}
		v.ChildCursor = offset + int(length)
		return nil
	case typ.Id == types.LTID_STRUCT:
		for i, child := range v.Children {
			if err := readElement(typ.Child[i], child, idx, deserial); err != nil {
				return err
			}
		}
		return nil
	default:
		sz := typ.PTyp.FixedSize()
		return deserial.ReadData(v.Data[idx*sz:(idx+1)*sz], sz)
	}
}

func boolToByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
