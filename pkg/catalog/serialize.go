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
	"github.com/ravensworth/vectorengine/pkg/storage"
	"github.com/ravensworth/vectorengine/pkg/util"
)

// Serialize writes a table's name, its column list and its row count, then
// its per-column chain starts when ColumnStarts is set (by PersistTable).
// checkpoint_manager.cpp writes a table's DataTableInfo before its data
// section pointer; this mirrors that ordering with one section instead of
// two, since our column chains are already durable by the time a
// checkpoint runs and only need their starting pointers recorded.
func (t *TableEntry) Serialize(serial util.Serialize) error {
	if err := util.WriteString(t.Name, serial); err != nil {
		return err
	}
	if err := util.Write(uint32(len(t.Columns)), serial); err != nil {
		return err
	}
	for i := range t.Columns {
		if err := t.Columns[i].Serialize(serial); err != nil {
			return err
		}
	}
	if err := util.Write(uint64(t.RowCount), serial); err != nil {
		return err
	}
	hasData := t.ColumnStarts != nil
	if err := util.Write(boolToByte(hasData), serial); err != nil {
		return err
	}
	if !hasData {
		return nil
	}
	for _, ptr := range t.ColumnStarts {
		if err := util.Write(int64(ptr.BlockID), serial); err != nil {
			return err
		}
		if err := util.Write(ptr.Offset, serial); err != nil {
			return err
		}
	}
	return nil
}

func DeserializeTable(deserial util.Deserialize) (*TableEntry, error) {
	name, err := util.ReadString(deserial)
	if err != nil {
		return nil, err
	}
	colCount, err := util.Read[uint32](deserial)
	if err != nil {
		return nil, err
	}
	cols := make([]ColumnDefinition, colCount)
	for i := range cols {
		cols[i], err = DeserializeColumnDefinition(deserial)
		if err != nil {
			return nil, err
		}
	}
	rowCount, err := util.Read[uint64](deserial)
	if err != nil {
		return nil, err
	}
	hasDataByte, err := util.Read[byte](deserial)
	if err != nil {
		return nil, err
	}
	t := &TableEntry{Name: name, Columns: cols, RowCount: int(rowCount)}
	if hasDataByte == 0 {
		return t, nil
	}
	t.ColumnStarts = make([]storage.BlockPointer, colCount)
	for i := range t.ColumnStarts {
		blockID, err := util.Read[int64](deserial)
		if err != nil {
			return nil, err
		}
		offset, err := util.Read[uint64](deserial)
		if err != nil {
			return nil, err
		}
		t.ColumnStarts[i] = storage.BlockPointer{BlockID: storage.BlockID(blockID), Offset: offset}
	}
	return t, nil
}

// Serialize writes a view's name, query text and column aliases.
func (v *ViewEntry) Serialize(serial util.Serialize) error {
	if err := util.WriteString(v.Name, serial); err != nil {
		return err
	}
	if err := util.WriteString(v.Query, serial); err != nil {
		return err
	}
	if err := util.Write(uint32(len(v.Columns)), serial); err != nil {
		return err
	}
	for _, col := range v.Columns {
		if err := util.WriteString(col, serial); err != nil {
			return err
		}
	}
	return nil
}

func DeserializeView(deserial util.Deserialize) (*ViewEntry, error) {
	name, err := util.ReadString(deserial)
	if err != nil {
		return nil, err
	}
	query, err := util.ReadString(deserial)
	if err != nil {
		return nil, err
	}
	colCount, err := util.Read[uint32](deserial)
	if err != nil {
		return nil, err
	}
	cols := make([]string, colCount)
	for i := range cols {
		cols[i], err = util.ReadString(deserial)
		if err != nil {
			return nil, err
		}
	}
	return &ViewEntry{Name: name, Query: query, Columns: cols}, nil
}

// Serialize writes a sequence's name and its counter parameters, in the
// field order SequenceEntry declares them.
func (s *SequenceEntry) Serialize(serial util.Serialize) error {
	if err := util.WriteString(s.Name, serial); err != nil {
		return err
	}
	if err := util.Write(s.StartValue, serial); err != nil {
		return err
	}
	if err := util.Write(s.IncrementBy, serial); err != nil {
		return err
	}
	if err := util.Write(s.MinValue, serial); err != nil {
		return err
	}
	if err := util.Write(s.MaxValue, serial); err != nil {
		return err
	}
	if err := util.Write(boolToByte(s.Cycle), serial); err != nil {
		return err
	}
	return util.Write(s.CurrentValue, serial)
}

func DeserializeSequence(deserial util.Deserialize) (*SequenceEntry, error) {
	name, err := util.ReadString(deserial)
	if err != nil {
		return nil, err
	}
	start, err := util.Read[int64](deserial)
	if err != nil {
		return nil, err
	}
	increment, err := util.Read[int64](deserial)
	if err != nil {
		return nil, err
	}
	min, err := util.Read[int64](deserial)
	if err != nil {
		return nil, err
	}
	max, err := util.Read[int64](deserial)
	if err != nil {
		return nil, err
	}
	cycleByte, err := util.Read[byte](deserial)
	if err != nil {
		return nil, err
	}
	current, err := util.Read[int64](deserial)
	if err != nil {
		return nil, err
	}
	return &SequenceEntry{
		Name:         name,
		StartValue:   start,
		IncrementBy:  increment,
		MinValue:     min,
		MaxValue:     max,
		Cycle:        cycleByte != 0,
		CurrentValue: current,
	}, nil
}

// Serialize writes a macro's name, parameter list and body expression.
func (f *FunctionEntry) Serialize(serial util.Serialize) error {
	if err := util.WriteString(f.Name, serial); err != nil {
		return err
	}
	if err := util.Write(uint32(len(f.Parameters)), serial); err != nil {
		return err
	}
	for _, p := range f.Parameters {
		if err := util.WriteString(p, serial); err != nil {
			return err
		}
	}
	return util.WriteString(f.Expression, serial)
}

func DeserializeFunction(deserial util.Deserialize) (*FunctionEntry, error) {
	name, err := util.ReadString(deserial)
	if err != nil {
		return nil, err
	}
	paramCount, err := util.Read[uint32](deserial)
	if err != nil {
		return nil, err
	}
	params := make([]string, paramCount)
	for i := range params {
		params[i], err = util.ReadString(deserial)
		if err != nil {
			return nil, err
		}
	}
	expr, err := util.ReadString(deserial)
	if err != nil {
		return nil, err
	}
	return &FunctionEntry{Name: name, Parameters: params, Expression: expr}, nil
}

// Serialize writes a schema's name followed by its four catalog
// sets, in the order checkpoint_manager.cpp's WriteSchema writes them:
// sequences, tables, views, then macros - each as a count followed by
// that many entries.
func (s *SchemaEntry) Serialize(serial util.Serialize) error {
	if err := util.WriteString(s.Name, serial); err != nil {
		return err
	}
	if err := util.Write(uint32(len(s.Sequences)), serial); err != nil {
		return err
	}
	for _, seq := range s.Sequences {
		if err := seq.Serialize(serial); err != nil {
			return err
		}
	}
	if err := util.Write(uint32(len(s.Tables)), serial); err != nil {
		return err
	}
	for _, t := range s.Tables {
		if err := t.Serialize(serial); err != nil {
			return err
		}
	}
	if err := util.Write(uint32(len(s.Views)), serial); err != nil {
		return err
	}
	for _, v := range s.Views {
		if err := v.Serialize(serial); err != nil {
			return err
		}
	}
	if err := util.Write(uint32(len(s.Macros)), serial); err != nil {
		return err
	}
	for _, m := range s.Macros {
		if err := m.Serialize(serial); err != nil {
			return err
		}
	}
	return nil
}

func DeserializeSchema(deserial util.Deserialize) (*SchemaEntry, error) {
	name, err := util.ReadString(deserial)
	if err != nil {
		return nil, err
	}
	s := newSchemaEntry(name)

	seqCount, err := util.Read[uint32](deserial)
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < seqCount; i++ {
		seq, err := DeserializeSequence(deserial)
		if err != nil {
			return nil, err
		}
		s.Sequences[seq.Name] = seq
	}

	tableCount, err := util.Read[uint32](deserial)
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < tableCount; i++ {
		t, err := DeserializeTable(deserial)
		if err != nil {
			return nil, err
		}
		s.Tables[t.Name] = t
	}

	viewCount, err := util.Read[uint32](deserial)
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < viewCount; i++ {
		v, err := DeserializeView(deserial)
		if err != nil {
			return nil, err
		}
		s.Views[v.Name] = v
	}

	macroCount, err := util.Read[uint32](deserial)
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < macroCount; i++ {
		m, err := DeserializeFunction(deserial)
		if err != nil {
			return nil, err
		}
		s.Macros[m.Name] = m
	}

	return s, nil
}

func boolToByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
