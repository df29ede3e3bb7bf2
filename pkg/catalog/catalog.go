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

// Package catalog holds the schema/table directory a checkpoint persists
// and restores. Unlike the teacher's transactional, MVCC-versioned catalog,
// this one has a single writer lock and no snapshot isolation: a checkpoint
// runs quiescently, so there is nothing concurrent for a transaction to
// isolate against.
package catalog

import (
	"sync"

	"github.com/ravensworth/vectorengine/pkg/storage"
	"github.com/ravensworth/vectorengine/pkg/types"
	"github.com/ravensworth/vectorengine/pkg/util"
)

// ColumnDefinition names one column of a table.
type ColumnDefinition struct {
	Name string
	Type types.LType
}

func (c *ColumnDefinition) Serialize(serial util.Serialize) error {
	if err := util.WriteString(c.Name, serial); err != nil {
		return err
	}
	return c.Type.Serialize(serial)
}

func DeserializeColumnDefinition(deserial util.Deserialize) (ColumnDefinition, error) {
	name, err := util.ReadString(deserial)
	if err != nil {
		return ColumnDefinition{}, err
	}
	typ, err := types.DeserializeLType(deserial)
	if err != nil {
		return ColumnDefinition{}, err
	}
	return ColumnDefinition{Name: name, Type: typ}, nil
}

// TableEntry is a table's catalog record: its columns, plus, once
// checkpoint.PersistTable has recorded its data, the row count and the
// per-column starting block pointer into that column's own meta-block
// chain (one chain per column, per pkg/coldata's ColumnDataCollection
// layout). ColumnStarts is nil for a table whose data was never recorded
// by PersistTable, even if the catalog itself has been checkpointed.
type TableEntry struct {
	Name         string
	Columns      []ColumnDefinition
	RowCount     int
	ColumnStarts []storage.BlockPointer
}

func (t *TableEntry) Types() []types.LType {
	out := make([]types.LType, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Type
	}
	return out
}

func (t *TableEntry) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// ViewEntry is a named, stored SELECT: the query text plus the column
// aliases it exposes. This module does not parse or plan SQL (see
// pkg/pipeline's scope), so Query is carried as opaque text, durable
// through a checkpoint the same way DuckDB's ViewCatalogEntry carries its
// bound query tree.
type ViewEntry struct {
	Name    string
	Query   string
	Columns []string
}

// SequenceEntry is a catalog-resident counter: CurrentValue is the last
// value handed out, and a future Nextval-style operation would advance it
// by IncrementBy, wrapping at MaxValue/MinValue only if Cycle is set.
type SequenceEntry struct {
	Name         string
	StartValue   int64
	IncrementBy  int64
	MinValue     int64
	MaxValue     int64
	Cycle        bool
	CurrentValue int64
}

// FunctionEntry is a scalar macro: a named, parameterized expression
// substituted at the call site, mirroring the teacher's MacroCatalogEntry
// without carrying a bound Expr tree (scope note on ViewEntry applies here
// too) - Expression is the macro body as written.
type FunctionEntry struct {
	Name       string
	Parameters []string
	Expression string
}

// SchemaEntry groups tables under a namespace, mirroring the teacher's
// SchemaEntry/CatalogSet split but with a plain map instead of a
// transaction-versioned CatalogSet.
type SchemaEntry struct {
	Name      string
	Tables    map[string]*TableEntry
	Views     map[string]*ViewEntry
	Sequences map[string]*SequenceEntry
	Macros    map[string]*FunctionEntry
}

func newSchemaEntry(name string) *SchemaEntry {
	return &SchemaEntry{
		Name:      name,
		Tables:    make(map[string]*TableEntry),
		Views:     make(map[string]*ViewEntry),
		Sequences: make(map[string]*SequenceEntry),
		Macros:    make(map[string]*FunctionEntry),
	}
}

// Catalog is the top-level schema/table directory. The default schema is
// created by NewCatalog the same way the teacher's Catalog.Init creates the
// "public" schema during database bring-up.
type Catalog struct {
	mu      sync.Mutex
	Schemas map[string]*SchemaEntry
}

const DefaultSchema = "public"

func NewCatalog() *Catalog {
	c := &Catalog{Schemas: make(map[string]*SchemaEntry)}
	c.Schemas[DefaultSchema] = newSchemaEntry(DefaultSchema)
	return c
}

func (c *Catalog) CreateSchema(name string) *SchemaEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.Schemas[name]; ok {
		return s
	}
	s := newSchemaEntry(name)
	c.Schemas[name] = s
	return s
}

func (c *Catalog) GetSchema(name string) *SchemaEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Schemas[name]
}

// CreateTable registers a table under schema, failing if one by that name
// already exists there.
func (c *Catalog) CreateTable(schema, name string, columns []ColumnDefinition) (*TableEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sch, ok := c.Schemas[schema]
	if !ok {
		return nil, util.NewInternalError("no such schema %q", schema)
	}
	if _, exists := sch.Tables[name]; exists {
		return nil, util.NewInternalError("table %q already exists in schema %q", name, schema)
	}
	t := &TableEntry{Name: name, Columns: util.CopyTo(columns)}
	sch.Tables[name] = t
	return t, nil
}

func (c *Catalog) GetTable(schema, name string) *TableEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	sch, ok := c.Schemas[schema]
	if !ok {
		return nil
	}
	return sch.Tables[name]
}

// CreateView registers a stored query under schema, failing if one by that
// name already exists there.
func (c *Catalog) CreateView(schema, name, query string, columns []string) (*ViewEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sch, ok := c.Schemas[schema]
	if !ok {
		return nil, util.NewInternalError("no such schema %q", schema)
	}
	if _, exists := sch.Views[name]; exists {
		return nil, util.NewInternalError("view %q already exists in schema %q", name, schema)
	}
	v := &ViewEntry{Name: name, Query: query, Columns: util.CopyTo(columns)}
	sch.Views[name] = v
	return v, nil
}

func (c *Catalog) GetView(schema, name string) *ViewEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	sch, ok := c.Schemas[schema]
	if !ok {
		return nil
	}
	return sch.Views[name]
}

// CreateSequence registers a counter under schema, failing if one by that
// name already exists there. CurrentValue starts at start so the first
// Nextval call (not modeled here; out of this module's scope) would hand
// out start + increment.
func (c *Catalog) CreateSequence(schema, name string, start, increment, min, max int64, cycle bool) (*SequenceEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sch, ok := c.Schemas[schema]
	if !ok {
		return nil, util.NewInternalError("no such schema %q", schema)
	}
	if _, exists := sch.Sequences[name]; exists {
		return nil, util.NewInternalError("sequence %q already exists in schema %q", name, schema)
	}
	s := &SequenceEntry{
		Name:         name,
		StartValue:   start,
		IncrementBy:  increment,
		MinValue:     min,
		MaxValue:     max,
		Cycle:        cycle,
		CurrentValue: start,
	}
	sch.Sequences[name] = s
	return s, nil
}

func (c *Catalog) GetSequence(schema, name string) *SequenceEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	sch, ok := c.Schemas[schema]
	if !ok {
		return nil
	}
	return sch.Sequences[name]
}

// CreateFunction registers a scalar macro under schema, failing if one by
// that name already exists there.
func (c *Catalog) CreateFunction(schema, name string, params []string, expression string) (*FunctionEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sch, ok := c.Schemas[schema]
	if !ok {
		return nil, util.NewInternalError("no such schema %q", schema)
	}
	if _, exists := sch.Macros[name]; exists {
		return nil, util.NewInternalError("macro %q already exists in schema %q", name, schema)
	}
	f := &FunctionEntry{Name: name, Parameters: util.CopyTo(params), Expression: expression}
	sch.Macros[name] = f
	return f, nil
}

func (c *Catalog) GetFunction(schema, name string) *FunctionEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	sch, ok := c.Schemas[schema]
	if !ok {
		return nil
	}
	return sch.Macros[name]
}

// ScanSchemas calls fn once per schema in an unspecified order, mirroring
// the teacher's Catalog.ScanSchemas used by the checkpoint writer to visit
// every schema deterministically-enough for a single-threaded checkpoint.
func (c *Catalog) ScanSchemas(fn func(*SchemaEntry)) {
	c.mu.Lock()
	schemas := make([]*SchemaEntry, 0, len(c.Schemas))
	for _, s := range c.Schemas {
		schemas = append(schemas, s)
	}
	c.mu.Unlock()
	for _, s := range schemas {
		fn(s)
	}
}
