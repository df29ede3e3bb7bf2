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

// Package tableexport writes a checkpointed table's restored column data
// out to a Parquet file, the one external serialization format this engine
// core produces. Every column comes back from coldata.RestoredColumnDataCollection
// already typed and already in column order, so the only work here is
// building a JSON schema xitongsys/parquet-go's writer understands and
// walking each scanned chunk row by row into it.
package tableexport

import (
	"encoding/json"
	"fmt"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/ravensworth/vectorengine/pkg/catalog"
	"github.com/ravensworth/vectorengine/pkg/checkpoint"
	"github.com/ravensworth/vectorengine/pkg/chunk"
	"github.com/ravensworth/vectorengine/pkg/storage"
	"github.com/ravensworth/vectorengine/pkg/types"
	"github.com/ravensworth/vectorengine/pkg/util"
)

// schemaField is one entry of the JSON schema document NewJSONWriter
// expects; Tag is parquet-go's own mini struct-tag grammar rendered as a
// plain string instead of a Go struct field tag, since the column set is
// only known at runtime.
type schemaField struct {
	Tag string `json:"Tag"`
}

type jsonSchema struct {
	Tag    string        `json:"Tag"`
	Fields []schemaField `json:"Fields"`
}

// parquetTag maps one catalog column onto a parquet-go field tag. Every
// field is OPTIONAL so a null row value can be written as Go's nil without
// the writer rejecting it.
func parquetTag(name string, lt types.LType) (string, error) {
	base := fmt.Sprintf("name=%s, repetitiontype=OPTIONAL", name)
	switch lt.Id {
	case types.LTID_BOOLEAN:
		return base + ", type=BOOLEAN", nil
	case types.LTID_TINYINT, types.LTID_SMALLINT, types.LTID_INTEGER:
		return base + ", type=INT32", nil
	case types.LTID_UTINYINT, types.LTID_USMALLINT, types.LTID_UINTEGER:
		return base + ", type=INT32, convertedtype=UINT_32", nil
	case types.LTID_BIGINT, types.LTID_TIME, types.LTID_TIMESTAMP:
		return base + ", type=INT64", nil
	case types.LTID_UBIGINT:
		return base + ", type=INT64, convertedtype=UINT_64", nil
	case types.LTID_DATE:
		return base + ", type=INT32, convertedtype=DATE", nil
	case types.LTID_FLOAT:
		return base + ", type=FLOAT", nil
	case types.LTID_DOUBLE:
		return base + ", type=DOUBLE", nil
	case types.LTID_VARCHAR, types.LTID_CHAR, types.LTID_DECIMAL:
		return base + ", type=BYTE_ARRAY, convertedtype=UTF8", nil
	default:
		return "", util.NewInternalError("column %q has no parquet export mapping for type %s", name, lt.Id)
	}
}

func buildSchema(entry *catalog.TableEntry) (string, error) {
	schema := jsonSchema{Tag: "name=root, repetitiontype=REQUIRED"}
	for _, col := range entry.Columns {
		tag, err := parquetTag(col.Name, col.Type)
		if err != nil {
			return "", err
		}
		schema.Fields = append(schema.Fields, schemaField{Tag: tag})
	}
	return marshalSchema(schema)
}

func marshalSchema(schema jsonSchema) (string, error) {
	b, err := json.Marshal(schema)
	if err != nil {
		return "", util.NewInternalError("marshal parquet schema: %v", err)
	}
	return string(b), nil
}

// rowValue reads column col's value at row idx out of vec, boxed the way
// parquet-go's JSON writer expects: a pointer for a present value, nil for
// a null one, so the field round-trips as OPTIONAL.
func rowValue(vec *chunk.Vector, lt types.LType, idx int) (interface{}, error) {
	if !vec.RowIsValid(idx) {
		return nil, nil
	}
	switch lt.Id {
	case types.LTID_BOOLEAN:
		v := chunk.GetValue[uint8](vec, idx) != 0
		return &v, nil
	case types.LTID_TINYINT:
		v := int32(chunk.GetValue[int8](vec, idx))
		return &v, nil
	case types.LTID_SMALLINT:
		v := int32(chunk.GetValue[int16](vec, idx))
		return &v, nil
	case types.LTID_INTEGER, types.LTID_DATE:
		v := chunk.GetValue[int32](vec, idx)
		return &v, nil
	case types.LTID_UTINYINT:
		v := int32(chunk.GetValue[uint8](vec, idx))
		return &v, nil
	case types.LTID_USMALLINT:
		v := int32(chunk.GetValue[uint16](vec, idx))
		return &v, nil
	case types.LTID_UINTEGER:
		v := int32(chunk.GetValue[uint32](vec, idx))
		return &v, nil
	case types.LTID_BIGINT, types.LTID_TIME, types.LTID_TIMESTAMP:
		v := chunk.GetValue[int64](vec, idx)
		return &v, nil
	case types.LTID_UBIGINT:
		v := int64(chunk.GetValue[uint64](vec, idx))
		return &v, nil
	case types.LTID_FLOAT:
		v := chunk.GetValue[float32](vec, idx)
		return &v, nil
	case types.LTID_DOUBLE:
		v := chunk.GetValue[float64](vec, idx)
		return &v, nil
	case types.LTID_VARCHAR, types.LTID_CHAR:
		v := vec.GetString(idx)
		return &v, nil
	case types.LTID_DECIMAL:
		v := vec.GetDecimal(idx).String()
		return &v, nil
	default:
		return nil, util.NewInternalError("unsupported column type %s in parquet export", lt.Id)
	}
}

// ExportTable scans entry's restored row data and writes it to path as a
// single-file Parquet dataset with rowGroupSize rows buffered per row
// group flush.
func ExportTable(entry *catalog.TableEntry, blockMgr storage.BlockManager, bufferMgr *storage.BufferManager, path string, rowGroupSize int) (int, error) {
	schema, err := buildSchema(entry)
	if err != nil {
		return 0, err
	}

	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return 0, util.NewIOError("open parquet output file "+path, err)
	}
	defer fw.Close()

	pw, err := writer.NewJSONWriter(schema, fw, 4)
	if err != nil {
		return 0, util.NewInternalError("build parquet writer: %v", err)
	}

	cdc, err := checkpoint.OpenTableData(entry, blockMgr, bufferMgr)
	if err != nil {
		return 0, err
	}

	colTypes := entry.Types()
	result := chunk.NewChunk(colTypes)
	written := 0
	sinceFlush := 0
	for {
		if err := cdc.Scan(result); err != nil {
			return written, err
		}
		if result.Count == 0 {
			break
		}
		for row := 0; row < result.Count; row++ {
			fields := make(map[string]interface{}, len(colTypes))
			for col, t := range colTypes {
				v, err := rowValue(result.Data[col], t, row)
				if err != nil {
					return written, err
				}
				fields[entry.Columns[col].Name] = v
			}
			obj, err := json.Marshal(fields)
			if err != nil {
				return written, util.NewInternalError("marshal export row: %v", err)
			}
			if err := pw.Write(string(obj)); err != nil {
				return written, util.NewInternalError("write parquet row: %v", err)
			}
			written++
			sinceFlush++
		}
		if sinceFlush >= rowGroupSize {
			if err := pw.Flush(true); err != nil {
				return written, util.NewInternalError("flush parquet row group: %v", err)
			}
			sinceFlush = 0
		}
	}

	if err := pw.WriteStop(); err != nil {
		return written, util.NewInternalError("finalize parquet file: %v", err)
	}
	return written, nil
}
