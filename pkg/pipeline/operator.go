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

// Package pipeline implements the vectorized push/pull execution model: a
// Source feeding a chain of Operators into an optional Sink, driven one
// chunk at a time by a PipelineExecutor.
package pipeline

import (
	"github.com/ravensworth/vectorengine/pkg/chunk"
	"github.com/ravensworth/vectorengine/pkg/types"
)

// OperatorResultType is what an Operator or a full Execute chain reports
// after processing one input chunk.
type OperatorResultType int

const (
	// NeedMoreInput means the operator produced everything it can from the
	// input it was given and needs another chunk before it can continue.
	NeedMoreInput OperatorResultType = iota
	// HaveMoreOutput means input still has unconsumed state inside this
	// operator (a join's build side is still emitting matches, say) and
	// Execute should be called again with the same input before advancing
	// to a new source chunk.
	HaveMoreOutput
	// Finished means the pipeline has produced all the output it ever
	// will, independent of whether more input exists.
	Finished
)

func (t OperatorResultType) String() string {
	switch t {
	case NeedMoreInput:
		return "need_more_input"
	case HaveMoreOutput:
		return "have_more_output"
	case Finished:
		return "finished"
	default:
		return "unknown"
	}
}

// SinkResultType is what a Sink reports after consuming one chunk.
type SinkResultType int

const (
	SinkNeedMoreInput SinkResultType = iota
	SinkFinished
)

// Source produces chunks for a pipeline to consume. GetData must leave
// result at zero rows exactly once, on the call after the last real chunk,
// to signal exhaustion - mirroring how DuckDB's operators use chunk size
// zero as the only end-of-stream marker.
type Source interface {
	GetData(result *chunk.Chunk) error
	SourceTypes() []types.LType
}

// Operator transforms one chunk of input into zero or more chunks of
// output. A filter or a hash-join probe returning HaveMoreOutput will be
// re-invoked with the same input and an empty output chunk until it
// reports NeedMoreInput or Finished.
type Operator interface {
	Execute(input, output *chunk.Chunk) (OperatorResultType, error)
	OperatorTypes() []types.LType
	// RequiresCache reports whether this operator's output is worth
	// batching up to a full vector before handing it to the sink - true
	// for a highly selective filter, false for anything that already
	// tends to emit full chunks.
	RequiresCache() bool
}

// Sink is the terminal consumer of a pipeline: a table insert, a hash
// join's build side, an aggregate's grouping state.
type Sink interface {
	Sink(input *chunk.Chunk) (SinkResultType, error)
	// Combine is called once, after the last Sink call, to let a sink
	// merge any per-thread local state into its shared state. A
	// single-threaded sink can make this a no-op.
	Combine() error
	// SinkOrderMatters disables operator output caching: an order-sensitive
	// sink (an insert that must preserve source row order) cannot receive
	// its rows out of the order Execute produced them in.
	SinkOrderMatters() bool
}

// Pipeline is the static wiring: one source, a chain of operators, and an
// optional sink. A nil Sink makes the pipeline pull-only, driven by
// ExecutePull instead of Execute/ExecutePush.
type Pipeline struct {
	Source    Source
	Operators []Operator
	Sink      Sink
}
