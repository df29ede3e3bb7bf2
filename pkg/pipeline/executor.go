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

package pipeline

import (
	"github.com/petermattis/goid"

	"github.com/ravensworth/vectorengine/pkg/chunk"
	"github.com/ravensworth/vectorengine/pkg/types"
	"github.com/ravensworth/vectorengine/pkg/util"
)

// canCacheTypes matches CanCacheType from pipeline_executor.cpp: a LIST
// value is never worth batching into a cache chunk, since its child vector
// would need independent growth bookkeeping across cache-append calls; a
// STRUCT is cacheable only if every field is.
func canCacheTypes(ts []types.LType) bool {
	for _, t := range ts {
		switch {
		case t.Id == types.LTID_LIST:
			return false
		case t.Id == types.LTID_STRUCT:
			if !canCacheTypes(t.Child) {
				return false
			}
		}
	}
	return true
}

// cacheThreshold is DuckDB's CACHE_THRESHOLD: below this many rows, an
// operator's output is considered worth accumulating into a fuller chunk
// before handing it downstream.
const cacheThreshold = 64

// scopedOperatorProfiler brackets one operator invocation, verifying the
// chunk it produced (when one was produced) on the way out. This engine
// core has no query profiler to feed timings into, so the only surviving
// behavior from the teacher's ScopedOperatorProfiler is that verification.
type scopedOperatorProfiler struct {
	chunk *chunk.Chunk
}

func startOperator() *scopedOperatorProfiler {
	return &scopedOperatorProfiler{}
}

func (p *scopedOperatorProfiler) end(c *chunk.Chunk) {
	if c != nil {
		c.Verify()
	}
}

// PipelineExecutor drives one Pipeline's source, operator chain and sink
// one chunk at a time. It is not safe for concurrent use: a pipeline
// belongs to exactly one goroutine for its whole lifetime, checked on
// every entry point via its creating goroutine's id.
type PipelineExecutor struct {
	pipeline *Pipeline
	owner    int64

	intermediateChunks []*chunk.Chunk
	cachedChunks       []*chunk.Chunk
	finalChunk         *chunk.Chunk

	inProcessOperators []int
	finishedProcessing bool
	finalized          bool
}

func NewPipelineExecutor(p *Pipeline) *PipelineExecutor {
	e := &PipelineExecutor{pipeline: p, owner: goid.Get()}

	prevTypes := p.Source.SourceTypes()
	e.intermediateChunks = make([]*chunk.Chunk, len(p.Operators))
	e.cachedChunks = make([]*chunk.Chunk, len(p.Operators))
	for i, op := range p.Operators {
		e.intermediateChunks[i] = chunk.NewChunk(prevTypes)
		if p.Sink != nil && !p.Sink.SinkOrderMatters() && op.RequiresCache() && canCacheTypes(op.OperatorTypes()) {
			e.cachedChunks[i] = chunk.NewChunk(op.OperatorTypes())
		}
		prevTypes = op.OperatorTypes()
	}
	e.finalChunk = chunk.NewChunk(prevTypes)
	return e
}

func (e *PipelineExecutor) checkOwner() {
	util.Assertf(goid.Get() == e.owner, "PipelineExecutor used from a goroutine other than the one that created it")
}

// Execute drives the pipeline to completion against its sink: fetch from
// source, push through operators and sink, repeat until source is
// exhausted or the sink reports it is done early.
func (e *PipelineExecutor) Execute() error {
	e.checkOwner()
	util.Assertf(e.pipeline.Sink != nil, "Execute requires a pipeline with a sink; use ExecutePull for a pull-only pipeline")

	sourceChunk := e.finalChunk
	if len(e.pipeline.Operators) > 0 {
		sourceChunk = e.intermediateChunks[0]
	}
	for {
		sourceChunk.Reset()
		if err := e.fetchFromSource(sourceChunk); err != nil {
			return err
		}
		if sourceChunk.Count == 0 {
			break
		}
		result, err := e.executePushInternal(sourceChunk, 0)
		if err != nil {
			return err
		}
		if result == Finished {
			e.finishedProcessing = true
			break
		}
	}
	return e.PushFinalize()
}

// ExecutePush pushes one externally-produced chunk through the operator
// chain and sink, for callers driving the pipeline chunk by chunk
// themselves rather than pulling from pipeline.Source.
func (e *PipelineExecutor) ExecutePush(input *chunk.Chunk) (OperatorResultType, error) {
	e.checkOwner()
	return e.executePushInternal(input, 0)
}

func (e *PipelineExecutor) executePushInternal(input *chunk.Chunk, initialIdx int) (OperatorResultType, error) {
	util.Assertf(e.pipeline.Sink != nil, "executePushInternal requires a sink")
	if input.Count == 0 {
		return NeedMoreInput, nil
	}
	for {
		var result OperatorResultType
		var err error
		if len(e.pipeline.Operators) > 0 {
			e.finalChunk.Reset()
			result, err = e.execute(input, e.finalChunk, initialIdx)
			if err != nil {
				return 0, err
			}
			if result == Finished {
				return Finished, nil
			}
		} else {
			result = NeedMoreInput
		}

		sinkChunk := input
		if len(e.pipeline.Operators) > 0 {
			sinkChunk = e.finalChunk
		}
		if sinkChunk.Count > 0 {
			prof := startOperator()
			sinkResult, err := e.pipeline.Sink.Sink(sinkChunk)
			prof.end(nil)
			if err != nil {
				return 0, err
			}
			if sinkChunk == e.finalChunk {
				// The sink may keep references to what it received, and after
				// a CacheChunk flush finalChunk aliases the forwarded cache
				// storage; give it fresh storage so the next operator output
				// does not overwrite rows the sink already holds.
				e.finalChunk.Init(e.finalChunk.Types(), e.finalChunk.Capacity)
			}
			if sinkResult == SinkFinished {
				return Finished, nil
			}
		}
		if result == NeedMoreInput {
			return NeedMoreInput, nil
		}
	}
}

// PushFinalize flushes every cached chunk still holding rows through the
// operator chain and sink, then lets the sink combine its per-thread
// state. It runs exactly once per executor: Execute calls it itself before
// returning, and callers driving the pipeline through ExecutePush call it
// once after their last push. A second call panics.
func (e *PipelineExecutor) PushFinalize() error {
	e.checkOwner()
	util.Assertf(!e.finalized, "PushFinalize called on an already-finalized PipelineExecutor")
	e.finalized = true

	if !e.finishedProcessing {
		util.Assertf(util.Empty(e.inProcessOperators), "cached chunks may not be flushed while an operator still has pending output")
		for i, cached := range e.cachedChunks {
			if cached != nil && cached.Count > 0 {
				if _, err := e.executePushInternal(cached, i+1); err != nil {
					return err
				}
				e.cachedChunks[i] = nil
			}
		}
	}
	return e.pipeline.Sink.Combine()
}

// CacheChunk implements the CACHE_THRESHOLD heuristic: once an operator has
// filtered a nearly-full chunk down to a sparse one, accumulate its rows
// into a cache instead of pushing a thinly-populated chunk further down
// the pipeline, and only release the cache once it is full enough to be
// worth an extra chunk of downstream work.
func (e *PipelineExecutor) CacheChunk(prev, current *chunk.Chunk, operatorIdx int) error {
	cache := e.cachedChunks[operatorIdx]
	if cache == nil {
		return nil
	}
	if prev.Count >= cacheThreshold && current.Count < cacheThreshold {
		if err := cache.Append(current, false); err != nil {
			return err
		}
		if cache.Count >= util.DefaultVectorSize-cacheThreshold {
			current.Reference(cache)
			// cache's backing storage is now forwarded to current; give cache
			// fresh vectors instead of Reset, which would leave it aliasing
			// the same backing arrays current just took ownership of - the
			// next CacheChunk call would then overwrite rows already handed
			// downstream. Mirrors pipeline_executor.cpp's
			// chunk.Move(cache_chunk); cache_chunk.Initialize(...).
			cache.Init(cache.Types(), cache.Capacity)
		} else {
			current.Reset()
		}
	}
	return nil
}

// ExecutePull drives a pull-only pipeline (Sink == nil): repeatedly fetch
// from source and run the operator chain until result holds at least one
// row, or the source is exhausted.
func (e *PipelineExecutor) ExecutePull(result *chunk.Chunk) error {
	e.checkOwner()
	util.Assertf(e.pipeline.Sink == nil, "ExecutePull requires a pull-only pipeline; use Execute/ExecutePush when a sink is set")

	sourceChunk := result
	if len(e.pipeline.Operators) > 0 {
		sourceChunk = e.intermediateChunks[0]
	}
	for result.Count == 0 {
		if util.Empty(e.inProcessOperators) {
			sourceChunk.Reset()
			if err := e.fetchFromSource(sourceChunk); err != nil {
				return err
			}
			if sourceChunk.Count == 0 {
				break
			}
		}
		if len(e.pipeline.Operators) > 0 {
			if _, err := e.execute(sourceChunk, result, 0); err != nil {
				return err
			}
		}
	}
	return nil
}

// PullFinalize marks a pull-only pipeline done. There is no sink to
// combine, so unlike PushFinalize this only guards against double-calling.
func (e *PipelineExecutor) PullFinalize() error {
	e.checkOwner()
	util.Assertf(!e.finalized, "PullFinalize called on an already-finalized PipelineExecutor")
	e.finalized = true
	return nil
}

// goToSource resets current_idx to initialIdx, unless an operator further
// down the chain still has buffered output to emit, in which case
// execution resumes there instead of re-fetching from the source.
func (e *PipelineExecutor) goToSource(initialIdx int) int {
	if util.Empty(e.inProcessOperators) {
		return initialIdx
	}
	idx := util.Back(e.inProcessOperators)
	e.inProcessOperators = util.Pop(e.inProcessOperators)
	util.Assertf(idx >= initialIdx, "in-process operator index must not precede the pipeline's initial index")
	return idx
}

// execute runs input through the operator chain starting just after
// initialIdx, writing to result once the last operator has produced
// output. It mirrors PipelineExecutor::Execute in pipeline_executor.cpp:
// current_idx walks the chain, an operator reporting HAVE_MORE_OUTPUT
// pushes itself onto in_process_operators so the next call resumes there,
// and an empty intermediate chunk sends execution back to goToSource.
func (e *PipelineExecutor) execute(input, result *chunk.Chunk, initialIdx int) (OperatorResultType, error) {
	if input.Count == 0 {
		return NeedMoreInput, nil
	}
	util.Assertf(len(e.pipeline.Operators) > 0, "execute requires at least one operator")

	currentIdx := e.goToSource(initialIdx)
	if currentIdx == initialIdx {
		currentIdx++
	}
	if currentIdx > len(e.pipeline.Operators) {
		result.Reference(input)
		return NeedMoreInput, nil
	}

	for {
		currentChunk := result
		if currentIdx < len(e.intermediateChunks) {
			currentChunk = e.intermediateChunks[currentIdx]
		}
		currentChunk.Reset()

		if currentIdx == initialIdx {
			return NeedMoreInput, nil
		}

		prevChunk := input
		if currentIdx != initialIdx+1 {
			prevChunk = e.intermediateChunks[currentIdx-1]
		}
		operatorIdx := currentIdx - 1
		op := e.pipeline.Operators[operatorIdx]

		prof := startOperator()
		opResult, err := op.Execute(prevChunk, currentChunk)
		prof.end(currentChunk)
		if err != nil {
			return 0, err
		}
		if opResult == HaveMoreOutput {
			e.inProcessOperators = append(e.inProcessOperators, currentIdx)
		} else if opResult == Finished {
			util.Assertf(currentChunk.Count == 0, "an operator reporting Finished must not also produce output")
			return Finished, nil
		}
		if err := e.CacheChunk(prevChunk, currentChunk, operatorIdx); err != nil {
			return 0, err
		}
		currentChunk.Verify()

		if currentChunk.Count == 0 {
			if currentIdx == initialIdx {
				break
			}
			currentIdx = e.goToSource(initialIdx)
			continue
		}
		currentIdx++
		if currentIdx > len(e.pipeline.Operators) {
			break
		}
	}
	if util.Empty(e.inProcessOperators) {
		return NeedMoreInput, nil
	}
	return HaveMoreOutput, nil
}

func (e *PipelineExecutor) fetchFromSource(result *chunk.Chunk) error {
	prof := startOperator()
	err := e.pipeline.Source.GetData(result)
	prof.end(result)
	return err
}
