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

package storage

import (
	"sync"

	"github.com/ravensworth/vectorengine/pkg/util"
)

// BufferManager owns every block currently resident in memory, whether it
// backs a persistent on-disk block or a purely transient managed buffer
// (used for the intermediate append/scan state of a ColumnDataCollection
// segment that will never be checkpointed). It does not evict: unlike the
// teacher's original, this engine core never runs under enough memory
// pressure during a single quiescent checkpoint or scan to need spilling,
// so Pin/Unpin only track reader counts for correctness assertions, not to
// drive an eviction policy.
type BufferManager struct {
	mu        sync.Mutex
	blockSize int
	blocks    map[BlockID]*BlockHandle
	nextTemp  BlockID
}

func NewBufferManager(blockSize int) *BufferManager {
	return &BufferManager{
		blockSize: blockSize,
		blocks:    make(map[BlockID]*BlockHandle),
		nextTemp:  -2,
	}
}

func (bm *BufferManager) BlockSize() int {
	return bm.blockSize
}

// RegisterBlock creates a handle for a persistent block id whose contents
// are not yet loaded; the block manager fills the buffer in on first Pin.
func (bm *BufferManager) RegisterBlock(id BlockID) *BlockHandle {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	if h, ok := bm.blocks[id]; ok {
		return h
	}
	h := newBlockHandle(bm, id, nil)
	bm.blocks[id] = h
	return h
}

// Allocate creates a new in-memory managed buffer with its own negative,
// non-persistent block id, used for scratch chunk-management state.
func (bm *BufferManager) Allocate() *BlockHandle {
	bm.mu.Lock()
	id := bm.nextTemp
	bm.nextTemp--
	bm.mu.Unlock()

	h := newBlockHandle(bm, id, util.GAlloc.Alloc(bm.blockSize))
	bm.mu.Lock()
	bm.blocks[id] = h
	bm.mu.Unlock()
	return h
}

// Pin loads the block's contents (delegating to mgr for persistent blocks)
// and increments its reader count. Every successful Pin must be matched by
// an Unpin.
func (bm *BufferManager) Pin(mgr BlockManager, h *BlockHandle) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.IsLoaded() {
		buf, err := mgr.Read(h.id)
		if err != nil {
			return nil, err
		}
		h.buffer = buf
		h.state.Store(int32(BlockLoaded))
	}
	h.readers.Add(1)
	return h.buffer, nil
}

// PinNew installs a freshly zeroed buffer for a block that was just
// allocated by BlockManager.CreateBlock and has no on-disk contents yet, so
// callers writing a brand new block never send it through the Read path
// (which would fail: the block manager has nothing on disk for it).
func (bm *BufferManager) PinNew(h *BlockHandle) []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.IsLoaded() {
		h.buffer = util.GAlloc.Alloc(bm.blockSize)
		h.state.Store(int32(BlockLoaded))
	}
	h.readers.Add(1)
	return h.buffer
}

func (bm *BufferManager) Unpin(h *BlockHandle) {
	h.readers.Add(-1)
}

func (bm *BufferManager) UnregisterBlock(id BlockID) {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	delete(bm.blocks, id)
}
