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
	"sync/atomic"
)

// BlockID names a fixed-size block on disk. InvalidBlockID marks "no
// block" the way block_id_t -1 does in the original design: an empty
// database's header points nowhere.
type BlockID int64

const InvalidBlockID BlockID = -1

// BlockIDSize is the width in bytes of a serialized BlockID, and doubles as
// the size of the "next block" pointer every meta-block reserves right
// after the block manager's checksum (see MetaBlockHeaderSize).
const BlockIDSize = 8

// BlockChecksumSize is the width in bytes of the checksum the block manager
// writes at the very head of every block, in buf[0:BlockChecksumSize].
const BlockChecksumSize = 8

// MetaBlockHeaderSize is the total header a meta-block chain's payload
// starts after: the block manager's checksum, followed by the chain's own
// next-block pointer. The two live in disjoint ranges - checksum in
// buf[0:BlockChecksumSize], next-pointer in
// buf[BlockChecksumSize:MetaBlockHeaderSize] - so the block manager backpatching
// the checksum on Write can never clobber the chain's next-block pointer,
// and vice versa.
const MetaBlockHeaderSize = BlockChecksumSize + BlockIDSize

type BlockState int32

const (
	BlockUnloaded BlockState = iota
	BlockLoaded
)

// BlockHandle owns one block's buffer and the bookkeeping the buffer
// manager needs to page it in and out: a reader count so a pinned block is
// never evicted, and a load state so IsLoaded doesn't require the buffer
// manager's lock.
type BlockHandle struct {
	mu         sync.Mutex
	state      atomic.Int32
	readers    atomic.Int32
	id         BlockID
	buffer     []byte
	canDestroy bool
	mgr        *BufferManager
}

func newBlockHandle(mgr *BufferManager, id BlockID, buffer []byte) *BlockHandle {
	h := &BlockHandle{id: id, buffer: buffer, mgr: mgr}
	if buffer != nil {
		h.state.Store(int32(BlockLoaded))
	}
	return h
}

func (h *BlockHandle) ID() BlockID {
	return h.id
}

func (h *BlockHandle) IsLoaded() bool {
	return BlockState(h.state.Load()) == BlockLoaded
}

func (h *BlockHandle) Readers() int32 {
	return h.readers.Load()
}

// Buffer returns the handle's backing bytes. Callers must hold a pin
// (acquired via BufferManager.Pin) for the duration of any access.
func (h *BlockHandle) Buffer() []byte {
	return h.buffer
}
