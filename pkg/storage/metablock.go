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
	"github.com/ravensworth/vectorengine/pkg/util"
)

// BlockPointer names a byte position inside a meta-block chain: the block
// the position starts in, plus a byte offset within that block.
type BlockPointer struct {
	BlockID BlockID
	Offset  uint64
}

// MetaBlockWriter serializes an unbounded byte stream across a linked list
// of fixed-size blocks. Every block reserves buf[BlockChecksumSize:MetaBlockHeaderSize]
// for the id of the next block in the chain (InvalidBlockID once the chain
// ends) - the BlockChecksumSize bytes ahead of it belong to the block
// manager's own per-block checksum, a disjoint range so neither layer's
// framing overwrites the other's. WriteData backpatches the next-block
// pointer as soon as a new block is allocated to hold the overflow, so a
// partially-written chain is always walkable up to the last block actually
// flushed.
type MetaBlockWriter struct {
	mgr           BlockManager
	buffers       *BufferManager
	block         *BlockHandle
	blockPinned   bool
	offset        uint64
	writtenBlocks []BlockID
}

var _ util.Serialize = (*MetaBlockWriter)(nil)

// NewMetaBlockWriter starts a new chain, or, when initBlockID is not
// InvalidBlockID, reopens that block and writes its payload from the start.
func NewMetaBlockWriter(mgr BlockManager, buffers *BufferManager, initBlockID BlockID) (*MetaBlockWriter, error) {
	w := &MetaBlockWriter{mgr: mgr, buffers: buffers}
	if initBlockID == InvalidBlockID {
		h, err := mgr.CreateBlock()
		if err != nil {
			return nil, err
		}
		w.block = h
		buf := buffers.PinNew(w.block)
		invalid := InvalidBlockID
		putLE64(buf[BlockChecksumSize:MetaBlockHeaderSize], uint64(invalid))
		w.block.buffer = buf
	} else {
		w.block = buffers.RegisterBlock(initBlockID)
		buf, err := buffers.Pin(mgr, w.block)
		if err != nil {
			return nil, err
		}
		w.block.buffer = buf
	}
	w.blockPinned = true
	w.offset = MetaBlockHeaderSize
	w.writtenBlocks = append(w.writtenBlocks, w.block.ID())
	return w, nil
}

func (w *MetaBlockWriter) GetBlockPointer() BlockPointer {
	return BlockPointer{BlockID: w.block.ID(), Offset: w.offset}
}

// WriteData writes len(buffer) bytes, allocating and chaining a new block
// whenever the current one fills up.
func (w *MetaBlockWriter) WriteData(buffer []byte, length int) error {
	written := 0
	for written < length {
		if int(w.offset) >= w.mgr.BlockSize() {
			if err := w.advanceBlock(); err != nil {
				return err
			}
		}
		space := w.mgr.BlockSize() - int(w.offset)
		n := length - written
		if n > space {
			n = space
		}
		copy(w.block.buffer[w.offset:], buffer[written:written+n])
		w.offset += uint64(n)
		written += n
	}
	return nil
}

// advanceBlock flushes the current block, allocates the next one, and
// backpatches the current block's next-block pointer to point at it. The
// old block is durable once Write returns, so the writer unpins it before
// moving on; it will never touch that block again.
func (w *MetaBlockWriter) advanceBlock() error {
	nextBlock, err := w.mgr.CreateBlock()
	if err != nil {
		return err
	}
	putLE64(w.block.buffer[BlockChecksumSize:MetaBlockHeaderSize], uint64(nextBlock.ID()))
	if err := w.mgr.Write(w.block); err != nil {
		return err
	}
	if w.blockPinned {
		w.buffers.Unpin(w.block)
		w.blockPinned = false
	}

	buf := w.buffers.PinNew(nextBlock)
	invalid := InvalidBlockID
	putLE64(buf[BlockChecksumSize:MetaBlockHeaderSize], uint64(invalid))
	nextBlock.buffer = buf
	w.block = nextBlock
	w.blockPinned = true
	w.offset = MetaBlockHeaderSize
	w.writtenBlocks = append(w.writtenBlocks, nextBlock.ID())
	return nil
}

// Flush zero-pads the remainder of the current block and writes it out,
// leaving the writer usable: a later WriteData continues in the same block
// after the bytes already written, and allocates a new block only once this
// one is full. Once the block is durable its pin
// is released; WriteData never depends on the block staying pinned, only
// on its buffer staying resident, which the buffer manager guarantees
// regardless of reader count.
func (w *MetaBlockWriter) Flush() error {
	for i := int(w.offset); i < w.mgr.BlockSize(); i++ {
		w.block.buffer[i] = 0
	}
	if err := w.mgr.Write(w.block); err != nil {
		return err
	}
	if w.blockPinned {
		w.buffers.Unpin(w.block)
		w.blockPinned = false
	}
	return nil
}

func (w *MetaBlockWriter) WrittenBlocks() []BlockID {
	return w.writtenBlocks
}

// MetaBlockReader walks a chain written by MetaBlockWriter, following the
// next-block pointer transparently whenever a read crosses a block
// boundary.
type MetaBlockReader struct {
	mgr     BlockManager
	buffers *BufferManager
	block   *BlockHandle
	buffer  []byte
	offset  uint64
}

var _ util.Deserialize = (*MetaBlockReader)(nil)

func NewMetaBlockReader(mgr BlockManager, buffers *BufferManager, blockID BlockID) (*MetaBlockReader, error) {
	r := &MetaBlockReader{mgr: mgr, buffers: buffers}
	if err := r.setBlock(blockID); err != nil {
		return nil, err
	}
	r.offset = MetaBlockHeaderSize
	return r, nil
}

func (r *MetaBlockReader) setBlock(id BlockID) error {
	h := r.buffers.RegisterBlock(id)
	buf, err := r.buffers.Pin(r.mgr, h)
	if err != nil {
		return err
	}
	old := r.block
	r.block = h
	r.buffer = buf
	if old != nil {
		r.buffers.Unpin(old)
	}
	return nil
}

// Close releases the reader's pin on whichever block it currently holds.
// Call it once a chain has been read to the end; safe to call more than
// once.
func (r *MetaBlockReader) Close() {
	if r.block != nil {
		r.buffers.Unpin(r.block)
		r.block = nil
	}
}

// Seek positions the reader at an absolute BlockPointer, used to place a
// column chain's reader at a recorded vector or chain-start position.
func (r *MetaBlockReader) Seek(ptr BlockPointer) error {
	if r.block == nil || r.block.ID() != ptr.BlockID {
		if err := r.setBlock(ptr.BlockID); err != nil {
			return err
		}
	}
	r.offset = ptr.Offset
	return nil
}

func (r *MetaBlockReader) ReadData(buffer []byte, length int) error {
	read := 0
	for read < length {
		if int(r.offset) >= r.mgr.BlockSize() {
			next := BlockID(leUint64(r.buffer[BlockChecksumSize:MetaBlockHeaderSize]))
			if next == InvalidBlockID {
				return util.NewIOError("meta block reader ran past end of chain", nil)
			}
			if err := r.setBlock(next); err != nil {
				return err
			}
			r.offset = MetaBlockHeaderSize
		}
		space := r.mgr.BlockSize() - int(r.offset)
		n := length - read
		if n > space {
			n = space
		}
		copy(buffer[read:read+n], r.buffer[r.offset:])
		r.offset += uint64(n)
		read += n
	}
	return nil
}
