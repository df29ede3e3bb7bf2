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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ravensworth/vectorengine/pkg/util"
)

// smallBlockSize forces a chain several blocks long for a modest payload,
// exercising WriteData/ReadData's block-crossing logic without allocating
// megabytes of scratch data.
const smallBlockSize = 64

func TestMetaBlockWriterReaderRoundTripAcrossBlocks(t *testing.T) {
	mgr := NewInMemoryBlockManager(smallBlockSize)
	w, err := NewMetaBlockWriter(mgr, mgr.Buffers(), InvalidBlockID)
	require.NoError(t, err)

	start := w.GetBlockPointer()
	payload := make([]byte, 500)
	for i := range payload {
		payload[i] = byte(i)
	}
	require.NoError(t, w.WriteData(payload, len(payload)))
	require.NoError(t, w.Flush())
	require.Greater(t, len(w.WrittenBlocks()), 1)

	r, err := NewMetaBlockReader(mgr, mgr.Buffers(), start.BlockID)
	require.NoError(t, err)
	require.NoError(t, r.Seek(start))

	got := make([]byte, len(payload))
	require.NoError(t, r.ReadData(got, len(got)))
	require.Equal(t, payload, got)
}

func TestMetaBlockWriterFreshBlockDoesNotTouchBlockManagerRead(t *testing.T) {
	// A brand new chain's first block has never been written to the block
	// manager; NewMetaBlockWriter must install its buffer via PinNew rather
	// than routing through Pin (which would try to Read a block the manager
	// has never seen and fail).
	mgr := NewInMemoryBlockManager(smallBlockSize)
	w, err := NewMetaBlockWriter(mgr, mgr.Buffers(), InvalidBlockID)
	require.NoError(t, err)
	require.NoError(t, w.WriteData([]byte("hi"), 2))
	require.NoError(t, w.Flush())
}

// TestMetaBlockWriterAdvanceBlockAtDefaultBlockSizeRoundTrips forces
// advanceBlock by writing more than one full DefaultBlockSize block through
// a single MetaBlockWriter, then scans the chain back. It guards against the
// checksum and next-block-pointer framing aliasing the same bytes: each
// written block's checksum (buf[0:BlockChecksumSize]) and its chain
// next-pointer (buf[BlockChecksumSize:MetaBlockHeaderSize]) must both
// survive a round trip through the block manager's Write/Read, which
// recomputes and overwrites the checksum range on every Write.
func TestMetaBlockWriterAdvanceBlockAtDefaultBlockSizeRoundTrips(t *testing.T) {
	mgr := NewInMemoryBlockManager(util.DefaultBlockSize)
	w, err := NewMetaBlockWriter(mgr, mgr.Buffers(), InvalidBlockID)
	require.NoError(t, err)

	start := w.GetBlockPointer()
	payload := make([]byte, util.DefaultBlockSize+1000)
	for i := range payload {
		payload[i] = byte(i)
	}
	require.NoError(t, w.WriteData(payload, len(payload)))
	require.NoError(t, w.Flush())
	require.Greater(t, len(w.WrittenBlocks()), 1, "payload exceeding DefaultBlockSize must force advanceBlock")

	r, err := NewMetaBlockReader(mgr, mgr.Buffers(), start.BlockID)
	require.NoError(t, err)
	require.NoError(t, r.Seek(start))

	got := make([]byte, len(payload))
	require.NoError(t, r.ReadData(got, len(got)))
	require.Equal(t, payload, got)
}

// TestMetaBlockWriterReaderUnpinEveryBlockAfterRoundTrip guards against pins
// silently accumulating: a writer that spans several blocks must end up
// with none of them pinned once Flush returns, and a reader that walks the
// whole chain must end up with none of them pinned once it reaches the end.
func TestMetaBlockWriterReaderUnpinEveryBlockAfterRoundTrip(t *testing.T) {
	mgr := NewInMemoryBlockManager(smallBlockSize)
	w, err := NewMetaBlockWriter(mgr, mgr.Buffers(), InvalidBlockID)
	require.NoError(t, err)

	start := w.GetBlockPointer()
	payload := make([]byte, 500)
	require.NoError(t, w.WriteData(payload, len(payload)))
	require.NoError(t, w.Flush())
	written := w.WrittenBlocks()
	require.Greater(t, len(written), 1)
	for _, id := range written {
		h := mgr.Buffers().RegisterBlock(id)
		require.Equal(t, int32(0), h.Readers(), "block %d still pinned after Flush", id)
	}

	r, err := NewMetaBlockReader(mgr, mgr.Buffers(), start.BlockID)
	require.NoError(t, err)
	require.NoError(t, r.Seek(start))
	got := make([]byte, len(payload))
	require.NoError(t, r.ReadData(got, len(got)))
	r.Close()
	for _, id := range written {
		h := mgr.Buffers().RegisterBlock(id)
		require.Equal(t, int32(0), h.Readers(), "block %d still pinned after reader Close", id)
	}
}

func TestMetaBlockReaderSeekRepositions(t *testing.T) {
	mgr := NewInMemoryBlockManager(util.DefaultBlockSize)
	w, err := NewMetaBlockWriter(mgr, mgr.Buffers(), InvalidBlockID)
	require.NoError(t, err)

	require.NoError(t, util.Write(int32(11), w))
	mid := w.GetBlockPointer()
	require.NoError(t, util.Write(int32(22), w))
	require.NoError(t, w.Flush())

	r, err := NewMetaBlockReader(mgr, mgr.Buffers(), mid.BlockID)
	require.NoError(t, err)
	require.NoError(t, r.Seek(mid))
	v, err := util.Read[int32](r)
	require.NoError(t, err)
	require.Equal(t, int32(22), v)
}
