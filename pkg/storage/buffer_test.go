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
)

const testBlockSize = 256

func TestPinUnknownBlockFails(t *testing.T) {
	mgr := NewInMemoryBlockManager(testBlockSize)
	h := mgr.Buffers().RegisterBlock(BlockID(999))
	_, err := mgr.Buffers().Pin(mgr, h)
	require.Error(t, err)
}

func TestPinNewNeverTouchesBlockManager(t *testing.T) {
	mgr := NewInMemoryBlockManager(testBlockSize)
	h, err := mgr.CreateBlock()
	require.NoError(t, err)

	buf := mgr.Buffers().PinNew(h)
	require.Len(t, buf, testBlockSize)
	require.True(t, h.IsLoaded())
	require.Equal(t, int32(1), h.Readers())
}

func TestPinLoadsPersistedBlock(t *testing.T) {
	mgr := NewInMemoryBlockManager(testBlockSize)
	h, err := mgr.CreateBlock()
	require.NoError(t, err)
	buf := mgr.Buffers().PinNew(h)
	buf[8] = 42
	require.NoError(t, mgr.Write(h))
	mgr.Buffers().Unpin(h)
	mgr.Buffers().UnregisterBlock(h.ID())

	h2 := mgr.Buffers().RegisterBlock(h.ID())
	got, err := mgr.Buffers().Pin(mgr, h2)
	require.NoError(t, err)
	require.Equal(t, byte(42), got[8])
}
