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

package util

// BytesAllocator is the indirection point every fixed-size buffer
// allocation in this module goes through, kept as an interface (rather than
// a bare make([]byte, n)) so tests can swap in an allocator that tracks or
// caps outstanding bytes.
type BytesAllocator interface {
	Alloc(sz int) []byte
	Free([]byte)
}

type DefaultAllocator struct{}

func (a *DefaultAllocator) Alloc(sz int) []byte {
	return make([]byte, sz)
}

func (a *DefaultAllocator) Free([]byte) {}

var GAlloc BytesAllocator = &DefaultAllocator{}
