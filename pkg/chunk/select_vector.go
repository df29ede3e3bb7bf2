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

package chunk

import "github.com/ravensworth/vectorengine/pkg/util"

// SelectVector maps logical row positions onto physical slots without
// copying data, used both for PF_DICT vectors and for zero-copy Slice.
type SelectVector struct {
	SelVec []int
}

func NewSelectVector(count int) *SelectVector {
	v := &SelectVector{}
	v.Init(count)
	return v
}

func NewIdentitySelectVector(start, count int) *SelectVector {
	v := &SelectVector{}
	v.Init(util.DefaultVectorSize)
	for i := 0; i < count; i++ {
		v.SetIndex(i, start+i)
	}
	return v
}

func (sv *SelectVector) Invalid() bool {
	return len(sv.SelVec) == 0
}

func (sv *SelectVector) Init(cnt int) {
	sv.SelVec = make([]int, cnt)
}

func (sv *SelectVector) GetIndex(idx int) int {
	if sv.Invalid() {
		return idx
	}
	return sv.SelVec[idx]
}

func (sv *SelectVector) SetIndex(idx, index int) {
	sv.SelVec[idx] = index
}

// Slice composes this selection with another, producing the physical
// indices that `sel` (itself indexing through this vector) resolves to.
func (sv *SelectVector) Slice(sel *SelectVector, count int) []int {
	data := make([]int, count)
	for i := 0; i < count; i++ {
		data[i] = sv.GetIndex(sel.GetIndex(i))
	}
	return data
}

func (sv *SelectVector) InitFrom(other *SelectVector) {
	sv.SelVec = other.SelVec
}

func (sv *SelectVector) InitFromSlice(data []int) {
	sv.SelVec = data
}
