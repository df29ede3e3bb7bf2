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

import "fmt"

// PhyFormat describes how a Vector's Data slice must be interpreted: as a
// dense array, a single repeated value, or an array addressed indirectly
// through a dictionary selection.
type PhyFormat int

const (
	PF_FLAT PhyFormat = iota
	PF_CONST
	PF_DICT
)

func (f PhyFormat) String() string {
	switch f {
	case PF_FLAT:
		return "flat"
	case PF_CONST:
		return "constant"
	case PF_DICT:
		return "dictionary"
	}
	panic(fmt.Sprintf("unsupported phy format %d", f))
}

func (f PhyFormat) IsConst() bool { return f == PF_CONST }
func (f PhyFormat) IsFlat() bool  { return f == PF_FLAT }
func (f PhyFormat) IsDict() bool  { return f == PF_DICT }
