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

package types

import (
	"github.com/govalues/decimal"

	"github.com/ravensworth/vectorengine/pkg/util"
)

// Decimal is the fixed-point representation backing LTID_DECIMAL columns.
type Decimal struct {
	decimal.Decimal
}

func NewDecimal(coef int64, scale int) Decimal {
	return Decimal{Decimal: decimal.MustNew(coef, scale)}
}

func DecimalFromString(s string) (Decimal, error) {
	v, err := decimal.Parse(s)
	if err != nil {
		return Decimal{}, err
	}
	return Decimal{Decimal: v}, nil
}

func (d Decimal) Equal(o Decimal) bool {
	return d.Decimal.Cmp(o.Decimal) == 0
}

func (d Decimal) Add(o Decimal) (Decimal, error) {
	v, err := d.Decimal.Add(o.Decimal)
	return Decimal{Decimal: v}, err
}

func (d Decimal) Mul(o Decimal) (Decimal, error) {
	v, err := d.Decimal.Mul(o.Decimal)
	return Decimal{Decimal: v}, err
}

// Serialize stores the decimal by its canonical text form. Meta-block
// records are POD-oriented but the checkpoint format never needs to
// address a decimal field at random offsets, so the length-prefixed string
// wire shape everything else already uses is reused instead of packing the
// coefficient by hand.
func (d Decimal) Serialize(serial util.Serialize) error {
	return util.WriteString(d.Decimal.String(), serial)
}

func DeserializeDecimal(deserial util.Deserialize) (Decimal, error) {
	s, err := util.ReadString(deserial)
	if err != nil {
		return Decimal{}, err
	}
	return DecimalFromString(s)
}
