// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package bitvec

import (
	"math/big"
	"strings"

	"github.com/bits-and-blooms/bitset"
)

// Vector is a fixed-width sequence of four-valued bits.  Bit zero is the
// least significant.  Internally the vector is stored as two bit planes: the
// val plane holds the logic level of defined bits, whilst the xz plane marks
// bits which are X (val clear) or Z (val set).
type Vector struct {
	width int
	val   *bitset.BitSet
	xz    *bitset.BitSet
}

// New constructs an all-zero vector of a given width.
func New(width int) Vector {
	if width < 0 {
		panic("negative vector width")
	}

	return Vector{width, bitset.New(uint(width)), bitset.New(uint(width))}
}

// NewFilled constructs a vector of a given width with every bit set to a
// given value.
func NewFilled(width int, b Bit) Vector {
	v := New(width)
	for i := 0; i < width; i++ {
		v.Set(i, b)
	}
	//
	return v
}

// FromBits constructs a vector from a slice of bits, where the first element
// of the slice is the least significant bit.
func FromBits(bits []Bit) Vector {
	v := New(len(bits))
	for i, b := range bits {
		v.Set(i, b)
	}
	//
	return v
}

// FromUint64 constructs a vector of a given width holding the least
// significant width bits of a given value.
func FromUint64(value uint64, width int) Vector {
	v := New(width)
	for i := 0; i < width && i < 64; i++ {
		if value&(1<<uint(i)) != 0 {
			v.Set(i, One)
		}
	}
	//
	return v
}

// FromInt64 constructs a vector of a given width holding the two's complement
// representation of a given value.
func FromInt64(value int64, width int) Vector {
	return FromUint64(uint64(value), width)
}

// FromBigInt constructs a vector of a given width holding the two's
// complement representation of a given (possibly negative) value.
func FromBigInt(value *big.Int, width int) Vector {
	v := New(width)
	//
	if value.Sign() >= 0 {
		for i := 0; i < width; i++ {
			if value.Bit(i) == 1 {
				v.Set(i, One)
			}
		}
	} else {
		// Two's complement: -x == ^(x-1)
		tmp := big.NewInt(-1)
		tmp.Sub(tmp, value)
		// tmp = -value - 1 >= 0
		for i := 0; i < width; i++ {
			if tmp.Bit(i) == 0 {
				v.Set(i, One)
			}
		}
	}
	//
	return v
}

// FromString constructs a vector holding the ASCII bytes of a given string,
// with the last character occupying the least significant byte.
func FromString(value string) Vector {
	bytes := []byte(value)
	v := New(8 * len(bytes))
	//
	for i, b := range bytes {
		offset := 8 * (len(bytes) - 1 - i)
		for j := 0; j < 8; j++ {
			if b&(1<<uint(j)) != 0 {
				v.Set(offset+j, One)
			}
		}
	}
	//
	return v
}

// Width returns the number of bits in this vector.
func (p Vector) Width() int {
	return p.width
}

// Get returns the ith bit of this vector.
func (p Vector) Get(i int) Bit {
	if i < 0 || i >= p.width {
		panic("bit index out of bounds")
	}
	//
	switch {
	case p.xz.Test(uint(i)) && p.val.Test(uint(i)):
		return Z
	case p.xz.Test(uint(i)):
		return X
	case p.val.Test(uint(i)):
		return One
	default:
		return Zero
	}
}

// Set assigns the ith bit of this vector.
func (p Vector) Set(i int, b Bit) {
	if i < 0 || i >= p.width {
		panic("bit index out of bounds")
	}
	//
	p.val.SetTo(uint(i), b == One || b == Z)
	p.xz.SetTo(uint(i), b == X || b == Z)
}

// Bits returns the bits of this vector as a slice, least significant first.
func (p Vector) Bits() []Bit {
	bits := make([]Bit, p.width)
	for i := range bits {
		bits[i] = p.Get(i)
	}
	//
	return bits
}

// Clone creates a deep copy of this vector.
func (p Vector) Clone() Vector {
	return Vector{p.width, p.val.Clone(), p.xz.Clone()}
}

// Equal checks four-valued equality of two vectors, including their widths.
func (p Vector) Equal(other Vector) bool {
	return p.width == other.width && p.val.Equal(other.val) && p.xz.Equal(other.xz)
}

// IsFullyDefined checks whether this vector contains no X or Z bits.
func (p Vector) IsFullyDefined() bool {
	return !p.xz.Any()
}

// AnyOne checks whether any bit of this vector is a definite one.
func (p Vector) AnyOne() bool {
	for i := 0; i < p.width; i++ {
		if p.Get(i) == One {
			return true
		}
	}
	//
	return false
}

// AsBool reports the boolean interpretation of this vector, where any
// definite one makes the vector true.
func (p Vector) AsBool() bool {
	return p.AnyOne()
}

// Extend returns a copy of this vector extended (or truncated) to a given
// width.  When extending, a signed vector replicates its most significant
// bit (which may be X or Z); an unsigned vector is zero filled.
func (p Vector) Extend(width int, signed bool) Vector {
	if width < 0 || width == p.width {
		return p.Clone()
	}
	//
	v := New(width)
	//
	for i := 0; i < width; i++ {
		if i < p.width {
			v.Set(i, p.Get(i))
		} else if signed && p.width > 0 {
			v.Set(i, p.Get(p.width-1))
		}
	}
	//
	return v
}

// AsBigInt interprets this vector as an integer, treating X and Z bits as
// zero.  When signed, the most significant bit is the sign bit.
func (p Vector) AsBigInt(signed bool) *big.Int {
	value := big.NewInt(0)
	//
	for i := 0; i < p.width; i++ {
		if p.Get(i) == One {
			value.SetBit(value, i, 1)
		}
	}
	//
	if signed && p.width > 0 && p.Get(p.width-1) == One {
		// Subtract 2^width to recover the negative value.
		modulus := new(big.Int).Lsh(big.NewInt(1), uint(p.width))
		value.Sub(value, modulus)
	}
	//
	return value
}

// AsInt interprets this vector as an unsigned machine integer, treating X and
// Z bits as zero and ignoring bits beyond the machine word.
func (p Vector) AsInt() int {
	var value int64
	//
	for i := 0; i < p.width && i < 63; i++ {
		if p.Get(i) == One {
			value |= 1 << uint(i)
		}
	}
	//
	return int(value)
}

// AsFloat interprets this vector as a floating point number.
func (p Vector) AsFloat(signed bool) float64 {
	f, _ := new(big.Float).SetInt(p.AsBigInt(signed)).Float64()
	return f
}

// AsString interprets this vector as a packed ASCII string.
func (p Vector) AsString() string {
	var builder strings.Builder
	//
	for i := (p.width / 8) - 1; i >= 0; i-- {
		var b byte
		for j := 0; j < 8; j++ {
			if p.Get(i*8+j) == One {
				b |= 1 << uint(j)
			}
		}
		//
		builder.WriteByte(b)
	}
	//
	return builder.String()
}

// String returns this vector as a binary digit string, most significant bit
// first.
func (p Vector) String() string {
	var builder strings.Builder
	//
	for i := p.width - 1; i >= 0; i-- {
		builder.WriteString(p.Get(i).String())
	}
	//
	return builder.String()
}

// FromFloat converts a floating point number into a vector of a given width,
// rounding to the nearest integer.
func FromFloat(value float64, width int) Vector {
	bigval, _ := big.NewFloat(value + floatRound(value)).Int(nil)
	return FromBigInt(bigval, width)
}

func floatRound(value float64) float64 {
	if value < 0 {
		return -0.5
	}
	//
	return 0.5
}
