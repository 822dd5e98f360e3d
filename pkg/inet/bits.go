/*
 * Copyright (C) 2022 IBM, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 */

package inet

import (
	"bytes"
	"math/bits"
)

// CommonPrefixBits returns the number of leading bits, up to maxBits, that
// are identical between a and b. Both slices must hold at least
// ceil(maxBits/8) bytes. maxBits <= 0 returns 0 without touching either
// slice.
func CommonPrefixBits(a, b []byte, maxBits int) int {
	if maxBits <= 0 {
		return 0
	}
	n := 0
	for i := 0; n < maxBits; i++ {
		if d := a[i] ^ b[i]; d != 0 {
			n += bits.LeadingZeros8(d)
			break
		}
		n += 8
	}
	if n > maxBits {
		n = maxBits
	}
	return n
}

// ComparePrefix compares the first n bits of a and b lexicographically,
// returning -1, 0 or 1. Bits beyond n are ignored.
func ComparePrefix(a, b []byte, n int) int {
	if n <= 0 {
		return 0
	}
	nb := n / 8
	if c := bytes.Compare(a[:nb], b[:nb]); c != 0 {
		return c
	}
	if r := n % 8; r != 0 {
		mask := byte(0xFF) << (8 - r)
		av, bv := a[nb]&mask, b[nb]&mask
		if av < bv {
			return -1
		}
		if av > bv {
			return 1
		}
	}
	return 0
}

// addrBit reports bit i of addr, counting from the most significant bit of
// the first byte.
func addrBit(addr []byte, i int) bool {
	return addr[i/8]&(1<<(7-i%8)) != 0
}

// maskAddr zeroes every bit of addr from position n on.
func maskAddr(addr [16]byte, n int) [16]byte {
	var out [16]byte
	nb := n / 8
	copy(out[:nb], addr[:nb])
	if r := n % 8; r != 0 {
		out[nb] = addr[nb] & (byte(0xFF) << (8 - r))
	}
	return out
}

