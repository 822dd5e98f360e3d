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

// Package inet holds the IP network value indexed by the network operator
// classes, together with the bit-prefix arithmetic and the base comparison
// and inclusion operators the index checks must agree with.
package inet

import (
	"fmt"
	"net/netip"
)

// Family is the address family of a network value.
type Family uint8

const (
	IPv4 Family = 4
	IPv6 Family = 6
)

// MaxBits is the address length of the family in bits.
func (f Family) MaxBits() int {
	if f == IPv4 {
		return 32
	}
	return 128
}

// AddrLen is the address length of the family in bytes.
func (f Family) AddrLen() int {
	if f == IPv4 {
		return 4
	}
	return 16
}

func (f Family) String() string {
	switch f {
	case IPv4:
		return "ipv4"
	case IPv6:
		return "ipv6"
	}
	return fmt.Sprintf("family(%d)", uint8(f))
}

// Network is an IP network value: an address family, a prefix length and the
// address bytes. The address may carry host bits beyond the prefix length;
// use Masked to strip them. IPv4 addresses occupy the first 4 bytes of Addr.
type Network struct {
	Family Family
	Bits   uint8
	Addr   [16]byte
}

// NewNetwork builds a network keeping the address bytes as given.
func NewNetwork(family Family, bits uint8, addr [16]byte) Network {
	return Network{Family: family, Bits: bits, Addr: addr}
}

// Masked returns the network with every bit beyond the prefix length zeroed,
// keeping the prefix length. This is how inner-node prefixes and unions are
// canonicalized.
func Masked(family Family, bits uint8, addr [16]byte) Network {
	return Network{Family: family, Bits: bits, Addr: maskAddr(addr, int(bits))}
}

// FromPrefix converts a parsed prefix into a network value. Host bits are
// kept as given.
func FromPrefix(p netip.Prefix) Network {
	a := p.Addr()
	if a.Is4() {
		b := a.As4()
		var addr [16]byte
		copy(addr[:4], b[:])
		return Network{Family: IPv4, Bits: uint8(p.Bits()), Addr: addr}
	}
	return Network{Family: IPv6, Bits: uint8(p.Bits()), Addr: a.As16()}
}

// Prefix converts the network back into a netip.Prefix.
func (n Network) Prefix() netip.Prefix {
	if n.Family == IPv4 {
		var b [4]byte
		copy(b[:], n.Addr[:4])
		return netip.PrefixFrom(netip.AddrFrom4(b), int(n.Bits))
	}
	return netip.PrefixFrom(netip.AddrFrom16(n.Addr), int(n.Bits))
}

func (n Network) String() string {
	return n.Prefix().String()
}

// MaxBits is the address length of the value in bits.
func (n Network) MaxBits() int { return n.Family.MaxBits() }

// AddrBytes returns the significant address bytes for the family.
func (n Network) AddrBytes() []byte { return n.Addr[:n.Family.AddrLen()] }

// AddrBit reports address bit i, most significant first.
func (n Network) AddrBit(i int) bool { return addrBit(n.Addr[:], i) }

// WithAddrBitSet returns a copy of the network with address bit i set.
func (n Network) WithAddrBitSet(i int) Network {
	n.Addr[i/8] |= 1 << (7 - i%8)
	return n
}

// Compare orders two networks canonically: by family, then by the common
// network bits, then by prefix length, then by the whole address.
func (n Network) Compare(o Network) int {
	if n.Family != o.Family {
		if n.Family < o.Family {
			return -1
		}
		return 1
	}
	minBits := int(n.Bits)
	if int(o.Bits) < minBits {
		minBits = int(o.Bits)
	}
	if order := ComparePrefix(n.AddrBytes(), o.AddrBytes(), minBits); order != 0 {
		return order
	}
	if n.Bits != o.Bits {
		if n.Bits < o.Bits {
			return -1
		}
		return 1
	}
	return ComparePrefix(n.AddrBytes(), o.AddrBytes(), n.MaxBits())
}

// Equal reports canonical equality.
func (n Network) Equal(o Network) bool { return n.Compare(o) == 0 }

// Overlaps reports whether the two networks share their common network part,
// which makes one of them contain the other.
func (n Network) Overlaps(o Network) bool {
	if n.Family != o.Family {
		return false
	}
	minBits := int(n.Bits)
	if int(o.Bits) < minBits {
		minBits = int(o.Bits)
	}
	return ComparePrefix(n.AddrBytes(), o.AddrBytes(), minBits) == 0
}

// SubnetOrEqual reports whether n is contained in o.
func (n Network) SubnetOrEqual(o Network) bool {
	return n.Family == o.Family && n.Bits >= o.Bits &&
		ComparePrefix(n.AddrBytes(), o.AddrBytes(), int(o.Bits)) == 0
}

// StrictSubnetOf reports whether n is contained in o and is a smaller
// network.
func (n Network) StrictSubnetOf(o Network) bool {
	return n.Family == o.Family && n.Bits > o.Bits &&
		ComparePrefix(n.AddrBytes(), o.AddrBytes(), int(o.Bits)) == 0
}

// SupernetOrEqual reports whether n contains o.
func (n Network) SupernetOrEqual(o Network) bool { return o.SubnetOrEqual(n) }

// StrictSupernetOf reports whether n contains o and is a bigger network.
func (n Network) StrictSupernetOf(o Network) bool { return o.StrictSubnetOf(n) }
