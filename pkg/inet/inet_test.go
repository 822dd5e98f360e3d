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
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func net(t *testing.T, s string) Network {
	t.Helper()
	p, err := netip.ParsePrefix(s)
	require.NoError(t, err)
	return FromPrefix(p)
}

func TestFromPrefixRoundtrip(t *testing.T) {
	for _, s := range []string{"10.0.0.0/8", "192.168.1.0/24", "0.0.0.0/0", "2001:db8::/32", "::/0"} {
		assert.Equal(t, s, net(t, s).String())
	}

	v4 := net(t, "10.1.2.3/32")
	assert.Equal(t, IPv4, v4.Family)
	assert.Equal(t, 32, v4.MaxBits())
	assert.Equal(t, 4, len(v4.AddrBytes()))

	v6 := net(t, "2001:db8::/32")
	assert.Equal(t, IPv6, v6.Family)
	assert.Equal(t, 128, v6.MaxBits())
	assert.Equal(t, 16, len(v6.AddrBytes()))
}

func TestMaskedStripsHostBits(t *testing.T) {
	n := net(t, "10.1.255.255/12")
	masked := Masked(n.Family, n.Bits, n.Addr)
	assert.Equal(t, "10.0.0.0/12", masked.String())
	assert.Equal(t, uint8(12), masked.Bits)
}

func TestWithAddrBitSet(t *testing.T) {
	n := net(t, "10.0.0.0/9")
	assert.False(t, n.AddrBit(8))
	set := n.WithAddrBitSet(8)
	assert.True(t, set.AddrBit(8))
	assert.Equal(t, "10.128.0.0/9", set.String())
	// The receiver is unchanged.
	assert.False(t, n.AddrBit(8))
}

func TestCompareCanonicalOrder(t *testing.T) {
	// Ordered by family, then network bits, then masklen, then address.
	ordered := []string{
		"9.0.0.0/8",
		"10.0.0.0/8",
		"10.0.0.0/16",
		"10.0.0.1/16",
		"10.1.0.0/16",
		"11.0.0.0/8",
		"2001:db8::/32",
	}
	for i := range ordered {
		for j := range ordered {
			a, b := net(t, ordered[i]), net(t, ordered[j])
			switch {
			case i < j:
				assert.Equal(t, -1, a.Compare(b), "%s < %s", ordered[i], ordered[j])
			case i > j:
				assert.Equal(t, 1, a.Compare(b), "%s > %s", ordered[i], ordered[j])
			default:
				assert.Equal(t, 0, a.Compare(b), "%s = %s", ordered[i], ordered[j])
			}
		}
	}
}

func TestInclusionOperators(t *testing.T) {
	super := net(t, "10.0.0.0/8")
	sub := net(t, "10.1.0.0/16")
	sibling := net(t, "11.0.0.0/8")
	v6 := net(t, "2001:db8::/32")

	assert.True(t, sub.StrictSubnetOf(super))
	assert.True(t, sub.SubnetOrEqual(super))
	assert.False(t, super.StrictSubnetOf(sub))
	assert.True(t, super.StrictSupernetOf(sub))
	assert.True(t, super.SupernetOrEqual(sub))

	assert.True(t, super.SubnetOrEqual(super))
	assert.False(t, super.StrictSubnetOf(super))

	assert.True(t, super.Overlaps(sub))
	assert.True(t, sub.Overlaps(super))
	assert.False(t, super.Overlaps(sibling))
	assert.False(t, super.Overlaps(v6))
	assert.False(t, sub.SubnetOrEqual(v6))

	assert.True(t, super.Equal(net(t, "10.0.0.0/8")))
	assert.False(t, super.Equal(net(t, "10.0.0.0/9")))
}
