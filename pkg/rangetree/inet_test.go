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

package rangetree

import (
	"math/rand"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cidrbox/cidrbox/pkg/inet"
	"github.com/cidrbox/cidrbox/pkg/strategy"
)

func network(t *testing.T, s string) inet.Network {
	t.Helper()
	p, err := netip.ParsePrefix(s)
	require.NoError(t, err)
	return inet.FromPrefix(p)
}

func key(t *testing.T, s string) Key {
	t.Helper()
	return SingleKey(network(t, s))
}

func consistent(t *testing.T, k Key, strat strategy.Number, arg string, leaf bool) bool {
	t.Helper()
	ok, err := InetOps{}.Consistent(k, strat, network(t, arg), leaf)
	require.NoError(t, err)
	return ok
}

func TestConsistentMixedKey(t *testing.T) {
	for _, strat := range []strategy.Number{
		strategy.Sub, strategy.SubEqual, strategy.Overlap, strategy.SuperEqual,
		strategy.Super, strategy.Less, strategy.Equal, strategy.Greater,
	} {
		assert.True(t, consistent(t, MixedKey(), strat, "10.0.0.0/8", false),
			"mixed key must keep every scan going: %s", strat)
	}
}

func TestConsistentFamilies(t *testing.T) {
	v4 := key(t, "10.0.0.0/8")

	assert.False(t, consistent(t, v4, strategy.Overlap, "2001:db8::/32", true))
	assert.False(t, consistent(t, v4, strategy.SubEqual, "2001:db8::/32", false))
	assert.True(t, consistent(t, v4, strategy.Less, "2001:db8::/32", true),
		"every v4 orders below every v6")
	assert.False(t, consistent(t, v4, strategy.Greater, "2001:db8::/32", true))
}

func TestConsistentInclusion(t *testing.T) {
	inner := key(t, "10.0.0.0/8")

	// On inner keys the subnet strategies cannot use masklen: longer
	// leaves may hide below a short union.
	assert.True(t, consistent(t, inner, strategy.Sub, "10.0.0.0/8", false))
	assert.False(t, consistent(t, inner, strategy.Sub, "10.0.0.0/8", true),
		"a leaf /8 is not a strict subnet of a /8")
	assert.True(t, consistent(t, key(t, "10.1.0.0/16"), strategy.Sub, "10.0.0.0/8", true))
	assert.True(t, consistent(t, inner, strategy.SubEqual, "10.0.0.0/8", true))

	// The supernet strategies prune inner keys by masklen: a union's
	// masklen only shrinks going up.
	assert.False(t, consistent(t, key(t, "10.1.0.0/16"), strategy.Super, "10.0.0.0/8", false))
	assert.True(t, consistent(t, inner, strategy.Super, "10.1.0.0/16", true))
	assert.False(t, consistent(t, inner, strategy.Super, "10.0.0.0/8", true))
	assert.True(t, consistent(t, inner, strategy.SuperEqual, "10.0.0.0/8", true))

	// Inclusion is settled by the common network bits.
	assert.False(t, consistent(t, inner, strategy.Overlap, "11.0.0.0/8", true))
	assert.True(t, consistent(t, inner, strategy.Overlap, "10.64.0.0/10", true))
}

func TestConsistentZeroMasklen(t *testing.T) {
	all := key(t, "0.0.0.0/0")
	assert.True(t, consistent(t, all, strategy.SuperEqual, "10.0.0.0/8", true),
		"the zero network contains everything of its family")
	assert.True(t, consistent(t, all, strategy.Overlap, "10.0.0.0/8", true))
	assert.True(t, consistent(t, key(t, "10.0.0.0/8"), strategy.SubEqual, "0.0.0.0/0", true))
}

func TestConsistentOrdering(t *testing.T) {
	k := key(t, "10.1.0.0/16")

	assert.True(t, consistent(t, k, strategy.Less, "10.2.0.0/16", true))
	assert.False(t, consistent(t, k, strategy.Less, "10.0.0.0/16", true))
	assert.True(t, consistent(t, k, strategy.Greater, "10.0.0.0/8", true),
		"longer masklen with equal common bits orders above")
	assert.False(t, consistent(t, k, strategy.Less, "10.0.0.0/8", true))
	assert.True(t, consistent(t, k, strategy.Equal, "10.1.0.0/16", true))
	assert.False(t, consistent(t, k, strategy.Equal, "10.1.0.0/24", true))
	assert.True(t, consistent(t, k, strategy.LessEqual, "10.1.0.0/16", true))
	assert.True(t, consistent(t, k, strategy.GreaterEqual, "10.1.0.0/16", true))

	// Inner keys stay consistent whenever the common bits tie.
	assert.True(t, consistent(t, key(t, "10.0.0.0/8"), strategy.Less, "10.1.0.0/16", false))
	assert.True(t, consistent(t, key(t, "10.0.0.0/8"), strategy.Greater, "10.1.0.0/16", false))
}

func TestConsistentUnsupportedStrategy(t *testing.T) {
	_, err := InetOps{}.Consistent(key(t, "10.0.0.0/8"), strategy.NotEqual, network(t, "10.0.0.0/8"), true)
	assert.ErrorIs(t, err, ErrUnsupportedStrategy)
	_, err = InetOps{}.Consistent(key(t, "10.0.0.0/8"), strategy.Contains, network(t, "10.0.0.0/8"), true)
	assert.ErrorIs(t, err, ErrUnsupportedStrategy)
}

func TestUnion(t *testing.T) {
	u, err := InetOps{}.Union([]Key{key(t, "10.1.0.0/16"), key(t, "10.2.0.0/16")})
	require.NoError(t, err)
	assert.False(t, u.Mixed)
	assert.Equal(t, "10.0.0.0/14", u.Net.String())

	u, err = InetOps{}.Union([]Key{key(t, "10.0.0.0/8"), key(t, "10.1.0.0/16")})
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.0/8", u.Net.String(), "min masklen bounds the union")

	u, err = InetOps{}.Union([]Key{key(t, "10.0.0.0/8"), key(t, "2001:db8::/32")})
	require.NoError(t, err)
	assert.True(t, u.Mixed)

	u, err = InetOps{}.Union([]Key{key(t, "10.0.0.0/8"), MixedKey()})
	require.NoError(t, err)
	assert.True(t, u.Mixed, "a mixed child keeps the union mixed")

	u, err = InetOps{}.Union([]Key{key(t, "128.0.0.0/8"), key(t, "0.0.0.0/8")})
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0/0", u.Net.String(), "no common bits collapses to the zero network")

	_, err = InetOps{}.Union(nil)
	assert.ErrorIs(t, err, ErrContractViolation)
}

// TestUnionCoversKeys checks the covering invariant the tree relies on: every
// key is subnet-or-equal of its union.
func TestUnionCoversKeys(t *testing.T) {
	keys := []Key{
		key(t, "10.0.0.0/8"),
		key(t, "10.64.0.0/10"),
		key(t, "10.128.0.0/9"),
		key(t, "10.255.0.0/16"),
	}
	u, err := InetOps{}.Union(keys)
	require.NoError(t, err)
	require.False(t, u.Mixed)
	for _, k := range keys {
		assert.True(t, k.Net.SubnetOrEqual(u.Net), "%s not covered by %s", k.Net, u.Net)
	}

	rnd := rand.New(rand.NewSource(11))
	for trial := 0; trial < 100; trial++ {
		n := 2 + rnd.Intn(8)
		randKeys := make([]Key, n)
		for i := range randKeys {
			addr := [16]byte{byte(rnd.Intn(256)), byte(rnd.Intn(256)), byte(rnd.Intn(256)), byte(rnd.Intn(256))}
			randKeys[i] = SingleKey(inet.Masked(inet.IPv4, uint8(rnd.Intn(33)), addr))
		}
		u, err := InetOps{}.Union(randKeys)
		require.NoError(t, err)
		require.False(t, u.Mixed, "single-family union is never mixed")
		for _, k := range randKeys {
			assert.True(t, k.Net.SubnetOrEqual(u.Net), "%s not covered by %s", k.Net, u.Net)
		}
	}
}

// TestInetOneLevelSoundness checks the covering guarantee on random pages:
// when a leaf key satisfies a query, the union of its page must stay
// consistent as an inner key.
func TestInetOneLevelSoundness(t *testing.T) {
	rnd := rand.New(rand.NewSource(3))
	randNetwork := func() inet.Network {
		family := inet.IPv4
		if rnd.Intn(4) == 0 {
			family = inet.IPv6
		}
		var addr [16]byte
		rnd.Read(addr[:])
		// Pinning some leading bytes makes shared prefixes likely.
		for i := 0; i < rnd.Intn(4); i++ {
			addr[i] = 10
		}
		return inet.Masked(family, uint8(rnd.Intn(family.MaxBits()+1)), addr)
	}

	strategies := []strategy.Number{
		strategy.Sub, strategy.SubEqual, strategy.Overlap,
		strategy.Super, strategy.SuperEqual,
		strategy.Less, strategy.LessEqual, strategy.Equal,
		strategy.GreaterEqual, strategy.Greater,
	}

	for trial := 0; trial < 200; trial++ {
		keys := make([]Key, 2+rnd.Intn(14))
		for i := range keys {
			keys[i] = SingleKey(randNetwork())
		}
		u, err := InetOps{}.Union(keys)
		require.NoError(t, err)

		arg := randNetwork()
		for _, s := range strategies {
			inner, err := InetOps{}.Consistent(u, s, arg, false)
			require.NoError(t, err)
			if inner {
				continue
			}
			for _, k := range keys {
				leaf, err := InetOps{}.Consistent(k, s, arg, true)
				require.NoError(t, err)
				require.False(t, leaf,
					"%s: leaf %v matches but its union %v was pruned", s, k.Net, u)
			}
		}
	}
}

func TestPenalty(t *testing.T) {
	penalty := func(orig, newKey Key) float32 {
		p, err := InetOps{}.Penalty(orig, newKey)
		require.NoError(t, err)
		return p
	}

	// The ladder above 1: diverging immediately, zero masklen, family
	// mismatch.
	assert.Equal(t, float32(2), penalty(key(t, "128.0.0.0/8"), key(t, "0.0.0.0/8")))
	assert.Equal(t, float32(3), penalty(key(t, "0.0.0.0/0"), key(t, "10.0.0.0/8")))
	assert.Equal(t, float32(3), penalty(MixedKey(), MixedKey()))
	assert.Equal(t, float32(4), penalty(key(t, "10.0.0.0/8"), key(t, "2001:db8::/32")))
	assert.Equal(t, float32(4), penalty(MixedKey(), key(t, "10.0.0.0/8")))

	// Below 1: the more bits in common, the cheaper the insertion.
	closeBy := penalty(key(t, "10.0.0.0/16"), key(t, "10.0.128.0/24"))
	farther := penalty(key(t, "10.0.0.0/16"), key(t, "10.64.0.0/24"))
	assert.Equal(t, float32(1)/16, closeBy)
	assert.Equal(t, float32(1)/9, farther)
	assert.Less(t, closeBy, farther)
}

func TestPickSplitByBit(t *testing.T) {
	keys := []Key{
		key(t, "10.0.0.0/16"),
		key(t, "10.1.0.0/16"),
		key(t, "10.2.0.0/16"),
		key(t, "10.3.0.0/16"),
	}

	split, err := InetOps{}.PickSplit(keys)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, split.LeftIndex)
	assert.Equal(t, []int{2, 3}, split.RightIndex)
	assert.Equal(t, "10.0.0.0/15", split.LeftUnion.Net.String())
	assert.Equal(t, "10.2.0.0/15", split.RightUnion.Net.String())
}

func TestPickSplitByFamily(t *testing.T) {
	keys := []Key{
		key(t, "10.0.0.0/8"),
		key(t, "2001:db8::/32"),
		key(t, "192.168.0.0/16"),
		key(t, "fe80::/10"),
	}

	split, err := InetOps{}.PickSplit(keys)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2}, split.LeftIndex)
	assert.Equal(t, []int{1, 3}, split.RightIndex)
	assert.False(t, split.LeftUnion.Mixed)
	assert.Equal(t, inet.IPv4, split.LeftUnion.Net.Family)
	assert.Equal(t, uint8(0), split.LeftUnion.Net.Bits)
	assert.Equal(t, inet.IPv6, split.RightUnion.Net.Family)

	// A mixed key among the low side degrades the left union to mixed.
	split, err = InetOps{}.PickSplit([]Key{MixedKey(), key(t, "10.0.0.0/8"), key(t, "2001:db8::/32")})
	require.NoError(t, err)
	assert.True(t, split.LeftUnion.Mixed)
	assert.Equal(t, []int{0, 1}, split.LeftIndex)
	assert.Equal(t, []int{2}, split.RightIndex)
}

func TestPickSplitDegenerate(t *testing.T) {
	// Identical keys: no bit distinguishes them, one extra bit is stolen
	// and everything lands left.
	keys := []Key{key(t, "10.0.0.0/16"), key(t, "10.0.0.0/16")}

	split, err := InetOps{}.PickSplit(keys)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, split.LeftIndex)
	assert.Empty(t, split.RightIndex)
	assert.Equal(t, "10.0.0.0/17", split.LeftUnion.Net.String())
	assert.Equal(t, "10.0.128.0/17", split.RightUnion.Net.String())
}

func TestPickSplitErrors(t *testing.T) {
	_, err := InetOps{}.PickSplit(nil)
	assert.ErrorIs(t, err, ErrContractViolation)
	_, err = InetOps{}.PickSplit([]Key{MixedKey(), MixedKey()})
	assert.ErrorIs(t, err, ErrContractViolation)
}

func TestSame(t *testing.T) {
	assert.True(t, InetOps{}.Same(key(t, "10.0.0.0/8"), key(t, "10.0.0.0/8")))
	assert.False(t, InetOps{}.Same(key(t, "10.0.0.0/8"), key(t, "10.0.0.0/9")))
	assert.False(t, InetOps{}.Same(key(t, "10.0.0.0/8"), key(t, "11.0.0.0/8")))
	assert.False(t, InetOps{}.Same(key(t, "10.0.0.0/8"), MixedKey()))
	assert.True(t, InetOps{}.Same(MixedKey(), MixedKey()))
	// Host bits count: keys are whole values, not just prefixes.
	assert.False(t, InetOps{}.Same(key(t, "10.0.0.1/8"), key(t, "10.0.0.2/8")))
}
