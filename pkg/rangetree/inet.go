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
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/cidrbox/cidrbox/pkg/inet"
	"github.com/cidrbox/cidrbox/pkg/strategy"
)

var log = logrus.WithField("component", "rangetree.InetOps")

// InetOps is the operator class for IP network keys. Every key, leaf or
// inner, is itself a network: the union of a subtree is the common prefix
// of everything below it, so all the support operations reduce to prefix
// arithmetic.
type InetOps struct{}

var _ OpClass[Key] = InetOps{}

// familyCode gives the ordering code of a key's family. Mixed keys sort
// below every proper family, matching their match-everything role at the
// top of the tree.
func familyCode(k Key) int {
	if k.Mixed {
		return 0
	}
	return int(k.Net.Family)
}

func keyBits(k Key) int {
	if k.Mixed {
		return 0
	}
	return int(k.Net.Bits)
}

func checkConsistentStrategy(s strategy.Number) error {
	switch s {
	case strategy.Sub, strategy.SubEqual, strategy.Overlap,
		strategy.SuperEqual, strategy.Super,
		strategy.Less, strategy.LessEqual, strategy.Equal,
		strategy.GreaterEqual, strategy.Greater:
		return nil
	}
	return fmt.Errorf("network consistent: %s: %w", s, ErrUnsupportedStrategy)
}

// Consistent runs a ladder of cheap checks, each either deciding the
// outcome or narrowing what the next one has to consider: family, masklen
// against the argument's, the common network bits, and for the total-order
// strategies on leaves, masklen again and the whole address. Every strategy
// here is exact, no recheck is ever needed.
func (InetOps) Consistent(key Key, strat strategy.Number, arg inet.Network, leaf bool) (bool, error) {
	if err := checkConsistentStrategy(strat); err != nil {
		return false, err
	}

	// A mixed key subsumes both families and can say nothing.
	if key.Mixed {
		return true, nil
	}
	orig := key.Net

	// Family: only the total-order strategies can survive a mismatch,
	// and then the family ordering alone decides.
	if orig.Family != arg.Family {
		switch strat {
		case strategy.Less, strategy.LessEqual:
			return orig.Family < arg.Family, nil
		case strategy.GreaterEqual, strategy.Greater:
			return orig.Family > arg.Family, nil
		}
		return false, nil
	}

	// Masklen: a subnet has strictly more network bits than its
	// supernet. For supernet strategies this holds on inner keys too,
	// since the union's masklen never exceeds any leaf's.
	switch strat {
	case strategy.Sub:
		if leaf && orig.Bits <= arg.Bits {
			return false, nil
		}
	case strategy.SubEqual:
		if leaf && orig.Bits < arg.Bits {
			return false, nil
		}
	case strategy.SuperEqual:
		if orig.Bits > arg.Bits {
			return false, nil
		}
	case strategy.Super:
		if orig.Bits >= arg.Bits {
			return false, nil
		}
	}

	// With no network bits to compare there is nothing left to prune,
	// except the leaf-level total-order checks below.
	minbits := int(orig.Bits)
	if int(arg.Bits) < minbits {
		minbits = int(arg.Bits)
	}
	if minbits == 0 {
		switch strat {
		case strategy.Sub, strategy.SubEqual, strategy.Overlap,
			strategy.SuperEqual, strategy.Super:
			return true, nil
		}
		if !leaf {
			return true, nil
		}
	}

	if minbits > 0 {
		order := inet.ComparePrefix(orig.AddrBytes(), arg.AddrBytes(), minbits)
		switch strat {
		case strategy.Sub, strategy.SubEqual, strategy.Overlap,
			strategy.SuperEqual, strategy.Super:
			// The inclusion strategies are settled entirely by the
			// common network bits.
			return order == 0, nil
		case strategy.Less, strategy.LessEqual:
			if order > 0 {
				return false, nil
			}
			if order < 0 || !leaf {
				return true, nil
			}
		case strategy.Equal:
			if order != 0 {
				return false, nil
			}
			if !leaf {
				return true, nil
			}
		case strategy.GreaterEqual, strategy.Greater:
			if order < 0 {
				return false, nil
			}
			if order > 0 || !leaf {
				return true, nil
			}
		}
	}

	// Only leaves and total-order strategies reach this point. Whole
	// addresses are only compared when the masklens are equal, matching
	// the canonical network ordering.
	switch strat {
	case strategy.Less, strategy.LessEqual:
		if orig.Bits < arg.Bits {
			return true, nil
		}
		if orig.Bits > arg.Bits {
			return false, nil
		}
	case strategy.Equal:
		if orig.Bits != arg.Bits {
			return false, nil
		}
	case strategy.GreaterEqual, strategy.Greater:
		if orig.Bits > arg.Bits {
			return true, nil
		}
		if orig.Bits < arg.Bits {
			return false, nil
		}
	}

	order := inet.ComparePrefix(orig.AddrBytes(), arg.AddrBytes(), orig.MaxBits())
	switch strat {
	case strategy.Less:
		return order < 0, nil
	case strategy.LessEqual:
		return order <= 0, nil
	case strategy.Equal:
		return order == 0, nil
	case strategy.GreaterEqual:
		return order >= 0, nil
	case strategy.Greater:
		return order > 0, nil
	}

	return false, fmt.Errorf("network consistent: %s fell through: %w", strat, ErrContractViolation)
}

// Union narrows the common prefix over the keys. Any step across a family
// boundary collapses the result to the mixed key; so does folding in a key
// that is itself mixed.
func (InetOps) Union(keys []Key) (Key, error) {
	if len(keys) == 0 {
		return Key{}, fmt.Errorf("network union with no keys: %w", ErrContractViolation)
	}

	first := keys[0]
	if first.Mixed {
		return MixedKey(), nil
	}
	family := first.Net.Family
	bits := int(first.Net.Bits)
	addr := first.Net.AddrBytes()

	for _, k := range keys[1:] {
		if k.Mixed || k.Net.Family != family {
			return MixedKey(), nil
		}
		if int(k.Net.Bits) < bits {
			bits = int(k.Net.Bits)
		}
		if bits != 0 {
			bits = inet.CommonPrefixBits(addr, k.Net.AddrBytes(), bits)
		}
	}

	return SingleKey(inet.Masked(family, uint8(bits), first.Net.Addr)), nil
}

// Penalty is the reciprocal of the common bit count between the two keys.
// The steps above 1 rank the cases where no common bits exist: same family
// but diverging immediately, a zero masklen on either side, and finally
// different families.
func (InetOps) Penalty(orig, newKey Key) (float32, error) {
	if familyCode(orig) != familyCode(newKey) {
		return 4, nil
	}
	if orig.Mixed {
		// Both mixed: nothing to distinguish insertion targets by.
		return 3, nil
	}

	minbits := keyBits(orig)
	if nb := keyBits(newKey); nb < minbits {
		minbits = nb
	}
	if minbits == 0 {
		return 3, nil
	}

	commonbits := inet.CommonPrefixBits(orig.Net.AddrBytes(), newKey.Net.AddrBytes(), minbits)
	if commonbits == 0 {
		return 2, nil
	}
	return 1 / float32(commonbits), nil
}

// PickSplit splits by family when more than one is present; the lower
// family goes left. Otherwise it finds the common prefix of all keys and
// splits on the first bit past it: clear goes left, set goes right.
func (InetOps) PickSplit(keys []Key) (Split[Key], error) {
	if len(keys) == 0 {
		return Split[Key]{}, fmt.Errorf("network picksplit with no keys: %w", ErrContractViolation)
	}

	minFamily := familyCode(keys[0])
	maxFamily := minFamily
	minbits := keyBits(keys[0])
	commonbits := minbits
	addr := keys[0].Net.AddrBytes()

	for _, k := range keys[1:] {
		f := familyCode(k)
		if f != minFamily && f != maxFamily {
			commonbits = 0
			if f < minFamily {
				minFamily = f
			}
			if f > maxFamily {
				maxFamily = f
			}
		}
		if kb := keyBits(k); kb < minbits {
			minbits = kb
		}
		if kb := keyBits(k); kb < commonbits {
			commonbits = kb
		}
		if commonbits != 0 {
			commonbits = inet.CommonPrefixBits(addr, k.Net.AddrBytes(), commonbits)
		}
	}

	var out Split[Key]

	if minFamily != maxFamily {
		// Keys below the highest family all go left. The left union
		// degrades to mixed when they still span more than one family,
		// which can only happen when mixed keys are among them.
		leftMixed := false
		var leftNet, rightNet inet.Network
		for i, k := range keys {
			if familyCode(k) != maxFamily {
				if familyCode(k) != minFamily || k.Mixed {
					leftMixed = true
				} else {
					leftNet = inet.Masked(k.Net.Family, 0, k.Net.Addr)
				}
				out.LeftIndex = append(out.LeftIndex, i)
			} else {
				rightNet = inet.Masked(k.Net.Family, 0, k.Net.Addr)
				out.RightIndex = append(out.RightIndex, i)
			}
		}
		if leftMixed {
			out.LeftUnion = MixedKey()
		} else {
			out.LeftUnion = SingleKey(leftNet)
		}
		out.RightUnion = SingleKey(rightNet)
		return out, nil
	}

	if keys[0].Mixed {
		// All keys mixed, see familyCode. A real tree only holds one
		// mixed key, at the root.
		return Split[Key]{}, fmt.Errorf("network picksplit over only mixed keys: %w", ErrContractViolation)
	}
	family := keys[0].Net.Family

	// When every key shares all of its shortest masklen, there is no bit
	// left to split on. Stealing one more bit still separates the keys
	// whenever any of them is longer than the common prefix.
	if commonbits != minbits {
		commonbits++
	} else {
		log.Debugf("degenerate page split: all %d network bits equal across %d keys", commonbits, len(keys))
		degenerateSplits.Inc()
		if commonbits < family.MaxBits() {
			commonbits++
		}
	}
	if commonbits == 0 {
		// Single-family /0 keys only: no addresses to separate, put
		// everything left.
		zero := SingleKey(inet.Masked(family, 0, keys[0].Net.Addr))
		for i := range keys {
			out.LeftIndex = append(out.LeftIndex, i)
		}
		out.LeftUnion = zero
		out.RightUnion = zero
		return out, nil
	}

	// Masking to the split bit leaves it clear on the left union; the
	// right union is the same prefix with it set.
	splitBit := commonbits - 1
	left := inet.Masked(family, uint8(splitBit), keys[0].Net.Addr)
	left.Bits = uint8(commonbits)
	right := left.WithAddrBitSet(splitBit)

	for i, k := range keys {
		if inet.ComparePrefix(right.AddrBytes(), k.Net.AddrBytes(), commonbits) == 0 {
			out.RightIndex = append(out.RightIndex, i)
		} else {
			out.LeftIndex = append(out.LeftIndex, i)
		}
	}
	out.LeftUnion = SingleKey(left)
	out.RightUnion = SingleKey(right)
	return out, nil
}

// Same reports key interchangeability: the mixed tag, the family, the
// masklen and the whole address all have to agree.
func (InetOps) Same(a, b Key) bool {
	if a.Mixed != b.Mixed {
		return false
	}
	if a.Mixed {
		return true
	}
	return a.Net.Family == b.Net.Family &&
		a.Net.Bits == b.Net.Bits &&
		inet.ComparePrefix(a.Net.AddrBytes(), b.Net.AddrBytes(), a.Net.MaxBits()) == 0
}
