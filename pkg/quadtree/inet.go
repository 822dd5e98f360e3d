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

package quadtree

import (
	"fmt"

	"github.com/cidrbox/cidrbox/pkg/inet"
	"github.com/cidrbox/cidrbox/pkg/strategy"
)

// InetOps is the operator class for IP network values. Inner nodes hold a
// masked network as the prefix and have a static number of children: 2 for
// the node splitting the address families, 4 for all others.
//
// Within the 4-way nodes, children 0 and 1 hold values whose masklen equals
// the prefix's, split by the next host bit; children 2 and 3 hold values
// with a bigger masklen (smaller networks), split by the next network bit.
// Bigger networks can never live under smaller ones, which is what forces a
// node split when one arrives late.
type InetOps struct{}

// The network tree needs no traversal bookkeeping: the node prefix alone
// decides consistency.
var _ OpClass[inet.Network, struct{}] = InetOps{}

// Child slots of a 4-way node.
const (
	inetFanOut       = 4
	sameLenMask      = 0x3 // children 0 and 1: masklen equal to the prefix's
	longerLenMask    = 0xc // children 2 and 3: strictly longer masklen
	inetFamilyFanOut = 2
)

func (InetOps) Config() Config {
	return Config{CanReturnData: true, LongValuesOK: false}
}

// familyNode is the child slot of a family-split node.
func familyNode(f inet.Family) int {
	if f == inet.IPv4 {
		return 0
	}
	return 1
}

// inetNodeNumber is the 4-way child slot for a value under a node whose
// prefix has commonbits network bits: +1 when the value has an address bit
// beyond commonbits and it is set, +2 when the value's masklen exceeds
// commonbits.
func inetNodeNumber(n inet.Network, commonbits int) int {
	node := 0
	if commonbits < n.MaxBits() && n.AddrBit(commonbits) {
		node++
	}
	if commonbits < int(n.Bits) {
		node += 2
	}
	return node
}

func (InetOps) Choose(in ChooseIn[inet.Network]) (Choice[inet.Network], error) {
	// A node without a prefix splits the families. PickSplit only builds
	// such a node when both families are present, so it can never be
	// all-the-same.
	if in.Prefix == nil {
		if in.AllTheSame {
			return Choice[inet.Network]{}, fmt.Errorf("family-split node marked all-the-same: %w", ErrContractViolation)
		}
		return Choice[inet.Network]{
			Kind: MatchNode,
			Node: familyNode(in.Value.Family),
			Rest: in.Value,
		}, nil
	}

	prefix := *in.Prefix
	commonbits := int(prefix.Bits)

	// Addresses from different families cannot share an inner node: split
	// it into a prefix-less family node and re-home the current prefix.
	if in.Value.Family != prefix.Family {
		return Choice[inet.Network]{
			Kind:           SplitNode,
			NewPrefix:      nil,
			NewNodeCount:   inetFamilyFanOut,
			ExistingNode:   familyNode(prefix.Family),
			ExistingPrefix: in.Prefix,
		}, nil
	}

	if in.AllTheSame {
		// The traversal engine assigns the child itself.
		return Choice[inet.Network]{Kind: MatchNode, Node: NodeUnset, Rest: in.Value}, nil
	}

	// A bigger network cannot live under an inner node of a smaller one:
	// shorten the prefix and push the node's content one level down.
	if int(in.Value.Bits) < commonbits ||
		inet.ComparePrefix(prefix.AddrBytes(), in.Value.AddrBytes(), commonbits) != 0 {
		shorter := inet.CommonPrefixBits(prefix.AddrBytes(), in.Value.AddrBytes(), int(in.Value.Bits))
		newPrefix := inet.Masked(in.Value.Family, uint8(shorter), in.Value.Addr)
		return Choice[inet.Network]{
			Kind:           SplitNode,
			NewPrefix:      &newPrefix,
			NewNodeCount:   inetFanOut,
			ExistingNode:   inetNodeNumber(prefix, shorter),
			ExistingPrefix: in.Prefix,
		}, nil
	}

	return Choice[inet.Network]{
		Kind: MatchNode,
		Node: inetNodeNumber(in.Value, commonbits),
		Rest: in.Value,
	}, nil
}

// PickSplit splits 2-way by family when both families appear. Otherwise it
// finds the number of leading bits shared by all values, bounded by the
// minimum masklen among them, and splits 4-way on the next bit and on
// masklen as in inetNodeNumber.
func (InetOps) PickSplit(values []inet.Network) (Split[inet.Network], error) {
	if len(values) == 0 {
		return Split[inet.Network]{}, fmt.Errorf("network picksplit with no values: %w", ErrContractViolation)
	}

	first := values[0]
	commonbits := int(first.Bits)
	differentFamilies := false
	for _, v := range values[1:] {
		if v.Family != first.Family {
			differentFamilies = true
			break
		}
		// commonbits can bottom out before the scan ends, but the family
		// check must still see every value.
		if int(v.Bits) < commonbits {
			commonbits = int(v.Bits)
		}
		if commonbits > 0 {
			commonbits = inet.CommonPrefixBits(first.AddrBytes(), v.AddrBytes(), commonbits)
		}
	}

	out := Split[inet.Network]{Mapping: make([]int, len(values))}
	if differentFamilies {
		out.NodeCount = inetFamilyFanOut
		for i, v := range values {
			out.Mapping[i] = familyNode(v.Family)
		}
		return out, nil
	}

	prefix := inet.Masked(first.Family, uint8(commonbits), first.Addr)
	out.Prefix = &prefix
	out.NodeCount = inetFanOut
	for i, v := range values {
		out.Mapping[i] = inetNodeNumber(v, commonbits)
	}
	return out, nil
}

func (InetOps) InnerConsistent(in InnerIn[inet.Network, struct{}]) (InnerOut[struct{}], error) {
	if in.AllTheSame {
		// A prefix-less node cannot be all-the-same, see Choose.
		if in.Prefix == nil {
			return InnerOut[struct{}]{}, fmt.Errorf("family-split node marked all-the-same: %w", ErrContractViolation)
		}
		out := InnerOut[struct{}]{Nodes: make([]int, in.NodeCount)}
		for i := range out.Nodes {
			out.Nodes[i] = i
		}
		return out, nil
	}

	var bitmap uint8
	var err error
	if in.Prefix == nil {
		bitmap, err = familySplitBitmap(in.Queries)
	} else {
		bitmap, err = inetConsistentBitmap(*in.Prefix, in.Queries, false)
	}
	if err != nil {
		return InnerOut[struct{}]{}, err
	}

	var out InnerOut[struct{}]
	for node := 0; node < in.NodeCount; node++ {
		if bitmap&(1<<node) != 0 {
			out.Nodes = append(out.Nodes, node)
		}
	}
	return out, nil
}

func (InetOps) LeafConsistent(in LeafIn[inet.Network]) (LeafOut, error) {
	bitmap, err := inetConsistentBitmap(in.Value, in.Queries, true)
	if err != nil {
		return LeafOut{}, err
	}
	return LeafOut{Matches: bitmap != 0}, nil
}

func checkInetStrategy(s strategy.Number) error {
	switch s {
	case strategy.Sub, strategy.SubEqual, strategy.Overlap,
		strategy.Super, strategy.SuperEqual:
		return nil
	}
	if s.IsBasicComparison() {
		return nil
	}
	return fmt.Errorf("network consistent: %s: %w", s, ErrUnsupportedStrategy)
}

// familySplitBitmap selects the children of the prefix-less node (child 0:
// v4, child 1: v6). Only the total-order strategies can eliminate a family
// outright: everything v4 orders below everything v6.
func familySplitBitmap(queries []Query[inet.Network]) (uint8, error) {
	bitmap := uint8(1 | 1<<1)
	for _, q := range queries {
		if err := checkInetStrategy(q.Strategy); err != nil {
			return 0, err
		}
		switch q.Strategy {
		case strategy.Less, strategy.LessEqual:
			if q.Arg.Family == inet.IPv4 {
				bitmap &= 1
			}
		case strategy.GreaterEqual, strategy.Greater:
			if q.Arg.Family == inet.IPv6 {
				bitmap &= 1 << 1
			}
		}
	}
	return bitmap, nil
}

// inetConsistentBitmap computes the set of consistent children of a 4-way
// node (inner) or the 1-bit match decision for a value (leaf); the checks
// are almost entirely common, which is the reason to share the function.
//
// The bitmap is pruned in stages: family, masklen ordering against the
// query's, the common network bits, the query's next bit, and finally (for
// the total-order strategies) masklen again and the whole address. Every
// stage either zeroes the bitmap (terminal), restricts it to the same- or
// longer-masklen pair, or drops one branch of a pair.
func inetConsistentBitmap(prefix inet.Network, queries []Query[inet.Network], leaf bool) (uint8, error) {
	var bitmap uint8 = sameLenMask | longerLenMask
	if leaf {
		bitmap = 1
	}
	commonbits := int(prefix.Bits)

	for _, q := range queries {
		if err := checkInetStrategy(q.Strategy); err != nil {
			return 0, err
		}
		arg := q.Arg

		// Stage 0: family. Nothing below this node can satisfy an
		// inclusion or equality strategy for the other family; the
		// total-order strategies survive on the family ordering alone.
		if arg.Family != prefix.Family {
			switch q.Strategy {
			case strategy.Less, strategy.LessEqual:
				if arg.Family < prefix.Family {
					bitmap = 0
				}
			case strategy.GreaterEqual, strategy.Greater:
				if arg.Family > prefix.Family {
					bitmap = 0
				}
			case strategy.NotEqual:
			default:
				bitmap = 0
			}
			if bitmap == 0 {
				break
			}
			continue
		}

		// Stage 1: masklen. Every value under a child of the longer-
		// masklen pair has more network bits than the prefix; the
		// same-masklen pair has exactly as many. For the total-order
		// strategies this stage must wait until the common bits are
		// known equal, see stage 4.
		switch q.Strategy {
		case strategy.Sub:
			if commonbits <= int(arg.Bits) {
				bitmap &= longerLenMask
			}
		case strategy.SubEqual:
			if commonbits < int(arg.Bits) {
				bitmap &= longerLenMask
			}
		case strategy.Super:
			if commonbits == int(arg.Bits)-1 {
				bitmap &= sameLenMask
			} else if commonbits >= int(arg.Bits) {
				bitmap = 0
			}
		case strategy.SuperEqual:
			if commonbits == int(arg.Bits) {
				bitmap &= sameLenMask
			} else if commonbits > int(arg.Bits) {
				bitmap = 0
			}
		case strategy.Equal:
			if commonbits < int(arg.Bits) {
				bitmap &= longerLenMask
			} else if commonbits == int(arg.Bits) {
				bitmap &= sameLenMask
			} else {
				bitmap = 0
			}
		}
		if bitmap == 0 {
			break
		}

		// Stage 2: common network bits, bounded by both the query's
		// masklen and the bits actually represented here.
		cmpBits := commonbits
		if int(arg.Bits) < cmpBits {
			cmpBits = int(arg.Bits)
		}
		order := inet.ComparePrefix(prefix.AddrBytes(), arg.AddrBytes(), cmpBits)
		if order != 0 {
			switch q.Strategy {
			case strategy.Less, strategy.LessEqual:
				if order > 0 {
					bitmap = 0
				}
			case strategy.GreaterEqual, strategy.Greater:
				if order < 0 {
					bitmap = 0
				}
			case strategy.NotEqual:
			default:
				bitmap = 0
			}
			if bitmap == 0 {
				break
			}
			// The remaining stages assume matching common bits.
			continue
		}

		// Stage 3: the query's next network bit splits the longer-
		// masklen pair.
		if bitmap&longerLenMask != 0 && commonbits < int(arg.Bits) {
			nextbit := arg.AddrBit(commonbits)
			switch q.Strategy {
			case strategy.Less, strategy.LessEqual:
				if !nextbit {
					bitmap &= sameLenMask | 1<<2
				}
			case strategy.GreaterEqual, strategy.Greater:
				if nextbit {
					bitmap &= sameLenMask | 1<<3
				}
			case strategy.NotEqual:
			default:
				if !nextbit {
					bitmap &= sameLenMask | 1<<2
				} else {
					bitmap &= sameLenMask | 1<<3
				}
			}
			if bitmap == 0 {
				break
			}
		}

		// The remaining stages only matter for the total-order
		// strategies.
		if !q.Strategy.IsBasicComparison() {
			continue
		}

		// Stage 4: masklen again, now that the common bits are known
		// equal.
		switch q.Strategy {
		case strategy.Less, strategy.LessEqual:
			if commonbits == int(arg.Bits) {
				bitmap &= sameLenMask
			} else if commonbits > int(arg.Bits) {
				bitmap = 0
			}
		case strategy.GreaterEqual, strategy.Greater:
			if commonbits < int(arg.Bits) {
				bitmap &= longerLenMask
			}
		}
		if bitmap == 0 {
			break
		}
		if commonbits != int(arg.Bits) {
			continue
		}

		// Stage 5: the query's next host bit splits the same-masklen
		// pair. Skipped for leaves: the whole address is checked next
		// anyway, and skipping keeps the leaf bitmap confined to bit 0.
		if !leaf && bitmap&sameLenMask != 0 && commonbits < arg.MaxBits() {
			nextbit := arg.AddrBit(commonbits)
			switch q.Strategy {
			case strategy.Less, strategy.LessEqual:
				if !nextbit {
					bitmap &= 1 | longerLenMask
				}
			case strategy.GreaterEqual, strategy.Greater:
				if nextbit {
					bitmap &= 1<<1 | longerLenMask
				}
			case strategy.NotEqual:
			default:
				if !nextbit {
					bitmap &= 1 | longerLenMask
				} else {
					bitmap &= 1<<1 | longerLenMask
				}
			}
			if bitmap == 0 {
				break
			}
		}

		// Stage 6: whole address, leaves only.
		if leaf {
			order = inet.ComparePrefix(prefix.AddrBytes(), arg.AddrBytes(), prefix.MaxBits())
			switch q.Strategy {
			case strategy.Less:
				if order >= 0 {
					bitmap = 0
				}
			case strategy.LessEqual:
				if order > 0 {
					bitmap = 0
				}
			case strategy.Equal:
				if order != 0 {
					bitmap = 0
				}
			case strategy.GreaterEqual:
				if order < 0 {
					bitmap = 0
				}
			case strategy.Greater:
				if order <= 0 {
					bitmap = 0
				}
			case strategy.NotEqual:
				if order == 0 {
					bitmap = 0
				}
			}
			if bitmap == 0 {
				break
			}
		}
	}

	return bitmap, nil
}
