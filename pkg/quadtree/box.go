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
	"sort"

	"github.com/cidrbox/cidrbox/pkg/geo"
	"github.com/cidrbox/cidrbox/pkg/strategy"
)

// BoxOps is the operator class for 2-D boxes, treated as points in 4-D
// space. Every inner node holds a centroid box and splits that space into 16
// quadrants. During search, the chain of (centroid, quadrant) pairs above a
// node is folded into a geo.Region that bounds every box below it; the
// region, not the centroid alone, decides which quadrants can still match.
type BoxOps struct{}

var _ OpClass[geo.Box, *geo.Region] = BoxOps{}

// boxFanOut is the child count of every inner node: one per 4-bit quadrant
// code.
const boxFanOut = 16

func (BoxOps) Config() Config {
	return Config{CanReturnData: true, LongValuesOK: false}
}

// boxQuadrant computes the 4-bit quadrant code of b relative to the
// centroid: bit 3 for low.x, bit 2 for high.x, bit 1 for low.y, bit 0 for
// high.y, each set when b's coordinate exceeds the centroid's.
func boxQuadrant(centroid, b geo.Box) int {
	q := 0
	if b.Low.X > centroid.Low.X {
		q |= 0x8
	}
	if b.High.X > centroid.High.X {
		q |= 0x4
	}
	if b.Low.Y > centroid.Low.Y {
		q |= 0x2
	}
	if b.High.Y > centroid.High.Y {
		q |= 0x1
	}
	return q
}

// tightenAxis narrows one axis of the parent region when descending into a
// quadrant. A clear quadrant bit caps the projection from above at the
// centroid's value; a set bit raises the floor to it.
func tightenAxis(r geo.AxisRegion, c geo.Interval, lowBit, highBit bool) geo.AxisRegion {
	if lowBit {
		r.Low.Low = geo.Finite(c.Low)
	} else {
		r.Low.High = geo.Finite(c.Low)
	}
	if highBit {
		r.High.Low = geo.Finite(c.High)
	} else {
		r.High.High = geo.Finite(c.High)
	}
	return r
}

// tightenRegion is the per-quadrant region for a child, derived from the
// parent region and the node's centroid.
func tightenRegion(r geo.Region, centroid geo.RangeBox, quadrant int) geo.Region {
	return geo.Region{
		X: tightenAxis(r.X, centroid.X, quadrant&0x8 != 0, quadrant&0x4 != 0),
		Y: tightenAxis(r.Y, centroid.Y, quadrant&0x2 != 0, quadrant&0x1 != 0),
	}
}

func (BoxOps) Choose(in ChooseIn[geo.Box]) (Choice[geo.Box], error) {
	if in.AllTheSame {
		return Choice[geo.Box]{Kind: MatchNode, Node: NodeUnset, Rest: in.Value}, nil
	}
	if in.Prefix == nil {
		return Choice[geo.Box]{}, fmt.Errorf("box choose without a centroid: %w", ErrContractViolation)
	}
	return Choice[geo.Box]{
		Kind: MatchNode,
		Node: boxQuadrant(*in.Prefix, in.Value),
		Rest: in.Value,
	}, nil
}

// PickSplit picks the centroid as the coordinate-wise median of the input
// boxes: each of the four projections is sorted independently and the
// element at index n/2 is taken. The values are then assigned to the 16
// quadrants relative to that centroid.
func (BoxOps) PickSplit(values []geo.Box) (Split[geo.Box], error) {
	if len(values) == 0 {
		return Split[geo.Box]{}, fmt.Errorf("box picksplit with no values: %w", ErrContractViolation)
	}

	n := len(values)
	lowXs := make([]float64, n)
	highXs := make([]float64, n)
	lowYs := make([]float64, n)
	highYs := make([]float64, n)
	for i, b := range values {
		lowXs[i] = b.Low.X
		highXs[i] = b.High.X
		lowYs[i] = b.Low.Y
		highYs[i] = b.High.Y
	}
	sort.Float64s(lowXs)
	sort.Float64s(highXs)
	sort.Float64s(lowYs)
	sort.Float64s(highYs)

	median := n / 2
	centroid := geo.Box{
		Low:  geo.Point{X: lowXs[median], Y: lowYs[median]},
		High: geo.Point{X: highXs[median], Y: highYs[median]},
	}

	out := Split[geo.Box]{
		Prefix:    &centroid,
		NodeCount: boxFanOut,
		Mapping:   make([]int, n),
	}
	for i, b := range values {
		out.Mapping[i] = boxQuadrant(centroid, b)
	}
	return out, nil
}

func (BoxOps) InnerConsistent(in InnerIn[geo.Box, *geo.Region]) (InnerOut[*geo.Region], error) {
	region := in.Traversal
	if region == nil {
		// Just started walking the tree.
		r := geo.UnboundedRegion()
		region = &r
	}

	if in.AllTheSame {
		// Visit every child; the region cannot be narrowed.
		out := InnerOut[*geo.Region]{
			Nodes:      make([]int, in.NodeCount),
			Traversals: make([]*geo.Region, in.NodeCount),
		}
		for node := 0; node < in.NodeCount; node++ {
			child := *region
			out.Nodes[node] = node
			out.Traversals[node] = &child
		}
		return out, nil
	}

	if in.Prefix == nil {
		return InnerOut[*geo.Region]{}, fmt.Errorf("box inner consistent without a centroid: %w", ErrContractViolation)
	}
	centroid := geo.NewRangeBox(*in.Prefix)

	var out InnerOut[*geo.Region]
	for quadrant := 0; quadrant < in.NodeCount; quadrant++ {
		child := tightenRegion(*region, centroid, quadrant)
		keep := true
		for _, q := range in.Queries {
			arg := geo.NewRangeBox(q.Arg)
			switch q.Strategy {
			case strategy.Overlap:
				keep = child.MayIntersect(arg)
			case strategy.Contains:
				keep = child.MayContain(arg)
			case strategy.ContainedBy:
				keep = child.MayBeContainedBy(arg)
			case strategy.Left:
				keep = child.MayBeLeftOf(arg)
			case strategy.Right:
				keep = child.MayBeRightOf(arg)
			case strategy.Above:
				keep = child.MayBeAbove(arg)
			case strategy.Below:
				keep = child.MayBeBelow(arg)
			default:
				return InnerOut[*geo.Region]{}, fmt.Errorf("box inner consistent: %s: %w", q.Strategy, ErrUnsupportedStrategy)
			}
			if !keep {
				break
			}
		}
		if keep {
			childCopy := child
			out.Nodes = append(out.Nodes, quadrant)
			out.Traversals = append(out.Traversals, &childCopy)
		}
	}
	return out, nil
}

func (BoxOps) LeafConsistent(in LeafIn[geo.Box]) (LeafOut, error) {
	for _, q := range in.Queries {
		var match bool
		switch q.Strategy {
		case strategy.Overlap:
			match = in.Value.Overlaps(q.Arg)
		case strategy.Contains:
			match = in.Value.Contains(q.Arg)
		case strategy.ContainedBy:
			match = in.Value.ContainedBy(q.Arg)
		case strategy.Left:
			match = in.Value.Left(q.Arg)
		case strategy.Right:
			match = in.Value.Right(q.Arg)
		case strategy.Above:
			match = in.Value.Above(q.Arg)
		case strategy.Below:
			match = in.Value.Below(q.Arg)
		default:
			return LeafOut{}, fmt.Errorf("box leaf consistent: %s: %w", q.Strategy, ErrUnsupportedStrategy)
		}
		if !match {
			return LeafOut{}, nil
		}
	}
	return LeafOut{Matches: true}, nil
}
