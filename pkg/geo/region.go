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

package geo

// Interval is a closed interval of reals.
type Interval struct {
	Low  float64
	High float64
}

// RangeBox is a box viewed as a point in four dimensions: one interval per
// axis, holding the low and high projections of that axis.
type RangeBox struct {
	X Interval
	Y Interval
}

// NewRangeBox projects a box onto its two axes.
func NewRangeBox(b Box) RangeBox {
	return RangeBox{
		X: Interval{Low: b.Low.X, High: b.High.X},
		Y: Interval{Low: b.Low.Y, High: b.High.Y},
	}
}

// Bound is one edge of an unbounded interval: either a finite value or an
// infinity tag. Tags order above/below every value, including IEEE
// infinities stored in real boxes.
type Bound struct {
	Inf int8 // -1 below everything, 0 finite, +1 above everything
	Val float64
}

// Finite wraps a finite value.
func Finite(v float64) Bound { return Bound{Val: v} }

var (
	NegInf = Bound{Inf: -1}
	PosInf = Bound{Inf: 1}
)

// Cmp compares the bound with a finite value.
func (b Bound) Cmp(v float64) int {
	if b.Inf > 0 {
		return 1
	}
	if b.Inf < 0 {
		return -1
	}
	if b.Val < v {
		return -1
	}
	if b.Val > v {
		return 1
	}
	return 0
}

// UnboundedInterval is an interval whose edges may be infinity tags. It only
// exists as tree-traversal bookkeeping, never on disk.
type UnboundedInterval struct {
	Low  Bound
	High Bound
}

// AxisRegion constrains one axis of every box under a subtree: an unbounded
// interval for the possible low projections and one for the possible high
// projections.
type AxisRegion struct {
	Low  UnboundedInterval
	High UnboundedInterval
}

// Region is the known constraint region for an entire subtree, one
// AxisRegion per axis.
type Region struct {
	X AxisRegion
	Y AxisRegion
}

// UnboundedRegion covers all of space. The search starts from it at the
// root.
func UnboundedRegion() Region {
	all := UnboundedInterval{Low: NegInf, High: PosInf}
	axis := AxisRegion{Low: all, High: all}
	return Region{X: axis, Y: axis}
}

// MayIntersect answers: can any interval from the region intersect q?
func (r AxisRegion) MayIntersect(q Interval) bool {
	return r.High.High.Cmp(q.Low) >= 0 && r.Low.Low.Cmp(q.High) <= 0
}

// MayContain answers: can any interval from the region contain q?
func (r AxisRegion) MayContain(q Interval) bool {
	return r.High.High.Cmp(q.High) >= 0 && r.Low.Low.Cmp(q.Low) <= 0
}

// MayBeContainedBy answers: can q contain any interval from the region?
func (r AxisRegion) MayBeContainedBy(q Interval) bool {
	return r.Low.Low.Cmp(q.High) <= 0 && r.Low.High.Cmp(q.Low) >= 0 &&
		r.High.Low.Cmp(q.High) <= 0 && r.High.High.Cmp(q.Low) >= 0
}

// MayBeLower answers: can any interval from the region lie strictly below
// q.Low?
func (r AxisRegion) MayBeLower(q Interval) bool {
	return r.Low.Low.Cmp(q.Low) < 0 && r.High.Low.Cmp(q.Low) < 0
}

// MayBeHigher answers: can any interval from the region lie strictly above
// q.High?
func (r AxisRegion) MayBeHigher(q Interval) bool {
	return r.Low.High.Cmp(q.High) > 0 && r.High.High.Cmp(q.High) > 0
}

// MayIntersect answers: can any box from the region intersect q?
func (r Region) MayIntersect(q RangeBox) bool {
	return r.X.MayIntersect(q.X) && r.Y.MayIntersect(q.Y)
}

// MayContain answers: can any box from the region contain q?
func (r Region) MayContain(q RangeBox) bool {
	return r.X.MayContain(q.X) && r.Y.MayContain(q.Y)
}

// MayBeContainedBy answers: can q contain any box from the region?
func (r Region) MayBeContainedBy(q RangeBox) bool {
	return r.X.MayBeContainedBy(q.X) && r.Y.MayBeContainedBy(q.Y)
}

// MayBeLeftOf answers: can any box from the region be strictly left of q?
func (r Region) MayBeLeftOf(q RangeBox) bool { return r.X.MayBeLower(q.X) }

// MayBeRightOf answers: can any box from the region be strictly right of q?
func (r Region) MayBeRightOf(q RangeBox) bool { return r.X.MayBeHigher(q.X) }

// MayBeBelow answers: can any box from the region be strictly below q?
func (r Region) MayBeBelow(q RangeBox) bool { return r.Y.MayBeLower(q.Y) }

// MayBeAbove answers: can any box from the region be strictly above q?
func (r Region) MayBeAbove(q RangeBox) bool { return r.Y.MayBeHigher(q.Y) }
