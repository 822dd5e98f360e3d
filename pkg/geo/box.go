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

// Package geo holds the 2-D box type indexed by the box operator class and
// the interval predicates the quad tree prunes its search with.
package geo

// Point is a point on the plane.
type Point struct {
	X float64
	Y float64
}

// Box is an axis-aligned rectangle. Callers construct it pre-normalized:
// Low.X <= High.X and Low.Y <= High.Y. It is never re-validated here.
type Box struct {
	Low  Point
	High Point
}

// NewBox builds a box from its two corners.
func NewBox(lowX, lowY, highX, highY float64) Box {
	return Box{Low: Point{X: lowX, Y: lowY}, High: Point{X: highX, Y: highY}}
}

// The base operators below are exact: plain floating comparison, no epsilon,
// so index checks agree with the scalar operators bit for bit.

// Overlaps reports whether b and q share any point.
func (b Box) Overlaps(q Box) bool {
	return b.Low.X <= q.High.X && b.High.X >= q.Low.X &&
		b.Low.Y <= q.High.Y && b.High.Y >= q.Low.Y
}

// Contains reports whether q lies entirely inside b.
func (b Box) Contains(q Box) bool {
	return b.Low.X <= q.Low.X && b.High.X >= q.High.X &&
		b.Low.Y <= q.Low.Y && b.High.Y >= q.High.Y
}

// ContainedBy reports whether b lies entirely inside q.
func (b Box) ContainedBy(q Box) bool { return q.Contains(b) }

// Left reports whether b is strictly left of q.
func (b Box) Left(q Box) bool { return b.High.X < q.Low.X }

// Right reports whether b is strictly right of q.
func (b Box) Right(q Box) bool { return b.Low.X > q.High.X }

// Below reports whether b is strictly below q.
func (b Box) Below(q Box) bool { return b.High.Y < q.Low.Y }

// Above reports whether b is strictly above q.
func (b Box) Above(q Box) bool { return b.Low.Y > q.High.Y }
