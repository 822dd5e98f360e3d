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

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBoxOverlaps(t *testing.T) {
	base := NewBox(0, 0, 10, 10)

	assert.True(t, base.Overlaps(NewBox(5, 5, 15, 15)))
	assert.True(t, base.Overlaps(NewBox(10, 10, 20, 20)), "touching corner counts")
	assert.True(t, base.Overlaps(NewBox(2, 2, 3, 3)), "containment counts")
	assert.False(t, base.Overlaps(NewBox(11, 0, 20, 10)))
	assert.False(t, base.Overlaps(NewBox(0, 11, 10, 20)))
}

func TestBoxContainment(t *testing.T) {
	outer := NewBox(0, 0, 10, 10)
	inner := NewBox(2, 2, 8, 8)

	assert.True(t, outer.Contains(inner))
	assert.True(t, inner.ContainedBy(outer))
	assert.False(t, inner.Contains(outer))
	assert.True(t, outer.Contains(outer), "containment is not strict")
	assert.False(t, outer.Contains(NewBox(2, 2, 11, 8)))
}

func TestBoxDirectional(t *testing.T) {
	left := NewBox(0, 0, 4, 10)
	right := NewBox(5, 0, 9, 10)
	low := NewBox(0, 0, 10, 4)
	high := NewBox(0, 5, 10, 9)

	assert.True(t, left.Left(right))
	assert.False(t, right.Left(left))
	assert.True(t, right.Right(left))
	assert.True(t, low.Below(high))
	assert.True(t, high.Above(low))

	// Shared edges are not strict.
	touching := NewBox(4, 0, 8, 10)
	assert.False(t, left.Left(touching))
}
