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

// Package strategy defines the predicate numbers the host traversal engine
// passes into the operator classes.
package strategy

import "fmt"

// Number identifies which predicate a consistency check evaluates. The
// numbering keeps the basic comparisons contiguous so they can be recognized
// with a range check.
type Number uint16

// Box predicates.
const (
	Left        Number = 1
	Overlap     Number = 3
	Right       Number = 5
	Contains    Number = 7
	ContainedBy Number = 8
	Below       Number = 10
	Above       Number = 11
)

// Basic comparisons over the canonical network ordering.
const (
	Equal        Number = 18
	NotEqual     Number = 19
	Less         Number = 20
	LessEqual    Number = 21
	Greater      Number = 22
	GreaterEqual Number = 23
)

// Network inclusion predicates. Overlap is shared with the box vocabulary.
const (
	Sub        Number = 24
	SubEqual   Number = 25
	Super      Number = 26
	SuperEqual Number = 27
)

// IsBasicComparison reports whether n is one of the total-order comparisons
// (including not-equal).
func (n Number) IsBasicComparison() bool { return n >= Equal && n <= GreaterEqual }

func (n Number) String() string {
	switch n {
	case Left:
		return "left"
	case Overlap:
		return "overlap"
	case Right:
		return "right"
	case Contains:
		return "contains"
	case ContainedBy:
		return "contained-by"
	case Below:
		return "below"
	case Above:
		return "above"
	case Equal:
		return "equal"
	case NotEqual:
		return "not-equal"
	case Less:
		return "less"
	case LessEqual:
		return "less-or-equal"
	case Greater:
		return "greater"
	case GreaterEqual:
		return "greater-or-equal"
	case Sub:
		return "strict-subnet"
	case SubEqual:
		return "subnet-or-equal"
	case Super:
		return "strict-supernet"
	case SuperEqual:
		return "supernet-or-equal"
	}
	return fmt.Sprintf("strategy(%d)", uint16(n))
}
