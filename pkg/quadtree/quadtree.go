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

// Package quadtree implements the per-data-type operator classes of the
// space-partitioned tree family: an unbalanced tree whose inner nodes hold a
// discriminating prefix (a centroid box, or a common network prefix) and
// whose children partition values by a fixed small fan-out. The generic
// traversal engine is external; it drives an OpClass on every node it visits
// during build and search.
package quadtree

import (
	"errors"

	"github.com/cidrbox/cidrbox/pkg/strategy"
)

var (
	// ErrUnsupportedStrategy marks a strategy number outside the opclass
	// vocabulary. The host registers only supported strategies, so hitting
	// this is a caller bug, not a recoverable condition.
	ErrUnsupportedStrategy = errors.New("unsupported strategy")

	// ErrContractViolation marks tree state the opclass was promised could
	// not occur.
	ErrContractViolation = errors.New("operator class contract violation")
)

// Config describes fixed properties of an operator class.
type Config struct {
	CanReturnData bool
	LongValuesOK  bool
}

// Query is one search predicate: a strategy number and its constant
// argument.
type Query[T any] struct {
	Strategy strategy.Number
	Arg      T
}

// ChooseIn carries one value being inserted under a node.
type ChooseIn[T any] struct {
	Value T
	// Prefix is the node's discriminating prefix, nil when the node has
	// none (the root before any split, or a family-split node).
	Prefix *T
	// AllTheSame is set when the node's children are an arbitrary
	// partition of equal values, so no child is more correct than
	// another.
	AllTheSame bool
}

// ChooseKind tags the outcome of Choose.
type ChooseKind int

const (
	// MatchNode sends the value down an existing child.
	MatchNode ChooseKind = iota
	// SplitNode restructures the node before the insert can proceed: the
	// node's current content moves one level down under a new, shorter
	// prefix.
	SplitNode
)

// NodeUnset is the child index of a MatchNode choice on an all-the-same
// node, where the traversal engine assigns the child itself.
const NodeUnset = -1

// Choice is the tagged result of Choose.
type Choice[T any] struct {
	Kind ChooseKind

	// MatchNode: the child to descend into and the value to carry down.
	Node int
	Rest T

	// SplitNode: the restructured node's new prefix (nil for none), its
	// child count, and the child slot plus prefix the node's existing
	// content is repositioned under.
	NewPrefix      *T
	NewNodeCount   int
	ExistingNode   int
	ExistingPrefix *T
}

// Split is the result of PickSplit: a node prefix (nil for none), a fixed
// child count, and the child assignment of every input value.
type Split[T any] struct {
	Prefix    *T
	NodeCount int
	// Mapping[i] is the child node receiving values[i].
	Mapping []int
}

// InnerIn carries one inner node visit during a search.
type InnerIn[T, TV any] struct {
	Prefix     *T
	NodeCount  int
	Queries    []Query[T]
	AllTheSame bool
	// Traversal is the value this opclass produced for the node when its
	// parent was visited; the zero value at the root.
	Traversal TV
}

// InnerOut lists the children still worth descending into. Traversals is
// parallel to Nodes; the values are freshly allocated per call and owned by
// the caller from then on.
type InnerOut[TV any] struct {
	Nodes      []int
	Traversals []TV
}

// LeafIn carries one leaf value check during a search.
type LeafIn[T any] struct {
	Value   T
	Queries []Query[T]
}

// LeafOut is the exact leaf decision. Recheck is always false here: every
// strategy of both opclasses is evaluated exactly.
type LeafOut struct {
	Matches bool
	Recheck bool
}

// OpClass is the plugin contract of the space-partitioned tree family, one
// implementation per indexed data type. TV is the traversal value threaded
// from a node to its children during search.
//
// All methods are pure: they read their inputs, allocate their outputs and
// keep no state, so the engine may call them concurrently from any number of
// scans.
type OpClass[T, TV any] interface {
	Config() Config
	Choose(in ChooseIn[T]) (Choice[T], error)
	PickSplit(values []T) (Split[T], error)
	InnerConsistent(in InnerIn[T, TV]) (InnerOut[TV], error)
	LeafConsistent(in LeafIn[T]) (LeafOut, error)
}
