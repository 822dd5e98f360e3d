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

// Package rangetree holds the operator-class contract for balanced search
// trees whose inner keys summarize a subtree, in the manner of an R-tree:
// inner-key consistency, key union, insertion penalty, page split and key
// equality. Package quadtree is the space-partitioned counterpart.
package rangetree

import (
	"errors"

	"github.com/cidrbox/cidrbox/pkg/inet"
	"github.com/cidrbox/cidrbox/pkg/strategy"
)

var (
	ErrUnsupportedStrategy = errors.New("strategy not supported by operator class")
	ErrContractViolation   = errors.New("operator class contract violation")
)

// Key is an inner or leaf key of the network range tree: the union of every
// network in the subtree, folded to their common prefix. A subtree holding
// both address families has no common prefix; the Mixed tag stands in for
// one and matches everything.
type Key struct {
	Mixed bool
	Net   inet.Network
}

// SingleKey is the leaf key of one network.
func SingleKey(n inet.Network) Key {
	return Key{Net: n}
}

// MixedKey is the union key of a subtree spanning both address families.
func MixedKey() Key {
	return Key{Mixed: true}
}

// Split is the outcome of dividing an overflowing page in two.
type Split[K any] struct {
	LeftIndex  []int
	RightIndex []int
	LeftUnion  K
	RightUnion K
}

// OpClass is the set of support operations a key type plugs into the tree
// with.
type OpClass[K any] interface {
	// Consistent reports whether the subtree under key may contain a
	// value satisfying the strategy against arg. False positives are
	// allowed on inner keys, false negatives never.
	Consistent(key K, strat strategy.Number, arg inet.Network, leaf bool) (bool, error)

	// Union folds keys into one key covering them all.
	Union(keys []K) (K, error)

	// Penalty is the cost of inserting newKey under orig; the insertion
	// descends toward the smallest penalty.
	Penalty(orig, newKey K) (float32, error)

	// PickSplit distributes the keys of an overflowing page over two new
	// pages.
	PickSplit(keys []K) (Split[K], error)

	// Same reports whether two keys are interchangeable.
	Same(a, b K) bool
}
