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

// Package selectivity estimates, from column statistics alone, what
// fraction of a column's networks satisfy a subnet inclusion or overlap
// predicate against a constant. Estimates feed a query planner; they are
// probabilities, not counts, and always land in [0, 1].
package selectivity

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/cidrbox/cidrbox/pkg/inet"
	"github.com/cidrbox/cidrbox/pkg/strategy"
)

var log = logrus.WithField("component", "selectivity")

// Defaults used when the statistics carry nothing usable.
const (
	DefaultOverlapSel   = 0.01
	DefaultInclusionSel = 0.005
)

// MCV is one entry of a most-common-values list.
type MCV struct {
	Value inet.Network
	Freq  float64
}

// Sample is the statistics snapshot of one network column.
type Sample struct {
	// NullFrac is the fraction of rows with no value.
	NullFrac float64

	// NDistinct estimates the distinct values in the column; zero or
	// negative means unknown.
	NDistinct float64

	// MCVs lists the most common values with their frequencies.
	MCVs []MCV

	// Histogram holds ordered bucket boundaries covering the non-MCV,
	// non-null rows. Fewer than two boundaries is no histogram.
	Histogram []inet.Network
}

// oprOrder assigns comparable numbers to the inclusion strategies: negative
// means the column side should contain the constant, positive the reverse,
// zero either way. The magnitude distinguishes strict from or-equal.
func oprOrder(s strategy.Number) (int, error) {
	switch s {
	case strategy.Super:
		return -2, nil
	case strategy.SuperEqual:
		return -1, nil
	case strategy.Overlap:
		return 0, nil
	case strategy.SubEqual:
		return 1, nil
	case strategy.Sub:
		return 2, nil
	}
	return 0, fmt.Errorf("inclusion selectivity: %s: %w", s, ErrUnsupportedStrategy)
}

func defaultSel(s strategy.Number) float64 {
	if s == strategy.Overlap {
		return DefaultOverlapSel
	}
	return DefaultInclusionSel
}

// mcvMatches applies the strategy with the column value on the left.
func mcvMatches(value, constant inet.Network, s strategy.Number) bool {
	switch s {
	case strategy.Sub:
		return value.StrictSubnetOf(constant)
	case strategy.SubEqual:
		return value.SubnetOrEqual(constant)
	case strategy.Overlap:
		return value.Overlaps(constant)
	case strategy.SuperEqual:
		return value.SupernetOrEqual(constant)
	case strategy.Super:
		return value.StrictSupernetOf(constant)
	}
	return false
}

// EstimateInclusion estimates the fraction of the sampled column matching
// `column <strategy> *constant`. A nil constant yields zero: all of these
// predicates are strict. A nil sample yields the strategy's default.
func EstimateInclusion(sample *Sample, constant *inet.Network, s strategy.Number) (float64, error) {
	order, err := oprOrder(s)
	if err != nil {
		return 0, err
	}
	if constant == nil {
		return 0, nil
	}
	if sample == nil {
		defaultEstimates.Inc()
		return defaultSel(s), nil
	}

	var mcvSel, maxMCVSel float64
	for _, mcv := range sample.MCVs {
		maxMCVSel += mcv.Freq
		if mcvMatches(mcv.Value, *constant, s) {
			mcvSel += mcv.Freq
		}
	}

	maxHistSel := 1.0 - sample.NullFrac - maxMCVSel

	// When the MCV list already explains most of the matching mass, the
	// histogram cannot change the answer much: scale the MCV result to
	// the whole column and stop.
	if maxMCVSel > 0 && maxHistSel/maxMCVSel < mcvSel {
		return clamp(mcvSel / (1.0 - maxHistSel)), nil
	}

	histSel := histogramInclusion(sample.Histogram, *constant, sample.NDistinct, order)
	if histSel < 0 {
		if maxMCVSel > 0 {
			return clamp(mcvSel / (1.0 - maxHistSel)), nil
		}
		defaultEstimates.Inc()
		return defaultSel(s), nil
	}

	return clamp(mcvSel + maxHistSel*histSel), nil
}

// EstimateOverlap estimates the fraction of the sampled column overlapping
// the constant.
func EstimateOverlap(sample *Sample, constant *inet.Network) (float64, error) {
	return EstimateInclusion(sample, constant, strategy.Overlap)
}

// EstimateAdjacent estimates the fraction of the column neither containing
// nor contained by the constant, as the complement of overlap.
func EstimateAdjacent(sample *Sample, constant *inet.Network) (float64, error) {
	overlap, err := EstimateOverlap(sample, constant)
	if err != nil {
		return 0, err
	}
	return clamp(1.0 - overlap), nil
}

// histogramInclusion distributes one unit of probability mass over the
// histogram buckets and totals the share of the buckets the query can
// match. Returns a value in [0, 1], or -1 when no usable histogram exists
// or the constant falls entirely outside it.
//
// The histogram orders values for the basic comparisons, so a bucket's
// match state follows from comparing the query against its two boundaries
// with the inclusion-aware comparator: both sides matching is a full
// bucket, a sign change across the bucket is a partial match weighted by a
// bit-distance heuristic, and a match on the right side only is counted as
// a single value (1/ndistinct) since the same boundary opens the next
// bucket.
func histogramInclusion(hist []inet.Network, query inet.Network, ndistinct float64, order int) float64 {
	if len(hist) < 2 {
		return -1
	}

	totalMatch := 0.0
	var left *inet.Network
	leftOrder := 1 // the first boundary should be greater

	for i := range hist {
		right := &hist[i]
		rightOrder := inclusionCmp(*right, query, order)

		if rightOrder == 0 {
			if leftOrder == 0 {
				totalMatch += 1.0
			} else if ndistinct > 0 {
				totalMatch += 1.0 / ndistinct
			}
		} else if ((rightOrder > 0 && leftOrder <= 0) ||
			(rightOrder < 0 && leftOrder >= 0)) && left != nil {
			leftDivider := matchDivider(*left, query, order)
			rightDivider := matchDivider(*right, query, order)
			if leftDivider >= 0 || rightDivider >= 0 {
				totalMatch += 1.0 / math.Pow(2, float64(max(leftDivider, rightDivider)))
			}
		}

		left = right
		leftOrder = rightOrder
	}

	totalDivider := float64(len(hist) - 1)
	if ndistinct > 0 {
		// In case the constant matches the very first boundary.
		totalDivider += 1.0 / ndistinct
	}

	log.Debugf("histogram inclusion matches: %f / %f", totalMatch, totalDivider)

	return totalMatch / totalDivider
}

// inclusionCmp orders a histogram boundary against the query under the
// inclusion strategy: zero when the boundary could match, otherwise the
// sign of the canonical network ordering. Compatible with the ordering the
// histogram was built with, which is what makes the bucket scan sound.
func inclusionCmp(left, right inet.Network, order int) int {
	if left.Family != right.Family {
		return int(left.Family) - int(right.Family)
	}

	minbits := int(left.Bits)
	if int(right.Bits) < minbits {
		minbits = int(right.Bits)
	}
	if cmp := inet.ComparePrefix(left.AddrBytes(), right.AddrBytes(), minbits); cmp != 0 {
		return cmp
	}
	return masklenInclusionCmp(left, right, order)
}

// masklenInclusionCmp compares the masklens under the strategy: zero when
// the combination can satisfy it, the strategy's order code otherwise so
// the caller keeps a consistent direction.
func masklenInclusionCmp(left, right inet.Network, order int) int {
	if left.Family != right.Family {
		return int(left.Family) - int(right.Family)
	}

	cmp := int(left.Bits) - int(right.Bits)
	if (cmp > 0 && order >= 0) ||
		(cmp == 0 && order >= -1 && order <= 1) ||
		(cmp < 0 && order <= 0) {
		return 0
	}
	return order
}

// matchDivider sizes a partial bucket match as the bit distance between the
// decisive masklen and the bits the boundary shares with the query; the
// caller turns it into a 2^-divider weight. Returns -1 when the masklens
// already rule the boundary out.
func matchDivider(hist, query inet.Network, order int) int {
	if masklenInclusionCmp(hist, query, order) != 0 {
		return -1
	}

	minbits := int(hist.Bits)
	if int(query.Bits) < minbits {
		minbits = int(query.Bits)
	}

	// The side that should contain the other supplies the decisive bits.
	var decisive int
	switch {
	case order < 0:
		decisive = int(hist.Bits)
	case order > 0:
		decisive = int(query.Bits)
	default:
		decisive = minbits
	}

	if minbits > 0 {
		return decisive - inet.CommonPrefixBits(hist.AddrBytes(), query.AddrBytes(), minbits)
	}
	return decisive
}

func clamp(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
