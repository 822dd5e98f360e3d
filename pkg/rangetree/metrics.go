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
	"github.com/prometheus/client_golang/prometheus"

	operationalMetrics "github.com/cidrbox/cidrbox/pkg/operational/metrics"
)

var degenerateSplits = operationalMetrics.NewCounter(prometheus.CounterOpts{
	Name: "cidrbox_rangetree_degenerate_splits_total",
	Help: "Number of page splits where all keys shared their full common prefix and no split bit was available",
})
