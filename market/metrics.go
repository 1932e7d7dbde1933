// Copyright (c) 2025 The Stakemesh developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package market

import "github.com/stakemesh/mesh/metrics"

var (
	metricOperators    = metrics.LazyLoadCounter("operators_registered_count")
	metricValidators   = metrics.LazyLoadCounter("validators_registered_count")
	metricDeposits     = metrics.LazyLoadCounter("deposits_count")
	metricWithdrawals  = metrics.LazyLoadCounter("withdrawals_count")
	metricLiquidations = metrics.LazyLoadCounter("liquidations_count")
)
