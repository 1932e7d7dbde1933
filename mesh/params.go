// Copyright (c) 2025 The Stakemesh developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package mesh

import "math/big"

// Constants of the marketplace protocol.
const (
	// FeeUpdateCooldown minimum wall-clock seconds between two fee updates of one operator.
	FeeUpdateCooldown uint64 = 72 * 60 * 60

	// MaxValidatorOperators number of operators a single validator is assigned to.
	MaxValidatorOperators = 4
)

// Keys of governance params.
var (
	KeyNetworkFee            = BytesToBytes32([]byte("network-fee"))
	KeyLiquidationRunway     = BytesToBytes32([]byte("liquidation-runway"))
	KeyMaxFeeIncreasePercent = BytesToBytes32([]byte("max-fee-increase-percent"))
	KeyContractOwner         = BytesToBytes32([]byte("contract-owner"))

	InitialNetworkFee            = big.NewInt(0)
	InitialLiquidationRunway     = big.NewInt(6570) // ticks of burn the balance must cover, about one day
	InitialMaxFeeIncreasePercent = big.NewInt(10)
)
