// Copyright (c) 2025 The Stakemesh developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package owners

import (
	"github.com/ethereum/go-ethereum/common/math"

	"github.com/stakemesh/mesh/mesh"
)

// Account for marshal owner account state.
type Account struct {
	Deposited        math.HexOrDecimal256 `json:"deposited"`
	Withdrawn        math.HexOrDecimal256 `json:"withdrawn"`
	Earned           math.HexOrDecimal256 `json:"earned"`
	Used             math.HexOrDecimal256 `json:"used"`
	NetworkFee       math.HexOrDecimal256 `json:"networkFee"`
	Balance          math.HexOrDecimal256 `json:"balance"`
	BurnRate         math.HexOrDecimal256 `json:"burnRate"`
	ActiveValidators uint64               `json:"activeValidators"`
	Disabled         bool                 `json:"disabled"`
	Liquidatable     bool                 `json:"liquidatable"`
}

// Relationship for marshal one (owner, operator) billing link.
type Relationship struct {
	Operator   mesh.Bytes32         `json:"operator"`
	Validators uint64               `json:"validators"`
	Used       math.HexOrDecimal256 `json:"used"`
}
