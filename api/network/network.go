// Copyright (c) 2025 The Stakemesh developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package network

import (
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/stakemesh/mesh/api/utils"
	"github.com/stakemesh/mesh/market"
	"github.com/stakemesh/mesh/mesh"
)

// Status for marshal network-wide marketplace state.
type Status struct {
	NetworkFee            math.HexOrDecimal256 `json:"networkFee"`
	TreasuryBalance       math.HexOrDecimal256 `json:"treasuryBalance"`
	LiquidationRunway     math.HexOrDecimal256 `json:"liquidationRunway"`
	MaxFeeIncreasePercent math.HexOrDecimal256 `json:"maxFeeIncreasePercent"`
	TotalActiveValidators uint64               `json:"totalActiveValidators"`
}

// Network exposes network-wide marketplace state.
type Network struct {
	mkt  *market.Market
	tick func() uint64
}

func New(mkt *market.Market, tick func() uint64) *Network {
	return &Network{
		mkt,
		tick,
	}
}

func (n *Network) handleGetStatus(w http.ResponseWriter, req *http.Request) error {
	now := n.tick()
	if raw := req.URL.Query().Get("tick"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return utils.BadRequest(errors.WithMessage(err, "tick"))
		}
		now = parsed
	}

	fee, err := n.mkt.NetworkFee()
	if err != nil {
		return err
	}
	treasury, err := n.mkt.TreasuryBalance(now)
	if err != nil {
		return err
	}
	runway, err := n.mkt.Params().Get(mesh.KeyLiquidationRunway)
	if err != nil {
		return err
	}
	maxIncrease, err := n.mkt.Params().Get(mesh.KeyMaxFeeIncreasePercent)
	if err != nil {
		return err
	}
	total, err := n.mkt.Registry().TotalActiveValidators()
	if err != nil {
		return err
	}

	return utils.WriteJSON(w, &Status{
		NetworkFee:            math.HexOrDecimal256(*fee),
		TreasuryBalance:       math.HexOrDecimal256(*treasury),
		LiquidationRunway:     math.HexOrDecimal256(*runway),
		MaxFeeIncreasePercent: math.HexOrDecimal256(*maxIncrease),
		TotalActiveValidators: total,
	})
}

func (n *Network) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").Methods(http.MethodGet).HandlerFunc(utils.WrapHandlerFunc(n.handleGetStatus))
	sub.Path("/").Methods(http.MethodGet).HandlerFunc(utils.WrapHandlerFunc(n.handleGetStatus))
}
