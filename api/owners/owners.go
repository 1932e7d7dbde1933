// Copyright (c) 2025 The Stakemesh developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package owners

import (
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/stakemesh/mesh/api/utils"
	"github.com/stakemesh/mesh/market"
	"github.com/stakemesh/mesh/market/usage"
	"github.com/stakemesh/mesh/mesh"
)

// Owners exposes owner account state.
type Owners struct {
	mkt  *market.Market
	tick func() uint64
}

func New(mkt *market.Market, tick func() uint64) *Owners {
	return &Owners{
		mkt,
		tick,
	}
}

func (o *Owners) handleTick(req *http.Request) (uint64, error) {
	raw := req.URL.Query().Get("tick")
	if raw == "" {
		return o.tick(), nil
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, utils.BadRequest(errors.WithMessage(err, "tick"))
	}
	return n, nil
}

func (o *Owners) handleGetAccount(w http.ResponseWriter, req *http.Request) error {
	addr, err := mesh.ParseAddress(mux.Vars(req)["address"])
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "address"))
	}
	now, err := o.handleTick(req)
	if err != nil {
		return err
	}

	rec, err := o.mkt.Owners().Get(*addr)
	if err != nil {
		return err
	}
	balance, err := o.mkt.TotalBalance(*addr, now)
	if err != nil {
		return err
	}
	burn, err := o.mkt.BurnRate(*addr, now)
	if err != nil {
		return err
	}
	liquidatable, err := o.mkt.Liquidatable(*addr, now)
	if err != nil {
		return err
	}

	return utils.WriteJSON(w, &Account{
		Deposited:        math.HexOrDecimal256(*rec.Deposited),
		Withdrawn:        math.HexOrDecimal256(*rec.Withdrawn),
		Earned:           math.HexOrDecimal256(*rec.Earned),
		Used:             math.HexOrDecimal256(*rec.Used),
		NetworkFee:       math.HexOrDecimal256(*rec.NetworkFee),
		Balance:          math.HexOrDecimal256(*balance),
		BurnRate:         math.HexOrDecimal256(*burn),
		ActiveValidators: rec.ActiveValidators,
		Disabled:         rec.Disabled,
		Liquidatable:     liquidatable,
	})
}

func (o *Owners) handleGetRelationships(w http.ResponseWriter, req *http.Request) error {
	addr, err := mesh.ParseAddress(mux.Vars(req)["address"])
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "address"))
	}
	now, err := o.handleTick(req)
	if err != nil {
		return err
	}
	rec, err := o.mkt.Owners().Get(*addr)
	if err != nil {
		return err
	}

	rels := make([]*Relationship, 0)
	err = o.mkt.Usage().ForEach(*addr, func(rel *usage.Relationship) error {
		op, err := o.mkt.Operators().Get(rel.Operator)
		if err != nil {
			return err
		}
		feeIndex, err := op.CurrentFeeIndex(now)
		if err != nil {
			return err
		}
		used, err := rel.CurrentUsage(feeIndex, rec.Disabled)
		if err != nil {
			return err
		}
		rels = append(rels, &Relationship{
			Operator:   rel.Operator,
			Validators: rel.Validators,
			Used:       math.HexOrDecimal256(*used),
		})
		return nil
	})
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, rels)
}

func (o *Owners) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/{address}").Methods(http.MethodGet).HandlerFunc(utils.WrapHandlerFunc(o.handleGetAccount))
	sub.Path("/{address}/relationships").Methods(http.MethodGet).HandlerFunc(utils.WrapHandlerFunc(o.handleGetRelationships))
}
