// Copyright (c) 2025 The Stakemesh developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package operators

import (
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/stakemesh/mesh/api/utils"
	"github.com/stakemesh/mesh/market"
	"github.com/stakemesh/mesh/mesh"
)

// Operator for marshal operator state.
type Operator struct {
	ID               mesh.Bytes32         `json:"id"`
	Owner            mesh.Address         `json:"owner"`
	PubKey           string               `json:"pubKey"`
	Fee              math.HexOrDecimal256 `json:"fee"`
	Earnings         math.HexOrDecimal256 `json:"earnings"`
	ActiveValidators uint64               `json:"activeValidators"`
	Score            uint64               `json:"score"`
	Active           bool                 `json:"active"`
}

// Operators exposes operator ledger state.
type Operators struct {
	mkt  *market.Market
	tick func() uint64
}

func New(mkt *market.Market, tick func() uint64) *Operators {
	return &Operators{
		mkt,
		tick,
	}
}

func (o *Operators) handleTick(req *http.Request) (uint64, error) {
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

func (o *Operators) getOperator(id mesh.Bytes32, now uint64) (*Operator, error) {
	meta, err := o.mkt.Registry().Operator(id)
	if err != nil {
		return nil, err
	}
	rec, err := o.mkt.Operators().Get(id)
	if err != nil {
		return nil, err
	}
	earnings, err := rec.CurrentEarnings(now)
	if err != nil {
		return nil, err
	}
	return &Operator{
		ID:               id,
		Owner:            meta.Owner,
		PubKey:           hexutil.Encode(meta.PubKey),
		Fee:              math.HexOrDecimal256(*rec.Fee),
		Earnings:         math.HexOrDecimal256(*earnings),
		ActiveValidators: rec.ActiveValidators,
		Score:            meta.Score,
		Active:           meta.Active,
	}, nil
}

func (o *Operators) handleGetOperator(w http.ResponseWriter, req *http.Request) error {
	id, err := mesh.ParseBytes32(mux.Vars(req)["id"])
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "id"))
	}
	now, err := o.handleTick(req)
	if err != nil {
		return err
	}
	op, err := o.getOperator(id, now)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, op)
}

func (o *Operators) handleGetByOwner(w http.ResponseWriter, req *http.Request) error {
	addr, err := mesh.ParseAddress(mux.Vars(req)["address"])
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "address"))
	}
	now, err := o.handleTick(req)
	if err != nil {
		return err
	}
	ids, err := o.mkt.Registry().OperatorsByOwner(*addr)
	if err != nil {
		return err
	}
	ops := make([]*Operator, 0, len(ids))
	for _, id := range ids {
		op, err := o.getOperator(id, now)
		if err != nil {
			return err
		}
		ops = append(ops, op)
	}
	return utils.WriteJSON(w, ops)
}

func (o *Operators) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/{id}").Methods(http.MethodGet).HandlerFunc(utils.WrapHandlerFunc(o.handleGetOperator))
	sub.Path("/owner/{address}").Methods(http.MethodGet).HandlerFunc(utils.WrapHandlerFunc(o.handleGetByOwner))
}
