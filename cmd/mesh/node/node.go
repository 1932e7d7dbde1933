// Copyright (c) 2025 The Stakemesh developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package node runs the marketplace engine as a long-lived process,
// periodically flushing the state journal to disk.
package node

import (
	"context"
	"sync"
	"time"

	"github.com/stakemesh/mesh/log"
	"github.com/stakemesh/mesh/market"
	"github.com/stakemesh/mesh/mesh"
	"github.com/stakemesh/mesh/metrics"
	"github.com/stakemesh/mesh/state"
)

var (
	logger = log.WithContext("pkg", "node")

	metricActiveValidators = metrics.LazyLoadGauge("validators_active_gauge")
	metricTreasuryBalance  = metrics.LazyLoadGauge("treasury_balance_gauge")
)

// Node owns the state instance and serializes access to it. The engine is
// single-writer; API reads take the same lock via Locker.
type Node struct {
	st             *state.State
	mkt            *market.Market
	lock           sync.Mutex
	commitInterval time.Duration
}

func New(st *state.State, mkt *market.Market, commitInterval time.Duration) *Node {
	if commitInterval <= 0 {
		commitInterval = 10 * time.Second
	}
	return &Node{
		st:             st,
		mkt:            mkt,
		commitInterval: commitInterval,
	}
}

// Market returns the engine.
func (n *Node) Market() *market.Market {
	return n.mkt
}

// Locker returns the lock guarding all state access.
func (n *Node) Locker() sync.Locker {
	return &n.lock
}

// Tick returns the current logical time. One tick is one wall-clock second,
// so accrual is stable across restarts without a persisted clock.
func (n *Node) Tick() uint64 {
	return uint64(time.Now().Unix())
}

// Env builds a transaction context for the given caller at the current tick.
func (n *Node) Env(caller mesh.Address) market.Env {
	now := n.Tick()
	return market.Env{
		Tick:   now,
		Time:   now,
		Caller: caller,
	}
}

// Commit flushes the state journal to the backing store and refreshes the
// gauges that track committed state.
func (n *Node) Commit() error {
	n.lock.Lock()
	defer n.lock.Unlock()
	if err := n.st.Commit(); err != nil {
		return err
	}
	if total, err := n.mkt.Registry().TotalActiveValidators(); err != nil {
		logger.Debug("active validator gauge read failed", "err", err)
	} else {
		metricActiveValidators().Set(int64(total))
	}
	if balance, err := n.mkt.TreasuryBalance(n.Tick()); err != nil {
		logger.Debug("treasury gauge read failed", "err", err)
	} else if !balance.IsInt64() {
		logger.Debug("treasury balance out of gauge range", "balance", balance)
	} else {
		metricTreasuryBalance().Set(balance.Int64())
	}
	return nil
}

// Run commits on an interval until ctx is done, then makes a final commit.
func (n *Node) Run(ctx context.Context) error {
	ticker := time.NewTicker(n.commitInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := n.Commit(); err != nil {
				logger.Error("state commit failed", "err", err)
				return err
			}
		case <-ctx.Done():
			logger.Info("shutting down, final commit...")
			return n.Commit()
		}
	}
}
