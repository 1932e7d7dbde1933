// Copyright (c) 2025 The Stakemesh developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"fmt"
	"os"
	"time"

	cli "gopkg.in/urfave/cli.v1"

	"github.com/stakemesh/mesh/api"
	"github.com/stakemesh/mesh/cmd/mesh/node"
	"github.com/stakemesh/mesh/log"
	"github.com/stakemesh/mesh/market"
	"github.com/stakemesh/mesh/market/token"
	"github.com/stakemesh/mesh/mesh"
	"github.com/stakemesh/mesh/metrics"
	"github.com/stakemesh/mesh/state"
)

var (
	version   string
	gitCommit string
	gitTag    string

	logger = log.WithContext("pkg", "main")
)

func fullVersion() string {
	versionMeta := "release"
	if gitTag == "" {
		versionMeta = "dev"
	}
	return fmt.Sprintf("%s-%s-%s", version, gitCommit, versionMeta)
}

func main() {
	app := cli.App{
		Version:   fullVersion(),
		Name:      "Mesh",
		Usage:     "Validator marketplace accounting node",
		Copyright: "2025 The Stakemesh developers",
		Flags: []cli.Flag{
			dataDirFlag,
			memFlag,
			genesisFlag,
			apiAddrFlag,
			apiCorsFlag,
			enableAPILogsFlag,
			verbosityFlag,
			jsonLogsFlag,
			enableMetricsFlag,
			metricsAddrFlag,
			commitIntervalFlag,
		},
		Action: defaultAction,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultAction(ctx *cli.Context) error {
	defer func() { logger.Info("exited") }()

	initLogger(ctx)

	mainDB, err := openMainDB(ctx)
	if err != nil {
		fatal(err)
	}
	defer func() { logger.Info("closing main database..."); mainDB.Close() }()

	st := state.New(mainDB)
	mkt, ledger := market.NewWithLedger(st)
	n := node.New(st, mkt, time.Duration(ctx.Uint64(commitIntervalFlag.Name))*time.Second)

	if err := seedGenesis(ctx, n, ledger); err != nil {
		fatal(err)
	}

	if ctx.Bool(enableMetricsFlag.Name) {
		metrics.InitializePrometheusMetrics()
		url, closeMetrics, err := startMetricsServer(ctx)
		if err != nil {
			fatal(err)
		}
		defer func() { logger.Info("stopping metrics server..."); closeMetrics() }()
		logger.Info("metrics server started", "url", url)
	}

	handler := api.New(mkt, n.Tick, api.Options{
		AllowedOrigins:  ctx.String(apiCorsFlag.Name),
		EnableReqLogger: ctx.Bool(enableAPILogsFlag.Name),
		EnableMetrics:   ctx.Bool(enableMetricsFlag.Name),
		Lock:            n.Locker(),
	})
	apiURL, closeAPI, err := startAPIServer(ctx, handler)
	if err != nil {
		fatal(err)
	}
	defer func() { logger.Info("stopping API server..."); closeAPI() }()

	printStartupMessage(ctx, apiURL)

	return n.Run(handleExitSignal())
}

// seedGenesis initializes a fresh ledger from the genesis config. An already
// initialized data directory is left untouched.
func seedGenesis(ctx *cli.Context, n *node.Node, ledger *token.Ledger) error {
	mkt := n.Market()
	owner, err := mkt.Params().ContractOwner()
	if err != nil {
		return err
	}
	if !owner.IsZero() {
		return nil
	}

	cfg, err := loadGenesisConfig(ctx.String(genesisFlag.Name))
	if err != nil {
		return err
	}
	contractOwner := mesh.Address(cfg.ContractOwner)
	if contractOwner.IsZero() {
		return fmt.Errorf("fresh data dir, set --%s with a contractOwner", genesisFlag.Name)
	}

	if err := mkt.Initialize(contractOwner); err != nil {
		return err
	}
	env := n.Env(contractOwner)
	if fee := bigOrZero(cfg.NetworkFee); fee.Sign() > 0 {
		if err := mkt.UpdateNetworkFee(env, fee); err != nil {
			return err
		}
	}
	if runway := bigOrZero(cfg.LiquidationRunway); runway.Sign() > 0 {
		if err := mkt.UpdateLiquidationRunway(env, runway); err != nil {
			return err
		}
	}
	if pct := bigOrZero(cfg.MaxFeeIncreasePercent); pct.Sign() > 0 {
		if err := mkt.UpdateMaxFeeIncreasePercent(env, pct); err != nil {
			return err
		}
	}
	for _, acc := range cfg.Accounts {
		if err := ledger.Mint(mesh.Address(acc.Address), bigOrZero(acc.Balance)); err != nil {
			return err
		}
	}
	if err := n.Commit(); err != nil {
		return err
	}
	logger.Info("genesis state seeded", "contractOwner", contractOwner, "accounts", len(cfg.Accounts))
	return nil
}

func printStartupMessage(ctx *cli.Context, apiURL string) {
	dataDir := ctx.String(dataDirFlag.Name)
	if ctx.Bool(memFlag.Name) {
		dataDir = "(in-memory)"
	}
	fmt.Printf(`Starting Mesh %v
    API      [ %v ]
    Data dir [ %v ]
`,
		fullVersion(),
		apiURL,
		dataDir)
}
