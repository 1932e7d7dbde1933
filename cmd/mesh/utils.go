// Copyright (c) 2025 The Stakemesh developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/mattn/go-isatty"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/stakemesh/mesh/co"
	"github.com/stakemesh/mesh/log"
	"github.com/stakemesh/mesh/lvldb"
	"github.com/stakemesh/mesh/metrics"
)

func fatal(args ...interface{}) {
	fmt.Fprint(os.Stderr, "Fatal: ")
	fmt.Fprintln(os.Stderr, args...)
	os.Exit(1)
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".mesh")
}

func initLogger(ctx *cli.Context) {
	var level slog.Level
	switch ctx.Uint64(verbosityFlag.Name) {
	case 0:
		level = slog.LevelError
	case 1:
		level = slog.LevelWarn
	case 2:
		level = slog.LevelInfo
	default:
		level = slog.LevelDebug
	}

	if ctx.Bool(jsonLogsFlag.Name) || !isatty.IsTerminal(os.Stderr.Fd()) {
		log.SetRootHandler(log.NewJSONHandler(os.Stderr, level))
	} else {
		log.SetRootHandler(log.NewTextHandler(os.Stderr, level))
	}
}

func openMainDB(ctx *cli.Context) (*lvldb.LevelDB, error) {
	if ctx.Bool(memFlag.Name) {
		return lvldb.NewMem()
	}
	dir := ctx.String(dataDirFlag.Name)
	if dir == "" {
		return nil, fmt.Errorf("no data dir, set --%s or --%s", dataDirFlag.Name, memFlag.Name)
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}
	return lvldb.New(filepath.Join(dir, "main.db"), lvldb.Options{
		CacheSize:              128,
		OpenFilesCacheCapacity: 512,
	})
}

func handleExitSignal() context.Context {
	exitSignalCh := make(chan os.Signal, 1)
	signal.Notify(exitSignalCh, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sig := <-exitSignalCh
		logger.Info("exit signal received", "signal", sig)
		cancel()
	}()
	return ctx
}

func startAPIServer(ctx *cli.Context, handler http.Handler) (string, func(), error) {
	addr := ctx.String(apiAddrFlag.Name)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, fmt.Errorf("listen API addr [%v]: %v", addr, err)
	}
	srv := &http.Server{Handler: handler}
	var goes co.Goes
	goes.Go(func() {
		srv.Serve(listener)
	})
	return "http://" + listener.Addr().String() + "/", func() {
		srv.Close()
		goes.Wait()
	}, nil
}

func startMetricsServer(ctx *cli.Context) (string, func(), error) {
	addr := ctx.String(metricsAddrFlag.Name)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, fmt.Errorf("listen metrics addr [%v]: %v", addr, err)
	}
	router := http.NewServeMux()
	router.Handle("/metrics", metrics.HTTPHandler())
	srv := &http.Server{Handler: router}
	var goes co.Goes
	goes.Go(func() {
		srv.Serve(listener)
	})
	return "http://" + listener.Addr().String() + "/metrics", func() {
		srv.Close()
		goes.Wait()
	}, nil
}
