// Copyright (c) 2025 The Stakemesh developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package api serves the read-only HTTP surface of the marketplace.
package api

import (
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/stakemesh/mesh/api/network"
	"github.com/stakemesh/mesh/api/operators"
	"github.com/stakemesh/mesh/api/owners"
	"github.com/stakemesh/mesh/log"
	"github.com/stakemesh/mesh/market"
)

var logger = log.WithContext("pkg", "api")

type Options struct {
	AllowedOrigins  string
	EnableReqLogger bool
	EnableMetrics   bool

	// Lock, when set, is held for the duration of each request so reads
	// never observe a transaction mid-flight.
	Lock sync.Locker
}

// New return api router over the given market. tick supplies the current
// logical time for accrual evaluation.
func New(mkt *market.Market, tick func() uint64, opts Options) http.HandlerFunc {
	origins := strings.Split(strings.TrimSpace(opts.AllowedOrigins), ",")
	for i, o := range origins {
		origins[i] = strings.ToLower(strings.TrimSpace(o))
	}

	router := mux.NewRouter()

	owners.New(mkt, tick).
		Mount(router, "/owners")
	operators.New(mkt, tick).
		Mount(router, "/operators")
	network.New(mkt, tick).
		Mount(router, "/network")

	if opts.Lock != nil {
		router.Use(lockMiddleware(opts.Lock))
	}
	if opts.EnableMetrics {
		router.Use(metricsMiddleware)
	}

	handler := handlers.CompressHandler(router)
	handler = handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedHeaders([]string{"content-type"}),
	)(handler)

	if opts.EnableReqLogger {
		handler = RequestLoggerHandler(handler, logger)
	}

	return handler.ServeHTTP
}

func lockMiddleware(lock sync.Locker) mux.MiddlewareFunc {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lock.Lock()
			defer lock.Unlock()
			h.ServeHTTP(w, r)
		})
	}
}
