// Copyright (c) 2025 The Stakemesh developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/stakemesh/mesh/mesh"
)

// hexAddress parses the 0x-prefixed form from yaml.
type hexAddress mesh.Address

func (a *hexAddress) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := mesh.ParseAddress(value.Value)
	if err != nil {
		return err
	}
	*a = hexAddress(*parsed)
	return nil
}

// genesisConfig describes the parameters and balances seeded into a fresh
// data directory.
type genesisConfig struct {
	ContractOwner         hexAddress            `yaml:"contractOwner"`
	NetworkFee            *math.HexOrDecimal256 `yaml:"networkFee"`
	LiquidationRunway     *math.HexOrDecimal256 `yaml:"liquidationRunway"`
	MaxFeeIncreasePercent *math.HexOrDecimal256 `yaml:"maxFeeIncreasePercent"`
	Accounts              []genesisAccount      `yaml:"accounts"`
}

type genesisAccount struct {
	Address hexAddress            `yaml:"address"`
	Balance *math.HexOrDecimal256 `yaml:"balance"`
}

func defaultGenesisConfig() *genesisConfig {
	return &genesisConfig{
		NetworkFee:            (*math.HexOrDecimal256)(mesh.InitialNetworkFee),
		LiquidationRunway:     (*math.HexOrDecimal256)(mesh.InitialLiquidationRunway),
		MaxFeeIncreasePercent: (*math.HexOrDecimal256)(mesh.InitialMaxFeeIncreasePercent),
	}
}

func loadGenesisConfig(path string) (*genesisConfig, error) {
	cfg := defaultGenesisConfig()
	if path == "" {
		return cfg, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read genesis config")
	}
	if err := yaml.Unmarshal(content, cfg); err != nil {
		return nil, errors.Wrap(err, "parse genesis config")
	}
	if mesh.Address(cfg.ContractOwner).IsZero() {
		return nil, errors.New("genesis config: contractOwner is required")
	}
	return cfg, nil
}

func bigOrZero(v *math.HexOrDecimal256) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return (*big.Int)(v)
}
