// Copyright 2024 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

// Package genesis bootstraps a DAO deployment: the governance token, the
// treasury vault, the attestation oracle and the DAO configuration are created
// together in one atomic unit.
package genesis

import (
	"errors"
	"fmt"

	"github.com/augustdao/dao/governance"
	"github.com/augustdao/dao/oracle"
	"github.com/augustdao/dao/state"
	"github.com/augustdao/dao/token"
	"github.com/augustdao/dao/treasury"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/log"
)

var ErrInvalidGenesis = errors.New("invalid genesis")

// Allocation credits genesis tokens to a holder.
type Allocation struct {
	Holder common.Address
	Amount uint64
}

// Config holds the genesis configuration of a deployment
type Config struct {
	// Authority initializes every program and receives the initial supply
	Authority common.Address

	// Oracle is the attestor allowed to finalize proposals
	Oracle common.Address

	// Governance token
	TokenName     string
	TokenSymbol   string
	Decimals      uint8
	InitialSupply uint64
	Alloc         []Allocation

	// TreasuryDeposit is moved from the authority into the treasury vault
	TreasuryDeposit uint64

	// DAO parameters
	ProposalFee         uint64
	VotingPeriod        uint64 // seconds
	QuorumPercentage    uint8
	ThresholdPercentage uint8
	RequirePoH          bool
}

// DefaultConfig returns the default genesis configuration
func DefaultConfig() *Config {
	return &Config{
		TokenName:           "August",
		TokenSymbol:         "AUG",
		Decimals:            9,
		InitialSupply:       1_000_000_000,
		ProposalFee:         0,
		VotingPeriod:        86400, // 1 day
		QuorumPercentage:    20,
		ThresholdPercentage: 51,
	}
}

// Validate checks the genesis configuration for consistency.
func (c *Config) Validate() error {
	if c.Authority == (common.Address{}) {
		return fmt.Errorf("%w: missing authority", ErrInvalidGenesis)
	}
	if c.Oracle == (common.Address{}) {
		return fmt.Errorf("%w: missing oracle", ErrInvalidGenesis)
	}
	total := c.TreasuryDeposit
	for _, a := range c.Alloc {
		var overflow bool
		if total, overflow = math.SafeAdd(total, a.Amount); overflow {
			return fmt.Errorf("%w: allocations overflow", ErrInvalidGenesis)
		}
	}
	if total > c.InitialSupply {
		return fmt.Errorf("%w: allocations and deposit %d exceed initial supply %d", ErrInvalidGenesis, total, c.InitialSupply)
	}
	return nil
}

// Programs are the services a genesis initializes.
type Programs struct {
	Tokens     *token.Service
	Treasury   *treasury.Service
	Oracle     *oracle.Relay
	Governance *governance.Governance
}

// Result describes a bootstrapped deployment.
type Result struct {
	Mint   common.Address
	Vault  *treasury.Vault
	Oracle *oracle.Oracle
	DAO    *governance.DaoConfig
}

// Bootstrap initializes every program of a deployment at time now. Nothing is
// written if any step fails. The caller commits the state.
func Bootstrap(db *state.StateDB, p *Programs, cfg *Config, now uint64) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	res := &Result{Mint: MintAddress(cfg.Authority, 0)}
	err := db.Atomic(func() error {
		err := p.Tokens.InitializeMint(cfg.Authority, res.Mint, cfg.TokenName, cfg.TokenSymbol, cfg.Decimals, cfg.InitialSupply, cfg.Authority)
		if err != nil {
			return fmt.Errorf("token: %w", err)
		}
		for _, a := range cfg.Alloc {
			if err := p.Tokens.Transfer(res.Mint, cfg.Authority, a.Holder, a.Amount, cfg.Authority); err != nil {
				return fmt.Errorf("allocation to %v: %w", a.Holder, err)
			}
		}
		if res.Vault, err = p.Treasury.Initialize(cfg.Authority, governance.Authority(), res.Mint); err != nil {
			return fmt.Errorf("treasury: %w", err)
		}
		if cfg.TreasuryDeposit > 0 {
			if err := p.Treasury.Deposit(cfg.Authority, cfg.TreasuryDeposit); err != nil {
				return fmt.Errorf("treasury deposit: %w", err)
			}
		}
		if res.Oracle, err = p.Oracle.Initialize(cfg.Oracle, governance.ProgramID); err != nil {
			return fmt.Errorf("oracle: %w", err)
		}
		params := governance.DaoParams{
			ProposalFee:         cfg.ProposalFee,
			VotingPeriod:        cfg.VotingPeriod,
			QuorumPercentage:    cfg.QuorumPercentage,
			ThresholdPercentage: cfg.ThresholdPercentage,
			RequirePoH:          cfg.RequirePoH,
			OracleAuthority:     cfg.Oracle,
		}
		call := governance.Call{Signer: cfg.Authority, Time: now}
		if res.DAO, err = p.Governance.InitializeDAO(call, res.Mint, params); err != nil {
			return fmt.Errorf("governance: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info("Bootstrapped DAO", "mint", res.Mint, "vault", res.Vault.Holder, "authority", cfg.Authority,
		"oracle", cfg.Oracle, "supply", cfg.InitialSupply, "treasury", cfg.TreasuryDeposit)
	return res, nil
}
