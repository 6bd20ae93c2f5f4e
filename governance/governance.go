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

// Package governance implements the proposal lifecycle of the DAO: the
// configuration store, the proposal registry, the vote ledger, the delegation
// registry and the execution engine.
//
// All operations run against a shared state.StateDB. Each operation is wrapped
// in StateDB.Atomic so that a failure, including one raised by a collaborator
// service, leaves no partial writes behind.
package governance

import (
	"fmt"

	"github.com/augustdao/dao/state"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
)

var (
	proposalCreatedCounter   = metrics.NewRegisteredCounter("dao/governance/proposals/created", nil)
	voteCastCounter          = metrics.NewRegisteredCounter("dao/governance/votes", nil)
	proposalFinalizedCounter = metrics.NewRegisteredCounter("dao/governance/proposals/finalized", nil)
	proposalExecutedCounter  = metrics.NewRegisteredCounter("dao/governance/proposals/executed", nil)
	delegationCounter        = metrics.NewRegisteredCounter("dao/governance/delegations", nil)
)

// Governance is the governance program
type Governance struct {
	db      *state.StateDB
	assets  AssetService
	custody CustodyService
	opts    Options
	log     log.Logger
}

// New creates the governance program over the shared state and its
// collaborator services.
func New(db *state.StateDB, assets AssetService, custody CustodyService, opts Options) *Governance {
	return &Governance{
		db:      db,
		assets:  assets,
		custody: custody,
		opts:    opts,
		log:     log.New("module", "governance"),
	}
}

// Options returns the strictness options the program was created with.
func (g *Governance) Options() Options {
	return g.opts
}

// InitializeDAO creates the DAO configuration. The caller becomes the DAO
// authority. It fails with ErrDuplicateRecord if the DAO is already initialized.
func (g *Governance) InitializeDAO(call Call, tokenMint common.Address, params DaoParams) (*DaoConfig, error) {
	if err := validateParams(params.VotingPeriod, params.QuorumPercentage, params.ThresholdPercentage); err != nil {
		return nil, err
	}
	if tokenMint == (common.Address{}) {
		return nil, fmt.Errorf("%w: missing token mint", ErrInvalidConfig)
	}
	if params.OracleAuthority == (common.Address{}) {
		return nil, fmt.Errorf("%w: missing oracle authority", ErrInvalidConfig)
	}
	cfg := &DaoConfig{
		Authority:           call.Signer,
		TokenMint:           tokenMint,
		ProposalFee:         params.ProposalFee,
		VotingPeriod:        params.VotingPeriod,
		QuorumPercentage:    params.QuorumPercentage,
		ThresholdPercentage: params.ThresholdPercentage,
		RequirePoH:          params.RequirePoH,
		OracleAuthority:     params.OracleAuthority,
	}
	err := g.db.Atomic(func() error {
		exists, err := g.db.Has(configKey)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicateRecord
		}
		return g.db.WriteRLP(configKey, cfg)
	})
	if err != nil {
		return nil, err
	}
	g.log.Info("Initialized DAO", "authority", cfg.Authority, "mint", tokenMint,
		"period", cfg.VotingPeriod, "quorum", cfg.QuorumPercentage, "threshold", cfg.ThresholdPercentage,
		"oracle", cfg.OracleAuthority)
	return cfg, nil
}

// Config returns the DAO configuration.
func (g *Governance) Config() (*DaoConfig, error) {
	var cfg DaoConfig
	found, err := g.db.ReadRLP(configKey, &cfg)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotInitialized
	}
	return &cfg, nil
}

// validateParams checks the tunable configuration values.
func validateParams(period uint64, quorum, threshold uint8) error {
	if period == 0 {
		return fmt.Errorf("%w: voting period must be positive", ErrInvalidConfig)
	}
	if quorum > 100 {
		return fmt.Errorf("%w: quorum %d%% exceeds 100%%", ErrInvalidConfig, quorum)
	}
	if threshold > 100 {
		return fmt.Errorf("%w: threshold %d%% exceeds 100%%", ErrInvalidConfig, threshold)
	}
	return nil
}
