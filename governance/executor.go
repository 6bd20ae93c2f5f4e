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

package governance

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// ExecuteProposal runs the actions of a succeeded proposal in order and marks
// it executed. The first failing action aborts the execution and every effect
// of the earlier actions is reverted.
func (g *Governance) ExecuteProposal(call Call, id common.Hash) error {
	err := g.db.Atomic(func() error {
		proposal, err := g.GetProposal(id)
		if err != nil {
			return err
		}
		if proposal.Status != StatusSucceeded {
			return ErrProposalNotSucceeded
		}
		if g.opts.RestrictExecution {
			cfg, err := g.Config()
			if err != nil {
				return err
			}
			if call.Signer != cfg.Authority {
				return ErrUnauthorized
			}
		}
		for i := range proposal.Actions {
			if err := g.execute(&proposal.Actions[i]); err != nil {
				return fmt.Errorf("action %d: %w", i, err)
			}
		}
		proposal.Status = StatusExecuted
		return g.db.WriteRLP(proposalKey(id), proposal)
	})
	if err != nil {
		g.log.Debug("Proposal execution failed", "id", id, "err", err)
		return err
	}
	proposalExecutedCounter.Inc(1)
	g.log.Info("Executed proposal", "id", id, "executor", call.Signer)
	return nil
}

// execute dispatches a single action to its handler.
func (g *Governance) execute(action *ProposedAction) error {
	switch action.Kind {
	case ActionTreasuryTransfer:
		return g.executeTreasuryTransfer(action.Transfer)
	case ActionUpdateConfig:
		return g.executeUpdateConfig(action.Update)
	}
	return fmt.Errorf("%w: kind %d", ErrUnknownAction, action.Kind)
}

func (g *Governance) executeTreasuryTransfer(t *TreasuryTransfer) error {
	if t == nil {
		return ErrUnknownAction
	}
	if err := g.custody.Withdraw(Authority(), t.Recipient, t.TokenMint, t.Amount); err != nil {
		return err
	}
	g.log.Debug("Executed treasury transfer", "recipient", t.Recipient, "amount", t.Amount, "mint", t.TokenMint)
	return nil
}

func (g *Governance) executeUpdateConfig(u *ConfigUpdate) error {
	if u == nil {
		return ErrUnknownAction
	}
	if err := validateParams(u.VotingPeriod, u.QuorumPercentage, u.ThresholdPercentage); err != nil {
		return err
	}
	cfg, err := g.Config()
	if err != nil {
		return err
	}
	cfg.VotingPeriod = u.VotingPeriod
	cfg.QuorumPercentage = u.QuorumPercentage
	cfg.ThresholdPercentage = u.ThresholdPercentage
	if err := g.db.WriteRLP(configKey, cfg); err != nil {
		return err
	}
	g.log.Info("Updated DAO configuration", "period", u.VotingPeriod, "quorum", u.QuorumPercentage, "threshold", u.ThresholdPercentage)
	return nil
}
