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
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/rlp"
)

// CreateProposal opens a proposal owned by the caller. The voting window starts
// at the call time and lasts the configured voting period. If the DAO charges a
// proposal fee it is moved from the creator to the governance authority.
func (g *Governance) CreateProposal(call Call, title, description, snapshotID string, actions []ProposedAction) (common.Hash, error) {
	if err := validateProposal(title, description, snapshotID, actions); err != nil {
		return common.Hash{}, err
	}
	id := ProposalID(call.Signer)
	var proposal *Proposal
	err := g.db.Atomic(func() error {
		cfg, err := g.Config()
		if err != nil {
			return err
		}
		exists, err := g.db.Has(proposalKey(id))
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicateRecord
		}
		end, overflow := math.SafeAdd(call.Time, cfg.VotingPeriod)
		if overflow {
			return ErrArithmeticOverflow
		}
		proposal = &Proposal{
			ID:           id,
			Creator:      call.Signer,
			Title:        title,
			Description:  description,
			SnapshotID:   snapshotID,
			Actions:      actions,
			CreationTime: call.Time,
			VotingStart:  call.Time,
			VotingEnd:    end,
			Status:       StatusActive,
		}
		if err := g.db.WriteRLP(proposalKey(id), proposal); err != nil {
			return err
		}
		if err := g.appendHash(proposalIndexKey, id); err != nil {
			return err
		}
		if cfg.ProposalFee > 0 {
			if err := g.assets.Transfer(cfg.TokenMint, call.Signer, Authority(), cfg.ProposalFee, call.Signer); err != nil {
				return fmt.Errorf("proposal fee: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return common.Hash{}, err
	}
	proposalCreatedCounter.Inc(1)
	g.log.Info("Created proposal", "id", id, "creator", call.Signer, "actions", len(actions),
		"snapshot", snapshotID, "end", proposal.VotingEnd)
	return id, nil
}

// validateProposal enforces the size budgets of a proposal record and checks
// every configuration update carried by its actions.
func validateProposal(title, description, snapshotID string, actions []ProposedAction) error {
	if len(title) > MaxTitleLength {
		return fmt.Errorf("%w: title is %d bytes, max %d", ErrInputTooLarge, len(title), MaxTitleLength)
	}
	if len(description) > MaxDescriptionLength {
		return fmt.Errorf("%w: description is %d bytes, max %d", ErrInputTooLarge, len(description), MaxDescriptionLength)
	}
	if len(snapshotID) > MaxSnapshotIDLength {
		return fmt.Errorf("%w: snapshot id is %d bytes, max %d", ErrInputTooLarge, len(snapshotID), MaxSnapshotIDLength)
	}
	for i := range actions {
		if _, err := actions[i].payload(); err != nil {
			return fmt.Errorf("action %d: %w", i, err)
		}
		if u := actions[i].Update; actions[i].Kind == ActionUpdateConfig {
			if err := validateParams(u.VotingPeriod, u.QuorumPercentage, u.ThresholdPercentage); err != nil {
				return fmt.Errorf("action %d: %w", i, err)
			}
		}
	}
	enc, err := rlp.EncodeToBytes(actions)
	if err != nil {
		return err
	}
	if len(enc) > MaxActionsSize {
		return fmt.Errorf("%w: actions are %d bytes, max %d", ErrInputTooLarge, len(enc), MaxActionsSize)
	}
	return nil
}

// CastVote records the caller's vote on an active proposal and adds its weight
// to the matching tally. Each identity votes at most once per proposal.
func (g *Governance) CastVote(call Call, id common.Hash, option VoteOption, weight uint64) error {
	err := g.db.Atomic(func() error {
		proposal, err := g.GetProposal(id)
		if err != nil {
			return err
		}
		if proposal.Status != StatusActive {
			return ErrProposalNotActive
		}
		if call.Time < proposal.VotingStart || call.Time > proposal.VotingEnd {
			return ErrNotInVotingPeriod
		}
		key := voteKey(id, call.Signer)
		exists, err := g.db.Has(key)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicateRecord
		}
		if g.opts.StrictVoteWeight {
			if err := g.checkWeight(call.Signer, weight); err != nil {
				return err
			}
		}
		var counter *uint64
		switch option {
		case VoteFor:
			counter = &proposal.ForVotes
		case VoteAgainst:
			counter = &proposal.AgainstVotes
		case VoteAbstain:
			counter = &proposal.AbstainVotes
		default:
			return fmt.Errorf("%w: %d", ErrInvalidVoteOption, option)
		}
		sum, overflow := math.SafeAdd(*counter, weight)
		if overflow {
			return ErrArithmeticOverflow
		}
		*counter = sum
		record := &VoteRecord{
			Proposal:  id,
			Voter:     call.Signer,
			Option:    option,
			Weight:    weight,
			Timestamp: call.Time,
		}
		if err := g.db.WriteRLP(key, record); err != nil {
			return err
		}
		if err := g.appendAddress(voterIndexKey(id), call.Signer); err != nil {
			return err
		}
		return g.db.WriteRLP(proposalKey(id), proposal)
	})
	if err != nil {
		return err
	}
	voteCastCounter.Inc(1)
	g.log.Debug("Cast vote", "proposal", id, "voter", call.Signer, "option", option, "weight", weight)
	return nil
}

func (g *Governance) checkWeight(voter common.Address, weight uint64) error {
	cfg, err := g.Config()
	if err != nil {
		return err
	}
	balance, err := g.assets.BalanceOf(cfg.TokenMint, voter)
	if err != nil {
		return err
	}
	if weight > balance {
		return fmt.Errorf("%w: weight %d, balance %d", ErrInsufficientWeight, weight, balance)
	}
	return nil
}

// UpdateProposalStatus finalizes an active proposal with the outcome of its
// off-ledger snapshot vote. Only the oracle authority may call it and the
// attestation signature must be present.
func (g *Governance) UpdateProposalStatus(call Call, id common.Hash, outcome SnapshotOutcome, signature []byte) error {
	var status ProposalStatus
	err := g.db.Atomic(func() error {
		cfg, err := g.Config()
		if err != nil {
			return err
		}
		if call.Signer != cfg.OracleAuthority {
			return ErrUnauthorized
		}
		if len(signature) == 0 {
			return ErrInvalidAttestation
		}
		proposal, err := g.GetProposal(id)
		if err != nil {
			return err
		}
		if proposal.Status != StatusActive {
			return ErrProposalNotActive
		}
		if g.opts.FinalizeAfterVotingEnd && call.Time <= proposal.VotingEnd {
			return ErrVotingPeriodNotEnded
		}
		switch outcome {
		case OutcomePassed:
			status = StatusSucceeded
		case OutcomeFailed:
			status = StatusDefeated
		default:
			return fmt.Errorf("%w: unknown outcome %d", ErrInvalidAttestation, outcome)
		}
		proposal.Status = status
		return g.db.WriteRLP(proposalKey(id), proposal)
	})
	if err != nil {
		return err
	}
	proposalFinalizedCounter.Inc(1)
	g.log.Info("Finalized proposal", "id", id, "status", status)
	return nil
}

// GetProposal returns the proposal with the given id.
func (g *Governance) GetProposal(id common.Hash) (*Proposal, error) {
	var p Proposal
	found, err := g.db.ReadRLP(proposalKey(id), &p)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrProposalNotFound
	}
	return &p, nil
}

// Proposals returns all proposals in creation order.
func (g *Governance) Proposals() ([]*Proposal, error) {
	var ids []common.Hash
	if _, err := g.db.ReadRLP(proposalIndexKey, &ids); err != nil {
		return nil, err
	}
	proposals := make([]*Proposal, 0, len(ids))
	for _, id := range ids {
		p, err := g.GetProposal(id)
		if err != nil {
			return nil, err
		}
		proposals = append(proposals, p)
	}
	return proposals, nil
}

// GetVote returns the vote cast by voter on a proposal, or nil if there is none.
func (g *Governance) GetVote(id common.Hash, voter common.Address) (*VoteRecord, error) {
	var v VoteRecord
	found, err := g.db.ReadRLP(voteKey(id, voter), &v)
	if err != nil || !found {
		return nil, err
	}
	return &v, nil
}

// Votes returns the votes cast on a proposal in the order they were cast.
func (g *Governance) Votes(id common.Hash) ([]*VoteRecord, error) {
	var voters []common.Address
	if _, err := g.db.ReadRLP(voterIndexKey(id), &voters); err != nil {
		return nil, err
	}
	votes := make([]*VoteRecord, 0, len(voters))
	for _, voter := range voters {
		v, err := g.GetVote(id, voter)
		if err != nil {
			return nil, err
		}
		votes = append(votes, v)
	}
	return votes, nil
}
