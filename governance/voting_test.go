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
	"errors"
	gomath "math"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestCreateProposal(t *testing.T) {
	env := newTestEnv(t, Options{}, nil)
	transfer := NewTreasuryTransfer(bob, 250, testMint)

	id := env.propose(t, alice, transfer)
	if id != ProposalID(alice) {
		t.Errorf("proposal id %v not derived from creator", id)
	}
	p, err := env.gov.GetProposal(id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Creator != alice || p.Title != "title" || p.SnapshotID != "snapshot-1" || p.CreationTime != genesisTime {
		t.Errorf("unexpected proposal: %+v", p)
	}
	if len(p.Actions) != 1 || p.Actions[0].Kind != ActionTreasuryTransfer || *p.Actions[0].Transfer != *transfer.Transfer {
		t.Errorf("actions not stored: %+v", p.Actions)
	}
	if p.ForVotes != 0 || p.AgainstVotes != 0 || p.AbstainVotes != 0 {
		t.Errorf("expected zero tallies")
	}
}

func TestCreateProposal_OnePerCreator(t *testing.T) {
	env := newTestEnv(t, Options{}, nil)
	id := env.propose(t, alice)

	_, err := env.gov.CreateProposal(Call{Signer: alice, Time: genesisTime + 5}, "other", "", "", nil)
	if err != ErrDuplicateRecord {
		t.Errorf("expected error %v, got %v", ErrDuplicateRecord, err)
	}

	// The slot stays occupied after the proposal is finalized
	env.finalize(t, id, OutcomeFailed)
	_, err = env.gov.CreateProposal(Call{Signer: alice, Time: genesisTime + 5}, "other", "", "", nil)
	if err != ErrDuplicateRecord {
		t.Errorf("expected error %v, got %v", ErrDuplicateRecord, err)
	}
	if proposals, _ := env.gov.Proposals(); len(proposals) != 1 {
		t.Errorf("expected 1 proposal, got %d", len(proposals))
	}
}

func TestCreateProposal_SizeBudgets(t *testing.T) {
	env := newTestEnv(t, Options{}, nil)

	manyActions := make([]ProposedAction, 30)
	for i := range manyActions {
		manyActions[i] = NewTreasuryTransfer(bob, uint64(i), testMint)
	}
	tests := []struct {
		name        string
		title       string
		description string
		snapshotID  string
		actions     []ProposedAction
	}{
		{"title", strings.Repeat("t", MaxTitleLength+1), "", "", nil},
		{"description", "", strings.Repeat("d", MaxDescriptionLength+1), "", nil},
		{"snapshot id", "", "", strings.Repeat("s", MaxSnapshotIDLength+1), nil},
		{"actions", "", "", "", manyActions},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.gov.CreateProposal(Call{Signer: alice, Time: genesisTime}, tt.title, tt.description, tt.snapshotID, tt.actions)
			if !errors.Is(err, ErrInputTooLarge) {
				t.Errorf("expected error %v, got %v", ErrInputTooLarge, err)
			}
		})
	}

	// Exactly at the limits is accepted
	_, err := env.gov.CreateProposal(Call{Signer: alice, Time: genesisTime},
		strings.Repeat("t", MaxTitleLength), strings.Repeat("d", MaxDescriptionLength), strings.Repeat("s", MaxSnapshotIDLength), nil)
	if err != nil {
		t.Errorf("unexpected error at size limits: %v", err)
	}
}

func TestCreateProposal_InvalidActions(t *testing.T) {
	env := newTestEnv(t, Options{}, nil)

	tests := []struct {
		name   string
		action ProposedAction
		want   error
	}{
		{"zero voting period", NewUpdateConfig(ConfigUpdate{VotingPeriod: 0}), ErrInvalidConfig},
		{"quorum above 100", NewUpdateConfig(ConfigUpdate{VotingPeriod: 1, QuorumPercentage: 150}), ErrInvalidConfig},
		{"missing payload", ProposedAction{Kind: ActionTreasuryTransfer}, ErrUnknownAction},
		{"unknown kind", ProposedAction{Kind: 7}, ErrUnknownAction},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.gov.CreateProposal(Call{Signer: alice, Time: genesisTime}, "t", "d", "s", []ProposedAction{tt.action})
			if !errors.Is(err, tt.want) {
				t.Errorf("expected error %v, got %v", tt.want, err)
			}
		})
	}
	if _, err := env.gov.GetProposal(ProposalID(alice)); err != ErrProposalNotFound {
		t.Errorf("expected no proposal, got %v", err)
	}
}

func TestCreateProposal_Fee(t *testing.T) {
	params := DefaultDaoParams()
	params.ProposalFee = 100
	env := newTestEnv(t, Options{}, params)
	env.assets.SetBalance(testMint, alice, 150)

	env.propose(t, alice)
	if bal, _ := env.assets.BalanceOf(testMint, alice); bal != 50 {
		t.Errorf("expected creator balance 50, got %d", bal)
	}
	if bal, _ := env.assets.BalanceOf(testMint, Authority()); bal != 100 {
		t.Errorf("expected fee account balance 100, got %d", bal)
	}

	// A creator unable to pay leaves no proposal behind
	env.assets.SetBalance(testMint, bob, 99)
	_, err := env.gov.CreateProposal(Call{Signer: bob, Time: genesisTime}, "t", "d", "s", nil)
	if !errors.Is(err, errMockInsufficient) {
		t.Errorf("expected error %v, got %v", errMockInsufficient, err)
	}
	if _, err := env.gov.GetProposal(ProposalID(bob)); err != ErrProposalNotFound {
		t.Errorf("expected no proposal, got %v", err)
	}
	if proposals, _ := env.gov.Proposals(); len(proposals) != 1 {
		t.Errorf("expected 1 indexed proposal, got %d", len(proposals))
	}
}

func TestCreateProposal_WindowOverflow(t *testing.T) {
	env := newTestEnv(t, Options{}, nil)

	_, err := env.gov.CreateProposal(Call{Signer: alice, Time: gomath.MaxUint64 - 10}, "t", "d", "s", nil)
	if err != ErrArithmeticOverflow {
		t.Errorf("expected error %v, got %v", ErrArithmeticOverflow, err)
	}
}

func TestCastVote_Window(t *testing.T) {
	env := newTestEnv(t, Options{}, nil)
	id := env.propose(t, alice)
	end := genesisTime + DefaultDaoParams().VotingPeriod

	tests := []struct {
		name string
		time uint64
		want error
	}{
		{"before start", genesisTime - 1, ErrNotInVotingPeriod},
		{"at start", genesisTime, nil},
		{"at end", end, nil},
		{"after end", end + 1, ErrNotInVotingPeriod},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			voter := common.BytesToAddress([]byte{0x10, byte(i)})
			if err := env.gov.CastVote(Call{Signer: voter, Time: tt.time}, id, VoteAbstain, 1); err != tt.want {
				t.Errorf("expected error %v, got %v", tt.want, err)
			}
		})
	}
	p, _ := env.gov.GetProposal(id)
	if p.AbstainVotes != 2 {
		t.Errorf("expected 2 counted votes, got %d", p.AbstainVotes)
	}
}

func TestCastVote_Duplicate(t *testing.T) {
	env := newTestEnv(t, Options{}, nil)
	id := env.propose(t, alice)

	if err := env.gov.CastVote(Call{Signer: bob, Time: genesisTime}, id, VoteFor, 10); err != nil {
		t.Fatalf("vote failed: %v", err)
	}
	for _, option := range []VoteOption{VoteFor, VoteAgainst, VoteAbstain} {
		if err := env.gov.CastVote(Call{Signer: bob, Time: genesisTime + 1}, id, option, 10); err != ErrDuplicateRecord {
			t.Errorf("vote %v: expected error %v, got %v", option, ErrDuplicateRecord, err)
		}
	}
	p, _ := env.gov.GetProposal(id)
	if p.ForVotes != 10 || p.AgainstVotes != 0 || p.AbstainVotes != 0 {
		t.Errorf("tallies changed by duplicate vote: %d/%d/%d", p.ForVotes, p.AgainstVotes, p.AbstainVotes)
	}

	v, err := env.gov.GetVote(id, bob)
	if err != nil || v == nil {
		t.Fatalf("vote not found: %v", err)
	}
	if v.Option != VoteFor || v.Weight != 10 || v.Timestamp != genesisTime {
		t.Errorf("unexpected vote record: %+v", v)
	}
	if v, _ := env.gov.GetVote(id, carol); v != nil {
		t.Errorf("unexpected vote for carol: %+v", v)
	}
}

func TestCastVote_Overflow(t *testing.T) {
	env := newTestEnv(t, Options{}, nil)
	id := env.propose(t, alice)

	if err := env.gov.CastVote(Call{Signer: bob, Time: genesisTime}, id, VoteAgainst, gomath.MaxUint64); err != nil {
		t.Fatalf("vote failed: %v", err)
	}
	if err := env.gov.CastVote(Call{Signer: carol, Time: genesisTime}, id, VoteAgainst, 1); err != ErrArithmeticOverflow {
		t.Errorf("expected error %v, got %v", ErrArithmeticOverflow, err)
	}
	p, _ := env.gov.GetProposal(id)
	if p.AgainstVotes != gomath.MaxUint64 {
		t.Errorf("counter changed after overflow: %d", p.AgainstVotes)
	}
	// The rejected voter may still vote on another counter
	if v, _ := env.gov.GetVote(id, carol); v != nil {
		t.Errorf("vote recorded despite overflow: %+v", v)
	}
	if err := env.gov.CastVote(Call{Signer: carol, Time: genesisTime}, id, VoteFor, 1); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestCastVote_Unknown(t *testing.T) {
	env := newTestEnv(t, Options{}, nil)
	id := env.propose(t, alice)

	if err := env.gov.CastVote(Call{Signer: bob, Time: genesisTime}, common.Hash{0x01}, VoteFor, 1); err != ErrProposalNotFound {
		t.Errorf("expected error %v, got %v", ErrProposalNotFound, err)
	}
	if err := env.gov.CastVote(Call{Signer: bob, Time: genesisTime}, id, VoteOption(9), 1); !errors.Is(err, ErrInvalidVoteOption) {
		t.Errorf("expected error %v, got %v", ErrInvalidVoteOption, err)
	}
}

// TestCastVote_WeightUnchecked shows that vote weight is taken as supplied
// unless StrictVoteWeight is set.
func TestCastVote_WeightUnchecked(t *testing.T) {
	env := newTestEnv(t, Options{}, nil)
	id := env.propose(t, alice)

	if err := env.gov.CastVote(Call{Signer: bob, Time: genesisTime}, id, VoteFor, 1_000_000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p, _ := env.gov.GetProposal(id); p.ForVotes != 1_000_000 {
		t.Errorf("expected for votes 1000000, got %d", p.ForVotes)
	}
}

func TestCastVote_StrictWeight(t *testing.T) {
	env := newTestEnv(t, Options{StrictVoteWeight: true}, nil)
	env.assets.SetBalance(testMint, bob, 300)
	id := env.propose(t, alice)

	if err := env.gov.CastVote(Call{Signer: bob, Time: genesisTime}, id, VoteFor, 301); !errors.Is(err, ErrInsufficientWeight) {
		t.Errorf("expected error %v, got %v", ErrInsufficientWeight, err)
	}
	if err := env.gov.CastVote(Call{Signer: bob, Time: genesisTime}, id, VoteFor, 300); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

// TestCastVote_DelegationInert shows that delegations do not change tallies.
func TestCastVote_DelegationInert(t *testing.T) {
	env := newTestEnv(t, Options{}, nil)
	id := env.propose(t, alice)

	if err := env.gov.DelegateVotes(Call{Signer: carol, Time: genesisTime}, bob, 5000); err != nil {
		t.Fatalf("delegation failed: %v", err)
	}
	if err := env.gov.CastVote(Call{Signer: bob, Time: genesisTime}, id, VoteFor, 7); err != nil {
		t.Fatalf("vote failed: %v", err)
	}
	if p, _ := env.gov.GetProposal(id); p.ForVotes != 7 {
		t.Errorf("expected for votes 7, got %d", p.ForVotes)
	}
}

func TestVotes(t *testing.T) {
	env := newTestEnv(t, Options{}, nil)
	id := env.propose(t, alice)

	voters := []common.Address{carol, bob, alice}
	for i, voter := range voters {
		if err := env.gov.CastVote(Call{Signer: voter, Time: genesisTime + uint64(i)}, id, VoteAbstain, uint64(i+1)); err != nil {
			t.Fatalf("vote failed: %v", err)
		}
	}
	votes, err := env.gov.Votes(id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(votes) != len(voters) {
		t.Fatalf("expected %d votes, got %d", len(voters), len(votes))
	}
	for i, v := range votes {
		if v.Voter != voters[i] || v.Weight != uint64(i+1) {
			t.Errorf("vote %d: unexpected record %+v", i, v)
		}
	}
}

func TestUpdateProposalStatus(t *testing.T) {
	env := newTestEnv(t, Options{}, nil)
	id := env.propose(t, alice)

	// Only the oracle authority
	for _, caller := range []common.Address{alice, daoAuthority, Authority()} {
		err := env.gov.UpdateProposalStatus(Call{Signer: caller, Time: genesisTime}, id, OutcomePassed, []byte{1})
		if err != ErrUnauthorized {
			t.Errorf("caller %v: expected error %v, got %v", caller, ErrUnauthorized, err)
		}
	}
	// Signature must be present
	if err := env.gov.UpdateProposalStatus(Call{Signer: oracleAuthority, Time: genesisTime}, id, OutcomePassed, nil); err != ErrInvalidAttestation {
		t.Errorf("expected error %v, got %v", ErrInvalidAttestation, err)
	}
	// Unknown outcome
	if err := env.gov.UpdateProposalStatus(Call{Signer: oracleAuthority, Time: genesisTime}, id, SnapshotOutcome(5), []byte{1}); !errors.Is(err, ErrInvalidAttestation) {
		t.Errorf("expected error %v, got %v", ErrInvalidAttestation, err)
	}
	if s := env.status(t, id); s != StatusActive {
		t.Errorf("expected status %v, got %v", StatusActive, s)
	}

	env.finalize(t, id, OutcomeFailed)
	if s := env.status(t, id); s != StatusDefeated {
		t.Errorf("expected status %v, got %v", StatusDefeated, s)
	}
}

// TestUpdateProposalStatus_NoWindowCheck shows that the oracle can finalize at
// any time while the proposal is active, before or after the window.
func TestUpdateProposalStatus_NoWindowCheck(t *testing.T) {
	env := newTestEnv(t, Options{}, nil)
	early := env.propose(t, alice)
	late := env.propose(t, bob)

	if err := env.gov.UpdateProposalStatus(Call{Signer: oracleAuthority, Time: genesisTime}, early, OutcomePassed, []byte{1}); err != nil {
		t.Errorf("finalize at window start failed: %v", err)
	}
	if err := env.gov.UpdateProposalStatus(Call{Signer: oracleAuthority, Time: genesisTime + 10*86400}, late, OutcomePassed, []byte{1}); err != nil {
		t.Errorf("finalize after window failed: %v", err)
	}
	// Before the proposal was even created
	carolID := env.propose(t, carol)
	if err := env.gov.UpdateProposalStatus(Call{Signer: oracleAuthority, Time: 0}, carolID, OutcomeFailed, []byte{1}); err != nil {
		t.Errorf("finalize before creation failed: %v", err)
	}
}

func TestUpdateProposalStatus_AfterVotingEnd(t *testing.T) {
	env := newTestEnv(t, Options{FinalizeAfterVotingEnd: true}, nil)
	id := env.propose(t, alice)
	end := genesisTime + DefaultDaoParams().VotingPeriod

	if err := env.gov.UpdateProposalStatus(Call{Signer: oracleAuthority, Time: end}, id, OutcomePassed, []byte{1}); err != ErrVotingPeriodNotEnded {
		t.Errorf("expected error %v, got %v", ErrVotingPeriodNotEnded, err)
	}
	if err := env.gov.UpdateProposalStatus(Call{Signer: oracleAuthority, Time: end + 1}, id, OutcomePassed, []byte{1}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestOperationCounters(t *testing.T) {
	env := newTestEnv(t, Options{}, nil)

	created := proposalCreatedCounter.Snapshot().Count()
	votes := voteCastCounter.Snapshot().Count()
	finalized := proposalFinalizedCounter.Snapshot().Count()
	executed := proposalExecutedCounter.Snapshot().Count()

	id := env.propose(t, alice)
	if err := env.gov.CastVote(Call{Signer: bob, Time: genesisTime + 1}, id, VoteFor, 10); err != nil {
		t.Fatalf("vote failed: %v", err)
	}
	// Rejected operations are not counted
	if err := env.gov.CastVote(Call{Signer: bob, Time: genesisTime + 1}, id, VoteFor, 10); err != ErrDuplicateRecord {
		t.Fatalf("expected error %v, got %v", ErrDuplicateRecord, err)
	}
	if _, err := env.gov.CreateProposal(Call{Signer: alice, Time: genesisTime}, "again", "", "", nil); err != ErrDuplicateRecord {
		t.Fatalf("expected error %v, got %v", ErrDuplicateRecord, err)
	}
	env.finalize(t, id, OutcomePassed)
	if err := env.gov.ExecuteProposal(Call{Signer: carol, Time: genesisTime + 2}, id); err != nil {
		t.Fatalf("execution failed: %v", err)
	}

	tests := []struct {
		name       string
		have, want int64
	}{
		{"created", proposalCreatedCounter.Snapshot().Count(), created + 1},
		{"votes", voteCastCounter.Snapshot().Count(), votes + 1},
		{"finalized", proposalFinalizedCounter.Snapshot().Count(), finalized + 1},
		{"executed", proposalExecutedCounter.Snapshot().Count(), executed + 1},
	}
	for _, tt := range tests {
		if tt.have != tt.want {
			t.Errorf("%s counter: have %d, want %d", tt.name, tt.have, tt.want)
		}
	}
}
