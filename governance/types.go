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
	"io"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
)

// Size budgets of a proposal record.
const (
	MaxTitleLength       = 100
	MaxDescriptionLength = 500
	MaxSnapshotIDLength  = 100
	MaxActionsSize       = 1000 // RLP encoded action list
)

// ProposalStatus represents the status of a proposal
type ProposalStatus uint8

const (
	StatusPending   ProposalStatus = 0x00 // declared only, no transition enters it
	StatusActive    ProposalStatus = 0x01
	StatusSucceeded ProposalStatus = 0x02
	StatusDefeated  ProposalStatus = 0x03
	StatusExecuted  ProposalStatus = 0x04
)

func (s ProposalStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusActive:
		return "active"
	case StatusSucceeded:
		return "succeeded"
	case StatusDefeated:
		return "defeated"
	case StatusExecuted:
		return "executed"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// VoteOption is the choice recorded by a vote
type VoteOption uint8

const (
	VoteFor     VoteOption = 0x00
	VoteAgainst VoteOption = 0x01
	VoteAbstain VoteOption = 0x02
)

func (o VoteOption) String() string {
	switch o {
	case VoteFor:
		return "for"
	case VoteAgainst:
		return "against"
	case VoteAbstain:
		return "abstain"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(o))
	}
}

// ParseVoteOption parses "for", "against" or "abstain".
func ParseVoteOption(s string) (VoteOption, error) {
	switch s {
	case "for":
		return VoteFor, nil
	case "against":
		return VoteAgainst, nil
	case "abstain":
		return VoteAbstain, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidVoteOption, s)
}

// SnapshotOutcome is the off-ledger vote result relayed by the attestor
type SnapshotOutcome uint8

const (
	OutcomePassed SnapshotOutcome = 0x00
	OutcomeFailed SnapshotOutcome = 0x01
)

func (o SnapshotOutcome) String() string {
	switch o {
	case OutcomePassed:
		return "passed"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(o))
	}
}

// ParseSnapshotOutcome parses "passed" or "failed".
func ParseSnapshotOutcome(s string) (SnapshotOutcome, error) {
	switch s {
	case "passed":
		return OutcomePassed, nil
	case "failed":
		return OutcomeFailed, nil
	}
	return 0, fmt.Errorf("%w: unknown outcome %q", ErrInvalidAttestation, s)
}

// Call carries the authenticated caller of an operation and the ledger time
// at which it was admitted.
type Call struct {
	Signer common.Address
	Time   uint64 // unix seconds
}

// DaoConfig holds the global DAO parameters. Exactly one exists per deployment.
type DaoConfig struct {
	Authority           common.Address // initializer
	TokenMint           common.Address // governance token
	ProposalFee         uint64         // charged in TokenMint at proposal creation
	VotingPeriod        uint64         // seconds
	QuorumPercentage    uint8
	ThresholdPercentage uint8
	RequirePoH          bool
	OracleAuthority     common.Address // only identity allowed to finalize proposals
}

// DaoParams are the caller supplied parameters of InitializeDAO.
type DaoParams struct {
	ProposalFee         uint64
	VotingPeriod        uint64
	QuorumPercentage    uint8
	ThresholdPercentage uint8
	RequirePoH          bool
	OracleAuthority     common.Address
}

// DefaultDaoParams returns the default DAO parameters
func DefaultDaoParams() *DaoParams {
	return &DaoParams{
		ProposalFee:         0,
		VotingPeriod:        86400, // 1 day
		QuorumPercentage:    20,
		ThresholdPercentage: 51,
	}
}

// ConfigUpdate carries the tunable subset of DaoConfig.
type ConfigUpdate struct {
	VotingPeriod        uint64
	QuorumPercentage    uint8
	ThresholdPercentage uint8
}

// ActionKind tags the variant of a ProposedAction
type ActionKind uint8

const (
	ActionTreasuryTransfer ActionKind = 0x00
	ActionUpdateConfig     ActionKind = 0x01
)

// TreasuryTransfer releases treasury funds to a recipient.
type TreasuryTransfer struct {
	Recipient common.Address
	Amount    uint64
	TokenMint common.Address
}

// ProposedAction is one step of a proposal. Exactly the field matching Kind
// is set.
type ProposedAction struct {
	Kind     ActionKind
	Transfer *TreasuryTransfer
	Update   *ConfigUpdate
}

// NewTreasuryTransfer builds a treasury transfer action.
func NewTreasuryTransfer(recipient common.Address, amount uint64, mint common.Address) ProposedAction {
	return ProposedAction{
		Kind:     ActionTreasuryTransfer,
		Transfer: &TreasuryTransfer{Recipient: recipient, Amount: amount, TokenMint: mint},
	}
}

// NewUpdateConfig builds a configuration update action.
func NewUpdateConfig(update ConfigUpdate) ProposedAction {
	return ProposedAction{Kind: ActionUpdateConfig, Update: &update}
}

// actionRLP is the storage encoding of a ProposedAction.
type actionRLP struct {
	Kind    uint8
	Payload []byte
}

func (a *ProposedAction) payload() (interface{}, error) {
	switch a.Kind {
	case ActionTreasuryTransfer:
		if a.Transfer == nil {
			return nil, fmt.Errorf("%w: treasury transfer without payload", ErrUnknownAction)
		}
		return a.Transfer, nil
	case ActionUpdateConfig:
		if a.Update == nil {
			return nil, fmt.Errorf("%w: config update without payload", ErrUnknownAction)
		}
		return a.Update, nil
	}
	return nil, fmt.Errorf("%w: kind %d", ErrUnknownAction, a.Kind)
}

// EncodeRLP implements rlp.Encoder.
func (a ProposedAction) EncodeRLP(w io.Writer) error {
	payload, err := a.payload()
	if err != nil {
		return err
	}
	enc, err := rlp.EncodeToBytes(payload)
	if err != nil {
		return err
	}
	return rlp.Encode(w, &actionRLP{Kind: uint8(a.Kind), Payload: enc})
}

// DecodeRLP implements rlp.Decoder.
func (a *ProposedAction) DecodeRLP(s *rlp.Stream) error {
	var dec actionRLP
	if err := s.Decode(&dec); err != nil {
		return err
	}
	*a = ProposedAction{Kind: ActionKind(dec.Kind)}
	switch a.Kind {
	case ActionTreasuryTransfer:
		a.Transfer = new(TreasuryTransfer)
		return rlp.DecodeBytes(dec.Payload, a.Transfer)
	case ActionUpdateConfig:
		a.Update = new(ConfigUpdate)
		return rlp.DecodeBytes(dec.Payload, a.Update)
	}
	return fmt.Errorf("%w: kind %d", ErrUnknownAction, dec.Kind)
}

// Proposal represents a governance proposal
type Proposal struct {
	ID           common.Hash // derived from Creator
	Creator      common.Address
	Title        string
	Description  string
	SnapshotID   string // off-ledger snapshot vote
	Actions      []ProposedAction
	CreationTime uint64
	VotingStart  uint64
	VotingEnd    uint64
	Status       ProposalStatus
	ForVotes     uint64
	AgainstVotes uint64
	AbstainVotes uint64
}

// VoteRecord represents a vote on a proposal. It is never modified.
type VoteRecord struct {
	Proposal  common.Hash
	Voter     common.Address
	Option    VoteOption
	Weight    uint64 // caller supplied
	Timestamp uint64
}

// Delegation records voting weight assigned by a delegator to a delegatee.
// A revoked delegation keeps its record with a zero amount.
type Delegation struct {
	Delegator common.Address
	Delegatee common.Address
	Amount    uint64
	Timestamp uint64
}

// Active reports whether the delegation has not been revoked.
func (d *Delegation) Active() bool {
	return d.Amount > 0
}

// Options enable stricter checks than the default behaviour. All are off by
// default.
type Options struct {
	// StrictVoteWeight rejects votes whose weight exceeds the voter's token balance.
	StrictVoteWeight bool

	// FinalizeAfterVotingEnd rejects attestations before the voting window closed.
	FinalizeAfterVotingEnd bool

	// RestrictExecution allows only the DAO authority to execute proposals.
	RestrictExecution bool
}
