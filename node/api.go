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

package node

import (
	"fmt"

	"github.com/augustdao/dao/governance"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Action types in the RPC encoding
const (
	ActionTypeTreasuryTransfer = "treasuryTransfer"
	ActionTypeUpdateConfig     = "updateConfig"
)

// RPCConfig is the RPC representation of the DAO configuration.
type RPCConfig struct {
	Authority           common.Address `json:"authority"`
	TokenMint           common.Address `json:"tokenMint"`
	ProposalFee         hexutil.Uint64 `json:"proposalFee"`
	VotingPeriod        hexutil.Uint64 `json:"votingPeriod"`
	QuorumPercentage    hexutil.Uint   `json:"quorumPercentage"`
	ThresholdPercentage hexutil.Uint   `json:"thresholdPercentage"`
	RequirePoH          bool           `json:"requirePoH"`
	OracleAuthority     common.Address `json:"oracleAuthority"`
}

// RPCAction is the RPC representation of a proposed action. The fields used
// depend on Type.
type RPCAction struct {
	Type string `json:"type"`

	// treasuryTransfer
	Recipient *common.Address `json:"recipient,omitempty"`
	Amount    *hexutil.Uint64 `json:"amount,omitempty"`
	TokenMint *common.Address `json:"tokenMint,omitempty"`

	// updateConfig
	VotingPeriod        *hexutil.Uint64 `json:"votingPeriod,omitempty"`
	QuorumPercentage    *hexutil.Uint   `json:"quorumPercentage,omitempty"`
	ThresholdPercentage *hexutil.Uint   `json:"thresholdPercentage,omitempty"`
}

// RPCProposal is the RPC representation of a proposal.
type RPCProposal struct {
	ID           common.Hash    `json:"id"`
	Creator      common.Address `json:"creator"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	SnapshotID   string         `json:"snapshotId"`
	Actions      []RPCAction    `json:"actions"`
	CreationTime hexutil.Uint64 `json:"creationTime"`
	VotingStart  hexutil.Uint64 `json:"votingStart"`
	VotingEnd    hexutil.Uint64 `json:"votingEnd"`
	Status       string         `json:"status"`
	ForVotes     hexutil.Uint64 `json:"forVotes"`
	AgainstVotes hexutil.Uint64 `json:"againstVotes"`
	AbstainVotes hexutil.Uint64 `json:"abstainVotes"`
}

// RPCVote is the RPC representation of a vote record.
type RPCVote struct {
	Proposal  common.Hash    `json:"proposal"`
	Voter     common.Address `json:"voter"`
	Option    string         `json:"option"`
	Weight    hexutil.Uint64 `json:"weight"`
	Timestamp hexutil.Uint64 `json:"timestamp"`
}

// RPCDelegation is the RPC representation of a delegation.
type RPCDelegation struct {
	Delegator common.Address `json:"delegator"`
	Delegatee common.Address `json:"delegatee"`
	Amount    hexutil.Uint64 `json:"amount"`
	Timestamp hexutil.Uint64 `json:"timestamp"`
	Active    bool           `json:"active"`
}

// ProposalArgs are the arguments of dao_createProposal.
type ProposalArgs struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	SnapshotID  string      `json:"snapshotId"`
	Actions     []RPCAction `json:"actions"`
}

func newRPCConfig(c *governance.DaoConfig) *RPCConfig {
	return &RPCConfig{
		Authority:           c.Authority,
		TokenMint:           c.TokenMint,
		ProposalFee:         hexutil.Uint64(c.ProposalFee),
		VotingPeriod:        hexutil.Uint64(c.VotingPeriod),
		QuorumPercentage:    hexutil.Uint(c.QuorumPercentage),
		ThresholdPercentage: hexutil.Uint(c.ThresholdPercentage),
		RequirePoH:          c.RequirePoH,
		OracleAuthority:     c.OracleAuthority,
	}
}

func newRPCAction(a *governance.ProposedAction) RPCAction {
	switch a.Kind {
	case governance.ActionTreasuryTransfer:
		amount := hexutil.Uint64(a.Transfer.Amount)
		return RPCAction{
			Type:      ActionTypeTreasuryTransfer,
			Recipient: &a.Transfer.Recipient,
			Amount:    &amount,
			TokenMint: &a.Transfer.TokenMint,
		}
	case governance.ActionUpdateConfig:
		var (
			period    = hexutil.Uint64(a.Update.VotingPeriod)
			quorum    = hexutil.Uint(a.Update.QuorumPercentage)
			threshold = hexutil.Uint(a.Update.ThresholdPercentage)
		)
		return RPCAction{
			Type:                ActionTypeUpdateConfig,
			VotingPeriod:        &period,
			QuorumPercentage:    &quorum,
			ThresholdPercentage: &threshold,
		}
	}
	return RPCAction{Type: fmt.Sprintf("unknown(%d)", a.Kind)}
}

// toAction converts the RPC representation into a proposed action.
func (a *RPCAction) toAction() (governance.ProposedAction, error) {
	switch a.Type {
	case ActionTypeTreasuryTransfer:
		if a.Recipient == nil || a.Amount == nil || a.TokenMint == nil {
			return governance.ProposedAction{}, fmt.Errorf("%w: treasuryTransfer requires recipient, amount and tokenMint", governance.ErrUnknownAction)
		}
		return governance.NewTreasuryTransfer(*a.Recipient, uint64(*a.Amount), *a.TokenMint), nil
	case ActionTypeUpdateConfig:
		if a.VotingPeriod == nil || a.QuorumPercentage == nil || a.ThresholdPercentage == nil {
			return governance.ProposedAction{}, fmt.Errorf("%w: updateConfig requires votingPeriod, quorumPercentage and thresholdPercentage", governance.ErrUnknownAction)
		}
		if *a.QuorumPercentage > 100 || *a.ThresholdPercentage > 100 {
			return governance.ProposedAction{}, fmt.Errorf("%w: percentage exceeds 100%%", governance.ErrInvalidConfig)
		}
		return governance.NewUpdateConfig(governance.ConfigUpdate{
			VotingPeriod:        uint64(*a.VotingPeriod),
			QuorumPercentage:    uint8(*a.QuorumPercentage),
			ThresholdPercentage: uint8(*a.ThresholdPercentage),
		}), nil
	}
	return governance.ProposedAction{}, fmt.Errorf("%w: type %q", governance.ErrUnknownAction, a.Type)
}

func newRPCProposal(p *governance.Proposal) *RPCProposal {
	actions := make([]RPCAction, len(p.Actions))
	for i := range p.Actions {
		actions[i] = newRPCAction(&p.Actions[i])
	}
	return &RPCProposal{
		ID:           p.ID,
		Creator:      p.Creator,
		Title:        p.Title,
		Description:  p.Description,
		SnapshotID:   p.SnapshotID,
		Actions:      actions,
		CreationTime: hexutil.Uint64(p.CreationTime),
		VotingStart:  hexutil.Uint64(p.VotingStart),
		VotingEnd:    hexutil.Uint64(p.VotingEnd),
		Status:       p.Status.String(),
		ForVotes:     hexutil.Uint64(p.ForVotes),
		AgainstVotes: hexutil.Uint64(p.AgainstVotes),
		AbstainVotes: hexutil.Uint64(p.AbstainVotes),
	}
}

func newRPCVote(v *governance.VoteRecord) *RPCVote {
	return &RPCVote{
		Proposal:  v.Proposal,
		Voter:     v.Voter,
		Option:    v.Option.String(),
		Weight:    hexutil.Uint64(v.Weight),
		Timestamp: hexutil.Uint64(v.Timestamp),
	}
}

func newRPCDelegation(d *governance.Delegation) *RPCDelegation {
	return &RPCDelegation{
		Delegator: d.Delegator,
		Delegatee: d.Delegatee,
		Amount:    hexutil.Uint64(d.Amount),
		Timestamp: hexutil.Uint64(d.Timestamp),
		Active:    d.Active(),
	}
}

// DAOAPI offers the DAO operations over RPC. The caller identity of a mutating
// method is its from argument; authenticating it is the transport's concern.
type DAOAPI struct {
	n *Node
}

// GetConfig returns the DAO configuration.
func (api *DAOAPI) GetConfig() (*RPCConfig, error) {
	var cfg *governance.DaoConfig
	err := api.n.View(func() (err error) {
		cfg, err = api.n.governance.Config()
		return err
	})
	if err != nil {
		return nil, err
	}
	return newRPCConfig(cfg), nil
}

// GetProposal returns the proposal with the given id.
func (api *DAOAPI) GetProposal(id common.Hash) (*RPCProposal, error) {
	var p *governance.Proposal
	err := api.n.View(func() (err error) {
		p, err = api.n.governance.GetProposal(id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return newRPCProposal(p), nil
}

// Proposals returns all proposals in creation order.
func (api *DAOAPI) Proposals() ([]*RPCProposal, error) {
	var list []*governance.Proposal
	err := api.n.View(func() (err error) {
		list, err = api.n.governance.Proposals()
		return err
	})
	if err != nil {
		return nil, err
	}
	out := make([]*RPCProposal, len(list))
	for i, p := range list {
		out[i] = newRPCProposal(p)
	}
	return out, nil
}

// GetVote returns the vote of voter on a proposal, or null.
func (api *DAOAPI) GetVote(id common.Hash, voter common.Address) (*RPCVote, error) {
	var v *governance.VoteRecord
	err := api.n.View(func() (err error) {
		v, err = api.n.governance.GetVote(id, voter)
		return err
	})
	if err != nil || v == nil {
		return nil, err
	}
	return newRPCVote(v), nil
}

// Votes returns the votes cast on a proposal.
func (api *DAOAPI) Votes(id common.Hash) ([]*RPCVote, error) {
	var list []*governance.VoteRecord
	err := api.n.View(func() (err error) {
		list, err = api.n.governance.Votes(id)
		return err
	})
	if err != nil {
		return nil, err
	}
	out := make([]*RPCVote, len(list))
	for i, v := range list {
		out[i] = newRPCVote(v)
	}
	return out, nil
}

// GetDelegation returns the delegation of a pair.
func (api *DAOAPI) GetDelegation(delegator, delegatee common.Address) (*RPCDelegation, error) {
	var d *governance.Delegation
	err := api.n.View(func() (err error) {
		d, err = api.n.governance.GetDelegation(delegator, delegatee)
		return err
	})
	if err != nil {
		return nil, err
	}
	return newRPCDelegation(d), nil
}

// Delegations returns every delegation made by delegator.
func (api *DAOAPI) Delegations(delegator common.Address) ([]*RPCDelegation, error) {
	var list []*governance.Delegation
	err := api.n.View(func() (err error) {
		list, err = api.n.governance.DelegationsFrom(delegator)
		return err
	})
	if err != nil {
		return nil, err
	}
	out := make([]*RPCDelegation, len(list))
	for i, d := range list {
		out[i] = newRPCDelegation(d)
	}
	return out, nil
}

// BalanceOf returns the governance token balance of holder.
func (api *DAOAPI) BalanceOf(holder common.Address) (hexutil.Uint64, error) {
	var balance uint64
	err := api.n.View(func() error {
		cfg, err := api.n.governance.Config()
		if err != nil {
			return err
		}
		balance, err = api.n.tokens.BalanceOf(cfg.TokenMint, holder)
		return err
	})
	return hexutil.Uint64(balance), err
}

// TreasuryBalance returns the funds held by the treasury.
func (api *DAOAPI) TreasuryBalance() (hexutil.Uint64, error) {
	var balance uint64
	err := api.n.View(func() (err error) {
		balance, err = api.n.treasury.Balance()
		return err
	})
	return hexutil.Uint64(balance), err
}

// CreateProposal creates a proposal owned by from.
func (api *DAOAPI) CreateProposal(from common.Address, args ProposalArgs) (common.Hash, error) {
	actions := make([]governance.ProposedAction, len(args.Actions))
	for i := range args.Actions {
		a, err := args.Actions[i].toAction()
		if err != nil {
			return common.Hash{}, fmt.Errorf("action %d: %w", i, err)
		}
		actions[i] = a
	}
	var id common.Hash
	err := api.n.Apply(func(now uint64) (err error) {
		call := governance.Call{Signer: from, Time: now}
		id, err = api.n.governance.CreateProposal(call, args.Title, args.Description, args.SnapshotID, actions)
		return err
	})
	return id, err
}

// CastVote casts the vote of from on a proposal. Option is "for", "against"
// or "abstain".
func (api *DAOAPI) CastVote(from common.Address, id common.Hash, option string, weight hexutil.Uint64) error {
	o, err := governance.ParseVoteOption(option)
	if err != nil {
		return err
	}
	return api.n.Apply(func(now uint64) error {
		return api.n.governance.CastVote(governance.Call{Signer: from, Time: now}, id, o, uint64(weight))
	})
}

// SubmitAttestation relays a snapshot outcome, "passed" or "failed", signed by
// the attestor from.
func (api *DAOAPI) SubmitAttestation(from common.Address, id common.Hash, snapshotID string, outcome string, signature hexutil.Bytes) error {
	o, err := governance.ParseSnapshotOutcome(outcome)
	if err != nil {
		return err
	}
	return api.n.Apply(func(now uint64) error {
		return api.n.oracle.VerifySnapshotVote(governance.Call{Signer: from, Time: now}, id, snapshotID, o, signature)
	})
}

// ExecuteProposal executes a succeeded proposal on behalf of from.
func (api *DAOAPI) ExecuteProposal(from common.Address, id common.Hash) error {
	return api.n.Apply(func(now uint64) error {
		return api.n.governance.ExecuteProposal(governance.Call{Signer: from, Time: now}, id)
	})
}

// Delegate delegates amount of voting weight from from to delegatee.
func (api *DAOAPI) Delegate(from, delegatee common.Address, amount hexutil.Uint64) error {
	return api.n.Apply(func(now uint64) error {
		return api.n.governance.DelegateVotes(governance.Call{Signer: from, Time: now}, delegatee, uint64(amount))
	})
}

// RevokeDelegation revokes the delegation from delegator to delegatee.
func (api *DAOAPI) RevokeDelegation(from, delegator, delegatee common.Address) error {
	return api.n.Apply(func(now uint64) error {
		return api.n.governance.RevokeDelegation(governance.Call{Signer: from, Time: now}, delegator, delegatee)
	})
}
