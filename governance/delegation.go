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

// DelegateVotes records that the caller delegates amount of voting weight to
// delegatee. Delegations are bookkeeping only and do not change any tally.
//
// Delegating to oneself or delegating a zero amount fails with
// ErrInvalidDelegation, since a zero amount marks a revoked record. A pair
// with an active delegation cannot be delegated again. A revoked pair is
// re-activated in place.
func (g *Governance) DelegateVotes(call Call, delegatee common.Address, amount uint64) error {
	if delegatee == call.Signer {
		return fmt.Errorf("%w: self delegation", ErrInvalidDelegation)
	}
	if amount == 0 {
		return fmt.Errorf("%w: zero amount", ErrInvalidDelegation)
	}
	err := g.db.Atomic(func() error {
		key := delegationKey(call.Signer, delegatee)
		var existing Delegation
		found, err := g.db.ReadRLP(key, &existing)
		if err != nil {
			return err
		}
		if found && existing.Active() {
			return ErrDuplicateRecord
		}
		d := &Delegation{
			Delegator: call.Signer,
			Delegatee: delegatee,
			Amount:    amount,
			Timestamp: call.Time,
		}
		if err := g.db.WriteRLP(key, d); err != nil {
			return err
		}
		if found {
			return nil
		}
		return g.appendAddress(delegateeIndexKey(call.Signer), delegatee)
	})
	if err != nil {
		return err
	}
	delegationCounter.Inc(1)
	g.log.Info("Delegated votes", "delegator", call.Signer, "delegatee", delegatee, "amount", amount)
	return nil
}

// RevokeDelegation zeroes the delegation from delegator to delegatee. Only the
// delegator may revoke. The record is retained.
func (g *Governance) RevokeDelegation(call Call, delegator, delegatee common.Address) error {
	if call.Signer != delegator {
		return ErrUnauthorized
	}
	err := g.db.Atomic(func() error {
		d, err := g.GetDelegation(delegator, delegatee)
		if err != nil {
			return err
		}
		d.Amount = 0
		return g.db.WriteRLP(delegationKey(delegator, delegatee), d)
	})
	if err != nil {
		return err
	}
	g.log.Info("Revoked delegation", "delegator", delegator, "delegatee", delegatee)
	return nil
}

// GetDelegation returns the delegation record of a pair.
func (g *Governance) GetDelegation(delegator, delegatee common.Address) (*Delegation, error) {
	var d Delegation
	found, err := g.db.ReadRLP(delegationKey(delegator, delegatee), &d)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrDelegationNotFound
	}
	return &d, nil
}

// DelegationsFrom returns every delegation record of delegator, revoked ones
// included, in the order the pairs were first created.
func (g *Governance) DelegationsFrom(delegator common.Address) ([]*Delegation, error) {
	var delegatees []common.Address
	if _, err := g.db.ReadRLP(delegateeIndexKey(delegator), &delegatees); err != nil {
		return nil, err
	}
	out := make([]*Delegation, 0, len(delegatees))
	for _, delegatee := range delegatees {
		d, err := g.GetDelegation(delegator, delegatee)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}
