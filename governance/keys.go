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
	"github.com/augustdao/dao/state"
	"github.com/ethereum/go-ethereum/common"
)

// ProgramID identifies the governance program. The governance authority is
// derived from it.
var ProgramID = common.HexToAddress("0x0000000000000000000000000000000000001001")

var (
	configKey        = state.Key("governance/config")
	proposalIndexKey = state.Key("governance/proposals")
)

// Authority returns the derived identity the governance program acts as. It
// authorizes treasury withdrawals and holds collected proposal fees.
func Authority() common.Address {
	return state.DeriveAddress(ProgramID, []byte("dao_config"))
}

// ProposalID returns the identifier of the proposal slot owned by creator.
func ProposalID(creator common.Address) common.Hash {
	return state.Key("proposal", creator.Bytes())
}

func proposalKey(id common.Hash) common.Hash {
	return state.Key("governance/proposal", id.Bytes())
}

func voteKey(id common.Hash, voter common.Address) common.Hash {
	return state.Key("governance/vote", id.Bytes(), voter.Bytes())
}

func voterIndexKey(id common.Hash) common.Hash {
	return state.Key("governance/voters", id.Bytes())
}

func delegationKey(delegator, delegatee common.Address) common.Hash {
	return state.Key("governance/delegation", delegator.Bytes(), delegatee.Bytes())
}

func delegateeIndexKey(delegator common.Address) common.Hash {
	return state.Key("governance/delegatees", delegator.Bytes())
}

// appendHash adds id to the hash list stored under key.
func (g *Governance) appendHash(key, id common.Hash) error {
	var list []common.Hash
	if _, err := g.db.ReadRLP(key, &list); err != nil {
		return err
	}
	return g.db.WriteRLP(key, append(list, id))
}

// appendAddress adds addr to the address list stored under key.
func (g *Governance) appendAddress(key common.Hash, addr common.Address) error {
	var list []common.Address
	if _, err := g.db.ReadRLP(key, &list); err != nil {
		return err
	}
	return g.db.WriteRLP(key, append(list, addr))
}
