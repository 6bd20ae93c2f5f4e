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

// Package treasury implements the value-custody service holding DAO funds.
// Funds leave the vault only through Withdraw, authorized by the governance
// identity recorded at initialization.
package treasury

import (
	"errors"

	"github.com/augustdao/dao/state"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
)

// ProgramID identifies the treasury program. Vault holders are derived from it.
var ProgramID = common.HexToAddress("0x0000000000000000000000000000000000001002")

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrAlreadyInitialized = errors.New("treasury already initialized")
	ErrNotInitialized     = errors.New("treasury not initialized")
	ErrTokenMismatch      = errors.New("token does not match treasury mint")
)

var vaultKey = state.Key("treasury/vault")

// Assets is the token functionality the treasury needs.
type Assets interface {
	Transfer(mint, from, to common.Address, amount uint64, authority common.Address) error
	BalanceOf(mint, holder common.Address) (uint64, error)
}

// Vault is the treasury record.
type Vault struct {
	Authority  common.Address // initializer
	Governance common.Address // only identity allowed to withdraw
	Mint       common.Address
	Holder     common.Address // derived account holding the funds
}

// Service is the custody service.
type Service struct {
	db     *state.StateDB
	assets Assets
	log    log.Logger
}

// NewService creates a treasury over the given state and asset service.
func NewService(db *state.StateDB, assets Assets) *Service {
	return &Service{
		db:     db,
		assets: assets,
		log:    log.New("module", "treasury"),
	}
}

// VaultHolder returns the derived account that holds funds for a treasury
// initialized by authority.
func VaultHolder(authority common.Address) common.Address {
	return state.DeriveAddress(ProgramID, []byte("treasury"), authority.Bytes())
}

// Initialize creates the treasury vault for mint, withdrawable only by the
// governance identity.
func (s *Service) Initialize(signer, governance, mint common.Address) (*Vault, error) {
	vault := &Vault{
		Authority:  signer,
		Governance: governance,
		Mint:       mint,
		Holder:     VaultHolder(signer),
	}
	err := s.db.Atomic(func() error {
		exists, err := s.db.Has(vaultKey)
		if err != nil {
			return err
		}
		if exists {
			return ErrAlreadyInitialized
		}
		return s.db.WriteRLP(vaultKey, vault)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Initialized treasury", "holder", vault.Holder, "governance", governance, "mint", mint)
	return vault, nil
}

// Vault returns the treasury record.
func (s *Service) Vault() (*Vault, error) {
	var v Vault
	found, err := s.db.ReadRLP(vaultKey, &v)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotInitialized
	}
	return &v, nil
}

// Balance returns the funds held by the vault.
func (s *Service) Balance() (uint64, error) {
	v, err := s.Vault()
	if err != nil {
		return 0, err
	}
	return s.assets.BalanceOf(v.Mint, v.Holder)
}

// Deposit moves amount of the treasury mint from depositor into the vault.
func (s *Service) Deposit(depositor common.Address, amount uint64) error {
	return s.db.Atomic(func() error {
		v, err := s.Vault()
		if err != nil {
			return err
		}
		return s.assets.Transfer(v.Mint, depositor, v.Holder, amount, depositor)
	})
}

// Withdraw releases amount to recipient. The authorizing identity must be the
// governance identity stored in the vault and mint must match the vault mint.
func (s *Service) Withdraw(authority, recipient, mint common.Address, amount uint64) error {
	return s.db.Atomic(func() error {
		v, err := s.Vault()
		if err != nil {
			return err
		}
		if authority != v.Governance {
			return ErrUnauthorized
		}
		if mint != v.Mint {
			return ErrTokenMismatch
		}
		if err := s.assets.Transfer(v.Mint, v.Holder, recipient, amount, v.Holder); err != nil {
			return err
		}
		s.log.Info("Released treasury funds", "recipient", recipient, "amount", amount)
		return nil
	})
}
