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

// Package token implements the fungible governance asset: mint initialization,
// minting, burning and transfers over the shared ledger state.
package token

import (
	"fmt"

	"github.com/augustdao/dao/state"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/log"
)

// Size budgets of a mint record.
const (
	MaxNameLength   = 100
	MaxSymbolLength = 10
)

var (
	mintPrefix    = "token/mint"
	balancePrefix = "token/balance"
)

// Mint describes a fungible asset.
type Mint struct {
	Authority   common.Address // may mint new supply
	Name        string
	Symbol      string
	Decimals    uint8
	TotalSupply uint64
}

// Service manages mints and balances.
type Service struct {
	db  *state.StateDB
	log log.Logger
}

// NewService creates a token service over the given state.
func NewService(db *state.StateDB) *Service {
	return &Service{
		db:  db,
		log: log.New("module", "token"),
	}
}

// InitializeMint creates a new asset and credits the initial supply to
// recipient. The signer becomes the mint authority.
func (s *Service) InitializeMint(signer, mint common.Address, name, symbol string, decimals uint8, initialSupply uint64, recipient common.Address) error {
	if len(name) > MaxNameLength {
		return fmt.Errorf("%w: name is %d bytes, max %d", ErrInputTooLarge, len(name), MaxNameLength)
	}
	if len(symbol) > MaxSymbolLength {
		return fmt.Errorf("%w: symbol is %d bytes, max %d", ErrInputTooLarge, len(symbol), MaxSymbolLength)
	}
	return s.db.Atomic(func() error {
		exists, err := s.db.Has(mintKey(mint))
		if err != nil {
			return err
		}
		if exists {
			return ErrMintExists
		}
		m := &Mint{
			Authority:   signer,
			Name:        name,
			Symbol:      symbol,
			Decimals:    decimals,
			TotalSupply: initialSupply,
		}
		if err := s.db.WriteRLP(mintKey(mint), m); err != nil {
			return err
		}
		if err := s.credit(mint, recipient, initialSupply); err != nil {
			return err
		}
		s.log.Info("Initialized mint", "mint", mint, "symbol", symbol, "supply", initialSupply)
		return nil
	})
}

// GetMint returns the mint record.
func (s *Service) GetMint(mint common.Address) (*Mint, error) {
	var m Mint
	found, err := s.db.ReadRLP(mintKey(mint), &m)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrMintNotFound
	}
	return &m, nil
}

// MintTo creates new supply. Only the mint authority may call it.
func (s *Service) MintTo(signer, mint, recipient common.Address, amount uint64) error {
	return s.db.Atomic(func() error {
		m, err := s.GetMint(mint)
		if err != nil {
			return err
		}
		if m.Authority != signer {
			return ErrUnauthorized
		}
		supply, overflow := math.SafeAdd(m.TotalSupply, amount)
		if overflow {
			return ErrArithmeticOverflow
		}
		m.TotalSupply = supply
		if err := s.db.WriteRLP(mintKey(mint), m); err != nil {
			return err
		}
		return s.credit(mint, recipient, amount)
	})
}

// Burn destroys amount of the holder's balance.
func (s *Service) Burn(holder, mint common.Address, amount uint64) error {
	return s.db.Atomic(func() error {
		m, err := s.GetMint(mint)
		if err != nil {
			return err
		}
		if err := s.debit(mint, holder, amount); err != nil {
			return err
		}
		supply, underflow := math.SafeSub(m.TotalSupply, amount)
		if underflow {
			return ErrArithmeticOverflow
		}
		m.TotalSupply = supply
		return s.db.WriteRLP(mintKey(mint), m)
	})
}

// Transfer moves amount from one holder to another. The authorizing identity
// must be the sender.
func (s *Service) Transfer(mint, from, to common.Address, amount uint64, authority common.Address) error {
	if authority != from {
		return ErrUnauthorized
	}
	return s.db.Atomic(func() error {
		if _, err := s.GetMint(mint); err != nil {
			return err
		}
		if err := s.debit(mint, from, amount); err != nil {
			return err
		}
		if err := s.credit(mint, to, amount); err != nil {
			return err
		}
		s.log.Debug("Transferred tokens", "mint", mint, "from", from, "to", to, "amount", amount)
		return nil
	})
}

// BalanceOf returns the holder's balance of the given mint.
func (s *Service) BalanceOf(mint, holder common.Address) (uint64, error) {
	var balance uint64
	if _, err := s.db.ReadRLP(balanceKey(mint, holder), &balance); err != nil {
		return 0, err
	}
	return balance, nil
}

func (s *Service) credit(mint, holder common.Address, amount uint64) error {
	balance, err := s.BalanceOf(mint, holder)
	if err != nil {
		return err
	}
	balance, overflow := math.SafeAdd(balance, amount)
	if overflow {
		return ErrArithmeticOverflow
	}
	return s.db.WriteRLP(balanceKey(mint, holder), balance)
}

func (s *Service) debit(mint, holder common.Address, amount uint64) error {
	balance, err := s.BalanceOf(mint, holder)
	if err != nil {
		return err
	}
	if balance < amount {
		return fmt.Errorf("%w: have %d, want %d", ErrInsufficientBalance, balance, amount)
	}
	return s.db.WriteRLP(balanceKey(mint, holder), balance-amount)
}

func mintKey(mint common.Address) common.Hash {
	return state.Key(mintPrefix, mint.Bytes())
}

func balanceKey(mint, holder common.Address) common.Hash {
	return state.Key(balancePrefix, mint.Bytes(), holder.Bytes())
}
