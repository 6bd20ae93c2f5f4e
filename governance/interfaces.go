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

import "github.com/ethereum/go-ethereum/common"

// AssetService moves governance tokens between holders
type AssetService interface {
	// Transfer moves amount of mint from one holder to another. The authority
	// must be permitted to spend from the source holder.
	Transfer(mint, from, to common.Address, amount uint64, authority common.Address) error

	// BalanceOf returns the balance of holder in mint
	BalanceOf(mint, holder common.Address) (uint64, error)
}

// CustodyService releases DAO funds held in custody
type CustodyService interface {
	// Withdraw releases amount of mint to recipient on behalf of authority.
	// It fails for an unauthorized authority, a mismatched mint or
	// insufficient funds.
	Withdraw(authority, recipient, mint common.Address, amount uint64) error
}
