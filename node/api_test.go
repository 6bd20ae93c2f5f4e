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
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/augustdao/dao/governance"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/require"
)

func newTestAPI(t *testing.T) (*Node, *testClock, *rpc.Client) {
	t.Helper()
	n, clock := newTestNode(t, testConfig("memory", ""))
	_, err := n.Init()
	require.NoError(t, err)

	client := n.Attach()
	t.Cleanup(client.Close)
	return n, clock, client
}

func TestAPI_GetConfig(t *testing.T) {
	_, _, client := newTestAPI(t)

	var cfg RPCConfig
	require.NoError(t, client.Call(&cfg, "dao_getConfig"))
	require.Equal(t, authority, cfg.Authority)
	require.Equal(t, attestor, cfg.OracleAuthority)
	require.Equal(t, hexutil.Uint64(86400), cfg.VotingPeriod)
	require.Equal(t, hexutil.Uint(20), cfg.QuorumPercentage)
	require.Equal(t, hexutil.Uint(51), cfg.ThresholdPercentage)

	var balance hexutil.Uint64
	require.NoError(t, client.Call(&balance, "dao_balanceOf", alice))
	require.Equal(t, hexutil.Uint64(1_000), balance)
	require.NoError(t, client.Call(&balance, "dao_treasuryBalance"))
	require.Equal(t, hexutil.Uint64(50_000), balance)
}

func TestAPI_Lifecycle(t *testing.T) {
	_, clock, client := newTestAPI(t)

	var cfg RPCConfig
	require.NoError(t, client.Call(&cfg, "dao_getConfig"))

	period := hexutil.Uint64(172800)
	quorum, threshold := hexutil.Uint(25), hexutil.Uint(60)
	amount := hexutil.Uint64(2_000)
	args := ProposalArgs{
		Title:       "Grant and retune",
		Description: "Pay bob and lengthen voting",
		SnapshotID:  "snap-7",
		Actions: []RPCAction{
			{Type: ActionTypeTreasuryTransfer, Recipient: &bob, Amount: &amount, TokenMint: &cfg.TokenMint},
			{Type: ActionTypeUpdateConfig, VotingPeriod: &period, QuorumPercentage: &quorum, ThresholdPercentage: &threshold},
		},
	}
	var id common.Hash
	require.NoError(t, client.Call(&id, "dao_createProposal", alice, args))
	require.Equal(t, governance.ProposalID(alice), id)

	clock.now += 60
	require.NoError(t, client.Call(nil, "dao_castVote", alice, id, "for", hexutil.Uint64(1000)))
	require.NoError(t, client.Call(nil, "dao_castVote", bob, id, "against", hexutil.Uint64(500)))
	err := client.Call(nil, "dao_castVote", bob, id, "for", hexutil.Uint64(1))
	require.ErrorContains(t, err, governance.ErrDuplicateRecord.Error())
	err = client.Call(nil, "dao_castVote", authority, id, "maybe", hexutil.Uint64(1))
	require.ErrorContains(t, err, governance.ErrInvalidVoteOption.Error())

	var votes []RPCVote
	require.NoError(t, client.Call(&votes, "dao_votes", id))
	require.Len(t, votes, 2)
	require.Equal(t, "against", votes[1].Option)

	var vote *RPCVote
	require.NoError(t, client.Call(&vote, "dao_getVote", id, authority))
	require.Nil(t, vote)

	// Only the attestor finalizes
	err = client.Call(nil, "dao_submitAttestation", alice, id, "snap-7", "passed", hexutil.Bytes{1})
	require.ErrorContains(t, err, governance.ErrUnauthorized.Error())
	err = client.Call(nil, "dao_submitAttestation", attestor, id, "snap-7", "passed", hexutil.Bytes{})
	require.ErrorContains(t, err, governance.ErrInvalidAttestation.Error())
	require.NoError(t, client.Call(nil, "dao_submitAttestation", attestor, id, "snap-7", "passed", hexutil.Bytes{1}))

	clock.now += 60
	require.NoError(t, client.Call(nil, "dao_executeProposal", bob, id))
	err = client.Call(nil, "dao_executeProposal", bob, id)
	require.ErrorContains(t, err, governance.ErrProposalNotSucceeded.Error())

	var proposal RPCProposal
	require.NoError(t, client.Call(&proposal, "dao_getProposal", id))
	require.Equal(t, "executed", proposal.Status)
	require.Equal(t, hexutil.Uint64(1000), proposal.ForVotes)
	require.Equal(t, hexutil.Uint64(500), proposal.AgainstVotes)
	require.Len(t, proposal.Actions, 2)
	require.Equal(t, ActionTypeTreasuryTransfer, proposal.Actions[0].Type)
	require.Equal(t, bob, *proposal.Actions[0].Recipient)
	require.Equal(t, ActionTypeUpdateConfig, proposal.Actions[1].Type)
	require.Equal(t, period, *proposal.Actions[1].VotingPeriod)

	require.NoError(t, client.Call(&cfg, "dao_getConfig"))
	require.Equal(t, period, cfg.VotingPeriod)
	require.Equal(t, quorum, cfg.QuorumPercentage)

	var balance hexutil.Uint64
	require.NoError(t, client.Call(&balance, "dao_balanceOf", bob))
	require.Equal(t, amount, balance)
	require.NoError(t, client.Call(&balance, "dao_treasuryBalance"))
	require.Equal(t, hexutil.Uint64(48_000), balance)

	var proposals []RPCProposal
	require.NoError(t, client.Call(&proposals, "dao_proposals"))
	require.Len(t, proposals, 1)
}

func TestAPI_InvalidActions(t *testing.T) {
	_, _, client := newTestAPI(t)

	tests := []struct {
		name   string
		action RPCAction
		want   error
	}{
		{"unknown type", RPCAction{Type: "mint"}, governance.ErrUnknownAction},
		{"missing fields", RPCAction{Type: ActionTypeTreasuryTransfer, Recipient: &bob}, governance.ErrUnknownAction},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := ProposalArgs{Title: "t", Actions: []RPCAction{tt.action}}
			err := client.Call(nil, "dao_createProposal", alice, args)
			require.ErrorContains(t, err, tt.want.Error())
		})
	}
	err := client.Call(nil, "dao_getProposal", governance.ProposalID(alice))
	require.ErrorContains(t, err, governance.ErrProposalNotFound.Error())
}

func TestAPI_Delegation(t *testing.T) {
	_, _, client := newTestAPI(t)

	require.NoError(t, client.Call(nil, "dao_delegate", alice, bob, hexutil.Uint64(300)))
	err := client.Call(nil, "dao_delegate", alice, bob, hexutil.Uint64(1))
	require.ErrorContains(t, err, governance.ErrDuplicateRecord.Error())

	err = client.Call(nil, "dao_revokeDelegation", bob, alice, bob)
	require.ErrorContains(t, err, governance.ErrUnauthorized.Error())
	require.NoError(t, client.Call(nil, "dao_revokeDelegation", alice, alice, bob))

	var d RPCDelegation
	require.NoError(t, client.Call(&d, "dao_getDelegation", alice, bob))
	require.Equal(t, hexutil.Uint64(0), d.Amount)
	require.False(t, d.Active)

	var list []RPCDelegation
	require.NoError(t, client.Call(&list, "dao_delegations", alice))
	require.Len(t, list, 1)
	require.Equal(t, bob, list[0].Delegatee)
}

func TestAPI_HTTP(t *testing.T) {
	cfg := testConfig("memory", "")
	cfg.Node.HTTPAddr = "127.0.0.1:0"
	n, _ := newTestNode(t, cfg)
	_, err := n.Init()
	require.NoError(t, err)
	require.NoError(t, n.Start())

	client, err := rpc.Dial(n.HTTPEndpoint())
	require.NoError(t, err)
	defer client.Close()

	var config RPCConfig
	require.NoError(t, client.Call(&config, "dao_getConfig"))
	require.Equal(t, authority, config.Authority)
}

func TestAPI_HTTPCors(t *testing.T) {
	cfg := testConfig("memory", "")
	cfg.Node.HTTPAddr = "127.0.0.1:0"
	cfg.Node.HTTPCors = []string{"https://dao.example"}
	n, _ := newTestNode(t, cfg)
	require.NoError(t, n.Start())

	body := strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"dao_proposals","params":[]}`)
	req, err := http.NewRequest(http.MethodPost, n.HTTPEndpoint(), body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "https://dao.example")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "https://dao.example", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestAPI_Metrics(t *testing.T) {
	cfg := testConfig("memory", "")
	cfg.Node.HTTPAddr = "127.0.0.1:0"
	cfg.Node.Metrics = true
	n, _ := newTestNode(t, cfg)
	_, err := n.Init()
	require.NoError(t, err)
	require.NoError(t, n.Start())

	client, err := rpc.Dial(n.HTTPEndpoint())
	require.NoError(t, err)
	defer client.Close()
	var id common.Hash
	require.NoError(t, client.Call(&id, "dao_createProposal", alice, ProposalArgs{Title: "t", SnapshotID: "s"}))

	resp, err := http.Get(n.HTTPEndpoint() + MetricsPath)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var registry map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&registry))
	created, ok := registry["dao/governance/proposals/created"].(float64)
	require.True(t, ok, "proposal counter not exported")
	require.GreaterOrEqual(t, created, float64(1))
}

func TestAPI_MetricsDisabled(t *testing.T) {
	cfg := testConfig("memory", "")
	cfg.Node.HTTPAddr = "127.0.0.1:0"
	n, _ := newTestNode(t, cfg)
	require.NoError(t, n.Start())

	resp, err := http.Get(n.HTTPEndpoint() + MetricsPath)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NotContains(t, string(body), "dao/governance")
}
