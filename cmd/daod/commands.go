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

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/augustdao/dao/governance"
	"github.com/augustdao/dao/node"
	"github.com/augustdao/dao/oracle"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/urfave/cli/v2"
)

var (
	proposalFlag = &cli.StringFlag{
		Name:     "proposal",
		Usage:    "Proposal id",
		Required: true,
	}
	snapshotFlag = &cli.StringFlag{
		Name:  "snapshot",
		Usage: "Off-ledger snapshot vote id",
	}
	titleFlag = &cli.StringFlag{
		Name:     "title",
		Usage:    "Proposal title",
		Required: true,
	}
	descriptionFlag = &cli.StringFlag{
		Name:  "description",
		Usage: "Proposal description",
	}
	transferFlag = &cli.StringSliceFlag{
		Name:  "transfer",
		Usage: "Treasury transfer action as recipient:amount, may be repeated",
	}
	updateFlag = &cli.StringFlag{
		Name:  "update",
		Usage: "Configuration update action as period:quorum:threshold",
	}
	optionFlag = &cli.StringFlag{
		Name:  "option",
		Usage: "Vote option (for, against, abstain)",
		Value: "for",
	}
	weightFlag = &cli.Uint64Flag{
		Name:     "weight",
		Usage:    "Vote weight",
		Required: true,
	}
	outcomeFlag = &cli.StringFlag{
		Name:  "outcome",
		Usage: "Snapshot outcome (passed, failed)",
		Value: "passed",
	}
	signatureFlag = &cli.StringFlag{
		Name:  "signature",
		Usage: "Hex encoded attestation signature",
	}
	keyFlag = &cli.StringFlag{
		Name:  "key",
		Usage: "File holding the hex encoded attestor key used to sign the attestation",
	}
	toFlag = &cli.StringFlag{
		Name:     "to",
		Usage:    "Delegatee identity",
		Required: true,
	}
	amountFlag = &cli.Uint64Flag{
		Name:     "amount",
		Usage:    "Delegated amount",
		Required: true,
	}

	clientFlags = []cli.Flag{endpointFlag, fromFlag}
)

var (
	initCommand = &cli.Command{
		Name:   "init",
		Usage:  "Bootstrap the DAO from the genesis configuration",
		Action: initDAO,
	}
	serveCommand = &cli.Command{
		Name:   "serve",
		Usage:  "Run the node and serve the JSON-RPC API",
		Action: serve,
	}
	proposeCommand = &cli.Command{
		Name:   "propose",
		Usage:  "Create a proposal",
		Flags:  append([]cli.Flag{titleFlag, descriptionFlag, snapshotFlag, transferFlag, updateFlag}, clientFlags...),
		Action: propose,
	}
	voteCommand = &cli.Command{
		Name:   "vote",
		Usage:  "Cast a vote on a proposal",
		Flags:  append([]cli.Flag{proposalFlag, optionFlag, weightFlag}, clientFlags...),
		Action: vote,
	}
	attestCommand = &cli.Command{
		Name:   "attest",
		Usage:  "Relay the snapshot outcome of a proposal as the attestor",
		Flags:  append([]cli.Flag{proposalFlag, snapshotFlag, outcomeFlag, signatureFlag, keyFlag}, clientFlags...),
		Action: attest,
	}
	executeCommand = &cli.Command{
		Name:   "execute",
		Usage:  "Execute a succeeded proposal",
		Flags:  append([]cli.Flag{proposalFlag}, clientFlags...),
		Action: execute,
	}
	delegateCommand = &cli.Command{
		Name:   "delegate",
		Usage:  "Delegate voting weight",
		Flags:  append([]cli.Flag{toFlag, amountFlag}, clientFlags...),
		Action: delegate,
	}
	revokeCommand = &cli.Command{
		Name:   "revoke",
		Usage:  "Revoke a delegation",
		Flags:  append([]cli.Flag{toFlag}, clientFlags...),
		Action: revoke,
	}
	showCommand = &cli.Command{
		Name:   "show",
		Usage:  "Print the configuration, a proposal or all proposals",
		Flags:  []cli.Flag{endpointFlag, &cli.StringFlag{Name: "proposal", Usage: "Proposal id"}},
		Action: show,
	}
)

func initDAO(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	if err := cfg.Genesis.Validate(); err != nil {
		return err
	}
	n, err := node.New(cfg)
	if err != nil {
		return err
	}
	defer n.Close()

	res, err := n.Init()
	if err != nil {
		return err
	}
	fmt.Printf("Governance token: %v\n", res.Mint)
	fmt.Printf("Treasury vault:   %v\n", res.Vault.Holder)
	fmt.Printf("Governance:       %v\n", governance.Authority())
	return nil
}

func serve(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	n, err := node.New(cfg)
	if err != nil {
		return err
	}
	defer n.Close()

	if ok, err := n.Initialized(); err != nil {
		return err
	} else if !ok {
		log.Warn("DAO not initialized, run daod init first")
	}
	if err := n.Start(); err != nil {
		return err
	}
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigc)
	<-sigc
	log.Info("Got interrupt, shutting down...")
	return nil
}

// dial connects to the node at --endpoint, or opens the local data directory
// and attaches in process.
func dial(ctx *cli.Context) (*rpc.Client, func(), error) {
	if endpoint := ctx.String(endpointFlag.Name); endpoint != "" {
		client, err := rpc.DialContext(ctx.Context, endpoint)
		if err != nil {
			return nil, nil, err
		}
		return client, client.Close, nil
	}
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, nil, err
	}
	n, err := node.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	client := n.Attach()
	return client, func() {
		client.Close()
		n.Close()
	}, nil
}

// call invokes method with the --from identity prepended to args.
func call(ctx *cli.Context, result interface{}, method string, args ...interface{}) error {
	from, err := parseAddress(ctx.String(fromFlag.Name))
	if err != nil {
		return fmt.Errorf("invalid --from: %w", err)
	}
	client, closer, err := dial(ctx)
	if err != nil {
		return err
	}
	defer closer()
	return client.CallContext(ctx.Context, result, method, append([]interface{}{from}, args...)...)
}

func propose(ctx *cli.Context) error {
	args := node.ProposalArgs{
		Title:       ctx.String(titleFlag.Name),
		Description: ctx.String(descriptionFlag.Name),
		SnapshotID:  ctx.String(snapshotFlag.Name),
	}
	transfers := ctx.StringSlice(transferFlag.Name)
	if len(transfers) > 0 {
		client, closer, err := dial(ctx)
		if err != nil {
			return err
		}
		var cfg node.RPCConfig
		err = client.CallContext(ctx.Context, &cfg, "dao_getConfig")
		closer()
		if err != nil {
			return err
		}
		for _, arg := range transfers {
			action, err := parseTransfer(arg, cfg.TokenMint)
			if err != nil {
				return err
			}
			args.Actions = append(args.Actions, action)
		}
	}
	if arg := ctx.String(updateFlag.Name); arg != "" {
		action, err := parseUpdate(arg)
		if err != nil {
			return err
		}
		args.Actions = append(args.Actions, action)
	}
	var id common.Hash
	if err := call(ctx, &id, "dao_createProposal", args); err != nil {
		return err
	}
	fmt.Println(id.Hex())
	return nil
}

func vote(ctx *cli.Context) error {
	id := common.HexToHash(ctx.String(proposalFlag.Name))
	return call(ctx, nil, "dao_castVote", id, ctx.String(optionFlag.Name), hexutil.Uint64(ctx.Uint64(weightFlag.Name)))
}

func attest(ctx *cli.Context) error {
	var (
		id         = common.HexToHash(ctx.String(proposalFlag.Name))
		snapshotID = ctx.String(snapshotFlag.Name)
		signature  []byte
	)
	outcome, err := governance.ParseSnapshotOutcome(ctx.String(outcomeFlag.Name))
	if err != nil {
		return err
	}
	switch {
	case ctx.IsSet(keyFlag.Name):
		key, err := crypto.LoadECDSA(ctx.String(keyFlag.Name))
		if err != nil {
			return fmt.Errorf("failed to load attestor key: %w", err)
		}
		if signature, err = oracle.SignAttestation(key, id, snapshotID, outcome); err != nil {
			return err
		}
	case ctx.IsSet(signatureFlag.Name):
		if signature, err = hexutil.Decode(ctx.String(signatureFlag.Name)); err != nil {
			return fmt.Errorf("invalid --signature: %w", err)
		}
	default:
		return errors.New("one of --key or --signature is required")
	}
	return call(ctx, nil, "dao_submitAttestation", id, snapshotID, outcome.String(), hexutil.Bytes(signature))
}

func execute(ctx *cli.Context) error {
	return call(ctx, nil, "dao_executeProposal", common.HexToHash(ctx.String(proposalFlag.Name)))
}

func delegate(ctx *cli.Context) error {
	to, err := parseAddress(ctx.String(toFlag.Name))
	if err != nil {
		return fmt.Errorf("invalid --to: %w", err)
	}
	return call(ctx, nil, "dao_delegate", to, hexutil.Uint64(ctx.Uint64(amountFlag.Name)))
}

func revoke(ctx *cli.Context) error {
	to, err := parseAddress(ctx.String(toFlag.Name))
	if err != nil {
		return fmt.Errorf("invalid --to: %w", err)
	}
	from, err := parseAddress(ctx.String(fromFlag.Name))
	if err != nil {
		return fmt.Errorf("invalid --from: %w", err)
	}
	return call(ctx, nil, "dao_revokeDelegation", from, to)
}

func show(ctx *cli.Context) error {
	client, closer, err := dial(ctx)
	if err != nil {
		return err
	}
	defer closer()

	var result interface{}
	if id := ctx.String("proposal"); id != "" {
		var p node.RPCProposal
		err = client.CallContext(ctx.Context, &p, "dao_getProposal", common.HexToHash(id))
		result = p
	} else {
		var out struct {
			Config    node.RPCConfig     `json:"config"`
			Proposals []node.RPCProposal `json:"proposals"`
		}
		if err = client.CallContext(ctx.Context, &out.Config, "dao_getConfig"); err == nil {
			err = client.CallContext(ctx.Context, &out.Proposals, "dao_proposals")
		}
		result = out
	}
	if err != nil {
		return err
	}
	return printJSON(result)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%q is not a hex address", s)
	}
	return common.HexToAddress(s), nil
}

// parseTransfer parses a recipient:amount treasury transfer of mint.
func parseTransfer(arg string, mint common.Address) (node.RPCAction, error) {
	parts := strings.Split(arg, ":")
	if len(parts) != 2 {
		return node.RPCAction{}, fmt.Errorf("invalid transfer %q, want recipient:amount", arg)
	}
	recipient, err := parseAddress(parts[0])
	if err != nil {
		return node.RPCAction{}, err
	}
	amount, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return node.RPCAction{}, fmt.Errorf("invalid transfer amount: %w", err)
	}
	return node.RPCAction{
		Type:      node.ActionTypeTreasuryTransfer,
		Recipient: &recipient,
		Amount:    (*hexutil.Uint64)(&amount),
		TokenMint: &mint,
	}, nil
}

// parseUpdate parses a period:quorum:threshold configuration update.
func parseUpdate(arg string) (node.RPCAction, error) {
	parts := strings.Split(arg, ":")
	if len(parts) != 3 {
		return node.RPCAction{}, fmt.Errorf("invalid update %q, want period:quorum:threshold", arg)
	}
	period, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return node.RPCAction{}, fmt.Errorf("invalid voting period: %w", err)
	}
	quorum, err := strconv.ParseUint(parts[1], 10, 8)
	if err != nil {
		return node.RPCAction{}, fmt.Errorf("invalid quorum: %w", err)
	}
	threshold, err := strconv.ParseUint(parts[2], 10, 8)
	if err != nil {
		return node.RPCAction{}, fmt.Errorf("invalid threshold: %w", err)
	}
	var (
		p = hexutil.Uint64(period)
		q = hexutil.Uint(quorum)
		t = hexutil.Uint(threshold)
	)
	return node.RPCAction{
		Type:                node.ActionTypeUpdateConfig,
		VotingPeriod:        &p,
		QuorumPercentage:    &q,
		ThresholdPercentage: &t,
	}, nil
}
