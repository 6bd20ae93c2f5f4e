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

// daod is the DAO governance node and its command line client.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/augustdao/dao/internal/config"
	"github.com/augustdao/dao/node"
	"github.com/ethereum/go-ethereum/log"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"
	_ "go.uber.org/automaxprocs"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	configFlag = &cli.StringFlag{
		Name:     "config",
		Usage:    "TOML configuration file",
		Category: "NODE",
	}
	dataDirFlag = &cli.StringFlag{
		Name:     "datadir",
		Usage:    "Data directory for the state database",
		Category: "NODE",
	}
	dbEngineFlag = &cli.StringFlag{
		Name:     "db.engine",
		Usage:    "State database engine (memory, leveldb, pebble)",
		Category: "NODE",
	}
	httpAddrFlag = &cli.StringFlag{
		Name:     "http.addr",
		Usage:    "JSON-RPC listen address",
		Category: "NODE",
	}
	httpCorsFlag = &cli.StringFlag{
		Name:     "http.corsdomain",
		Usage:    "Comma separated list of domains from which to accept cross origin requests",
		Category: "NODE",
	}
	metricsFlag = &cli.BoolFlag{
		Name:     "metrics",
		Usage:    "Serve the metrics registry on the HTTP endpoint at " + node.MetricsPath,
		Category: "METRICS",
	}
	logFileFlag = &cli.StringFlag{
		Name:     "log.file",
		Usage:    "Write logs to a rotated file instead of the terminal",
		Category: "LOGGING",
	}
	verbosityFlag = &cli.IntFlag{
		Name:     "verbosity",
		Usage:    "Logging verbosity: 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=detail",
		Value:    3,
		Category: "LOGGING",
	}
	endpointFlag = &cli.StringFlag{
		Name:     "endpoint",
		Usage:    "RPC endpoint of a running node, the local data directory is used if empty",
		Category: "CLIENT",
	}
	fromFlag = &cli.StringFlag{
		Name:     "from",
		Usage:    "Caller identity",
		Required: true,
		Category: "CLIENT",
	}

	nodeFlags = []cli.Flag{
		configFlag,
		dataDirFlag,
		dbEngineFlag,
		httpAddrFlag,
		httpCorsFlag,
		metricsFlag,
		verbosityFlag,
		logFileFlag,
	}
)

func newApp() *cli.App {
	return &cli.App{
		Name:  "daod",
		Usage: "token-weighted DAO governance node",
		Flags: nodeFlags,
		Before: func(ctx *cli.Context) error {
			setupLogging(ctx.Int(verbosityFlag.Name), ctx.String(logFileFlag.Name))
			return nil
		},
		Commands: []*cli.Command{
			initCommand,
			serveCommand,
			proposeCommand,
			voteCommand,
			attestCommand,
			executeCommand,
			delegateCommand,
			revokeCommand,
			showCommand,
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setupLogging installs the default logger. Terminal output is colored when
// stderr is a terminal, file output is logfmt rotated by size.
func setupLogging(verbosity int, logFile string) {
	level := log.FromLegacyLevel(verbosity)

	var handler slog.Handler
	if logFile != "" {
		rotator := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    100, // megabytes
			MaxBackups: 10,
			MaxAge:     30, // days
			Compress:   true,
		}
		handler = log.LogfmtHandlerWithLevel(rotator, level)
	} else {
		useColor := (isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())) && os.Getenv("TERM") != "dumb"
		var output io.Writer = os.Stderr
		if useColor {
			output = colorable.NewColorableStderr()
		}
		handler = log.NewTerminalHandlerWithLevel(output, level, useColor)
	}
	log.SetDefault(log.NewLogger(handler))
}

// splitAndTrim splits a comma separated list and drops empty entries.
func splitAndTrim(input string) []string {
	var list []string
	for _, s := range strings.Split(input, ",") {
		if s = strings.TrimSpace(s); s != "" {
			list = append(list, s)
		}
	}
	return list
}

// loadConfig reads the configuration file and applies the command line flags
// on top of it.
func loadConfig(ctx *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(ctx.String(configFlag.Name))
	if err != nil {
		return nil, err
	}
	if ctx.IsSet(dataDirFlag.Name) {
		cfg.Node.DataDir = ctx.String(dataDirFlag.Name)
	}
	if ctx.IsSet(dbEngineFlag.Name) {
		cfg.Node.DBEngine = ctx.String(dbEngineFlag.Name)
	}
	if ctx.IsSet(httpAddrFlag.Name) {
		cfg.Node.HTTPAddr = ctx.String(httpAddrFlag.Name)
	}
	if ctx.IsSet(httpCorsFlag.Name) {
		cfg.Node.HTTPCors = splitAndTrim(ctx.String(httpCorsFlag.Name))
	}
	if ctx.IsSet(metricsFlag.Name) {
		cfg.Node.Metrics = ctx.Bool(metricsFlag.Name)
	}
	if ctx.IsSet(verbosityFlag.Name) {
		cfg.Node.Verbosity = ctx.Int(verbosityFlag.Name)
	}
	if ctx.IsSet(logFileFlag.Name) {
		cfg.Node.LogFile = ctx.String(logFileFlag.Name)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	setupLogging(cfg.Node.Verbosity, cfg.Node.LogFile)
	return cfg, nil
}
