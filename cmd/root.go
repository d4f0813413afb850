// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/haldane-labs/sentline/internal/config"
	"github.com/spf13/cobra"
)

var (
	// Config file
	configPath string

	// Serial connection flags
	portName string
	baudRate int

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool
)

var rootCmd = &cobra.Command{
	Use:   "sentline",
	Short: "SAE J2716 SENT protocol decoder and capture-link analyzer",
	Long: `sentline - A CLI tool for decoding SAE J2716 SENT sensor frames and
monitoring capture-link sessions from an external pulse-capture probe.

Provides commands for decoding live pulse streams, recording and replaying
capture sessions, and an interactive dashboard for diagnosing sync loss,
CRC errors, and slow-channel anomalies.

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 115200]
  WebSocket: --url ws://host/path [--username user]

Pass --config to load link/record/replay defaults from a YAML file; any
flag explicitly set on the command line overrides the matching config value.

For WebSocket authentication, the password is read from the SENTLINE_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.`,
	Version:           "1.0.0",
	PersistentPreRunE: applyConfigDefaults,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file providing defaults (flags override it)")

	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 115200, "Baud rate (serial only)")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")
}

// applyConfigDefaults loads --config, if given, and uses it to fill in any
// connection/record/replay flag that the invoked command didn't set
// explicitly. Flags always win over config values.
func applyConfigDefaults(cmd *cobra.Command, args []string) error {
	if configPath == "" {
		return nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	flags := cmd.Flags()

	if !flags.Changed("port") && !flags.Changed("url") {
		switch {
		case cfg.Link.Serial.Port != "":
			portName = cfg.Link.Serial.Port
			if !flags.Changed("baud") {
				baudRate = cfg.Link.Serial.Baud
			}
		case cfg.Link.WS.URL != "":
			wsURL = cfg.Link.WS.URL
			if !flags.Changed("username") {
				wsUsername = cfg.Link.WS.Username
			}
			if !flags.Changed("no-ssl-verify") {
				wsNoSSLVerify = cfg.Link.WS.NoSSLVerify
			}
		}
	}

	if f := flags.Lookup("record"); f != nil && !flags.Changed("record") && cfg.Record.Enable {
		decodeRecordPath = cfg.Record.Path
	}
	if f := flags.Lookup("speed"); f != nil && !flags.Changed("speed") && cfg.Replay.Enable {
		replaySpeed = cfg.Replay.Speed
	}
	if f := flags.Lookup("loop"); f != nil && !flags.Changed("loop") && cfg.Replay.Enable {
		replayLoop = cfg.Replay.Loop
	}

	return nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
