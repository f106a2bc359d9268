// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-josekm.
//
// go-josekm is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package cli implements the josekm command-line interface.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// NewRootCommand builds the josekm command tree. Each call returns fresh
// commands with their own flag state.
func NewRootCommand() *cobra.Command {
	cfg := NewConfig()

	rootCmd := &cobra.Command{
		Use:   "josekm",
		Short: "josekm - JOSE key management tool",
		Long: `josekm wraps, unwraps and derives JWE content encryption keys with the
key management algorithms of RFC 7518 Section 4.

Supported algorithm families:
  - dir:      direct use of a shared symmetric key
  - AxxxKW:   AES Key Wrap
  - AxxxGCMKW: AES-GCM key encryption
  - PBES2:    password-based key wrapping
  - ECDH-ES:  elliptic curve key agreement (direct or with AES Key Wrap)
  - RSA:      RSA1_5 and RSA-OAEP key transport`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfg.ConfigFile, "config", "",
		"config file (defaults plus JOSEKM_* environment when empty)")
	rootCmd.PersistentFlags().StringVarP(&cfg.OutputFormat, "output", "o", string(OutputFormatText),
		"output format (text, json, table)")
	rootCmd.PersistentFlags().BoolVarP(&cfg.Verbose, "verbose", "v", false,
		"verbose output")

	rootCmd.AddCommand(newVersionCmd(cfg))
	rootCmd.AddCommand(newConfigCmd(cfg))
	rootCmd.AddCommand(newAlgorithmsCmd(cfg))
	rootCmd.AddCommand(newKeygenCmd(cfg))
	rootCmd.AddCommand(newWrapCmd(cfg))
	rootCmd.AddCommand(newUnwrapCmd(cfg))
	rootCmd.AddCommand(newDeriveCmd(cfg))

	return rootCmd
}

// Execute runs the root command and prints any error to stderr. It
// returns the process exit code.
func Execute() int {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		format, _ := rootCmd.PersistentFlags().GetString("output")
		printer := NewPrinter(format, os.Stderr)
		if printer.PrintError(err) != nil {
			_ = NewPrinter(string(OutputFormatText), os.Stderr).PrintError(err)
		}
		return 1
	}
	return 0
}
