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

package cli

import (
	"github.com/spf13/cobra"
)

func newAlgorithmsCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "algorithms",
		Short: "List enabled key management algorithms",
		Long: `List the key management algorithms enabled by the configuration with
their mode (direct, wrap or agreement) and accepted key types.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, _, err := cfg.CreateRegistry(cmd)
			if err != nil {
				return err
			}

			names := reg.Names()
			algs := make([]AlgorithmInfo, 0, len(names))
			for _, name := range names {
				alg, err := reg.Lookup(name)
				if err != nil {
					return err
				}
				algs = append(algs, AlgorithmInfo{
					Name:     alg.Name(),
					Mode:     alg.Mode().String(),
					KeyTypes: alg.KeyTypes(),
				})
			}
			return cfg.printer(cmd).PrintAlgorithms(algs)
		},
	}
}
