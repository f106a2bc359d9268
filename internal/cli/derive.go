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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-josekm/pkg/encoding/jwk"
	"github.com/jeremyhahn/go-josekm/pkg/keymanagement"
)

func newDeriveCmd(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "derive",
		Short: "Derive a key by ECDH-ES key agreement",
		Long: `Derive a key with ECDH-ES and the Concat KDF from a local EC private key.
With --peer the local public key is printed as epk; without it the peer
key is read from the epk parameter of --header. The key length and
AlgorithmID follow --enc unless --bits and --algorithm-id are given.`,
		Example: `  josekm derive --key alice.json --peer bob-public.json --enc A128GCM --header '{"apu":"QWxpY2U","apv":"Qm9i"}'
  josekm derive --key bob.json --algorithm-id ECDH-ES+A128KW --bits 128 --header '{"epk":{...}}'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			keyPath, _ := cmd.Flags().GetString("key")
			peerPath, _ := cmd.Flags().GetString("peer")
			enc, _ := cmd.Flags().GetString("enc")
			algorithmID, _ := cmd.Flags().GetString("algorithm-id")
			bits, _ := cmd.Flags().GetInt("bits")
			headerJSON, _ := cmd.Flags().GetString("header")

			if keyPath == "" {
				return fmt.Errorf("--key is required")
			}
			if algorithmID == "" {
				algorithmID = enc
			}
			if algorithmID == "" {
				return fmt.Errorf("one of --enc or --algorithm-id is required")
			}
			if bits == 0 {
				if enc == "" {
					return fmt.Errorf("--bits is required without --enc")
				}
				n, err := keymanagement.ContentEncryptionKeyBits(enc)
				if err != nil {
					return err
				}
				bits = n
			}
			if bits < 0 || bits%8 != 0 {
				return fmt.Errorf("invalid --bits: %d (must be a positive multiple of 8)", bits)
			}

			header, err := parseHeader(headerJSON)
			if err != nil {
				return err
			}
			local, err := readKeyFile(cmd, keyPath)
			if err != nil {
				return err
			}
			var peer *jwk.JWK
			if peerPath != "" {
				if peer, err = readKeyFile(cmd, peerPath); err != nil {
					return err
				}
			}

			reg, _, err := cfg.CreateRegistry(cmd)
			if err != nil {
				return err
			}
			agreement, err := reg.Agreement(keymanagement.ECDHES)
			if err != nil {
				return err
			}
			derived, extra, err := agreement.DeriveKey(bits, algorithmID, local, peer, header)
			if err != nil {
				return err
			}
			return cfg.printer(cmd).PrintKeyMaterial(encodeBytes(derived), "", extra)
		},
	}

	cmd.Flags().String("key", "", "local EC private JWK file (- for stdin)")
	cmd.Flags().String("peer", "", "peer EC public JWK file")
	cmd.Flags().String("enc", "", "content encryption algorithm (sets AlgorithmID and key length)")
	cmd.Flags().String("algorithm-id", "", "Concat KDF AlgorithmID")
	cmd.Flags().Int("bits", 0, "derived key length in bits")
	cmd.Flags().String("header", "", "header parameters (apu, apv, epk) as a JSON object")
	return cmd
}
