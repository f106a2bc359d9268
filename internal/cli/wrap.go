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

	"github.com/jeremyhahn/go-josekm/pkg/keymanagement"
)

func addKeyFlags(cmd *cobra.Command) {
	cmd.Flags().String("key", "", "JWK file (- for stdin)")
	cmd.Flags().String("password-file", "", "PBES2 password file (- for stdin)")
	cmd.Flags().String("header", "", "JOSE header parameters as a JSON object")
}

func newWrapCmd(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wrap",
		Short: "Produce the encrypted key for a JWE recipient",
		Long: `Produce the content encryption key and JWE Encrypted Key for one
recipient. The CEK is generated for the content encryption algorithm unless
--cek is given; direct modes derive it from the key instead. Header
parameters the recipient needs (iv, tag, p2s, p2c, epk) are printed with
the result.`,
		Example: `  josekm wrap --alg A128KW --enc A128GCM --key kek.json
  josekm wrap --alg PBES2-HS256+A128KW --enc A128CBC-HS256 --password-file pw.txt
  josekm wrap --alg ECDH-ES --enc A128GCM --key bob-public.json --header '{"apu":"QWxpY2U","apv":"Qm9i"}'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			alg, _ := cmd.Flags().GetString("alg")
			enc, _ := cmd.Flags().GetString("enc")
			cekValue, _ := cmd.Flags().GetString("cek")
			headerJSON, _ := cmd.Flags().GetString("header")

			header, err := parseHeader(headerJSON)
			if err != nil {
				return err
			}
			if err := setHeader(header, keymanagement.HeaderAlg, alg); err != nil {
				return err
			}
			if err := setHeader(header, keymanagement.HeaderEnc, enc); err != nil {
				return err
			}
			alg, err = header.RequireString(keymanagement.HeaderAlg)
			if err != nil {
				return err
			}

			var cek []byte
			if cekValue != "" {
				if cek, err = decodeBytes(cekValue); err != nil {
					return fmt.Errorf("invalid --cek: %w", err)
				}
			}

			key, cleanup, err := resolveKey(cmd, alg)
			if err != nil {
				return err
			}
			defer cleanup()

			reg, _, err := cfg.CreateRegistry(cmd)
			if err != nil {
				return err
			}
			result, err := reg.Encrypt(key, cek, header)
			if err != nil {
				return err
			}
			return cfg.printer(cmd).PrintKeyMaterial(encodeBytes(result.CEK), encodeBytes(result.EncryptedKey), result.Header)
		},
	}

	cmd.Flags().String("alg", "", "key management algorithm")
	cmd.Flags().String("enc", "", "content encryption algorithm")
	cmd.Flags().String("cek", "", "CEK to wrap (base64url, or hex: prefix)")
	addKeyFlags(cmd)
	return cmd
}

func newUnwrapCmd(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unwrap",
		Short: "Recover the content encryption key of a JWE recipient",
		Long: `Recover the content encryption key from a JWE Encrypted Key. --header
carries the recipient's JOSE header, including alg, enc and any parameters
produced by wrap. The encrypted key must be empty for dir and ECDH-ES.`,
		Example: `  josekm unwrap --key kek.json --encrypted-key 6KB707dM9YTIgHtLvtgWQ8mKwboJW3of9locizkDTHzBC2IlrT1oOQ --header '{"alg":"A128KW","enc":"A128GCM"}'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			encryptedValue, _ := cmd.Flags().GetString("encrypted-key")
			headerJSON, _ := cmd.Flags().GetString("header")

			header, err := parseHeader(headerJSON)
			if err != nil {
				return err
			}
			alg, err := header.RequireString(keymanagement.HeaderAlg)
			if err != nil {
				return err
			}
			encryptedKey, err := decodeBytes(encryptedValue)
			if err != nil {
				return fmt.Errorf("invalid --encrypted-key: %w", err)
			}

			key, cleanup, err := resolveKey(cmd, alg)
			if err != nil {
				return err
			}
			defer cleanup()

			reg, _, err := cfg.CreateRegistry(cmd)
			if err != nil {
				return err
			}
			cek, err := reg.Decrypt(key, encryptedKey, header)
			if err != nil {
				return err
			}
			return cfg.printer(cmd).PrintCEK(encodeBytes(cek))
		},
	}

	cmd.Flags().String("encrypted-key", "", "JWE Encrypted Key (base64url, or hex: prefix)")
	addKeyFlags(cmd)
	return cmd
}

// setHeader sets name from a flag value. A flag that disagrees with the
// --header JSON is an error.
func setHeader(header keymanagement.Header, name, value string) error {
	if value == "" {
		return nil
	}
	existing, err := header.String(name)
	if err != nil {
		return err
	}
	if existing != "" && existing != value {
		return fmt.Errorf("%w: --%s %q conflicts with header value %q",
			keymanagement.ErrHeaderConflict, name, value, existing)
	}
	header[name] = value
	return nil
}
