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
	"crypto/rsa"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-josekm/pkg/crypto/ecdh"
	"github.com/jeremyhahn/go-josekm/pkg/crypto/rand"
	"github.com/jeremyhahn/go-josekm/pkg/encoding/jwk"
	"github.com/jeremyhahn/go-josekm/pkg/keymanagement"
)

// MinRSAKeySize is the smallest RSA modulus keygen will produce.
const MinRSAKeySize = 2048

func newKeygenCmd(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a JWK",
		Long: `Generate a symmetric (oct), elliptic curve (EC) or RSA private key as a
JWK. The key ID defaults to a random UUID; --thumbprint-kid uses the RFC 7638
thumbprint instead.`,
		Example: `  josekm keygen --kty oct --size 128 --alg A128KW
  josekm keygen --kty EC --crv P-384 --alg ECDH-ES+A192KW
  josekm keygen --kty RSA --size 3072 --alg RSA-OAEP-256 --thumbprint-kid`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kty, _ := cmd.Flags().GetString("kty")
			size, _ := cmd.Flags().GetInt("size")
			crv, _ := cmd.Flags().GetString("crv")
			alg, _ := cmd.Flags().GetString("alg")
			use, _ := cmd.Flags().GetString("use")
			kid, _ := cmd.Flags().GetString("kid")
			thumbprintKid, _ := cmd.Flags().GetBool("thumbprint-kid")

			c, err := cfg.Load()
			if err != nil {
				return err
			}
			random, err := rand.NewResolver(rand.Mode(c.RNG.Mode))
			if err != nil {
				return fmt.Errorf("failed to create RNG: %w", err)
			}

			key, err := generateKey(random, kty, size, crv)
			if err != nil {
				return err
			}
			key.Alg = alg
			key.Use = use

			thumbprint, err := key.ThumbprintSHA256()
			if err != nil {
				return fmt.Errorf("failed to compute thumbprint: %w", err)
			}
			switch {
			case kid != "":
				key.Kid = kid
			case thumbprintKid:
				key.Kid = thumbprint
			default:
				key.Kid = uuid.NewString()
			}

			return cfg.printer(cmd).PrintKey(key, thumbprint)
		},
	}

	cmd.Flags().String("kty", "oct", "key type (oct, EC, RSA)")
	cmd.Flags().Int("size", 0, "key size in bits (oct default 256, RSA default 2048)")
	cmd.Flags().String("crv", "P-256", "EC curve (P-256, P-384, P-521)")
	cmd.Flags().String("alg", "", "value for the JWK alg parameter")
	cmd.Flags().String("use", "enc", "value for the JWK use parameter")
	cmd.Flags().String("kid", "", "explicit key ID")
	cmd.Flags().Bool("thumbprint-kid", false, "use the RFC 7638 thumbprint as key ID")
	return cmd
}

func generateKey(random rand.Resolver, kty string, size int, crv string) (*jwk.JWK, error) {
	switch strings.ToUpper(kty) {
	case "OCT":
		if size == 0 {
			size = 256
		}
		if size < 8 || size%8 != 0 {
			return nil, fmt.Errorf("invalid oct key size: %d bits (must be a positive multiple of 8)", size)
		}
		raw, err := random.Rand(size / 8)
		if err != nil {
			return nil, fmt.Errorf("failed to generate oct key: %w", err)
		}
		return jwk.FromSymmetricKey(raw, "")

	case "EC":
		curve, err := ecdh.CurveByName(crv)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", keymanagement.ErrUnsupportedCurve, crv)
		}
		priv, err := ecdh.GenerateKey(curve, random)
		if err != nil {
			return nil, fmt.Errorf("failed to generate EC key: %w", err)
		}
		return jwk.FromPrivateKey(priv)

	case "RSA":
		if size == 0 {
			size = MinRSAKeySize
		}
		if size < MinRSAKeySize {
			return nil, fmt.Errorf("invalid RSA key size: %d bits (minimum %d)", size, MinRSAKeySize)
		}
		priv, err := rsa.GenerateKey(random, size)
		if err != nil {
			return nil, fmt.Errorf("failed to generate RSA key: %w", err)
		}
		return jwk.FromPrivateKey(priv)

	default:
		return nil, fmt.Errorf("unsupported key type: %s (must be oct, EC or RSA)", kty)
	}
}
