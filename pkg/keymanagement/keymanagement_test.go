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

package keymanagement

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-josekm/pkg/crypto/rand"
	"github.com/jeremyhahn/go-josekm/pkg/encoding/jwk"
)

type stubAlgorithm struct{}

func (stubAlgorithm) Name() string       { return "stub" }
func (stubAlgorithm) Mode() Mode         { return ModeWrap }
func (stubAlgorithm) KeyTypes() []string { return []string{"oct"} }

func TestMode_String(t *testing.T) {
	assert.Equal(t, "direct", ModeDirect.String())
	assert.Equal(t, "wrap", ModeWrap.String())
	assert.Equal(t, "agreement", ModeAgreement.String())
	assert.Equal(t, "Mode(0)", Mode(0).String())
}

func TestContentEncryptionKeyBits(t *testing.T) {
	expected := map[string]int{
		"A128GCM":       128,
		"A192GCM":       192,
		"A256GCM":       256,
		"A128CBC-HS256": 256,
		"A192CBC-HS384": 384,
		"A256CBC-HS512": 512,
	}
	for enc, bits := range expected {
		got, err := ContentEncryptionKeyBits(enc)
		require.NoError(t, err, enc)
		assert.Equal(t, bits, got, enc)
	}

	_, err := ContentEncryptionKeyBits("A512GCM")
	assert.ErrorIs(t, err, ErrUnsupportedAlgorithm)
}

func TestCheckKeyType(t *testing.T) {
	assert.NoError(t, CheckKeyType(stubAlgorithm{}, &jwk.JWK{Kty: "oct"}))
	assert.ErrorIs(t, CheckKeyType(stubAlgorithm{}, &jwk.JWK{Kty: "RSA"}), ErrInvalidKey)
	assert.ErrorIs(t, CheckKeyType(stubAlgorithm{}, nil), ErrInvalidKey)
}

func TestOctetKey(t *testing.T) {
	key, err := jwk.FromSymmetricKey(bytes.Repeat([]byte{7}, 16), "")
	require.NoError(t, err)

	k, err := OctetKey(key, 16)
	require.NoError(t, err)
	assert.Len(t, k, 16)

	_, err = OctetKey(key, 32)
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = OctetKey(&jwk.JWK{Kty: "EC"}, 16)
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestNewOptions(t *testing.T) {
	o := NewOptions()
	assert.Equal(t, DefaultPBES2SaltSize, o.PBES2SaltSize)
	assert.Equal(t, DefaultPBES2Iterations, o.PBES2Iterations)
	assert.Equal(t, rand.Default(), o.Random)

	r := bytes.NewReader(nil)
	o = NewOptions(WithRandom(r), WithPBES2SaltSize(16), WithPBES2Iterations(2000))
	assert.Same(t, r, o.Random)
	assert.Equal(t, 16, o.PBES2SaltSize)
	assert.Equal(t, 2000, o.PBES2Iterations)

	o = NewOptions(WithRandom(nil))
	assert.NotNil(t, o.Random)
}
