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

package ecdhes

import (
	"crypto/elliptic"
	"crypto/rand"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-josekm/pkg/keymanagement"
	"github.com/jeremyhahn/go-josekm/pkg/keymanagement/aeskw"
)

func randomCEK(t *testing.T, n int) []byte {
	t.Helper()
	b := make([]byte, n)
	_, err := rand.Read(b)
	require.NoError(t, err)
	return b
}

func TestNewKeyWrap(t *testing.T) {
	for name, bits := range map[string]int{"ECDH-ES+A128KW": 128, "ECDH-ES+A192KW": 192, "ECDH-ES+A256KW": 256} {
		w, err := NewKeyWrap(name)
		require.NoError(t, err)
		assert.Equal(t, name, w.Name())
		assert.Equal(t, bits, w.KeyBits())
		assert.Equal(t, keymanagement.ModeWrap, w.Mode())
		assert.Equal(t, []string{"EC"}, w.KeyTypes())
	}

	_, err := NewKeyWrap("ECDH-ES")
	assert.ErrorIs(t, err, keymanagement.ErrUnsupportedAlgorithm)
}

func TestKeyWrap_RoundTrip(t *testing.T) {
	curves := []elliptic.Curve{elliptic.P256(), elliptic.P384(), elliptic.P521()}
	for _, name := range []string{"ECDH-ES+A128KW", "ECDH-ES+A192KW", "ECDH-ES+A256KW"} {
		w, err := NewKeyWrap(name)
		require.NoError(t, err)

		for _, curve := range curves {
			recipient := generate(t, curve)
			for _, cekSize := range []int{16, 24, 32, 64} {
				t.Run(fmt.Sprintf("%s/%s/cek%d", name, curve.Params().Name, cekSize), func(t *testing.T) {
					cek := randomCEK(t, cekSize)
					header := keymanagement.Header{"alg": name, "enc": "A128GCM"}

					wrapped, extra, err := w.WrapKey(recipient.Public(), cek, header)
					require.NoError(t, err)
					assert.Len(t, wrapped, cekSize+8)
					require.True(t, extra.Has("epk"))

					merged, err := header.Merge(extra)
					require.NoError(t, err)

					unwrapped, err := w.UnwrapKey(recipient, wrapped, merged)
					require.NoError(t, err)
					assert.Equal(t, cek, unwrapped)
				})
			}
		}
	}
}

// TestKeyWrap_AlgorithmID checks that the wrapping key is derived with the
// composite name as AlgorithmID and the wrap key length, not "enc"
func TestKeyWrap_AlgorithmID(t *testing.T) {
	w, err := NewKeyWrap("ECDH-ES+A128KW")
	require.NoError(t, err)
	recipient := generate(t, elliptic.P256())
	cek := randomCEK(t, 32)
	header := keymanagement.Header{"enc": "A256GCM", "apu": "QWxpY2U"}

	wrapped, extra, err := w.WrapAgreementKey(recipient, cek, 128, header)
	require.NoError(t, err)
	merged, err := header.Merge(extra)
	require.NoError(t, err)

	kek, _, err := NewAgreement().DeriveKey(128, "ECDH-ES+A128KW", recipient, nil, merged)
	require.NoError(t, err)
	unwrapped, err := aeskw.Unwrap(kek, wrapped)
	require.NoError(t, err)
	assert.Equal(t, cek, unwrapped)

	wrongKEK, _, err := NewAgreement().DeriveKey(128, "A256GCM", recipient, nil, merged)
	require.NoError(t, err)
	_, err = aeskw.Unwrap(wrongKEK, wrapped)
	assert.ErrorIs(t, err, keymanagement.ErrDecryptionFailed)
}

func TestKeyWrap_Failures(t *testing.T) {
	w, err := NewKeyWrap("ECDH-ES+A256KW")
	require.NoError(t, err)
	recipient := generate(t, elliptic.P384())
	other := generate(t, elliptic.P384())
	header := keymanagement.Header{"alg": "ECDH-ES+A256KW"}

	wrapped, extra, err := w.WrapKey(recipient, randomCEK(t, 32), header)
	require.NoError(t, err)
	merged, err := header.Merge(extra)
	require.NoError(t, err)

	_, err = w.UnwrapKey(other, wrapped, merged)
	assert.ErrorIs(t, err, keymanagement.ErrDecryptionFailed)

	_, err = w.UnwrapKey(recipient, wrapped, header)
	assert.ErrorIs(t, err, keymanagement.ErrInvalidHeader)

	_, err = w.UnwrapKey(generate(t, elliptic.P256()), wrapped, merged)
	assert.ErrorIs(t, err, keymanagement.ErrCurveMismatch)

	_, _, err = w.WrapAgreementKey(recipient, randomCEK(t, 32), 100, header)
	assert.ErrorIs(t, err, keymanagement.ErrInvalidKey)

	_, err = w.UnwrapAgreementKey(recipient, wrapped, 512, merged)
	assert.ErrorIs(t, err, keymanagement.ErrInvalidKey)

	_, _, err = w.WrapKey(nil, randomCEK(t, 32), header)
	assert.ErrorIs(t, err, keymanagement.ErrInvalidKey)
}
