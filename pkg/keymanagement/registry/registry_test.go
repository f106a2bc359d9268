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

package registry

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-josekm/pkg/encoding/jwk"
	"github.com/jeremyhahn/go-josekm/pkg/keymanagement"
	"github.com/jeremyhahn/go-josekm/pkg/logging"
	"github.com/jeremyhahn/go-josekm/pkg/metrics"
)

var (
	rsaOnce sync.Once
	rsaKey  *jwk.JWK
)

func rsaJWK(t *testing.T) *jwk.JWK {
	t.Helper()
	rsaOnce.Do(func() {
		k, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
		rsaKey, err = jwk.FromPrivateKey(k)
		if err != nil {
			panic(err)
		}
	})
	return rsaKey
}

func ecJWK(t *testing.T) *jwk.JWK {
	t.Helper()
	k, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	key, err := jwk.FromPrivateKey(k)
	require.NoError(t, err)
	return key
}

func octJWK(t *testing.T, size int) *jwk.JWK {
	t.Helper()
	b := make([]byte, size)
	_, err := rand.Read(b)
	require.NoError(t, err)
	key, err := jwk.FromSymmetricKey(b, "")
	require.NoError(t, err)
	return key
}

func newRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := New(Config{
		Options: []keymanagement.Option{keymanagement.WithPBES2Iterations(keymanagement.MinPBES2Iterations)},
	})
	require.NoError(t, err)
	return r
}

func TestNames(t *testing.T) {
	names := Names()
	assert.Len(t, names, 19)
	assert.Equal(t, "dir", names[0])
	assert.Contains(t, names, "ECDH-ES+A192KW")
	assert.Contains(t, names, "RSA-OAEP-512")

	assert.Equal(t, names, Default().Names())
}

func TestModes(t *testing.T) {
	r := Default()
	expected := map[string]keymanagement.Mode{
		"dir":                keymanagement.ModeDirect,
		"A128KW":             keymanagement.ModeWrap,
		"A256GCMKW":          keymanagement.ModeWrap,
		"PBES2-HS384+A192KW": keymanagement.ModeWrap,
		"ECDH-ES":            keymanagement.ModeAgreement,
		"ECDH-ES+A128KW":     keymanagement.ModeWrap,
		"RSA1_5":             keymanagement.ModeWrap,
		"RSA-OAEP-256":       keymanagement.ModeWrap,
	}
	for name, mode := range expected {
		got, err := r.Mode(name)
		require.NoError(t, err, name)
		assert.Equal(t, mode, got, name)

		alg, err := r.Lookup(name)
		require.NoError(t, err)
		assert.Equal(t, name, alg.Name())
	}

	_, err := r.Mode("none")
	assert.ErrorIs(t, err, keymanagement.ErrUnsupportedAlgorithm)
}

func TestCapabilities(t *testing.T) {
	r := Default()

	_, err := r.Direct("dir")
	assert.NoError(t, err)
	_, err = r.Direct("A128KW")
	assert.ErrorIs(t, err, keymanagement.ErrUnsupportedAlgorithm)

	w, err := r.Wrapper("ECDH-ES+A256KW")
	require.NoError(t, err)
	assert.Equal(t, "ECDH-ES+A256KW", w.Name())
	assert.Equal(t, keymanagement.ModeWrap, w.Mode())
	_, err = r.Wrapper("ECDH-ES")
	assert.ErrorIs(t, err, keymanagement.ErrUnsupportedAlgorithm)

	_, err = r.Agreement("ECDH-ES")
	assert.NoError(t, err)
	_, err = r.Agreement("RSA1_5")
	assert.ErrorIs(t, err, keymanagement.ErrUnsupportedAlgorithm)

	_, err = r.AgreementWrapper("ECDH-ES+A128KW")
	assert.NoError(t, err)
	_, err = r.AgreementWrapper("A128KW")
	assert.ErrorIs(t, err, keymanagement.ErrUnsupportedAlgorithm)
}

func TestEnabledSubset(t *testing.T) {
	r, err := New(Config{Enabled: []string{"RSA-OAEP-256", "A128KW"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"A128KW", "RSA-OAEP-256"}, r.Names())

	_, err = r.Lookup("A256KW")
	assert.ErrorIs(t, err, keymanagement.ErrUnsupportedAlgorithm)

	_, err = New(Config{Enabled: []string{"A128KW", "HS256"}})
	assert.ErrorIs(t, err, keymanagement.ErrUnsupportedAlgorithm)

	_, err = New(Config{Options: []keymanagement.Option{keymanagement.WithPBES2Iterations(10)}})
	assert.Error(t, err)
}

func TestEncryptDecrypt(t *testing.T) {
	r := newRegistry(t)

	keys := map[string]func() *jwk.JWK{
		"dir":                func() *jwk.JWK { return octJWK(t, 32) },
		"A128KW":             func() *jwk.JWK { return octJWK(t, 16) },
		"A192KW":             func() *jwk.JWK { return octJWK(t, 24) },
		"A256KW":             func() *jwk.JWK { return octJWK(t, 32) },
		"A128GCMKW":          func() *jwk.JWK { return octJWK(t, 16) },
		"A192GCMKW":          func() *jwk.JWK { return octJWK(t, 24) },
		"A256GCMKW":          func() *jwk.JWK { return octJWK(t, 32) },
		"PBES2-HS256+A128KW": func() *jwk.JWK { return octJWK(t, 12) },
		"PBES2-HS384+A192KW": func() *jwk.JWK { return octJWK(t, 12) },
		"PBES2-HS512+A256KW": func() *jwk.JWK { return octJWK(t, 12) },
		"ECDH-ES":            func() *jwk.JWK { return ecJWK(t) },
		"ECDH-ES+A128KW":     func() *jwk.JWK { return ecJWK(t) },
		"ECDH-ES+A192KW":     func() *jwk.JWK { return ecJWK(t) },
		"ECDH-ES+A256KW":     func() *jwk.JWK { return ecJWK(t) },
		"RSA1_5":             func() *jwk.JWK { return rsaJWK(t) },
		"RSA-OAEP":           func() *jwk.JWK { return rsaJWK(t) },
		"RSA-OAEP-256":       func() *jwk.JWK { return rsaJWK(t) },
		"RSA-OAEP-384":       func() *jwk.JWK { return rsaJWK(t) },
		"RSA-OAEP-512":       func() *jwk.JWK { return rsaJWK(t) },
	}
	require.Len(t, keys, len(Names()))

	for _, name := range Names() {
		for _, enc := range []string{"A128GCM", "A256CBC-HS512"} {
			t.Run(fmt.Sprintf("%s/%s", name, enc), func(t *testing.T) {
				key := keys[name]()
				encryptKey := key
				if pub := key.Public(); pub != nil {
					encryptKey = pub
				}
				header := keymanagement.Header{"alg": name, "enc": enc}

				result, err := r.Encrypt(encryptKey, nil, header)
				require.NoError(t, err)
				require.NotEmpty(t, result.CEK)

				merged, err := header.Merge(result.Header)
				require.NoError(t, err)

				cek, err := r.Decrypt(key, result.EncryptedKey, merged)
				require.NoError(t, err)
				assert.Equal(t, result.CEK, cek)

				mode, err := r.Mode(name)
				require.NoError(t, err)
				switch mode {
				case keymanagement.ModeWrap:
					assert.NotEmpty(t, result.EncryptedKey)
					bits, err := keymanagement.ContentEncryptionKeyBits(enc)
					require.NoError(t, err)
					assert.Len(t, result.CEK, bits/8)
				case keymanagement.ModeAgreement:
					assert.Empty(t, result.EncryptedKey)
					assert.True(t, result.Header.Has("epk"))
				default:
					assert.Empty(t, result.EncryptedKey)
				}
			})
		}
	}
}

func TestEncrypt_SuppliedCEK(t *testing.T) {
	r := newRegistry(t)
	key := octJWK(t, 16)
	cek := bytes.Repeat([]byte{1}, 32)

	result, err := r.Encrypt(key, cek, keymanagement.Header{"alg": "A128KW"})
	require.NoError(t, err)
	assert.Equal(t, cek, result.CEK)

	got, err := r.Decrypt(key, result.EncryptedKey, keymanagement.Header{"alg": "A128KW"})
	require.NoError(t, err)
	assert.Equal(t, cek, got)
}

func TestEncrypt_Errors(t *testing.T) {
	r := newRegistry(t)

	_, err := r.Encrypt(octJWK(t, 16), nil, keymanagement.Header{})
	assert.ErrorIs(t, err, keymanagement.ErrInvalidHeader)

	_, err = r.Encrypt(octJWK(t, 16), nil, keymanagement.Header{"alg": "A128KW"})
	assert.ErrorIs(t, err, keymanagement.ErrInvalidHeader, "missing enc with no CEK")

	_, err = r.Encrypt(octJWK(t, 16), nil, keymanagement.Header{"alg": "A128KW", "enc": "A999GCM"})
	assert.ErrorIs(t, err, keymanagement.ErrUnsupportedAlgorithm)

	_, err = r.Encrypt(octJWK(t, 16), nil, keymanagement.Header{"alg": "HS256"})
	assert.ErrorIs(t, err, keymanagement.ErrUnsupportedAlgorithm)

	_, err = r.Decrypt(octJWK(t, 16), []byte{1}, keymanagement.Header{"alg": "dir"})
	assert.ErrorIs(t, err, keymanagement.ErrDecryptionFailed)

	_, err = r.Decrypt(ecJWK(t), []byte{1}, keymanagement.Header{"alg": "ECDH-ES", "enc": "A128GCM"})
	assert.ErrorIs(t, err, keymanagement.ErrDecryptionFailed)
}

func TestErrorType(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{keymanagement.ErrInvalidKey, "invalid_key"},
		{fmt.Errorf("x: %w", keymanagement.ErrInvalidHeader), "invalid_header"},
		{keymanagement.ErrCurveMismatch, "curve_mismatch"},
		{keymanagement.ErrUnsupportedCurve, "unsupported_curve"},
		{keymanagement.ErrDecryptionFailed, "decryption_failed"},
		{keymanagement.ErrFactorizationFailed, "factorization_failed"},
		{keymanagement.ErrUnsupportedAlgorithm, "unsupported_algorithm"},
		{fmt.Errorf("%w: alg", keymanagement.ErrHeaderConflict), "header_conflict"},
		{errors.New("boom"), "internal"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ErrorType(tt.err), tt.err.Error())
	}
}

func TestInstrumentation(t *testing.T) {
	metrics.Enable()
	metrics.OperationsTotal.Reset()
	metrics.ErrorsTotal.Reset()

	var buf bytes.Buffer
	logger, err := logging.New(logging.Config{Level: "debug", Format: "json", Output: &buf})
	require.NoError(t, err)

	r, err := New(Config{Logger: logger})
	require.NoError(t, err)

	w, err := r.Wrapper("A128KW")
	require.NoError(t, err)
	key := octJWK(t, 16)

	wrapped, _, err := w.WrapKey(key, make([]byte, 16), nil)
	require.NoError(t, err)
	_, err = w.UnwrapKey(octJWK(t, 16), wrapped, nil)
	require.ErrorIs(t, err, keymanagement.ErrDecryptionFailed)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.OperationsTotal.WithLabelValues(metrics.OpWrap, "A128KW", metrics.StatusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.OperationsTotal.WithLabelValues(metrics.OpUnwrap, "A128KW", metrics.StatusError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ErrorsTotal.WithLabelValues(metrics.OpUnwrap, "A128KW", "decryption_failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.AlgorithmsEnabled.WithLabelValues("direct")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.AlgorithmsEnabled.WithLabelValues("agreement")))

	out := buf.String()
	assert.Contains(t, out, `"operation":"wrap"`)
	assert.Contains(t, out, `"error_type":"decryption_failed"`)
	assert.NotContains(t, out, key.K)
}

func TestConcurrentUse(t *testing.T) {
	r := Default()
	key := octJWK(t, 32)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			header := keymanagement.Header{"alg": "A256GCMKW", "enc": "A256GCM"}
			result, err := r.Encrypt(key, nil, header)
			if !assert.NoError(t, err) {
				return
			}
			merged, err := header.Merge(result.Header)
			if !assert.NoError(t, err) {
				return
			}
			cek, err := r.Decrypt(key, result.EncryptedKey, merged)
			assert.NoError(t, err)
			assert.Equal(t, result.CEK, cek)
		}()
	}
	wg.Wait()
}
