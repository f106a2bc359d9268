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

package wrapping

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustHex(t testing.TB, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func randomBytes(t testing.TB, n int) []byte {
	t.Helper()
	b := make([]byte, n)
	_, err := rand.Read(b)
	require.NoError(t, err)
	return b
}

// TestWrapAESKW_RFC3394 checks the RFC 3394 section 4 test vectors
func TestWrapAESKW_RFC3394(t *testing.T) {
	testCases := []struct {
		name    string
		kek     string
		key     string
		wrapped string
	}{
		{
			name:    "4.1 128-bit KEK, 128-bit key",
			kek:     "000102030405060708090A0B0C0D0E0F",
			key:     "00112233445566778899AABBCCDDEEFF",
			wrapped: "1FA68B0A8112B447AEF34BD8FB5A7B829D3E862371D2CFE5",
		},
		{
			name:    "4.6 256-bit KEK, 256-bit key",
			kek:     "000102030405060708090A0B0C0D0E0F101112131415161718191A1B1C1D1E1F",
			key:     "00112233445566778899AABBCCDDEEFF000102030405060708090A0B0C0D0E0F",
			wrapped: "28C9F404C4B810F4CBCCB35CFB87F8263F5786E2D80ED326CBC7F0E71A99F43BFB988B9B7A02DD21",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			kek := mustHex(t, tc.kek)
			key := mustHex(t, tc.key)

			wrapped, err := WrapAESKW(kek, key)
			require.NoError(t, err)
			assert.Equal(t, mustHex(t, tc.wrapped), wrapped)

			unwrapped, err := UnwrapAESKW(kek, wrapped)
			require.NoError(t, err)
			assert.Equal(t, key, unwrapped)
		})
	}
}

// TestAESKW_VariousSizes tests round trips for every KEK size and CEK size
func TestAESKW_VariousSizes(t *testing.T) {
	for _, kekSize := range []int{16, 24, 32} {
		for _, cekSize := range []int{16, 24, 32, 64} {
			t.Run(fmt.Sprintf("kek%d_cek%d", kekSize, cekSize), func(t *testing.T) {
				kek := randomBytes(t, kekSize)
				cek := randomBytes(t, cekSize)

				wrapped, err := WrapAESKW(kek, cek)
				require.NoError(t, err)
				assert.Len(t, wrapped, cekSize+8)

				unwrapped, err := UnwrapAESKW(kek, wrapped)
				require.NoError(t, err)
				assert.Equal(t, cek, unwrapped)
			})
		}
	}
}

// TestAESKW_InvalidInputs tests AES-KW error handling
func TestAESKW_InvalidInputs(t *testing.T) {
	kek := randomBytes(t, 16)

	_, err := WrapAESKW(randomBytes(t, 15), randomBytes(t, 16))
	assert.ErrorIs(t, err, ErrInvalidKEK)

	_, err = WrapAESKW(kek, randomBytes(t, 8))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = WrapAESKW(kek, randomBytes(t, 20))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = UnwrapAESKW(kek, randomBytes(t, 16))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = UnwrapAESKW(randomBytes(t, 33), randomBytes(t, 24))
	assert.ErrorIs(t, err, ErrInvalidKEK)
}

// TestAESKW_IntegrityFailure tests that tampering and wrong keys are detected
func TestAESKW_IntegrityFailure(t *testing.T) {
	kek := randomBytes(t, 32)
	cek := randomBytes(t, 32)

	wrapped, err := WrapAESKW(kek, cek)
	require.NoError(t, err)

	tampered := append([]byte(nil), wrapped...)
	tampered[len(tampered)-1] ^= 0x80
	_, err = UnwrapAESKW(kek, tampered)
	assert.ErrorIs(t, err, ErrIntegrity)

	_, err = UnwrapAESKW(randomBytes(t, 32), wrapped)
	assert.ErrorIs(t, err, ErrIntegrity)
}

// TestAESGCM_RoundTrip tests AES-GCM sealing for every key size
func TestAESGCM_RoundTrip(t *testing.T) {
	for _, size := range []int{16, 24, 32} {
		t.Run(fmt.Sprintf("%d", size*8), func(t *testing.T) {
			kek := randomBytes(t, size)
			iv := randomBytes(t, GCMIVSize)
			cek := randomBytes(t, 32)

			ct, tag, err := SealAESGCM(kek, iv, cek)
			require.NoError(t, err)
			assert.Len(t, ct, len(cek))
			assert.Len(t, tag, GCMTagSize)

			pt, err := OpenAESGCM(kek, iv, ct, tag)
			require.NoError(t, err)
			assert.Equal(t, cek, pt)
		})
	}
}

// TestAESGCM_TamperEveryBit flips each bit of the ciphertext and tag
func TestAESGCM_TamperEveryBit(t *testing.T) {
	kek := randomBytes(t, 16)
	iv := randomBytes(t, GCMIVSize)
	cek := randomBytes(t, 16)

	ct, tag, err := SealAESGCM(kek, iv, cek)
	require.NoError(t, err)

	for i := 0; i < len(ct)*8; i++ {
		bad := append([]byte(nil), ct...)
		bad[i/8] ^= 1 << (i % 8)
		pt, err := OpenAESGCM(kek, iv, bad, tag)
		assert.ErrorIs(t, err, ErrIntegrity, "ciphertext bit %d", i)
		assert.Nil(t, pt)
	}

	for i := 0; i < len(tag)*8; i++ {
		bad := append([]byte(nil), tag...)
		bad[i/8] ^= 1 << (i % 8)
		_, err := OpenAESGCM(kek, iv, ct, bad)
		assert.ErrorIs(t, err, ErrIntegrity, "tag bit %d", i)
	}

	badIV := append([]byte(nil), iv...)
	badIV[0] ^= 1
	_, err = OpenAESGCM(kek, badIV, ct, tag)
	assert.ErrorIs(t, err, ErrIntegrity)
}

// TestAESGCM_InvalidInputs tests AES-GCM parameter validation
func TestAESGCM_InvalidInputs(t *testing.T) {
	kek := randomBytes(t, 16)

	_, _, err := SealAESGCM(kek, randomBytes(t, 16), []byte("cek"))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, _, err = SealAESGCM(randomBytes(t, 20), randomBytes(t, GCMIVSize), []byte("cek"))
	assert.ErrorIs(t, err, ErrInvalidKEK)

	_, err = OpenAESGCM(kek, randomBytes(t, GCMIVSize), []byte("cek"), randomBytes(t, 12))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

// TestConcurrentWrapping exercises the primitives from many goroutines
func TestConcurrentWrapping(t *testing.T) {
	kek := randomBytes(t, 32)

	const numGoroutines = 10
	const numIterations = 10

	done := make(chan bool, numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			for j := 0; j < numIterations; j++ {
				cek := make([]byte, 32)
				_, _ = rand.Read(cek)

				wrapped, err := WrapAESKW(kek, cek)
				assert.NoError(t, err)
				unwrapped, err := UnwrapAESKW(kek, wrapped)
				assert.NoError(t, err)
				assert.Equal(t, cek, unwrapped)
			}
			done <- true
		}()
	}

	for i := 0; i < numGoroutines; i++ {
		<-done
	}
}

// ==============================================================================
// Benchmarks
// ==============================================================================

func BenchmarkAESKW(b *testing.B) {
	kek := randomBytes(b, 32)
	cek := randomBytes(b, 32)

	b.Run("Wrap_32B", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			if _, err := WrapAESKW(kek, cek); err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run("Unwrap_32B", func(b *testing.B) {
		wrapped, err := WrapAESKW(kek, cek)
		if err != nil {
			b.Fatal(err)
		}
		b.ReportAllocs()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			if _, err := UnwrapAESKW(kek, wrapped); err != nil {
				b.Fatal(err)
			}
		}
	})
}
