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

package jwk

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"reflect"
	"sync"
	"testing"

	jose "github.com/go-jose/go-jose/v4"
)

var (
	rsaOnce sync.Once
	rsaKey  *rsa.PrivateKey
)

func testRSAKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	rsaOnce.Do(func() {
		var err error
		rsaKey, err = rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
	})
	return rsaKey
}

func TestFromRSAPrivateKey(t *testing.T) {
	key := testRSAKey(t)

	jwk, err := FromPrivateKey(key)
	if err != nil {
		t.Fatalf("FromPrivateKey failed: %v", err)
	}

	if jwk.Kty != string(KeyTypeRSA) {
		t.Errorf("Expected kty=RSA, got %s", jwk.Kty)
	}
	if jwk.E != "AQAB" {
		t.Errorf("Expected e=AQAB, got %s", jwk.E)
	}
	if !jwk.HasCRT() {
		t.Error("private key should carry p, q, dp, dq and qi")
	}
	if !jwk.IsPrivate() || jwk.IsPublic() {
		t.Error("private RSA JWK misclassified")
	}
}

func TestRSARoundTrip(t *testing.T) {
	originalKey := testRSAKey(t)

	jwk, err := FromPrivateKey(originalKey)
	if err != nil {
		t.Fatalf("FromPrivateKey failed: %v", err)
	}

	recovered, err := jwk.ToPrivateKey()
	if err != nil {
		t.Fatalf("ToPrivateKey failed: %v", err)
	}

	rsaKey, ok := recovered.(*rsa.PrivateKey)
	if !ok {
		t.Fatal("Recovered key is not *rsa.PrivateKey")
	}
	if originalKey.N.Cmp(rsaKey.N) != 0 || originalKey.E != rsaKey.E || originalKey.D.Cmp(rsaKey.D) != 0 {
		t.Error("RSA parameters don't match")
	}

	pub, err := jwk.Public().ToPublicKey()
	if err != nil {
		t.Fatalf("ToPublicKey failed: %v", err)
	}
	if !originalKey.PublicKey.Equal(pub) {
		t.Error("public key doesn't match")
	}
}

func TestRSAPrivateKeyWithoutPrimes(t *testing.T) {
	jwk, _ := FromPrivateKey(testRSAKey(t))
	jwk.P, jwk.Q, jwk.DP, jwk.DQ, jwk.QI = "", "", "", "", ""

	if jwk.HasCRT() {
		t.Error("HasCRT should be false without CRT members")
	}
	if _, err := jwk.ToPrivateKey(); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("expected ErrInvalidKey, got %v", err)
	}
}

func TestECDSARoundTrip(t *testing.T) {
	for _, curve := range []elliptic.Curve{elliptic.P256(), elliptic.P384(), elliptic.P521()} {
		t.Run(curve.Params().Name, func(t *testing.T) {
			original, err := ecdsa.GenerateKey(curve, rand.Reader)
			if err != nil {
				t.Fatalf("GenerateKey failed: %v", err)
			}

			jwk, err := FromPrivateKey(original)
			if err != nil {
				t.Fatalf("FromPrivateKey failed: %v", err)
			}
			if jwk.Crv != curve.Params().Name {
				t.Errorf("Expected crv=%s, got %s", curve.Params().Name, jwk.Crv)
			}

			x, _ := jwk.Param("x")
			d, _ := jwk.Param("d")
			size := (curve.Params().BitSize + 7) / 8
			if len(x) != size || len(d) != size {
				t.Errorf("coordinates must be %d bytes, got x=%d d=%d", size, len(x), len(d))
			}

			recovered, err := jwk.ECDSAPrivateKey()
			if err != nil {
				t.Fatalf("ECDSAPrivateKey failed: %v", err)
			}
			if !original.Equal(recovered) {
				t.Error("recovered key doesn't match")
			}
		})
	}
}

func TestECDSAPublicKey_Invalid(t *testing.T) {
	priv, _ := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	jwk, _ := FromPublicKey(&priv.PublicKey)

	tests := []struct {
		name   string
		mutate func(j *JWK)
	}{
		{"missing crv", func(j *JWK) { j.Crv = "" }},
		{"missing x", func(j *JWK) { j.X = "" }},
		{"bad base64", func(j *JWK) { j.Y = "!!!" }},
		{"unsupported curve", func(j *JWK) { j.Crv = "P-192" }},
		{"off curve", func(j *JWK) { j.Y = j.X }},
		{"wrong kty", func(j *JWK) { j.Kty = "RSA" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := *jwk
			tt.mutate(&c)
			if _, err := c.ECDSAPublicKey(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestECDSAPrivateKey_MismatchedD(t *testing.T) {
	a, _ := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	b, _ := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)

	ja, _ := FromPrivateKey(a)
	jb, _ := FromPrivateKey(b)
	ja.D = jb.D

	if _, err := ja.ECDSAPrivateKey(); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("expected ErrInvalidKey, got %v", err)
	}
}

func TestSymmetricKey(t *testing.T) {
	raw := []byte("0123456789abcdef")
	jwk, err := FromSymmetricKey(raw, "A128KW")
	if err != nil {
		t.Fatalf("FromSymmetricKey failed: %v", err)
	}

	got, err := jwk.ToSymmetricKey()
	if err != nil {
		t.Fatalf("ToSymmetricKey failed: %v", err)
	}
	if string(got) != string(raw) {
		t.Errorf("Expected %q, got %q", raw, got)
	}

	legacy := &JWK{Kty: "dir", K: jwk.K}
	if _, err := legacy.ToSymmetricKey(); err != nil {
		t.Errorf("legacy dir key should decode: %v", err)
	}

	if _, err := FromSymmetricKey(nil, ""); err == nil {
		t.Error("empty key should be rejected")
	}
	if _, err := (&JWK{Kty: "oct"}).ToSymmetricKey(); err == nil {
		t.Error("oct key without k should be rejected")
	}
	if _, err := (&JWK{Kty: "EC", K: jwk.K}).ToSymmetricKey(); err == nil {
		t.Error("EC key should not convert to symmetric")
	}
}

func TestMapRoundTrip(t *testing.T) {
	priv, _ := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	jwk, _ := FromPublicKey(&priv.PublicKey)

	m := jwk.ToMap()
	if m["kty"] != "EC" || m["crv"] != "P-256" {
		t.Errorf("unexpected map: %v", m)
	}
	if _, ok := m["d"]; ok {
		t.Error("empty members must be omitted")
	}

	back, err := FromMap(m)
	if err != nil {
		t.Fatalf("FromMap failed: %v", err)
	}
	if back.X != jwk.X || back.Y != jwk.Y {
		t.Error("coordinates changed across map round trip")
	}

	if _, err := FromMap(map[string]any{"x": "abc"}); err == nil {
		t.Error("map without kty should be rejected")
	}
}

func TestPublic(t *testing.T) {
	jwk, _ := FromPrivateKey(testRSAKey(t))
	jwk.Kid = "rsa-1"
	jwk.KeyOps = []string{"wrapKey", "unwrapKey"}

	pub := jwk.Public()
	if pub.D != "" || pub.P != "" || pub.QI != "" {
		t.Error("public projection leaked private members")
	}
	if pub.Kid != "rsa-1" || pub.N != jwk.N {
		t.Error("public projection lost public members")
	}
	pub.KeyOps[0] = "encrypt"
	if jwk.KeyOps[0] != "wrapKey" {
		t.Error("public projection must not alias key_ops")
	}

	if (&JWK{Kty: "oct", K: "AAAA"}).Public() != nil {
		t.Error("oct keys have no public projection")
	}
}

func TestMarshalUnmarshal(t *testing.T) {
	priv, _ := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	jwk, _ := FromPrivateKey(priv)
	jwk.Kid = "ec-1"

	data, err := jwk.Marshal()
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var generic map[string]any
	if err := json.Unmarshal(data, &generic); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	back, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if !reflect.DeepEqual(back, jwk) {
		t.Error("JWK changed across JSON round trip")
	}

	if _, err := Unmarshal([]byte("{")); err == nil {
		t.Error("expected error for malformed JSON")
	}

	indented, err := jwk.MarshalIndent("", "  ")
	if err != nil || len(indented) <= len(data) {
		t.Error("MarshalIndent should produce longer output")
	}
}

func TestJOSEConversion(t *testing.T) {
	priv, _ := ecdsa.GenerateKey(elliptic.P521(), rand.Reader)
	jwk, _ := FromPrivateKey(priv)
	jwk.Kid = "p521"

	joseKey, err := jwk.ToJOSE()
	if err != nil {
		t.Fatalf("ToJOSE failed: %v", err)
	}
	if joseKey.KeyID != "p521" {
		t.Errorf("Expected kid p521, got %s", joseKey.KeyID)
	}
	if _, ok := joseKey.Key.(*ecdsa.PrivateKey); !ok {
		t.Fatalf("unexpected go-jose key type %T", joseKey.Key)
	}

	back, err := FromJOSE(joseKey)
	if err != nil {
		t.Fatalf("FromJOSE failed: %v", err)
	}
	if back.D != jwk.D || back.X != jwk.X || back.Crv != jwk.Crv {
		t.Error("key changed across go-jose round trip")
	}

	oct, err := (&JWK{Kty: "dir", K: "AAECAwQFBgcICQoLDA0ODw"}).ToJOSE()
	if err != nil {
		t.Fatalf("ToJOSE failed for dir key: %v", err)
	}
	if b, ok := oct.Key.([]byte); !ok || len(b) != 16 {
		t.Errorf("unexpected symmetric key %v", oct.Key)
	}

	if _, err := FromJOSE(nil); err == nil {
		t.Error("expected error for nil key")
	}
	if _, err := FromJOSE(&jose.JSONWebKey{Key: "not a key"}); err == nil {
		t.Error("expected error for invalid go-jose key")
	}
}

func TestUnsupportedKeyType(t *testing.T) {
	if _, err := FromPublicKey("not a key"); !errors.Is(err, ErrUnsupportedKeyType) {
		t.Errorf("expected ErrUnsupportedKeyType, got %v", err)
	}
	if _, err := FromPrivateKey(42); !errors.Is(err, ErrUnsupportedKeyType) {
		t.Errorf("expected ErrUnsupportedKeyType, got %v", err)
	}
	if _, err := (&JWK{Kty: "OKP"}).ToPublicKey(); !errors.Is(err, ErrUnsupportedKeyType) {
		t.Errorf("expected ErrUnsupportedKeyType, got %v", err)
	}
	if _, err := (&JWK{Kty: "oct"}).ToPrivateKey(); !errors.Is(err, ErrUnsupportedKeyType) {
		t.Errorf("expected ErrUnsupportedKeyType, got %v", err)
	}

	p224, _ := ecdsa.GenerateKey(elliptic.P224(), rand.Reader)
	if _, err := FromPublicKey(&p224.PublicKey); err == nil {
		t.Error("P-224 should be rejected")
	}
}

func TestParam(t *testing.T) {
	jwk := &JWK{Kty: "oct", K: "AQID"}
	b, err := jwk.Param("k")
	if err != nil || len(b) != 3 {
		t.Errorf("Param(k) = %v, %v", b, err)
	}
	b, err = jwk.Param("x")
	if err != nil || b != nil {
		t.Errorf("missing member should decode to nil, got %v, %v", b, err)
	}
	if _, err := jwk.Param("kty"); err == nil {
		t.Error("kty is not a key material parameter")
	}
	jwk.K = "A==="
	if _, err := jwk.Param("k"); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("expected ErrInvalidKey, got %v", err)
	}
}
