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
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"testing"
)

// Test vectors from RFC 7638 Appendix A
// https://tools.ietf.org/html/rfc7638#appendix-A

func TestRFC7638_RSA_Example(t *testing.T) {
	jwk := &JWK{
		Kty: "RSA",
		N:   "0vx7agoebGcQSuuPiLJXZptN9nndrQmbXEps2aiAFbWhM78LhWx4cbbfAAtVT86zwu1RK7aPFFxuhDR1L6tSoc_BJECPebWKRXjBZCiFV4n3oknjhMstn64tZ_2W-5JsGY4Hc5n9yBXArwl93lqt7_RN5w6Cf0h4QyQ5v-65YGjQR0_FDW2QvzqY368QQMicAtaSqzs8KJZgnYb9c7d0zgdAZHzu6qMQvRL5hajrn1n91CbOpbISD08qNLyrdkt-bFTWhAI4vMQFh6WeZu0fM4lFd2NcRwr3XPksINHaQ-G_xBniIqbw0Ls1jF44-csFCur-kEgU8awapJzKnqDKgw",
		E:   "AQAB",
		Alg: "RS256",
		Kid: "2011-04-29",
	}

	expected := "NzbLsXh8uDCcd-6MNwXF4W_7noWXFZAfHkxZsRGC9Xs"

	thumbprint, err := jwk.ThumbprintSHA256()
	if err != nil {
		t.Fatalf("ThumbprintSHA256 failed: %v", err)
	}

	if thumbprint != expected {
		t.Errorf("Thumbprint doesn't match RFC 7638 example\nGot:      %s\nExpected: %s", thumbprint, expected)
	}
}

func TestThumbprint_EC_MatchesCanonicalJSON(t *testing.T) {
	// Bob's key from RFC 7518 Appendix C
	jwk := &JWK{
		Kty: "EC",
		Crv: "P-256",
		X:   "weNJy2HscCSM6AEDTDg04biOvhFhyyWvOHQfeF_PxMQ",
		Y:   "e8lnCO-AlStT-NJVX-crhB7QRYhiix03illJOVAOyck",
	}

	thumbprint, err := jwk.ThumbprintSHA256()
	if err != nil {
		t.Fatalf("ThumbprintSHA256 failed: %v", err)
	}

	canonical := `{"crv":"P-256","kty":"EC","x":"weNJy2HscCSM6AEDTDg04biOvhFhyyWvOHQfeF_PxMQ","y":"e8lnCO-AlStT-NJVX-crhB7QRYhiix03illJOVAOyck"}`
	sum := sha256.Sum256([]byte(canonical))
	expected := base64.RawURLEncoding.EncodeToString(sum[:])

	if thumbprint != expected {
		t.Errorf("Got %s, expected %s", thumbprint, expected)
	}

	// The private key shares the thumbprint of its public part
	jwk.D = "VEmDZpDXXK8p8N0Cndsxs924q6nS1RXFASRl6BfUqdw"
	private, err := jwk.ThumbprintSHA256()
	if err != nil {
		t.Fatalf("ThumbprintSHA256 failed: %v", err)
	}
	if private != thumbprint {
		t.Errorf("private key thumbprint %s differs from public %s", private, thumbprint)
	}
}

func TestThumbprintConsistency(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}

	a, err := FromPublicKey(&priv.PublicKey)
	if err != nil {
		t.Fatalf("FromPublicKey failed: %v", err)
	}
	b, err := FromPrivateKey(priv)
	if err != nil {
		t.Fatalf("FromPrivateKey failed: %v", err)
	}

	ta, err := a.ThumbprintSHA256()
	if err != nil {
		t.Fatalf("ThumbprintSHA256 failed: %v", err)
	}
	tb, err := b.ThumbprintSHA256()
	if err != nil {
		t.Fatalf("ThumbprintSHA256 failed: %v", err)
	}
	if ta != tb {
		t.Errorf("thumbprints differ: %s != %s", ta, tb)
	}
}

func TestSymmetricKeyThumbprint(t *testing.T) {
	jwk := &JWK{Kty: "oct", K: "GawgguFyGrWKav7AX4VKUg"}

	thumbprint, err := jwk.ThumbprintSHA256()
	if err != nil {
		t.Fatalf("ThumbprintSHA256 failed: %v", err)
	}

	sum := sha256.Sum256([]byte(`{"k":"GawgguFyGrWKav7AX4VKUg","kty":"oct"}`))
	if expected := base64.RawURLEncoding.EncodeToString(sum[:]); thumbprint != expected {
		t.Errorf("Got %s, expected %s", thumbprint, expected)
	}

	sha512, err := jwk.Thumbprint(crypto.SHA512)
	if err != nil {
		t.Fatalf("Thumbprint failed: %v", err)
	}
	if len(sha512) != 86 {
		t.Errorf("Expected SHA-512 thumbprint length 86, got %d", len(sha512))
	}
}

func TestThumbprintInvalidKey(t *testing.T) {
	if _, err := (&JWK{Kty: "EC", Crv: "P-256"}).ThumbprintSHA256(); err == nil {
		t.Error("expected error for EC key without coordinates")
	}
	if _, err := (&JWK{Kty: "oct"}).ThumbprintSHA256(); err == nil {
		t.Error("expected error for oct key without k")
	}
	if _, err := (&JWK{Kty: "none"}).ThumbprintSHA256(); err == nil {
		t.Error("expected error for kty none")
	}
	if _, err := (&JWK{Kty: "oct", K: "AAAA"}).Thumbprint(crypto.Hash(0)); err == nil {
		t.Error("expected error for unavailable hash")
	}
}

func BenchmarkThumbprintSHA256_ECDSA(b *testing.B) {
	priv, _ := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	jwk, _ := FromPublicKey(&priv.PublicKey)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = jwk.ThumbprintSHA256()
	}
}
