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
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"

	"github.com/jeremyhahn/go-josekm/pkg/encoding/jwk"
)

// Header parameter names read or written by the algorithms.
const (
	HeaderAlg = "alg"
	HeaderEnc = "enc"
	HeaderIV  = "iv"
	HeaderTag = "tag"
	HeaderP2S = "p2s"
	HeaderP2C = "p2c"
	HeaderEPK = "epk"
	HeaderAPU = "apu"
	HeaderAPV = "apv"
)

// Header is the merged JWE header as seen by an algorithm. Values follow
// the encoding/json decoding of a JSON object: strings, float64 or
// json.Number, and map[string]any for nested objects such as "epk".
type Header map[string]any

// Has reports whether the parameter is present.
func (h Header) Has(name string) bool {
	_, ok := h[name]
	return ok
}

// String returns a string parameter. A missing parameter yields "".
func (h Header) String(name string) (string, error) {
	v, ok := h[name]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %q must be a string", ErrInvalidHeader, name)
	}
	return s, nil
}

// RequireString is String for parameters that must be present and
// non-empty.
func (h Header) RequireString(name string) (string, error) {
	s, err := h.String(name)
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", fmt.Errorf("%w: missing %q", ErrInvalidHeader, name)
	}
	return s, nil
}

// Bytes decodes a base64url parameter. A missing parameter yields nil.
func (h Header) Bytes(name string) ([]byte, error) {
	v, ok := h[name]
	if !ok || v == nil {
		return nil, nil
	}
	switch b := v.(type) {
	case []byte:
		return append([]byte(nil), b...), nil
	case string:
		out, err := base64.RawURLEncoding.DecodeString(b)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not base64url: %v", ErrInvalidHeader, name, err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %q must be a base64url string", ErrInvalidHeader, name)
	}
}

// RequireBytes is Bytes for parameters that must be present and non-empty.
func (h Header) RequireBytes(name string) ([]byte, error) {
	b, err := h.Bytes(name)
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: missing %q", ErrInvalidHeader, name)
	}
	return b, nil
}

// Int returns an integer parameter. JSON numbers decoded as float64 must
// be integral. A missing parameter yields 0.
func (h Header) Int(name string) (int, error) {
	v, ok := h[name]
	if !ok || v == nil {
		return 0, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		if n > math.MaxInt32 || n < math.MinInt32 {
			return 0, fmt.Errorf("%w: %q out of range", ErrInvalidHeader, name)
		}
		return int(n), nil
	case float64:
		if n != math.Trunc(n) || n > math.MaxInt32 || n < math.MinInt32 {
			return 0, fmt.Errorf("%w: %q must be an integer", ErrInvalidHeader, name)
		}
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil || i > math.MaxInt32 || i < math.MinInt32 {
			return 0, fmt.Errorf("%w: %q must be an integer", ErrInvalidHeader, name)
		}
		return int(i), nil
	default:
		return 0, fmt.Errorf("%w: %q must be a number", ErrInvalidHeader, name)
	}
}

// RequireInt is Int for parameters that must be present.
func (h Header) RequireInt(name string) (int, error) {
	if !h.Has(name) {
		return 0, fmt.Errorf("%w: missing %q", ErrInvalidHeader, name)
	}
	return h.Int(name)
}

// JWK decodes a JWK-valued parameter such as "epk". A missing parameter
// yields nil.
func (h Header) JWK(name string) (*jwk.JWK, error) {
	v, ok := h[name]
	if !ok || v == nil {
		return nil, nil
	}

	var (
		key *jwk.JWK
		err error
	)
	switch k := v.(type) {
	case *jwk.JWK:
		c := *k
		key = &c
	case jwk.JWK:
		key = &k
	case map[string]any:
		key, err = jwk.FromMap(k)
	case string:
		key, err = jwk.Unmarshal([]byte(k))
	default:
		return nil, fmt.Errorf("%w: %q must be a JSON object", ErrInvalidHeader, name)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidHeader, name, err)
	}
	return key, nil
}

// Clone returns a shallow copy of h.
func (h Header) Clone() Header {
	out := make(Header, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}

// Merge returns a new Header holding the parameters of h and extra. It
// fails with ErrHeaderConflict if extra would replace a parameter already
// present in h.
func (h Header) Merge(extra Header) (Header, error) {
	out := h.Clone()
	for k, v := range extra {
		if _, exists := out[k]; exists {
			return nil, fmt.Errorf("%w: %q", ErrHeaderConflict, k)
		}
		out[k] = v
	}
	return out, nil
}
