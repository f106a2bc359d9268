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

// Package registry resolves key management algorithms by their registered
// "alg" name. The table of algorithms is fixed; a Registry is built once
// from it, optionally restricted to an enabled subset, and is read-only
// afterwards.
//
// Capabilities returned by a Registry are instrumented: every call is
// timed, counted in Prometheus and logged at debug level. Failures are
// logged at warn level with their error class only.
package registry

import (
	"fmt"
	"io"
	"slices"

	"github.com/jeremyhahn/go-josekm/pkg/keymanagement"
	"github.com/jeremyhahn/go-josekm/pkg/keymanagement/aesgcmkw"
	"github.com/jeremyhahn/go-josekm/pkg/keymanagement/aeskw"
	"github.com/jeremyhahn/go-josekm/pkg/keymanagement/direct"
	"github.com/jeremyhahn/go-josekm/pkg/keymanagement/ecdhes"
	"github.com/jeremyhahn/go-josekm/pkg/keymanagement/pbes2"
	"github.com/jeremyhahn/go-josekm/pkg/keymanagement/rsaes"
	"github.com/jeremyhahn/go-josekm/pkg/logging"
	"github.com/jeremyhahn/go-josekm/pkg/metrics"
)

type constructor func(opts ...keymanagement.Option) (keymanagement.Algorithm, error)

type entry struct {
	name  string
	build constructor
}

var table = []entry{
	{keymanagement.Dir, func(...keymanagement.Option) (keymanagement.Algorithm, error) {
		return direct.New(), nil
	}},
	{keymanagement.A128KW, aesKW(keymanagement.A128KW)},
	{keymanagement.A192KW, aesKW(keymanagement.A192KW)},
	{keymanagement.A256KW, aesKW(keymanagement.A256KW)},
	{keymanagement.A128GCMKW, aesGCMKW(keymanagement.A128GCMKW)},
	{keymanagement.A192GCMKW, aesGCMKW(keymanagement.A192GCMKW)},
	{keymanagement.A256GCMKW, aesGCMKW(keymanagement.A256GCMKW)},
	{keymanagement.PBES2HS256A128KW, pbes2KW(keymanagement.PBES2HS256A128KW)},
	{keymanagement.PBES2HS384A192KW, pbes2KW(keymanagement.PBES2HS384A192KW)},
	{keymanagement.PBES2HS512A256KW, pbes2KW(keymanagement.PBES2HS512A256KW)},
	{keymanagement.ECDHES, func(opts ...keymanagement.Option) (keymanagement.Algorithm, error) {
		return ecdhes.NewAgreement(opts...), nil
	}},
	{keymanagement.ECDHESA128KW, ecdhKW(keymanagement.ECDHESA128KW)},
	{keymanagement.ECDHESA192KW, ecdhKW(keymanagement.ECDHESA192KW)},
	{keymanagement.ECDHESA256KW, ecdhKW(keymanagement.ECDHESA256KW)},
	{keymanagement.RSA15, rsaKT(keymanagement.RSA15)},
	{keymanagement.RSAOAEP, rsaKT(keymanagement.RSAOAEP)},
	{keymanagement.RSAOAEP256, rsaKT(keymanagement.RSAOAEP256)},
	{keymanagement.RSAOAEP384, rsaKT(keymanagement.RSAOAEP384)},
	{keymanagement.RSAOAEP512, rsaKT(keymanagement.RSAOAEP512)},
}

func aesKW(name string) constructor {
	return func(...keymanagement.Option) (keymanagement.Algorithm, error) {
		return algorithm(aeskw.New(name))
	}
}

func aesGCMKW(name string) constructor {
	return func(opts ...keymanagement.Option) (keymanagement.Algorithm, error) {
		return algorithm(aesgcmkw.New(name, opts...))
	}
}

func pbes2KW(name string) constructor {
	return func(opts ...keymanagement.Option) (keymanagement.Algorithm, error) {
		return algorithm(pbes2.New(name, opts...))
	}
}

func ecdhKW(name string) constructor {
	return func(opts ...keymanagement.Option) (keymanagement.Algorithm, error) {
		return algorithm(ecdhes.NewKeyWrap(name, opts...))
	}
}

func rsaKT(name string) constructor {
	return func(opts ...keymanagement.Option) (keymanagement.Algorithm, error) {
		return algorithm(rsaes.New(name, opts...))
	}
}

func algorithm[T keymanagement.Algorithm](a T, err error) (keymanagement.Algorithm, error) {
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Names returns every algorithm name the registry can be built with, in
// table order.
func Names() []string {
	names := make([]string, len(table))
	for i, e := range table {
		names[i] = e.name
	}
	return names
}

// Config controls which algorithms a Registry holds and how they are built.
type Config struct {
	// Enabled restricts the registry to these names. Empty enables all.
	Enabled []string

	// Options are passed to every algorithm constructor.
	Options []keymanagement.Option

	// Logger receives operation logs. Nil discards them.
	Logger *logging.Logger
}

// Registry is a fixed table of algorithm instances keyed by name. It is
// safe for concurrent use.
type Registry struct {
	algorithms map[string]keymanagement.Algorithm
	names      []string
	random     io.Reader
	logger     *logging.Logger
}

// New builds a registry from cfg.
func New(cfg Config) (*Registry, error) {
	known := Names()
	for _, name := range cfg.Enabled {
		if !slices.Contains(known, name) {
			return nil, fmt.Errorf("%w: %q", keymanagement.ErrUnsupportedAlgorithm, name)
		}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	r := &Registry{
		algorithms: make(map[string]keymanagement.Algorithm, len(table)),
		random:     keymanagement.NewOptions(cfg.Options...).Random,
		logger:     logger,
	}
	counts := make(map[keymanagement.Mode]int)
	for _, e := range table {
		if len(cfg.Enabled) > 0 && !slices.Contains(cfg.Enabled, e.name) {
			continue
		}
		alg, err := e.build(cfg.Options...)
		if err != nil {
			return nil, fmt.Errorf("failed to build %s: %w", e.name, err)
		}
		r.algorithms[e.name] = alg
		r.names = append(r.names, e.name)
		counts[alg.Mode()]++
	}

	for _, mode := range []keymanagement.Mode{keymanagement.ModeDirect, keymanagement.ModeWrap, keymanagement.ModeAgreement} {
		metrics.SetAlgorithmsEnabled(mode.String(), float64(counts[mode]))
	}
	logger.Debug("key management registry ready", "algorithms", len(r.names))
	return r, nil
}

// Default returns a registry holding every algorithm with default options.
func Default() *Registry {
	r, err := New(Config{})
	if err != nil {
		// The built-in table always builds with default options.
		panic(err)
	}
	return r
}

// Names returns the enabled algorithm names in table order.
func (r *Registry) Names() []string {
	return slices.Clone(r.names)
}

// Lookup returns the uninstrumented algorithm registered under name.
func (r *Registry) Lookup(name string) (keymanagement.Algorithm, error) {
	alg, ok := r.algorithms[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", keymanagement.ErrUnsupportedAlgorithm, name)
	}
	return alg, nil
}

// Mode returns the mode of the algorithm registered under name.
func (r *Registry) Mode(name string) (keymanagement.Mode, error) {
	alg, err := r.Lookup(name)
	if err != nil {
		return 0, err
	}
	return alg.Mode(), nil
}

// Direct returns name as a DirectKeySupplier.
func (r *Registry) Direct(name string) (keymanagement.DirectKeySupplier, error) {
	alg, err := capability[keymanagement.DirectKeySupplier](r, name, "direct key supplier")
	if err != nil {
		return nil, err
	}
	return &instrumentedDirect{DirectKeySupplier: alg, obs: r.observer(name)}, nil
}

// Wrapper returns name as a KeyWrapper.
func (r *Registry) Wrapper(name string) (keymanagement.KeyWrapper, error) {
	alg, err := capability[keymanagement.KeyWrapper](r, name, "key wrapper")
	if err != nil {
		return nil, err
	}
	return &instrumentedWrapper{KeyWrapper: alg, obs: r.observer(name)}, nil
}

// Agreement returns name as a KeyAgreement.
func (r *Registry) Agreement(name string) (keymanagement.KeyAgreement, error) {
	alg, err := capability[keymanagement.KeyAgreement](r, name, "key agreement")
	if err != nil {
		return nil, err
	}
	return &instrumentedAgreement{KeyAgreement: alg, obs: r.observer(name)}, nil
}

// AgreementWrapper returns name as a KeyAgreementWrapper.
func (r *Registry) AgreementWrapper(name string) (keymanagement.KeyAgreementWrapper, error) {
	alg, err := capability[keymanagement.KeyAgreementWrapper](r, name, "key agreement wrapper")
	if err != nil {
		return nil, err
	}
	return &instrumentedAgreementWrapper{KeyAgreementWrapper: alg, obs: r.observer(name)}, nil
}

func capability[T keymanagement.Algorithm](r *Registry, name, kind string) (T, error) {
	var zero T
	alg, err := r.Lookup(name)
	if err != nil {
		return zero, err
	}
	c, ok := alg.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s is not a %s", keymanagement.ErrUnsupportedAlgorithm, name, kind)
	}
	return c, nil
}
