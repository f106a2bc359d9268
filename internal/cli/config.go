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
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-josekm/internal/config"
	"github.com/jeremyhahn/go-josekm/internal/password"
	"github.com/jeremyhahn/go-josekm/pkg/encoding/jwk"
	"github.com/jeremyhahn/go-josekm/pkg/keymanagement"
	"github.com/jeremyhahn/go-josekm/pkg/keymanagement/registry"
	"github.com/jeremyhahn/go-josekm/pkg/logging"
)

// Config holds global CLI configuration
type Config struct {
	// ConfigFile is the path to the configuration file
	ConfigFile string

	// OutputFormat controls output formatting (json, text, table)
	OutputFormat string

	// Verbose enables debug logging
	Verbose bool
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{
		OutputFormat: string(OutputFormatText),
	}
}

// Load reads the configuration file and environment overrides.
func (c *Config) Load() (*config.Config, error) {
	cfg, err := config.Load(c.ConfigFile)
	if err != nil {
		return nil, err
	}
	if c.Verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

// CreateRegistry loads the configuration and builds the algorithm
// registry, logging to the command's error stream.
func (c *Config) CreateRegistry(cmd *cobra.Command) (*registry.Registry, *logging.Logger, error) {
	cfg, err := c.Load()
	if err != nil {
		return nil, nil, err
	}
	logger, err := cfg.NewLogger(cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	reg, err := cfg.NewRegistry(logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create registry: %w", err)
	}
	return reg, logger, nil
}

func (c *Config) printer(cmd *cobra.Command) *Printer {
	return NewPrinter(c.OutputFormat, cmd.OutOrStdout())
}

// readKeyFile reads a JWK from path. "-" reads standard input.
func readKeyFile(cmd *cobra.Command, path string) (*jwk.JWK, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		// #nosec G304 - key file path is provided by the user
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}
	key, err := jwk.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse key file: %w", err)
	}
	return key, nil
}

// readPassword reads a PBES2 password from path. "-" reads the first line
// of standard input.
func readPassword(cmd *cobra.Command, path string) (*password.ClearPassword, error) {
	if path == "-" {
		return password.ReadClearPassword(cmd.InOrStdin())
	}
	// #nosec G304 - password file path is provided by the user
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open password file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return password.ReadClearPassword(f)
}

// resolveKey returns the key named by the --key or --password-file flag.
// Password keys are zeroed by the returned cleanup function.
func resolveKey(cmd *cobra.Command, alg string) (*jwk.JWK, func(), error) {
	keyPath, _ := cmd.Flags().GetString("key")
	passwordPath, _ := cmd.Flags().GetString("password-file")

	switch {
	case keyPath != "" && passwordPath != "":
		return nil, nil, fmt.Errorf("--key and --password-file are mutually exclusive")
	case passwordPath != "":
		pwd, err := readPassword(cmd, passwordPath)
		if err != nil {
			return nil, nil, err
		}
		key, err := pwd.JWK(alg)
		if err != nil {
			pwd.Clear()
			return nil, nil, err
		}
		return key, pwd.Clear, nil
	case keyPath != "":
		key, err := readKeyFile(cmd, keyPath)
		if err != nil {
			return nil, nil, err
		}
		return key, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("one of --key or --password-file is required")
	}
}

// parseHeader decodes a JSON object given on the command line. An empty
// string yields an empty header.
func parseHeader(s string) (keymanagement.Header, error) {
	header := keymanagement.Header{}
	if strings.TrimSpace(s) == "" {
		return header, nil
	}
	if err := json.Unmarshal([]byte(s), &header); err != nil {
		return nil, fmt.Errorf("failed to parse header JSON: %w", err)
	}
	return header, nil
}

// decodeBytes decodes a base64url value, or hex when prefixed with "hex:".
func decodeBytes(s string) ([]byte, error) {
	if rest, ok := strings.CutPrefix(s, "hex:"); ok {
		b, err := hex.DecodeString(rest)
		if err != nil {
			return nil, fmt.Errorf("invalid hex value: %w", err)
		}
		return b, nil
	}
	b, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return nil, fmt.Errorf("invalid base64url value: %w", err)
	}
	return b, nil
}

func encodeBytes(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

func newConfigCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration after applying the config file and JOSEKM_*
environment overrides, as YAML.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cfg.Load()
			if err != nil {
				return err
			}
			data, err := c.Marshal()
			if err != nil {
				return err
			}
			return cfg.printer(cmd).PrintConfig(data)
		},
	}
}
