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
	"encoding/json"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/jeremyhahn/go-josekm/pkg/encoding/jwk"
	"github.com/jeremyhahn/go-josekm/pkg/keymanagement"
)

// OutputFormat defines the output format type
type OutputFormat string

const (
	OutputFormatText  OutputFormat = "text"
	OutputFormatJSON  OutputFormat = "json"
	OutputFormatTable OutputFormat = "table"
)

// Printer handles formatted output
type Printer struct {
	format OutputFormat
	writer io.Writer
}

// NewPrinter creates a new Printer
func NewPrinter(format string, writer io.Writer) *Printer {
	return &Printer{
		format: OutputFormat(format),
		writer: writer,
	}
}

// AlgorithmInfo describes one registered algorithm
type AlgorithmInfo struct {
	Name     string   `json:"name"`
	Mode     string   `json:"mode"`
	KeyTypes []string `json:"key_types"`
}

// PrintAlgorithms prints the enabled key management algorithms
func (p *Printer) PrintAlgorithms(algs []AlgorithmInfo) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"algorithms": algs,
		})
	case OutputFormatTable:
		fmt.Fprintf(p.writer, "%-20s %-10s %-10s\n", "ALGORITHM", "MODE", "KEY TYPES")
		fmt.Fprintln(p.writer, strings.Repeat("-", 42))
		for _, a := range algs {
			fmt.Fprintf(p.writer, "%-20s %-10s %-10s\n", a.Name, a.Mode, strings.Join(a.KeyTypes, ","))
		}
		return nil
	case OutputFormatText:
		fmt.Fprintln(p.writer, "Key Management Algorithms:")
		for _, a := range algs {
			fmt.Fprintf(p.writer, "  - %s (%s, %s)\n", a.Name, a.Mode, strings.Join(a.KeyTypes, ","))
		}
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintKey prints a generated JWK and its RFC 7638 thumbprint
func (p *Printer) PrintKey(key *jwk.JWK, thumbprint string) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"key":        key,
			"thumbprint": thumbprint,
		})
	case OutputFormatTable, OutputFormatText:
		data, err := key.MarshalIndent("", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(p.writer, string(data))
		fmt.Fprintf(p.writer, "Thumbprint: %s\n", thumbprint)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintKeyMaterial prints the result of a wrap or derive operation. Byte
// values are base64url encoded; encryptedKey may be empty.
func (p *Printer) PrintKeyMaterial(cek, encryptedKey string, header keymanagement.Header) error {
	if header == nil {
		header = keymanagement.Header{}
	}
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"cek":           cek,
			"encrypted_key": encryptedKey,
			"header":        header,
		})
	case OutputFormatTable, OutputFormatText:
		fmt.Fprintf(p.writer, "CEK:           %s\n", cek)
		fmt.Fprintf(p.writer, "Encrypted Key: %s\n", encryptedKey)
		data, err := json.Marshal(header)
		if err != nil {
			return fmt.Errorf("failed to encode header: %w", err)
		}
		fmt.Fprintf(p.writer, "Header:        %s\n", data)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintCEK prints an unwrapped content encryption key (base64url encoded)
func (p *Printer) PrintCEK(cek string) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"cek": cek,
		})
	case OutputFormatTable, OutputFormatText:
		fmt.Fprintln(p.writer, cek)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintConfig prints the effective configuration. YAML is written as is
// for text output and embedded as a string for JSON.
func (p *Printer) PrintConfig(yamlData []byte) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"config": string(yamlData),
		})
	case OutputFormatTable, OutputFormatText:
		_, err := p.writer.Write(yamlData)
		return err
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintVersion prints build information
func (p *Printer) PrintVersion() error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"version":    Version,
			"commit":     GitCommit,
			"build_date": BuildDate,
			"go_version": runtime.Version(),
			"os":         runtime.GOOS,
			"arch":       runtime.GOARCH,
		})
	case OutputFormatTable, OutputFormatText:
		fmt.Fprintf(p.writer, "josekm version %s\n", Version)
		fmt.Fprintf(p.writer, "Git commit: %s\n", GitCommit)
		fmt.Fprintf(p.writer, "Build date: %s\n", BuildDate)
		fmt.Fprintf(p.writer, "Go version: %s\n", runtime.Version())
		fmt.Fprintf(p.writer, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintSuccess prints a success message
func (p *Printer) PrintSuccess(message string) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"status":  "success",
			"message": message,
		})
	case OutputFormatTable, OutputFormatText:
		fmt.Fprintln(p.writer, message)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintError prints an error message
func (p *Printer) PrintError(err error) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		})
	case OutputFormatTable, OutputFormatText:
		fmt.Fprintf(p.writer, "Error: %v\n", err)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

func (p *Printer) printJSON(data interface{}) error {
	encoder := json.NewEncoder(p.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
