// Package parsers provides parsers for importing translation units from
// various formats.
package parsers

import (
	"io"
	"path/filepath"
	"strings"
)

// RawUnit represents a translatable unit parsed from an external source
// before validation.
type RawUnit struct {
	Key        string `json:"key"`
	SourceText string `json:"source_text"`
	Notes      string `json:"notes,omitempty"`
	LineNum    int    `json:"-"` // Line number in source file (set by parser)
}

// Parser defines the interface for parsing units from various formats.
type Parser interface {
	Parse(r io.Reader) ([]RawUnit, error)
}

// ForFormat returns the appropriate parser for the given format.
// Supported formats: "json", "csv".
func ForFormat(format string) Parser {
	switch strings.ToLower(format) {
	case "json":
		return &JSONParser{}
	case "csv":
		return &CSVParser{}
	default:
		return nil
	}
}

// ForFile returns the appropriate parser based on file extension.
func ForFile(filename string) Parser {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".json":
		return &JSONParser{}
	case ".csv":
		return &CSVParser{}
	default:
		return nil
	}
}
