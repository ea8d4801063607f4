// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"

	"gopkg.in/yaml.v3"

	"github.com/jeranaias/counsel-tui/internal/app"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter writes the complete session detail as indented JSON.
// Options do not filter JSON output.
type JSONExporter struct {
	options *Options
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(opts *Options) *JSONExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JSONExporter{options: opts}
}

// Export converts a session to JSON.
func (e *JSONExporter) Export(detail *app.SessionDetail) ([]byte, error) {
	if detail == nil {
		return nil, ErrNilSession
	}
	out, err := json.MarshalIndent(detail, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string { return ".json" }

// MimeType returns the MIME type for JSON.
func (e *JSONExporter) MimeType() string { return "application/json" }

// =============================================================================
// YAML EXPORTER
// =============================================================================

// YAMLExporter writes the same structure as JSONExporter in YAML.
type YAMLExporter struct {
	options *Options
}

// NewYAMLExporter creates a new YAML exporter.
func NewYAMLExporter(opts *Options) *YAMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &YAMLExporter{options: opts}
}

// Export converts a session to YAML.
func (e *YAMLExporter) Export(detail *app.SessionDetail) ([]byte, error) {
	if detail == nil {
		return nil, ErrNilSession
	}
	return yaml.Marshal(detail)
}

// FileExtension returns the file extension for YAML.
func (e *YAMLExporter) FileExtension() string { return ".yaml" }

// MimeType returns the MIME type for YAML.
func (e *YAMLExporter) MimeType() string { return "application/yaml" }
