// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeranaias/counsel-tui/internal/app"
	"github.com/jeranaias/counsel-tui/internal/util"
)

// ErrNilSession is returned when there is nothing to export.
var ErrNilSession = errors.New("session is nil")

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter converts a session detail to a file format.
type Exporter interface {
	// Export renders the session and returns the file content.
	Export(detail *app.SessionDetail) ([]byte, error)

	// FileExtension returns the extension including the dot (".md").
	FileExtension() string

	// MimeType returns the MIME type of the rendered content.
	MimeType() string
}

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// Options configures export behavior.
type Options struct {
	// OutputDir is where ToFile writes. Default: current directory.
	OutputDir string

	// IncludeMetadata adds front matter and per-reply classification details.
	IncludeMetadata bool

	// IncludeTimestamps adds a time to each message heading.
	IncludeTimestamps bool

	// Now overrides the export clock. Nil means time.Now.
	Now func() time.Time
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:         ".",
		IncludeMetadata:   true,
		IncludeTimestamps: true,
	}
}

func (o *Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// Formats lists the names accepted by ForFormat.
func Formats() []string {
	return []string{"json", "markdown", "yaml"}
}

// ForFormat returns the exporter for a format name. Aliases "md" and "yml"
// are accepted.
func ForFormat(format string, opts *Options) (Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		return NewJSONExporter(opts), nil
	case "markdown", "md":
		return NewMarkdownExporter(opts), nil
	case "yaml", "yml":
		return NewYAMLExporter(opts), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q (want one of %s)",
			format, strings.Join(Formats(), ", "))
	}
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// ToFile renders detail with exporter and writes it under opts.OutputDir.
// The file name is derived from the session title and the export time.
// Returns the output path.
func ToFile(detail *app.SessionDetail, exporter Exporter, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if detail == nil {
		return "", ErrNilSession
	}

	content, err := exporter.Export(detail)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	dir := opts.OutputDir
	if dir == "" {
		dir = "."
	}
	filename := fmt.Sprintf("session_%s_%s%s",
		sanitizeFilename(detail.Session.DisplayTitle()),
		opts.now().Format("20060102_150405"),
		exporter.FileExtension(),
	)
	outputPath := filepath.Join(dir, filename)
	if err := util.WriteFileAtomic(outputPath, content, 0644, 0755); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return outputPath, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// sanitizeFilename replaces characters that are invalid in file names on
// Windows or Unix and caps the result at 50 runes.
func sanitizeFilename(s string) string {
	if runes := []rune(strings.TrimSpace(s)); len(runes) > 50 {
		s = string(runes[:50])
	} else {
		s = string(runes)
	}

	var b strings.Builder
	for _, r := range s {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r):
			b.WriteRune('-')
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			b.WriteRune('_')
		case r < 32 || r == 127:
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "session"
	}
	return b.String()
}

// formatTimestamp formats a timestamp for display.
func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.Format("2006-01-02 15:04:05")
}

// formatShortTimestamp formats a timestamp for inline display.
func formatShortTimestamp(t time.Time) string {
	return t.Format("15:04:05")
}
