// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jeranaias/counsel-tui/internal/app"
	"github.com/jeranaias/counsel-tui/internal/model"
)

var fixedNow = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

func testDetail() *app.SessionDetail {
	conf := 0.87
	created := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	return &app.SessionDetail{
		Session: model.Session{
			ID:           "s-1",
			Title:        "Leave policy",
			CreatedAt:    created,
			UpdatedAt:    created.Add(time.Minute),
			MessageCount: 2,
		},
		Messages: []model.Message{
			{ID: "m1", Role: model.RoleUser, Content: "How much leave do I get?", CreatedAt: created},
			{
				ID:        "m2",
				Role:      model.RoleAssistant,
				Content:   "30 days per year.",
				CreatedAt: created.Add(time.Minute),
				Metadata: &model.MessageMetadata{
					Classification: "leave",
					Confidence:     &conf,
					Sources: []model.Source{
						{Title: "MILPERSMAN 1050", Section: "010", SourceURL: "https://example.org/1050"},
						{Title: "Local_Instruction"},
					},
				},
			},
		},
	}
}

func testOptions(dir string) *Options {
	opts := DefaultOptions()
	opts.OutputDir = dir
	opts.Now = func() time.Time { return fixedNow }
	return opts
}

func TestMarkdownExport(t *testing.T) {
	out, err := NewMarkdownExporter(testOptions("")).Export(testDetail())
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	result := string(out)

	for _, want := range []string{
		"title: Leave policy",
		"session_id: s-1",
		"messages: 2",
		"generator: counsel",
		"# Leave policy",
		"### You <sub>09:00:00</sub>",
		"### Assistant <sub>09:01:00</sub>",
		"30 days per year.",
		"Classification: leave | Confidence: 87%",
		"- [MILPERSMAN 1050 (010)](https://example.org/1050)",
		`- Local\_Instruction`,
		"*Exported from counsel on March 14, 2025 at 9:26 AM*",
	} {
		if !strings.Contains(result, want) {
			t.Errorf("markdown missing %q\n%s", want, result)
		}
	}
}

func TestMarkdownExportWithoutMetadata(t *testing.T) {
	opts := testOptions("")
	opts.IncludeMetadata = false
	opts.IncludeTimestamps = false

	out, err := NewMarkdownExporter(opts).Export(testDetail())
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	result := string(out)
	if strings.HasPrefix(result, "---") {
		t.Error("front matter written with metadata disabled")
	}
	if strings.Contains(result, "Classification") {
		t.Error("classification written with metadata disabled")
	}
	if !strings.Contains(result, "### You\n") {
		t.Errorf("expected plain role heading, got:\n%s", result)
	}
}

// A title with a newline must not inject extra front matter keys.
func TestMarkdownFrontMatterEscaping(t *testing.T) {
	detail := testDetail()
	detail.Session.Title = "Test\nInjection: malicious"

	out, err := NewMarkdownExporter(testOptions("")).Export(detail)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	parts := strings.SplitN(string(out), "---\n", 3)
	if len(parts) < 3 {
		t.Fatalf("front matter not delimited:\n%s", out)
	}
	var fm map[string]any
	if err := yaml.Unmarshal([]byte(parts[1]), &fm); err != nil {
		t.Fatalf("front matter is not valid YAML: %v", err)
	}
	if _, injected := fm["Injection"]; injected {
		t.Error("newline in title injected a YAML key")
	}
	if fm["title"] != "Test\nInjection: malicious" {
		t.Errorf("title = %q", fm["title"])
	}
}

func TestMarkdownEmptySession(t *testing.T) {
	detail := testDetail()
	detail.Session.Title = ""
	detail.Messages = nil

	out, err := NewMarkdownExporter(testOptions("")).Export(detail)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if !strings.Contains(string(out), "# "+model.DefaultSessionTitle) {
		t.Error("untitled session should use the default title")
	}
	if !strings.Contains(string(out), "*No messages.*") {
		t.Error("expected empty transcript marker")
	}
}

func TestJSONExportRoundTrip(t *testing.T) {
	in := testDetail()
	out, err := NewJSONExporter(nil).Export(in)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	var back app.SessionDetail
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if back.Session.ID != "s-1" || len(back.Messages) != 2 {
		t.Fatalf("unexpected round trip: %+v", back)
	}
	if got := *back.Messages[1].Metadata.Confidence; got != 0.87 {
		t.Errorf("confidence = %v", got)
	}
	if strings.Contains(string(out), "status") {
		t.Error("client-only delivery status leaked into JSON")
	}
}

func TestYAMLExport(t *testing.T) {
	out, err := NewYAMLExporter(nil).Export(testDetail())
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	var back app.SessionDetail
	if err := yaml.Unmarshal(out, &back); err != nil {
		t.Fatalf("invalid YAML: %v", err)
	}
	if back.Session.Title != "Leave policy" {
		t.Errorf("title = %q", back.Session.Title)
	}
	if back.Messages[1].Metadata.Sources[0].SourceURL != "https://example.org/1050" {
		t.Errorf("sources lost: %+v", back.Messages[1].Metadata)
	}
}

func TestNilSession(t *testing.T) {
	for _, format := range Formats() {
		exp, err := ForFormat(format, nil)
		if err != nil {
			t.Fatalf("ForFormat(%q): %v", format, err)
		}
		if _, err := exp.Export(nil); err != ErrNilSession {
			t.Errorf("%s: err = %v, want ErrNilSession", format, err)
		}
	}
}

func TestForFormat(t *testing.T) {
	tests := []struct {
		name string
		ext  string
		mime string
	}{
		{"json", ".json", "application/json"},
		{"md", ".md", "text/markdown"},
		{"Markdown", ".md", "text/markdown"},
		{"yml", ".yaml", "application/yaml"},
	}
	for _, tt := range tests {
		exp, err := ForFormat(tt.name, nil)
		if err != nil {
			t.Fatalf("ForFormat(%q): %v", tt.name, err)
		}
		if exp.FileExtension() != tt.ext || exp.MimeType() != tt.mime {
			t.Errorf("%s: got %s %s", tt.name, exp.FileExtension(), exp.MimeType())
		}
	}
	if _, err := ForFormat("html", nil); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestToFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	opts := testOptions(dir)

	path, err := ToFile(testDetail(), NewJSONExporter(opts), opts)
	if err != nil {
		t.Fatalf("ToFile failed: %v", err)
	}
	if want := filepath.Join(dir, "session_Leave_policy_20250314_092653.json"); path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !json.Valid(data) {
		t.Error("exported file is not valid JSON")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"simple", "simple"},
		{"with spaces", "with_spaces"},
		{`a/b\c:d*e?f"g<h>i|j`, "a-b-c-d-e-f-g-h-i-j"},
		{"tab\there", "tab_here"},
		{"bell\a", "bell-"},
		{"   ", "session"},
		{"", "session"},
		{strings.Repeat("x", 80), strings.Repeat("x", 50)},
		{"日本語のタイトル", "日本語のタイトル"},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
