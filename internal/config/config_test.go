// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

// isolate points the config directory at a temp dir and clears overrides.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("COUNSEL_HOME", dir)
	for _, name := range []string{"COUNSEL_API_URL", "COUNSEL_TIMEOUT", "COUNSEL_PROVIDER",
		"COUNSEL_TOKEN", "COUNSEL_TOKEN_FILE", "COUNSEL_LOG_LEVEL"} {
		t.Setenv(name, "")
	}
	t.Setenv("NO_COLOR", "")
	os.Unsetenv("NO_COLOR")
	return dir
}

func TestConfig_Default(t *testing.T) {
	dir := isolate(t)
	cfg := Default()

	if cfg.API.TimeoutSecs != 60 {
		t.Errorf("TimeoutSecs = %d, want 60", cfg.API.TimeoutSecs)
	}
	if cfg.API.MessageLimit != 50 {
		t.Errorf("MessageLimit = %d, want 50", cfg.API.MessageLimit)
	}
	if cfg.API.Timeout() != 60*time.Second {
		t.Errorf("Timeout() = %v", cfg.API.Timeout())
	}
	if cfg.Auth.TokenFile != filepath.Join(dir, "token") {
		t.Errorf("TokenFile = %q", cfg.Auth.TokenFile)
	}
	if !cfg.UI.RenderMarkdown || !cfg.UI.AutoTitle {
		t.Error("markdown rendering and auto titles should be on by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestConfig_LoadPrecedence(t *testing.T) {
	dir := isolate(t)

	// Defaults when no file exists.
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.API.URL != DefaultAPIURL {
		t.Errorf("default URL = %q", cfg.API.URL)
	}

	// Config file beats the default.
	toml := "[api]\nurl = \"https://file.example.org\"\nmessage_limit = 20\n\n[ui]\nauto_title = false\n"
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(toml), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.API.URL != "https://file.example.org" {
		t.Errorf("file URL = %q", cfg.API.URL)
	}
	if cfg.API.MessageLimit != 20 {
		t.Errorf("MessageLimit = %d, want 20", cfg.API.MessageLimit)
	}
	if cfg.API.TimeoutSecs != 60 {
		t.Errorf("missing keys should keep defaults, TimeoutSecs = %d", cfg.API.TimeoutSecs)
	}
	if cfg.UI.AutoTitle {
		t.Error("auto_title = false should be honoured")
	}
	if !cfg.UI.RenderMarkdown {
		t.Error("render_markdown should keep its default")
	}

	// Environment beats the file.
	t.Setenv("COUNSEL_API_URL", "https://env.example.org")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.API.URL != "https://env.example.org" {
		t.Errorf("env URL = %q", cfg.API.URL)
	}
}

func TestConfig_LoadFixesPermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not enforced on Windows")
	}
	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("version = \"1.0.0\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(); err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("permissions = %o, want 600", info.Mode().Perm())
	}
}

func TestConfig_LoadJSONFallback(t *testing.T) {
	dir := isolate(t)
	if err := os.WriteFile(filepath.Join(dir, "config.json"),
		[]byte(`{"api":{"url":"https://json.example.org"}}`), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.API.URL != "https://json.example.org" {
		t.Errorf("URL = %q", cfg.API.URL)
	}
}

func TestConfig_LoadBrokenFileFallsBackToDefaults(t *testing.T) {
	dir := isolate(t)
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[api\nurl="), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load()
	if err == nil {
		t.Fatal("expected a load error")
	}
	if cfg == nil || cfg.API.URL != DefaultAPIURL {
		t.Errorf("expected defaults alongside the error, got %+v", cfg)
	}
}

func TestConfig_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("COUNSEL_TIMEOUT", "15")
	t.Setenv("COUNSEL_TOKEN", "secret")
	t.Setenv("COUNSEL_TOKEN_FILE", "/tmp/tok")
	t.Setenv("COUNSEL_LOG_LEVEL", "debug")
	t.Setenv("COUNSEL_PROVIDER", "groq")
	t.Setenv("NO_COLOR", "1")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.API.TimeoutSecs != 15 {
		t.Errorf("TimeoutSecs = %d", cfg.API.TimeoutSecs)
	}
	if cfg.Auth.Token != "secret" || cfg.Auth.TokenFile != "/tmp/tok" {
		t.Errorf("auth = %+v", cfg.Auth)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
	if cfg.API.Provider != "groq" {
		t.Errorf("Provider = %q", cfg.API.Provider)
	}
	if !cfg.UI.NoColor {
		t.Error("NO_COLOR should disable colors")
	}
}

func TestConfig_Validate(t *testing.T) {
	isolate(t)
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"relative url", func(c *Config) { c.API.URL = "localhost:8000" }, "api.url"},
		{"ftp url", func(c *Config) { c.API.URL = "ftp://example.org" }, "api.url"},
		{"zero timeout", func(c *Config) { c.API.TimeoutSecs = 0 }, "api.timeout_secs"},
		{"negative rate", func(c *Config) { c.API.RequestsPerSecond = -1 }, "api.requests_per_second"},
		{"zero burst", func(c *Config) { c.API.Burst = 0 }, "api.burst"},
		{"huge limit", func(c *Config) { c.API.MessageLimit = 5000 }, "api.message_limit"},
		{"bad level", func(c *Config) { c.Log.Level = "verbose" }, "log.level"},
		{"bad theme", func(c *Config) { c.UI.Theme = "neon" }, "ui.theme"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			var verrs ValidateErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("expected ValidateErrors, got %T", err)
			}
			if verrs[0].Field != tt.field {
				t.Errorf("field = %q, want %q", verrs[0].Field, tt.field)
			}
		})
	}
}

func TestConfig_GetSet(t *testing.T) {
	isolate(t)
	cfg := Default()

	if err := cfg.Set("api.url", "https://set.example.org"); err != nil {
		t.Fatalf("Set api.url: %v", err)
	}
	if err := cfg.Set("api.timeout_secs", "30"); err != nil {
		t.Fatalf("Set api.timeout_secs: %v", err)
	}
	if err := cfg.Set("ui.render_markdown", "false"); err != nil {
		t.Fatalf("Set ui.render_markdown: %v", err)
	}
	if err := cfg.Set("api.requests_per_second", "2.5"); err != nil {
		t.Fatalf("Set api.requests_per_second: %v", err)
	}

	v, err := cfg.Get("api.url")
	if err != nil || v != "https://set.example.org" {
		t.Errorf("Get api.url = %v, %v", v, err)
	}
	if cfg.API.TimeoutSecs != 30 || cfg.UI.RenderMarkdown || cfg.API.RequestsPerSecond != 2.5 {
		t.Errorf("Set did not apply: %+v %+v", cfg.API, cfg.UI)
	}

	if _, err := cfg.Get("api.nope"); err == nil {
		t.Error("expected error for unknown key")
	}
	if _, err := cfg.Get("version.sub"); err == nil {
		t.Error("expected error for non-struct traversal")
	}
	if err := cfg.Set("api.timeout_secs", "soon"); err == nil {
		t.Error("expected error for bad integer")
	}

	for _, key := range GetAllKeys() {
		if _, err := cfg.Get(key); err != nil {
			t.Errorf("GetAllKeys lists unreachable key %q: %v", key, err)
		}
	}
}

func TestConfig_SaveRoundTrip(t *testing.T) {
	dir := isolate(t)
	cfg := Default()
	cfg.API.URL = "https://saved.example.org"
	cfg.UI.AutoTitle = false

	path := filepath.Join(dir, "config.toml")
	if err := SaveTOML(cfg, path); err != nil {
		t.Fatalf("SaveTOML: %v", err)
	}
	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if loaded.API.URL != cfg.API.URL || loaded.UI.AutoTitle {
		t.Errorf("round trip mismatch: %+v", loaded)
	}

	jsonPath := filepath.Join(dir, "config.json")
	if err := SaveJSON(cfg, jsonPath); err != nil {
		t.Fatalf("SaveJSON: %v", err)
	}
	loaded, err = LoadFromPath(jsonPath)
	if err != nil {
		t.Fatalf("LoadFromPath json: %v", err)
	}
	if loaded.API.URL != cfg.API.URL {
		t.Errorf("json round trip URL = %q", loaded.API.URL)
	}
}

func TestConfig_StringRedactsToken(t *testing.T) {
	isolate(t)
	cfg := Default()
	cfg.Auth.Token = "super-secret"

	s := cfg.String()
	if strings.Contains(s, "super-secret") {
		t.Error("String() leaked the token")
	}
	if !strings.Contains(s, "[REDACTED]") {
		t.Error("String() should mark the redacted token")
	}
	if cfg.Auth.Token != "super-secret" {
		t.Error("String() must not modify the config")
	}
	if !IsSecretKey("auth.token") || IsSecretKey("api.url") {
		t.Error("IsSecretKey misclassified keys")
	}
}
