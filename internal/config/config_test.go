package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dl-alexandre/gdsync/internal/types"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.LocalFolder != "/data" {
		t.Errorf("Expected local folder '/data', got '%s'", cfg.LocalFolder)
	}

	if cfg.CredentialsFile != "/app/credentials.json" {
		t.Errorf("Expected credentials '/app/credentials.json', got '%s'", cfg.CredentialsFile)
	}

	if cfg.LogFile != "/app/sync.log" {
		t.Errorf("Expected log file '/app/sync.log', got '%s'", cfg.LogFile)
	}

	if cfg.ChunkSizeMiB != 8 {
		t.Errorf("Expected chunk size 8, got %d", cfg.ChunkSizeMiB)
	}

	if cfg.IndexCacheTTL != 0 {
		t.Errorf("Expected index cache disabled, got %d", cfg.IndexCacheTTL)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should validate: %v", err)
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(c *Config)
		errorMsg string
	}{
		{"valid default config", func(c *Config) {}, ""},
		{"invalid output format", func(c *Config) { c.OutputFormat = "xml" }, "invalid output format"},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }, "max retries"},
		{"retry delay too small", func(c *Config) { c.RetryBaseDelay = 10 }, "retry base delay"},
		{"zero request timeout", func(c *Config) { c.RequestTimeout = 0 }, "request timeout"},
		{"chunk size too large", func(c *Config) { c.ChunkSizeMiB = 512 }, "chunk size"},
		{"zero concurrency", func(c *Config) { c.Concurrency = 0 }, "concurrency"},
		{"negative cache ttl", func(c *Config) { c.IndexCacheTTL = -5 }, "index cache TTL"},
		{"unknown log level", func(c *Config) { c.LogLevel = "chatty" }, "invalid log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()

			if tt.errorMsg == "" {
				if err != nil {
					t.Errorf("Expected no error, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errorMsg) {
				t.Errorf("Expected error containing '%s', got %v", tt.errorMsg, err)
			}
		})
	}
}

func TestRequireRemote(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.RequireRemote(); err == nil {
		t.Error("Expected error without a drive folder")
	}

	cfg.DriveFolderID = "folder123"
	if err := cfg.RequireRemote(); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
}

func TestConfigDurationGetters(t *testing.T) {
	cfg := &Config{
		RetryBaseDelay: 1000,
		RequestTimeout: 60,
		UploadTimeout:  600,
		IndexCacheTTL:  30,
		ShutdownGrace:  10,
		ChunkSizeMiB:   4,
	}

	if d := cfg.GetRetryBaseDelay(); d != 1000*time.Millisecond {
		t.Errorf("Expected retry base delay 1000ms, got %v", d)
	}
	if d := cfg.GetRequestTimeout(); d != 60*time.Second {
		t.Errorf("Expected request timeout 60s, got %v", d)
	}
	if d := cfg.GetUploadTimeout(); d != 10*time.Minute {
		t.Errorf("Expected upload timeout 10m, got %v", d)
	}
	if d := cfg.GetIndexCacheTTL(); d != 30*time.Second {
		t.Errorf("Expected index cache TTL 30s, got %v", d)
	}
	if d := cfg.GetShutdownGrace(); d != 10*time.Second {
		t.Errorf("Expected shutdown grace 10s, got %v", d)
	}
	if n := cfg.ChunkSizeBytes(); n != 4*1024*1024 {
		t.Errorf("Expected 4 MiB, got %d", n)
	}
}

func TestLoad_Precedence(t *testing.T) {
	configDir := t.TempDir()
	t.Setenv(EnvPrefix+"CONFIG_DIR", configDir)

	fileCfg := DefaultConfig()
	fileCfg.LocalFolder = "/from/file"
	fileCfg.DriveFolderID = "file-folder"
	fileCfg.Concurrency = 2
	data, err := json.MarshalIndent(fileCfg, "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(configDir, ConfigFileName), data, 0600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	dotEnv := filepath.Join(t.TempDir(), ".env")
	content := "DRIVE_FOLDER_ID=dotenv-folder\nGDSYNC_CONCURRENCY=6\nGDSYNC_EXCLUDE=*.bak, cache/\n"
	if err := os.WriteFile(dotEnv, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write .env: %v", err)
	}

	t.Setenv(EnvPrefix+"CONCURRENCY", "8")

	cfg, err := Load(dotEnv)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.LocalFolder != "/from/file" {
		t.Errorf("Expected local folder from file, got '%s'", cfg.LocalFolder)
	}
	if cfg.DriveFolderID != "dotenv-folder" {
		t.Errorf("Expected drive folder from .env, got '%s'", cfg.DriveFolderID)
	}
	if cfg.Concurrency != 8 {
		t.Errorf("Expected environment to win, got concurrency %d", cfg.Concurrency)
	}
	if len(cfg.ExcludePatterns) != 2 || cfg.ExcludePatterns[1] != "cache/" {
		t.Errorf("Expected exclude patterns from .env, got %v", cfg.ExcludePatterns)
	}
}

func TestLoad_MissingFilesAreFine(t *testing.T) {
	t.Setenv(EnvPrefix+"CONFIG_DIR", t.TempDir())

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ChunkSizeMiB != 8 {
		t.Errorf("Expected defaults, got chunk size %d", cfg.ChunkSizeMiB)
	}
}

func TestLoad_InvalidEnvRejected(t *testing.T) {
	t.Setenv(EnvPrefix+"CONFIG_DIR", t.TempDir())
	t.Setenv(EnvPrefix+"LOG_LEVEL", "chatty")

	if _, err := Load(""); err == nil {
		t.Error("Expected validation error")
	}
}

func TestLoadFromEnv(t *testing.T) {
	env := map[string]string{
		"DRIVE_FOLDER_ID":         "legacy",
		"GDSYNC_DRIVE_FOLDER_ID":  "prefixed",
		"GDSYNC_LOCAL_FOLDER":     "/srv/share",
		"GDSYNC_CREDENTIALS_FILE": "/secrets/key.json",
		"GDSYNC_MAX_RETRIES":      "7",
		"GDSYNC_CHUNK_SIZE_MIB":   "16",
		"GDSYNC_INDEX_CACHE_TTL":  "45",
		"GDSYNC_INCLUDE":          "**/*.pdf",
		"GDSYNC_OUTPUT_FORMAT":    "json",
		"GDSYNC_COLOR_OUTPUT":     "false",
		"GDSYNC_REQUEST_TIMEOUT":  "not-a-number",
	}

	cfg := DefaultConfig()
	cfg.loadFromEnv(func(key string) string { return env[key] })

	if cfg.DriveFolderID != "prefixed" {
		t.Errorf("Expected prefixed drive folder to win, got '%s'", cfg.DriveFolderID)
	}
	if cfg.LocalFolder != "/srv/share" {
		t.Errorf("Expected local folder '/srv/share', got '%s'", cfg.LocalFolder)
	}
	if cfg.CredentialsFile != "/secrets/key.json" {
		t.Errorf("Expected credentials override, got '%s'", cfg.CredentialsFile)
	}
	if cfg.MaxRetries != 7 {
		t.Errorf("Expected max retries 7, got %d", cfg.MaxRetries)
	}
	if cfg.ChunkSizeMiB != 16 {
		t.Errorf("Expected chunk size 16, got %d", cfg.ChunkSizeMiB)
	}
	if cfg.IndexCacheTTL != 45 {
		t.Errorf("Expected index cache TTL 45, got %d", cfg.IndexCacheTTL)
	}
	if len(cfg.IncludePatterns) != 1 || cfg.IncludePatterns[0] != "**/*.pdf" {
		t.Errorf("Expected include patterns, got %v", cfg.IncludePatterns)
	}
	if cfg.OutputFormat != types.OutputFormatJSON {
		t.Errorf("Expected output format json, got '%s'", cfg.OutputFormat)
	}
	if cfg.ColorOutput {
		t.Error("Expected color output disabled")
	}
	if cfg.RequestTimeout != 60 {
		t.Errorf("Expected unparsable timeout to be ignored, got %d", cfg.RequestTimeout)
	}
}

func TestGetJournalPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvPrefix+"CONFIG_DIR", dir)

	cfg := DefaultConfig()
	path, err := cfg.GetJournalPath()
	if err != nil {
		t.Fatalf("GetJournalPath: %v", err)
	}
	if path != filepath.Join(dir, JournalFileName) {
		t.Errorf("Expected journal in config dir, got %s", path)
	}

	cfg.JournalPath = "/var/lib/gdsync/journal.db"
	if path, _ := cfg.GetJournalPath(); path != cfg.JournalPath {
		t.Errorf("Expected explicit journal path, got %s", path)
	}
}

func TestSave(t *testing.T) {
	t.Setenv(EnvPrefix+"CONFIG_DIR", filepath.Join(t.TempDir(), "nested"))

	cfg := DefaultConfig()
	cfg.DriveFolderID = "saved-folder"
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded := DefaultConfig()
	if err := loaded.loadFromFile(); err != nil {
		t.Fatalf("loadFromFile: %v", err)
	}
	if loaded.DriveFolderID != "saved-folder" {
		t.Errorf("Expected saved drive folder, got '%s'", loaded.DriveFolderID)
	}
}

func TestParseBool(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"true", true},
		{"TRUE", true},
		{"1", true},
		{"yes", true},
		{"on", true},
		{"false", false},
		{"0", false},
		{"", false},
		{"invalid", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseBool(tt.input); got != tt.want {
				t.Errorf("ParseBool(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	got := SplitList(" *.tmp, ,build/,")
	if len(got) != 2 || got[0] != "*.tmp" || got[1] != "build/" {
		t.Errorf("splitList = %v", got)
	}
	if SplitList("") != nil {
		t.Error("Expected nil for empty input")
	}
}

func TestLoadFile_IgnoresEnvironment(t *testing.T) {
	t.Setenv(EnvPrefix+"CONFIG_DIR", t.TempDir())
	t.Setenv(EnvPrefix+"CONCURRENCY", "12")

	cfg, err := LoadFile()
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Concurrency != DefaultConfig().Concurrency {
		t.Errorf("Expected default concurrency, got %d", cfg.Concurrency)
	}
}
