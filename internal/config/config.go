package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dl-alexandre/gdsync/internal/types"
	"github.com/joho/godotenv"
)

const (
	// ConfigFileName is the name of the config file
	ConfigFileName = "config.json"
	// EnvPrefix is the prefix for environment variables
	EnvPrefix = "GDSYNC_"
	// DefaultDotEnvFile is read from the working directory when present
	DefaultDotEnvFile = ".env"
	// JournalFileName is the default journal database name inside the config directory
	JournalFileName = "journal.db"
)

// Config holds application configuration
type Config struct {
	// LocalFolder is the directory tree that is mirrored
	LocalFolder string `json:"localFolder"`

	// DriveFolderID is the Drive folder receiving the mirror
	DriveFolderID string `json:"driveFolderId"`

	// CredentialsFile is the service account key file
	CredentialsFile string `json:"credentialsFile"`

	// LogFile receives JSON log lines; empty disables file logging
	LogFile string `json:"logFile"`

	// LogLevel sets the logging verbosity (quiet, normal, verbose, debug)
	LogLevel string `json:"logLevel"`

	// OutputFormat is the default output format (json, table)
	OutputFormat types.OutputFormat `json:"outputFormat"`

	// MaxRetries is the maximum number of retries for transient API errors
	MaxRetries int `json:"maxRetries"`

	// RetryBaseDelay is the base delay for exponential backoff in milliseconds
	RetryBaseDelay int `json:"retryBaseDelay"`

	// RequestTimeout bounds each metadata call, in seconds
	RequestTimeout int `json:"requestTimeout"`

	// UploadTimeout bounds each upload, in seconds
	UploadTimeout int `json:"uploadTimeout"`

	// ChunkSizeMiB is the resumable upload chunk size
	ChunkSizeMiB int `json:"chunkSizeMiB"`

	// Concurrency is the number of paths reconciled in parallel
	Concurrency int `json:"concurrency"`

	// IndexCacheTTL caches remote listings for this many seconds; 0 lists on every event
	IndexCacheTTL int `json:"indexCacheTTL"`

	// ShutdownGrace is how long in-flight transfers may run after a stop signal, in seconds
	ShutdownGrace int `json:"shutdownGrace"`

	// JournalPath is the sync journal database; empty uses the config directory
	JournalPath string `json:"journalPath"`

	// ExcludePatterns are gitignore-style patterns that are never mirrored
	ExcludePatterns []string `json:"excludePatterns"`

	// IncludePatterns, when set, restrict mirroring to matching files
	IncludePatterns []string `json:"includePatterns"`

	// ColorOutput enables color output on the console
	ColorOutput bool `json:"colorOutput"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		LocalFolder:     "/data",
		CredentialsFile: "/app/credentials.json",
		LogFile:         "/app/sync.log",
		LogLevel:        "normal",
		OutputFormat:    types.OutputFormatTable,
		MaxRetries:      3,
		RetryBaseDelay:  1000, // 1 second
		RequestTimeout:  60,
		UploadTimeout:   3600,
		ChunkSizeMiB:    8,
		Concurrency:     4,
		IndexCacheTTL:   0,
		ShutdownGrace:   30,
		ColorOutput:     true,
	}
}

// Load loads configuration with precedence: env vars > .env file > config file > defaults.
// CLI flags are applied by the caller. A missing dotEnvPath is not an error.
func Load(dotEnvPath string) (*Config, error) {
	cfg := DefaultConfig()

	if err := cfg.loadFromFile(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	dotEnv, err := readDotEnv(dotEnvPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", dotEnvPath, err)
	}
	cfg.loadFromEnv(envLookup(dotEnv))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadFile returns defaults overlaid with the config file only
func LoadFile() (*Config, error) {
	cfg := DefaultConfig()
	if err := cfg.loadFromFile(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}
	return cfg, nil
}

// loadFromFile loads configuration from the config file
func (c *Config) loadFromFile() error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, c)
}

func readDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return values, nil
}

// envLookup prefers the process environment and falls back to .env values
func envLookup(dotEnv map[string]string) func(string) string {
	return func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return dotEnv[key]
	}
}

// loadFromEnv loads configuration from environment variables
func (c *Config) loadFromEnv(getenv func(string) string) {
	if v := getenv(EnvPrefix + "LOCAL_FOLDER"); v != "" {
		c.LocalFolder = v
	}
	// DRIVE_FOLDER_ID is the unprefixed name used by existing deployments.
	if v := getenv("DRIVE_FOLDER_ID"); v != "" {
		c.DriveFolderID = v
	}
	if v := getenv(EnvPrefix + "DRIVE_FOLDER_ID"); v != "" {
		c.DriveFolderID = v
	}
	if v := getenv("GOOGLE_APPLICATION_CREDENTIALS"); v != "" {
		c.CredentialsFile = v
	}
	if v := getenv(EnvPrefix + "CREDENTIALS_FILE"); v != "" {
		c.CredentialsFile = v
	}
	if v, ok := lookupSet(getenv, EnvPrefix+"LOG_FILE"); ok {
		c.LogFile = v
	}
	if v := getenv(EnvPrefix + "LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := getenv(EnvPrefix + "OUTPUT_FORMAT"); v != "" {
		c.OutputFormat = types.OutputFormat(v)
	}
	setInt(getenv, EnvPrefix+"MAX_RETRIES", &c.MaxRetries)
	setInt(getenv, EnvPrefix+"RETRY_BASE_DELAY", &c.RetryBaseDelay)
	setInt(getenv, EnvPrefix+"REQUEST_TIMEOUT", &c.RequestTimeout)
	setInt(getenv, EnvPrefix+"UPLOAD_TIMEOUT", &c.UploadTimeout)
	setInt(getenv, EnvPrefix+"CHUNK_SIZE_MIB", &c.ChunkSizeMiB)
	setInt(getenv, EnvPrefix+"CONCURRENCY", &c.Concurrency)
	setInt(getenv, EnvPrefix+"INDEX_CACHE_TTL", &c.IndexCacheTTL)
	setInt(getenv, EnvPrefix+"SHUTDOWN_GRACE", &c.ShutdownGrace)
	if v := getenv(EnvPrefix + "JOURNAL_PATH"); v != "" {
		c.JournalPath = v
	}
	if v := getenv(EnvPrefix + "EXCLUDE"); v != "" {
		c.ExcludePatterns = SplitList(v)
	}
	if v := getenv(EnvPrefix + "INCLUDE"); v != "" {
		c.IncludePatterns = SplitList(v)
	}
	if v := getenv(EnvPrefix + "COLOR_OUTPUT"); v != "" {
		c.ColorOutput = ParseBool(v)
	}
}

// lookupSet distinguishes an explicitly empty LOG_FILE (disable) from unset.
// Values from .env are only seen when non-empty.
func lookupSet(getenv func(string) string, key string) (string, bool) {
	if v, ok := os.LookupEnv(key); ok {
		return v, true
	}
	if v := getenv(key); v != "" {
		return v, true
	}
	return "", false
}

func setInt(getenv func(string) string, key string, dst *int) {
	if v := getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// SplitList splits a comma-separated list, dropping empty entries
func SplitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Save saves the configuration to the config file
func (c *Config) Save() error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.OutputFormat != types.OutputFormatJSON &&
		c.OutputFormat != types.OutputFormatTable {
		return fmt.Errorf("invalid output format: %s (must be 'json' or 'table')", c.OutputFormat)
	}

	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		return fmt.Errorf("max retries must be between 0 and 10, got: %d", c.MaxRetries)
	}

	if c.RetryBaseDelay < 100 || c.RetryBaseDelay > 60000 {
		return fmt.Errorf("retry base delay must be between 100ms and 60000ms, got: %d", c.RetryBaseDelay)
	}

	if c.RequestTimeout < 1 || c.RequestTimeout > 3600 {
		return fmt.Errorf("request timeout must be between 1 and 3600 seconds, got: %d", c.RequestTimeout)
	}

	if c.UploadTimeout < 0 || c.UploadTimeout > 86400 {
		return fmt.Errorf("upload timeout must be between 0 and 86400 seconds, got: %d", c.UploadTimeout)
	}

	if c.ChunkSizeMiB < 1 || c.ChunkSizeMiB > 256 {
		return fmt.Errorf("chunk size must be between 1 and 256 MiB, got: %d", c.ChunkSizeMiB)
	}

	if c.Concurrency < 1 || c.Concurrency > 64 {
		return fmt.Errorf("concurrency must be between 1 and 64, got: %d", c.Concurrency)
	}

	if c.IndexCacheTTL < 0 {
		return fmt.Errorf("index cache TTL must be non-negative, got: %d", c.IndexCacheTTL)
	}

	if c.ShutdownGrace < 0 {
		return fmt.Errorf("shutdown grace must be non-negative, got: %d", c.ShutdownGrace)
	}

	validLogLevels := []string{"quiet", "normal", "verbose", "debug"}
	isValid := false
	for _, level := range validLogLevels {
		if c.LogLevel == level {
			isValid = true
			break
		}
	}
	if !isValid {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	return nil
}

// RequireRemote checks the settings needed to talk to Drive
func (c *Config) RequireRemote() error {
	if c.DriveFolderID == "" {
		return errors.New("drive folder ID is not set (DRIVE_FOLDER_ID or --drive-folder)")
	}
	if c.CredentialsFile == "" {
		return errors.New("credentials file is not set (GDSYNC_CREDENTIALS_FILE or --credentials)")
	}
	return nil
}

// GetRetryBaseDelay returns the retry base delay as a duration
func (c *Config) GetRetryBaseDelay() time.Duration {
	return time.Duration(c.RetryBaseDelay) * time.Millisecond
}

// GetRequestTimeout returns the request timeout as a duration
func (c *Config) GetRequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// GetUploadTimeout returns the upload timeout as a duration
func (c *Config) GetUploadTimeout() time.Duration {
	return time.Duration(c.UploadTimeout) * time.Second
}

// GetIndexCacheTTL returns the index cache TTL as a duration
func (c *Config) GetIndexCacheTTL() time.Duration {
	return time.Duration(c.IndexCacheTTL) * time.Second
}

// GetShutdownGrace returns the shutdown grace period as a duration
func (c *Config) GetShutdownGrace() time.Duration {
	return time.Duration(c.ShutdownGrace) * time.Second
}

// ChunkSizeBytes returns the upload chunk size in bytes
func (c *Config) ChunkSizeBytes() int {
	return c.ChunkSizeMiB * 1024 * 1024
}

// GetJournalPath returns the journal database path
func (c *Config) GetJournalPath() (string, error) {
	if c.JournalPath != "" {
		return c.JournalPath, nil
	}
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, JournalFileName), nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, ConfigFileName), nil
}

// GetConfigDir returns the path to the config directory
func GetConfigDir() (string, error) {
	if dir := os.Getenv(EnvPrefix + "CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", "gdsync"), nil
}

// ParseBool parses a boolean value from a string
func ParseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}
