package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// DefaultPublisher is recorded in the sidecar warcinfo record when no publisher is configured.
const DefaultPublisher = "University of North Texas - Digital Projects Unit"

// Environment variables that override the config file.
const (
	EnvHome      = "SIDECAR_HOME"
	EnvOperator  = "SIDECAR_OPERATOR"
	EnvPublisher = "SIDECAR_PUBLISHER"
)

// Config holds application configuration.
type Config struct {
	// Publisher and Operator are written to the sidecar warcinfo record.
	Publisher string `json:"publisher,omitempty"`
	Operator  string `json:"operator,omitempty"`

	// Gzip controls whether sidecar records are written as gzip members.
	// A pointer so an explicit false in the file survives Merge.
	Gzip *bool `json:"gzip,omitempty"`

	// Jobs is the number of archives classified concurrently.
	Jobs int `json:"jobs,omitempty"`

	// MaxPayloadBytes caps the bytes handed to detectors per record.
	// Digests are always taken over the full payload.
	MaxPayloadBytes int64 `json:"max_payload_bytes,omitempty"`

	// LanguageMinCoverage drops detected languages covering less than this
	// percentage of the extracted text.
	LanguageMinCoverage int `json:"language_min_coverage,omitempty"`

	// MimePreference orders detector names when the merge picks a single
	// mime-detected value. Unlisted detectors fall back to key order.
	MimePreference []string `json:"mime_preference,omitempty"`

	// DisabledDetectors lists detectors to skip: "mimetype", "filetype",
	// "charset", "language", "soft404".
	DisabledDetectors []string `json:"disabled_detectors,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// DisabledTypes is a list of tool type names to disable entirely.
	// Known types: "sidecar", "cdxj", "run".
	DisabledTypes []string `json:"disabled_types,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	gz := true
	return &Config{
		Publisher:           DefaultPublisher,
		Gzip:                &gz,
		Jobs:                1,
		MaxPayloadBytes:     16 << 20,
		LanguageMinCoverage: 1,
		MimePreference:      []string{"filetype", "mimetype"},
	}
}

// GzipEnabled reports whether sidecars are gzip compressed.
func (c *Config) GzipEnabled() bool {
	return c.Gzip == nil || *c.Gzip
}

// DetectorEnabled reports whether the named detector should run.
func (c *Config) DetectorEnabled(name string) bool {
	for _, d := range c.DisabledDetectors {
		if d == name {
			return false
		}
	}
	return true
}

// BaseDir returns the directory holding config.json and the run journal:
// $SIDECAR_HOME when set, else ~/.warc-sidecar.
func BaseDir() (string, error) {
	if dir := strings.TrimSpace(os.Getenv(EnvHome)); dir != "" {
		return dir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".warc-sidecar"), nil
}

// Load loads configuration from baseDir/config.json and applies environment
// overrides. Returns default config if the file doesn't exist.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFile(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	return ApplyEnv(cfg), nil
}

// ApplyEnv overlays SIDECAR_OPERATOR and SIDECAR_PUBLISHER onto cfg.
func ApplyEnv(cfg *Config) *Config {
	if v := strings.TrimSpace(os.Getenv(EnvOperator)); v != "" {
		cfg.Operator = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvPublisher)); v != "" {
		cfg.Publisher = v
	}
	return cfg
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated,
// except MimePreference where an overlay list replaces the base order.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	// Scalars: overlay wins if non-zero, else base
	result.Publisher = overlay.Publisher
	if result.Publisher == "" {
		result.Publisher = base.Publisher
	}

	result.Operator = overlay.Operator
	if result.Operator == "" {
		result.Operator = base.Operator
	}

	result.Gzip = overlay.Gzip
	if result.Gzip == nil {
		result.Gzip = base.Gzip
	}

	result.Jobs = overlay.Jobs
	if result.Jobs == 0 {
		result.Jobs = base.Jobs
	}

	result.MaxPayloadBytes = overlay.MaxPayloadBytes
	if result.MaxPayloadBytes == 0 {
		result.MaxPayloadBytes = base.MaxPayloadBytes
	}

	result.LanguageMinCoverage = overlay.LanguageMinCoverage
	if result.LanguageMinCoverage == 0 {
		result.LanguageMinCoverage = base.LanguageMinCoverage
	}

	// Order matters here, so no merge
	result.MimePreference = mergeStringSlice(nil, overlay.MimePreference)
	if result.MimePreference == nil {
		result.MimePreference = mergeStringSlice(nil, base.MimePreference)
	}

	// Arrays: merge and deduplicate
	result.DisabledDetectors = mergeStringSlice(base.DisabledDetectors, overlay.DisabledDetectors)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)
	result.DisabledTypes = mergeStringSlice(base.DisabledTypes, overlay.DisabledTypes)

	return result
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range a {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	for _, s := range b {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
