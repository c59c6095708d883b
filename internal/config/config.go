package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SourceKind selects what the capture source records.
type SourceKind string

const (
	SourceScreen SourceKind = "screen"
	SourceWindow SourceKind = "window"
	SourceTab    SourceKind = "tab"
)

// Quality is a video quality tier, resolved to a resolution and bitrate by
// the capture layer.
type Quality string

const (
	QualityLow    Quality = "low"
	QualityMedium Quality = "medium"
	QualityHigh   Quality = "high"
	QualityUltra  Quality = "ultra"
)

// WindowTiers are the replay window durations offered to the user, in
// minutes. AvailableWindows reports which of these the buffer currently
// spans.
var WindowTiers = []int{1, 3, 5}

// Config holds application configuration.
//
// WindowMinutes is the only field that may change while a session is active;
// everything else requires the session to be idle.
type Config struct {
	// WindowMinutes is the rolling buffer retention span. Must be one of
	// WindowTiers.
	WindowMinutes int `json:"window_minutes"`

	// SourceKind selects screen, window, or tab capture.
	SourceKind SourceKind `json:"source_kind"`

	// IncludeSystemAudio mixes system audio into the capture.
	IncludeSystemAudio bool `json:"include_system_audio,omitempty"`

	// IncludeMicrophone mixes microphone audio into the capture.
	IncludeMicrophone bool `json:"include_microphone,omitempty"`

	// Quality is the video quality tier (low|medium|high|ultra).
	Quality Quality `json:"quality"`

	// FrameRate is the capture frame rate, clamped to 15-60.
	FrameRate int `json:"frame_rate"`

	// AudioBitrateKbps is the audio bitrate, clamped to 64-320.
	AudioBitrateKbps int `json:"audio_bitrate_kbps"`

	// MIMEType is the preferred container. Unsupported values fall back to
	// the default with a warning rather than failing the session.
	MIMEType string `json:"mime_type,omitempty"`

	// FFmpegPath overrides the ffmpeg binary used by the default capture
	// source. Empty means look it up on PATH.
	FFmpegPath string `json:"ffmpeg_path,omitempty"`

	// DBMaxOpenConns limits open connections to the clip archive database.
	// 0 means use sql.DB default.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits idle connections to the clip archive database.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		WindowMinutes:    5,
		SourceKind:       SourceScreen,
		Quality:          QualityHigh,
		FrameRate:        30,
		AudioBitrateKbps: 128,
	}
}

// Window returns the retention span as a duration.
func (c *Config) Window() time.Duration {
	return time.Duration(c.WindowMinutes) * time.Minute
}

// Validate checks field ranges. It is called after Load and before any
// session start.
func (c *Config) Validate() error {
	if !validWindow(c.WindowMinutes) {
		return errors.New("window_minutes must be one of 1, 3, 5")
	}
	switch c.SourceKind {
	case SourceScreen, SourceWindow, SourceTab:
	default:
		return errors.New("source_kind must be one of screen, window, tab")
	}
	switch c.Quality {
	case QualityLow, QualityMedium, QualityHigh, QualityUltra:
	default:
		return errors.New("quality must be one of low, medium, high, ultra")
	}
	if c.FrameRate < 15 || c.FrameRate > 60 {
		return errors.New("frame_rate must be between 15 and 60")
	}
	if c.AudioBitrateKbps < 64 || c.AudioBitrateKbps > 320 {
		return errors.New("audio_bitrate_kbps must be between 64 and 320")
	}
	return nil
}

func validWindow(minutes int) bool {
	for _, tier := range WindowTiers {
		if minutes == tier {
			return true
		}
	}
	return false
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.rewind.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFileRaw(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	merged := Merge(DefaultConfig(), cfg)
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return merged, nil
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

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.WindowMinutes = overlay.WindowMinutes
	if result.WindowMinutes == 0 {
		result.WindowMinutes = base.WindowMinutes
	}

	result.SourceKind = overlay.SourceKind
	if result.SourceKind == "" {
		result.SourceKind = base.SourceKind
	}

	result.Quality = overlay.Quality
	if result.Quality == "" {
		result.Quality = base.Quality
	}

	result.FrameRate = overlay.FrameRate
	if result.FrameRate == 0 {
		result.FrameRate = base.FrameRate
	}

	result.AudioBitrateKbps = overlay.AudioBitrateKbps
	if result.AudioBitrateKbps == 0 {
		result.AudioBitrateKbps = base.AudioBitrateKbps
	}

	result.MIMEType = overlay.MIMEType
	if result.MIMEType == "" {
		result.MIMEType = base.MIMEType
	}

	result.FFmpegPath = overlay.FFmpegPath
	if result.FFmpegPath == "" {
		result.FFmpegPath = base.FFmpegPath
	}

	result.DBMaxOpenConns = overlay.DBMaxOpenConns
	if result.DBMaxOpenConns == 0 {
		result.DBMaxOpenConns = base.DBMaxOpenConns
	}

	result.DBMaxIdleConns = overlay.DBMaxIdleConns
	if result.DBMaxIdleConns == 0 {
		result.DBMaxIdleConns = base.DBMaxIdleConns
	}

	// Booleans: overlay wins if true, else base
	result.IncludeSystemAudio = base.IncludeSystemAudio || overlay.IncludeSystemAudio
	result.IncludeMicrophone = base.IncludeMicrophone || overlay.IncludeMicrophone

	// Arrays: merge and deduplicate
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

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
