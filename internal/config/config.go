package config

import (
	"fmt"
	"os"
	"strings"
)

type Config struct {
	Whisper     WhisperConfig     `yaml:"whisper"`
	FFmpeg      FFmpegConfig      `yaml:"ffmpeg"`
	Paths       PathsConfig       `yaml:"paths"`
	Logging     LoggingConfig     `yaml:"logging"`
	Performance PerformanceConfig `yaml:"performance"`
	AI          AIConfig          `yaml:"ai"`
	Matcher     MatcherConfig     `yaml:"matcher"`
	Chapters    ChaptersConfig    `yaml:"chapters"`
	Sections    SectionsConfig    `yaml:"sections"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

type WhisperConfig struct {
	ModelPath      string `yaml:"model_path"`
	BinaryPath     string `yaml:"binary_path"`
	Language       string `yaml:"language"`
	Prompt         string `yaml:"prompt"`
	Threads        int    `yaml:"threads"`
	TimeoutMinutes int    `yaml:"timeout_minutes"`
}

type FFmpegConfig struct {
	BinaryPath     string `yaml:"binary_path"`
	TimeoutMinutes int    `yaml:"timeout_minutes"`
}

type PathsConfig struct {
	Input     string `yaml:"input"`
	Output    string `yaml:"output"`
	Archived  string `yaml:"archived"`
	Temp      string `yaml:"temp"`
	Resources string `yaml:"resources"`     // packaged binaries, searched first
	DevBin    string `yaml:"dev_resources"` // development checkout binaries, searched second
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

type PerformanceConfig struct {
	MaxConcurrent int `yaml:"max_concurrent"`
	MaxFileSizeMB int `yaml:"max_file_size_mb"`
}

// AIConfig selects the model provider once at startup.
// Provider is "local" (Ollama) or "remote"; Remote names the remote vendor.
type AIConfig struct {
	Provider       string   `yaml:"provider"`
	Remote         string   `yaml:"remote"`
	Host           string   `yaml:"host"`
	BaseURL        string   `yaml:"base_url"`
	APIKeys        []string `yaml:"api_keys"`
	FastModel      string   `yaml:"fast_model"`
	SmartModel     string   `yaml:"smart_model"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
	Platform       string   `yaml:"platform"`
}

type MatcherConfig struct {
	FuzzyThreshold float64 `yaml:"fuzzy_threshold"`
	WindowPadding  int     `yaml:"window_padding"`
	Stride         int     `yaml:"stride"`
}

type ChaptersConfig struct {
	MinDurationSeconds float64 `yaml:"min_duration_seconds"`
	MinCount           int     `yaml:"min_count"`
	ChunkSeconds       float64 `yaml:"chunk_seconds"`
}

type SectionsConfig struct {
	CeilingSeconds float64 `yaml:"ceiling_seconds"`
	MaxSliceChars  int     `yaml:"max_slice_chars"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

const (
	ProviderLocal  = "local"
	ProviderRemote = "remote"
	RemoteOpenAI   = "openai"
	RemoteGemini   = "gemini"
	RemoteClaude   = "claude"
)

func (c *Config) Validate() error {
	if c.Whisper.ModelPath == "" {
		return fmt.Errorf("whisper.model_path is required")
	}
	if c.Paths.Output == "" {
		return fmt.Errorf("paths.output is required")
	}

	c.AI.Provider = strings.ToLower(strings.TrimSpace(c.AI.Provider))
	c.AI.Remote = strings.ToLower(strings.TrimSpace(c.AI.Remote))
	switch c.AI.Provider {
	case "":
		c.AI.Provider = ProviderLocal
	case ProviderLocal:
	case ProviderRemote:
		switch c.AI.Remote {
		case RemoteOpenAI, RemoteGemini, RemoteClaude:
		case "":
			return fmt.Errorf("ai.remote is required when ai.provider is remote")
		default:
			return fmt.Errorf("ai.remote %q is not supported", c.AI.Remote)
		}
	default:
		return fmt.Errorf("ai.provider %q is not supported (want local or remote)", c.AI.Provider)
	}

	if c.Matcher.FuzzyThreshold < 0 || c.Matcher.FuzzyThreshold > 1 {
		return fmt.Errorf("matcher.fuzzy_threshold must be within [0, 1]")
	}

	if c.Paths.Input == "" {
		c.Paths.Input = "data/input"
	}
	if c.Paths.Archived == "" {
		c.Paths.Archived = "data/archived"
	}
	if c.Paths.Temp == "" {
		c.Paths.Temp = os.TempDir()
	}
	if c.Whisper.Language == "" {
		c.Whisper.Language = "auto"
	}
	if c.Whisper.Threads == 0 {
		c.Whisper.Threads = 8
	}
	if c.Whisper.TimeoutMinutes == 0 {
		c.Whisper.TimeoutMinutes = 180
	}
	if c.FFmpeg.TimeoutMinutes == 0 {
		c.FFmpeg.TimeoutMinutes = 30
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Performance.MaxConcurrent == 0 {
		c.Performance.MaxConcurrent = 5
	}
	if c.Performance.MaxFileSizeMB == 0 {
		c.Performance.MaxFileSizeMB = 500
	}
	if c.AI.Host == "" {
		c.AI.Host = "http://localhost:11434"
	}
	if c.AI.TimeoutSeconds == 0 {
		c.AI.TimeoutSeconds = 300
	}
	if c.AI.Platform == "" {
		c.AI.Platform = "youtube"
	}
	c.setModelDefaults()
	if c.Matcher.FuzzyThreshold == 0 {
		c.Matcher.FuzzyThreshold = 0.5
	}
	if c.Matcher.WindowPadding == 0 {
		c.Matcher.WindowPadding = 50
	}
	if c.Matcher.Stride == 0 {
		c.Matcher.Stride = 10
	}
	if c.Chapters.MinDurationSeconds == 0 {
		c.Chapters.MinDurationSeconds = 10
	}
	if c.Chapters.MinCount == 0 {
		c.Chapters.MinCount = 3
	}
	if c.Chapters.ChunkSeconds == 0 {
		c.Chapters.ChunkSeconds = 30
	}
	if c.Sections.CeilingSeconds == 0 {
		c.Sections.CeilingSeconds = 3600
	}
	if c.Sections.MaxSliceChars == 0 {
		c.Sections.MaxSliceChars = 60000
	}
	if c.Metrics.Listen == "" {
		c.Metrics.Listen = ":9090"
	}

	return nil
}

func (c *Config) setModelDefaults() {
	var fast, smart string
	switch {
	case c.AI.Provider == ProviderLocal:
		fast, smart = "llama3.1:8b", "llama3.1:70b"
	case c.AI.Remote == RemoteGemini:
		fast, smart = "gemini-2.5-flash", "gemini-2.5-pro"
	case c.AI.Remote == RemoteClaude:
		fast, smart = "claude-3-haiku-20240307", "claude-3-opus-20240229"
	default:
		fast, smart = "gpt-4.1-mini", "gpt-4.1"
	}
	if c.AI.FastModel == "" {
		c.AI.FastModel = fast
	}
	if c.AI.SmartModel == "" {
		c.AI.SmartModel = smart
	}
}
