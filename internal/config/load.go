package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML config file, applies environment overrides and validates it
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// applyEnv fills API keys from the environment when the file has none
func (c *Config) applyEnv() {
	if len(c.AI.APIKeys) > 0 {
		return
	}

	var raw string
	switch strings.ToLower(c.AI.Remote) {
	case RemoteGemini:
		raw = os.Getenv("GEMINI_API_KEY")
	case RemoteOpenAI:
		raw = os.Getenv("OPENAI_API_KEY")
	case RemoteClaude:
		raw = os.Getenv("ANTHROPIC_API_KEY")
	}

	for _, key := range strings.Split(raw, ",") {
		if key = strings.TrimSpace(key); key != "" {
			c.AI.APIKeys = append(c.AI.APIKeys, key)
		}
	}
}
