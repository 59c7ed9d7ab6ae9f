package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dyluth/nextpost/internal/agent"
	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up in the working directory.
const DefaultPath = "nextpost.yml"

// Embedding providers.
const (
	ProviderOpenAI = "openai"
	ProviderHash   = "hash"
)

// Config represents the top-level nextpost.yml configuration
type Config struct {
	Version      string                   `yaml:"version"`
	Namespace    string                   `yaml:"namespace"`
	Redis        RedisConfig              `yaml:"redis"`
	Embedding    EmbeddingConfig          `yaml:"embedding"`
	Generation   GenerationConfig         `yaml:"generation"`
	Deliberation DeliberationConfig       `yaml:"deliberation"`
	Analysis     AnalysisConfig           `yaml:"analysis"`
	Agents       map[string]AgentOverride `yaml:"agents,omitempty"` // keyed by role
	Metrics      MetricsConfig            `yaml:"metrics"`

	// Credentials are only ever read from the environment.
	OpenAIAPIKey  string `yaml:"-"`
	OpenAIBaseURL string `yaml:"-"`
}

// RedisConfig locates the Redis instance backing the post index
type RedisConfig struct {
	URL string `yaml:"url"`
}

// EmbeddingConfig selects how post text is embedded
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"` // "openai" or "hash" (offline, deterministic)
	Model      string `yaml:"model,omitempty"`
	Dimensions int    `yaml:"dimensions,omitempty"`
}

// GenerationConfig controls the chat model agents speak through
type GenerationConfig struct {
	Model       string        `yaml:"model"`
	Temperature float32       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	TurnTimeout time.Duration `yaml:"turn_timeout"`
}

// DeliberationConfig bounds a deliberation session
type DeliberationConfig struct {
	MaxRounds         int    `yaml:"max_rounds"`
	TerminationMarker string `yaml:"termination_marker"`
}

// AnalysisConfig controls what goes into a briefing
type AnalysisConfig struct {
	Categories              []string `yaml:"categories"`
	HighEngagementThreshold int      `yaml:"high_engagement_threshold"`
	RecentLimit             int      `yaml:"recent_limit"`
	GapWindow               int      `yaml:"gap_window"`
}

// AgentOverride replaces the built-in name or role description of one agent
type AgentOverride struct {
	Name        string `yaml:"name,omitempty"`
	Description string `yaml:"description,omitempty"`
}

// MetricsConfig specifies where metrics are pushed after each command
type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Version:   "1.0",
		Namespace: "default",
		Redis:     RedisConfig{URL: "redis://localhost:6379/0"},
		Embedding: EmbeddingConfig{Provider: ProviderOpenAI, Model: "text-embedding-3-small"},
		Generation: GenerationConfig{
			Model:       agent.DefaultChatModel,
			Temperature: agent.DefaultTemperature,
			MaxTokens:   agent.DefaultMaxTokens,
			TurnTimeout: 60 * time.Second,
		},
		Deliberation: DeliberationConfig{
			MaxRounds:         8,
			TerminationMarker: agent.DefaultMarkerPhrase,
		},
		Analysis: AnalysisConfig{
			Categories:              []string{"satisfying_video", "promotion", "educational", "behind_scenes"},
			HighEngagementThreshold: 1000,
			RecentLimit:             10,
			GapWindow:               7,
		},
	}
}

// Validate performs strict validation on the configuration
func (c *Config) Validate() error {
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	if strings.TrimSpace(c.Namespace) == "" {
		return fmt.Errorf("namespace is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("redis.url is required")
	}
	if _, err := redis.ParseURL(c.Redis.URL); err != nil {
		return fmt.Errorf("invalid redis.url: %w", err)
	}

	switch c.Embedding.Provider {
	case ProviderOpenAI:
		if c.Embedding.Model == "" {
			return fmt.Errorf("embedding.model is required for provider '%s'", ProviderOpenAI)
		}
	case ProviderHash:
	default:
		return fmt.Errorf("invalid embedding.provider: %s (must be '%s' or '%s')", c.Embedding.Provider, ProviderOpenAI, ProviderHash)
	}
	if c.Embedding.Dimensions < 0 {
		return fmt.Errorf("embedding.dimensions must be >= 0, got %d", c.Embedding.Dimensions)
	}

	if c.Generation.Model == "" {
		return fmt.Errorf("generation.model is required")
	}
	if c.Generation.Temperature < 0 || c.Generation.Temperature > 2 {
		return fmt.Errorf("generation.temperature must be between 0 and 2, got %g", c.Generation.Temperature)
	}
	if c.Generation.MaxTokens < 0 {
		return fmt.Errorf("generation.max_tokens must be >= 0, got %d", c.Generation.MaxTokens)
	}
	if c.Generation.TurnTimeout <= 0 {
		return fmt.Errorf("generation.turn_timeout must be > 0, got %s", c.Generation.TurnTimeout)
	}

	if c.Deliberation.MaxRounds < 1 {
		return fmt.Errorf("deliberation.max_rounds must be >= 1, got %d", c.Deliberation.MaxRounds)
	}
	if strings.TrimSpace(c.Deliberation.TerminationMarker) == "" {
		return fmt.Errorf("deliberation.termination_marker is required")
	}

	if len(c.Analysis.Categories) == 0 {
		return fmt.Errorf("analysis.categories must list at least one category")
	}
	seen := make(map[string]bool, len(c.Analysis.Categories))
	for _, cat := range c.Analysis.Categories {
		if strings.TrimSpace(cat) == "" {
			return fmt.Errorf("analysis.categories contains an empty category")
		}
		if seen[cat] {
			return fmt.Errorf("duplicate category '%s' in analysis.categories", cat)
		}
		seen[cat] = true
	}
	if c.Analysis.HighEngagementThreshold < 0 {
		return fmt.Errorf("analysis.high_engagement_threshold must be >= 0, got %d", c.Analysis.HighEngagementThreshold)
	}
	if c.Analysis.RecentLimit < 1 {
		return fmt.Errorf("analysis.recent_limit must be >= 1, got %d", c.Analysis.RecentLimit)
	}
	if c.Analysis.GapWindow < 1 {
		return fmt.Errorf("analysis.gap_window must be >= 1, got %d", c.Analysis.GapWindow)
	}

	for role := range c.Agents {
		if !agent.Role(role).Valid() {
			return fmt.Errorf("agents: unknown role '%s' (must be '%s', '%s' or '%s')",
				role, agent.RoleStorySpecialist, agent.RoleFeedSpecialist, agent.RoleCoordinator)
		}
	}

	names := make(map[string]agent.Role)
	for _, role := range Roles() {
		name := c.AgentName(role)
		if other, exists := names[name]; exists {
			return fmt.Errorf("agents: duplicate agent name '%s' (roles '%s' and '%s')", name, other, role)
		}
		names[name] = role
	}

	return nil
}

// Roles returns every agent role in speaking order.
func Roles() []agent.Role {
	return append(append([]agent.Role{}, agent.SpecialistRoles...), agent.RoleCoordinator)
}

// ApplyEnv overrides connection settings and credentials from the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.Redis.URL = v
	}
	if v := os.Getenv("NEXTPOST_NAMESPACE"); v != "" {
		c.Namespace = v
	}
	c.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	c.OpenAIBaseURL = os.Getenv("OPENAI_BASE_URL")
}

// RedisOptions parses the configured Redis URL.
func (c *Config) RedisOptions() (*redis.Options, error) {
	opts, err := redis.ParseURL(c.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return opts, nil
}

// AgentName returns the configured speaker name for role.
func (c *Config) AgentName(role agent.Role) string {
	if o, ok := c.Agents[string(role)]; ok && o.Name != "" {
		return o.Name
	}
	return agent.DefaultName(role)
}

// AgentDescription returns the configured role description for role. The coordinator's
// default description names the configured termination marker.
func (c *Config) AgentDescription(role agent.Role) string {
	if o, ok := c.Agents[string(role)]; ok && strings.TrimSpace(o.Description) != "" {
		return o.Description
	}
	if role == agent.RoleCoordinator {
		return agent.CoordinatorDescription(c.Deliberation.TerminationMarker)
	}
	return agent.DefaultDescription(role)
}

// Load reads and validates nextpost.yml from the specified path.
// Fields missing from the file keep their defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	config := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// WriteDefault writes the default configuration to path. An existing file is only
// replaced when force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("failed to encode default config: %w", err)
	}

	header := "# nextpost configuration\n# Credentials are read from OPENAI_API_KEY; REDIS_URL and NEXTPOST_NAMESPACE override the values below.\n"
	if err := os.WriteFile(path, append([]byte(header), data...), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
