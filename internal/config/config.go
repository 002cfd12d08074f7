package config

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/rosilesmarcos01/bbms-sub000/internal/core"
	"github.com/rosilesmarcos01/bbms-sub000/internal/validation"
)

const (
	DefaultAddr          = ":8080"
	DefaultOperationTTL  = 5 * time.Minute
	DefaultSweepInterval = 30 * time.Second

	DefaultConsumedRetention = 10 * time.Minute
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Provider   ProviderConfig   `yaml:"provider"`
	Registry   RegistryConfig   `yaml:"registry"`
	Tokens     TokenConfig      `yaml:"tokens"`
	Policy     core.Policy      `yaml:"policy"`
	Identities IdentitiesConfig `yaml:"identities"`
	Audit      AuditConfig      `yaml:"audit"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// ProviderConfig holds configuration for the biometric identity provider.
// Adapter specific fields are decoded by the provider itself.
type ProviderConfig struct {
	Name   string         `yaml:"name"`
	Type   string         `yaml:"type"`    // e.g., "biometric", "stub"
	Config map[string]any `yaml:",inline"` // Capture remaining fields
}

// RegistryConfig configures where in-flight operations are tracked.
type RegistryConfig struct {
	Type string `yaml:"type"` // "memory" or "redis"

	// OperationTTL is how long a client has to complete the capture.
	OperationTTL time.Duration `yaml:"operation_ttl"`

	// SweepInterval is how often expired operations are evicted.
	SweepInterval time.Duration `yaml:"sweep_interval"`

	// ConsumedRetention is how long a consumed operation keeps answering "consumed".
	// Once it lapses a poll for the operation answers "not_found". It must be at least
	// OperationTTL, defaults to the larger of DefaultConsumedRetention and OperationTTL.
	ConsumedRetention time.Duration `yaml:"consumed_retention"`

	Redis RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// TokenConfig configures the session tokens. The signing key is not part of the file.
type TokenConfig struct {
	Issuer     string        `yaml:"issuer"`
	Audience   string        `yaml:"audience"`
	AccessTTL  time.Duration `yaml:"access_ttl"`
	RefreshTTL time.Duration `yaml:"refresh_ttl"`
}

// IdentitiesConfig selects the identity directory.
type IdentitiesConfig struct {
	Type string `yaml:"type"` // "static" or "postgres"

	// DSN is the postgres connection string.
	DSN string `yaml:"dsn"`

	// Migrate creates the identities table on startup.
	Migrate bool `yaml:"migrate"`

	Static []core.Identity `yaml:"static"`
}

// AuditConfig holds configuration for auditing.
type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	Type    string `yaml:"type"` // e.g., "file", "memory"
}

// Load reads and parses the configuration file at the given path.
// It returns a Config struct or an error if loading/parsing/validation fails.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse parses and validates configuration from YAML bytes.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config file: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration and fills in defaults.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}

	switch c.Provider.Type {
	case "":
		return fmt.Errorf("provider.type is required")
	case "biometric", "stub":
	default:
		return fmt.Errorf("unknown provider type '%s'", c.Provider.Type)
	}
	if c.Provider.Name == "" {
		c.Provider.Name = c.Provider.Type
	}

	if err := c.Registry.validate(); err != nil {
		return fmt.Errorf("validating registry: %w", err)
	}

	if c.Tokens.AccessTTL < 0 || c.Tokens.RefreshTTL < 0 {
		return fmt.Errorf("token lifetimes must not be negative")
	}
	if c.Tokens.AccessTTL > 0 && c.Tokens.RefreshTTL > 0 && c.Tokens.RefreshTTL <= c.Tokens.AccessTTL {
		return fmt.Errorf("tokens.refresh_ttl must be longer than tokens.access_ttl")
	}

	policy, err := validation.ValidatePolicy(c.Policy)
	if err != nil {
		return fmt.Errorf("validating policy: %w", err)
	}
	c.Policy = policy

	if err := c.Identities.validate(); err != nil {
		return fmt.Errorf("validating identities: %w", err)
	}

	if c.Audit.Enabled {
		switch c.Audit.Type {
		case "", "file":
			c.Audit.Type = "file"
			if c.Audit.Path == "" {
				return fmt.Errorf("audit.path is required for file auditing")
			}
		case "memory":
		default:
			return fmt.Errorf("unknown audit type '%s'", c.Audit.Type)
		}
	}

	return nil
}

func (r *RegistryConfig) validate() error {
	switch r.Type {
	case "":
		r.Type = "memory"
	case "memory":
	case "redis":
		if r.Redis.Addr == "" {
			return fmt.Errorf("redis.addr is required for the redis registry")
		}
	default:
		return fmt.Errorf("unknown registry type '%s'", r.Type)
	}
	if r.OperationTTL == 0 {
		r.OperationTTL = DefaultOperationTTL
	}
	if r.OperationTTL < 0 {
		return fmt.Errorf("operation_ttl must be positive")
	}
	if r.SweepInterval == 0 {
		r.SweepInterval = DefaultSweepInterval
	}
	if r.SweepInterval < 0 {
		return fmt.Errorf("sweep_interval must be positive")
	}
	if r.ConsumedRetention == 0 {
		r.ConsumedRetention = max(DefaultConsumedRetention, r.OperationTTL)
	}
	if r.ConsumedRetention < r.OperationTTL {
		return fmt.Errorf("consumed_retention (%s) must be at least operation_ttl (%s)", r.ConsumedRetention, r.OperationTTL)
	}
	return nil
}

func (i *IdentitiesConfig) validate() error {
	switch i.Type {
	case "", "static":
		i.Type = "static"
		seen := make(map[string]struct{}, len(i.Static))
		for idx, id := range i.Static {
			if id.Ref == "" {
				return fmt.Errorf("identity at index %d has empty ref", idx)
			}
			if _, ok := seen[id.Ref]; ok {
				return fmt.Errorf("identity ref '%s' is not unique", id.Ref)
			}
			seen[id.Ref] = struct{}{}
		}
	case "postgres":
		if i.DSN == "" {
			return fmt.Errorf("dsn is required for postgres identities")
		}
	default:
		return fmt.Errorf("unknown identities type '%s'", i.Type)
	}
	return nil
}
