package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port         int           `yaml:"port"`
		ReadTimeout  time.Duration `yaml:"readTimeout"`
		WriteTimeout time.Duration `yaml:"writeTimeout"`
		CORSOrigins  []string      `yaml:"corsOrigins"`
		RateLimit    struct {
			PerSecond float64 `yaml:"perSecond"`
			Burst     int     `yaml:"burst"`
		} `yaml:"rateLimit"`
	} `yaml:"server"`

	Database struct {
		Driver      string `yaml:"driver"`
		Host        string `yaml:"host"`
		Port        int    `yaml:"port"`
		User        string `yaml:"user"`
		Password    string `yaml:"password"`
		Name        string `yaml:"name"`
		SSLMode     string `yaml:"sslMode"`
		AutoMigrate bool   `yaml:"autoMigrate"`
	} `yaml:"database"`

	AI struct {
		Provider string        `yaml:"provider"`
		Model    string        `yaml:"model"`
		APIKey   string        `yaml:"apiKey"`
		Timeout  time.Duration `yaml:"timeout"`
	} `yaml:"ai"`

	Mirror struct {
		Driver  string        `yaml:"driver"`
		Timeout time.Duration `yaml:"timeout"`
		Mongo   struct {
			URI      string `yaml:"uri"`
			Database string `yaml:"database"`
		} `yaml:"mongo"`
		Minio struct {
			Endpoint   string `yaml:"endpoint"`
			AccessKey  string `yaml:"accessKey"`
			SecretKey  string `yaml:"secretKey"`
			BucketName string `yaml:"bucketName"`
			Region     string `yaml:"region"`
			UseSSL     bool   `yaml:"useSSL"`
		} `yaml:"minio"`
	} `yaml:"mirror"`

	Auth struct {
		Users []User `yaml:"users"`
	} `yaml:"auth"`

	Log struct {
		Mode string `yaml:"mode"`
	} `yaml:"log"`
}

// User maps one API key to the owner it authenticates.
type User struct {
	APIKey      string `yaml:"apiKey"`
	ID          string `yaml:"id"`
	Email       string `yaml:"email"`
	DisplayName string `yaml:"displayName"`
}

// Load reads the YAML file, applies env overrides and defaults, then validates.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv lets secrets stay out of the file.
func (c *Config) applyEnv() {
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("MONGO_URI"); v != "" {
		c.Mirror.Mongo.URI = v
	}
	if c.AI.APIKey == "" {
		switch strings.ToLower(c.AI.Provider) {
		case "openai":
			c.AI.APIKey = os.Getenv("OPENAI_API_KEY")
		case "anthropic":
			c.AI.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		case "", "gemini":
			c.AI.APIKey = os.Getenv("GEMINI_API_KEY")
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	// generation can take a while; leave room above ai.timeout
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 120 * time.Second
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"*"}
	}
	if c.Server.RateLimit.PerSecond == 0 {
		c.Server.RateLimit.PerSecond = 1
	}
	if c.Server.RateLimit.Burst == 0 {
		c.Server.RateLimit.Burst = 10
	}

	c.Database.Driver = strings.ToLower(c.Database.Driver)
	if c.Database.Driver == "" {
		c.Database.Driver = "mysql"
	}
	if c.Database.Host == "" {
		c.Database.Host = "localhost"
	}
	if c.Database.Port == 0 {
		if c.Database.Driver == "postgres" {
			c.Database.Port = 5432
		} else {
			c.Database.Port = 3306
		}
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}

	c.AI.Provider = strings.ToLower(c.AI.Provider)
	if c.AI.Provider == "" {
		c.AI.Provider = "gemini"
	}
	if c.AI.Timeout == 0 {
		c.AI.Timeout = 90 * time.Second
	}

	c.Mirror.Driver = strings.ToLower(c.Mirror.Driver)
	if c.Mirror.Driver == "" {
		c.Mirror.Driver = "none"
	}
	if c.Mirror.Timeout == 0 {
		c.Mirror.Timeout = 5 * time.Second
	}
	if c.Mirror.Mongo.Database == "" {
		c.Mirror.Mongo.Database = "vc_analyst"
	}
	if c.Mirror.Minio.Region == "" {
		c.Mirror.Minio.Region = "us-east-1"
	}

	if c.Log.Mode == "" {
		c.Log.Mode = "production"
	}
}

// Validate rejects unknown drivers and incomplete credentials.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "mysql", "postgres":
	default:
		return fmt.Errorf("config: unknown database driver %q", c.Database.Driver)
	}
	switch c.AI.Provider {
	case "openai", "gemini", "anthropic":
	default:
		return fmt.Errorf("config: unknown ai provider %q", c.AI.Provider)
	}
	switch c.Mirror.Driver {
	case "mongo", "minio", "none":
	default:
		return fmt.Errorf("config: unknown mirror driver %q", c.Mirror.Driver)
	}
	if c.Mirror.Timeout >= c.AI.Timeout {
		return fmt.Errorf("config: mirror.timeout (%s) must be shorter than ai.timeout (%s)", c.Mirror.Timeout, c.AI.Timeout)
	}

	seen := make(map[string]bool, len(c.Auth.Users))
	for i, u := range c.Auth.Users {
		if u.APIKey == "" || u.ID == "" {
			return fmt.Errorf("config: auth.users[%d] needs apiKey and id", i)
		}
		if seen[u.APIKey] {
			return fmt.Errorf("config: auth.users[%d] reuses an apiKey", i)
		}
		seen[u.APIKey] = true
	}
	return nil
}

// MySQLDSN builds the go-sql-driver DSN. parseTime is required for created_at.
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

func (c *Config) PostgresDSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Database.User, c.Database.Password),
		Host:     fmt.Sprintf("%s:%d", c.Database.Host, c.Database.Port),
		Path:     "/" + c.Database.Name,
		RawQuery: url.Values{"sslmode": {c.Database.SSLMode}}.Encode(),
	}
	return u.String()
}
