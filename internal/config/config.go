package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"github.com/bryanwahyu/automaton-recon/internal/domain/scans"
)

const appName = "automaton-recon"

type Config struct {
	Server struct {
		Port        int      `yaml:"port"`
		CORSOrigins []string `yaml:"corsOrigins"`
	} `yaml:"server"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`

	Database struct {
		Driver   string `yaml:"driver"` // memory | mysql | postgres | sqlite
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslMode"`
		Path     string `yaml:"path"`
	} `yaml:"database"`

	Minio struct {
		Enabled    bool   `yaml:"enabled"`
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	OpenAI struct {
		APIKey string `yaml:"apiKey"`
		Model  string `yaml:"model"`
		// Disabled turns analysis off entirely; without a key the
		// heuristic analyst is used instead.
		Disabled bool `yaml:"disabled"`
	} `yaml:"openai"`

	Scan struct {
		Timeout       time.Duration `yaml:"timeout"`
		WorkDir       string        `yaml:"workDir"`
		KeepArtifacts bool          `yaml:"keepArtifacts"`
		Tools         scans.Catalog `yaml:"tools"`
	} `yaml:"scan"`
}

// Default returns a config that runs without any external services.
func Default() *Config {
	var c Config
	c.Server.Port = 8000
	c.Server.CORSOrigins = []string{"http://localhost:3000"}
	c.Log.Level = "info"
	c.Log.Format = "json"
	c.Database.Driver = "memory"
	c.Database.Path = filepath.Join(xdg.DataHome, appName, "scans.db")
	c.OpenAI.Model = "gpt-4o-mini"
	c.Scan.Timeout = 60 * time.Second
	c.Scan.WorkDir = filepath.Join(xdg.CacheHome, appName, "artifacts")
	c.Scan.Tools = DefaultCatalog()
	return &c
}

// DefaultCatalog splits theHarvester by search source and amass by
// enumeration mode.
func DefaultCatalog() scans.Catalog {
	harvester := scans.ToolSpec{
		Name:           "theHarvester",
		Binary:         "theHarvester",
		Kind:           scans.PayloadCategories,
		ArtifactSuffix: ".json",
		ChunkTimeout:   45 * time.Second,
	}
	for _, src := range []string{"crtsh", "bing", "duckduckgo", "hackertarget", "otx", "rapiddns", "urlscan", "yahoo"} {
		harvester.Techniques = append(harvester.Techniques, scans.Technique{
			Name: src,
			Args: []string{"-d", scans.PlaceholderDomain, "-b", src, "-f", scans.PlaceholderOutput},
		})
	}

	amass := scans.ToolSpec{
		Name:         "amass",
		Binary:       "amass",
		Kind:         scans.PayloadNames,
		ChunkTimeout: 50 * time.Second,
	}
	for _, mode := range []string{"passive", "active", "brute"} {
		amass.Techniques = append(amass.Techniques, scans.Technique{
			Name: mode,
			Args: []string{"enum", "-" + mode, "-d", scans.PlaceholderDomain, "-json", scans.PlaceholderOutput},
		})
	}
	return scans.Catalog{harvester, amass}
}

// Load reads config.yaml. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" && cfg.OpenAI.APIKey == "" {
		cfg.OpenAI.APIKey = v
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values the service cannot start without.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "memory", "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("config: unknown database driver %q", c.Database.Driver)
	}
	if c.Scan.Timeout <= 0 {
		return fmt.Errorf("config: scan.timeout must be positive")
	}
	if c.Scan.WorkDir == "" {
		return fmt.Errorf("config: scan.workDir is required")
	}
	return c.Scan.Tools.Validate()
}

// MySQLDSN builds a go-sql-driver DSN with parseTime enabled.
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// PostgresDSN builds a lib/pq connection string.
func (c *Config) PostgresDSN() string {
	ssl := c.Database.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		ssl,
	)
}
