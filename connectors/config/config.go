package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"cost-dashboard/domain/catalog"

	"gopkg.in/yaml.v3"
)

const (
	DefaultPath    = "./config.yml"
	DefaultAddr    = ":3001"
	DefaultDataDir = "./data"
	DefaultUIDir   = "./ui/dist"
	DefaultRegion  = "us-east-1"
)

// Config represents the structure of config.yml used by the tool.
// Credential fields may reference environment variables as ${NAME}.
type Config struct {
	Server      Server                         `yaml:"server"`
	AWS         AWS                            `yaml:"aws"`
	OpenAI      APIKey                         `yaml:"openai"`
	Vercel      Vercel                         `yaml:"vercel"`
	Cursor      APIKey                         `yaml:"cursor"`
	Anthropic   APIKey                         `yaml:"anthropic"`
	Cohere      APIKey                         `yaml:"cohere"`
	Gemini      APIKey                         `yaml:"gemini"`
	Azure       Azure                          `yaml:"azure"`
	GCP         GCP                            `yaml:"gcp"`
	Attribution map[string]catalog.Attribution `yaml:"attribution"`
	Import      Import                         `yaml:"import"`
}

type Server struct {
	Addr      string        `yaml:"addr"`
	DataDir   string        `yaml:"data_dir"`
	UIDir     string        `yaml:"ui_dir"`
	CacheTTL  time.Duration `yaml:"cache_ttl"`
	RateLimit RateLimit     `yaml:"rate_limit"`
}

// RateLimit is a per client IP token bucket. RPS <= 0 disables limiting.
type RateLimit struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type AWS struct {
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Region          string `yaml:"region"`
}

func (a AWS) Configured() bool { return a.AccessKeyID != "" && a.SecretAccessKey != "" }

// APIKey configures a bearer-token vendor. BaseURL overrides the public endpoint.
type APIKey struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

func (a APIKey) Configured() bool { return a.APIKey != "" }

type Vercel struct {
	Token   string `yaml:"token"`
	TeamID  string `yaml:"team_id"`
	BaseURL string `yaml:"base_url"`
}

func (v Vercel) Configured() bool { return v.Token != "" }

type Azure struct {
	SubscriptionIDs []string `yaml:"subscription_ids"`
	TenantID        string   `yaml:"tenant_id"`
	ClientID        string   `yaml:"client_id"`
	ClientSecret    string   `yaml:"client_secret"`
}

func (a Azure) Configured() bool {
	return len(a.SubscriptionIDs) > 0 && a.TenantID != "" && a.ClientID != "" && a.ClientSecret != ""
}

type GCP struct {
	ProjectID          string `yaml:"project_id"`
	BillingAccount     string `yaml:"billing_account"`
	Dataset            string `yaml:"dataset"`
	Location           string `yaml:"location"`
	ServiceAccountJSON string `yaml:"service_account_json"`
}

func (g GCP) Configured() bool { return g.ProjectID != "" && g.BillingAccount != "" }

type Import struct {
	Days int `yaml:"days"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: Server{
			Addr:      DefaultAddr,
			DataDir:   DefaultDataDir,
			UIDir:     DefaultUIDir,
			CacheTTL:  5 * time.Minute,
			RateLimit: RateLimit{RPS: 10, Burst: 20},
		},
		AWS:    AWS{Region: DefaultRegion},
		GCP:    GCP{Dataset: "billing_export"},
		Import: Import{Days: 30},
	}
}

// Path resolves the config file location from CONFIG_PATH.
func Path() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return DefaultPath
}

// Load parses the YAML configuration file at path on top of the defaults.
// A missing file is not an error. PORT, when set, overrides server.addr.
func Load(path string) (*Config, error) {
	c := Default()
	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		slog.Info("config.load.skip", "path", path, "reason", "file not found")
	case err != nil:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
		slog.Info("config.load.done", "path", path)
	}
	c.expand()
	if port := os.Getenv("PORT"); port != "" {
		c.Server.Addr = ":" + strings.TrimPrefix(port, ":")
	}
	if c.AWS.Region == "" {
		c.AWS.Region = DefaultRegion
	}
	return c, nil
}

func (c *Config) expand() {
	for _, s := range []*string{
		&c.AWS.AccessKeyID, &c.AWS.SecretAccessKey,
		&c.OpenAI.APIKey, &c.Vercel.Token, &c.Vercel.TeamID, &c.Cursor.APIKey,
		&c.Anthropic.APIKey, &c.Cohere.APIKey, &c.Gemini.APIKey,
		&c.Azure.TenantID, &c.Azure.ClientID, &c.Azure.ClientSecret,
		&c.GCP.ServiceAccountJSON,
	} {
		*s = os.ExpandEnv(*s)
	}
	for i, id := range c.Azure.SubscriptionIDs {
		c.Azure.SubscriptionIDs[i] = os.ExpandEnv(id)
	}
}
