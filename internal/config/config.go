// Package config loads service configuration from an INI file with
// environment-variable overrides for secrets.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/ini.v1"
)

// Config keys, kept verbatim so operators can grep for them.
const (
	KeyPollIntervalMillis = "poll.interval.millis"
	KeyPollMaxTries       = "poll.max.tries"
	KeyURLExpirationHours = "synapse.url.expiration.hours"
	KeyUserdataBucket     = "userdata.bucket"
)

// Config is the service configuration.
//
// INI format:
//
//	[synapse]
//	base_url = https://repo-prod.prod.sagebase.org
//	session_token = <token>
//	poll.interval.millis = 1000
//	poll.max.tries = 300
//
//	[udd]
//	synapse.url.expiration.hours = 24
//	userdata.bucket = org-sagebridge-userdata
//	worker.threads = 4
//
//	[storage]
//	provider = s3            ; s3 or azure
//	region = us-east-1
//	azure_account_name =
//	azure_service_url =
//
//	[proxy]
//	mode = no-proxy          ; no-proxy, system, basic, ntlm
//	host =
//	port =
//	user =
//	no_proxy =
//
// Secrets (session token, AWS keys, Azure account key, proxy password) can
// be supplied via environment instead of the file: BRIDGE_SYNAPSE_TOKEN,
// BRIDGE_AZURE_ACCOUNT_KEY, BRIDGE_PROXY_PASSWORD. AWS credentials resolve
// through the SDK's default chain.
type Config struct {
	Synapse SynapseConfig
	UDD     UDDConfig
	Storage StorageConfig
	Proxy   ProxyConfig
}

// SynapseConfig holds the remote table service connection and poll settings.
type SynapseConfig struct {
	BaseURL            string `ini:"base_url"`
	SessionToken       string `ini:"session_token"`
	PollIntervalMillis int    `ini:"poll.interval.millis"`
	PollMaxTries       int    `ini:"poll.max.tries"`
}

// UDDConfig holds the user-data-download settings.
type UDDConfig struct {
	URLExpirationHours int    `ini:"synapse.url.expiration.hours"`
	UserdataBucket     string `ini:"userdata.bucket"`
	WorkerThreads      int    `ini:"worker.threads"`
}

// StorageConfig selects and configures the object store backend.
type StorageConfig struct {
	Provider         string `ini:"provider"`
	Region           string `ini:"region"`
	AzureAccountName string `ini:"azure_account_name"`
	AzureAccountKey  string `ini:"azure_account_key"`
	AzureServiceURL  string `ini:"azure_service_url"`
}

// ProxyConfig configures outbound HTTP proxying.
type ProxyConfig struct {
	Mode     string `ini:"mode"`
	Host     string `ini:"host"`
	Port     string `ini:"port"`
	User     string `ini:"user"`
	Password string `ini:"password"`
	NoProxy  string `ini:"no_proxy"`
}

// DefaultPath returns the per-user config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "bridge-udd", "config")
}

// Load reads the config file at path, applies environment overrides, and
// validates. Defaults are seeded before the file is mapped, so a key the
// file sets explicitly always wins, including poll.interval.millis = 0
// (poll as fast as possible).
func Load(path string) (*Config, error) {
	file, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	cfg := defaultConfig()
	if err := file.Section("synapse").MapTo(&cfg.Synapse); err != nil {
		return nil, fmt.Errorf("bad [synapse] section: %w", err)
	}
	if err := file.Section("udd").MapTo(&cfg.UDD); err != nil {
		return nil, fmt.Errorf("bad [udd] section: %w", err)
	}
	if err := file.Section("storage").MapTo(&cfg.Storage); err != nil {
		return nil, fmt.Errorf("bad [storage] section: %w", err)
	}
	if err := file.Section("proxy").MapTo(&cfg.Proxy); err != nil {
		return nil, fmt.Errorf("bad [proxy] section: %w", err)
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("BRIDGE_SYNAPSE_TOKEN"); v != "" {
		c.Synapse.SessionToken = v
	}
	if v := os.Getenv("BRIDGE_AZURE_ACCOUNT_KEY"); v != "" {
		c.Storage.AzureAccountKey = v
	}
	if v := os.Getenv("BRIDGE_PROXY_PASSWORD"); v != "" {
		c.Proxy.Password = v
	}
}

// defaultConfig returns a Config with every optional key at its default.
// MapTo only touches fields whose keys appear in the file, so these survive
// for unset keys and are overwritten for set ones.
func defaultConfig() *Config {
	cfg := &Config{}
	cfg.Synapse.PollIntervalMillis = 1000
	cfg.Synapse.PollMaxTries = 300
	cfg.UDD.URLExpirationHours = 24
	cfg.UDD.WorkerThreads = 4
	cfg.Storage.Provider = "s3"
	cfg.Proxy.Mode = "no-proxy"
	return cfg
}

// Validate checks invariants that would otherwise surface as confusing
// runtime failures.
func (c *Config) Validate() error {
	if c.Synapse.BaseURL == "" {
		return fmt.Errorf("config: [synapse] base_url must be set")
	}
	if c.Synapse.PollIntervalMillis < 0 {
		return fmt.Errorf("config: [synapse] %s must be >= 0", KeyPollIntervalMillis)
	}
	if c.Synapse.PollMaxTries <= 0 {
		return fmt.Errorf("config: [synapse] %s must be > 0", KeyPollMaxTries)
	}
	if c.UDD.URLExpirationHours <= 0 {
		return fmt.Errorf("config: [udd] %s must be > 0", KeyURLExpirationHours)
	}
	if c.UDD.UserdataBucket == "" {
		return fmt.Errorf("config: [udd] %s must be set", KeyUserdataBucket)
	}
	switch c.Storage.Provider {
	case "s3", "azure":
	default:
		return fmt.Errorf("config: [storage] provider must be s3 or azure, got %q", c.Storage.Provider)
	}
	switch c.Proxy.Mode {
	case "no-proxy", "system", "basic", "ntlm":
	default:
		return fmt.Errorf("config: [proxy] mode must be one of no-proxy, system, basic, ntlm, got %q", c.Proxy.Mode)
	}
	return nil
}
