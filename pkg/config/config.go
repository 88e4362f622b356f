// Package config loads the map configuration: built-in defaults that
// match the Docker environment, optionally overridden by a YAML file and
// a small set of environment variables.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the full configuration for both the data server and the map
// server. Section names follow the deployment's service names.
type Config struct {
	UI     UIConfig     `yaml:"ui"`
	Search SearchConfig `yaml:"opensearch"`
	Broker BrokerConfig `yaml:"valkey"`
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"logging"`
}

// UIConfig controls presentation concerns.
type UIConfig struct {
	Title string `yaml:"title"`
	// TextOutput mirrors each published alert to the console.
	TextOutput bool `yaml:"text_output"`
}

// SearchConfig points at the search backend holding the honeypot index.
type SearchConfig struct {
	URL         string `yaml:"url"`
	Index       string `yaml:"index"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	VerifyCerts bool   `yaml:"verify_certs"`
}

// BrokerConfig points at the pub/sub broker.
type BrokerConfig struct {
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	Channel string `yaml:"channel"`
}

// Addr returns the broker address as host:port.
func (b BrokerConfig) Addr() string {
	return net.JoinHostPort(b.Host, strconv.Itoa(b.Port))
}

// ServerConfig holds the client-facing web server settings.
type ServerConfig struct {
	WebPort   int    `yaml:"web_port"`
	StaticDir string `yaml:"static_dir"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Defaults returns the built-in configuration, matching the Docker
// environment so deployments need no config file.
func Defaults() *Config {
	return &Config{
		UI: UIConfig{
			Title:      "Attack Map",
			TextOutput: true,
		},
		Search: SearchConfig{
			URL:         "http://elasticsearch:9200",
			Index:       "logstash-*",
			VerifyCerts: true,
		},
		Broker: BrokerConfig{
			Host:    "map_redis",
			Port:    6379,
			Channel: "attack-map-production",
		},
		Server: ServerConfig{
			WebPort:   64299,
			StaticDir: "static",
		},
		Log: LogConfig{
			Level: "INFO",
		},
	}
}

// Load returns the defaults merged with the YAML file at path, if it
// exists, then applies environment overrides. A missing file is not an
// error; a malformed one is.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config file %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv applies environment overrides. GEOIP_ATTACKMAP_TEXT predates
// the config file and keeps precedence over it for compatibility with
// existing deployments.
func (c *Config) applyEnv() {
	if text := os.Getenv("GEOIP_ATTACKMAP_TEXT"); text != "" {
		c.UI.TextOutput = text == "ENABLED" || text == "enabled"
	}
}
