package config

import "time"

// Config holds runtime settings for the LinkStash CLI.
//
// Fields:
//   - ServerEndpointAddr: host:port of the backend gRPC endpoint.
//   - RequestTimeout: deadline applied to every remote call; 0 disables it.
//   - LogLevel, LogFile: diagnostic log settings; an empty LogFile discards logs.
type Config struct {
	ServerEndpointAddr string
	RequestTimeout     time.Duration
	LogLevel           string
	LogFile            string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.RequestTimeout = 10 * time.Second
	c.LogLevel = "info"
	c.LogFile = "linkstash-cli.log"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// a config file (if given) and command-line flags (if present). Later sources
// take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseFile(cfg)
	parseFlags(cfg)
	return cfg
}
