package config

import (
	"github.com/dmitrijs2005/linkstash/internal/configfile"
	"github.com/dmitrijs2005/linkstash/internal/flagx"
	"github.com/dmitrijs2005/linkstash/internal/timex"
)

// FileConfig is a DTO used exclusively for decoding the config file.
// RequestTimeout accepts strings like "3s" or integer nanoseconds.
type FileConfig struct {
	ServerEndpointAddr string         `json:"server_endpoint_addr" yaml:"server_endpoint_addr"`
	RequestTimeout     timex.Duration `json:"request_timeout" yaml:"request_timeout"`
	LogLevel           string         `json:"log_level" yaml:"log_level"`
	LogFile            string         `json:"log_file" yaml:"log_file"`
}

// parseFile overlays Config with values from the file named by -c/-config.
// Keys missing from the file keep their current values. Read or decode
// errors panic.
func parseFile(cfg *Config) {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return
	}

	var fc FileConfig
	if err := configfile.Decode(path, &fc); err != nil {
		panic(err)
	}

	if fc.ServerEndpointAddr != "" {
		cfg.ServerEndpointAddr = fc.ServerEndpointAddr
	}
	if fc.RequestTimeout.Duration != 0 {
		cfg.RequestTimeout = fc.RequestTimeout.Duration
	}
	if fc.LogLevel != "" {
		cfg.LogLevel = fc.LogLevel
	}
	if fc.LogFile != "" {
		cfg.LogFile = fc.LogFile
	}
}
