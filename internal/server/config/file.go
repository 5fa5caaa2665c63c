package config

import (
	"time"

	"github.com/dmitrijs2005/linkstash/internal/configfile"
	"github.com/dmitrijs2005/linkstash/internal/flagx"
	"github.com/dmitrijs2005/linkstash/internal/timex"
)

// FileConfig is the on-disk shape of the configuration. Durations accept
// both "90s" style strings and integer nanoseconds. Absent keys keep the
// value already in Config.
type FileConfig struct {
	EndpointAddrGRPC             string         `json:"endpoint_addr_grpc" yaml:"endpoint_addr_grpc"`
	DatabaseDSN                  string         `json:"database_dsn" yaml:"database_dsn"`
	DocumentBackend              string         `json:"document_backend" yaml:"document_backend"`
	IdentityBackend              string         `json:"identity_backend" yaml:"identity_backend"`
	SQLitePath                   string         `json:"sqlite_path" yaml:"sqlite_path"`
	RedisAddr                    string         `json:"redis_addr" yaml:"redis_addr"`
	SecretKey                    string         `json:"secret_key" yaml:"secret_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration" yaml:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration" yaml:"refresh_token_validity_duration"`
	RecentLoginWindow            timex.Duration `json:"recent_login_window" yaml:"recent_login_window"`
	ResetCodeValidity            timex.Duration `json:"reset_code_validity" yaml:"reset_code_validity"`
	ConnectAttempts              uint           `json:"connect_attempts" yaml:"connect_attempts"`
	OwnerEmail                   string         `json:"owner_email" yaml:"owner_email"`
	LogLevel                     string         `json:"log_level" yaml:"log_level"`
	LogFile                      string         `json:"log_file" yaml:"log_file"`
	S3RootUser                   string         `json:"s3_root_user" yaml:"s3_root_user"`
	S3RootPassword               string         `json:"s3_root_password" yaml:"s3_root_password"`
	S3Bucket                     string         `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region                     string         `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint               string         `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}

// apply copies the non-zero fields of f into config.
func (f *FileConfig) apply(config *Config) {
	setString(&config.EndpointAddrGRPC, f.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, f.DatabaseDSN)
	setString(&config.DocumentBackend, f.DocumentBackend)
	setString(&config.IdentityBackend, f.IdentityBackend)
	setString(&config.SQLitePath, f.SQLitePath)
	setString(&config.RedisAddr, f.RedisAddr)
	setString(&config.SecretKey, f.SecretKey)
	setDuration(&config.AccessTokenValidityDuration, f.AccessTokenValidityDuration)
	setDuration(&config.RefreshTokenValidityDuration, f.RefreshTokenValidityDuration)
	setDuration(&config.RecentLoginWindow, f.RecentLoginWindow)
	setDuration(&config.ResetCodeValidity, f.ResetCodeValidity)
	if f.ConnectAttempts != 0 {
		config.ConnectAttempts = f.ConnectAttempts
	}
	setString(&config.OwnerEmail, f.OwnerEmail)
	setString(&config.LogLevel, f.LogLevel)
	setString(&config.LogFile, f.LogFile)
	setString(&config.S3RootUser, f.S3RootUser)
	setString(&config.S3RootPassword, f.S3RootPassword)
	setString(&config.S3Bucket, f.S3Bucket)
	setString(&config.S3Region, f.S3Region)
	setString(&config.S3BaseEndpoint, f.S3BaseEndpoint)
}

// parseFile overlays the file named by -c/-config, if any. An unreadable or
// malformed file panics: the server must not start on a half-read config.
func parseFile(config *Config) {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return
	}

	f := &FileConfig{}
	if err := configfile.Decode(path, f); err != nil {
		panic(err)
	}
	f.apply(config)
}
