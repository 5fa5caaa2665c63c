package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func withArgs(t *testing.T, args ...string) {
	t.Helper()
	orig := os.Args
	t.Cleanup(func() { os.Args = orig })
	os.Args = append([]string{"linkstash"}, args...)
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	defaults := Config{
		ServerEndpointAddr: "127.0.0.1:50051",
		RequestTimeout:     10 * time.Second,
		LogLevel:           "info",
		LogFile:            "linkstash-cli.log",
	}

	yamlFile := writeFile(t, "cli.yaml", "server_endpoint_addr: stash.example.com:443\nrequest_timeout: 2m\nlog_file: \"\"\n")
	jsonFile := writeFile(t, "cli.json", `{"log_level":"debug","request_timeout":1500000000}`)

	tests := []struct {
		name string
		args []string
		want func(c *Config)
	}{
		{name: "defaults", want: func(*Config) {}},
		{
			name: "flags",
			args: []string{"-a", "10.0.0.1:9090", "-T", "3", "-L", "debug", "-l", "cli.log"},
			want: func(c *Config) {
				c.ServerEndpointAddr = "10.0.0.1:9090"
				c.RequestTimeout = 3 * time.Second
				c.LogLevel = "debug"
				c.LogFile = "cli.log"
			},
		},
		{
			name: "yaml file keeps unset keys",
			args: []string{"-c", yamlFile},
			want: func(c *Config) {
				c.ServerEndpointAddr = "stash.example.com:443"
				c.RequestTimeout = 2 * time.Minute
			},
		},
		{
			name: "json file with nanoseconds",
			args: []string{"-config=" + jsonFile},
			want: func(c *Config) {
				c.LogLevel = "debug"
				c.RequestTimeout = 1500 * time.Millisecond
			},
		},
		{
			name: "flags win over file",
			args: []string{"-c", yamlFile, "-a", "localhost:1"},
			want: func(c *Config) {
				c.ServerEndpointAddr = "localhost:1"
				c.RequestTimeout = 2 * time.Minute
			},
		},
		{
			name: "unknown flags are ignored",
			args: []string{"-x", "-d", "postgres://", "-a", "h:1"},
			want: func(c *Config) { c.ServerEndpointAddr = "h:1" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withArgs(t, tt.args...)

			want := defaults
			tt.want(&want)

			got := LoadConfig()
			require.NotNil(t, got)
			if diff := cmp.Diff(want, *got); diff != "" {
				t.Errorf("LoadConfig() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadConfig_Panics(t *testing.T) {
	broken := writeFile(t, "broken.json", `{"request_timeout": "soon"}`)

	for name, args := range map[string][]string{
		"bad timeout":  {"-T", "abc"},
		"missing file": {"-c", filepath.Join(t.TempDir(), "nope.yaml")},
		"bad file":     {"-c", broken},
	} {
		t.Run(name, func(t *testing.T) {
			withArgs(t, args...)
			require.Panics(t, func() { LoadConfig() })
		})
	}
}
