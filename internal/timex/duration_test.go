package timex

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type holder struct {
	Window Duration `json:"window" yaml:"window"`
}

func TestDuration_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"string", `{"window":"5m"}`, 5 * time.Minute, false},
		{"nanoseconds", `{"window":1000000000}`, time.Second, false},
		{"bad string", `{"window":"soon"}`, 0, true},
		{"bool", `{"window":true}`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var h holder
			err := json.Unmarshal([]byte(tt.in), &h)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, h.Window.Duration)
		})
	}
}

func TestDuration_UnmarshalYAML(t *testing.T) {
	var h holder
	require.NoError(t, yaml.Unmarshal([]byte("window: 90s\n"), &h))
	assert.Equal(t, 90*time.Second, h.Window.Duration)

	require.NoError(t, yaml.Unmarshal([]byte("window: 2000\n"), &h))
	assert.Equal(t, 2*time.Microsecond, h.Window.Duration)
}

func TestDuration_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(Duration{3 * time.Second})
	require.NoError(t, err)
	assert.JSONEq(t, `"3s"`, string(b))
}
