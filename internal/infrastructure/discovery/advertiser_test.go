package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/automentor/backend/internal/infrastructure/config"
)

func TestParsePort(t *testing.T) {
	tests := []struct {
		name    string
		addr    string
		want    int
		wantErr bool
	}{
		{name: "仅端口", addr: ":8000", want: 8000},
		{name: "带主机", addr: "0.0.0.0:9100", want: 9100},
		{name: "非数字", addr: ":abc", wantErr: true},
		{name: "空地址", addr: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsePort(tt.addr)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInstanceName(t *testing.T) {
	name := instanceName()
	assert.NotEmpty(t, name)
	assert.Contains(t, name, "automentor")
}

func TestAdvertiser_StopWithoutStart(t *testing.T) {
	a := NewAdvertiser(&config.Config{})

	assert.False(t, a.IsRunning())
	assert.NoError(t, a.Stop())
}

func TestAdvertiser_StartWithBadPort(t *testing.T) {
	cfg := &config.Config{}
	cfg.Server.HTTPPort = ":not-a-port"

	a := NewAdvertiser(cfg)
	err := a.Start()
	assert.Error(t, err)
	assert.False(t, a.IsRunning())
}

func TestAdvertiser_StartStop(t *testing.T) {
	t.Skip("需要多播网络环境，已在手动测试中验证")
}
