package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		configFile  string
		expectError bool
		validate    func(*testing.T, *Config)
	}{
		{
			name: "valid config file",
			configFile: `
debug: true
api:
  base_url: "https://api.carbx.test"
  timeout: 10s
solana:
  rpc_url: "https://mainnet.helius-rpc.com/?api-key=x"
  das_url: "https://das.helius-rpc.com"
registry:
  program_id: "Prog1111111111111111111111111111111111111111"
server:
  port: 8088
  allowed_origins: ["https://dashboard.carbx.test"]
events:
  redis_url: "redis://localhost:6379/0"
`,
			validate: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.Debug)
				assert.Equal(t, "https://api.carbx.test", cfg.API.BaseURL)
				assert.Equal(t, 10*time.Second, cfg.API.Timeout)
				assert.Equal(t, "https://das.helius-rpc.com", cfg.Solana.DASURL)
				assert.Equal(t, 8088, cfg.Server.Port)
				assert.Equal(t, []string{"https://dashboard.carbx.test"}, cfg.Server.AllowedOrigins)
				assert.Equal(t, "redis://localhost:6379/0", cfg.Events.RedisURL)
			},
		},
		{
			name: "config with defaults",
			configFile: `
api:
  base_url: "https://api.carbx.test"
registry:
  program_id: "Prog1111111111111111111111111111111111111111"
`,
			validate: func(t *testing.T, cfg *Config) {
				assert.False(t, cfg.Debug)
				assert.Equal(t, DefaultRPCURL, cfg.Solana.RPCURL)
				assert.Equal(t, DefaultRPCURL, cfg.Solana.DASURL)
				assert.Equal(t, "confirmed", cfg.Solana.Commitment)
				assert.Equal(t, 500*time.Millisecond, cfg.Solana.ConfirmPollInterval)
				assert.Equal(t, DefaultMinterPDA, cfg.Registry.MinterPDA)
				assert.Equal(t, DefaultConfigAccount, cfg.Registry.ConfigAccount)
				assert.Equal(t, 9000, cfg.Server.Port)
				assert.Equal(t, "carbx.logout", cfg.Events.LogoutTopic)
				assert.Equal(t, 5*time.Second, cfg.Notifications.ValidationTTL)
				assert.Equal(t, 7*time.Second, cfg.Notifications.RegistryTTL)
				assert.Equal(t, 6*time.Second, cfg.Notifications.SuccessTTL)
				assert.Equal(t, 7*time.Second, cfg.Notifications.FailureTTL)
			},
		},
		{
			name: "missing base url",
			configFile: `
registry:
  program_id: "Prog1111111111111111111111111111111111111111"
`,
			expectError: true,
		},
		{
			name: "missing program id",
			configFile: `
api:
  base_url: "https://api.carbx.test"
`,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.configFile), 0o600))

			cfg, err := Load(path, filepath.Join(dir, "missing.env"))
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.validate(t, cfg)
		})
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("CARBX_API_BASE_URL", "https://env.carbx.test")
	t.Setenv("CARBX_REGISTRY_PROGRAM_ID", "EnvProg111111111111111111111111111111111111")
	t.Setenv("CARBX_SERVER_PORT", "9100")

	dir := t.TempDir()
	cfg, err := Load("", filepath.Join(dir, "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "https://env.carbx.test", cfg.API.BaseURL)
	assert.Equal(t, "EnvProg111111111111111111111111111111111111", cfg.Registry.ProgramID)
	assert.Equal(t, 9100, cfg.Server.Port)
}
