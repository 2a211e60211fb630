package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DefaultRPCURL        = "https://api.devnet.solana.com"
	DefaultMinterPDA     = "Dccf2hLZmCDsQypSTYab2E4rbDday4SEEYBV8KTiPMX"
	DefaultConfigAccount = "CLNJGG3sZ8cxuveemDw9D1tk18q3QCWLWAAwpXumPVY8"
)

// BaseConfig holds base configuration
type BaseConfig struct {
	Debug     bool   `mapstructure:"debug"`
	SentryDSN string `mapstructure:"sentry_dsn"`
}

// APIConfig holds backend REST configuration
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// SolanaConfig holds chain connection configuration
type SolanaConfig struct {
	RPCURL              string        `mapstructure:"rpc_url"`
	DASURL              string        `mapstructure:"das_url"` // Indexer endpoint; falls back to rpc_url
	Commitment          string        `mapstructure:"commitment"`
	ConfirmPollInterval time.Duration `mapstructure:"confirm_poll_interval"`
}

// RegistryConfig holds vintage registry program configuration
type RegistryConfig struct {
	ProgramID     string `mapstructure:"program_id"`
	ConfigAccount string `mapstructure:"config_account"`
	MinterPDA     string `mapstructure:"minter_pda"`
}

// WalletConfig holds the local wallet configuration
type WalletConfig struct {
	KeypairPath string `mapstructure:"keypair_path"`
}

// ServerConfig holds dashboard HTTP server configuration
type ServerConfig struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// EventsConfig holds event publishing configuration
type EventsConfig struct {
	RedisURL        string `mapstructure:"redis_url"` // Empty keeps events in process
	LogoutTopic     string `mapstructure:"logout_topic"`
	RedemptionTopic string `mapstructure:"redemption_topic"`
}

// NotificationsConfig holds auto-close delays of notifications
type NotificationsConfig struct {
	ValidationTTL time.Duration `mapstructure:"validation_ttl"`
	RegistryTTL   time.Duration `mapstructure:"registry_ttl"`
	SuccessTTL    time.Duration `mapstructure:"success_ttl"`
	FailureTTL    time.Duration `mapstructure:"failure_ttl"`
}

// Config holds the carbx configuration
type Config struct {
	BaseConfig    `mapstructure:",squash"`
	API           APIConfig           `mapstructure:"api"`
	Solana        SolanaConfig        `mapstructure:"solana"`
	Registry      RegistryConfig      `mapstructure:"registry"`
	Wallet        WalletConfig        `mapstructure:"wallet"`
	Server        ServerConfig        `mapstructure:"server"`
	Events        EventsConfig        `mapstructure:"events"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
}

// Load loads configuration from an optional YAML file, .env file and CARBX_* environment variables
func Load(configFile string, envPath string) (*Config, error) {
	v := configureViper(configFile, envPath)

	v.SetDefault("api.timeout", "30s")
	v.SetDefault("solana.rpc_url", DefaultRPCURL)
	v.SetDefault("solana.commitment", "confirmed")
	v.SetDefault("solana.confirm_poll_interval", "500ms")
	v.SetDefault("registry.config_account", DefaultConfigAccount)
	v.SetDefault("registry.minter_pda", DefaultMinterPDA)
	v.SetDefault("wallet.keypair_path", defaultKeypairPath())
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 9000)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173"})
	v.SetDefault("events.logout_topic", "carbx.logout")
	v.SetDefault("events.redemption_topic", "carbx.redemption")
	v.SetDefault("notifications.validation_ttl", "5s")
	v.SetDefault("notifications.registry_ttl", "7s")
	v.SetDefault("notifications.success_ttl", "6s")
	v.SetDefault("notifications.failure_ttl", "7s")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found, use environment variables
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Solana.DASURL == "" {
		cfg.Solana.DASURL = cfg.Solana.RPCURL
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks required fields
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return errors.New("api.base_url is required")
	}
	if c.Registry.ProgramID == "" {
		return errors.New("registry.program_id is required")
	}
	if c.Solana.RPCURL == "" {
		return errors.New("solana.rpc_url is required")
	}
	return nil
}

// configureViper returns a viper instance with the config file and environment variables set
func configureViper(configFile string, envPath string) *viper.Viper {
	v := viper.New()

	loadEnv(envPath)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("config/")
	}

	v.SetEnvPrefix("CARBX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindAllEnvVars(v)
	return v
}

// bindAllEnvVars binds every key so env vars map onto the struct without a config file
func bindAllEnvVars(v *viper.Viper) {
	keys := []string{
		"debug",
		"sentry_dsn",
		"api.base_url",
		"api.timeout",
		"solana.rpc_url",
		"solana.das_url",
		"solana.commitment",
		"solana.confirm_poll_interval",
		"registry.program_id",
		"registry.config_account",
		"registry.minter_pda",
		"wallet.keypair_path",
		"server.host",
		"server.port",
		"server.allowed_origins",
		"events.redis_url",
		"events.logout_topic",
		"events.redemption_topic",
		"notifications.validation_ttl",
		"notifications.registry_ttl",
		"notifications.success_ttl",
		"notifications.failure_ttl",
	}
	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

// loadEnv loads a .env file when present
func loadEnv(envPath string) {
	if envPath == "" {
		envPath = ".env"
	}
	if _, err := os.Stat(envPath); err == nil {
		_ = godotenv.Load(envPath)
	}
}

func defaultKeypairPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "id.json"
	}
	return filepath.Join(home, ".config", "solana", "id.json")
}
