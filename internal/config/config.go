package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config defines server configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Transport  TransportConfig  `yaml:"transport"`
	Auth       AuthConfig       `yaml:"auth"`
	DB         DBConfig         `yaml:"db"`
	Log        LogConfig        `yaml:"log"`
	Chain      ChainConfig      `yaml:"chain"`
	Cache      CacheConfig      `yaml:"cache"`
	Submission SubmissionConfig `yaml:"submission"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// RateLimit is requests per second per server; zero disables limiting.
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`
}

type TransportConfig struct {
	Mode string `yaml:"mode"`
}

type AuthConfig struct {
	Enabled bool `yaml:"enabled"`
	// Tokens maps bearer tokens to investor addresses.
	Tokens map[string]string `yaml:"tokens"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	// Path sends logs to a size-capped file instead of stdout or stderr.
	Path      string `yaml:"path"`
	MaxSizeMB int    `yaml:"max_size_mb"`
}

// ChainConfig locates the cap-table contract. An empty RPCURL selects
// the in-memory simulated contract.
type ChainConfig struct {
	RPCURL          string        `yaml:"rpc_url"`
	ContractAddress string        `yaml:"contract_address"`
	PrivateKey      string        `yaml:"private_key"`
	ChainID         int64         `yaml:"chain_id"`
	Confirmations   uint64        `yaml:"confirmations"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	CompanyIDs      []uint64      `yaml:"company_ids"`
	InvestmentIDs   []uint64      `yaml:"investment_ids"`
}

type CacheConfig struct {
	ReputationTTL time.Duration `yaml:"reputation_ttl"`
}

type SubmissionConfig struct {
	ConfirmTimeout time.Duration `yaml:"confirm_timeout"`
	PollRate       time.Duration `yaml:"poll_rate"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:      "0.0.0.0",
			Port:      8080,
			RateBurst: 20,
		},
		Transport: TransportConfig{
			Mode: "http",
		},
		DB: DBConfig{
			Path: "capvault.db",
		},
		Log: LogConfig{
			Level:     "info",
			Format:    "text",
			MaxSizeMB: 6,
		},
		Chain: ChainConfig{
			Confirmations: 1,
			PollInterval:  2 * time.Second,
			CompanyIDs:    []uint64{1, 2},
			InvestmentIDs: []uint64{1},
		},
		Cache: CacheConfig{
			ReputationTTL: time.Minute,
		},
		Submission: SubmissionConfig{
			ConfirmTimeout: 10 * time.Minute,
			PollRate:       2 * time.Second,
		},
	}
}

// Load reads configuration from defaults, an optional .env file, an
// optional YAML file and environment variables, in that order.
func Load() (Config, error) {
	cfg := Default()

	// variables already set in the environment win over .env
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("read .env: %w", err)
	}

	if path := os.Getenv("CAPVAULT_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that cannot be defaulted.
func (c Config) Validate() error {
	switch c.Transport.Mode {
	case "http", "stdio":
	default:
		return fmt.Errorf("invalid transport mode %q: want http or stdio", c.Transport.Mode)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Chain.RPCURL != "" && c.Chain.ContractAddress == "" {
		return errors.New("chain.contract_address is required with chain.rpc_url")
	}
	if c.Auth.Enabled && len(c.Auth.Tokens) == 0 {
		return errors.New("auth is enabled but no tokens are configured")
	}
	return nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	str("CAPVAULT_SERVER_HOST", &cfg.Server.Host)
	str("CAPVAULT_TRANSPORT_MODE", &cfg.Transport.Mode)
	str("CAPVAULT_DB_PATH", &cfg.DB.Path)
	str("CAPVAULT_LOG_LEVEL", &cfg.Log.Level)
	str("CAPVAULT_LOG_FORMAT", &cfg.Log.Format)
	str("CAPVAULT_LOG_PATH", &cfg.Log.Path)
	str("CAPVAULT_CHAIN_RPC_URL", &cfg.Chain.RPCURL)
	str("CAPVAULT_CHAIN_CONTRACT_ADDRESS", &cfg.Chain.ContractAddress)
	str("CAPVAULT_CHAIN_PRIVATE_KEY", &cfg.Chain.PrivateKey)

	if v := os.Getenv("CAPVAULT_SERVER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid CAPVAULT_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv("CAPVAULT_LOG_MAX_SIZE_MB"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid CAPVAULT_LOG_MAX_SIZE_MB: %w", err)
		}
		cfg.Log.MaxSizeMB = size
	}
	if v := os.Getenv("CAPVAULT_SERVER_RATE_LIMIT"); v != "" {
		limit, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid CAPVAULT_SERVER_RATE_LIMIT: %w", err)
		}
		cfg.Server.RateLimit = limit
	}
	if v := os.Getenv("CAPVAULT_AUTH_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid CAPVAULT_AUTH_ENABLED: %w", err)
		}
		cfg.Auth.Enabled = enabled
	}
	if v := os.Getenv("CAPVAULT_AUTH_TOKENS"); v != "" {
		tokens, err := parseTokens(v)
		if err != nil {
			return fmt.Errorf("invalid CAPVAULT_AUTH_TOKENS: %w", err)
		}
		cfg.Auth.Tokens = tokens
	}
	if v := os.Getenv("CAPVAULT_CHAIN_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid CAPVAULT_CHAIN_ID: %w", err)
		}
		cfg.Chain.ChainID = id
	}
	if v := os.Getenv("CAPVAULT_CHAIN_COMPANY_IDS"); v != "" {
		ids, err := parseIDs(v)
		if err != nil {
			return fmt.Errorf("invalid CAPVAULT_CHAIN_COMPANY_IDS: %w", err)
		}
		cfg.Chain.CompanyIDs = ids
	}
	if v := os.Getenv("CAPVAULT_CHAIN_INVESTMENT_IDS"); v != "" {
		ids, err := parseIDs(v)
		if err != nil {
			return fmt.Errorf("invalid CAPVAULT_CHAIN_INVESTMENT_IDS: %w", err)
		}
		cfg.Chain.InvestmentIDs = ids
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"CAPVAULT_CHAIN_POLL_INTERVAL", &cfg.Chain.PollInterval},
		{"CAPVAULT_CACHE_REPUTATION_TTL", &cfg.Cache.ReputationTTL},
		{"CAPVAULT_SUBMISSION_CONFIRM_TIMEOUT", &cfg.Submission.ConfirmTimeout},
		{"CAPVAULT_SUBMISSION_POLL_RATE", &cfg.Submission.PollRate},
	}
	for _, d := range durations {
		v := os.Getenv(d.key)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.dst = parsed
	}
	return nil
}

// parseTokens reads "token=address" pairs separated by commas.
func parseTokens(v string) (map[string]string, error) {
	tokens := map[string]string{}
	for _, pair := range strings.Split(v, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		token, addr, ok := strings.Cut(pair, "=")
		if !ok || token == "" || addr == "" {
			return nil, fmt.Errorf("pair %q is not token=address", pair)
		}
		tokens[strings.TrimSpace(token)] = strings.TrimSpace(addr)
	}
	return tokens, nil
}

func parseIDs(v string) ([]uint64, error) {
	var ids []uint64
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
