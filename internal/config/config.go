package config

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vestake/vestake/pkg/types"
	"gopkg.in/yaml.v3"
)

// PasswordEnvVar unlocks the wallet non-interactively when set
const PasswordEnvVar = "VESTAKE_WALLET_PASSWORD"

// Config represents the complete client configuration
type Config struct {
	Chain     ChainConfig     `yaml:"chain"`
	Contracts ContractsConfig `yaml:"contracts"`
	Staking   StakingConfig   `yaml:"staking"`
	Wallet    WalletConfig    `yaml:"wallet"`
	Events    EventsConfig    `yaml:"events"`
	Log       LogConfig       `yaml:"log"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ChainConfig contains RPC and transaction settings
type ChainConfig struct {
	RPCURL             string  `yaml:"rpc_url"`
	WSEndpoint         string  `yaml:"ws_endpoint"`         // optional, unused for polling
	ChainID            int64   `yaml:"chain_id"`            // verified on connect
	BlockConfirmations int     `yaml:"block_confirmations"` // extra blocks to wait after mining (0 = mined is enough)
	MaxGasPriceGwei    int64   `yaml:"max_gas_price_gwei"`  // 0 = uncapped
	RPCRateLimit       float64 `yaml:"rpc_rate_limit"`      // read calls per second (0 = unlimited)
	RPCDialRetries     int     `yaml:"rpc_dial_retries"`
	Mock               bool    `yaml:"mock"` // in-memory contracts, no RPC
}

// ContractsConfig holds deployed contract addresses
type ContractsConfig struct {
	TokenAddress   string `yaml:"token_address"`   // mintable test ERC-20
	StakingAddress string `yaml:"staking_address"` // lock/staking contract
}

// StakingConfig holds the deployment-specific constants of the staking flows
type StakingConfig struct {
	DurationUnit     types.DurationUnit `yaml:"duration_unit"`      // unit the contract expects for stake duration
	DefaultDuration  string             `yaml:"default_duration"`   // pre-filled duration input
	WithdrawGasLimit uint64             `yaml:"withdraw_gas_limit"` // 0 = estimate
	ToggleGasLimit   uint64             `yaml:"toggle_gas_limit"`   // 0 = estimate
	PositionPageSize int64              `yaml:"position_page_size"`
	MintAmount       string             `yaml:"mint_amount"` // whole tokens per mint
	TokenSymbol      string             `yaml:"token_symbol"`
	StakedSymbol     string             `yaml:"staked_symbol"`
	TimeLayout       string             `yaml:"time_layout"` // layout for position start/end
}

// WalletConfig locates the keystore and its password
type WalletConfig struct {
	KeystoreDir  string `yaml:"keystore_dir"`
	PasswordFile string `yaml:"password_file"`
}

// EventsConfig controls how wallet-side changes are detected
type EventsConfig struct {
	WatchKeystore         bool `yaml:"watch_keystore"`
	ChainPollIntervalSecs int  `yaml:"chain_poll_interval_secs"` // 0 disables chain polling
	MaxPollFailures       int  `yaml:"max_poll_failures"`        // consecutive RPC failures before disconnect
}

// LogConfig controls log output on stderr
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "text"
}

// MetricsConfig enables the Prometheus endpoint during interactive sessions
type MetricsConfig struct {
	ListenAddr string `yaml:"listen_addr"` // empty disables
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".vestake")

	return &Config{
		Chain: ChainConfig{
			RPCURL:             "http://127.0.0.1:8545",
			ChainID:            31337,
			BlockConfirmations: 0,
			MaxGasPriceGwei:    100,
			RPCRateLimit:       20,
			RPCDialRetries:     2,
			Mock:               true,
		},
		Staking: StakingConfig{
			DurationUnit:     types.DurationUnitMinutes,
			DefaultDuration:  "30",
			WithdrawGasLimit: 1_000_000,
			ToggleGasLimit:   1_000_000,
			PositionPageSize: 100,
			MintAmount:       "1000",
			TokenSymbol:      "MOCK",
			StakedSymbol:     "veVirtual",
			TimeLayout:       "2006-01-02 15:04:05 MST",
		},
		Wallet: WalletConfig{
			KeystoreDir: filepath.Join(dataDir, "keystore"),
		},
		Events: EventsConfig{
			WatchKeystore:         true,
			ChainPollIntervalSecs: 15,
			MaxPollFailures:       3,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

// Load loads configuration from file. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	path = expandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.expandPaths()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Save saves configuration to file
func (c *Config) Save(path string) error {
	path = expandPath(path)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if !c.Chain.Mock {
		if c.Chain.RPCURL == "" {
			return fmt.Errorf("chain.rpc_url is required when chain.mock is false")
		}
		if c.Chain.ChainID <= 0 {
			return fmt.Errorf("invalid chain_id: %d", c.Chain.ChainID)
		}
		if err := validateEthAddress("token_address", c.Contracts.TokenAddress); err != nil {
			return err
		}
		if err := validateEthAddress("staking_address", c.Contracts.StakingAddress); err != nil {
			return err
		}
	}
	if c.Chain.BlockConfirmations < 0 {
		return fmt.Errorf("block_confirmations must not be negative")
	}
	if c.Chain.RPCRateLimit < 0 {
		return fmt.Errorf("rpc_rate_limit must not be negative")
	}

	if !c.Staking.DurationUnit.IsValid() {
		return fmt.Errorf("invalid duration_unit %q (want seconds, minutes, hours, days or weeks)", c.Staking.DurationUnit)
	}
	if _, err := types.ParseLockDuration(c.Staking.DefaultDuration, c.Staking.DurationUnit); err != nil {
		return fmt.Errorf("invalid default_duration: %w", err)
	}
	if c.Staking.PositionPageSize < 1 {
		return fmt.Errorf("position_page_size must be at least 1")
	}
	if mint, ok := new(big.Int).SetString(c.Staking.MintAmount, 10); !ok || mint.Sign() <= 0 {
		return fmt.Errorf("mint_amount must be a positive whole number, got %q", c.Staking.MintAmount)
	}

	if c.Events.ChainPollIntervalSecs < 0 {
		return fmt.Errorf("chain_poll_interval_secs must not be negative")
	}

	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("invalid log format: %s", c.Log.Format)
	}

	return nil
}

// ChainPollInterval returns the chain-id polling period
func (c *Config) ChainPollInterval() time.Duration {
	return time.Duration(c.Events.ChainPollIntervalSecs) * time.Second
}

// MaxGasPrice returns the configured gas price cap in wei, or nil when uncapped
func (c *Config) MaxGasPrice() *big.Int {
	if c.Chain.MaxGasPriceGwei <= 0 {
		return nil
	}
	return new(big.Int).Mul(big.NewInt(c.Chain.MaxGasPriceGwei), big.NewInt(1e9))
}

// validateEthAddress checks that an Ethereum address is 0x-prefixed, 40 hex chars, and non-zero.
func validateEthAddress(name, addr string) error {
	if addr == "" {
		return fmt.Errorf("%s is required when chain.mock is false", name)
	}
	if !strings.HasPrefix(addr, "0x") && !strings.HasPrefix(addr, "0X") {
		return fmt.Errorf("%s must start with 0x, got %q", name, addr)
	}
	hexPart := addr[2:]
	if len(hexPart) != 40 {
		return fmt.Errorf("%s must be 42 characters (0x + 40 hex), got %d", name, len(addr))
	}
	if _, err := hex.DecodeString(hexPart); err != nil {
		return fmt.Errorf("%s contains invalid hex characters: %w", name, err)
	}
	if strings.Trim(hexPart, "0") == "" {
		return fmt.Errorf("%s must not be the zero address", name)
	}
	return nil
}

// expandPaths expands ~ in all path fields
func (c *Config) expandPaths() {
	c.Wallet.KeystoreDir = expandPath(c.Wallet.KeystoreDir)
	c.Wallet.PasswordFile = expandPath(c.Wallet.PasswordFile)
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[2:])
	}
	return path
}

// DefaultConfigPath returns the default config file path
func DefaultConfigPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".vestake", "config.yaml")
}
