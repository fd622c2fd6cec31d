package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vestake/vestake/pkg/types"
)

const (
	testToken   = "0x1111111111111111111111111111111111111111"
	testStaking = "0x2222222222222222222222222222222222222222"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Staking.DurationUnit != types.DurationUnitMinutes {
		t.Errorf("expected default duration unit minutes, got %s", cfg.Staking.DurationUnit)
	}
	if cfg.Staking.DefaultDuration != "30" {
		t.Errorf("expected default duration 30, got %s", cfg.Staking.DefaultDuration)
	}
	if cfg.Staking.WithdrawGasLimit != 1_000_000 || cfg.Staking.ToggleGasLimit != 1_000_000 {
		t.Errorf("unexpected gas limits: %d / %d", cfg.Staking.WithdrawGasLimit, cfg.Staking.ToggleGasLimit)
	}
	if cfg.Staking.PositionPageSize != 100 {
		t.Errorf("expected page size 100, got %d", cfg.Staking.PositionPageSize)
	}
	if cfg.Staking.MintAmount != "1000" {
		t.Errorf("expected mint amount 1000, got %s", cfg.Staking.MintAmount)
	}
	if !cfg.Chain.Mock {
		t.Error("expected mock chain by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"real chain with addresses", func(c *Config) {
			c.Chain.Mock = false
			c.Contracts.TokenAddress = testToken
			c.Contracts.StakingAddress = testStaking
		}, ""},
		{"real chain missing token", func(c *Config) {
			c.Chain.Mock = false
			c.Contracts.StakingAddress = testStaking
		}, "token_address is required"},
		{"zero staking address", func(c *Config) {
			c.Chain.Mock = false
			c.Contracts.TokenAddress = testToken
			c.Contracts.StakingAddress = "0x0000000000000000000000000000000000000000"
		}, "zero address"},
		{"short address", func(c *Config) {
			c.Chain.Mock = false
			c.Contracts.TokenAddress = "0x1234"
			c.Contracts.StakingAddress = testStaking
		}, "42 characters"},
		{"bad duration unit", func(c *Config) {
			c.Staking.DurationUnit = "fortnights"
		}, "invalid duration_unit"},
		{"bad default duration", func(c *Config) {
			c.Staking.DefaultDuration = "0"
		}, "invalid default_duration"},
		{"bad page size", func(c *Config) {
			c.Staking.PositionPageSize = 0
		}, "position_page_size"},
		{"fractional mint", func(c *Config) {
			c.Staking.MintAmount = "1.5"
		}, "mint_amount"},
		{"bad log format", func(c *Config) {
			c.Log.Format = "xml"
		}, "invalid log format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Staking.DefaultDuration != "30" {
		t.Errorf("expected defaults, got %+v", cfg.Staking)
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Chain.Mock = false
	cfg.Chain.ChainID = 84532
	cfg.Contracts.TokenAddress = testToken
	cfg.Contracts.StakingAddress = testStaking
	cfg.Staking.DurationUnit = types.DurationUnitWeeks
	cfg.Staking.DefaultDuration = "4"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("expected 0600 permissions, got %o", info.Mode().Perm())
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Chain.ChainID != 84532 || loaded.Staking.DurationUnit != types.DurationUnitWeeks {
		t.Errorf("round trip lost fields: %+v", loaded)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("chain: [unterminated"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoad_ExpandsHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("wallet:\n  keystore_dir: ~/ks\n"), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Wallet.KeystoreDir != filepath.Join(home, "ks") {
		t.Errorf("expected expanded keystore dir, got %s", cfg.Wallet.KeystoreDir)
	}
}

func TestHelpers(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.ChainPollInterval() != 15*time.Second {
		t.Errorf("poll interval = %s", cfg.ChainPollInterval())
	}
	if cfg.MaxGasPrice().String() != "100000000000" {
		t.Errorf("max gas price = %s", cfg.MaxGasPrice())
	}
	cfg.Chain.MaxGasPriceGwei = 0
	if cfg.MaxGasPrice() != nil {
		t.Error("expected nil gas cap")
	}
}
