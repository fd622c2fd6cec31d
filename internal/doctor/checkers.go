package doctor

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/vestake/vestake/internal/config"
	"github.com/vestake/vestake/internal/identity"
)

// rpcTimeout bounds each chain check
const rpcTimeout = 10 * time.Second

// ConfigChecker validates the loaded configuration
type ConfigChecker struct {
	cfg *config.Config
}

// NewConfigChecker creates a new config checker
func NewConfigChecker(cfg *config.Config) *ConfigChecker {
	return &ConfigChecker{cfg: cfg}
}

func (c *ConfigChecker) Name() string       { return "Configuration" }
func (c *ConfigChecker) Category() Category { return CategoryConfig }

func (c *ConfigChecker) Check(ctx context.Context) CheckResult {
	result := CheckResult{Name: c.Name(), Category: c.Category()}

	if err := c.cfg.Validate(); err != nil {
		result.Status = StatusError
		result.Message = "Configuration is invalid"
		result.Details = err.Error()
		result.FixCommand = "vestake config init --force"
		return result
	}

	if c.cfg.Chain.Mock {
		result.Status = StatusWarning
		result.Message = "Configuration valid (mock chain, no transactions reach a network)"
		result.Details = "Set chain.mock: false and fill rpc_url, chain_id and contract addresses to use a real chain"
		return result
	}

	result.Status = StatusOK
	result.Message = fmt.Sprintf("Configuration valid (chain %d, duration unit %s)", c.cfg.Chain.ChainID, c.cfg.Staking.DurationUnit)
	return result
}

// WalletChecker checks that the keystore holds an account
type WalletChecker struct {
	keystoreDir string
}

// NewWalletChecker creates a new wallet checker
func NewWalletChecker(keystoreDir string) *WalletChecker {
	return &WalletChecker{keystoreDir: keystoreDir}
}

func (c *WalletChecker) Name() string       { return "Wallet" }
func (c *WalletChecker) Category() Category { return CategoryWallet }

func (c *WalletChecker) Check(ctx context.Context) CheckResult {
	result := CheckResult{Name: c.Name(), Category: c.Category()}

	addr, ok := identity.PrimaryAccount(c.keystoreDir)
	if !ok {
		result.Status = StatusError
		result.Message = "No wallet found in keystore"
		result.Details = c.keystoreDir
		result.FixCommand = "vestake wallet create"
		return result
	}

	result.Status = StatusOK
	result.Message = fmt.Sprintf("Wallet %s", addr.Hex())
	result.Details = c.keystoreDir
	return result
}

// PasswordChecker checks whether the wallet can be unlocked without a prompt
type PasswordChecker struct {
	keystoreDir string
	sources     []identity.PasswordSource
}

// NewPasswordChecker creates a password checker for the keystore's wallet
func NewPasswordChecker(keystoreDir string, sources []identity.PasswordSource) *PasswordChecker {
	return &PasswordChecker{keystoreDir: keystoreDir, sources: sources}
}

func (c *PasswordChecker) Name() string       { return "Wallet password" }
func (c *PasswordChecker) Category() Category { return CategoryWallet }

func (c *PasswordChecker) Check(ctx context.Context) CheckResult {
	result := CheckResult{Name: c.Name(), Category: c.Category()}

	addr, ok := identity.PrimaryAccount(c.keystoreDir)
	if !ok {
		result.Status = StatusSkipped
		result.Message = "Skipped (no wallet)"
		return result
	}

	if identity.ResolvePassword(addr, c.sources...) == "" {
		result.Status = StatusWarning
		result.Message = "No stored password, connect will prompt for it"
		result.Details = fmt.Sprintf("Set %s, wallet.password_file, or store it in the OS keyring", config.PasswordEnvVar)
		return result
	}

	result.Status = StatusOK
	result.Message = "Password available"
	return result
}

// ChainChecker dials the RPC endpoint and compares its chain id
type ChainChecker struct {
	cfg *config.Config
}

// NewChainChecker creates a new chain checker
func NewChainChecker(cfg *config.Config) *ChainChecker {
	return &ChainChecker{cfg: cfg}
}

func (c *ChainChecker) Name() string       { return "RPC endpoint" }
func (c *ChainChecker) Category() Category { return CategoryChain }

func (c *ChainChecker) Check(ctx context.Context) CheckResult {
	result := CheckResult{Name: c.Name(), Category: c.Category()}

	if c.cfg.Chain.Mock {
		result.Status = StatusSkipped
		result.Message = "Skipped (mock chain)"
		return result
	}

	ctx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()

	client, err := ethclient.DialContext(ctx, c.cfg.Chain.RPCURL)
	if err != nil {
		result.Status = StatusError
		result.Message = "Cannot dial RPC endpoint"
		result.Details = err.Error()
		return result
	}
	defer client.Close()

	chainID, err := client.ChainID(ctx)
	if err != nil {
		result.Status = StatusError
		result.Message = fmt.Sprintf("RPC endpoint %s not responding", c.cfg.Chain.RPCURL)
		result.Details = err.Error()
		return result
	}

	if chainID.Int64() != c.cfg.Chain.ChainID {
		result.Status = StatusError
		result.Message = fmt.Sprintf("Wrong network: endpoint reports chain %s, expected %d", chainID, c.cfg.Chain.ChainID)
		return result
	}

	result.Status = StatusOK
	result.Message = fmt.Sprintf("Connected to chain %s", chainID)
	result.Details = c.cfg.Chain.RPCURL
	return result
}

// ContractsChecker checks that code is deployed at both contract addresses
type ContractsChecker struct {
	cfg *config.Config
}

// NewContractsChecker creates a new contracts checker
func NewContractsChecker(cfg *config.Config) *ContractsChecker {
	return &ContractsChecker{cfg: cfg}
}

func (c *ContractsChecker) Name() string       { return "Contracts" }
func (c *ContractsChecker) Category() Category { return CategoryChain }

func (c *ContractsChecker) Check(ctx context.Context) CheckResult {
	result := CheckResult{Name: c.Name(), Category: c.Category()}

	if c.cfg.Chain.Mock {
		result.Status = StatusSkipped
		result.Message = "Skipped (mock chain)"
		return result
	}

	ctx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()

	client, err := ethclient.DialContext(ctx, c.cfg.Chain.RPCURL)
	if err != nil {
		result.Status = StatusError
		result.Message = "Cannot dial RPC endpoint"
		result.Details = err.Error()
		return result
	}
	defer client.Close()

	contracts := []struct {
		name string
		addr string
	}{
		{"token", c.cfg.Contracts.TokenAddress},
		{"staking", c.cfg.Contracts.StakingAddress},
	}
	for _, contract := range contracts {
		if !common.IsHexAddress(contract.addr) {
			result.Status = StatusError
			result.Message = fmt.Sprintf("Invalid %s address %q", contract.name, contract.addr)
			return result
		}
		code, err := client.CodeAt(ctx, common.HexToAddress(contract.addr), nil)
		if err != nil {
			result.Status = StatusError
			result.Message = fmt.Sprintf("Cannot read %s contract code", contract.name)
			result.Details = err.Error()
			return result
		}
		if len(code) == 0 {
			result.Status = StatusError
			result.Message = fmt.Sprintf("No contract deployed at %s address %s", contract.name, contract.addr)
			return result
		}
	}

	result.Status = StatusOK
	result.Message = "Token and staking contracts deployed"
	return result
}
