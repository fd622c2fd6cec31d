package commands

import (
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/vestake/vestake/internal/config"
	"github.com/vestake/vestake/pkg/types"
)

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	return cmd
}

// configAnswers are the init form fields, as entered
type configAnswers struct {
	Mock           bool
	RPCURL         string
	ChainID        string
	TokenAddress   string
	StakingAddress string
	DurationUnit   string
}

func answersFromConfig(cfg *config.Config) configAnswers {
	return configAnswers{
		Mock:           cfg.Chain.Mock,
		RPCURL:         cfg.Chain.RPCURL,
		ChainID:        strconv.FormatInt(cfg.Chain.ChainID, 10),
		TokenAddress:   cfg.Contracts.TokenAddress,
		StakingAddress: cfg.Contracts.StakingAddress,
		DurationUnit:   string(cfg.Staking.DurationUnit),
	}
}

// apply copies the answers onto cfg and validates the result
func (ans configAnswers) apply(cfg *config.Config) error {
	chainID, err := strconv.ParseInt(ans.ChainID, 10, 64)
	if err != nil || chainID <= 0 {
		return fmt.Errorf("invalid chain ID %q", ans.ChainID)
	}
	cfg.Chain.Mock = ans.Mock
	cfg.Chain.RPCURL = ans.RPCURL
	cfg.Chain.ChainID = chainID
	cfg.Contracts.TokenAddress = ans.TokenAddress
	cfg.Contracts.StakingAddress = ans.StakingAddress
	cfg.Staking.DurationUnit = types.DurationUnit(ans.DurationUnit)
	return cfg.Validate()
}

func runConfigForm(ans *configAnswers) (bool, error) {
	confirm := true
	unitOptions := []huh.Option[string]{
		huh.NewOption("seconds", string(types.DurationUnitSeconds)),
		huh.NewOption("minutes", string(types.DurationUnitMinutes)),
		huh.NewOption("hours", string(types.DurationUnitHours)),
		huh.NewOption("days", string(types.DurationUnitDays)),
		huh.NewOption("weeks", string(types.DurationUnitWeeks)),
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Use the in-memory mock chain?").
				Description("Mock contracts need no RPC endpoint; state lasts for one process").
				Affirmative("Mock").
				Negative("Real chain").
				Value(&ans.Mock),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("RPC URL").
				Placeholder("http://127.0.0.1:8545").
				Value(&ans.RPCURL),
			huh.NewInput().
				Title("Chain ID").
				Validate(func(s string) error {
					if v, err := strconv.ParseInt(s, 10, 64); err != nil || v <= 0 {
						return fmt.Errorf("must be a positive integer")
					}
					return nil
				}).
				Value(&ans.ChainID),
			huh.NewInput().
				Title("Token contract address").
				Placeholder("0x...").
				Value(&ans.TokenAddress),
			huh.NewInput().
				Title("Staking contract address").
				Placeholder("0x...").
				Value(&ans.StakingAddress),
		).WithHideFunc(func() bool {
			return ans.Mock
		}),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Stake duration unit").
				Description("Unit the staking contract expects for lock durations").
				Options(unitOptions...).
				Value(&ans.DurationUnit),
			huh.NewConfirm().
				Title("Write configuration?").
				Affirmative("Save").
				Negative("Cancel").
				Value(&confirm),
		),
	).WithTheme(huh.ThemeBase())

	if err := form.Run(); err != nil {
		return false, err
	}
	return confirm, nil
}

func newConfigInitCmd() *cobra.Command {
	var (
		useDefaults bool
		force       bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file",
		Long: `Write a config file to the --config path (default ~/.vestake/config.yaml).

On a terminal a form asks for the chain and contract settings. With
--defaults, or without a terminal, the defaults (mock chain) are written.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath()
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
			}

			cfg := config.DefaultConfig()
			if !useDefaults && stdinIsTTY() {
				ans := answersFromConfig(cfg)
				ok, err := runConfigForm(&ans)
				if err != nil {
					return err
				}
				if !ok {
					Info("Setup cancelled, no changes made")
					return nil
				}
				if err := ans.apply(cfg); err != nil {
					return err
				}
			}

			if err := cfg.Save(path); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}
			Success("Config written to " + path)
			if cfg.Chain.Mock {
				fmt.Println(Hint("Mock chain enabled. Set chain.mock: false and the contract addresses to use a real chain."))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&useDefaults, "defaults", false, "Write defaults without prompting")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath())
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			fmt.Print(string(data))
			return nil
		},
	}
}
