package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vestake/vestake/internal/doctor"
)

func NewDoctorCmd() *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, wallet and chain before connecting",
		Long: `Run pre-flight checks: configuration validity, keystore wallet, stored
password, RPC chain id and deployed contract code. Chain checks are skipped
on the mock chain. Nothing is signed.`,
		Example: `  vestake doctor
  vestake doctor --category chain
  vestake doctor -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			opts := doctor.DoctorOptions{
				JSON:     jsonOutput(),
				Category: doctor.Category(category),
			}
			switch opts.Category {
			case "", doctor.CategoryConfig, doctor.CategoryWallet, doctor.CategoryChain:
			default:
				return fmt.Errorf("unknown category %q (want config, wallet or chain)", category)
			}

			d := doctor.New(cfg, opts, os.Stdout, isTTY())
			report, err := d.Run(cmd.Context())
			if err != nil {
				return err
			}
			if !report.Summary.IsHealthy() {
				return fmt.Errorf("%d check(s) failed", report.Summary.Failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Only run checks in this category (config, wallet, chain)")
	return cmd
}
