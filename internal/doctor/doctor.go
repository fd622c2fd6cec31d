package doctor

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/vestake/vestake/internal/config"
	"github.com/vestake/vestake/internal/identity"
)

// Doctor runs pre-flight checks before the wallet is connected
type Doctor struct {
	checkers []Checker
	output   *Output
	writer   io.Writer
	options  DoctorOptions
}

// New creates a Doctor with the default checkers for cfg, writing to w
func New(cfg *config.Config, opts DoctorOptions, w io.Writer, useColors bool) *Doctor {
	if w == nil {
		w = os.Stdout
	}
	d := &Doctor{
		options: opts,
		writer:  w,
		output:  NewOutput(w, useColors),
	}
	d.registerDefaultCheckers(cfg)
	return d
}

func (d *Doctor) registerDefaultCheckers(cfg *config.Config) {
	d.checkers = []Checker{
		NewConfigChecker(cfg),
		NewWalletChecker(cfg.Wallet.KeystoreDir),
		NewPasswordChecker(cfg.Wallet.KeystoreDir, identity.DefaultPasswordSources(config.PasswordEnvVar, cfg.Wallet.PasswordFile)),
		NewChainChecker(cfg),
		NewContractsChecker(cfg),
	}
}

// SetCheckers replaces the registered checkers
func (d *Doctor) SetCheckers(checkers ...Checker) {
	d.checkers = checkers
}

// AddChecker adds a custom checker
func (d *Doctor) AddChecker(c Checker) {
	d.checkers = append(d.checkers, c)
}

// Run executes all checks and returns a report
func (d *Doctor) Run(ctx context.Context) (*DoctorReport, error) {
	report := &DoctorReport{
		Checks: make([]CheckResult, 0, len(d.checkers)),
	}

	checkers := d.filterCheckers()

	if d.options.JSON {
		for _, checker := range checkers {
			result := checker.Check(ctx)
			report.Checks = append(report.Checks, result)
			d.updateSummary(&report.Summary, result)
		}
		return report, d.outputJSON(report)
	}

	d.output.Header()
	for i, checker := range checkers {
		d.output.CheckStart(i+1, len(checkers), checker.Name())
		result := checker.Check(ctx)
		d.output.CheckResult(result)
		report.Checks = append(report.Checks, result)
		d.updateSummary(&report.Summary, result)
	}
	d.output.Summary(report.Summary)

	return report, nil
}

// filterCheckers returns checkers filtered by category if specified
func (d *Doctor) filterCheckers() []Checker {
	if d.options.Category == "" {
		return d.checkers
	}

	filtered := make([]Checker, 0)
	for _, c := range d.checkers {
		if c.Category() == d.options.Category {
			filtered = append(filtered, c)
		}
	}
	return filtered
}

func (d *Doctor) updateSummary(summary *Summary, result CheckResult) {
	summary.Total++
	switch result.Status {
	case StatusOK:
		summary.Passed++
	case StatusError:
		summary.Failed++
	case StatusWarning:
		summary.Warned++
	case StatusSkipped:
		summary.Skipped++
	}
}

func (d *Doctor) outputJSON(report *DoctorReport) error {
	enc := json.NewEncoder(d.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
