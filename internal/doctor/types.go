package doctor

import (
	"context"
)

// Category represents a category of checks
type Category string

const (
	CategoryConfig Category = "config"
	CategoryWallet Category = "wallet"
	CategoryChain  Category = "chain"
)

// Status represents the result status of a check
type Status string

const (
	StatusOK      Status = "ok"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
	StatusSkipped Status = "skipped"
)

// CheckResult represents the result of a single check
type CheckResult struct {
	Name       string   `json:"name"`
	Category   Category `json:"category"`
	Status     Status   `json:"status"`
	Message    string   `json:"message"`
	Details    string   `json:"details,omitempty"`
	FixCommand string   `json:"fix_command,omitempty"`
}

// Checker is the interface that all checkers must implement
type Checker interface {
	// Name returns the display name of the checker
	Name() string
	// Category returns the category this checker belongs to
	Category() Category
	// Check performs the check and returns the result
	Check(ctx context.Context) CheckResult
}

// DoctorOptions configures the doctor run
type DoctorOptions struct {
	// JSON outputs results as JSON
	JSON bool
	// Category filters checks to a specific category
	Category Category
}

// DoctorReport is the complete report from running all checks
type DoctorReport struct {
	Checks  []CheckResult `json:"checks"`
	Summary Summary       `json:"summary"`
}

// Summary provides an overview of the check results
type Summary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Warned  int `json:"warned"`
	Skipped int `json:"skipped"`
}

// IsHealthy returns true if all checks passed or warned
func (s Summary) IsHealthy() bool {
	return s.Failed == 0
}
