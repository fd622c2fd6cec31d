package logging

// AuditEvent records a transaction the client signed on the user's behalf
type AuditEvent struct {
	Operation string // "approve", "stake", "withdraw", "toggle_auto_renew", "mint"
	Account   string
	Target    string // contract address or position id
	TxHash    string
	Result    string // "submitted", "confirmed", "failed"
	Details   string
}

// Audit logs a signed transaction at Info level with an "audit" marker so
// it can be filtered from regular output.
func Audit(event AuditEvent) {
	Logger().Info("audit",
		"audit", true,
		"operation", event.Operation,
		"account", event.Account,
		"target", event.Target,
		"tx", event.TxHash,
		"result", event.Result,
		"details", event.Details,
	)
}
