package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestSetAndGetLogger(t *testing.T) {
	original := Logger()
	defer SetLogger(original)

	var buf bytes.Buffer
	customLogger := slog.New(slog.NewJSONHandler(&buf, nil))

	SetLogger(customLogger)

	if Logger() != customLogger {
		t.Error("Logger() did not return the logger set by SetLogger()")
	}
}

func TestSetOutput(t *testing.T) {
	original := Logger()
	defer SetLogger(original)

	var buf bytes.Buffer
	SetOutput(&buf)

	Info("test message", "key", "value")

	output := buf.String()
	if !strings.Contains(output, "test message") {
		t.Errorf("expected output to contain 'test message', got: %s", output)
	}
	if !strings.Contains(output, `"key"`) {
		t.Errorf("expected output to contain key, got: %s", output)
	}

	buf.Reset()
	Debug("should not appear")
	if buf.Len() > 0 {
		t.Error("Debug messages should not appear at Info level")
	}
}

func TestConfigure(t *testing.T) {
	original := Logger()
	defer SetLogger(original)

	var buf bytes.Buffer
	if err := Configure(&buf, "debug", "json"); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	Debug("json debug")
	if !strings.Contains(buf.String(), `"msg":"json debug"`) {
		t.Errorf("expected JSON output, got: %s", buf.String())
	}

	buf.Reset()
	if err := Configure(&buf, "error", "text"); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	Warn("filtered")
	if buf.Len() != 0 {
		t.Errorf("warn should be filtered at error level, got: %s", buf.String())
	}

	if err := Configure(&buf, "loud", "text"); err == nil {
		t.Error("expected error for unknown level")
	}
	if err := Configure(&buf, "info", "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestLogLevels(t *testing.T) {
	original := Logger()
	defer SetLogger(original)

	var buf bytes.Buffer
	SetTextOutput(&buf)

	tests := []struct {
		name    string
		logFunc func(string, ...any)
		level   string
	}{
		{"Debug", Debug, "DEBUG"},
		{"Info", Info, "INFO"},
		{"Warn", Warn, "WARN"},
		{"Error", Error, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			tt.logFunc(tt.name+" test message", "key", "val")
			output := buf.String()
			if !strings.Contains(output, tt.name+" test message") {
				t.Errorf("expected output to contain message, got: %s", output)
			}
			if !strings.Contains(output, tt.level) {
				t.Errorf("expected output to contain level %s, got: %s", tt.level, output)
			}
		})
	}
}

func TestLogWithContext(t *testing.T) {
	original := Logger()
	defer SetLogger(original)

	var buf bytes.Buffer
	SetTextOutput(&buf)

	ctx := context.Background()
	for _, fn := range []func(context.Context, string, ...any){DebugContext, InfoContext, WarnContext} {
		buf.Reset()
		fn(ctx, "context message")
		if !strings.Contains(buf.String(), "context message") {
			t.Errorf("expected output to contain message, got: %s", buf.String())
		}
	}
}

func TestWith(t *testing.T) {
	original := Logger()
	defer SetLogger(original)

	var buf bytes.Buffer
	SetTextOutput(&buf)

	With("component", "session").Info("with context")
	if !strings.Contains(buf.String(), "component=session") {
		t.Errorf("expected output to contain component, got: %s", buf.String())
	}
}

func TestFieldHelpers(t *testing.T) {
	addr := common.HexToAddress("0x1234567890123456789012345678901234567890")
	if a := Account(addr); a.Key != "account" || a.Value.String() != addr.Hex() {
		t.Errorf("Account attr = %v", a)
	}
	hash := common.HexToHash("0xabc")
	if a := TxHash(hash); a.Key != "tx" || a.Value.String() != hash.Hex() {
		t.Errorf("TxHash attr = %v", a)
	}
	if a := PositionID("3"); a.Key != "position_id" || a.Value.String() != "3" {
		t.Errorf("PositionID attr = %v", a)
	}
	if a := Err(errors.New("boom")); a.Value.String() != "boom" {
		t.Errorf("Err attr = %v", a)
	}
	if a := Err(nil); a.Value.String() != "" {
		t.Errorf("Err(nil) attr = %v", a)
	}
}

func TestRedact_SensitiveFieldNames(t *testing.T) {
	original := Logger()
	defer SetLogger(original)

	var buf bytes.Buffer
	SetTextOutput(&buf)

	Info("unlock", "wallet_password", "hunter22", "mnemonic", "word word word")
	out := buf.String()
	if strings.Contains(out, "hunter22") || strings.Contains(out, "word word") {
		t.Errorf("secret leaked: %s", out)
	}
	if !strings.Contains(out, "[REDACTED]") {
		t.Errorf("expected redaction marker: %s", out)
	}
}

func TestRedact_RawPrivateKeyButNotTxHash(t *testing.T) {
	original := Logger()
	defer SetLogger(original)

	var buf bytes.Buffer
	SetTextOutput(&buf)

	key := strings.Repeat("ab", 32)
	tx := "0x" + strings.Repeat("cd", 32)
	Info("export", "value", "key="+key, "tx", tx)

	out := buf.String()
	if strings.Contains(out, key) {
		t.Errorf("raw private key leaked: %s", out)
	}
	if !strings.Contains(out, tx) {
		t.Errorf("tx hash should not be redacted: %s", out)
	}
}

func TestAudit(t *testing.T) {
	original := Logger()
	defer SetLogger(original)

	var buf bytes.Buffer
	SetOutput(&buf)

	Audit(AuditEvent{Operation: "stake", Account: "0x1", Result: "confirmed", TxHash: "0x" + strings.Repeat("0", 64)})
	out := buf.String()
	for _, want := range []string{`"audit":true`, `"operation":"stake"`, `"result":"confirmed"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in %s", want, out)
		}
	}
}
