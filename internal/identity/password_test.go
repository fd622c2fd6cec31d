package identity

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

var testAccount = common.HexToAddress("0x00000000000000000000000000000000000000aa")

func TestResolvePassword_FirstNonEmptyWins(t *testing.T) {
	var calls []string
	src := func(name, pw string) PasswordSource {
		return func(account common.Address) string {
			if account != testAccount {
				t.Errorf("%s asked for %s", name, account.Hex())
			}
			calls = append(calls, name)
			return pw
		}
	}

	got := ResolvePassword(testAccount, src("keyring", ""), nil, src("env", "from-env"), src("file", "from-file"))
	if got != "from-env" {
		t.Fatalf("expected env password, got %q", got)
	}
	if len(calls) != 2 || calls[0] != "keyring" || calls[1] != "env" {
		t.Errorf("unexpected lookup order: %v", calls)
	}
}

func TestResolvePassword_None(t *testing.T) {
	if got := ResolvePassword(testAccount); got != "" {
		t.Errorf("expected empty password, got %q", got)
	}
}

func TestEnvSource(t *testing.T) {
	t.Setenv("VESTAKE_TEST_PW", "hunter2")
	if got := EnvSource("VESTAKE_TEST_PW")(testAccount); got != "hunter2" {
		t.Errorf("got %q", got)
	}
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pw")
	if err := os.WriteFile(path, []byte("s3cret\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if got := FileSource(path)(testAccount); got != "s3cret" {
		t.Errorf("expected trimmed password, got %q", got)
	}
	if got := FileSource(filepath.Join(t.TempDir(), "missing"))(testAccount); got != "" {
		t.Errorf("expected empty for missing file, got %q", got)
	}
	if got := FileSource("")(testAccount); got != "" {
		t.Errorf("expected empty for unset path, got %q", got)
	}
}

func TestStaticSource(t *testing.T) {
	if got := StaticSource("pw")(testAccount); got != "pw" {
		t.Errorf("got %q", got)
	}
}

func TestKeystoreItemKeyPerAccount(t *testing.T) {
	other := common.HexToAddress("0x00000000000000000000000000000000000000bb")
	if keystoreItemKey(testAccount) == keystoreItemKey(other) {
		t.Error("accounts must not share a keyring entry")
	}
	if got := keystoreItemKey(testAccount); got != "keystore:0x00000000000000000000000000000000000000aa" {
		t.Errorf("keystoreItemKey = %q", got)
	}
}
