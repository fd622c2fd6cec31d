//go:build linux

package identity

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// kernelKeyName names the user-keyring key holding account's password
func kernelKeyName(account common.Address) string {
	return keyringService + ":" + strings.ToLower(account.Hex())
}

// keyctl runs the keyutils CLI, feeding stdin when it is non-empty
func keyctl(stdin string, args ...string) (string, error) {
	cmd := exec.Command("keyctl", args...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	out, err := cmd.Output()
	if err != nil {
		var detail string
		if ee, ok := err.(*exec.ExitError); ok {
			detail = strings.TrimSpace(string(ee.Stderr))
		}
		if detail != "" {
			return "", fmt.Errorf("keyctl %s: %w (%s)", args[0], err, detail)
		}
		return "", fmt.Errorf("keyctl %s: %w", args[0], err)
	}
	return string(out), nil
}

// StoreKernelKeyring keeps account's password in the user session keyring.
// The key lives in kernel memory and is gone after a reboot.
func StoreKernelKeyring(account common.Address, password string) error {
	_, err := keyctl(password, "padd", "user", kernelKeyName(account), "@u")
	return err
}

// RetrieveKernelKeyring reads account's password from the user keyring
func RetrieveKernelKeyring(account common.Address) (string, error) {
	id, err := keyctl("", "search", "@u", "user", kernelKeyName(account))
	if err != nil {
		return "", err
	}
	return keyctl("", "pipe", strings.TrimSpace(id))
}

// DeleteKernelKeyring unlinks account's key. A missing key is not an error.
func DeleteKernelKeyring(account common.Address) error {
	id, err := keyctl("", "search", "@u", "user", kernelKeyName(account))
	if err != nil {
		return nil
	}
	_, err = keyctl("", "unlink", strings.TrimSpace(id), "@u")
	return err
}
