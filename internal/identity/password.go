package identity

import (
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// PasswordSource returns the stored keystore password for account, or ""
// when it has none
type PasswordSource func(account common.Address) string

// KeyringSource reads the platform keyring entry for the account
func KeyringSource() PasswordSource {
	return func(account common.Address) string {
		pw, err := RetrieveWalletPassword(account)
		if err != nil {
			return ""
		}
		return pw
	}
}

// KernelKeyringSource reads the Linux kernel keyring entry for the account
func KernelKeyringSource() PasswordSource {
	return func(account common.Address) string {
		pw, err := RetrieveKernelKeyring(account)
		if err != nil {
			return ""
		}
		return pw
	}
}

// EnvSource reads the named environment variable for any account
func EnvSource(name string) PasswordSource {
	return func(common.Address) string {
		return os.Getenv(name)
	}
}

// FileSource reads a password file for any account, trimming the trailing
// newline editors add
func FileSource(path string) PasswordSource {
	return func(common.Address) string {
		if path == "" {
			return ""
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return ""
		}
		return strings.TrimRight(string(data), "\r\n")
	}
}

// StaticSource always returns password
func StaticSource(password string) PasswordSource {
	return func(common.Address) string {
		return password
	}
}

// DefaultPasswordSources returns the lookup order used when unlocking:
// platform keyring, kernel keyring, environment, then password file.
func DefaultPasswordSources(envVar, passwordFile string) []PasswordSource {
	return []PasswordSource{
		KeyringSource(),
		KernelKeyringSource(),
		EnvSource(envVar),
		FileSource(passwordFile),
	}
}

// ResolvePassword returns the first non-empty password for account
func ResolvePassword(account common.Address, sources ...PasswordSource) string {
	for _, src := range sources {
		if src == nil {
			continue
		}
		if pw := src(account); pw != "" {
			return pw
		}
	}
	return ""
}
