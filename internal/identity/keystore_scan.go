package identity

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// PrimaryAccount returns the account LoadWalletManager would pick from
// keystoreDir without opening a keystore (which starts its own watcher).
// ok is false when the directory holds no readable key file.
func PrimaryAccount(keystoreDir string) (addr common.Address, ok bool) {
	entries, err := os.ReadDir(keystoreDir)
	if err != nil {
		return common.Address{}, false
	}

	// ReadDir sorts by name, matching the keystore's URL ordering
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || strings.HasSuffix(name, "~") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(keystoreDir, name))
		if err != nil {
			continue
		}
		var key struct {
			Address string `json:"address"`
		}
		if err := json.Unmarshal(data, &key); err != nil || !common.IsHexAddress(key.Address) {
			continue
		}
		return common.HexToAddress(key.Address), true
	}
	return common.Address{}, false
}
