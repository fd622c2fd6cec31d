package commands

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"

	"github.com/vestake/vestake/internal/config"
	"github.com/vestake/vestake/internal/logging"
)

// Global CLI flags
var (
	// ConfigPath overrides the default config file location
	ConfigPath string

	// LogLevel overrides log.level from the config file
	LogLevel string

	// OutputFormat controls output format: "" (auto), "json", "plain"
	OutputFormat string
)

// configPath returns the flag value or the default location.
func configPath() string {
	if ConfigPath != "" {
		return ConfigPath
	}
	return config.DefaultConfigPath()
}

// loadConfig loads and validates the config, then configures logging on
// stderr from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	level := cfg.Log.Level
	if LogLevel != "" {
		level = LogLevel
	}
	if err := logging.Configure(os.Stderr, level, cfg.Log.Format); err != nil {
		return nil, fmt.Errorf("invalid log settings: %w", err)
	}
	return cfg, nil
}

// loadConfigQuiet loads config without failing, falling back to defaults.
func loadConfigQuiet() *config.Config {
	cfg, err := config.Load(configPath())
	if err != nil {
		return config.DefaultConfig()
	}
	return cfg
}

// jsonOutput reports whether machine-readable output was requested.
func jsonOutput() bool {
	return OutputFormat == "json"
}

// Version information (set at build time)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// GetVersion returns the version string
func GetVersion() string {
	if Version != "dev" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "" && info.Main.Version != "(devel)" {
			return info.Main.Version
		}
	}
	return "dev"
}

// GetCommit returns the git commit
func GetCommit() string {
	if Commit != "unknown" {
		return Commit
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" {
				if len(setting.Value) > 8 {
					return setting.Value[:8]
				}
				return setting.Value
			}
		}
	}
	return "unknown"
}

// GetGoVersion returns the Go version
func GetGoVersion() string {
	return runtime.Version()
}
