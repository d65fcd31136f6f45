// Package rosie holds process-wide defaults shared by the config layer and the CLI.
package rosie

import (
	"os"
	"path/filepath"
)

const (
	DefaultAppName = "rosie"

	DefaultModel       = "gpt-4o"
	DefaultVisionModel = "gpt-4o"
	DefaultImageModel  = "dall-e-3"
	DefaultImageSize   = "1024x1024"

	DefaultConversationsFile = ".rosie-chat-history.json"
	DefaultMemoryFile        = ".rosie-memory.json"
	DefaultSettingsFile      = ".rosie-config.json"

	DefaultStoreBackend  = "json"
	DefaultSearchBackend = "everything"
	DefaultMaxResults    = 100
	DefaultPython        = "python"
)

var (
	// DefaultHomeDir is where the per-user stores live unless store.dir overrides it.
	DefaultHomeDir = userHomeDir()

	DefaultConfigPath   = filepath.Join(DefaultHomeDir, ".config", DefaultAppName)
	DefaultDatabasePath = filepath.Join(DefaultHomeDir, "."+DefaultAppName, DefaultAppName+".db")
	DefaultImageDir     = filepath.Join(DefaultHomeDir, "Pictures", DefaultAppName)
)

func userHomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return home
}
