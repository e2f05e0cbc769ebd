package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/ameistad/eydeploy/internal/constants"
)

const appDirName = "ey"

// userDir resolves a per-user directory and creates it. An explicit override
// wins, then the XDG base directory, then the fallback under the home dir.
func userDir(overrideVar, xdgVar string, fallback ...string) (string, error) {
	path := os.Getenv(overrideVar)
	if path == "" {
		if base := os.Getenv(xdgVar); filepath.IsAbs(base) {
			path = filepath.Join(base, appDirName)
		}
	}
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(append(append([]string{home}, fallback...), appDirName)...)
	}

	path, err := expandHome(path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(path, constants.ModeDirPrivate); err != nil {
		return "", err
	}
	return path, nil
}

func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, path[2:]), nil
}

// DataDir holds the local deployment journal: $EY_DATA_DIR, else
// $XDG_DATA_HOME/ey, else ~/.local/share/ey.
func DataDir() (string, error) {
	return userDir(constants.EnvVarDataDir, "XDG_DATA_HOME", ".local", "share")
}

// ConfigDir holds client.yaml and .env: $EY_CONFIG_DIR, else
// $XDG_CONFIG_HOME/ey, else ~/.config/ey.
func ConfigDir() (string, error) {
	return userDir(constants.EnvVarConfigDir, "XDG_CONFIG_HOME", ".config")
}

func ClientConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, constants.ClientConfigFileName), nil
}

func JournalPath() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, constants.JournalDBFileName), nil
}
