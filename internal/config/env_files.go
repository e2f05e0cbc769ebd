package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ameistad/eydeploy/internal/constants"
	"github.com/joho/godotenv"
)

// LoadEnvFiles loads .env from the working directory, or failing that from
// the ey config directory. Variables already set in the process win.
func LoadEnvFiles() error {
	if err := loadEnvFile(constants.ConfigEnvFileName); err == nil {
		return nil
	}

	if configDir, err := ConfigDir(); err == nil {
		configEnvPath := filepath.Join(configDir, constants.ConfigEnvFileName)
		if err := loadEnvFile(configEnvPath); err == nil {
			return nil
		}
	}

	return fmt.Errorf("no .env file found")
}

// loadEnvFile loads a specific .env file if it exists
func loadEnvFile(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return err
	}
	return godotenv.Load(path)
}
