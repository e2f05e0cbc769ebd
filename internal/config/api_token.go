package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/ameistad/eydeploy/internal/constants"
	"github.com/zalando/go-keyring"
)

var ErrAPITokenNotFound = errors.New("API token not found")

// TokenStore names where a token was saved.
type TokenStore string

const (
	TokenStoreKeyring TokenStore = "keyring"
	TokenStoreFile    TokenStore = "file"
)

// LoadAPIToken looks up the token for endpoint in the environment (after
// loading .env files), then the OS keyring, then the client config file.
func LoadAPIToken(endpoint string) (string, error) {
	// Missing .env files are fine.
	_ = LoadEnvFiles()

	if token := os.Getenv(constants.EnvVarAPIToken); token != "" {
		return token, nil
	}

	if token, err := keyring.Get(constants.KeyringServiceName, endpoint); err == nil && token != "" {
		return token, nil
	}

	path, err := ClientConfigPath()
	if err != nil {
		return "", err
	}
	clientConfig, err := LoadClientConfig(path)
	if err != nil {
		return "", err
	}
	token, ok, err := clientConfig.Token(endpoint)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w for %s: set %s, or run 'ey login'", ErrAPITokenNotFound, endpoint, constants.EnvVarAPIToken)
	}
	return token, nil
}

// SaveAPIToken stores token in the OS keyring, falling back to the client
// config file when no keyring is available.
func SaveAPIToken(endpoint, token string) (TokenStore, error) {
	if err := keyring.Set(constants.KeyringServiceName, endpoint, token); err == nil {
		return TokenStoreKeyring, nil
	}

	path, err := ClientConfigPath()
	if err != nil {
		return "", err
	}
	clientConfig, err := LoadClientConfig(path)
	if err != nil {
		return "", err
	}
	if err := clientConfig.SetToken(endpoint, token); err != nil {
		return "", err
	}
	if err := clientConfig.Save(path); err != nil {
		return "", fmt.Errorf("failed to save client config: %w", err)
	}
	return TokenStoreFile, nil
}

// DeleteAPIToken removes every stored token for endpoint.
func DeleteAPIToken(endpoint string) error {
	if err := keyring.Delete(constants.KeyringServiceName, endpoint); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete token from keyring: %w", err)
	}

	path, err := ClientConfigPath()
	if err != nil {
		return err
	}
	clientConfig, err := LoadClientConfig(path)
	if err != nil {
		return err
	}
	if _, exists := clientConfig.Endpoints[endpoint]; !exists {
		return nil
	}
	if err := clientConfig.RemoveEndpoint(endpoint); err != nil {
		return err
	}
	return clientConfig.Save(path)
}
