package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/ameistad/eydeploy/internal/constants"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// EndpointCredentials is the token stored for one API endpoint.
type EndpointCredentials struct {
	Token string `json:"token" yaml:"token" toml:"token"`
	// Encrypted marks Token as an age ciphertext.
	Encrypted bool `json:"encrypted,omitempty" yaml:"encrypted,omitempty" toml:"encrypted,omitempty"`
}

type ClientConfig struct {
	Endpoints map[string]EndpointCredentials `json:"endpoints" yaml:"endpoints" toml:"endpoints"`
}

// SetToken stores token for url, encrypting it when an age identity is configured.
func (cc *ClientConfig) SetToken(url, token string) error {
	if cc.Endpoints == nil {
		cc.Endpoints = make(map[string]EndpointCredentials)
	}
	sealer, err := sealerFromEnv()
	if err != nil {
		return err
	}
	if sealer == nil {
		cc.Endpoints[url] = EndpointCredentials{Token: token}
		return nil
	}
	sealed, err := sealer.seal(token)
	if err != nil {
		return err
	}
	cc.Endpoints[url] = EndpointCredentials{Token: sealed, Encrypted: true}
	return nil
}

// Token returns the plaintext token for url.
func (cc *ClientConfig) Token(url string) (string, bool, error) {
	creds, ok := cc.Endpoints[url]
	if !ok || creds.Token == "" {
		return "", false, nil
	}
	if !creds.Encrypted {
		return creds.Token, true, nil
	}
	sealer, err := sealerFromEnv()
	if err != nil {
		return "", false, err
	}
	if sealer == nil {
		return "", false, fmt.Errorf("token for %s is encrypted but %s is not set", url, constants.EnvVarAgeIdentity)
	}
	token, err := sealer.open(creds.Token)
	if err != nil {
		return "", false, fmt.Errorf("failed to decrypt token for %s: %w", url, err)
	}
	return token, true, nil
}

func (cc *ClientConfig) RemoveEndpoint(url string) error {
	if _, exists := cc.Endpoints[url]; !exists {
		return fmt.Errorf("endpoint %s not found", url)
	}
	delete(cc.Endpoints, url)
	return nil
}

func (cc *ClientConfig) ListEndpoints() []string {
	var urls []string
	for url := range cc.Endpoints {
		urls = append(urls, url)
	}
	sort.Strings(urls)
	return urls
}

// LoadClientConfig returns an empty config when path does not exist.
func LoadClientConfig(path string) (*ClientConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &ClientConfig{Endpoints: map[string]EndpointCredentials{}}, nil
	}

	format, err := getConfigFormat(path)
	if err != nil {
		return nil, err
	}

	parser, err := getConfigParser(format)
	if err != nil {
		return nil, err
	}

	// Endpoint URLs contain dots, so keys are split on a character URLs never carry.
	k := koanf.New("|")
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("failed to load client config file: %w", err)
	}

	var clientConfig ClientConfig
	if err := k.UnmarshalWithConf("", &clientConfig, koanf.UnmarshalConf{Tag: format}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal client config: %w", err)
	}
	if clientConfig.Endpoints == nil {
		clientConfig.Endpoints = map[string]EndpointCredentials{}
	}
	return &clientConfig, nil
}

func (cc *ClientConfig) Save(path string) error {
	var data []byte
	var err error

	switch filepath.Ext(path) {
	case ".json":
		data, err = json.MarshalIndent(cc, "", "  ")
	case ".toml":
		data, err = toml.Marshal(cc)
	default: // yaml
		data, err = yaml.Marshal(cc)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), constants.ModeDirPrivate); err != nil {
		return err
	}
	return os.WriteFile(path, data, constants.ModeFileSecret)
}
