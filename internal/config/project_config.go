package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ameistad/eydeploy/internal/constants"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var ErrProjectConfigNotFound = errors.New("no ey.yml found")

// ProjectConfig is the ey.yml checked into the application repository.
type ProjectConfig struct {
	Path         string                       `json:"-" yaml:"-" toml:"-"`
	Environments map[string]EnvironmentConfig `json:"environments" yaml:"environments" toml:"environments"`
}

// Environment returns the settings for the named environment, or an empty
// config when the environment is not listed.
func (pc *ProjectConfig) Environment(name string) EnvironmentConfig {
	if pc == nil || pc.Environments == nil {
		return EnvironmentConfig{}
	}
	if ec, ok := pc.Environments[name]; ok && ec != nil {
		return ec
	}
	return EnvironmentConfig{}
}

// DefaultBranch is the `branch` key of the named environment, "" when unset.
func (pc *ProjectConfig) DefaultBranch(name string) string {
	return pc.Environment(name).Branch()
}

// FindProjectConfigFile looks for an ey config file in dir.
func FindProjectConfigFile(dir string) (string, error) {
	for _, name := range constants.ProjectConfigFileNames {
		candidate := filepath.Join(dir, name)
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w in %s", ErrProjectConfigNotFound, dir)
}

// LoadProjectConfig loads ey.yml from dir. A missing file is not an error;
// every environment then resolves to an empty config.
func LoadProjectConfig(dir string) (*ProjectConfig, error) {
	configFile, err := FindProjectConfigFile(dir)
	if err != nil {
		if errors.Is(err, ErrProjectConfigNotFound) {
			return &ProjectConfig{Environments: map[string]EnvironmentConfig{}}, nil
		}
		return nil, err
	}
	return loadProjectConfigFile(configFile)
}

func loadProjectConfigFile(configFile string) (*ProjectConfig, error) {
	format, err := getConfigFormat(configFile)
	if err != nil {
		return nil, err
	}

	parser, err := getConfigParser(format)
	if err != nil {
		return nil, err
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(configFile), parser); err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", configFile, err)
	}

	var projectConfig ProjectConfig
	decoderConfig := &mapstructure.DecoderConfig{
		TagName:          format,
		Result:           &projectConfig,
		WeaklyTypedInput: false,
	}
	unmarshalConf := koanf.UnmarshalConf{
		Tag:           format,
		DecoderConfig: decoderConfig,
	}
	if err := k.UnmarshalWithConf("", &projectConfig, unmarshalConf); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config file %s: %w", configFile, err)
	}

	if err := projectConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configFile, err)
	}

	projectConfig.Path = configFile
	if projectConfig.Environments == nil {
		projectConfig.Environments = map[string]EnvironmentConfig{}
	}
	return &projectConfig, nil
}
