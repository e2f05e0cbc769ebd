package constants

import "os"

const (
	Version                  = "0.1.0"
	DefaultAPIURL            = "https://cloud.engineyard.com"
	DefaultMigrationCommand  = "rake db:migrate"
	DefaultServersideVersion = "2.8.0"
	DefaultDeployUser        = "deploy"
	DefaultSSHPort           = 22
	DefaultDeploymentsToKeep = 50
	DefaultFrameworkEnv      = "production"

	// Environment variables
	EnvVarAPIToken    = "EY_API_TOKEN"
	EnvVarAPIURL      = "EY_API_URL"
	EnvVarAgeIdentity = "EY_ENCRYPTION_KEY"
	EnvVarConfigDir   = "EY_CONFIG_DIR"
	EnvVarDataDir     = "EY_DATA_DIR"
	EnvVarSSHIdentity = "EY_SSH_IDENTITY"

	KeyringServiceName = "ey-cloud"

	// File names
	ClientConfigFileName = "client.yaml"
	ConfigEnvFileName    = ".env"
	JournalDBFileName    = "deployments.db"
)

// ProjectConfigFileNames are checked in order, relative to the project root.
var ProjectConfigFileNames = []string{
	"ey.yml",
	"ey.yaml",
	"ey.json",
	"ey.toml",
	"config/ey.yml",
	"config/ey.yaml",
}

// File and directory permissions
const (
	ModeFileSecret  os.FileMode = 0o600 // secrets: .env, tokens
	ModeFileDefault os.FileMode = 0o644 // non-secret configs
	ModeDirPrivate  os.FileMode = 0o700 // private dirs
)
