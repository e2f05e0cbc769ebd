package ey

import (
	"os"
	"strings"

	"github.com/ameistad/eydeploy/internal/config"
	"github.com/ameistad/eydeploy/internal/constants"
	"github.com/ameistad/eydeploy/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// rootFlags holds the persistent flags shared by every command.
type rootFlags struct {
	apiURL    string
	logLevel  string
	logFormat string

	logger *zap.Logger
}

// endpoint is the EY Cloud API URL: --api-url, then EY_API_URL, then the default.
func (f *rootFlags) endpoint() string {
	endpoint := f.apiURL
	if endpoint == "" {
		endpoint = os.Getenv(constants.EnvVarAPIURL)
	}
	if endpoint == "" {
		endpoint = constants.DefaultAPIURL
	}
	return strings.TrimRight(endpoint, "/")
}

func (f *rootFlags) log() *zap.Logger {
	if f.logger == nil {
		return zap.NewNop()
	}
	return f.logger
}

func NewRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "ey",
		Short: "ey deploys applications to Engine Yard Cloud",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = config.LoadEnvFiles()

			logger, err := logging.NewLoggerFactory().CreateLogger(
				logging.LogLevel(flags.logLevel),
				logging.LogFormat(flags.logFormat),
			)
			if err != nil {
				return err
			}
			flags.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = flags.log().Sync()
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.PersistentFlags().StringVar(&flags.apiURL, "api-url", "", "EY Cloud API URL (default $"+constants.EnvVarAPIURL+" or "+constants.DefaultAPIURL+")")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", string(logging.LogLevelWarn), "Diagnostic log level: debug, info, warn or error")
	cmd.PersistentFlags().StringVar(&flags.logFormat, "log-format", string(logging.LogFormatConsole), "Diagnostic log format: console or structured")

	cmd.AddCommand(
		DeployCmd(flags),
		RollbackCmd(flags),
		StatusCmd(flags),
		WebCmd(flags),
		LaunchCmd(flags),
		DeploymentsCmd(flags),
		EnvironmentsCmd(flags),
		LoginCmd(flags),
		LogoutCmd(flags),
		WhoamiCmd(flags),
		VersionCmd(),
		CompletionCmd(),
	)

	return cmd
}
