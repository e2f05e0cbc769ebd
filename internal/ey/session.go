package ey

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ameistad/eydeploy/internal/apiclient"
	"github.com/ameistad/eydeploy/internal/bridge"
	"github.com/ameistad/eydeploy/internal/config"
	"github.com/ameistad/eydeploy/internal/constants"
	"github.com/ameistad/eydeploy/internal/deploy"
	"github.com/ameistad/eydeploy/internal/deployments"
	"github.com/ameistad/eydeploy/internal/execshell"
	"github.com/ameistad/eydeploy/internal/gitrepo"
	"github.com/ameistad/eydeploy/internal/helpers"
	"github.com/ameistad/eydeploy/internal/resolver"
	"github.com/ameistad/eydeploy/internal/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// targetFlags select the app environment a command acts on.
type targetFlags struct {
	app         string
	environment string
	account     string
}

func (t *targetFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&t.app, "app", "a", "", "Name of the application (default: matched from git remotes)")
	cmd.Flags().StringVarP(&t.environment, "environment", "e", "", "Name of the environment")
	cmd.Flags().StringVarP(&t.account, "account", "c", "", "Name of the account")
}

func (t *targetFlags) query() resolver.Query {
	return resolver.Query{
		AppName:         t.app,
		EnvironmentName: t.environment,
		AccountName:     t.account,
	}
}

func newAPIClient(flags *rootFlags) (*apiclient.APIClient, error) {
	endpoint := flags.endpoint()
	token, err := config.LoadAPIToken(endpoint)
	if err != nil {
		return nil, err
	}
	return apiclient.New(endpoint, token, flags.log())
}

func newExecutor(flags *rootFlags) (*execshell.ShellExecutor, error) {
	return execshell.NewShellExecutor(flags.log(), execshell.NewOSCommandRunner())
}

func openRepo(flags *rootFlags) (*gitrepo.Repo, error) {
	rc, err := gitrepo.ContextFromEnv()
	if err != nil {
		return nil, err
	}
	executor, err := newExecutor(flags)
	if err != nil {
		return nil, err
	}
	return gitrepo.Open(rc, executor), nil
}

// resolveBinding finds the app environment for target. Without --app the
// app is matched against the repository's remotes.
func resolveBinding(ctx context.Context, client *apiclient.APIClient, repo *gitrepo.Repo, target *targetFlags) (*deploy.AppEnvironment, error) {
	query := target.query()
	if query.AppName == "" {
		if err := repo.FailOnNoRemotes(ctx); err != nil {
			return nil, fmt.Errorf("cannot infer the app, use --app: %w", err)
		}
		remotes, err := repo.RemoteURLs(ctx)
		if err != nil {
			return nil, err
		}
		query.Remotes = remotes
	}

	all, err := client.AppEnvironments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list app environments: %w", err)
	}
	return resolver.Resolve(all, query)
}

// loadProjectConfig reads ey.yml from the top of the repository, or from the
// working directory outside one.
func loadProjectConfig(repo *gitrepo.Repo) (*config.ProjectConfig, error) {
	dir, err := repo.Root()
	if errors.Is(err, gitrepo.ErrNotAGitRepository) {
		dir, err = os.Getwd()
	}
	if err != nil {
		return nil, err
	}
	return config.LoadProjectConfig(dir)
}

func openJournal() (*storage.DB, error) {
	path, err := config.JournalPath()
	if err != nil {
		return nil, err
	}
	return storage.Open(path)
}

type sessionOptions struct {
	// identifyUser looks up the current user to stamp deployment records.
	identifyUser bool
}

// session wires the coordinator for one command invocation.
type session struct {
	logger      *zap.Logger
	client      *apiclient.APIClient
	repo        *gitrepo.Repo
	binding     *deploy.AppEnvironment
	journal     *storage.DB
	output      *helpers.PrefixWriter
	coordinator *deploy.Coordinator
}

func openSession(ctx context.Context, flags *rootFlags, target *targetFlags, opts sessionOptions) (*session, error) {
	logger := flags.log()

	client, err := newAPIClient(flags)
	if err != nil {
		return nil, err
	}
	repo, err := openRepo(flags)
	if err != nil {
		return nil, err
	}
	binding, err := resolveBinding(ctx, client, repo, target)
	if err != nil {
		return nil, err
	}
	projectConfig, err := loadProjectConfig(repo)
	if err != nil {
		return nil, err
	}

	s := &session{
		logger:  logger,
		client:  client,
		repo:    repo,
		binding: binding,
		output:  helpers.NewPrefixWriter(os.Stdout, "["+binding.ShortEnvironmentName()+"] "),
	}

	var recorderOpts []deployments.Option
	if journal, err := openJournal(); err != nil {
		logger.Warn("local deployment journal unavailable", zap.Error(err))
	} else {
		s.journal = journal
		recorderOpts = append(recorderOpts, deployments.WithJournal(journal, constants.DefaultDeploymentsToKeep))
	}
	if opts.identifyUser {
		if user, err := client.CurrentUser(ctx); err != nil {
			logger.Warn("failed to look up current user", zap.Error(err))
		} else {
			recorderOpts = append(recorderOpts, deployments.WithDeployedBy(user.Name))
		}
	}

	br := bridge.NewSSH(binding.Environment, os.Getenv(constants.EnvVarSSHIdentity), logger, bridge.WithOutput(s.output))
	s.coordinator, err = deploy.NewCoordinator(binding, deploy.Dependencies{
		Config:   projectConfig,
		Bridge:   br,
		Recorder: deployments.NewRecorder(client, logger, recorderOpts...),
		Logger:   logger,
	})
	if err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *session) Close() {
	if err := s.output.Flush(); err != nil {
		s.logger.Debug("failed to flush remote output", zap.Error(err))
	}
	if s.journal != nil {
		if err := s.journal.Close(); err != nil {
			s.logger.Warn("failed to close deployment journal", zap.Error(err))
		}
	}
}

func toExtras(options map[string]string) map[string]any {
	if len(options) == 0 {
		return nil
	}
	extras := make(map[string]any, len(options))
	for k, v := range options {
		extras[k] = v
	}
	return extras
}
