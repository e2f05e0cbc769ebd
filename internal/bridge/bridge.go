package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ameistad/eydeploy/internal/apitypes"
	"github.com/ameistad/eydeploy/internal/config"
	"github.com/ameistad/eydeploy/internal/constants"
	"github.com/ameistad/eydeploy/internal/deploy"
	"go.uber.org/zap"
)

var ErrNoAppMaster = errors.New("environment has no running app master")

const serversideBinary = "engineyard-serverside"

// Bridge drives engineyard-serverside on the environment's app master.
type Bridge struct {
	env               *apitypes.Environment
	executor          Executor
	serversideVersion string
	output            io.Writer
	logger            *zap.Logger
}

type Option func(*Bridge)

// WithOutput streams remote output to w in addition to the deployment record.
func WithOutput(w io.Writer) Option {
	return func(b *Bridge) { b.output = w }
}

func WithServersideVersion(version string) Option {
	return func(b *Bridge) { b.serversideVersion = version }
}

func WithLogger(logger *zap.Logger) Option {
	return func(b *Bridge) {
		if logger != nil {
			b.logger = logger
		}
	}
}

func New(env *apitypes.Environment, executor Executor, opts ...Option) *Bridge {
	b := &Bridge{
		env:               env,
		executor:          executor,
		serversideVersion: env.ServersideVersion,
		output:            os.Stdout,
		logger:            zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.serversideVersion == "" {
		b.serversideVersion = constants.DefaultServersideVersion
	}
	return b
}

// NewSSH connects as the environment's deploy user.
func NewSSH(env *apitypes.Environment, identityFile string, logger *zap.Logger, opts ...Option) *Bridge {
	user := env.Username
	if user == "" {
		user = constants.DefaultDeployUser
	}
	executor := &SSHExecutor{
		User:         user,
		Port:         constants.DefaultSSHPort,
		IdentityFile: identityFile,
		Logger:       logger,
	}
	return New(env, executor, append([]Option{WithLogger(logger)}, opts...)...)
}

func (b *Bridge) appMasterHost() (string, error) {
	if !b.env.AppMaster.IsRunning() {
		return "", fmt.Errorf("%w: %s", ErrNoAppMaster, b.env.Name)
	}
	return b.env.AppMaster.PublicHostname, nil
}

func (b *Bridge) Deploy(ctx context.Context, record deploy.Record, cfg config.EnvironmentConfig, verbose bool) error {
	binding := record.Binding()
	args := b.commonArgs(binding.App, verbose)
	args = append(args,
		"--account-name", binding.AccountName(),
		"--ref", record.Ref(),
		"--repo", binding.RepositoryURI(),
	)
	if cmd := record.MigrationCommand(); cmd != "" {
		args = append(args, "--migrate", cmd)
	}
	configArgs, err := configFlag(cfg)
	if err != nil {
		return err
	}
	args = append(args, configArgs...)

	err = b.run(ctx, "deploy", args, recordWriter{record})
	if err != nil {
		return err
	}
	record.MarkSuccessful()
	return nil
}

func (b *Bridge) Rollback(ctx context.Context, binding *deploy.AppEnvironment, cfg config.EnvironmentConfig, verbose bool) error {
	args := b.commonArgs(binding.App, verbose)
	args = append(args, "--account-name", binding.AccountName())
	configArgs, err := configFlag(cfg)
	if err != nil {
		return err
	}
	return b.run(ctx, "rollback", append(args, configArgs...), nil)
}

func (b *Bridge) PutUpMaintenancePage(ctx context.Context, app *apitypes.App, verbose bool) error {
	return b.run(ctx, "enable_maintenance", b.commonArgs(app, verbose), nil)
}

func (b *Bridge) TakeDownMaintenancePage(ctx context.Context, app *apitypes.App, verbose bool) error {
	return b.run(ctx, "disable_maintenance", b.commonArgs(app, verbose), nil)
}

// HostnameURL prefers the load balancer address over the app master.
func (b *Bridge) HostnameURL() (string, error) {
	if b.env.LoadBalancerIPAddress != "" {
		return "http://" + b.env.LoadBalancerIPAddress, nil
	}
	host, err := b.appMasterHost()
	if err != nil {
		return "", err
	}
	return "http://" + host, nil
}

func (b *Bridge) commonArgs(app *apitypes.App, verbose bool) []string {
	frameworkEnv := b.env.FrameworkEnv
	if frameworkEnv == "" {
		frameworkEnv = constants.DefaultFrameworkEnv
	}
	args := []string{
		"--app", app.Name,
		"--environment-name", b.env.Name,
		"--framework-env", frameworkEnv,
	}
	if hosts, roles := b.instances(); len(hosts) > 0 {
		args = append(args, "--instances")
		args = append(args, hosts...)
		args = append(args, "--instance-roles")
		args = append(args, roles...)
	}
	if verbose {
		args = append(args, "--verbose")
	}
	return args
}

// instances lists running instances as hostnames and "host:role" pairs.
func (b *Bridge) instances() ([]string, []string) {
	var hosts, roles []string
	for _, inst := range b.env.Instances {
		if !inst.IsRunning() {
			continue
		}
		hosts = append(hosts, inst.PublicHostname)
		roles = append(roles, inst.PublicHostname+":"+inst.Role)
	}
	return hosts, roles
}

func configFlag(cfg config.EnvironmentConfig) ([]string, error) {
	if len(cfg) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode deploy config: %w", err)
	}
	return []string{"--config", string(data)}, nil
}

func (b *Bridge) run(ctx context.Context, action string, args []string, capture io.Writer) error {
	host, err := b.appMasterHost()
	if err != nil {
		return err
	}
	command := b.Command(action, args)
	b.logger.Debug("running serverside", zap.String("host", host), zap.String("action", action))

	var output io.Writer = b.output
	if capture != nil {
		output = io.MultiWriter(b.output, capture)
	}
	if err := b.executor.Run(ctx, host, command, output); err != nil {
		return fmt.Errorf("%s on %s failed: %w", action, host, err)
	}
	return nil
}

// Command builds the shell command for an engineyard-serverside action.
func (b *Bridge) Command(action string, args []string) string {
	parts := []string{serversideBinary, "_" + b.serversideVersion + "_", action}
	for _, arg := range args {
		parts = append(parts, ShellQuote(arg))
	}
	return strings.Join(parts, " ")
}

// ShellQuote quotes s for a POSIX shell.
func ShellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if strings.IndexFunc(s, needsQuoting) == -1 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func needsQuoting(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return false
	}
	return !strings.ContainsRune("-_./:=@,+%", r)
}

type recordWriter struct {
	record deploy.Record
}

func (w recordWriter) Write(p []byte) (int, error) {
	w.record.AppendOutput(p)
	return len(p), nil
}
