package deploy

import (
	"context"
	"errors"
	"fmt"

	"github.com/ameistad/eydeploy/internal/apitypes"
	"github.com/ameistad/eydeploy/internal/config"
	"github.com/ameistad/eydeploy/internal/ui"
	"go.uber.org/zap"
)

// ConfigProvider exposes the per-environment settings from ey.yml.
type ConfigProvider interface {
	// Environment returns an empty config when the environment is not configured.
	Environment(name string) config.EnvironmentConfig
	DefaultBranch(name string) string
}

// Record is one deployment being tracked on EY Cloud.
type Record interface {
	Binding() *AppEnvironment
	Ref() string
	MigrationCommand() string
	MarkSuccessful()
	Successful() bool
	AppendOutput(p []byte)
	Finished(ctx context.Context) error
}

type Recorder interface {
	Started(ctx context.Context, binding *AppEnvironment, ref, migrationCommand string) (Record, error)
	// Last returns nil when the binding has never been deployed.
	Last(ctx context.Context, binding *AppEnvironment) (*apitypes.Deployment, error)
}

// Bridge performs actions on the environment's servers.
type Bridge interface {
	Deploy(ctx context.Context, record Record, cfg config.EnvironmentConfig, verbose bool) error
	Rollback(ctx context.Context, binding *AppEnvironment, cfg config.EnvironmentConfig, verbose bool) error
	PutUpMaintenancePage(ctx context.Context, app *apitypes.App, verbose bool) error
	TakeDownMaintenancePage(ctx context.Context, app *apitypes.App, verbose bool) error
	HostnameURL() (string, error)
}

type DeployOptions struct {
	Migrate MigrateOption
	Extras  map[string]any
	Verbose bool
}

type Dependencies struct {
	Config   ConfigProvider
	Bridge   Bridge
	Recorder Recorder
	Logger   *zap.Logger
}

// Coordinator runs deploy, rollback and maintenance actions for one binding.
type Coordinator struct {
	binding  *AppEnvironment
	config   ConfigProvider
	bridge   Bridge
	recorder Recorder
	logger   *zap.Logger
}

func NewCoordinator(binding *AppEnvironment, deps Dependencies) (*Coordinator, error) {
	if binding == nil {
		return nil, ErrInvalidBinding
	}
	if deps.Config == nil || deps.Bridge == nil || deps.Recorder == nil {
		return nil, errors.New("coordinator requires a config provider, a bridge and a recorder")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		binding:  binding,
		config:   deps.Config,
		bridge:   deps.Bridge,
		recorder: deps.Recorder,
		logger: logger.With(
			zap.String("app", binding.AppName()),
			zap.String("environment", binding.EnvironmentName()),
		),
	}, nil
}

func (c *Coordinator) Binding() *AppEnvironment {
	return c.binding
}

// EnvironmentConfig is the ey.yml section for the bound environment.
func (c *Coordinator) EnvironmentConfig() config.EnvironmentConfig {
	return c.config.Environment(c.binding.EnvironmentName())
}

func (c *Coordinator) DefaultBranch() string {
	return c.config.DefaultBranch(c.binding.EnvironmentName())
}

func (c *Coordinator) ResolveRef(requested string, force ForceRef) (string, error) {
	return ResolveRef(requested, force, c.DefaultBranch())
}

func (c *Coordinator) MigrationCommand(cli MigrateOption) (string, bool) {
	return ResolveMigrationCommand(cli, c.EnvironmentConfig(), c.binding.Legacy)
}

// Deploy records a deployment, runs it through the bridge and finalizes the
// record on every exit path, including panics. A bridge error is returned
// unchanged after the record is finished.
func (c *Coordinator) Deploy(ctx context.Context, ref string, opts DeployOptions) (err error) {
	migrationCommand, migrate := c.MigrationCommand(opts.Migrate)
	merged := c.EnvironmentConfig().Merge(opts.Extras)

	c.logger.Debug("starting deployment",
		zap.String("ref", ref),
		zap.Bool("migrate", migrate),
		zap.String("migration_command", migrationCommand),
		zap.Stringer("migrate_option", opts.Migrate),
	)

	record, err := c.recorder.Started(ctx, c.binding, ref, migrationCommand)
	if err != nil {
		return fmt.Errorf("failed to record deployment start: %w", err)
	}

	defer func() {
		// Finish even when the deploy context was cancelled.
		finishErr := record.Finished(context.WithoutCancel(ctx))
		if finishErr != nil {
			c.logger.Error("failed to finish deployment record", zap.Error(finishErr))
			ui.Warn("Deployment result could not be recorded on EY Cloud: %v", finishErr)
			if err == nil {
				err = fmt.Errorf("failed to record deployment result: %w", finishErr)
			}
			return
		}
		if record.Successful() {
			ui.Info("Successful deployment recorded on EY Cloud")
		} else {
			ui.Info("Failed deployment recorded on EY Cloud")
		}
		c.logger.Debug("deployment finished", zap.Bool("successful", record.Successful()))
	}()

	return c.bridge.Deploy(ctx, record, merged, opts.Verbose)
}

// Rollback returns the environment to its previous release. No deployment
// record is created.
func (c *Coordinator) Rollback(ctx context.Context, extras map[string]any, verbose bool) error {
	c.logger.Debug("starting rollback")
	return c.bridge.Rollback(ctx, c.binding, c.EnvironmentConfig().Merge(extras), verbose)
}

func (c *Coordinator) PutUpMaintenancePage(ctx context.Context, verbose bool) error {
	return c.bridge.PutUpMaintenancePage(ctx, c.binding.App, verbose)
}

func (c *Coordinator) TakeDownMaintenancePage(ctx context.Context, verbose bool) error {
	return c.bridge.TakeDownMaintenancePage(ctx, c.binding.App, verbose)
}

// LastDeployment is nil when the binding has never been deployed.
func (c *Coordinator) LastDeployment(ctx context.Context) (*apitypes.Deployment, error) {
	return c.recorder.Last(ctx, c.binding)
}

// LaunchURL is the public address of the environment.
func (c *Coordinator) LaunchURL() (string, error) {
	return c.bridge.HostnameURL()
}
