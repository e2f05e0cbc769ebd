package deploy

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/ameistad/eydeploy/internal/apitypes"
	"github.com/ameistad/eydeploy/internal/config"
	"github.com/ameistad/eydeploy/internal/ui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeRecord struct {
	binding          *AppEnvironment
	ref              string
	migrationCommand string
	successful       bool
	output           bytes.Buffer
	finishedCalls    int
	finishErr        error
}

func (r *fakeRecord) Binding() *AppEnvironment { return r.binding }
func (r *fakeRecord) Ref() string              { return r.ref }
func (r *fakeRecord) MigrationCommand() string { return r.migrationCommand }
func (r *fakeRecord) MarkSuccessful()          { r.successful = true }
func (r *fakeRecord) Successful() bool         { return r.successful }
func (r *fakeRecord) AppendOutput(p []byte)    { r.output.Write(p) }
func (r *fakeRecord) Finished(ctx context.Context) error {
	r.finishedCalls++
	return r.finishErr
}

type fakeRecorder struct {
	record     *fakeRecord
	startErr   error
	finishErr  error
	last       *apitypes.Deployment
	startCalls int
}

func (f *fakeRecorder) Started(ctx context.Context, binding *AppEnvironment, ref, migrationCommand string) (Record, error) {
	f.startCalls++
	if f.startErr != nil {
		return nil, f.startErr
	}
	f.record = &fakeRecord{binding: binding, ref: ref, migrationCommand: migrationCommand, finishErr: f.finishErr}
	return f.record, nil
}

func (f *fakeRecorder) Last(ctx context.Context, binding *AppEnvironment) (*apitypes.Deployment, error) {
	return f.last, nil
}

type fakeBridge struct {
	deployErr   error
	deployPanic bool
	succeed     bool
	calls       []string
	config      config.EnvironmentConfig
	verbose     bool
	app         *apitypes.App
}

func (b *fakeBridge) Deploy(ctx context.Context, record Record, cfg config.EnvironmentConfig, verbose bool) error {
	b.calls = append(b.calls, "deploy")
	b.config, b.verbose = cfg, verbose
	record.AppendOutput([]byte("deploying\n"))
	if b.deployPanic {
		panic("bridge exploded")
	}
	if b.succeed {
		record.MarkSuccessful()
	}
	return b.deployErr
}

func (b *fakeBridge) Rollback(ctx context.Context, binding *AppEnvironment, cfg config.EnvironmentConfig, verbose bool) error {
	b.calls = append(b.calls, "rollback")
	b.config, b.verbose = cfg, verbose
	return nil
}

func (b *fakeBridge) PutUpMaintenancePage(ctx context.Context, app *apitypes.App, verbose bool) error {
	b.calls = append(b.calls, "maintenance:up")
	b.app = app
	return nil
}

func (b *fakeBridge) TakeDownMaintenancePage(ctx context.Context, app *apitypes.App, verbose bool) error {
	b.calls = append(b.calls, "maintenance:down")
	b.app = app
	return nil
}

func (b *fakeBridge) HostnameURL() (string, error) {
	return "http://rails.example.com", nil
}

type fakeConfig struct {
	environments map[string]config.EnvironmentConfig
}

func (f fakeConfig) Environment(name string) config.EnvironmentConfig {
	if ec, ok := f.environments[name]; ok {
		return ec
	}
	return config.EnvironmentConfig{}
}

func (f fakeConfig) DefaultBranch(name string) string {
	return f.Environment(name).Branch()
}

type coordinatorFixture struct {
	coordinator *Coordinator
	bridge      *fakeBridge
	recorder    *fakeRecorder
	envConfig   config.EnvironmentConfig
	output      *bytes.Buffer
	logs        *observer.ObservedLogs
}

func newFixture(t *testing.T, bridge *fakeBridge, recorder *fakeRecorder) *coordinatorFixture {
	t.Helper()

	binding, err := NewAppEnvironment(1, &apitypes.App{Name: "rails"}, &apitypes.Environment{Name: "rails_production"})
	require.NoError(t, err)

	envConfig := config.EnvironmentConfig{"branch": "master", "migrate": true, "migration_command": "bin/migrate", "copy_exclude": []any{".git"}}
	core, logs := observer.New(zapcore.DebugLevel)

	coordinator, err := NewCoordinator(binding, Dependencies{
		Config:   fakeConfig{environments: map[string]config.EnvironmentConfig{"rails_production": envConfig}},
		Bridge:   bridge,
		Recorder: recorder,
		Logger:   zap.New(core),
	})
	require.NoError(t, err)

	var output bytes.Buffer
	t.Cleanup(ui.SetOutput(&output))

	return &coordinatorFixture{
		coordinator: coordinator,
		bridge:      bridge,
		recorder:    recorder,
		envConfig:   envConfig,
		output:      &output,
		logs:        logs,
	}
}

func TestNewCoordinator_Validation(t *testing.T) {
	_, err := NewCoordinator(nil, Dependencies{})
	assert.ErrorIs(t, err, ErrInvalidBinding)

	binding, err := NewAppEnvironment(1, &apitypes.App{Name: "rails"}, &apitypes.Environment{Name: "production"})
	require.NoError(t, err)
	_, err = NewCoordinator(binding, Dependencies{Bridge: &fakeBridge{}})
	assert.Error(t, err)
}

func TestCoordinator_DeploySuccess(t *testing.T) {
	f := newFixture(t, &fakeBridge{succeed: true}, &fakeRecorder{})

	err := f.coordinator.Deploy(context.Background(), "master", DeployOptions{
		Extras:  map[string]any{"migration_command": "overridden", "maintenance": "on"},
		Verbose: true,
	})
	require.NoError(t, err)

	record := f.recorder.record
	require.NotNil(t, record)
	assert.Equal(t, "master", record.ref)
	assert.Equal(t, "bin/migrate", record.migrationCommand, "extras do not feed migration resolution")
	assert.Equal(t, 1, record.finishedCalls)
	assert.Equal(t, "deploying\n", record.output.String())

	assert.Equal(t, "overridden", f.bridge.config["migration_command"])
	assert.Equal(t, "on", f.bridge.config["maintenance"])
	assert.True(t, f.bridge.verbose)
	assert.Equal(t, "bin/migrate", f.envConfig["migration_command"], "environment config is not mutated")
	assert.NotContains(t, f.envConfig, "maintenance")

	assert.Contains(t, f.output.String(), "Successful deployment recorded on EY Cloud")

	started := f.logs.FilterMessage("starting deployment").All()
	require.Len(t, started, 1)
	assert.Equal(t, "bin/migrate", started[0].ContextMap()["migration_command"])
	assert.Equal(t, "rails", started[0].ContextMap()["app"])
}

func TestCoordinator_DeployBridgeFailureStillFinalizes(t *testing.T) {
	bridgeErr := errors.New("serverside failed")
	f := newFixture(t, &fakeBridge{deployErr: bridgeErr}, &fakeRecorder{})

	err := f.coordinator.Deploy(context.Background(), "master", DeployOptions{Migrate: MigrateVeto})
	assert.Same(t, bridgeErr, err, "the bridge error is returned unchanged")

	record := f.recorder.record
	require.NotNil(t, record)
	assert.Equal(t, 1, record.finishedCalls)
	assert.False(t, record.Successful())
	assert.Empty(t, record.migrationCommand)
	assert.Contains(t, f.output.String(), "Failed deployment recorded on EY Cloud")
}

func TestCoordinator_DeployPanicStillFinalizes(t *testing.T) {
	f := newFixture(t, &fakeBridge{deployPanic: true}, &fakeRecorder{})

	assert.PanicsWithValue(t, "bridge exploded", func() {
		_ = f.coordinator.Deploy(context.Background(), "master", DeployOptions{})
	})
	require.NotNil(t, f.recorder.record)
	assert.Equal(t, 1, f.recorder.record.finishedCalls)
	assert.Contains(t, f.output.String(), "Failed deployment recorded on EY Cloud")
}

func TestCoordinator_DeployStartFailureSkipsBridge(t *testing.T) {
	f := newFixture(t, &fakeBridge{}, &fakeRecorder{startErr: errors.New("api down")})

	err := f.coordinator.Deploy(context.Background(), "master", DeployOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api down")
	assert.Empty(t, f.bridge.calls)
	assert.NotContains(t, f.output.String(), "recorded on EY Cloud")
}

func TestCoordinator_DeployFinishFailure(t *testing.T) {
	finishErr := errors.New("finish rejected")

	t.Run("bridge succeeded", func(t *testing.T) {
		f := newFixture(t, &fakeBridge{succeed: true}, &fakeRecorder{finishErr: finishErr})
		err := f.coordinator.Deploy(context.Background(), "master", DeployOptions{})
		assert.ErrorIs(t, err, finishErr)
	})

	t.Run("bridge failed", func(t *testing.T) {
		bridgeErr := errors.New("serverside failed")
		f := newFixture(t, &fakeBridge{deployErr: bridgeErr}, &fakeRecorder{finishErr: finishErr})
		err := f.coordinator.Deploy(context.Background(), "master", DeployOptions{})
		assert.Same(t, bridgeErr, err)
		assert.Equal(t, 1, f.logs.FilterMessage("failed to finish deployment record").Len())
	})
}

func TestCoordinator_DeployCancelledContextStillFinishes(t *testing.T) {
	f := newFixture(t, &fakeBridge{deployErr: context.Canceled}, &fakeRecorder{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := f.coordinator.Deploy(ctx, "master", DeployOptions{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, f.recorder.record.finishedCalls)
}

func TestCoordinator_Rollback(t *testing.T) {
	f := newFixture(t, &fakeBridge{}, &fakeRecorder{})

	err := f.coordinator.Rollback(context.Background(), map[string]any{"hook": "x"}, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"rollback"}, f.bridge.calls)
	assert.Equal(t, "x", f.bridge.config["hook"])
	assert.Equal(t, "master", f.bridge.config["branch"])
	assert.Zero(t, f.recorder.startCalls, "rollback creates no deployment record")
}

func TestCoordinator_MaintenancePages(t *testing.T) {
	f := newFixture(t, &fakeBridge{}, &fakeRecorder{})
	ctx := context.Background()

	require.NoError(t, f.coordinator.PutUpMaintenancePage(ctx, false))
	require.NoError(t, f.coordinator.TakeDownMaintenancePage(ctx, false))
	assert.Equal(t, []string{"maintenance:up", "maintenance:down"}, f.bridge.calls)
	assert.Equal(t, "rails", f.bridge.app.Name)
}

func TestCoordinator_ResolveRefUsesConfiguredBranch(t *testing.T) {
	f := newFixture(t, &fakeBridge{}, &fakeRecorder{})

	ref, err := f.coordinator.ResolveRef("", ForceRef{})
	require.NoError(t, err)
	assert.Equal(t, "master", ref)

	_, err = f.coordinator.ResolveRef("feature", ForceRef{})
	var mismatch *BranchMismatchError
	assert.ErrorAs(t, err, &mismatch)
}

func TestCoordinator_LastDeploymentAndLaunchURL(t *testing.T) {
	last := &apitypes.Deployment{ID: 9, Ref: "master"}
	f := newFixture(t, &fakeBridge{}, &fakeRecorder{last: last})

	got, err := f.coordinator.LastDeployment(context.Background())
	require.NoError(t, err)
	assert.Same(t, last, got)

	url, err := f.coordinator.LaunchURL()
	require.NoError(t, err)
	assert.Equal(t, "http://rails.example.com", url)
}
