package bridge

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/ameistad/eydeploy/internal/apitypes"
	"github.com/ameistad/eydeploy/internal/config"
	"github.com/ameistad/eydeploy/internal/deploy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingExecutor struct {
	output   string
	err      error
	hosts    []string
	commands []string
}

func (e *recordingExecutor) Run(ctx context.Context, host, command string, output io.Writer) error {
	e.hosts = append(e.hosts, host)
	e.commands = append(e.commands, command)
	_, _ = io.WriteString(output, e.output)
	return e.err
}

type testRecord struct {
	binding          *deploy.AppEnvironment
	ref              string
	migrationCommand string
	successful       bool
	output           bytes.Buffer
}

func (r *testRecord) Binding() *deploy.AppEnvironment    { return r.binding }
func (r *testRecord) Ref() string                        { return r.ref }
func (r *testRecord) MigrationCommand() string           { return r.migrationCommand }
func (r *testRecord) MarkSuccessful()                    { r.successful = true }
func (r *testRecord) Successful() bool                   { return r.successful }
func (r *testRecord) AppendOutput(p []byte)              { r.output.Write(p) }
func (r *testRecord) Finished(ctx context.Context) error { return nil }

func testEnvironment() *apitypes.Environment {
	return &apitypes.Environment{
		ID:                2,
		Name:              "rails_production",
		FrameworkEnv:      "production",
		ServersideVersion: "2.6.3",
		AppMaster:         &apitypes.Instance{Role: "app_master", Status: "running", PublicHostname: "ec2-1.compute.amazonaws.com"},
		Instances: []apitypes.Instance{
			{Role: "app_master", Status: "running", PublicHostname: "ec2-1.compute.amazonaws.com"},
			{Role: "db_master", Status: "running", PublicHostname: "ec2-2.compute.amazonaws.com"},
			{Role: "util", Status: "stopped", PublicHostname: "ec2-3.compute.amazonaws.com"},
		},
	}
}

func testRecordFor(t *testing.T, env *apitypes.Environment) *testRecord {
	t.Helper()
	binding, err := deploy.NewAppEnvironment(1,
		&apitypes.App{ID: 1, Name: "rails", RepositoryURI: "git@github.com:acme/rails.git", Account: &apitypes.Account{Name: "acme"}},
		env,
	)
	require.NoError(t, err)
	return &testRecord{binding: binding, ref: "master", migrationCommand: "rake db:migrate"}
}

func TestBridge_DeploySuccess(t *testing.T) {
	env := testEnvironment()
	executor := &recordingExecutor{output: "~> Deploying\n"}
	var stream bytes.Buffer
	b := New(env, executor, WithOutput(&stream))
	record := testRecordFor(t, env)

	err := b.Deploy(context.Background(), record, config.EnvironmentConfig{"branch": "master"}, true)
	require.NoError(t, err)

	assert.True(t, record.Successful())
	assert.Equal(t, "~> Deploying\n", record.output.String())
	assert.Equal(t, "~> Deploying\n", stream.String())
	assert.Equal(t, []string{"ec2-1.compute.amazonaws.com"}, executor.hosts)

	want := "engineyard-serverside _2.6.3_ deploy" +
		" --app rails --environment-name rails_production --framework-env production" +
		" --instances ec2-1.compute.amazonaws.com ec2-2.compute.amazonaws.com" +
		" --instance-roles ec2-1.compute.amazonaws.com:app_master ec2-2.compute.amazonaws.com:db_master" +
		" --verbose --account-name acme --ref master --repo git@github.com:acme/rails.git" +
		" --migrate 'rake db:migrate' --config '{\"branch\":\"master\"}'"
	assert.Equal(t, want, executor.commands[0])
}

func TestBridge_DeployFailure(t *testing.T) {
	env := testEnvironment()
	remoteErr := errors.New("exit status 1")
	executor := &recordingExecutor{output: "bundle failed\n", err: remoteErr}
	b := New(env, executor, WithOutput(io.Discard))
	record := testRecordFor(t, env)
	record.migrationCommand = ""

	err := b.Deploy(context.Background(), record, nil, false)
	assert.ErrorIs(t, err, remoteErr)
	assert.False(t, record.Successful())
	assert.Equal(t, "bundle failed\n", record.output.String())
	assert.NotContains(t, executor.commands[0], "--migrate")
	assert.NotContains(t, executor.commands[0], "--config")
	assert.NotContains(t, executor.commands[0], "--verbose")
}

func TestBridge_NoAppMaster(t *testing.T) {
	env := testEnvironment()
	env.AppMaster.Status = "stopped"
	executor := &recordingExecutor{}
	b := New(env, executor, WithOutput(io.Discard))

	err := b.Deploy(context.Background(), testRecordFor(t, env), nil, false)
	assert.ErrorIs(t, err, ErrNoAppMaster)
	assert.Empty(t, executor.commands)

	_, err = b.HostnameURL()
	assert.ErrorIs(t, err, ErrNoAppMaster)

	env.AppMaster = nil
	assert.ErrorIs(t, b.PutUpMaintenancePage(context.Background(), &apitypes.App{Name: "rails"}, false), ErrNoAppMaster)
}

func TestBridge_RollbackAndMaintenance(t *testing.T) {
	env := testEnvironment()
	env.ServersideVersion = ""
	env.Instances = nil
	executor := &recordingExecutor{}
	b := New(env, executor, WithOutput(io.Discard))
	record := testRecordFor(t, env)
	ctx := context.Background()

	require.NoError(t, b.Rollback(ctx, record.binding, config.EnvironmentConfig{}, false))
	require.NoError(t, b.PutUpMaintenancePage(ctx, record.binding.App, false))
	require.NoError(t, b.TakeDownMaintenancePage(ctx, record.binding.App, false))

	assert.Equal(t, []string{
		"engineyard-serverside _2.8.0_ rollback --app rails --environment-name rails_production --framework-env production --account-name acme",
		"engineyard-serverside _2.8.0_ enable_maintenance --app rails --environment-name rails_production --framework-env production",
		"engineyard-serverside _2.8.0_ disable_maintenance --app rails --environment-name rails_production --framework-env production",
	}, executor.commands)
}

func TestBridge_HostnameURL(t *testing.T) {
	env := testEnvironment()
	b := New(env, &recordingExecutor{})

	url, err := b.HostnameURL()
	require.NoError(t, err)
	assert.Equal(t, "http://ec2-1.compute.amazonaws.com", url)

	env.LoadBalancerIPAddress = "203.0.113.10"
	url, err = b.HostnameURL()
	require.NoError(t, err)
	assert.Equal(t, "http://203.0.113.10", url)
}

func TestShellQuote(t *testing.T) {
	tests := map[string]string{
		"":                  "''",
		"master":            "master",
		"feature/login-2.0": "feature/login-2.0",
		"rake db:migrate":   "'rake db:migrate'",
		"it's":              `'it'\''s'`,
		"$(rm -rf /)":       "'$(rm -rf /)'",
	}
	for input, want := range tests {
		assert.Equal(t, want, ShellQuote(input), input)
	}
}
