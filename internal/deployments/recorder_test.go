package deployments

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ameistad/eydeploy/internal/apitypes"
	"github.com/ameistad/eydeploy/internal/config"
	"github.com/ameistad/eydeploy/internal/deploy"
	"github.com/ameistad/eydeploy/internal/storage"
	"github.com/ameistad/eydeploy/internal/ui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeAPI struct {
	started   []apitypes.Deployment
	finished  []apitypes.Deployment
	startErr  error
	finishErr error
	last      *apitypes.Deployment
	nextID    int
}

func (f *fakeAPI) StartDeployment(ctx context.Context, appID, environmentID int, d apitypes.Deployment) (*apitypes.Deployment, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	f.nextID++
	d.ID = f.nextID
	f.started = append(f.started, d)
	return &d, nil
}

func (f *fakeAPI) FinishDeployment(ctx context.Context, appID, environmentID int, d apitypes.Deployment) (*apitypes.Deployment, error) {
	f.finished = append(f.finished, d)
	if f.finishErr != nil {
		return nil, f.finishErr
	}
	return &d, nil
}

func (f *fakeAPI) LastDeployment(ctx context.Context, appID, environmentID int) (*apitypes.Deployment, error) {
	return f.last, nil
}

type brokenJournal struct{}

func (brokenJournal) SaveDeployment(ctx context.Context, d storage.Deployment) (string, error) {
	return "", errors.New("disk full")
}

func (brokenJournal) FinishDeployment(ctx context.Context, id string, successful bool, output string, finishedAt time.Time) error {
	return errors.New("disk full")
}

func (brokenJournal) PruneDeployments(ctx context.Context, appName, environmentName string, keep int) (int64, error) {
	return 0, errors.New("disk full")
}

var testClock = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

func testBinding(t *testing.T) *deploy.AppEnvironment {
	t.Helper()
	binding, err := deploy.NewAppEnvironment(5,
		&apitypes.App{ID: 1, Name: "rails", Account: &apitypes.Account{Name: "acme"}},
		&apitypes.Environment{ID: 2, Name: "rails_production"},
	)
	require.NoError(t, err)
	return binding
}

func openJournal(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "deployments.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRecorder_StartAndFinish(t *testing.T) {
	api := &fakeAPI{}
	journal := openJournal(t)
	recorder := NewRecorder(api, nil, WithJournal(journal, 10), WithDeployedBy("dev@example.com"), WithClock(testClock))
	ctx := context.Background()

	record, err := recorder.Started(ctx, testBinding(t), "master", "rake db:migrate")
	require.NoError(t, err)

	require.Len(t, api.started, 1)
	assert.Equal(t, "master", api.started[0].Ref)
	assert.True(t, api.started[0].Migrate)
	assert.Equal(t, "rake db:migrate", api.started[0].MigrationCommand)
	assert.Equal(t, "dev@example.com", api.started[0].DeployedBy)

	assert.Equal(t, "master", record.Ref())
	assert.Equal(t, "rake db:migrate", record.MigrationCommand())
	assert.False(t, record.Successful())

	rec := record.(*Record)
	require.Len(t, rec.JournalID(), 26)
	entry, err := journal.GetDeployment(ctx, rec.JournalID())
	require.NoError(t, err)
	assert.Equal(t, 1, entry.APIID)
	assert.Equal(t, "acme", entry.AccountName)
	assert.Equal(t, "rails_production", entry.EnvironmentName)
	assert.Equal(t, "rake db:migrate", entry.MigrationCommand)
	assert.Equal(t, storage.StatusStarted, entry.Status)

	record.AppendOutput([]byte("step 1\n"))
	record.AppendOutput([]byte("step 2\n"))
	record.MarkSuccessful()
	require.NoError(t, record.Finished(ctx))

	require.Len(t, api.finished, 1)
	assert.True(t, api.finished[0].Successful)
	assert.Equal(t, "step 1\nstep 2\n", api.finished[0].Output)
	assert.NotNil(t, api.finished[0].FinishedAt)

	entry, err = journal.GetDeployment(ctx, rec.JournalID())
	require.NoError(t, err)
	assert.Equal(t, storage.StatusSucceeded, entry.Status)
	assert.Equal(t, "step 1\nstep 2\n", entry.Output)

	assert.ErrorIs(t, record.Finished(ctx), ErrAlreadyFinished)
}

func TestRecorder_NoMigration(t *testing.T) {
	api := &fakeAPI{}
	recorder := NewRecorder(api, nil)

	record, err := recorder.Started(context.Background(), testBinding(t), "master", "")
	require.NoError(t, err)
	assert.False(t, api.started[0].Migrate)
	assert.Empty(t, record.(*Record).JournalID())
}

func TestRecorder_StartError(t *testing.T) {
	api := &fakeAPI{startErr: errors.New("api down")}
	journal := openJournal(t)
	recorder := NewRecorder(api, nil, WithJournal(journal, 10))

	_, err := recorder.Started(context.Background(), testBinding(t), "master", "")
	require.Error(t, err)

	entries, err := journal.ListDeployments(context.Background(), "", "", 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRecorder_FinishErrorStillUpdatesJournal(t *testing.T) {
	api := &fakeAPI{finishErr: errors.New("api down")}
	journal := openJournal(t)
	recorder := NewRecorder(api, nil, WithJournal(journal, 10))
	ctx := context.Background()

	record, err := recorder.Started(ctx, testBinding(t), "master", "")
	require.NoError(t, err)
	err = record.Finished(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api down")

	entry, err := journal.GetDeployment(ctx, record.(*Record).JournalID())
	require.NoError(t, err)
	assert.Equal(t, storage.StatusFailed, entry.Status)
}

func TestRecorder_JournalFailuresAreWarnings(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	api := &fakeAPI{}
	recorder := NewRecorder(api, zap.New(core), WithJournal(brokenJournal{}, 10))
	ctx := context.Background()

	record, err := recorder.Started(ctx, testBinding(t), "master", "")
	require.NoError(t, err)
	require.NoError(t, record.Finished(ctx))

	assert.Equal(t, 1, logs.FilterMessage("failed to save deployment to journal").Len())
}

func TestRecorder_PrunesJournal(t *testing.T) {
	api := &fakeAPI{}
	journal := openJournal(t)
	recorder := NewRecorder(api, nil, WithJournal(journal, 2))
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		record, err := recorder.Started(ctx, testBinding(t), "master", "")
		require.NoError(t, err)
		require.NoError(t, record.Finished(ctx))
	}

	entries, err := journal.ListDeployments(ctx, "rails", "rails_production", 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 4, entries[0].APIID)
	assert.Equal(t, 3, entries[1].APIID)
}

func TestRecorder_Last(t *testing.T) {
	api := &fakeAPI{last: &apitypes.Deployment{ID: 7}}
	recorder := NewRecorder(api, nil)

	last, err := recorder.Last(context.Background(), testBinding(t))
	require.NoError(t, err)
	assert.Equal(t, 7, last.ID)
}

type failingBridge struct{}

func (failingBridge) Deploy(ctx context.Context, record deploy.Record, cfg config.EnvironmentConfig, verbose bool) error {
	record.AppendOutput([]byte("bundle install failed\n"))
	return errors.New("exit status 1")
}

func (failingBridge) Rollback(ctx context.Context, binding *deploy.AppEnvironment, cfg config.EnvironmentConfig, verbose bool) error {
	return nil
}

func (failingBridge) PutUpMaintenancePage(ctx context.Context, app *apitypes.App, verbose bool) error {
	return nil
}

func (failingBridge) TakeDownMaintenancePage(ctx context.Context, app *apitypes.App, verbose bool) error {
	return nil
}

func (failingBridge) HostnameURL() (string, error) { return "", nil }

func TestRecorder_WithCoordinatorFailedDeploy(t *testing.T) {
	t.Cleanup(ui.SetOutput(&nopWriter{}))
	api := &fakeAPI{}
	journal := openJournal(t)
	recorder := NewRecorder(api, nil, WithJournal(journal, 10))

	coordinator, err := deploy.NewCoordinator(testBinding(t), deploy.Dependencies{
		Config:   &config.ProjectConfig{},
		Bridge:   failingBridge{},
		Recorder: recorder,
	})
	require.NoError(t, err)

	err = coordinator.Deploy(context.Background(), "master", deploy.DeployOptions{})
	require.EqualError(t, err, "exit status 1")

	require.Len(t, api.finished, 1)
	assert.False(t, api.finished[0].Successful)
	assert.Equal(t, "bundle install failed\n", api.finished[0].Output)

	entries, err := journal.ListDeployments(context.Background(), "rails", "rails_production", 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, storage.StatusFailed, entries[0].Status)
}

type nopWriter struct{}

func (*nopWriter) Write(p []byte) (int, error) { return len(p), nil }
