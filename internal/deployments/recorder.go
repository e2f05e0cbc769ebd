package deployments

import (
	"context"
	"time"

	"github.com/ameistad/eydeploy/internal/apitypes"
	"github.com/ameistad/eydeploy/internal/deploy"
	"github.com/ameistad/eydeploy/internal/storage"
	"github.com/jinzhu/copier"
	"go.uber.org/zap"
)

// API is the part of the EY Cloud client that stores deployment records.
type API interface {
	StartDeployment(ctx context.Context, appID, environmentID int, deployment apitypes.Deployment) (*apitypes.Deployment, error)
	FinishDeployment(ctx context.Context, appID, environmentID int, deployment apitypes.Deployment) (*apitypes.Deployment, error)
	LastDeployment(ctx context.Context, appID, environmentID int) (*apitypes.Deployment, error)
}

// Journal mirrors deployment records locally.
type Journal interface {
	SaveDeployment(ctx context.Context, d storage.Deployment) (string, error)
	FinishDeployment(ctx context.Context, id string, successful bool, output string, finishedAt time.Time) error
	PruneDeployments(ctx context.Context, appName, environmentName string, keep int) (int64, error)
}

// Recorder creates deployment records on EY Cloud. Journal failures are
// logged and never fail a deploy.
type Recorder struct {
	api        API
	journal    Journal
	keep       int
	deployedBy string
	logger     *zap.Logger
	now        func() time.Time
}

type Option func(*Recorder)

// WithJournal mirrors every record into j, keeping the newest keep entries
// per environment.
func WithJournal(j Journal, keep int) Option {
	return func(r *Recorder) {
		r.journal = j
		r.keep = keep
	}
}

func WithDeployedBy(name string) Option {
	return func(r *Recorder) { r.deployedBy = name }
}

func WithClock(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

func NewRecorder(api API, logger *zap.Logger, opts ...Option) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Recorder{api: api, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Recorder) Started(ctx context.Context, binding *deploy.AppEnvironment, ref, migrationCommand string) (deploy.Record, error) {
	startedAt := r.now().UTC()
	request := apitypes.Deployment{
		Ref:              ref,
		Migrate:          migrationCommand != "",
		MigrationCommand: migrationCommand,
		DeployedBy:       r.deployedBy,
		CreatedAt:        &startedAt,
	}

	created, err := r.api.StartDeployment(ctx, binding.App.ID, binding.Environment.ID, request)
	if err != nil {
		return nil, err
	}

	record := &Record{
		recorder:   r,
		binding:    binding,
		deployment: *created,
	}
	// The API may echo back fewer fields than were sent.
	if record.deployment.Ref == "" {
		record.deployment.Ref = ref
	}
	if record.deployment.MigrationCommand == "" {
		record.deployment.MigrationCommand = migrationCommand
	}
	if record.deployment.CreatedAt == nil {
		record.deployment.CreatedAt = &startedAt
	}
	record.journalID = r.journalStart(ctx, binding, record.deployment)

	r.logger.Debug("deployment started",
		zap.Int("deployment_id", record.deployment.ID),
		zap.String("journal_id", record.journalID),
		zap.String("ref", ref),
	)
	return record, nil
}

func (r *Recorder) Last(ctx context.Context, binding *deploy.AppEnvironment) (*apitypes.Deployment, error) {
	return r.api.LastDeployment(ctx, binding.App.ID, binding.Environment.ID)
}

func (r *Recorder) journalStart(ctx context.Context, binding *deploy.AppEnvironment, d apitypes.Deployment) string {
	if r.journal == nil {
		return ""
	}

	var entry storage.Deployment
	if err := copier.Copy(&entry, &d); err != nil {
		r.logger.Warn("failed to prepare journal entry", zap.Error(err))
		return ""
	}
	entry.APIID = d.ID
	entry.AccountName = binding.AccountName()
	entry.AppName = binding.AppName()
	entry.EnvironmentName = binding.EnvironmentName()
	entry.Status = storage.StatusStarted
	entry.StartedAt = *d.CreatedAt

	id, err := r.journal.SaveDeployment(ctx, entry)
	if err != nil {
		r.logger.Warn("failed to save deployment to journal", zap.Error(err))
		return ""
	}
	return id
}

func (r *Recorder) journalFinish(ctx context.Context, record *Record) {
	if r.journal == nil || record.journalID == "" {
		return
	}
	d := record.deployment
	if err := r.journal.FinishDeployment(ctx, record.journalID, d.Successful, d.Output, *d.FinishedAt); err != nil {
		r.logger.Warn("failed to finish journal entry", zap.String("journal_id", record.journalID), zap.Error(err))
		return
	}
	if r.keep <= 0 {
		return
	}
	pruned, err := r.journal.PruneDeployments(ctx, record.binding.AppName(), record.binding.EnvironmentName(), r.keep)
	if err != nil {
		r.logger.Warn("failed to prune journal", zap.Error(err))
		return
	}
	if pruned > 0 {
		r.logger.Debug("pruned journal entries", zap.Int64("count", pruned))
	}
}
