package deployments

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/ameistad/eydeploy/internal/apitypes"
	"github.com/ameistad/eydeploy/internal/deploy"
)

var ErrAlreadyFinished = errors.New("deployment already finished")

// Record tracks one started deployment until it is finished.
type Record struct {
	recorder   *Recorder
	binding    *deploy.AppEnvironment
	deployment apitypes.Deployment
	journalID  string
	output     bytes.Buffer
	successful bool
}

func (r *Record) Binding() *deploy.AppEnvironment { return r.binding }
func (r *Record) Ref() string                     { return r.deployment.Ref }
func (r *Record) MigrationCommand() string        { return r.deployment.MigrationCommand }
func (r *Record) MarkSuccessful()                 { r.successful = true }
func (r *Record) Successful() bool                { return r.successful }
func (r *Record) AppendOutput(p []byte)           { r.output.Write(p) }

// Deployment is the API view of the record.
func (r *Record) Deployment() apitypes.Deployment { return r.deployment }

// JournalID is "" when the record is not mirrored locally.
func (r *Record) JournalID() string { return r.journalID }

// Finished reports the result to EY Cloud and the journal. It may be called
// only once.
func (r *Record) Finished(ctx context.Context) error {
	if r.deployment.Finished() {
		return ErrAlreadyFinished
	}

	finishedAt := r.recorder.now().UTC()
	r.deployment.Successful = r.successful
	r.deployment.Output = r.output.String()
	r.deployment.FinishedAt = &finishedAt

	updated, err := r.recorder.api.FinishDeployment(ctx, r.binding.App.ID, r.binding.Environment.ID, r.deployment)
	r.recorder.journalFinish(ctx, r)
	if err != nil {
		return fmt.Errorf("failed to finish deployment %d: %w", r.deployment.ID, err)
	}
	if updated != nil && updated.FinishedAt != nil {
		r.deployment.FinishedAt = updated.FinishedAt
	}
	return nil
}
