package deploy

import (
	"errors"
	"strings"

	"github.com/ameistad/eydeploy/internal/apitypes"
)

var ErrInvalidBinding = errors.New("app environment requires both an app and an environment")

// LegacyMigration is the per-app migration setting the API stores on the
// environment. Perform is nil when the API never set it.
type LegacyMigration struct {
	Perform *bool
	Command string
}

func (l LegacyMigration) enabled() bool {
	return l.Perform != nil && *l.Perform
}

// AppEnvironment binds one app to one environment.
type AppEnvironment struct {
	ID          int
	App         *apitypes.App
	Environment *apitypes.Environment
	Legacy      LegacyMigration
}

// NewAppEnvironment validates the pairing and extracts the legacy migration
// settings for the app from the environment's deployment configurations.
func NewAppEnvironment(id int, app *apitypes.App, env *apitypes.Environment) (*AppEnvironment, error) {
	if app == nil {
		return nil, errors.Join(ErrInvalidBinding, errors.New("app is missing"))
	}
	if env == nil {
		return nil, errors.Join(ErrInvalidBinding, errors.New("environment is missing"))
	}

	binding := &AppEnvironment{ID: id, App: app, Environment: env}
	if dc, ok := env.DeploymentConfigurations[app.Name]; ok && dc.Migrate != nil {
		binding.Legacy = LegacyMigration{
			Perform: dc.Migrate.Perform,
			Command: dc.Migrate.Command,
		}
	}
	return binding, nil
}

// FromAPI builds a binding from an app_environments entry.
func FromAPI(ae apitypes.AppEnvironment) (*AppEnvironment, error) {
	return NewAppEnvironment(ae.ID, ae.App, ae.Environment)
}

func (b *AppEnvironment) AccountName() string {
	if name := b.App.AccountName(); name != "" {
		return name
	}
	return b.Environment.AccountName()
}

func (b *AppEnvironment) AppName() string         { return b.App.Name }
func (b *AppEnvironment) EnvironmentName() string { return b.Environment.Name }
func (b *AppEnvironment) RepositoryURI() string   { return b.App.RepositoryURI }

// ShortEnvironmentName drops a leading "<app>_" from the environment name.
func (b *AppEnvironment) ShortEnvironmentName() string {
	return strings.TrimPrefix(b.Environment.Name, b.App.Name+"_")
}

func (b *AppEnvironment) String() string {
	return b.AppName() + " on " + b.EnvironmentName()
}
