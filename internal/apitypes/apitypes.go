package apitypes

import "time"

type Account struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type App struct {
	ID            int      `json:"id"`
	Name          string   `json:"name"`
	RepositoryURI string   `json:"repository_uri"`
	AppType       string   `json:"app_type_id,omitempty"`
	Account       *Account `json:"account,omitempty"`
}

// AccountName is "" when the API did not embed the account.
func (a *App) AccountName() string {
	if a == nil || a.Account == nil {
		return ""
	}
	return a.Account.Name
}

type Instance struct {
	ID             int    `json:"id"`
	Role           string `json:"role"`
	Name           string `json:"name,omitempty"`
	Status         string `json:"status"`
	AmazonID       string `json:"amazon_id,omitempty"`
	PublicHostname string `json:"public_hostname"`
}

// IsRunning reports whether the instance can accept SSH commands.
func (i *Instance) IsRunning() bool {
	return i != nil && i.Status == "running" && i.PublicHostname != ""
}

// MigrateConfig is the legacy per-app migration setting stored on the environment.
type MigrateConfig struct {
	Command string `json:"command"`
	Perform *bool  `json:"perform"`
}

type DeploymentConfiguration struct {
	Migrate *MigrateConfig `json:"migrate,omitempty"`
}

type Environment struct {
	ID                       int                                `json:"id"`
	Name                     string                             `json:"name"`
	FrameworkEnv             string                             `json:"framework_env"`
	Username                 string                             `json:"username"`
	AppServerStack           string                             `json:"app_server_stack_name"`
	ServersideVersion        string                             `json:"deployment_version,omitempty"`
	LoadBalancerIPAddress    string                             `json:"load_balancer_ip_address,omitempty"`
	Account                  *Account                           `json:"account,omitempty"`
	AppMaster                *Instance                          `json:"app_master,omitempty"`
	Instances                []Instance                         `json:"instances,omitempty"`
	DeploymentConfigurations map[string]DeploymentConfiguration `json:"deployment_configurations,omitempty"`
}

func (e *Environment) AccountName() string {
	if e == nil || e.Account == nil {
		return ""
	}
	return e.Account.Name
}

// AppEnvironment is the API's join of one app to one environment.
type AppEnvironment struct {
	ID          int          `json:"id"`
	App         *App         `json:"app"`
	Environment *Environment `json:"environment"`
}

type Deployment struct {
	ID               int        `json:"id,omitempty"`
	Ref              string     `json:"ref"`
	Commit           string     `json:"commit,omitempty"`
	Migrate          bool       `json:"migrate"`
	MigrationCommand string     `json:"migrate_command,omitempty"`
	Successful       bool       `json:"successful"`
	Output           string     `json:"output,omitempty"`
	DeployedBy       string     `json:"deployed_by,omitempty"`
	CreatedAt        *time.Time `json:"created_at,omitempty"`
	FinishedAt       *time.Time `json:"finished_at,omitempty"`
}

// Finished reports whether the deployment has been closed out.
func (d *Deployment) Finished() bool {
	return d != nil && d.FinishedAt != nil
}

type User struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type CurrentUserResponse struct {
	User User `json:"user"`
}

type AppEnvironmentsResponse struct {
	AppEnvironments []AppEnvironment `json:"app_environments"`
}

type StartDeploymentRequest struct {
	Deployment Deployment `json:"deployment"`
}

type DeploymentResponse struct {
	Deployment Deployment `json:"deployment"`
}

type FinishDeploymentRequest struct {
	Deployment Deployment `json:"deployment"`
}
