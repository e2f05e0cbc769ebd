package apiclient

import (
	"context"
	"errors"
	"fmt"

	"github.com/ameistad/eydeploy/internal/apitypes"
)

func (c *APIClient) CurrentUser(ctx context.Context) (*apitypes.User, error) {
	var response apitypes.CurrentUserResponse
	if err := c.get(ctx, "users/current", &response); err != nil {
		return nil, err
	}
	return &response.User, nil
}

// AppEnvironments lists every app/environment pairing visible to the token.
func (c *APIClient) AppEnvironments(ctx context.Context) ([]apitypes.AppEnvironment, error) {
	var response apitypes.AppEnvironmentsResponse
	if err := c.get(ctx, "app_environments", &response); err != nil {
		return nil, err
	}
	return response.AppEnvironments, nil
}

func deploymentsPath(appID, environmentID int) string {
	return fmt.Sprintf("apps/%d/environments/%d/deployments", appID, environmentID)
}

// StartDeployment records a deployment as started and returns the stored record.
func (c *APIClient) StartDeployment(ctx context.Context, appID, environmentID int, deployment apitypes.Deployment) (*apitypes.Deployment, error) {
	request := apitypes.StartDeploymentRequest{Deployment: deployment}
	var response apitypes.DeploymentResponse
	if err := c.post(ctx, deploymentsPath(appID, environmentID), request, &response); err != nil {
		return nil, err
	}
	return &response.Deployment, nil
}

// FinishDeployment closes out a started deployment with its result and output.
func (c *APIClient) FinishDeployment(ctx context.Context, appID, environmentID int, deployment apitypes.Deployment) (*apitypes.Deployment, error) {
	if deployment.ID == 0 {
		return nil, fmt.Errorf("deployment ID is required")
	}
	path := fmt.Sprintf("%s/%d/finished", deploymentsPath(appID, environmentID), deployment.ID)
	request := apitypes.FinishDeploymentRequest{Deployment: deployment}
	var response apitypes.DeploymentResponse
	if err := c.put(ctx, path, request, &response); err != nil {
		return nil, err
	}
	return &response.Deployment, nil
}

// LastDeployment returns nil without error when the pairing was never deployed.
func (c *APIClient) LastDeployment(ctx context.Context, appID, environmentID int) (*apitypes.Deployment, error) {
	path := deploymentsPath(appID, environmentID) + "/last"
	var response apitypes.DeploymentResponse
	if err := c.get(ctx, path, &response); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &response.Deployment, nil
}
