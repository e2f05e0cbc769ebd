package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var ErrDeploymentNotFound = errors.New("deployment not found in journal")

type Status string

const (
	StatusStarted   Status = "started"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Deployment is one journal entry, mirrored from the EY Cloud record.
type Deployment struct {
	ID               string `copier:"-"`
	APIID            int
	AccountName      string
	AppName          string
	EnvironmentName  string
	Ref              string
	MigrationCommand string
	Status           Status
	Output           string
	StartedAt        time.Time
	FinishedAt       *time.Time
}

const deploymentColumns = `id, api_id, account_name, app_name, environment_name, ref,
	migration_command, status, output, started_at, finished_at`

// SaveDeployment inserts d, assigning an ID and start time when missing, and
// returns the stored ID.
func (db *DB) SaveDeployment(ctx context.Context, d Deployment) (string, error) {
	if d.StartedAt.IsZero() {
		d.StartedAt = time.Now().UTC()
	}
	if d.ID == "" {
		d.ID = NewID(d.StartedAt)
	}
	if d.Status == "" {
		d.Status = StatusStarted
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO deployments (`+deploymentColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.APIID, d.AccountName, d.AppName, d.EnvironmentName, d.Ref,
		d.MigrationCommand, string(d.Status), d.Output, formatTime(d.StartedAt), formatTimePtr(d.FinishedAt),
	)
	if err != nil {
		return "", fmt.Errorf("failed to save deployment: %w", err)
	}
	return d.ID, nil
}

// FinishDeployment closes out the journal entry with its result.
func (db *DB) FinishDeployment(ctx context.Context, id string, successful bool, output string, finishedAt time.Time) error {
	status := StatusFailed
	if successful {
		status = StatusSucceeded
	}
	result, err := db.ExecContext(ctx,
		`UPDATE deployments SET status = ?, output = ?, finished_at = ? WHERE id = ?`,
		string(status), output, formatTime(finishedAt), id,
	)
	if err != nil {
		return fmt.Errorf("failed to finish deployment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to finish deployment: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrDeploymentNotFound, id)
	}
	return nil
}

func (db *DB) GetDeployment(ctx context.Context, id string) (Deployment, error) {
	row := db.QueryRowContext(ctx, `SELECT `+deploymentColumns+` FROM deployments WHERE id = ?`, id)
	d, err := scanDeployment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Deployment{}, fmt.Errorf("%w: %s", ErrDeploymentNotFound, id)
	}
	return d, err
}

// ListDeployments returns the newest entries first. Empty app or environment
// names match everything; limit <= 0 means no limit.
func (db *DB) ListDeployments(ctx context.Context, appName, environmentName string, limit int) ([]Deployment, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.QueryContext(ctx,
		`SELECT `+deploymentColumns+` FROM deployments
		 WHERE (? = '' OR app_name = ?) AND (? = '' OR environment_name = ?)
		 ORDER BY id DESC
		 LIMIT ?`,
		appName, appName, environmentName, environmentName, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list deployments: %w", err)
	}
	defer rows.Close()

	var deployments []Deployment
	for rows.Next() {
		d, err := scanDeployment(rows)
		if err != nil {
			return nil, err
		}
		deployments = append(deployments, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list deployments: %w", err)
	}
	return deployments, nil
}

// PruneDeployments keeps the newest keep entries for the app and environment
// and returns how many were removed.
func (db *DB) PruneDeployments(ctx context.Context, appName, environmentName string, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	result, err := db.ExecContext(ctx,
		`DELETE FROM deployments
		 WHERE app_name = ? AND environment_name = ?
		 AND id NOT IN (
			SELECT id FROM deployments
			WHERE app_name = ? AND environment_name = ?
			ORDER BY id DESC
			LIMIT ?
		 )`,
		appName, environmentName, appName, environmentName, keep,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to prune deployments: %w", err)
	}
	return result.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDeployment(s scanner) (Deployment, error) {
	var (
		d          Deployment
		status     string
		startedAt  string
		finishedAt sql.NullString
	)
	err := s.Scan(&d.ID, &d.APIID, &d.AccountName, &d.AppName, &d.EnvironmentName, &d.Ref,
		&d.MigrationCommand, &status, &d.Output, &startedAt, &finishedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Deployment{}, err
		}
		return Deployment{}, fmt.Errorf("failed to scan deployment: %w", err)
	}
	d.Status = Status(status)

	if d.StartedAt, err = parseTime(startedAt); err != nil {
		return Deployment{}, err
	}
	if finishedAt.Valid {
		t, err := parseTime(finishedAt.String)
		if err != nil {
			return Deployment{}, err
		}
		d.FinishedAt = &t
	}
	return d, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse journal time %q: %w", s, err)
	}
	return t, nil
}
