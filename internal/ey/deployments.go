package ey

import (
	"fmt"
	"time"

	"github.com/ameistad/eydeploy/internal/helpers"
	"github.com/ameistad/eydeploy/internal/storage"
	"github.com/ameistad/eydeploy/internal/ui"
	"github.com/spf13/cobra"
)

func DeploymentsCmd(flags *rootFlags) *cobra.Command {
	var (
		app         string
		environment string
		limit       int
	)

	cmd := &cobra.Command{
		Use:   "deployments",
		Short: "List deployments recorded on this machine",
		Long: `List the deployments started from this machine, newest first.

The list comes from the local journal and does not contact EY Cloud.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			journal, err := openJournal()
			if err != nil {
				return fmt.Errorf("failed to open deployment journal: %w", err)
			}
			defer journal.Close()

			entries, err := journal.ListDeployments(cmd.Context(), app, environment, limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				ui.Info("No deployments recorded")
				return nil
			}
			ui.Table(
				[]string{"ID", "App", "Environment", "Ref", "Status", "Started", "Duration"},
				deploymentRows(entries, time.Now()),
			)
			return nil
		},
	}

	cmd.Flags().StringVarP(&app, "app", "a", "", "Only show deployments of this application")
	cmd.Flags().StringVarP(&environment, "environment", "e", "", "Only show deployments to this environment (full name)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of deployments to show, 0 for all")
	return cmd
}

func deploymentRows(entries []storage.Deployment, now time.Time) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, d := range entries {
		rows = append(rows, []string{
			helpers.ShortID(d.ID),
			d.AppName,
			d.EnvironmentName,
			d.Ref,
			string(d.Status),
			helpers.FormatRelative(d.StartedAt, now),
			helpers.FormatElapsed(d.StartedAt, d.FinishedAt),
		})
	}
	return rows
}
