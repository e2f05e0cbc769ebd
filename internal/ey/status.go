package ey

import (
	"fmt"
	"time"

	"github.com/ameistad/eydeploy/internal/apitypes"
	"github.com/ameistad/eydeploy/internal/helpers"
	"github.com/ameistad/eydeploy/internal/ui"
	"github.com/spf13/cobra"
)

func StatusCmd(flags *rootFlags) *cobra.Command {
	var target targetFlags

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the last deployment of an environment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), flags, &target, sessionOptions{})
			if err != nil {
				return err
			}
			defer s.Close()

			last, err := s.coordinator.LastDeployment(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get last deployment: %w", err)
			}
			if last == nil {
				ui.Info("%s has not been deployed yet", s.binding)
				return nil
			}
			ui.Section(fmt.Sprintf("Last deployment of %s", s.binding), deploymentLines(*last, time.Now()))
			return nil
		},
	}

	target.register(cmd)
	return cmd
}

func deploymentLines(d apitypes.Deployment, now time.Time) []string {
	result := "in progress"
	if d.Finished() {
		result = "failed"
		if d.Successful {
			result = "succeeded"
		}
	}
	migration := "none"
	if d.Migrate && d.MigrationCommand != "" {
		migration = d.MigrationCommand
	}
	started, duration := "-", "-"
	if d.CreatedAt != nil {
		started = helpers.FormatRelative(*d.CreatedAt, now)
		duration = helpers.FormatElapsed(*d.CreatedAt, d.FinishedAt)
	}

	fields := [][2]string{
		{"Ref", d.Ref},
		{"Commit", orDash(d.Commit)},
		{"Migration", migration},
		{"Deployed by", orDash(d.DeployedBy)},
		{"Started", started},
		{"Duration", duration},
		{"Result", result},
	}
	lines := make([]string, len(fields))
	for i, f := range fields {
		lines[i] = fmt.Sprintf("%-12s %s", f[0]+":", f[1])
	}
	return lines
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
