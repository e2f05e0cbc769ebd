package ey

import (
	"fmt"

	"github.com/ameistad/eydeploy/internal/ui"
	"github.com/spf13/cobra"
)

func RollbackCmd(flags *rootFlags) *cobra.Command {
	var (
		target  targetFlags
		extras  map[string]string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "rollback",
		Short: "Roll an environment back to its previous release",
		Long: `Roll the application back to the release deployed before the current one.

No deployment record is created on EY Cloud.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx, flags, &target, sessionOptions{})
			if err != nil {
				return err
			}
			defer s.Close()

			ui.Info("Rolling back %s", s.binding)
			if err := s.coordinator.Rollback(ctx, toExtras(extras), verbose); err != nil {
				return fmt.Errorf("rollback failed: %w", err)
			}
			ui.Success("Rollback complete")
			return nil
		},
	}

	target.register(cmd)
	cmd.Flags().StringToStringVar(&extras, "extra-deploy-hook-options", nil, "Extra key=value options passed to deploy hooks")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show the full remote output")

	return cmd
}
