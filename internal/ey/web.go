package ey

import (
	"fmt"

	"github.com/ameistad/eydeploy/internal/ui"
	"github.com/spf13/cobra"
)

func WebCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "web",
		Short: "Manage the maintenance page of an environment",
	}
	cmd.AddCommand(webEnableCmd(flags), webDisableCmd(flags))
	return cmd
}

func webEnableCmd(flags *rootFlags) *cobra.Command {
	var (
		target  targetFlags
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "enable",
		Short: "Take down the maintenance page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx, flags, &target, sessionOptions{})
			if err != nil {
				return err
			}
			defer s.Close()

			ui.Info("Taking down maintenance page for %s", s.binding)
			if err := s.coordinator.TakeDownMaintenancePage(ctx, verbose); err != nil {
				return fmt.Errorf("failed to take down maintenance page: %w", err)
			}
			ui.Success("%s is serving traffic", s.binding)
			return nil
		},
	}

	target.register(cmd)
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show the full remote output")
	return cmd
}

func webDisableCmd(flags *rootFlags) *cobra.Command {
	var (
		target  targetFlags
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "disable",
		Short: "Put up the maintenance page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx, flags, &target, sessionOptions{})
			if err != nil {
				return err
			}
			defer s.Close()

			ui.Info("Putting up maintenance page for %s", s.binding)
			if err := s.coordinator.PutUpMaintenancePage(ctx, verbose); err != nil {
				return fmt.Errorf("failed to put up maintenance page: %w", err)
			}
			ui.Success("Maintenance page is up for %s", s.binding)
			return nil
		},
	}

	target.register(cmd)
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show the full remote output")
	return cmd
}
