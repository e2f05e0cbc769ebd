package ey

import (
	"fmt"
	"strconv"

	"github.com/ameistad/eydeploy/internal/deploy"
	"github.com/ameistad/eydeploy/internal/resolver"
	"github.com/ameistad/eydeploy/internal/ui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func EnvironmentsCmd(flags *rootFlags) *cobra.Command {
	var (
		target targetFlags
		all    bool
	)

	cmd := &cobra.Command{
		Use:     "environments",
		Aliases: []string{"envs"},
		Short:   "List the environments of the application",
		Long: `List app environments on EY Cloud.

Without --app the application is matched from the git remotes. Use --all to
list every app environment the token can see.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := newAPIClient(flags)
			if err != nil {
				return err
			}

			query := target.query()
			if !all && query.AppName == "" {
				repo, err := openRepo(flags)
				if err != nil {
					return err
				}
				remotes, err := repo.RemoteURLs(ctx)
				if err != nil {
					flags.log().Debug("listing all environments", zap.Error(err))
				}
				query.Remotes = remotes
			}

			appEnvironments, err := client.AppEnvironments(ctx)
			if err != nil {
				return fmt.Errorf("failed to list app environments: %w", err)
			}
			matches, err := resolver.Filter(appEnvironments, query)
			if err != nil {
				return err
			}
			if len(matches) == 0 {
				ui.Info("No environments match %s", query)
				return nil
			}
			ui.Table([]string{"Account", "App", "Environment", "Framework env", "Instances", "App master"}, environmentRows(matches))
			return nil
		},
	}

	target.register(cmd)
	cmd.Flags().BoolVar(&all, "all", false, "List every app environment instead of matching git remotes")
	return cmd
}

func environmentRows(bindings []*deploy.AppEnvironment) [][]string {
	rows := make([][]string, 0, len(bindings))
	for _, b := range bindings {
		env := b.Environment
		appMaster := "-"
		if env.AppMaster.IsRunning() {
			appMaster = env.AppMaster.PublicHostname
		}
		running := 0
		for _, inst := range env.Instances {
			if inst.IsRunning() {
				running++
			}
		}
		rows = append(rows, []string{
			b.AccountName(),
			b.AppName(),
			b.EnvironmentName(),
			orDash(env.FrameworkEnv),
			strconv.Itoa(running),
			appMaster,
		})
	}
	return rows
}
