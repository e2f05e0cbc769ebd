package ey

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ameistad/eydeploy/internal/deploy"
	"github.com/ameistad/eydeploy/internal/gitrepo"
	"github.com/ameistad/eydeploy/internal/ui"
	"github.com/spf13/cobra"
)

var ErrRefRequired = errors.New("no ref to deploy: use --ref, set a branch in ey.yml or check out a branch")

// flagDefault marks an optional-value flag given without a value.
const flagDefault = "(default)"

type deployFlags struct {
	target    targetFlags
	ref       string
	forceRef  string
	migrate   string
	noMigrate bool
	extras    map[string]string
	verbose   bool
}

func (f *deployFlags) register(cmd *cobra.Command) {
	f.target.register(cmd)
	cmd.Flags().StringVarP(&f.ref, "ref", "r", "", "Git ref to deploy (branch, tag or SHA)")
	cmd.Flags().StringVar(&f.forceRef, "force-ref", "", "Deploy a ref other than the configured branch, optionally naming the `ref`")
	cmd.Flags().Lookup("force-ref").NoOptDefVal = flagDefault
	cmd.Flags().StringVarP(&f.migrate, "migrate", "m", "", "Run migrations, optionally with the given `command`")
	cmd.Flags().Lookup("migrate").NoOptDefVal = flagDefault
	cmd.Flags().BoolVar(&f.noMigrate, "no-migrate", false, "Do not run migrations")
	cmd.Flags().StringToStringVar(&f.extras, "extra-deploy-hook-options", nil, "Extra key=value options passed to deploy hooks")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "Show the full remote output")
	cmd.MarkFlagsMutuallyExclusive("migrate", "no-migrate")
}

// migrateOption maps --migrate and --no-migrate onto a MigrateOption.
func (f *deployFlags) migrateOption(cmd *cobra.Command) (deploy.MigrateOption, error) {
	switch {
	case f.noMigrate:
		return deploy.MigrateVeto, nil
	case !cmd.Flags().Changed("migrate"):
		return deploy.MigrateAbsent, nil
	case f.migrate == flagDefault:
		return deploy.MigrateDefault, nil
	case strings.TrimSpace(f.migrate) == "":
		return deploy.MigrateOption{}, errors.New("--migrate needs a command, or no value to use the default")
	default:
		return deploy.MigrateCommand(f.migrate), nil
	}
}

func (f *deployFlags) forceRefOption(cmd *cobra.Command) deploy.ForceRef {
	if !cmd.Flags().Changed("force-ref") {
		return deploy.ForceRef{}
	}
	if f.forceRef == flagDefault {
		return deploy.ForceRef{Enabled: true}
	}
	return deploy.ForceRef{Enabled: true, Ref: f.forceRef}
}

// currentBranch is the ref of last resort when neither the flags nor ey.yml name one.
func currentBranch(repo *gitrepo.Repo) (string, error) {
	branch, ok, err := repo.CurrentBranch()
	if err != nil && !errors.Is(err, gitrepo.ErrNotAGitRepository) {
		return "", err
	}
	if !ok {
		return "", ErrRefRequired
	}
	return branch, nil
}

func DeployCmd(flags *rootFlags) *cobra.Command {
	df := &deployFlags{}

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy an application to an Engine Yard Cloud environment",
		Long: `Deploy a ref of the application to an environment.

The ref defaults to the environment's branch in ey.yml, then to the current
git branch. Deploying any other ref requires --force-ref.

Migrations follow --migrate and --no-migrate, then the environment's
migrate and migration_command settings in ey.yml, then the setting stored
on EY Cloud. Give a command with an equals sign:
--migrate='bundle exec rake db:migrate'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			migrate, err := df.migrateOption(cmd)
			if err != nil {
				return err
			}
			force := df.forceRefOption(cmd)

			ctx := cmd.Context()
			s, err := openSession(ctx, flags, &df.target, sessionOptions{identifyUser: true})
			if err != nil {
				return err
			}
			defer s.Close()

			ref, err := s.coordinator.ResolveRef(df.ref, force)
			if err != nil {
				return err
			}
			if ref == "" {
				if ref, err = currentBranch(s.repo); err != nil {
					return err
				}
			}

			if command, ok := s.coordinator.MigrationCommand(migrate); ok {
				ui.Info("Deploying ref '%s' of %s (migrating with '%s')", ref, s.binding, command)
			} else {
				ui.Info("Deploying ref '%s' of %s", ref, s.binding)
			}

			err = s.coordinator.Deploy(ctx, ref, deploy.DeployOptions{
				Migrate: migrate,
				Extras:  toExtras(df.extras),
				Verbose: df.verbose,
			})
			if err != nil {
				return fmt.Errorf("deploy failed: %w", err)
			}
			ui.Success("Deploy complete")
			return nil
		},
	}

	df.register(cmd)
	return cmd
}
