package deploy

import (
	"github.com/ameistad/eydeploy/internal/config"
	"github.com/ameistad/eydeploy/internal/constants"
)

type migrateKind int

const (
	migrateAbsent migrateKind = iota
	migrateVeto
	migrateCommand
	migrateDefault
)

// MigrateOption is the --migrate intent from the command line. The zero value
// means the flag was not given.
type MigrateOption struct {
	kind    migrateKind
	command string
}

var (
	MigrateAbsent  = MigrateOption{kind: migrateAbsent}
	MigrateVeto    = MigrateOption{kind: migrateVeto}
	MigrateDefault = MigrateOption{kind: migrateDefault}
)

// MigrateCommand requests a specific migration command.
func MigrateCommand(command string) MigrateOption {
	return MigrateOption{kind: migrateCommand, command: command}
}

func (m MigrateOption) IsAbsent() bool { return m.kind == migrateAbsent }

func (m MigrateOption) String() string {
	switch m.kind {
	case migrateVeto:
		return "no-migrate"
	case migrateCommand:
		return "command(" + m.command + ")"
	case migrateDefault:
		return "default"
	default:
		return "absent"
	}
}

// ResolveMigrationCommand picks the migration command for one deploy. The
// command line wins over the environment config, which wins over the legacy
// API setting; a veto at either of the first two levels stops the search.
// The boolean is false when no migration should run.
func ResolveMigrationCommand(cli MigrateOption, env config.EnvironmentConfig, legacy LegacyMigration) (string, bool) {
	return present(resolveMigrationCommand(cli, env, legacy))
}

func resolveMigrationCommand(cli MigrateOption, env config.EnvironmentConfig, legacy LegacyMigration) string {
	switch cli.kind {
	case migrateVeto:
		return ""
	case migrateCommand:
		return cli.command
	case migrateDefault:
		if cmd := env.MigrationCommand(); cmd != "" {
			return cmd
		}
		return constants.DefaultMigrationCommand
	}

	switch env.Migrate() {
	case config.ToggleOff:
		return ""
	case config.ToggleOn:
		// migrate: true without a migration_command resolves to nothing and
		// does not consult the legacy setting.
		return env.MigrationCommand()
	}
	if cmd := env.MigrationCommand(); cmd != "" {
		return cmd
	}

	if legacy.enabled() {
		return legacy.Command
	}
	return ""
}

func present(cmd string) (string, bool) {
	return cmd, cmd != ""
}
