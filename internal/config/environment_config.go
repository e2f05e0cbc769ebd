package config

import "maps"

const (
	keyBranch           = "branch"
	keyMigrate          = "migrate"
	keyMigrationCommand = "migration_command"
)

// Toggle is an optional boolean read from a loosely typed config value.
type Toggle int

const (
	ToggleUnset Toggle = iota
	ToggleOff
	ToggleOn
)

func (t Toggle) String() string {
	switch t {
	case ToggleOff:
		return "off"
	case ToggleOn:
		return "on"
	default:
		return "unset"
	}
}

// EnvironmentConfig is the per-environment section of ey.yml. It is read-only
// for the duration of a deploy; use Merge to derive runtime config.
type EnvironmentConfig map[string]any

// Lookup returns the raw value stored under key.
func (ec EnvironmentConfig) Lookup(key string) (any, bool) {
	if ec == nil {
		return nil, false
	}
	v, ok := ec[key]
	return v, ok
}

// String returns the value under key when it is a string, "" otherwise.
func (ec EnvironmentConfig) String(key string) string {
	v, ok := ec.Lookup(key)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Branch is the default branch configured for the environment.
func (ec EnvironmentConfig) Branch() string {
	return ec.String(keyBranch)
}

// MigrationCommand is the configured migration_command, "" when unset.
func (ec EnvironmentConfig) MigrationCommand() string {
	return ec.String(keyMigrationCommand)
}

// Migrate reports the `migrate` key. Only a literal false switches it off;
// any other non-nil value counts as on.
func (ec EnvironmentConfig) Migrate() Toggle {
	v, ok := ec.Lookup(keyMigrate)
	if !ok || v == nil {
		return ToggleUnset
	}
	if b, isBool := v.(bool); isBool && !b {
		return ToggleOff
	}
	return ToggleOn
}

// Merge returns a copy of the environment config with extras layered on top
// of its top-level keys. The receiver is never modified; nested values are
// shared and must be treated as read-only.
func (ec EnvironmentConfig) Merge(extras map[string]any) EnvironmentConfig {
	merged := make(EnvironmentConfig, len(ec)+len(extras))
	maps.Copy(merged, ec)
	maps.Copy(merged, extras)
	return merged
}
