package config

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

// Validate checks the types of the keys ey reads itself. Every other key is
// passed through to the deploy untouched.
func (pc *ProjectConfig) Validate() error {
	var errs []error
	for _, name := range slices.Sorted(maps.Keys(pc.Environments)) {
		ec := pc.Environments[name]
		for _, key := range []string{keyBranch, keyMigrationCommand} {
			v, ok := ec.Lookup(key)
			if !ok || v == nil {
				continue
			}
			if _, isString := v.(string); !isString {
				errs = append(errs, fmt.Errorf("environments.%s.%s: must be a string, got %T", name, key, v))
			}
		}
	}
	return errors.Join(errs...)
}
