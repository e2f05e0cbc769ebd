package resolver

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ameistad/eydeploy/internal/apitypes"
	"github.com/ameistad/eydeploy/internal/deploy"
	"github.com/ameistad/eydeploy/internal/gitrepo"
)

var ErrNoMatches = errors.New("no app environment matches")

// Query narrows the app environments visible to the API token. Empty fields
// match everything. Remotes are only consulted when no app name is given.
type Query struct {
	AppName         string
	EnvironmentName string
	AccountName     string
	Remotes         []string
}

func (q Query) String() string {
	var parts []string
	if q.AccountName != "" {
		parts = append(parts, "account "+q.AccountName)
	}
	if q.AppName != "" {
		parts = append(parts, "app "+q.AppName)
	}
	if q.EnvironmentName != "" {
		parts = append(parts, "environment "+q.EnvironmentName)
	}
	if q.AppName == "" && len(q.Remotes) > 0 {
		parts = append(parts, "repository "+strings.Join(q.Remotes, ", "))
	}
	if len(parts) == 0 {
		return "any app environment"
	}
	return strings.Join(parts, ", ")
}

// AmbiguousError is returned when more than one app environment matches.
type AmbiguousError struct {
	Query      Query
	Candidates []*deploy.AppEnvironment
}

func (e *AmbiguousError) Error() string {
	names := make([]string, len(e.Candidates))
	for i, c := range e.Candidates {
		names[i] = fmt.Sprintf("%s/%s/%s", c.AccountName(), c.AppName(), c.EnvironmentName())
	}
	return fmt.Sprintf("multiple app environments match %s (%s); please specify with --app, --environment and --account",
		e.Query, strings.Join(names, ", "))
}

// Resolve picks exactly one binding for q.
func Resolve(all []apitypes.AppEnvironment, q Query) (*deploy.AppEnvironment, error) {
	matches, err := Filter(all, q)
	if err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w %s", ErrNoMatches, q)
	case 1:
		return matches[0], nil
	default:
		return nil, &AmbiguousError{Query: q, Candidates: matches}
	}
}

// Filter returns every binding matching q, sorted by account, app and
// environment name. Names compare case-insensitively; an environment also
// matches by its short name.
func Filter(all []apitypes.AppEnvironment, q Query) ([]*deploy.AppEnvironment, error) {
	var matches []*deploy.AppEnvironment
	for _, ae := range all {
		binding, err := deploy.FromAPI(ae)
		if err != nil {
			return nil, fmt.Errorf("invalid app environment %d: %w", ae.ID, err)
		}
		if !matchesQuery(binding, q) {
			continue
		}
		matches = append(matches, binding)
	}
	sort.Slice(matches, func(i, j int) bool {
		return sortKey(matches[i]) < sortKey(matches[j])
	})
	return matches, nil
}

func matchesQuery(b *deploy.AppEnvironment, q Query) bool {
	if q.AccountName != "" && !strings.EqualFold(b.AccountName(), q.AccountName) {
		return false
	}
	if q.EnvironmentName != "" &&
		!strings.EqualFold(b.EnvironmentName(), q.EnvironmentName) &&
		!strings.EqualFold(b.ShortEnvironmentName(), q.EnvironmentName) {
		return false
	}
	if q.AppName != "" {
		return strings.EqualFold(b.AppName(), q.AppName)
	}
	if len(q.Remotes) == 0 {
		return true
	}
	for _, remote := range q.Remotes {
		if gitrepo.SameRepository(remote, b.RepositoryURI()) {
			return true
		}
	}
	return false
}

func sortKey(b *deploy.AppEnvironment) string {
	return strings.ToLower(b.AccountName() + "\x00" + b.AppName() + "\x00" + b.EnvironmentName())
}
