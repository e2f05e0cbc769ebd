package deploy

import "fmt"

// BranchMismatchError is returned when the requested ref is not the
// environment's default branch and the deploy was not forced.
type BranchMismatchError struct {
	DefaultBranch string
	Ref           string
}

func (e *BranchMismatchError) Error() string {
	return fmt.Sprintf("your deploy branch is set to %q; to deploy %q instead, use --force-ref", e.DefaultBranch, e.Ref)
}

// ForceRef is the --force-ref flag. It is either a plain switch or carries
// the ref to deploy.
type ForceRef struct {
	Enabled bool
	Ref     string
}

// ResolveRef decides which ref to deploy. An empty requested ref resolves to
// the default branch, which may itself be empty.
func ResolveRef(requested string, force ForceRef, defaultBranch string) (string, error) {
	forced := force.Enabled
	if force.Ref != "" {
		requested, forced = force.Ref, true
	}

	switch {
	case requested == "":
		return defaultBranch, nil
	case forced, defaultBranch == "", requested == defaultBranch:
		return requested, nil
	default:
		return "", &BranchMismatchError{DefaultBranch: defaultBranch, Ref: requested}
	}
}
