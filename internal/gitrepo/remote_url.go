package gitrepo

import (
	"fmt"
	"strings"
)

// RemoteURL is a parsed git remote.
type RemoteURL struct {
	Host       string
	Owner      string
	Repository string
}

type RemoteURLParseError struct {
	Input string
}

func (e RemoteURLParseError) Error() string {
	return fmt.Sprintf("%s: invalid remote url", e.Input)
}

// ParseRemoteURL understands scp-style, ssh://, git://, http:// and https:// remotes.
func ParseRemoteURL(remote string) (RemoteURL, error) {
	trimmed := strings.TrimSpace(remote)
	if trimmed == "" {
		return RemoteURL{}, RemoteURLParseError{Input: remote}
	}

	for _, prefix := range []string{"ssh://", "git+ssh://", "git://", "https://", "http://"} {
		if strings.HasPrefix(trimmed, prefix) {
			return parseURLRemote(remote, strings.TrimPrefix(trimmed, prefix))
		}
	}
	if strings.Contains(trimmed, "@") && strings.Contains(trimmed, ":") {
		return parseSCPRemote(remote, trimmed)
	}
	return RemoteURL{}, RemoteURLParseError{Input: remote}
}

// parseURLRemote handles "[user@]host[:port]/owner/repo".
func parseURLRemote(input, rest string) (RemoteURL, error) {
	if at := strings.Index(rest, "@"); at != -1 && at < strings.Index(rest+"/", "/") {
		rest = rest[at+1:]
	}
	slash := strings.Index(rest, "/")
	if slash == -1 {
		return RemoteURL{}, RemoteURLParseError{Input: input}
	}
	host := rest[:slash]
	if colon := strings.Index(host, ":"); colon != -1 {
		host = host[:colon]
	}
	return buildRemoteURL(input, host, rest[slash+1:])
}

// parseSCPRemote handles "user@host:owner/repo".
func parseSCPRemote(input, remote string) (RemoteURL, error) {
	hostAndPath := remote[strings.Index(remote, "@")+1:]
	colon := strings.Index(hostAndPath, ":")
	if colon == -1 {
		return RemoteURL{}, RemoteURLParseError{Input: input}
	}
	return buildRemoteURL(input, hostAndPath[:colon], hostAndPath[colon+1:])
}

func buildRemoteURL(input, host, path string) (RemoteURL, error) {
	path = strings.Trim(path, "/")
	segments := strings.Split(path, "/")
	if host == "" || len(segments) < 2 {
		return RemoteURL{}, RemoteURLParseError{Input: input}
	}
	owner := strings.Join(segments[:len(segments)-1], "/")
	repository := strings.TrimSuffix(segments[len(segments)-1], ".git")
	if owner == "" || repository == "" {
		return RemoteURL{}, RemoteURLParseError{Input: input}
	}
	return RemoteURL{Host: host, Owner: owner, Repository: repository}, nil
}

func (u RemoteURL) String() string {
	return strings.ToLower(u.Host + "/" + u.Owner + "/" + u.Repository)
}

// NormalizeRemoteURL returns "host/owner/repo" in lower case so ssh and https
// forms of the same repository compare equal. Unparseable input is returned
// trimmed.
func NormalizeRemoteURL(remote string) string {
	parsed, err := ParseRemoteURL(remote)
	if err != nil {
		return strings.TrimSpace(remote)
	}
	return parsed.String()
}

// SameRepository reports whether two remote URLs name the same repository.
func SameRepository(a, b string) bool {
	na, nb := NormalizeRemoteURL(a), NormalizeRemoteURL(b)
	return na != "" && na == nb
}
