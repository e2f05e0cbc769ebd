package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ameistad/eydeploy/internal/execshell"
)

var (
	ErrNotAGitRepository = errors.New("not a git repository (or any of the parent directories)")
	ErrNoRemotes         = errors.New("no git remotes found; add one with 'git remote add'")
)

const (
	gitDirName    = ".git"
	headFileName  = "HEAD"
	headRefPrefix = "ref: refs/heads/"
	gitDirPrefix  = "gitdir:"
)

// RepoContext locates a repository without consulting process state.
// GitDir takes precedence; otherwise discovery walks up from WorkDir.
type RepoContext struct {
	GitDir  string
	WorkDir string
}

// ContextFromEnv captures GIT_DIR and the working directory.
func ContextFromEnv() (RepoContext, error) {
	wd, err := os.Getwd()
	if err != nil {
		return RepoContext{}, fmt.Errorf("failed to get working directory: %w", err)
	}
	return RepoContext{GitDir: os.Getenv("GIT_DIR"), WorkDir: wd}, nil
}

// Exist reports whether a repository can be found from rc.
func Exist(rc RepoContext) bool {
	_, _, err := discover(rc)
	return err == nil
}

// discover returns the git directory and the top of the working tree.
func discover(rc RepoContext) (string, string, error) {
	if rc.GitDir != "" {
		gitDir := rc.GitDir
		if !filepath.IsAbs(gitDir) && rc.WorkDir != "" {
			gitDir = filepath.Join(rc.WorkDir, gitDir)
		}
		if isGitDir(gitDir) {
			return gitDir, rc.WorkDir, nil
		}
		return "", "", ErrNotAGitRepository
	}

	if rc.WorkDir == "" {
		return "", "", ErrNotAGitRepository
	}
	dir, err := filepath.Abs(rc.WorkDir)
	if err != nil {
		return "", "", fmt.Errorf("failed to resolve %s: %w", rc.WorkDir, err)
	}
	for {
		candidate := filepath.Join(dir, gitDirName)
		if gitDir, ok := resolveDotGit(candidate); ok {
			return gitDir, dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", "", ErrNotAGitRepository
		}
		dir = parent
	}
}

// resolveDotGit follows a ".git" file written by worktrees and submodules.
func resolveDotGit(path string) (string, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return "", false
	}
	if info.IsDir() {
		return path, isGitDir(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	content := strings.TrimSpace(string(data))
	if !strings.HasPrefix(content, gitDirPrefix) {
		return "", false
	}
	target := strings.TrimSpace(strings.TrimPrefix(content, gitDirPrefix))
	if !filepath.IsAbs(target) {
		target = filepath.Join(filepath.Dir(path), target)
	}
	return target, isGitDir(target)
}

func isGitDir(path string) bool {
	info, err := os.Stat(filepath.Join(path, headFileName))
	return err == nil && !info.IsDir()
}

type Remote struct {
	Name string
	URL  string
}

// Repo inspects a local repository. Opening never fails; operations return
// ErrNotAGitRepository when no repository was found.
type Repo struct {
	rc       RepoContext
	executor *execshell.ShellExecutor
}

func Open(rc RepoContext, executor *execshell.ShellExecutor) *Repo {
	return &Repo{rc: rc, executor: executor}
}

func (r *Repo) GitDir() (string, error) {
	gitDir, _, err := discover(r.rc)
	return gitDir, err
}

// Root is the top of the working tree. With an explicit GIT_DIR it is the
// working directory.
func (r *Repo) Root() (string, error) {
	_, root, err := discover(r.rc)
	return root, err
}

// CurrentBranch reads HEAD. The boolean is false for a detached HEAD.
func (r *Repo) CurrentBranch() (string, bool, error) {
	gitDir, err := r.GitDir()
	if err != nil {
		return "", false, err
	}
	data, err := os.ReadFile(filepath.Join(gitDir, headFileName))
	if err != nil {
		return "", false, fmt.Errorf("failed to read HEAD: %w", err)
	}
	branch, ok := ParseHead(string(data))
	return branch, ok, nil
}

// ParseHead extracts the branch name from HEAD contents.
func ParseHead(head string) (string, bool) {
	head = strings.TrimSpace(head)
	if !strings.HasPrefix(head, headRefPrefix) {
		return "", false
	}
	branch := strings.TrimPrefix(head, headRefPrefix)
	return branch, branch != ""
}

// Remotes lists configured remotes with their fetch URLs.
func (r *Repo) Remotes(ctx context.Context) ([]Remote, error) {
	gitDir, err := r.GitDir()
	if err != nil {
		return nil, err
	}
	result, err := r.executor.ExecuteGit(ctx, execshell.CommandDetails{
		Arguments: []string{"--git-dir", gitDir, "remote", "-v"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list remotes: %w", err)
	}
	return parseRemotes(result.StandardOutput), nil
}

func parseRemotes(output string) []Remote {
	var remotes []Remote
	seen := make(map[string]bool)
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		if len(fields) >= 3 && fields[2] != "(fetch)" {
			continue
		}
		if seen[fields[0]] {
			continue
		}
		seen[fields[0]] = true
		remotes = append(remotes, Remote{Name: fields[0], URL: fields[1]})
	}
	return remotes
}

func (r *Repo) FailOnNoRemotes(ctx context.Context) error {
	remotes, err := r.Remotes(ctx)
	if err != nil {
		return err
	}
	if len(remotes) == 0 {
		return ErrNoRemotes
	}
	return nil
}

// RemoteURLs returns the fetch URL of every remote.
func (r *Repo) RemoteURLs(ctx context.Context) ([]string, error) {
	remotes, err := r.Remotes(ctx)
	if err != nil {
		return nil, err
	}
	urls := make([]string, 0, len(remotes))
	for _, remote := range remotes {
		urls = append(urls, remote.URL)
	}
	return urls, nil
}
