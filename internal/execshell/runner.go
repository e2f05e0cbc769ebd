package execshell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
)

type CommandName string

const (
	CommandGit      CommandName = "git"
	CommandXDGOpen  CommandName = "xdg-open"
	CommandOpen     CommandName = "open"
	CommandRundll32 CommandName = "rundll32"
)

type CommandDetails struct {
	Arguments            []string
	WorkingDirectory     string
	EnvironmentVariables map[string]string
}

type ShellCommand struct {
	Name    CommandName
	Details CommandDetails
}

type ExecutionResult struct {
	StandardOutput string
	StandardError  string
	ExitCode       int
}

// CommandRunner runs a command to completion. A non-zero exit is reported
// in the result, not as an error.
type CommandRunner interface {
	Run(ctx context.Context, command ShellCommand) (ExecutionResult, error)
}

// OSCommandRunner executes commands with os/exec.
type OSCommandRunner struct{}

func NewOSCommandRunner() *OSCommandRunner {
	return &OSCommandRunner{}
}

func (runner *OSCommandRunner) Run(ctx context.Context, command ShellCommand) (ExecutionResult, error) {
	cmd := exec.CommandContext(ctx, string(command.Name), command.Details.Arguments...)
	if command.Details.WorkingDirectory != "" {
		cmd.Dir = command.Details.WorkingDirectory
	}
	if len(command.Details.EnvironmentVariables) > 0 {
		env := append([]string{}, os.Environ()...)
		for key, value := range command.Details.EnvironmentVariables {
			env = append(env, fmt.Sprintf("%s=%s", key, value))
		}
		cmd.Env = env
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return ExecutionResult{
				StandardOutput: stdout.String(),
				StandardError:  stderr.String(),
				ExitCode:       exitErr.ExitCode(),
			}, nil
		}
		return ExecutionResult{}, err
	}

	return ExecutionResult{
		StandardOutput: stdout.String(),
		StandardError:  stderr.String(),
	}, nil
}
