package execshell

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

var (
	ErrLoggerNotConfigured        = errors.New("shell executor requires a logger")
	ErrCommandRunnerNotConfigured = errors.New("shell executor requires a command runner")
)

// CommandFailedError reports a command that exited non-zero.
type CommandFailedError struct {
	Command ShellCommand
	Result  ExecutionResult
}

func (e CommandFailedError) Error() string {
	message := strings.TrimSpace(e.Result.StandardError)
	if message == "" {
		message = fmt.Sprintf("exit code %d", e.Result.ExitCode)
	}
	return fmt.Sprintf("%s %s failed: %s", e.Command.Name, strings.Join(e.Command.Details.Arguments, " "), message)
}

// ShellExecutor runs commands through a CommandRunner and logs each one.
type ShellExecutor struct {
	logger *zap.Logger
	runner CommandRunner
}

func NewShellExecutor(logger *zap.Logger, runner CommandRunner) (*ShellExecutor, error) {
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if runner == nil {
		return nil, ErrCommandRunnerNotConfigured
	}
	return &ShellExecutor{logger: logger, runner: runner}, nil
}

func (executor *ShellExecutor) Execute(ctx context.Context, command ShellCommand) (ExecutionResult, error) {
	fields := []zap.Field{
		zap.String("command", string(command.Name)),
		zap.Strings("arguments", command.Details.Arguments),
	}
	executor.logger.Debug("running command", fields...)

	result, err := executor.runner.Run(ctx, command)
	if err != nil {
		executor.logger.Debug("command could not be started", append(fields, zap.Error(err))...)
		return ExecutionResult{}, fmt.Errorf("failed to run %s: %w", command.Name, err)
	}
	if result.ExitCode != 0 {
		executor.logger.Debug("command failed", append(fields, zap.Int("exit_code", result.ExitCode))...)
		return result, CommandFailedError{Command: command, Result: result}
	}
	return result, nil
}

func (executor *ShellExecutor) ExecuteGit(ctx context.Context, details CommandDetails) (ExecutionResult, error) {
	return executor.Execute(ctx, ShellCommand{Name: CommandGit, Details: details})
}
