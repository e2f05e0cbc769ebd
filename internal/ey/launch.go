package ey

import (
	"context"
	"fmt"
	"runtime"

	"github.com/ameistad/eydeploy/internal/execshell"
	"github.com/ameistad/eydeploy/internal/ui"
	"github.com/spf13/cobra"
)

func browserCommand(goos, url string) execshell.ShellCommand {
	switch goos {
	case "darwin":
		return execshell.ShellCommand{Name: execshell.CommandOpen, Details: execshell.CommandDetails{Arguments: []string{url}}}
	case "windows":
		return execshell.ShellCommand{Name: execshell.CommandRundll32, Details: execshell.CommandDetails{Arguments: []string{"url.dll,FileProtocolHandler", url}}}
	default:
		return execshell.ShellCommand{Name: execshell.CommandXDGOpen, Details: execshell.CommandDetails{Arguments: []string{url}}}
	}
}

func openBrowser(ctx context.Context, executor *execshell.ShellExecutor, url string) error {
	_, err := executor.Execute(ctx, browserCommand(runtime.GOOS, url))
	return err
}

func LaunchCmd(flags *rootFlags) *cobra.Command {
	var (
		target    targetFlags
		noBrowser bool
	)

	cmd := &cobra.Command{
		Use:   "launch",
		Short: "Open the environment's public URL in a browser",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx, flags, &target, sessionOptions{})
			if err != nil {
				return err
			}
			defer s.Close()

			url, err := s.coordinator.LaunchURL()
			if err != nil {
				return err
			}
			ui.Basic("%s", url)
			if noBrowser {
				return nil
			}

			executor, err := newExecutor(flags)
			if err != nil {
				return err
			}
			if err := openBrowser(ctx, executor, url); err != nil {
				return fmt.Errorf("failed to open browser: %w", err)
			}
			return nil
		},
	}

	target.register(cmd)
	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "Print the URL without opening it")
	return cmd
}
