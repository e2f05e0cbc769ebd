package ey

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ameistad/eydeploy/internal/apiclient"
	"github.com/ameistad/eydeploy/internal/config"
	"github.com/ameistad/eydeploy/internal/constants"
	"github.com/ameistad/eydeploy/internal/ui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// readToken prompts for a token without echo on a terminal and reads a
// single line otherwise.
func readToken(in *os.File, prompt io.Writer) (string, error) {
	if term.IsTerminal(int(in.Fd())) {
		fmt.Fprint(prompt, "EY Cloud API token: ")
		data, err := term.ReadPassword(int(in.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("failed to read token: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	return readTokenLine(in)
}

func readTokenLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func LoginCmd(flags *rootFlags) *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store an EY Cloud API token",
		Long: `Verify an EY Cloud API token and store it for the API URL.

The token is saved in the OS keyring, or in the client config file when no
keyring is available. Without --token it is read from standard input.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" {
				var err error
				if token, err = readToken(os.Stdin, cmd.ErrOrStderr()); err != nil {
					return err
				}
			}
			if token == "" {
				return errors.New("no token given")
			}

			endpoint := flags.endpoint()
			client, err := apiclient.New(endpoint, token, flags.log())
			if err != nil {
				return err
			}
			user, err := client.CurrentUser(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to verify token: %w", err)
			}

			store, err := config.SaveAPIToken(endpoint, token)
			if err != nil {
				return fmt.Errorf("failed to store token: %w", err)
			}
			ui.Success("Logged in to %s as %s (token stored in %s)", endpoint, user.Email, store)
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "API token (default: read from standard input)")
	return cmd
}

func LogoutCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored EY Cloud API token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			endpoint := flags.endpoint()
			if err := config.DeleteAPIToken(endpoint); err != nil {
				return err
			}
			ui.Success("Logged out of %s", endpoint)
			if os.Getenv(constants.EnvVarAPIToken) != "" {
				ui.Warn("%s is still set and will be used", constants.EnvVarAPIToken)
			}
			return nil
		},
	}
}

func WhoamiCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the EY Cloud user the token belongs to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAPIClient(flags)
			if err != nil {
				return err
			}
			user, err := client.CurrentUser(cmd.Context())
			if err != nil {
				return err
			}
			ui.Basic("%s (%s)", user.Name, user.Email)
			return nil
		},
	}
}
