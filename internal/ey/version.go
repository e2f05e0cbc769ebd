package ey

import (
	"fmt"

	"github.com/ameistad/eydeploy/internal/constants"
	"github.com/spf13/cobra"
)

func VersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of ey",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ey %s\n", constants.Version)
		},
	}
}
