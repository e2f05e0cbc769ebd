package ey

import (
	"fmt"

	"github.com/spf13/cobra"
)

func CompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate a shell completion script",
		Long: `To load completions:

Bash:
  $ source <(ey completion bash)

Zsh:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc
  $ source <(ey completion zsh)

Fish:
  $ ey completion fish | source

Powershell:
  PS> ey completion powershell | Out-String | Invoke-Expression
`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			default:
				return fmt.Errorf("unsupported shell type: %s", args[0])
			}
		},
	}
}
