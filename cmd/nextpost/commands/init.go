package commands

import (
	"fmt"

	"github.com/dyluth/nextpost/internal/config"
	"github.com/dyluth/nextpost/internal/printer"
	"github.com/spf13/cobra"
)

func newInitCmd(root *rootOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default nextpost.yml",
		Long: `Write the default configuration to the path given by --config (nextpost.yml).

Use --force to overwrite an existing file (WARNING: replaces your configuration).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.WriteDefault(root.configPath, force); err != nil {
				return printer.Error(
					"initialization failed",
					err.Error(),
					[]string{fmt.Sprintf("Overwrite the existing file:\n  nextpost init --force --config %s", root.configPath)},
				)
			}

			printer.Success("Wrote %s\n", root.configPath)
			printer.Info("\nNext steps:\n")
			printer.Info("  1. Export your OpenAI key: export OPENAI_API_KEY=sk-...\n")
			printer.Info("  2. Add your posts:         nextpost add \"caption\" satisfying_video 1200 --tags a,b --days-ago 3\n")
			printer.Info("     or load sample posts:   nextpost seed\n")
			printer.Info("  3. Ask the agents:         nextpost next\n")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing configuration file")
	return cmd
}
