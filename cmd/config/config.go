package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/qualitylab/partclass/internal/conf"
)

// Command creates the config command that writes the default settings.
func Command() *cobra.Command {
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "config [path]",
		Short: "Write a default config file",
		Long:  "Write the default settings as YAML, to ./config.yaml unless a path is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "config.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if err := conf.WriteDefaultConfig(path, overwrite); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&overwrite, "force", false, "Replace an existing file")

	return cmd
}
