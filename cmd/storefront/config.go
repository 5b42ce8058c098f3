package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
)

func newConfigCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and write configuration files",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init <file>",
		Short: "Write the effective configuration to a YAML or JSON file",
		Long: `Writes the configuration currently in effect (defaults, --config file and
STOREFRONT_* overrides) to <file>. The format follows the extension.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if !force {
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("%s already exists (use --force to overwrite)", path)
				} else if !errors.Is(err, fs.ErrNotExist) {
					return err
				}
			}
			if err := c.vc.Get().SaveToFile(path); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")

	cmd.AddCommand(initCmd)
	return cmd
}
