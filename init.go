package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/phobologic/pyjsonld/internal/config"
)

const configHeader = `# pyjsonld configuration.
#
# Every key can also be set with a PYJSONLD_ environment variable
# (for example PYJSONLD_OUTPUT_FORMAT=yaml) or overridden by a flag.
`

// newInitCmd implements the `pyjsonld init` subcommand, which writes the
// default configuration to a file.
func newInitCmd(stdout, stderr io.Writer) *cobra.Command {
	var dryRun, force bool
	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a default configuration file",
		Long: `Write the built-in configuration to a YAML file that pyjsonld picks up
from the working directory. path defaults to ./` + config.DefaultConfigFile + `.yaml.
An existing file is left alone unless --force is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := generateConfig()
			if err != nil {
				return err
			}
			if dryRun {
				_, _ = fmt.Fprint(stdout, content)
				return nil
			}

			path := config.DefaultConfigFile + "." + config.DefaultConfigType
			if len(args) > 0 {
				path = args[0]
			}
			if err := writeConfig(path, content, force); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(stderr, "wrote default configuration to %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the configuration without writing it")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

// generateConfig renders the default configuration with its header.
func generateConfig() (string, error) {
	d := config.Defaults()
	data, err := d.Marshal()
	if err != nil {
		return "", fmt.Errorf("rendering configuration: %w", err)
	}
	return configHeader + "\n" + string(data), nil
}

func writeConfig(path, content string, force bool) error {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !force {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if _, err := io.WriteString(f, content); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
