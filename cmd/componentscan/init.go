package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nao1215/componentscan/internal/config"
	"github.com/spf13/cobra"
)

//go:embed templates/componentscan.yaml
var configTemplate embed.FS

// configFileName is the default configuration file name.
const configFileName = config.DefaultConfigFile

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a .componentscan project file",
		Long: `Init writes a commented .componentscan project file to the current directory.

The file describes where a project keeps clientlibs, Sling Model sources and
component templates, which child namespaces to skip and where inheritance
walks stop. All entries start commented out, so the defaults apply until
you edit them.

Examples:
  # Create .componentscan in current directory
  componentscan init

  # Create config file at a specific path
  componentscan init -o config/componentscan.yaml

  # Force overwrite existing file
  componentscan init -f`,
		Args: cobra.NoArgs,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", configFileName,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := configTemplate.ReadFile("templates/componentscan.yaml")
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	if dir := filepath.Dir(outputPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit this file to describe your project layout:")
	fmt.Fprintln(out, "  - clientlib, Sling Model source and template locations")
	fmt.Fprintln(out, "  - child namespaces excluded from recursion")
	fmt.Fprintln(out, "  - namespaces where inheritance walks stop")

	return nil
}
