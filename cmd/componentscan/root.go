package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// ErrNoComponent is returned when componentscan runs without a component path.
var ErrNoComponent = errors.New("no component path given")

// NewRootCmd creates the root command for componentscan.
// A single positional argument runs a crawl, same as the crawl subcommand.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "componentscan",
		Short: "Dependency analyzer for AEM components",
		Long: `componentscan reads an AEM component from a repository over HTTP and
reports everything it depends on: client libraries and their files, Sling
Models, child components, the resourceSuperType chain and dialog fields.

The repository connection is taken from AEM_HOST, AEM_USER and AEM_PASS
(also read from a .env file) and defaults to http://localhost:4502 with
admin/admin.

Running componentscan with a component path is a shorthand for
"componentscan crawl <component-path>".`,
		Args:          cobra.MaximumNArgs(1),
		RunE:          runRootCmd,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().String("log-format", "text", "Log format: text or json")

	addCrawlFlags(cmd)
	addReportFlags(cmd)

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewCompareCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// runRootCmd crawls the given component, or prints usage and fails when
// there is none.
func runRootCmd(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		_ = cmd.Usage()
		return ErrNoComponent
	}
	return runCrawlCmd(cmd, args)
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
