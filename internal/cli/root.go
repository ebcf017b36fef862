package cli

import (
	"github.com/spf13/cobra"
)

// Execute runs the opnsense-gen CLI.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd constructs the root command so tests can exercise the CLI easily.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "opnsense-gen",
		Short:         "Generate a Go SDK and CLI from crawled OPNsense API docs",
		Long:          "opnsense-gen parses crawled OPNsense documentation tables and XML model schemas, links endpoints to model items, and emits the typed SDK packages, the CLI command tree, and optionally an OpenAPI document.",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	// Convert cobra flag errors (like unknown flags) into friendly usage
	// errors that also show the command's help text.
	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return newUsageErrorf("%v\n\n%s", err, c.UsageString())
	})

	cmd.PersistentFlags().StringP("config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging output")

	g := newGenerateCmd()
	g.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return newUsageErrorf("%v\n\n%s", err, c.UsageString())
	})
	cmd.AddCommand(g)

	i := newInitCmd()
	i.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return newUsageErrorf("%v\n\n%s", err, c.UsageString())
	})
	cmd.AddCommand(i)

	return cmd
}
