// Package cli implements the refdoc command line.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vitalvas/refdoc/config"
)

// DefaultConfigPath is read when --config is not given.
const DefaultConfigPath = "refdoc.yaml"

// Execute runs the refdoc CLI.
func Execute(ctx context.Context, args []string) error {
	root := NewRootCmd()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// NewRootCmd constructs the root command so tests can exercise the CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "refdoc",
		Short:         "Generate OpenAPI reference documents from annotated routes",
		Long:          "refdoc builds an OpenAPI 3.0.3 document from a route table, per-route annotations and shared definitions.",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringP("config", "c", "", "Config file path (default "+DefaultConfigPath+")")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	for _, sub := range []*cobra.Command{newGenerateCmd(), newValidateCmd(), newServeCmd()} {
		sub.Args = noArgs
		cmd.AddCommand(sub)
	}

	// Cobra flag errors, like unknown flags, become usage errors carrying
	// the help text of the command.
	cmd.SetFlagErrorFunc(flagError)
	for _, sub := range cmd.Commands() {
		sub.SetFlagErrorFunc(flagError)
	}

	return cmd
}

func flagError(c *cobra.Command, err error) error {
	return newUsageError(fmt.Sprintf("%v\n\n%s", err, c.UsageString()))
}

func noArgs(c *cobra.Command, args []string) error {
	if len(args) > 0 {
		return newUsageError(fmt.Sprintf("unexpected arguments: %s\n\n%s", strings.Join(args, " "), c.UsageString()))
	}
	return nil
}

func newLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	path = strings.TrimSpace(path)
	if path == "" {
		path = DefaultConfigPath
	}
	return config.Read(path)
}
