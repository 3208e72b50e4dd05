package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vitalvas/refdoc/config"
	"github.com/vitalvas/refdoc/generator"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Build and validate the document without writing it",
		RunE:  runValidate,
	}
}

func runValidate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	requireValidation(cfg)

	g, err := generator.New(cfg, generator.WithLogger(newLogger(cmd)))
	if err != nil {
		return err
	}

	doc, err := g.Build(cmd.Context())
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %s: valid OpenAPI %s document with %d paths\n",
		doc.Info.Title, doc.Info.Version, doc.OpenAPI, len(doc.Paths))
	return err
}

// requireValidation prepares a config for commands that build without
// writing: validation is forced and the outputs are not required.
func requireValidation(cfg *config.Config) {
	v := true
	cfg.ValidateOutput = &v
	if len(cfg.Outputs) == 0 {
		cfg.Outputs = []config.Output{{Path: config.Stdout}}
	}
}
