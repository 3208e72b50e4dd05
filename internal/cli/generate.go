package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/vitalvas/refdoc/config"
	"github.com/vitalvas/refdoc/generator"
)

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Render the document to every configured output",
		Example: strings.TrimSpace(`  refdoc generate
  refdoc -c api/refdoc.yaml generate --output openapi.json --output -`),
		RunE: runGenerate,
	}

	flags := cmd.Flags()
	flags.StringArrayP("output", "o", nil, `Output path, repeatable; "-" is stdout. Replaces the configured outputs`)
	flags.Bool("no-validate", false, "Skip validation of the rendered document")

	return cmd
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := applyGenerateFlags(cmd.Flags(), cfg); err != nil {
		return err
	}

	g, err := generator.New(cfg, generator.WithLogger(newLogger(cmd)), generator.WithStdout(cmd.OutOrStdout()))
	if err != nil {
		return err
	}

	res, err := g.Run(cmd.Context())
	if err != nil {
		if len(res.Failures) > 0 {
			return fmt.Errorf("%d of %d outputs failed: %w", len(res.Failures), len(res.Failures)+len(res.Written), err)
		}
		return err
	}
	return nil
}

func applyGenerateFlags(flags *pflag.FlagSet, cfg *config.Config) error {
	if flags.Changed("output") {
		paths, err := flags.GetStringArray("output")
		if err != nil {
			return err
		}
		cfg.Outputs = cfg.Outputs[:0]
		for _, p := range paths {
			cfg.Outputs = append(cfg.Outputs, config.Output{Path: strings.TrimSpace(p)})
		}
	}
	if noValidate, _ := flags.GetBool("no-validate"); noValidate {
		v := false
		cfg.ValidateOutput = &v
	}
	return nil
}
