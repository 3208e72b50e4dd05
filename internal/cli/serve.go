package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"
	"github.com/vitalvas/refdoc/docserver"
	"github.com/vitalvas/refdoc/generator"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Build the document once and serve it over HTTP",
		RunE:  runServe,
	}

	flags := cmd.Flags()
	flags.String("addr", ":8080", "Listen address")
	flags.String("base-path", "/docs", "Path prefix of the docs endpoints")
	flags.String("ui", "swagger", "Docs page: swagger, rapidoc or redoc")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	addr, _ := flags.GetString("addr")
	basePath, _ := flags.GetString("base-path")
	uiName, _ := flags.GetString("ui")

	ui, err := docserver.ParseUI(uiName)
	if err != nil {
		return newUsageError(err.Error())
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	requireValidation(cfg)

	logger := newLogger(cmd)
	g, err := generator.New(cfg, generator.WithLogger(logger))
	if err != nil {
		return err
	}

	doc, err := g.Build(cmd.Context())
	if err != nil {
		return err
	}

	r := mux.NewRouter()
	r.Use(
		docserver.RequestID(docserver.RequestIDConfig{}),
		docserver.Recovery(logger),
		docserver.Logging(logger),
	)
	if err := docserver.Register(r, basePath, doc, &docserver.Config{UI: ui}); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return docserver.Serve(ctx, addr, r, logger)
}
