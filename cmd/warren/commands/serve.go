package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/dyluth/warren/internal/api"
	"github.com/dyluth/warren/internal/editor"
	"github.com/dyluth/warren/internal/printer"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var (
	serveListen   string
	serveTagMerge string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the editor API",
	Long: `Run the primary editor API against the configured world store.

The API is served under api.base_path (default /editor-api) with a
/healthz endpoint alongside. The server stops gracefully on SIGINT or
SIGTERM.

Tag handling on room upsert:
  attributes - store each supplied tag as a string attribute (default)
  tags       - store supplied tags in the room's tag set

Examples:
  # Serve using warren.yml in the current directory
  warren serve

  # Serve a local SQLite world on another port
  WARREN_STORE_DRIVER=sqlite WARREN_SQLITE_PATH=world.db warren serve --listen :9090`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "Listen address (overrides api.listen)")
	serveCmd.Flags().StringVar(&serveTagMerge, "tag-merge", "attributes", "Where upserted tags go: attributes or tags")
	rootCmd.AddCommand(serveCmd)
}

func parseTagMerge(s string) (editor.TagMerge, error) {
	switch s {
	case "", "attributes":
		return editor.TagMergeAttributes, nil
	case "tags":
		return editor.TagMergeTags, nil
	default:
		return 0, printer.Error(
			"invalid tag merge",
			fmt.Sprintf("Unknown value: %s", s),
			[]string{"Valid values: attributes, tags"},
		)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	tagMerge, err := parseTagMerge(serveTagMerge)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg, "serve")
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	svc, err := newService(cfg, store, editor.Options{TagMerge: tagMerge, Logger: log})
	if err != nil {
		return err
	}

	server := api.NewServer(svc, api.Options{
		BasePath:     cfg.API.BasePath,
		DefaultDepth: *cfg.Graph.DefaultDepth,
		Logger:       log,
	})

	addr := cfg.API.Listen
	if serveListen != "" {
		addr = serveListen
	}
	if err := server.Start(addr); err != nil {
		return printer.Error("failed to start API", err.Error(), []string{"Choose another address with --listen"})
	}

	log.WithFields(logrus.Fields{
		"event_type": "serve_started",
		"store":      cfg.Store.Driver,
		"graph_mode": string(svc.Mode()),
	}).Info("Editor API started")

	<-ctx.Done()
	log.WithField("event_type", "serve_stopping").Info("Received signal, shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down API: %w", err)
	}

	log.WithField("event_type", "serve_stopped").Info("Editor API stopped")
	return nil
}
