package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/dyluth/warren/internal/gateway"
	"github.com/dyluth/warren/internal/printer"
	"github.com/spf13/cobra"
)

var (
	gatewayListen   string
	gatewayUpstream string
)

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Run the gateway proxy in front of the editor API",
	Long: `Run the gateway that the web editor talks to.

Every request is forwarded once to the editor API named by
gateway.upstream; status codes and bodies are relayed unchanged. When the
editor API cannot be reached the gateway answers 502 with an error
envelope. PUT /exit/{id} is forwarded as POST.

Examples:
  warren gateway
  warren gateway --upstream http://editor:8080/editor-api --listen :8000`,
	RunE: runGateway,
}

func init() {
	gatewayCmd.Flags().StringVar(&gatewayListen, "listen", "", "Listen address (overrides gateway.listen)")
	gatewayCmd.Flags().StringVar(&gatewayUpstream, "upstream", "", "Editor API base URL (overrides gateway.upstream)")
	rootCmd.AddCommand(gatewayCmd)
}

func runGateway(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg, "gateway")
	if err != nil {
		return err
	}

	upstream := cfg.Gateway.Upstream
	if gatewayUpstream != "" {
		upstream = gatewayUpstream
	}

	gw, err := gateway.New(gateway.Options{
		Upstream:     upstream,
		Timeout:      cfg.Gateway.Timeout,
		AllowOrigins: cfg.Gateway.AllowOrigins,
		Logger:       log,
	})
	if err != nil {
		return printer.Error("invalid gateway settings", err.Error(), []string{"Check gateway.upstream and gateway.timeout"})
	}

	addr := cfg.Gateway.Listen
	if gatewayListen != "" {
		addr = gatewayListen
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := gw.Start(addr); err != nil {
		return printer.Error("failed to start gateway", err.Error(), []string{"Choose another address with --listen"})
	}

	<-ctx.Done()
	log.WithField("event_type", "gateway_stopping").Info("Received signal, shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := gw.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down gateway: %w", err)
	}
	return nil
}
