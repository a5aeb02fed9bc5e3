package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/deixis/gentest/internal/config"
	"github.com/deixis/gentest/internal/logging"
	gentestmcp "github.com/deixis/gentest/internal/mcp"
	"github.com/deixis/gentest/internal/runner"
)

func newMCPCmd() *cobra.Command {
	var (
		instructions bool
		httpAddr     string
		verbose      bool
	)
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if instructions {
				fmt.Fprint(cmd.OutOrStdout(), gentestmcp.Instructions)
				return nil
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			logger, err := logging.New(verbose)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			return serve(ctx, logger, httpAddr)
		},
	}
	cmd.Flags().BoolVar(&instructions, "instructions", false, "print model instructions and exit")
	cmd.Flags().StringVar(&httpAddr, "http", "", "start HTTP server on address (e.g. :9090)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	return cmd
}

func serve(ctx context.Context, logger *zap.Logger, httpAddr string) error {
	workspace, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("determining workspace: %w", err)
	}

	loaded, err := config.Load(workspace)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg := loaded.Config

	r := &runner.Runner{
		Shell:   cfg.Shell(),
		Timeout: cfg.Timeout(),
	}

	server := gentestmcp.NewServer(cfg, r, newStore(), workspace, gentestmcp.WithLogger(logger))

	if httpAddr != "" {
		return serveHTTP(ctx, logger, server, httpAddr)
	}
	return server.Run(ctx, &mcpsdk.StdioTransport{})
}

func serveHTTP(ctx context.Context, logger *zap.Logger, server *mcpsdk.Server, addr string) error {
	handler := mcpsdk.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcpsdk.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		_ = httpServer.Close()
	}()

	logger.Info("listening", zap.String("addr", addr))
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
