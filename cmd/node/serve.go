package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/nodecore/node/internal/network"
)

// serveCmd runs the v1/v2 HTTP API and the gRPC inter-node dispatch
// endpoint side by side, matching the teacher's run()-returns-error
// command shape in registry/cmd/registry.
func serveCmd() *cobra.Command {
	var httpAddr string
	var grpcAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the node's HTTP API and gRPC dispatch endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			secretPath, _ := cmd.Flags().GetString("secret-file")
			storePath, _ := cmd.Flags().GetString("store-path")
			nodeName, _ := cmd.Flags().GetString("node-name")

			n, err := newNode(secretPath, storePath, nodeName)
			if err != nil {
				return fmt.Errorf("wire node: %w", err)
			}
			defer n.close()

			return n.serve(cmd.Context(), httpAddr, grpcAddr)
		},
	}
	cmd.Flags().StringVar(&httpAddr, "http-addr", ":9550", "address for the v1/v2 HTTP API")
	cmd.Flags().StringVar(&grpcAddr, "grpc-addr", ":9551", "address for the inter-node gRPC dispatch endpoint")
	return cmd
}

// serve starts the HTTP and gRPC listeners and blocks until the process
// receives an interrupt or either listener fails.
func (n *node) serve(ctx context.Context, httpAddr, grpcAddr string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	mux := http.NewServeMux()
	mux.Handle("/metrics", n.metrics.Handler())
	mux.Handle("/", n.apiServer.Routes())
	httpServer := &http.Server{Addr: httpAddr, Handler: mux}
	grpcServer := grpc.NewServer()
	network.RegisterDispatchServer(grpcServer, n)

	grpcLis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}

	errCh := make(chan error, 2)
	go func() {
		n.logger.Info(ctx, "starting v1/v2 HTTP API", "addr", httpAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http serve: %w", err)
		}
	}()
	go func() {
		n.logger.Info(ctx, "starting gRPC dispatch endpoint", "addr", grpcAddr)
		if err := grpcServer.Serve(grpcLis); err != nil {
			errCh <- fmt.Errorf("grpc serve: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		n.logger.Info(ctx, "shutting down")
		_ = httpServer.Shutdown(context.Background())
		grpcServer.GracefulStop()
		return nil
	case err := <-errCh:
		_ = httpServer.Shutdown(context.Background())
		grpcServer.GracefulStop()
		return err
	}
}
