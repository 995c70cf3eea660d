package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/adaptive-tutor/internal/codec"
	"github.com/danielpatrickdp/adaptive-tutor/internal/config"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve-estimator",
	Short: "Serve the local value estimator over gRPC",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "listen address (defaults to estimator.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// the served network is always the local one
	local := *cfg
	local.Estimator.Mode = config.ModeLocal
	rt, err := openRuntime(&local, log)
	if err != nil {
		return err
	}
	defer rt.Close()

	addr := listenAddr
	if addr == "" {
		addr = cfg.Estimator.Addr
	}
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	log.Info("estimator service listening", "addr", lis.Addr().String(), "version", rt.currentVersion())

	serveErr := codec.Serve(ctx, lis, rt.guarded, log)
	if err := rt.commit(context.Background(), map[string]any{"source": "serve-estimator"}); err != nil {
		log.Error("commit on shutdown failed", "error", err)
	}
	return serveErr
}
