package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/amishk599/jobsync/internal/annotation"
	"github.com/amishk599/jobsync/internal/api"
	"github.com/amishk599/jobsync/internal/metrics"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the jobs API",
	Long:  "Serves GET /jobs, POST /jobs/:id/flags, /health and /metrics until SIGINT/SIGTERM.",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default: api.addr from config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger := mustSetup()
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	addr := cfg.API.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	st := openStore(cfg, logger)
	defer st.Close()

	m := metrics.NewManager(metrics.WithGoCollectors())
	srv := api.NewServer(st, annotation.NewService(st, nil, logger), m, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.ListenAndServe(ctx, addr); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	logger.Info("goodbye")
	return nil
}
