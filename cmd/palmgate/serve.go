package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayusman/palmgate/internal/app"
	"github.com/ayusman/palmgate/internal/config"
	"github.com/ayusman/palmgate/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the control API, live streams and session history",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (default from config)")
	serveCmd.Flags().Bool("start", false, "Start a capture session immediately")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, cfg, cleanup, err := openApp()
	if err != nil {
		return err
	}
	defer cleanup()

	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = cfg.Server.Addr
	}
	autoStart, _ := cmd.Flags().GetBool("start")

	srv := newServer(a, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if autoStart {
		if err := a.Start(); err != nil {
			return err
		}
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newServer(a *app.App, cfg *config.Config) *server.Server {
	webDir := findWebDir(cfg.Server.StaticDir)
	if webDir != "" {
		fmt.Printf("Serving static files from: %s\n", webDir)
	}
	return server.New(server.Config{
		StaticDir: webDir,
		Store:     a.Store(),
		Scheduler: a.Scheduler(),
		Control:   a,
	})
}
