package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/datagora/openhours/internal/report"
	"github.com/datagora/openhours/store"
	"github.com/datagora/openhours/store/db"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the run reports over HTTP",
	Long:  "Serve starts the report server: HTML summaries, verdict charts, an Atom feed of divergences and a small JSON API over the stored runs.",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	driver, err := db.NewDBDriver(instanceProfile)
	if err != nil {
		return err
	}
	defer driver.Close()
	if err := driver.Migrate(context.Background()); err != nil {
		return err
	}
	st := store.New(driver, instanceProfile)

	server := report.NewServer(st)
	addr := fmt.Sprintf("%s:%d", instanceProfile.Addr, instanceProfile.Port)

	go func() {
		slog.Info("report server listening", "addr", addr, "mode", instanceProfile.Mode, "version", instanceProfile.Version)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			slog.Error("report server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}
