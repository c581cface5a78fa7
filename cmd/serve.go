package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"bookman/internal/activity"
	"bookman/internal/db"
	"bookman/internal/server"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(a *app) *cobra.Command {
	c := &cobra.Command{
		Use:   "serve",
		Short: "Run the reference book service",
		Long: `Serve runs a small book service backed by SQLite under ` + server.BasePath + `.

When redis_url (or REDIS_URL) is set, served requests are also kept in a
capped Redis list and exposed at ` + server.BasePath + `/activity.`,
		Args: cobra.NoArgs,
		RunE: a.runServe,
	}
	c.Flags().String("listen", defaultListen, "address to listen on")
	c.Flags().String("db", "", "SQLite database file (default: ~/.bookman/books.db)")
	return c
}

func (a *app) runServe(cmd *cobra.Command, args []string) error {
	if err := os.MkdirAll(filepath.Dir(a.cfg.DBPath), 0700); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}
	database, err := db.Open(a.cfg.DBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	var opts []server.Option
	if a.cfg.RedisURL != "" {
		rdb, err := activity.Dial(a.cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()
		opts = append(opts, server.WithRecorder(activity.NewRedisLog(rdb, activity.DefaultKey, activity.DefaultMax)))
		log.Printf("activity log enabled (%s)", a.cfg.RedisURL)
	}

	srv := &http.Server{
		Addr:              a.cfg.Listen,
		Handler:           server.New(database, opts...),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening on %s%s (db %s)", a.cfg.Listen, server.BasePath, a.cfg.DBPath)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Printf("stopped")
	return nil
}
