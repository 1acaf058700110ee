package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"visual-nuts/cache"
	"visual-nuts/config"
	"visual-nuts/handlers"
	"visual-nuts/services"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := config.Load()

	root := &cobra.Command{
		Use:          "visual-nuts",
		Short:        "Country language statistics and the Visual Nuts sequence",
		SilenceUsage: true,
	}

	root.AddCommand(
		newServeCmd(cfg),
		newAnalyzeCmd(cfg),
		newPrintCmd(cfg),
	)
	return root
}

func newServeCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cfg)
		},
	}
}

func newAnalyzeCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze [dataset]",
		Short: "Analyze a country dataset (.json, .yaml or .html)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := cfg.DatasetPath
			if len(args) == 1 {
				path = args[0]
			}

			countries, err := services.LoadDataset(path)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(services.Analyze(countries))
		},
	}
}

func newPrintCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "print [target]",
		Short: "Print the Visual Nuts labels from 1 to target",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := cfg.PrintTarget
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("target must be an integer: %w", err)
				}
				target = n
			}

			_, err := services.EmitRange(cmd.OutOrStdout(), target)
			return err
		},
	}
}

func serve(cfg *config.Config) error {
	analysisCache, err := cache.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("cache init failed: %w", err)
	}
	defer analysisCache.Close()

	log.Printf("Cache: %d stored analyses", analysisCache.Stats())

	h := handlers.New(cfg, analysisCache)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: h.Routes(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return runServer(ctx, srv)
}

// runServer serves until ctx is cancelled, then shuts srv down. It returns
// once the shutdown goroutine has exited, also when the listener fails.
func runServer(ctx context.Context, srv *http.Server) error {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		<-ctx.Done()
		log.Println("Shutting down...")

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}()

	log.Printf("Server starting on http://localhost%s", srv.Addr)
	err := srv.ListenAndServe()

	cancel()
	<-done

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
