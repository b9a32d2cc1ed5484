package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/mflow/internal/api"
)

var (
	serveAddr    string
	serveOrigins []string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API for the web view",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := requireService()
		if err != nil {
			return err
		}

		srv := api.NewServer(svc, MetricsCalc, AlertEngine, api.Config{
			Addr:           serveAddr,
			AllowedOrigins: serveOrigins,
		}).HTTPServer()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		errc := make(chan error, 1)
		go func() {
			fmt.Printf("Serving mflow API on http://%s\n", srv.Addr)
			errc <- srv.ListenAndServe()
		}()

		select {
		case err := <-errc:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serving API: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down API: %w", err)
		}
		return nil
	},
}

func init() {
	defaults := api.DefaultConfig()
	serveCmd.Flags().StringVar(&serveAddr, "addr", defaults.Addr, "Listen address")
	serveCmd.Flags().StringSliceVar(&serveOrigins, "origin", defaults.AllowedOrigins, "Allowed CORS origins")
	rootCmd.AddCommand(serveCmd)
}
