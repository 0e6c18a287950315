package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/queryshelf/internal/api"
	"github.com/mesh-intelligence/queryshelf/internal/logging"
	"github.com/mesh-intelligence/queryshelf/internal/permissions"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the catalog over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cmd, listen)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "address to listen on (default: config listen)")
	return cmd
}

// runServe serves until ctx is done, then shuts down gracefully.
func runServe(ctx context.Context, cmd *cobra.Command, listen string) error {
	logger := logging.Logger()

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	// Prepare the schema up front so the first save does not pay for it.
	if _, err := a.store(ctx); err != nil {
		return fmt.Errorf("prepare catalog: %w", err)
	}

	if listen == "" {
		listen = a.cfg.Listen
	}
	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", listen, err)
	}

	srv := api.NewServer(a.service, permissions.NewAllowList(a.cfg.AllowedActors)).NewHTTPServer(ln.Addr().String())
	logger.Info("cli: serving",
		"addr", ln.Addr().String(),
		"databases", a.service.Databases(),
		"suggestions", a.service.CanSuggest(),
	)
	fmt.Fprintf(cmd.OutOrStdout(), "listening on http://%s\n", ln.Addr())

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("cli: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
