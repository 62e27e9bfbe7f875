package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/cuadra-dev/cuadra/internal/httpapi"
	"github.com/cuadra-dev/cuadra/internal/logger"
)

func newServeCommand() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the books as a JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, ctx, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			if listen == "" {
				listen = s.cfg.HTTP.Listen
			}
			if !s.cfg.Log.Development {
				gin.SetMode(gin.ReleaseMode)
			}

			// Handlers run concurrently; the activity log and git are not.
			var mu sync.Mutex
			router := httpapi.NewRouter(s.books, httpapi.Options{
				Logger: logger.FromContext(ctx),
				OnChange: func(ctx context.Context, action, subject, details string) {
					mu.Lock()
					defer mu.Unlock()
					if err := s.done(ctx, action, subject, details); err != nil {
						logger.Error(ctx, "recording change failed", "action", action, "subject", subject, "error", err)
					}
				},
			})

			server := &http.Server{
				Addr:         listen,
				Handler:      router,
				ReadTimeout:  15 * time.Second,
				WriteTimeout: 30 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				logger.Info(ctx, "http server listening", "addr", listen)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("http server: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			logger.Info(ctx, "shutting down http server")
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("http server shutdown: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default from cuadra.yaml)")
	return cmd
}
