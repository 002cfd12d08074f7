package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the BBMS authentication server",
	Long: `Loads the server configuration, connects the identity provider, the operation
registry and the identity directory, and serves the session API until SIGINT or SIGTERM.
SIGHUP reloads the policy section of the config file.

The token signing key is read from BBMS_SIGNING_KEY and never from the config file.`,
	Example: `  BBMS_SIGNING_KEY=$(openssl rand -hex 32) bbms serve -c bbms.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := f.LoadServerConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		rt, err := f.BuildRuntime(ctx, cfg)
		if err != nil {
			return err
		}
		defer rt.Close()

		server := &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           rt.Server.Routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		hup := make(chan os.Signal, 1)
		signal.Notify(hup, syscall.SIGHUP)
		defer signal.Stop(hup)
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-hup:
					log.Info().Msg("Received SIGHUP, reloading policy...")
					if err := rt.TaskManager.Trigger(policyReloadTaskName); err != nil {
						log.Warn().Err(err).Msg("policy reload unavailable")
					}
				}
			}
		}()

		serveErr := make(chan error, 1)
		go func() {
			log.Info().Msgf("Starting server on %s...", cfg.Server.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
			close(serveErr)
		}()

		select {
		case err := <-serveErr:
			if err != nil {
				return fmt.Errorf("server crashed: %w", err)
			}
		case <-ctx.Done():
		}
		log.Info().Msg("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		stop()
		rt.TaskManager.Wait()

		log.Info().Msg("Server exited")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	f.bindConfigFlag(serveCmd.Flags())
	serveCmd.Flags().String("addr", "", "address to listen on, overrides server.addr")
}
