package cmd

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/changelog/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the read-only REST API server",
	Long: `Start an HTTP server exposing the changelog of the configured repository.
By default it listens on 127.0.0.1:8080. Use --host and --port to change it.

Routes:
  GET /api/v1/changelog?format=json|markdown|yaml&from=&to=
  GET /api/v1/tags
  GET /api/v1/tags/{name}
  GET /api/v1/issues?bucket=
  GET /api/v1/diagnostics`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings()
		if err != nil {
			return err
		}
		gc, tr, err := pipeline(cmd.Context(), s)
		if err != nil {
			return err
		}

		addr := serveAddr()
		srv := &http.Server{
			Addr:              addr,
			Handler:           api.NewServer(s, gc, tr, logger).Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		ui.Info("Serving API at http://%s/api/v1/changelog", addr)
		return listenUntilDone(cmd.Context(), srv)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "127.0.0.1", "interface to listen on")
	serveCmd.Flags().IntP("port", "p", 8080, "port to listen on")
	viper.SetDefault("host", "127.0.0.1")
	viper.SetDefault("port", 8080)
	_ = viper.BindPFlag("host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("port", serveCmd.Flags().Lookup("port"))
}

// serveAddr joins the configured host and port. An empty host falls back to
// loopback, never to all interfaces.
func serveAddr() string {
	host := viper.GetString("host")
	if host == "" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, strconv.Itoa(viper.GetInt("port")))
}

// listenUntilDone serves until ctx is cancelled, then shuts down.
func listenUntilDone(ctx context.Context, srv *http.Server) error {
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
