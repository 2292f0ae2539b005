package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/eringen/folio"
	"github.com/eringen/folio/views"
)

var (
	serveAddr      string
	serveStaticDir string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web server",
	Long: `Starts the HTTP server. Pending autosave drafts are written before the
server exits on SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides ADDR)")
	serveCmd.Flags().StringVar(&serveStaticDir, "static", folio.EnvOr("STATIC_DIR", "public"), "directory served under /public")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := folio.LoadConfig()
	if serveAddr != "" {
		cfg.Addr = serveAddr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := folio.OpenStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	blobs, err := folio.NewBlobStore(cfg)
	if err != nil {
		store.Close()
		return err
	}

	app := folio.New(cfg, folio.ViewFuncs{},
		folio.WithStore(store),
		folio.WithBlobStore(blobs),
		folio.WithStaticDir(serveStaticDir),
	)
	app.Views = views.Funcs(app.Config)
	defer app.Close()

	errCh := make(chan error, 1)
	go func() { errCh <- app.Start() }()
	log.Printf("folio listening on %s", app.Config.Addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return app.Shutdown(shutdownCtx)
}
