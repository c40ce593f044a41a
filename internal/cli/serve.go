package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/JimmyLeeSnow/xyflow/pkg/config"
	"github.com/JimmyLeeSnow/xyflow/pkg/flow/store"
	"github.com/JimmyLeeSnow/xyflow/pkg/server"
)

// shutdownTimeout bounds graceful drain of in-flight requests.
const shutdownTimeout = 5 * time.Second

// serveCommand creates the serve command that runs the editor server.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		configPath string
		watch      bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the flow editor server",
		Long: `Serve runs the editor store behind an HTTP and WebSocket API.

Clients read and mutate the graph over REST endpoints under /api and
subscribe to live state snapshots on /ws. Sessions and the snapshot
cache use the backends selected in the config file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			c.SetLogLevel(parseLevel(cfg.Log.Level))
			return c.runServer(cmd.Context(), cfg, configPath, watch)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to TOML config file")
	cmd.Flags().BoolVar(&watch, "watch", false, "reload config on change")

	return cmd
}

func (c *CLI) runServer(ctx context.Context, cfg *config.Config, configPath string, watch bool) error {
	sessions, err := newSessionStore(ctx, cfg)
	if err != nil {
		return err
	}
	artifacts, err := newCache(cfg)
	if err != nil {
		return err
	}
	defer artifacts.Close()

	st := store.New(cfg.Store.Options())

	srv := server.New(server.Options{
		Store:    st,
		Sessions: sessions,
		Cache:    artifacts,
		Logger:   c.Logger,
	})
	stopHub := srv.Start()
	defer stopHub()

	httpSrv := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: srv.Handler(),
	}

	if watch && configPath != "" {
		go c.watchConfig(ctx, configPath, st)
	}

	errc := make(chan error, 1)
	go func() {
		errc <- httpSrv.ListenAndServe()
	}()

	printSuccess("listening on %s", styleLink.Render("http://"+cfg.Server.Addr()))
	printDetail("sessions: %s, cache: %s", cfg.Session.Backend, cfg.Cache.Backend)

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	c.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// watchConfig applies live-reloadable settings when the config file
// changes. Listen address and backends require a restart.
func (c *CLI) watchConfig(ctx context.Context, path string, st *store.Store) {
	err := config.Watch(ctx, path, c.Logger, func(cfg *config.Config) {
		c.SetLogLevel(parseLevel(cfg.Log.Level))
		if err := st.SetMinZoom(cfg.Store.MinZoom); err != nil {
			c.Logger.Warn("min zoom not applied", "err", err)
		}
		if err := st.SetMaxZoom(cfg.Store.MaxZoom); err != nil {
			c.Logger.Warn("max zoom not applied", "err", err)
		}
		st.SetSnapGrid(cfg.Store.Options().SnapGrid)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		c.Logger.Warn("config watcher stopped", "err", err)
	}
}
