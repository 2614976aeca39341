package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"text/tabwriter"
	"time"

	"github.com/hoanghai1803/folio/internal/api"
	"github.com/hoanghai1803/folio/internal/api/handlers"
	"github.com/hoanghai1803/folio/internal/build"
	"github.com/hoanghai1803/folio/internal/config"
	"github.com/hoanghai1803/folio/internal/storage"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "folio",
		Short: "Build the portfolio site's articles and repository datasets",
		Long: `folio regenerates the JSON datasets a static portfolio site reads:
recent blog articles from an RSS feed and a ranked selection of public
repositories with README thumbnails.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelInfo
			if opts.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "folio.toml", "path to config file")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newBuildCmd(opts),
		newServeCmd(opts),
		newRunsCmd(opts),
		newVersionCmd(),
	)
	return root
}

func newBuildCmd(opts *rootOptions) *cobra.Command {
	var only string

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Fetch upstream data and write the datasets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			store := openHistory(cfg)
			if store != nil {
				defer store.Close()
			}

			runner, err := newRunner(cfg, store)
			if err != nil {
				return err
			}

			if only != "" {
				rep, err := runner.Run(cmd.Context(), only)
				if err != nil {
					return err
				}
				printReports(cmd.OutOrStdout(), rep)
				return nil
			}

			reports, err := runner.RunAll(cmd.Context())
			printReports(cmd.OutOrStdout(), reports...)
			return err
		},
	}

	cmd.Flags().StringVar(&only, "only", "", `run a single pipeline: "articles" or "repos"`)
	return cmd
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the datasets and run history on localhost",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			store := openHistory(cfg)
			if store != nil {
				defer store.Close()
			}

			runner, err := newRunner(cfg, store)
			if err != nil {
				return err
			}

			var history handlers.RunHistory
			if store != nil {
				history = store
			}

			// Localhost only: the build endpoint writes to disk.
			srv := &http.Server{
				Addr:              fmt.Sprintf("localhost:%d", cfg.Server.Port),
				Handler:           api.NewRouter(runner, history, cfg),
				ReadHeaderTimeout: 10 * time.Second,
			}
			return serve(cmd.Context(), srv)
		},
	}
}

// serve runs srv until ctx is cancelled, then shuts it down gracefully.
func serve(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", "http://"+srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

func newRunsCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent pipeline runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit < 1 {
				return fmt.Errorf("invalid --limit %d: must be >= 1", limit)
			}
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if !cfg.History.Enabled {
				return errors.New("run history is disabled in the config")
			}
			store, err := storage.Open(cfg.History.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.GetRecentRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tWHEN\tPIPELINE\tSTATUS\tITEMS\tWARNINGS\tDURATION\tERROR")
			for _, r := range runs {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%d\t%dms\t%s\n",
					r.ID, r.CreatedAt.Local().Format(time.DateTime), r.Pipeline, r.Status,
					r.Items, r.Warnings, r.DurationMS, r.Error)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "folio %s\n", version)
		},
	}
}

// openHistory opens the run history database, or returns nil when history
// is disabled or cannot be opened. Builds never fail because of history.
func openHistory(cfg *config.Config) *storage.Store {
	if !cfg.History.Enabled {
		return nil
	}
	store, err := storage.Open(cfg.History.Path)
	if err != nil {
		slog.Warn("run history unavailable", "path", cfg.History.Path, "error", err)
		return nil
	}
	return store
}

// newRunner keeps a nil store out of the Recorder interface, where it would
// no longer compare equal to nil.
func newRunner(cfg *config.Config, store *storage.Store) (*build.Runner, error) {
	if store == nil {
		return build.NewRunner(cfg, nil, nil)
	}
	return build.NewRunner(cfg, nil, store)
}

func printReports(w io.Writer, reports ...*build.Report) {
	for _, r := range reports {
		fmt.Fprintf(w, "%-8s  %d items  %d warnings  -> %s (%dms)\n",
			r.Pipeline, r.Items, r.Warnings, r.Output, r.DurationMS)
	}
}
