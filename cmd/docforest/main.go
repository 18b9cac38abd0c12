// Package main provides the docforest binary entry point.
// Docforest ingests heterogeneous document sources into a normalized
// forest of hierarchical text artifacts.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/c360studio/docforest/config"
	"github.com/c360studio/docforest/fetch"
	"github.com/c360studio/docforest/loader"
	"github.com/c360studio/docforest/sources"
	"github.com/c360studio/docforest/storage"
)

const (
	Version = "0.1.0"
	appName = "docforest"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
		dataDir    string
	)

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Document ingestion into hierarchical text artifacts",
		Long: `Docforest crawls web sources or scans local file trees, parses
HTML, Markdown, PDF, and XML documents, and persists the resulting
page/artifact forest for downstream sampling.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&dataDir, "data-dir", "raw", "Root directory for file-backed sources")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s\n", appName, Version)
		},
	})

	cmd.AddCommand(sourcesCmd())
	cmd.AddCommand(ingestCmd(&configPath, &logLevel, &dataDir))

	return cmd
}

func sourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List the registered ingestion sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, src := range sources.NewRegistry().All() {
				fmt.Fprintf(w, "%s\t%s\n", src.Name, src.Description)
			}
			return w.Flush()
		},
	}
}

func ingestCmd(configPath, logLevel, dataDir *string) *cobra.Command {
	var (
		watch       bool
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "ingest <source>",
		Short: "Run one source's loader and persist its pages and artifacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(args[0], *configPath, *logLevel, *dataDir, watch, metricsAddr)
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "Keep a file source live, re-ingesting on changes")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")

	return cmd
}

func runIngest(name, configPath, logLevel, dataDir string, watch bool, metricsAddr string) error {
	logger := newLogger(logLevel)
	slog.SetDefault(logger)

	cfg, err := loadConfig(configPath, logger)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	src, ok := sources.NewRegistry().Get(name)
	if !ok {
		return fmt.Errorf("unknown source %q (run %q for the list)", name, appName+" sources")
	}

	deps := sources.Deps{
		HTTP:    fetch.NewClient(cfg.ToFetch(), logger),
		Browser: fetch.NewBrowser(cfg.ToBrowser(), logger),
		DataDir: dataDir,
		Logger:  logger,
	}
	l, err := src.New(deps)
	if err != nil {
		return fmt.Errorf("build loader for %s: %w", name, err)
	}

	store, err := storage.NewStore(cfg.Storage.Dir, logger)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if metricsAddr != "" {
		go serveMetrics(ctx, metricsAddr, logger)
	}

	if err := ingestOnce(ctx, name, l, store, logger); err != nil {
		return err
	}
	if !watch {
		return nil
	}

	fl, ok := l.(*loader.FileLoader)
	if !ok {
		return fmt.Errorf("source %q is not file-backed, --watch is unavailable", name)
	}
	return watchAndReingest(ctx, name, fl, store, cfg, logger)
}

func ingestOnce(ctx context.Context, name string, l loader.Loader, store *storage.Store, logger *slog.Logger) error {
	started := time.Now()
	pages, artifacts, err := l.Load(ctx)
	if err != nil {
		return fmt.Errorf("load %s: %w", name, err)
	}

	if err := store.SavePages(name, pages); err != nil {
		return fmt.Errorf("save pages: %w", err)
	}
	if err := store.SaveArtifacts(name, artifacts); err != nil {
		return fmt.Errorf("save artifacts: %w", err)
	}

	logger.Info("ingest complete",
		slog.String("source", name),
		slog.Int("pages", len(pages)),
		slog.Int("artifacts", len(artifacts)),
		slog.Duration("elapsed", time.Since(started).Round(time.Millisecond)))
	return nil
}

func watchAndReingest(ctx context.Context, name string, fl *loader.FileLoader, store *storage.Store, cfg *config.Config, logger *slog.Logger) error {
	w, err := loader.NewWatcher(fl.Root(), fl.Pattern(), cfg.ToWatch(), logger)
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer w.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down watch", slog.String("source", name))
			return nil
		case batch, ok := <-w.Events():
			if !ok {
				return nil
			}
			logger.Info("changes detected, re-ingesting",
				slog.String("source", name),
				slog.Int("changed_files", len(batch)))
			if err := ingestOnce(ctx, name, fl, store, logger); err != nil {
				logger.Error("re-ingest failed",
					slog.String("source", name),
					slog.String("error", err.Error()))
			}
		}
	}
}

func serveMetrics(ctx context.Context, addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("serving metrics", slog.String("addr", addr))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("metrics server failed", slog.String("error", err.Error()))
	}
}

func newLogger(level string) *slog.Logger {
	lvl := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func loadConfig(configPath string, logger *slog.Logger) (*config.Config, error) {
	if configPath != "" {
		cfg, err := config.LoadFromFile(configPath)
		if err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return config.NewLoader(logger).Load()
}
