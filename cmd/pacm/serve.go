package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pacm/internal/httpapi"
	"pacm/internal/manager"
)

// newServeCmd returns the "pacm serve" subcommand, which runs the admin/status
// HTTP API over a long-lived manager instead of exiting after one batch of
// install/uninstall/update operations.
func newServeCmd() *cobra.Command {
	var (
		addr           string
		cfgPath        string
		endpoint       string
		indexURI       string
		installDir     string
		dataDir        string
		tempDir        string
		checksum       string
		logFile        string
		whiny          bool
		corsEnabled    bool
		corsOrigins    []string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "run the package manager as a long-lived HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cli := &cliOptions{
				configFile: cfgPath,
				endpoint:   endpoint,
				indexURI:   indexURI,
				installDir: installDir,
				dataDir:    dataDir,
				tempDir:    tempDir,
				checksum:   checksum,
				logFile:    logFile,
				whiny:      whiny,
			}
			return runServe(cmd.Context(), cli, addr, corsEnabled, corsOrigins)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", envOr("PACM_ADDR", ":8081"), "HTTP listen address, e.g. :8081")
	cmd.Flags().StringVar(&cfgPath, "config", "", "path to a yaml/json/toml config file")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "remote package index base URL")
	cmd.Flags().StringVar(&indexURI, "uri", "/index.json", "remote package index path, appended to endpoint")
	cmd.Flags().StringVar(&installDir, "install-dir", "", "directory installed package files are placed under")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "directory holding per-package manifest files")
	cmd.Flags().StringVar(&tempDir, "temp-dir", "", "directory holding downloaded archives and staging files")
	cmd.Flags().StringVar(&checksum, "checksum-alg", "", "checksum algorithm to verify downloaded archives with (md5, sha1)")
	cmd.Flags().StringVar(&logFile, "logfile", "", "write logs to this file instead of stderr")
	cmd.Flags().BoolVar(&whiny, "whiny", false, "fail startup on the first finalize error instead of only logging it")
	cmd.Flags().BoolVar(&corsEnabled, "cors", false, "enable CORS on the HTTP API")
	cmd.Flags().StringSliceVar(&corsOrigins, "cors-origin", []string{"*"}, "allowed CORS origins when --cors is set")

	return cmd
}

func runServe(ctx context.Context, cli *cliOptions, addr string, corsEnabled bool, corsOrigins []string) error {
	logger := configureLogging(cli.logFile)

	httpapi.SetLogger(logger)

	mgrOpts, err := resolveOptions(cli)
	if err != nil {
		return err
	}

	mgr := manager.NewWithConfig(manager.Config{Options: mgrOpts, Logger: &logger})
	loadErrs, err := mgr.Initialize()
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	for _, lerr := range loadErrs {
		logger.Warn().Err(lerr).Msg("skipped invalid local manifest")
	}

	if mgr.HasUnfinalizedPackages() {
		if _, err := mgr.FinalizeInstallations(cli.whiny); err != nil {
			logger.Error().Err(err).Msg("finalize_installations failed")
			if cli.whiny {
				return err
			}
		}
	}

	if cli.endpoint != "" {
		if err := mgr.QueryRemotePackages(ctx); err != nil {
			logger.Warn().Err(err).Msg("initial query_remote_packages failed")
		}
	}

	httpapi.SetCORSOptions(corsEnabled, corsOrigins, []string{"GET", "POST"}, []string{"Content-Type", "Authorization"})

	baseCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	httpapi.SetBaseContext(baseCtx)

	srv := &http.Server{Addr: addr, Handler: httpapi.NewMux(mgr)}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("pacm serve listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-stop:
	case <-ctx.Done():
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown error")
	}
	mgr.CancelAllTasks()
	if err := mgr.Uninitialize(); err != nil {
		logger.Error().Err(err).Msg("uninitialize error")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
