package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"pacm/internal/config"
	"pacm/internal/fsutil"
	"pacm/internal/manager"
	"pacm/internal/pkgmodel"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type cliOptions struct {
	configFile string
	endpoint   string
	indexURI   string
	installDir string
	dataDir    string
	tempDir    string
	installIDs string
	uninstall  string
	update     bool
	print      bool
	checksum   string
	logFile    string
	whiny      bool
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	root := &cobra.Command{
		Use:           "pacm",
		Short:         "Binary plugin package manager",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCLI(cmd.Context(), opts)
		},
	}

	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "path to a yaml/json/toml config file")
	root.PersistentFlags().StringVar(&opts.endpoint, "endpoint", "", "remote package index base URL")
	root.PersistentFlags().StringVar(&opts.indexURI, "uri", "/index.json", "remote package index path, appended to endpoint")
	root.PersistentFlags().StringVar(&opts.installDir, "install-dir", "", "directory installed package files are placed under")
	root.PersistentFlags().StringVar(&opts.dataDir, "data-dir", "", "directory holding per-package manifest files")
	root.PersistentFlags().StringVar(&opts.tempDir, "temp-dir", "", "directory holding downloaded archives and staging files")
	root.PersistentFlags().StringVar(&opts.installIDs, "install", "", "comma-separated package ids to install")
	root.PersistentFlags().StringVar(&opts.uninstall, "uninstall", "", "comma-separated package ids to uninstall")
	root.PersistentFlags().BoolVar(&opts.update, "update", false, "update every installed package to its latest installable asset")
	root.PersistentFlags().BoolVar(&opts.print, "print", false, "print the local and remote package list, then exit")
	root.PersistentFlags().StringVar(&opts.checksum, "checksum-alg", "", "checksum algorithm to verify downloaded archives with (md5, sha1)")
	root.PersistentFlags().StringVar(&opts.logFile, "logfile", "", "write logs to this file instead of stderr")
	root.PersistentFlags().BoolVar(&opts.whiny, "whiny", false, "exit nonzero on the first per-package failure instead of only logging it")

	root.AddCommand(newServeCmd())
	return root
}

func runCLI(ctx context.Context, cli *cliOptions) error {
	logger := configureLogging(cli.logFile)

	mgrOpts, err := resolveOptions(cli)
	if err != nil {
		return err
	}

	mgr := manager.NewWithConfig(manager.Config{Options: mgrOpts, Logger: &logger})
	if loadErrs, err := mgr.Initialize(); err != nil {
		return fmt.Errorf("initialize: %w", err)
	} else {
		for _, lerr := range loadErrs {
			logger.Warn().Err(lerr).Msg("skipped invalid local manifest")
		}
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
			return fmt.Errorf("query_remote_packages: %w", err)
		}
	}

	if cli.print {
		return printPackages(mgr)
	}

	failed := false

	if ids := splitCSV(cli.installIDs); len(ids) > 0 {
		opts := pkgmodel.InstallOptions{ClearFailedCache: mgrOpts.ClearFailedCache, Whiny: cli.whiny}
		if err := mgr.InstallPackages(ctx, ids, opts, nil); err != nil {
			if cli.whiny {
				return err
			}
			failed = true
		}
	}

	if cli.update {
		opts := pkgmodel.InstallOptions{ClearFailedCache: mgrOpts.ClearFailedCache, Whiny: cli.whiny}
		if err := mgr.UpdateAllPackages(ctx, opts, nil); err != nil {
			if cli.whiny {
				return err
			}
			failed = true
		}
	}

	for _, id := range splitCSV(cli.uninstall) {
		if err := mgr.UninstallPackage(id); err != nil {
			logger.Error().Err(err).Str("package", id).Msg("uninstall failed")
			if cli.whiny {
				return err
			}
			failed = true
		}
	}

	if failed {
		return fmt.Errorf("one or more package operations failed")
	}
	return nil
}

func resolveOptions(cli *cliOptions) (manager.Options, error) {
	opts := manager.Options{
		Endpoint:          cli.endpoint,
		IndexURI:          cli.indexURI,
		InstallDir:        cli.installDir,
		DataDir:           cli.dataDir,
		TempDir:           cli.tempDir,
		Platform:          detectPlatform(),
		ChecksumAlgorithm: cli.checksum,
		Whiny:             cli.whiny,
	}

	if cli.configFile != "" {
		configFile, err := fsutil.ExpandHome(cli.configFile)
		if err != nil {
			return opts, fmt.Errorf("expand config path: %w", err)
		}
		fileCfg, err := config.Load(configFile)
		if err != nil {
			return opts, fmt.Errorf("load config: %w", err)
		}
		opts = fileCfg.ApplyOverrides(opts)
	}

	return expandOptionDirs(opts)
}

// expandOptionDirs resolves a leading '~' in every directory flag/config
// value before the manager ever sees it, so "-install-dir ~/.pacm/install"
// and the equivalent config file fields work the same way.
func expandOptionDirs(opts manager.Options) (manager.Options, error) {
	for _, dir := range []*string{&opts.InstallDir, &opts.DataDir, &opts.TempDir} {
		expanded, err := fsutil.ExpandHome(*dir)
		if err != nil {
			return opts, fmt.Errorf("expand directory path: %w", err)
		}
		*dir = expanded
	}
	return opts, nil
}

func detectPlatform() manager.Platform {
	switch runtime.GOOS {
	case "windows":
		return manager.PlatformWindows
	case "darwin":
		return manager.PlatformMac
	default:
		return manager.PlatformLinux
	}
}

func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func printPackages(mgr *manager.Manager) error {
	for _, pair := range mgr.PackagePairs() {
		state := "not-installed"
		if pair.Local != nil {
			state = string(pair.Local.State())
		}
		cached := ""
		if mgr.HasCachedFile(pair.ID()) {
			cached = " (cached: " + mgr.GetCacheFilePath(pair.ID()) + ")"
		}
		fmt.Printf("%s\t%s\t%s%s\n", pair.ID(), pair.Name(), state, cached)
	}
	return nil
}

func configureLogging(logFile string) zerolog.Logger {
	out := os.Stderr
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "pacm: could not open logfile %s: %v\n", logFile, err)
		} else {
			out = f
		}
	}
	return zerolog.New(out).With().Timestamp().Logger()
}
