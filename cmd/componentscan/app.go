package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nao1215/componentscan/internal/config"
	"github.com/nao1215/componentscan/internal/crawler"
	"github.com/nao1215/componentscan/internal/database"
	applog "github.com/nao1215/componentscan/internal/log"
	"github.com/nao1215/componentscan/internal/model"
	"github.com/nao1215/componentscan/internal/repository"
	"github.com/spf13/cobra"
)

// addConnectionFlags registers the flags shared by every command that
// talks to the repository.
func addConnectionFlags(cmd *cobra.Command) {
	cmd.Flags().String("host", "",
		"Repository base URL (default: $AEM_HOST, the project file, or "+config.DefaultHost+")")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each repository request")
	cmd.Flags().String("socks-proxy", "",
		"SOCKS5 proxy address (host:port) used to reach the repository")
	cmd.Flags().StringP("config", "c", "",
		"Project file path (default: .componentscan in current or home directory, then the XDG config directory)")
}

// addCrawlFlags registers the flags that shape a crawl run.
func addCrawlFlags(cmd *cobra.Command) {
	addConnectionFlags(cmd)

	cmd.Flags().BoolP("recursive", "r", false,
		"Analyze child components recursively")
	cmd.Flags().IntP("depth", "d", config.DefaultDepth,
		"Maximum recursion depth below the root component")
	cmd.Flags().Bool("no-dependencies", false,
		"Skip clientlib, Sling Model and inheritance resolution")
	cmd.Flags().Bool("fetch-assets", false,
		"Download referenced images for size, digest and EXIF metadata")
	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency,
		"Number of components of one level analyzed in parallel")
	cmd.Flags().Int("cache-size", config.DefaultCacheSize,
		"Number of JSON responses remembered during one run (0 disables)")
	cmd.Flags().Bool("no-save", false,
		"Do not store the result in the history database")
	cmd.Flags().String("db-dir", "",
		"History database directory (default: XDG data directory)")
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// getLogFormatFlag retrieves the log format from the command or its parent.
func getLogFormatFlag(cmd *cobra.Command) string {
	format, err := cmd.Flags().GetString("log-format")
	if err != nil {
		format, err = cmd.Root().PersistentFlags().GetString("log-format")
		if err != nil {
			return config.DefaultLogFormat
		}
	}
	return format
}

// buildConfig creates a Config for the given targets. Later sources win:
// defaults, the project file, .env and the environment, then flags.
func buildConfig(cmd *cobra.Command, targets []string) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Targets = targets
	cfg.Verbose = getVerboseFlag(cmd)
	cfg.LogFormat = getLogFormatFlag(cmd)

	var err error
	flags := cmd.Flags()

	if err := loadProjectFile(cmd, cfg); err != nil {
		return nil, err
	}

	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}
	cfg.ApplyEnvironment(nil)

	if flags.Changed("host") {
		if cfg.Host, err = flags.GetString("host"); err != nil {
			return nil, err
		}
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if flags.Changed("socks-proxy") {
		if cfg.SOCKSProxy, err = flags.GetString("socks-proxy"); err != nil {
			return nil, err
		}
	}

	if cfg.Recursive, err = flags.GetBool("recursive"); err != nil {
		return nil, err
	}
	if cfg.MaxDepth, err = flags.GetInt("depth"); err != nil {
		return nil, err
	}
	noDeps, err := flags.GetBool("no-dependencies")
	if err != nil {
		return nil, err
	}
	cfg.IncludeDependencies = !noDeps
	if cfg.FetchAssets, err = flags.GetBool("fetch-assets"); err != nil {
		return nil, err
	}
	if cfg.Concurrency, err = flags.GetInt("concurrency"); err != nil {
		return nil, err
	}
	if cfg.CacheSize, err = flags.GetInt("cache-size"); err != nil {
		return nil, err
	}
	noSave, err := flags.GetBool("no-save")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noSave
	if err := applyDBDir(cmd, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadProjectFile applies the project file named by --config, or the one
// found in the current or home directory. An explicit file must exist.
func loadProjectFile(cmd *cobra.Command, cfg *config.Config) error {
	var err error
	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return err
	}

	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	if configPath == "" {
		if cfg.ConfigFilePath != "" {
			return fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
		}
		return nil
	}

	f, err := config.LoadConfigFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config file %s: %w", configPath, err)
	}
	cfg.ApplyFile(f)
	return nil
}

// applyDBDir overrides the history directory when --db-dir is set.
func applyDBDir(cmd *cobra.Command, cfg *config.Config) error {
	dir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	if dir != "" {
		cfg.DBDir = dir
	}
	return nil
}

// newLogger creates the secure logger writing to the command's stderr.
func newLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	return applog.New(cmd.ErrOrStderr(), cfg.LogFormat, cfg.Verbose)
}

// newCrawler connects to the repository and applies project file settings.
func newCrawler(cfg *config.Config, logger *slog.Logger) (*crawler.Crawler, error) {
	clientOpts := []repository.Option{
		repository.WithTimeout(cfg.Timeout),
		repository.WithCacheSize(cfg.CacheSize),
		repository.WithLogger(logger),
	}
	if cfg.SOCKSProxy != "" {
		rt, err := repository.NewSOCKS5Transport(cfg.SOCKSProxy)
		if err != nil {
			return nil, err
		}
		clientOpts = append(clientOpts, repository.WithTransport(rt))
		logger.Debug("using SOCKS5 proxy", "address", cfg.SOCKSProxy)
	}

	client, err := repository.NewClient(cfg.Host, cfg.User, cfg.Password, clientOpts...)
	if err != nil {
		return nil, err
	}

	opts := []crawler.Option{crawler.WithLogger(logger)}
	if p := cfg.Project; p != nil {
		opts = append(opts,
			crawler.WithSearchRoot(p.SearchRoot),
			crawler.WithExcludedNamespaces(p.ExcludedNamespaces),
			crawler.WithTerminalNamespaces(p.TerminalNamespaces),
			crawler.WithClientlibLocations(p.ClientlibLocations),
			crawler.WithModelSourceLocations(p.ModelSourceLocations),
			crawler.WithTemplateCandidates(p.TemplateCandidates),
		)
	}
	return crawler.New(client, opts...), nil
}

// crawlOptions maps the configuration onto one crawl run.
func crawlOptions(cfg *config.Config) crawler.Options {
	return crawler.Options{
		Recursive:           cfg.Recursive,
		MaxDepth:            cfg.MaxDepth,
		IncludeDependencies: cfg.IncludeDependencies,
		FetchAssets:         cfg.FetchAssets,
		Concurrency:         cfg.Concurrency,
	}
}

// saveGraph stores a finished graph in the history database. A storage
// failure never fails the command; the report has already been written.
func saveGraph(ctx context.Context, cfg *config.Config, g *model.DependencyGraph, logger *slog.Logger) {
	if !cfg.SaveToDB {
		return
	}
	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		logger.Warn("failed to open history database", "dir", cfg.DBDir, "error", err)
		return
	}
	defer db.Close()

	meta := database.RunMeta{
		Host:      cfg.Host,
		Recursive: cfg.Recursive,
		MaxDepth:  cfg.MaxDepth,
	}
	if err := db.SaveGraph(ctx, g, meta); err != nil {
		logger.Warn("failed to save crawl result", "component", g.Root.Identifier, "error", err)
		return
	}
	logger.Debug("crawl result saved", "runId", g.RunID, "db", db.Path())
}
