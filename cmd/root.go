package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-macfiles/internal/config"
	"github.com/deploymenttheory/go-macfiles/internal/logger"
	"github.com/deploymenttheory/go-macfiles/internal/metadata"
	"github.com/deploymenttheory/go-macfiles/pkg/app"
	"github.com/deploymenttheory/go-macfiles/pkg/services"
)

// Version is set at build time
var Version = "0.1.0-dev"

var (
	// Global output flags
	verbose      bool
	quiet        bool
	outputFormat string

	// Configuration flags
	cfgFile   string
	debug     bool
	logFormat string

	appConfig *config.AppConfig
	factory   *services.ServiceFactory
)

var rootCmd = &cobra.Command{
	Use:   "macfiles",
	Short: "Read and write Finder .DS_Store files, aliases and bookmarks",
	Long: `macfiles reads and writes the metadata files macOS Finder leaves behind:
.DS_Store stores, classic alias records and CFURL bookmarks.

Works on any platform, without Finder. Useful for inspecting folder settings
and for laying out disk image windows in build pipelines.

Commands:
  dump        List every record of a .DS_Store file
  get         Print one record
  set         Store one record
  delete      Remove one record
  generate    Build a .DS_Store from a window layout
  alias       Create or decode alias records
  bookmark    Create or decode bookmarks`,
	Version:           Version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		defer func() { _ = logger.Sync() }()
		if factory != nil {
			return factory.Shutdown()
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if factory != nil {
			_ = factory.Shutdown()
		}
		if code := errorCode(err); code != "" {
			fmt.Fprintf(os.Stderr, "Error [%s]: %v\n", code, err)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress output except errors")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format (table, json, yaml)")

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./macfiles.yaml or the user config directory)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "human", "log format: json or human")
}

// setup loads the configuration, applies flag overrides and starts logging
func setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	// CLI flags override config settings
	flags := cmd.Flags()
	if flags.Changed("debug") {
		cfg.Debug = debug
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = logFormat
	}
	if flags.Changed("output") {
		cfg.Output.Format = outputFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := logger.InitLogger(logger.LoggerConfig{
		Debug:     cfg.Debug,
		LogFormat: cfg.LogFormat,
		LogFile:   cfg.LogFile,
	}); err != nil {
		return err
	}
	logger.LogDebug("configuration loaded", map[string]interface{}{
		"config_file": cfg.File,
		"page_size":   cfg.Store.PageSize,
		"output":      cfg.Output.Format,
	})

	volumeUUID, err := cfg.VolumeUUID()
	if err != nil {
		return err
	}
	factory = services.NewServiceFactory(services.FactoryConfig{
		PageSize: cfg.Store.PageSize,
		Source:   metadata.NewOSSource(cfg.Volume.RootName, volumeUUID),
	})
	appConfig = cfg
	return nil
}

// newAppContext builds the context handed to command handlers
func newAppContext(cmd *cobra.Command) *app.Context {
	ctx := app.NewContext(factory)
	if c := cmd.Context(); c != nil {
		ctx.Context = c
	}
	ctx.Verbose = verbose
	ctx.Quiet = quiet
	ctx.OutputFormat = GetOutputFormat()
	ctx.Out = cmd.OutOrStdout()
	ctx.Err = cmd.ErrOrStderr()
	return ctx
}

// GetVerbose returns the verbose flag value
func GetVerbose() bool {
	return verbose
}

// GetQuiet returns the quiet flag value
func GetQuiet() bool {
	return quiet
}

// GetOutputFormat returns the output format, preferring the configured default
// when the flag was not given
func GetOutputFormat() string {
	if appConfig != nil {
		return appConfig.Output.Format
	}
	return outputFormat
}
