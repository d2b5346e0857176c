package cli

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/dl-alexandre/gdsync/internal/config"
	"github.com/dl-alexandre/gdsync/internal/logging"
	"github.com/dl-alexandre/gdsync/internal/types"
	"github.com/dl-alexandre/gdsync/internal/utils"
	"github.com/dl-alexandre/gdsync/pkg/version"
	"github.com/spf13/cobra"
)

var (
	globalFlags    types.GlobalFlags
	logger         logging.Logger = logging.NewNoOpLogger()
	appConfig      *config.Config
	debugTransport http.RoundTripper
)

var rootCmd = &cobra.Command{
	Use:   "gdsync",
	Short: "Mirror a local directory into a Google Drive folder",
	Long: `gdsync watches a local directory and replays every file creation,
modification and deletion onto a single Google Drive folder.

Configuration comes from ~/.config/gdsync/config.json, a .env file,
GDSYNC_* environment variables and flags, in increasing precedence.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(globalFlags.Config)
		if err != nil {
			return utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidArgument, err.Error()).Build()).WithCause(err)
		}
		applyFlagOverrides(cmd, cfg)
		if err := validateGlobalFlags(); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidArgument, err.Error()).Build())
		}
		appConfig = cfg

		logConfig := buildLogConfig(cfg, globalFlags)
		log, transport, err := logging.NewDebugLoggerWithTransport(logConfig)
		if err != nil && logConfig.OutputFile != "" {
			// An unwritable log file should not stop one-shot commands
			fallback := logConfig
			fallback.OutputFile = ""
			log, transport, err = logging.NewDebugLoggerWithTransport(fallback)
			if err == nil {
				log.Warn("Log file unavailable, logging to console only",
					logging.F("path", logConfig.OutputFile))
			}
		}
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger = log
		debugTransport = nil
		if transport != nil {
			debugTransport = transport
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "Print the version number of gdsync",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Get().String())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&globalFlags.Config, "env-file", ".env", "Path to a .env file (missing file is ignored)")
	rootCmd.PersistentFlags().StringVar(&globalFlags.LocalFolder, "local-folder", "", "Local directory to mirror")
	rootCmd.PersistentFlags().StringVar(&globalFlags.DriveFolderID, "drive-folder", "", "ID of the Drive folder to mirror into")
	rootCmd.PersistentFlags().StringVar(&globalFlags.Credentials, "credentials", "", "Path to the service account key file")
	rootCmd.PersistentFlags().StringVar((*string)(&globalFlags.OutputFormat), "output", "", "Output format (json, table)")
	rootCmd.PersistentFlags().StringVar(&globalFlags.LogFile, "log-file", "", "Path to log file (empty string disables)")
	rootCmd.PersistentFlags().BoolVarP(&globalFlags.Quiet, "quiet", "q", false, "Suppress non-essential output")
	rootCmd.PersistentFlags().BoolVarP(&globalFlags.Verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&globalFlags.Debug, "debug", false, "Enable debug output including HTTP traffic")
	rootCmd.PersistentFlags().BoolVar(&globalFlags.JSON, "json", false, "Output in JSON format (alias for --output json)")

	rootCmd.AddCommand(versionCmd)
}

// applyFlagOverrides layers explicitly set flags over the loaded config
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("local-folder") {
		cfg.LocalFolder = globalFlags.LocalFolder
	}
	if flags.Changed("drive-folder") {
		cfg.DriveFolderID = globalFlags.DriveFolderID
	}
	if flags.Changed("credentials") {
		cfg.CredentialsFile = globalFlags.Credentials
	}
	if flags.Changed("log-file") {
		cfg.LogFile = globalFlags.LogFile
	}
	if globalFlags.OutputFormat == "" {
		globalFlags.OutputFormat = cfg.OutputFormat
	}
}

func validateGlobalFlags() error {
	// Handle --json flag as alias for --output json
	if globalFlags.JSON {
		globalFlags.OutputFormat = types.OutputFormatJSON
	}

	if globalFlags.OutputFormat != types.OutputFormatJSON && globalFlags.OutputFormat != types.OutputFormatTable {
		return utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidArgument,
			fmt.Sprintf("invalid output format: %s", globalFlags.OutputFormat)).Build())
	}
	return nil
}

// buildLogConfig maps the configured log level and the verbosity flags onto the logger
func buildLogConfig(cfg *config.Config, flags types.GlobalFlags) logging.LogConfig {
	logConfig := logging.DefaultLogConfig()
	logConfig.OutputFile = cfg.LogFile
	logConfig.EnableColor = cfg.ColorOutput

	switch cfg.LogLevel {
	case "quiet":
		logConfig.EnableConsole = false
	case "verbose":
		logConfig.Level = logging.DEBUG
	case "debug":
		logConfig.Level = logging.DEBUG
		logConfig.EnableDebug = true
	}

	if flags.Quiet {
		logConfig.EnableConsole = false
	}
	if flags.Verbose {
		logConfig.Level = logging.DEBUG
	}
	if flags.Debug {
		logConfig.Level = logging.DEBUG
		logConfig.EnableDebug = true
	}
	if flags.OutputFormat == types.OutputFormatJSON && !flags.Verbose && !flags.Debug {
		logConfig.EnableConsole = false
	}
	return logConfig
}

// Execute runs the root command and exits with the code of the failing error
func Execute() {
	err := rootCmd.Execute()
	_ = logger.Close()
	if err != nil {
		var rendered *renderedError
		if !errors.As(err, &rendered) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(utils.GetExitCode(utils.ErrorCode(err)))
	}
}

// GetGlobalFlags returns the global flags
func GetGlobalFlags() types.GlobalFlags {
	return globalFlags
}

// GetLogger returns the global logger
func GetLogger() logging.Logger {
	return logger
}
