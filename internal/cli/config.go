package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dl-alexandre/gdsync/internal/config"
	"github.com/dl-alexandre/gdsync/internal/types"
	"github.com/dl-alexandre/gdsync/internal/utils"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
	Long:  "Commands for managing gdsync configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	Long:  "Display the configuration after applying the config file, .env, environment and flags",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a value in the config file",
	Long:  "Set a configuration value in the config file. Use 'config show' to see available keys",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

var configResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the config file to defaults",
	Args:  cobra.NoArgs,
	RunE:  runConfigReset,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configResetCmd)
	configCmd.AddCommand(configPathCmd)
}

// ConfigView is the effective configuration. JSON output keeps the config
// file's shape; the table view lists one key per row.
type ConfigView struct {
	*config.Config
}

func (v ConfigView) AsTableRenderer() types.TableRenderer {
	return configRows{v.Config}
}

type configRows struct {
	c *config.Config
}

func (r configRows) Headers() []string {
	return []string{"Key", "Value"}
}

func (r configRows) Rows() [][]string {
	c := r.c
	return [][]string{
		{"localFolder", c.LocalFolder},
		{"driveFolderId", c.DriveFolderID},
		{"credentialsFile", c.CredentialsFile},
		{"logFile", c.LogFile},
		{"logLevel", c.LogLevel},
		{"outputFormat", string(c.OutputFormat)},
		{"maxRetries", strconv.Itoa(c.MaxRetries)},
		{"retryBaseDelay", strconv.Itoa(c.RetryBaseDelay)},
		{"requestTimeout", strconv.Itoa(c.RequestTimeout)},
		{"uploadTimeout", strconv.Itoa(c.UploadTimeout)},
		{"chunkSizeMiB", strconv.Itoa(c.ChunkSizeMiB)},
		{"concurrency", strconv.Itoa(c.Concurrency)},
		{"indexCacheTTL", strconv.Itoa(c.IndexCacheTTL)},
		{"shutdownGrace", strconv.Itoa(c.ShutdownGrace)},
		{"journalPath", c.JournalPath},
		{"excludePatterns", strings.Join(c.ExcludePatterns, ",")},
		{"includePatterns", strings.Join(c.IncludePatterns, ",")},
		{"colorOutput", strconv.FormatBool(c.ColorOutput)},
	}
}

func (r configRows) EmptyMessage() string {
	return "No configuration"
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	flags := GetGlobalFlags()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)
	return out.WriteSuccess("config.show", ConfigView{appConfig})
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	flags := GetGlobalFlags()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)

	key, value := args[0], args[1]

	// Only the config file is edited; .env and environment overrides stay out of it.
	cfg, err := config.LoadFile()
	if err != nil {
		return handleError(out, "config.set", err)
	}
	if err := setConfigValue(cfg, key, value); err != nil {
		return handleError(out, "config.set", err)
	}
	if err := cfg.Save(); err != nil {
		return handleError(out, "config.set", utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidArgument,
			fmt.Sprintf("Failed to save configuration: %v", err)).Build()).WithCause(err))
	}

	out.Log("Configuration updated: %s = %s", key, value)
	return out.WriteSuccess("config.set", map[string]interface{}{
		"key":   key,
		"value": value,
	})
}

func setConfigValue(cfg *config.Config, key, value string) error {
	invalid := func(msg string) error {
		return utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidArgument, msg).
			WithContext("key", key).Build())
	}
	setInt := func(dst *int) error {
		n, err := strconv.Atoi(value)
		if err != nil {
			return invalid(fmt.Sprintf("%s must be an integer", key))
		}
		*dst = n
		return nil
	}

	switch strings.ToLower(key) {
	case "localfolder":
		cfg.LocalFolder = value
	case "drivefolderid":
		cfg.DriveFolderID = value
	case "credentialsfile":
		cfg.CredentialsFile = value
	case "logfile":
		cfg.LogFile = value
	case "loglevel":
		cfg.LogLevel = value
	case "outputformat":
		cfg.OutputFormat = types.OutputFormat(value)
	case "maxretries":
		return setInt(&cfg.MaxRetries)
	case "retrybasedelay":
		return setInt(&cfg.RetryBaseDelay)
	case "requesttimeout":
		return setInt(&cfg.RequestTimeout)
	case "uploadtimeout":
		return setInt(&cfg.UploadTimeout)
	case "chunksizemib":
		return setInt(&cfg.ChunkSizeMiB)
	case "concurrency":
		return setInt(&cfg.Concurrency)
	case "indexcachettl":
		return setInt(&cfg.IndexCacheTTL)
	case "shutdowngrace":
		return setInt(&cfg.ShutdownGrace)
	case "journalpath":
		cfg.JournalPath = value
	case "excludepatterns":
		cfg.ExcludePatterns = config.SplitList(value)
	case "includepatterns":
		cfg.IncludePatterns = config.SplitList(value)
	case "coloroutput":
		cfg.ColorOutput = config.ParseBool(value)
	default:
		return invalid(fmt.Sprintf("Unknown configuration key: %s", key))
	}
	return nil
}

func runConfigReset(cmd *cobra.Command, args []string) error {
	flags := GetGlobalFlags()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)

	cfg := config.DefaultConfig()
	if err := cfg.Save(); err != nil {
		return handleError(out, "config.reset", err)
	}

	out.Log("Configuration reset to defaults")
	return out.WriteSuccess("config.reset", ConfigView{cfg})
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	flags := GetGlobalFlags()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)

	path, err := config.GetConfigPath()
	if err != nil {
		return handleError(out, "config.path", err)
	}
	if flags.OutputFormat == types.OutputFormatJSON {
		return out.WriteSuccess("config.path", map[string]string{"path": path})
	}
	fmt.Fprintln(out.out, path)
	return nil
}
