// Package app provides the entry point for the flagpole application.
package app

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stacklok/flagpole/internal/config"
	"github.com/stacklok/flagpole/internal/logger"
	"github.com/stacklok/flagpole/internal/versions"
)

// NewRootCmd creates a new root command for flagpole.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "flagpole",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Short:             "Runtime API registry server",
		Long: `flagpole serves HTTP APIs that are registered, replaced and removed at run time.

APIs are declared in module files and manifests kept in trusted search directories.
Several versions of an API can be live at once; clients pick one with the
Accept-Version header.`,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return initLogger()
		},
		Run: func(cmd *cobra.Command, _ []string) {
			// If no subcommand is provided, print help
			if err := cmd.Help(); err != nil {
				logger.Errorf("Error displaying help: %v", err)
			}
		},
	}

	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug mode")
	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		logger.Errorf("Error binding debug flag: %v", err)
	}

	viper.SetEnvPrefix(config.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// initLogger sets the log level from --debug or FLAGPOLE_LOG_LEVEL.
func initLogger() error {
	level := viper.GetString("log-level")
	if viper.GetBool("debug") {
		level = "debug"
	}
	return logger.Initialize(level)
}

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := versions.GetVersionInfo()
			format, err := cmd.Flags().GetString("format")
			if err != nil {
				return fmt.Errorf("error retrieving format flag: %w", err)
			}

			if format == "json" {
				output, err := json.MarshalIndent(info, "", "  ")
				if err != nil {
					return fmt.Errorf("error formatting version info as JSON: %w", err)
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(output))
				return nil
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "flagpole %s (commit %s, built %s, %s, %s)\n",
				info.Version, info.Commit, info.BuildDate, info.GoVersion, info.Platform)
			return nil
		},
	}
	cmd.Flags().String("format", "", "Output format (json)")
	return cmd
}
