// Command skillserve serves skill bundles over the well-known skills
// discovery protocol and ships offline tooling for validating skill
// directory trees.
package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jingkaihe/skillserve/pkg/logger"
	"github.com/jingkaihe/skillserve/pkg/presenter"
)

var rootCmd = &cobra.Command{
	Use:   "skillserve",
	Short: "Serve skill bundles over the well-known skills discovery protocol",
	Long: `skillserve exposes a directory of skill bundles (SKILL.md with YAML
frontmatter plus supporting files) as a discovery surface: a JSON index,
reconstructed skill documents, and namespaced supporting files, served
under /.well-known/skills by default.`,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		if err := logger.SetLogLevel(viper.GetString("log_level")); err != nil {
			presenter.Warning("invalid log level, falling back to info")
		}
		logger.SetLogFormat(viper.GetString("log_format"))
	},
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

func init() {
	// Environment variables
	viper.SetEnvPrefix("SKILLSERVE")
	viper.AutomaticEnv()

	// Config file support
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME/.skillserve")
	viper.AddConfigPath(".")

	// Load config file if it exists (ignore errors if it doesn't)
	_ = viper.ReadInConfig()

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format (text, json)")
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
