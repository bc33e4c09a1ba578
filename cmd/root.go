package cmd

import (
	"github.com/spf13/cobra"

	"github.com/abhisek/mocktest/internal/config"
)

// v holds the merged flag, environment and file settings.
var v = config.New()

var rootCmd = &cobra.Command{
	Use:   "mocktest",
	Short: "Timed mock tests in the terminal",
	Long: "mocktest lets a student sit timed mock tests from a test portal, " +
		"keeps in-progress attempts safe across restarts and reviews graded results.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if p, _ := cmd.Flags().GetString("config"); p != "" {
			v.SetConfigFile(p)
		}
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "Path to a config file (default $XDG_CONFIG_HOME/mocktest/config.yaml)")
	pf.String("api-url", "", "Test portal base URL (overrides MOCKTEST_API_URL)")
	pf.String("token", "", "Bearer token identifying the student (overrides MOCKTEST_TOKEN)")
	pf.String("db", "", "Path to SQLite database file (overrides MOCKTEST_DB)")
	pf.String("log-level", "", "Log level: debug, info, warn or error")
	pf.String("log-file", "", "Log file path (default $XDG_STATE_HOME/mocktest/mocktest.log)")

	for key, flag := range map[string]string{
		"api_url":   "api-url",
		"token":     "token",
		"db":        "db",
		"log.level": "log-level",
		"log.file":  "log-file",
	} {
		_ = v.BindPFlag(key, pf.Lookup(flag))
	}

	rootCmd.AddCommand(takeCmd)
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(devserverCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(versionCmd)
}
