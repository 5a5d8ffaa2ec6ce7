package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	githubToken string
	outputJSON  bool
)

var rootCmd = &cobra.Command{
	Use:   "review-cli",
	Short: "review-cli is the command-line interface for the review broker.",
	Long: `A CLI for operating the review broker: submitting pull requests for review,
inspecting tasks and results, managing the database schema and purging old
webhook delivery records. It reads the same environment and .env file as the
server.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&githubToken, "github-token", "t", "", "GitHub token used to fetch pull requests")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Print output as JSON")

	if err := viper.BindPFlag("GITHUB_TOKEN", rootCmd.PersistentFlags().Lookup("github-token")); err != nil {
		slog.Error("Error binding flag", "error", err)
		os.Exit(1)
	}
}

// initConfig reads ENV variables if set.
func initConfig() {
	viper.AutomaticEnv()
}
