// Command instaguard runs the classification pipeline from the terminal.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"instaguard/internal/app"
	"instaguard/internal/config"
)

var (
	jsonOutput bool
	limit      int
)

var rootCmd = &cobra.Command{
	Use:   "instaguard",
	Short: "InstaGuard operator CLI",
	Long: `Classify accounts and inspect recorded decisions without the HTTP server.

Configuration is read from the same environment variables and config.yaml
as the server.`,
	SilenceUsage: true,
}

// classifyCmd runs the full pipeline for one username
var classifyCmd = &cobra.Command{
	Use:   "classify <username>",
	Short: "Classify an account as real or fake",
	Args:  cobra.ExactArgs(1),
	RunE:  runClassify,
}

// decisionsCmd lists recorded decisions
var decisionsCmd = &cobra.Command{
	Use:   "decisions",
	Short: "List recorded decisions, newest first",
	RunE:  runDecisions,
}

// statsCmd prints decision counts by label
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show decision counts by label",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

// overridesCmd prints the verified-account override table
var overridesCmd = &cobra.Command{
	Use:   "overrides",
	Short: "List accounts that are always classified as real",
	Args:  cobra.NoArgs,
	RunE:  runOverrides,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print JSON instead of text")
	decisionsCmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of decisions to show")

	decisionsCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(classifyCmd, decisionsCmd, overridesCmd)
}

// loadConfig reads env and the optional YAML file the same way the server does.
func loadConfig() (*config.Config, error) {
	cfg := config.Load()
	y, err := config.LoadYAMLConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}
	cfg.Apply(y)
	app.SetupLogging(cfg)
	return cfg, nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
