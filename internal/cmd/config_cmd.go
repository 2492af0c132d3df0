package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Daiya404/CoverPics/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the coverpics configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	Long: `Write a default configuration file to ~/.coverpics/config.json.

Fill in your TMDB API key afterwards, or pass it once with --api-key to
store it directly.`,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the active configuration",
	RunE:  runConfigShow,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path, err := config.ConfigPath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	cfg := config.DefaultConfig()
	if apiKey != "" {
		cfg.TMDBAPIKey = apiKey
	}
	if language != "" {
		cfg.Language = language
	}
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}

	if err := cfg.Save(); err != nil {
		return err
	}

	cmd.Printf("Wrote default config to %s\n", path)
	if cfg.TMDBAPIKey == "" {
		cmd.Println("Set tmdb_api_key before running `coverpics fetch`.")
	}
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// The key is a credential; show only whether one is set.
	display := *cfg
	if display.TMDBAPIKey != "" {
		display.TMDBAPIKey = "(set)"
	}

	data, err := json.MarshalIndent(display, "", "  ")
	if err != nil {
		return err
	}
	cmd.Println(string(data))
	return nil
}
