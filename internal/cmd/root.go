/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "coverpics",
	Short: "A tool for downloading movie and TV posters",
	Long: `coverpics is a CLI tool that downloads poster art for movies and TV shows
from TMDB. Feed it a list of titles (text, JSON, or CSV) and it resolves each
one against the TMDB search API, picks the best match, and saves the poster
at your preferred quality tier.

Failed lookups are collected into a failure report, successful downloads can
carry a metadata sidecar, and a whole run can be bundled into a zip archive.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

var (
	apiKey    string
	language  string
	outputDir string
)

func init() {
	// Global flags for all commands
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "TMDB API key (overrides the config file)")
	rootCmd.PersistentFlags().StringVar(&language, "language", "", "Preferred search language, e.g. en-US")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output-dir", "o", "", "Directory to save posters into")
}
