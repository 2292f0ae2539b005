package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "folio",
	Short: "A portfolio and blog engine built with Go, Echo, and templ",
	Long: `folio serves a blog whose posts are structured documents, imports
legacy HTML archives into its store, and converts single pages for inspection.

Configuration is read from the environment and an optional .env file.`,
	SilenceUsage: true,
}
