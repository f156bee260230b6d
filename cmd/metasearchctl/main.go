package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ndsh/metasearch/internal/config"
)

var (
	apiFlag string
	rootCmd = &cobra.Command{
		Use:          "metasearchctl",
		Short:        "CLI client for the metasearch REST API",
		SilenceUsage: true,
	}
)

func main() {
	rootCmd.PersistentFlags().StringVarP(&apiFlag, "api", "a", "http://localhost:8080", "Metasearch service base URL")

	// search subcommand
	searchCmd := &cobra.Command{
		Use:   "search",
		Short: "Semantic search over the metadata catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := searchRequest{}
			if cmd.Flags().Changed("query") {
				q, _ := cmd.Flags().GetString("query")
				req.Query = &q
			}
			if cmd.Flags().Changed("column") {
				c, _ := cmd.Flags().GetString("column")
				req.QueryCol = &c
			}
			if cmd.Flags().Changed("topk") {
				k, _ := cmd.Flags().GetInt("topk")
				req.TopK = &k
			}
			req.ShowColumns, _ = cmd.Flags().GetStringSlice("show")
			return runSearch(newClient(apiFlag), req, os.Stdout)
		},
	}
	searchCmd.Flags().StringP("query", "q", "", "Search query text (server default when omitted)")
	searchCmd.Flags().StringP("column", "c", "", "Column to search (server default when omitted)")
	searchCmd.Flags().IntP("topk", "k", 5, "Number of top results to return")
	searchCmd.Flags().StringSliceP("show", "s", nil, "Columns to include in each result")
	rootCmd.AddCommand(searchCmd)

	// info subcommand
	infoCmd := &cobra.Command{
		Use:   "info",
		Short: "Show service model, health and searchable columns",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(newClient(apiFlag), os.Stdout)
		},
	}
	rootCmd.AddCommand(infoCmd)

	// build-artifacts subcommand (offline, no server needed)
	buildCmd := &cobra.Command{
		Use:   "build-artifacts",
		Short: "Precompute embedding columns and pack them into a bundle",
		Long: "Loads the catalog snapshot, embeds the given columns with the configured\n" +
			"provider (METASEARCH_* environment) and writes an artifact bundle the\n" +
			"service preloads at startup.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.New()
			if err != nil {
				return err
			}
			if v, _ := cmd.Flags().GetString("snapshot"); v != "" {
				cfg.SnapshotPath = v
			}
			if v, _ := cmd.Flags().GetString("provider"); v != "" {
				cfg.EmbedProvider = strings.ToLower(v)
			}
			if v, _ := cmd.Flags().GetString("model"); v != "" {
				cfg.EmbedModel = v
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			columns, _ := cmd.Flags().GetStringSlice("columns")
			out, _ := cmd.Flags().GetString("out")
			if out == "" {
				out = cfg.ArtifactArchive
			}
			return runBuildArtifacts(cmd.Context(), cfg, columns, out, os.Stdout)
		},
	}
	buildCmd.Flags().StringSlice("columns", []string{"abstract"}, "Columns to embed")
	buildCmd.Flags().String("out", "", "Bundle path (.zip, .tar.gz, .tar.zst); defaults to METASEARCH_ARTIFACT_ARCHIVE")
	buildCmd.Flags().String("snapshot", "", "Snapshot path or postgres DSN; defaults to METASEARCH_SNAPSHOT_PATH")
	buildCmd.Flags().String("provider", "", "Embedding provider override (ollama, openai, hash)")
	buildCmd.Flags().String("model", "", "Embedding model override")
	rootCmd.AddCommand(buildCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
