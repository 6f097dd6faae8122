package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "zapwave",
		Short: "Publish and rank value-for-value music releases",
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")

	root.AddCommand(ingestCmd())
	root.AddCommand(chartCmd())
	root.AddCommand(releasesCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(runCmd())

	return root
}

func ingestCmd() *cobra.Command {
	var sources []string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Fetch tracks, releases, and zaps from configured sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(sources)
		},
	}

	cmd.Flags().StringSliceVar(&sources, "source", nil, "specific sources to ingest (e.g., feed or a relay name)")
	return cmd
}

func chartCmd() *cobra.Command {
	var (
		jsonOutput bool
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Rebuild and show the trending chart",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChart(jsonOutput, limit)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	cmd.Flags().IntVar(&limit, "limit", 20, "max entries to show")
	return cmd
}

func releasesCmd() *cobra.Command {
	var (
		jsonOutput bool
		all        bool
		artist     string
	)

	cmd := &cobra.Command{
		Use:   "releases",
		Short: "Show the recent or full release view",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReleases(jsonOutput, all, artist)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	cmd.Flags().BoolVar(&all, "all", false, "show the comprehensive view instead of the recent one")
	cmd.Flags().StringVar(&artist, "artist", "", "only releases by this artist")
	return cmd
}

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 8080, "server port")
	return cmd
}

func runCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start daemon with scheduler and HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 8080, "server port")
	return cmd
}
