// Package commands implements the airtable CLI
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/airtable/internal/cli/ui"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

// DefaultTTL is how long fetched records stay valid in the cache
const DefaultTTL = 5 * time.Minute

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "airtable",
		Short: "Read and write Airtable records from the terminal",
		Long: color.CyanString(`airtable - typed client for the Airtable REST API

Records are fetched through a local TTL cache and printed as tables,
or as JSON with --json.

Get started:
  airtable init
  airtable list <table>`),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configDir, "config-dir", ".", "Directory containing airtable.yml and .env")
	flags.BoolVar(&a.jsonOut, "json", false, "Print raw JSON instead of tables")
	flags.BoolVar(&a.noColor, "no-color", false, "Disable colored output")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Log requests and cache activity")
	flags.DurationVar(&a.ttl, "ttl", DefaultTTL, "Cache lifetime for fetched records (0 disables the cache)")

	rootCmd.AddCommand(newListCommand(a))
	rootCmd.AddCommand(newGetCommand(a))
	rootCmd.AddCommand(newLinksCommand(a))
	rootCmd.AddCommand(newCreateCommand(a))
	rootCmd.AddCommand(newUpdateCommand(a))
	rootCmd.AddCommand(newDeleteCommand(a))
	rootCmd.AddCommand(newCacheCommand(a))
	rootCmd.AddCommand(newInitCommand(a))
	rootCmd.AddCommand(NewVersionCommand())

	return rootCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			goVer := GoVersion
			if goVer == "unknown" {
				goVer = runtime.Version()
			}

			out := cmd.OutOrStdout()
			title := color.New(color.FgCyan, color.Bold)
			title.Fprint(out, "airtable version: ")
			fmt.Fprintln(out, Version)
			title.Fprint(out, "Git commit: ")
			fmt.Fprintln(out, GitCommit)
			title.Fprint(out, "Build date: ")
			fmt.Fprintln(out, BuildDate)
			title.Fprint(out, "Go version: ")
			fmt.Fprintln(out, goVer)
		},
	}
}

// Execute runs the root command and prints failures
func Execute(ctx context.Context) error {
	rootCmd := NewRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		printError(rootCmd.ErrOrStderr(), err)
		return err
	}
	return nil
}

func printError(w io.Writer, err error) {
	var cfgErr *configError
	if errors.As(err, &cfgErr) {
		fmt.Fprint(w, ui.ConfigError(cfgErr.err, color.NoColor))
		return
	}
	fmt.Fprint(w, ui.APIError(err, color.NoColor))
}
