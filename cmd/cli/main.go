package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

const defaultBaseURL = "http://localhost:8080"

type cli struct {
	client *apiClient
	output string
	out    io.Writer
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	var (
		baseURL   string
		tokenPath string
		noColor   bool
	)
	app := &cli{out: out}

	root := &cobra.Command{
		Use:           "mediatrack",
		Short:         "Track the anime, series, books and games you follow",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if noColor {
				color.NoColor = true
			}
			if err := validOutput(app.output); err != nil {
				return err
			}
			app.client = newAPIClient(baseURL, tokenPath)
			return nil
		},
	}
	root.SetOut(out)

	root.PersistentFlags().StringVar(&baseURL, "api", envOr("MEDIATRACK_API", defaultBaseURL), "API base URL")
	root.PersistentFlags().StringVar(&tokenPath, "token-file", defaultTokenPath(), "token file path")
	root.PersistentFlags().StringVarP(&app.output, "output", "o", outputTable, "output format: table, json, yaml")
	root.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		app.newAuthCmd(),
		app.newSearchCmd(),
		app.newImportCmd(),
		app.newEntriesCmd(),
		app.newTagsCmd(),
	)
	return root
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
