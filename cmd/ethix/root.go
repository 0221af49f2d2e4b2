package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"ethix/internal/config"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var (
	blue   = color.New(color.FgBlue).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

func isTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

type cliOptions struct {
	configPath string
	verbose    bool
}

func (o *cliOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewRootCommand builds the ethix command tree.
func NewRootCommand() *cobra.Command {
	opts := &cliOptions{}

	rootCmd := &cobra.Command{
		Use:   "ethix",
		Short: "AI ethics risk assessment for AI services",
		Long: fmt.Sprintf(`%s

ethix assesses the ethical risk of an AI service against a corpus of
published AI ethics guidelines. It extracts risk factors from a service
profile, retrieves the relevant guideline passages, scores ten risk
categories with an LLM and produces a Markdown report with
recommendations. High-risk results trigger a single reviewer-feedback
revision pass.

%s
  ethix index --source guidelines      # Build the guideline index
  ethix audit --name "Acme Chatbot"    # Assess a service interactively
  ethix audit --file service.yaml      # Assess from a profile file
  ethix audit --name "X" --crawl       # Fetch the description from the web`,
			bold("ethix "+Version),
			bold("EXAMPLES:")),
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Config file (default: ./ethix.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output")

	rootCmd.AddCommand(newAuditCommand(opts))
	rootCmd.AddCommand(newIndexCommand(opts))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("ethix %s\n", Version)
		},
	}
}
