package main

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	nobodylog "github.com/nobodyrpg/nobody/internal/log"
)

// Global flag values.
var (
	verbose    bool
	quiet      bool
	noColor    bool
	configPath string
)

// rootCmd is the base command for nobody.
var rootCmd = &cobra.Command{
	Use:   "nobody",
	Short: "Narrative engine for the Nobody cultivation game",
	Long: `Nobody drives LLM-backed narrative generation for a cultivation game:
it assembles token-budgeted prompts from game state, calls a configured
chat-completion endpoint with caching and retries, validates the responses
against the game's numerical rules, and can serialize an event history
into a readable novel.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		nobodylog.Setup(verbose, quiet)
		if noColor {
			color.NoColor = true
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-essential output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", ".nobody.yaml", "path to the config file")

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(novelCmd)
	rootCmd.AddCommand(versionCmd)
}

// exitCodeError carries a non-zero exit code through cobra's error handling.
type exitCodeError struct {
	msg  string
	code int
}

func (e *exitCodeError) Error() string { return e.msg }

// ExitCode returns the process exit code for this error.
func (e *exitCodeError) ExitCode() int { return e.code }
