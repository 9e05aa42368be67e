package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/nobodyrpg/nobody/internal/config"
	"github.com/nobodyrpg/nobody/internal/event"
	"github.com/nobodyrpg/nobody/internal/llm"
	"github.com/nobodyrpg/nobody/internal/narrative"
)

// Novel command flags.
var (
	novelTitle        string
	novelOutput       string
	novelImportOutput string
)

// novelCmd is the parent command for novel subcommands.
var novelCmd = &cobra.Command{
	Use:   "novel",
	Short: "Turn an event history into a novel",
}

// novelGenerateCmd generates a novel from an event log file.
var novelGenerateCmd = &cobra.Command{
	Use:   "generate <events.json>",
	Short: "Generate a novel from a JSON event history",
	Long: `Generate a novel from a JSON event history.

The input file holds an array of events:
  [{"id":1,"timestamp":1,"event_type":"combat","description":"...","importance":"normal"}, ...]

Chapters are written through the configured LLM endpoint when one is
available and fall back to a deterministic rendition otherwise.`,
	Args: cobra.ExactArgs(1),
	RunE: runNovelGenerate,
}

// novelImportCmd extracts metadata from an existing novel text.
var novelImportCmd = &cobra.Command{
	Use:   "import <novel.txt>",
	Short: "Extract characters, locations and key events from a novel file",
	Long: `Extract metadata from a plain-text novel file.

Rule-based extraction always runs; when an LLM endpoint is configured its
refinement replaces the rule-based result. The parsed metadata is printed
as JSON, or written to a file with --output.`,
	Args: cobra.ExactArgs(1),
	RunE: runNovelImport,
}

func init() {
	novelGenerateCmd.Flags().StringVar(&novelTitle, "title", "无名之辈", "novel title")
	novelGenerateCmd.Flags().StringVarP(&novelOutput, "output", "o", "novel.txt", "output file path")
	novelImportCmd.Flags().StringVarP(&novelImportOutput, "output", "o", "", "write parsed metadata JSON to this file")

	novelCmd.AddCommand(novelGenerateCmd)
	novelCmd.AddCommand(novelImportCmd)
}

// resolveGenerator builds the configured LLM generator, or returns nil when
// no configuration is available.
func resolveGenerator() (llm.Generator, error) {
	settings, ok := config.NewManager(configPath).Resolve()
	if !ok {
		return nil, nil
	}
	return settings.NewGenerator()
}

func runNovelGenerate(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0]) //nolint:gosec // user-provided path
	if err != nil {
		return fmt.Errorf("read events: %w", err)
	}

	var events []event.Event
	if err := json.Unmarshal(data, &events); err != nil {
		return fmt.Errorf("parse events: %w", err)
	}

	var opts []narrative.GeneratorOption
	llmGen, err := resolveGenerator()
	if err != nil {
		return err
	}
	if llmGen != nil {
		opts = append(opts, narrative.WithGenerator(llmGen))
	} else {
		slog.Info("no llm configuration found, using rule-based chapters")
	}

	gen := narrative.NewGenerator(opts...)
	novel, err := gen.GenerateNovel(cmd.Context(), novelTitle, events)
	if err != nil {
		return fmt.Errorf("generate novel: %w", err)
	}

	if err := narrative.Export(novel, novelOutput); err != nil {
		return fmt.Errorf("export novel: %w", err)
	}

	fmt.Printf("%s wrote %d chapters from %d events to %s\n",
		color.GreenString("ok"), len(novel.Chapters), novel.TotalEvents, novelOutput)
	return nil
}

func runNovelImport(cmd *cobra.Command, args []string) error {
	llmGen, err := resolveGenerator()
	if err != nil {
		return err
	}
	if llmGen == nil {
		slog.Info("no llm configuration found, using rule-based extraction")
	}

	parser := narrative.NewParser(llmGen)
	parsed, err := parser.ParseFile(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("parse novel: %w", err)
	}

	data, err := json.MarshalIndent(parsed, "", "  ")
	if err != nil {
		return err
	}

	if novelImportOutput != "" {
		if err := os.WriteFile(novelImportOutput, append(data, '\n'), 0o644); err != nil { //nolint:gosec // parsed metadata is not sensitive
			return fmt.Errorf("write metadata: %w", err)
		}
		fmt.Printf("%s parsed %q: %d characters, %d locations, %d key events -> %s\n",
			color.GreenString("ok"), parsed.Title,
			len(parsed.Characters), len(parsed.Locations), len(parsed.KeyEvents),
			novelImportOutput)
		return nil
	}

	fmt.Println(string(data))
	return nil
}
