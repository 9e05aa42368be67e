package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/nobodyrpg/nobody/internal/config"
	"github.com/nobodyrpg/nobody/internal/llm"
)

// Config set flags.
var (
	setProvider    string
	setEndpoint    string
	setAPIKey      string
	setModel       string
	setMaxTokens   int
	setTemperature float64
)

// configCmd is the parent command for config subcommands.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View and modify the LLM endpoint configuration",
	Long: `View and modify the LLM endpoint configuration.

Nobody resolves its configuration in order: explicit values set through
this command, then the config file (.nobody.yaml by default), then the
NOBODY_LLM_* environment variables.`,
}

// configSetCmd persists an endpoint configuration.
var configSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Set and persist the LLM endpoint configuration",
	Long: `Set the LLM endpoint configuration and persist it to the config file.

Examples:
  nobody config set --endpoint https://api.openai.com/v1/chat/completions --api-key sk-...
  nobody config set --endpoint http://localhost:8080/v1/chat/completions --api-key local --model qwen2.5
  nobody config set --provider anthropic --api-key sk-ant-...`,
	Args: cobra.NoArgs,
	RunE: runConfigSet,
}

// configStatusCmd reports the effective configuration and its source.
var configStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the effective configuration and where it comes from",
	Args:  cobra.NoArgs,
	RunE:  runConfigStatus,
}

// configClearCmd removes the persisted configuration.
var configClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the persisted configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigClear,
}

// configTestCmd performs a tiny live round-trip through the client.
var configTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Send a minimal request to verify the configuration works",
	Args:  cobra.NoArgs,
	RunE:  runConfigTest,
}

func init() {
	configSetCmd.Flags().StringVar(&setProvider, "provider", config.ProviderOpenAI,
		"llm provider: "+config.ProviderOpenAI+" or "+config.ProviderAnthropic)
	configSetCmd.Flags().StringVar(&setEndpoint, "endpoint", "", "chat completion endpoint URL (openai provider)")
	configSetCmd.Flags().StringVar(&setAPIKey, "api-key", "", "API key for the provider")
	configSetCmd.Flags().StringVar(&setModel, "model", "", "model name (default "+config.DefaultModel+")")
	configSetCmd.Flags().IntVar(&setMaxTokens, "max-tokens", 0, "default max completion tokens")
	configSetCmd.Flags().Float64Var(&setTemperature, "temperature", 0, "default sampling temperature")
	_ = configSetCmd.MarkFlagRequired("api-key")

	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configStatusCmd)
	configCmd.AddCommand(configClearCmd)
	configCmd.AddCommand(configTestCmd)
}

func runConfigSet(_ *cobra.Command, _ []string) error {
	m := config.NewManager(configPath)
	err := m.Set(config.Settings{
		Provider: setProvider,
		LLM: llm.Config{
			Endpoint:    setEndpoint,
			APIKey:      setAPIKey,
			Model:       setModel,
			MaxTokens:   setMaxTokens,
			Temperature: setTemperature,
		},
	})
	if err != nil {
		return err
	}

	fmt.Printf("configuration written to %s\n", configPath)
	return nil
}

func runConfigStatus(_ *cobra.Command, _ []string) error {
	m := config.NewManager(configPath)
	status := m.Status()

	sourceColor := color.New(color.FgCyan)
	if status.Source == config.SourceNone {
		fmt.Println("no configuration found")
		fmt.Printf("set one with 'nobody config set' or export %s and %s\n",
			config.EnvEndpoint, config.EnvAPIKey)
		return nil
	}

	fmt.Printf("source:      %s\n", sourceColor.Sprint(string(status.Source)))
	fmt.Printf("provider:    %s\n", status.Provider)
	fmt.Printf("endpoint:    %s\n", status.Endpoint)
	fmt.Printf("model:       %s\n", status.Model)
	fmt.Printf("max tokens:  %d\n", status.MaxTokens)
	fmt.Printf("temperature: %.2f\n", status.Temperature)
	if status.HasAPIKey {
		fmt.Printf("api key:     %s\n", color.GreenString("set"))
	} else {
		fmt.Printf("api key:     %s\n", color.RedString("missing"))
	}
	return nil
}

func runConfigClear(_ *cobra.Command, _ []string) error {
	m := config.NewManager(configPath)
	if err := m.Clear(); err != nil {
		return err
	}
	fmt.Println("configuration cleared")
	return nil
}

func runConfigTest(cmd *cobra.Command, _ []string) error {
	m := config.NewManager(configPath)
	settings, ok := m.Resolve()
	if !ok {
		return &exitCodeError{msg: "no configuration found; run 'nobody config set' first", code: 1}
	}

	gen, err := settings.NewGenerator()
	if err != nil {
		return err
	}

	maxTokens := 16
	resp, err := gen.Generate(cmd.Context(), llm.Request{
		Prompt:    "Reply with the single word OK.",
		MaxTokens: &maxTokens,
	})
	if err != nil {
		return &exitCodeError{msg: fmt.Sprintf("round-trip failed: %v", err), code: 1}
	}

	fmt.Printf("%s model %s replied: %s\n", color.GreenString("ok"), resp.Model, resp.Text)
	return nil
}
