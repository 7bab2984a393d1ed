package main

import (
	"os"

	"github.com/spf13/cobra"

	"rapport/internal/embedding"
)

// Embedding flags shared by the chat and safety commands.
var (
	embedProvider string
	ollamaURL     string
	embedModel    string
	genaiKey      string
)

func registerEmbedFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&embedProvider, "embed-provider", "ollama", "embedding backend: ollama or genai")
	cmd.Flags().StringVar(&ollamaURL, "ollama-url", "http://localhost:11434", "Ollama endpoint")
	cmd.Flags().StringVar(&embedModel, "embed-model", "", "embedding model (default per provider)")
	cmd.Flags().StringVar(&genaiKey, "genai-key", "", "GenAI API key (default: GEMINI_API_KEY env)")
}

func buildEmbedEngine() (embedding.Engine, error) {
	cfg := embedding.DefaultConfig()
	cfg.Provider = embedProvider
	cfg.OllamaEndpoint = ollamaURL
	if embedModel != "" {
		cfg.OllamaModel = embedModel
		cfg.GenAIModel = embedModel
	}
	cfg.GenAIAPIKey = genaiKey
	if cfg.GenAIAPIKey == "" {
		cfg.GenAIAPIKey = os.Getenv("GEMINI_API_KEY")
	}
	return embedding.NewEngine(cfg)
}
