package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"rapport/internal/chat"
	"rapport/internal/llm"
	"rapport/internal/safety"
)

var (
	chatSafetyModel string
	chatThreshold   float64
	chatPersona     string
	chatMaxHistory  int

	chatProvider string

	// llama.cpp backend
	chatGGUFModel     string
	chatLlamaBin      string
	chatLlamaURL      string
	chatCtxSize       int
	chatThreads       int
	chatMaxTokens     int
	chatTemperature   float64
	chatTopP          float64
	chatRepeatPenalty float64

	// gemini backend
	chatAPIKey string
	chatModel  string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive practice chat with the safety gate",
	Long: `Runs a blocking read-eval-print chat. Every user turn is scored by the
embedding-based safety classifier and checked against the escalation rules;
if either flags the turn, a templated safe redirect is substituted for the
model's reply.`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatSafetyModel, "safety-model", "models/safety_model.json", "path to the trained safety model")
	chatCmd.Flags().Float64Var(&chatThreshold, "threshold", 0.45, "classifier decision threshold")
	chatCmd.Flags().StringVar(&chatPersona, "persona", "friendly", "persona: friendly or flirty_adult_ok")
	chatCmd.Flags().IntVar(&chatMaxHistory, "max-history", 40, "messages kept besides the system prompt (0 = unbounded)")

	chatCmd.Flags().StringVar(&chatProvider, "provider", "llama", "chat backend: llama or gemini")

	chatCmd.Flags().StringVar(&chatGGUFModel, "gguf-model", "", "path to a .gguf instruct model file (llama backend)")
	chatCmd.Flags().StringVar(&chatLlamaBin, "llama-server", "llama-server", "llama-server binary")
	chatCmd.Flags().StringVar(&chatLlamaURL, "llama-url", "", "URL of an already-running llama-server (skips launch)")
	chatCmd.Flags().IntVar(&chatCtxSize, "ctx-size", 4096, "context window size")
	chatCmd.Flags().IntVar(&chatThreads, "threads", 8, "CPU threads for llama-server")
	chatCmd.Flags().IntVar(&chatMaxTokens, "max-tokens", 140, "generation cap per reply")
	chatCmd.Flags().Float64Var(&chatTemperature, "temperature", 0.8, "sampling temperature")
	chatCmd.Flags().Float64Var(&chatTopP, "top-p", 0.95, "nucleus sampling cutoff")
	chatCmd.Flags().Float64Var(&chatRepeatPenalty, "repeat-penalty", 1.10, "repetition penalty (llama backend)")

	chatCmd.Flags().StringVar(&chatAPIKey, "api-key", "", "API key for the gemini backend (default: GEMINI_API_KEY env)")
	chatCmd.Flags().StringVar(&chatModel, "model", "", "model name for the gemini backend")

	registerEmbedFlags(chatCmd)
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine, err := buildEmbedEngine()
	if err != nil {
		return err
	}
	model, err := safety.LoadModel(chatSafetyModel)
	if err != nil {
		return err
	}
	classifier, err := safety.NewClassifier(model, engine)
	if err != nil {
		return err
	}

	client, err := buildChatClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	logger.Info("chat session starting",
		zap.String("persona", chatPersona),
		zap.String("backend", client.Name()),
		zap.Float64("threshold", chatThreshold),
		zap.String("safety_model", chatSafetyModel))

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	loop, err := chat.New(
		chat.Config{
			Persona:    chatPersona,
			Threshold:  chatThreshold,
			MaxHistory: chatMaxHistory,
		},
		client,
		classifier,
		safety.NewRuleMatcher(nil),
		safety.NewReplier(rng),
		os.Stdin,
		os.Stdout,
		logger,
	)
	if err != nil {
		return err
	}

	return loop.Run(ctx)
}

func buildChatClient(ctx context.Context) (llm.ChatClient, error) {
	switch chatProvider {
	case "llama":
		return llm.NewLlamaClient(ctx, llm.LlamaConfig{
			ModelPath:     chatGGUFModel,
			ServerBin:     chatLlamaBin,
			BaseURL:       chatLlamaURL,
			CtxSize:       chatCtxSize,
			Threads:       chatThreads,
			MaxTokens:     chatMaxTokens,
			Temperature:   chatTemperature,
			TopP:          chatTopP,
			RepeatPenalty: chatRepeatPenalty,
		}, logger)
	case "gemini":
		key := chatAPIKey
		if key == "" {
			key = os.Getenv("GEMINI_API_KEY")
		}
		return llm.NewGeminiClient(ctx, llm.GeminiConfig{
			APIKey:      key,
			Model:       chatModel,
			MaxTokens:   chatMaxTokens,
			Temperature: chatTemperature,
			TopP:        chatTopP,
		})
	default:
		return nil, fmt.Errorf("unknown chat provider %q (use llama or gemini)", chatProvider)
	}
}
