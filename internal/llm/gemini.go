package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiConfig holds Gemini backend configuration.
type GeminiConfig struct {
	APIKey      string
	Model       string // default: gemini-2.5-flash
	MaxTokens   int
	Temperature float64
	TopP        float64
}

// GeminiClient implements ChatClient over the Google GenAI SDK.
type GeminiClient struct {
	client *genai.Client
	cfg    GeminiConfig
}

// NewGeminiClient creates a Gemini-backed chat client.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: failed to create client: %w", err)
	}
	return &GeminiClient{client: client, cfg: cfg}, nil
}

// Chat forwards the history to Gemini. The leading system message becomes
// the system instruction; user/assistant turns map to user/model contents.
func (c *GeminiClient) Chat(ctx context.Context, history []Message) (string, error) {
	genCfg := &genai.GenerateContentConfig{}
	if c.cfg.MaxTokens > 0 {
		genCfg.MaxOutputTokens = int32(c.cfg.MaxTokens)
	}
	if c.cfg.Temperature > 0 {
		genCfg.Temperature = genai.Ptr(float32(c.cfg.Temperature))
	}
	if c.cfg.TopP > 0 {
		genCfg.TopP = genai.Ptr(float32(c.cfg.TopP))
	}

	contents := make([]*genai.Content, 0, len(history))
	for _, msg := range history {
		switch msg.Role {
		case RoleSystem:
			genCfg.SystemInstruction = genai.NewContentFromText(msg.Content, genai.RoleUser)
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}

	result, err := c.client.Models.GenerateContent(ctx, c.cfg.Model, contents, genCfg)
	if err != nil {
		return "", fmt.Errorf("gemini: generate failed: %w", err)
	}

	text := strings.TrimSpace(result.Text())
	if text == "" {
		return "", fmt.Errorf("gemini: no completion returned")
	}
	return text, nil
}

// Name identifies the backend.
func (c *GeminiClient) Name() string {
	return "gemini:" + c.cfg.Model
}

// Close releases client resources.
func (c *GeminiClient) Close() error {
	return nil
}
