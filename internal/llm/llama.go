package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// LlamaConfig holds llama.cpp backend configuration. When BaseURL is set,
// the client talks to an already-running llama-server; otherwise it launches
// one for ModelPath and owns its lifetime.
type LlamaConfig struct {
	ModelPath     string // path to a .gguf instruct model file
	ServerBin     string // llama-server binary (default: "llama-server" on PATH)
	BaseURL       string // e.g. "http://127.0.0.1:8012"; empty means self-managed
	Port          int    // port for the self-managed server (default 8012)
	CtxSize       int    // context window size (default 4096)
	Threads       int    // CPU threads (default 8)
	MaxTokens     int    // generation cap per reply (default 140)
	Temperature   float64
	TopP          float64
	RepeatPenalty float64
	StartTimeout  time.Duration // how long to wait for the server health check
}

// LlamaClient implements ChatClient against llama-server's OpenAI-compatible
// chat endpoint.
type LlamaClient struct {
	cfg        LlamaConfig
	baseURL    string
	httpClient *http.Client
	cmd        *exec.Cmd
	logger     *zap.Logger
}

// NewLlamaClient creates the client, launching llama-server if needed and
// blocking until its health check passes.
func NewLlamaClient(ctx context.Context, cfg LlamaConfig, logger *zap.Logger) (*LlamaClient, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ServerBin == "" {
		cfg.ServerBin = "llama-server"
	}
	if cfg.Port == 0 {
		cfg.Port = 8012
	}
	if cfg.CtxSize == 0 {
		cfg.CtxSize = 4096
	}
	if cfg.Threads == 0 {
		cfg.Threads = 8
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 140
	}
	if cfg.StartTimeout == 0 {
		cfg.StartTimeout = 90 * time.Second
	}

	c := &LlamaClient{
		cfg:    cfg,
		logger: logger,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}

	if cfg.BaseURL != "" {
		c.baseURL = strings.TrimRight(cfg.BaseURL, "/")
		return c, nil
	}

	if cfg.ModelPath == "" {
		return nil, fmt.Errorf("llama: model path is required when no server URL is given")
	}
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("llama: model file not found: %w", err)
	}

	c.baseURL = fmt.Sprintf("http://127.0.0.1:%d", cfg.Port)
	cmd := exec.Command(cfg.ServerBin,
		"-m", cfg.ModelPath,
		"--ctx-size", strconv.Itoa(cfg.CtxSize),
		"--threads", strconv.Itoa(cfg.Threads),
		"--host", "127.0.0.1",
		"--port", strconv.Itoa(cfg.Port),
	)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("llama: failed to start %s: %w", cfg.ServerBin, err)
	}
	c.cmd = cmd

	logger.Info("started llama-server",
		zap.String("model", cfg.ModelPath),
		zap.Int("ctx_size", cfg.CtxSize),
		zap.Int("threads", cfg.Threads),
		zap.String("url", c.baseURL))

	if err := c.waitReady(ctx, cfg.StartTimeout); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

// waitReady polls the server health endpoint until it responds or the
// timeout elapses.
func (c *LlamaClient) waitReady(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}

		req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/health", nil)
		if err != nil {
			return err
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			continue
		}
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			return nil
		}
	}
	return fmt.Errorf("llama: server at %s not ready after %s", c.baseURL, timeout)
}

type llamaChatRequest struct {
	Messages      []Message `json:"messages"`
	MaxTokens     int       `json:"max_tokens,omitempty"`
	Temperature   float64   `json:"temperature,omitempty"`
	TopP          float64   `json:"top_p,omitempty"`
	RepeatPenalty float64   `json:"repeat_penalty,omitempty"`
}

type llamaChatResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Chat sends the full history to the chat completion endpoint.
func (c *LlamaClient) Chat(ctx context.Context, history []Message) (string, error) {
	reqBody := llamaChatRequest{
		Messages:      history,
		MaxTokens:     c.cfg.MaxTokens,
		Temperature:   c.cfg.Temperature,
		TopP:          c.cfg.TopP,
		RepeatPenalty: c.cfg.RepeatPenalty,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("llama request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("llama server returned status %d: %s", resp.StatusCode, string(body))
	}

	var chatResp llamaChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if chatResp.Error != nil {
		return "", fmt.Errorf("llama server error: %s", chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no completion returned")
	}

	return strings.TrimSpace(chatResp.Choices[0].Message.Content), nil
}

// Name identifies the backend.
func (c *LlamaClient) Name() string {
	if c.cfg.ModelPath != "" {
		return "llama:" + c.cfg.ModelPath
	}
	return "llama:" + c.baseURL
}

// Close stops the self-managed llama-server, if any.
func (c *LlamaClient) Close() error {
	if c.cmd == nil || c.cmd.Process == nil {
		return nil
	}
	if err := c.cmd.Process.Kill(); err != nil {
		return fmt.Errorf("llama: failed to stop server: %w", err)
	}
	_ = c.cmd.Wait()
	return nil
}
