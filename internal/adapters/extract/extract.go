package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/meetsync/internal/domain"
)

const (
	DefaultBaseURL     = "https://api.cerebras.ai/v1"
	DefaultModel       = "qwen-3-coder-480b"
	DefaultMaxTokens   = 40000
	DefaultTemperature = 0.7
	DefaultTopP        = 0.8
)

var ErrNoChoices = errors.New("completion returned no choices")

type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	TopP        float64
}

// Client extracts tasks through an OpenAI-compatible chat completions endpoint.
type Client struct {
	cfg  Config
	http *http.Client
}

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: 5 * time.Minute}}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model               string    `json:"model"`
	Messages            []message `json:"messages"`
	Stream              bool      `json:"stream"`
	MaxCompletionTokens int       `json:"max_completion_tokens"`
	Temperature         float64   `json:"temperature"`
	TopP                float64   `json:"top_p"`
}

type completionResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

// Extract sends the transcript and parses the reply. A reply that is not a
// JSON array of tasks yields an empty list, not an error.
func (c *Client) Extract(ctx context.Context, transcript string) ([]domain.ExtractedTask, error) {
	content, err := c.complete(ctx, TranscriptAnalysisPrompt, transcript)
	if err != nil {
		return nil, err
	}
	tasks, err := ParseTasks(content)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.extract").Str("response", content).Msg("decode tasks")
		return []domain.ExtractedTask{}, nil
	}
	return tasks, nil
}

func (c *Client) complete(ctx context.Context, system, user string) (string, error) {
	body, err := json.Marshal(completionRequest{
		Model: c.cfg.Model,
		Messages: []message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxCompletionTokens: c.cfg.MaxTokens,
		Temperature:         c.cfg.Temperature,
		TopP:                c.cfg.TopP,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("chat completion: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	var out completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", ErrNoChoices
	}
	return out.Choices[0].Message.Content, nil
}

// ParseTasks decodes a JSON task array, tolerating a surrounding markdown code fence.
func ParseTasks(content string) ([]domain.ExtractedTask, error) {
	s := strings.TrimSpace(content)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if i := strings.IndexByte(s, '\n'); i >= 0 {
			s = s[i+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	var tasks []domain.ExtractedTask
	if err := json.Unmarshal([]byte(s), &tasks); err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []domain.ExtractedTask{}
	}
	return tasks, nil
}
