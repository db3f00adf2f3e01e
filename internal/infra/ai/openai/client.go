package openai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/bryanwahyu/nog/internal/domain/analysis"
)

const (
	defaultModel          = openai.GPT4o
	defaultImageMaxTokens = 500
	defaultTextMaxTokens  = 300
	defaultTemperature    = 0.3
	defaultTimeout        = 60 * time.Second
)

// Config for the chat-completion provider. Zero values take the defaults above.
type Config struct {
	APIKey         string
	BaseURL        string
	ImageModel     string
	TextModel      string
	ImageMaxTokens int
	TextMaxTokens  int
	Temperature    float32
	JSONMode       bool
	Timeout        time.Duration
	HTTPClient     *http.Client
}

// Client issues one chat completion per call and maps provider failures to
// the analysis error taxonomy.
type Client struct {
	api *openai.Client
	cfg Config
}

func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("openai api key is required")
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = defaultModel
	}
	if cfg.TextModel == "" {
		cfg.TextModel = defaultModel
	}
	if cfg.ImageMaxTokens <= 0 {
		cfg.ImageMaxTokens = defaultImageMaxTokens
	}
	if cfg.TextMaxTokens <= 0 {
		cfg.TextMaxTokens = defaultTextMaxTokens
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = defaultTemperature
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		clientConfig.HTTPClient = cfg.HTTPClient
	}
	return &Client{api: openai.NewClientWithConfig(clientConfig), cfg: cfg}, nil
}

// complete returns the content of the single completion choice.
func (c *Client) complete(ctx context.Context, model string, maxTokens int, messages []openai.ChatCompletionMessage) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:    model,
		Messages: messages,
	}
	if c.cfg.JSONMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens and keep the default temperature
	if isReasoningModel(model) {
		req.MaxCompletionTokens = maxTokens
	} else {
		req.MaxTokens = maxTokens
		req.Temperature = c.cfg.Temperature
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", analysis.ErrMalformedEnvelope)
	}
	return resp.Choices[0].Message.Content, nil
}

func isReasoningModel(model string) bool {
	for _, p := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, p) {
			return true
		}
	}
	return false
}

// classify wraps a go-openai error with the matching analysis sentinel.
func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return statusError(apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return statusError(reqErr.HTTPStatusCode, err)
	}

	var urlErr *url.Error
	var netErr net.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) ||
		errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", analysis.ErrTransport, err)
	}
	// Anything else failed while decoding a 2xx body.
	return fmt.Errorf("%w: %w", analysis.ErrMalformedEnvelope, err)
}

func statusError(code int, err error) error {
	if code == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %w", analysis.ErrRateLimited, err)
	}
	return &analysis.ProviderStatusError{StatusCode: code, Err: err}
}
