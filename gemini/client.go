// Package gemini talks to the hosted Gemini model through the genai SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/kir-gadjello/gemtutor/compose"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// ModelName is the model every request goes to.
const ModelName = "gemini-3-flash-preview"

var ErrMissingAPIKey = errors.New("no Gemini API key in GEMINI_API_KEY, API_KEY or GOOGLE_API_KEY")

// KeyEnvVars are consulted in order on every call.
var KeyEnvVars = []string{"GEMINI_API_KEY", "API_KEY", "GOOGLE_API_KEY"}

// LookupAPIKey returns the first non-empty key and the variable it came from.
func LookupAPIKey() (key, from string) {
	for _, name := range KeyEnvVars {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v, name
		}
	}
	return "", ""
}

type Config struct {
	// APIBase overrides the SDK endpoint. Empty keeps the default.
	APIBase string
	// Verbose dumps each HTTP exchange at debug level.
	Verbose bool
	// Timeout caps each HTTP exchange. Zero means no limit.
	Timeout time.Duration
}

// Client satisfies turn.Model. It holds no SDK state: the key is read and a
// fresh SDK client built for each call, so a key fixed after startup works
// on the next turn.
type Client struct {
	cfg    Config
	logger *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{cfg: cfg, logger: logger}
}

func (c *Client) httpClient() *http.Client {
	hc := &http.Client{Timeout: c.cfg.Timeout}
	if c.cfg.Verbose {
		hc.Transport = &loggingTransport{logger: c.logger.Named("http")}
	}
	return hc
}

func (c *Client) sdk(ctx context.Context) (*genai.Client, error) {
	key, from := LookupAPIKey()
	if key == "" {
		return nil, ErrMissingAPIKey
	}
	c.logger.Debug("using API key", zap.String("env", from))

	cc := &genai.ClientConfig{
		APIKey:     key,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: c.httpClient(),
	}
	if c.cfg.APIBase != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: strings.TrimSuffix(c.cfg.APIBase, "/") + "/"}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return client, nil
}

// Generate sends one request and returns the answer text. An answer with no
// candidates comes back as an empty string.
func (c *Client) Generate(ctx context.Context, req compose.Request) (string, error) {
	contents, config, err := req.GenAI()
	if err != nil {
		return "", err
	}

	client, err := c.sdk(ctx)
	if err != nil {
		return "", err
	}

	start := time.Now()
	resp, err := client.Models.GenerateContent(ctx, ModelName, contents, config)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if resp == nil {
		return "", nil
	}

	text := resp.Text()
	c.logger.Debug("generate content",
		zap.String("model", ModelName),
		zap.Int("turns", len(contents)),
		zap.Int("candidates", len(resp.Candidates)),
		zap.Duration("elapsed", time.Since(start)))
	return text, nil
}

// Ping checks that a key is present and the endpoint answers a tiny prompt.
func (c *Client) Ping(ctx context.Context) error {
	req, err := compose.Compose(nil, "ping", nil)
	if err != nil {
		return err
	}
	req.SystemInstruction = ""
	_, err = c.Generate(ctx, req)
	return err
}
