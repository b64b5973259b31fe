package cleanup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"diagramboard/internal/object"

	openai "github.com/sashabaranov/go-openai"
)

const (
	DefaultBaseURL        = "https://api.openai.com/v1"
	DefaultModel          = "gpt-4o"
	DefaultMaxTokens      = 1500
	DefaultTemperature    = 0.2
	DefaultMaxAttempts    = 5
	DefaultInitialBackoff = time.Second
	DefaultRequestTimeout = 60 * time.Second

	apiKeyPrefix = "sk-"
)

// Config: everything the pipeline needs to reach the vision model
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	MaxTokens      int
	Temperature    float32
	MaxAttempts    int
	InitialBackoff time.Duration
	RequestTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		BaseURL:        DefaultBaseURL,
		Model:          DefaultModel,
		MaxTokens:      DefaultMaxTokens,
		Temperature:    DefaultTemperature,
		MaxAttempts:    DefaultMaxAttempts,
		InitialBackoff: DefaultInitialBackoff,
		RequestTimeout: DefaultRequestTimeout,
	}
}

// Validate: checks the API key is present and well formed
func (c Config) Validate() error {
	if c.APIKey == "" {
		return &ConfigurationError{
			MissingKey: true,
			Reason:     "OPENAI_API_KEY is missing. AI cleanup cannot proceed.",
		}
	}
	if !strings.HasPrefix(c.APIKey, apiKeyPrefix) {
		return &ConfigurationError{
			Reason: "Invalid API Key format. The key must start with 'sk-'. Please use a valid OpenAI API Key.",
		}
	}
	return nil
}

// Request: a cleanup call from the browser
type Request struct {
	ImageDataURL string `json:"image_data_url" validate:"required"`
}

// Sleeper: waits d or until ctx is done
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type Option func(*Pipeline)

func WithSleeper(s Sleeper) Option {
	return func(p *Pipeline) { p.sleep = s }
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// Pipeline: turns a canvas image into a validated scene via the vision model
type Pipeline struct {
	cfg       Config
	cfgErr    error
	client    VisionClient
	validator *object.Validator
	sleep     Sleeper
	logger    *slog.Logger
}

// NewPipeline: zero numeric config fields fall back to defaults.
// An invalid API key does not fail construction; every Clean call reports it instead.
func NewPipeline(cfg Config, client VisionClient, validator *object.Validator, opts ...Option) *Pipeline {
	defaults := DefaultConfig()
	if cfg.Model == "" {
		cfg.Model = defaults.Model
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaults.MaxTokens
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaults.MaxAttempts
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = defaults.InitialBackoff
	}
	if validator == nil {
		validator = object.NewValidator()
	}

	p := &Pipeline{
		cfg:       cfg,
		cfgErr:    cfg.Validate(),
		client:    client,
		validator: validator,
		sleep:     sleepContext,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeRetryable
	outcomeTerminal
)

type attemptResult struct {
	outcome outcome
	scene   object.Scene
	err     error
}

// Clean: validates the request, then calls the vision model until it returns a usable
// scene, a terminal error, or the attempts run out
func (p *Pipeline) Clean(ctx context.Context, req Request) (object.Scene, error) {
	if p.cfgErr != nil {
		return nil, p.cfgErr
	}
	if err := p.validator.Struct(req); err != nil {
		return nil, &ClientProtocolError{Reason: "invalid request", Err: err}
	}
	if _, err := ParseDataURI(req.ImageDataURL); err != nil {
		return nil, &ClientProtocolError{Reason: "Invalid image data format."}
	}

	chatReq := buildRequest(p.cfg, req.ImageDataURL)
	delay := p.cfg.InitialBackoff
	var last error

	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		res := p.attempt(ctx, chatReq)

		switch res.outcome {
		case outcomeSuccess:
			if attempt > 1 {
				p.logger.Info("cleanup succeeded after retry", "attempt", attempt)
			}
			return res.scene, nil
		case outcomeTerminal:
			p.logger.Error("cleanup failed", "attempt", attempt, "error", res.err)
			return nil, res.err
		}

		last = res.err
		p.logger.Warn("cleanup attempt failed", "attempt", attempt, "error", res.err)
		if attempt == p.cfg.MaxAttempts {
			break
		}

		if err := p.sleep(ctx, delay); err != nil {
			return nil, &TerminalExternalError{Detail: "cleanup cancelled while waiting to retry", Err: err}
		}
		delay *= 2
	}

	return nil, &ExhaustionError{Attempts: p.cfg.MaxAttempts, Last: last}
}

// attempt: one call to the vision model, classified
func (p *Pipeline) attempt(ctx context.Context, chatReq openai.ChatCompletionRequest) attemptResult {
	callCtx := ctx
	if p.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, p.cfg.RequestTimeout)
		defer cancel()
	}

	resp, err := p.client.CreateChatCompletion(callCtx, chatReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return attemptResult{outcome: outcomeTerminal, err: &TerminalExternalError{Detail: "cleanup cancelled", Err: ctxErr}}
		}
		status, detail := statusOf(err)
		if isRetryableStatus(status) {
			return attemptResult{outcome: outcomeRetryable, err: &TransientExternalError{Status: status, Err: err}}
		}
		return attemptResult{outcome: outcomeTerminal, err: &TerminalExternalError{Status: status, Detail: detail, Err: err}}
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return attemptResult{outcome: outcomeTerminal, err: &TerminalExternalError{Detail: "AI model returned no content."}}
	}

	raws, err := decodeShapes(stripCodeFence(resp.Choices[0].Message.Content))
	if err != nil {
		return attemptResult{outcome: outcomeRetryable, err: &TransientExternalError{Err: err}}
	}

	scene, dropped := p.validator.BuildScene(raws)
	for _, d := range dropped {
		p.logger.Debug("dropped shape", "error", d)
	}
	return attemptResult{outcome: outcomeSuccess, scene: scene}
}

var errUnrecognisedShape = errors.New("model output is neither a shape array nor an object holding one")

// decodeShapes: accepts a bare array or an object wrapping it under shapes, elements or data.
// Elements that are not shape objects are skipped.
func decodeShapes(content string) ([]object.RawShape, error) {
	body := []byte(content)
	if !json.Valid(body) {
		return nil, fmt.Errorf("malformed JSON from model: %s", preview(content))
	}

	var elements []json.RawMessage
	switch trimmed := bytes.TrimSpace(body); {
	case len(trimmed) > 0 && trimmed[0] == '[':
		if err := json.Unmarshal(trimmed, &elements); err != nil {
			return nil, fmt.Errorf("decoding shape array: %w", err)
		}
	case len(trimmed) > 0 && trimmed[0] == '{':
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &wrapper); err != nil {
			return nil, fmt.Errorf("decoding shape object: %w", err)
		}
		found := false
		for _, key := range []string{"shapes", "elements", "data"} {
			inner, ok := wrapper[key]
			if !ok {
				continue
			}
			if err := json.Unmarshal(inner, &elements); err == nil {
				found = true
				break
			}
		}
		if !found {
			return nil, errUnrecognisedShape
		}
	default:
		return nil, errUnrecognisedShape
	}

	raws := make([]object.RawShape, 0, len(elements))
	for _, el := range elements {
		var raw object.RawShape
		if err := json.Unmarshal(el, &raw); err != nil {
			continue
		}
		raws = append(raws, raw)
	}
	return raws, nil
}

func preview(s string) string {
	const limit = 200
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
