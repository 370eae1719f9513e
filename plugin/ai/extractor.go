// Package ai extracts structured opening-hours schedules from page text
// through an OpenAI-compatible chat completion endpoint.
package ai

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/datagora/openhours/internal/schedule"
)

// Config holds the extraction endpoint configuration.
type Config struct {
	BaseURL    string
	APIKey     string
	Model      string
	MaxRetries int
	Timeout    time.Duration
	// RPS throttles requests across the whole run. Zero means no limit.
	RPS float64
	// CalendarContext lists the known school vacation spans; when set it is
	// injected into every prompt so the model can bucket vacation hours.
	CalendarContext string
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:    "https://api.openai.com/v1",
		Model:      "gpt-4o-mini",
		MaxRetries: 3,
		Timeout:    60 * time.Second,
	}
}

// client is the part of the chat API the extractor uses. Tests substitute a
// fake; production wires *openai.Client.
type client interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Extractor turns filtered page text into validated schedules.
type Extractor struct {
	client  client
	config  *Config
	limiter *rate.Limiter
}

// New creates an Extractor.
func New(cfg *Config) (*Extractor, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.APIKey == "" {
		return nil, errors.New("extraction requires an API key")
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	e := &Extractor{
		client: openai.NewClientWithConfig(clientConfig),
		config: cfg,
	}
	if cfg.RPS > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(cfg.RPS), 1)
	}
	return e, nil
}

// Extract asks the model for the opening hours described in the page text
// and returns a validated schedule carrying the supplied metadata. The model
// output is parsed strictly: anything that does not unmarshal and validate
// fails, it is never patched up.
func (e *Extractor) Extract(ctx context.Context, meta schedule.Metadata, pageText string) (*schedule.Schedule, error) {
	if strings.TrimSpace(pageText) == "" {
		return nil, errors.New("empty page text")
	}
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	if e.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.Timeout)
		defer cancel()
	}

	req := openai.ChatCompletionRequest{
		Model:       e.config.Model,
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(meta, pageText, e.config.CalendarContext)},
		},
	}

	var raw string
	err := e.doWithRetry(ctx, func() error {
		resp, err := e.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return errors.New("empty chat response")
		}
		raw = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to complete extraction")
	}

	return parseSchedule(raw, meta)
}

func parseSchedule(raw string, meta schedule.Metadata) (*schedule.Schedule, error) {
	raw = stripFences(raw)

	var extracted struct {
		Periods    []schedule.Period       `json:"periods"`
		Extraction schedule.ExtractionInfo `json:"extraction"`
	}
	if err := json.Unmarshal([]byte(raw), &extracted); err != nil {
		return nil, errors.Wrap(err, "model returned unparseable JSON")
	}

	s := schedule.New(meta)
	s.Extraction = extracted.Extraction
	for _, p := range extracted.Periods {
		target := s.EnsurePeriod(p.Key)
		p.Label = target.Label
		p.Condition = target.Condition
		if schedule.IsWeeklyPeriod(p.Key) && p.Weekly == nil {
			p.Weekly = &schedule.WeeklySchedule{}
		}
		*target = p
	}
	if err := s.Validate(); err != nil {
		return nil, errors.Wrap(err, "model returned an invalid schedule")
	}
	return s, nil
}

// stripFences drops a Markdown code fence some models wrap around JSON even
// in JSON mode.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// doWithRetry executes a function with exponential backoff retry.
func (e *Extractor) doWithRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < e.config.MaxRetries; attempt++ {
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			if attempt < e.config.MaxRetries-1 {
				waitTime := time.Duration(math.Pow(2, float64(attempt))) * time.Second
				slog.Debug("extraction request failed, retrying",
					"attempt", attempt+1,
					"wait_time", waitTime,
					"error", err)
				select {
				case <-time.After(waitTime):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
	return lastErr
}
