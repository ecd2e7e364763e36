// Package gemini turns chart screenshots into validated trade plans using
// the Gemini generateContent API with search grounding and structured
// output.
package gemini

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/tradelens/imaging"
	"github.com/rustyeddy/tradelens/pkg/id"
	"github.com/rustyeddy/tradelens/plan"
)

const (
	// DefaultBaseURL is the public Generative Language endpoint.
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	// DefaultModel favours precision over latency.
	DefaultModel = "gemini-3-pro-preview"
	// DefaultTimeout bounds a whole request, search grounding included.
	DefaultTimeout = 120 * time.Second

	userInstruction = "Look up the live spot price for this instrument and analyse the chart with the given strategy."

	maxErrorBody = 4 << 10
)

// Client calls the inference service. It keeps no state between calls and
// is safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	images     imaging.Options
	newID      func() string
	now        func() time.Time
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithModel(m string) Option {
	return func(c *Client) { c.model = m }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient = &http.Client{Timeout: d} }
}

func WithImageOptions(o imaging.Options) Option {
	return func(c *Client) { c.images = o }
}

// WithIDFunc replaces the plan id generator.
func WithIDFunc(f func() string) Option {
	return func(c *Client) { c.newID = f }
}

// WithClock replaces the clock used for plan timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient creates a client for apiKey. Without a key every Analyze call
// fails with ErrNotConfigured.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		model:      DefaultModel,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		images:     imaging.DefaultOptions(),
		newID:      id.New,
		now:        time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	if apiKey == "" {
		log.Warn().Msg("GEMINI_API_KEY not set; chart analysis is disabled")
	}
	return c
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// Result is a validated plan plus the grounding references the service
// attached, in the order it returned them.
type Result struct {
	Plan    plan.TradePlan
	Sources []Source
}

// Analyze normalizes the chart image(s), asks the service for a plan under
// strategy and validates the answer. secondary may be empty.
//
// Undecodable images fail with *imaging.DecodeError before any request is
// sent. Every failure after that is an *AnalysisError.
func (c *Client) Analyze(ctx context.Context, primary, secondary, strategy string) (*Result, error) {
	if strings.TrimSpace(primary) == "" {
		return nil, ErrNoImage
	}
	strategy = strings.TrimSpace(strategy)
	if strategy == "" {
		return nil, ErrNoStrategy
	}
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}

	called := c.now()

	images, err := c.normalize(ctx, primary, secondary)
	if err != nil {
		return nil, err
	}

	resp, err := c.generate(ctx, c.buildRequest(strategy, images))
	if err != nil {
		log.Error().Err(err).Str("model", c.model).Msg("analysis request failed")
		return nil, analysisError(err)
	}

	p, err := parsePlan(resp.text())
	if err != nil {
		log.Error().Err(err).Str("model", c.model).Msg("analysis response rejected")
		return nil, analysisError(err)
	}

	p.ID = c.newID()
	p.Timestamp = called.UnixMilli()
	p.ImageURL = primary
	if secondary != "" {
		p.SecondaryImageURL = secondary
	}

	sources := resp.sources()
	log.Debug().
		Str("model", c.model).
		Str("pair", p.Pair).
		Int("sources", len(sources)).
		Dur("elapsed", c.now().Sub(called)).
		Msg("analysis complete")

	return &Result{Plan: p, Sources: sources}, nil
}

func (c *Client) normalize(ctx context.Context, primary, secondary string) ([]imaging.Image, error) {
	n := 1
	if secondary != "" {
		n = 2
	}
	out := make([]imaging.Image, n)

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range []string{primary, secondary}[:n] {
		i, src := i, src
		g.Go(func() error {
			img, err := imaging.Normalize(gctx, src, c.images)
			if err != nil {
				return err
			}
			out[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// SystemInstruction is the fixed analyst brief with strategy embedded.
func SystemInstruction(strategy string) string {
	return fmt.Sprintf(`Senior institutional analyst.
1. Identify the instrument on the chart and use Google Search to get its CURRENT SPOT PRICE (real-time).
2. Set entry, stop loss and take profit using %s against the live price.
3. Return strict JSON only. Maximum pip precision.`, strategy)
}

func (c *Client) buildRequest(strategy string, images []imaging.Image) generateRequest {
	parts := make([]part, 0, len(images)+1)
	for _, img := range images {
		parts = append(parts, part{InlineData: &inlineData{MimeType: img.MediaType, Data: img.Data}})
	}
	parts = append(parts, part{Text: userInstruction})

	return generateRequest{
		SystemInstruction: &content{Parts: []part{{Text: SystemInstruction(strategy)}}},
		Contents:          []content{{Role: "user", Parts: parts}},
		Tools:             []tool{{GoogleSearch: &googleSearch{}}},
		GenerationConfig: generationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   PlanSchema(),
		},
	}
}

func (c *Client) generate(ctx context.Context, body generateRequest) (*generateResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	apiURL := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(b))
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(out.Candidates) == 0 {
		return nil, fmt.Errorf("no candidates in response")
	}
	return &out, nil
}

// parsePlan decodes and schema-checks the model's JSON answer.
func parsePlan(text string) (plan.TradePlan, error) {
	text = trimFence(text)
	if text == "" {
		return plan.TradePlan{}, fmt.Errorf("empty response text")
	}

	var p planPayload
	if err := json.Unmarshal([]byte(text), &p); err != nil {
		return plan.TradePlan{}, fmt.Errorf("parse plan json: %w", err)
	}
	if err := p.validate(); err != nil {
		return plan.TradePlan{}, fmt.Errorf("plan does not match schema: %w", err)
	}
	return p.toPlan(), nil
}

// trimFence drops a ```json fence some models wrap around structured output.
func trimFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
