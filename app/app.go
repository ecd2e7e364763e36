// Package app wires the analysis client, the position sizer and the ledger
// into one application object with an explicit lifecycle: New loads the
// persisted state, every mutation is flushed as it happens, Close releases
// the store.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"go.uber.org/multierr"

	"github.com/rustyeddy/tradelens/config"
	"github.com/rustyeddy/tradelens/gemini"
	"github.com/rustyeddy/tradelens/journal"
	"github.com/rustyeddy/tradelens/plan"
	"github.com/rustyeddy/tradelens/risk"
)

var ErrClosed = errors.New("app is closed")

// Analyzer turns chart images into a trade plan. *gemini.Client is the
// production implementation.
type Analyzer interface {
	Analyze(ctx context.Context, primary, secondary, strategy string) (*gemini.Result, error)
}

type App struct {
	cfg      *config.Config
	analyzer Analyzer
	sizer    risk.Sizer
	kv       journal.KV
	ledger   *journal.Ledger
	closers  []io.Closer

	mu     sync.Mutex
	auth   bool
	closed bool
}

type Option func(*App)

// WithAnalyzer replaces the Gemini client.
func WithAnalyzer(a Analyzer) Option {
	return func(app *App) { app.analyzer = a }
}

// WithKV replaces the configured ledger backend. App.Close closes it.
func WithKV(kv journal.KV) Option {
	return func(app *App) { app.kv = kv }
}

// WithCloser registers extra resources released by Close, such as the log
// file.
func WithCloser(c io.Closer) Option {
	return func(app *App) { app.closers = append(app.closers, c) }
}

// New builds the application from cfg and loads the persisted ledger and
// session flag.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	a := &App{cfg: cfg, sizer: cfg.Risk.Sizer()}
	for _, o := range opts {
		o(a)
	}

	if a.analyzer == nil {
		c, err := newGeminiClient(cfg)
		if err != nil {
			return nil, err
		}
		a.analyzer = c
		log.Debug().Str("model", c.Model()).Msg("gemini analyzer configured")
	}

	if a.kv == nil {
		kv, err := journal.OpenKV(cfg.Ledger.Backend, cfg.Ledger.Path)
		if err != nil {
			return nil, fmt.Errorf("open ledger: %w", err)
		}
		a.kv = kv
	}

	a.ledger = journal.NewLedger(a.kv)
	entries := a.ledger.Load()
	a.auth = a.readAuth()

	log.Info().
		Str("backend", cfg.Ledger.Backend).
		Int("entries", len(entries)).
		Bool("authenticated", a.auth).
		Msg("tradelens ready")

	return a, nil
}

func newGeminiClient(cfg *config.Config) (*gemini.Client, error) {
	timeout, err := cfg.Gemini.ParseTimeout()
	if err != nil {
		return nil, fmt.Errorf("gemini timeout: %w", err)
	}
	imgOpts, err := cfg.Image.Options()
	if err != nil {
		return nil, fmt.Errorf("image options: %w", err)
	}

	opts := []gemini.Option{gemini.WithImageOptions(imgOpts)}
	if cfg.Gemini.BaseURL != "" {
		opts = append(opts, gemini.WithBaseURL(cfg.Gemini.BaseURL))
	}
	if cfg.Gemini.Model != "" {
		opts = append(opts, gemini.WithModel(cfg.Gemini.Model))
	}
	if timeout > 0 {
		opts = append(opts, gemini.WithTimeout(timeout))
	}
	return gemini.NewClient(cfg.Gemini.APIKey, opts...), nil
}

// Config returns the configuration the app was built with.
func (a *App) Config() *config.Config { return a.cfg }

// Ledger exposes the journal for listing, filtering and editing.
func (a *App) Ledger() *journal.Ledger { return a.ledger }

// Sizer returns the configured position sizer.
func (a *App) Sizer() risk.Sizer { return a.sizer }

// Close flushes and releases the backend. It is safe to call twice.
func (a *App) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}
	a.closed = true

	err := a.kv.Close()
	for _, c := range a.closers {
		err = multierr.Append(err, c.Close())
	}
	return err
}

func (a *App) isClosed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closed
}

// AnalyzeRequest is one chart submission.
type AnalyzeRequest struct {
	Primary     string
	Secondary   string
	Strategy    string
	Balance     float64
	RiskPercent float64
}

// NewRequest returns a request for primary carrying the configured
// strategy, balance and risk.
func (a *App) NewRequest(primary string) AnalyzeRequest {
	return AnalyzeRequest{
		Primary:     primary,
		Strategy:    a.cfg.Gemini.Strategy,
		Balance:     a.cfg.Risk.Balance,
		RiskPercent: a.cfg.Risk.RiskPercent,
	}
}

// Analysis is the result shown before the user decides to save.
type Analysis struct {
	Plan         plan.TradePlan  `json:"plan"`
	Sources      []gemini.Source `json:"sources"`
	PositionSize string          `json:"positionSize"`
	Notes        []string        `json:"notes,omitempty"`
}

// Analyze runs the chart through the analyzer and sizes the result. The
// analyzer's errors are returned unchanged so callers can tell a
// DecodeError from an AnalysisError.
func (a *App) Analyze(ctx context.Context, req AnalyzeRequest) (*Analysis, error) {
	if a.isClosed() {
		return nil, ErrClosed
	}
	strategy := strings.TrimSpace(req.Strategy)
	if strategy == "" {
		strategy = a.cfg.Gemini.Strategy
	}

	res, err := a.analyzer.Analyze(ctx, req.Primary, req.Secondary, strategy)
	if err != nil {
		return nil, err
	}

	p := res.Plan
	notes := plan.ConsistencyNotes(p)
	review := risk.Evaluate(a.cfg.Risk.Policy(), risk.Intent{
		Inputs: risk.Inputs{
			Pair:        p.Pair,
			Entry:       p.Entry,
			StopLoss:    p.StopLoss,
			Balance:     req.Balance,
			RiskPercent: req.RiskPercent,
		},
		TakeProfit: p.TakeProfit,
		Confidence: p.ConfidenceScore,
	})
	notes = append(notes, review.Messages()...)
	for _, n := range notes {
		log.Warn().Str("id", p.ID).Str("pair", p.Pair).Msg(n)
	}

	sources := res.Sources
	if sources == nil {
		sources = []gemini.Source{}
	}

	return &Analysis{
		Plan:         p,
		Sources:      sources,
		PositionSize: a.SizeFor(p, req.Balance, req.RiskPercent, risk.DefaultSize),
		Notes:        notes,
	}, nil
}

// SizeFor sizes p for the given account. prior is kept when the plan's
// entry equals its stop.
func (a *App) SizeFor(p plan.TradePlan, balance, riskPercent float64, prior string) string {
	return a.sizer.Size(p.Pair, p.Entry, p.StopLoss, balance, riskPercent, prior)
}

// Save records p with positionSize as a new PENDING ledger entry and
// returns the updated ledger.
func (a *App) Save(p plan.TradePlan, positionSize string) ([]plan.JournalEntry, error) {
	if a.isClosed() {
		return nil, ErrClosed
	}
	p.PositionSize = positionSize
	entries, err := a.ledger.Append(p)
	if err != nil {
		log.Error().Err(err).Str("id", p.ID).Msg("save to journal failed")
		return nil, err
	}
	log.Info().Str("id", p.ID).Str("pair", p.Pair).Str("size", positionSize).Msg("plan saved")
	return entries, nil
}

// Authenticated reports the persisted session flag.
func (a *App) Authenticated() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.auth
}

// SetAuthenticated persists the session flag. Logging out removes the record.
func (a *App) SetAuthenticated(ok bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ErrClosed
	}

	var err error
	if ok {
		err = a.kv.Set(journal.AuthKey, []byte("true"))
	} else {
		err = a.kv.Delete(journal.AuthKey)
	}
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	a.auth = ok
	return nil
}

func (a *App) readAuth() bool {
	v, err := a.kv.Get(journal.AuthKey)
	if err != nil {
		if !errors.Is(err, journal.ErrKeyNotFound) {
			log.Warn().Err(err).Msg("session flag unreadable")
		}
		return false
	}
	return string(v) == "true"
}
