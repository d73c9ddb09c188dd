package signedxml

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Engine signs and validates documents. It is configured once by NewEngine
// and is safe for concurrent use afterwards; the documents passed to it are
// not.
type Engine struct {
	provider       string
	fellBack       bool
	canonicalizers map[string]CanonicalizationAlgorithm
	idAttributes   []string
	logger         *zap.Logger
	metrics        MetricsRecorder
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for diagnostics. Verification details are
// logged at debug level.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMetrics sets the recorder notified of signing and validation results.
func WithMetrics(m MetricsRecorder) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithIDAttributes sets the attribute names treated as IDs when a
// same-document reference matches no marked ID attribute. The default is
// ID, Id and id.
func WithIDAttributes(names ...string) Option {
	return func(e *Engine) {
		e.idAttributes = append([]string(nil), names...)
	}
}

// WithProvider selects the canonicalization provider. An unknown or not
// compiled in provider makes the engine fall back to DefaultProvider.
func WithProvider(name string) Option {
	return func(e *Engine) {
		e.provider = name
	}
}

// NewEngine builds an Engine.
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{
		provider:     DefaultProvider,
		idAttributes: []string{"ID", "Id", "id"},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	e.logger = e.logger.Named("signedxml")
	if e.metrics == nil {
		e.metrics = NoopMetricsRecorder{}
	}
	for _, name := range e.idAttributes {
		if name == "" {
			return nil, fmt.Errorf("%w: empty ID attribute name", ErrInvalidArgument)
		}
	}

	build, ok := providers[e.provider]
	if !ok {
		e.logger.Debug("canonicalization provider unavailable, falling back",
			zap.String("provider", e.provider),
			zap.String("fallback", DefaultProvider))
		e.provider = DefaultProvider
		e.fellBack = true
		build = providers[DefaultProvider]
	}
	e.canonicalizers = build()
	return e, nil
}

// Provider reports the canonicalization provider in use.
func (e *Engine) Provider() string {
	return e.provider
}

// FellBack reports whether the requested provider was unavailable.
func (e *Engine) FellBack() bool {
	return e.fellBack
}

var defaultEngine = sync.OnceValue(func() *Engine {
	e, err := NewEngine()
	if err != nil {
		panic(err)
	}
	return e
})

// DefaultEngine returns a shared Engine with default options, built on first
// use.
func DefaultEngine() *Engine {
	return defaultEngine()
}
