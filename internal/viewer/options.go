package viewer

import (
	"github.com/kobzarvs/qview/internal/chunk"
	"github.com/kobzarvs/qview/internal/geometry"
	"go.uber.org/zap"
)

// Options tunes window sizes and caching. Non-positive alignment, capacity,
// height and line height fall back to DefaultOptions. Negative buffers and
// margin do too; zero turns them off. Prefetch is used as given, so start
// from DefaultOptions when building Options by hand.
type Options struct {
	ChunkAlignment   int
	CacheCapacity    int
	CachePolicy      chunk.Policy
	BufferAhead      int
	BufferBehind     int
	RerenderMargin   int
	MaxVirtualHeight float64
	LineHeight       float64
	Prefetch         bool
}

// DefaultOptions returns the settings used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		ChunkAlignment:   100,
		CacheCapacity:    8,
		CachePolicy:      chunk.PolicyFIFO,
		BufferAhead:      200,
		BufferBehind:     100,
		RerenderMargin:   50,
		MaxVirtualHeight: geometry.DefaultMaxHeight,
		LineHeight:       1,
		Prefetch:         true,
	}
}

func (o Options) normalized() Options {
	def := DefaultOptions()
	if o.ChunkAlignment < 1 {
		o.ChunkAlignment = def.ChunkAlignment
	}
	if o.CacheCapacity < 1 {
		o.CacheCapacity = def.CacheCapacity
	}
	if o.BufferAhead < 0 {
		o.BufferAhead = def.BufferAhead
	}
	if o.BufferBehind < 0 {
		o.BufferBehind = def.BufferBehind
	}
	if o.RerenderMargin < 0 {
		o.RerenderMargin = def.RerenderMargin
	}
	if o.MaxVirtualHeight <= 0 {
		o.MaxVirtualHeight = def.MaxVirtualHeight
	}
	if o.LineHeight <= 0 {
		o.LineHeight = def.LineHeight
	}
	return o
}

// Option configures an Engine.
type Option func(*Engine)

// WithOptions replaces the tuning knobs.
func WithOptions(opts Options) Option {
	return func(e *Engine) {
		e.opts = opts
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithMeasurer sets the line height measurer used by the reconciler.
func WithMeasurer(m Measurer) Option {
	return func(e *Engine) {
		if m != nil {
			e.measurer = m
		}
	}
}

// WithCompletionBuffer sets the capacity of the completion channel.
func WithCompletionBuffer(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.completionBuffer = n
		}
	}
}
