package minlsh

import (
	"log/slog"

	"github.com/hupe1980/minlsh/kvstore"
)

type bandParams struct {
	bands int
	rows  int
}

type options struct {
	threshold float64
	numPerm   int
	fpWeight  float64
	fnWeight  float64
	params    *bandParams
	storage   kvstore.Config
	logger    *Logger
	metrics   MetricsCollector

	// Store namespace names, set when reconstructing from a snapshot.
	keyTableName   string
	hashtableNames []string
}

// Option configures MinHashLSH construction.
type Option func(*options)

// WithThreshold sets the Jaccard similarity threshold in [0.0, 1.0] the
// band parameters are optimized for. Default 0.9.
func WithThreshold(threshold float64) Option {
	return func(o *options) {
		o.threshold = threshold
	}
}

// WithNumPerm sets the number of permutation functions used by the signatures
// to be indexed. Default 128.
func WithNumPerm(numPerm int) Option {
	return func(o *options) {
		o.numPerm = numPerm
	}
}

// WithWeights adjusts the relative importance of minimizing false positives
// versus false negatives during parameter optimization. The weights must
// each be in [0.0, 1.0] and sum to 1.0. Default (0.5, 0.5).
//
// If maintaining high recall matters more, shift weight toward the false
// negative side, e.g. WithWeights(0.4, 0.6).
func WithWeights(falsePositive, falseNegative float64) Option {
	return func(o *options) {
		o.fpWeight = falsePositive
		o.fnWeight = falseNegative
	}
}

// WithParams sets explicit band parameters (number of bands and rows per
// band), bypassing the optimization step. Threshold and weights are ignored
// when this is given. bands*rows must not exceed the permutation count.
func WithParams(bands, rows int) Option {
	return func(o *options) {
		o.params = &bandParams{bands: bands, rows: rows}
	}
}

// WithStorage selects the storage backend for the key table and the band
// hashtables. Default is the in-process memory backend.
func WithStorage(cfg kvstore.Config) Option {
	return func(o *options) {
		o.storage = cfg
	}
}

// WithLogger configures structured logging for operations.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector configures a metrics collector for monitoring
// operations.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metrics = mc
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		threshold: 0.9,
		numPerm:   128,
		fpWeight:  0.5,
		fnWeight:  0.5,
		storage:   kvstore.Config{Backend: kvstore.BackendMemory},
		logger:    NoopLogger(),
		metrics:   NoopMetricsCollector{},
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
