package ply

import "log/slog"

type options struct {
	format Format
	cache  *PlanCache
	logger *slog.Logger
}

// Option configures NewStream and Write
type Option func(*options)

func defaultOptions() options {
	return options{
		format: FormatASCII,
		cache:  DefaultPlanCache,
		logger: slog.New(slog.DiscardHandler),
	}
}

// WithFormat selects the output encoding. The default is ASCII.
func WithFormat(f Format) Option {
	return func(o *options) {
		o.format = f
	}
}

// WithPlanCache makes the stream look plans up in c instead of
// DefaultPlanCache. Passing nil keeps the default.
func WithPlanCache(c *PlanCache) Option {
	return func(o *options) {
		if c != nil {
			o.cache = c
		}
	}
}

// WithLogger sets the logger used for plan compilation and stream progress
// messages. Passing nil keeps logging disabled.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
