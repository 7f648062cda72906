package ridx

// Options configures an index handle.
type Options struct {
	logger Logger
}

func defaultOptions() Options {
	return Options{
		logger: DiscardLogger{},
	}
}

// Option configures index options using the functional options pattern.
type Option func(*Options)

// WithLogger routes the index's diagnostics to l. The default logger
// discards everything.
//
//goland:noinspection GoUnusedExportedFunction
func WithLogger(l Logger) Option {
	return func(opts *Options) {
		opts.logger = l
	}
}
