package hashlist

import "log/slog"

type config struct {
	logger              *slog.Logger
	duplicates          DuplicatePolicy
	aliases             bool
	maxDecompressedSize uint64
	maxDecoderMemory    uint64
}

func newConfig(opts []Option) *config {
	cfg := &config{
		logger:     slog.New(slog.DiscardHandler),
		duplicates: RejectDuplicates,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Option configures Load and NewStore.
type Option func(*config)

// WithLogger sets the logger for load and reload events.
// A nil logger disables logging.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger == nil {
			logger = slog.New(slog.DiscardHandler)
		}
		c.logger = logger
	}
}

// WithDuplicatePolicy controls how an archive listing the same identifier
// twice is handled. The default, RejectDuplicates, fails the load.
func WithDuplicatePolicy(p DuplicatePolicy) Option {
	return func(c *config) {
		c.duplicates = p
	}
}

// WithAliasResolution lets ReverseLookup fall back to matching stored paths
// when the computed identifier is not in the list. The path index is built
// on first use.
func WithAliasResolution(enabled bool) Option {
	return func(c *config) {
		c.aliases = enabled
	}
}

// WithMaxDecompressedSize limits the decompressed size of an archive.
// Zero keeps the default of 512 MiB.
func WithMaxDecompressedSize(limit uint64) Option {
	return func(c *config) {
		c.maxDecompressedSize = limit
	}
}

// WithMaxDecoderMemory limits the memory used by the zstd decoder.
// Set limit to 0 to use the decoder's default.
func WithMaxDecoderMemory(limit uint64) Option {
	return func(c *config) {
		c.maxDecoderMemory = limit
	}
}
