package core

type options struct {
	compactThreshold int64
	noLock           bool
}

type Option func(*options)

// WithCompactThreshold makes the store compact its log once the bytes held
// by overwritten and removed records reach n. Values below
// MinimumCompactThreshold are raised to it; n <= 0 disables compaction,
// which is the default.
func WithCompactThreshold(n int64) Option {
	return func(o *options) {
		switch {
		case n <= 0:
			o.compactThreshold = 0
		case n < MinimumCompactThreshold:
			o.compactThreshold = MinimumCompactThreshold
		default:
			o.compactThreshold = n
		}
	}
}

// WithoutLock skips the advisory directory lock. The caller then has to
// guarantee on its own that no other Store uses the directory.
func WithoutLock() Option {
	return func(o *options) {
		o.noLock = true
	}
}
