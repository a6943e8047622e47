package repo

import "time"

// Option configures a store.
type Option func(*options)

type options struct {
	now      func() time.Time
	skipSeed bool
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithClock replaces the wall clock used for stamped timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithoutSeed leaves a new memory store empty until Seed is called.
func WithoutSeed() Option {
	return func(o *options) {
		o.skipSeed = true
	}
}

func (o options) clock() time.Time {
	return normalizeTime(o.now())
}
