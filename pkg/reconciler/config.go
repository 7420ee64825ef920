package reconciler

import "time"

// Config controls the reconciliation sweep cadence and grace policy.
// Populated from environment variables via the config package.
type Config struct {
	// Interval between sweeps.
	Interval time.Duration `env:"RECONCILER_INTERVAL" envDefault:"1h"`

	// InitialDelay before the first sweep after process start, so a crash
	// loop cannot hammer the store.
	InitialDelay time.Duration `env:"RECONCILER_INITIAL_DELAY" envDefault:"15s"`

	// GracePeriod added to a lapsed paid period when initializing a grace
	// window. Set at most once per lapse, never extended.
	GracePeriod time.Duration `env:"RECONCILER_GRACE_PERIOD" envDefault:"72h"`
}

// DefaultConfig returns the production defaults: hourly sweeps, a short
// startup delay, and a three-day grace window.
func DefaultConfig() Config {
	return Config{
		Interval:     time.Hour,
		InitialDelay: 15 * time.Second,
		GracePeriod:  72 * time.Hour,
	}
}
