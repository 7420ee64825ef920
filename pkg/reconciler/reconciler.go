package reconciler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/workforcekit/entitlement/pkg/entitlement"
)

// Service periodically advances persisted billing status as trial, payment,
// and grace deadlines pass, so tenants with no recent traffic still show
// correct status in listings and downstream jobs such as invoicing.
//
// The live request path never depends on the sweep: verdicts are recomputed
// per request, so a lagging job only means stale reporting, never wrong
// access decisions. Every per-record write is a conditional compare-and-set,
// which makes running sweeps from multiple replicas safe.
type Service struct {
	store  entitlement.RecordStore
	cfg    Config
	clock  func() time.Time
	logger *slog.Logger

	stopOnce sync.Once
	stop     chan struct{}
}

// Option configures optional Service settings.
type Option func(*Service)

// WithClock overrides the time source. Intended for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a reconciliation Service.
// Panics if store is nil to fail fast during initialization.
func New(store entitlement.RecordStore, cfg Config, opts ...Option) *Service {
	if store == nil {
		panic("reconciler: RecordStore is required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = DefaultConfig().GracePeriod
	}

	s := &Service{
		store:  store,
		cfg:    cfg,
		clock:  func() time.Time { return time.Now().UTC() },
		logger: slog.Default(),
		stop:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start runs the sweep loop until the context is cancelled or Stop is
// called: one sweep after the initial delay, then one per interval.
func (s *Service) Start(ctx context.Context) error {
	s.logger.InfoContext(ctx, "reconciler starting",
		slog.Duration("interval", s.cfg.Interval),
		slog.Duration("initial_delay", s.cfg.InitialDelay))

	if s.cfg.InitialDelay > 0 {
		delay := time.NewTimer(s.cfg.InitialDelay)
		select {
		case <-ctx.Done():
			delay.Stop()
			return ctx.Err()
		case <-s.stop:
			delay.Stop()
			return nil
		case <-delay.C:
		}
	}

	s.runSweep(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "reconciler shutting down")
			return ctx.Err()
		case <-s.stop:
			s.logger.InfoContext(ctx, "reconciler stopped")
			return nil
		case <-ticker.C:
			s.runSweep(ctx)
		}
	}
}

// Stop terminates a running Start loop. Safe to call more than once.
func (s *Service) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// SweepStats summarizes one reconciliation pass.
type SweepStats struct {
	Processed int // records examined
	Advanced  int // records whose status moved forward
	Skipped   int // records already correct, or advanced by another replica
	Failed    int // records whose update errored
}

func (s *Service) runSweep(ctx context.Context) {
	stats, err := s.Sweep(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "reconciliation sweep failed",
			slog.String("error", err.Error()))
		return
	}
	s.logger.InfoContext(ctx, "reconciliation sweep complete",
		slog.Int("processed", stats.Processed),
		slog.Int("advanced", stats.Advanced),
		slog.Int("skipped", stats.Skipped),
		slog.Int("failed", stats.Failed))
}

// Sweep advances every installed record whose deadlines have passed.
// Re-running on already-correct records is a no-op. A single record's
// failure is counted and skipped, never aborting the pass.
func (s *Service) Sweep(ctx context.Context) (SweepStats, error) {
	records, err := s.store.ListInstalled(ctx)
	if err != nil {
		return SweepStats{}, err
	}

	now := s.clock()
	stats := SweepStats{Processed: len(records)}
	for _, record := range records {
		advanced, err := s.advance(ctx, record, now)
		if err != nil {
			stats.Failed++
			s.logger.ErrorContext(ctx, "failed to advance record",
				slog.String("tenant_id", record.TenantID.String()),
				slog.String("addon", record.Addon.String()),
				slog.String("billing_status", string(record.BillingStatus)),
				slog.String("error", err.Error()))
			continue
		}
		if advanced {
			stats.Advanced++
		} else {
			stats.Skipped++
		}
	}
	return stats, nil
}

// advance moves one record forward across whichever lifecycle boundary the
// current time has crossed. Status only ever moves toward expiry here; only
// an external payment write moves it back.
func (s *Service) advance(ctx context.Context, record *entitlement.Record, now time.Time) (bool, error) {
	switch record.BillingStatus {
	case entitlement.BillingTrialing:
		if record.TrialEndsAt != nil && now.After(*record.TrialEndsAt) {
			return s.store.AdvanceBillingStatus(ctx, record.TenantID, record.Addon,
				entitlement.BillingTrialing, entitlement.BillingExpired, nil, now)
		}

	case entitlement.BillingActive:
		if record.PaidUntil == nil || !now.After(*record.PaidUntil) {
			return false, nil
		}
		if record.GraceUntil != nil {
			if now.After(*record.GraceUntil) {
				return s.store.AdvanceBillingStatus(ctx, record.TenantID, record.Addon,
					entitlement.BillingActive, entitlement.BillingExpired, nil, now)
			}
			return s.store.AdvanceBillingStatus(ctx, record.TenantID, record.Addon,
				entitlement.BillingActive, entitlement.BillingGracePeriod, nil, now)
		}
		// Initialize the grace window exactly once per lapse, anchored to
		// the paid-period end rather than sweep time so a late sweep never
		// stretches the window.
		graceUntil := record.PaidUntil.Add(s.cfg.GracePeriod)
		return s.store.AdvanceBillingStatus(ctx, record.TenantID, record.Addon,
			entitlement.BillingActive, entitlement.BillingGracePeriod, &graceUntil, now)

	case entitlement.BillingGracePeriod:
		if record.GraceUntil == nil {
			// Inconsistent record, most likely a hand-edited row. The
			// deadline is unknowable, so expire rather than grant
			// indefinite grace.
			s.logger.WarnContext(ctx, "grace_period record without grace deadline, expiring",
				slog.String("tenant_id", record.TenantID.String()),
				slog.String("addon", record.Addon.String()))
			return s.store.AdvanceBillingStatus(ctx, record.TenantID, record.Addon,
				entitlement.BillingGracePeriod, entitlement.BillingExpired, nil, now)
		}
		if now.After(*record.GraceUntil) {
			return s.store.AdvanceBillingStatus(ctx, record.TenantID, record.Addon,
				entitlement.BillingGracePeriod, entitlement.BillingExpired, nil, now)
		}
	}

	return false, nil
}
