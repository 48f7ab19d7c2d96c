package license

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"slidecli/internal/updater"
)

// Config carries the engine's tunables, read once at construction.
type Config struct {
	// DevelopmentMode permanently grants every entitlement and disables all
	// I/O on the validation paths. Selected at process start, never changes.
	DevelopmentMode bool

	// Grace windows, in days since the last successful online validation.
	FullGraceDays    int
	LimitedGraceDays int

	// RevalidateInterval is the background revalidation period.
	RevalidateInterval time.Duration

	// FreeObjectCeiling caps objects per document below the Pro tier.
	FreeObjectCeiling int
}

// Decision is the result of one entitlement query. Returning it explicitly,
// instead of swallowing internal errors behind a bool, forces callers to pick
// their own fail-open or fail-closed policy.
type Decision struct {
	Feature  string      `json:"feature"`
	Allowed  bool        `json:"allowed"`
	Level    AccessLevel `json:"access_level"`
	Required AccessLevel `json:"required_level"`
	Reason   string      `json:"reason,omitempty"`
}

// Manager owns the current entitlement status and drives all validation:
// startup initialization, manual key entry, and the periodic background
// revalidation. Feature checks are synchronous reads of the last published
// status snapshot and never perform I/O.
//
// The Manager is constructed explicitly and injected by the composition
// root; there is no package-level instance.
type Manager struct {
	cfg      Config
	store    Store
	client   Client
	updates  UpdateService
	registry FeatureRegistry
	clock    Clock
	logger   *slog.Logger
	metrics  *Metrics

	status    atomic.Pointer[Status]
	scheduler *Scheduler
}

// Option customizes a Manager.
type Option func(*Manager)

// WithClock overrides the wall clock. Tests use this to pin grace boundaries.
func WithClock(c Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// WithMetrics attaches OpenTelemetry instruments.
func WithMetrics(metrics *Metrics) Option {
	return func(m *Manager) { m.metrics = metrics }
}

// NewManager constructs the orchestrator. A nil store, client, or registry is
// a construction-time failure: without them no safe entitlement decision can
// be made, so the error is fatal rather than degraded.
func NewManager(cfg Config, store Store, client Client, updates UpdateService, registry FeatureRegistry, logger *slog.Logger, opts ...Option) (*Manager, error) {
	if store == nil {
		return nil, &InitError{Stage: "store", Err: errors.New("nil license store")}
	}
	if client == nil {
		return nil, &InitError{Stage: "transport", Err: errors.New("nil validation client")}
	}
	if registry == nil {
		return nil, &InitError{Stage: "registry", Err: errors.New("nil feature registry")}
	}
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.FullGraceDays <= 0 {
		cfg.FullGraceDays = DefaultFullGraceDays
	}
	if cfg.LimitedGraceDays <= 0 {
		cfg.LimitedGraceDays = DefaultLimitedGraceDays
	}
	if cfg.LimitedGraceDays < cfg.FullGraceDays {
		return nil, &InitError{Stage: "config", Err: fmt.Errorf("limited grace (%dd) shorter than full grace (%dd)", cfg.LimitedGraceDays, cfg.FullGraceDays)}
	}
	if cfg.RevalidateInterval <= 0 {
		cfg.RevalidateInterval = 24 * time.Hour
	}
	if cfg.FreeObjectCeiling <= 0 {
		cfg.FreeObjectCeiling = 10
	}

	m := &Manager{
		cfg:      cfg,
		store:    store,
		client:   client,
		updates:  updates,
		registry: registry,
		clock:    SystemClock(),
		logger:   logger.With(slog.String("component", "license_manager")),
	}

	for _, opt := range opts {
		opt(m)
	}

	m.scheduler = NewScheduler(cfg.RevalidateInterval, m.revalidate)

	return m, nil
}

// Initialize performs the startup validation pass and publishes the first
// real status. In development mode it returns a permanent grant without any
// I/O. Recoverable failures (no cached key, unreachable backend, exhausted
// grace) come back as degraded outcomes, never as errors.
func (m *Manager) Initialize(ctx context.Context) Outcome {
	tracer := otel.Tracer(TracerName)
	ctx, span := tracer.Start(ctx, "license_manager.initialize")
	defer span.End()

	if m.cfg.DevelopmentMode {
		outcome := DevelopmentOverride()
		m.publish(outcome, nil)
		m.logInfo(ctx, "initialize", "Development mode active; entitlement checks disabled")
		return outcome
	}

	record, err := m.store.Load()
	if err != nil {
		if errors.Is(err, ErrNoLicense) {
			outcome := NoLicense()
			m.publish(outcome, nil)
			m.logInfo(ctx, "initialize", "No cached license found")
			return outcome
		}
		// A cached record we cannot read degrades; it must never panic the host.
		outcome := InternalError(err)
		m.publish(outcome, nil)
		m.logError(ctx, "initialize", "Failed to load cached license", slog.String("error", err.Error()))
		return outcome
	}

	outcome := m.validateOnline(ctx, record)
	m.publish(outcome, record)

	span.SetAttributes(
		attribute.String("license.outcome", string(outcome.Tag)),
		attribute.String("license.level", outcome.Level.String()),
	)
	m.logInfo(ctx, "initialize", "Startup validation complete",
		slog.String("outcome", string(outcome.Tag)),
		slog.String("level", outcome.Level.String()),
	)

	return outcome
}

// SetLicenseKey validates a freshly entered key online and, on success,
// persists a brand-new record and arms the revalidation scheduler. A fresh
// key gets no offline-grace fallback: with no prior validation history a
// network failure is reported as exactly that, never silently downgraded.
func (m *Manager) SetLicenseKey(ctx context.Context, key string) Outcome {
	tracer := otel.Tracer(TracerName)
	ctx, span := tracer.Start(ctx, "license_manager.set_license_key")
	defer span.End()

	if m.cfg.DevelopmentMode {
		return DevelopmentOverride()
	}

	key = strings.TrimSpace(key)
	if key == "" {
		// Rejected before any validation happens; the live status is untouched.
		return InvalidLicense("License key must not be blank")
	}

	start := m.clock.Now()
	m.recordAttempt(ctx, "activation")

	outcome, manifest, err := m.client.ValidateLicenseWithUpdate(ctx, key)
	m.recordDuration(ctx, start)

	if err != nil {
		outcome = m.classifyFailure(ctx, err)
		m.publish(outcome, nil)
		span.SetStatus(codes.Error, outcome.Message)
		m.logWarn(ctx, "activation", "License activation failed",
			slog.String("license_key_masked", maskLicenseKey(key)),
			slog.String("outcome", string(outcome.Tag)),
		)
		return outcome
	}

	if !outcome.IsSuccess() {
		m.recordFailure(ctx, outcome.Tag)
		m.publish(outcome, nil)
		m.logWarn(ctx, "activation", "License key rejected by backend",
			slog.String("license_key_masked", maskLicenseKey(key)),
			slog.String("outcome", string(outcome.Tag)),
		)
		return outcome
	}

	now := m.clock.Now()
	record := Record{
		LicenseKey:     key,
		UserID:         outcome.UserID,
		PlanType:       outcome.Plan.String(),
		ExpiryDate:     outcome.Expiry,
		StartDate:      now,
		LastValidation: &now,
	}

	if err := m.store.Save(record); err != nil {
		// The key is good even if we could not cache it; grant access now and
		// let the next validation retry the write.
		m.logError(ctx, "activation", "Failed to persist license record", slog.String("error", err.Error()))
	}

	m.recordSuccess(ctx)
	m.scheduler.Arm()
	m.handleUpdateManifest(ctx, manifest)
	m.publish(outcome, &record)

	m.logInfo(ctx, "activation", "License activated",
		slog.String("license_key_masked", maskLicenseKey(key)),
		slog.String("plan", outcome.Plan.String()),
	)

	return outcome
}

// validateOnline runs one online validation attempt for a cached record,
// falling back to the offline grace evaluator when the backend is
// unreachable. On success it refreshes the persisted timestamp and arms the
// scheduler; on failure the timestamp is left untouched so grace erosion
// stays monotonic.
func (m *Manager) validateOnline(ctx context.Context, record *Record) Outcome {
	start := m.clock.Now()
	m.recordAttempt(ctx, "validation")

	outcome, err := m.client.ValidateLicense(ctx, record.LicenseKey)
	m.recordDuration(ctx, start)

	if err != nil {
		return m.fallbackToGrace(ctx, record, err)
	}

	if outcome.IsSuccess() {
		now := m.clock.Now()
		if err := m.store.UpdateLastValidation(now); err != nil {
			m.logWarn(ctx, "validation", "Failed to persist validation timestamp", slog.String("error", err.Error()))
		}
		record.LastValidation = &now
		m.recordSuccess(ctx)
		m.scheduler.Arm()
		return outcome
	}

	m.recordFailure(ctx, outcome.Tag)
	return outcome
}

// fallbackToGrace converts a validation-path error into a degraded outcome.
// Transport errors consult the grace evaluator; anything else maps to the
// uncategorized Error tag.
func (m *Manager) fallbackToGrace(ctx context.Context, record *Record, err error) Outcome {
	var te *TransportError
	if !errors.As(err, &te) {
		m.recordFailure(ctx, TagError)
		m.logError(ctx, "validation", "Unexpected validation failure", slog.String("error", err.Error()))
		return InternalError(err)
	}

	outcome := EvaluateGrace(m.clock.Now(), record.LastValidation, m.cfg.FullGraceDays, m.cfg.LimitedGraceDays)

	if m.metrics != nil {
		m.metrics.GraceFallbacks.Add(ctx, 1, metric.WithAttributes(
			attribute.String("grace_outcome", string(outcome.Tag)),
		))
		if outcome.Tag == TagExpired {
			m.metrics.GraceExpiries.Add(ctx, 1)
		}
	}

	m.logWarn(ctx, "validation", "Backend unreachable; applied offline grace",
		slog.String("error", te.Error()),
		slog.String("grace_outcome", string(outcome.Tag)),
		slog.String("grace_level", outcome.Level.String()),
	)

	return outcome
}

// classifyFailure maps a client error from a fresh-key activation. No grace
// is available here, so transport errors stay network errors.
func (m *Manager) classifyFailure(ctx context.Context, err error) Outcome {
	var te *TransportError
	if errors.As(err, &te) {
		m.recordFailure(ctx, TagNetworkError)
		return NetworkFailure(te.Err)
	}
	m.recordFailure(ctx, TagError)
	return InternalError(err)
}

// revalidate is the scheduler tick body: the same combined validate and
// update-check path used by SetLicenseKey, driven from the cached record.
func (m *Manager) revalidate(ctx context.Context) {
	tracer := otel.Tracer(TracerName)
	ctx, span := tracer.Start(ctx, "license_manager.revalidate", trace.WithAttributes(
		attribute.String("trigger", "scheduler"),
	))
	defer span.End()

	if m.metrics != nil {
		m.metrics.SchedulerTicks.Add(ctx, 1)
	}

	record, err := m.store.Load()
	if err != nil {
		// Nothing cached: nothing to refresh.
		m.logDebug(ctx, "revalidation", "No cached license; skipping tick")
		return
	}

	start := m.clock.Now()
	m.recordAttempt(ctx, "revalidation")

	outcome, manifest, clientErr := m.client.ValidateLicenseWithUpdate(ctx, record.LicenseKey)
	m.recordDuration(ctx, start)

	if clientErr != nil {
		outcome = m.fallbackToGrace(ctx, record, clientErr)
		m.publish(outcome, record)
		return
	}

	if outcome.IsSuccess() {
		now := m.clock.Now()
		if err := m.store.UpdateLastValidation(now); err != nil {
			m.logWarn(ctx, "revalidation", "Failed to persist validation timestamp", slog.String("error", err.Error()))
		}
		record.LastValidation = &now
		m.recordSuccess(ctx)
		m.handleUpdateManifest(ctx, manifest)
	} else {
		m.recordFailure(ctx, outcome.Tag)
	}

	m.publish(outcome, record)

	m.logInfo(ctx, "revalidation", "Background revalidation complete",
		slog.String("outcome", string(outcome.Tag)),
		slog.String("level", outcome.Level.String()),
	)
}

// handleUpdateManifest kicks off a supervised, fire-and-forget download for a
// critical update bundled with a validation response. Failures are logged
// and never reach the entitlement path.
func (m *Manager) handleUpdateManifest(ctx context.Context, manifest *updater.Manifest) {
	if manifest == nil || m.updates == nil {
		return
	}
	if !m.updates.CheckForUpdate(manifest) || !manifest.Critical {
		return
	}

	if m.metrics != nil {
		m.metrics.UpdateDownloads.Add(ctx, 1)
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				m.logger.Error("update download panicked", slog.Any("panic", r))
			}
		}()

		dlCtx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		if err := m.updates.DownloadUpdate(dlCtx, manifest); err != nil {
			m.logger.Warn("critical update download failed",
				slog.String("version", manifest.Version),
				slog.String("error", err.Error()),
			)
		}
	}()
}

// CheckFeatureAccess answers one entitlement query against the last published
// status. It returns ErrNotInitialized until the first validation event has
// published a status, leaving the fail-open/fail-closed choice to the caller.
func (m *Manager) CheckFeatureAccess(feature string) (Decision, error) {
	if m.metrics != nil {
		m.metrics.FeatureChecks.Add(context.Background(), 1)
	}

	if m.cfg.DevelopmentMode {
		return Decision{Feature: feature, Allowed: true, Level: LevelDevelopment, Required: m.registry.RequiredLevel(feature)}, nil
	}

	status := m.status.Load()
	if status == nil {
		return Decision{Feature: feature, Reason: "license manager not initialized"}, ErrNotInitialized
	}

	required := m.registry.RequiredLevel(feature)
	d := Decision{Feature: feature, Level: status.Level, Required: required}

	if !status.IsValid {
		d.Reason = status.Message
		m.recordDenial(feature)
		return d, nil
	}

	d.Allowed = m.registry.IsFeatureAvailable(feature, status.Level)
	if !d.Allowed {
		d.Reason = fmt.Sprintf("%s plan required", required)
		m.recordDenial(feature)
	}

	return d, nil
}

// IsFeatureAllowed is the convenience form of CheckFeatureAccess. It fails
// closed: an uninitialized manager denies.
func (m *Manager) IsFeatureAllowed(feature string) bool {
	d, err := m.CheckFeatureAccess(feature)
	if err != nil {
		return false
	}
	return d.Allowed
}

// IsWithinObjectLimit reports whether a document with the given object count
// is allowed at the current tier. Pro and development builds are unlimited;
// every other tier is held to the free-tier ceiling.
func (m *Manager) IsWithinObjectLimit(count int) bool {
	if m.cfg.DevelopmentMode {
		return true
	}

	status := m.status.Load()
	if status != nil && status.IsValid && status.Level.IsAtLeast(LevelPro) {
		return true
	}

	return count <= m.cfg.FreeObjectCeiling
}

// CurrentStatus returns the last published snapshot. Before the first
// validation event it reports an uninitialized, invalid status.
func (m *Manager) CurrentStatus() Status {
	if s := m.status.Load(); s != nil {
		return *s
	}
	return Status{
		Level:    LevelBlocked,
		PlanType: PlanUnknown.String(),
		Message:  "License manager not initialized",
	}
}

// SchedulerArmed reports whether the background revalidation timer is
// running. It is armed only after the first successful online validation.
func (m *Manager) SchedulerArmed() bool {
	return m.scheduler.Armed()
}

// MaskedKey exposes the cached key in display-safe form.
func (m *Manager) MaskedKey() (string, error) {
	return m.store.MaskedKey()
}

// PendingUpdate returns the staged update manifest, if any.
func (m *Manager) PendingUpdate() *updater.Manifest {
	if m.updates == nil {
		return nil
	}
	return m.updates.PendingUpdate()
}

// ApplyPendingUpdate applies a staged update through the update collaborator.
func (m *Manager) ApplyPendingUpdate() error {
	if m.updates == nil {
		return errors.New("no update collaborator configured")
	}
	return m.updates.ApplyPendingUpdate()
}

// Close stops the revalidation scheduler and releases the transport handle.
// The Manager must not be used after Close.
func (m *Manager) Close() error {
	m.scheduler.Stop()

	if closer, ok := m.client.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// publish swaps in a freshly built status snapshot. The swap is a single
// atomic pointer replacement: concurrent validation attempts may race, and
// last write wins without ever exposing a torn snapshot.
func (m *Manager) publish(outcome Outcome, record *Record) {
	status := BuildStatus(outcome, record)
	m.status.Store(&status)
}

func (m *Manager) recordAttempt(ctx context.Context, kind string) {
	if m.metrics != nil {
		m.metrics.ValidationAttempts.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
	}
}

func (m *Manager) recordSuccess(ctx context.Context) {
	if m.metrics != nil {
		m.metrics.ValidationSuccess.Add(ctx, 1)
	}
}

func (m *Manager) recordFailure(ctx context.Context, tag OutcomeTag) {
	if m.metrics != nil {
		m.metrics.ValidationFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", string(tag))))
	}
}

func (m *Manager) recordDuration(ctx context.Context, start time.Time) {
	if m.metrics != nil {
		m.metrics.ValidationDuration.Record(ctx, m.clock.Now().Sub(start).Seconds())
	}
}

func (m *Manager) recordDenial(feature string) {
	if m.metrics != nil {
		m.metrics.FeatureDenials.Add(context.Background(), 1, metric.WithAttributes(attribute.String("feature", feature)))
	}
}
