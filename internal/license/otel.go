package license

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

const (
	TracerName = "license-manager"
	MeterName  = "license-manager"
)

// Metrics holds the license engine's OpenTelemetry instruments.
type Metrics struct {
	ValidationAttempts metric.Int64Counter
	ValidationSuccess  metric.Int64Counter
	ValidationFailures metric.Int64Counter
	ValidationDuration metric.Float64Histogram

	GraceFallbacks  metric.Int64Counter
	GraceExpiries   metric.Int64Counter
	FeatureChecks   metric.Int64Counter
	FeatureDenials  metric.Int64Counter
	SchedulerTicks  metric.Int64Counter
	UpdateDownloads metric.Int64Counter
}

// InitializeMetrics creates the license engine instruments on the given meter.
func InitializeMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.ValidationAttempts, err = meter.Int64Counter(
		"license_validation_attempts_total",
		metric.WithDescription("Total number of license validation attempts"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create validation attempts counter: %w", err)
	}

	m.ValidationSuccess, err = meter.Int64Counter(
		"license_validation_success_total",
		metric.WithDescription("Total number of successful online validations"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create validation success counter: %w", err)
	}

	m.ValidationFailures, err = meter.Int64Counter(
		"license_validation_failures_total",
		metric.WithDescription("Total number of failed license validations"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create validation failures counter: %w", err)
	}

	m.ValidationDuration, err = meter.Float64Histogram(
		"license_validation_duration_seconds",
		metric.WithDescription("License validation duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create validation duration histogram: %w", err)
	}

	m.GraceFallbacks, err = meter.Int64Counter(
		"license_grace_fallbacks_total",
		metric.WithDescription("Total number of falls back to the offline grace period"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create grace fallbacks counter: %w", err)
	}

	m.GraceExpiries, err = meter.Int64Counter(
		"license_grace_expiries_total",
		metric.WithDescription("Total number of exhausted offline grace periods"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create grace expiries counter: %w", err)
	}

	m.FeatureChecks, err = meter.Int64Counter(
		"license_feature_checks_total",
		metric.WithDescription("Total number of feature entitlement checks"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create feature checks counter: %w", err)
	}

	m.FeatureDenials, err = meter.Int64Counter(
		"license_feature_denials_total",
		metric.WithDescription("Total number of denied feature entitlement checks"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create feature denials counter: %w", err)
	}

	m.SchedulerTicks, err = meter.Int64Counter(
		"license_revalidation_ticks_total",
		metric.WithDescription("Total number of background revalidation runs"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler ticks counter: %w", err)
	}

	m.UpdateDownloads, err = meter.Int64Counter(
		"license_update_downloads_total",
		metric.WithDescription("Total number of update downloads triggered by revalidation"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create update downloads counter: %w", err)
	}

	return m, nil
}
