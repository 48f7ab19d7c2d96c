package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/render"

	apiErrors "slidecli/internal/errors"
	"slidecli/internal/infrastructure"
	"slidecli/internal/license"
)

// EntitlementChecker is the slice of the license manager the gate needs.
type EntitlementChecker interface {
	CheckFeatureAccess(feature string) (license.Decision, error)
}

// FeatureGate denies requests to routes whose mapped feature the current
// access level lacks. Routes without a mapping pass through: the gate only
// guards what it is told about.
type FeatureGate struct {
	checker  EntitlementChecker
	logger   *slog.Logger
	features map[string]string // path prefix -> feature id
}

// NewFeatureGate creates a gate from a path-prefix to feature mapping.
func NewFeatureGate(checker EntitlementChecker, features map[string]string, logger *slog.Logger) *FeatureGate {
	return &FeatureGate{
		checker:  checker,
		logger:   logger.With(slog.String("component", "feature_gate")),
		features: features,
	}
}

// Handler returns the middleware handler.
func (g *FeatureGate) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		feature := g.featureFor(r.URL.Path)
		if feature == "" {
			next.ServeHTTP(w, r)
			return
		}

		decision, err := g.checker.CheckFeatureAccess(feature)
		if err != nil {
			// Fail closed: an engine that cannot answer denies.
			g.logger.WarnContext(r.Context(), "entitlement check failed",
				slog.String("feature", feature),
				slog.String("error", err.Error()),
			)
			render.Render(w, r, apiErrors.New(http.StatusServiceUnavailable, "NOT_INITIALIZED", "License engine is still starting up"))
			return
		}

		if !decision.Allowed {
			g.logger.InfoContext(r.Context(), "feature denied",
				slog.String("feature", feature),
				slog.String("level", decision.Level.String()),
				slog.String("required", decision.Required.String()),
			)
			render.Render(w, r, apiErrors.NewFeatureLockedProblem(
				feature,
				decision.Required.String(),
				infrastructure.TraceIDFromContext(r.Context()),
			))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (g *FeatureGate) featureFor(path string) string {
	for prefix, feature := range g.features {
		if strings.HasPrefix(path, prefix) {
			return feature
		}
	}
	return ""
}
