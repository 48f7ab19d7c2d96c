package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	apiErrors "slidecli/internal/errors"
	"slidecli/internal/infrastructure"
	"slidecli/internal/license"
	"slidecli/internal/services"
)

var validate = validator.New()

// LicenseHandler handles license-related HTTP requests.
type LicenseHandler struct {
	service services.LicenseService
	logger  *slog.Logger
}

// NewLicenseHandler creates a new license handler.
func NewLicenseHandler(service services.LicenseService, logger *slog.Logger) *LicenseHandler {
	return &LicenseHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "license")),
	}
}

// ActivationRequest is the POST /activate payload.
type ActivationRequest struct {
	LicenseKey string `json:"license_key" validate:"required,min=8,max=64"`
}

// Bind implements the render.Binder interface.
func (a *ActivationRequest) Bind(r *http.Request) error {
	return validate.Struct(a)
}

// ObjectLimitRequest is the POST /object-limit payload.
type ObjectLimitRequest struct {
	Count int `json:"count" validate:"min=0"`
}

// Bind implements the render.Binder interface.
func (o *ObjectLimitRequest) Bind(r *http.Request) error {
	return validate.Struct(o)
}

// Routes returns the chi router for license endpoints. Middleware passed in
// applies to the activation endpoint only, so callers can rate limit it
// without throttling status polls.
func (h *LicenseHandler) Routes(activateMiddleware ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/status", h.GetStatus)
	r.With(activateMiddleware...).Post("/activate", h.Activate)
	r.Get("/features", h.Features)
	r.Get("/features/{feature}", h.CheckFeature)
	r.Post("/object-limit", h.CheckObjectLimit)
	r.Get("/update/pending", h.PendingUpdate)
	r.Post("/update/apply", h.ApplyUpdate)

	return r
}

// GetStatus handles GET /api/license/status.
func (h *LicenseHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := infrastructure.EnsureTraceID(r.Context())
	tracer := otel.Tracer("license-handler")

	ctx, span := tracer.Start(ctx, "license_handler.get_status")
	defer span.End()

	resp, err := h.service.GetStatus(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		render.Render(w, r, apiErrors.ErrInternal)
		return
	}

	span.SetAttributes(attribute.String("license.status", resp.LicenseStatus))
	render.JSON(w, r, resp)
}

// Activate handles POST /api/license/activate.
func (h *LicenseHandler) Activate(w http.ResponseWriter, r *http.Request) {
	ctx := infrastructure.EnsureTraceID(r.Context())
	tracer := otel.Tracer("license-handler")

	ctx, span := tracer.Start(ctx, "license_handler.activate")
	defer span.End()

	var req ActivationRequest
	if err := render.Bind(r, &req); err != nil {
		h.logger.WarnContext(ctx, "activation request rejected",
			slog.String("error", err.Error()),
		)
		render.Render(w, r, apiErrors.ErrInvalidLicenseKey)
		return
	}

	resp, err := h.service.Activate(ctx, req.LicenseKey)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		render.Render(w, r, apiErrors.ErrInternal)
		return
	}

	span.SetAttributes(
		attribute.Bool("license.activated", resp.Success),
		attribute.String("license.outcome", resp.Outcome),
	)

	if !resp.Success {
		render.Status(r, activationStatusCode(resp.Outcome))
	}
	render.JSON(w, r, resp)
}

// Features handles GET /api/license/features.
func (h *LicenseHandler) Features(w http.ResponseWriter, r *http.Request) {
	ctx := infrastructure.EnsureTraceID(r.Context())

	resp, err := h.service.Features(ctx)
	if err != nil {
		render.Render(w, r, apiErrors.ErrInternal)
		return
	}

	render.JSON(w, r, resp)
}

// CheckFeature handles GET /api/license/features/{feature}.
func (h *LicenseHandler) CheckFeature(w http.ResponseWriter, r *http.Request) {
	ctx := infrastructure.EnsureTraceID(r.Context())
	feature := chi.URLParam(r, "feature")

	decision, err := h.service.CheckFeature(ctx, feature)
	if err != nil {
		if errors.Is(err, license.ErrNotInitialized) {
			render.Render(w, r, apiErrors.New(http.StatusServiceUnavailable, "NOT_INITIALIZED", "License engine is still starting up"))
			return
		}
		render.Render(w, r, apiErrors.ErrInternal)
		return
	}

	if !decision.Allowed {
		render.Render(w, r, apiErrors.NewFeatureLockedProblem(
			feature,
			decision.Required.String(),
			infrastructure.TraceIDFromContext(ctx),
		))
		return
	}

	render.JSON(w, r, decision)
}

// CheckObjectLimit handles POST /api/license/object-limit.
func (h *LicenseHandler) CheckObjectLimit(w http.ResponseWriter, r *http.Request) {
	ctx := infrastructure.EnsureTraceID(r.Context())

	var req ObjectLimitRequest
	if err := render.Bind(r, &req); err != nil {
		render.Render(w, r, apiErrors.ErrInvalidRequest)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"count":   req.Count,
		"allowed": h.service.CheckObjectLimit(ctx, req.Count),
	})
}

// PendingUpdate handles GET /api/license/update/pending.
func (h *LicenseHandler) PendingUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := infrastructure.EnsureTraceID(r.Context())

	manifest := h.service.PendingUpdate(ctx)
	if manifest == nil {
		render.JSON(w, r, map[string]interface{}{"pending": false})
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"pending":  true,
		"manifest": manifest,
	})
}

// ApplyUpdate handles POST /api/license/update/apply.
func (h *LicenseHandler) ApplyUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := infrastructure.EnsureTraceID(r.Context())

	if err := h.service.ApplyPendingUpdate(ctx); err != nil {
		h.logger.WarnContext(ctx, "update apply failed", slog.String("error", err.Error()))
		render.Render(w, r, apiErrors.NewWithDetails(http.StatusConflict, "UPDATE_APPLY_FAILED", "Could not apply the pending update", err.Error()))
		return
	}

	render.JSON(w, r, map[string]interface{}{"applied": true})
}

// activationStatusCode maps a failed activation outcome to an HTTP status.
func activationStatusCode(outcome string) int {
	switch license.OutcomeTag(outcome) {
	case license.TagInvalid:
		return http.StatusBadRequest
	case license.TagExpired:
		return http.StatusForbidden
	case license.TagNetworkError:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
