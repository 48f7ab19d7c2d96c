package license

import (
	"context"
	"log/slog"
)

// logAction logs a license action with the standard component attributes.
func (m *Manager) logAction(ctx context.Context, level slog.Level, action, result string, attrs ...slog.Attr) {
	allAttrs := []slog.Attr{
		slog.String("action", action),
	}
	allAttrs = append(allAttrs, attrs...)

	m.logger.LogAttrs(ctx, level, result, allAttrs...)
}

func (m *Manager) logDebug(ctx context.Context, action, result string, attrs ...slog.Attr) {
	m.logAction(ctx, slog.LevelDebug, action, result, attrs...)
}

func (m *Manager) logInfo(ctx context.Context, action, result string, attrs ...slog.Attr) {
	m.logAction(ctx, slog.LevelInfo, action, result, attrs...)
}

func (m *Manager) logWarn(ctx context.Context, action, result string, attrs ...slog.Attr) {
	m.logAction(ctx, slog.LevelWarn, action, result, attrs...)
}

func (m *Manager) logError(ctx context.Context, action, result string, attrs ...slog.Attr) {
	m.logAction(ctx, slog.LevelError, action, result, attrs...)
}

// maskLicenseKey renders a key safe for logs and display.
func maskLicenseKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "****" + key[len(key)-4:]
}
