package main

import (
	"log/slog"
	"os"

	"slidecli/internal/app"
)

// version is overridden at build time via -ldflags.
var version = "dev"

func main() {
	app.Version = version

	application, err := app.NewApplication()
	if err != nil {
		slog.Error("Failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("Application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
