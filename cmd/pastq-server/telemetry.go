package main

import (
	"context"
	"log/slog"

	"pastquestions-backend/internal/components/telemetry"
	"pastquestions-backend/pkg/serviceutil"
)

// InitTelemetry sets up logging and otel, the returned API logs reports and
// exports counts.
func InitTelemetry(ctx context.Context, verbose bool) telemetry.API {
	telemetry.InitSlog(verbose)

	if verbose {
		slog.DebugContext(ctx, "verbose logging enabled")
	}

	otel, err := telemetry.SetupFromEnv(ctx, "pastq-server")
	if err != nil {
		serviceutil.Fatal("setup telemetry", err)
	}
	go func() {
		<-ctx.Done()
		otel.Shutdown(context.Background())
	}()

	tel := telemetry.NewOtelAPI("pastq-server")
	telemetry.InstrumentPerfStats(ctx, tel)
	return tel
}
