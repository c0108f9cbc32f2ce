package main

import (
	"context"

	"pastquestions-backend/cmd/pastq-cli/commands"
	"pastquestions-backend/internal/components/telemetry"
	"pastquestions-backend/pkg/serviceutil"
)

func main() {
	ctx := serviceutil.SignalContext()

	otel, _ := telemetry.SetupFromEnv(ctx, "pastq-cli")
	defer otel.Shutdown(context.Background())

	commands.ExecuteContext(ctx)
}
