package main

import (
	"groupfeed-backend/cmd/scraper-cli/commands"
	"groupfeed-backend/lib/osutil"
	"groupfeed-backend/lib/telemetry"
)

func main() {
	ctx := osutil.SignalContext()
	telemetry.InitSlog(false)
	tel, err := telemetry.SetupFromEnv(ctx, "scraper-cli")
	if err != nil {
		osutil.Fatal("failed to setup telemetry", err)
	}
	defer tel.Shutdown(ctx)
	telemetry.InstrumentPerfStats(ctx)

	commands.ExecuteContext(ctx)
}
