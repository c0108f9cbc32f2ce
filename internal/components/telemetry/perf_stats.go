package telemetry

import (
	"context"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"go.opentelemetry.io/otel"
)

var meter = otel.Meter("go.perf_stats")
var cpuGauge, _ = meter.Float64Gauge("cpu_usage")
var memoryGauge, _ = meter.Int64Gauge("allocated_mb")
var liveObjectsGauge, _ = meter.Int64Gauge("live_objects")
var goroutineGauge, _ = meter.Int64Gauge("goroutine_count")

// InstrumentPerfStats samples process stats every 30 seconds until ctx is done.
// The cpu sample blocks for the whole window so it runs on its own goroutine.
func InstrumentPerfStats(ctx context.Context, tel API) {
	go func() {
		ticker := time.NewTicker(time.Second * 30)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				cpuUsage, err := cpu.PercentWithContext(ctx, 10*time.Second, false)
				if err != nil {
					if ctx.Err() == nil {
						tel.ReportWarning("perf_stats.cpu", err)
					}
					continue
				}
				if len(cpuUsage) > 0 {
					cpuGauge.Record(ctx, cpuUsage[0])
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		var memStats runtime.MemStats
		ticker := time.NewTicker(time.Second * 30)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				runtime.ReadMemStats(&memStats)
				memoryGauge.Record(ctx, int64(memStats.Alloc/1_000_000))
				liveObjectsGauge.Record(ctx, int64(memStats.Mallocs)-int64(memStats.Frees))
				goroutineGauge.Record(ctx, int64(runtime.NumGoroutine()))
				tel.ReportCount("perf_stats.goroutines", int64(runtime.NumGoroutine()))
			case <-ctx.Done():
				return
			}
		}
	}()
}
