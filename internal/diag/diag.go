// Package diag periodically samples host CPU utilization via gopsutil
// and logs it — purely diagnostic, same as the coordinator's startup
// topology log: it never gates correctness.
package diag

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"

	"jungfraurx/internal/flog"
)

// pollInterval matches the cadence of the reference client's own health
// poller.
const pollInterval = 30 * time.Second

// Run samples per-core CPU utilization every pollInterval until ctx is
// canceled, logging a warning (never fatal) if the sample fails.
func Run(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sample()
		}
	}
}

func sample() {
	percents, err := cpu.Percent(0, true)
	if err != nil {
		flog.Warnf("diag: gopsutil cpu.Percent: %v", err)
		return
	}
	var sum float64
	for _, p := range percents {
		sum += p
	}
	if len(percents) > 0 {
		flog.Debugf("diag: avg CPU utilization %.1f%% across %d cores", sum/float64(len(percents)), len(percents))
	}
}
