package respond

import (
	"context"
	"errors"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
)

// StatsProvider samples host load.
type StatsProvider interface {
	CPUPercent(ctx context.Context) (float64, error)
}

// CPUStats samples aggregate CPU utilisation with gopsutil.
type CPUStats struct {
	// Interval is the sampling window. Zero compares against the previous call.
	Interval time.Duration
}

// NewCPUStats samples over a one second window.
func NewCPUStats() *CPUStats {
	return &CPUStats{Interval: time.Second}
}

// CPUPercent returns overall utilisation in [0, 100].
func (s *CPUStats) CPUPercent(ctx context.Context) (float64, error) {
	pcts, err := cpu.PercentWithContext(ctx, s.Interval, false)
	if err != nil {
		return 0, err
	}
	if len(pcts) == 0 {
		return 0, errors.New("no cpu samples")
	}
	return pcts[0], nil
}

// StatsFunc adapts a function to StatsProvider.
type StatsFunc func(ctx context.Context) (float64, error)

// CPUPercent calls f.
func (f StatsFunc) CPUPercent(ctx context.Context) (float64, error) {
	return f(ctx)
}
