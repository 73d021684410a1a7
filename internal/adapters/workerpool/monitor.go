package workerpool

import (
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
)

// fallbackUsage is reported when the host cannot be sampled. It sits between
// the scale-down and scale-up thresholds, so the pool holds its size.
const fallbackUsage = 0.5

// LoadMonitor tracks system resource usage.
type LoadMonitor struct {
	cpuThreshold float64
	memThreshold float64
	logger       zerolog.Logger

	cpuUsage func() (float64, error)
	memUsage func() (float64, error)
}

// NewLoadMonitor creates a LoadMonitor backed by gopsutil.
func NewLoadMonitor(cpuThreshold, memThreshold float64, logger zerolog.Logger) *LoadMonitor {
	return &LoadMonitor{
		cpuThreshold: cpuThreshold,
		memThreshold: memThreshold,
		logger:       logger,
		cpuUsage:     hostCPUUsage,
		memUsage:     hostMemUsage,
	}
}

// GetCPUUsage returns the current CPU usage fraction (0.0 to 1.0).
func (lm *LoadMonitor) GetCPUUsage() float64 {
	v, err := lm.cpuUsage()
	if err != nil {
		lm.logger.Debug().Err(err).Msg("cpu usage unavailable")
		return fallbackUsage
	}
	return v
}

// GetMemUsage returns the current memory usage fraction (0.0 to 1.0).
func (lm *LoadMonitor) GetMemUsage() float64 {
	v, err := lm.memUsage()
	if err != nil {
		lm.logger.Debug().Err(err).Msg("memory usage unavailable")
		return fallbackUsage
	}
	return v
}

// GetCPUThreshold returns the configured CPU threshold.
func (lm *LoadMonitor) GetCPUThreshold() float64 {
	return lm.cpuThreshold
}

// GetMemThreshold returns the configured Memory threshold.
func (lm *LoadMonitor) GetMemThreshold() float64 {
	return lm.memThreshold
}

func hostCPUUsage() (float64, error) {
	// A zero interval compares against the previous call instead of sleeping.
	percent, err := cpu.Percent(0, false)
	if err != nil {
		return 0, err
	}
	if len(percent) == 0 {
		return fallbackUsage, nil
	}
	return percent[0] / 100.0, nil
}

func hostMemUsage() (float64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	return vm.UsedPercent / 100.0, nil
}
