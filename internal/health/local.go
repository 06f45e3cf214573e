package health

import (
	"context"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/load"
	"github.com/shirou/gopsutil/mem"
)

// LocalSample describes the machine driving the benchmark, so client-side
// saturation can be told apart from server load.
type LocalSample struct {
	CPUPercent    float64   `json:"cpu_percent" yaml:"cpu_percent"`
	MemoryPercent float64   `json:"memory_percent" yaml:"memory_percent"`
	Load1         float64   `json:"load1" yaml:"load1"`
	NumCPU        int       `json:"num_cpu" yaml:"num_cpu"`
	Goroutines    int       `json:"goroutines" yaml:"goroutines"`
	SampledAt     time.Time `json:"sampled_at" yaml:"sampled_at"`
}

// LocalSampler reads host metrics through gopsutil.
type LocalSampler struct {
	cpuWindow time.Duration
}

func NewLocalSampler(cpuWindow time.Duration) *LocalSampler {
	return &LocalSampler{cpuWindow: cpuWindow}
}

// Sample collects one reading. Metrics the platform cannot report are left
// at zero; only a cancelled context is an error.
func (s *LocalSampler) Sample(ctx context.Context) (LocalSample, error) {
	out := LocalSample{
		NumCPU:     runtime.NumCPU(),
		Goroutines: runtime.NumGoroutine(),
		SampledAt:  time.Now(),
	}
	if pct, err := cpu.PercentWithContext(ctx, s.cpuWindow, false); err == nil && len(pct) > 0 {
		out.CPUPercent = pct[0]
	}
	if err := ctx.Err(); err != nil {
		return out, err
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		out.MemoryPercent = vm.UsedPercent
	}
	if avg, err := load.AvgWithContext(ctx); err == nil {
		out.Load1 = avg.Load1
	}
	return out, nil
}

// Fetch adapts the sampler to the Fetcher interface so a Poller can drive it.
func (s *LocalSampler) Fetch(ctx context.Context) (Snapshot, error) {
	sample, err := s.Sample(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		Status:      "local",
		Service:     "benchboard",
		CPULoad:     sample.CPUPercent,
		MemoryUsage: sample.MemoryPercent,
		FetchedAt:   sample.SampledAt,
	}, nil
}
