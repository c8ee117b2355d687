// Package profile measures wall time and process memory around benchmark steps.
package profile

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

// Measure runs fn and returns its wall time in milliseconds along with fn's error.
func Measure(fn func() error) (float64, error) {
	start := time.Now()
	err := fn()
	return Milliseconds(time.Since(start)), err
}

// Milliseconds converts d to fractional milliseconds.
func Milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// MemorySampler reports resident memory in MB (2^20 bytes).
type MemorySampler interface {
	MemoryMB(ctx context.Context) (float64, error)
}

// Sampler reads the resident set size of one process.
type Sampler struct {
	proc *process.Process
}

// NewSampler returns a sampler for the current process.
func NewSampler() (*Sampler, error) {
	return NewSamplerForPID(int32(os.Getpid()))
}

// NewSamplerForPID returns a sampler for pid.
func NewSamplerForPID(pid int32) (*Sampler, error) {
	p, err := process.NewProcess(pid)
	if err != nil {
		return nil, fmt.Errorf("open process %d: %w", pid, err)
	}
	return &Sampler{proc: p}, nil
}

// MemoryMB returns the process RSS divided by 2^20.
func (s *Sampler) MemoryMB(ctx context.Context) (float64, error) {
	info, err := s.proc.MemoryInfoWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("read memory info: %w", err)
	}
	return float64(info.RSS) / float64(1<<20), nil
}
