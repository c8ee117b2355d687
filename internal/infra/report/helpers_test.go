package report

import (
	"time"

	"github.com/whhaicheng/PenguinBM/internal/domain/execution"
)

// testRun builds a completed sweep with two temporal ranges.
func testRun() *execution.Run {
	run := execution.NewRun(execution.KindSweep, "sqlite:///tmp/penguin.db", "CH37H", "LOCMAP_S")
	_ = run.SetState(execution.StateLoading)
	run.LoadMs = 42.125
	run.LoadMemoryMB = 64
	_ = run.SetState(execution.StateRunning)
	now := time.Now()
	for _, trg := range []int{1, 2} {
		run.AddTrial(execution.Trial{
			Query: "Query1", TemporalRange: trg, Iteration: 1,
			ElapsedMs: 10 * float64(trg), MemoryMB: 100, Rows: 365 * trg,
			SQL: "SELECT * FROM CH37H t1 WHERE t1.DATE BETWEEN '1990-01-01' AND '1990-12-31'", CreatedAt: now,
		})
		run.AddTrial(execution.Trial{
			Query: "Query2", TemporalRange: trg, SpatialRange: execution.Fraction(0.5), Iteration: 1,
			ElapsedMs: 15 * float64(trg), MemoryMB: 110, Rows: 90 * trg, CreatedAt: now,
		})
	}
	_ = run.SetState(execution.StateCompleted)
	return run
}
