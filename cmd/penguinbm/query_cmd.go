package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/whhaicheng/PenguinBM/internal/app/usecase"
	"github.com/whhaicheng/PenguinBM/internal/domain/execution"
	"github.com/whhaicheng/PenguinBM/internal/domain/query"
	"github.com/whhaicheng/PenguinBM/internal/domain/report"
	"github.com/whhaicheng/PenguinBM/internal/infra/sink"
	"github.com/whhaicheng/PenguinBM/internal/transport/prompt"
)

func newSQLCmd(a *app) *cobra.Command {
	var (
		flags   specFlags
		dialect string
	)

	cmd := &cobra.Command{
		Use:   "sql",
		Short: "Print the statement for a query without running it",
		Example: `  penguinbm sql --mode temporal --start 1990-01-01 --end 1990-12-31 --values 150,250
  penguinbm sql --mode combo --continuity dis --years "2002 2003" --rows 0,10 --cols 0,10 --values 150,250 --dialect postgres`,
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := flags.spec()
			if err != nil {
				return err
			}

			if dialect == "" {
				stmt, err := query.BuildStatement(spec, a.tables())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), stmt.SQL)
				return nil
			}

			stmt, err := query.Parameterize(spec, a.tables(), dialect)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), stmt.SQL)
			for i, arg := range stmt.Args {
				fmt.Fprintf(cmd.OutOrStdout(), "  $%d = %v\n", i+1, arg)
			}
			return nil
		},
	}

	flags.bind(cmd.Flags())
	cmd.Flags().StringVar(&dialect, "dialect", "", "render placeholders for a dialect: sqlite3, mysql, postgres, sqlserver")
	return cmd
}

// benchFlags are shared by run and sweep.
type benchFlags struct {
	iterations int
	output     string
	noOutput   bool
	report     string
}

func (f *benchFlags) bind(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&f.iterations, "iterations", "n", 0, "repetitions per query (default from config)")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "benchmark output file (default from config)")
	cmd.Flags().BoolVar(&f.noOutput, "no-output", false, "do not write the benchmark output file")
	cmd.Flags().StringVar(&f.report, "report", "", "write a report after the run: markdown or json")
}

func newRunCmd(a *app) *cobra.Command {
	var (
		flags       specFlags
		bench       benchFlags
		interactive bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Benchmark one query: timed table load, then the timed query",
		Example: `  penguinbm run --interactive
  penguinbm run --mode combo --start 1990-01-01 --end 1990-12-31 --rows 0,100 --cols 0,100 --values 150,250 -n 3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			tables := a.tables()

			var spec query.Spec
			if interactive {
				rl, err := prompt.NewReadline(a.promptHistoryFile())
				if err != nil {
					return err
				}
				defer rl.Close()

				answers, err := prompt.New(rl, cmd.ErrOrStderr()).Ask(ctx, prompt.Defaults{
					Database: a.cfg.DataSource.Database,
					Tables:   tables,
				})
				if err != nil {
					return err
				}
				spec, tables = answers.Spec, answers.Tables
				a.log.Info("interactive query", slog.String("database", answers.Database), slog.Any("tables", tables.Names()))
			} else {
				var err error
				if spec, err = flags.spec(); err != nil {
					return err
				}
			}

			return a.bench(cmd, tables, bench, func(uc *usecase.BenchmarkUseCase, opts usecase.RunOptions) (*execution.Run, error) {
				return uc.RunQuery(ctx, spec, opts)
			})
		},
	}

	flags.bind(cmd.Flags())
	bench.bind(cmd)
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "ask for the query field by field")
	return cmd
}

func newSweepCmd(a *app) *cobra.Command {
	var (
		bench     benchFlags
		startYear int
		ranges    []int
		fractions []float64
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run Query1 (temporal) and Query2 (combo) over every temporal and spatial range",
		RunE: func(cmd *cobra.Command, args []string) error {
			sweep := usecase.SweepOptionsFromConfig(a.cfg.Benchmark)
			if cmd.Flags().Changed("start-year") {
				sweep.StartYear = startYear
			}
			if cmd.Flags().Changed("ranges") {
				sweep.Ranges = ranges
			}
			if cmd.Flags().Changed("fractions") {
				sweep.Fractions = fractions
			}

			return a.bench(cmd, a.tables(), bench, func(uc *usecase.BenchmarkUseCase, opts usecase.RunOptions) (*execution.Run, error) {
				return uc.RunSweep(cmd.Context(), sweep, opts)
			})
		},
	}

	bench.bind(cmd)
	cmd.Flags().IntVar(&startYear, "start-year", 0, "first year of every temporal range")
	cmd.Flags().IntSliceVar(&ranges, "ranges", nil, "temporal ranges in years, e.g. 1,2,4")
	cmd.Flags().Float64SliceVar(&fractions, "fractions", nil, "spatial fractions of the grid, e.g. 1,0.5,0.25")
	return cmd
}

// bench wires a benchmark use case, runs start and prints the summary.
func (a *app) bench(
	cmd *cobra.Command,
	tables query.Tables,
	flags benchFlags,
	start func(uc *usecase.BenchmarkUseCase, opts usecase.RunOptions) (*execution.Run, error),
) error {
	ctx := cmd.Context()

	opener, conn, err := a.opener(ctx)
	if err != nil {
		return err
	}
	repo, err := a.runRepository(ctx)
	if err != nil {
		return err
	}

	opts := usecase.RunOptions{
		Iterations: a.cfg.Benchmark.Iterations,
		OnTrial: func(t execution.Trial) {
			fmt.Fprint(cmd.OutOrStdout(), sink.FormatLine(t))
		},
	}
	if flags.iterations > 0 {
		opts.Iterations = flags.iterations
	}
	if !flags.noOutput {
		path := a.cfg.Benchmark.OutputFile
		if flags.output != "" {
			path = flags.output
		}
		w, err := sink.Create(path)
		if err != nil {
			return err
		}
		defer w.Close()
		opts.Sink = w
	}

	uc := usecase.NewBenchmarkUseCase(opener, repo, a.memory(), tables, conn.Redact(), a.log)
	run, runErr := start(uc, opts)
	if run == nil {
		return runErr
	}

	printRun(cmd.OutOrStdout(), run, execution.Summarize(run.Trials))

	if flags.report != "" && len(run.Trials) > 0 {
		rc := a.reportConfig(report.ReportFormat(flags.report))
		ruc := usecase.NewReportUseCase(repo, a.cfg.Reports.OutputDir)
		rpt, err := ruc.GenerateReportFromRun(run, rc, nil)
		if err != nil {
			return errors.Join(runErr, err)
		}
		path, err := ruc.Save(rpt, "")
		if err != nil {
			return errors.Join(runErr, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", path)
	}
	return runErr
}
