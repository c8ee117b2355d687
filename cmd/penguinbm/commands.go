package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/whhaicheng/PenguinBM/internal/app/usecase"
	"github.com/whhaicheng/PenguinBM/internal/domain/execution"
	"github.com/whhaicheng/PenguinBM/internal/domain/query"
	"github.com/whhaicheng/PenguinBM/internal/domain/report"
	"github.com/whhaicheng/PenguinBM/internal/infra/dataset"
	"github.com/whhaicheng/PenguinBM/internal/infra/engine"
	"github.com/whhaicheng/PenguinBM/internal/transport/prompt"
	"github.com/whhaicheng/PenguinBM/internal/transport/web"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the interactive query demo",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			opener, _, err := a.opener(ctx)
			if err != nil {
				return err
			}

			cfg := a.cfg.Server
			if addr != "" {
				cfg.Address = addr
			}
			queries := usecase.NewQueryUseCase(opener, a.memory(), a.tables(), a.log)
			return web.NewServer(cfg, queries, a.log).Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

func newSeedCmd(a *app) *cobra.Command {
	var opts dataset.Options

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create and fill synthetic observation and location-map tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			conn, err := a.connection(ctx)
			if err != nil {
				return err
			}
			eng, err := engine.Open(ctx, conn, a.engineOptions(), a.log)
			if err != nil {
				return err
			}
			defer eng.Close()

			opts.Tables = a.tables()
			stats, err := dataset.Seed(ctx, eng.DB(), eng.Dialect(), opts, a.log)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %s: %d locations, %d observations in %s\n",
				strings.Join(opts.Tables.Names(), ", "), stats.Locations, stats.Observations, stats.Elapsed.Round(time.Millisecond))
			return nil
		},
	}

	d := dataset.DefaultOptions(query.Tables{})
	cmd.Flags().IntVar(&opts.Rows, "rows", d.Rows, "grid rows")
	cmd.Flags().IntVar(&opts.Cols, "cols", d.Cols, "grid columns")
	cmd.Flags().IntVar(&opts.StartYear, "start-year", d.StartYear, "first year")
	cmd.Flags().IntVar(&opts.Years, "years", d.Years, "number of years")
	cmd.Flags().IntVar(&opts.DayStep, "day-step", d.DayStep, "sample every n-th day")
	cmd.Flags().IntVar(&opts.MinBT, "min-bt", d.MinBT, "lowest brightness temperature")
	cmd.Flags().IntVar(&opts.MaxBT, "max-bt", d.MaxBT, "highest brightness temperature")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", d.Seed, "random seed")
	cmd.Flags().BoolVar(&opts.Replace, "replace", false, "drop existing tables first")
	return cmd
}

func newHistoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List, show and delete stored runs",
	}

	history := func(cmd *cobra.Command) (*usecase.HistoryUseCase, error) {
		repo, err := a.runRepository(cmd.Context())
		if err != nil {
			return nil, err
		}
		return usecase.NewHistoryUseCase(repo, a.log), nil
	}

	var (
		opts  usecase.FindOptions
		kind  string
		state string
		asc   bool
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			uc, err := history(cmd)
			if err != nil {
				return err
			}
			opts.Kind = execution.Kind(kind)
			if state != "" {
				s := execution.RunState(state)
				if !s.IsValid() {
					return fmt.Errorf("unknown state %q", state)
				}
				opts.StateFilter = &s
			}
			if asc {
				opts.SortOrder = "ASC"
			}
			runs, err := uc.List(cmd.Context(), opts)
			if err != nil {
				return err
			}
			printRuns(cmd.OutOrStdout(), runs)
			return nil
		},
	}
	list.Flags().IntVar(&opts.Limit, "limit", 20, "maximum runs to list")
	list.Flags().IntVar(&opts.Offset, "offset", 0, "runs to skip")
	list.Flags().StringVar(&kind, "kind", "", "only runs of this kind: manual, sweep or import")
	list.Flags().StringVar(&state, "state", "", "only runs in this state")
	list.Flags().BoolVar(&asc, "asc", false, "oldest first")

	var asJSON bool
	show := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show a run with its per-query summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uc, err := history(cmd)
			if err != nil {
				return err
			}
			run, summaries, err := uc.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					Run       *execution.Run      `json:"run"`
					Summaries []execution.Summary `json:"summaries"`
				}{run, summaries})
			}
			printRun(cmd.OutOrStdout(), run, summaries)
			return nil
		},
	}
	show.Flags().BoolVar(&asJSON, "json", false, "print JSON")

	del := &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete a run and its trials",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uc, err := history(cmd)
			if err != nil {
				return err
			}
			if err := uc.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, show, del)
	return cmd
}

func newReportCmd(a *app) *cobra.Command {
	var (
		format    string
		output    string
		title     string
		withSQL   bool
		noCharts  bool
		histogram bool
	)

	cmd := &cobra.Command{
		Use:   "report <run-id>",
		Short: "Render a stored run as markdown or JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			repo, err := a.runRepository(ctx)
			if err != nil {
				return err
			}

			if format == "" {
				format = a.cfg.Reports.DefaultFormat
			}
			rc := a.reportConfig(report.ReportFormat(format))
			rc.IncludeSQL = withSQL
			rc.Title = title
			if noCharts {
				rc.IncludeCharts = false
			}

			run, err := repo.FindByID(ctx, args[0])
			if err != nil {
				return err
			}

			var values []float64
			if histogram {
				if values, err = a.replayLast(cmd, run); err != nil {
					return err
				}
			}

			uc := usecase.NewReportUseCase(repo, a.cfg.Reports.OutputDir)
			rpt, err := uc.GenerateReportFromRun(run, rc, values)
			if err != nil {
				return err
			}
			path, err := uc.Save(rpt, output)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "markdown or json (default from config)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "report file (default: timestamped file in the report directory)")
	cmd.Flags().StringVar(&title, "title", "", "report title")
	cmd.Flags().BoolVar(&withSQL, "sql", false, "include each statement")
	cmd.Flags().BoolVar(&noCharts, "no-charts", false, "omit charts")
	cmd.Flags().BoolVar(&histogram, "histogram", false, "rerun the last statement of the run and chart its BT values")
	return cmd
}

// replayLast reruns the most recent trial statement of run.
func (a *app) replayLast(cmd *cobra.Command, run *execution.Run) ([]float64, error) {
	var stmt string
	for i := len(run.Trials) - 1; i >= 0 && stmt == ""; i-- {
		stmt = run.Trials[i].SQL
	}
	if stmt == "" {
		return nil, fmt.Errorf("run %s has no recorded statement to replay", run.ID)
	}

	tables := query.Tables{Observation: run.Observation, LocationMap: run.LocationMap}
	if tables.Validate() != nil {
		tables = a.tables()
	}

	opener, _, err := a.opener(cmd.Context())
	if err != nil {
		return nil, err
	}
	res, err := usecase.NewQueryUseCase(opener, nil, tables, a.log).Replay(cmd.Context(), stmt)
	if err != nil {
		return nil, err
	}
	return res.Values, nil
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <benchmark-output-file>",
		Short: "Store an existing benchmark output file as a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := a.runRepository(cmd.Context())
			if err != nil {
				return err
			}
			res, err := usecase.NewImportUseCase(repo, a.log).ImportFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if res.Skipped > 0 {
				a.log.Warn("skipped lines", slog.Int("count", res.Skipped))
			}
			printRun(cmd.OutOrStdout(), res.Run, execution.Summarize(res.Run.Trials))
			return nil
		},
	}
}

func newConnCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "conn",
		Short: "Check the data source and manage its stored password",
	}

	test := &cobra.Command{
		Use:   "test",
		Short: "Connect to the data source and report its version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := a.connection(cmd.Context())
			if err != nil {
				return err
			}
			res, err := conn.Test(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Data source: %s\n", conn.Redact())
			if !res.Success {
				return fmt.Errorf("connection failed: %s", res.Error)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "OK in %d ms, version %s\n", res.LatencyMs, res.DatabaseVersion)
			return nil
		},
	}

	var fromStdin bool
	setPassword := &cobra.Command{
		Use:   "set-password [key]",
		Short: "Store the data source password in the encrypted keyring",
		Long: `Store a password under key (default: data_source.password_key). Set
PENGUIN_KEYRING_PASSPHRASE to use a passphrase other than the built-in one.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := a.cfg.DataSource.PasswordKey
			if len(args) == 1 {
				key = args[0]
			}
			if key == "" {
				return fmt.Errorf("no key given and data_source.password_key is not set")
			}

			var password string
			if fromStdin {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read password: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			} else {
				rl, err := prompt.NewReadline("")
				if err != nil {
					return err
				}
				pw, err := rl.ReadPassword("Password: ")
				rl.Close()
				if err != nil {
					return fmt.Errorf("read password: %w", err)
				}
				password = string(pw)
			}
			if password == "" {
				return fmt.Errorf("empty password")
			}

			store, err := a.keyring()
			if err != nil {
				return err
			}
			if err := store.Set(cmd.Context(), key, password); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Password stored under %q\n", key)
			return nil
		},
	}
	setPassword.Flags().BoolVar(&fromStdin, "stdin", false, "read the password from standard input")

	cmd.AddCommand(test, setPassword)
	return cmd
}
