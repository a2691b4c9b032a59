package commands

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/satishbabariya/go-dao/dao"
	"github.com/satishbabariya/go-dao/internal/debug"
	"github.com/satishbabariya/go-dao/internal/ui"
	"github.com/satishbabariya/go-dao/query"
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Benchmark cached queries across goroutines",
	Long: `Run the same note query from many goroutines.

Each goroutine obtains its own instance of one built query and reuses it for
every iteration. With --compare the run is repeated rebuilding the query on
every iteration, which prepares a fresh statement each time.`,
	Args: cobra.NoArgs,
	RunE: runBench,
}

var (
	benchGoroutines int
	benchIterations int
	benchSeed       int
	benchLimit      int
	benchCompare    bool
	benchMarkdown   bool
)

func init() {
	benchCmd.Flags().IntVarP(&benchGoroutines, "goroutines", "g", 0, "concurrent goroutines (default from config)")
	benchCmd.Flags().IntVarP(&benchIterations, "iterations", "n", 0, "queries per goroutine (default from config)")
	benchCmd.Flags().IntVar(&benchSeed, "seed", 500, "notes to insert when the table is empty")
	benchCmd.Flags().IntVar(&benchLimit, "limit", 10, "rows fetched per query")
	benchCmd.Flags().BoolVar(&benchCompare, "compare", false, "also run with a query rebuilt on every iteration")
	benchCmd.Flags().BoolVar(&benchMarkdown, "markdown", false, "print the report as markdown")

	rootCmd.AddCommand(benchCmd)
}

// benchResult is one measured run.
type benchResult struct {
	Mode     string
	Queries  int
	Elapsed  time.Duration
	DBTime   time.Duration
	Stats    *query.Stats
	Failures int64
}

func (r benchResult) perSecond() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Queries) / r.Elapsed.Seconds()
}

// benchWork runs iterations queries on the calling goroutine.
type benchWork func(ctx context.Context, iterations int) error

func runBench(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	goroutines := cfg.Goroutines
	if benchGoroutines > 0 {
		goroutines = benchGoroutines
	}
	iterations := cfg.Iterations
	if benchIterations > 0 {
		iterations = benchIterations
	}

	ui.PrintHeader("daocore", "Query cache benchmark")

	db, err := openDatabase(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	var dbTime atomic.Int64
	var failures atomic.Int64
	db.Use(dao.TimingMiddleware(func(_ string, d time.Duration) {
		dbTime.Add(int64(d))
	}))
	db.Use(dao.ErrorMiddleware(func(q string, err error) {
		failures.Add(1)
		debug.Warn("query failed", "query", q, "error", err)
	}))

	notes, err := newNoteDao(db)
	if err != nil {
		return err
	}

	steps := 2
	if benchCompare {
		steps = 3
	}

	ui.PrintStep(1, steps, "Preparing notes table")
	if err := notes.CreateTable(ctx, true); err != nil {
		return err
	}
	rows, err := seedNotes(ctx, notes, benchSeed)
	if err != nil {
		return err
	}
	ui.PrintInfo("%d notes in %s", rows, db.Dialect().Provider)

	builder := func() *query.Builder[Note] {
		return query.NewBuilder(notes).
			Where(query.Like(NoteText, "%")).
			OrderDesc(NoteDate).
			Limit(benchLimit)
	}
	cached, err := builder().Build()
	if err != nil {
		return err
	}

	measure := func(mode string, work benchWork) (benchResult, error) {
		dbTime.Store(0)
		failures.Store(0)
		elapsed, err := runWorkers(ctx, mode, goroutines, iterations, work)
		return benchResult{
			Mode:     mode,
			Queries:  goroutines * iterations,
			Elapsed:  elapsed,
			DBTime:   time.Duration(dbTime.Load()),
			Failures: failures.Load(),
		}, err
	}

	ui.PrintStep(2, steps, fmt.Sprintf("Cached: %d goroutines x %d queries", goroutines, iterations))
	result, err := measure("cached", func(ctx context.Context, iterations int) error {
		mine, err := cached.ForCurrentGoroutine()
		if err != nil {
			return err
		}
		for i := 0; i < iterations; i++ {
			if mine, err = mine.ForCurrentGoroutine(); err != nil {
				return err
			}
			if err := mine.SetParameter(0, noteWords[i%len(noteWords)]+"%"); err != nil {
				return err
			}
			if _, err := mine.List(ctx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	stats := cached.Stats()
	result.Stats = &stats
	results := []benchResult{result}

	if benchCompare {
		ui.PrintStep(3, steps, fmt.Sprintf("Rebuilt: %d goroutines x %d queries", goroutines, iterations))
		result, err := measure("rebuilt", func(ctx context.Context, iterations int) error {
			for i := 0; i < iterations; i++ {
				q, err := builder().Build()
				if err != nil {
					return err
				}
				if err := q.SetParameter(0, noteWords[i%len(noteWords)]+"%"); err != nil {
					return err
				}
				if _, err := q.List(ctx); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		results = append(results, result)
	}

	if benchMarkdown {
		return ui.PrintMarkdown(benchMarkdownReport(results))
	}
	ui.PrintSection("Results")
	if err := ui.PrintTable(benchHeaders, benchRows(results)); err != nil {
		return err
	}
	ui.PrintSuccess("Benchmark finished")
	return nil
}

// runWorkers starts one goroutine per worker and waits for all of them.
func runWorkers(ctx context.Context, mode string, goroutines, iterations int, work benchWork) (time.Duration, error) {
	bar, err := ui.PrintProgressBar(mode, goroutines)
	if err != nil {
		return 0, err
	}
	var barMu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	start := time.Now()
	for w := 0; w < goroutines; w++ {
		g.Go(func() error {
			err := work(ctx, iterations)
			barMu.Lock()
			bar.Increment()
			barMu.Unlock()
			return err
		})
	}
	err = g.Wait()
	elapsed := time.Since(start)
	_, _ = bar.Stop()
	return elapsed, err
}

var benchHeaders = []string{"Mode", "Queries", "Elapsed", "Queries/s", "DB time", "Created", "Reused", "Fast path", "Hit rate", "Failures"}

func benchRows(results []benchResult) [][]string {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		created, reused, fast, hit := "-", "-", "-", "-"
		if s := r.Stats; s != nil {
			created = fmt.Sprint(s.Created)
			reused = fmt.Sprint(s.Reused)
			fast = fmt.Sprint(s.FastPath)
			hit = fmt.Sprintf("%.1f%%", s.HitRate*100)
		}
		rows = append(rows, []string{
			r.Mode,
			fmt.Sprint(r.Queries),
			r.Elapsed.Round(time.Millisecond).String(),
			fmt.Sprintf("%.0f", r.perSecond()),
			r.DBTime.Round(time.Millisecond).String(),
			created,
			reused,
			fast,
			hit,
			fmt.Sprint(r.Failures),
		})
	}
	return rows
}

func benchMarkdownReport(results []benchResult) string {
	var sb strings.Builder
	sb.WriteString("# Benchmark\n\n")
	sb.WriteString("| " + strings.Join(benchHeaders, " | ") + " |\n")
	sb.WriteString("|" + strings.Repeat(" --- |", len(benchHeaders)) + "\n")
	for _, row := range benchRows(results) {
		sb.WriteString("| " + strings.Join(row, " | ") + " |\n")
	}
	return sb.String()
}
