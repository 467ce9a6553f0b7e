// Command memodemo drives a coordinator through a burst of concurrent callers,
// then waits out the refresh interval and shows the background refresh landing.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/goforj/memo"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	traceStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	statStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
)

type demoOptions struct {
	calls        int
	ttl          time.Duration
	refreshAfter time.Duration
	delay        time.Duration
	driver       string
	dir          string
	verbose      bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := demoOptions{}
	cmd := &cobra.Command{
		Use:   "memodemo",
		Short: "Show single-flight and refresh-ahead memoization",
		Long: `memodemo fires concurrent callers at one memoized computation, prints how
many times the computation actually ran, then waits for the refresh interval to
pass and shows the stale value being served while a background refresh replaces it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cmd, opts)
		},
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	cmd.Flags().IntVar(&opts.calls, "calls", 10, "number of concurrent callers")
	cmd.Flags().DurationVar(&opts.ttl, "ttl", 10*time.Second, "cache duration")
	cmd.Flags().DurationVar(&opts.refreshAfter, "refresh-after", 5*time.Second, "refresh-ahead interval")
	cmd.Flags().DurationVar(&opts.delay, "delay", 500*time.Millisecond, "simulated computation latency")
	cmd.Flags().StringVar(&opts.driver, "driver", string(memo.DriverMemory), "store driver: memory, file, null or sql (sqlite)")
	cmd.Flags().StringVar(&opts.dir, "dir", filepath.Join(os.TempDir(), "memodemo"), "directory for the file and sql drivers")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "log coordinator activity")
	return cmd
}

func run(ctx context.Context, cmd *cobra.Command, opts demoOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.calls <= 0 {
		return fmt.Errorf("--calls must be positive")
	}
	out := cmd.OutOrStdout()

	store, err := openStore(ctx, opts)
	if err != nil {
		return err
	}
	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	c := memo.New(store, memo.WithLogger(logger), memo.WithEnabled(true))
	defer c.Close()

	policy := memo.Policy{TTL: opts.ttl, RefreshAfter: opts.refreshAfter}
	params := []int{}
	var executions atomic.Int64

	fmt.Fprintln(out, headerStyle.Render("---- Starting parallel calls ----"))
	start := time.Now()
	results := make([]string, opts.calls)
	errs := make([]error, opts.calls)
	var wg sync.WaitGroup
	for i := 0; i < opts.calls; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = memo.GetOrComputeCtx(ctx, c, "memodemo.Greeting", params, policy, func(ctx context.Context) (string, error) {
				n := executions.Add(1)
				fmt.Fprintln(out, traceStyle.Render(fmt.Sprintf("[compute] execution #%d by caller %d", n, i)))
				select {
				case <-time.After(opts.delay):
				case <-ctx.Done():
					return "", ctx.Err()
				}
				return "Hello World", nil
			})
		}(i)
	}
	wg.Wait()
	elapsed := time.Since(start)

	fmt.Fprintln(out)
	fmt.Fprintln(out, headerStyle.Render("---- Results ----"))
	for i, result := range results {
		if errs[i] != nil {
			return fmt.Errorf("caller %d: %w", i, errs[i])
		}
		fmt.Fprintf(out, "Returned: %s\n", valueStyle.Render(result))
	}
	fmt.Fprintln(out, statStyle.Render(fmt.Sprintf("[Total executions]: %d", executions.Load())))
	fmt.Fprintln(out, statStyle.Render(fmt.Sprintf("[Total time]: %s", elapsed.Round(time.Millisecond))))

	if opts.refreshAfter <= 0 {
		return nil
	}
	wait := opts.refreshAfter + opts.refreshAfter/5
	fmt.Fprintln(out)
	fmt.Fprintln(out, traceStyle.Render(fmt.Sprintf("waiting %s for the refresh interval to pass...", wait.Round(time.Millisecond))))
	select {
	case <-time.After(wait):
	case <-ctx.Done():
		return ctx.Err()
	}

	fmt.Fprintln(out, headerStyle.Render("---- Triggering refresh ----"))
	refreshed := make(chan struct{})
	var once sync.Once
	stale, err := memo.GetOrComputeCtx(ctx, c, "memodemo.Greeting", params, policy, func(context.Context) (string, error) {
		executions.Add(1)
		fmt.Fprintln(out, traceStyle.Render("[compute - refresh] running in the background"))
		defer once.Do(func() { close(refreshed) })
		return "Refreshed Hello World", nil
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Returned immediately: %s\n", valueStyle.Render(stale))

	select {
	case <-refreshed:
	case <-time.After(opts.ttl):
		fmt.Fprintln(out, traceStyle.Render("refresh did not run before the entry expired"))
	case <-ctx.Done():
		return ctx.Err()
	}
	// The refresh writes right after computing; give it a moment to land.
	time.Sleep(50 * time.Millisecond)

	current, err := memo.GetOrComputeCtx(ctx, c, "memodemo.Greeting", params, policy, func(context.Context) (string, error) {
		executions.Add(1)
		return "Recomputed Hello World", nil
	})
	if err != nil {
		return err
	}
	stats := c.RefreshStats()
	fmt.Fprintf(out, "Returned after refresh: %s\n", valueStyle.Render(current))
	fmt.Fprintln(out, statStyle.Render(fmt.Sprintf("[Total executions]: %d", executions.Load())))
	fmt.Fprintln(out, statStyle.Render(fmt.Sprintf("[Refreshes]: submitted=%d completed=%d failed=%d", stats.Submitted, stats.Completed, stats.Failed)))
	return nil
}

func openStore(ctx context.Context, opts demoOptions) (memo.Store, error) {
	var store memo.Store
	switch strings.ToLower(opts.driver) {
	case string(memo.DriverMemory):
		store = memo.NewMemoryStore(ctx)
	case string(memo.DriverNull):
		store = memo.NewNullStore(ctx)
	case string(memo.DriverFile):
		store = memo.NewFileStore(ctx, opts.dir)
	case string(memo.DriverSQL), "sqlite":
		if err := os.MkdirAll(opts.dir, 0o755); err != nil {
			return nil, err
		}
		dsn := "file:" + filepath.Join(opts.dir, "memo.db") + "?_pragma=busy_timeout(5000)"
		store = memo.NewSQLStore(ctx, "sqlite", dsn, "memo_entries")
	default:
		return nil, fmt.Errorf("unsupported driver %q", opts.driver)
	}
	if err := store.Ready(ctx); err != nil {
		return nil, fmt.Errorf("open %s store: %w", store.Driver(), err)
	}
	return store, nil
}
