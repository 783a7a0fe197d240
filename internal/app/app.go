// Package app assembles the daemon from configuration: data-source clients,
// the dispatcher, the MCP server and the optional journal, probe and
// scheduler. An *App is the service behind the admin API.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/canre-io/canre/internal/api"
	"github.com/canre-io/canre/internal/config"
	"github.com/canre-io/canre/internal/dispatch"
	"github.com/canre-io/canre/internal/journal"
	"github.com/canre-io/canre/internal/scheduler"
	"github.com/canre-io/canre/internal/server"
	"github.com/canre-io/canre/internal/source"
	"github.com/canre-io/canre/internal/tool"
	"github.com/canre-io/canre/pkg/protocol"
)

// Scheduler job names.
const (
	JobProbe = "probe"
	JobPrune = "prune"
)

// pruneSchedule is how often expired journal rows are removed.
const pruneSchedule = "@every 1h"

var _ api.Service = (*App)(nil)

// Option configures Build.
type Option func(*buildOptions)

type buildOptions struct {
	sourceOpts []source.Option
	now        func() time.Time
}

// WithSourceOptions appends options to every data-source client and the
// probe, after the ones derived from configuration.
func WithSourceOptions(opts ...source.Option) Option {
	return func(b *buildOptions) { b.sourceOpts = append(b.sourceOpts, opts...) }
}

// WithClock sets the clock for the dispatcher, the clients and journal
// retention.
func WithClock(now func() time.Time) Option {
	return func(b *buildOptions) {
		if now != nil {
			b.now = now
		}
	}
}

// App is a fully wired daemon.
type App struct {
	Config     *config.Config
	Registry   *tool.Registry
	Dispatcher *dispatch.Dispatcher
	MCP        *server.Server
	Probe      *source.Probe
	// Scheduler is nil when no background job is configured.
	Scheduler *scheduler.Scheduler

	journal *journal.SQLiteStore
	now     func() time.Time
	logger  *slog.Logger
}

// Build wires an App from cfg. Close releases the journal.
func Build(cfg *config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	b := buildOptions{now: time.Now}
	for _, opt := range opts {
		opt(&b)
	}

	a := &App{
		Config:   cfg,
		Registry: tool.NewCatalog(),
		now:      b.now,
		logger:   logger,
	}

	logger.Info("limits loaded (not applied to outbound calls)",
		"rate_limit_ms", cfg.Limits.RateLimitMs,
		"max_retries", cfg.Limits.MaxRetries,
		"timeout_ms", cfg.Limits.TimeoutMs)

	common := []source.Option{
		source.WithEndpoints(source.Endpoints{
			OpenGov: cfg.Sources.OpenGovURL,
			Valet:   cfg.Sources.ValetURL,
			Census:  cfg.Sources.CensusURL,
		}),
		source.WithLogger(logger),
		source.WithClock(b.now),
	}
	clientOpts := func(timeout time.Duration) []source.Option {
		out := append([]source.Option{source.WithTimeout(timeout)}, common...)
		return append(out, b.sourceOpts...)
	}
	basic := source.NewBasic(clientOpts(cfg.BasicTimeout())...)
	enhanced := source.NewEnhanced(clientOpts(cfg.EnhancedTimeout())...)
	a.Probe = source.NewProbe(clientOpts(cfg.EnhancedTimeout())...)

	dispatchOpts := []dispatch.Option{
		dispatch.WithLogger(logger.With("component", "dispatch")),
		dispatch.WithClock(b.now),
	}
	if cfg.Journal.Path != "" {
		store, err := openJournal(cfg.Journal.Path)
		if err != nil {
			return nil, err
		}
		a.journal = store
		dispatchOpts = append(dispatchOpts, dispatch.WithObserver(
			journal.Observer(store, logger.With("component", "journal"))))
		logger.Info("call journal enabled", "path", cfg.Journal.Path,
			"retention_days", cfg.Journal.RetentionDays)
	}

	d, err := dispatch.New(a.Registry, dispatch.Sources{Basic: basic, Enhanced: enhanced}, dispatchOpts...)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("app: dispatcher: %w", err)
	}
	a.Dispatcher = d
	a.MCP = server.New(a.Registry, d,
		server.WithInfo(cfg.Server.Name, cfg.Server.Version),
		server.WithLogger(logger))

	if err := a.schedule(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func openJournal(path string) (*journal.SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("app: journal dir: %w", err)
		}
	}
	store, err := journal.NewSQLiteStore(path)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	return store, nil
}

func (a *App) schedule() error {
	probe := a.Config.Probe.Schedule != ""
	prune := a.journal != nil && a.Config.Journal.RetentionDays > 0
	if !probe && !prune {
		return nil
	}

	a.Scheduler = scheduler.New(a.logger)
	if probe {
		err := a.Scheduler.AddJob(JobProbe, a.Config.Probe.Schedule, func(ctx context.Context) {
			a.RunProbe(ctx)
		})
		if err != nil {
			return fmt.Errorf("app: %w", err)
		}
	}
	if prune {
		err := a.Scheduler.AddJob(JobPrune, pruneSchedule, func(context.Context) {
			if _, err := a.PruneJournal(); err != nil {
				a.logger.Warn("journal prune failed", "error", err)
			}
		})
		if err != nil {
			return fmt.Errorf("app: %w", err)
		}
	}
	return nil
}

// PruneJournal removes journal rows older than the retention window.
func (a *App) PruneJournal() (int, error) {
	if a.journal == nil || a.Config.Journal.RetentionDays <= 0 {
		return 0, nil
	}
	cutoff := a.now().AddDate(0, 0, -a.Config.Journal.RetentionDays)
	n, err := a.journal.Prune(cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		a.logger.Info("journal pruned", "removed", n, "before", cutoff.UTC().Format(time.RFC3339))
	}
	return n, nil
}

// Close releases the journal, if any.
func (a *App) Close() error {
	if a.journal == nil {
		return nil
	}
	return a.journal.Close()
}

// --- api.Service ---

func (a *App) Info() protocol.Implementation {
	return a.MCP.Info()
}

func (a *App) ListTools() []protocol.ToolDescriptor {
	return a.Registry.List()
}

func (a *App) GetTool(name string) (protocol.ToolDescriptor, bool) {
	return a.Registry.Get(name)
}

func (a *App) CallTool(ctx context.Context, name string, args map[string]any) (*protocol.ToolResult, error) {
	return a.Dispatcher.Call(ctx, name, args)
}

func (a *App) HandleRPC(ctx context.Context, raw []byte) []byte {
	return a.MCP.Handle(ctx, raw)
}

func (a *App) ListCalls(filter journal.Filter) ([]*journal.Call, error) {
	if a.journal == nil {
		return nil, api.ErrDisabled
	}
	return a.journal.List(filter)
}

func (a *App) GetCall(id string) (*journal.Call, error) {
	if a.journal == nil {
		return nil, api.ErrDisabled
	}
	return a.journal.Get(id)
}

func (a *App) ProviderStatus() []source.ProviderStatus {
	return a.Probe.Last()
}

func (a *App) RunProbe(ctx context.Context) []source.ProviderStatus {
	results := a.Probe.Run(ctx)
	healthy := 0
	for _, r := range results {
		if r.OK {
			healthy++
		}
	}
	a.logger.Info("probe finished", "component", "probe", "healthy", healthy, "total", len(results))
	return results
}
