// Package dispatch turns a tool invocation into data-source calls and a
// single-text result envelope.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/canre-io/canre/internal/source"
	"github.com/canre-io/canre/internal/tool"
	"github.com/canre-io/canre/pkg/protocol"
)

// BasicSource is the city market client.
type BasicSource interface {
	MarketData(ctx context.Context, city string) source.Result[source.MarketData]
	RentalMarket(ctx context.Context, city string) source.Result[source.RentalMarket]
	MarketTrends(ctx context.Context, city string) source.Result[source.MarketTrends]
	MunicipalListings(ctx context.Context, city string, limit int) []source.Listing
}

// EnhancedSource is the national data client.
type EnhancedSource interface {
	HousingPriceIndex(ctx context.Context, province string) source.Result[source.PriceIndex]
	HousingStarts(ctx context.Context, city string) source.Result[source.HousingStarts]
	BankOfCanadaRates(ctx context.Context) source.Result[source.BankRates]
	OpenGovHousingData(ctx context.Context, province string) source.Result[source.OpenGovData]
	CensusHousing(ctx context.Context, city string) source.Result[source.Census]
	RealEstateBoard(ctx context.Context, city string) source.Result[source.BoardReport]
	PropertyTax(ctx context.Context, city string) source.Result[source.PropertyTax]
	EconomicIndicators(ctx context.Context) source.Result[source.EconomicIndicators]
}

// Sources bundles the two data-source clients.
type Sources struct {
	Basic    BasicSource
	Enhanced EnhancedSource
}

// State is the phase of one invocation.
type State int

const (
	StateValidating State = iota
	StateExecuting
	StateResponding
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateValidating:
		return "validating"
	case StateExecuting:
		return "executing"
	case StateResponding:
		return "responding"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state_%d", int(s))
	}
}

// CallRecord describes a finished invocation. Code is zero on success.
type CallRecord struct {
	Tool      string
	Arguments map[string]any
	Code      protocol.ErrorCode
	Message   string
	FailedIn  State
	Duration  time.Duration
	StartedAt time.Time
}

// OK reports whether the call succeeded.
func (r CallRecord) OK() bool { return r.Code == 0 }

// Observer is notified after every invocation.
type Observer func(ctx context.Context, rec CallRecord)

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithClock sets the clock used for as-of timestamps in payloads.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// WithLogger sets the dispatcher logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithObserver registers a callback run after each invocation.
func WithObserver(o Observer) Option {
	return func(d *Dispatcher) {
		if o != nil {
			d.observers = append(d.observers, o)
		}
	}
}

// executor runs a validated invocation.
type executor func(ctx context.Context) (any, error)

// binder reads arguments and returns the executor. It must not touch any
// data source; failures are recorded on the Args.
type binder func(in *Args) executor

type route struct {
	label string
	bind  binder
}

// Dispatcher routes tool calls. It holds no per-call state and is safe for
// concurrent use.
type Dispatcher struct {
	registry  *tool.Registry
	src       Sources
	routes    map[string]route
	now       func() time.Time
	logger    *slog.Logger
	observers []Observer
}

// New creates a dispatcher over the registry. It fails if the routing table
// and the registry do not name exactly the same tools.
func New(reg *tool.Registry, src Sources, opts ...Option) (*Dispatcher, error) {
	if reg == nil {
		return nil, fmt.Errorf("dispatch: registry is required")
	}
	if src.Basic == nil || src.Enhanced == nil {
		return nil, fmt.Errorf("dispatch: both data sources are required")
	}
	d := &Dispatcher{
		registry: reg,
		src:      src,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With("component", "dispatch")
	d.routes = d.routingTable()

	if err := checkRoutes(reg.Names(), routeNames(d.routes)); err != nil {
		return nil, err
	}
	return d, nil
}

func routeNames(routes map[string]route) []string {
	names := make([]string, 0, len(routes))
	for name := range routes {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func checkRoutes(registered, routed []string) error {
	for _, name := range registered {
		if !slices.Contains(routed, name) {
			return fmt.Errorf("dispatch: tool %q has no route", name)
		}
	}
	for _, name := range routed {
		if !slices.Contains(registered, name) {
			return fmt.Errorf("dispatch: route %q is not a registered tool", name)
		}
	}
	return nil
}

// Routes returns the routed tool names, sorted.
func (d *Dispatcher) Routes() []string {
	return routeNames(d.routes)
}

// Call runs one invocation. A non-nil error is always a *protocol.ToolError.
func (d *Dispatcher) Call(ctx context.Context, name string, args map[string]any) (*protocol.ToolResult, error) {
	start := d.now()
	rec := CallRecord{Tool: name, Arguments: args, StartedAt: start}

	result, state, err := d.run(ctx, name, args)
	rec.Duration = d.now().Sub(start)
	if err != nil {
		te := protocol.AsToolError(err)
		rec.Code, rec.Message, rec.FailedIn = te.Code, te.Message, state
		d.logger.Warn("tool call failed", "tool", name, "state", state.String(),
			"code", te.Code.String(), "error", te.Message, "duration_ms", rec.Duration.Milliseconds())
		d.notify(ctx, rec)
		return nil, te
	}

	d.logger.Info("tool call", "tool", name, "duration_ms", rec.Duration.Milliseconds())
	d.notify(ctx, rec)
	return result, nil
}

func (d *Dispatcher) run(ctx context.Context, name string, args map[string]any) (*protocol.ToolResult, State, error) {
	// VALIDATING
	r, ok := d.routes[name]
	if !ok || !d.registry.Has(name) {
		return nil, StateValidating, protocol.MethodNotFound("Tool not found: %s", name)
	}
	in := NewArgs(args)
	exec := r.bind(in)
	if err := in.Err(); err != nil {
		return nil, StateValidating, err
	}

	// EXECUTING
	payload, err := execute(ctx, exec)
	if err != nil {
		if te, ok := err.(*protocol.ToolError); ok {
			return nil, StateExecuting, te
		}
		return nil, StateExecuting, protocol.InternalError("Failed to get %s: %s", r.label, err.Error())
	}

	// RESPONDING
	result, err := protocol.NewJSONResult(payload)
	if err != nil {
		return nil, StateResponding, protocol.InternalError("Failed to get %s: %s", r.label, err.Error())
	}
	return result, StateResponding, nil
}

// execute runs exec and converts a panic into an error.
func execute(ctx context.Context, exec executor) (payload any, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%v", p)
		}
	}()
	return exec(ctx)
}

func (d *Dispatcher) notify(ctx context.Context, rec CallRecord) {
	for _, o := range d.observers {
		o(ctx, rec)
	}
}
