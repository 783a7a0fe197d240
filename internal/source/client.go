package source

import (
	"log/slog"
	"strings"
	"time"
)

// Default client timeouts.
const (
	BasicTimeout    = 10 * time.Second
	EnhancedTimeout = 15 * time.Second
)

// Default upstream base URLs.
const (
	DefaultOpenGovURL = "https://open.canada.ca/data/en/api/3/action"
	DefaultValetURL   = "https://www.bankofcanada.ca/valet"
	DefaultCensusURL  = "https://api.census.gov/data/timeseries/eits"
)

// Endpoints are the upstream base URLs. Tests point them at httptest servers.
type Endpoints struct {
	OpenGov string
	Valet   string
	Census  string
}

// DefaultEndpoints returns the public upstream URLs.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		OpenGov: DefaultOpenGovURL,
		Valet:   DefaultValetURL,
		Census:  DefaultCensusURL,
	}
}

func (e Endpoints) packageSearch() string {
	return strings.TrimRight(e.OpenGov, "/") + "/package_search"
}

func (e Endpoints) recentlyChanged() string {
	return strings.TrimRight(e.OpenGov, "/") + "/recently_changed_packages_activity_list"
}

func (e Endpoints) valetObservations(series string) string {
	return strings.TrimRight(e.Valet, "/") + "/observations/" + series + "/json"
}

func (e Endpoints) valetBase() string {
	return strings.TrimRight(e.Valet, "/") + "/observations"
}

func (e Endpoints) census(dataset string) string {
	return strings.TrimRight(e.Census, "/") + "/" + dataset
}

// Option configures a client.
type Option func(*options)

type options struct {
	fetcher   Fetcher
	timeout   time.Duration
	endpoints Endpoints
	now       func() time.Time
	logger    *slog.Logger
}

// WithFetcher replaces the HTTP fetcher.
func WithFetcher(f Fetcher) Option {
	return func(o *options) { o.fetcher = f }
}

// WithTimeout overrides the client's default request timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithEndpoints overrides the upstream base URLs. Empty fields keep their
// defaults.
func WithEndpoints(e Endpoints) Option {
	return func(o *options) {
		if e.OpenGov != "" {
			o.endpoints.OpenGov = e.OpenGov
		}
		if e.Valet != "" {
			o.endpoints.Valet = e.Valet
		}
		if e.Census != "" {
			o.endpoints.Census = e.Census
		}
	}
}

// WithClock sets the clock used for "today" defaults.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func buildOptions(name string, timeout time.Duration, opts []Option) options {
	o := options{
		timeout:   timeout,
		endpoints: DefaultEndpoints(),
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.fetcher == nil {
		o.fetcher = NewHTTPFetcher(o.timeout)
	}
	o.logger = o.logger.With("component", "source", "client", name)
	return o
}

func (o options) today() string {
	return o.now().UTC().Format(time.DateOnly)
}
