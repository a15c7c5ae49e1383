package report

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/khanhnv2901/sitesniffer/internal/inspector"
	sherrors "github.com/khanhnv2901/sitesniffer/internal/shared/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Report is the combined view of one site. Only the requested facets are
// filled in; a facet that failed is listed in Errors and its field is left
// empty.
type Report struct {
	URL       string    `json:"url"`
	Protocol  string    `json:"protocol"`
	Hostname  string    `json:"hostname"`
	Path      string    `json:"path"`
	CheckedAt time.Time `json:"checked_at"`
	Duration  float64   `json:"duration_ms"`
	Facets    []Facet   `json:"facets"`

	IPAddress          string                `json:"ip_address,omitempty"`
	DNS                *inspector.DNSRecords `json:"dns,omitempty"`
	DomainInfo         *inspector.DomainInfo `json:"domain_info,omitempty"`
	StatusCode         int                   `json:"status_code,omitempty"`
	SSL                *inspector.SSLInfo    `json:"ssl_info,omitempty"`
	LoadTime           *float64              `json:"load_time_seconds,omitempty"`
	FullLoadTime       *float64              `json:"full_load_time_seconds,omitempty"`
	Title              *string               `json:"title,omitempty"`
	MetaDescription    *string               `json:"meta_description,omitempty"`
	HasMetaDescription *bool                 `json:"has_meta_description,omitempty"`
	Keywords           []string              `json:"keywords,omitempty"`
	Links              []string              `json:"links,omitempty"`
	MobileFriendly     *bool                 `json:"mobile_friendly,omitempty"`
	Responsive         *bool                 `json:"responsive,omitempty"`
	MobileReachable    *bool                 `json:"mobile_reachable,omitempty"`
	Cookies            *bool                 `json:"cookies,omitempty"`
	GoogleAnalytics    *bool                 `json:"google_analytics,omitempty"`
	Errors             map[Facet]*FacetError `json:"errors,omitempty"`
}

// FacetError records why a facet could not be collected.
type FacetError struct {
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message"`

	err error
}

func (e *FacetError) Error() string { return e.Message }

func (e *FacetError) Unwrap() error { return e.err }

func newFacetError(err error) *FacetError {
	fe := &FacetError{Message: err.Error(), err: err}
	if kind := sherrors.KindOf(err); kind != nil {
		fe.Kind = kind.Error()
	}
	return fe
}

// Err returns the error recorded for f, or nil.
func (r *Report) Err(f Facet) error {
	if fe, ok := r.Errors[f]; ok {
		return fe
	}
	return nil
}

// Failed lists the facets that produced an error, in report order.
func (r *Report) Failed() []Facet {
	failed := make([]Facet, 0, len(r.Errors))
	for f := range r.Errors {
		failed = append(failed, f)
	}
	sort.Slice(failed, func(i, j int) bool { return facetIndex(failed[i]) < facetIndex(failed[j]) })
	return failed
}

func facetIndex(f Facet) int {
	for i, known := range AllFacets {
		if known == f {
			return i
		}
	}
	return len(AllFacets)
}

// Orchestrator builds reports by running the selected facets of a fresh
// Inspector concurrently.
type Orchestrator struct {
	cfg         inspector.Config
	logger      *zap.Logger
	parallelism int
}

// NewOrchestrator returns an Orchestrator whose inspectors share cfg.
// parallelism bounds the facets collected at once for one report; zero
// means no bound.
func NewOrchestrator(cfg inspector.Config, parallelism int) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{cfg: cfg, logger: logger, parallelism: parallelism}
}

// Inspect builds a report for rawURL. The returned error is non-nil only when
// the URL itself is invalid; facet failures are recorded in the report so one
// failure does not hide the others.
func (o *Orchestrator) Inspect(ctx context.Context, rawURL string, facets []Facet) (*Report, error) {
	in, err := inspector.New(rawURL, o.cfg)
	if err != nil {
		return nil, err
	}
	if len(facets) == 0 {
		facets = DefaultFacets
	}

	start := time.Now()
	target := in.Target()
	rep := &Report{
		URL:       in.URL(),
		Protocol:  target.Scheme,
		Hostname:  target.Host,
		Path:      target.Path,
		CheckedAt: start.UTC(),
		Facets:    append([]Facet(nil), facets...),
	}

	var mu sync.Mutex
	var g errgroup.Group
	if o.parallelism > 0 {
		g.SetLimit(o.parallelism)
	}

	for _, facet := range facets {
		collect, ok := collectors[facet]
		if !ok {
			rep.setError(facet, errors.New("unknown facet"))
			continue
		}
		g.Go(func() error {
			apply, err := collect(ctx, in)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				o.logger.Debug("facet failed",
					zap.String("url", rep.URL),
					zap.String("facet", string(facet)),
					zap.Error(err),
				)
				rep.setError(facet, err)
				return nil
			}
			apply(rep)
			return nil
		})
	}
	_ = g.Wait()

	rep.Duration = float64(time.Since(start).Milliseconds())
	o.logger.Info("site inspected",
		zap.String("url", rep.URL),
		zap.Int("facets", len(facets)),
		zap.Int("failed", len(rep.Errors)),
		zap.Float64("duration_ms", rep.Duration),
	)
	return rep, nil
}

func (r *Report) setError(f Facet, err error) {
	if r.Errors == nil {
		r.Errors = make(map[Facet]*FacetError)
	}
	r.Errors[f] = newFacetError(err)
}

// collector gathers one facet and returns the setter that stores it.
type collector func(ctx context.Context, in *inspector.Inspector) (func(*Report), error)

var collectors = map[Facet]collector{
	FacetIPAddress: func(ctx context.Context, in *inspector.Inspector) (func(*Report), error) {
		ip, err := in.IPAddress(ctx)
		return func(r *Report) { r.IPAddress = ip }, err
	},
	FacetDNS: func(ctx context.Context, in *inspector.Inspector) (func(*Report), error) {
		records, err := in.DNSRecords(ctx)
		return func(r *Report) { r.DNS = records }, err
	},
	FacetDomainInfo: func(ctx context.Context, in *inspector.Inspector) (func(*Report), error) {
		info, err := in.DomainInfo(ctx)
		return func(r *Report) { r.DomainInfo = &info }, err
	},
	FacetStatusCode: func(ctx context.Context, in *inspector.Inspector) (func(*Report), error) {
		code, err := in.StatusCode(ctx)
		return func(r *Report) { r.StatusCode = code }, err
	},
	FacetSSLInfo: func(ctx context.Context, in *inspector.Inspector) (func(*Report), error) {
		info, err := in.SSLInfo(ctx)
		return func(r *Report) { r.SSL = info }, err
	},
	FacetLoadTime: func(ctx context.Context, in *inspector.Inspector) (func(*Report), error) {
		seconds, err := in.LoadTime(ctx)
		return func(r *Report) { r.LoadTime = &seconds }, err
	},
	FacetFullLoadTime: func(ctx context.Context, in *inspector.Inspector) (func(*Report), error) {
		seconds, err := in.FullLoadTime(ctx)
		return func(r *Report) { r.FullLoadTime = &seconds }, err
	},
	FacetTitle: func(ctx context.Context, in *inspector.Inspector) (func(*Report), error) {
		title, err := in.Title(ctx)
		return func(r *Report) { r.Title = &title }, err
	},
	FacetMetaDescription: func(ctx context.Context, in *inspector.Inspector) (func(*Report), error) {
		desc, present, err := in.MetaDescription(ctx)
		if err != nil {
			return nil, err
		}
		has, err := in.HasMetaDescription(ctx)
		return func(r *Report) {
			if present {
				r.MetaDescription = &desc
			}
			r.HasMetaDescription = &has
		}, err
	},
	FacetKeywords: func(ctx context.Context, in *inspector.Inspector) (func(*Report), error) {
		keywords, err := in.Keywords(ctx)
		return func(r *Report) { r.Keywords = keywords }, err
	},
	FacetLinks: func(ctx context.Context, in *inspector.Inspector) (func(*Report), error) {
		links, err := in.Links(ctx)
		return func(r *Report) { r.Links = links }, err
	},
	FacetMobileFriendly: boolFacet(func(in *inspector.Inspector) func(context.Context) (bool, error) {
		return in.IsMobileFriendly
	}, func(r *Report, v *bool) { r.MobileFriendly = v }),
	FacetResponsive: boolFacet(func(in *inspector.Inspector) func(context.Context) (bool, error) {
		return in.HasResponsiveDesign
	}, func(r *Report, v *bool) { r.Responsive = v }),
	FacetMobileReachable: boolFacet(func(in *inspector.Inspector) func(context.Context) (bool, error) {
		return in.MobileReachable
	}, func(r *Report, v *bool) { r.MobileReachable = v }),
	FacetCookies: boolFacet(func(in *inspector.Inspector) func(context.Context) (bool, error) {
		return in.HasCookies
	}, func(r *Report, v *bool) { r.Cookies = v }),
	FacetAnalytics: boolFacet(func(in *inspector.Inspector) func(context.Context) (bool, error) {
		return in.HasGoogleAnalytics
	}, func(r *Report, v *bool) { r.GoogleAnalytics = v }),
}

func boolFacet(accessor func(*inspector.Inspector) func(context.Context) (bool, error), set func(*Report, *bool)) collector {
	return func(ctx context.Context, in *inspector.Inspector) (func(*Report), error) {
		v, err := accessor(in)(ctx)
		return func(r *Report) { set(r, &v) }, err
	}
}
