package inspector

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"sync"
	"time"

	consts "github.com/khanhnv2901/sitesniffer/internal/shared/constants"
	sherrors "github.com/khanhnv2901/sitesniffer/internal/shared/errors"
	"github.com/likexian/whois"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Resolver looks up the addresses of a host. *net.Resolver satisfies it.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// HTTPDoer sends a single HTTP request. *http.Client satisfies it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Dialer opens the raw TCP connection used for certificate inspection.
// *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// WhoisClient queries WHOIS registries. *whois.Client satisfies it. An empty
// server lets the client pick the registry for the domain.
type WhoisClient interface {
	Whois(domain string, servers ...string) (string, error)
}

// Config holds the tunables and collaborators of an Inspector. Zero values
// are replaced with defaults by New.
type Config struct {
	Timeout time.Duration // Per-accessor deadline (default 10s)
	// MaxRedirects is the number of redirects followed before
	// ErrTooManyRedirects. Nil means 5; a limit of 0 follows none.
	MaxRedirects *int
	UserAgent    string
	WhoisServers []string    // Tried in order; empty means registry auto-discovery
	TLSConfig    *tls.Config // Base config for certificate inspection
	Logger       *zap.Logger

	Resolver   Resolver
	HTTPClient HTTPDoer
	Dialer     Dialer
	Whois      WhoisClient
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = consts.DefaultTimeout
	}
	redirects := consts.DefaultMaxRedirects
	if c.MaxRedirects != nil {
		redirects = max(*c.MaxRedirects, 0)
	}
	c.MaxRedirects = &redirects
	if c.UserAgent == "" {
		c.UserAgent = consts.DefaultUserAgent
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.Resolver == nil {
		c.Resolver = &net.Resolver{PreferGo: true}
	}
	if c.HTTPClient == nil {
		c.HTTPClient = NewHTTPClient(c.Timeout, redirects)
	}
	if c.Dialer == nil {
		c.Dialer = &net.Dialer{Timeout: c.Timeout}
	}
	if c.Whois == nil {
		c.Whois = whois.NewClient().SetTimeout(consts.DefaultWhoisTimeout)
	}
	return c
}

// RedirectLimit returns a MaxRedirects value of n.
func RedirectLimit(n int) *int {
	return &n
}

// NewHTTPClient returns a client that gives up after timeout and fails with
// ErrTooManyRedirects once more than maxRedirects redirects were followed.
func NewHTTPClient(timeout time.Duration, maxRedirects int) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: http.DefaultTransport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) > maxRedirects {
				return sherrors.ErrTooManyRedirects
			}
			return nil
		},
	}
}

// Inspector reports observable properties of one website. Accessors are
// independent; only the fetched page is cached, once per Inspector.
//
// An Inspector is safe for concurrent use.
type Inspector struct {
	target *Target
	cfg    Config
	logger *zap.Logger

	group    singleflight.Group
	mu       sync.Mutex
	page     *PageSnapshot
	pageErr  error
	pageDone bool
}

// New parses rawURL and returns an Inspector for it. It fails with
// ErrInvalidURL when no host can be extracted.
func New(rawURL string, cfg Config) (*Inspector, error) {
	target, err := ParseTarget(rawURL)
	if err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	return &Inspector{
		target: target,
		cfg:    cfg,
		logger: cfg.Logger.With(zap.String("target", target.String())),
	}, nil
}

// Target returns a copy of the parsed target.
func (in *Inspector) Target() Target { return *in.target }

// URL returns the request URL.
func (in *Inspector) URL() string { return in.target.URL() }

// Protocol returns the scheme of the target.
func (in *Inspector) Protocol() string { return in.target.Scheme }

// Hostname returns the decoded hostname of the target.
func (in *Inspector) Hostname() string { return in.target.Host }

// Path returns everything after the host of the target.
func (in *Inspector) Path() string { return in.target.Path }

func (in *Inspector) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, in.cfg.Timeout)
}
