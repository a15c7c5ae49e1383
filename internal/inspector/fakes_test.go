package inspector

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// stubDoer answers every request with the same HTML body, or with err.
type stubDoer struct {
	body   string
	header http.Header
	err    error
	delay  time.Duration
	calls  atomic.Int32
}

func (d *stubDoer) Do(req *http.Request) (*http.Response, error) {
	d.calls.Add(1)
	if d.delay > 0 {
		time.Sleep(d.delay)
	}
	if d.err != nil {
		return nil, d.err
	}
	header := d.header
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     header.Clone(),
		Body:       io.NopCloser(strings.NewReader(d.body)),
		Request:    req,
	}, nil
}

type countingDialer struct {
	calls atomic.Int32
}

func (d *countingDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	d.calls.Add(1)
	return (&net.Dialer{}).DialContext(ctx, network, address)
}

type stubResolver struct {
	addrs []string
	err   error
	cname string
	mx    []*net.MX
	ns    []*net.NS
	txt   []string
}

func (r *stubResolver) LookupHost(context.Context, string) ([]string, error) {
	return r.addrs, r.err
}

type stubRecordResolver struct {
	stubResolver
}

func (r *stubRecordResolver) LookupCNAME(context.Context, string) (string, error) {
	return r.cname, nil
}

func (r *stubRecordResolver) LookupMX(context.Context, string) ([]*net.MX, error) {
	return r.mx, nil
}

func (r *stubRecordResolver) LookupNS(context.Context, string) ([]*net.NS, error) {
	return r.ns, nil
}

func (r *stubRecordResolver) LookupTXT(context.Context, string) ([]string, error) {
	return r.txt, nil
}

type whoisReply struct {
	text string
	err  error
}

// stubWhois answers per server; "" is the auto-discovery server.
type stubWhois struct {
	mu      sync.Mutex
	replies map[string]whoisReply
	queried []string
	domains []string
}

func (w *stubWhois) Whois(domain string, servers ...string) (string, error) {
	server := ""
	if len(servers) > 0 {
		server = servers[0]
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.queried = append(w.queried, server)
	w.domains = append(w.domains, domain)
	reply := w.replies[server]
	return reply.text, reply.err
}

func (w *stubWhois) calls() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.queried...)
}
