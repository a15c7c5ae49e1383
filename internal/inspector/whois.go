package inspector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sherrors "github.com/khanhnv2901/sitesniffer/internal/shared/errors"
	whoisparser "github.com/likexian/whois-parser"
	"go.uber.org/zap"
)

// DomainInfo holds registration data parsed from a WHOIS response. Every
// field is optional; registries often withhold or malform them.
type DomainInfo struct {
	DomainName     string     `json:"domain_name,omitempty"`
	Registrar      string     `json:"registrar,omitempty"`
	CreationDate   *time.Time `json:"creation_date,omitempty"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
	UpdatedDate    *time.Time `json:"updated_date,omitempty"`
	NameServers    []string   `json:"name_servers,omitempty"`
	Status         []string   `json:"status,omitempty"`
}

// IsEmpty reports whether no field could be extracted.
func (d DomainInfo) IsEmpty() bool {
	return d.DomainName == "" && d.Registrar == "" &&
		d.CreationDate == nil && d.ExpirationDate == nil && d.UpdatedDate == nil &&
		len(d.NameServers) == 0 && len(d.Status) == 0
}

// DomainInfo queries WHOIS for the full hostname. Subdomains are not reduced
// to their registrable domain, so they may come back empty.
//
// Configured servers are tried in order until one answers. When none answers
// the call fails with ErrRegistryUnreachable. An answer that is empty or
// cannot be parsed yields a DomainInfo with every field absent and no error.
func (in *Inspector) DomainInfo(ctx context.Context) (DomainInfo, error) {
	const op = "domain_info"

	servers := in.cfg.WhoisServers
	if len(servers) == 0 {
		servers = []string{""}
	}

	var errs []error
	for _, server := range servers {
		raw, err := in.queryWhois(ctx, server)
		if err != nil {
			in.logger.Debug("whois server did not answer", zap.String("server", server), zap.Error(err))
			errs = append(errs, err)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		return in.parseWhois(raw), nil
	}
	return DomainInfo{}, in.fail(op, sherrors.ErrRegistryUnreachable, errors.Join(errs...))
}

type whoisAnswer struct {
	raw string
	err error
}

// queryWhois runs the blocking WHOIS client under the inspector deadline.
func (in *Inspector) queryWhois(ctx context.Context, server string) (string, error) {
	ctx, cancel := in.withTimeout(ctx)
	defer cancel()

	var servers []string
	if server != "" {
		servers = []string{server}
	}

	answer := make(chan whoisAnswer, 1)
	go func() {
		raw, err := in.cfg.Whois.Whois(in.target.ASCIIHost, servers...)
		answer <- whoisAnswer{raw: raw, err: err}
	}()

	select {
	case a := <-answer:
		if a.err != nil {
			label := server
			if label == "" {
				label = "default"
			}
			return "", fmt.Errorf("whois %s: %w", label, a.err)
		}
		return a.raw, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (in *Inspector) parseWhois(raw string) DomainInfo {
	if strings.TrimSpace(raw) == "" {
		return DomainInfo{}
	}

	parsed, err := whoisparser.Parse(raw)
	if err != nil {
		in.logger.Debug("whois response not parsed", zap.Error(err))
		return DomainInfo{}
	}

	var info DomainInfo
	if d := parsed.Domain; d != nil {
		info.DomainName = d.Domain
		info.CreationDate = whoisDate(d.CreatedDateInTime, d.CreatedDate)
		info.ExpirationDate = whoisDate(d.ExpirationDateInTime, d.ExpirationDate)
		info.UpdatedDate = whoisDate(d.UpdatedDateInTime, d.UpdatedDate)
		if len(d.NameServers) > 0 {
			info.NameServers = append([]string(nil), d.NameServers...)
		}
		if len(d.Status) > 0 {
			info.Status = append([]string(nil), d.Status...)
		}
	}
	if r := parsed.Registrar; r != nil {
		info.Registrar = r.Name
	}
	return info
}

// whoisDate prefers the time whois-parser already decoded and falls back to
// parseWhoisDate for the raw value.
func whoisDate(parsed *time.Time, raw string) *time.Time {
	if parsed != nil && !parsed.IsZero() {
		t := parsed.UTC()
		return &t
	}
	return parseWhoisDate(raw)
}

var whoisDateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05 MST",
	"2006-01-02",
	"2006.01.02",
	"2006/01/02",
	"02-Jan-2006",
	"02.01.2006",
	"January 2 2006",
}

// parseWhoisDate returns nil for dates in a layout it does not know.
func parseWhoisDate(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, layout := range whoisDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
