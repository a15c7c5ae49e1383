package inspector

import (
	"context"
	"errors"
	"net"
	"strings"

	sherrors "github.com/khanhnv2901/sitesniffer/internal/shared/errors"
	"go.uber.org/zap"
)

// RecordResolver is implemented by resolvers that can return the wider record
// set reported by DNSRecords. *net.Resolver satisfies it.
type RecordResolver interface {
	Resolver
	LookupCNAME(ctx context.Context, host string) (string, error)
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
	LookupNS(ctx context.Context, name string) ([]*net.NS, error)
	LookupTXT(ctx context.Context, name string) ([]string, error)
}

// MXRecord is a mail exchanger entry.
type MXRecord struct {
	Host     string `json:"host"`
	Priority uint16 `json:"priority"`
}

// DNSRecords groups the records found for the target host.
type DNSRecords struct {
	Addresses   []string   `json:"addresses"`
	CNAME       string     `json:"cname,omitempty"`
	MX          []MXRecord `json:"mx,omitempty"`
	NameServers []string   `json:"ns,omitempty"`
	TXT         []string   `json:"txt,omitempty"`
}

// IPAddress resolves the hostname and returns the first address, preferring
// IPv4. IP literal hosts are returned without a lookup. A host that does not
// resolve fails with ErrResolution.
func (in *Inspector) IPAddress(ctx context.Context) (string, error) {
	addrs, err := in.IPAddresses(ctx)
	if err != nil {
		return "", err
	}
	for _, addr := range addrs {
		if ip := net.ParseIP(addr); ip != nil && ip.To4() != nil {
			return addr, nil
		}
	}
	return addrs[0], nil
}

// IPAddresses returns every address the hostname resolves to, in resolver
// order.
func (in *Inspector) IPAddresses(ctx context.Context) ([]string, error) {
	const op = "ip_address"
	if ip := net.ParseIP(in.target.ASCIIHost); ip != nil {
		return []string{ip.String()}, nil
	}

	ctx, cancel := in.withTimeout(ctx)
	defer cancel()

	addrs, err := in.cfg.Resolver.LookupHost(ctx, in.target.ASCIIHost)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, in.fail(op, sherrors.ErrCanceled, err)
		}
		return nil, in.fail(op, sherrors.ErrResolution, err)
	}
	if len(addrs) == 0 {
		return nil, in.fail(op, sherrors.ErrResolution, errors.New("no addresses found"))
	}
	in.logger.Debug("resolved host", zap.Strings("addresses", addrs))
	return addrs, nil
}

// DNSRecords resolves the host addresses and, when the configured resolver
// supports it, the CNAME, MX, NS and TXT records. Only a failed address
// lookup is an error; missing secondary records are simply left empty.
func (in *Inspector) DNSRecords(ctx context.Context) (*DNSRecords, error) {
	addrs, err := in.IPAddresses(ctx)
	if err != nil {
		return nil, err
	}
	records := &DNSRecords{Addresses: addrs}

	rr, ok := in.cfg.Resolver.(RecordResolver)
	if !ok || net.ParseIP(in.target.ASCIIHost) != nil {
		return records, nil
	}
	host := in.target.ASCIIHost

	lookupCtx, cancel := in.withTimeout(ctx)
	defer cancel()

	if cname, err := rr.LookupCNAME(lookupCtx, host); err == nil {
		cname = strings.TrimSuffix(cname, ".")
		if cname != "" && cname != host {
			records.CNAME = cname
		}
	}

	if mxRecords, err := rr.LookupMX(lookupCtx, host); err == nil {
		for _, mx := range mxRecords {
			records.MX = append(records.MX, MXRecord{Host: strings.TrimSuffix(mx.Host, "."), Priority: mx.Pref})
		}
	}

	if nsRecords, err := rr.LookupNS(lookupCtx, host); err == nil {
		for _, ns := range nsRecords {
			records.NameServers = append(records.NameServers, strings.TrimSuffix(ns.Host, "."))
		}
	}

	if txtRecords, err := rr.LookupTXT(lookupCtx, host); err == nil && len(txtRecords) > 0 {
		records.TXT = txtRecords
	}

	return records, nil
}
