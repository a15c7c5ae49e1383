// Package inspector reports observable properties of a single website.
//
// Architecture overview:
//
//   - ParseTarget decomposes the input URL once (scheme, decoded and IDNA
//     hostname, port, path). A missing scheme defaults to http.
//   - Inspector exposes independent accessors. Network identity (IPAddress,
//     DNSRecords, DomainInfo), transport (StatusCode, LoadTime, SSLInfo) and
//     page content (Links, MetaDescription, Keywords, IsMobileFriendly, ...).
//   - Content accessors share one PageSnapshot, fetched on first use behind a
//     single-flight guard and cached for the lifetime of the Inspector.
//     DomainInfo and SSLInfo are never cached.
//   - Every heuristic is a pure method on Document so it can be checked against
//     markup without network access.
//   - Failures are *Error values whose Kind is one of the sentinels in
//     internal/shared/errors, matched with errors.Is.
//
// The DNS resolver, HTTP client, TCP dialer and WHOIS client are injected
// through Config; defaults use net.Resolver, net/http, net.Dialer and
// github.com/likexian/whois.
package inspector
