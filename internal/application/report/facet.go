package report

import (
	"fmt"
	"strings"

	sherrors "github.com/khanhnv2901/sitesniffer/internal/shared/errors"
)

// Facet names one observable property of a site.
type Facet string

const (
	FacetIPAddress       Facet = "ip_address"
	FacetDNS             Facet = "dns"
	FacetDomainInfo      Facet = "domain_info"
	FacetStatusCode      Facet = "status_code"
	FacetSSLInfo         Facet = "ssl_info"
	FacetLoadTime        Facet = "load_time"
	FacetFullLoadTime    Facet = "full_load_time"
	FacetTitle           Facet = "title"
	FacetMetaDescription Facet = "meta_description"
	FacetKeywords        Facet = "keywords"
	FacetLinks           Facet = "links"
	FacetMobileFriendly  Facet = "mobile_friendly"
	FacetResponsive      Facet = "responsive"
	FacetMobileReachable Facet = "mobile_reachable"
	FacetCookies         Facet = "cookies"
	FacetAnalytics       Facet = "analytics"
)

// DefaultFacets is the classic site summary: identity, transport and the
// main content signals.
var DefaultFacets = []Facet{
	FacetIPAddress,
	FacetDomainInfo,
	FacetStatusCode,
	FacetSSLInfo,
	FacetLoadTime,
	FacetMetaDescription,
	FacetKeywords,
	FacetLinks,
}

// AllFacets lists every facet in report order.
var AllFacets = []Facet{
	FacetIPAddress,
	FacetDNS,
	FacetDomainInfo,
	FacetStatusCode,
	FacetSSLInfo,
	FacetLoadTime,
	FacetFullLoadTime,
	FacetTitle,
	FacetMetaDescription,
	FacetKeywords,
	FacetLinks,
	FacetMobileFriendly,
	FacetResponsive,
	FacetMobileReachable,
	FacetCookies,
	FacetAnalytics,
}

// Valid reports whether f is a known facet.
func (f Facet) Valid() bool {
	_, ok := collectors[f]
	return ok
}

// ParseFacets turns user input into a de-duplicated facet list. Each value may
// hold several comma separated names; "default" and "all" expand to the
// corresponding sets. No input yields DefaultFacets.
func ParseFacets(values []string) ([]Facet, error) {
	var facets []Facet
	seen := make(map[Facet]bool)
	add := func(fs ...Facet) {
		for _, f := range fs {
			if !seen[f] {
				seen[f] = true
				facets = append(facets, f)
			}
		}
	}

	for _, value := range values {
		for _, name := range strings.Split(value, ",") {
			name = strings.ToLower(strings.TrimSpace(name))
			switch name {
			case "":
				continue
			case "all":
				add(AllFacets...)
			case "default":
				add(DefaultFacets...)
			default:
				f := Facet(name)
				if !f.Valid() {
					return nil, fmt.Errorf("%w: unknown facet %q", sherrors.ErrInvalidInput, name)
				}
				add(f)
			}
		}
	}

	if len(facets) == 0 {
		return append([]Facet(nil), DefaultFacets...), nil
	}
	return facets, nil
}
