package constants

import (
	"io/fs"
	"time"
)

const (
	// DefaultDirPerm is the default permission used when creating directories.
	DefaultDirPerm fs.FileMode = 0o755
	// DefaultFilePerm is the default permission used when creating files.
	DefaultFilePerm fs.FileMode = 0o644
)

const (
	// DefaultScheme is assumed when the input URL carries no "://".
	DefaultScheme = "http"
	// SecureScheme is the only scheme ssl inspection accepts.
	SecureScheme = "https"
	// DefaultTLSPort is dialed for certificate inspection when the URL has no port.
	DefaultTLSPort = "443"
)

const (
	// DefaultTimeout bounds every network interaction of a single accessor.
	DefaultTimeout = 10 * time.Second
	// DefaultMaxRedirects is the number of redirects followed before giving up.
	DefaultMaxRedirects = 5
	// DefaultWhoisTimeout bounds a single WHOIS exchange.
	DefaultWhoisTimeout = 15 * time.Second
	// MaxPageBytes caps how much of a page body is kept in a snapshot.
	MaxPageBytes = 5 << 20
	// TLSSoonExpiryWindow flags certificates that expire inside this window.
	TLSSoonExpiryWindow = 14 * 24 * time.Hour
)

const (
	// DefaultUserAgent identifies the inspector on outgoing requests.
	DefaultUserAgent = "sitesniffer/1.0 (+https://github.com/khanhnv2901/sitesniffer)"
	// MobileUserAgent is sent by the mobile reachability check.
	MobileUserAgent = "Mozilla/5.0 (iPhone; CPU iPhone OS 15_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/15.0 Mobile/15E148 Safari/604.1"
)
