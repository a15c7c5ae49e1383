package inspector

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"time"

	consts "github.com/khanhnv2901/sitesniffer/internal/shared/constants"
	sherrors "github.com/khanhnv2901/sitesniffer/internal/shared/errors"
	"go.uber.org/zap"
)

// SSLInfo describes the leaf certificate presented by the target.
type SSLInfo struct {
	Issuer             string    `json:"issuer"`
	Subject            string    `json:"subject"`
	NotBefore          time.Time `json:"not_before"`
	NotAfter           time.Time `json:"not_after"`
	SerialNumber       string    `json:"serial_number"`
	DNSNames           []string  `json:"dns_names,omitempty"`
	SignatureAlgorithm string    `json:"signature_algorithm,omitempty"`
	TLSVersion         string    `json:"tls_version,omitempty"`
}

// DaysRemaining returns whole days until NotAfter, negative once expired.
func (s *SSLInfo) DaysRemaining(now time.Time) int {
	return int(s.NotAfter.Sub(now).Hours() / 24)
}

// ExpiresSoon reports whether the certificate expires inside the warning window.
func (s *SSLInfo) ExpiresSoon(now time.Time) bool {
	return s.NotAfter.Sub(now) < consts.TLSSoonExpiryWindow
}

// SSLInfo performs a TLS handshake directly against the target and returns
// the certificate it presents. Targets that do not use https fail with
// ErrNotSecure before any connection is attempted. A failed handshake or an
// invalid certificate is reported as ErrCertificate.
func (in *Inspector) SSLInfo(ctx context.Context) (*SSLInfo, error) {
	const op = "ssl_info"
	if !in.target.IsSecure() {
		return nil, in.fail(op, sherrors.ErrNotSecure, nil)
	}

	ctx, cancel := in.withTimeout(ctx)
	defer cancel()

	port := in.target.Port
	if port == "" {
		port = consts.DefaultTLSPort
	}
	addr := net.JoinHostPort(in.target.ASCIIHost, port)

	raw, err := in.cfg.Dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, in.fail(op, transportKind(err), err)
	}
	defer raw.Close()

	var tlsCfg *tls.Config
	if in.cfg.TLSConfig != nil {
		tlsCfg = in.cfg.TLSConfig.Clone()
	} else {
		tlsCfg = &tls.Config{}
	}
	if tlsCfg.ServerName == "" {
		tlsCfg.ServerName = in.target.ASCIIHost
	}

	conn := tls.Client(raw, tlsCfg)
	if err := conn.HandshakeContext(ctx); err != nil {
		kind := sherrors.ErrCertificate
		if errors.Is(err, context.Canceled) || isTimeout(err) {
			kind = contextKind(err)
		}
		return nil, in.fail(op, kind, err)
	}
	defer conn.Close()

	state := conn.ConnectionState()
	if len(state.PeerCertificates) == 0 {
		return nil, in.fail(op, sherrors.ErrCertificate, errors.New("no peer certificate presented"))
	}

	info := newSSLInfo(state.PeerCertificates[0], state.Version)
	in.logger.Debug("certificate inspected",
		zap.String("issuer", info.Issuer),
		zap.Time("not_after", info.NotAfter),
	)
	return info, nil
}

func newSSLInfo(cert *x509.Certificate, version uint16) *SSLInfo {
	info := &SSLInfo{
		Issuer:             cert.Issuer.String(),
		Subject:            cert.Subject.String(),
		NotBefore:          cert.NotBefore.UTC(),
		NotAfter:           cert.NotAfter.UTC(),
		DNSNames:           append([]string(nil), cert.DNSNames...),
		SignatureAlgorithm: cert.SignatureAlgorithm.String(),
		TLSVersion:         tlsVersionString(version),
	}
	if cert.SerialNumber != nil {
		info.SerialNumber = fmt.Sprintf("%X", cert.SerialNumber)
	}
	return info
}

// tlsVersionString converts TLS version constant to string
func tlsVersionString(version uint16) string {
	switch version {
	case tls.VersionTLS10:
		return "TLS 1.0"
	case tls.VersionTLS11:
		return "TLS 1.1"
	case tls.VersionTLS12:
		return "TLS 1.2"
	case tls.VersionTLS13:
		return "TLS 1.3"
	default:
		return fmt.Sprintf("Unknown (0x%04x)", version)
	}
}
