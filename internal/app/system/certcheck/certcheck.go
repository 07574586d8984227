// internal/app/system/certcheck/certcheck.go
package certcheck

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"
)

// ErrNotTLS is returned for URLs that are not https.
var ErrNotTLS = errors.New("url does not use https")

// ExpiryWarning is how close to expiry a certificate is reported as expiring.
const ExpiryWarning = 14 * 24 * time.Hour

// Info describes the certificate an upstream host presented.
type Info struct {
	Host      string    `json:"host"`
	CheckedAt time.Time `json:"checked_at"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
	DaysLeft  int       `json:"days_left"`
	Issuer    string    `json:"issuer,omitempty"`
	Valid     bool      `json:"valid"`
	Error     string    `json:"error,omitempty"`
}

// Expiring reports whether a valid certificate expires within ExpiryWarning.
func (i Info) Expiring() bool {
	return i.Valid && i.ExpiresAt.Sub(i.CheckedAt) < ExpiryWarning
}

// State is a one-word summary: "ok", "expiring" or "invalid".
func (i Info) State() string {
	switch {
	case !i.Valid:
		return "invalid"
	case i.Expiring():
		return "expiring"
	default:
		return "ok"
	}
}

// Check performs a TLS handshake with the host of rawURL and reports on the
// leaf certificate. cfg may be nil; its ServerName is filled in from the URL.
// A failed handshake is reported in Info.Error with a nil error; the error
// return is reserved for URLs that cannot be checked at all.
func Check(ctx context.Context, rawURL string, cfg *tls.Config, now time.Time) (Info, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Info{}, fmt.Errorf("parse %q: %w", rawURL, err)
	}
	if u.Scheme != "https" {
		return Info{}, ErrNotTLS
	}
	host := u.Hostname()
	if host == "" {
		return Info{}, fmt.Errorf("no host in %q", rawURL)
	}
	port := u.Port()
	if port == "" {
		port = "443"
	}

	info := Info{Host: host, CheckedAt: now}

	tcfg := &tls.Config{}
	if cfg != nil {
		tcfg = cfg.Clone()
	}
	if tcfg.ServerName == "" {
		tcfg.ServerName = host
	}

	dialer := &tls.Dialer{Config: tcfg}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, port))
	if err != nil {
		info.Error = fmt.Sprintf("handshake failed: %v", err)
		return info, nil
	}
	defer conn.Close()

	certs := conn.(*tls.Conn).ConnectionState().PeerCertificates
	if len(certs) == 0 {
		info.Error = "no certificates presented"
		return info, nil
	}

	cert := certs[0]
	info.ExpiresAt = cert.NotAfter
	info.DaysLeft = int(cert.NotAfter.Sub(now).Hours() / 24)
	info.Issuer = cert.Issuer.CommonName
	info.Valid = now.Before(cert.NotAfter) && now.After(cert.NotBefore)
	if !info.Valid {
		info.Error = "certificate outside its validity period"
	}
	return info, nil
}
