// Package tlscapture implements the raw-TLS certificate capture client
// (C3.4.3.3): it opens a TCP connection, performs a TLS handshake with a
// verifier that accepts every certificate (expired, self-signed, unknown
// CA), forces the handshake to complete with a minimal HTTP HEAD request,
// and projects the leaf certificate into a CertificateSummary (spec §3,
// §4.3.3).
//
// There is no library in the examined corpus for "handshake and grab the
// peer cert unconditionally" — every pack repo either terminates TLS
// normally (accepting the platform's CA set) or doesn't touch TLS at all
// — so this is grounded directly on crypto/tls per spec §4.3.3's exact
// algorithm, with the teacher's io-then-wrap error idiom for anything
// that can fail.
package tlscapture

import (
	"context"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
	"fmt"
	"net"
	"strings"
	"time"

	"whoisd/internal/whoiserr"
)

// CertificateSummary projects the leaf certificate of a TLS handshake
// (spec §3).
type CertificateSummary struct {
	Subject      string
	Issuer       string
	NotBefore    time.Time
	NotAfter     time.Time
	IsSelfSigned bool
	SHA1         string
	SHA256       string
	DNSNames     []string
}

// DefaultTimeout is the connect+handshake deadline applied when the
// caller's context carries no deadline of its own.
const DefaultTimeout = 10 * time.Second

// Capture connects to host:port, completes a TLS handshake accepting any
// certificate, and returns the leaf certificate's summary.
func Capture(ctx context.Context, host string, port int) (CertificateSummary, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultTimeout)
		defer cancel()
	}

	addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))
	var d net.Dialer
	rawConn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return CertificateSummary{}, whoiserr.Upstream(host, "TCP connect failed", err)
	}
	defer rawConn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = rawConn.SetDeadline(deadline)
	}

	conn := tls.Client(rawConn, &tls.Config{
		ServerName:         host,
		InsecureSkipVerify: true, // deliberate: capture whatever certificate is presented
	})
	defer conn.Close()

	if err := conn.HandshakeContext(ctx); err != nil {
		return CertificateSummary{}, whoiserr.Upstream(host, "TLS handshake failed", err)
	}

	// A HEAD request forces some servers to finish writing post-handshake
	// session data before the peer certificates are considered final.
	if _, err := conn.Write([]byte("HEAD / HTTP/1.0\r\nHost: " + host + "\r\nConnection: close\r\n\r\n")); err != nil {
		return CertificateSummary{}, whoiserr.Upstream(host, "writing HEAD request", err)
	}

	state := conn.ConnectionState()
	if len(state.PeerCertificates) == 0 {
		return CertificateSummary{}, whoiserr.Upstream(host, "no peer certificates presented", nil)
	}

	leaf := state.PeerCertificates[0]
	return summarize(leaf), nil
}

func summarize(cert *x509.Certificate) CertificateSummary {
	sha1sum := sha1.Sum(cert.Raw)
	sha256sum := sha256.Sum256(cert.Raw)

	return CertificateSummary{
		Subject:      cert.Subject.String(),
		Issuer:       cert.Issuer.String(),
		NotBefore:    cert.NotBefore,
		NotAfter:     cert.NotAfter,
		IsSelfSigned: cert.Subject.String() == cert.Issuer.String(),
		SHA1:         colonHex(sha1sum[:]),
		SHA256:       colonHex(sha256sum[:]),
		DNSNames:     cert.DNSNames,
	}
}

// colonHex renders b as lowercase hex byte pairs separated by ':', e.g.
// "ab:cd:ef" (spec §4.3.3).
func colonHex(b []byte) string {
	hexStr := hex.EncodeToString(b)
	var sb strings.Builder
	for i := 0; i < len(hexStr); i += 2 {
		if i > 0 {
			sb.WriteByte(':')
		}
		sb.WriteString(hexStr[i : i+2])
	}
	return sb.String()
}

