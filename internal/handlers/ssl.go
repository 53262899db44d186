package handlers

import (
	"context"
	"fmt"
	"strings"

	"whoisd/internal/query"
	"whoisd/internal/upstream/tlscapture"
)

func init() {
	register("SSL", handleSSL)
}

// handleSSL performs a raw-TLS capture against the stripped query (host,
// optionally host:port) and formats the resulting CertificateSummary
// (spec §4.6 "-SSL", grounded on §4.3.3).
func handleSSL(d *Deps, ctx context.Context, q query.Query) []byte {
	host, port := splitHostPort(q.Normalized, 443)

	summary, err := tlscapture.Capture(ctx, host, port)
	if err != nil {
		return []byte(fmt.Sprintf("%% SSL certificate capture failed for %s: %s\n", q.Raw, err))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%% TLS Certificate Information for %s\n%%\n", host)
	fmt.Fprintf(&sb, "subject:        %s\n", summary.Subject)
	fmt.Fprintf(&sb, "issuer:         %s\n", summary.Issuer)
	fmt.Fprintf(&sb, "not-before:     %s\n", summary.NotBefore.UTC().Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(&sb, "not-after:      %s\n", summary.NotAfter.UTC().Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(&sb, "self-signed:    %t\n", summary.IsSelfSigned)
	fmt.Fprintf(&sb, "sha1:           %s\n", summary.SHA1)
	fmt.Fprintf(&sb, "sha256:         %s\n", summary.SHA256)
	if len(summary.DNSNames) > 0 {
		fmt.Fprintf(&sb, "dns-names:      %s\n", strings.Join(summary.DNSNames, ", "))
	}
	return []byte(sb.String())
}

// splitHostPort splits a "host:port" query remainder, defaulting port when
// absent or unparsable.
func splitHostPort(s string, defaultPort int) (string, int) {
	idx := strings.LastIndex(s, ":")
	if idx < 0 {
		return s, defaultPort
	}
	host, portStr := s[:idx], s[idx+1:]
	port := 0
	for _, c := range portStr {
		if c < '0' || c > '9' {
			return s, defaultPort
		}
		port = port*10 + int(c-'0')
	}
	if port == 0 {
		return s, defaultPort
	}
	return host, port
}
