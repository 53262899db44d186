package handlers

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"whoisd/internal/query"
	"whoisd/internal/upstream/apiclient"
)

// crtClient carries crt.sh's own descriptive User-Agent (it rejects the
// generic browser one shared by plainClient) and a longer timeout, since CT
// log queries can be slow on popular domains.
var crtClient = func() *apiclient.Client {
	c := apiclient.New(20 * time.Second)
	c.UserAgent = "Mozilla/5.0 (WHOIS Server; Certificate Transparency Lookup)"
	return c
}()

func init() {
	register("CRT", handleCRT)
}

// crtEntry mirrors crt.sh's JSON projection (original_source/src/services/crt.rs
// CrtEntry): issuer_ca_id, issuer_name, common_name, name_value, id,
// entry_timestamp, not_before, not_after, serial_number.
type crtEntry struct {
	IssuerCAID      uint64 `json:"issuer_ca_id"`
	IssuerName      string `json:"issuer_name"`
	CommonName      string `json:"common_name"`
	NameValue       string `json:"name_value"`
	ID              uint64 `json:"id"`
	EntryTimestamp  string `json:"entry_timestamp"`
	NotBefore       string `json:"not_before"`
	NotAfter        string `json:"not_after"`
	SerialNumber    string `json:"serial_number"`
}

var crtTimeLayouts = []string{
	"2006-01-02T15:04:05.999Z",
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04:05",
}

func parseCrtTime(s string) (time.Time, bool) {
	for _, layout := range crtTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// handleCRT queries crt.sh for certificate-transparency log entries,
// keeps only currently-valid certificates, deduplicates by
// (serial, issuer), and renders them sorted by expiry descending
// (spec §4.6 "-CRT").
func handleCRT(d *Deps, ctx context.Context, q query.Query) []byte {
	domain := q.Normalized
	reqURL := "https://crt.sh/json?q=" + url.QueryEscape(domain)

	var entries []crtEntry
	if err := d.fetchJSONVia(ctx, crtClient, reqURL, &entries); err != nil {
		return []byte(fmt.Sprintf("%% Certificate Transparency query failed for %s: %s\n", domain, err))
	}

	now := time.Now()
	type valid struct {
		entry     crtEntry
		notBefore time.Time
		notAfter  time.Time
	}
	var validCerts []valid
	for _, e := range entries {
		nb, ok1 := parseCrtTime(e.NotBefore)
		na, ok2 := parseCrtTime(e.NotAfter)
		if !ok1 || !ok2 {
			continue
		}
		if now.Before(nb) || now.After(na) {
			continue
		}
		validCerts = append(validCerts, valid{e, nb, na})
	}
	sort.Slice(validCerts, func(i, j int) bool { return validCerts[i].notAfter.After(validCerts[j].notAfter) })

	seen := make(map[string]bool)
	var out []valid
	for _, v := range validCerts {
		key := v.entry.SerialNumber + ":" + v.entry.IssuerName
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Certificate Transparency Query Results for: %s\n", domain)
	if len(out) == 0 {
		sb.WriteString("\nNo valid (non-expired) certificates found in Certificate Transparency logs.\n")
		return []byte(sb.String())
	}
	fmt.Fprintf(&sb, "Found %d valid (non-expired) certificates from CT logs\n", len(out))
	sb.WriteString(strings.Repeat("=", 80) + "\n")

	for i, v := range out {
		fmt.Fprintf(&sb, "\n[%d] Certificate #%d\n", i+1, v.entry.ID)
		cn := v.entry.CommonName
		if cn == "" {
			names := strings.Split(v.entry.NameValue, "\n")
			if len(names) > 0 {
				cn = strings.TrimSpace(names[0])
			}
		}
		fmt.Fprintf(&sb, "Common Name: %s\n", cn)
		fmt.Fprintf(&sb, "Issuer: %s\n", v.entry.IssuerName)
		fmt.Fprintf(&sb, "Serial Number: %s\n", v.entry.SerialNumber)
		fmt.Fprintf(&sb, "Valid From: %s\n", v.notBefore.UTC().Format("2006-01-02 15:04:05 UTC"))
		fmt.Fprintf(&sb, "Valid Until: %s\n", v.notAfter.UTC().Format("2006-01-02 15:04:05 UTC"))
	}
	sb.WriteString("\nNote: Data sourced from Certificate Transparency logs via crt.sh\n")
	return []byte(sb.String())
}
