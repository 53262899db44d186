// Package whoisclient wraps github.com/domainr/whois for the default (no
// suffix tag) query handler and the IRR-style host-table handlers (C6):
// it fetches a WHOIS response from a specific server and follows at most
// one "refer:" redirection, per spec §4.6 ("the default WHOIS handler
// retries a refer: exactly once; deeper chains are truncated with a
// note").
//
// Adapted from whoisFetchAtHost/findWhoisValue in the teacher's
// internal/registrydata/whois.go; the k8s Registration-struct parsing
// that surrounded those two helpers was dropped since this server
// returns RPSL text verbatim rather than a structured CRD object.
package whoisclient

import (
	"context"
	"strings"

	whois "github.com/domainr/whois"

	"whoisd/internal/whoiserr"
)

// MaxReferralDepth bounds referral-following to exactly one hop, per
// spec §4.6 and §9.
const MaxReferralDepth = 1

// FetchAtHost performs a single WHOIS query at host and returns the raw
// response body.
func FetchAtHost(ctx context.Context, query, host string) (string, error) {
	req, err := whois.NewRequest(query)
	if err != nil {
		return "", whoiserr.Wrap(whoiserr.InvalidQuery, "malformed WHOIS query", err)
	}
	req.Host = host
	resp, err := whois.DefaultClient.FetchContext(ctx, req)
	if err != nil {
		return "", whoiserr.Upstream(host, "WHOIS fetch failed", err)
	}
	return string(resp.Body), nil
}

// FetchWithReferral queries host, and if the response contains a "refer:"
// line naming a different server, follows it exactly once and
// concatenates both bodies. The returned note is non-empty when a deeper
// referral chain was truncated.
func FetchWithReferral(ctx context.Context, query, host string) (body string, note string, err error) {
	first, err := FetchAtHost(ctx, query, host)
	if err != nil {
		return "", "", err
	}

	refer := FindValue(first, []string{"refer", "ReferralServer"})
	refer = strings.TrimPrefix(refer, "whois://")
	refer = strings.TrimSpace(refer)
	if refer == "" || strings.EqualFold(refer, host) {
		return first, "", nil
	}

	second, err := FetchAtHost(ctx, query, refer)
	if err != nil {
		// The referral target failing doesn't invalidate the first response.
		return first, "", nil
	}

	combined := first + "\n" + second
	if again := FindValue(second, []string{"refer", "ReferralServer"}); again != "" {
		combined += "\n% referral chain truncated after one hop\n"
		note = "referral chain truncated after one hop"
	}
	return combined, note, nil
}

// FindValue scans a WHOIS body for the first "Key: value" line (case
// insensitive) whose key matches one of keys, tolerating irregular
// whitespace around the colon.
func FindValue(body string, keys []string) string {
	keySet := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		keySet[strings.ToLower(strings.TrimSpace(k))] = struct{}{}
	}
	for _, line := range strings.Split(body, "\n") {
		l := strings.TrimSpace(line)
		if l == "" || strings.HasPrefix(l, "%") {
			continue
		}
		idx := strings.IndexByte(l, ':')
		if idx <= 0 {
			continue
		}
		left := strings.ToLower(strings.TrimSpace(l[:idx]))
		right := strings.TrimSpace(l[idx+1:])
		if _, ok := keySet[left]; ok {
			return right
		}
	}
	return ""
}
