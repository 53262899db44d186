package handlers

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"whoisd/internal/query"
	"whoisd/internal/upstream/whoisclient"
)

func init() {
	register("EMAIL", handleEmail)
}

var emailAddressRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

// handleEmail fetches the ordinary WHOIS record for the base query and
// scrapes it for email addresses (spec §4.6 "-EMAIL": "search for email
// addresses in WHOIS data", grounded on help.rs's description; no upstream
// source beyond the default referral-following lookup is implicated).
func handleEmail(d *Deps, ctx context.Context, q query.Query) []byte {
	host := hostForQuery(ctx, q)
	body, _, err := whoisclient.FetchWithReferral(ctx, q.Normalized, host)
	if err != nil {
		return []byte(fmt.Sprintf("%% Error: WHOIS lookup failed for %s: %s\n", q.Normalized, err))
	}

	matches := emailAddressRe.FindAllString(body, -1)
	seen := map[string]struct{}{}
	var emails []string
	for _, m := range matches {
		lower := strings.ToLower(m)
		if _, dup := seen[lower]; dup {
			continue
		}
		seen[lower] = struct{}{}
		emails = append(emails, m)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%% Email addresses found in WHOIS data for %s\n%%\n", q.Normalized)
	if len(emails) == 0 {
		sb.WriteString("% No email addresses found\n")
		return []byte(sb.String())
	}
	for _, e := range emails {
		fmt.Fprintf(&sb, "email: %s\n", e)
	}
	fmt.Fprintf(&sb, "\n%% Total: %d email address(es)\n", len(emails))
	return []byte(sb.String())
}
