package handlers

import (
	"context"
	"fmt"

	"whoisd/internal/query"
	"whoisd/internal/upstream/whoisclient"
)

// storageKeyFor maps a classified query to the conventional storage
// category spec §4.6 names: "aut-num/ASxxxx", "inetnum/...", "domain/...".
func storageKeyFor(q query.Query) (string, bool) {
	switch q.Kind {
	case query.KindASN:
		return "aut-num/" + q.Normalized, true
	case query.KindIPv4, query.KindIPv6, query.KindCIDR:
		return "inetnum/" + q.Normalized, true
	case query.KindDomain:
		return "domain/" + q.Normalized, true
	default:
		return "", false
	}
}

// handleDefault serves the untagged domain/IP/ASN/CIDR lookup: a storage
// hit returns the RPSL text verbatim; a miss falls through to a live
// WHOIS-over-TCP query against a host chosen by query shape, following at
// most one referral (spec §4.6 "Default").
func (d *Deps) handleDefault(ctx context.Context, q query.Query) []byte {
	if key, ok := storageKeyFor(q); ok {
		if v, found, err := d.Store.Get(key); err == nil && found {
			return v
		}
	}

	if q.Kind == query.KindBare {
		return []byte(fmt.Sprintf("%% No match found for %s\n", q.Raw))
	}

	host := hostForQuery(ctx, q)
	body, note, err := whoisclient.FetchWithReferral(ctx, q.Normalized, host)
	if err != nil {
		return []byte(fmt.Sprintf("%% WHOIS lookup failed for %s: %s\n", q.Normalized, err))
	}
	if note != "" {
		body += "\n% " + note + "\n"
	}
	return []byte(body)
}

func hostForQuery(ctx context.Context, q query.Query) string {
	switch q.Kind {
	case query.KindDomain:
		return whoisclient.HostForDomain(ctx, q.Normalized)
	case query.KindASN:
		return whoisclient.DefaultHost
	default:
		return whoisclient.DefaultHost
	}
}
