package handlers

import (
	"context"
	"net"

	"whoisd/internal/query"
)

func init() {
	register("DNS", handleDNS)
}

// handleDNS performs an iterative DNS lookup of every common record type
// for a domain, or a reverse PTR lookup for an IP (spec §4.6 "-DNS").
func handleDNS(d *Deps, ctx context.Context, q query.Query) []byte {
	if d.Resolver == nil {
		return []byte("% DNS resolution is currently unavailable\n")
	}
	if ip := net.ParseIP(q.Normalized); ip != nil {
		return []byte(d.Resolver.ReverseLookup(ctx, ip))
	}
	return []byte(d.Resolver.QueryAll(ctx, q.Normalized))
}
