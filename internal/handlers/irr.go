package handlers

import (
	"context"
	"fmt"

	"whoisd/internal/query"
	"whoisd/internal/upstream/whoisclient"
)

func init() {
	tags := make([]string, 0, len(whoisclient.IRRHosts))
	for tag := range whoisclient.IRRHosts {
		tags = append(tags, tag)
	}
	registerAll(tags, handleIRR)
}

// handleIRR queries the routing registry WHOIS server associated with the
// query's suffix tag directly (no referral-following, unlike the default
// handler), per spec §4.6's IRR-family tags (IRR, LG, RADB, ALTDB,
// AFRINIC, APNIC, ARIN, BELL, JPIRR, LACNIC, LEVEL3, NTTCOM, RIPE, TC).
func handleIRR(d *Deps, ctx context.Context, q query.Query) []byte {
	host, ok := whoisclient.IRRHosts[q.Tag]
	if !ok {
		return []byte(fmt.Sprintf("%% Error: no routing registry configured for tag %s\n", q.Tag))
	}
	body, err := whoisclient.FetchAtHost(ctx, q.Normalized, host)
	if err != nil {
		return []byte(fmt.Sprintf("%% Error: %s query failed: %s\n", q.Tag, err))
	}
	return []byte(body)
}
