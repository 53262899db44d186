package handlers

import (
	"context"
	"fmt"
	"strings"

	"whoisd/internal/query"
	"whoisd/internal/upstream/whoisclient"
)

func init() {
	register("BGPTOOL", handleBGPTool)
}

// bgpToolsHost is bgp.tools's own public WHOIS proxy, which answers ASN
// and prefix queries with routing analysis and statistics text (spec §4.6
// "-BGPTOOL": "BGP routing analysis and statistics", grounded on help.rs's
// description; fetched the same way as the IRR-family host-table
// handlers).
const bgpToolsHost = "bgp.tools"

// handleBGPTool queries bgp.tools' WHOIS service for routing analysis of
// an ASN or prefix.
func handleBGPTool(d *Deps, ctx context.Context, q query.Query) []byte {
	body, err := whoisclient.FetchAtHost(ctx, q.Normalized, bgpToolsHost)
	if err != nil {
		return []byte(fmt.Sprintf("%% Error: BGP routing analysis failed for %s: %s\n", q.Normalized, err))
	}
	if strings.TrimSpace(body) == "" {
		return []byte(fmt.Sprintf("%% No BGP routing data found for %s\n", q.Normalized))
	}
	return []byte(body)
}
