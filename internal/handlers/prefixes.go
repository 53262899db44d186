package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"whoisd/internal/enrich"
	"whoisd/internal/query"
)

func init() {
	register("PREFIXES", handlePrefixes)
}

type ripestatAnnouncedPrefixes struct {
	Data struct {
		Prefixes []struct {
			Prefix string `json:"prefix"`
		} `json:"prefixes"`
	} `json:"data"`
}

type ipinfoASNResponse struct {
	Country string `json:"country"`
	ASName  string `json:"as_name"`
}

// extractIPFromPrefix returns the network address portion of a CIDR
// prefix, for use as the representative IP in an IPinfo lookup.
func extractIPFromPrefix(prefix string) string {
	if idx := strings.Index(prefix, "/"); idx >= 0 {
		return prefix[:idx]
	}
	return prefix
}

// handlePrefixes fetches the set of prefixes currently announced by an
// ASN from RIPEstat, then fans out via the enrichment coordinator to tag
// each with country and AS-name from IPinfo, rendering a column-width-
// adaptive table (spec §4.6 "-PREFIXES", grounded on
// geo/formatters.rs's format_prefixes_response).
func handlePrefixes(d *Deps, ctx context.Context, q query.Query) []byte {
	asn := q.Normalized

	var prefixesResp ripestatAnnouncedPrefixes
	if err := d.fetchJSON(ctx, "https://stat.ripe.net/data/announced-prefixes/data.json?resource="+url.QueryEscape(asn), &prefixesResp); err != nil {
		return []byte(fmt.Sprintf("%% Error: could not fetch prefixes for %s: %s\n", asn, err))
	}
	prefixes := prefixesResp.Data.Prefixes
	if len(prefixes) == 0 {
		return []byte("% No announced prefixes found\n")
	}

	tasks := make([]enrich.Task, len(prefixes))
	for i, p := range prefixes {
		prefix := p.Prefix
		tasks[i] = enrich.Task{
			ID:      prefix,
			Timeout: 8 * time.Second,
			Run: func(ctx context.Context) ([]byte, error) {
				var resp ipinfoASNResponse
				ip := extractIPFromPrefix(prefix)
				if err := d.fetchJSON(ctx, "https://ipinfo.io/"+ip+"/json", &resp); err != nil {
					return json.Marshal(ipinfoASNResponse{Country: "N/A", ASName: "N/A"})
				}
				if resp.Country == "" {
					resp.Country = "N/A"
				}
				if resp.ASName == "" {
					resp.ASName = "N/A"
				}
				return json.Marshal(resp)
			},
		}
	}

	results := enrich.RunAll(ctx, tasks, d.MaxParallel, 30*time.Second)

	type row struct{ prefix, country, asName string }
	rows := make([]row, 0, len(results))
	prefixWidth, countryWidth, asWidth := len("Prefix"), len("Country"), len("AS Name")
	for _, r := range results {
		country, asName := "N/A", "N/A"
		if r.Err == nil {
			var resp ipinfoASNResponse
			if json.Unmarshal(r.Value, &resp) == nil {
				country, asName = resp.Country, resp.ASName
			}
		}
		rows = append(rows, row{r.ID, country, asName})
		prefixWidth = maxInt(prefixWidth, len(r.ID))
		countryWidth = maxInt(countryWidth, len(country))
		asWidth = maxInt(asWidth, len(asName))
	}

	var sb strings.Builder
	sb.WriteString("% ASN Announced Prefixes Query\n% Data from RIPE NCC STAT\n")
	fmt.Fprintf(&sb, "%% Query: %s\n\n", asn)
	sb.WriteString("Currently Announced Prefixes\n============================\n\n")
	fmt.Fprintf(&sb, "%-*s | %-*s | %-*s\n", prefixWidth, "Prefix", countryWidth, "Country", asWidth, "AS Name")
	fmt.Fprintf(&sb, "%s-|-%s-|-%s\n", strings.Repeat("-", prefixWidth), strings.Repeat("-", countryWidth), strings.Repeat("-", asWidth))
	for _, rw := range rows {
		fmt.Fprintf(&sb, "%-*s | %-*s | %-*s\n", prefixWidth, rw.prefix, countryWidth, rw.country, asWidth, rw.asName)
	}
	fmt.Fprintf(&sb, "\n%% Total announced prefixes: %d\n", len(rows))
	return []byte(sb.String())
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
