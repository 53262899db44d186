package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"whoisd/internal/maintainer"
	"whoisd/internal/query"
)

func init() {
	register("PEN", handlePEN)
}

// renderPenEntry renders a single IANA Private Enterprise Number entry in
// WHOIS style (spec §4.6 "-PEN", grounded on PenEntry::to_whois_format).
func renderPenEntry(e maintainer.PenEntry) string {
	return fmt.Sprintf(
		"%% IANA Private Enterprise Number (PEN) Information\n"+
			"%% https://www.iana.org/assignments/enterprise-numbers\n\n"+
			"Enterprise-Number: %d\n"+
			"OID: %s\n"+
			"OID-Prefix: iso.org.dod.internet.private.enterprise (1.3.6.1.4.1)\n"+
			"Organization: %s\n"+
			"Contact: %s\n"+
			"Email: %s\n\n"+
			"%% This information is provided for informational purposes only.\n"+
			"%% Data source: IANA Enterprise Numbers Registry\n"+
			"%% Last updated: %s\n",
		e.Number, e.OID, e.Organization, e.Contact, e.Email,
		time.Unix(e.CachedAt, 0).UTC().Format("2006-01-02 15:04:05 UTC"),
	)
}

// handlePEN looks up an IANA Private Enterprise Number by exact number, or
// else fuzzy-searches organization/contact/email, capped at
// maintainer.PenSearchCap results (spec §4.6 "-PEN").
func handlePEN(d *Deps, ctx context.Context, q query.Query) []byte {
	query := strings.TrimSpace(q.Normalized)

	if d.Pen == nil {
		return []byte("% PEN lookup is currently unavailable\n")
	}

	if number, err := strconv.ParseUint(query, 10, 32); err == nil {
		entry, found, lookupErr := d.Pen.LookupNumber(uint32(number))
		if lookupErr != nil {
			return []byte(fmt.Sprintf("%% Error: PEN lookup failed: %s\n", lookupErr))
		}
		if !found {
			return []byte(fmt.Sprintf("%% IANA Private Enterprise Number %d not found.\n%% The number may not be assigned yet, or the database needs updating.\n", number))
		}
		return []byte(renderPenEntry(entry))
	}

	result, err := d.Pen.Search(query)
	if err != nil {
		return []byte(fmt.Sprintf("%% Error: PEN search failed: %s\n", err))
	}
	if len(result.Entries) == 0 {
		return []byte(fmt.Sprintf("%% No results found for query: %s\n%% Try searching by enterprise number or organization name.\n", query))
	}

	var sb strings.Builder
	for i, e := range result.Entries {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(renderPenEntry(e))
	}
	if result.Truncated {
		fmt.Fprintf(&sb, "\n%% Search limited to %d results. Please refine your query for more specific results.\n", maintainer.PenSearchCap)
	}
	return []byte(sb.String())
}
