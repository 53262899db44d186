package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"whoisd/internal/query"
)

func init() {
	register("MANRS", handleMANRS)
}

// handleMANRS consults the cached MANRS membership set, refreshing it if
// stale; a refresh failure still serves the stale set, annotated (spec
// §4.6 "-MANRS", §4.7).
func handleMANRS(d *Deps, ctx context.Context, q query.Query) []byte {
	asnStr := strings.TrimPrefix(strings.ToUpper(q.Normalized), "AS")
	asn, err := strconv.ParseUint(asnStr, 10, 64)
	if err != nil {
		return []byte(fmt.Sprintf("%% MANRS Query Error: invalid ASN format in query '%s'\n%% Expected format: AS<number>-MANRS or <number>-MANRS\n", q.Raw))
	}

	set, found, getErr := d.Membership.Get()
	isStale := getErr != nil || d.Membership.Stale(set, found)
	if isStale {
		if refreshErr := d.Membership.RefreshNow(ctx); refreshErr == nil {
			set, found, _ = d.Membership.Get()
			isStale = false
		}
	}
	if !found {
		return []byte("% MANRS Information: Unable to determine membership status\n% This could be due to network connectivity issues or API unavailability.\n")
	}

	isMember := false
	for _, m := range set.Members {
		if m == asn {
			isMember = true
			break
		}
	}

	status := "NON-MEMBER"
	if isMember {
		status = "MEMBER"
	}

	var sb strings.Builder
	sb.WriteString("% MANRS (Mutually Agreed Norms for Routing Security) Information\n%\n")
	fmt.Fprintf(&sb, "aut-num:            AS%d\n", asn)
	fmt.Fprintf(&sb, "status:             %s\n", status)
	fmt.Fprintf(&sb, "total-members:      %d\n", len(set.Members))
	fmt.Fprintf(&sb, "updated-time:       %s\n", time.Unix(set.UpdatedAt, 0).UTC().Format("2006-01-02 15:04:05 UTC"))
	if isStale {
		sb.WriteString("% Note: serving cached data; last refresh attempt failed\n")
	}
	sb.WriteString("%\n% For more information about MANRS, visit: https://www.manrs.org/\n%\n")
	return []byte(sb.String())
}
