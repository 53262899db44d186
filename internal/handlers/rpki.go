package handlers

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"whoisd/internal/query"
)

func init() {
	register("RPKI", handleRPKI)
}

// parseRPKIQuery splits the tri-part "<prefix>-<origin-asn>-RPKI" query
// (already stripped of its -RPKI suffix by the classifier) into prefix and
// ASN, per spec §4.6 "-RPKI". The prefix may itself contain hyphens only
// inside the optional CIDR length, so we split on the LAST hyphen.
func parseRPKIQuery(s string) (prefix, asn string, ok bool) {
	idx := strings.LastIndex(s, "-")
	if idx < 0 {
		return "", "", false
	}
	prefix, asn = s[:idx], s[idx+1:]
	asn = strings.TrimPrefix(strings.ToUpper(asn), "AS")
	if prefix == "" || asn == "" {
		return "", "", false
	}
	return prefix, asn, true
}

type rpkiValidatorResponse struct {
	Status string `json:"validated_route,omitempty"`
	Data   struct {
		Validity struct {
			State string `json:"state"`
		} `json:"validity"`
	} `json:"data"`
}

// handleRPKI parses the prefix/origin-ASN pair and queries RIPEstat's RPKI
// validator, rendering {Valid, Invalid, NotFound} (spec §4.6 "-RPKI").
func handleRPKI(d *Deps, ctx context.Context, q query.Query) []byte {
	prefix, asn, ok := parseRPKIQuery(q.Normalized)
	if !ok {
		return []byte(fmt.Sprintf("%% RPKI Query Error: invalid format in query '%s'\n%% Expected format: <prefix>-<origin-asn>-RPKI\n", q.Raw))
	}

	reqURL := fmt.Sprintf("https://stat.ripe.net/data/rpki-validation/data.json?resource=%s&prefix=%s", asn, url.QueryEscape(prefix))
	var resp rpkiValidatorResponse
	if err := d.fetchJSON(ctx, reqURL, &resp); err != nil {
		return []byte(fmt.Sprintf("%% RPKI validation failed for %s / AS%s: %s\n", prefix, asn, err))
	}

	state := strings.ToUpper(resp.Data.Validity.State)
	result := "NotFound"
	switch state {
	case "VALID":
		result = "Valid"
	case "INVALID", "INVALID_ASN", "INVALID_LENGTH":
		result = "Invalid"
	}

	var sb strings.Builder
	sb.WriteString("% RPKI Origin Validation\n%\n")
	fmt.Fprintf(&sb, "prefix:       %s\n", prefix)
	fmt.Fprintf(&sb, "origin-as:    AS%s\n", asn)
	fmt.Fprintf(&sb, "validity:     %s\n", result)
	return []byte(sb.String())
}
