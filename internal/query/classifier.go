// Package query implements the query classifier (C5): it recognizes a raw
// WHOIS query's shape (IP, CIDR, ASN, domain, bare word) and its optional
// suffix tag, per spec §4.5 and the closed tag set of spec §6.
//
// The tag set is compiled once into a slice sorted by descending length so
// suffix matching always prefers the longest match (design notes §9: "compile
// the tag set once... rather than repeated case-insensitive suffix checks").
package query

import (
	"net"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/idna"
)

// Kind is the shape the classifier assigned to a query.
type Kind string

const (
	KindIPv4   Kind = "IPv4"
	KindIPv6   Kind = "IPv6"
	KindCIDR   Kind = "CIDR"
	KindASN    Kind = "ASN"
	KindDomain Kind = "Domain"
	KindBare   Kind = "Bare"
)

// Query is the classifier's output (spec §3).
type Query struct {
	Raw        string
	Normalized string
	Kind       Kind
	Tag        string // empty when no suffix tag was recognized
}

// Tags is the closed set of recognized suffix tags from spec §6, in their
// canonical uppercase form. Order here does not matter; Classify sorts a
// derived copy by length.
var Tags = []string{
	"EMAIL", "BGPTOOL", "PREFIXES", "GEO", "RIRGEO", "ULTIMATEGEO",
	"IRR", "LG", "RADB", "ALTDB", "AFRINIC", "APNIC", "ARIN", "BELL",
	"JPIRR", "LACNIC", "LEVEL3", "NTTCOM", "RIPE", "TC",
	"RPKI", "MANRS", "DNS", "TRACE", "TRACEROUTE", "SSL", "CRT",
	"MINECRAFT", "MC", "STEAM", "STEAMSEARCH", "IMDB", "IMDBSEARCH",
	"LYRIC", "WIKIPEDIA", "MEAL", "MEAL-CN",
	"CARGO", "PYPI", "NPM", "AUR", "DEBIAN", "UBUNTU", "NIXOS",
	"OPENSUSE", "AOSC", "EPEL", "MODRINTH", "CURSEFORGE",
	"GITHUB", "HELP", "CFSTATUS", "ACGC", "PEN", "PIXIV",
}

var sortedTags []string

func init() {
	sortedTags = append(sortedTags, Tags...)
	sort.Slice(sortedTags, func(i, j int) bool { return len(sortedTags[i]) > len(sortedTags[j]) })
}

var cidrRe = regexp.MustCompile(`^(.+)/(\d{1,3})$`)
var asnRe = regexp.MustCompile(`(?i)^AS(\d+)$`)
var domainLabelRe = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9-]{0,61}[A-Za-z0-9])?$`)

// Classify extracts the suffix tag (if any) and determines the kind of the
// remaining payload, per spec §4.5.
func Classify(raw string) Query {
	normalized := strings.TrimSpace(raw)

	tag, payload := extractTag(normalized)

	q := Query{
		Raw:        raw,
		Normalized: payload,
		Tag:        tag,
		Kind:       detectKind(payload),
	}
	return q
}

// extractTag strips the longest matching "-TAG" suffix (case-insensitive)
// and returns (uppercased tag, remaining payload). If nothing matches,
// returns ("", normalized).
func extractTag(s string) (string, string) {
	for _, tag := range sortedTags {
		suffix := "-" + tag
		if len(s) > len(suffix) && strings.EqualFold(s[len(s)-len(suffix):], suffix) {
			return tag, s[:len(s)-len(suffix)]
		}
	}
	return "", s
}

func detectKind(s string) Kind {
	if s == "" {
		return KindBare
	}

	if m := cidrRe.FindStringSubmatch(s); m != nil {
		if prefix, err := strconv.Atoi(m[2]); err == nil {
			if ip := net.ParseIP(m[1]); ip != nil {
				maxPrefix := 32
				if ip.To4() == nil {
					maxPrefix = 128
				}
				if prefix >= 0 && prefix <= maxPrefix {
					if _, _, err := net.ParseCIDR(s); err == nil {
						return KindCIDR
					}
				}
			}
		}
	}

	if ip := net.ParseIP(s); ip != nil {
		if ip.To4() != nil && !strings.Contains(s, ":") {
			return KindIPv4
		}
		return KindIPv6
	}

	if asnRe.MatchString(s) {
		return KindASN
	}

	if isDomain(s) {
		return KindDomain
	}

	return KindBare
}

func isDomain(s string) bool {
	if strings.ContainsAny(s, " \t\r\n") {
		return false
	}
	if len(s) < 1 || len(s) > 253 {
		return false
	}
	if !strings.Contains(s, ".") {
		return false
	}
	labels := strings.Split(s, ".")
	for _, label := range labels {
		if len(label) < 1 || len(label) > 63 {
			return false
		}
		if !domainLabelRe.MatchString(label) {
			// idna.Lookup handles internationalized labels (punycode/unicode)
			// that the ASCII regex above rejects.
			if _, err := idna.Lookup.ToASCII(label); err != nil {
				return false
			}
		}
	}
	return true
}
