package whoisclient

import (
	"context"
	"net/url"
	"strings"

	"github.com/openrdap/rdap/bootstrap"
)

// DefaultHost is the bootstrap server queried when a TLD or IP space has
// no more specific entry below and the IANA bootstrap registry lookup
// itself comes up empty; IANA's root server follows "refer:" lines to the
// authoritative registry itself.
const DefaultHost = "whois.iana.org"

// tldHosts maps a handful of well-known TLDs directly to their
// authoritative WHOIS server, short-circuiting the IANA bootstrap hop
// (bootstrapLookup below) for the most common cases.
var tldHosts = map[string]string{
	"com":  "whois.verisign-grs.com",
	"net":  "whois.verisign-grs.com",
	"org":  "whois.pir.org",
	"io":   "whois.nic.io",
	"dev":  "whois.nic.google",
	"app":  "whois.nic.google",
	"co":   "whois.nic.co",
	"info": "whois.afilias.net",
}

// rirHosts maps RIR names to their WHOIS servers, used both by the
// IP-address bootstrap path and by the RIR-named suffix tags (-AFRINIC,
// -APNIC, -ARIN, -LACNIC, -RIPE).
var rirHosts = map[string]string{
	"afrinic": "whois.afrinic.net",
	"apnic":   "whois.apnic.net",
	"arin":    "whois.arin.net",
	"lacnic":  "whois.lacnic.net",
	"ripe":    "whois.ripe.net",
}

// IRRHosts maps the IRR-style suffix tags (spec §6) to their routing
// registry WHOIS servers, for the handlers that query a specific registry
// rather than following a referral chain. These name a registry directly,
// so unlike HostForDomain there is nothing to bootstrap.
var IRRHosts = map[string]string{
	"IRR":     "rr.ntt.net",
	"LG":      "whois.radb.net",
	"RADB":    "whois.radb.net",
	"ALTDB":   "whois.altdb.net",
	"AFRINIC": rirHosts["afrinic"],
	"APNIC":   rirHosts["apnic"],
	"ARIN":    rirHosts["arin"],
	"BELL":    "whois.in.bell.ca",
	"JPIRR":   "jpirr.nic.ad.jp",
	"LACNIC":  rirHosts["lacnic"],
	"LEVEL3":  "rr.level3.net",
	"NTTCOM":  "rr.ntt.net",
	"RIPE":    rirHosts["ripe"],
	"TC":      "whois.twnic.net.tw",
}

// bootstrapLookuper is the slice of *bootstrap.Client this package depends
// on, narrowed to one method so tests can swap in a fake instead of
// reaching the real IANA bootstrap registry over HTTP.
type bootstrapLookuper interface {
	Lookup(q *bootstrap.Question) (*bootstrap.Answer, error)
}

// bootstrapClient resolves a TLD or IP block to its authoritative RDAP/WHOIS
// host via IANA's bootstrap registry, the same client the teacher wires as
// client.bootstrapClient in internal/registrydata/client.go.
var bootstrapClient bootstrapLookuper = &bootstrap.Client{}

// HostForDomain returns the authoritative server for a domain's TLD: the
// static table short-circuits the common cases, anything else is resolved
// dynamically against IANA's bootstrap registry (spec §4.6 "Default"
// follows whichever host actually carries the TLD's delegation, not just
// a hardcoded handful), and the IANA root server itself is the last
// resort if the bootstrap lookup fails or comes up empty.
func HostForDomain(ctx context.Context, domain string) string {
	labels := strings.Split(strings.ToLower(domain), ".")
	tld := labels[len(labels)-1]
	if host, ok := tldHosts[tld]; ok {
		return host
	}

	answer, err := bootstrapClient.Lookup((&bootstrap.Question{RegistryType: bootstrap.DNS, Query: tld}).WithContext(ctx))
	if err != nil || answer == nil || len(answer.URLs) == 0 {
		return DefaultHost
	}
	if u := pickBootstrapURL(answer.URLs); u != nil && u.Host != "" {
		return u.Host
	}
	return DefaultHost
}

// HostForRIR returns a RIR's WHOIS server by name (case-insensitive), or
// empty if unrecognized. The five RIRs are a fixed, long-stable set named
// directly by the -AFRINIC/-APNIC/-ARIN/-LACNIC/-RIPE suffix tags, so
// there's no TLD-style long tail here worth bootstrapping dynamically.
func HostForRIR(rir string) string {
	return rirHosts[strings.ToLower(rir)]
}

// pickBootstrapURL prefers an https bootstrap URL, falling back to
// whatever IANA returned first otherwise. Mirrors the teacher's
// pickBootstrapURL in internal/registrydata/client.go.
func pickBootstrapURL(urls []*url.URL) *url.URL {
	for _, u := range urls {
		if u != nil && strings.EqualFold(u.Scheme, "https") {
			return u
		}
	}
	if len(urls) > 0 {
		return urls[0]
	}
	return nil
}
