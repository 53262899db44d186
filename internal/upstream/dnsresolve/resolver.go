package dnsresolve

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"strings"
	"time"

	"whoisd/internal/whoiserr"
)

// MaxDepth bounds referral-following; exhausting it yields a
// distinguishable error (spec §4.3.4).
const MaxDepth = 10

// QueryTimeout bounds a single UDP round-trip to one nameserver.
const QueryTimeout = 5 * time.Second

// rootServers is the hardcoded bootstrap list (a handful of the IANA
// root server addresses), mirroring the original resolver's root_servers
// field.
var rootServers = []string{
	"198.41.0.4:53",   // a.root-servers.net
	"199.9.14.201:53", // b.root-servers.net
	"192.33.4.12:53",  // c.root-servers.net
	"199.7.91.13:53",  // d.root-servers.net
}

// publicFallbackResolvers are queried directly (not iteratively) when a
// referral provides no glue records to continue with.
var publicFallbackResolvers = []string{
	"1.1.1.1:53",
	"8.8.8.8:53",
}

// Resolver performs iterative DNS resolution starting from rootServers.
type Resolver struct {
	RootServers []string
}

// New returns a Resolver seeded with the hardcoded root server list.
func New() *Resolver {
	return &Resolver{RootServers: append([]string(nil), rootServers...)}
}

// Resolve performs iterative resolution of domain for the given record
// type, returning the answer records found.
func (r *Resolver) Resolve(ctx context.Context, domain string, qtype uint16) ([]Record, error) {
	nameservers := append([]string(nil), r.RootServers...)
	if len(nameservers) == 0 {
		nameservers = append([]string(nil), rootServers...)
	}

	for depth := 0; depth < MaxDepth; depth++ {
		var lastResp *Response
		var queried bool

		for _, ns := range nameservers {
			resp, err := queryServer(ctx, ns, domain, qtype)
			if err != nil {
				continue
			}
			queried = true
			if len(resp.Answers) > 0 {
				return resp.Answers, nil
			}
			if len(resp.Authority) > 0 || len(resp.Additional) > 0 {
				lastResp = &resp
				break
			}
		}

		if !queried {
			return nil, whoiserr.Upstream(domain, "all nameservers failed", nil)
		}
		if lastResp == nil {
			return nil, whoiserr.New(whoiserr.NotFound, "no answer and no referral for "+domain)
		}

		next, err := extractNameservers(ctx, *lastResp)
		if err != nil {
			return nil, err
		}
		if len(next) == 0 {
			return nil, whoiserr.New(whoiserr.NotFound, "referral produced no usable nameservers for "+domain)
		}
		nameservers = next
	}

	return nil, whoiserr.New(whoiserr.Internal, "maximum referral depth reached for "+domain)
}

func queryServer(ctx context.Context, server, domain string, qtype uint16) (Response, error) {
	id := uint16(rand.Intn(1 << 16))
	query, err := encodeQuery(id, domain, qtype)
	if err != nil {
		return Response{}, whoiserr.New(whoiserr.InvalidQuery, err.Error())
	}

	conn, err := net.Dial("udp", server)
	if err != nil {
		return Response{}, whoiserr.Upstream(server, "udp dial failed", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(QueryTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)

	if _, err := conn.Write(query); err != nil {
		return Response{}, whoiserr.Upstream(server, "sending query", err)
	}

	buf := make([]byte, 512)
	n, err := conn.Read(buf)
	if err != nil {
		return Response{}, whoiserr.Upstream(server, "reading response", err)
	}

	return parseResponse(buf[:n])
}

// extractNameservers builds the next hop's nameserver address list from a
// referral's authority (NS records) and additional (glue A/AAAA) sections.
// Glueless NS targets are resolved via the public fallback resolvers.
func extractNameservers(ctx context.Context, resp Response) ([]string, error) {
	var nsNames []string
	for _, rec := range resp.Authority {
		if rec.Type != TypeNS {
			continue
		}
		name, err := rec.NameInData()
		if err != nil {
			continue
		}
		nsNames = append(nsNames, strings.ToLower(name))
	}
	if len(nsNames) == 0 {
		return nil, nil
	}

	glue := make(map[string][]string)
	for _, rec := range resp.Additional {
		name := strings.ToLower(strings.TrimSuffix(rec.Name, "."))
		switch rec.Type {
		case TypeA:
			if len(rec.Data) == 4 {
				glue[name] = append(glue[name], net.IP(rec.Data).String())
			}
		case TypeAAAA:
			if len(rec.Data) == 16 {
				glue[name] = append(glue[name], net.IP(rec.Data).String())
			}
		}
	}

	var next []string
	var glueless []string
	for _, ns := range nsNames {
		ns = strings.TrimSuffix(ns, ".")
		if ips, ok := glue[ns]; ok {
			for _, ip := range ips {
				next = append(next, net.JoinHostPort(ip, "53"))
			}
		} else {
			glueless = append(glueless, ns)
		}
	}

	if len(next) > 0 {
		return next, nil
	}

	// Glueless referral: resolve one NS name via the public fallback
	// resolvers, per spec §4.3.4.
	for _, ns := range glueless {
		ips, err := resolveViaFallback(ctx, ns)
		if err != nil || len(ips) == 0 {
			continue
		}
		for _, ip := range ips {
			next = append(next, net.JoinHostPort(ip, "53"))
		}
		if len(next) > 0 {
			return next, nil
		}
	}
	return nil, nil
}

func resolveViaFallback(ctx context.Context, name string) ([]string, error) {
	for _, resolver := range publicFallbackResolvers {
		resp, err := queryServer(ctx, resolver, name, TypeA)
		if err != nil {
			continue
		}
		var ips []string
		for _, rec := range resp.Answers {
			if rec.Type == TypeA && len(rec.Data) == 4 {
				ips = append(ips, net.IP(rec.Data).String())
			}
		}
		if len(ips) > 0 {
			return ips, nil
		}
	}
	return nil, fmt.Errorf("dns: could not resolve glueless nameserver %s", name)
}
